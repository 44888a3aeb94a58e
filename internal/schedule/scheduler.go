// Package schedule runs background jobs on cron specs.
package schedule

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"
)

type Job interface {
	Name() string
	Run(ctx context.Context) error
}

type Scheduler struct {
	cron *cron.Cron
	ctx  context.Context
}

func NewScheduler() *Scheduler {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	return &Scheduler{cron: cron.New(cron.WithParser(parser))}
}

func (s *Scheduler) AddJob(job Job, spec string) error {
	logger := logutil.GetLogger(context.Background()).With(
		zap.String("job", job.Name()), zap.String("spec", spec))
	if _, err := s.cron.AddFunc(spec, s.wrap(job)); err != nil {
		logger.Error("schedule job failed", zap.Error(err))
		return err
	}
	logger.Info("job scheduled")
	return nil
}

func (s *Scheduler) Start(ctx context.Context) {
	if ctx == nil {
		ctx = context.Background()
	}
	s.ctx = ctx
	s.cron.Start()
}

// Stop blocks until any in-flight job run completes.
func (s *Scheduler) Stop() {
	done := s.cron.Stop()
	<-done.Done()
}

// wrap serializes runs of the same job: an invocation that fires while the
// previous one is still running is skipped.
func (s *Scheduler) wrap(job Job) func() {
	var running atomic.Bool
	return func() {
		if !running.CompareAndSwap(false, true) {
			logutil.GetLogger(context.Background()).Info("job skipped: still running",
				zap.String("job", job.Name()))
			return
		}
		defer running.Store(false)

		ctx := s.ctx
		if ctx == nil {
			ctx = context.Background()
		}
		logger := logutil.GetLogger(ctx).With(zap.String("job", job.Name()))
		start := time.Now()
		logger.Info("job started")
		if err := job.Run(ctx); err != nil {
			logger.Error("job finished", zap.Error(err), zap.Duration("duration", time.Since(start)))
			return
		}
		logger.Info("job finished", zap.Duration("duration", time.Since(start)))
	}
}
