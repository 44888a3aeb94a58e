package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/xxxsen/common/logger"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/tripwise-ai/tripwise/internal/config"
	"github.com/tripwise-ai/tripwise/internal/db"
	"github.com/tripwise-ai/tripwise/internal/document"
	"github.com/tripwise-ai/tripwise/internal/embed"
	"github.com/tripwise-ai/tripwise/internal/embedcache"
	"github.com/tripwise-ai/tripwise/internal/filestore"
	"github.com/tripwise-ai/tripwise/internal/job"
	"github.com/tripwise-ai/tripwise/internal/llm"
	"github.com/tripwise-ai/tripwise/internal/rag"
	"github.com/tripwise-ai/tripwise/internal/repo"
	"github.com/tripwise-ai/tripwise/internal/schedule"
	"github.com/tripwise-ai/tripwise/internal/service"
	"github.com/tripwise-ai/tripwise/internal/vector"
)

type app struct {
	cfg       *config.Config
	assistant *service.Assistant
	cacheRepo *repo.EmbeddingCacheRepo
}

func buildApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	logger.Init(cfg.LogFile, cfg.LogLevel, 5, 50, 7, cfg.LogFile == "")

	registry := llm.BuildRegistry(ctx, cfg.Providers)

	embedder, err := embed.NewEmbedder(cfg.Embedder)
	if err != nil {
		return nil, fmt.Errorf("build embedder: %w", err)
	}

	var store vector.Store
	var cacheRepo *repo.EmbeddingCacheRepo
	if cfg.VectorStore == "postgres" {
		conn, err := db.Open(cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("open database: %w", err)
		}
		if err := db.ApplyMigrations(conn); err != nil {
			return nil, fmt.Errorf("apply migrations: %w", err)
		}
		cacheRepo = repo.NewEmbeddingCacheRepo(conn)
		if cfg.Cache.EnableDBWrap {
			embedder = embedcache.WrapDBCacheToEmbedder(embedder, cacheRepo)
		}
		embedder = embedcache.WrapLRUCacheToEmbedder(embedder, cfg.Cache.LRUSize,
			time.Duration(cfg.Cache.TTLMinutes)*time.Minute)
		store = vector.NewPostgresStore(embedder, repo.NewChunkRepo(conn))
	} else {
		embedder = embedcache.WrapLRUCacheToEmbedder(embedder, cfg.Cache.LRUSize,
			time.Duration(cfg.Cache.TTLMinutes)*time.Minute)
		store = vector.NewMemoryStore(embedder)
	}

	chunker, err := document.NewChunker(nil, cfg.ChunkSize, cfg.ChunkOverlap)
	if err != nil {
		return nil, fmt.Errorf("build chunker: %w", err)
	}
	processor := document.NewProcessor(chunker)
	engine := rag.NewEngine(store, registry, cfg.TopKResults, cfg.SimilarityThreshold)

	files, err := filestore.New(cfg.FileStore)
	if err != nil {
		logutil.GetLogger(ctx).Warn("file store not available", zap.Error(err))
		files = nil
	}

	return &app{
		cfg:       cfg,
		assistant: service.NewAssistant(cfg, registry, processor, store, engine, files),
		cacheRepo: cacheRepo,
	}, nil
}

func printJSON(v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}

func main() {
	ctx := context.Background()

	rootCmd := &cobra.Command{
		Use:   "tripwise",
		Short: "travel assistant backend: llm orchestration and document grounding",
	}

	var providerName string
	var systemMessage string
	var maxTokens int
	var temperature float64
	rootCmd.PersistentFlags().StringVar(&providerName, "provider", "", "provider to use (default: fallback chain)")

	providersCmd := &cobra.Command{
		Use:   "providers",
		Short: "list registered providers in priority order",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := buildApp(ctx)
			if err != nil {
				return err
			}
			for _, name := range a.assistant.ListProviders() {
				fmt.Println(name)
			}
			return nil
		},
	}

	generateCmd := &cobra.Command{
		Use:   "generate <prompt>",
		Short: "generate a response for a prompt",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := buildApp(ctx)
			if err != nil {
				return err
			}
			result := a.assistant.GenerateResponse(ctx, args[0], providerName, systemMessage, maxTokens, temperature)
			return printJSON(result)
		},
	}
	generateCmd.Flags().StringVar(&systemMessage, "system", "", "system message")
	generateCmd.Flags().IntVar(&maxTokens, "max-tokens", 0, "max tokens (default from config)")
	generateCmd.Flags().Float64Var(&temperature, "temperature", 0, "temperature (default from config)")

	chatCmd := &cobra.Command{
		Use:   "chat <message> [message...]",
		Short: "run a chat completion; messages alternate user/assistant starting with user",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := buildApp(ctx)
			if err != nil {
				return err
			}
			messages := make([]llm.Message, 0, len(args))
			for i, arg := range args {
				role := "user"
				if i%2 == 1 {
					role = "assistant"
				}
				messages = append(messages, llm.Message{Role: role, Content: arg})
			}
			result := a.assistant.ChatCompletion(ctx, messages, providerName, 0, 0)
			return printJSON(result)
		},
	}

	var fromStore bool
	ingestCmd := &cobra.Command{
		Use:   "ingest <path>",
		Short: "parse, chunk and index a document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := buildApp(ctx)
			if err != nil {
				return err
			}
			var result *service.IngestResult
			if fromStore {
				result, err = a.assistant.IngestFromStore(ctx, args[0])
			} else {
				result, err = a.assistant.IngestDocument(ctx, args[0])
			}
			if err != nil {
				return err
			}
			return printJSON(result)
		},
	}
	ingestCmd.Flags().BoolVar(&fromStore, "from-store", false, "read the key from the configured file store instead of the local filesystem")

	var topK int
	queryCmd := &cobra.Command{
		Use:   "query <question>",
		Short: "answer a question grounded in the indexed documents",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := buildApp(ctx)
			if err != nil {
				return err
			}
			resp, err := a.assistant.QueryDocuments(ctx, args[0], topK, providerName)
			if err != nil {
				return err
			}
			return printJSON(resp)
		},
	}
	queryCmd.Flags().IntVar(&topK, "top-k", 0, "number of chunks to retrieve (default from config)")

	deleteCmd := &cobra.Command{
		Use:   "delete <document-hash>",
		Short: "remove an indexed document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := buildApp(ctx)
			if err != nil {
				return err
			}
			deleted, err := a.assistant.DeleteDocument(ctx, args[0])
			if err != nil {
				return err
			}
			return printJSON(map[string]bool{"success": deleted})
		},
	}

	var destination, startDate, endDate, budget string
	var travelers int
	planCmd := &cobra.Command{
		Use:   "plan <request>",
		Short: "run the trip planning workflow",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := buildApp(ctx)
			if err != nil {
				return err
			}
			plan, err := a.assistant.PlanTrip(ctx, service.TripRequest{
				Query:       args[0],
				Destination: destination,
				StartDate:   startDate,
				EndDate:     endDate,
				Budget:      budget,
				Travelers:   travelers,
			}, providerName)
			if err != nil {
				return err
			}
			return printJSON(plan)
		},
	}
	planCmd.Flags().StringVar(&destination, "destination", "", "destination hint")
	planCmd.Flags().StringVar(&startDate, "start", "", "start date")
	planCmd.Flags().StringVar(&endDate, "end", "", "end date")
	planCmd.Flags().StringVar(&budget, "budget", "", "budget hint")
	planCmd.Flags().IntVar(&travelers, "travelers", 0, "number of travelers")

	var consensusProviders string
	consensusCmd := &cobra.Command{
		Use:   "consensus <prompt>",
		Short: "ask several providers the same question",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := buildApp(ctx)
			if err != nil {
				return err
			}
			var names []string
			if consensusProviders != "" {
				names = strings.Split(consensusProviders, ",")
			}
			result, err := a.assistant.Consensus(ctx, args[0], systemMessage, names)
			if err != nil {
				return err
			}
			return printJSON(result)
		},
	}
	consensusCmd.Flags().StringVar(&consensusProviders, "providers", "", "comma-separated provider names (default: all registered)")
	consensusCmd.Flags().StringVar(&systemMessage, "system", "", "system message")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "run the background scheduler until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := buildApp(ctx)
			if err != nil {
				return err
			}
			log := logutil.GetLogger(ctx)
			sched := schedule.NewScheduler()
			if a.cacheRepo != nil {
				cleanup := job.NewEmbeddingCacheCleanupJob(a.cacheRepo, a.cfg.Cache.MaxAgeDays)
				if err := sched.AddJob(cleanup, a.cfg.Cache.CleanupSpec); err != nil {
					return err
				}
			} else {
				log.Info("no database configured, scheduler runs without cleanup jobs")
			}
			sched.Start(ctx)
			defer sched.Stop()

			log.Info("scheduler running, waiting for signal")
			sig := make(chan os.Signal, 1)
			signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
			<-sig
			log.Info("shutting down")
			return nil
		},
	}

	rootCmd.AddCommand(providersCmd, generateCmd, chatCmd, ingestCmd, queryCmd, deleteCmd, planCmd, consensusCmd, runCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
