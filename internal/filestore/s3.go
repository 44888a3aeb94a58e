package filestore

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/tripwise-ai/tripwise/internal/config"
)

type s3Store struct {
	client *s3.Client
	bucket string
	prefix string
}

func init() {
	Register("s3", createS3Store)
}

func createS3Store(cfg config.FileStoreConfig) (Store, error) {
	sc := cfg.S3
	if sc.Bucket == "" || sc.SecretID == "" || sc.SecretKey == "" {
		return nil, fmt.Errorf("s3 bucket/secret_id/secret_key are required")
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(),
		awsconfig.WithRegion(sc.Region),
		awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(sc.SecretID, sc.SecretKey, ""),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("load s3 config: %w", err)
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if sc.Endpoint != "" {
			endpoint := sc.Endpoint
			if !strings.HasPrefix(endpoint, "http://") && !strings.HasPrefix(endpoint, "https://") {
				scheme := "http"
				if sc.UseSSL {
					scheme = "https"
				}
				endpoint = scheme + "://" + endpoint
			}
			o.BaseEndpoint = &endpoint
			o.UsePathStyle = true
		}
	})
	return &s3Store{
		client: client,
		bucket: sc.Bucket,
		prefix: strings.Trim(sc.Prefix, "/"),
	}, nil
}

func (s *s3Store) objectKey(key string) string {
	if s.prefix != "" {
		return path.Join(s.prefix, key)
	}
	return key
}

func (s *s3Store) Save(ctx context.Context, key string, r io.Reader) error {
	if key == "" {
		return fmt.Errorf("file key is required")
	}
	objectKey := s.objectKey(key)
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: &s.bucket,
		Key:    &objectKey,
		Body:   r,
	})
	return err
}

func (s *s3Store) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	if key == "" {
		return nil, fmt.Errorf("file key is required")
	}
	objectKey := s.objectKey(key)
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: &s.bucket,
		Key:    &objectKey,
	})
	if err != nil {
		return nil, err
	}
	return out.Body, nil
}
