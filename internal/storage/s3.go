package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/daniel/reach-sync/internal/domain/report/policy"
)

// S3Config holds S3/MinIO configuration
type S3Config struct {
	Endpoint        string // e.g., "http://localhost:9000" for MinIO
	AccessKeyID     string
	SecretAccessKey string
	Bucket          string
	Region          string
}

// S3Archive keeps full run summaries in object storage, one JSON
// document per run keyed by date and run ID
type S3Archive struct {
	client *s3.Client
	bucket string
}

// NewS3Archive creates a new run archive over S3-compatible storage
func NewS3Archive(cfg S3Config) (*S3Archive, error) {
	client := s3.New(s3.Options{
		Region:       cfg.Region,
		BaseEndpoint: aws.String(cfg.Endpoint),
		Credentials: credentials.NewStaticCredentialsProvider(
			cfg.AccessKeyID,
			cfg.SecretAccessKey,
			"",
		),
		UsePathStyle: true, // Required for MinIO
	})

	return &S3Archive{
		client: client,
		bucket: cfg.Bucket,
	}, nil
}

// ArchiveRun stores one run summary under runs/YYYY/MM/DD/<run-id>.json
func (s *S3Archive) ArchiveRun(ctx context.Context, run *policy.RunResult) error {
	body, err := json.Marshal(run)
	if err != nil {
		return fmt.Errorf("encoding run: %w", err)
	}

	key := fmt.Sprintf("runs/%s/%s.json", run.StartedAt.Format("2006/01/02"), run.RunID)

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(body),
		ContentType:   aws.String("application/json"),
		ContentLength: aws.Int64(int64(len(body))),
	})
	if err != nil {
		return fmt.Errorf("uploading run to s3: %w", err)
	}
	return nil
}
