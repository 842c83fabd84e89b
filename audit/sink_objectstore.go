package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"path"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

const DefaultObjectKeyPrefix = "agent-logs"

// ObjectPutter is the subset of *s3.Client used by ObjectStoreSink.
type ObjectPutter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// ObjectStoreSink keeps one JSON object per audit record, keyed by principal
// and timestamp so a customer's agent history can be listed by prefix.
type ObjectStoreSink struct {
	client ObjectPutter
	bucket string
	prefix string
}

type S3SinkConfig struct {
	Bucket   string
	Region   string
	Endpoint string // MinIO, LocalStack
	Prefix   string
}

func NewObjectStoreSink(client ObjectPutter, bucket, prefix string) *ObjectStoreSink {
	if prefix == "" {
		prefix = DefaultObjectKeyPrefix
	}

	return &ObjectStoreSink{
		client: client,
		bucket: bucket,
		prefix: prefix,
	}
}

func NewS3Sink(ctx context.Context, cfg S3SinkConfig) (*ObjectStoreSink, error) {
	awsCfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	return NewObjectStoreSink(client, cfg.Bucket, cfg.Prefix), nil
}

func (s *ObjectStoreSink) Name() string {
	return "objectstore"
}

func (s *ObjectStoreSink) Key(record AuditRecord) string {
	return path.Join(s.prefix, record.PrincipalID, record.Timestamp.UTC().Format(time.RFC3339Nano)+".json")
}

func (s *ObjectStoreSink) Write(ctx context.Context, record AuditRecord) error {
	body, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal audit record: %w", err)
	}

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(s.Key(record)),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("s3 put failed: %w", err)
	}

	return nil
}
