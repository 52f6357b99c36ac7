// Package externalfs implements the BASE collaborator spec.md §6 calls "the
// external filesystem": the authoritative storage behind BASE, which
// `Collapse` calls into when it folds mappings into BASE. Grounded on the teacher's
// internal/storage/s3.Backend, trimmed to the put/delete/list/stat surface
// this domain actually calls — no byte-range reads, no CargoShip-optimized
// multipart download path, since the index never streams file content.
package externalfs

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awssdkconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	cargoshipconfig "github.com/scttfrdmn/cargoship/pkg/aws/config"
	cargoships3 "github.com/scttfrdmn/cargoship/pkg/aws/s3"

	"github.com/ufs/ufs/pkg/logging"
)

// ObjectInfo describes a single object on the external side.
type ObjectInfo struct {
	Key          string
	Size         int64
	LastModified time.Time
	ETag         string
}

// Backend is the BASE collaborator interface. internal/circuit wraps an
// implementation of this with failure detection; internal/ufs depends on
// the interface, never on *S3Backend directly, so tests substitute a fake.
type Backend interface {
	Put(ctx context.Context, key string, data []byte) error
	Delete(ctx context.Context, key string) error
	List(ctx context.Context, prefix string, limit int) ([]ObjectInfo, error)
	Stat(ctx context.Context, key string) (*ObjectInfo, error)
}

// Config configures the S3-backed Backend.
type Config struct {
	Bucket         string `yaml:"bucket"`
	Region         string `yaml:"region"`
	Endpoint       string `yaml:"endpoint"`
	ForcePathStyle bool   `yaml:"force_path_style"`
	MaxRetries     int    `yaml:"max_retries"`

	// AccessKeyID/SecretAccessKey/SessionToken, if AccessKeyID is set,
	// select an explicit static credential (e.g. an assumed-role session)
	// instead of the default provider chain's environment/shared-config/
	// instance-role lookup.
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
	SessionToken    string `yaml:"session_token"`

	EnableCargoShipOptimization bool   `yaml:"enable_cargoship_optimization"`
	MultipartThreshold          int64  `yaml:"multipart_threshold"`
	MultipartChunkSize          int64  `yaml:"multipart_chunk_size"`
	MultipartConcurrency        int    `yaml:"multipart_concurrency"`
}

// S3Backend implements Backend against a real S3-compatible bucket.
//
// Unlike the teacher's storage backend, there is no ConnectionPool here:
// spec.md §5 makes the engine single-writer with no concurrent callers, so
// pooling multiple *s3.Client instances against a sole caller has nothing
// to pool against.
type S3Backend struct {
	client      *s3.Client
	bucket      string
	transporter *cargoships3.Transporter
	log         *logging.Logger
}

// NewS3Backend builds an S3 client against cfg and optionally wraps it with
// a CargoShip transporter for Put's multipart-aware upload path. Credential
// resolution follows cfg.AccessKeyID: set, it selects an explicit static
// credential (e.g. a pre-assumed role's session); empty, it falls back to
// the default provider chain (environment, shared config, instance role).
func NewS3Backend(ctx context.Context, cfg Config, log *logging.Logger) (*S3Backend, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("externalfs: bucket name cannot be empty")
	}
	if log == nil {
		log = logging.Discard()
	}

	opts := []func(*awssdkconfig.LoadOptions) error{
		awssdkconfig.WithRegion(cfg.Region),
		awssdkconfig.WithRetryMaxAttempts(cfg.MaxRetries),
	}
	if cfg.AccessKeyID != "" {
		opts = append(opts, awssdkconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, cfg.SessionToken),
		))
	}

	awsCfg, err := awssdkconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("externalfs: load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		if cfg.ForcePathStyle {
			o.UsePathStyle = true
		}
	})

	var transporter *cargoships3.Transporter
	if cfg.EnableCargoShipOptimization {
		transporter = cargoships3.NewTransporter(client, cargoshipconfig.S3Config{
			Bucket:             cfg.Bucket,
			StorageClass:       cargoshipconfig.StorageClassIntelligentTiering,
			MultipartThreshold: cfg.MultipartThreshold,
			MultipartChunkSize: cfg.MultipartChunkSize,
			Concurrency:        cfg.MultipartConcurrency,
		})
	}

	return &S3Backend{
		client:      client,
		bucket:      cfg.Bucket,
		transporter: transporter,
		log:         log.With("externalfs"),
	}, nil
}

// Put uploads data at key, via the CargoShip transporter when enabled.
func (b *S3Backend) Put(ctx context.Context, key string, data []byte) error {
	if b.transporter != nil {
		_, err := b.transporter.Upload(ctx, cargoships3.Archive{
			Key:          key,
			Reader:       bytes.NewReader(data),
			Size:         int64(len(data)),
			StorageClass: cargoshipconfig.StorageClassStandard,
		})
		if err != nil {
			return b.translate(err, "Put", key)
		}
		return nil
	}

	_, err := b.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(b.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
	})
	if err != nil {
		return b.translate(err, "Put", key)
	}
	return nil
}

// Delete removes key, invoked by Collapse for every storage folded into
// BASE (spec.md §4.5).
func (b *S3Backend) Delete(ctx context.Context, key string) error {
	_, err := b.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return b.translate(err, "Delete", key)
	}
	return nil
}

// List returns up to limit objects under prefix (limit <= 0 means
// unbounded).
func (b *S3Backend) List(ctx context.Context, prefix string, limit int) ([]ObjectInfo, error) {
	var maxKeys *int32
	if limit > 0 {
		maxKeys = aws.Int32(int32(limit))
	}

	result, err := b.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
		Bucket:  aws.String(b.bucket),
		Prefix:  aws.String(prefix),
		MaxKeys: maxKeys,
	})
	if err != nil {
		return nil, b.translate(err, "List", prefix)
	}

	out := make([]ObjectInfo, 0, len(result.Contents))
	for _, obj := range result.Contents {
		out = append(out, ObjectInfo{
			Key:          aws.ToString(obj.Key),
			Size:         aws.ToInt64(obj.Size),
			LastModified: aws.ToTime(obj.LastModified),
			ETag:         aws.ToString(obj.ETag),
		})
	}
	return out, nil
}

// Stat retrieves metadata about key without fetching its body. The engine's
// view resolution does not call it; the index alone decides resolution.
func (b *S3Backend) Stat(ctx context.Context, key string) (*ObjectInfo, error) {
	result, err := b.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, b.translate(err, "Stat", key)
	}
	return &ObjectInfo{
		Key:          key,
		Size:         aws.ToInt64(result.ContentLength),
		LastModified: aws.ToTime(result.LastModified),
		ETag:         aws.ToString(result.ETag),
	}, nil
}

func (b *S3Backend) translate(err error, operation, key string) error {
	var noSuchKey *s3types.NoSuchKey
	var noSuchBucket *s3types.NoSuchBucket
	switch {
	case errors.As(err, &noSuchKey):
		b.log.Debug("%s: object not found: %s", operation, key)
		return fmt.Errorf("externalfs: object not found: %s", key)
	case errors.As(err, &noSuchBucket):
		b.log.Warn("%s: bucket not found: %s", operation, b.bucket)
		return fmt.Errorf("externalfs: bucket not found: %s", b.bucket)
	default:
		b.log.Warn("%s failed for %s: %v", operation, key, err)
		return fmt.Errorf("externalfs: %s failed for %s: %w", operation, key, err)
	}
}
