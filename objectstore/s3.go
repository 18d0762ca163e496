// Package objectstore implements the ObjectStore interface against any
// S3-compatible service (AWS S3, MinIO).
package objectstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/kjayal/clientvault"
)

// Config holds connection settings for the S3-compatible store.
type Config struct {
	// Region for request signing (e.g. "us-east-1").
	Region string `mapstructure:"region" validate:"required"`
	// Bucket all object keys live in.
	Bucket string `mapstructure:"bucket" validate:"required"`
	// Endpoint overrides the AWS endpoint; set for MinIO or another
	// S3-compatible service. Empty means AWS.
	Endpoint string `mapstructure:"endpoint"`
	// AccessKey/SecretKey select static credentials. Leave both empty to use
	// the default provider chain (environment, shared config, instance role).
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	// UsePathStyle forces path-style addressing, required by MinIO.
	UsePathStyle bool `mapstructure:"use_path_style"`
}

// Store talks to one bucket of an S3-compatible object store. The presign
// client signs grants locally; issuing a grant costs no network round trip.
type Store struct {
	client  *s3.Client
	presign *s3.PresignClient
	bucket  string
}

func New(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("new object store: bucket is required")
	}

	loadOpts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.AccessKey != "" || cfg.SecretKey != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("new object store: load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle
	})

	return &Store{
		client:  client,
		presign: s3.NewPresignClient(client),
		bucket:  cfg.Bucket,
	}, nil
}

// IssueUploadGrant presigns a PUT of the exact key, valid for ttl. The
// credential grants nothing else: no list, no delete, no other key.
func (s *Store) IssueUploadGrant(ctx context.Context, key string, ttl time.Duration) (clientvault.UploadGrant, error) {
	if ttl <= 0 {
		return clientvault.UploadGrant{}, fmt.Errorf("issue upload grant: %w: ttl must be positive", clientvault.ErrInvalidInput)
	}

	issued := time.Now().UTC()
	req, err := s.presign.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(ttl))
	if err != nil {
		return clientvault.UploadGrant{}, fmt.Errorf("issue upload grant: %w", err)
	}

	return clientvault.UploadGrant{
		Key:       key,
		URL:       req.URL,
		Method:    clientvault.GrantMethodPut,
		IssuedAt:  issued,
		ExpiresAt: issued.Add(ttl),
	}, nil
}

// IssueDownloadGrant presigns a GET of the exact key, valid for ttl.
func (s *Store) IssueDownloadGrant(ctx context.Context, key string, ttl time.Duration) (clientvault.UploadGrant, error) {
	if ttl <= 0 {
		return clientvault.UploadGrant{}, fmt.Errorf("issue download grant: %w: ttl must be positive", clientvault.ErrInvalidInput)
	}

	issued := time.Now().UTC()
	req, err := s.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(ttl))
	if err != nil {
		return clientvault.UploadGrant{}, fmt.Errorf("issue download grant: %w", err)
	}

	return clientvault.UploadGrant{
		Key:       key,
		URL:       req.URL,
		Method:    clientvault.GrantMethodGet,
		IssuedAt:  issued,
		ExpiresAt: issued.Add(ttl),
	}, nil
}

// DeleteObject removes the object at key. S3's delete is idempotent: a
// missing key is reported as success, which is exactly the contract the
// service's delete algorithm relies on for retries.
func (s *Store) DeleteObject(ctx context.Context, key string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var noKey *types.NoSuchKey
		if errors.As(err, &noKey) {
			return nil
		}
		return fmt.Errorf("delete object %s: %w", key, err)
	}
	return nil
}

// ObjectExists heads the key and reports presence.
func (s *Store) ObjectExists(ctx context.Context, key string) (bool, error) {
	_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var notFound *types.NotFound
		if errors.As(err, &notFound) {
			return false, nil
		}
		return false, fmt.Errorf("object exists %s: %w", key, err)
	}
	return true, nil
}
