// Package storage uploads profile icons to S3-compatible object storage.
package storage

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
)

// S3Provider represents the S3-compatible storage provider
type S3Provider string

const (
	S3ProviderAWS    S3Provider = "aws"
	S3ProviderWasabi S3Provider = "wasabi"
	// Any other endpoint speaking the S3 API (MinIO, R2)
	S3ProviderCustom S3Provider = "custom"
)

// WasabiEndpoints maps regions to Wasabi endpoints
var WasabiEndpoints = map[string]string{
	"us-east-1":      "s3.us-east-1.wasabisys.com",
	"us-west-1":      "s3.us-west-1.wasabisys.com",
	"eu-central-1":   "s3.eu-central-1.wasabisys.com",
	"ap-northeast-1": "s3.ap-northeast-1.wasabisys.com",
	"ap-southeast-1": "s3.ap-southeast-1.wasabisys.com",
}

type S3Config struct {
	Provider        S3Provider
	AccessKeyID     string
	SecretAccessKey string
	Region          string
	Bucket          string
	// Full URL, required for the custom provider
	Endpoint string
	// Prefix of the public icon URLs, e.g. a CDN in front of the bucket
	PublicBaseURL string
}

// Configured reports whether icons should go to the bucket rather than
// being inlined on the profile.
func (c S3Config) Configured() bool {
	return c.Bucket != "" && c.AccessKeyID != "" && c.SecretAccessKey != ""
}

func (c S3Config) endpoint() string {
	switch c.Provider {
	case S3ProviderWasabi:
		if c.Endpoint != "" {
			return c.Endpoint
		}
		if host, ok := WasabiEndpoints[c.Region]; ok {
			return "https://" + host
		}
		return "https://s3.ap-southeast-1.wasabisys.com"
	case S3ProviderCustom:
		return c.Endpoint
	}
	return ""
}

// NewS3Client creates an S3 client for the configured provider.
func NewS3Client(ctx context.Context, cfg S3Config) (*s3.Client, error) {
	awsCfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion(cfg.Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKeyID,
			cfg.SecretAccessKey,
			"",
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	endpoint := cfg.endpoint()
	if endpoint == "" {
		return s3.NewFromConfig(awsCfg), nil
	}
	// Non-AWS providers need path-style addressing
	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(endpoint)
		o.UsePathStyle = true
	}), nil
}

// IconBucket stores compressed icons as public objects.
type IconBucket struct {
	client        *s3.Client
	bucket        string
	publicBaseURL string
}

func NewIconBucket(ctx context.Context, cfg S3Config) (*IconBucket, error) {
	client, err := NewS3Client(ctx, cfg)
	if err != nil {
		return nil, err
	}

	base := strings.TrimRight(cfg.PublicBaseURL, "/")
	if base == "" {
		if endpoint := cfg.endpoint(); endpoint != "" {
			base = strings.TrimRight(endpoint, "/") + "/" + cfg.Bucket
		} else {
			base = fmt.Sprintf("https://%s.s3.%s.amazonaws.com", cfg.Bucket, cfg.Region)
		}
	}

	return &IconBucket{client: client, bucket: cfg.Bucket, publicBaseURL: base}, nil
}

// PutIcon uploads a JPEG under a fresh key and returns its public URL. Keys
// are never reused so caches cannot serve a stale picture.
func (b *IconBucket) PutIcon(ctx context.Context, uid string, jpeg []byte) (string, error) {
	key := fmt.Sprintf("icons/%s/%s.jpg", uid, uuid.NewString())
	_, err := b.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:       aws.String(b.bucket),
		Key:          aws.String(key),
		Body:         bytes.NewReader(jpeg),
		ContentType:  aws.String("image/jpeg"),
		CacheControl: aws.String("public, max-age=31536000, immutable"),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload icon: %w", err)
	}
	return b.publicBaseURL + "/" + key, nil
}

// Ping checks that the bucket is reachable with the configured credentials.
func (b *IconBucket) Ping(ctx context.Context) error {
	_, err := b.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(b.bucket)})
	if err != nil {
		return fmt.Errorf("failed to access bucket %s: %w", b.bucket, err)
	}
	return nil
}
