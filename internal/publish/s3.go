// Package publish uploads the run's artifacts to an S3 bucket.
package publish

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"sort"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3Config selects the target bucket. Empty Region and Profile fall back to
// the standard AWS configuration chain.
type S3Config struct {
	Bucket       string
	Prefix       string
	Region       string
	Profile      string
	Endpoint     string
	UsePathStyle bool
	CacheControl string
}

// PutObjectAPI is the slice of the S3 client the publisher uses.
type PutObjectAPI interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Publisher uploads named artifacts under a key prefix.
type Publisher struct {
	client PutObjectAPI
	cfg    S3Config
}

// NewS3 builds a Publisher from the default AWS config chain.
func NewS3(ctx context.Context, cfg S3Config) (*Publisher, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("publish: bucket is required")
	}
	var loadOpts []func(*config.LoadOptions) error
	if cfg.Region != "" {
		loadOpts = append(loadOpts, config.WithRegion(cfg.Region))
	}
	if cfg.Profile != "" {
		loadOpts = append(loadOpts, config.WithSharedConfigProfile(cfg.Profile))
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("publish: aws config: %w", err)
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.UsePathStyle
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})
	return New(client, cfg), nil
}

// New wraps an existing client.
func New(client PutObjectAPI, cfg S3Config) *Publisher {
	return &Publisher{client: client, cfg: cfg}
}

// Key returns the object key for an artifact name.
func (p *Publisher) Key(name string) string {
	prefix := strings.Trim(p.cfg.Prefix, "/")
	if prefix == "" {
		return name
	}
	return path.Join(prefix, name)
}

// Upload puts every file in name order and returns the keys written. It
// stops at the first failure.
func (p *Publisher) Upload(ctx context.Context, files map[string][]byte) ([]string, error) {
	names := make([]string, 0, len(files))
	for n := range files {
		names = append(names, n)
	}
	sort.Strings(names)
	keys := make([]string, 0, len(names))
	for _, n := range names {
		key := p.Key(n)
		in := &s3.PutObjectInput{
			Bucket:      aws.String(p.cfg.Bucket),
			Key:         aws.String(key),
			Body:        bytes.NewReader(files[n]),
			ContentType: aws.String(ContentType(n)),
		}
		if p.cfg.CacheControl != "" {
			in.CacheControl = aws.String(p.cfg.CacheControl)
		}
		if _, err := p.client.PutObject(ctx, in); err != nil {
			return keys, fmt.Errorf("publish %s: %w", key, err)
		}
		keys = append(keys, key)
	}
	return keys, nil
}

// ContentType maps artifact extensions to MIME types.
func ContentType(name string) string {
	switch strings.ToLower(path.Ext(name)) {
	case ".m3u", ".m3u8":
		return "audio/x-mpegurl"
	case ".txt":
		return "text/plain; charset=utf-8"
	case ".db":
		return "application/vnd.sqlite3"
	case ".prom":
		return "text/plain; version=0.0.4"
	default:
		return "application/octet-stream"
	}
}
