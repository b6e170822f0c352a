// Package config builds a contentstore.Service from server configuration.
package config

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/duolang/contentstore/pkg/contentstore"
	"github.com/duolang/contentstore/pkg/contentstore/objectkey"
	repomemory "github.com/duolang/contentstore/pkg/contentstore/repo/memory"
	repopg "github.com/duolang/contentstore/pkg/contentstore/repo/postgres"
	memorystorage "github.com/duolang/contentstore/pkg/contentstore/storage/memory"
	s3storage "github.com/duolang/contentstore/pkg/contentstore/storage/s3"
)

// Option applies configuration to a ServerConfig instance.
type Option func(*ServerConfig) error

// Load constructs a ServerConfig by applying the supplied options on top of
// defaults, then validating. Missing required configuration fails here, at
// process start, not at first upload.
func Load(opts ...Option) (*ServerConfig, error) {
	cfg := defaults()

	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(&cfg); err != nil {
			return nil, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func defaults() ServerConfig {
	return ServerConfig{
		Port:         "8080",
		Environment:  "development",
		DatabaseType: "memory",
		StorageType:  "memory",
		S3: S3Config{
			PresignDuration: 3600,
			RequestTimeout:  30,
		},
	}
}

// ServerConfig represents server configuration for the content store
// service.
type ServerConfig struct {
	Port        string
	Environment string // development, production, testing

	// Database configuration
	DatabaseURL  string
	DatabaseType string // "memory", "postgres"

	// Storage configuration
	StorageType string // "memory", "s3"
	S3          S3Config

	// Admin API auth; empty disables the guard (local development only)
	JWTSecret string
}

// S3Config holds the object store settings.
type S3Config struct {
	Region          string
	Bucket          string
	AccessKeyID     string
	SecretAccessKey string
	Endpoint        string
	PresignDuration int
	RequestTimeout  int
}

// Validate validates the server configuration.
func (c *ServerConfig) Validate() error {
	if c.Port == "" {
		return errors.New("port is required")
	}
	if c.DatabaseType != "memory" && c.DatabaseType != "postgres" {
		return errors.New("database_type must be 'memory' or 'postgres'")
	}
	if c.DatabaseType == "postgres" && c.DatabaseURL == "" {
		return errors.New("database_url is required when using postgres")
	}
	switch c.StorageType {
	case "memory":
	case "s3":
		if c.S3.Bucket == "" {
			return errors.New("s3 bucket is required when using s3 storage")
		}
		if c.S3.Region == "" && c.S3.Endpoint == "" {
			return errors.New("s3 region or custom endpoint is required when using s3 storage")
		}
	default:
		return errors.New("storage_type must be 'memory' or 's3'")
	}
	return nil
}

// KeyCodec returns the key codec matching the storage configuration.
func (c *ServerConfig) KeyCodec() objectkey.Codec {
	if c.StorageType == "memory" {
		return objectkey.Codec{Bucket: "memory", Region: "local"}
	}
	return objectkey.Codec{
		Bucket:   c.S3.Bucket,
		Region:   c.S3.Region,
		Endpoint: c.S3.Endpoint,
	}
}

// BuildService creates a Service instance from the server configuration.
func (c *ServerConfig) BuildService() (contentstore.Service, error) {
	repo, err := c.buildRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to build repository: %w", err)
	}

	store, err := c.buildBlobStore()
	if err != nil {
		return nil, fmt.Errorf("failed to build blob store: %w", err)
	}

	return contentstore.New(
		contentstore.WithRepository(repo),
		contentstore.WithBlobStore(store),
		contentstore.WithKeyCodec(c.KeyCodec()),
	)
}

func (c *ServerConfig) buildRepository() (contentstore.Repository, error) {
	switch c.DatabaseType {
	case "memory":
		return repomemory.New(), nil
	case "postgres":
		pool, err := pgxpool.New(context.Background(), c.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to create pgx pool: %w", err)
		}
		return repopg.NewWithPool(pool), nil
	default:
		return nil, fmt.Errorf("unsupported database type: %s", c.DatabaseType)
	}
}

func (c *ServerConfig) buildBlobStore() (contentstore.BlobStore, error) {
	switch c.StorageType {
	case "memory":
		return memorystorage.New(), nil
	case "s3":
		return s3storage.New(s3storage.Config{
			Region:          c.S3.Region,
			Bucket:          c.S3.Bucket,
			AccessKeyID:     c.S3.AccessKeyID,
			SecretAccessKey: c.S3.SecretAccessKey,
			Endpoint:        c.S3.Endpoint,
			PresignDuration: c.S3.PresignDuration,
			RequestTimeout:  c.S3.RequestTimeout,
		})
	default:
		return nil, fmt.Errorf("unsupported storage type: %s", c.StorageType)
	}
}
