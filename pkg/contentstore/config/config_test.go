package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, "memory", cfg.DatabaseType)
	assert.Equal(t, "memory", cfg.StorageType)
	assert.Equal(t, 3600, cfg.S3.PresignDuration)
	assert.Equal(t, 30, cfg.S3.RequestTimeout)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*ServerConfig)
		expectErr string
	}{
		{
			name:   "defaults are valid",
			mutate: func(c *ServerConfig) {},
		},
		{
			name:      "empty port",
			mutate:    func(c *ServerConfig) { c.Port = "" },
			expectErr: "port",
		},
		{
			name:      "unknown database type",
			mutate:    func(c *ServerConfig) { c.DatabaseType = "mysql" },
			expectErr: "database_type",
		},
		{
			name:      "postgres without url",
			mutate:    func(c *ServerConfig) { c.DatabaseType = "postgres" },
			expectErr: "database_url",
		},
		{
			name:      "unknown storage type",
			mutate:    func(c *ServerConfig) { c.StorageType = "gcs" },
			expectErr: "storage_type",
		},
		{
			name: "s3 without bucket",
			mutate: func(c *ServerConfig) {
				c.StorageType = "s3"
				c.S3.Region = "us-east-1"
			},
			expectErr: "bucket",
		},
		{
			name: "s3 without region or endpoint",
			mutate: func(c *ServerConfig) {
				c.StorageType = "s3"
				c.S3.Bucket = "mybucket"
			},
			expectErr: "region",
		},
		{
			name: "s3 with endpoint only",
			mutate: func(c *ServerConfig) {
				c.StorageType = "s3"
				c.S3.Bucket = "mybucket"
				c.S3.Endpoint = "http://localhost:9000"
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaults()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.expectErr == "" {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.expectErr)
			}
		})
	}
}

func TestLoadFailsFastOnInvalidConfig(t *testing.T) {
	_, err := Load(func(c *ServerConfig) error {
		c.StorageType = "s3"
		return nil
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bucket")
}

func TestWithEnv(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("DATABASE_URL", "postgres://localhost:5432/content")
	t.Setenv("STORAGE_TYPE", "s3")
	t.Setenv("AWS_REGION", "ap-northeast-1")
	t.Setenv("AWS_S3_BUCKET_NAME", "content-assets")
	t.Setenv("AWS_S3_ENDPOINT", "http://localhost:9000")
	t.Setenv("JWT_SECRET", "secret")

	cfg, err := Load(WithEnv())
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, "postgres", cfg.DatabaseType)
	assert.Equal(t, "postgres://localhost:5432/content", cfg.DatabaseURL)
	assert.Equal(t, "s3", cfg.StorageType)
	assert.Equal(t, "ap-northeast-1", cfg.S3.Region)
	assert.Equal(t, "content-assets", cfg.S3.Bucket)
	assert.Equal(t, "http://localhost:9000", cfg.S3.Endpoint)
	assert.Equal(t, "secret", cfg.JWTSecret)
}

func TestKeyCodec(t *testing.T) {
	cfg := defaults()
	cfg.StorageType = "s3"
	cfg.S3.Bucket = "mybucket"
	cfg.S3.Region = "us-east-1"
	cfg.S3.Endpoint = "http://localhost:9000"

	codec := cfg.KeyCodec()
	assert.Equal(t, "mybucket", codec.Bucket)
	assert.Equal(t, "http://localhost:9000", codec.Endpoint)
}

func TestBuildServiceMemory(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	svc, err := cfg.BuildService()
	require.NoError(t, err)
	assert.NotNil(t, svc)
}
