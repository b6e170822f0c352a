package config

import (
	"github.com/ilyakaznacheev/cleanenv"
)

// envConfig is the environment variable surface, bound with cleanenv.
type envConfig struct {
	Port        string `env:"PORT" env-default:"8080"`
	Environment string `env:"ENVIRONMENT" env-default:"development"`

	DatabaseURL string `env:"DATABASE_URL"`
	StorageType string `env:"STORAGE_TYPE" env-default:"memory"`

	AWSRegion          string `env:"AWS_REGION"`
	AWSBucket          string `env:"AWS_S3_BUCKET_NAME"`
	AWSAccessKeyID     string `env:"AWS_ACCESS_KEY_ID"`
	AWSSecretAccessKey string `env:"AWS_SECRET_ACCESS_KEY"`
	AWSEndpoint        string `env:"AWS_S3_ENDPOINT"`
	PresignDuration    int    `env:"PRESIGN_DURATION" env-default:"3600"`
	StoreTimeout       int    `env:"STORE_TIMEOUT" env-default:"30"`

	JWTSecret string `env:"JWT_SECRET"`
}

// WithEnv applies environment variable overrides. A set DATABASE_URL
// switches the repository to postgres.
func WithEnv() Option {
	return func(c *ServerConfig) error {
		var e envConfig
		if err := cleanenv.ReadEnv(&e); err != nil {
			return err
		}

		c.Port = e.Port
		c.Environment = e.Environment

		if e.DatabaseURL != "" {
			c.DatabaseType = "postgres"
			c.DatabaseURL = e.DatabaseURL
		}

		c.StorageType = e.StorageType
		c.S3 = S3Config{
			Region:          e.AWSRegion,
			Bucket:          e.AWSBucket,
			AccessKeyID:     e.AWSAccessKeyID,
			SecretAccessKey: e.AWSSecretAccessKey,
			Endpoint:        e.AWSEndpoint,
			PresignDuration: e.PresignDuration,
			RequestTimeout:  e.StoreTimeout,
		}

		c.JWTSecret = e.JWTSecret
		return nil
	}
}
