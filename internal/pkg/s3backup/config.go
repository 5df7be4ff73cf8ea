package s3backup

import (
	"errors"
	"fmt"
	"time"

	"github.com/Carlos-mc14/nexius-landing-sub000/internal/pkg/env"
)

const (
	DefaultArchiveInterval = 24 * time.Hour
	DefaultKeyPrefix       = "ledger"
)

// Config holds ledger archive configuration
type Config struct {
	AccessKeyID     string
	SecretAccessKey string
	Region          string
	BucketName      string
	EndpointURL     string // Optional for S3-compatible services
	KeyPrefix       string
	Interval        time.Duration
	Enabled         bool
}

// LoadConfig loads S3 configuration from environment variables
func LoadConfig() (*Config, error) {
	config := &Config{
		AccessKeyID:     env.GetEnv("S3_ACCESS_KEY_ID", ""),
		SecretAccessKey: env.GetEnv("S3_SECRET_ACCESS_KEY", ""),
		Region:          env.GetEnv("S3_REGION", "us-east-1"),
		BucketName:      env.GetEnv("S3_BUCKET_NAME", ""),
		EndpointURL:     env.GetEnv("S3_ENDPOINT_URL", ""),
		KeyPrefix:       env.GetEnv("LEDGER_ARCHIVE_PREFIX", DefaultKeyPrefix),
		Interval:        env.GetEnvDuration("LEDGER_ARCHIVE_INTERVAL", DefaultArchiveInterval),
		Enabled:         env.GetEnvBool("LEDGER_ARCHIVE_ENABLED", false),
	}
	if config.KeyPrefix == "" {
		config.KeyPrefix = DefaultKeyPrefix
	}
	if config.Interval <= 0 {
		config.Interval = DefaultArchiveInterval
	}

	// Validate required fields if the archive is enabled
	if config.Enabled {
		if config.AccessKeyID == "" {
			return nil, errors.New("S3_ACCESS_KEY_ID is required when the ledger archive is enabled")
		}
		if config.SecretAccessKey == "" {
			return nil, errors.New("S3_SECRET_ACCESS_KEY is required when the ledger archive is enabled")
		}
		if config.BucketName == "" {
			return nil, errors.New("S3_BUCKET_NAME is required when the ledger archive is enabled")
		}
	}

	return config, nil
}

// IsEnabled returns true if the ledger archive is enabled
func (c *Config) IsEnabled() bool {
	return c.Enabled
}

// SnapshotKey builds the object key for a snapshot taken at t:
// <prefix>/YYYY/MM/DD/licenses-<unix>-<slug>.json
func (c *Config) SnapshotKey(t time.Time, slug string) string {
	prefix := c.KeyPrefix
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	name := fmt.Sprintf("licenses-%d", t.Unix())
	if slug != "" {
		name += "-" + slug
	}
	return fmt.Sprintf("%s/%04d/%02d/%02d/%s.json", prefix, t.Year(), int(t.Month()), t.Day(), name)
}

// GetAppEnv returns the current application environment
func GetAppEnv() string {
	return env.GetEnv("APP_ENV", "dev")
}

// GetBucketName returns the bucket name as configured (no automatic prefixing)
func (c *Config) GetBucketName() string {
	return c.BucketName
}
