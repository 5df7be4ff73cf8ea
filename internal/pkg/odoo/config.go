package odoo

import (
	"strings"
	"time"

	"github.com/Carlos-mc14/nexius-landing-sub000/internal/pkg/env"
)

const (
	DefaultPaymentPath = "/api/nexius/payments"
	DefaultTimeout     = 8 * time.Second
	DefaultWorkers     = 2
	DefaultBuffer      = 64
)

// Config holds accounting sync settings
type Config struct {
	Enabled     bool
	BaseURL     string
	Token       string
	PaymentPath string
	Timeout     time.Duration
	Workers     int
	Buffer      int
	AppVersion  string
	Location    *time.Location
}

// LoadConfig loads Odoo configuration from environment variables
func LoadConfig() Config {
	cfg := Config{
		Enabled:     env.GetEnvBool("ODOO_SYNC_ENABLED", false),
		BaseURL:     strings.TrimSpace(env.GetEnv("ODOO_BASE_URL", "")),
		Token:       strings.TrimSpace(env.GetEnv("ODOO_API_TOKEN", "")),
		PaymentPath: strings.TrimSpace(env.GetEnv("ODOO_PAYMENT_PATH", DefaultPaymentPath)),
		Timeout:     env.GetEnvDuration("ODOO_TIMEOUT", DefaultTimeout),
		Workers:     env.GetEnvInt("ODOO_SYNC_WORKERS", DefaultWorkers),
		Buffer:      env.GetEnvInt("ODOO_SYNC_BUFFER", DefaultBuffer),
		AppVersion:  env.GetEnv("APP_VERSION", ""),
	}
	cfg.applyDefaults()
	return cfg
}

func (c *Config) applyDefaults() {
	if c.PaymentPath == "" {
		c.PaymentPath = DefaultPaymentPath
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	if c.Workers <= 0 {
		c.Workers = DefaultWorkers
	}
	if c.Buffer <= 0 {
		c.Buffer = DefaultBuffer
	}
	if c.Location == nil {
		c.Location = time.UTC
	}
}

// Endpoint is the full payment push URL, or "" when no base URL is set.
func (c Config) Endpoint() string {
	base := strings.TrimRight(c.BaseURL, "/")
	if base == "" {
		return ""
	}
	return base + "/" + strings.TrimLeft(c.PaymentPath, "/")
}

// Active reports whether pushes should be attempted at all.
func (c Config) Active() bool {
	return c.Enabled && c.Endpoint() != ""
}
