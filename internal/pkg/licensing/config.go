package licensing

import (
	"fmt"
	"time"

	"github.com/Carlos-mc14/nexius-landing-sub000/internal/pkg/env"
)

const (
	DefaultTimezone          = "America/Lima"
	DefaultPaymentCodeTTL    = 30 * time.Minute
	DefaultPaymentCodeLength = 6
)

// Config holds lifecycle manager settings
type Config struct {
	Location          *time.Location
	PaymentCodeTTL    time.Duration
	PaymentCodeLength int
}

// LoadConfig loads licensing configuration from environment variables
func LoadConfig() (*Config, error) {
	tz := env.GetEnv("BILLING_TIMEZONE", DefaultTimezone)
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("invalid BILLING_TIMEZONE %q: %w", tz, err)
	}

	cfg := &Config{
		Location:          loc,
		PaymentCodeTTL:    time.Duration(env.GetEnvInt("PAYMENT_CODE_TTL_MINUTES", int(DefaultPaymentCodeTTL/time.Minute))) * time.Minute,
		PaymentCodeLength: env.GetEnvInt("PAYMENT_CODE_LENGTH", DefaultPaymentCodeLength),
	}
	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Location == nil {
		c.Location = time.UTC
	}
	if c.PaymentCodeTTL <= 0 {
		c.PaymentCodeTTL = DefaultPaymentCodeTTL
	}
	if c.PaymentCodeLength < 4 || c.PaymentCodeLength > 16 {
		c.PaymentCodeLength = DefaultPaymentCodeLength
	}
}
