package notifications

import (
	"time"

	"github.com/Carlos-mc14/nexius-landing-sub000/app/models"
	"github.com/Carlos-mc14/nexius-landing-sub000/internal/pkg/env"
	"github.com/Carlos-mc14/nexius-landing-sub000/internal/pkg/mail"
)

const (
	DefaultDueSoonDays   = 3
	DefaultSweepInterval = time.Hour
	DefaultSendTimeout   = 10 * time.Second
)

// Config holds reminder and delivery settings
type Config struct {
	WhatsAppURL    string
	WhatsAppToken  string
	DefaultChannel string
	DueSoonDays    int
	SweepInterval  time.Duration
	SendTimeout    time.Duration
	SMTP           mail.Config
}

// LoadConfig loads notification configuration from environment variables
func LoadConfig() Config {
	cfg := Config{
		WhatsAppURL:    env.GetEnv("WHATSAPP_GATEWAY_URL", ""),
		WhatsAppToken:  env.GetEnv("WHATSAPP_GATEWAY_TOKEN", ""),
		DefaultChannel: env.GetEnv("REMINDER_DEFAULT_CHANNEL", ""),
		DueSoonDays:    env.GetEnvInt("REMINDER_DUE_SOON_DAYS", DefaultDueSoonDays),
		SweepInterval:  env.GetEnvDuration("REMINDER_SWEEP_INTERVAL", DefaultSweepInterval),
		SendTimeout:    env.GetEnvDuration("REMINDER_SEND_TIMEOUT", DefaultSendTimeout),
		SMTP:           mail.LoadConfig(),
	}
	cfg.applyDefaults()
	return cfg
}

func (c *Config) applyDefaults() {
	if c.DueSoonDays < 0 {
		c.DueSoonDays = DefaultDueSoonDays
	}
	if c.SweepInterval <= 0 {
		c.SweepInterval = DefaultSweepInterval
	}
	if c.SendTimeout <= 0 {
		c.SendTimeout = DefaultSendTimeout
	}
	if c.DefaultChannel == "" {
		switch {
		case c.WhatsAppURL != "":
			c.DefaultChannel = models.ChannelWhatsApp
		case c.SMTP.Enabled():
			c.DefaultChannel = models.ChannelEmail
		default:
			c.DefaultChannel = models.ChannelLog
		}
	}
}
