package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"github.com/redis/go-redis/v9"

	"github.com/Carlos-mc14/nexius-landing-sub000/internal/pkg/env"
)

// Config holds the Redis/Dragonfly connection settings
type Config struct {
	Host     string
	Port     string
	Password string
	DB       int
}

// LoadConfig loads cache configuration from environment variables
func LoadConfig() Config {
	return Config{
		Host:     env.GetEnv("CACHE_HOST", "localhost"),
		Port:     env.GetEnv("CACHE_PORT", "6379"),
		Password: env.GetEnv("CACHE_PASSWORD", ""),
		DB:       env.GetEnvInt("CACHE_DB", 0),
	}
}

func (c Config) Addr() string {
	return fmt.Sprintf("%s:%s", c.Host, c.Port)
}

// New connects to the cache server. An unreachable server is returned as an
// error together with the client so callers may continue degraded.
func New(cfg Config) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	pong, err := client.Ping(ctx).Result()
	if err != nil {
		log.Warnf("[Cache] Could not connect to cache at %s: %v", cfg.Addr(), err)
		return client, fmt.Errorf("cache ping failed: %w", err)
	}
	log.Infof("[Cache] Successfully connected to cache at %s: %s", cfg.Addr(), pong)
	return client, nil
}
