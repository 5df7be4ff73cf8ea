package cache

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/storage/redis"
)

// limiterDBOffset keeps rate-limit counters out of the payment-code database.
const limiterDBOffset = 1

// NewLimiterStorage returns a fiber.Storage for the API rate limiter backed
// by the same server as cfg. The storage connects eagerly and panics when the
// server is unreachable, so only call it after New succeeded.
func NewLimiterStorage(cfg Config) fiber.Storage {
	port, err := strconv.Atoi(cfg.Port)
	if err != nil {
		port = 6379
	}
	return redis.New(redis.Config{
		Host:     cfg.Host,
		Port:     port,
		Password: cfg.Password,
		Database: cfg.DB + limiterDBOffset,
		Reset:    false,
	})
}
