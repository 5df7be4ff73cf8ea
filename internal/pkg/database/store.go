package database

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	"github.com/Carlos-mc14/nexius-landing-sub000/app/models"
	"github.com/Carlos-mc14/nexius-landing-sub000/internal/pkg/env"
)

const (
	DriverMySQL  = "mysql"
	DriverMemory = "memory"
)

const maxRetries = 5
const retryDelay = 5 * time.Second

// Config holds the database connection settings
type Config struct {
	Driver     string
	User       string
	Password   string
	Host       string
	Port       string
	Name       string
	MaxRetries int
	RetryDelay time.Duration
}

// LoadConfig loads database configuration from environment variables
func LoadConfig() Config {
	return Config{
		Driver:     strings.ToLower(env.GetEnv("DB_DRIVER", DriverMySQL)),
		User:       env.GetEnv("DB_USER", ""),
		Password:   env.GetEnv("DB_PASSWORD", ""),
		Host:       env.GetEnv("DB_HOST", "127.0.0.1"),
		Port:       env.GetEnv("DB_PORT", "3306"),
		Name:       env.GetEnv("DB_NAME", ""),
		MaxRetries: maxRetries,
		RetryDelay: retryDelay,
	}
}

// DSN renders the MySQL data source name. Times are read and written in UTC.
func (c Config) DSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=UTC",
		c.User, c.Password, c.Host, c.Port, c.Name)
}

// Store owns the gorm handle. A memory store has a nil DB.
type Store struct {
	DB *gorm.DB
}

// Open connects with retries and migrates the schema.
func Open(cfg Config) (*Store, error) {
	switch cfg.Driver {
	case DriverMemory:
		log.Warn("[Database] DB_DRIVER=memory, records live only as long as the process")
		return &Store{}, nil
	case DriverMySQL, "":
	default:
		return nil, fmt.Errorf("unsupported DB_DRIVER %q", cfg.Driver)
	}

	retries := cfg.MaxRetries
	if retries <= 0 {
		retries = 1
	}

	var db *gorm.DB
	var err error
	for i := 0; i < retries; i++ {
		db, err = gorm.Open(mysql.New(mysql.Config{
			DSN:                       cfg.DSN(),
			DefaultStringSize:         256,
			DisableDatetimePrecision:  true,
			DontSupportRenameIndex:    true,
			DontSupportRenameColumn:   true,
			SkipInitializeWithVersion: false,
		}), &gorm.Config{TranslateError: true})
		if err == nil {
			break
		}

		log.Warnf("[Database] Failed to connect (try %d/%d): %v", i+1, retries, err)
		if i < retries-1 {
			log.Infof("[Database] Retrying in %v...", cfg.RetryDelay)
			time.Sleep(cfg.RetryDelay)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := db.AutoMigrate(
		&models.License{},
		&models.Transaction{},
		&models.NotificationJob{},
		&models.NotificationLog{},
	); err != nil {
		return nil, fmt.Errorf("failed to migrate schema: %w", err)
	}

	log.Infof("[Database] Connected to %s@%s:%s/%s", cfg.User, cfg.Host, cfg.Port, cfg.Name)
	return &Store{DB: db}, nil
}

// Memory reports whether the store has no SQL backend.
func (s *Store) Memory() bool {
	return s == nil || s.DB == nil
}

// Ping checks the connection. Memory stores always succeed.
func (s *Store) Ping() error {
	if s.Memory() {
		return nil
	}
	sqlDB, err := s.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}

func (s *Store) Close() error {
	if s.Memory() {
		return nil
	}
	sqlDB, err := s.DB.DB()
	if err != nil {
		return errors.Join(errors.New("failed to get sql handle"), err)
	}
	return sqlDB.Close()
}
