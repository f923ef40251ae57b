// Package config содержит логику чтения конфигурации SMM-витрины.
package config

import (
	"errors"
	"flag"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

const defaultRunAddress = "localhost:8080"

// Config содержит параметры конфигурации SMM-витрины.
type Config struct {
	RunAddress      string `env:"RUN_ADDRESS"`
	DatabaseURI     string `env:"DATABASE_URI"`
	ProviderAddress string `env:"PROVIDER_ADDRESS"`
	JWTSecret       string `env:"JWT_SECRET"`

	TokenTTL             time.Duration `env:"TOKEN_TTL" envDefault:"24h"`
	MutationTimeout      time.Duration `env:"MUTATION_TIMEOUT" envDefault:"5s"`
	ProviderPollInterval time.Duration `env:"PROVIDER_POLL_INTERVAL" envDefault:"10s"`

	RateLimitRPS   float64 `env:"RATE_LIMIT_RPS" envDefault:"20"`
	RateLimitBurst int     `env:"RATE_LIMIT_BURST" envDefault:"40"`

	AdminEmails     []string `env:"ADMIN_EMAILS" envSeparator:","`
	MaxReceiptBytes int      `env:"MAX_RECEIPT_BYTES" envDefault:"2097152"`
}

// Parse считывает конфигурацию из файла .env (если есть), флагов командной
// строки и переменных окружения. Переменные окружения имеют приоритет над флагами.
func Parse() (*Config, error) {
	// .env не переопределяет уже заданные переменные окружения
	_ = godotenv.Load()

	cfg := &Config{}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	envRunAddress := cfg.RunAddress
	envDatabaseURI := cfg.DatabaseURI
	envProviderAddress := cfg.ProviderAddress
	envJWTSecret := cfg.JWTSecret

	flag.StringVar(&cfg.RunAddress, "a", defaultRunAddress, "address and port for HTTP server")
	flag.StringVar(&cfg.DatabaseURI, "d", "", "database URI, in-memory store when empty")
	flag.StringVar(&cfg.ProviderAddress, "r", "", "SMM provider API address")
	flag.StringVar(&cfg.JWTSecret, "s", "", "JWT signing secret")

	flag.Parse()

	if envRunAddress != "" {
		cfg.RunAddress = envRunAddress
	}
	if envDatabaseURI != "" {
		cfg.DatabaseURI = envDatabaseURI
	}
	if envProviderAddress != "" {
		cfg.ProviderAddress = envProviderAddress
	}
	if envJWTSecret != "" {
		cfg.JWTSecret = envJWTSecret
	}

	if cfg.RunAddress == "" {
		cfg.RunAddress = defaultRunAddress
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	var errs []error
	if c.TokenTTL <= 0 {
		errs = append(errs, errors.New("TOKEN_TTL must be positive"))
	}
	if c.MutationTimeout <= 0 {
		errs = append(errs, errors.New("MUTATION_TIMEOUT must be positive"))
	}
	if c.ProviderPollInterval <= 0 {
		errs = append(errs, errors.New("PROVIDER_POLL_INTERVAL must be positive"))
	}
	if c.RateLimitRPS < 0 || c.RateLimitBurst < 0 {
		errs = append(errs, errors.New("rate limit settings must not be negative"))
	}
	if c.MaxReceiptBytes <= 0 {
		errs = append(errs, errors.New("MAX_RECEIPT_BYTES must be positive"))
	}
	return errors.Join(errs...)
}
