package config

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"

	"github.com/elcady/walimah-backend/internal/model"
)

// Config holds all configuration for the application.
type Config struct {
	Server    ServerConfig
	DB        DBConfig
	Log       LogConfig
	Allocator AllocatorConfig
}

// ServerConfig holds server-related configuration.
type ServerConfig struct {
	Port            string `envconfig:"SERVER_PORT" default:"3000"`
	ShutdownTimeout int    `envconfig:"SHUTDOWN_TIMEOUT" default:"30"` // seconds
}

// DBConfig holds database-related configuration.
// WARNING: Default password is for local development only.
// In production, always set DB_PASSWORD via environment variable.
// In production, set DB_SSLMODE to "require" or "verify-full".
type DBConfig struct {
	Host     string `envconfig:"DB_HOST" default:"localhost"`
	Port     int    `envconfig:"DB_PORT" default:"5432"`
	User     string `envconfig:"DB_USER" default:"postgres"`
	Password string `envconfig:"DB_PASSWORD" default:"postgres"` // CHANGE IN PRODUCTION
	Name     string `envconfig:"DB_NAME" default:"walimah_db"`
	SSLMode  string `envconfig:"DB_SSLMODE" default:"disable"` // Use "require" in production
	MaxConns int    `envconfig:"DB_MAX_CONNS" default:"25"`
	MinConns int    `envconfig:"DB_MIN_CONNS" default:"5"`
}

// DSN returns the PostgreSQL connection string.
func (c DBConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s&pool_max_conns=%d&pool_min_conns=%d",
		c.User, c.Password, c.Host, c.Port, c.Name, c.SSLMode, c.MaxConns, c.MinConns)
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level  string `envconfig:"LOG_LEVEL" default:"info"`
	Pretty bool   `envconfig:"LOG_PRETTY" default:"false"`
}

// AllocatorConfig holds coupon-allocation configuration.
// COMPANY_WEIGHTS overrides individual entries of the default fairness
// weight table, e.g. COMPANY_WEIGHTS="Noon:4.5,AlDawaa:0.1".
type AllocatorConfig struct {
	Weights     map[string]float64 `envconfig:"COMPANY_WEIGHTS"`
	MaxAttempts int                `envconfig:"ASSIGN_MAX_ATTEMPTS" default:"3"`
}

// CompanyWeights merges any configured overrides onto the default weight
// table. Unknown company names are ignored.
func (c AllocatorConfig) CompanyWeights() map[model.CouponCompany]float64 {
	weights := make(map[model.CouponCompany]float64, len(model.DefaultCompanyWeights))
	for company, weight := range model.DefaultCompanyWeights {
		weights[company] = weight
	}
	for name, weight := range c.Weights {
		company := model.CouponCompany(name)
		if company.Valid() {
			weights[company] = weight
		}
	}
	return weights
}

// Load parses environment variables into the Config struct.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
