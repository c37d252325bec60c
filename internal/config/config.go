package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/ledger/internal/database"
)

type Config struct {
	App struct {
		Name string `envconfig:"APP_NAME" default:"Ledger"`
		Port int    `envconfig:"PORT" default:"8080"`

		// Operator is the user the TUI records transactions as.
		Operator string `envconfig:"OPERATOR_USERNAME" default:"operator"`
	}

	DB struct {
		Driver     string `envconfig:"DB_DRIVER" default:"pgx"`
		Host       string `envconfig:"DB_HOST" default:"localhost"`
		Port       int    `envconfig:"DB_PORT" default:"5432"`
		User       string `envconfig:"DB_USER" default:"postgres"`
		Password   string `envconfig:"DB_PASSWORD" default:""`
		Name       string `envconfig:"DB_NAME" default:"ledger"`
		SQLitePath string `envconfig:"DB_SQLITE_PATH" default:"ledger.db"`

		MaxOpenConns    int           `envconfig:"DB_MAX_OPEN_CONNS" default:"25"`
		MaxIdleConns    int           `envconfig:"DB_MAX_IDLE_CONNS" default:"5"`
		ConnMaxLifetime time.Duration `envconfig:"DB_CONN_MAX_LIFETIME" default:"5m"`

		// SeedDemoUsers creates these users on startup if they do not exist.
		SeedDemoUsers []string `envconfig:"DB_SEED_DEMO_USERS"`
	}

	Auth struct {
		JWTSecret string `envconfig:"JWT_SECRET"`
	}

	Ledger struct {
		Currency            string          `envconfig:"LEDGER_CURRENCY" default:"USD"`
		ComplianceThreshold decimal.Decimal `envconfig:"LEDGER_COMPLIANCE_THRESHOLD" default:"10000"`
		MaxRetries          uint64          `envconfig:"LEDGER_MAX_RETRIES" default:"3"`
	}

	Audit struct {
		BrokerURL string `envconfig:"AUDIT_BROKER_URL"`
		Exchange  string `envconfig:"AUDIT_EXCHANGE" default:"ledger.audit"`
	}

	Server struct {
		Timeout time.Duration `envconfig:"SERVER_TIMEOUT" default:"30s"`
	}

	CORS struct {
		AllowedOrigins []string `envconfig:"CORS_ALLOWED_ORIGINS" default:"*"`
	}
}

// ConnectionString returns the DSN for the configured driver.
func (c *Config) ConnectionString() string {
	if c.DB.Driver == string(database.SQLite) {
		return fmt.Sprintf("file:%s?_foreign_keys=on&_busy_timeout=5000&_txlock=immediate", c.DB.SQLitePath)
	}

	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		c.DB.User, c.DB.Password, c.DB.Host, c.DB.Port, c.DB.Name)
}

func (c *Config) Pool() database.PoolOptions {
	return database.PoolOptions{
		MaxOpenConns:    c.DB.MaxOpenConns,
		MaxIdleConns:    c.DB.MaxIdleConns,
		ConnMaxLifetime: c.DB.ConnMaxLifetime,
	}
}

func (c *Config) validate() error {
	var problems []string

	if c.DB.Driver != string(database.Postgres) && c.DB.Driver != string(database.SQLite) {
		problems = append(problems, fmt.Sprintf("DB_DRIVER must be %q or %q", database.Postgres, database.SQLite))
	}

	if c.Ledger.ComplianceThreshold.IsNegative() {
		problems = append(problems, "LEDGER_COMPLIANCE_THRESHOLD must not be negative")
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid config: %s", strings.Join(problems, "; "))
	}

	return nil
}

// RequireAuth reports whether the settings needed to serve the API are set.
func (c *Config) RequireAuth() error {
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("invalid config: JWT_SECRET is required")
	}

	return nil
}

// Load reads the environment, after applying any .env files given (or ./.env
// when none are). Missing .env files are ignored.
func Load(files ...string) (*Config, error) {
	_ = godotenv.Load(files...)

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}
