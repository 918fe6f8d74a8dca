package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Config represents the application configuration
type Config struct {
	Database        DatabaseConfig
	Server          ServerConfig
	Mail            MailConfig
	Dispatcher      DispatcherConfig
	BankProfileFile string
}

const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "pgx"
)

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Driver          string
	Path            string // SQLite file path or PostgreSQL connection URL
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
	PingTimeout     time.Duration
}

// ServerConfig holds HTTP settings
type ServerConfig struct {
	Port           string
	AllowedOrigins []string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	H2C            bool // serve cleartext HTTP/2 next to HTTP/1.1
	MaxBodyBytes   int64
}

// MailConfig holds SMTP settings. An empty Host selects the log-only sender.
type MailConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// DispatcherConfig holds outbox listener and savings sweep settings
type DispatcherConfig struct {
	PollingInterval  time.Duration
	BatchSize        int
	MaxAttempts      int
	BaseBackoff      time.Duration
	MaxBackoff       time.Duration
	MaturityInterval time.Duration
	InterestInterval time.Duration
	InterestRate     decimal.Decimal // annual, as a fraction; zero disables accrual
	Enabled          bool
}

// BankProfile is loaded from YAML and brands identifiers and emails
type BankProfile struct {
	Name              string `yaml:"name"`
	TransactionPrefix string `yaml:"transaction_prefix"`
	SupportEmail      string `yaml:"support_email"`
	Website           string `yaml:"website"`
	CurrencySymbol    string `yaml:"currency_symbol"`
}
