/**
 * Copyright 2025-present Coinbase Global, Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *  http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"bank-ledger-go/internal/models"

	"github.com/shopspring/decimal"
)

func Load() (*models.Config, error) {
	connMaxLifetime, err := getEnvDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute)
	if err != nil {
		return nil, err
	}

	connMaxIdleTime, err := getEnvDuration("DB_CONN_MAX_IDLE_TIME", 30*time.Second)
	if err != nil {
		return nil, err
	}

	pingTimeout, err := getEnvDuration("DB_PING_TIMEOUT", 5*time.Second)
	if err != nil {
		return nil, err
	}

	readTimeout, err := getEnvDuration("SERVER_READ_TIMEOUT", 15*time.Second)
	if err != nil {
		return nil, err
	}

	writeTimeout, err := getEnvDuration("SERVER_WRITE_TIMEOUT", 15*time.Second)
	if err != nil {
		return nil, err
	}

	idleTimeout, err := getEnvDuration("SERVER_IDLE_TIMEOUT", 60*time.Second)
	if err != nil {
		return nil, err
	}

	pollingInterval, err := getEnvDuration("DISPATCH_POLLING_INTERVAL", 2*time.Second)
	if err != nil {
		return nil, err
	}

	baseBackoff, err := getEnvDuration("DISPATCH_BASE_BACKOFF", 5*time.Second)
	if err != nil {
		return nil, err
	}

	maxBackoff, err := getEnvDuration("DISPATCH_MAX_BACKOFF", 10*time.Minute)
	if err != nil {
		return nil, err
	}

	maturityInterval, err := getEnvDuration("SAVINGS_MATURITY_INTERVAL", time.Hour)
	if err != nil {
		return nil, err
	}

	interestInterval, err := getEnvDuration("SAVINGS_INTEREST_INTERVAL", time.Hour)
	if err != nil {
		return nil, err
	}

	interestRate, err := getEnvDecimal("SAVINGS_INTEREST_RATE", decimal.Zero)
	if err != nil {
		return nil, err
	}

	driver := getEnvString("DATABASE_DRIVER", models.DriverSQLite)
	path := getEnvString("DATABASE_PATH", "ledger.db")
	if driver == models.DriverPostgres {
		path = getEnvString("DATABASE_URL", "")
		if path == "" {
			return nil, fmt.Errorf("DATABASE_URL is required when DATABASE_DRIVER=%s", models.DriverPostgres)
		}
	}

	return &models.Config{
		Database: models.DatabaseConfig{
			Driver:          driver,
			Path:            path,
			MaxOpenConns:    getEnvInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    getEnvInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: connMaxLifetime,
			ConnMaxIdleTime: connMaxIdleTime,
			PingTimeout:     pingTimeout,
		},
		Server: models.ServerConfig{
			Port:           getEnvString("SERVER_PORT", "8080"),
			AllowedOrigins: getEnvList("CORS_ALLOWED_ORIGINS", []string{"*"}),
			ReadTimeout:    readTimeout,
			WriteTimeout:   writeTimeout,
			IdleTimeout:    idleTimeout,
			H2C:            getEnvBool("SERVER_H2C", false),
			MaxBodyBytes:   int64(getEnvInt("SERVER_MAX_BODY_BYTES", 1<<20)),
		},
		Mail: models.MailConfig{
			Host:     getEnvString("SMTP_HOST", ""),
			Port:     getEnvInt("SMTP_PORT", 587),
			Username: getEnvString("SMTP_USERNAME", ""),
			Password: getEnvString("SMTP_PASSWORD", ""),
			From:     getEnvString("SMTP_FROM_EMAIL", "no-reply@example.com"),
		},
		Dispatcher: models.DispatcherConfig{
			PollingInterval:  pollingInterval,
			BatchSize:        getEnvInt("DISPATCH_BATCH_SIZE", 50),
			MaxAttempts:      getEnvInt("DISPATCH_MAX_ATTEMPTS", 8),
			BaseBackoff:      baseBackoff,
			MaxBackoff:       maxBackoff,
			MaturityInterval: maturityInterval,
			InterestInterval: interestInterval,
			InterestRate:     interestRate,
			Enabled:          getEnvBool("DISPATCH_ENABLED", true),
		},
		BankProfileFile: getEnvString("BANK_PROFILE_FILE", "bank.yaml"),
	}, nil
}

func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	if value := os.Getenv(key); value != "" {
		duration, err := time.ParseDuration(value)
		if err != nil {
			return 0, fmt.Errorf("invalid duration for %s: %q (%w)", key, value, err)
		}
		return duration, nil
	}
	return defaultValue, nil
}

func getEnvDecimal(key string, defaultValue decimal.Decimal) (decimal.Decimal, error) {
	if value := os.Getenv(key); value != "" {
		d, err := decimal.NewFromString(value)
		if err != nil || d.IsNegative() {
			return decimal.Zero, fmt.Errorf("invalid rate for %s: %q", key, value)
		}
		return d, nil
	}
	return defaultValue, nil
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

// getEnvList splits a comma separated value, dropping empty entries.
func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	var list []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			list = append(list, item)
		}
	}
	if len(list) == 0 {
		return defaultValue
	}
	return list
}
