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

package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"bank-ledger-go/internal/models"
	"bank-ledger-go/internal/store"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
)

// Compile-time check: *Service must satisfy store.LedgerStore.
var _ store.LedgerStore = (*Service)(nil)

type Service struct {
	db        *sql.DB
	driver    string
	subledger *SubledgerService
}

func NewService(ctx context.Context, cfg models.DatabaseConfig) (*Service, error) {
	// Validate configuration
	if cfg.Driver == "" {
		cfg.Driver = models.DriverSQLite
	}
	if cfg.Driver != models.DriverSQLite && cfg.Driver != models.DriverPostgres {
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
	if cfg.Path == "" {
		return nil, fmt.Errorf("database path cannot be empty")
	}
	if cfg.MaxOpenConns <= 0 {
		return nil, fmt.Errorf("max open connections must be positive, got %d", cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns < 0 {
		return nil, fmt.Errorf("max idle connections cannot be negative, got %d", cfg.MaxIdleConns)
	}
	if cfg.PingTimeout <= 0 {
		return nil, fmt.Errorf("ping timeout must be positive, got %v", cfg.PingTimeout)
	}

	inMemory := cfg.Driver == models.DriverSQLite && cfg.Path == ":memory:"

	zap.L().Info("Opening database", zap.String("driver", cfg.Driver), zap.Bool("in_memory", inMemory))
	db, err := sql.Open(cfg.Driver, dataSourceName(cfg))
	if err != nil {
		return nil, fmt.Errorf("unable to open database: %w", err)
	}

	// Set connection timeouts and limits
	if inMemory {
		// Every connection to :memory: is a separate database.
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
		db.SetConnMaxLifetime(0)
		db.SetConnMaxIdleTime(0)
	} else {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
		db.SetMaxIdleConns(cfg.MaxIdleConns)
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
		db.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)
	}

	// Test connection with timeout
	pingCtx, cancel := context.WithTimeout(ctx, cfg.PingTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		closeErr := db.Close()
		return nil, errors.Join(fmt.Errorf("unable to ping database: %w", err), closeErr)
	}

	service := &Service{db: db, driver: cfg.Driver, subledger: NewSubledgerService(db, cfg.Driver)}

	if err := service.initSchema(ctx); err != nil {
		closeErr := db.Close()
		return nil, errors.Join(fmt.Errorf("unable to initialize schema: %w", err), closeErr)
	}

	// Initialize subledger schema
	if err := service.subledger.InitSchema(ctx); err != nil {
		closeErr := db.Close()
		return nil, errors.Join(fmt.Errorf("unable to initialize subledger schema: %w", err), closeErr)
	}

	zap.L().Info("Database service initialized successfully")
	return service, nil
}

func dataSourceName(cfg models.DatabaseConfig) string {
	if cfg.Driver == models.DriverPostgres {
		return cfg.Path
	}
	if cfg.Path == ":memory:" {
		return cfg.Path
	}
	// Immediate transactions take the write lock up front so concurrent
	// writers queue on busy_timeout instead of failing on lock upgrade.
	return cfg.Path + "?_journal_mode=WAL&_synchronous=NORMAL&_cache_size=1000&_busy_timeout=5000&_txlock=immediate"
}

func (s *Service) Close() {
	if err := s.db.Close(); err != nil {
		zap.L().Warn("Failed to close database connection", zap.Error(err))
	}
}

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// conn binds a querier to the placeholder dialect of the open driver.
type conn struct {
	q      querier
	driver string
}

func (c conn) exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return c.q.ExecContext(ctx, rebind(c.driver, query), args...)
}

func (c conn) query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return c.q.QueryContext(ctx, rebind(c.driver, query), args...)
}

func (c conn) queryRow(ctx context.Context, query string, args ...any) *sql.Row {
	return c.q.QueryRowContext(ctx, rebind(c.driver, query), args...)
}

// forUpdate returns the row lock clause for drivers that support it.
func (c conn) forUpdate() string {
	if c.driver == models.DriverPostgres {
		return " FOR UPDATE"
	}
	return ""
}

func (s *Service) conn() conn {
	return conn{q: s.db, driver: s.driver}
}

// inTx runs fn inside a database transaction. The callback must only use the
// conn it is given: an in-memory SQLite database has a single connection.
func (s *Service) inTx(ctx context.Context, fn func(c conn) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
			zap.L().Warn("Failed to roll back transaction", zap.Error(err))
		}
	}()

	if err := fn(conn{q: tx, driver: s.driver}); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// rebind rewrites '?' placeholders to '$n' for PostgreSQL.
func rebind(driver, query string) string {
	if driver != models.DriverPostgres || !strings.Contains(query, "?") {
		return query
	}

	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// placeholders returns "?, ?, ..." for an IN clause of n values.
func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}

func closeRows(rows *sql.Rows) {
	if err := rows.Close(); err != nil {
		zap.L().Warn("Failed to close rows", zap.Error(err))
	}
}

// countRows runs a COUNT(*) query.
func countRows(ctx context.Context, c conn, query string, args ...any) (int, error) {
	var total int
	if err := c.queryRow(ctx, query, args...).Scan(&total); err != nil {
		return 0, fmt.Errorf("failed to count rows: %w", err)
	}
	return total, nil
}

func (s *Service) initSchema(ctx context.Context) error {
	schema := `
	-- Customers
	CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		email TEXT NOT NULL UNIQUE,
		account_number TEXT NOT NULL UNIQUE,
		suspended BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_users_email ON users(email);

	-- Back-office operators
	CREATE TABLE IF NOT EXISTS admins (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		email TEXT NOT NULL UNIQUE,
		role TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL
	);

	CREATE TABLE IF NOT EXISTS savings (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		title TEXT NOT NULL,
		saved_amount TEXT NOT NULL,
		target_amount TEXT,
		end_date TIMESTAMPTZ,
		status TEXT NOT NULL,
		version BIGINT NOT NULL DEFAULT 1,
		last_interest_at TIMESTAMPTZ,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_savings_user_id ON savings(user_id);
	CREATE INDEX IF NOT EXISTS idx_savings_status ON savings(status);

	CREATE TABLE IF NOT EXISTS deposit_requests (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		is_accepted TEXT NOT NULL,
		amount TEXT NOT NULL,
		hash TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_deposit_requests_user_id ON deposit_requests(user_id);

	-- Account directory
	CREATE TABLE IF NOT EXISTS accounts (
		id TEXT PRIMARY KEY,
		account_number TEXT NOT NULL UNIQUE,
		full_name TEXT NOT NULL,
		bank_name TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	);

	CREATE TABLE IF NOT EXISTS beneficiaries (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		account_number TEXT NOT NULL,
		full_name TEXT NOT NULL,
		bank_name TEXT NOT NULL,
		note TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL,
		UNIQUE(user_id, account_number)
	);

	CREATE TABLE IF NOT EXISTS notifications (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		type TEXT NOT NULL,
		subtype TEXT NOT NULL,
		title TEXT NOT NULL,
		message TEXT NOT NULL,
		data TEXT NOT NULL DEFAULT '{}',
		is_read BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TIMESTAMPTZ NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_notifications_user_id ON notifications(user_id, created_at);

	-- Administrative audit trail
	CREATE TABLE IF NOT EXISTS activities (
		id TEXT PRIMARY KEY,
		admin_id TEXT NOT NULL,
		action TEXT NOT NULL,
		target_id TEXT NOT NULL DEFAULT '',
		target_model TEXT NOT NULL DEFAULT '',
		metadata TEXT NOT NULL DEFAULT '{}',
		created_at TIMESTAMPTZ NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_activities_created_at ON activities(created_at);

	-- Side effects committed with ledger writes, delivered by the listener
	CREATE TABLE IF NOT EXISTS outbox (
		id TEXT PRIMARY KEY,
		kind TEXT NOT NULL,
		payload TEXT NOT NULL,
		status TEXT NOT NULL,
		attempts INTEGER NOT NULL DEFAULT 0,
		next_attempt_at TIMESTAMPTZ NOT NULL,
		last_error TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_outbox_due ON outbox(status, next_attempt_at);
	`

	return execSchema(ctx, s.db, s.driver, schema)
}

// execSchema adapts DDL to the driver. SQLite only maps TIMESTAMP columns to
// time.Time, so TIMESTAMPTZ is narrowed there.
func execSchema(ctx context.Context, db *sql.DB, driver, schema string) error {
	if driver == models.DriverSQLite {
		schema = strings.ReplaceAll(schema, "TIMESTAMPTZ", "TIMESTAMP")
		_, err := db.ExecContext(ctx, schema)
		return err
	}

	// The extended protocol accepts one statement per Exec.
	for _, stmt := range strings.Split(schema, ";") {
		if strings.TrimSpace(stripComments(stmt)) == "" {
			continue
		}
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

func stripComments(stmt string) string {
	var b strings.Builder
	for _, line := range strings.Split(stmt, "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), "--") {
			continue
		}
		b.WriteString(line)
		b.WriteByte('\n')
	}
	return b.String()
}
