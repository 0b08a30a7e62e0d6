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

	"xmr-custody-go/internal/models"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
)

var (
	// ErrUserNotFound is returned when a lookup matches no user.
	ErrUserNotFound = errors.New("user not found")

	// ErrInsufficientBalance is returned when a debit would push a
	// balance below zero.
	ErrInsufficientBalance = errors.New("insufficient balance")

	// ErrNoReceivingAddress is returned when an operation requires a
	// deposit subaddress and the user has none assigned.
	ErrNoReceivingAddress = errors.New("user has no receiving address")
)

type Service struct {
	db *sql.DB
}

func NewService(ctx context.Context, cfg models.DatabaseConfig) (*Service, error) {
	// Validate configuration
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

	zap.L().Info("Opening SQLite database", zap.String("file", cfg.Path))
	db, err := sql.Open("sqlite3", cfg.Path+"?_journal_mode=WAL&_synchronous=NORMAL&_cache_size=1000")
	if err != nil {
		return nil, fmt.Errorf("unable to open database: %w", err)
	}

	// Set connection timeouts and limits
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	db.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	// Test connection with timeout
	pingCtx, cancel := context.WithTimeout(ctx, cfg.PingTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			return nil, closeErr
		}
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}

	service := &Service{db: db}
	if err := service.initSchema(); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			return nil, closeErr
		}
		return nil, fmt.Errorf("unable to initialize schema: %w", err)
	}

	zap.L().Info("Database service initialized successfully")
	return service, nil
}

func (s *Service) Close() {
	if err := s.db.Close(); err != nil {
		zap.L().Warn("Failed to close database connection", zap.Error(err))
	}
}

func (s *Service) initSchema() error {
	schema := `
	-- Create users table. Balances are integer piconero; address_index is the
	-- wallet subaddress assigned to the user (NULL until first assignment,
	-- index 0 is the primary address and never assigned).
	CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		display TEXT NOT NULL UNIQUE,
		balance INTEGER NOT NULL DEFAULT 0 CHECK (balance >= 0),
		address TEXT UNIQUE,
		address_index INTEGER UNIQUE CHECK (address_index > 0),
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	-- Create index on display for login lookups
	CREATE INDEX IF NOT EXISTS idx_users_display ON users(display);
	-- Create index on address_index for credit lookups
	CREATE INDEX IF NOT EXISTS idx_users_address_index ON users(address_index);

	-- Create transactions table recording incoming transfers. tx_hash is
	-- unique so re-observing a transfer is a no-op.
	CREATE TABLE IF NOT EXISTS transactions (
		id TEXT PRIMARY KEY,
		address_index INTEGER NOT NULL,
		amount INTEGER NOT NULL CHECK (amount > 0),
		tx_hash TEXT NOT NULL UNIQUE,
		unlocked BOOLEAN NOT NULL DEFAULT 0,
		credited BOOLEAN NOT NULL DEFAULT 0,
		block_height INTEGER NOT NULL DEFAULT 0,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	-- Create index for the reconciler's uncredited scan
	CREATE INDEX IF NOT EXISTS idx_transactions_credited ON transactions(credited);
	-- Create index for per-user history
	CREATE INDEX IF NOT EXISTS idx_transactions_address_index ON transactions(address_index);

	-- Create withdraw_requests table. fee and tx_hash stay NULL until the
	-- request settles. success and refunded are mutually exclusive.
	CREATE TABLE IF NOT EXISTS withdraw_requests (
		id TEXT PRIMARY KEY,
		address_index INTEGER NOT NULL,
		amount INTEGER NOT NULL CHECK (amount > 0),
		fee INTEGER,
		tx_hash TEXT,
		success BOOLEAN NOT NULL DEFAULT 0,
		refunded BOOLEAN NOT NULL DEFAULT 0,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		CHECK (NOT (success AND refunded))
	);

	-- Create index for the unresolved-request sweep
	CREATE INDEX IF NOT EXISTS idx_withdraw_requests_unresolved ON withdraw_requests(success, refunded);
	-- Create index for per-user history
	CREATE INDEX IF NOT EXISTS idx_withdraw_requests_address_index ON withdraw_requests(address_index);
	`

	_, err := s.db.Exec(schema)
	return err
}
