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

	"go.uber.org/zap"
)

func (s *Service) GetUsers(ctx context.Context) ([]models.User, error) {
	zap.L().Debug("Querying users")

	rows, err := s.db.QueryContext(ctx, queryGetUsers)
	if err != nil {
		zap.L().Error("Failed to query users", zap.Error(err))
		return nil, fmt.Errorf("unable to query users: %w", err)
	}
	defer func(rows *sql.Rows) {
		if err := rows.Close(); err != nil {
			zap.L().Warn("Failed to close rows", zap.Error(err))
		}
	}(rows)

	var users []models.User
	for rows.Next() {
		var user models.User
		err := rows.Scan(&user.Id, &user.Display, &user.Balance, &user.Address, &user.AddressIndex, &user.CreatedAt)
		if err != nil {
			zap.L().Error("Failed to scan user row", zap.Error(err))
			return nil, fmt.Errorf("unable to scan user row: %w", err)
		}

		users = append(users, user)
	}

	// Check for errors during iteration
	if err := rows.Err(); err != nil {
		zap.L().Error("Error during user row iteration", zap.Error(err))
		return nil, fmt.Errorf("error iterating user rows: %w", err)
	}

	return users, nil
}

func (s *Service) getUser(ctx context.Context, query string, arg interface{}) (*models.User, error) {
	var user models.User
	err := s.db.QueryRowContext(ctx, query, arg).Scan(
		&user.Id, &user.Display, &user.Balance, &user.Address, &user.AddressIndex, &user.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %v", ErrUserNotFound, arg)
		}
		return nil, fmt.Errorf("unable to query user: %w", err)
	}
	return &user, nil
}

func (s *Service) GetUserById(ctx context.Context, userId string) (*models.User, error) {
	return s.getUser(ctx, queryGetUserById, userId)
}

func (s *Service) GetUserByDisplay(ctx context.Context, display string) (*models.User, error) {
	return s.getUser(ctx, queryGetUserByDisplay, display)
}

func (s *Service) GetUserByAddressIndex(ctx context.Context, addressIndex int64) (*models.User, error) {
	return s.getUser(ctx, queryGetUserByAddressIndex, addressIndex)
}

func (s *Service) CreateUser(ctx context.Context, userId, display string) (*models.User, error) {
	zap.L().Info("Creating user", zap.String("id", userId), zap.String("display", display))

	result, err := s.db.ExecContext(ctx, queryInsertUser, userId, display)
	if err != nil {
		zap.L().Error("Failed to insert user", zap.String("display", display), zap.Error(err))
		return nil, fmt.Errorf("unable to insert user: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("unable to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return nil, fmt.Errorf("user with display %s already exists", display)
	}

	zap.L().Info("User created successfully", zap.String("id", userId), zap.String("display", display))

	// Return the created user
	return s.GetUserByDisplay(ctx, display)
}

// AssignAddress binds a wallet subaddress to a user. The guard on
// address IS NULL makes the assignment permanent: a second call for the
// same user leaves the original binding in place.
func (s *Service) AssignAddress(ctx context.Context, userId, address string, addressIndex int64) error {
	result, err := s.db.ExecContext(ctx, queryAssignAddress, address, addressIndex, userId)
	if err != nil {
		return fmt.Errorf("unable to assign address: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("unable to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		user, err := s.GetUserById(ctx, userId)
		if err != nil {
			return err
		}
		if user.HasAddress() {
			zap.L().Warn("User already has an address, keeping the existing one",
				zap.String("user_id", userId),
				zap.Int64("existing_index", user.AddressIndex),
				zap.Int64("discarded_index", addressIndex))
			return nil
		}
		return fmt.Errorf("unable to assign address to user %s", userId)
	}

	zap.L().Info("Assigned deposit address",
		zap.String("user_id", userId),
		zap.Int64("address_index", addressIndex))
	return nil
}

// DebitBalance subtracts amount from the user's balance. The update is
// guarded on balance >= amount so the balance can never go negative.
func (s *Service) DebitBalance(ctx context.Context, userId string, amount int64) error {
	if amount <= 0 {
		return fmt.Errorf("debit amount must be positive, got %d", amount)
	}

	result, err := s.db.ExecContext(ctx, queryDebitBalance, amount, userId, amount)
	if err != nil {
		return fmt.Errorf("unable to debit balance: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("unable to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("%w: user %s, requested %d", ErrInsufficientBalance, userId, amount)
	}

	return nil
}

// CreditBalance adds amount to the user's balance.
func (s *Service) CreditBalance(ctx context.Context, userId string, amount int64) error {
	if amount <= 0 {
		return fmt.Errorf("credit amount must be positive, got %d", amount)
	}

	result, err := s.db.ExecContext(ctx, queryCreditBalance, amount, userId)
	if err != nil {
		return fmt.Errorf("unable to credit balance: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("unable to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("%w: %s", ErrUserNotFound, userId)
	}

	return nil
}
