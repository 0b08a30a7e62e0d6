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

package common

import (
	"context"
	"fmt"

	"xmr-custody-go/internal/database"
	"xmr-custody-go/internal/models"

	"go.uber.org/zap"
)

// InitializeUsers retrieves users based on an optional display filter.
// If displayFilter is provided, returns the single matching user.
// If displayFilter is empty, returns all users.
func InitializeUsers(ctx context.Context, dbService *database.Service, displayFilter string, logger *zap.Logger) ([]models.User, error) {
	var users []models.User

	if displayFilter != "" {
		logger.Info("Looking up user by display", zap.String("display", displayFilter))
		user, err := dbService.GetUserByDisplay(ctx, displayFilter)
		if err != nil {
			return nil, fmt.Errorf("user not found: %w", err)
		}
		users = append(users, *user)
	} else {
		allUsers, err := dbService.GetUsers(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to get users: %w", err)
		}
		users = allUsers
	}

	logger.Info("Retrieved users", zap.Int("count", len(users)))
	return users, nil
}
