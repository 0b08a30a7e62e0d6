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

package main

import (
	"context"
	"flag"
	"fmt"
	"regexp"
	"strings"

	"xmr-custody-go/internal/common"
	"xmr-custody-go/internal/config"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var displayRegex = regexp.MustCompile(`^[a-zA-Z0-9._\-]+$`)

func validateDisplay(display string) error {
	if display == "" {
		return fmt.Errorf("display name cannot be empty")
	}
	if len(display) < 2 {
		return fmt.Errorf("display name must be at least 2 characters")
	}
	if !displayRegex.MatchString(display) {
		return fmt.Errorf("display name may only contain letters, digits, '.', '_' and '-': %s", display)
	}
	return nil
}

func main() {
	ctx := context.Background()

	_, loggerCleanup := common.InitializeLogger()
	defer loggerCleanup()

	// Parse command line flags
	displayFlag := flag.String("display", "", "User's display name (required)")
	flag.Parse()

	if *displayFlag == "" {
		zap.L().Fatal("Required flag: --display")
	}

	if err := validateDisplay(*displayFlag); err != nil {
		zap.L().Fatal("Invalid display name", zap.Error(err))
	}

	zap.L().Info("Starting user creation process", zap.String("display", *displayFlag))

	cfg, err := config.Load()
	if err != nil {
		zap.L().Fatal("Failed to load config", zap.Error(err))
	}

	dbService, err := common.InitializeDatabaseOnly(ctx, cfg)
	if err != nil {
		zap.L().Fatal("Failed to initialize database", zap.Error(err))
	}
	defer dbService.Close()

	userId := uuid.New().String()

	user, err := dbService.CreateUser(ctx, userId, *displayFlag)
	if err != nil {
		if strings.Contains(err.Error(), "already exists") {
			zap.L().Fatal("User already exists with this display name", zap.String("display", *displayFlag))
		}
		zap.L().Fatal("Failed to create user", zap.Error(err))
	}

	fmt.Println()
	common.PrintHeader("USER CREATED", common.DefaultWidth)
	fmt.Printf("ID:      %s\n", user.Id)
	fmt.Printf("Display: %s\n", user.Display)
	fmt.Printf("Balance: %s XMR\n", common.FormatAmount(user.Balance))
	common.PrintSeparator("=", common.DefaultWidth)
	fmt.Println()
	fmt.Println("No deposit address assigned yet")
	fmt.Println("Run cmd/deposit-address to allocate one on first deposit")

	zap.L().Info("User created successfully", zap.String("id", user.Id))
}
