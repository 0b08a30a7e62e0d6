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

	"xmr-custody-go/internal/common"
	"xmr-custody-go/internal/config"
	"xmr-custody-go/internal/deposit"

	"go.uber.org/zap"
)

func main() {
	ctx := context.Background()

	_, loggerCleanup := common.InitializeLogger()
	defer loggerCleanup()

	displayFlag := flag.String("display", "", "User display name (required)")
	flag.Parse()

	if *displayFlag == "" {
		zap.L().Fatal("Required flag: --display")
	}

	zap.L().Info("Resolving deposit address", zap.String("display", *displayFlag))

	cfg, err := config.Load()
	if err != nil {
		zap.L().Fatal("Failed to load config", zap.Error(err))
	}

	services, err := common.InitializeServices(ctx, cfg)
	if err != nil {
		zap.L().Fatal("Failed to initialize services", zap.Error(err))
	}
	defer services.Close()

	user, err := services.DbService.GetUserByDisplay(ctx, *displayFlag)
	if err != nil {
		zap.L().Fatal("User not found", zap.String("display", *displayFlag), zap.Error(err))
	}

	hadAddress := user.HasAddress()

	user, err = deposit.EnsureAddress(ctx, services.WalletClient, services.DbService, user)
	if err != nil {
		zap.L().Fatal("Failed to ensure deposit address", zap.Error(err))
	}

	fmt.Println()
	common.PrintHeader("DEPOSIT ADDRESS", common.DefaultWidth)
	fmt.Printf("User:          %s (%s)\n", user.Display, user.Id)
	fmt.Printf("Address:       %s\n", user.Address)
	fmt.Printf("Address Index: %d\n", user.AddressIndex)
	if hadAddress {
		fmt.Println("Status:        existing assignment")
	} else {
		fmt.Println("Status:        newly allocated")
	}
	common.PrintSeparator("=", common.DefaultWidth)
	fmt.Println()
}
