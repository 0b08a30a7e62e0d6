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
	"xmr-custody-go/internal/database"
	"xmr-custody-go/internal/models"

	"go.uber.org/zap"
)

const historyLimit = 10

type balanceStats struct {
	totalUsers   int
	totalBalance int64
	withDeposits int
}

func formatTxHash(txHash string) string {
	if txHash == "" {
		return "none"
	}
	if len(txHash) > 12 {
		return txHash[:12] + "..."
	}
	return txHash
}

func printUserHeader(user models.User) {
	fmt.Printf("\n┌─ User: %s\n", user.Display)
	fmt.Printf("│  ID: %s\n", user.Id)
	if user.HasAddress() {
		fmt.Printf("│  Address: %s (index %d)\n", user.Address, user.AddressIndex)
	} else {
		fmt.Printf("│  Address: not assigned\n")
	}
	fmt.Printf("│  Balance: %s XMR\n", common.FormatAmount(user.Balance))
	common.PrintBoxSeparator(78)
}

func printDeposits(deposits []models.Transaction) {
	for i, deposit := range deposits {
		isLast := i == len(deposits)-1
		status := "locked"
		if deposit.Credited {
			status = "credited"
		} else if deposit.Unlocked {
			status = "unlocked"
		}
		fmt.Printf("%s deposit  %20s XMR  %-8s  %s  height %d\n",
			common.BoxPrefix(isLast && len(deposits) > 0),
			common.FormatAmount(deposit.Amount),
			status,
			formatTxHash(deposit.TxHash),
			deposit.BlockHeight)
	}
}

func printWithdrawals(withdrawals []models.WithdrawRequest) {
	for i, request := range withdrawals {
		isLast := i == len(withdrawals)-1
		status := "unresolved"
		if request.Success {
			status = "sent"
		} else if request.Refunded {
			status = "refunded"
		}
		fmt.Printf("%s withdraw %20s XMR  %-10s %s\n",
			common.BoxPrefix(isLast),
			common.FormatAmount(request.Amount),
			status,
			formatTxHash(request.TxHash))
	}
}

func processUser(ctx context.Context, user models.User, dbService *database.Service) (bool, error) {
	printUserHeader(user)

	if !user.HasAddress() {
		return false, nil
	}

	deposits, err := dbService.GetRecentDeposits(ctx, user.AddressIndex, historyLimit)
	if err != nil {
		return false, fmt.Errorf("failed to get deposits: %w", err)
	}

	withdrawals, err := dbService.GetRecentWithdrawals(ctx, user.AddressIndex, historyLimit)
	if err != nil {
		return false, fmt.Errorf("failed to get withdrawals: %w", err)
	}

	printDeposits(deposits)
	printWithdrawals(withdrawals)

	return len(deposits) > 0, nil
}

func processUsersAndGenerateReport(ctx context.Context, users []models.User, dbService *database.Service, logger *zap.Logger) balanceStats {
	stats := balanceStats{}

	for _, user := range users {
		stats.totalUsers++
		stats.totalBalance += user.Balance

		hasDeposits, err := processUser(ctx, user, dbService)
		if err != nil {
			logger.Error("Failed to process user",
				zap.String("user_id", user.Id),
				zap.String("display", user.Display),
				zap.Error(err))
			continue
		}

		if hasDeposits {
			stats.withDeposits++
		}
	}

	return stats
}

func main() {
	ctx := context.Background()

	logger, loggerCleanup := common.InitializeLogger()
	defer loggerCleanup()

	// Parse command line flags
	displayFlag := flag.String("display", "", "Filter by specific user display name (optional)")
	flag.Parse()

	logger.Info("Starting balance query")

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err))
	}

	logger.Info("Connecting to database", zap.String("path", cfg.Database.Path))
	dbService, err := common.InitializeDatabaseOnly(ctx, cfg)
	if err != nil {
		logger.Fatal("Failed to initialize database", zap.Error(err))
	}
	defer dbService.Close()

	users, err := common.InitializeUsers(ctx, dbService, *displayFlag, logger)
	if err != nil {
		logger.Fatal("Failed to initialize users", zap.Error(err))
	}

	common.PrintHeader("USER BALANCE REPORT", common.DefaultWidth)

	stats := processUsersAndGenerateReport(ctx, users, dbService, logger)

	summary := fmt.Sprintf("SUMMARY: %d users, %s XMR under custody (%d users with deposit history)",
		stats.totalUsers, common.FormatAmount(stats.totalBalance), stats.withDeposits)
	common.PrintFooter(summary, common.DefaultWidth)

	logger.Info("Balance query completed",
		zap.Int("users_queried", stats.totalUsers),
		zap.Int64("total_balance", stats.totalBalance))
}
