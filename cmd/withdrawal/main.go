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
	"errors"
	"flag"
	"fmt"

	"xmr-custody-go/internal/common"
	"xmr-custody-go/internal/config"
	"xmr-custody-go/internal/database"
	"xmr-custody-go/internal/models"
	"xmr-custody-go/internal/withdraw"

	"go.uber.org/zap"
)

type withdrawalRequest struct {
	display     string
	amount      int64
	destination string
}

func parseAndValidateFlags() (*withdrawalRequest, error) {
	displayFlag := flag.String("display", "", "User display name (required)")
	amountFlag := flag.String("amount", "", "Amount to withdraw in XMR (required)")
	destinationFlag := flag.String("destination", "", "Destination address (required)")
	flag.Parse()

	if *displayFlag == "" || *amountFlag == "" || *destinationFlag == "" {
		return nil, fmt.Errorf("all flags are required: --display, --amount, --destination")
	}

	amount, err := common.ParseAmount(*amountFlag)
	if err != nil {
		return nil, err
	}

	return &withdrawalRequest{
		display:     *displayFlag,
		amount:      amount,
		destination: *destinationFlag,
	}, nil
}

func printWithdrawalSummary(user *models.User, req *withdrawalRequest) {
	common.PrintHeader("WITHDRAWAL REQUEST", common.DefaultWidth)
	fmt.Printf("User:              %s (%s)\n", user.Display, user.Id)
	fmt.Printf("Current Balance:   %s XMR\n", common.FormatAmount(user.Balance))
	fmt.Printf("Withdrawal Amount: %s XMR\n", common.FormatAmount(req.amount))
	fmt.Printf("Remaining Balance: %s XMR\n", common.FormatAmount(user.Balance-req.amount))
	fmt.Printf("Destination:       %s\n", req.destination)
	common.PrintSeparator("=", common.DefaultWidth)
	fmt.Println()
}

func printFailure(user *models.User, req *withdrawalRequest, reason string) {
	common.PrintHeader("WITHDRAWAL FAILED", common.DefaultWidth)
	if user != nil {
		fmt.Printf("User:              %s (%s)\n", user.Display, user.Id)
		fmt.Printf("Current Balance:   %s XMR\n", common.FormatAmount(user.Balance))
	}
	fmt.Printf("Requested Amount:  %s XMR\n", common.FormatAmount(req.amount))
	fmt.Printf("Destination:       %s\n", req.destination)
	fmt.Printf("Reason:            %s\n", reason)
	common.PrintSeparator("=", common.DefaultWidth)
	fmt.Println()
}

func main() {
	ctx := context.Background()

	_, loggerCleanup := common.InitializeLogger()
	defer loggerCleanup()

	// Parse and validate command line flags
	req, err := parseAndValidateFlags()
	if err != nil {
		zap.L().Fatal("Invalid flags", zap.Error(err))
	}

	zap.L().Info("Starting withdrawal process",
		zap.String("display", req.display),
		zap.Int64("amount", req.amount),
		zap.String("destination", req.destination))

	// Load configuration and resolve the withdraw policy
	cfg, err := config.Load()
	if err != nil {
		zap.L().Fatal("Failed to load config", zap.Error(err))
	}

	policy := cfg.Withdraw
	if policy.PolicyFile != "" {
		policy, err = common.LoadWithdrawPolicy(policy, policy.PolicyFile)
		if err != nil {
			zap.L().Fatal("Failed to load withdraw policy", zap.Error(err))
		}
	}

	if req.amount < policy.MinAmount {
		printFailure(nil, req, fmt.Sprintf("amount below minimum of %s XMR", common.FormatAmount(policy.MinAmount)))
		zap.L().Fatal("Amount below minimum",
			zap.Int64("amount", req.amount),
			zap.Int64("min_amount", policy.MinAmount))
	}

	zap.L().Info("Initializing services")
	services, err := common.InitializeServices(ctx, cfg)
	if err != nil {
		zap.L().Fatal("Failed to initialize services", zap.Error(err))
	}
	defer services.Close()

	// Find user by display name
	user, err := services.DbService.GetUserByDisplay(ctx, req.display)
	if err != nil {
		printFailure(nil, req, fmt.Sprintf("user not found: %s", req.display))
		zap.L().Fatal("User not found", zap.String("display", req.display), zap.Error(err))
	}

	// Debit the balance and record the request. From here on the funds
	// are reserved: the engine either relays or refunds.
	request, err := services.DbService.CreateWithdrawRequest(ctx, user, req.amount)
	if err != nil {
		switch {
		case errors.Is(err, database.ErrInsufficientBalance):
			printFailure(user, req, "insufficient balance")
		case errors.Is(err, database.ErrNoReceivingAddress):
			printFailure(user, req, "no deposit address assigned, nothing was ever deposited")
		default:
			printFailure(user, req, err.Error())
		}
		zap.L().Fatal("Failed to create withdraw request", zap.Error(err))
	}

	printWithdrawalSummary(user, req)
	fmt.Println("Funds reserved - balance debited")

	engine := withdraw.NewEngine(services.WalletClient, services.DbService, policy)

	fmt.Println("Building and relaying transaction...")
	outcome, err := engine.Execute(ctx, request, req.destination)
	if err != nil {
		fmt.Println("CRITICAL: withdrawal left in an inconsistent state - manual intervention required")
		zap.L().Fatal("Withdrawal failed without clean resolution",
			zap.String("request_id", request.Id),
			zap.String("outcome", string(outcome)),
			zap.Error(err))
	}

	if outcome != withdraw.OutcomeTransferred {
		printFailure(user, req, string(outcome))
		fmt.Println("Balance restored (refund successful)")
		zap.L().Fatal("Withdrawal did not complete (balance refunded)",
			zap.String("request_id", request.Id),
			zap.String("outcome", string(outcome)))
	}

	settled, err := services.DbService.GetWithdrawRequest(ctx, request.Id)
	if err != nil {
		zap.L().Fatal("Failed to reload withdraw request", zap.Error(err))
	}

	common.PrintHeader("WITHDRAWAL COMPLETE", common.DefaultWidth)
	fmt.Printf("Request ID:  %s\n", settled.Id)
	fmt.Printf("Amount:      %s XMR\n", common.FormatAmount(settled.Amount))
	fmt.Printf("Network Fee: %s XMR (taken from amount)\n", common.FormatAmount(settled.Fee))
	fmt.Printf("TX Hash:     %s\n", settled.TxHash)
	common.PrintSeparator("=", common.DefaultWidth)
	fmt.Println()

	zap.L().Info("Withdrawal completed successfully",
		zap.String("request_id", settled.Id),
		zap.String("tx_hash", settled.TxHash),
		zap.Int64("fee", settled.Fee))
}
