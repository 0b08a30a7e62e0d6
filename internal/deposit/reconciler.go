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

package deposit

import (
	"context"
	"fmt"
	"time"

	"xmr-custody-go/internal/database"
	"xmr-custody-go/internal/models"
	"xmr-custody-go/internal/monitor"

	"go.uber.org/zap"
)

// WalletClient is the subset of the wallet RPC surface the reconciler
// needs.
type WalletClient interface {
	IncomingTransfers(ctx context.Context) ([]models.IncomingTransfer, error)
	CreateAddress(ctx context.Context) (*models.SubAddress, error)
}

// ReconcilerConfig contains configuration for Reconciler
type ReconcilerConfig struct {
	Wallet          WalletClient
	DbService       *database.Service
	PollingInterval time.Duration
	AlarmWindow     time.Duration
}

// Reconciler periodically compares the wallet's incoming transfers with
// the ledger and credits users for transfers that have unlocked. The
// wallet is the source of truth; the ledger only ever catches up to it.
type Reconciler struct {
	wallet    WalletClient
	dbService *database.Service

	pollingInterval time.Duration
	alarmWindow     time.Duration

	// Control channels
	stopChan chan struct{}
	doneChan chan struct{}
}

// NewReconciler creates a new deposit reconciler
func NewReconciler(cfg ReconcilerConfig) *Reconciler {
	return &Reconciler{
		wallet:          cfg.Wallet,
		dbService:       cfg.DbService,
		pollingInterval: cfg.PollingInterval,
		alarmWindow:     cfg.AlarmWindow,
		stopChan:        make(chan struct{}),
		doneChan:        make(chan struct{}),
	}
}

// Start begins the reconcile loop
func (r *Reconciler) Start(ctx context.Context) {
	zap.L().Info("Starting deposit reconciler",
		zap.Duration("polling_interval", r.pollingInterval),
		zap.Duration("alarm_window", r.alarmWindow))

	go r.pollLoop(ctx)
}

// Stop gracefully stops the reconciler
func (r *Reconciler) Stop() {
	zap.L().Info("Stopping deposit reconciler")
	close(r.stopChan)
	<-r.doneChan
	zap.L().Info("Deposit reconciler stopped")
}

// pollLoop runs the main reconcile loop
func (r *Reconciler) pollLoop(ctx context.Context) {
	defer close(r.doneChan)

	ticker := time.NewTicker(r.pollingInterval)
	defer ticker.Stop()

	r.runCycle(ctx)

	for {
		select {
		case <-ticker.C:
			r.runCycle(ctx)
		case <-r.stopChan:
			return
		case <-ctx.Done():
			return
		}
	}
}

func (r *Reconciler) runCycle(ctx context.Context) {
	if err := r.Reconcile(ctx); err != nil {
		zap.L().Error("Reconcile cycle failed", zap.Error(err))
	}

	if err := r.reportUnresolvedWithdrawals(ctx); err != nil {
		zap.L().Error("Unresolved withdrawal sweep failed", zap.Error(err))
	}
}

// Reconcile runs one cycle: fetch the wallet's transfers, record the
// ones not yet on file, then credit every recorded transfer the wallet
// now reports as unlocked. Transfers to the primary address (index 0)
// belong to the operator, not to any user, and are never credited.
func (r *Reconciler) Reconcile(ctx context.Context) error {
	transfers, err := r.wallet.IncomingTransfers(ctx)
	if err != nil {
		return fmt.Errorf("unable to fetch incoming transfers: %w", err)
	}

	observed := make([]models.IncomingTransfer, 0, len(transfers))
	unlockedByHash := make(map[string]bool)
	for _, transfer := range transfers {
		if transfer.AddressIndex() == 0 {
			continue
		}
		observed = append(observed, transfer)
		if transfer.Unlocked {
			unlockedByHash[transfer.TxHash] = true
		}
	}

	inserted, err := r.dbService.InsertIncomingTransfers(ctx, observed)
	if err != nil {
		return fmt.Errorf("unable to record transfers: %w", err)
	}

	pending, err := r.dbService.GetUncreditedTransactions(ctx)
	if err != nil {
		return fmt.Errorf("unable to load uncredited transactions: %w", err)
	}

	credited := 0
	for _, transaction := range pending {
		if !unlockedByHash[transaction.TxHash] {
			continue
		}

		ok, err := r.dbService.CreditTransaction(ctx, transaction.Id)
		if err != nil {
			// Leave the row uncredited; the next cycle retries it.
			zap.L().Error("Failed to credit transaction",
				zap.String("transaction_id", transaction.Id),
				zap.String("tx_hash", transaction.TxHash),
				zap.Error(err))
			continue
		}
		if ok {
			credited++
			monitor.ObserveDepositCredited(transaction.Amount)
		}
	}

	zap.L().Info("Reconcile cycle completed",
		zap.Int("observed", len(observed)),
		zap.Int("recorded", inserted),
		zap.Int("credited", credited),
		zap.Int("awaiting_unlock", len(pending)-credited))

	return nil
}

// reportUnresolvedWithdrawals surfaces withdraw requests that never
// reached success or refund. These mean a process died mid-withdrawal;
// the funds position is unknown and must be reconciled by hand against
// the wallet's outgoing transfers.
func (r *Reconciler) reportUnresolvedWithdrawals(ctx context.Context) error {
	if r.alarmWindow <= 0 {
		return nil
	}

	cutoff := time.Now().UTC().Add(-r.alarmWindow)
	requests, err := r.dbService.GetUnresolvedWithdrawRequests(ctx, cutoff)
	if err != nil {
		return err
	}

	monitor.SetUnresolvedWithdrawals(len(requests))

	for _, request := range requests {
		zap.L().Warn("Unresolved withdraw request needs manual reconciliation",
			zap.String("request_id", request.Id),
			zap.Int64("address_index", request.AddressIndex),
			zap.Int64("amount", request.Amount),
			zap.Time("created_at", request.CreatedAt))
	}

	return nil
}
