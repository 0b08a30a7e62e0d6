package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"xmr-custody-go/internal/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// InsertIncomingTransfers records newly observed transfers. Inserts are
// keyed on tx_hash with OR IGNORE, so transfers already on file are
// skipped and a reconcile cycle can be re-run safely. Returns the number
// of rows actually inserted.
func (s *Service) InsertIncomingTransfers(ctx context.Context, transfers []models.IncomingTransfer) (int, error) {
	if len(transfers) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("unable to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	stmt, err := tx.PrepareContext(ctx, queryInsertTransfer)
	if err != nil {
		return 0, fmt.Errorf("unable to prepare insert: %w", err)
	}
	defer func(stmt *sql.Stmt) {
		if err := stmt.Close(); err != nil {
			zap.L().Warn("Failed to close statement", zap.Error(err))
		}
	}(stmt)

	inserted := 0
	for _, transfer := range transfers {
		result, err := stmt.ExecContext(ctx,
			uuid.New().String(),
			transfer.AddressIndex(),
			transfer.Amount,
			transfer.TxHash,
			transfer.Unlocked,
			transfer.BlockHeight)
		if err != nil {
			return 0, fmt.Errorf("unable to insert transfer %s: %w", transfer.TxHash, err)
		}

		rowsAffected, err := result.RowsAffected()
		if err != nil {
			return 0, fmt.Errorf("unable to get rows affected: %w", err)
		}
		if rowsAffected > 0 {
			inserted++
			zap.L().Info("Recorded incoming transfer",
				zap.String("tx_hash", transfer.TxHash),
				zap.Int64("address_index", transfer.AddressIndex()),
				zap.Int64("amount", transfer.Amount),
				zap.Bool("unlocked", transfer.Unlocked))
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("unable to commit transfers: %w", err)
	}

	return inserted, nil
}

// GetUncreditedTransactions returns transfers on file whose owner has
// not been credited yet, oldest first.
func (s *Service) GetUncreditedTransactions(ctx context.Context) ([]models.Transaction, error) {
	rows, err := s.db.QueryContext(ctx, queryGetUncreditedTransactions)
	if err != nil {
		return nil, fmt.Errorf("unable to query uncredited transactions: %w", err)
	}
	defer func(rows *sql.Rows) {
		if err := rows.Close(); err != nil {
			zap.L().Warn("Failed to close rows", zap.Error(err))
		}
	}(rows)

	return scanTransactions(rows)
}

// CreditTransaction flips a transaction to credited and increments the
// owning user's balance, both inside one database transaction. The flip
// is guarded on credited = 0; if another writer got there first the call
// is a no-op and returns false. A credited transaction with no matching
// user (funds arrived on an index we never assigned) still commits so
// the row is not retried forever; it is logged for follow-up.
func (s *Service) CreditTransaction(ctx context.Context, transactionId string) (bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("unable to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	var addressIndex, amount int64
	err = tx.QueryRowContext(ctx, queryGetTransactionAmountIndex, transactionId).Scan(&addressIndex, &amount)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, fmt.Errorf("transaction not found: %s", transactionId)
		}
		return false, fmt.Errorf("unable to load transaction %s: %w", transactionId, err)
	}

	result, err := tx.ExecContext(ctx, queryMarkTransactionCredited, transactionId)
	if err != nil {
		return false, fmt.Errorf("unable to mark transaction credited: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("unable to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		// Already credited by a concurrent cycle.
		return false, nil
	}

	result, err = tx.ExecContext(ctx, queryCreditBalanceByAddressIndex, amount, addressIndex)
	if err != nil {
		return false, fmt.Errorf("unable to credit balance: %w", err)
	}

	rowsAffected, err = result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("unable to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		zap.L().Warn("Credited transaction has no owning user",
			zap.String("transaction_id", transactionId),
			zap.Int64("address_index", addressIndex),
			zap.Int64("amount", amount))
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("unable to commit credit: %w", err)
	}

	zap.L().Info("Credited deposit",
		zap.String("transaction_id", transactionId),
		zap.Int64("address_index", addressIndex),
		zap.Int64("amount", amount))

	return true, nil
}

func (s *Service) GetTransactionByHash(ctx context.Context, txHash string) (*models.Transaction, error) {
	var transaction models.Transaction
	err := s.db.QueryRowContext(ctx, queryGetTransactionByHash, txHash).Scan(
		&transaction.Id, &transaction.AddressIndex, &transaction.Amount, &transaction.TxHash,
		&transaction.Unlocked, &transaction.Credited, &transaction.BlockHeight, &transaction.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("transaction not found: %s", txHash)
		}
		return nil, fmt.Errorf("unable to query transaction by hash: %w", err)
	}
	return &transaction, nil
}

// GetRecentDeposits returns the newest transfers for one subaddress.
func (s *Service) GetRecentDeposits(ctx context.Context, addressIndex int64, limit int) ([]models.Transaction, error) {
	rows, err := s.db.QueryContext(ctx, queryGetRecentDeposits, addressIndex, limit)
	if err != nil {
		return nil, fmt.Errorf("unable to query recent deposits: %w", err)
	}
	defer func(rows *sql.Rows) {
		if err := rows.Close(); err != nil {
			zap.L().Warn("Failed to close rows", zap.Error(err))
		}
	}(rows)

	return scanTransactions(rows)
}

func scanTransactions(rows *sql.Rows) ([]models.Transaction, error) {
	var transactions []models.Transaction
	for rows.Next() {
		var transaction models.Transaction
		err := rows.Scan(&transaction.Id, &transaction.AddressIndex, &transaction.Amount, &transaction.TxHash,
			&transaction.Unlocked, &transaction.Credited, &transaction.BlockHeight, &transaction.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("unable to scan transaction row: %w", err)
		}
		transactions = append(transactions, transaction)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating transaction rows: %w", err)
	}

	return transactions, nil
}
