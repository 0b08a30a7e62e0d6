package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"xmr-custody-go/internal/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CreateWithdrawRequest debits the user's balance and records the
// request in one database transaction. The caller holds the debited
// funds from this point on: every request must end in exactly one of
// SettleWithdrawRequest or RefundWithdrawRequest.
func (s *Service) CreateWithdrawRequest(ctx context.Context, user *models.User, amount int64) (*models.WithdrawRequest, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("withdrawal amount must be positive, got %d", amount)
	}
	if !user.HasAddress() {
		return nil, fmt.Errorf("%w: %s", ErrNoReceivingAddress, user.Id)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("unable to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	result, err := tx.ExecContext(ctx, queryDebitBalance, amount, user.Id, amount)
	if err != nil {
		return nil, fmt.Errorf("unable to debit balance: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("unable to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return nil, fmt.Errorf("%w: user %s, requested %d", ErrInsufficientBalance, user.Id, amount)
	}

	requestId := uuid.New().String()
	if _, err := tx.ExecContext(ctx, queryInsertWithdrawRequest, requestId, user.AddressIndex, amount); err != nil {
		return nil, fmt.Errorf("unable to insert withdraw request: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("unable to commit withdraw request: %w", err)
	}

	zap.L().Info("Created withdraw request",
		zap.String("request_id", requestId),
		zap.String("user_id", user.Id),
		zap.Int64("address_index", user.AddressIndex),
		zap.Int64("amount", amount))

	return s.GetWithdrawRequest(ctx, requestId)
}

// RefundWithdrawRequest returns the debited amount to the owning user.
// The refunded flip is guarded so a request can be refunded at most
// once, and never after it settled. Returns false when the request was
// already resolved.
func (s *Service) RefundWithdrawRequest(ctx context.Context, request *models.WithdrawRequest) (bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("unable to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	result, err := tx.ExecContext(ctx, queryMarkWithdrawRefunded, request.Id)
	if err != nil {
		return false, fmt.Errorf("unable to mark request refunded: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("unable to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		// Already settled or refunded.
		return false, nil
	}

	result, err = tx.ExecContext(ctx, queryCreditBalanceByAddressIndex, request.Amount, request.AddressIndex)
	if err != nil {
		return false, fmt.Errorf("unable to credit refund: %w", err)
	}

	rowsAffected, err = result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("unable to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		zap.L().Warn("Refunded request has no owning user",
			zap.String("request_id", request.Id),
			zap.Int64("address_index", request.AddressIndex),
			zap.Int64("amount", request.Amount))
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("unable to commit refund: %w", err)
	}

	zap.L().Info("Refunded withdraw request",
		zap.String("request_id", request.Id),
		zap.Int64("amount", request.Amount))

	return true, nil
}

// SettleWithdrawRequest marks a request as successfully broadcast,
// recording the network fee and the relayed transaction hash. Guarded
// the same way as the refund: a settled or refunded request stays put.
func (s *Service) SettleWithdrawRequest(ctx context.Context, requestId string, fee int64, txHash string) (bool, error) {
	result, err := s.db.ExecContext(ctx, queryMarkWithdrawSettled, fee, txHash, requestId)
	if err != nil {
		return false, fmt.Errorf("unable to settle withdraw request: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("unable to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return false, nil
	}

	zap.L().Info("Settled withdraw request",
		zap.String("request_id", requestId),
		zap.Int64("fee", fee),
		zap.String("tx_hash", txHash))

	return true, nil
}

func (s *Service) GetWithdrawRequest(ctx context.Context, requestId string) (*models.WithdrawRequest, error) {
	var request models.WithdrawRequest
	err := s.db.QueryRowContext(ctx, queryGetWithdrawRequestById, requestId).Scan(
		&request.Id, &request.AddressIndex, &request.Amount, &request.Fee, &request.TxHash,
		&request.Success, &request.Refunded, &request.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("withdraw request not found: %s", requestId)
		}
		return nil, fmt.Errorf("unable to query withdraw request: %w", err)
	}
	return &request, nil
}

// GetUnresolvedWithdrawRequests returns requests created before the
// given time that have neither settled nor been refunded. These need
// operator attention: the debit happened but the outcome is unknown.
func (s *Service) GetUnresolvedWithdrawRequests(ctx context.Context, olderThan time.Time) ([]models.WithdrawRequest, error) {
	rows, err := s.db.QueryContext(ctx, queryGetUnresolvedWithdrawRequests, olderThan.UTC())
	if err != nil {
		return nil, fmt.Errorf("unable to query unresolved withdraw requests: %w", err)
	}
	defer func(rows *sql.Rows) {
		if err := rows.Close(); err != nil {
			zap.L().Warn("Failed to close rows", zap.Error(err))
		}
	}(rows)

	return scanWithdrawRequests(rows)
}

// GetRecentWithdrawals returns the newest requests for one subaddress.
func (s *Service) GetRecentWithdrawals(ctx context.Context, addressIndex int64, limit int) ([]models.WithdrawRequest, error) {
	rows, err := s.db.QueryContext(ctx, queryGetRecentWithdrawals, addressIndex, limit)
	if err != nil {
		return nil, fmt.Errorf("unable to query recent withdrawals: %w", err)
	}
	defer func(rows *sql.Rows) {
		if err := rows.Close(); err != nil {
			zap.L().Warn("Failed to close rows", zap.Error(err))
		}
	}(rows)

	return scanWithdrawRequests(rows)
}

func scanWithdrawRequests(rows *sql.Rows) ([]models.WithdrawRequest, error) {
	var requests []models.WithdrawRequest
	for rows.Next() {
		var request models.WithdrawRequest
		err := rows.Scan(&request.Id, &request.AddressIndex, &request.Amount, &request.Fee, &request.TxHash,
			&request.Success, &request.Refunded, &request.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("unable to scan withdraw request row: %w", err)
		}
		requests = append(requests, request)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating withdraw request rows: %w", err)
	}

	return requests, nil
}
