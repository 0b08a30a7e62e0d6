package withdraw

import (
	"context"
	"fmt"

	"xmr-custody-go/internal/database"
	"xmr-custody-go/internal/models"
	"xmr-custody-go/internal/monitor"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Outcome names the terminal state of a withdrawal attempt. Everything
// except OutcomeTransferred means the debited amount was refunded.
type Outcome string

const (
	OutcomeTransferred       Outcome = "transferred"
	OutcomeEstimateExhausted Outcome = "unable to estimate transfer"
	OutcomeEstimateFailed    Outcome = "estimate transfer failed"
	OutcomeTransferFailed    Outcome = "transfer failed"
	OutcomeRelayFailed       Outcome = "relay failed"
)

// WalletClient is the subset of the wallet RPC surface the engine needs.
type WalletClient interface {
	TransferNoRelay(ctx context.Context, amount int64, destination string) (*models.TransferBuild, error)
	RelayTx(ctx context.Context, txMetadata string) (*models.RelayResult, error)
}

// Engine executes withdraw requests against the wallet. A request
// arrives already debited; the engine either relays a transaction and
// settles the request, or refunds it. The fee is taken out of the
// requested amount, never on top of it, so the user can withdraw their
// full balance.
type Engine struct {
	wallet    WalletClient
	dbService *database.Service
	policy    models.WithdrawPolicy
}

func NewEngine(wallet WalletClient, dbService *database.Service, policy models.WithdrawPolicy) *Engine {
	return &Engine{
		wallet:    wallet,
		dbService: dbService,
		policy:    policy,
	}
}

// Execute runs the withdrawal sequence for a debited request.
//
// A first transfer is built only to learn the fee. If that build fails
// and the estimate loop is enabled, the amount is shrunk by the
// configured percentage and the build retried, compounding, up to the
// retry maximum; the wallet rejects builds whose amount plus fee
// exceeds the spendable balance, and shrinking makes room for the fee.
// The transfer is then rebuilt at amount minus fee and relayed. Any
// failure refunds the request.
func (e *Engine) Execute(ctx context.Context, request *models.WithdrawRequest, destination string) (Outcome, error) {
	amount := request.Amount

	build, err := e.wallet.TransferNoRelay(ctx, amount, destination)
	if e.policy.EstimateLoop {
		for retry := 0; err != nil && retry < e.policy.EstimateRetryMax; retry++ {
			amount = shrink(amount, e.policy.EstimatePercentDown)
			zap.L().Info("Retrying fee estimate with reduced amount",
				zap.String("request_id", request.Id),
				zap.Int("retry", retry+1),
				zap.Int64("amount", amount))
			build, err = e.wallet.TransferNoRelay(ctx, amount, destination)
		}
		if err != nil {
			zap.L().Error("Fee estimate retries exhausted",
				zap.String("request_id", request.Id),
				zap.Int("retries", e.policy.EstimateRetryMax),
				zap.Error(err))
			return e.refund(ctx, request, OutcomeEstimateExhausted)
		}
	} else if err != nil {
		zap.L().Error("Fee estimate failed",
			zap.String("request_id", request.Id),
			zap.Error(err))
		return e.refund(ctx, request, OutcomeEstimateFailed)
	}

	// Rebuild net of fee so the total spend never exceeds the debit.
	netAmount := amount - build.Fee
	netBuild, err := e.wallet.TransferNoRelay(ctx, netAmount, destination)
	if err != nil {
		zap.L().Error("Transfer build failed",
			zap.String("request_id", request.Id),
			zap.Int64("net_amount", netAmount),
			zap.Int64("estimated_fee", build.Fee),
			zap.Error(err))
		return e.refund(ctx, request, OutcomeTransferFailed)
	}

	relay, err := e.wallet.RelayTx(ctx, netBuild.TxMetadata)
	if err != nil {
		zap.L().Error("Relay failed",
			zap.String("request_id", request.Id),
			zap.String("tx_hash", netBuild.TxHash),
			zap.Error(err))
		return e.refund(ctx, request, OutcomeRelayFailed)
	}

	// The funds left custody. From here on a refund would double-spend
	// the user's balance, so settle failures surface as errors instead.
	settled, err := e.dbService.SettleWithdrawRequest(ctx, request.Id, netBuild.Fee, relay.TxHash)
	if err != nil {
		return OutcomeTransferred, fmt.Errorf(
			"transaction %s relayed but request %s could not be settled, manual reconciliation required: %w",
			relay.TxHash, request.Id, err)
	}
	if !settled {
		zap.L().Warn("Relayed request was already resolved",
			zap.String("request_id", request.Id),
			zap.String("tx_hash", relay.TxHash))
	}

	monitor.ObserveWithdrawal(string(OutcomeTransferred))
	zap.L().Info("Withdrawal completed",
		zap.String("request_id", request.Id),
		zap.Int64("amount", netAmount),
		zap.Int64("fee", netBuild.Fee),
		zap.String("tx_hash", relay.TxHash))

	return OutcomeTransferred, nil
}

func (e *Engine) refund(ctx context.Context, request *models.WithdrawRequest, outcome Outcome) (Outcome, error) {
	refunded, err := e.dbService.RefundWithdrawRequest(ctx, request)
	if err != nil {
		return outcome, fmt.Errorf(
			"withdrawal failed (%s) and refund of request %s also failed, manual reconciliation required: %w",
			outcome, request.Id, err)
	}
	if !refunded {
		zap.L().Warn("Refund skipped, request already resolved",
			zap.String("request_id", request.Id))
	}

	monitor.ObserveWithdrawal(string(outcome))
	zap.L().Info("Withdraw request refunded",
		zap.String("request_id", request.Id),
		zap.Int64("amount", request.Amount),
		zap.String("outcome", string(outcome)))

	return outcome, nil
}

// shrink lowers amount by percentDown percent, rounding down. Decimal
// arithmetic keeps the result exact above float64's 2^53 integer range.
func shrink(amount int64, percentDown float64) int64 {
	factor := decimal.NewFromInt(1).Sub(decimal.NewFromFloat(percentDown).Div(decimal.NewFromInt(100)))
	return decimal.NewFromInt(amount).Mul(factor).IntPart()
}
