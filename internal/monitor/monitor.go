package monitor

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// BusinessMetrics tracks the money-movement counters the operators
// alert on. Withdrawal outcomes carry the engine's outcome string as a
// label so refund causes can be graphed separately.
type BusinessMetrics struct {
	DepositsCreditedTotal      prometheus.Counter
	DepositAmountTotal         prometheus.Counter
	WithdrawalsTotal           *prometheus.CounterVec
	WithdrawRequestsUnresolved prometheus.Gauge
}

// Business is nil until Init is called. The short-lived CLIs skip Init,
// so every recording helper below tolerates a nil instance.
var Business *BusinessMetrics

func Init() {
	Business = &BusinessMetrics{
		DepositsCreditedTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "custody_deposits_credited_total",
			Help: "Number of incoming transfers credited to user balances",
		}),
		DepositAmountTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "custody_deposit_amount_piconero_total",
			Help: "Total credited deposit amount in piconero",
		}),
		WithdrawalsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "custody_withdrawals_total",
			Help: "Withdrawal attempts by outcome",
		}, []string{"outcome"}),
		WithdrawRequestsUnresolved: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "custody_withdraw_requests_unresolved",
			Help: "Withdraw requests older than the alarm window with neither success nor refund",
		}),
	}
}

// Serve exposes /metrics on the given address in a background goroutine.
func Serve(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	go func() {
		zap.L().Info("Serving metrics", zap.String("address", addr))
		if err := http.ListenAndServe(addr, mux); err != nil {
			zap.L().Error("Metrics server stopped", zap.Error(err))
		}
	}()
}

func ObserveDepositCredited(amount int64) {
	if Business == nil {
		return
	}
	Business.DepositsCreditedTotal.Inc()
	Business.DepositAmountTotal.Add(float64(amount))
}

func ObserveWithdrawal(outcome string) {
	if Business == nil {
		return
	}
	Business.WithdrawalsTotal.WithLabelValues(outcome).Inc()
}

func SetUnresolvedWithdrawals(count int) {
	if Business == nil {
		return
	}
	Business.WithdrawRequestsUnresolved.Set(float64(count))
}
