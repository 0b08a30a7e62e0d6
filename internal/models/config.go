package models

import "time"

// Config represents the application configuration
type Config struct {
	Database   DatabaseConfig
	WalletRpc  WalletRpcConfig
	Reconciler ReconcilerConfig
	Withdraw   WithdrawPolicy
	Monitor    MonitorConfig
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Path            string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
	PingTimeout     time.Duration
}

// WalletRpcConfig holds monero-wallet-rpc connection settings
type WalletRpcConfig struct {
	Address     string // host:port of the wallet RPC endpoint
	CallTimeout time.Duration
}

// ReconcilerConfig holds deposit reconciler settings
type ReconcilerConfig struct {
	PollingInterval time.Duration
	// AlarmWindow is the age after which an unresolved withdraw request
	// is reported. Zero disables the check.
	AlarmWindow time.Duration
}

// WithdrawPolicy controls the fee-estimate retry behavior of the
// withdrawal engine. Amounts are in piconero.
type WithdrawPolicy struct {
	EstimateLoop        bool
	EstimateRetryMax    int
	EstimatePercentDown float64
	MinAmount           int64
	PolicyFile          string
}

// MonitorConfig holds Prometheus exposition settings
type MonitorConfig struct {
	ListenAddress string // empty disables the metrics endpoint
}
