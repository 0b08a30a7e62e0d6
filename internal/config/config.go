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

package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"xmr-custody-go/internal/models"
)

func Load() (*models.Config, error) {
	pollingInterval, err := getEnvDuration("DEPOSIT_POLLING_INTERVAL", 15*time.Second)
	if err != nil {
		return nil, err
	}

	alarmWindow, err := getEnvDuration("WITHDRAW_ALARM_WINDOW", 24*time.Hour)
	if err != nil {
		return nil, err
	}

	rpcTimeout, err := getEnvDuration("WALLET_RPC_TIMEOUT", 60*time.Second)
	if err != nil {
		return nil, err
	}

	connMaxLifetime, err := getEnvDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute)
	if err != nil {
		return nil, err
	}

	connMaxIdleTime, err := getEnvDuration("DB_CONN_MAX_IDLE_TIME", 30*time.Second)
	if err != nil {
		return nil, err
	}

	pingTimeout, err := getEnvDuration("DB_PING_TIMEOUT", 5*time.Second)
	if err != nil {
		return nil, err
	}

	return &models.Config{
		Database: models.DatabaseConfig{
			Path:            getEnvString("DATABASE_PATH", "ledger.db"),
			MaxOpenConns:    getEnvInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    getEnvInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: connMaxLifetime,
			ConnMaxIdleTime: connMaxIdleTime,
			PingTimeout:     pingTimeout,
		},
		WalletRpc: models.WalletRpcConfig{
			Address:     getEnvString("WALLET_RPC_ADDRESS", "127.0.0.1:18083"),
			CallTimeout: rpcTimeout,
		},
		Reconciler: models.ReconcilerConfig{
			PollingInterval: pollingInterval,
			AlarmWindow:     alarmWindow,
		},
		Withdraw: models.WithdrawPolicy{
			EstimateLoop:        getEnvBool("WITHDRAW_ESTIMATE_LOOP", true),
			EstimateRetryMax:    getEnvInt("WITHDRAW_ESTIMATE_RETRY_MAX", 3),
			EstimatePercentDown: getEnvFloat("WITHDRAW_ESTIMATE_PERCENT_DOWN", 5),
			MinAmount:           getEnvInt64("WITHDRAW_MIN_AMOUNT", 100_000_000),
			PolicyFile:          getEnvString("WITHDRAW_POLICY_FILE", ""),
		},
		Monitor: models.MonitorConfig{
			ListenAddress: getEnvString("METRICS_LISTEN_ADDRESS", ""),
		},
	}, nil
}

func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	if value := os.Getenv(key); value != "" {
		duration, err := time.ParseDuration(value)
		if err != nil {
			return 0, fmt.Errorf("invalid duration for %s: %q (%w)", key, value, err)
		}
		return duration, nil
	}
	return defaultValue, nil
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}
