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
	"os"
	"os/signal"
	"syscall"
	"time"

	"xmr-custody-go/internal/common"
	"xmr-custody-go/internal/config"
	"xmr-custody-go/internal/deposit"
	"xmr-custody-go/internal/monitor"

	"go.uber.org/zap"
)

func main() {
	once := flag.Bool("once", false, "Run a single reconcile cycle and exit")
	flag.Parse()

	_, loggerCleanup := common.InitializeLogger()
	defer loggerCleanup()

	cfg, err := config.Load()
	if err != nil {
		zap.L().Fatal("Failed to load configuration", zap.Error(err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	zap.L().Info("Starting deposit reconciler")

	services, err := common.InitializeServices(ctx, cfg)
	if err != nil {
		zap.L().Fatal("Failed to initialize services", zap.Error(err))
	}
	defer services.Close()

	if cfg.Monitor.ListenAddress != "" {
		monitor.Init()
		monitor.Serve(cfg.Monitor.ListenAddress)
	}

	reconciler := deposit.NewReconciler(deposit.ReconcilerConfig{
		Wallet:          services.WalletClient,
		DbService:       services.DbService,
		PollingInterval: cfg.Reconciler.PollingInterval,
		AlarmWindow:     cfg.Reconciler.AlarmWindow,
	})

	if *once {
		if err := reconciler.Reconcile(ctx); err != nil {
			zap.L().Fatal("Reconcile cycle failed", zap.Error(err))
		}
		zap.L().Info("Reconcile cycle completed, exiting")
		return
	}

	reconciler.Start(ctx)

	zap.L().Info("Reconciler running",
		zap.Duration("polling_interval", cfg.Reconciler.PollingInterval))
	zap.L().Info("Press Ctrl+C to stop")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	zap.L().Info("Shutdown signal received, stopping reconciler...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	done := make(chan struct{})
	go func() {
		reconciler.Stop()
		close(done)
	}()

	select {
	case <-done:
		zap.L().Info("Reconciler stopped gracefully")
	case <-shutdownCtx.Done():
		zap.L().Warn("Forced shutdown after timeout")
	}
}
