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
	"os"
	"os/signal"
	"syscall"
	"time"

	"bank-ledger-go/internal/api"
	"bank-ledger-go/internal/common"
	"bank-ledger-go/internal/config"
	"bank-ledger-go/internal/listener"
	"bank-ledger-go/internal/mailer"
	"bank-ledger-go/internal/notify"
	"bank-ledger-go/internal/server"

	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		_, _ = zap.NewProduction()
		zap.L().Fatal("Failed to load configuration", zap.Error(err))
	}

	_, loggerCleanup := common.InitializeLogger()
	defer loggerCleanup()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	zap.L().Info("Starting ledger server",
		zap.String("driver", cfg.Database.Driver),
		zap.String("port", cfg.Server.Port))

	services, err := common.InitializeServices(ctx, cfg)
	if err != nil {
		zap.L().Fatal("Failed to initialize services", zap.Error(err))
	}
	defer services.Close()

	ledger := api.NewLedgerService(services.DbService, services.Bank)
	hub := notify.NewHub(cfg.Server.AllowedOrigins)
	defer hub.Close()

	var outbox *listener.OutboxListener
	if cfg.Dispatcher.Enabled {
		outbox = listener.NewOutboxListener(listener.OutboxListenerConfig{
			Store:      services.DbService,
			Publisher:  hub,
			Mailer:     mailer.New(mailer.NewRenderer(services.Bank), mailer.NewSender(cfg.Mail), cfg.Mail.From),
			Dispatcher: cfg.Dispatcher,
		})
		if err := outbox.Start(ctx); err != nil {
			zap.L().Fatal("Failed to start outbox listener", zap.Error(err))
		}
	} else {
		zap.L().Info("Outbox listener disabled; run cmd/listener to deliver side effects")
	}

	router := server.NewRouter(server.NewHandler(ledger, hub), cfg.Server)
	srv := server.New(cfg.Server, router)
	serveErr := srv.Start()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-sigChan:
		zap.L().Info("Shutdown signal received")
	case err := <-serveErr:
		if err != nil {
			zap.L().Error("HTTP server failed", zap.Error(err))
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		zap.L().Warn("Forced shutdown after timeout", zap.Error(err))
	}
	if outbox != nil {
		outbox.Stop()
	}

	zap.L().Info("Ledger server stopped")
}
