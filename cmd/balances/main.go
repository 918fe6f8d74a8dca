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

	"bank-ledger-go/internal/common"
	"bank-ledger-go/internal/config"
	"bank-ledger-go/internal/database"
	"bank-ledger-go/internal/models"
	"bank-ledger-go/internal/store"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type balanceStats struct {
	totalUsers     int
	usersWithFunds int
	savingsCount   int
	mismatches     int
}

func printSavings(symbol string, savings []models.Savings) {
	for i, sv := range savings {
		isLast := i == len(savings)-1
		target := "none"
		if sv.TargetAmount.Valid {
			target = common.FormatAmount(symbol, sv.TargetAmount.Decimal)
		}
		fmt.Printf("%s %-20s: %15s (target: %s, status: %s)\n",
			common.BoxPrefix(isLast),
			sv.Title,
			common.FormatAmount(symbol, sv.SavedAmount),
			target,
			sv.Status)
	}
}

func printUserHeader(user models.User, symbol string, balance decimal.Decimal) {
	fmt.Printf("\n┌─ User: %s (%s)\n", user.Name, user.Email)
	fmt.Printf("│  ID:      %s\n", user.Id)
	fmt.Printf("│  Account: %s\n", user.AccountNumber)
	fmt.Printf("│  Balance: %s\n", common.FormatAmount(symbol, balance))
}

func processUser(ctx context.Context, user models.User, dbService *database.Service, symbol string, reconcile bool, stats *balanceStats) error {
	balance, err := dbService.GetUserBalance(ctx, user.Id)
	if err != nil {
		return fmt.Errorf("failed to get balance: %w", err)
	}

	savings, err := dbService.ListUserSavings(ctx, user.Id)
	if err != nil {
		return fmt.Errorf("failed to get savings: %w", err)
	}

	if balance.IsZero() && len(savings) == 0 && !reconcile {
		return nil
	}
	if !balance.IsZero() {
		stats.usersWithFunds++
	}
	stats.savingsCount += len(savings)

	printUserHeader(user, symbol, balance)

	if reconcile {
		result, err := dbService.ReconcileUserBalance(ctx, user.Id)
		switch {
		case errors.Is(err, store.ErrBalanceMismatch):
			stats.mismatches++
			fmt.Printf("│  Ledger:  %s  MISMATCH\n", common.FormatAmount(symbol, result.Calculated))
		case err != nil:
			return fmt.Errorf("failed to reconcile balance: %w", err)
		default:
			fmt.Printf("│  Ledger:  %s  ok\n", common.FormatAmount(symbol, result.Calculated))
		}
	}

	if len(savings) > 0 {
		fmt.Printf("│  Savings: %d\n", len(savings))
		printSavings(symbol, savings)
	}

	return nil
}

func processUsersAndGenerateReport(ctx context.Context, users []models.User, dbService *database.Service, symbol string, reconcile bool, logger *zap.Logger) balanceStats {
	stats := balanceStats{}

	for _, user := range users {
		stats.totalUsers++

		if err := processUser(ctx, user, dbService, symbol, reconcile, &stats); err != nil {
			logger.Error("Failed to process user",
				zap.String("user_id", user.Id),
				zap.String("user_name", user.Name),
				zap.Error(err))
		}
	}

	return stats
}

func main() {
	ctx := context.Background()

	logger, loggerCleanup := common.InitializeLogger()
	defer loggerCleanup()

	// Parse command line flags
	emailFlag := flag.String("email", "", "Filter by specific user email (optional)")
	reconcileFlag := flag.Bool("reconcile", false, "Recompute each balance from the ledger and compare with the stored aggregate")
	flag.Parse()

	logger.Info("Starting balance query")

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err))
	}

	bank, err := common.LoadBankProfile(cfg.BankProfileFile)
	if err != nil {
		logger.Fatal("Failed to load bank profile", zap.Error(err))
	}

	logger.Info("Connecting to database",
		zap.String("driver", cfg.Database.Driver),
		zap.String("path", cfg.Database.Path))
	dbService, err := common.InitializeDatabaseOnly(ctx, cfg)
	if err != nil {
		logger.Fatal("Failed to initialize database", zap.Error(err))
	}
	defer dbService.Close()

	users, err := common.InitializeUsers(ctx, dbService, *emailFlag, logger)
	if err != nil {
		logger.Fatal("Failed to initialize users", zap.Error(err))
	}

	common.PrintHeader(fmt.Sprintf("%s BALANCE REPORT", bank.Name), common.DefaultWidth)

	stats := processUsersAndGenerateReport(ctx, users, dbService, bank.CurrencySymbol, *reconcileFlag, logger)

	summary := fmt.Sprintf("SUMMARY: %d users with funds, %d savings accounts (%d users queried)",
		stats.usersWithFunds, stats.savingsCount, stats.totalUsers)
	if *reconcileFlag {
		summary += fmt.Sprintf(", %d mismatches", stats.mismatches)
	}
	common.PrintFooter(summary, common.DefaultWidth)

	logger.Info("Balance query completed",
		zap.Int("users_queried", stats.totalUsers),
		zap.Int("users_with_funds", stats.usersWithFunds),
		zap.Int("savings_accounts", stats.savingsCount),
		zap.Int("mismatches", stats.mismatches))
}
