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
	"regexp"
	"strings"

	"bank-ledger-go/internal/api"
	"bank-ledger-go/internal/common"
	"bank-ledger-go/internal/config"
	"bank-ledger-go/internal/database"
	"bank-ledger-go/internal/models"
	"bank-ledger-go/internal/store"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

func validateEmail(email string) error {
	if email == "" {
		return fmt.Errorf("email cannot be empty")
	}
	if !emailRegex.MatchString(email) {
		return fmt.Errorf("invalid email format: %s", email)
	}
	return nil
}

func validateName(name string) error {
	if name == "" {
		return fmt.Errorf("name cannot be empty")
	}
	if len(name) < 2 {
		return fmt.Errorf("name must be at least 2 characters")
	}
	return nil
}

func validateRole(role string) error {
	switch role {
	case "", models.RoleAdmin, models.RoleSuperAdmin:
		return nil
	}
	return fmt.Errorf("unknown role %q (expected %s or %s)", role, models.RoleAdmin, models.RoleSuperAdmin)
}

func createAdmin(ctx context.Context, dbService *database.Service, name, email, role string) {
	admin := &models.Admin{
		Id:    uuid.New().String(),
		Name:  name,
		Email: strings.ToLower(email),
		Role:  role,
	}

	zap.L().Info("Creating admin in database",
		zap.String("id", admin.Id),
		zap.String("email", admin.Email),
		zap.String("role", role))

	if err := dbService.CreateAdmin(ctx, admin); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			zap.L().Fatal("Admin already exists with this email", zap.String("email", email))
		}
		zap.L().Fatal("Failed to create admin", zap.Error(err))
	}

	fmt.Println()
	common.PrintHeader("ADMIN CREATED", common.DefaultWidth)
	fmt.Printf("ID:    %s\n", admin.Id)
	fmt.Printf("Name:  %s\n", admin.Name)
	fmt.Printf("Email: %s\n", admin.Email)
	fmt.Printf("Role:  %s\n", admin.Role)
	common.PrintSeparator("=", common.DefaultWidth)
	fmt.Println()
	fmt.Printf("Send X-Admin-ID: %s on admin requests.\n\n", admin.Id)

	zap.L().Info("Admin created successfully", zap.String("id", admin.Id))
}

func createUser(ctx context.Context, services *common.Services, name, email string) {
	ledger := api.NewLedgerService(services.DbService, services.Bank)

	zap.L().Info("Creating user in database",
		zap.String("name", name),
		zap.String("email", email))

	user, err := ledger.CreateUser(ctx, models.CreateUserRequest{Name: name, Email: email})
	if err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			zap.L().Fatal("User already exists with this email", zap.String("email", email))
		}
		zap.L().Fatal("Failed to create user", zap.Error(err))
	}

	fmt.Println()
	common.PrintHeader("USER CREATED", common.DefaultWidth)
	fmt.Printf("ID:      %s\n", user.Id)
	fmt.Printf("Name:    %s\n", user.Name)
	fmt.Printf("Email:   %s\n", user.Email)
	fmt.Printf("Account: %s\n", user.AccountNumber)
	common.PrintSeparator("=", common.DefaultWidth)
	fmt.Println()

	zap.L().Info("User created successfully", zap.String("id", user.Id))
}

func main() {
	ctx := context.Background()

	_, loggerCleanup := common.InitializeLogger()
	defer loggerCleanup()

	// Parse command line flags
	nameFlag := flag.String("name", "", "Full name (required)")
	emailFlag := flag.String("email", "", "Email address (required)")
	roleFlag := flag.String("role", "", "Create an admin with this role (admin or super_admin) instead of a user")
	flag.Parse()

	// Validate required flags
	if *nameFlag == "" || *emailFlag == "" {
		zap.L().Fatal("Both flags are required: --name and --email")
	}

	if err := validateName(*nameFlag); err != nil {
		zap.L().Fatal("Invalid name", zap.Error(err))
	}
	if err := validateEmail(*emailFlag); err != nil {
		zap.L().Fatal("Invalid email", zap.Error(err))
	}
	if err := validateRole(*roleFlag); err != nil {
		zap.L().Fatal("Invalid role", zap.Error(err))
	}

	cfg, err := config.Load()
	if err != nil {
		zap.L().Fatal("Failed to load config", zap.Error(err))
	}

	services, err := common.InitializeServices(ctx, cfg)
	if err != nil {
		zap.L().Fatal("Failed to initialize services", zap.Error(err))
	}
	defer services.Close()

	if *roleFlag != "" {
		createAdmin(ctx, services.DbService, *nameFlag, *emailFlag, *roleFlag)
		return
	}
	createUser(ctx, services, *nameFlag, *emailFlag)
}
