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

package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"bank-ledger-go/internal/models"
	"bank-ledger-go/internal/store"

	"go.uber.org/zap"
)

func scanUser(row rowScanner) (*models.User, error) {
	var user models.User
	err := row.Scan(&user.Id, &user.Name, &user.Email, &user.AccountNumber,
		&user.Suspended, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *Service) GetUsers(ctx context.Context) ([]models.User, error) {
	zap.L().Debug("Querying users")

	rows, err := s.conn().query(ctx, queryGetUsers)
	if err != nil {
		zap.L().Error("Failed to query users", zap.Error(err))
		return nil, fmt.Errorf("unable to query users: %w", err)
	}
	defer closeRows(rows)

	var users []models.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			zap.L().Error("Failed to scan user row", zap.Error(err))
			return nil, fmt.Errorf("unable to scan user row: %w", err)
		}
		users = append(users, *user)
	}

	// Check for errors during iteration
	if err := rows.Err(); err != nil {
		zap.L().Error("Error during user row iteration", zap.Error(err))
		return nil, fmt.Errorf("error iterating user rows: %w", err)
	}

	zap.L().Info("Retrieved users", zap.Int("count", len(users)))
	return users, nil
}

func (s *Service) GetUserById(ctx context.Context, userId string) (*models.User, error) {
	return getUserById(ctx, s.conn(), userId)
}

func getUserById(ctx context.Context, c conn, userId string) (*models.User, error) {
	user, err := scanUser(c.queryRow(ctx, queryGetUserById, userId))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("user %s: %w", userId, store.ErrNotFound)
		}
		zap.L().Error("Failed to query user by ID", zap.String("user_id", userId), zap.Error(err))
		return nil, fmt.Errorf("unable to query user by ID: %w", err)
	}
	return user, nil
}

func (s *Service) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	zap.L().Debug("Querying user by email", zap.String("email", email))

	user, err := scanUser(s.conn().queryRow(ctx, queryGetUserByEmail, email))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("user %s: %w", email, store.ErrNotFound)
		}
		zap.L().Error("Failed to query user by email", zap.String("email", email), zap.Error(err))
		return nil, fmt.Errorf("unable to query user by email: %w", err)
	}
	return user, nil
}

func (s *Service) CreateUser(ctx context.Context, params store.CreateUserParams) (*models.User, error) {
	zap.L().Info("Creating user", zap.String("id", params.Id), zap.String("name", params.Name), zap.String("email", params.Email))

	now := time.Now().UTC()
	_, err := s.conn().exec(ctx, queryInsertUser,
		params.Id, params.Name, params.Email, params.AccountNumber, false, now, now)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("%w: user with email %s or account number %s already exists",
				store.ErrDuplicate, params.Email, params.AccountNumber)
		}
		zap.L().Error("Failed to insert user", zap.String("email", params.Email), zap.Error(err))
		return nil, fmt.Errorf("unable to insert user: %w", err)
	}

	zap.L().Info("User created successfully", zap.String("id", params.Id), zap.String("account_number", params.AccountNumber))

	// Return the created user
	return s.GetUserById(ctx, params.Id)
}

// SetUserSuspended flips the suspension flag with its audit entry and
// notification email in one transaction.
func (s *Service) SetUserSuspended(ctx context.Context, userId string, suspended bool, activity *models.Activity, outbox []models.OutboxMessage) (*models.User, error) {
	var user *models.User

	err := s.inTx(ctx, func(c conn) error {
		result, err := c.exec(ctx, querySetUserSuspended, suspended, time.Now().UTC(), userId)
		if err != nil {
			return fmt.Errorf("unable to update user: %w", err)
		}
		if n, err := result.RowsAffected(); err != nil {
			return fmt.Errorf("unable to get rows affected: %w", err)
		} else if n == 0 {
			return fmt.Errorf("user %s: %w", userId, store.ErrNotFound)
		}

		if err := insertActivity(ctx, c, activity); err != nil {
			return err
		}
		if err := insertOutbox(ctx, c, outbox); err != nil {
			return err
		}

		user, err = getUserById(ctx, c, userId)
		return err
	})
	if err != nil {
		return nil, err
	}

	zap.L().Info("User suspension updated", zap.String("user_id", userId), zap.Bool("suspended", suspended))
	return user, nil
}

func (s *Service) GetAdminById(ctx context.Context, adminId string) (*models.Admin, error) {
	var admin models.Admin
	err := s.conn().queryRow(ctx, queryGetAdminById, adminId).Scan(
		&admin.Id, &admin.Name, &admin.Email, &admin.Role, &admin.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("admin %s: %w", adminId, store.ErrNotFound)
		}
		return nil, fmt.Errorf("unable to query admin: %w", err)
	}
	return &admin, nil
}

func (s *Service) CreateAdmin(ctx context.Context, admin *models.Admin) error {
	if admin.CreatedAt.IsZero() {
		admin.CreatedAt = time.Now().UTC()
	}

	_, err := s.conn().exec(ctx, queryInsertAdmin, admin.Id, admin.Name, admin.Email, admin.Role, admin.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: admin with email %s already exists", store.ErrDuplicate, admin.Email)
		}
		return fmt.Errorf("unable to insert admin: %w", err)
	}

	zap.L().Info("Admin created", zap.String("id", admin.Id), zap.String("role", admin.Role))
	return nil
}
