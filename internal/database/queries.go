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

// Queries use '?' placeholders and are rebound for PostgreSQL at execution time.
const (
	userColumns         = `id, name, email, account_number, suspended, created_at, updated_at`
	adminColumns        = `id, name, email, role, created_at`
	transactionColumns  = `id, user_id, transaction_id, transaction_type, sub_type, amount, description, level, status, created_at, updated_at`
	savingsColumns      = `id, user_id, title, saved_amount, target_amount, end_date, status, version, created_at, updated_at`
	depositColumns      = `id, user_id, is_accepted, amount, hash, status, created_at, updated_at`
	accountColumns      = `id, account_number, full_name, bank_name, created_at, updated_at`
	beneficiaryColumns  = `id, user_id, account_number, full_name, bank_name, note, created_at`
	notificationColumns = `id, user_id, type, subtype, title, message, data, is_read, created_at`
	activityColumns     = `id, admin_id, action, target_id, target_model, metadata, created_at`
	outboxColumns       = `id, kind, payload, status, attempts, next_attempt_at, last_error, created_at, updated_at`

	// User queries
	queryGetUsers = `
		SELECT ` + userColumns + `
		FROM users
		ORDER BY created_at`

	queryInsertUser = `
		INSERT INTO users (id, name, email, account_number, suspended, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`

	queryGetUserById = `
		SELECT ` + userColumns + `
		FROM users
		WHERE id = ?`

	queryGetUserByEmail = `
		SELECT ` + userColumns + `
		FROM users
		WHERE LOWER(email) = LOWER(?)`

	querySetUserSuspended = `
		UPDATE users SET suspended = ?, updated_at = ? WHERE id = ?`

	// Admin queries
	queryInsertAdmin = `
		INSERT INTO admins (id, name, email, role, created_at) VALUES (?, ?, ?, ?, ?)`

	queryGetAdminById = `
		SELECT ` + adminColumns + `
		FROM admins
		WHERE id = ?`

	// Balance queries
	queryGetBalance = `
		SELECT balance
		FROM account_balances
		WHERE user_id = ?`

	queryGetAccountBalance = `
		SELECT balance, version
		FROM account_balances
		WHERE user_id = ?`

	queryInsertAccountBalance = `
		INSERT INTO account_balances (user_id, balance, last_transaction_id, version, updated_at)
		VALUES (?, ?, ?, 1, ?)`

	queryUpdateAccountBalance = `
		UPDATE account_balances
		SET balance = ?, last_transaction_id = ?, version = version + 1, updated_at = ?
		WHERE user_id = ? AND version = ?`

	queryScanSuccessfulTransactions = `
		SELECT transaction_type, amount
		FROM transactions
		WHERE user_id = ? AND status = ?`

	// Transaction queries
	queryInsertTransaction = `
		INSERT INTO transactions (` + transactionColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	queryGetTransaction = `
		SELECT ` + transactionColumns + `
		FROM transactions
		WHERE id = ?`

	queryCountTransactions = `
		SELECT COUNT(*)
		FROM transactions
		WHERE (? = '' OR user_id = ?) AND (? = '' OR transaction_type = ?)`

	queryListTransactions = `
		SELECT ` + transactionColumns + `
		FROM transactions
		WHERE (? = '' OR user_id = ?) AND (? = '' OR transaction_type = ?)
		ORDER BY created_at DESC, id
		LIMIT ? OFFSET ?`

	queryLastTransactions = `
		SELECT ` + transactionColumns + `
		FROM transactions
		WHERE user_id = ?
		ORDER BY created_at DESC, id
		LIMIT ?`

	queryUpdateTransactionStatus = `
		UPDATE transactions SET status = ?, updated_at = ?
		WHERE id = ? AND status = ?`

	queryUpdateTransactionLevel = `
		UPDATE transactions SET level = ?, updated_at = ?
		WHERE id = ? AND user_id = ?`

	queryDeleteTransaction = `
		DELETE FROM transactions WHERE id = ?`

	// Savings queries
	queryInsertSavings = `
		INSERT INTO savings (` + savingsColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	queryGetSavings = `
		SELECT ` + savingsColumns + `
		FROM savings
		WHERE id = ? AND user_id = ?`

	queryGetSavingsById = `
		SELECT ` + savingsColumns + `
		FROM savings
		WHERE id = ?`

	queryListUserSavings = `
		SELECT ` + savingsColumns + `
		FROM savings
		WHERE user_id = ?
		ORDER BY created_at DESC, id`

	queryCountSavings = `SELECT COUNT(*) FROM savings`

	queryListSavings = `
		SELECT ` + savingsColumns + `
		FROM savings
		ORDER BY created_at DESC, id
		LIMIT ? OFFSET ?`

	queryListMaturingSavings = `
		SELECT ` + savingsColumns + `
		FROM savings
		WHERE status = ? AND (target_amount IS NOT NULL OR end_date IS NOT NULL)`

	queryUpdateSavings = `
		UPDATE savings
		SET saved_amount = ?, status = ?, version = version + 1, updated_at = ?
		WHERE id = ? AND version = ?`

	queryListInterestDueSavings = `
		SELECT ` + savingsColumns + `
		FROM savings
		WHERE status = ? AND (last_interest_at IS NULL OR last_interest_at < ?)`

	queryAccrueSavingsInterest = `
		UPDATE savings
		SET saved_amount = ?, status = ?, last_interest_at = ?, version = version + 1, updated_at = ?
		WHERE id = ? AND version = ?`

	queryCompleteSavings = `
		UPDATE savings
		SET status = ?, version = version + 1, updated_at = ?
		WHERE id = ? AND version = ?`

	queryDeleteSavings = `
		DELETE FROM savings WHERE id = ?`

	// Deposit request queries
	queryInsertDepositRequest = `
		INSERT INTO deposit_requests (` + depositColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

	queryGetDepositRequest = `
		SELECT ` + depositColumns + `
		FROM deposit_requests
		WHERE id = ?`

	queryListUserDepositRequests = `
		SELECT ` + depositColumns + `
		FROM deposit_requests
		WHERE user_id = ?
		ORDER BY created_at DESC, id`

	queryCountDepositRequests = `SELECT COUNT(*) FROM deposit_requests`

	queryListDepositRequests = `
		SELECT ` + depositColumns + `
		FROM deposit_requests
		ORDER BY created_at DESC, id
		LIMIT ? OFFSET ?`

	queryUpdateDepositHash = `
		UPDATE deposit_requests SET hash = ?, updated_at = ?
		WHERE id = ? AND user_id = ?`

	queryUpdateDepositRequest = `
		UPDATE deposit_requests
		SET is_accepted = ?, status = ?, hash = ?, updated_at = ?
		WHERE id = ? AND status = ?`

	queryDeleteDepositRequest = `
		DELETE FROM deposit_requests WHERE id = ?`

	// Account directory queries
	queryInsertAccount = `
		INSERT INTO accounts (` + accountColumns + `)
		VALUES (?, ?, ?, ?, ?, ?)`

	queryGetAccount = `
		SELECT ` + accountColumns + `
		FROM accounts
		WHERE account_number = ?`

	queryUpdateAccount = `
		UPDATE accounts SET full_name = ?, bank_name = ?, updated_at = ?
		WHERE account_number = ?`

	queryDeleteAccount = `
		DELETE FROM accounts WHERE id = ?`

	// Beneficiary queries
	queryInsertBeneficiary = `
		INSERT INTO beneficiaries (` + beneficiaryColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?)`

	queryGetBeneficiary = `
		SELECT ` + beneficiaryColumns + `
		FROM beneficiaries
		WHERE user_id = ? AND account_number = ?`

	queryListBeneficiaries = `
		SELECT ` + beneficiaryColumns + `
		FROM beneficiaries
		WHERE user_id = ?
		ORDER BY created_at DESC, id`

	queryDeleteBeneficiary = `
		DELETE FROM beneficiaries WHERE id = ? AND user_id = ?`

	// Notification queries
	queryInsertNotification = `
		INSERT INTO notifications (` + notificationColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO NOTHING`

	queryCountNotifications = `
		SELECT COUNT(*) FROM notifications WHERE user_id = ?`

	queryListNotifications = `
		SELECT ` + notificationColumns + `
		FROM notifications
		WHERE user_id = ?
		ORDER BY created_at DESC, id
		LIMIT ? OFFSET ?`

	queryMarkAllNotificationsRead = `
		UPDATE notifications SET is_read = ? WHERE user_id = ? AND is_read = ?`

	// Activity queries
	queryInsertActivity = `
		INSERT INTO activities (` + activityColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?)`

	queryCountActivities = `SELECT COUNT(*) FROM activities`

	queryListActivities = `
		SELECT ` + activityColumns + `
		FROM activities
		ORDER BY created_at DESC, id
		LIMIT ? OFFSET ?`

	// Outbox queries
	queryInsertOutbox = `
		INSERT INTO outbox (` + outboxColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

	queryFetchDueOutbox = `
		SELECT ` + outboxColumns + `
		FROM outbox
		WHERE status = ? AND next_attempt_at <= ?
		ORDER BY next_attempt_at, id
		LIMIT ?`

	queryMarkOutboxDelivered = `
		UPDATE outbox
		SET status = ?, attempts = attempts + 1, last_error = '', updated_at = ?
		WHERE id = ?`

	queryMarkOutboxAttempt = `
		UPDATE outbox
		SET status = ?, attempts = attempts + 1, next_attempt_at = ?, last_error = ?, updated_at = ?
		WHERE id = ?`
)
