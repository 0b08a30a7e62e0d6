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

const (
	// User queries
	queryInsertUser = `
		INSERT OR IGNORE INTO users (id, display) VALUES (?, ?)`

	queryGetUsers = `
		SELECT id, display, balance, COALESCE(address, ''), COALESCE(address_index, 0), created_at
		FROM users
		ORDER BY created_at`

	queryGetUserById = `
		SELECT id, display, balance, COALESCE(address, ''), COALESCE(address_index, 0), created_at
		FROM users
		WHERE id = ?`

	queryGetUserByDisplay = `
		SELECT id, display, balance, COALESCE(address, ''), COALESCE(address_index, 0), created_at
		FROM users
		WHERE display = ?`

	queryGetUserByAddressIndex = `
		SELECT id, display, balance, COALESCE(address, ''), COALESCE(address_index, 0), created_at
		FROM users
		WHERE address_index = ?`

	queryAssignAddress = `
		UPDATE users
		SET address = ?, address_index = ?
		WHERE id = ? AND address IS NULL`

	// Balance queries. Debit is guarded so a concurrent debit can never
	// push the balance negative; zero rows affected means the guard held.
	queryDebitBalance = `
		UPDATE users
		SET balance = balance - ?
		WHERE id = ? AND balance >= ?`

	queryCreditBalance = `
		UPDATE users
		SET balance = balance + ?
		WHERE id = ?`

	queryCreditBalanceByAddressIndex = `
		UPDATE users
		SET balance = balance + ?
		WHERE address_index = ?`

	// Transaction queries
	queryInsertTransfer = `
		INSERT OR IGNORE INTO transactions (id, address_index, amount, tx_hash, unlocked, block_height)
		VALUES (?, ?, ?, ?, ?, ?)`

	queryGetUncreditedTransactions = `
		SELECT id, address_index, amount, tx_hash, unlocked, credited, block_height, created_at
		FROM transactions
		WHERE credited = 0
		ORDER BY block_height, created_at`

	queryMarkTransactionCredited = `
		UPDATE transactions
		SET unlocked = 1, credited = 1
		WHERE id = ? AND credited = 0`

	queryGetTransactionByHash = `
		SELECT id, address_index, amount, tx_hash, unlocked, credited, block_height, created_at
		FROM transactions
		WHERE tx_hash = ?`

	queryGetTransactionAmountIndex = `
		SELECT address_index, amount
		FROM transactions
		WHERE id = ?`

	queryGetRecentDeposits = `
		SELECT id, address_index, amount, tx_hash, unlocked, credited, block_height, created_at
		FROM transactions
		WHERE address_index = ?
		ORDER BY created_at DESC
		LIMIT ?`

	// Withdraw request queries
	queryInsertWithdrawRequest = `
		INSERT INTO withdraw_requests (id, address_index, amount)
		VALUES (?, ?, ?)`

	queryGetWithdrawRequestById = `
		SELECT id, address_index, amount, COALESCE(fee, 0), COALESCE(tx_hash, ''), success, refunded, created_at
		FROM withdraw_requests
		WHERE id = ?`

	queryMarkWithdrawRefunded = `
		UPDATE withdraw_requests
		SET refunded = 1
		WHERE id = ? AND success = 0 AND refunded = 0`

	queryMarkWithdrawSettled = `
		UPDATE withdraw_requests
		SET success = 1, fee = ?, tx_hash = ?
		WHERE id = ? AND success = 0 AND refunded = 0`

	queryGetUnresolvedWithdrawRequests = `
		SELECT id, address_index, amount, COALESCE(fee, 0), COALESCE(tx_hash, ''), success, refunded, created_at
		FROM withdraw_requests
		WHERE success = 0 AND refunded = 0 AND created_at < ?
		ORDER BY created_at`

	queryGetRecentWithdrawals = `
		SELECT id, address_index, amount, COALESCE(fee, 0), COALESCE(tx_hash, ''), success, refunded, created_at
		FROM withdraw_requests
		WHERE address_index = ?
		ORDER BY created_at DESC
		LIMIT ?`
)
