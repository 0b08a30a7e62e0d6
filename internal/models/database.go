package models

import "time"

// User represents a custodial account holder. Balance is denominated in
// piconero. AddressIndex is 0 until a deposit subaddress has been
// assigned; index 0 itself is the wallet's primary address and is never
// handed to a user.
type User struct {
	Id           string    `db:"id"`
	Display      string    `db:"display"`
	Balance      int64     `db:"balance"`
	Address      string    `db:"address"`
	AddressIndex int64     `db:"address_index"`
	CreatedAt    time.Time `db:"created_at"`
}

// HasAddress reports whether a deposit subaddress has been assigned.
func (u *User) HasAddress() bool {
	return u.AddressIndex > 0 && u.Address != ""
}

// Transaction is an incoming transfer observed on the wallet. A row is
// written the first time the transfer is seen; Credited flips exactly
// once, when the transfer is seen unlocked and the owner's balance is
// incremented.
type Transaction struct {
	Id           string    `db:"id"`
	AddressIndex int64     `db:"address_index"`
	Amount       int64     `db:"amount"`
	TxHash       string    `db:"tx_hash"`
	Unlocked     bool      `db:"unlocked"`
	Credited     bool      `db:"credited"`
	BlockHeight  int64     `db:"block_height"`
	CreatedAt    time.Time `db:"created_at"`
}

// WithdrawRequest records a withdrawal attempt. The user's balance is
// debited when the row is created. Exactly one of Success or Refunded
// ends up set; a row with neither is unresolved and needs attention.
// Fee and TxHash stay zero until the request settles.
type WithdrawRequest struct {
	Id           string    `db:"id"`
	AddressIndex int64     `db:"address_index"`
	Amount       int64     `db:"amount"`
	Fee          int64     `db:"fee"`
	TxHash       string    `db:"tx_hash"`
	Success      bool      `db:"success"`
	Refunded     bool      `db:"refunded"`
	CreatedAt    time.Time `db:"created_at"`
}

// Resolved reports whether the request reached a terminal state.
func (w *WithdrawRequest) Resolved() bool {
	return w.Success || w.Refunded
}
