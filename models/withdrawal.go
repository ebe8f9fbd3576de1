package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// WithdrawalStatus is the lifecycle state of a withdrawal request
type WithdrawalStatus string

const (
	WithdrawalStatusPending  WithdrawalStatus = "pending"
	WithdrawalStatusNotified WithdrawalStatus = "notified"
)

// WithdrawalRequest records a debit accepted by the ledger and awaiting payout
type WithdrawalRequest struct {
	ID             uuid.UUID        `db:"id" json:"id"`
	UserID         int64            `db:"user_id" json:"userId"`
	Amount         decimal.Decimal  `db:"amount" json:"amount"`
	WalletAddress  string           `db:"wallet_address" json:"walletAddress"`
	Status         WithdrawalStatus `db:"status" json:"status"`
	RequestedAt    time.Time        `db:"requested_at" json:"requestedAt"`
	NotifiedAt     *time.Time       `db:"notified_at" json:"notifiedAt,omitempty"`
	NotifyAttempts int              `db:"notify_attempts" json:"notifyAttempts"`
	LastError      *string          `db:"last_error" json:"lastError,omitempty"`
}

// IsPending reports whether the downstream notification is still outstanding
func (w *WithdrawalRequest) IsPending() bool {
	return w.Status == WithdrawalStatusPending
}
