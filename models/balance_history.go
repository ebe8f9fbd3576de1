package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionType represents the type of balance change
type TransactionType string

const (
	TransactionTypeWelcomeBonus          TransactionType = "welcome_bonus"
	TransactionTypeAdReward              TransactionType = "ad_reward"
	TransactionTypeReferralCommission    TransactionType = "referral_commission"
	TransactionTypeReferralBonusReferrer TransactionType = "referral_bonus_referrer"
	TransactionTypeReferralBonusReferred TransactionType = "referral_bonus_referred"
	TransactionTypeTaskBonus             TransactionType = "task_bonus"
	TransactionTypeWithdrawal            TransactionType = "withdrawal"
)

// IsCredit reports whether the transaction type adds to total earned
func (t TransactionType) IsCredit() bool {
	return t != TransactionTypeWithdrawal
}

// RelatedType represents what type of entity the related_id refers to
type RelatedType string

const (
	RelatedTypeUser       RelatedType = "user"
	RelatedTypeWithdrawal RelatedType = "withdrawal"
	RelatedTypeTask       RelatedType = "task"
)

// BalanceHistory represents a historical balance change
type BalanceHistory struct {
	ID                  int64           `db:"id" json:"id"`
	UserID              int64           `db:"user_id" json:"userId"`
	BalanceBefore       decimal.Decimal `db:"balance_before" json:"balanceBefore"`
	BalanceAfter        decimal.Decimal `db:"balance_after" json:"balanceAfter"`
	ChangeAmount        decimal.Decimal `db:"change_amount" json:"changeAmount"`
	TransactionType     TransactionType `db:"transaction_type" json:"transactionType"`
	TransactionMetadata map[string]any  `db:"transaction_metadata" json:"metadata,omitempty"`
	RelatedID           *string         `db:"related_id" json:"relatedId,omitempty"`
	RelatedType         *RelatedType    `db:"related_type" json:"relatedType,omitempty"`
	CreatedAt           time.Time       `db:"created_at" json:"createdAt"`
}
