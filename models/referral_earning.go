package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// ReferralEarningKind distinguishes the one-time attach bonus from per-ad commission
type ReferralEarningKind string

const (
	ReferralEarningSignupBonus ReferralEarningKind = "signup_bonus"
	ReferralEarningCommission  ReferralEarningKind = "commission"
)

// ReferralEarning is an append-only record of a credit paid to a referrer
type ReferralEarning struct {
	ID           int64               `db:"id" json:"id"`
	ReferrerID   int64               `db:"referrer_id" json:"referrerId"`
	SourceUserID int64               `db:"source_user_id" json:"sourceUserId"`
	Amount       decimal.Decimal     `db:"amount" json:"amount"`
	Kind         ReferralEarningKind `db:"kind" json:"kind"`
	CreatedAt    time.Time           `db:"created_at" json:"createdAt"`
}

// ReferralStats summarises a referrer's network and earnings
type ReferralStats struct {
	ReferralCode     string          `json:"referralCode"`
	ReferralCount    int             `json:"referralCount"`
	TotalCommission  decimal.Decimal `json:"totalCommission"`
	TotalSignupBonus decimal.Decimal `json:"totalSignupBonus"`
	Referrals        []*User         `json:"referrals"`
}
