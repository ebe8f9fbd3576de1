package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// MoneyScale is the number of decimal places the ledger stores for every amount
const MoneyScale int32 = 8

// User represents a platform user holding a reward balance
type User struct {
	ID              int64           `db:"id" json:"id"`
	Username        string          `db:"username" json:"username"`
	DisplayName     string          `db:"display_name" json:"displayName"`
	Balance         decimal.Decimal `db:"balance" json:"balance"`
	TotalEarned     decimal.Decimal `db:"total_earned" json:"totalEarned"`
	TotalWithdrawn  decimal.Decimal `db:"total_withdrawn" json:"totalWithdrawn"`
	ReferralCode    string          `db:"referral_code" json:"referralCode"`
	ReferredBy      *int64          `db:"referred_by" json:"referredBy,omitempty"`
	ReferralCount   int             `db:"referral_count" json:"referralCount"`
	DailyAdsWatched int             `db:"daily_ads_watched" json:"dailyAdsWatched"`
	DailyWindowDate *time.Time      `db:"daily_window_date" json:"dailyWindowDate,omitempty"`
	TotalAdsWatched int64           `db:"total_ads_watched" json:"totalAdsWatched"`
	WalletAddress   *string         `db:"wallet_address" json:"walletAddress,omitempty"`
	CreatedAt       time.Time       `db:"created_at" json:"createdAt"`
	UpdatedAt       time.Time       `db:"updated_at" json:"updatedAt"`
	LastActivity    time.Time       `db:"last_activity" json:"lastActivity"`
}

// Profile is the identity data supplied by the platform on first contact
type Profile struct {
	DisplayName string
	Username    string
}

// AdsWatchedOn returns the number of ads counted against the window for the given day.
// A stored window from a different day counts as zero.
func (u *User) AdsWatchedOn(day time.Time) int {
	if u.DailyWindowDate == nil || !SameDay(*u.DailyWindowDate, day) {
		return 0
	}
	return u.DailyAdsWatched
}

// SameDay reports whether two instants fall on the same UTC calendar date
func SameDay(a, b time.Time) bool {
	ay, am, ad := a.UTC().Date()
	by, bm, bd := b.UTC().Date()
	return ay == by && am == bm && ad == bd
}
