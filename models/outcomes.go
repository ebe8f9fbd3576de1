package models

import "github.com/shopspring/decimal"

// ReferralOutcome describes a successful referral attach
type ReferralOutcome struct {
	User          *User           `json:"user"`
	Referrer      *User           `json:"referrer"`
	ReferrerBonus decimal.Decimal `json:"referrerBonus"`
	ReferredBonus decimal.Decimal `json:"referredBonus"`
	// BonusPaid is false when this referrer/referred pair was already paid once before
	BonusPaid bool `json:"bonusPaid"`
}

// RewardOutcome describes a credited ad view
type RewardOutcome struct {
	User            *User           `json:"user"`
	Reward          decimal.Decimal `json:"reward"`
	DailyAdsWatched int             `json:"dailyAdsWatched"`
	DailyLimit      int             `json:"dailyLimit"`
	ReferrerID      *int64          `json:"referrerId,omitempty"`
	Commission      decimal.Decimal `json:"commission"`
}

// RemainingToday returns how many more ads can be rewarded in the current window
func (o *RewardOutcome) RemainingToday() int {
	if o.DailyAdsWatched >= o.DailyLimit {
		return 0
	}
	return o.DailyLimit - o.DailyAdsWatched
}
