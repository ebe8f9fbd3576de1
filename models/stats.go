package models

import "github.com/shopspring/decimal"

// LedgerStats represents aggregated ledger statistics
type LedgerStats struct {
	TotalUsers         int64           `json:"totalUsers"`
	TotalAdsWatched    int64           `json:"totalAdsWatched"`
	TotalEarned        decimal.Decimal `json:"totalEarned"`
	TotalWithdrawn     decimal.Decimal `json:"totalWithdrawn"`
	TotalBalance       decimal.Decimal `json:"totalBalance"`
	TotalReferrals     int64           `json:"totalReferrals"`
	PendingWithdrawals int64           `json:"pendingWithdrawals"`
}
