package stats

import (
	"context"
	"testing"

	"adledger/bot/common"
	"adledger/models"
	"adledger/service"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestFeature_HandleCommand(t *testing.T) {
	ctx := context.Background()

	t.Run("admin sees stats", func(t *testing.T) {
		ledger := new(service.MockLedgerService)
		ledger.On("GetDatabaseStats", ctx).Return(&models.LedgerStats{
			TotalUsers:         3,
			TotalAdsWatched:    12,
			TotalEarned:        decimal.RequireFromString("0.075"),
			TotalWithdrawn:     decimal.RequireFromString("0.05"),
			TotalBalance:       decimal.RequireFromString("0.025"),
			TotalReferrals:     2,
			PendingWithdrawals: 1,
		}, nil)

		sender := &common.RecordingSender{}
		require.NoError(t, New(ledger, 99).HandleCommand(ctx, sender, common.TestMessage(99, "/stats"), nil))

		text := sender.LastText()
		assert.Contains(t, text, "Users: 3")
		assert.Contains(t, text, "Outstanding balance: 0.025 TON")
		assert.Contains(t, text, "Pending withdrawals: 1")
	})

	t.Run("non-admin is ignored", func(t *testing.T) {
		ledger := new(service.MockLedgerService)
		sender := &common.RecordingSender{}

		require.NoError(t, New(ledger, 99).HandleCommand(ctx, sender, common.TestMessage(7, "/stats"), nil))
		assert.Empty(t, sender.Messages)
		ledger.AssertNotCalled(t, "GetDatabaseStats", mock.Anything)
	})

	t.Run("no admin configured", func(t *testing.T) {
		ledger := new(service.MockLedgerService)
		sender := &common.RecordingSender{}

		require.NoError(t, New(ledger, 0).HandleCommand(ctx, sender, common.TestMessage(0, "/stats"), nil))
		assert.Empty(t, sender.Messages)
	})
}
