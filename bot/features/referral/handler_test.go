package referral

import (
	"bytes"
	"context"
	"image/png"
	"io"
	"testing"

	"adledger/bot/common"
	"adledger/config"
	"adledger/models"
	"adledger/service"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFeature_Link(t *testing.T) {
	f := New(nil, "adledger_bot")
	assert.Equal(t, "https://t.me/adledger_bot?start=AbCd1234", f.Link("AbCd1234"))
}

func TestFeature_HandleCommand(t *testing.T) {
	ctx := context.Background()

	t.Run("sends QR code with stats", func(t *testing.T) {
		ledger := new(service.MockLedgerService)
		ledger.On("Rules").Return(config.DefaultLedgerRules())
		ledger.On("GetReferralStats", ctx, int64(7)).Return(&models.ReferralStats{
			ReferralCode:     "AbCd1234",
			ReferralCount:    2,
			TotalCommission:  decimal.RequireFromString("0.0001"),
			TotalSignupBonus: decimal.RequireFromString("0.02"),
			Referrals:        []*models.User{{ID: 8}, {ID: 9}},
		}, nil)

		sender := &common.RecordingSender{}
		require.NoError(t, New(ledger, "adledger_bot").HandleCommand(ctx, sender, common.TestMessage(7, "/referral"), nil))

		require.Len(t, sender.Photos, 1)
		photo := sender.Photos[0]
		assert.Contains(t, photo.Caption, "Invited: 2")
		assert.Contains(t, photo.Caption, "Commission earned: 0.0001 TON")
		assert.Contains(t, photo.Caption, "https://t.me/adledger_bot?start=AbCd1234")

		require.NotNil(t, photo.Photo.File)
		data, err := io.ReadAll(photo.Photo.File)
		require.NoError(t, err)
		_, err = png.Decode(bytes.NewReader(data))
		assert.NoError(t, err, "attachment is a PNG image")
	})

	t.Run("unknown user", func(t *testing.T) {
		ledger := new(service.MockLedgerService)
		ledger.On("Rules").Return(config.DefaultLedgerRules())
		ledger.On("GetReferralStats", ctx, int64(7)).Return(nil, service.ErrNotFound)

		sender := &common.RecordingSender{}
		require.NoError(t, New(ledger, "adledger_bot").HandleCommand(ctx, sender, common.TestMessage(7, "/referral"), nil))
		assert.Empty(t, sender.Photos)
		assert.Contains(t, sender.LastText(), "/start")
	})
}
