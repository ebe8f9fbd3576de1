package bot

import (
	"context"
	"errors"
	"testing"
	"time"

	"adledger/bot/common"
	"adledger/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAdminNotifier_NotifyWithdrawal(t *testing.T) {
	request := &models.WithdrawalRequest{
		ID:            uuid.New(),
		UserID:        7,
		Amount:        decimal.RequireFromString("0.05"),
		WalletAddress: "UQ" + "AbCdEfGhIjKlMnOpQrStUvWxYz0123456789_-AbCdEfGhIj",
		RequestedAt:   time.Date(2025, 3, 14, 15, 0, 0, 0, time.UTC),
	}

	t.Run("posts to admin chat", func(t *testing.T) {
		sender := &common.RecordingSender{}
		notifier := NewAdminNotifier(sender, -100123)

		require.NoError(t, notifier.NotifyWithdrawal(context.Background(), request))
		require.Len(t, sender.Messages, 1)
		assert.Equal(t, int64(-100123), sender.Messages[0].ChatID.ID)
		assert.Contains(t, sender.LastText(), "Amount: 0.05 TON")
		assert.Contains(t, sender.LastText(), request.ID.String())
		assert.Equal(t, "telegram", notifier.Name())
	})

	t.Run("send failure", func(t *testing.T) {
		sender := &common.RecordingSender{Err: errors.New("chat not found")}
		err := NewAdminNotifier(sender, -100123).NotifyWithdrawal(context.Background(), request)
		assert.ErrorContains(t, err, "chat not found")
	})
}
