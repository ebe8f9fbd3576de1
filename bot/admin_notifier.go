package bot

import (
	"context"
	"fmt"
	"time"

	"adledger/bot/common"
	"adledger/models"

	"github.com/mymmrac/telego"
	tu "github.com/mymmrac/telego/telegoutil"
)

// MessageSender sends a plain Telegram message
type MessageSender interface {
	SendMessage(ctx context.Context, params *telego.SendMessageParams) (*telego.Message, error)
}

// AdminNotifier announces withdrawal requests in the admin chat
type AdminNotifier struct {
	sender MessageSender
	chatID int64
}

func NewAdminNotifier(sender MessageSender, chatID int64) *AdminNotifier {
	return &AdminNotifier{sender: sender, chatID: chatID}
}

// Name identifies the notification channel
func (n *AdminNotifier) Name() string {
	return "telegram"
}

// NotifyWithdrawal posts the request details to the admin chat
func (n *AdminNotifier) NotifyWithdrawal(ctx context.Context, request *models.WithdrawalRequest) error {
	text := fmt.Sprintf("💸 Withdrawal request\n\n"+
		"User: %d\n"+
		"Amount: %s\n"+
		"Wallet: %s\n"+
		"Requested: %s\n"+
		"ID: %s",
		request.UserID,
		common.FormatTON(request.Amount),
		request.WalletAddress,
		request.RequestedAt.UTC().Format(time.RFC3339),
		request.ID,
	)

	if _, err := n.sender.SendMessage(ctx, tu.Message(tu.ID(n.chatID), text)); err != nil {
		return fmt.Errorf("failed to send withdrawal notice to admin chat %d: %w", n.chatID, err)
	}
	return nil
}
