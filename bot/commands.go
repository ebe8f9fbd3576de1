package bot

import (
	"context"

	"github.com/mymmrac/telego"
)

// registerCommands publishes the command list shown in Telegram clients
func (b *Bot) registerCommands(ctx context.Context) error {
	return b.api.SetMyCommands(ctx, &telego.SetMyCommandsParams{
		Commands: []telego.BotCommand{
			{Command: "start", Description: "Open your account"},
			{Command: "watch", Description: "Watch an ad and earn TON"},
			{Command: "balance", Description: "Show your balance"},
			{Command: "referral", Description: "Get your referral link"},
			{Command: "wallet", Description: "Show or set your TON wallet"},
			{Command: "withdraw", Description: "Withdraw to your wallet"},
		},
	})
}
