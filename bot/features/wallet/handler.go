package wallet

import (
	"context"
	"fmt"

	"adledger/bot/common"
	"adledger/service"

	"github.com/mymmrac/telego"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

// HandleWallet shows or updates the payout address
func (f *Feature) HandleWallet(ctx context.Context, s common.Sender, message *telego.Message, args []string) error {
	rules := f.ledger.Rules()
	chatID := message.Chat.ID

	if len(args) == 0 {
		user, err := f.ledger.GetUser(ctx, message.From.ID)
		if err != nil {
			return common.Reply(ctx, s, chatID, common.UserMessage(err, rules), nil)
		}
		if user.WalletAddress == nil {
			return common.Reply(ctx, s, chatID, "👛 No wallet set. Use /wallet <address> to add your TON wallet.", nil)
		}
		return common.Reply(ctx, s, chatID, fmt.Sprintf("👛 Your wallet: %s", *user.WalletAddress), nil)
	}

	user, err := f.ledger.UpdateWalletAddress(ctx, message.From.ID, args[0])
	if err != nil {
		log.WithError(err).WithField("userId", message.From.ID).Debug("Wallet address rejected")
		return common.Reply(ctx, s, chatID, common.UserMessage(err, rules), nil)
	}

	return common.Reply(ctx, s, chatID, fmt.Sprintf("✅ Wallet saved: %s", *user.WalletAddress), nil)
}

// HandleWithdraw requests a payout to the stored wallet address
func (f *Feature) HandleWithdraw(ctx context.Context, s common.Sender, message *telego.Message, args []string) error {
	rules := f.ledger.Rules()
	chatID := message.Chat.ID

	if len(args) == 0 {
		return common.Reply(ctx, s, chatID, fmt.Sprintf("Usage: /withdraw <amount>\nMinimum: %s", common.FormatTON(rules.MinimumWithdrawal)), nil)
	}

	amount, err := decimal.NewFromString(args[0])
	if err != nil {
		return common.Reply(ctx, s, chatID, "❌ Amount must be a number, for example /withdraw 0.05", nil)
	}

	user, err := f.ledger.GetUser(ctx, message.From.ID)
	if err != nil {
		return common.Reply(ctx, s, chatID, common.UserMessage(err, rules), nil)
	}
	if user.WalletAddress == nil {
		return common.Reply(ctx, s, chatID, "👛 Set your wallet first with /wallet <address>.", nil)
	}

	request, err := f.ledger.RequestWithdrawal(ctx, message.From.ID, amount, *user.WalletAddress)
	if err != nil {
		if service.IsStorageError(err) {
			log.WithError(err).WithField("userId", message.From.ID).Error("Withdrawal request failed")
		}
		return common.Reply(ctx, s, chatID, common.UserMessage(err, rules), nil)
	}

	text := fmt.Sprintf("✅ Withdrawal of %s to %s requested.\nIt will be processed shortly.",
		common.FormatTON(request.Amount), request.WalletAddress)
	return common.Reply(ctx, s, chatID, text, common.MainKeyboard())
}
