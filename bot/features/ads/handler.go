package ads

import (
	"context"
	"fmt"

	"adledger/bot/common"

	"github.com/mymmrac/telego"
	log "github.com/sirupsen/logrus"
)

// HandleCommand records one completed ad view. The countdown runs in the client.
func (f *Feature) HandleCommand(ctx context.Context, s common.Sender, message *telego.Message, args []string) error {
	rules := f.ledger.Rules()

	outcome, err := f.ledger.RecordAdWatch(ctx, message.From.ID)
	if err != nil {
		log.WithError(err).WithField("userId", message.From.ID).Debug("Ad watch not credited")
		return common.Reply(ctx, s, message.Chat.ID, common.UserMessage(err, rules), nil)
	}

	text := fmt.Sprintf("✅ +%s\n\n%s\n\n%d ads left today.",
		common.FormatTON(outcome.Reward),
		common.FormatBalanceCard(outcome.User, outcome.DailyLimit),
		outcome.RemainingToday(),
	)
	return common.Reply(ctx, s, message.Chat.ID, text, common.MainKeyboard())
}
