package balance

import (
	"context"
	"time"

	"adledger/bot/common"
	"adledger/models"

	"github.com/mymmrac/telego"
	log "github.com/sirupsen/logrus"
)

func (f *Feature) HandleCommand(ctx context.Context, s common.Sender, message *telego.Message, args []string) error {
	rules := f.ledger.Rules()

	user, err := f.ledger.GetOrCreateUser(ctx, message.From.ID, models.Profile{
		DisplayName: message.From.FirstName,
		Username:    message.From.Username,
	})
	if err != nil {
		log.WithError(err).WithField("userId", message.From.ID).Error("Error getting user balance")
		return common.Reply(ctx, s, message.Chat.ID, common.UserMessage(err, rules), nil)
	}

	// The daily counter shown is the stored window, which may belong to a past day
	view := *user
	view.DailyAdsWatched = user.AdsWatchedOn(time.Now().UTC())

	return common.Reply(ctx, s, message.Chat.ID, common.FormatBalanceCard(&view, rules.DailyAdLimit), common.MainKeyboard())
}
