package onboarding

import (
	"context"
	"fmt"
	"strings"

	"adledger/bot/common"
	"adledger/models"

	"github.com/mymmrac/telego"
	log "github.com/sirupsen/logrus"
)

// HandleCommand creates the account on first contact and applies a referral code
func (f *Feature) HandleCommand(ctx context.Context, s common.Sender, message *telego.Message, args []string) error {
	from := message.From
	rules := f.ledger.Rules()

	user, err := f.ledger.GetOrCreateUser(ctx, from.ID, models.Profile{
		DisplayName: strings.TrimSpace(from.FirstName + " " + from.LastName),
		Username:    from.Username,
	})
	if err != nil {
		log.WithError(err).WithField("userId", from.ID).Error("Failed to get or create user")
		return common.Reply(ctx, s, message.Chat.ID, common.UserMessage(err, rules), nil)
	}

	var notes []string
	if len(args) > 0 && args[0] != "" && user.ReferredBy == nil {
		outcome, err := f.ledger.AttachReferral(ctx, from.ID, args[0])
		switch {
		case err != nil:
			log.WithError(err).WithFields(log.Fields{
				"userId": from.ID,
				"code":   args[0],
			}).Info("Referral code not applied")
			notes = append(notes, common.UserMessage(err, rules))
		case outcome.BonusPaid && outcome.ReferredBonus.IsPositive():
			user = outcome.User
			notes = append(notes, fmt.Sprintf("🎁 Referral bonus received: %s", common.FormatTON(outcome.ReferredBonus)))
		default:
			user = outcome.User
			notes = append(notes, "🤝 You joined through a referral link.")
		}
	}

	name := from.FirstName
	if name == "" {
		name = from.Username
	}

	var b strings.Builder
	fmt.Fprintf(&b, "👋 Welcome, %s!\n\n", name)
	fmt.Fprintf(&b, "Watch ads to earn %s each, up to %d per day.\n", common.FormatTON(rules.RewardPerAd), rules.DailyAdLimit)
	fmt.Fprintf(&b, "Invite friends and earn %s%% of everything they watch.\n\n", rules.CommissionRate.Shift(2).String())
	for _, note := range notes {
		b.WriteString(note)
		b.WriteString("\n")
	}
	if len(notes) > 0 {
		b.WriteString("\n")
	}
	b.WriteString(common.FormatBalanceCard(user, rules.DailyAdLimit))

	return common.Reply(ctx, s, message.Chat.ID, b.String(), common.MainKeyboard())
}
