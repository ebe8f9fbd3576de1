package referral

import (
	"context"
	"fmt"
	"strings"

	"adledger/bot/common"

	"github.com/mymmrac/telego"
	log "github.com/sirupsen/logrus"
	"github.com/skip2/go-qrcode"
)

const qrSize = 256

// HandleCommand replies with the referral link as a QR code and the network summary
func (f *Feature) HandleCommand(ctx context.Context, s common.Sender, message *telego.Message, args []string) error {
	rules := f.ledger.Rules()
	chatID := message.Chat.ID

	stats, err := f.ledger.GetReferralStats(ctx, message.From.ID)
	if err != nil {
		return common.Reply(ctx, s, chatID, common.UserMessage(err, rules), nil)
	}

	link := f.Link(stats.ReferralCode)

	var b strings.Builder
	b.WriteString("🤝 Referral program\n\n")
	fmt.Fprintf(&b, "Earn %s%% of every ad your friends watch", rules.CommissionRate.Shift(2).String())
	if rules.ReferrerBonus.IsPositive() {
		fmt.Fprintf(&b, " plus %s for each friend who joins", common.FormatTON(rules.ReferrerBonus))
	}
	b.WriteString(".\n\n")
	fmt.Fprintf(&b, "👥 Invited: %d\n", stats.ReferralCount)
	fmt.Fprintf(&b, "💰 Commission earned: %s\n", common.FormatTON(stats.TotalCommission))
	if stats.TotalSignupBonus.IsPositive() {
		fmt.Fprintf(&b, "🎁 Signup bonuses: %s\n", common.FormatTON(stats.TotalSignupBonus))
	}
	fmt.Fprintf(&b, "\n🔗 %s", link)

	png, err := qrcode.Encode(link, qrcode.Medium, qrSize)
	if err != nil {
		log.WithError(err).Warn("Failed to render referral QR code, sending text only")
		return common.Reply(ctx, s, chatID, b.String(), nil)
	}

	return common.ReplyWithPhoto(ctx, s, chatID, png, "referral.png", b.String())
}
