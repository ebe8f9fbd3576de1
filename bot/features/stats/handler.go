package stats

import (
	"context"
	"fmt"

	"adledger/bot/common"

	"github.com/mymmrac/telego"
	log "github.com/sirupsen/logrus"
)

func (f *Feature) HandleCommand(ctx context.Context, s common.Sender, message *telego.Message, args []string) error {
	if !f.isAdmin(message.From.ID, message.Chat.ID) {
		return nil
	}

	stats, err := f.ledger.GetDatabaseStats(ctx)
	if err != nil {
		log.WithError(err).Error("Error loading ledger stats")
		return common.Reply(ctx, s, message.Chat.ID, common.UserMessage(err, f.ledger.Rules()), nil)
	}

	text := fmt.Sprintf("📊 Ledger stats\n\n"+
		"👥 Users: %d\n"+
		"🤝 Referred users: %d\n"+
		"📺 Ads watched: %d\n"+
		"📈 Total earned: %s\n"+
		"💸 Total withdrawn: %s\n"+
		"💰 Outstanding balance: %s\n"+
		"⏳ Pending withdrawals: %d",
		stats.TotalUsers,
		stats.TotalReferrals,
		stats.TotalAdsWatched,
		common.FormatTON(stats.TotalEarned),
		common.FormatTON(stats.TotalWithdrawn),
		common.FormatTON(stats.TotalBalance),
		stats.PendingWithdrawals,
	)
	return common.Reply(ctx, s, message.Chat.ID, text, nil)
}
