package infrastructure

import (
	"context"
	"fmt"
	"time"

	"adledger/models"

	"github.com/bwmarrin/discordgo"
)

const withdrawalEmbedColor = 0xF1C40F

// EmbedSender is the part of a discordgo session used to post to a channel
type EmbedSender interface {
	ChannelMessageSendEmbed(channelID string, embed *discordgo.MessageEmbed, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// DiscordNotifier announces withdrawal requests in an admin channel
type DiscordNotifier struct {
	session   EmbedSender
	channelID string
}

// NewDiscordSession creates a REST-only Discord session for a bot token
func NewDiscordSession(token string) (*discordgo.Session, error) {
	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("failed to create discord session: %w", err)
	}
	return session, nil
}

// NewDiscordNotifier creates a notifier posting to channelID
func NewDiscordNotifier(session EmbedSender, channelID string) *DiscordNotifier {
	return &DiscordNotifier{session: session, channelID: channelID}
}

// Name identifies the notification channel
func (n *DiscordNotifier) Name() string {
	return "discord"
}

// NotifyWithdrawal posts an embed describing the request
func (n *DiscordNotifier) NotifyWithdrawal(ctx context.Context, request *models.WithdrawalRequest) error {
	embed := &discordgo.MessageEmbed{
		Title: "💸 Withdrawal request",
		Color: withdrawalEmbedColor,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "User", Value: fmt.Sprintf("`%d`", request.UserID), Inline: true},
			{Name: "Amount", Value: request.Amount.String() + " TON", Inline: true},
			{Name: "Wallet", Value: fmt.Sprintf("`%s`", request.WalletAddress)},
			{Name: "Request", Value: request.ID.String()},
		},
		Timestamp: request.RequestedAt.UTC().Format(time.RFC3339),
	}

	if _, err := n.session.ChannelMessageSendEmbed(n.channelID, embed, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("failed to post withdrawal to discord channel %s: %w", n.channelID, err)
	}
	return nil
}
