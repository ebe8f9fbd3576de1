package bot

import (
	"context"
	"fmt"
	"sync"

	"adledger/bot/common"
	"adledger/bot/features/ads"
	"adledger/bot/features/balance"
	"adledger/bot/features/onboarding"
	"adledger/bot/features/referral"
	"adledger/bot/features/stats"
	"adledger/bot/features/wallet"
	"adledger/service"

	"github.com/mymmrac/telego"
	th "github.com/mymmrac/telego/telegohandler"
	tu "github.com/mymmrac/telego/telegoutil"
	log "github.com/sirupsen/logrus"
)

// Config holds bot configuration
type Config struct {
	Token       string
	AdminChatID int64
}

type Bot struct {
	config  Config
	api     *telego.Bot
	ledger  service.LedgerService
	handler *th.BotHandler
	cancel  context.CancelFunc
	mu      sync.Mutex
}

// commandFunc is the signature every feature command implements
type commandFunc func(ctx context.Context, s common.Sender, message *telego.Message, args []string) error

func New(config Config, ledger service.LedgerService) (*Bot, error) {
	api, err := telego.NewBot(config.Token)
	if err != nil {
		return nil, fmt.Errorf("error creating telegram bot: %w", err)
	}

	return &Bot{
		config: config,
		api:    api,
		ledger: ledger,
	}, nil
}

// AdminNotifier returns the withdrawal announcer for the admin chat, or nil when none is configured
func (b *Bot) AdminNotifier() *AdminNotifier {
	if b.config.AdminChatID == 0 {
		return nil
	}
	return NewAdminNotifier(b.api, b.config.AdminChatID)
}

// Start registers the command handlers and begins long polling
func (b *Bot) Start(ctx context.Context) error {
	me, err := b.api.GetMe(ctx)
	if err != nil {
		return fmt.Errorf("error fetching bot identity: %w", err)
	}

	if err := b.registerCommands(ctx); err != nil {
		log.WithError(err).Warn("Failed to register bot commands")
	}

	pollCtx, cancel := context.WithCancel(ctx)
	updates, err := b.api.UpdatesViaLongPolling(pollCtx, nil)
	if err != nil {
		cancel()
		return fmt.Errorf("error starting long polling: %w", err)
	}

	handler, err := th.NewBotHandler(b.api, updates)
	if err != nil {
		cancel()
		return fmt.Errorf("error creating update handler: %w", err)
	}

	onboardingFeature := onboarding.New(b.ledger)
	balanceFeature := balance.New(b.ledger)
	adsFeature := ads.New(b.ledger)
	walletFeature := wallet.New(b.ledger)
	referralFeature := referral.New(b.ledger, me.Username)
	statsFeature := stats.New(b.ledger, b.config.AdminChatID)

	handler.Handle(b.command("start", onboardingFeature.HandleCommand), th.CommandEqual("start"))
	handler.Handle(b.command("balance", balanceFeature.HandleCommand), th.CommandEqual("balance"))
	handler.Handle(b.command("watch", adsFeature.HandleCommand), th.CommandEqual("watch"))
	handler.Handle(b.command("wallet", walletFeature.HandleWallet), th.CommandEqual("wallet"))
	handler.Handle(b.command("withdraw", walletFeature.HandleWithdraw), th.CommandEqual("withdraw"))
	handler.Handle(b.command("referral", referralFeature.HandleCommand), th.CommandEqual("referral"))
	handler.Handle(b.command("stats", statsFeature.HandleCommand), th.CommandEqual("stats"))

	b.mu.Lock()
	b.handler = handler
	b.cancel = cancel
	b.mu.Unlock()

	go func() {
		if err := handler.Start(); err != nil {
			log.WithError(err).Error("Telegram update handler stopped")
		}
	}()

	log.WithField("username", me.Username).Info("Telegram bot started")
	return nil
}

// Stop stops the update handler and long polling
func (b *Bot) Stop(ctx context.Context) error {
	b.mu.Lock()
	handler, cancel := b.handler, b.cancel
	b.handler, b.cancel = nil, nil
	b.mu.Unlock()

	if handler == nil {
		return nil
	}

	err := handler.StopWithContext(ctx)
	cancel()
	return err
}

func (b *Bot) command(name string, fn commandFunc) th.Handler {
	return func(ctx *th.Context, update telego.Update) error {
		message := update.Message
		if message == nil || message.From == nil {
			return nil
		}

		_, _, args := tu.ParseCommand(message.Text)
		if err := fn(ctx.Context(), b.api, message, args); err != nil {
			log.WithError(err).WithFields(log.Fields{
				"command": name,
				"userId":  message.From.ID,
			}).Error("Error handling command")
		}
		return nil
	}
}
