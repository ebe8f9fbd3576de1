package common

import (
	"fmt"
	"strings"
	"time"

	"adledger/config"
	"adledger/models"
	"adledger/service"

	"github.com/shopspring/decimal"
)

// FormatTON formats an amount with at most eight decimals
func FormatTON(amount decimal.Decimal) string {
	return amount.Truncate(models.MoneyScale).String() + " TON"
}

// FormatBalanceCard renders the balance summary shown after most commands
func FormatBalanceCard(user *models.User, dailyLimit int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "💰 Balance: %s\n", FormatTON(user.Balance))
	fmt.Fprintf(&b, "📈 Total earned: %s\n", FormatTON(user.TotalEarned))
	if user.TotalWithdrawn.IsPositive() {
		fmt.Fprintf(&b, "💸 Withdrawn: %s\n", FormatTON(user.TotalWithdrawn))
	}
	fmt.Fprintf(&b, "📺 Ads today: %d/%d", user.DailyAdsWatched, dailyLimit)
	return b.String()
}

// FormatWait renders a duration as hours and minutes, rounded up to the minute
func FormatWait(d time.Duration) string {
	minutes := int((d + time.Minute - 1) / time.Minute)
	if minutes < 1 {
		minutes = 1
	}
	if minutes < 60 {
		return fmt.Sprintf("%dm", minutes)
	}
	return fmt.Sprintf("%dh %dm", minutes/60, minutes%60)
}

// UserMessage turns a ledger error into a message safe to show to the user
func UserMessage(err error, rules config.LedgerRules) string {
	switch service.ErrorKind(err) {
	case "not_found":
		return "❌ Account not found. Send /start first."
	case "self_referral":
		return "❌ You cannot use your own referral code."
	case "already_referred":
		return "ℹ️ You already joined through a referral link."
	case "daily_limit_exceeded":
		wait := time.Until(service.NextWindowReset(time.Now().UTC()))
		return fmt.Sprintf("⏳ You reached today's limit of %d ads. New ads unlock in %s.", rules.DailyAdLimit, FormatWait(wait))
	case "invalid_address":
		return "❌ That wallet address is not valid. It must start with EQ or UQ followed by 48 characters."
	case "below_minimum":
		return fmt.Sprintf("❌ The minimum withdrawal is %s.", FormatTON(rules.MinimumWithdrawal))
	case "insufficient_balance":
		return "❌ Insufficient balance."
	case "invalid_amount":
		return "❌ Amounts can have at most 8 decimal places."
	case "unknown_task":
		return "❌ That task does not exist."
	default:
		return "⚠️ Something went wrong on our side. Please try again in a moment."
	}
}
