package referral

import (
	"fmt"

	"adledger/service"
)

// Feature shares the referral link and network stats
type Feature struct {
	ledger      service.LedgerService
	botUsername string
}

func New(ledger service.LedgerService, botUsername string) *Feature {
	return &Feature{
		ledger:      ledger,
		botUsername: botUsername,
	}
}

// Link returns the deep link that starts the bot with code
func (f *Feature) Link(code string) string {
	return fmt.Sprintf("https://t.me/%s?start=%s", f.botUsername, code)
}
