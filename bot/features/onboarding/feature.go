package onboarding

import (
	"adledger/service"
)

// Feature handles /start, optionally carrying a referral code
type Feature struct {
	ledger service.LedgerService
}

func New(ledger service.LedgerService) *Feature {
	return &Feature{
		ledger: ledger,
	}
}
