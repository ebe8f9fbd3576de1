package wallet

import (
	"adledger/service"
)

// Feature manages the payout address and withdrawal requests
type Feature struct {
	ledger service.LedgerService
}

func New(ledger service.LedgerService) *Feature {
	return &Feature{
		ledger: ledger,
	}
}
