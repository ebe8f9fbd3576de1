package ads

import (
	"adledger/service"
)

// Feature credits rewarded ad views
type Feature struct {
	ledger service.LedgerService
}

func New(ledger service.LedgerService) *Feature {
	return &Feature{
		ledger: ledger,
	}
}
