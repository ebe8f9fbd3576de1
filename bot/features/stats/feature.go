package stats

import (
	"adledger/service"
)

// Feature reports ledger-wide statistics to administrators
type Feature struct {
	ledger   service.LedgerService
	adminIDs map[int64]struct{}
}

func New(ledger service.LedgerService, adminIDs ...int64) *Feature {
	ids := make(map[int64]struct{}, len(adminIDs))
	for _, id := range adminIDs {
		if id != 0 {
			ids[id] = struct{}{}
		}
	}
	return &Feature{
		ledger:   ledger,
		adminIDs: ids,
	}
}

func (f *Feature) isAdmin(userID, chatID int64) bool {
	_, byUser := f.adminIDs[userID]
	_, byChat := f.adminIDs[chatID]
	return byUser || byChat
}
