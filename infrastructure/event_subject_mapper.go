package infrastructure

import (
	"fmt"

	"adledger/events"
)

const subjectPrefix = "ledger"

// EventSubjectMapper maps ledger events to NATS subjects
type EventSubjectMapper struct{}

// NewEventSubjectMapper creates a new event subject mapper
func NewEventSubjectMapper() *EventSubjectMapper {
	return &EventSubjectMapper{}
}

// MapEventToSubject converts an event to its NATS subject
func (m *EventSubjectMapper) MapEventToSubject(event events.Event) string {
	switch event.Type() {
	case events.EventTypeUserCreated:
		return subjectPrefix + ".users.created"
	case events.EventTypeUserDeleted:
		return subjectPrefix + ".users.deleted"
	case events.EventTypeBalanceChange:
		return subjectPrefix + ".users.balance_changed"
	case events.EventTypeReferralAttached:
		return subjectPrefix + ".referrals.attached"
	case events.EventTypeAdWatched:
		return subjectPrefix + ".ads.watched"
	case events.EventTypeWithdrawalRequested:
		return subjectPrefix + ".withdrawals.requested"
	case events.EventTypeWithdrawalNotified:
		return subjectPrefix + ".withdrawals.notified"
	case events.EventTypeTaskCompleted:
		return subjectPrefix + ".tasks.completed"
	default:
		return fmt.Sprintf("%s.unknown.%s", subjectPrefix, event.Type())
	}
}

// GetAllSubjects returns all subjects this service publishes to
func (m *EventSubjectMapper) GetAllSubjects() []string {
	return []string{subjectPrefix + ".>"}
}
