package events

import (
	"context"
	"sync"
	"time"

	"adledger/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

// EventType represents different types of events in the system
type EventType string

const (
	EventTypeUserCreated         EventType = "user_created"
	EventTypeBalanceChange       EventType = "balance_change"
	EventTypeReferralAttached    EventType = "referral_attached"
	EventTypeAdWatched           EventType = "ad_watched"
	EventTypeWithdrawalRequested EventType = "withdrawal_requested"
	EventTypeWithdrawalNotified  EventType = "withdrawal_notified"
	EventTypeUserDeleted         EventType = "user_deleted"
	EventTypeTaskCompleted       EventType = "task_completed"
)

// Event is the base interface for all events
type Event interface {
	Type() EventType
}

// UserCreatedEvent represents a new user creation
type UserCreatedEvent struct {
	UserID         int64           `json:"userId"`
	Username       string          `json:"username"`
	ReferralCode   string          `json:"referralCode"`
	InitialBalance decimal.Decimal `json:"initialBalance"`
}

func (e UserCreatedEvent) Type() EventType {
	return EventTypeUserCreated
}

// BalanceChangeEvent represents a balance change that occurred
type BalanceChangeEvent struct {
	UserID          int64                  `json:"userId"`
	OldBalance      decimal.Decimal        `json:"oldBalance"`
	NewBalance      decimal.Decimal        `json:"newBalance"`
	TransactionType models.TransactionType `json:"transactionType"`
	ChangeAmount    decimal.Decimal        `json:"changeAmount"`
}

func (e BalanceChangeEvent) Type() EventType {
	return EventTypeBalanceChange
}

// ReferralAttachedEvent is emitted once a user is linked to its referrer
type ReferralAttachedEvent struct {
	UserID        int64           `json:"userId"`
	ReferrerID    int64           `json:"referrerId"`
	ReferrerBonus decimal.Decimal `json:"referrerBonus"`
	ReferredBonus decimal.Decimal `json:"referredBonus"`
}

func (e ReferralAttachedEvent) Type() EventType {
	return EventTypeReferralAttached
}

// AdWatchedEvent is emitted for every rewarded ad view
type AdWatchedEvent struct {
	UserID          int64           `json:"userId"`
	Reward          decimal.Decimal `json:"reward"`
	DailyAdsWatched int             `json:"dailyAdsWatched"`
	ReferrerID      *int64          `json:"referrerId,omitempty"`
	Commission      decimal.Decimal `json:"commission"`
}

func (e AdWatchedEvent) Type() EventType {
	return EventTypeAdWatched
}

// WithdrawalRequestedEvent is emitted when a withdrawal debit is committed
type WithdrawalRequestedEvent struct {
	WithdrawalID  uuid.UUID       `json:"withdrawalId"`
	UserID        int64           `json:"userId"`
	Amount        decimal.Decimal `json:"amount"`
	WalletAddress string          `json:"walletAddress"`
	RequestedAt   time.Time       `json:"requestedAt"`
}

func (e WithdrawalRequestedEvent) Type() EventType {
	return EventTypeWithdrawalRequested
}

// WithdrawalNotifiedEvent is emitted when the downstream notification was accepted
type WithdrawalNotifiedEvent struct {
	WithdrawalID uuid.UUID `json:"withdrawalId"`
	UserID       int64     `json:"userId"`
	NotifiedAt   time.Time `json:"notifiedAt"`
}

func (e WithdrawalNotifiedEvent) Type() EventType {
	return EventTypeWithdrawalNotified
}

// TaskCompletedEvent is emitted the first time a user completes a one-off task
type TaskCompletedEvent struct {
	UserID int64           `json:"userId"`
	Task   models.TaskType `json:"task"`
	Bonus  decimal.Decimal `json:"bonus"`
}

func (e TaskCompletedEvent) Type() EventType {
	return EventTypeTaskCompleted
}

// UserDeletedEvent is emitted by the administrative delete
type UserDeletedEvent struct {
	UserID     int64  `json:"userId"`
	ReferrerID *int64 `json:"referrerId,omitempty"`
}

func (e UserDeletedEvent) Type() EventType {
	return EventTypeUserDeleted
}

// Handler is a function that handles events
type Handler func(ctx context.Context, event Event)

// Bus manages event subscriptions and dispatching
type Bus struct {
	mu       sync.RWMutex
	handlers map[EventType][]Handler
}

// NewBus creates a new event bus
func NewBus() *Bus {
	return &Bus{
		handlers: make(map[EventType][]Handler),
	}
}

// Subscribe adds a handler for a specific event type
func (b *Bus) Subscribe(eventType EventType, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.handlers[eventType] = append(b.handlers[eventType], handler)

	log.WithFields(log.Fields{
		"eventType":    eventType,
		"handlerCount": len(b.handlers[eventType]),
	}).Debug("Subscribed handler to event type on main event bus")
}

// SubscribeAll adds a handler for every known event type
func (b *Bus) SubscribeAll(handler Handler) {
	for _, eventType := range AllEventTypes() {
		b.Subscribe(eventType, handler)
	}
}

// Emit publishes an event to all registered handlers
func (b *Bus) Emit(ctx context.Context, event Event) {
	b.mu.RLock()
	handlers := make([]Handler, len(b.handlers[event.Type()]))
	copy(handlers, b.handlers[event.Type()])
	b.mu.RUnlock()

	log.WithFields(log.Fields{
		"eventType":    event.Type(),
		"handlerCount": len(handlers),
	}).Debug("Emitting event to handlers on main event bus")

	// Handlers run asynchronously so a slow subscriber never blocks a ledger operation
	for i, handler := range handlers {
		go func(h Handler, handlerIndex int) {
			defer func() {
				if r := recover(); r != nil {
					log.WithFields(log.Fields{
						"eventType":    event.Type(),
						"handlerIndex": handlerIndex,
						"panic":        r,
					}).Error("Event handler panicked")
				}
			}()
			h(ctx, event)
		}(handler, i)
	}
}

// AllEventTypes lists every event type the ledger emits
func AllEventTypes() []EventType {
	return []EventType{
		EventTypeUserCreated,
		EventTypeBalanceChange,
		EventTypeReferralAttached,
		EventTypeAdWatched,
		EventTypeWithdrawalRequested,
		EventTypeWithdrawalNotified,
		EventTypeUserDeleted,
		EventTypeTaskCompleted,
	}
}

// TransactionalBus holds pending events for one unit of work and flushes them
// to the underlying bus only after the transaction commits.
type TransactionalBus struct {
	real    *Bus
	pending []Event
}

// NewTransactionalBus creates a transactional bus in front of the given bus
func NewTransactionalBus(real *Bus) *TransactionalBus {
	return &TransactionalBus{real: real}
}

// Publish stashes an event until Flush
func (b *TransactionalBus) Publish(e Event) {
	log.WithFields(log.Fields{
		"eventType":    e.Type(),
		"pendingCount": len(b.pending),
	}).Debug("Adding event to transactional bus pending queue")
	b.pending = append(b.pending, e)
}

// Pending returns the number of events waiting for Flush
func (b *TransactionalBus) Pending() int {
	return len(b.pending)
}

// Flush emits all pending events; called after a successful commit
func (b *TransactionalBus) Flush(ctx context.Context) {
	log.WithFields(log.Fields{
		"pendingEventCount": len(b.pending),
	}).Debug("Flushing pending events from transactional bus to main event bus")

	// The transaction context may already be cancelled once the caller returns
	eventCtx := context.WithoutCancel(ctx)

	for _, ev := range b.pending {
		if b.real != nil {
			b.real.Emit(eventCtx, ev)
		}
	}
	b.pending = nil
}

// Discard drops all pending events; called after a rollback
func (b *TransactionalBus) Discard() {
	b.pending = nil
}
