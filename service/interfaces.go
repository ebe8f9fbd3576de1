package service

import (
	"context"
	"time"

	"adledger/config"
	"adledger/events"
	"adledger/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// UserRepository defines the interface for user data access
type UserRepository interface {
	// GetByID retrieves a user by id, returning nil when it does not exist
	GetByID(ctx context.Context, id int64) (*models.User, error)

	// GetByReferralCode retrieves the owner of a referral code
	GetByReferralCode(ctx context.Context, code string) (*models.User, error)

	// LockForUpdate row-locks the given users in ascending id order and returns those that exist
	LockForUpdate(ctx context.Context, ids ...int64) (map[int64]*models.User, error)

	// Create inserts a user; returns false when the id or referral code is already taken
	Create(ctx context.Context, user *models.User) (bool, error)

	// SetReferrer links a user to its referrer; returns false when a referrer is already set
	SetReferrer(ctx context.Context, userID, referrerID int64) (bool, error)

	// AdjustReferralCount changes a user's referral count by delta, never below zero
	AdjustReferralCount(ctx context.Context, id int64, delta int) error

	// Credit adds to balance and total earned atomically
	Credit(ctx context.Context, id int64, amount decimal.Decimal) (*models.User, error)

	// RecordAdWatch counts one ad against the day's window and credits the reward.
	// Returns nil when the window is already at the limit.
	RecordAdWatch(ctx context.Context, id int64, day time.Time, reward decimal.Decimal, dailyLimit int) (*models.User, error)

	// Debit subtracts from balance and adds to total withdrawn, returning nil on insufficient balance
	Debit(ctx context.Context, id int64, amount decimal.Decimal) (*models.User, error)

	// UpdateWalletAddress stores a user's payout address
	UpdateWalletAddress(ctx context.Context, id int64, address string) (*models.User, error)

	// ListReferrals returns the users referred by referrerID, newest first
	ListReferrals(ctx context.Context, referrerID int64, limit int) ([]*models.User, error)

	// Delete removes a user, returning false when it did not exist
	Delete(ctx context.Context, id int64) (bool, error)

	// GetStats returns aggregated ledger statistics
	GetStats(ctx context.Context) (*models.LedgerStats, error)
}

// BalanceHistoryRepository defines the interface for balance history tracking
type BalanceHistoryRepository interface {
	// Record creates a new balance history entry
	Record(ctx context.Context, history *models.BalanceHistory) error

	// GetByUser returns balance history for a specific user
	GetByUser(ctx context.Context, userID int64, limit int) ([]*models.BalanceHistory, error)
}

// ReferralEarningRepository defines the interface for the referral earnings ledger
type ReferralEarningRepository interface {
	// Record appends an entry; returns false when a signup bonus for the pair already exists
	Record(ctx context.Context, earning *models.ReferralEarning) (bool, error)

	// SumByReferrer returns total commission and total signup bonus paid to a referrer
	SumByReferrer(ctx context.Context, referrerID int64) (commission decimal.Decimal, signupBonus decimal.Decimal, err error)
}

// WithdrawalRepository defines the interface for withdrawal request storage
type WithdrawalRepository interface {
	Create(ctx context.Context, request *models.WithdrawalRequest) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.WithdrawalRequest, error)
	GetByUser(ctx context.Context, userID int64, limit int) ([]*models.WithdrawalRequest, error)

	// ListPending returns pending requests, least attempted first, then oldest first
	ListPending(ctx context.Context, limit int) ([]*models.WithdrawalRequest, error)

	// MarkNotified moves a pending request to notified; returns false if it was not pending
	MarkNotified(ctx context.Context, id uuid.UUID, notifiedAt time.Time) (bool, error)

	// RecordNotifyFailure bumps the attempt counter and stores the last error
	RecordNotifyFailure(ctx context.Context, id uuid.UUID, reason string) error
}

// TaskCompletionRepository stores one-off task completions
type TaskCompletionRepository interface {
	// Record stores a completion; returns false when the user already completed the task
	Record(ctx context.Context, completion *models.TaskCompletion) (bool, error)

	GetByUser(ctx context.Context, userID int64) ([]*models.TaskCompletion, error)
}

// EventPublisher defines the interface for publishing events
type EventPublisher interface {
	Publish(event events.Event)
}

// UnitOfWork defines the interface for transactional repository operations
type UnitOfWork interface {
	// Begin starts a new transaction
	Begin(ctx context.Context) error

	// Commit commits the transaction and flushes pending events
	Commit() error

	// Rollback rolls back the transaction and discards pending events
	Rollback() error

	// Repository getters
	UserRepository() UserRepository
	BalanceHistoryRepository() BalanceHistoryRepository
	ReferralEarningRepository() ReferralEarningRepository
	WithdrawalRepository() WithdrawalRepository
	TaskCompletionRepository() TaskCompletionRepository

	// EventBus returns the transactional event publisher
	EventBus() EventPublisher
}

// UnitOfWorkFactory defines the interface for creating UnitOfWork instances
type UnitOfWorkFactory interface {
	Create() UnitOfWork
}

// ReadCache is a bounded-staleness cache for display reads.
// Misses return (nil, nil). It is never consulted for balance-mutating decisions.
type ReadCache interface {
	GetUser(ctx context.Context, id int64) (*models.User, error)
	SetUser(ctx context.Context, user *models.User) error
	InvalidateUsers(ctx context.Context, ids ...int64) error
	GetStats(ctx context.Context) (*models.LedgerStats, error)
	SetStats(ctx context.Context, stats *models.LedgerStats) error
}

// OperationRecorder receives one observation per ledger operation
type OperationRecorder interface {
	RecordLedgerOperation(operation, outcome string, duration time.Duration)
}

// LedgerService defines the operations exposed to the bot and HTTP surfaces
type LedgerService interface {
	// GetOrCreateUser returns the user with id, creating it on first contact
	GetOrCreateUser(ctx context.Context, id int64, profile models.Profile) (*models.User, error)

	// AttachReferral links a new user to the owner of referrerCode and pays both bonuses
	AttachReferral(ctx context.Context, newUserID int64, referrerCode string) (*models.ReferralOutcome, error)

	// RecordAdWatch credits one rewarded ad view and the referrer commission
	RecordAdWatch(ctx context.Context, userID int64) (*models.RewardOutcome, error)

	// RequestWithdrawal debits the balance and creates a pending withdrawal request
	RequestWithdrawal(ctx context.Context, userID int64, amount decimal.Decimal, walletAddress string) (*models.WithdrawalRequest, error)

	// UpdateWalletAddress validates and stores a payout address
	UpdateWalletAddress(ctx context.Context, userID int64, walletAddress string) (*models.User, error)

	// GetUser returns a possibly cached view of a user
	GetUser(ctx context.Context, id int64) (*models.User, error)

	// GetDatabaseStats returns possibly cached ledger statistics
	GetDatabaseStats(ctx context.Context) (*models.LedgerStats, error)

	// GetReferralStats returns a referrer's network and earnings
	GetReferralStats(ctx context.Context, id int64) (*models.ReferralStats, error)

	ListWithdrawals(ctx context.Context, userID int64, limit int) ([]*models.WithdrawalRequest, error)
	ListBalanceHistory(ctx context.Context, userID int64, limit int) ([]*models.BalanceHistory, error)

	// CompleteTask pays a one-off task bonus the first time a user completes the task
	CompleteTask(ctx context.Context, userID int64, task models.TaskType) (*models.TaskOutcome, error)

	// ListCompletedTasks returns the tasks a user already completed
	ListCompletedTasks(ctx context.Context, userID int64) ([]*models.TaskCompletion, error)

	// DeleteUser removes a user and unlinks it from its referrer
	DeleteUser(ctx context.Context, id int64) error

	// Rules returns the ledger rules in force
	Rules() config.LedgerRules
}

// WithdrawalService defines the operations used by the withdrawal notifier
type WithdrawalService interface {
	ListPendingWithdrawals(ctx context.Context, limit int) ([]*models.WithdrawalRequest, error)
	MarkWithdrawalNotified(ctx context.Context, id uuid.UUID) (*models.WithdrawalRequest, error)
	RecordNotificationFailure(ctx context.Context, id uuid.UUID, reason string) error
}
