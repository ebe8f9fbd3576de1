package service

import (
	"context"

	"adledger/config"
	"adledger/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
)

// MockLedgerService is a mock implementation of LedgerService and WithdrawalService
type MockLedgerService struct {
	mock.Mock
}

var (
	_ LedgerService     = (*MockLedgerService)(nil)
	_ WithdrawalService = (*MockLedgerService)(nil)
)

func (m *MockLedgerService) GetOrCreateUser(ctx context.Context, id int64, profile models.Profile) (*models.User, error) {
	args := m.Called(ctx, id, profile)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockLedgerService) AttachReferral(ctx context.Context, newUserID int64, referrerCode string) (*models.ReferralOutcome, error) {
	args := m.Called(ctx, newUserID, referrerCode)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ReferralOutcome), args.Error(1)
}

func (m *MockLedgerService) RecordAdWatch(ctx context.Context, userID int64) (*models.RewardOutcome, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.RewardOutcome), args.Error(1)
}

func (m *MockLedgerService) RequestWithdrawal(ctx context.Context, userID int64, amount decimal.Decimal, walletAddress string) (*models.WithdrawalRequest, error) {
	args := m.Called(ctx, userID, amount, walletAddress)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.WithdrawalRequest), args.Error(1)
}

func (m *MockLedgerService) UpdateWalletAddress(ctx context.Context, userID int64, walletAddress string) (*models.User, error) {
	args := m.Called(ctx, userID, walletAddress)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockLedgerService) GetUser(ctx context.Context, id int64) (*models.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockLedgerService) GetDatabaseStats(ctx context.Context) (*models.LedgerStats, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.LedgerStats), args.Error(1)
}

func (m *MockLedgerService) GetReferralStats(ctx context.Context, id int64) (*models.ReferralStats, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ReferralStats), args.Error(1)
}

func (m *MockLedgerService) ListWithdrawals(ctx context.Context, userID int64, limit int) ([]*models.WithdrawalRequest, error) {
	args := m.Called(ctx, userID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.WithdrawalRequest), args.Error(1)
}

func (m *MockLedgerService) ListBalanceHistory(ctx context.Context, userID int64, limit int) ([]*models.BalanceHistory, error) {
	args := m.Called(ctx, userID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.BalanceHistory), args.Error(1)
}

func (m *MockLedgerService) CompleteTask(ctx context.Context, userID int64, task models.TaskType) (*models.TaskOutcome, error) {
	args := m.Called(ctx, userID, task)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.TaskOutcome), args.Error(1)
}

func (m *MockLedgerService) ListCompletedTasks(ctx context.Context, userID int64) ([]*models.TaskCompletion, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.TaskCompletion), args.Error(1)
}

func (m *MockLedgerService) DeleteUser(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockLedgerService) Rules() config.LedgerRules {
	args := m.Called()
	return args.Get(0).(config.LedgerRules)
}

func (m *MockLedgerService) ListPendingWithdrawals(ctx context.Context, limit int) ([]*models.WithdrawalRequest, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.WithdrawalRequest), args.Error(1)
}

func (m *MockLedgerService) MarkWithdrawalNotified(ctx context.Context, id uuid.UUID) (*models.WithdrawalRequest, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.WithdrawalRequest), args.Error(1)
}

func (m *MockLedgerService) RecordNotificationFailure(ctx context.Context, id uuid.UUID, reason string) error {
	args := m.Called(ctx, id, reason)
	return args.Error(0)
}
