package service

import (
	"time"

	"adledger/config"
	"adledger/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
)

// TestValidAddress matches DefaultWalletAddressPattern
const TestValidAddress = "UQ" + "AbCdEfGhIjKlMnOpQrStUvWxYz0123456789_-AbCdEfGhIj"

// testMocks bundles the mocks wired into a Ledger under test
type testMocks struct {
	factory     *MockUnitOfWorkFactory
	uow         *MockUnitOfWork
	users       *MockUserRepository
	history     *MockBalanceHistoryRepository
	earnings    *MockReferralEarningRepository
	withdrawals *MockWithdrawalRepository
	tasks       *MockTaskCompletionRepository
	publisher   *MockEventPublisher
}

func newTestMocks() *testMocks {
	m := &testMocks{
		factory:     new(MockUnitOfWorkFactory),
		uow:         new(MockUnitOfWork),
		users:       new(MockUserRepository),
		history:     new(MockBalanceHistoryRepository),
		earnings:    new(MockReferralEarningRepository),
		withdrawals: new(MockWithdrawalRepository),
		tasks:       new(MockTaskCompletionRepository),
		publisher:   new(MockEventPublisher),
	}
	m.uow.SetRepositories(m.users, m.history, m.earnings, m.withdrawals)
	m.uow.SetTaskRepository(m.tasks)
	m.uow.SetEventBus(m.publisher)

	m.factory.On("Create").Return(m.uow)
	m.uow.On("Begin", mock.Anything).Return(nil)
	m.uow.On("Rollback").Return(nil)
	m.publisher.On("Publish", mock.Anything).Return()

	return m
}

func (m *testMocks) assertExpectations(t mock.TestingT) {
	m.factory.AssertExpectations(t)
	m.uow.AssertExpectations(t)
	m.users.AssertExpectations(t)
	m.history.AssertExpectations(t)
	m.earnings.AssertExpectations(t)
	m.withdrawals.AssertExpectations(t)
	m.tasks.AssertExpectations(t)
}

// testRules returns the default rules with a non-zero welcome bonus
func testRules() config.LedgerRules {
	rules := config.DefaultLedgerRules()
	rules.WelcomeBonus = decimal.RequireFromString("0.01")
	return rules
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func testUser(id int64, balance string) *models.User {
	b := dec(balance)
	return &models.User{
		ID:             id,
		Username:       "user",
		Balance:        b,
		TotalEarned:    b,
		TotalWithdrawn: decimal.Zero,
		ReferralCode:   "CODE0000",
	}
}
