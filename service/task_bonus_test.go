package service

import (
	"context"
	"testing"

	"adledger/events"
	"adledger/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestLedger_CompleteTask_FirstCompletionPaysBonus(t *testing.T) {
	ctx := context.Background()
	m := newTestMocks()
	ledger := newTestLedger(t, m)

	credited := testUser(1, "0.015")
	bonus := testRules().ChannelJoinBonus

	m.users.On("LockForUpdate", mock.Anything, []int64{1}).Return(map[int64]*models.User{1: testUser(1, "0.01")}, nil)
	m.tasks.On("Record", mock.Anything, mock.MatchedBy(func(c *models.TaskCompletion) bool {
		return c.UserID == 1 && c.Task == models.TaskJoinChannel && c.Bonus.Equal(bonus) && c.CompletedAt.Equal(testNow)
	})).Return(true, nil)
	m.users.On("Credit", mock.Anything, int64(1), bonus).Return(credited, nil)
	m.history.On("Record", mock.Anything, mock.MatchedBy(func(h *models.BalanceHistory) bool {
		return h.TransactionType == models.TransactionTypeTaskBonus &&
			h.ChangeAmount.Equal(bonus) &&
			h.BalanceAfter.Equal(dec("0.015")) &&
			*h.RelatedID == string(models.TaskJoinChannel) &&
			*h.RelatedType == models.RelatedTypeTask
	})).Return(nil)
	m.uow.On("Commit").Return(nil)

	outcome, err := ledger.CompleteTask(ctx, 1, models.TaskJoinChannel)

	require.NoError(t, err)
	assert.True(t, outcome.FirstCompletion)
	assert.True(t, outcome.Bonus.Equal(bonus))
	assert.True(t, outcome.User.Balance.Equal(dec("0.015")))
	m.publisher.AssertCalled(t, "Publish", mock.MatchedBy(func(e events.Event) bool {
		ev, ok := e.(events.TaskCompletedEvent)
		return ok && ev.UserID == 1 && ev.Task == models.TaskJoinChannel
	}))
	m.assertExpectations(t)
}

func TestLedger_CompleteTask_RepeatPaysNothing(t *testing.T) {
	m := newTestMocks()
	ledger := newTestLedger(t, m)

	m.users.On("LockForUpdate", mock.Anything, []int64{1}).Return(map[int64]*models.User{1: testUser(1, "0.02")}, nil)
	m.tasks.On("Record", mock.Anything, mock.Anything).Return(false, nil)

	outcome, err := ledger.CompleteTask(context.Background(), 1, models.TaskJoinGroup)

	require.NoError(t, err)
	assert.False(t, outcome.FirstCompletion)
	assert.True(t, outcome.Bonus.IsZero())
	assert.True(t, outcome.User.Balance.Equal(dec("0.02")))
	m.users.AssertNotCalled(t, "Credit", mock.Anything, mock.Anything, mock.Anything)
	m.uow.AssertNotCalled(t, "Commit")
	m.publisher.AssertNotCalled(t, "Publish", mock.Anything)
}

func TestLedger_CompleteTask_ZeroBonusStillRecords(t *testing.T) {
	m := newTestMocks()
	rules := testRules()
	rules.GroupJoinBonus = dec("0")
	ledger, err := NewLedgerService(m.factory, rules, WithClock(fixedClock(testNow)))
	require.NoError(t, err)

	m.users.On("LockForUpdate", mock.Anything, []int64{1}).Return(map[int64]*models.User{1: testUser(1, "0")}, nil)
	m.tasks.On("Record", mock.Anything, mock.Anything).Return(true, nil)
	m.uow.On("Commit").Return(nil)

	outcome, err := ledger.CompleteTask(context.Background(), 1, models.TaskJoinGroup)

	require.NoError(t, err)
	assert.True(t, outcome.FirstCompletion)
	assert.True(t, outcome.Bonus.IsZero())
	m.users.AssertNotCalled(t, "Credit", mock.Anything, mock.Anything, mock.Anything)
	m.history.AssertNotCalled(t, "Record", mock.Anything, mock.Anything)
}

func TestLedger_CompleteTask_Errors(t *testing.T) {
	ctx := context.Background()

	t.Run("unknown task", func(t *testing.T) {
		m := newTestMocks()
		ledger := newTestLedger(t, m)

		_, err := ledger.CompleteTask(ctx, 1, models.TaskType("follow_twitter"))

		assert.ErrorIs(t, err, ErrUnknownTask)
		m.factory.AssertNotCalled(t, "Create")
	})

	t.Run("missing user", func(t *testing.T) {
		m := newTestMocks()
		ledger := newTestLedger(t, m)
		m.users.On("LockForUpdate", mock.Anything, []int64{9}).Return(map[int64]*models.User{}, nil)

		_, err := ledger.CompleteTask(ctx, 9, models.TaskJoinChannel)

		assert.ErrorIs(t, err, ErrNotFound)
		m.tasks.AssertNotCalled(t, "Record", mock.Anything, mock.Anything)
	})
}

func TestLedger_ListCompletedTasks(t *testing.T) {
	ctx := context.Background()
	m := newTestMocks()
	ledger := newTestLedger(t, m)

	completions := []*models.TaskCompletion{{UserID: 1, Task: models.TaskJoinChannel, Bonus: dec("0.005")}}
	m.users.On("GetByID", mock.Anything, int64(1)).Return(testUser(1, "0"), nil)
	m.users.On("GetByID", mock.Anything, int64(2)).Return(nil, nil)
	m.tasks.On("GetByUser", mock.Anything, int64(1)).Return(completions, nil)

	got, err := ledger.ListCompletedTasks(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, completions, got)

	_, err = ledger.ListCompletedTasks(ctx, 2)
	assert.ErrorIs(t, err, ErrNotFound)
}
