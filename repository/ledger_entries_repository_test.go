package repository

import (
	"context"
	"testing"
	"time"

	"adledger/models"
	"adledger/repository/testutil"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBalanceHistoryRepository_RecordAndList(t *testing.T) {
	testDB := testutil.SetupTestDatabase(t)
	users := NewUserRepository(testDB.DB)
	repo := NewBalanceHistoryRepository(testDB.DB)
	ctx := context.Background()

	_, err := users.Create(ctx, testutil.CreateTestUser(1, "alice"))
	require.NoError(t, err)

	first := testutil.CreateTestBalanceHistory(1, models.TransactionTypeAdReward)
	require.NoError(t, repo.Record(ctx, first))
	assert.NotZero(t, first.ID)
	assert.False(t, first.CreatedAt.IsZero())

	relatedID := uuid.NewString()
	relatedType := models.RelatedTypeWithdrawal
	second := &models.BalanceHistory{
		UserID:          1,
		BalanceBefore:   dec("0.0105"),
		BalanceAfter:    dec("0.0005"),
		ChangeAmount:    dec("-0.01"),
		TransactionType: models.TransactionTypeWithdrawal,
		RelatedID:       &relatedID,
		RelatedType:     &relatedType,
	}
	require.NoError(t, repo.Record(ctx, second))

	history, err := repo.GetByUser(ctx, 1, 10)
	require.NoError(t, err)
	require.Len(t, history, 2)

	// Newest first
	assert.Equal(t, second.ID, history[0].ID)
	assert.Equal(t, models.TransactionTypeWithdrawal, history[0].TransactionType)
	assert.True(t, history[0].ChangeAmount.Equal(dec("-0.01")))
	require.NotNil(t, history[0].RelatedType)
	assert.Equal(t, models.RelatedTypeWithdrawal, *history[0].RelatedType)
	assert.Nil(t, history[0].TransactionMetadata)

	assert.Equal(t, true, history[1].TransactionMetadata["test"])

	limited, err := repo.GetByUser(ctx, 1, 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestReferralEarningRepository(t *testing.T) {
	testDB := testutil.SetupTestDatabase(t)
	users := NewUserRepository(testDB.DB)
	repo := NewReferralEarningRepository(testDB.DB)
	ctx := context.Background()

	_, err := users.Create(ctx, testutil.CreateTestUser(1, "referrer"))
	require.NoError(t, err)

	signup := func() *models.ReferralEarning {
		return &models.ReferralEarning{
			ReferrerID:   1,
			SourceUserID: 2,
			Amount:       dec("0.01"),
			Kind:         models.ReferralEarningSignupBonus,
		}
	}

	paid, err := repo.Record(ctx, signup())
	require.NoError(t, err)
	assert.True(t, paid)

	// Signup bonus is paid once per pair
	paid, err = repo.Record(ctx, signup())
	require.NoError(t, err)
	assert.False(t, paid)

	for i := 0; i < 3; i++ {
		recorded, err := repo.Record(ctx, &models.ReferralEarning{
			ReferrerID:   1,
			SourceUserID: 2,
			Amount:       dec("0.00005"),
			Kind:         models.ReferralEarningCommission,
		})
		require.NoError(t, err)
		assert.True(t, recorded)
	}

	commission, signupBonus, err := repo.SumByReferrer(ctx, 1)
	require.NoError(t, err)
	assert.True(t, commission.Equal(dec("0.00015")))
	assert.True(t, signupBonus.Equal(dec("0.01")))

	commission, signupBonus, err = repo.SumByReferrer(ctx, 42)
	require.NoError(t, err)
	assert.True(t, commission.IsZero())
	assert.True(t, signupBonus.IsZero())
}

func TestWithdrawalRepository(t *testing.T) {
	testDB := testutil.SetupTestDatabase(t)
	repo := NewWithdrawalRepository(testDB.DB)
	ctx := context.Background()

	base := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	older := testutil.CreateTestWithdrawal(1, "0.05", base)
	newer := testutil.CreateTestWithdrawal(1, "0.07", base.Add(time.Hour))
	other := testutil.CreateTestWithdrawal(2, "1", base.Add(30*time.Minute))

	for _, request := range []*models.WithdrawalRequest{older, newer, other} {
		require.NoError(t, repo.Create(ctx, request))
	}

	t.Run("get by id", func(t *testing.T) {
		stored, err := repo.GetByID(ctx, older.ID)
		require.NoError(t, err)
		require.NotNil(t, stored)
		assert.True(t, stored.Amount.Equal(dec("0.05")))
		assert.Equal(t, testutil.ValidWalletAddress, stored.WalletAddress)
		assert.True(t, stored.IsPending())
		assert.True(t, stored.RequestedAt.Equal(base))

		missing, err := repo.GetByID(ctx, uuid.New())
		require.NoError(t, err)
		assert.Nil(t, missing)
	})

	t.Run("by user newest first", func(t *testing.T) {
		requests, err := repo.GetByUser(ctx, 1, 10)
		require.NoError(t, err)
		require.Len(t, requests, 2)
		assert.Equal(t, newer.ID, requests[0].ID)
	})

	t.Run("pending oldest first", func(t *testing.T) {
		pending, err := repo.ListPending(ctx, 10)
		require.NoError(t, err)
		require.Len(t, pending, 3)
		assert.Equal(t, older.ID, pending[0].ID)
		assert.Equal(t, other.ID, pending[1].ID)
	})

	t.Run("failure keeps request pending", func(t *testing.T) {
		require.NoError(t, repo.RecordNotifyFailure(ctx, older.ID, "webhook returned 500"))

		stored, err := repo.GetByID(ctx, older.ID)
		require.NoError(t, err)
		assert.True(t, stored.IsPending())
		assert.Equal(t, 1, stored.NotifyAttempts)
		require.NotNil(t, stored.LastError)
		assert.Equal(t, "webhook returned 500", *stored.LastError)
	})

	t.Run("failed requests rotate behind untried ones", func(t *testing.T) {
		pending, err := repo.ListPending(ctx, 2)
		require.NoError(t, err)
		require.Len(t, pending, 2)
		assert.Equal(t, other.ID, pending[0].ID)
		assert.Equal(t, newer.ID, pending[1].ID)

		all, err := repo.ListPending(ctx, 10)
		require.NoError(t, err)
		require.Len(t, all, 3)
		assert.Equal(t, older.ID, all[2].ID)
	})

	t.Run("mark notified once", func(t *testing.T) {
		notifiedAt := base.Add(2 * time.Hour)

		marked, err := repo.MarkNotified(ctx, older.ID, notifiedAt)
		require.NoError(t, err)
		assert.True(t, marked)

		marked, err = repo.MarkNotified(ctx, older.ID, notifiedAt.Add(time.Minute))
		require.NoError(t, err)
		assert.False(t, marked)

		stored, err := repo.GetByID(ctx, older.ID)
		require.NoError(t, err)
		assert.Equal(t, models.WithdrawalStatusNotified, stored.Status)
		require.NotNil(t, stored.NotifiedAt)
		assert.True(t, stored.NotifiedAt.Equal(notifiedAt))
		assert.Equal(t, 2, stored.NotifyAttempts)
		assert.Nil(t, stored.LastError)

		pending, err := repo.ListPending(ctx, 10)
		require.NoError(t, err)
		assert.Len(t, pending, 2)
	})
}

func TestTaskCompletionRepository(t *testing.T) {
	testDB := testutil.SetupTestDatabase(t)
	users := NewUserRepository(testDB.DB)
	repo := NewTaskCompletionRepository(testDB.DB)
	ctx := context.Background()

	_, err := users.Create(ctx, testutil.CreateTestUser(1, "alice"))
	require.NoError(t, err)

	completedAt := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	recorded, err := repo.Record(ctx, &models.TaskCompletion{
		UserID:      1,
		Task:        models.TaskJoinGroup,
		Bonus:       dec("0.005"),
		CompletedAt: completedAt,
	})
	require.NoError(t, err)
	assert.True(t, recorded)

	recorded, err = repo.Record(ctx, &models.TaskCompletion{
		UserID:      1,
		Task:        models.TaskJoinGroup,
		Bonus:       dec("0.005"),
		CompletedAt: completedAt.Add(time.Hour),
	})
	require.NoError(t, err)
	assert.False(t, recorded)

	recorded, err = repo.Record(ctx, &models.TaskCompletion{
		UserID:      1,
		Task:        models.TaskJoinChannel,
		Bonus:       dec("0"),
		CompletedAt: completedAt.Add(time.Minute),
	})
	require.NoError(t, err)
	assert.True(t, recorded)

	completed, err := repo.GetByUser(ctx, 1)
	require.NoError(t, err)
	require.Len(t, completed, 2)
	assert.Equal(t, models.TaskJoinGroup, completed[0].Task)
	assert.True(t, completed[0].CompletedAt.Equal(completedAt))
	assert.True(t, completed[1].Bonus.IsZero())

	none, err := repo.GetByUser(ctx, 2)
	require.NoError(t, err)
	assert.Empty(t, none)
}
