package repository

import (
	"context"
	"testing"
	"time"

	"adledger/models"
	"adledger/repository/testutil"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestUserRepository_CreateAndGet(t *testing.T) {
	testDB := testutil.SetupTestDatabase(t)
	repo := NewUserRepository(testDB.DB)
	ctx := context.Background()

	t.Run("missing user", func(t *testing.T) {
		user, err := repo.GetByID(ctx, 404)
		require.NoError(t, err)
		assert.Nil(t, user)
	})

	t.Run("create and read back", func(t *testing.T) {
		user := testutil.CreateTestUserWithBalance(1, "alice", "0.01")
		created, err := repo.Create(ctx, user)
		require.NoError(t, err)
		assert.True(t, created)

		stored, err := repo.GetByID(ctx, 1)
		require.NoError(t, err)
		require.NotNil(t, stored)
		assert.Equal(t, "alice", stored.Username)
		assert.True(t, stored.Balance.Equal(dec("0.01")))
		assert.True(t, stored.TotalEarned.Equal(dec("0.01")))
		assert.Nil(t, stored.ReferredBy)
		assert.Nil(t, stored.DailyWindowDate)

		byCode, err := repo.GetByReferralCode(ctx, user.ReferralCode)
		require.NoError(t, err)
		require.NotNil(t, byCode)
		assert.Equal(t, int64(1), byCode.ID)
	})

	t.Run("duplicate id", func(t *testing.T) {
		created, err := repo.Create(ctx, testutil.CreateTestUser(1, "again"))
		require.NoError(t, err)
		assert.False(t, created)
	})

	t.Run("duplicate referral code", func(t *testing.T) {
		user := testutil.CreateTestUser(2, "bob")
		user.ReferralCode = testutil.CreateTestUser(1, "").ReferralCode
		created, err := repo.Create(ctx, user)
		require.NoError(t, err)
		assert.False(t, created)

		missing, err := repo.GetByID(ctx, 2)
		require.NoError(t, err)
		assert.Nil(t, missing)
	})
}

func TestUserRepository_Referrals(t *testing.T) {
	testDB := testutil.SetupTestDatabase(t)
	repo := NewUserRepository(testDB.DB)
	ctx := context.Background()

	for _, id := range []int64{1, 2, 3} {
		_, err := repo.Create(ctx, testutil.CreateTestUser(id, "user"))
		require.NoError(t, err)
	}

	linked, err := repo.SetReferrer(ctx, 2, 1)
	require.NoError(t, err)
	assert.True(t, linked)

	// A referrer is set once
	linked, err = repo.SetReferrer(ctx, 2, 3)
	require.NoError(t, err)
	assert.False(t, linked)

	_, err = repo.SetReferrer(ctx, 3, 1)
	require.NoError(t, err)

	require.NoError(t, repo.AdjustReferralCount(ctx, 1, 2))
	require.NoError(t, repo.AdjustReferralCount(ctx, 1, -5))

	referrer, err := repo.GetByID(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 0, referrer.ReferralCount, "count is clamped at zero")

	referrals, err := repo.ListReferrals(ctx, 1, 10)
	require.NoError(t, err)
	assert.Len(t, referrals, 2)

	referred, err := repo.GetByID(ctx, 2)
	require.NoError(t, err)
	require.NotNil(t, referred.ReferredBy)
	assert.Equal(t, int64(1), *referred.ReferredBy)

	t.Run("self referral rejected by constraint", func(t *testing.T) {
		_, err := repo.Create(ctx, testutil.CreateTestUser(4, "self"))
		require.NoError(t, err)
		_, err = repo.SetReferrer(ctx, 4, 4)
		assert.Error(t, err)
	})
}

func TestUserRepository_RecordAdWatch(t *testing.T) {
	testDB := testutil.SetupTestDatabase(t)
	repo := NewUserRepository(testDB.DB)
	ctx := context.Background()

	_, err := repo.Create(ctx, testutil.CreateTestUser(1, "watcher"))
	require.NoError(t, err)

	day := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	reward := dec("0.0005")

	for i := 1; i <= 3; i++ {
		user, err := repo.RecordAdWatch(ctx, 1, day, reward, 3)
		require.NoError(t, err)
		require.NotNil(t, user)
		assert.Equal(t, i, user.DailyAdsWatched)
	}

	// Limit reached for the day
	user, err := repo.RecordAdWatch(ctx, 1, day, reward, 3)
	require.NoError(t, err)
	assert.Nil(t, user)

	// Next day starts a fresh window
	user, err = repo.RecordAdWatch(ctx, 1, day.AddDate(0, 0, 1), reward, 3)
	require.NoError(t, err)
	require.NotNil(t, user)
	assert.Equal(t, 1, user.DailyAdsWatched)
	assert.Equal(t, int64(4), user.TotalAdsWatched)
	assert.True(t, user.Balance.Equal(dec("0.002")))
	assert.True(t, user.TotalEarned.Equal(dec("0.002")))
	require.NotNil(t, user.DailyWindowDate)
	assert.True(t, models.SameDay(day.AddDate(0, 0, 1), *user.DailyWindowDate))
}

func TestUserRepository_CreditAndDebit(t *testing.T) {
	testDB := testutil.SetupTestDatabase(t)
	repo := NewUserRepository(testDB.DB)
	ctx := context.Background()

	_, err := repo.Create(ctx, testutil.CreateTestUser(1, "payee"))
	require.NoError(t, err)

	user, err := repo.Credit(ctx, 1, dec("0.06"))
	require.NoError(t, err)
	assert.True(t, user.Balance.Equal(dec("0.06")))

	user, err = repo.Debit(ctx, 1, dec("0.05"))
	require.NoError(t, err)
	require.NotNil(t, user)
	assert.True(t, user.Balance.Equal(dec("0.01")))
	assert.True(t, user.TotalWithdrawn.Equal(dec("0.05")))
	assert.True(t, user.Balance.Equal(user.TotalEarned.Sub(user.TotalWithdrawn)))

	// Conditional debit refuses to overdraw
	user, err = repo.Debit(ctx, 1, dec("0.02"))
	require.NoError(t, err)
	assert.Nil(t, user)

	missing, err := repo.Credit(ctx, 99, dec("1"))
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestUserRepository_LockForUpdate(t *testing.T) {
	testDB := testutil.SetupTestDatabase(t)
	repo := NewUserRepository(testDB.DB)
	ctx := context.Background()

	for _, id := range []int64{5, 3} {
		_, err := repo.Create(ctx, testutil.CreateTestUser(id, "locked"))
		require.NoError(t, err)
	}

	uow := NewUnitOfWorkFactory(testDB.DB, nil).Create()
	require.NoError(t, uow.Begin(ctx))
	defer uow.Rollback()

	users, err := uow.UserRepository().LockForUpdate(ctx, 5, 3, 5, 7)
	require.NoError(t, err)
	assert.Len(t, users, 2)
	assert.Contains(t, users, int64(3))
	assert.Contains(t, users, int64(5))
	assert.NotContains(t, users, int64(7))
}

func TestUserRepository_DeleteAndStats(t *testing.T) {
	testDB := testutil.SetupTestDatabase(t)
	repo := NewUserRepository(testDB.DB)
	withdrawals := NewWithdrawalRepository(testDB.DB)
	ctx := context.Background()

	_, err := repo.Create(ctx, testutil.CreateTestUserWithBalance(1, "a", "0.5"))
	require.NoError(t, err)
	_, err = repo.Create(ctx, testutil.CreateTestUserWithBalance(2, "b", "0.25"))
	require.NoError(t, err)
	_, err = repo.SetReferrer(ctx, 2, 1)
	require.NoError(t, err)
	_, err = repo.Debit(ctx, 1, dec("0.1"))
	require.NoError(t, err)
	require.NoError(t, withdrawals.Create(ctx, testutil.CreateTestWithdrawal(1, "0.1", time.Now())))

	stats, err := repo.GetStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.TotalUsers)
	assert.Equal(t, int64(1), stats.TotalReferrals)
	assert.Equal(t, int64(1), stats.PendingWithdrawals)
	assert.True(t, stats.TotalEarned.Equal(dec("0.75")))
	assert.True(t, stats.TotalWithdrawn.Equal(dec("0.1")))
	assert.True(t, stats.TotalBalance.Equal(dec("0.65")))

	deleted, err := repo.Delete(ctx, 1)
	require.NoError(t, err)
	assert.True(t, deleted)

	deleted, err = repo.Delete(ctx, 1)
	require.NoError(t, err)
	assert.False(t, deleted)

	// The referred user keeps its referrer link
	orphan, err := repo.GetByID(ctx, 2)
	require.NoError(t, err)
	require.NotNil(t, orphan.ReferredBy)
	assert.Equal(t, int64(1), *orphan.ReferredBy)
}
