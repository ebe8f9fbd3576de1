package repository

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"adledger/database"
	"adledger/models"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

const userColumns = `
	id, username, display_name, balance, total_earned, total_withdrawn,
	referral_code, referred_by, referral_count, daily_ads_watched,
	daily_window_date, total_ads_watched, wallet_address,
	created_at, updated_at, last_activity`

// UserRepository implements the UserRepository interface
type UserRepository struct {
	q queryable
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *database.DB) *UserRepository {
	return &UserRepository{q: db.Pool}
}

// newUserRepositoryWithTx creates a new user repository with a transaction
func newUserRepositoryWithTx(tx queryable) *UserRepository {
	return &UserRepository{q: tx}
}

func scanUser(row pgx.Row) (*models.User, error) {
	var user models.User
	err := row.Scan(
		&user.ID,
		&user.Username,
		&user.DisplayName,
		&user.Balance,
		&user.TotalEarned,
		&user.TotalWithdrawn,
		&user.ReferralCode,
		&user.ReferredBy,
		&user.ReferralCount,
		&user.DailyAdsWatched,
		&user.DailyWindowDate,
		&user.TotalAdsWatched,
		&user.WalletAddress,
		&user.CreatedAt,
		&user.UpdatedAt,
		&user.LastActivity,
	)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// queryUser runs a single-row query and maps no rows to (nil, nil)
func (r *UserRepository) queryUser(ctx context.Context, query string, args ...any) (*models.User, error) {
	user, err := scanUser(r.q.QueryRow(ctx, query, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return user, err
}

// GetByID retrieves a user by id
func (r *UserRepository) GetByID(ctx context.Context, id int64) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`

	user, err := r.queryUser(ctx, query, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get user %d: %w", id, err)
	}
	return user, nil
}

// GetByReferralCode retrieves the owner of a referral code
func (r *UserRepository) GetByReferralCode(ctx context.Context, code string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE referral_code = $1`

	user, err := r.queryUser(ctx, query, code)
	if err != nil {
		return nil, fmt.Errorf("failed to get user by referral code: %w", err)
	}
	return user, nil
}

// LockForUpdate row-locks the given users in ascending id order
func (r *UserRepository) LockForUpdate(ctx context.Context, ids ...int64) (map[int64]*models.User, error) {
	sorted := slices.Clone(ids)
	slices.Sort(sorted)
	sorted = slices.Compact(sorted)

	query := `SELECT ` + userColumns + ` FROM users WHERE id = ANY($1) ORDER BY id FOR UPDATE`

	rows, err := r.q.Query(ctx, query, sorted)
	if err != nil {
		return nil, fmt.Errorf("failed to lock users %v: %w", sorted, err)
	}
	defer rows.Close()

	users := make(map[int64]*models.User, len(sorted))
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan locked user: %w", err)
		}
		users[user.ID] = user
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to lock users %v: %w", sorted, err)
	}

	return users, nil
}

// Create inserts a user. It returns false without error when the id or the
// referral code is already taken.
func (r *UserRepository) Create(ctx context.Context, user *models.User) (bool, error) {
	query := `
		INSERT INTO users (
			id, username, display_name, balance, total_earned, total_withdrawn,
			referral_code, created_at, updated_at, last_activity
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $8, $8)
		ON CONFLICT DO NOTHING
		RETURNING created_at, updated_at, last_activity
	`

	createdAt := user.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	err := r.q.QueryRow(ctx, query,
		user.ID,
		user.Username,
		user.DisplayName,
		user.Balance,
		user.TotalEarned,
		user.TotalWithdrawn,
		user.ReferralCode,
		createdAt,
	).Scan(&user.CreatedAt, &user.UpdatedAt, &user.LastActivity)

	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to create user %d: %w", user.ID, err)
	}

	return true, nil
}

// SetReferrer links a user to its referrer unless a referrer is already set
func (r *UserRepository) SetReferrer(ctx context.Context, userID, referrerID int64) (bool, error) {
	query := `
		UPDATE users
		SET referred_by = $2, updated_at = NOW(), last_activity = NOW()
		WHERE id = $1 AND referred_by IS NULL
	`

	result, err := r.q.Exec(ctx, query, userID, referrerID)
	if err != nil {
		return false, fmt.Errorf("failed to set referrer for user %d: %w", userID, err)
	}

	return result.RowsAffected() == 1, nil
}

// AdjustReferralCount changes the referral count by delta, clamped at zero
func (r *UserRepository) AdjustReferralCount(ctx context.Context, id int64, delta int) error {
	query := `
		UPDATE users
		SET referral_count = GREATEST(referral_count + $2, 0), updated_at = NOW()
		WHERE id = $1
	`

	result, err := r.q.Exec(ctx, query, id, delta)
	if err != nil {
		return fmt.Errorf("failed to adjust referral count for user %d: %w", id, err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("user %d not found", id)
	}

	return nil
}

// Credit adds amount to balance and total earned
func (r *UserRepository) Credit(ctx context.Context, id int64, amount decimal.Decimal) (*models.User, error) {
	query := `
		UPDATE users
		SET balance = balance + $2,
		    total_earned = total_earned + $2,
		    updated_at = NOW()
		WHERE id = $1
		RETURNING ` + userColumns

	user, err := r.queryUser(ctx, query, id, amount)
	if err != nil {
		return nil, fmt.Errorf("failed to credit user %d: %w", id, err)
	}
	return user, nil
}

// RecordAdWatch counts one ad against the window for day and credits reward.
// A stored window from another day restarts at one. Returns nil when the
// window for day is already at dailyLimit.
func (r *UserRepository) RecordAdWatch(ctx context.Context, id int64, day time.Time, reward decimal.Decimal, dailyLimit int) (*models.User, error) {
	query := `
		UPDATE users
		SET daily_ads_watched = CASE
		        WHEN daily_window_date = $2 THEN daily_ads_watched + 1
		        ELSE 1
		    END,
		    daily_window_date = $2,
		    total_ads_watched = total_ads_watched + 1,
		    balance = balance + $3,
		    total_earned = total_earned + $3,
		    last_activity = NOW(),
		    updated_at = NOW()
		WHERE id = $1
		  AND (daily_window_date IS DISTINCT FROM $2 OR daily_ads_watched < $4)
		RETURNING ` + userColumns

	user, err := r.queryUser(ctx, query, id, day, reward, dailyLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to record ad watch for user %d: %w", id, err)
	}
	return user, nil
}

// Debit subtracts amount from balance and adds it to total withdrawn.
// Returns nil when the balance does not cover amount.
func (r *UserRepository) Debit(ctx context.Context, id int64, amount decimal.Decimal) (*models.User, error) {
	query := `
		UPDATE users
		SET balance = balance - $2,
		    total_withdrawn = total_withdrawn + $2,
		    last_activity = NOW(),
		    updated_at = NOW()
		WHERE id = $1 AND balance >= $2
		RETURNING ` + userColumns

	user, err := r.queryUser(ctx, query, id, amount)
	if err != nil {
		return nil, fmt.Errorf("failed to debit user %d: %w", id, err)
	}
	return user, nil
}

// UpdateWalletAddress stores a user's payout address
func (r *UserRepository) UpdateWalletAddress(ctx context.Context, id int64, address string) (*models.User, error) {
	query := `
		UPDATE users
		SET wallet_address = $2, updated_at = NOW(), last_activity = NOW()
		WHERE id = $1
		RETURNING ` + userColumns

	user, err := r.queryUser(ctx, query, id, address)
	if err != nil {
		return nil, fmt.Errorf("failed to update wallet address for user %d: %w", id, err)
	}
	return user, nil
}

// ListReferrals returns the users referred by referrerID, newest first
func (r *UserRepository) ListReferrals(ctx context.Context, referrerID int64, limit int) ([]*models.User, error) {
	query := `
		SELECT ` + userColumns + `
		FROM users
		WHERE referred_by = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2
	`

	rows, err := r.q.Query(ctx, query, referrerID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list referrals of user %d: %w", referrerID, err)
	}
	defer rows.Close()

	var users []*models.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan referral: %w", err)
		}
		users = append(users, user)
	}

	return users, rows.Err()
}

// Delete removes a user together with its balance history and earnings
func (r *UserRepository) Delete(ctx context.Context, id int64) (bool, error) {
	result, err := r.q.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("failed to delete user %d: %w", id, err)
	}
	return result.RowsAffected() == 1, nil
}

// GetStats returns aggregated ledger statistics
func (r *UserRepository) GetStats(ctx context.Context) (*models.LedgerStats, error) {
	query := `
		SELECT
			COUNT(*),
			COALESCE(SUM(total_ads_watched), 0)::BIGINT,
			COALESCE(SUM(total_earned), 0),
			COALESCE(SUM(total_withdrawn), 0),
			COALESCE(SUM(balance), 0),
			COUNT(referred_by),
			(SELECT COUNT(*) FROM withdrawal_requests WHERE status = 'pending')
		FROM users
	`

	var stats models.LedgerStats
	err := r.q.QueryRow(ctx, query).Scan(
		&stats.TotalUsers,
		&stats.TotalAdsWatched,
		&stats.TotalEarned,
		&stats.TotalWithdrawn,
		&stats.TotalBalance,
		&stats.TotalReferrals,
		&stats.PendingWithdrawals,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get ledger stats: %w", err)
	}

	return &stats, nil
}
