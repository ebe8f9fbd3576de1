package repository

import (
	"context"
	"errors"
	"fmt"

	"adledger/database"
	"adledger/models"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// ReferralEarningRepository implements the ReferralEarningRepository interface
type ReferralEarningRepository struct {
	q queryable
}

// NewReferralEarningRepository creates a new referral earning repository
func NewReferralEarningRepository(db *database.DB) *ReferralEarningRepository {
	return &ReferralEarningRepository{q: db.Pool}
}

func newReferralEarningRepositoryWithTx(tx queryable) *ReferralEarningRepository {
	return &ReferralEarningRepository{q: tx}
}

// Record appends an earning. A second signup bonus for the same pair is ignored
// and reported as false.
func (r *ReferralEarningRepository) Record(ctx context.Context, earning *models.ReferralEarning) (bool, error) {
	query := `
		INSERT INTO referral_earnings (referrer_id, source_user_id, amount, kind)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (referrer_id, source_user_id) WHERE kind = 'signup_bonus' DO NOTHING
		RETURNING id, created_at
	`

	err := r.q.QueryRow(ctx, query,
		earning.ReferrerID,
		earning.SourceUserID,
		earning.Amount,
		string(earning.Kind),
	).Scan(&earning.ID, &earning.CreatedAt)

	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to record %s earning for referrer %d: %w", earning.Kind, earning.ReferrerID, err)
	}

	return true, nil
}

// SumByReferrer returns the total commission and total signup bonus paid to a referrer
func (r *ReferralEarningRepository) SumByReferrer(ctx context.Context, referrerID int64) (decimal.Decimal, decimal.Decimal, error) {
	query := `
		SELECT
			COALESCE(SUM(amount) FILTER (WHERE kind = 'commission'), 0),
			COALESCE(SUM(amount) FILTER (WHERE kind = 'signup_bonus'), 0)
		FROM referral_earnings
		WHERE referrer_id = $1
	`

	var commission, signupBonus decimal.Decimal
	if err := r.q.QueryRow(ctx, query, referrerID).Scan(&commission, &signupBonus); err != nil {
		return decimal.Zero, decimal.Zero, fmt.Errorf("failed to sum earnings for referrer %d: %w", referrerID, err)
	}

	return commission, signupBonus, nil
}
