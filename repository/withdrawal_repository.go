package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"adledger/database"
	"adledger/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const withdrawalColumns = `
	id, user_id, amount, wallet_address, status, requested_at,
	notified_at, notify_attempts, last_error`

// WithdrawalRepository implements the WithdrawalRepository interface
type WithdrawalRepository struct {
	q queryable
}

// NewWithdrawalRepository creates a new withdrawal repository
func NewWithdrawalRepository(db *database.DB) *WithdrawalRepository {
	return &WithdrawalRepository{q: db.Pool}
}

func newWithdrawalRepositoryWithTx(tx queryable) *WithdrawalRepository {
	return &WithdrawalRepository{q: tx}
}

func scanWithdrawal(row pgx.Row) (*models.WithdrawalRequest, error) {
	var request models.WithdrawalRequest
	var status string
	err := row.Scan(
		&request.ID,
		&request.UserID,
		&request.Amount,
		&request.WalletAddress,
		&status,
		&request.RequestedAt,
		&request.NotifiedAt,
		&request.NotifyAttempts,
		&request.LastError,
	)
	if err != nil {
		return nil, err
	}
	request.Status = models.WithdrawalStatus(status)
	return &request, nil
}

func collectWithdrawals(rows pgx.Rows) ([]*models.WithdrawalRequest, error) {
	defer rows.Close()

	var requests []*models.WithdrawalRequest
	for rows.Next() {
		request, err := scanWithdrawal(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan withdrawal request: %w", err)
		}
		requests = append(requests, request)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate withdrawal requests: %w", err)
	}
	return requests, nil
}

// Create inserts a new withdrawal request
func (r *WithdrawalRepository) Create(ctx context.Context, request *models.WithdrawalRequest) error {
	query := `
		INSERT INTO withdrawal_requests (id, user_id, amount, wallet_address, status, requested_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := r.q.Exec(ctx, query,
		request.ID,
		request.UserID,
		request.Amount,
		request.WalletAddress,
		string(request.Status),
		request.RequestedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create withdrawal request for user %d: %w", request.UserID, err)
	}

	return nil
}

// GetByID retrieves a withdrawal request, returning nil when it does not exist
func (r *WithdrawalRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.WithdrawalRequest, error) {
	query := `SELECT ` + withdrawalColumns + ` FROM withdrawal_requests WHERE id = $1`

	request, err := scanWithdrawal(r.q.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get withdrawal request %s: %w", id, err)
	}

	return request, nil
}

// GetByUser returns a user's withdrawal requests, newest first
func (r *WithdrawalRepository) GetByUser(ctx context.Context, userID int64, limit int) ([]*models.WithdrawalRequest, error) {
	query := `
		SELECT ` + withdrawalColumns + `
		FROM withdrawal_requests
		WHERE user_id = $1
		ORDER BY requested_at DESC
		LIMIT $2
	`

	rows, err := r.q.Query(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get withdrawal requests for user %d: %w", userID, err)
	}

	return collectWithdrawals(rows)
}

// ListPending returns pending requests with the fewest delivery attempts first,
// oldest first within the same attempt count. A request that keeps failing
// therefore falls behind requests that have not been tried as often.
func (r *WithdrawalRepository) ListPending(ctx context.Context, limit int) ([]*models.WithdrawalRequest, error) {
	query := `
		SELECT ` + withdrawalColumns + `
		FROM withdrawal_requests
		WHERE status = 'pending'
		ORDER BY notify_attempts ASC, requested_at ASC, id ASC
		LIMIT $1
	`

	rows, err := r.q.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending withdrawal requests: %w", err)
	}

	return collectWithdrawals(rows)
}

// MarkNotified moves a pending request to notified
func (r *WithdrawalRepository) MarkNotified(ctx context.Context, id uuid.UUID, notifiedAt time.Time) (bool, error) {
	query := `
		UPDATE withdrawal_requests
		SET status = 'notified', notified_at = $2, notify_attempts = notify_attempts + 1, last_error = NULL
		WHERE id = $1 AND status = 'pending'
	`

	result, err := r.q.Exec(ctx, query, id, notifiedAt)
	if err != nil {
		return false, fmt.Errorf("failed to mark withdrawal request %s notified: %w", id, err)
	}

	return result.RowsAffected() == 1, nil
}

// RecordNotifyFailure bumps the attempt counter and stores the last error
func (r *WithdrawalRepository) RecordNotifyFailure(ctx context.Context, id uuid.UUID, reason string) error {
	query := `
		UPDATE withdrawal_requests
		SET notify_attempts = notify_attempts + 1, last_error = $2
		WHERE id = $1 AND status = 'pending'
	`

	if _, err := r.q.Exec(ctx, query, id, reason); err != nil {
		return fmt.Errorf("failed to record notify failure for withdrawal request %s: %w", id, err)
	}

	return nil
}
