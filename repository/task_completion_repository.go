package repository

import (
	"context"
	"errors"
	"fmt"

	"adledger/database"
	"adledger/models"

	"github.com/jackc/pgx/v5"
)

// TaskCompletionRepository implements the TaskCompletionRepository interface
type TaskCompletionRepository struct {
	q queryable
}

// NewTaskCompletionRepository creates a new task completion repository
func NewTaskCompletionRepository(db *database.DB) *TaskCompletionRepository {
	return &TaskCompletionRepository{q: db.Pool}
}

func newTaskCompletionRepositoryWithTx(tx queryable) *TaskCompletionRepository {
	return &TaskCompletionRepository{q: tx}
}

// Record stores a completion. It returns false without error when the user
// already completed the task.
func (r *TaskCompletionRepository) Record(ctx context.Context, completion *models.TaskCompletion) (bool, error) {
	query := `
		INSERT INTO task_completions (user_id, task, bonus, completed_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id, task) DO NOTHING
		RETURNING completed_at
	`

	err := r.q.QueryRow(ctx, query,
		completion.UserID,
		string(completion.Task),
		completion.Bonus,
		completion.CompletedAt,
	).Scan(&completion.CompletedAt)

	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to record task %s for user %d: %w", completion.Task, completion.UserID, err)
	}

	return true, nil
}

// GetByUser returns the tasks a user completed, oldest first
func (r *TaskCompletionRepository) GetByUser(ctx context.Context, userID int64) ([]*models.TaskCompletion, error) {
	query := `
		SELECT user_id, task, bonus, completed_at
		FROM task_completions
		WHERE user_id = $1
		ORDER BY completed_at ASC, task ASC
	`

	rows, err := r.q.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get task completions for user %d: %w", userID, err)
	}
	defer rows.Close()

	var completions []*models.TaskCompletion
	for rows.Next() {
		var completion models.TaskCompletion
		var task string
		if err := rows.Scan(&completion.UserID, &task, &completion.Bonus, &completion.CompletedAt); err != nil {
			return nil, fmt.Errorf("failed to scan task completion: %w", err)
		}
		completion.Task = models.TaskType(task)
		completions = append(completions, &completion)
	}

	return completions, rows.Err()
}
