package service

import (
	"context"
	"time"

	"adledger/events"
	"adledger/models"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

// taskBonus returns the configured bonus for task
func (l *Ledger) taskBonus(task models.TaskType) (decimal.Decimal, bool) {
	switch task {
	case models.TaskJoinChannel:
		return l.rules.ChannelJoinBonus, true
	case models.TaskJoinGroup:
		return l.rules.GroupJoinBonus, true
	default:
		return decimal.Zero, false
	}
}

// CompleteTask records a one-off task and pays its bonus the first time. Repeating a
// completed task succeeds without paying again.
func (l *Ledger) CompleteTask(ctx context.Context, userID int64, task models.TaskType) (outcome *models.TaskOutcome, err error) {
	defer l.observe("complete_task", time.Now(), &err)

	bonus, ok := l.taskBonus(task)
	if !ok {
		return nil, ErrUnknownTask
	}

	ctx, cancel := l.withTimeout(ctx)
	defer cancel()

	unlock := l.locks.Lock(userID)
	defer unlock()

	uow := l.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, storageError("complete_task", err)
	}
	defer uow.Rollback()

	locked, err := uow.UserRepository().LockForUpdate(ctx, userID)
	if err != nil {
		return nil, storageError("complete_task", err)
	}
	user := locked[userID]
	if user == nil {
		return nil, ErrNotFound
	}

	recorded, err := uow.TaskCompletionRepository().Record(ctx, &models.TaskCompletion{
		UserID:      userID,
		Task:        task,
		Bonus:       bonus,
		CompletedAt: l.now().UTC(),
	})
	if err != nil {
		return nil, storageError("complete_task", err)
	}
	if !recorded {
		return &models.TaskOutcome{
			User:  user,
			Task:  task,
			Bonus: decimal.Zero,
		}, nil
	}

	if bonus.IsPositive() {
		user, err = l.creditRelated(ctx, uow, userID, bonus, models.TransactionTypeTaskBonus, string(task), models.RelatedTypeTask)
		if err != nil {
			return nil, err
		}
	}

	uow.EventBus().Publish(events.TaskCompletedEvent{
		UserID: userID,
		Task:   task,
		Bonus:  bonus,
	})

	if err := uow.Commit(); err != nil {
		return nil, storageError("complete_task", err)
	}

	l.invalidate(ctx, userID)

	log.WithFields(log.Fields{
		"userID": userID,
		"task":   task,
		"bonus":  bonus.String(),
	}).Info("Completed task")

	return &models.TaskOutcome{
		User:            user,
		Task:            task,
		Bonus:           bonus,
		FirstCompletion: true,
	}, nil
}

// ListCompletedTasks returns the tasks a user completed, oldest first
func (l *Ledger) ListCompletedTasks(ctx context.Context, userID int64) (completions []*models.TaskCompletion, err error) {
	defer l.observe("list_completed_tasks", time.Now(), &err)
	ctx, cancel := l.withTimeout(ctx)
	defer cancel()

	uow := l.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, storageError("list_completed_tasks", err)
	}
	defer uow.Rollback()

	user, err := uow.UserRepository().GetByID(ctx, userID)
	if err != nil {
		return nil, storageError("list_completed_tasks", err)
	}
	if user == nil {
		return nil, ErrNotFound
	}

	completions, err = uow.TaskCompletionRepository().GetByUser(ctx, userID)
	if err != nil {
		return nil, storageError("list_completed_tasks", err)
	}
	return completions, nil
}
