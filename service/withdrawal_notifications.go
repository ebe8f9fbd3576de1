package service

import (
	"context"
	"time"

	"adledger/events"
	"adledger/models"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// ListPendingWithdrawals returns requests still waiting for a successful notification.
// Requests with fewer failed attempts come first so a failing request cannot hold back newer ones.
func (l *Ledger) ListPendingWithdrawals(ctx context.Context, limit int) (requests []*models.WithdrawalRequest, err error) {
	defer l.observe("list_pending_withdrawals", time.Now(), &err)
	ctx, cancel := l.withTimeout(ctx)
	defer cancel()

	uow := l.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, storageError("list_pending_withdrawals", err)
	}
	defer uow.Rollback()

	requests, err = uow.WithdrawalRepository().ListPending(ctx, clampLimit(limit))
	if err != nil {
		return nil, storageError("list_pending_withdrawals", err)
	}
	return requests, nil
}

// MarkWithdrawalNotified moves a pending request to notified. Marking an already
// notified request returns it unchanged.
func (l *Ledger) MarkWithdrawalNotified(ctx context.Context, id uuid.UUID) (request *models.WithdrawalRequest, err error) {
	defer l.observe("mark_withdrawal_notified", time.Now(), &err)
	ctx, cancel := l.withTimeout(ctx)
	defer cancel()

	uow := l.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, storageError("mark_withdrawal_notified", err)
	}
	defer uow.Rollback()

	withdrawalRepo := uow.WithdrawalRepository()

	now := l.now().UTC()
	marked, err := withdrawalRepo.MarkNotified(ctx, id, now)
	if err != nil {
		return nil, storageError("mark_withdrawal_notified", err)
	}

	request, err = withdrawalRepo.GetByID(ctx, id)
	if err != nil {
		return nil, storageError("mark_withdrawal_notified", err)
	}
	if request == nil {
		return nil, ErrNotFound
	}

	if marked {
		uow.EventBus().Publish(events.WithdrawalNotifiedEvent{
			WithdrawalID: id,
			UserID:       request.UserID,
			NotifiedAt:   now,
		})
	}

	if err := uow.Commit(); err != nil {
		return nil, storageError("mark_withdrawal_notified", err)
	}

	if marked {
		log.WithFields(log.Fields{
			"withdrawalID": id,
			"userID":       request.UserID,
		}).Info("Withdrawal request notified")
	}

	return request, nil
}

// RecordNotificationFailure stores a failed delivery attempt; the request stays pending
func (l *Ledger) RecordNotificationFailure(ctx context.Context, id uuid.UUID, reason string) (err error) {
	defer l.observe("record_notification_failure", time.Now(), &err)
	ctx, cancel := l.withTimeout(ctx)
	defer cancel()

	uow := l.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return storageError("record_notification_failure", err)
	}
	defer uow.Rollback()

	if err := uow.WithdrawalRepository().RecordNotifyFailure(ctx, id, reason); err != nil {
		return storageError("record_notification_failure", err)
	}

	return storageError("record_notification_failure", uow.Commit())
}
