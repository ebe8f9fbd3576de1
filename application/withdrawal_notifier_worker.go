package application

import (
	"context"
	"sync"
	"time"

	"adledger/events"
	"adledger/models"
	"adledger/service"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// WithdrawalNotifier delivers a pending withdrawal request to one channel
type WithdrawalNotifier interface {
	// Name identifies the channel in logs and metrics
	Name() string

	NotifyWithdrawal(ctx context.Context, request *models.WithdrawalRequest) error
}

// NotificationRecorder receives one observation per notification attempt
type NotificationRecorder interface {
	RecordWithdrawalNotification(channel string, success bool)
}

// WithdrawalNotifierWorker delivers pending withdrawal requests downstream.
// The webhook decides whether a request becomes notified. Announcers (admin
// chats) are told about each request once per process and never block it.
type WithdrawalNotifierWorker struct {
	withdrawals service.WithdrawalService
	webhook     WithdrawalNotifier
	announcers  []WithdrawalNotifier
	recorder    NotificationRecorder
	interval    time.Duration
	batchSize   int

	nudge     chan struct{}
	mu        sync.Mutex
	announced map[uuid.UUID]struct{}
}

// NewWithdrawalNotifierWorker creates a worker. webhook may be nil, in which
// case requests stay pending.
func NewWithdrawalNotifierWorker(
	withdrawals service.WithdrawalService,
	webhook WithdrawalNotifier,
	announcers []WithdrawalNotifier,
	recorder NotificationRecorder,
	interval time.Duration,
	batchSize int,
) *WithdrawalNotifierWorker {
	if interval <= 0 {
		interval = 10 * time.Second
	}
	if batchSize <= 0 {
		batchSize = 50
	}

	return &WithdrawalNotifierWorker{
		withdrawals: withdrawals,
		webhook:     webhook,
		announcers:  announcers,
		recorder:    recorder,
		interval:    interval,
		batchSize:   batchSize,
		nudge:       make(chan struct{}, 1),
		announced:   make(map[uuid.UUID]struct{}),
	}
}

// Subscribe wakes the worker whenever a withdrawal request is committed
func (w *WithdrawalNotifierWorker) Subscribe(bus *events.Bus) {
	bus.Subscribe(events.EventTypeWithdrawalRequested, func(ctx context.Context, event events.Event) {
		w.Nudge()
	})
}

// Nudge schedules an immediate pass without waiting for the next tick
func (w *WithdrawalNotifierWorker) Nudge() {
	select {
	case w.nudge <- struct{}{}:
	default:
	}
}

// Start runs the worker until ctx is cancelled or the returned stop function is called
func (w *WithdrawalNotifierWorker) Start(ctx context.Context) func() {
	ticker := time.NewTicker(w.interval)
	stopChan := make(chan struct{})
	done := make(chan struct{})

	go func() {
		defer close(done)
		defer ticker.Stop()

		log.WithField("interval", w.interval).Info("Withdrawal notifier worker started")

		// Run immediately on startup
		w.ProcessPending(ctx)

		for {
			select {
			case <-ctx.Done():
				log.Info("Withdrawal notifier worker shutting down (context cancelled)...")
				return
			case <-stopChan:
				log.Info("Withdrawal notifier worker shutting down (stop requested)...")
				return
			case <-ticker.C:
				w.ProcessPending(ctx)
			case <-w.nudge:
				w.ProcessPending(ctx)
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			close(stopChan)
			<-done
		})
	}
}

// ProcessPending handles one batch of pending requests and returns how many became notified
func (w *WithdrawalNotifierWorker) ProcessPending(ctx context.Context) int {
	pending, err := w.withdrawals.ListPendingWithdrawals(ctx, w.batchSize)
	if err != nil {
		log.WithError(err).Error("Failed to load pending withdrawals")
		return 0
	}

	w.forgetSettled(pending)

	if len(pending) == 0 {
		return 0
	}

	log.WithField("count", len(pending)).Debug("Processing pending withdrawals")

	notified := 0
	for _, request := range pending {
		if ctx.Err() != nil {
			break
		}

		w.announce(ctx, request)

		if w.deliver(ctx, request) {
			notified++
		}
	}

	return notified
}

// deliver sends the request to the webhook and records the outcome
func (w *WithdrawalNotifierWorker) deliver(ctx context.Context, request *models.WithdrawalRequest) bool {
	if w.webhook == nil {
		return false
	}

	fields := log.Fields{
		"withdrawalId": request.ID,
		"userId":       request.UserID,
		"attempt":      request.NotifyAttempts + 1,
	}

	err := w.webhook.NotifyWithdrawal(ctx, request)
	w.record(w.webhook.Name(), err == nil)

	if err != nil {
		log.WithFields(fields).WithError(err).Warn("Withdrawal webhook delivery failed, request stays pending")
		if recErr := w.withdrawals.RecordNotificationFailure(ctx, request.ID, err.Error()); recErr != nil {
			log.WithFields(fields).WithError(recErr).Error("Failed to record withdrawal notification failure")
		}
		return false
	}

	if _, err := w.withdrawals.MarkWithdrawalNotified(ctx, request.ID); err != nil {
		log.WithFields(fields).WithError(err).Error("Failed to mark withdrawal as notified")
		return false
	}

	log.WithFields(fields).Info("Withdrawal request delivered")
	return true
}

// announce posts the request to every admin channel the first time it is seen
func (w *WithdrawalNotifierWorker) announce(ctx context.Context, request *models.WithdrawalRequest) {
	if len(w.announcers) == 0 {
		return
	}

	w.mu.Lock()
	_, seen := w.announced[request.ID]
	w.announced[request.ID] = struct{}{}
	w.mu.Unlock()

	if seen {
		return
	}

	for _, announcer := range w.announcers {
		err := announcer.NotifyWithdrawal(ctx, request)
		w.record(announcer.Name(), err == nil)
		if err != nil {
			log.WithFields(log.Fields{
				"withdrawalId": request.ID,
				"channel":      announcer.Name(),
			}).WithError(err).Warn("Failed to announce withdrawal request")
		}
	}
}

// forgetSettled drops announce markers for requests that are no longer pending.
// Only applies when the whole backlog fits in one batch.
func (w *WithdrawalNotifierWorker) forgetSettled(pending []*models.WithdrawalRequest) {
	if len(pending) >= w.batchSize {
		return
	}

	stillPending := make(map[uuid.UUID]struct{}, len(pending))
	for _, request := range pending {
		stillPending[request.ID] = struct{}{}
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	for id := range w.announced {
		if _, ok := stillPending[id]; !ok {
			delete(w.announced, id)
		}
	}
}

func (w *WithdrawalNotifierWorker) record(channel string, success bool) {
	if w.recorder != nil {
		w.recorder.RecordWithdrawalNotification(channel, success)
	}
}
