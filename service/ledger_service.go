package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"adledger/config"
	"adledger/events"
	"adledger/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

// errReferrerChanged signals that a referrer was attached between the pre-read and the lock
var errReferrerChanged = errors.New("referrer changed while acquiring locks")

// Ledger owns balances, the referral graph, daily ad counters and withdrawal requests
type Ledger struct {
	uowFactory     UnitOfWorkFactory
	rules          config.LedgerRules
	addresses      *AddressValidator
	locks          *UserLocks
	cache          ReadCache
	recorder       OperationRecorder
	storageTimeout time.Duration
	now            func() time.Time
}

var (
	_ LedgerService     = (*Ledger)(nil)
	_ WithdrawalService = (*Ledger)(nil)
)

// Option customises a Ledger
type Option func(*Ledger)

// WithCache serves GetUser and GetDatabaseStats through a bounded-staleness cache
func WithCache(cache ReadCache) Option {
	return func(l *Ledger) {
		l.cache = cache
	}
}

// WithOperationRecorder reports every operation outcome, typically to metrics
func WithOperationRecorder(recorder OperationRecorder) Option {
	return func(l *Ledger) {
		l.recorder = recorder
	}
}

// WithStorageTimeout bounds every operation's storage work
func WithStorageTimeout(timeout time.Duration) Option {
	return func(l *Ledger) {
		l.storageTimeout = timeout
	}
}

// WithClock replaces the wall clock used for daily windows and timestamps
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) {
		l.now = now
	}
}

// NewLedgerService creates a ledger over the given unit of work factory
func NewLedgerService(uowFactory UnitOfWorkFactory, rules config.LedgerRules, opts ...Option) (*Ledger, error) {
	if err := rules.Validate(); err != nil {
		return nil, fmt.Errorf("invalid ledger rules: %w", err)
	}

	addresses, err := NewAddressValidator(rules.WalletAddressPattern)
	if err != nil {
		return nil, err
	}

	l := &Ledger{
		uowFactory:     uowFactory,
		rules:          rules,
		addresses:      addresses,
		locks:          NewUserLocks(),
		storageTimeout: 5 * time.Second,
		now:            time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}

	return l, nil
}

// Rules returns the ledger rules in force
func (l *Ledger) Rules() config.LedgerRules {
	return l.rules
}

// GetOrCreateUser returns the user with id, creating it with the welcome bonus and a
// fresh referral code on first contact
func (l *Ledger) GetOrCreateUser(ctx context.Context, id int64, profile models.Profile) (user *models.User, err error) {
	defer l.observe("get_or_create_user", time.Now(), &err)
	ctx, cancel := l.withTimeout(ctx)
	defer cancel()

	uow := l.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, storageError("get_or_create_user", err)
	}
	defer uow.Rollback()

	userRepo := uow.UserRepository()

	existing, err := userRepo.GetByID(ctx, id)
	if err != nil {
		return nil, storageError("get_or_create_user", err)
	}
	if existing != nil {
		return existing, nil
	}

	for attempt := 0; attempt < maxReferralCodeAttempts; attempt++ {
		code, err := GenerateReferralCode()
		if err != nil {
			return nil, storageError("get_or_create_user", err)
		}

		now := l.now().UTC()
		candidate := &models.User{
			ID:             id,
			Username:       profile.Username,
			DisplayName:    profile.DisplayName,
			Balance:        l.rules.WelcomeBonus,
			TotalEarned:    l.rules.WelcomeBonus,
			TotalWithdrawn: decimal.Zero,
			ReferralCode:   code,
			CreatedAt:      now,
			UpdatedAt:      now,
			LastActivity:   now,
		}

		created, err := userRepo.Create(ctx, candidate)
		if err != nil {
			return nil, storageError("get_or_create_user", err)
		}

		if !created {
			// Either a concurrent request created this user or the code collided
			existing, err := userRepo.GetByID(ctx, id)
			if err != nil {
				return nil, storageError("get_or_create_user", err)
			}
			if existing != nil {
				return existing, nil
			}
			log.WithFields(log.Fields{
				"userID":  id,
				"attempt": attempt + 1,
			}).Warn("Referral code collision, regenerating")
			continue
		}

		if l.rules.WelcomeBonus.IsPositive() {
			history := &models.BalanceHistory{
				UserID:          id,
				BalanceBefore:   decimal.Zero,
				BalanceAfter:    l.rules.WelcomeBonus,
				ChangeAmount:    l.rules.WelcomeBonus,
				TransactionType: models.TransactionTypeWelcomeBonus,
				TransactionMetadata: map[string]any{
					"username": profile.Username,
				},
			}
			if err := RecordBalanceChange(ctx, uow, history); err != nil {
				return nil, storageError("get_or_create_user", err)
			}
		}

		uow.EventBus().Publish(events.UserCreatedEvent{
			UserID:         id,
			Username:       profile.Username,
			ReferralCode:   code,
			InitialBalance: l.rules.WelcomeBonus,
		})

		if err := uow.Commit(); err != nil {
			return nil, storageError("get_or_create_user", err)
		}

		l.invalidate(ctx, id)

		log.WithFields(log.Fields{
			"userID":       id,
			"username":     profile.Username,
			"referralCode": code,
		}).Info("Created user")

		return candidate, nil
	}

	return nil, &StorageError{
		Op:  "get_or_create_user",
		Err: fmt.Errorf("could not allocate a unique referral code after %d attempts", maxReferralCodeAttempts),
	}
}

// AttachReferral links newUserID to the owner of referrerCode and credits both
// configured bonuses. The AlreadyReferred guard makes a duplicate call a no-op.
func (l *Ledger) AttachReferral(ctx context.Context, newUserID int64, referrerCode string) (outcome *models.ReferralOutcome, err error) {
	defer l.observe("attach_referral", time.Now(), &err)
	ctx, cancel := l.withTimeout(ctx)
	defer cancel()

	referrerCode = strings.TrimSpace(referrerCode)
	if referrerCode == "" {
		return nil, ErrNotFound
	}

	// Referral codes are immutable, so the owner can be resolved before locking
	referrer, err := l.readReferrerByCode(ctx, referrerCode)
	if err != nil {
		return nil, err
	}
	if referrer == nil {
		return nil, ErrNotFound
	}
	if referrer.ID == newUserID {
		return nil, ErrSelfReferral
	}

	unlock := l.locks.Lock(newUserID, referrer.ID)
	defer unlock()

	uow := l.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, storageError("attach_referral", err)
	}
	defer uow.Rollback()

	userRepo := uow.UserRepository()

	locked, err := userRepo.LockForUpdate(ctx, newUserID, referrer.ID)
	if err != nil {
		return nil, storageError("attach_referral", err)
	}
	newUser, referrer := locked[newUserID], locked[referrer.ID]
	if newUser == nil || referrer == nil {
		return nil, ErrNotFound
	}
	if newUser.ReferredBy != nil {
		return nil, ErrAlreadyReferred
	}

	linked, err := userRepo.SetReferrer(ctx, newUserID, referrer.ID)
	if err != nil {
		return nil, storageError("attach_referral", err)
	}
	if !linked {
		return nil, ErrAlreadyReferred
	}

	if err := userRepo.AdjustReferralCount(ctx, referrer.ID, 1); err != nil {
		return nil, storageError("attach_referral", err)
	}

	// The signup entry doubles as the once-per-pair guard for both bonuses
	paid, err := uow.ReferralEarningRepository().Record(ctx, &models.ReferralEarning{
		ReferrerID:   referrer.ID,
		SourceUserID: newUserID,
		Amount:       l.rules.ReferrerBonus,
		Kind:         models.ReferralEarningSignupBonus,
	})
	if err != nil {
		return nil, storageError("attach_referral", err)
	}

	outcome = &models.ReferralOutcome{
		ReferrerBonus: decimal.Zero,
		ReferredBonus: decimal.Zero,
		BonusPaid:     paid,
	}

	if paid {
		if l.rules.ReferrerBonus.IsPositive() {
			if _, err := l.credit(ctx, uow, referrer.ID, l.rules.ReferrerBonus, models.TransactionTypeReferralBonusReferrer, newUserID); err != nil {
				return nil, err
			}
			outcome.ReferrerBonus = l.rules.ReferrerBonus
		}
		if l.rules.ReferredBonus.IsPositive() {
			if _, err := l.credit(ctx, uow, newUserID, l.rules.ReferredBonus, models.TransactionTypeReferralBonusReferred, referrer.ID); err != nil {
				return nil, err
			}
			outcome.ReferredBonus = l.rules.ReferredBonus
		}
	}

	refreshed, err := userRepo.LockForUpdate(ctx, newUserID, referrer.ID)
	if err != nil {
		return nil, storageError("attach_referral", err)
	}
	outcome.User = refreshed[newUserID]
	outcome.Referrer = refreshed[referrer.ID]

	uow.EventBus().Publish(events.ReferralAttachedEvent{
		UserID:        newUserID,
		ReferrerID:    referrer.ID,
		ReferrerBonus: outcome.ReferrerBonus,
		ReferredBonus: outcome.ReferredBonus,
	})

	if err := uow.Commit(); err != nil {
		return nil, storageError("attach_referral", err)
	}

	l.invalidate(ctx, newUserID, referrer.ID)

	log.WithFields(log.Fields{
		"userID":     newUserID,
		"referrerID": referrer.ID,
		"bonusPaid":  paid,
	}).Info("Attached referral")

	return outcome, nil
}

// RecordAdWatch credits one rewarded ad view. The caller vouches that the ad was shown
// for the configured duration.
func (l *Ledger) RecordAdWatch(ctx context.Context, userID int64) (outcome *models.RewardOutcome, err error) {
	defer l.observe("record_ad_watch", time.Now(), &err)
	ctx, cancel := l.withTimeout(ctx)
	defer cancel()

	for {
		outcome, err = l.recordAdWatchOnce(ctx, userID)
		if !errors.Is(err, errReferrerChanged) {
			return outcome, err
		}
	}
}

func (l *Ledger) recordAdWatchOnce(ctx context.Context, userID int64) (*models.RewardOutcome, error) {
	current, err := l.readUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if current == nil {
		return nil, ErrNotFound
	}

	lockIDs := []int64{userID}
	if current.ReferredBy != nil {
		lockIDs = append(lockIDs, *current.ReferredBy)
	}
	unlock := l.locks.Lock(lockIDs...)
	defer unlock()

	uow := l.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, storageError("record_ad_watch", err)
	}
	defer uow.Rollback()

	userRepo := uow.UserRepository()

	locked, err := userRepo.LockForUpdate(ctx, lockIDs...)
	if err != nil {
		return nil, storageError("record_ad_watch", err)
	}
	user := locked[userID]
	if user == nil {
		return nil, ErrNotFound
	}
	if !sameReferrer(user.ReferredBy, current.ReferredBy) {
		return nil, errReferrerChanged
	}

	now := l.now().UTC()
	if user.AdsWatchedOn(now) >= l.rules.DailyAdLimit {
		return nil, ErrDailyLimitExceeded
	}

	reward := l.rules.RewardPerAd
	updated, err := userRepo.RecordAdWatch(ctx, userID, WindowDate(now), reward, l.rules.DailyAdLimit)
	if err != nil {
		return nil, storageError("record_ad_watch", err)
	}
	if updated == nil {
		return nil, ErrDailyLimitExceeded
	}

	if reward.IsPositive() {
		history := &models.BalanceHistory{
			UserID:          userID,
			BalanceBefore:   updated.Balance.Sub(reward),
			BalanceAfter:    updated.Balance,
			ChangeAmount:    reward,
			TransactionType: models.TransactionTypeAdReward,
			TransactionMetadata: map[string]any{
				"daily_ads_watched": updated.DailyAdsWatched,
				"window":            WindowDate(now).Format(time.DateOnly),
			},
		}
		if err := RecordBalanceChange(ctx, uow, history); err != nil {
			return nil, storageError("record_ad_watch", err)
		}
	}

	outcome := &models.RewardOutcome{
		User:            updated,
		Reward:          reward,
		DailyAdsWatched: updated.DailyAdsWatched,
		DailyLimit:      l.rules.DailyAdLimit,
		Commission:      decimal.Zero,
	}

	invalidateIDs := []int64{userID}
	if user.ReferredBy != nil && locked[*user.ReferredBy] != nil {
		referrerID := *user.ReferredBy
		outcome.ReferrerID = &referrerID

		commission := reward.Mul(l.rules.CommissionRate).Truncate(models.MoneyScale)
		if commission.IsPositive() {
			if _, err := l.credit(ctx, uow, referrerID, commission, models.TransactionTypeReferralCommission, userID); err != nil {
				return nil, err
			}
			if _, err := uow.ReferralEarningRepository().Record(ctx, &models.ReferralEarning{
				ReferrerID:   referrerID,
				SourceUserID: userID,
				Amount:       commission,
				Kind:         models.ReferralEarningCommission,
			}); err != nil {
				return nil, storageError("record_ad_watch", err)
			}
			outcome.Commission = commission
			invalidateIDs = append(invalidateIDs, referrerID)
		}
	}

	uow.EventBus().Publish(events.AdWatchedEvent{
		UserID:          userID,
		Reward:          reward,
		DailyAdsWatched: updated.DailyAdsWatched,
		ReferrerID:      outcome.ReferrerID,
		Commission:      outcome.Commission,
	})

	if err := uow.Commit(); err != nil {
		return nil, storageError("record_ad_watch", err)
	}

	l.invalidate(ctx, invalidateIDs...)

	log.WithFields(log.Fields{
		"userID":          userID,
		"dailyAdsWatched": updated.DailyAdsWatched,
		"reward":          reward.String(),
		"commission":      outcome.Commission.String(),
	}).Debug("Recorded ad watch")

	return outcome, nil
}

// RequestWithdrawal debits amount and creates a pending withdrawal request in one
// transaction. Moving real funds is left to the withdrawal notifier.
func (l *Ledger) RequestWithdrawal(ctx context.Context, userID int64, amount decimal.Decimal, walletAddress string) (request *models.WithdrawalRequest, err error) {
	defer l.observe("request_withdrawal", time.Now(), &err)

	address, err := l.addresses.Normalize(walletAddress)
	if err != nil {
		return nil, err
	}
	if !amount.IsPositive() || amount.LessThan(l.rules.MinimumWithdrawal) {
		return nil, ErrBelowMinimum
	}
	if !amount.Equal(amount.Truncate(models.MoneyScale)) {
		return nil, ErrInvalidAmount
	}

	ctx, cancel := l.withTimeout(ctx)
	defer cancel()

	unlock := l.locks.Lock(userID)
	defer unlock()

	uow := l.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, storageError("request_withdrawal", err)
	}
	defer uow.Rollback()

	userRepo := uow.UserRepository()

	locked, err := userRepo.LockForUpdate(ctx, userID)
	if err != nil {
		return nil, storageError("request_withdrawal", err)
	}
	user := locked[userID]
	if user == nil {
		return nil, ErrNotFound
	}
	if amount.GreaterThan(user.Balance) {
		return nil, ErrInsufficientBalance
	}

	updated, err := userRepo.Debit(ctx, userID, amount)
	if err != nil {
		return nil, storageError("request_withdrawal", err)
	}
	if updated == nil {
		return nil, ErrInsufficientBalance
	}

	request = &models.WithdrawalRequest{
		ID:            uuid.New(),
		UserID:        userID,
		Amount:        amount,
		WalletAddress: address,
		Status:        models.WithdrawalStatusPending,
		RequestedAt:   l.now().UTC(),
	}
	if err := uow.WithdrawalRepository().Create(ctx, request); err != nil {
		return nil, storageError("request_withdrawal", err)
	}

	relatedID := request.ID.String()
	relatedType := models.RelatedTypeWithdrawal
	history := &models.BalanceHistory{
		UserID:          userID,
		BalanceBefore:   user.Balance,
		BalanceAfter:    updated.Balance,
		ChangeAmount:    amount.Neg(),
		TransactionType: models.TransactionTypeWithdrawal,
		TransactionMetadata: map[string]any{
			"wallet_address": address,
		},
		RelatedID:   &relatedID,
		RelatedType: &relatedType,
	}
	if err := RecordBalanceChange(ctx, uow, history); err != nil {
		return nil, storageError("request_withdrawal", err)
	}

	uow.EventBus().Publish(events.WithdrawalRequestedEvent{
		WithdrawalID:  request.ID,
		UserID:        userID,
		Amount:        amount,
		WalletAddress: address,
		RequestedAt:   request.RequestedAt,
	})

	if err := uow.Commit(); err != nil {
		return nil, storageError("request_withdrawal", err)
	}

	l.invalidate(ctx, userID)

	log.WithFields(log.Fields{
		"userID":       userID,
		"withdrawalID": request.ID,
		"amount":       amount.String(),
	}).Info("Accepted withdrawal request")

	return request, nil
}

// UpdateWalletAddress validates and stores a payout address
func (l *Ledger) UpdateWalletAddress(ctx context.Context, userID int64, walletAddress string) (user *models.User, err error) {
	defer l.observe("update_wallet_address", time.Now(), &err)

	address, err := l.addresses.Normalize(walletAddress)
	if err != nil {
		return nil, err
	}

	ctx, cancel := l.withTimeout(ctx)
	defer cancel()

	unlock := l.locks.Lock(userID)
	defer unlock()

	uow := l.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, storageError("update_wallet_address", err)
	}
	defer uow.Rollback()

	user, err = uow.UserRepository().UpdateWalletAddress(ctx, userID, address)
	if err != nil {
		return nil, storageError("update_wallet_address", err)
	}
	if user == nil {
		return nil, ErrNotFound
	}

	if err := uow.Commit(); err != nil {
		return nil, storageError("update_wallet_address", err)
	}

	l.invalidate(ctx, userID)
	return user, nil
}

// DeleteUser removes a user and decrements its referrer's referral count.
// Users it referred keep their referredBy value.
func (l *Ledger) DeleteUser(ctx context.Context, id int64) (err error) {
	defer l.observe("delete_user", time.Now(), &err)
	ctx, cancel := l.withTimeout(ctx)
	defer cancel()

	for {
		err = l.deleteUserOnce(ctx, id)
		if !errors.Is(err, errReferrerChanged) {
			return err
		}
	}
}

func (l *Ledger) deleteUserOnce(ctx context.Context, id int64) error {
	current, err := l.readUser(ctx, id)
	if err != nil {
		return err
	}
	if current == nil {
		return ErrNotFound
	}

	lockIDs := []int64{id}
	if current.ReferredBy != nil {
		lockIDs = append(lockIDs, *current.ReferredBy)
	}
	unlock := l.locks.Lock(lockIDs...)
	defer unlock()

	uow := l.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return storageError("delete_user", err)
	}
	defer uow.Rollback()

	userRepo := uow.UserRepository()

	locked, err := userRepo.LockForUpdate(ctx, lockIDs...)
	if err != nil {
		return storageError("delete_user", err)
	}
	user := locked[id]
	if user == nil {
		return ErrNotFound
	}
	if !sameReferrer(user.ReferredBy, current.ReferredBy) {
		return errReferrerChanged
	}

	invalidateIDs := []int64{id}
	if user.ReferredBy != nil && locked[*user.ReferredBy] != nil {
		if err := userRepo.AdjustReferralCount(ctx, *user.ReferredBy, -1); err != nil {
			return storageError("delete_user", err)
		}
		invalidateIDs = append(invalidateIDs, *user.ReferredBy)
	}

	deleted, err := userRepo.Delete(ctx, id)
	if err != nil {
		return storageError("delete_user", err)
	}
	if !deleted {
		return ErrNotFound
	}

	uow.EventBus().Publish(events.UserDeletedEvent{
		UserID:     id,
		ReferrerID: user.ReferredBy,
	})

	if err := uow.Commit(); err != nil {
		return storageError("delete_user", err)
	}

	l.invalidate(ctx, invalidateIDs...)

	log.WithFields(log.Fields{
		"userID":     id,
		"referredBy": user.ReferredBy,
	}).Warn("Deleted user")

	return nil
}

// credit adds amount to a user's balance and records the history entry
func (l *Ledger) credit(ctx context.Context, uow UnitOfWork, userID int64, amount decimal.Decimal, txType models.TransactionType, counterpartyID int64) (*models.User, error) {
	return l.creditRelated(ctx, uow, userID, amount, txType, fmt.Sprintf("%d", counterpartyID), models.RelatedTypeUser)
}

func (l *Ledger) creditRelated(ctx context.Context, uow UnitOfWork, userID int64, amount decimal.Decimal, txType models.TransactionType, relatedID string, relatedType models.RelatedType) (*models.User, error) {
	updated, err := uow.UserRepository().Credit(ctx, userID, amount)
	if err != nil {
		return nil, storageError(string(txType), err)
	}
	if updated == nil {
		return nil, ErrNotFound
	}

	history := &models.BalanceHistory{
		UserID:          userID,
		BalanceBefore:   updated.Balance.Sub(amount),
		BalanceAfter:    updated.Balance,
		ChangeAmount:    amount,
		TransactionType: txType,
		RelatedID:       &relatedID,
		RelatedType:     &relatedType,
	}
	if err := RecordBalanceChange(ctx, uow, history); err != nil {
		return nil, storageError(string(txType), err)
	}

	return updated, nil
}

// readUser returns the authoritative view of a user outside of any lock
func (l *Ledger) readUser(ctx context.Context, id int64) (*models.User, error) {
	uow := l.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, storageError("read_user", err)
	}
	defer uow.Rollback()

	user, err := uow.UserRepository().GetByID(ctx, id)
	if err != nil {
		return nil, storageError("read_user", err)
	}
	return user, nil
}

func (l *Ledger) readReferrerByCode(ctx context.Context, code string) (*models.User, error) {
	uow := l.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, storageError("read_referrer", err)
	}
	defer uow.Rollback()

	user, err := uow.UserRepository().GetByReferralCode(ctx, code)
	if err != nil {
		return nil, storageError("read_referrer", err)
	}
	return user, nil
}

// invalidate drops cached views after a committed mutation
func (l *Ledger) invalidate(ctx context.Context, ids ...int64) {
	if l.cache == nil {
		return
	}
	if err := l.cache.InvalidateUsers(context.WithoutCancel(ctx), ids...); err != nil {
		log.WithError(err).WithField("userIDs", ids).Warn("Failed to invalidate cached users")
	}
}

func (l *Ledger) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if l.storageTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, l.storageTimeout)
}

func (l *Ledger) observe(operation string, start time.Time, err *error) {
	if l.recorder == nil {
		return
	}
	l.recorder.RecordLedgerOperation(operation, ErrorKind(*err), time.Since(start))
}

func sameReferrer(a, b *int64) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
