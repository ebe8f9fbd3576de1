package service

import (
	"context"
	"time"

	"adledger/models"

	log "github.com/sirupsen/logrus"
)

const (
	defaultListLimit     = 20
	maxListLimit         = 100
	referralPreviewLimit = 10
)

// GetUser returns a user view that may be up to the cache TTL stale
func (l *Ledger) GetUser(ctx context.Context, id int64) (user *models.User, err error) {
	defer l.observe("get_user", time.Now(), &err)
	ctx, cancel := l.withTimeout(ctx)
	defer cancel()

	if l.cache != nil {
		cached, err := l.cache.GetUser(ctx, id)
		if err != nil {
			log.WithError(err).WithField("userID", id).Warn("Failed to read cached user")
		} else if cached != nil {
			return cached, nil
		}
	}

	user, err = l.readUser(ctx, id)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrNotFound
	}

	if l.cache != nil {
		if err := l.cache.SetUser(ctx, user); err != nil {
			log.WithError(err).WithField("userID", id).Warn("Failed to cache user")
		}
	}

	return user, nil
}

// GetDatabaseStats returns aggregated statistics that may be up to the cache TTL stale
func (l *Ledger) GetDatabaseStats(ctx context.Context) (stats *models.LedgerStats, err error) {
	defer l.observe("get_database_stats", time.Now(), &err)
	ctx, cancel := l.withTimeout(ctx)
	defer cancel()

	if l.cache != nil {
		cached, err := l.cache.GetStats(ctx)
		if err != nil {
			log.WithError(err).Warn("Failed to read cached stats")
		} else if cached != nil {
			return cached, nil
		}
	}

	uow := l.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, storageError("get_database_stats", err)
	}
	defer uow.Rollback()

	stats, err = uow.UserRepository().GetStats(ctx)
	if err != nil {
		return nil, storageError("get_database_stats", err)
	}

	if l.cache != nil {
		if err := l.cache.SetStats(ctx, stats); err != nil {
			log.WithError(err).Warn("Failed to cache stats")
		}
	}

	return stats, nil
}

// GetReferralStats summarises a referrer's network and the earnings it produced
func (l *Ledger) GetReferralStats(ctx context.Context, id int64) (stats *models.ReferralStats, err error) {
	defer l.observe("get_referral_stats", time.Now(), &err)
	ctx, cancel := l.withTimeout(ctx)
	defer cancel()

	uow := l.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, storageError("get_referral_stats", err)
	}
	defer uow.Rollback()

	user, err := uow.UserRepository().GetByID(ctx, id)
	if err != nil {
		return nil, storageError("get_referral_stats", err)
	}
	if user == nil {
		return nil, ErrNotFound
	}

	referrals, err := uow.UserRepository().ListReferrals(ctx, id, referralPreviewLimit)
	if err != nil {
		return nil, storageError("get_referral_stats", err)
	}

	commission, signupBonus, err := uow.ReferralEarningRepository().SumByReferrer(ctx, id)
	if err != nil {
		return nil, storageError("get_referral_stats", err)
	}

	return &models.ReferralStats{
		ReferralCode:     user.ReferralCode,
		ReferralCount:    user.ReferralCount,
		TotalCommission:  commission,
		TotalSignupBonus: signupBonus,
		Referrals:        referrals,
	}, nil
}

// ListWithdrawals returns a user's withdrawal requests, newest first
func (l *Ledger) ListWithdrawals(ctx context.Context, userID int64, limit int) (requests []*models.WithdrawalRequest, err error) {
	defer l.observe("list_withdrawals", time.Now(), &err)
	ctx, cancel := l.withTimeout(ctx)
	defer cancel()

	uow := l.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, storageError("list_withdrawals", err)
	}
	defer uow.Rollback()

	requests, err = uow.WithdrawalRepository().GetByUser(ctx, userID, clampLimit(limit))
	if err != nil {
		return nil, storageError("list_withdrawals", err)
	}
	return requests, nil
}

// ListBalanceHistory returns a user's balance history, newest first
func (l *Ledger) ListBalanceHistory(ctx context.Context, userID int64, limit int) (history []*models.BalanceHistory, err error) {
	defer l.observe("list_balance_history", time.Now(), &err)
	ctx, cancel := l.withTimeout(ctx)
	defer cancel()

	uow := l.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, storageError("list_balance_history", err)
	}
	defer uow.Rollback()

	history, err = uow.BalanceHistoryRepository().GetByUser(ctx, userID, clampLimit(limit))
	if err != nil {
		return nil, storageError("list_balance_history", err)
	}
	return history, nil
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return defaultListLimit
	}
	return min(limit, maxListLimit)
}
