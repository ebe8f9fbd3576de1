package service

import (
	"context"
	"errors"
	"fmt"
)

// Expected, user-actionable ledger outcomes. Retrying any of them verbatim yields the same result.
var (
	ErrNotFound            = errors.New("not found")
	ErrSelfReferral        = errors.New("cannot use your own referral code")
	ErrAlreadyReferred     = errors.New("user already has a referrer")
	ErrDailyLimitExceeded  = errors.New("daily ad limit reached")
	ErrInvalidAddress      = errors.New("invalid wallet address")
	ErrBelowMinimum        = errors.New("amount is below the minimum withdrawal")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrInvalidAmount       = errors.New("amount has more decimal places than the ledger stores")
	ErrUnknownTask         = errors.New("unknown task")
)

// StorageError wraps an infrastructure failure. The operation that returned it left no
// partial state behind and may be retried with backoff.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage error during %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// IsStorageError reports whether err is, or wraps, a StorageError
func IsStorageError(err error) bool {
	var storageErr *StorageError
	return errors.As(err, &storageErr)
}

// IsTimeout reports whether a storage failure was caused by the operation deadline
func IsTimeout(err error) bool {
	return IsStorageError(err) && errors.Is(err, context.DeadlineExceeded)
}

// ErrorKind returns a stable machine-readable name for a ledger error
func ErrorKind(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrSelfReferral):
		return "self_referral"
	case errors.Is(err, ErrAlreadyReferred):
		return "already_referred"
	case errors.Is(err, ErrDailyLimitExceeded):
		return "daily_limit_exceeded"
	case errors.Is(err, ErrInvalidAddress):
		return "invalid_address"
	case errors.Is(err, ErrBelowMinimum):
		return "below_minimum"
	case errors.Is(err, ErrInsufficientBalance):
		return "insufficient_balance"
	case errors.Is(err, ErrInvalidAmount):
		return "invalid_amount"
	case errors.Is(err, ErrUnknownTask):
		return "unknown_task"
	default:
		return "storage_error"
	}
}

// storageError wraps err unless it already is a ledger error
func storageError(op string, err error) error {
	if err == nil {
		return nil
	}
	if ErrorKind(err) != "storage_error" || IsStorageError(err) {
		return err
	}
	return &StorageError{Op: op, Err: err}
}
