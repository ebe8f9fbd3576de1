package service

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorKind(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, "ok"},
		{ErrNotFound, "not_found"},
		{fmt.Errorf("lookup: %w", ErrNotFound), "not_found"},
		{ErrSelfReferral, "self_referral"},
		{ErrAlreadyReferred, "already_referred"},
		{ErrDailyLimitExceeded, "daily_limit_exceeded"},
		{ErrInvalidAddress, "invalid_address"},
		{ErrBelowMinimum, "below_minimum"},
		{ErrInsufficientBalance, "insufficient_balance"},
		{ErrInvalidAmount, "invalid_amount"},
		{ErrUnknownTask, "unknown_task"},
		{errors.New("boom"), "storage_error"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, ErrorKind(tt.err))
	}
}

func TestStorageError(t *testing.T) {
	cause := fmt.Errorf("query failed: %w", context.DeadlineExceeded)
	err := storageError("record_ad_watch", cause)

	assert.True(t, IsStorageError(err))
	assert.True(t, IsTimeout(err))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Contains(t, err.Error(), "record_ad_watch")

	// Ledger errors and already wrapped errors pass through untouched
	assert.Same(t, ErrBelowMinimum, storageError("x", ErrBelowMinimum))
	assert.Equal(t, err, storageError("outer", err))
	assert.Nil(t, storageError("x", nil))
	assert.False(t, IsTimeout(storageError("x", errors.New("boom"))))
}
