package testutil

import (
	"fmt"
	"time"

	"adledger/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ValidWalletAddress matches the default wallet address pattern
const ValidWalletAddress = "EQ" + "AbCdEfGhIjKlMnOpQrStUvWxYz0123456789_-AbCdEfGhIj"

// CreateTestUser creates a test user with a zero balance and a referral code derived from id
func CreateTestUser(id int64, username string) *models.User {
	now := time.Now().UTC()
	return &models.User{
		ID:             id,
		Username:       username,
		DisplayName:    username,
		Balance:        decimal.Zero,
		TotalEarned:    decimal.Zero,
		TotalWithdrawn: decimal.Zero,
		ReferralCode:   fmt.Sprintf("T%07d", id),
		CreatedAt:      now,
		UpdatedAt:      now,
		LastActivity:   now,
	}
}

// CreateTestUserWithBalance creates a test user whose balance was fully earned
func CreateTestUserWithBalance(id int64, username string, balance string) *models.User {
	user := CreateTestUser(id, username)
	user.Balance = decimal.RequireFromString(balance)
	user.TotalEarned = user.Balance
	return user
}

// CreateTestBalanceHistory creates a test balance history entry
func CreateTestBalanceHistory(userID int64, transactionType models.TransactionType) *models.BalanceHistory {
	return &models.BalanceHistory{
		UserID:          userID,
		BalanceBefore:   decimal.RequireFromString("0.01"),
		BalanceAfter:    decimal.RequireFromString("0.0105"),
		ChangeAmount:    decimal.RequireFromString("0.0005"),
		TransactionType: transactionType,
		TransactionMetadata: map[string]any{
			"test": true,
		},
	}
}

// CreateTestWithdrawal creates a pending withdrawal request
func CreateTestWithdrawal(userID int64, amount string, requestedAt time.Time) *models.WithdrawalRequest {
	return &models.WithdrawalRequest{
		ID:            uuid.New(),
		UserID:        userID,
		Amount:        decimal.RequireFromString(amount),
		WalletAddress: ValidWalletAddress,
		Status:        models.WithdrawalStatusPending,
		RequestedAt:   requestedAt.UTC(),
	}
}
