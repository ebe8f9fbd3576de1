package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"adledger/config"
	"adledger/models"
	"adledger/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const testWallet = "UQ" + "AbCdEfGhIjKlMnOpQrStUvWxYz0123456789_-AbCdEfGhIj"

type fakePinger struct {
	err error
}

func (p fakePinger) Ping(ctx context.Context) error {
	return p.err
}

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestServer(adminKey string) (*Server, *service.MockLedgerService) {
	ledger := new(service.MockLedgerService)
	return NewServer(ledger, fakePinger{}, adminKey), ledger
}

func doRequest(t *testing.T, s *Server, method, path string, body any, headers ...string) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func testUser(id int64, balance string) *models.User {
	return &models.User{
		ID:           id,
		Balance:      decimal.RequireFromString(balance),
		TotalEarned:  decimal.RequireFromString(balance),
		ReferralCode: "AbCd1234",
	}
}

func TestStatusForKind(t *testing.T) {
	cases := []struct {
		err    error
		status int
	}{
		{service.ErrNotFound, http.StatusNotFound},
		{service.ErrSelfReferral, http.StatusConflict},
		{service.ErrAlreadyReferred, http.StatusConflict},
		{service.ErrDailyLimitExceeded, http.StatusTooManyRequests},
		{service.ErrInvalidAddress, http.StatusBadRequest},
		{service.ErrBelowMinimum, http.StatusBadRequest},
		{service.ErrInsufficientBalance, http.StatusUnprocessableEntity},
		{service.ErrInvalidAmount, http.StatusBadRequest},
		{service.ErrUnknownTask, http.StatusBadRequest},
		{&service.StorageError{Op: "get_user", Err: errors.New("connection refused")}, http.StatusServiceUnavailable},
	}

	for _, tc := range cases {
		t.Run(service.ErrorKind(tc.err), func(t *testing.T) {
			assert.Equal(t, tc.status, statusForKind(service.ErrorKind(tc.err)))
		})
	}
}

func TestServer_Health(t *testing.T) {
	t.Run("ok", func(t *testing.T) {
		s, _ := newTestServer("")
		rec := doRequest(t, s, http.MethodGet, "/health", nil)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "ok", decodeBody(t, rec)["status"])
	})

	t.Run("database down", func(t *testing.T) {
		s := NewServer(new(service.MockLedgerService), fakePinger{err: errors.New("down")}, "")
		rec := doRequest(t, s, http.MethodGet, "/health", nil)
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	})
}

func TestServer_GetConfig(t *testing.T) {
	s, ledger := newTestServer("")
	ledger.On("Rules").Return(config.DefaultLedgerRules())

	rec := doRequest(t, s, http.MethodGet, "/api/config", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody(t, rec)
	assert.Equal(t, "0.0005", body["rewardPerAd"])
	assert.Equal(t, float64(50), body["dailyAdLimit"])
	assert.Equal(t, "0.05", body["minimumWithdrawal"])
	assert.Equal(t, "0.005", body["channelJoinBonus"])
}

func TestServer_CreateUser(t *testing.T) {
	profile := models.Profile{DisplayName: "Alice", Username: "alice"}

	t.Run("without referral code", func(t *testing.T) {
		s, ledger := newTestServer("")
		ledger.On("GetOrCreateUser", mock.Anything, int64(7), profile).Return(testUser(7, "0"), nil)

		rec := doRequest(t, s, http.MethodPost, "/api/users", gin.H{"id": 7, "displayName": "Alice", "username": "alice"})
		require.Equal(t, http.StatusOK, rec.Code)

		body := decodeBody(t, rec)
		assert.NotContains(t, body, "referral")
		ledger.AssertNotCalled(t, "AttachReferral", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("with referral code", func(t *testing.T) {
		s, ledger := newTestServer("")
		referredBy := int64(1)
		attached := testUser(7, "0.005")
		attached.ReferredBy = &referredBy

		ledger.On("GetOrCreateUser", mock.Anything, int64(7), profile).Return(testUser(7, "0"), nil)
		ledger.On("AttachReferral", mock.Anything, int64(7), "RefCode1").Return(&models.ReferralOutcome{
			User:          attached,
			Referrer:      testUser(1, "0.01"),
			ReferrerBonus: decimal.RequireFromString("0.01"),
			ReferredBonus: decimal.RequireFromString("0.005"),
			BonusPaid:     true,
		}, nil)

		rec := doRequest(t, s, http.MethodPost, "/api/users", gin.H{"id": 7, "displayName": "Alice", "username": "alice", "referralCode": "RefCode1"})
		require.Equal(t, http.StatusOK, rec.Code)

		referral := decodeBody(t, rec)["referral"].(map[string]any)
		assert.Equal(t, true, referral["bonusPaid"])
		assert.Equal(t, float64(1), referral["referrerId"])
	})

	t.Run("attach failure does not fail create", func(t *testing.T) {
		s, ledger := newTestServer("")
		ledger.On("GetOrCreateUser", mock.Anything, int64(7), profile).Return(testUser(7, "0"), nil)
		ledger.On("AttachReferral", mock.Anything, int64(7), "AbCd1234").Return(nil, service.ErrSelfReferral)

		rec := doRequest(t, s, http.MethodPost, "/api/users", gin.H{"id": 7, "displayName": "Alice", "username": "alice", "referralCode": "AbCd1234"})
		require.Equal(t, http.StatusOK, rec.Code)

		referral := decodeBody(t, rec)["referral"].(map[string]any)
		assert.Equal(t, "self_referral", referral["code"])
	})

	t.Run("already referred user skips attach", func(t *testing.T) {
		s, ledger := newTestServer("")
		referredBy := int64(3)
		existing := testUser(7, "0")
		existing.ReferredBy = &referredBy
		ledger.On("GetOrCreateUser", mock.Anything, int64(7), profile).Return(existing, nil)

		rec := doRequest(t, s, http.MethodPost, "/api/users", gin.H{"id": 7, "displayName": "Alice", "username": "alice", "referralCode": "RefCode1"})
		require.Equal(t, http.StatusOK, rec.Code)

		referral := decodeBody(t, rec)["referral"].(map[string]any)
		assert.Equal(t, "already_referred", referral["code"])
		ledger.AssertNotCalled(t, "AttachReferral", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("missing id", func(t *testing.T) {
		s, _ := newTestServer("")
		rec := doRequest(t, s, http.MethodPost, "/api/users", gin.H{"username": "alice"})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, codeInvalidRequest, decodeBody(t, rec)["code"])
	})
}

func TestServer_GetUser(t *testing.T) {
	s, ledger := newTestServer("")
	ledger.On("GetUser", mock.Anything, int64(7)).Return(testUser(7, "0.06"), nil)
	ledger.On("GetUser", mock.Anything, int64(8)).Return(nil, service.ErrNotFound)

	rec := doRequest(t, s, http.MethodGet, "/api/users/7", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "0.06", decodeBody(t, rec)["balance"])

	rec = doRequest(t, s, http.MethodGet, "/api/users/8", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "not_found", decodeBody(t, rec)["code"])

	rec = doRequest(t, s, http.MethodGet, "/api/users/abc", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestServer_RecordAdWatch(t *testing.T) {
	t.Run("reward", func(t *testing.T) {
		s, ledger := newTestServer("")
		ledger.On("RecordAdWatch", mock.Anything, int64(7)).Return(&models.RewardOutcome{
			User:            testUser(7, "0.0005"),
			Reward:          decimal.RequireFromString("0.0005"),
			DailyAdsWatched: 1,
			DailyLimit:      50,
			Commission:      decimal.Zero,
		}, nil)

		rec := doRequest(t, s, http.MethodPost, "/api/users/7/ads", nil)
		require.Equal(t, http.StatusOK, rec.Code)

		body := decodeBody(t, rec)
		assert.Equal(t, "0.0005", body["reward"])
		assert.Equal(t, float64(49), body["remainingToday"])
	})

	t.Run("daily limit", func(t *testing.T) {
		s, ledger := newTestServer("")
		ledger.On("RecordAdWatch", mock.Anything, int64(7)).Return(nil, service.ErrDailyLimitExceeded)

		rec := doRequest(t, s, http.MethodPost, "/api/users/7/ads", nil)
		assert.Equal(t, http.StatusTooManyRequests, rec.Code)
		assert.Equal(t, "daily_limit_exceeded", decodeBody(t, rec)["code"])
	})

	t.Run("storage failure hides cause", func(t *testing.T) {
		s, ledger := newTestServer("")
		ledger.On("RecordAdWatch", mock.Anything, int64(7)).Return(nil, &service.StorageError{Op: "record_ad_watch", Err: errors.New("password authentication failed")})

		rec := doRequest(t, s, http.MethodPost, "/api/users/7/ads", nil)
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
		body := decodeBody(t, rec)
		assert.Equal(t, "storage_error", body["code"])
		assert.NotContains(t, body["error"], "password")
	})
}

func TestServer_RequestWithdrawal(t *testing.T) {
	amount := decimal.RequireFromString("0.05")

	t.Run("explicit address", func(t *testing.T) {
		s, ledger := newTestServer("")
		ledger.On("RequestWithdrawal", mock.Anything, int64(7), mock.MatchedBy(amount.Equal), testWallet).Return(&models.WithdrawalRequest{
			ID:            uuid.New(),
			UserID:        7,
			Amount:        amount,
			WalletAddress: testWallet,
			Status:        models.WithdrawalStatusPending,
		}, nil)

		rec := doRequest(t, s, http.MethodPost, "/api/users/7/withdrawals", gin.H{"amount": "0.05", "walletAddress": testWallet})
		require.Equal(t, http.StatusCreated, rec.Code)
		assert.Equal(t, "pending", decodeBody(t, rec)["status"])
	})

	t.Run("falls back to stored address", func(t *testing.T) {
		s, ledger := newTestServer("")
		user := testUser(7, "0.06")
		wallet := testWallet
		user.WalletAddress = &wallet

		ledger.On("GetUser", mock.Anything, int64(7)).Return(user, nil)
		ledger.On("RequestWithdrawal", mock.Anything, int64(7), mock.MatchedBy(amount.Equal), testWallet).Return(&models.WithdrawalRequest{
			ID:     uuid.New(),
			UserID: 7,
			Amount: amount,
			Status: models.WithdrawalStatusPending,
		}, nil)

		rec := doRequest(t, s, http.MethodPost, "/api/users/7/withdrawals", gin.H{"amount": 0.05})
		assert.Equal(t, http.StatusCreated, rec.Code)
	})

	t.Run("no stored address", func(t *testing.T) {
		s, ledger := newTestServer("")
		ledger.On("GetUser", mock.Anything, int64(7)).Return(testUser(7, "0.06"), nil)

		rec := doRequest(t, s, http.MethodPost, "/api/users/7/withdrawals", gin.H{"amount": "0.05"})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "invalid_address", decodeBody(t, rec)["code"])
	})

	t.Run("insufficient balance", func(t *testing.T) {
		s, ledger := newTestServer("")
		ledger.On("RequestWithdrawal", mock.Anything, int64(7), mock.Anything, testWallet).Return(nil, service.ErrInsufficientBalance)

		rec := doRequest(t, s, http.MethodPost, "/api/users/7/withdrawals", gin.H{"amount": "0.07", "walletAddress": testWallet})
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	})

	t.Run("missing amount", func(t *testing.T) {
		s, _ := newTestServer("")
		rec := doRequest(t, s, http.MethodPost, "/api/users/7/withdrawals", gin.H{"walletAddress": testWallet})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestServer_CompleteTask(t *testing.T) {
	t.Run("first completion", func(t *testing.T) {
		s, ledger := newTestServer("")
		ledger.On("CompleteTask", mock.Anything, int64(7), models.TaskJoinChannel).Return(&models.TaskOutcome{
			User:            testUser(7, "0.005"),
			Task:            models.TaskJoinChannel,
			Bonus:           decimal.RequireFromString("0.005"),
			FirstCompletion: true,
		}, nil)

		rec := doRequest(t, s, http.MethodPost, "/api/users/7/tasks", gin.H{"task": "join_channel"})
		require.Equal(t, http.StatusOK, rec.Code)

		body := decodeBody(t, rec)
		assert.Equal(t, true, body["firstCompletion"])
		assert.Equal(t, "0.005", body["bonus"])
	})

	t.Run("repeat pays nothing", func(t *testing.T) {
		s, ledger := newTestServer("")
		ledger.On("CompleteTask", mock.Anything, int64(7), models.TaskJoinGroup).Return(&models.TaskOutcome{
			User:  testUser(7, "0.005"),
			Task:  models.TaskJoinGroup,
			Bonus: decimal.Zero,
		}, nil)

		rec := doRequest(t, s, http.MethodPost, "/api/users/7/tasks", gin.H{"task": "join_group"})
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, false, decodeBody(t, rec)["firstCompletion"])
	})

	t.Run("unknown task", func(t *testing.T) {
		s, ledger := newTestServer("")
		ledger.On("CompleteTask", mock.Anything, int64(7), models.TaskType("follow_twitter")).Return(nil, service.ErrUnknownTask)

		rec := doRequest(t, s, http.MethodPost, "/api/users/7/tasks", gin.H{"task": "follow_twitter"})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "unknown_task", decodeBody(t, rec)["code"])
	})

	t.Run("missing task", func(t *testing.T) {
		s, ledger := newTestServer("")
		rec := doRequest(t, s, http.MethodPost, "/api/users/7/tasks", gin.H{})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		ledger.AssertNotCalled(t, "CompleteTask", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("list", func(t *testing.T) {
		s, ledger := newTestServer("")
		ledger.On("ListCompletedTasks", mock.Anything, int64(7)).Return(nil, nil)

		rec := doRequest(t, s, http.MethodGet, "/api/users/7/tasks", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, []any{}, decodeBody(t, rec)["tasks"])
	})
}

func TestServer_UpdateWallet(t *testing.T) {
	s, ledger := newTestServer("")
	ledger.On("UpdateWalletAddress", mock.Anything, int64(7), "nope").Return(nil, service.ErrInvalidAddress)

	rec := doRequest(t, s, http.MethodPut, "/api/users/7/wallet", gin.H{"walletAddress": "nope"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_address", decodeBody(t, rec)["code"])
}

func TestServer_Lists(t *testing.T) {
	s, ledger := newTestServer("")
	ledger.On("ListWithdrawals", mock.Anything, int64(7), 5).Return(nil, nil)
	ledger.On("ListBalanceHistory", mock.Anything, int64(7), 0).Return([]*models.BalanceHistory{
		{UserID: 7, TransactionType: models.TransactionTypeAdReward},
	}, nil)

	rec := doRequest(t, s, http.MethodGet, "/api/users/7/withdrawals?limit=5", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []any{}, decodeBody(t, rec)["withdrawals"])

	rec = doRequest(t, s, http.MethodGet, "/api/users/7/history", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeBody(t, rec)["history"], 1)

	rec = doRequest(t, s, http.MethodGet, "/api/users/7/history?limit=-1", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestServer_AdminDelete(t *testing.T) {
	t.Run("route disabled without key", func(t *testing.T) {
		s, _ := newTestServer("")
		rec := doRequest(t, s, http.MethodDelete, "/api/admin/users/7", nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("wrong key", func(t *testing.T) {
		s, ledger := newTestServer("secret")
		rec := doRequest(t, s, http.MethodDelete, "/api/admin/users/7", nil, adminKeyHeader, "guess")
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		ledger.AssertNotCalled(t, "DeleteUser", mock.Anything, mock.Anything)
	})

	t.Run("deletes", func(t *testing.T) {
		s, ledger := newTestServer("secret")
		ledger.On("DeleteUser", mock.Anything, int64(7)).Return(nil)

		rec := doRequest(t, s, http.MethodDelete, "/api/admin/users/7", nil, adminKeyHeader, "secret")
		assert.Equal(t, http.StatusNoContent, rec.Code)
	})

	t.Run("unknown user", func(t *testing.T) {
		s, ledger := newTestServer("secret")
		ledger.On("DeleteUser", mock.Anything, int64(9)).Return(service.ErrNotFound)

		rec := doRequest(t, s, http.MethodDelete, "/api/admin/users/9", nil, adminKeyHeader, "secret")
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestServer_Stats(t *testing.T) {
	s, ledger := newTestServer("")
	ledger.On("GetDatabaseStats", mock.Anything).Return(&models.LedgerStats{TotalUsers: 3, PendingWithdrawals: 1}, nil)

	rec := doRequest(t, s, http.MethodGet, "/api/stats", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(3), decodeBody(t, rec)["totalUsers"])
}
