package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"adledger/models"
	"adledger/service"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

type createUserRequest struct {
	ID           int64  `json:"id" binding:"required"`
	DisplayName  string `json:"displayName"`
	Username     string `json:"username"`
	ReferralCode string `json:"referralCode"`
}

type referralRequest struct {
	Code string `json:"code" binding:"required"`
}

type walletRequest struct {
	WalletAddress string `json:"walletAddress" binding:"required"`
}

type withdrawalRequest struct {
	Amount        *decimal.Decimal `json:"amount"`
	WalletAddress string           `json:"walletAddress"`
}

type taskRequest struct {
	Task models.TaskType `json:"task" binding:"required"`
}

type rewardResponse struct {
	*models.RewardOutcome
	RemainingToday int `json:"remainingToday"`
}

func userIDParam(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		badRequest(c, "invalid user id")
		return 0, false
	}
	return id, true
}

func limitQuery(c *gin.Context) (int, bool) {
	raw := c.Query("limit")
	if raw == "" {
		return 0, true
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 0 {
		badRequest(c, "invalid limit")
		return 0, false
	}
	return limit, true
}

func (s *Server) health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	if s.db != nil {
		if err := s.db.Ping(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) getConfig(c *gin.Context) {
	rules := s.ledger.Rules()
	c.JSON(http.StatusOK, gin.H{
		"rewardPerAd":       rules.RewardPerAd,
		"dailyAdLimit":      rules.DailyAdLimit,
		"minimumWithdrawal": rules.MinimumWithdrawal,
		"adDurationSeconds": rules.AdDurationSeconds,
		"commissionRate":    rules.CommissionRate,
		"referrerBonus":     rules.ReferrerBonus,
		"referredBonus":     rules.ReferredBonus,
		"channelJoinBonus":  rules.ChannelJoinBonus,
		"groupJoinBonus":    rules.GroupJoinBonus,
	})
}

func (s *Server) getStats(c *gin.Context) {
	stats, err := s.ledger.GetDatabaseStats(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// createUser gets or creates the user and applies an optional referral code.
// A failed attach is reported in the body without failing the request.
func (s *Server) createUser(c *gin.Context) {
	var req createUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	if req.ID <= 0 {
		badRequest(c, "invalid user id")
		return
	}

	ctx := c.Request.Context()
	user, err := s.ledger.GetOrCreateUser(ctx, req.ID, models.Profile{
		DisplayName: req.DisplayName,
		Username:    req.Username,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	body := gin.H{"user": user}
	if req.ReferralCode != "" {
		if user.ReferredBy != nil {
			body["referral"] = errorBody(service.ErrAlreadyReferred.Error(), service.ErrorKind(service.ErrAlreadyReferred))
		} else if outcome, err := s.ledger.AttachReferral(ctx, req.ID, req.ReferralCode); err != nil {
			body["referral"] = errorBody(err.Error(), service.ErrorKind(err))
		} else {
			body["user"] = outcome.User
			body["referral"] = gin.H{
				"referrerId":    outcome.Referrer.ID,
				"bonusPaid":     outcome.BonusPaid,
				"referrerBonus": outcome.ReferrerBonus,
				"referredBonus": outcome.ReferredBonus,
			}
		}
	}

	c.JSON(http.StatusOK, body)
}

func (s *Server) getUser(c *gin.Context) {
	id, ok := userIDParam(c)
	if !ok {
		return
	}

	user, err := s.ledger.GetUser(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

func (s *Server) attachReferral(c *gin.Context) {
	id, ok := userIDParam(c)
	if !ok {
		return
	}

	var req referralRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	outcome, err := s.ledger.AttachReferral(c.Request.Context(), id, req.Code)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, outcome)
}

func (s *Server) getReferralStats(c *gin.Context) {
	id, ok := userIDParam(c)
	if !ok {
		return
	}

	stats, err := s.ledger.GetReferralStats(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (s *Server) recordAdWatch(c *gin.Context) {
	id, ok := userIDParam(c)
	if !ok {
		return
	}

	outcome, err := s.ledger.RecordAdWatch(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, rewardResponse{RewardOutcome: outcome, RemainingToday: outcome.RemainingToday()})
}

func (s *Server) updateWallet(c *gin.Context) {
	id, ok := userIDParam(c)
	if !ok {
		return
	}

	var req walletRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	user, err := s.ledger.UpdateWalletAddress(c.Request.Context(), id, req.WalletAddress)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

// requestWithdrawal falls back to the stored wallet address when none is supplied
func (s *Server) requestWithdrawal(c *gin.Context) {
	id, ok := userIDParam(c)
	if !ok {
		return
	}

	var req withdrawalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	if req.Amount == nil {
		badRequest(c, "amount is required")
		return
	}

	ctx := c.Request.Context()
	address := req.WalletAddress
	if address == "" {
		user, err := s.ledger.GetUser(ctx, id)
		if err != nil {
			respondError(c, err)
			return
		}
		if user.WalletAddress == nil {
			respondError(c, service.ErrInvalidAddress)
			return
		}
		address = *user.WalletAddress
	}

	request, err := s.ledger.RequestWithdrawal(ctx, id, *req.Amount, address)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, request)
}

func (s *Server) listWithdrawals(c *gin.Context) {
	id, ok := userIDParam(c)
	if !ok {
		return
	}
	limit, ok := limitQuery(c)
	if !ok {
		return
	}

	requests, err := s.ledger.ListWithdrawals(c.Request.Context(), id, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	if requests == nil {
		requests = []*models.WithdrawalRequest{}
	}
	c.JSON(http.StatusOK, gin.H{"withdrawals": requests})
}

func (s *Server) listHistory(c *gin.Context) {
	id, ok := userIDParam(c)
	if !ok {
		return
	}
	limit, ok := limitQuery(c)
	if !ok {
		return
	}

	history, err := s.ledger.ListBalanceHistory(c.Request.Context(), id, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	if history == nil {
		history = []*models.BalanceHistory{}
	}
	c.JSON(http.StatusOK, gin.H{"history": history})
}

// completeTask answers 200 for repeats too; firstCompletion tells them apart
func (s *Server) completeTask(c *gin.Context) {
	id, ok := userIDParam(c)
	if !ok {
		return
	}

	var req taskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	outcome, err := s.ledger.CompleteTask(c.Request.Context(), id, req.Task)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, outcome)
}

func (s *Server) listTasks(c *gin.Context) {
	id, ok := userIDParam(c)
	if !ok {
		return
	}

	completed, err := s.ledger.ListCompletedTasks(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	if completed == nil {
		completed = []*models.TaskCompletion{}
	}
	c.JSON(http.StatusOK, gin.H{"tasks": completed})
}

func (s *Server) deleteUser(c *gin.Context) {
	id, ok := userIDParam(c)
	if !ok {
		return
	}

	if err := s.ledger.DeleteUser(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
