package api

import (
	"net/http"

	"adledger/service"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

const codeInvalidRequest = "invalid_request"

// statusForKind maps a ledger error kind to an HTTP status
func statusForKind(kind string) int {
	switch kind {
	case "not_found":
		return http.StatusNotFound
	case "self_referral", "already_referred":
		return http.StatusConflict
	case "daily_limit_exceeded":
		return http.StatusTooManyRequests
	case "invalid_address", "below_minimum", "invalid_amount", "unknown_task":
		return http.StatusBadRequest
	case "insufficient_balance":
		return http.StatusUnprocessableEntity
	default:
		return http.StatusServiceUnavailable
	}
}

func errorBody(message, code string) gin.H {
	return gin.H{"error": message, "code": code}
}

// respondError writes the error body for a ledger error
func respondError(c *gin.Context, err error) {
	kind := service.ErrorKind(err)
	status := statusForKind(kind)

	message := err.Error()
	if status == http.StatusServiceUnavailable {
		log.WithError(err).WithField("path", c.FullPath()).Error("Ledger storage failure")
		message = "ledger temporarily unavailable"
	}

	c.JSON(status, errorBody(message, kind))
}

func badRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, errorBody(message, codeInvalidRequest))
}
