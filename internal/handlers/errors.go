package handlers

import (
	"errors"
	"net/http"

	"github.com/ramtunguturi36/hair/internal/auth"
	"github.com/ramtunguturi36/hair/internal/service"

	"github.com/gin-gonic/gin"
)

// writeError maps service errors to a status and a user-facing message.
// Raw upstream errors are attached to the gin context for the request log only.
func writeError(c *gin.Context, err error) {
	status, msg := http.StatusInternalServerError, "internal error"
	switch {
	case errors.Is(err, service.ErrInsufficientBalance):
		status, msg = http.StatusPaymentRequired, "insufficient credits"
	case errors.Is(err, service.ErrPaymentUnverified):
		status, msg = http.StatusPaymentRequired, "payment could not be verified"
	case errors.Is(err, service.ErrInvalidImage):
		status, msg = http.StatusBadRequest, err.Error()
	case errors.Is(err, service.ErrInvalidAmount),
		errors.Is(err, service.ErrInvalidResult),
		errors.Is(err, service.ErrInvalidSignature):
		status, msg = http.StatusBadRequest, err.Error()
	case errors.Is(err, service.ErrUnknownPlan):
		status, msg = http.StatusNotFound, "plan not found"
	case errors.Is(err, service.ErrRemoteRead),
		errors.Is(err, service.ErrRemoteWrite):
		status, msg = http.StatusBadGateway, "credits are temporarily unavailable"
	case errors.Is(err, service.ErrPaymentProvider):
		status, msg = http.StatusBadGateway, "payment provider unavailable"
	case errors.Is(err, service.ErrAnalysisFailed):
		status, msg = http.StatusBadGateway, "hair analysis failed, your credits were not charged"
	}
	_ = c.Error(err)
	c.JSON(status, gin.H{"error": msg})
}

func principal(c *gin.Context) service.Principal {
	return service.Principal{
		AccountID: auth.AccountIDFromContext(c),
		SessionID: auth.SessionIDFromContext(c),
	}
}

// sessionLedger resolves the caller's ledger, writing the error response on failure.
func sessionLedger(c *gin.Context, ledgers *service.LedgerRegistry) (*service.CreditLedger, bool) {
	l, err := ledgers.ForSession(c.Request.Context(), principal(c))
	if err != nil {
		writeError(c, err)
		return nil, false
	}
	return l, true
}
