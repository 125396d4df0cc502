package handlers

import (
	"net/http"

	"github.com/ramtunguturi36/hair/internal/dto"
	"github.com/ramtunguturi36/hair/internal/service"

	"github.com/gin-gonic/gin"
)

// CreditsHandler exposes the caller's ledger and the session lifecycle.
type CreditsHandler struct {
	ledgers *service.LedgerRegistry
	cost    int
}

func NewCreditsHandler(ledgers *service.LedgerRegistry, analysisCost int) *CreditsHandler {
	return &CreditsHandler{ledgers: ledgers, cost: analysisCost}
}

// Get godoc
// @Summary      Current credit balance
// @Description  Initializes the ledger on first use. refresh=true re-reads the profile store.
// @Tags         credits
// @Produce      json
// @Security     BearerAuth
// @Param        refresh  query     bool  false  "Re-read the stored balance"
// @Success      200      {object}  dto.CreditsResponse
// @Failure      401      {object}  map[string]string
// @Failure      502      {object}  map[string]string
// @Router       /credits [get]
func (h *CreditsHandler) Get(c *gin.Context) {
	l, ok := sessionLedger(c, h.ledgers)
	if !ok {
		return
	}
	if c.Query("refresh") == "true" {
		if err := l.Refresh(c.Request.Context()); err != nil {
			writeError(c, err)
			return
		}
	}
	snap := l.Snapshot()
	c.JSON(http.StatusOK, dto.CreditsResponse{
		Balance:      snap.Balance,
		Initialized:  snap.Initialized,
		AnalysisCost: h.cost,
	})
}

// EndSession godoc
// @Summary      Drop the session's cached ledger
// @Tags         credits
// @Security     BearerAuth
// @Success      204
// @Router       /session [delete]
func (h *CreditsHandler) EndSession(c *gin.Context) {
	h.ledgers.Forget(principal(c))
	c.Status(http.StatusNoContent)
}
