package handlers

import (
	"io"
	"net/http"

	dom "github.com/ramtunguturi36/hair/internal/domain"
	"github.com/ramtunguturi36/hair/internal/dto"
	"github.com/ramtunguturi36/hair/internal/service"

	"github.com/gin-gonic/gin"
)

// maxWebhookBytes bounds a provider notification body.
const maxWebhookBytes = 64 << 10

type PaymentHandler struct {
	svc     *service.PaymentService
	ledgers *service.LedgerRegistry
}

func NewPaymentHandler(svc *service.PaymentService, ledgers *service.LedgerRegistry) *PaymentHandler {
	return &PaymentHandler{svc: svc, ledgers: ledgers}
}

// Plans godoc
// @Summary      List credit plans
// @Tags         payments
// @Produce      json
// @Success      200  {object}  dto.ListPlansResponse
// @Router       /plans [get]
func (h *PaymentHandler) Plans(c *gin.Context) {
	plans := h.svc.Plans()
	out := make([]dto.PlanResponse, len(plans))
	for i := range plans {
		out[i] = planToResponse(plans[i])
	}
	c.JSON(http.StatusOK, dto.ListPlansResponse{Items: out})
}

// Checkout godoc
// @Summary      Start a hosted checkout for a plan
// @Tags         payments
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      dto.CheckoutRequest  true  "Plan"
// @Success      200   {object}  dto.CheckoutResponse
// @Failure      400   {object}  map[string]string
// @Failure      404   {object}  map[string]string
// @Failure      502   {object}  map[string]string
// @Router       /payments/checkout [post]
func (h *PaymentHandler) Checkout(c *gin.Context) {
	var req dto.CheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	sess, plan, err := h.svc.Checkout(c.Request.Context(), principal(c).AccountID, req.PlanID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.CheckoutResponse{URL: sess.URL, SessionID: sess.ID, Plan: planToResponse(plan)})
}

// Confirm godoc
// @Summary      Apply a paid checkout after the success redirect
// @Description  Credits the quantity recorded by the payment provider. Safe to call more than once.
// @Tags         payments
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      dto.ConfirmRequest  true  "Checkout session"
// @Success      200   {object}  dto.ConfirmResponse
// @Failure      400   {object}  map[string]string
// @Failure      402   {object}  map[string]string
// @Failure      502   {object}  map[string]string
// @Router       /payments/confirm [post]
func (h *PaymentHandler) Confirm(c *gin.Context) {
	var req dto.ConfirmRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	l, ok := sessionLedger(c, h.ledgers)
	if !ok {
		return
	}
	res, err := h.svc.Confirm(c.Request.Context(), l, req.SessionID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.ConfirmResponse{Applied: res.Applied, Credits: res.Credits, Balance: res.Balance})
}

// List godoc
// @Summary      List applied purchases
// @Tags         payments
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  dto.ListPurchasesResponse
// @Failure      500  {object}  map[string]string
// @Router       /payments [get]
func (h *PaymentHandler) List(c *gin.Context) {
	list, err := h.svc.Purchases(c.Request.Context(), principal(c).AccountID)
	if err != nil {
		writeError(c, err)
		return
	}
	out := make([]dto.PurchaseResponse, len(list))
	for i, p := range list {
		out[i] = dto.PurchaseResponse{
			SessionID:   p.SessionID,
			PlanID:      p.PlanID,
			Credits:     p.Credits,
			AmountMinor: p.AmountMinor,
			Currency:    p.Currency,
			Source:      p.Source,
			AppliedAt:   p.AppliedAt,
		}
	}
	c.JSON(http.StatusOK, dto.ListPurchasesResponse{Items: out})
}

// Webhook godoc
// @Summary      Stripe webhook
// @Tags         payments
// @Accept       json
// @Produce      json
// @Param        Stripe-Signature  header    string  true  "Webhook signature"
// @Success      200               {object}  map[string]bool
// @Failure      400               {object}  map[string]string
// @Router       /webhooks/stripe [post]
func (h *PaymentHandler) Webhook(c *gin.Context) {
	payload, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBytes))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable body"})
		return
	}
	res, handled, err := h.svc.HandleWebhook(c.Request.Context(), payload, c.GetHeader("Stripe-Signature"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"received": true, "handled": handled, "applied": res.Applied})
}

func planToResponse(p dom.Plan) dto.PlanResponse {
	return dto.PlanResponse{
		ID:             p.ID,
		Name:           p.Name,
		Description:    p.Description,
		Credits:        p.Credits,
		AmountMinor:    p.AmountMinor,
		Price:          p.Price().StringFixed(2),
		PricePerCredit: p.PricePerCredit().StringFixed(2),
		Currency:       p.Currency,
		Features:       p.Features,
		Popular:        p.Popular,
	}
}
