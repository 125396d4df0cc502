package dto

import "time"

type PlanResponse struct {
	ID             string   `json:"id"`
	Name           string   `json:"name"`
	Description    string   `json:"description"`
	Credits        int      `json:"credits"`
	AmountMinor    int64    `json:"amount_minor"`
	Price          string   `json:"price"`
	PricePerCredit string   `json:"price_per_credit"`
	Currency       string   `json:"currency"`
	Features       []string `json:"features"`
	Popular        bool     `json:"popular"`
}

type ListPlansResponse struct {
	Items []PlanResponse `json:"items"`
}

// CheckoutRequest only names a plan; price and credits are looked up server-side.
type CheckoutRequest struct {
	PlanID string `json:"plan_id" binding:"required"`
}

type CheckoutResponse struct {
	URL       string       `json:"url"`
	SessionID string       `json:"session_id"`
	Plan      PlanResponse `json:"plan"`
}

// ConfirmRequest carries the session_id from the checkout success redirect.
type ConfirmRequest struct {
	SessionID string `json:"session_id" binding:"required"`
}

type ConfirmResponse struct {
	Applied bool `json:"applied"`
	Credits int  `json:"credits"`
	Balance int  `json:"balance"`
}

type PurchaseResponse struct {
	SessionID   string    `json:"session_id"`
	PlanID      string    `json:"plan_id"`
	Credits     int       `json:"credits"`
	AmountMinor int64     `json:"amount_minor"`
	Currency    string    `json:"currency"`
	Source      string    `json:"source"`
	AppliedAt   time.Time `json:"applied_at"`
}

type ListPurchasesResponse struct {
	Items []PurchaseResponse `json:"items"`
}
