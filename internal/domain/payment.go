package domain

import "time"

// Confirmation sources.
const (
	ConfirmedByRedirect = "redirect"
	ConfirmedByWebhook  = "webhook"
)

// PaymentConfirmation records a checkout session whose credits were applied.
type PaymentConfirmation struct {
	SessionID   string
	AccountID   string
	PlanID      string
	Credits     int
	AmountMinor int64
	Currency    string
	Source      string
	AppliedAt   time.Time
}

// PaidSession is the payment provider's own record of a checkout.
type PaidSession struct {
	ID          string
	AccountID   string
	PlanID      string
	Credits     int
	AmountMinor int64
	Currency    string
	Paid        bool
}
