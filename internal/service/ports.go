package service

import (
	"context"
	"time"

	dom "github.com/ramtunguturi36/hair/internal/domain"
)

// EventPublisher delivers ledger events. Implementations live in internal/events.
type EventPublisher interface {
	Publish(ctx context.Context, topic, key string, event any) error
}

// AnalyzerResult is what a HairAnalyzer reports for one photo.
type AnalyzerResult struct {
	Summary       string
	HairType      string
	Confidence    int
	Probabilities []dom.HairProbability
}

// HairAnalyzer classifies a hair photo.
type HairAnalyzer interface {
	Analyze(ctx context.Context, image []byte, mimeType string) (AnalyzerResult, error)
}

// CheckoutRequest is everything the provider needs to open a hosted checkout.
type CheckoutRequest struct {
	AccountID  string
	Plan       dom.Plan
	SuccessURL string
	CancelURL  string
}

// CheckoutSession is the provider's answer to CreateCheckout.
type CheckoutSession struct {
	ID  string
	URL string
}

// WebhookEvent is a verified provider notification.
type WebhookEvent struct {
	ID        string
	Type      string
	SessionID string
}

// PaymentProvider is the hosted checkout backend.
type PaymentProvider interface {
	CreateCheckout(ctx context.Context, req CheckoutRequest) (CheckoutSession, error)
	LookupSession(ctx context.Context, sessionID string) (dom.PaidSession, error)
	ParseWebhook(payload []byte, signature string) (WebhookEvent, error)
}

// ConfirmationGuard hands out a one-shot claim per checkout session. Persist
// drops the claim's expiry; it is the only record of a confirmation whose
// database row could not be written.
type ConfirmationGuard interface {
	Claim(ctx context.Context, key string) (bool, error)
	Release(ctx context.Context, key string) error
	Persist(ctx context.Context, key string) error
}

// HistoryCache caches history lists. A nil list from GetList is a miss.
type HistoryCache interface {
	GetList(ctx context.Context, accountID string) ([]dom.Analysis, error)
	SetList(ctx context.Context, accountID string, list []dom.Analysis) error
	Invalidate(ctx context.Context, accountID string) error
}

// clock is swapped in tests.
type clock func() time.Time

func nowUTC() time.Time { return time.Now().UTC() }
