// Package payment adapts Stripe Checkout to the service's PaymentProvider.
package payment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	dom "github.com/ramtunguturi36/hair/internal/domain"
	"github.com/ramtunguturi36/hair/internal/service"

	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/client"
	"github.com/stripe/stripe-go/v79/webhook"
)

// Checkout session metadata keys.
const (
	metaCredits   = "credits"
	metaPlanID    = "plan_id"
	metaAccountID = "account_id"
)

var errNoWebhookSecret = errors.New("webhook secret is not configured")

// StripeProvider creates and looks up Checkout Sessions.
type StripeProvider struct {
	api           *client.API
	webhookSecret string
}

// NewStripeProvider returns a provider using the given secret key. backends may
// be nil to use Stripe's default backends.
func NewStripeProvider(secretKey, webhookSecret string, backends *stripe.Backends) *StripeProvider {
	api := &client.API{}
	api.Init(secretKey, backends)
	return &StripeProvider{api: api, webhookSecret: webhookSecret}
}

// CreateCheckout opens a one-off payment session for the plan.
func (p *StripeProvider) CreateCheckout(ctx context.Context, req service.CheckoutRequest) (service.CheckoutSession, error) {
	params := checkoutParams(req)
	params.Context = ctx
	s, err := p.api.CheckoutSessions.New(params)
	if err != nil {
		return service.CheckoutSession{}, fmt.Errorf("stripe create checkout session: %w", err)
	}
	return service.CheckoutSession{ID: s.ID, URL: s.URL}, nil
}

// LookupSession fetches Stripe's own record of a checkout.
func (p *StripeProvider) LookupSession(ctx context.Context, sessionID string) (dom.PaidSession, error) {
	params := &stripe.CheckoutSessionParams{}
	params.Context = ctx
	s, err := p.api.CheckoutSessions.Get(sessionID, params)
	if err != nil {
		return dom.PaidSession{}, fmt.Errorf("stripe get checkout session: %w", err)
	}
	return paidSession(s), nil
}

// ParseWebhook verifies the Stripe-Signature header and decodes the event.
func (p *StripeProvider) ParseWebhook(payload []byte, signature string) (service.WebhookEvent, error) {
	if p.webhookSecret == "" {
		return service.WebhookEvent{}, errNoWebhookSecret
	}
	ev, err := webhook.ConstructEventWithOptions(payload, signature, p.webhookSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		return service.WebhookEvent{}, err
	}
	out := service.WebhookEvent{ID: ev.ID, Type: string(ev.Type)}
	if ev.Type == stripe.EventTypeCheckoutSessionCompleted && ev.Data != nil {
		var obj struct {
			ID string `json:"id"`
		}
		if err := json.Unmarshal(ev.Data.Raw, &obj); err != nil {
			return service.WebhookEvent{}, fmt.Errorf("decode checkout session: %w", err)
		}
		out.SessionID = obj.ID
	}
	return out, nil
}

func checkoutParams(req service.CheckoutRequest) *stripe.CheckoutSessionParams {
	plan := req.Plan
	params := &stripe.CheckoutSessionParams{
		Mode:               stripe.String(string(stripe.CheckoutSessionModePayment)),
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		ClientReferenceID:  stripe.String(req.AccountID),
		SuccessURL:         stripe.String(req.SuccessURL),
		CancelURL:          stripe.String(req.CancelURL),
		LineItems: []*stripe.CheckoutSessionLineItemParams{{
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:   stripe.String(plan.Currency),
				UnitAmount: stripe.Int64(plan.AmountMinor),
				ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
					Name:        stripe.String(plan.Name),
					Description: stripe.String(fmt.Sprintf("%d Hair Analysis Credits", plan.Credits)),
				},
			},
			Quantity: stripe.Int64(1),
		}},
	}
	params.AddMetadata(metaCredits, strconv.Itoa(plan.Credits))
	params.AddMetadata(metaPlanID, plan.ID)
	params.AddMetadata(metaAccountID, req.AccountID)
	return params
}

func paidSession(s *stripe.CheckoutSession) dom.PaidSession {
	out := dom.PaidSession{
		ID:          s.ID,
		AccountID:   s.ClientReferenceID,
		AmountMinor: s.AmountTotal,
		Currency:    string(s.Currency),
		Paid:        s.PaymentStatus == stripe.CheckoutSessionPaymentStatusPaid,
	}
	if out.AccountID == "" {
		out.AccountID = s.Metadata[metaAccountID]
	}
	out.PlanID = s.Metadata[metaPlanID]
	if n, err := strconv.Atoi(s.Metadata[metaCredits]); err == nil {
		out.Credits = n
	}
	return out
}
