package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	dom "github.com/ramtunguturi36/hair/internal/domain"
	"github.com/ramtunguturi36/hair/internal/metrics"
	"github.com/ramtunguturi36/hair/internal/repo"

	"github.com/sirupsen/logrus"
)

// EventCheckoutCompleted is the provider event that carries a paid checkout.
const EventCheckoutCompleted = "checkout.session.completed"

// ConfirmResult reports what a confirmation did. Applied is false for a
// session that was already applied.
type ConfirmResult struct {
	Applied bool
	Credits int
	Balance int
}

// PaymentService sells credit plans and applies paid checkouts to ledgers.
type PaymentService struct {
	provider PaymentProvider
	payments repo.PaymentRepo
	guard    ConfirmationGuard
	ledgers  *LedgerRegistry

	successURL string
	cancelURL  string

	metrics *metrics.Metrics
	log     logrus.FieldLogger
}

// PaymentServiceConfig carries the hosted checkout return URLs.
type PaymentServiceConfig struct {
	SuccessURL string
	CancelURL  string
}

func NewPaymentService(
	provider PaymentProvider,
	payments repo.PaymentRepo,
	guard ConfirmationGuard,
	ledgers *LedgerRegistry,
	cfg PaymentServiceConfig,
	m *metrics.Metrics,
	log logrus.FieldLogger,
) *PaymentService {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &PaymentService{
		provider:   provider,
		payments:   payments,
		guard:      guard,
		ledgers:    ledgers,
		successURL: cfg.SuccessURL,
		cancelURL:  cfg.CancelURL,
		metrics:    m,
		log:        log.WithField("component", "payments"),
	}
}

// Plans is the catalogue offered at checkout.
func (s *PaymentService) Plans() []dom.Plan {
	return dom.Plans()
}

// Checkout opens a hosted checkout for planID. Price and credits come from
// the server-side catalogue only.
func (s *PaymentService) Checkout(ctx context.Context, accountID, planID string) (CheckoutSession, dom.Plan, error) {
	plan, ok := dom.PlanByID(planID)
	if !ok {
		return CheckoutSession{}, dom.Plan{}, ErrUnknownPlan
	}
	sess, err := s.provider.CreateCheckout(ctx, CheckoutRequest{
		AccountID:  accountID,
		Plan:       plan,
		SuccessURL: s.successURL,
		CancelURL:  s.cancelURL,
	})
	if err != nil {
		s.log.WithError(err).WithFields(logrus.Fields{
			"account_id": accountID,
			"plan_id":    plan.ID,
		}).Error("create checkout session failed")
		return CheckoutSession{}, dom.Plan{}, fmt.Errorf("%w: %w", ErrPaymentProvider, err)
	}
	return sess, plan, nil
}

// Confirm applies a checkout the user was redirected back from. The
// credited quantity is the one recorded by the provider, never one taken from
// the redirect.
func (s *PaymentService) Confirm(ctx context.Context, ledger *CreditLedger, sessionID string) (ConfirmResult, error) {
	sess, err := s.lookup(ctx, sessionID)
	if err != nil {
		s.metrics.Payment(dom.ConfirmedByRedirect, "lookup_failed")
		return ConfirmResult{}, err
	}
	return s.apply(ctx, ledger, sess, dom.ConfirmedByRedirect)
}

// HandleWebhook verifies a provider notification and applies completed
// checkouts. Other event types are acknowledged with handled=false.
func (s *PaymentService) HandleWebhook(ctx context.Context, payload []byte, signature string) (ConfirmResult, bool, error) {
	ev, err := s.provider.ParseWebhook(payload, signature)
	if err != nil {
		return ConfirmResult{}, false, fmt.Errorf("%w: %w", ErrInvalidSignature, err)
	}
	if ev.Type != EventCheckoutCompleted {
		s.log.WithFields(logrus.Fields{"event_id": ev.ID, "type": ev.Type}).Debug("ignoring webhook event")
		return ConfirmResult{}, false, nil
	}

	sess, err := s.lookup(ctx, ev.SessionID)
	if err != nil {
		s.metrics.Payment(dom.ConfirmedByWebhook, "lookup_failed")
		return ConfirmResult{}, true, err
	}
	if sess.AccountID == "" {
		s.metrics.Payment(dom.ConfirmedByWebhook, "unverified")
		return ConfirmResult{}, true, fmt.Errorf("%w: session %s has no account", ErrPaymentUnverified, sess.ID)
	}
	ledger, err := s.ledgers.ForAccount(ctx, sess.AccountID)
	if err != nil {
		s.metrics.Payment(dom.ConfirmedByWebhook, "ledger_failed")
		return ConfirmResult{}, true, err
	}
	res, err := s.apply(ctx, ledger, sess, dom.ConfirmedByWebhook)
	return res, true, err
}

// Purchases lists the account's applied checkouts, newest first.
func (s *PaymentService) Purchases(ctx context.Context, accountID string) ([]dom.PaymentConfirmation, error) {
	return s.payments.ListByAccount(ctx, accountID)
}

func (s *PaymentService) lookup(ctx context.Context, sessionID string) (dom.PaidSession, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return dom.PaidSession{}, fmt.Errorf("%w: missing session id", ErrPaymentUnverified)
	}
	sess, err := s.provider.LookupSession(ctx, sessionID)
	if err != nil {
		return dom.PaidSession{}, fmt.Errorf("%w: %w", ErrPaymentProvider, err)
	}
	return sess, nil
}

func (s *PaymentService) apply(ctx context.Context, ledger *CreditLedger, sess dom.PaidSession, source string) (ConfirmResult, error) {
	log := s.log.WithFields(logrus.Fields{
		"account_id": ledger.AccountID(),
		"session_id": sess.ID,
		"source":     source,
	})

	plan, err := verifySession(sess, ledger.AccountID())
	if err != nil {
		log.WithError(err).Warn("checkout session rejected")
		s.metrics.Payment(source, "unverified")
		return ConfirmResult{}, err
	}

	recorded, err := s.payments.Exists(ctx, sess.ID)
	if err != nil {
		return ConfirmResult{}, fmt.Errorf("check confirmation: %w", err)
	}
	if recorded {
		return s.duplicate(ctx, ledger, plan, source, log), nil
	}

	claimed, err := s.guard.Claim(ctx, sess.ID)
	if err != nil {
		return ConfirmResult{}, fmt.Errorf("claim confirmation: %w", err)
	}
	if !claimed {
		return s.duplicate(ctx, ledger, plan, source, log), nil
	}

	if _, err := ledger.Credit(ctx, plan.Credits); err != nil {
		if rerr := s.guard.Release(ctx, sess.ID); rerr != nil {
			log.WithError(rerr).Error("release confirmation claim failed")
		}
		log.WithError(err).Error("failed to add credits")
		s.metrics.Payment(source, "credit_failed")
		return ConfirmResult{}, err
	}

	_, err = s.payments.Create(ctx, dom.PaymentConfirmation{
		SessionID:   sess.ID,
		AccountID:   ledger.AccountID(),
		PlanID:      plan.ID,
		Credits:     plan.Credits,
		AmountMinor: sess.AmountMinor,
		Currency:    strings.ToLower(sess.Currency),
		Source:      source,
	})
	switch {
	case errors.Is(err, repo.ErrConfirmationExists):
		log.Warn("confirmation recorded concurrently")
	case err != nil:
		log.WithError(err).Error("record confirmation failed, claim kept")
		if perr := s.guard.Persist(ctx, sess.ID); perr != nil {
			log.WithError(perr).Error("persist confirmation claim failed")
		}
	}

	if err := ledger.Refresh(ctx); err != nil {
		log.WithError(err).Warn("refresh after credit failed")
	}
	log.WithField("credits", plan.Credits).Info("credits applied")
	s.metrics.Payment(source, "applied")
	return ConfirmResult{Applied: true, Credits: plan.Credits, Balance: ledger.Balance()}, nil
}

// duplicate answers a confirmation that was already applied, possibly through
// another ledger, so the caller's cache is reconciled with the store first.
func (s *PaymentService) duplicate(ctx context.Context, ledger *CreditLedger, plan dom.Plan, source string, log logrus.FieldLogger) ConfirmResult {
	if err := ledger.Refresh(ctx); err != nil {
		log.WithError(err).Warn("refresh after duplicate confirmation failed")
	}
	s.metrics.Payment(source, "duplicate")
	return ConfirmResult{Credits: plan.Credits, Balance: ledger.Balance()}
}

// verifySession checks the provider's record against the caller and the catalogue.
func verifySession(sess dom.PaidSession, accountID string) (dom.Plan, error) {
	if !sess.Paid {
		return dom.Plan{}, fmt.Errorf("%w: session %s is not paid", ErrPaymentUnverified, sess.ID)
	}
	if sess.AccountID != accountID {
		return dom.Plan{}, fmt.Errorf("%w: session %s belongs to another account", ErrPaymentUnverified, sess.ID)
	}
	plan, ok := dom.PlanByID(sess.PlanID)
	if !ok {
		return dom.Plan{}, fmt.Errorf("%w: unknown plan %q", ErrPaymentUnverified, sess.PlanID)
	}
	if sess.Credits != plan.Credits ||
		sess.AmountMinor != plan.AmountMinor ||
		!strings.EqualFold(sess.Currency, plan.Currency) {
		return dom.Plan{}, fmt.Errorf("%w: session %s does not match plan %s", ErrPaymentUnverified, sess.ID, plan.ID)
	}
	return plan, nil
}
