package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	dom "github.com/ramtunguturi36/hair/internal/domain"
	"github.com/ramtunguturi36/hair/internal/metrics"
	"github.com/ramtunguturi36/hair/internal/repo"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"
)

const defaultLedgerTopic = "ledger.events"

// CreditLedger holds one account's cached balance and initial-grant flag for
// the lifetime of a signed-in session. The remote profile store stays the
// source of truth.
//
// mu guards the cache only. Remote round trips run outside the lock, so a
// Debit and a Credit on the same account can interleave and the last remote
// write wins. The profile store offers no atomic increment to prevent that.
type CreditLedger struct {
	accountID string
	profiles  repo.ProfileRepo

	grant     int
	publisher EventPublisher
	topic     string
	metrics   *metrics.Metrics
	log       logrus.FieldLogger
	now       clock
	inits     *singleflight.Group

	mu          sync.Mutex
	balance     int
	initialized bool
	metadata    map[string]any
}

// LedgerOption configures a CreditLedger.
type LedgerOption func(*CreditLedger)

// WithInitialAllotment overrides the one-time grant for new accounts.
func WithInitialAllotment(n int) LedgerOption {
	return func(l *CreditLedger) { l.grant = n }
}

// WithPublisher sends committed mutations to topic.
func WithPublisher(p EventPublisher, topic string) LedgerOption {
	return func(l *CreditLedger) {
		l.publisher = p
		if topic != "" {
			l.topic = topic
		}
	}
}

func WithMetrics(m *metrics.Metrics) LedgerOption {
	return func(l *CreditLedger) { l.metrics = m }
}

func WithLogger(log logrus.FieldLogger) LedgerOption {
	return func(l *CreditLedger) {
		if log != nil {
			l.log = log
		}
	}
}

// withInitGroup shares first-use loading between ledgers of the same account.
func withInitGroup(g *singleflight.Group) LedgerOption {
	return func(l *CreditLedger) { l.inits = g }
}

// NewCreditLedger returns an uninitialized ledger for accountID.
func NewCreditLedger(accountID string, profiles repo.ProfileRepo, opts ...LedgerOption) *CreditLedger {
	l := &CreditLedger{
		accountID: accountID,
		profiles:  profiles,
		grant:     dom.DefaultInitialAllotment,
		topic:     defaultLedgerTopic,
		log:       logrus.StandardLogger(),
		now:       time.Now,
		metadata:  map[string]any{},
	}
	for _, opt := range opts {
		opt(l)
	}
	if l.inits == nil {
		l.inits = &singleflight.Group{}
	}
	l.log = l.log.WithField("account_id", accountID)
	return l
}

func (l *CreditLedger) AccountID() string { return l.accountID }

// Balance returns the cached balance.
func (l *CreditLedger) Balance() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.balance
}

// Snapshot returns the cached ledger state.
func (l *CreditLedger) Snapshot() dom.Ledger {
	l.mu.Lock()
	defer l.mu.Unlock()
	return dom.Ledger{AccountID: l.accountID, Balance: l.balance, Initialized: l.initialized}
}

// Initialize loads the account on first use. An account with neither the
// grant flag nor a stored balance receives the initial allotment; a stored
// balance without the flag is adopted and the flag backfilled. Later calls
// are no-ops. On failure the ledger stays uninitialized.
//
// Concurrent first loads of one account share a single remote round trip, so
// the allotment is written at most once. Joiners run under the first
// caller's context.
func (l *CreditLedger) Initialize(ctx context.Context) error {
	l.mu.Lock()
	done := l.initialized
	l.mu.Unlock()
	if done {
		return nil
	}

	v, err, _ := l.inits.Do(l.accountID, func() (any, error) {
		return l.load(ctx)
	})
	if err != nil {
		return err
	}
	p := v.(dom.Profile)
	balance, _ := p.Credits()

	l.mu.Lock()
	// A ledger that finished initializing meanwhile may already have moved.
	if !l.initialized {
		l.balance = balance
		l.initialized = true
		l.metadata = p.Metadata
	}
	l.mu.Unlock()
	l.metrics.LedgerOp("initialize", "ok")
	return nil
}

// load reads the stored profile, writing the grant or the backfilled flag
// when needed, and returns what the store now holds.
func (l *CreditLedger) load(ctx context.Context) (dom.Profile, error) {
	p, err := l.profiles.Get(ctx, l.accountID)
	if err != nil {
		l.metrics.LedgerOp("initialize", "read_failed")
		return dom.Profile{}, fmt.Errorf("%w: %w", ErrRemoteRead, err)
	}

	balance, hasBalance := p.Credits()
	granted := false
	switch {
	case !p.Initialized() && !hasBalance:
		balance = l.grant
		granted = true
		p, err = l.replace(ctx, p.With(map[string]any{
			dom.MetaCredits:     balance,
			dom.MetaInitialized: true,
		}))
	case !p.Initialized():
		l.log.WithField("balance", balance).Info("backfilling initial credits flag")
		p, err = l.replace(ctx, p.With(map[string]any{dom.MetaInitialized: true}))
	}
	if err != nil {
		l.metrics.LedgerOp("initialize", "write_failed")
		return dom.Profile{}, fmt.Errorf("%w: %w", ErrRemoteWrite, err)
	}

	if granted {
		l.metrics.LedgerOp(string(dom.OpGrant), "committed")
		l.publish(ctx, dom.EventCreditsGranted, dom.OpGrant, balance, balance)
	}
	return p, nil
}

// Refresh replaces the cache with the stored balance. On a read failure the
// cache keeps its previous value.
func (l *CreditLedger) Refresh(ctx context.Context) error {
	p, err := l.profiles.Get(ctx, l.accountID)
	if err != nil {
		l.log.WithError(err).Warn("refresh balance failed, keeping cached value")
		l.metrics.LedgerOp("refresh", "read_failed")
		return fmt.Errorf("%w: %w", ErrRemoteRead, err)
	}
	balance, _ := p.Credits()

	l.mu.Lock()
	l.balance = balance
	l.metadata = p.Metadata
	l.mu.Unlock()
	l.metrics.LedgerOp("refresh", "ok")
	return nil
}

// Debit spends amount from the cached balance and persists the result. The
// cache moves first; a failed write restores the pre-debit value and the
// caller must not perform the billable action.
func (l *CreditLedger) Debit(ctx context.Context, amount int) (dom.Mutation, error) {
	m := dom.Mutation{Op: dom.OpDebit, Amount: amount, State: dom.MutationPending}
	if amount <= 0 {
		return l.reject(m, "invalid"), ErrInvalidAmount
	}

	l.mu.Lock()
	m.Before = l.balance
	if l.balance < amount {
		m.After = l.balance
		l.mu.Unlock()
		return l.reject(m, "insufficient"), ErrInsufficientBalance
	}
	l.balance -= amount
	m.After = l.balance
	next := dom.Profile{Metadata: l.metadata}.With(map[string]any{dom.MetaCredits: m.After})
	l.mu.Unlock()

	p, err := l.replace(ctx, next)
	if err != nil {
		l.mu.Lock()
		l.balance = m.Before
		l.mu.Unlock()
		m.After = m.Before
		m.State = dom.MutationRolledBack
		l.log.WithError(err).WithField("amount", amount).Warn("debit not persisted, rolled back")
		l.metrics.LedgerOp(string(dom.OpDebit), "rolled_back")
		return m, fmt.Errorf("%w: %w", ErrRemoteWrite, err)
	}

	l.mu.Lock()
	l.metadata = p.Metadata
	l.mu.Unlock()
	m.State = dom.MutationCommitted
	l.metrics.LedgerOp(string(dom.OpDebit), "committed")
	l.publish(ctx, dom.EventCreditsDebited, dom.OpDebit, amount, m.After)
	return m, nil
}

// Credit adds amount on top of the stored balance, not the cached one, and
// marks the account as having received its initial grant.
func (l *CreditLedger) Credit(ctx context.Context, amount int) (dom.Mutation, error) {
	m := dom.Mutation{Op: dom.OpCredit, Amount: amount, State: dom.MutationPending}
	if amount <= 0 {
		return l.reject(m, "invalid"), ErrInvalidAmount
	}

	p, err := l.profiles.Get(ctx, l.accountID)
	if err != nil {
		m.Before = l.Balance()
		m.After = m.Before
		l.log.WithError(err).WithField("amount", amount).Warn("credit aborted, balance unreadable")
		return l.reject(m, "read_failed"), fmt.Errorf("%w: %w", ErrRemoteRead, err)
	}
	base, _ := p.Credits()
	m.Before = base
	m.After = base + amount

	l.mu.Lock()
	l.balance = m.After
	l.mu.Unlock()

	written, err := l.replace(ctx, p.With(map[string]any{
		dom.MetaCredits:     m.After,
		dom.MetaInitialized: true,
	}))
	if err != nil {
		l.mu.Lock()
		l.balance -= amount
		m.After = l.balance
		l.mu.Unlock()
		m.State = dom.MutationRolledBack
		l.log.WithError(err).WithField("amount", amount).Warn("credit not persisted, rolled back")
		l.metrics.LedgerOp(string(dom.OpCredit), "rolled_back")
		return m, fmt.Errorf("%w: %w", ErrRemoteWrite, err)
	}

	l.mu.Lock()
	l.metadata = written.Metadata
	l.initialized = true
	l.mu.Unlock()
	m.State = dom.MutationCommitted
	l.metrics.LedgerOp(string(dom.OpCredit), "committed")
	l.publish(ctx, dom.EventCreditsCredited, dom.OpCredit, amount, m.After)
	return m, nil
}

func (l *CreditLedger) replace(ctx context.Context, meta map[string]any) (dom.Profile, error) {
	return l.profiles.Replace(ctx, l.accountID, meta)
}

func (l *CreditLedger) reject(m dom.Mutation, outcome string) dom.Mutation {
	m.State = dom.MutationRejected
	l.metrics.LedgerOp(string(m.Op), outcome)
	return m
}

func (l *CreditLedger) publish(ctx context.Context, typ string, op dom.MutationOp, amount, balance int) {
	if l.publisher == nil {
		return
	}
	ev := dom.LedgerEvent{
		ID:         uuid.NewString(),
		Type:       typ,
		AccountID:  l.accountID,
		Op:         op,
		Amount:     amount,
		Balance:    balance,
		OccurredAt: l.now().UTC(),
	}
	if err := l.publisher.Publish(ctx, l.topic, l.accountID, ev); err != nil {
		l.log.WithError(err).WithField("event", typ).Warn("publish ledger event failed")
	}
}
