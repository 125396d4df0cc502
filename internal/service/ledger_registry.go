package service

import (
	"context"
	"sync"
	"time"

	"github.com/ramtunguturi36/hair/internal/repo"

	"golang.org/x/sync/singleflight"
)

// Principal identifies a signed-in user and the session they signed in with.
type Principal struct {
	AccountID string
	SessionID string
}

// key is the session id, or the account for tokens without one.
func (p Principal) key() string {
	if p.SessionID != "" {
		return p.SessionID
	}
	return p.AccountID
}

type sessionLedger struct {
	ledger   *CreditLedger
	lastSeen time.Time
}

// LedgerRegistry owns one CreditLedger per authenticated session.
type LedgerRegistry struct {
	profiles repo.ProfileRepo
	opts     []LedgerOption
	now      clock
	inits    singleflight.Group

	mu       sync.Mutex
	sessions map[string]*sessionLedger
}

// NewLedgerRegistry returns an empty registry; opts apply to every ledger it builds.
func NewLedgerRegistry(profiles repo.ProfileRepo, opts ...LedgerOption) *LedgerRegistry {
	return &LedgerRegistry{
		profiles: profiles,
		opts:     opts,
		now:      time.Now,
		sessions: make(map[string]*sessionLedger),
	}
}

// ForSession returns the session's ledger, creating and initializing it on
// first observation. A ledger whose Initialize failed is not kept, so the
// next request retries.
func (r *LedgerRegistry) ForSession(ctx context.Context, p Principal) (*CreditLedger, error) {
	key := p.key()

	r.mu.Lock()
	entry, ok := r.sessions[key]
	if ok && entry.ledger.AccountID() != p.AccountID {
		delete(r.sessions, key)
		ok = false
	}
	if !ok {
		entry = &sessionLedger{ledger: r.newLedger(p.AccountID)}
		r.sessions[key] = entry
	}
	entry.lastSeen = r.now()
	r.mu.Unlock()

	if err := entry.ledger.Initialize(ctx); err != nil {
		r.mu.Lock()
		if r.sessions[key] == entry {
			delete(r.sessions, key)
		}
		r.mu.Unlock()
		return nil, err
	}
	return entry.ledger, nil
}

// ForAccount builds a transient initialized ledger for flows that have no
// session, such as provider webhooks.
func (r *LedgerRegistry) ForAccount(ctx context.Context, accountID string) (*CreditLedger, error) {
	l := r.newLedger(accountID)
	if err := l.Initialize(ctx); err != nil {
		return nil, err
	}
	return l, nil
}

func (r *LedgerRegistry) newLedger(accountID string) *CreditLedger {
	opts := make([]LedgerOption, 0, len(r.opts)+1)
	opts = append(opts, r.opts...)
	opts = append(opts, withInitGroup(&r.inits))
	return NewCreditLedger(accountID, r.profiles, opts...)
}

// Forget drops a session's ledger (sign-out).
func (r *LedgerRegistry) Forget(p Principal) {
	r.mu.Lock()
	delete(r.sessions, p.key())
	r.mu.Unlock()
}

// Sweep drops ledgers idle for longer than maxIdle and returns how many went.
func (r *LedgerRegistry) Sweep(maxIdle time.Duration) int {
	cutoff := r.now().Add(-maxIdle)
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for key, entry := range r.sessions {
		if entry.lastSeen.Before(cutoff) {
			delete(r.sessions, key)
			n++
		}
	}
	return n
}

// Len is the number of live session ledgers.
func (r *LedgerRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}
