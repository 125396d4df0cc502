package service

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	dom "github.com/ramtunguturi36/hair/internal/domain"
	"github.com/ramtunguturi36/hair/internal/repo"

	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
)

var errBoom = errors.New("boom")

func quietLogger() logrus.FieldLogger {
	l, _ := logtest.NewNullLogger()
	return l
}

func seededStore(accountID string, meta map[string]any) *repo.MemoryProfileRepo {
	store := repo.NewMemoryProfileRepo()
	if meta != nil {
		store.Seed(accountID, meta)
	}
	return store
}

type fakeAnalyzer struct {
	mu     sync.Mutex
	calls  int
	result AnalyzerResult
	err    error
}

func (f *fakeAnalyzer) Analyze(_ context.Context, _ []byte, _ string) (AnalyzerResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.result, f.err
}

type fakeHistoryRepo struct {
	mu        sync.Mutex
	items     []dom.Analysis
	listCalls int
	err       error
}

func (f *fakeHistoryRepo) Create(_ context.Context, a dom.Analysis) (dom.Analysis, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return dom.Analysis{}, f.err
	}
	f.items = append(f.items, a)
	return a, nil
}

func (f *fakeHistoryRepo) ListByAccount(_ context.Context, accountID string, limit int) ([]dom.Analysis, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listCalls++
	out := make([]dom.Analysis, 0)
	for _, a := range f.items {
		if a.AccountID == accountID {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

type fakeHistoryCache struct {
	mu          sync.Mutex
	lists       map[string][]dom.Analysis
	invalidated int
}

func newFakeHistoryCache() *fakeHistoryCache {
	return &fakeHistoryCache{lists: map[string][]dom.Analysis{}}
}

func (f *fakeHistoryCache) GetList(_ context.Context, accountID string) ([]dom.Analysis, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lists[accountID], nil
}

func (f *fakeHistoryCache) SetList(_ context.Context, accountID string, list []dom.Analysis) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lists[accountID] = list
	return nil
}

func (f *fakeHistoryCache) Invalidate(_ context.Context, accountID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.lists, accountID)
	f.invalidated++
	return nil
}

type fakeProvider struct {
	mu        sync.Mutex
	sessions  map[string]dom.PaidSession
	checkouts []CheckoutRequest
	event     WebhookEvent
	lookupErr error
	parseErr  error
}

func newFakeProvider(sessions ...dom.PaidSession) *fakeProvider {
	p := &fakeProvider{sessions: map[string]dom.PaidSession{}}
	for _, s := range sessions {
		p.sessions[s.ID] = s
	}
	return p
}

func (f *fakeProvider) CreateCheckout(_ context.Context, req CheckoutRequest) (CheckoutSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.checkouts = append(f.checkouts, req)
	return CheckoutSession{ID: "cs_new", URL: "https://checkout.example/cs_new"}, nil
}

func (f *fakeProvider) LookupSession(_ context.Context, id string) (dom.PaidSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.lookupErr != nil {
		return dom.PaidSession{}, f.lookupErr
	}
	s, ok := f.sessions[id]
	if !ok {
		return dom.PaidSession{}, errors.New("no such session")
	}
	return s, nil
}

func (f *fakeProvider) ParseWebhook(_ []byte, _ string) (WebhookEvent, error) {
	if f.parseErr != nil {
		return WebhookEvent{}, f.parseErr
	}
	return f.event, nil
}

type fakePaymentRepo struct {
	mu        sync.Mutex
	rows      map[string]dom.PaymentConfirmation
	createErr error
}

func newFakePaymentRepo() *fakePaymentRepo {
	return &fakePaymentRepo{rows: map[string]dom.PaymentConfirmation{}}
}

func (f *fakePaymentRepo) Exists(_ context.Context, id string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.rows[id]
	return ok, nil
}

func (f *fakePaymentRepo) Create(_ context.Context, c dom.PaymentConfirmation) (dom.PaymentConfirmation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return dom.PaymentConfirmation{}, f.createErr
	}
	if _, ok := f.rows[c.SessionID]; ok {
		return dom.PaymentConfirmation{}, repo.ErrConfirmationExists
	}
	c.AppliedAt = time.Now().UTC()
	f.rows[c.SessionID] = c
	return c, nil
}

func (f *fakePaymentRepo) ListByAccount(_ context.Context, accountID string) ([]dom.PaymentConfirmation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]dom.PaymentConfirmation, 0)
	for _, c := range f.rows {
		if c.AccountID == accountID {
			out = append(out, c)
		}
	}
	return out, nil
}

type fakeGuard struct {
	mu        sync.Mutex
	claimed   map[string]bool
	persisted map[string]bool
	released  int
}

func newFakeGuard() *fakeGuard {
	return &fakeGuard{claimed: map[string]bool{}, persisted: map[string]bool{}}
}

func (f *fakeGuard) Claim(_ context.Context, key string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.claimed[key] {
		return false, nil
	}
	f.claimed[key] = true
	return true, nil
}

func (f *fakeGuard) Release(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.claimed, key)
	delete(f.persisted, key)
	f.released++
	return nil
}

func (f *fakeGuard) Persist(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.persisted[key] = true
	return nil
}
