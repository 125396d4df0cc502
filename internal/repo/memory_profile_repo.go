package repo

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	dom "github.com/ramtunguturi36/hair/internal/domain"
)

// ErrStoreUnavailable is what MemoryProfileRepo returns while failures are injected.
var ErrStoreUnavailable = errors.New("profile store unavailable")

// MemoryProfileRepo keeps profiles in process. Accounts are created on first
// read, the way an identity provider already knows every signed-in user.
type MemoryProfileRepo struct {
	mu        sync.Mutex
	profiles  map[string]map[string]any
	failGet   bool
	failWrite bool
	writes    int
}

// NewMemoryProfileRepo returns an empty store.
func NewMemoryProfileRepo() *MemoryProfileRepo {
	return &MemoryProfileRepo{profiles: make(map[string]map[string]any)}
}

// Seed sets an account's metadata verbatim.
func (r *MemoryProfileRepo) Seed(accountID string, metadata map[string]any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.profiles[accountID] = clone(metadata)
}

// FailReads makes Get return ErrStoreUnavailable until reset.
func (r *MemoryProfileRepo) FailReads(fail bool) {
	r.mu.Lock()
	r.failGet = fail
	r.mu.Unlock()
}

// FailWrites makes Replace return ErrStoreUnavailable until reset.
func (r *MemoryProfileRepo) FailWrites(fail bool) {
	r.mu.Lock()
	r.failWrite = fail
	r.mu.Unlock()
}

// Writes counts successful Replace calls.
func (r *MemoryProfileRepo) Writes() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.writes
}

func (r *MemoryProfileRepo) Get(ctx context.Context, accountID string) (dom.Profile, error) {
	if err := ctx.Err(); err != nil {
		return dom.Profile{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failGet {
		return dom.Profile{}, ErrStoreUnavailable
	}
	meta, ok := r.profiles[accountID]
	if !ok {
		meta = map[string]any{}
		r.profiles[accountID] = meta
	}
	return dom.Profile{AccountID: accountID, Metadata: clone(meta)}, nil
}

func (r *MemoryProfileRepo) Replace(ctx context.Context, accountID string, metadata map[string]any) (dom.Profile, error) {
	if err := ctx.Err(); err != nil {
		return dom.Profile{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failWrite {
		return dom.Profile{}, ErrStoreUnavailable
	}
	stored := clone(metadata)
	r.profiles[accountID] = stored
	r.writes++
	return dom.Profile{AccountID: accountID, Metadata: clone(stored)}, nil
}

// clone round-trips through JSON so stored values look like what a remote
// store hands back (numbers become float64).
func clone(meta map[string]any) map[string]any {
	out := map[string]any{}
	if len(meta) == 0 {
		return out
	}
	b, err := json.Marshal(meta)
	if err != nil {
		for k, v := range meta {
			out[k] = v
		}
		return out
	}
	_ = json.Unmarshal(b, &out)
	return out
}
