package domain

import "time"

const (
	// DefaultInitialAllotment is the one-time free grant on first use.
	DefaultInitialAllotment = 150
	// DefaultAnalysisCost is what one hair analysis costs.
	DefaultAnalysisCost = 25
)

// Metadata keys on the remote profile. Kept as the frontend wrote them.
const (
	MetaCredits     = "credits"
	MetaInitialized = "hasReceivedInitialCredits"
)

// Ledger is the per-account credit record: balance plus the initial-grant flag.
type Ledger struct {
	AccountID   string
	Balance     int
	Initialized bool
}

// Profile is a read-whole snapshot of an account's metadata blob in the
// remote profile store. Keys other than the ledger ones are opaque.
type Profile struct {
	AccountID string
	Metadata  map[string]any
}

// Credits returns the stored balance and whether the key was present at all.
func (p Profile) Credits() (int, bool) {
	v, ok := p.Metadata[MetaCredits]
	if !ok || v == nil {
		return 0, false
	}
	switch n := v.(type) {
	case float64:
		return int(n), true
	case int:
		return n, true
	case int64:
		return int(n), true
	case jsonNumber:
		i, err := n.Int64()
		if err != nil {
			return 0, false
		}
		return int(i), true
	}
	return 0, false
}

// jsonNumber matches encoding/json.Number without importing it.
type jsonNumber interface{ Int64() (int64, error) }

// Initialized reports the stored initial-grant flag.
func (p Profile) Initialized() bool {
	b, _ := p.Metadata[MetaInitialized].(bool)
	return b
}

// With returns a copy of the metadata with the given keys overwritten.
func (p Profile) With(updates map[string]any) map[string]any {
	out := make(map[string]any, len(p.Metadata)+len(updates))
	for k, v := range p.Metadata {
		out[k] = v
	}
	for k, v := range updates {
		out[k] = v
	}
	return out
}

// MutationOp names a ledger operation.
type MutationOp string

const (
	OpGrant  MutationOp = "grant"
	OpDebit  MutationOp = "debit"
	OpCredit MutationOp = "credit"
)

// MutationState tracks an optimistic cache update.
type MutationState string

const (
	MutationPending    MutationState = "pending"
	MutationCommitted  MutationState = "committed"
	MutationRolledBack MutationState = "rolled_back"
	// MutationRejected means the request was refused before the cache moved.
	MutationRejected MutationState = "rejected"
)

// Mutation describes one Debit or Credit: Pending -> Committed | RolledBack.
type Mutation struct {
	Op     MutationOp
	Amount int
	Before int
	After  int
	State  MutationState
}

// LedgerEvent is published after a committed ledger mutation.
type LedgerEvent struct {
	ID         string     `json:"id"`
	Type       string     `json:"type"`
	AccountID  string     `json:"account_id"`
	Op         MutationOp `json:"op"`
	Amount     int        `json:"amount"`
	Balance    int        `json:"balance"`
	OccurredAt time.Time  `json:"occurred_at"`
}

// Event types.
const (
	EventCreditsGranted  = "credits.granted"
	EventCreditsDebited  = "credits.debited"
	EventCreditsCredited = "credits.credited"
)
