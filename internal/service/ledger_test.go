package service

import (
	"context"
	"testing"

	dom "github.com/ramtunguturi36/hair/internal/domain"
	"github.com/ramtunguturi36/hair/internal/events"
	"github.com/ramtunguturi36/hair/internal/repo"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const acct = "user_1"

func newLedger(t *testing.T, store repo.ProfileRepo, opts ...LedgerOption) *CreditLedger {
	t.Helper()
	opts = append([]LedgerOption{WithLogger(quietLogger())}, opts...)
	return NewCreditLedger(acct, store, opts...)
}

// initialized returns a ledger already holding balance.
func initialized(t *testing.T, balance int) (*CreditLedger, *repo.MemoryProfileRepo) {
	t.Helper()
	store := seededStore(acct, map[string]any{dom.MetaCredits: balance, dom.MetaInitialized: true})
	l := newLedger(t, store)
	require.NoError(t, l.Initialize(context.Background()))
	require.Equal(t, balance, l.Balance())
	return l, store
}

func storedBalance(t *testing.T, store repo.ProfileRepo) int {
	t.Helper()
	p, err := store.Get(context.Background(), acct)
	require.NoError(t, err)
	n, _ := p.Credits()
	return n
}

func TestInitializeGrantsAllotmentOnce(t *testing.T) {
	ctx := context.Background()
	store := repo.NewMemoryProfileRepo()
	l := newLedger(t, store)

	require.NoError(t, l.Initialize(ctx))
	assert.Equal(t, dom.Ledger{AccountID: acct, Balance: 150, Initialized: true}, l.Snapshot())
	assert.Equal(t, 150, storedBalance(t, store))
	assert.Equal(t, 1, store.Writes())

	require.NoError(t, l.Initialize(ctx))
	assert.Equal(t, 150, l.Balance())
	assert.Equal(t, 1, store.Writes())
}

func TestInitializeNeverRegrantsSpentAccount(t *testing.T) {
	ctx := context.Background()
	store := seededStore(acct, map[string]any{dom.MetaCredits: 0, dom.MetaInitialized: true})

	l := newLedger(t, store)
	require.NoError(t, l.Initialize(ctx))

	assert.Equal(t, 0, l.Balance())
	assert.True(t, l.Snapshot().Initialized)
	assert.Equal(t, 0, store.Writes())
}

func TestInitializeFlagWinsOverMissingBalance(t *testing.T) {
	store := seededStore(acct, map[string]any{dom.MetaInitialized: true})
	l := newLedger(t, store)
	require.NoError(t, l.Initialize(context.Background()))
	assert.Equal(t, 0, l.Balance())
	assert.Equal(t, 0, store.Writes())
}

func TestInitializeBackfillsFlagForLegacyBalance(t *testing.T) {
	store := seededStore(acct, map[string]any{dom.MetaCredits: 40, "theme": "dark"})
	l := newLedger(t, store)

	require.NoError(t, l.Initialize(context.Background()))

	assert.Equal(t, 40, l.Balance())
	p, err := store.Get(context.Background(), acct)
	require.NoError(t, err)
	assert.True(t, p.Initialized())
	assert.Equal(t, "dark", p.Metadata["theme"])
}

func TestInitializeCustomAllotment(t *testing.T) {
	l := newLedger(t, repo.NewMemoryProfileRepo(), WithInitialAllotment(10))
	require.NoError(t, l.Initialize(context.Background()))
	assert.Equal(t, 10, l.Balance())
}

func TestInitializeFailuresLeaveLedgerUninitialized(t *testing.T) {
	ctx := context.Background()

	t.Run("read", func(t *testing.T) {
		store := repo.NewMemoryProfileRepo()
		store.FailReads(true)
		l := newLedger(t, store)
		err := l.Initialize(ctx)
		assert.ErrorIs(t, err, ErrRemoteRead)
		assert.False(t, l.Snapshot().Initialized)

		store.FailReads(false)
		require.NoError(t, l.Initialize(ctx))
		assert.Equal(t, 150, l.Balance())
	})

	t.Run("write", func(t *testing.T) {
		store := repo.NewMemoryProfileRepo()
		store.FailWrites(true)
		l := newLedger(t, store)
		err := l.Initialize(ctx)
		assert.ErrorIs(t, err, ErrRemoteWrite)
		assert.False(t, l.Snapshot().Initialized)
		assert.Equal(t, 0, l.Balance())
	})
}

func TestDebit(t *testing.T) {
	tests := []struct {
		name    string
		balance int
		amount  int
		want    int
		wantErr error
		state   dom.MutationState
	}{
		{name: "exact balance", balance: 25, amount: 25, want: 0, state: dom.MutationCommitted},
		{name: "plenty", balance: 150, amount: 25, want: 125, state: dom.MutationCommitted},
		{name: "insufficient", balance: 24, amount: 25, want: 24, wantErr: ErrInsufficientBalance, state: dom.MutationRejected},
		{name: "empty", balance: 0, amount: 25, want: 0, wantErr: ErrInsufficientBalance, state: dom.MutationRejected},
		{name: "zero amount", balance: 50, amount: 0, want: 50, wantErr: ErrInvalidAmount, state: dom.MutationRejected},
		{name: "negative amount", balance: 50, amount: -5, want: 50, wantErr: ErrInvalidAmount, state: dom.MutationRejected},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, store := initialized(t, tt.balance)
			writes := store.Writes()

			m, err := l.Debit(context.Background(), tt.amount)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Equal(t, writes, store.Writes(), "rejected debit must not write")
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.want, storedBalance(t, store))
			}
			assert.Equal(t, tt.want, l.Balance())
			assert.Equal(t, tt.state, m.State)
		})
	}
}

func TestDebitTwiceFromInitialAllotment(t *testing.T) {
	ctx := context.Background()
	l := newLedger(t, repo.NewMemoryProfileRepo())
	require.NoError(t, l.Initialize(ctx))

	_, err := l.Debit(ctx, 25)
	require.NoError(t, err)
	m, err := l.Debit(ctx, 25)
	require.NoError(t, err)

	assert.Equal(t, 100, l.Balance())
	assert.Equal(t, dom.Mutation{Op: dom.OpDebit, Amount: 25, Before: 125, After: 100, State: dom.MutationCommitted}, m)
}

func TestDebitRollsBackWhenStoreUnreachable(t *testing.T) {
	l, store := initialized(t, 100)
	store.FailWrites(true)

	m, err := l.Debit(context.Background(), 25)

	assert.ErrorIs(t, err, ErrRemoteWrite)
	assert.Equal(t, dom.MutationRolledBack, m.State)
	assert.Equal(t, 100, m.After)
	assert.Equal(t, 100, l.Balance())

	store.FailWrites(false)
	assert.Equal(t, 100, storedBalance(t, store))
}

func TestDebitPreservesOpaqueMetadata(t *testing.T) {
	store := seededStore(acct, map[string]any{
		dom.MetaCredits:     60,
		dom.MetaInitialized: true,
		"onboarding":        map[string]any{"done": true},
	})
	l := newLedger(t, store)
	require.NoError(t, l.Initialize(context.Background()))

	_, err := l.Debit(context.Background(), 25)
	require.NoError(t, err)

	p, err := store.Get(context.Background(), acct)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"done": true}, p.Metadata["onboarding"])
	assert.True(t, p.Initialized())
}

func TestCreditAddsToStoredBalance(t *testing.T) {
	l, store := initialized(t, 50)
	// Changed out of band, e.g. by another session.
	store.Seed(acct, map[string]any{dom.MetaCredits: 70, dom.MetaInitialized: true, "theme": "light"})

	m, err := l.Credit(context.Background(), 100)

	require.NoError(t, err)
	assert.Equal(t, dom.Mutation{Op: dom.OpCredit, Amount: 100, Before: 70, After: 170, State: dom.MutationCommitted}, m)
	assert.Equal(t, 170, l.Balance())
	assert.Equal(t, 170, storedBalance(t, store))

	p, err := store.Get(context.Background(), acct)
	require.NoError(t, err)
	assert.Equal(t, "light", p.Metadata["theme"])
}

func TestCreditSetsInitializedFlag(t *testing.T) {
	store := seededStore(acct, map[string]any{dom.MetaCredits: 5})
	l := newLedger(t, store)

	_, err := l.Credit(context.Background(), 10)
	require.NoError(t, err)

	p, err := store.Get(context.Background(), acct)
	require.NoError(t, err)
	assert.True(t, p.Initialized())
	assert.True(t, l.Snapshot().Initialized)
}

func TestCreditWriteFailureSubtractsFromCurrentCache(t *testing.T) {
	l, store := initialized(t, 100)
	store.Seed(acct, map[string]any{dom.MetaCredits: 120, dom.MetaInitialized: true})
	store.FailWrites(true)

	m, err := l.Credit(context.Background(), 50)

	assert.ErrorIs(t, err, ErrRemoteWrite)
	assert.Equal(t, dom.MutationRolledBack, m.State)
	assert.Equal(t, 120, l.Balance(), "rollback subtracts from the optimistic value, not the old cache")
}

func TestCreditReadFailureDoesNothing(t *testing.T) {
	l, store := initialized(t, 100)
	store.FailReads(true)

	m, err := l.Credit(context.Background(), 50)

	assert.ErrorIs(t, err, ErrRemoteRead)
	assert.Equal(t, dom.MutationRejected, m.State)
	assert.Equal(t, 100, l.Balance())
}

func TestCreditRejectsNonPositiveAmount(t *testing.T) {
	l, store := initialized(t, 10)
	writes := store.Writes()
	_, err := l.Credit(context.Background(), 0)
	assert.ErrorIs(t, err, ErrInvalidAmount)
	assert.Equal(t, writes, store.Writes())
}

func TestRefresh(t *testing.T) {
	ctx := context.Background()
	l, store := initialized(t, 100)

	store.Seed(acct, map[string]any{dom.MetaCredits: 600, dom.MetaInitialized: true})
	require.NoError(t, l.Refresh(ctx))
	assert.Equal(t, 600, l.Balance())

	store.Seed(acct, map[string]any{dom.MetaCredits: 1, dom.MetaInitialized: true})
	store.FailReads(true)
	err := l.Refresh(ctx)
	assert.ErrorIs(t, err, ErrRemoteRead)
	assert.Equal(t, 600, l.Balance(), "stale cache kept on read failure")
}

func TestCommittedMutationsArePublished(t *testing.T) {
	ctx := context.Background()
	pub := events.NewMemoryPublisher(0)
	store := repo.NewMemoryProfileRepo()
	l := newLedger(t, store, WithPublisher(pub, "test.ledger"))

	require.NoError(t, l.Initialize(ctx))
	_, err := l.Debit(ctx, 25)
	require.NoError(t, err)
	_, err = l.Debit(ctx, 1000)
	require.ErrorIs(t, err, ErrInsufficientBalance)
	_, err = l.Credit(ctx, 100)
	require.NoError(t, err)

	msgs := pub.Messages()
	require.Len(t, msgs, 3)
	var types []string
	for _, msg := range msgs {
		assert.Equal(t, "test.ledger", msg.Topic)
		assert.Equal(t, acct, msg.Key)
		ev, ok := msg.Event.(dom.LedgerEvent)
		require.True(t, ok)
		types = append(types, ev.Type)
	}
	assert.Equal(t, []string{dom.EventCreditsGranted, dom.EventCreditsDebited, dom.EventCreditsCredited}, types)
	assert.Equal(t, 225, msgs[2].Event.(dom.LedgerEvent).Balance)
}
