package tracker

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vantha.app/expense-sync/internal/entity/expense"
	"vantha.app/expense-sync/internal/model/synccache"
)

// laggingRemote answers list queries from a queue (last result repeats),
// simulating a store where a confirmed write takes a few reads to show up.
type laggingRemote struct {
	mu    sync.Mutex
	lists [][]expense.Record
}

func (r *laggingRemote) ListExpenses(_ context.Context, _ string) ([]expense.Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.lists) == 0 {
		return nil, nil
	}
	res := r.lists[0]
	if len(r.lists) > 1 {
		r.lists = r.lists[1:]
	}
	out := make([]expense.Record, len(res))
	copy(out, res)
	return out, nil
}

func (r *laggingRemote) CreateExpense(_ context.Context, rec expense.Record) (expense.Record, error) {
	return rec, nil
}

func (r *laggingRemote) DeleteExpense(_ context.Context, _ string) error {
	return nil
}

type syncConfig struct {
	stale  time.Duration
	delays []time.Duration
}

func (c syncConfig) StaleAfter() time.Duration       { return c.stale }
func (c syncConfig) RecoveryDelays() []time.Duration { return c.delays }

type notifyCounter struct {
	n int64
}

func (o *notifyCounter) CollectionChanged(synccache.Key) {
	atomic.AddInt64(&o.n, 1)
}

func (o *notifyCounter) count() int64 {
	return atomic.LoadInt64(&o.n)
}

func Test_OnAddExpense_WithReplicationLag_ShouldConvergeViaRecoveryRun(t *testing.T) {
	old := expense.Record{
		ID: "old", Amount: 4, Currency: "USD",
		Category: "Food", CreatedBy: "u1", CreatedDate: "2024-01-01T00:00:00Z",
	}
	created := expense.Record{
		ID: "created", Amount: 12.50, Currency: "USD",
		Category: "Food", CreatedBy: "u1", CreatedDate: "2024-06-01T00:00:00Z",
	}

	// Query 1 is the subscription load. Query 2 (first recovery step) still
	// lags. Query 3 finally includes the new record.
	remote := &laggingRemote{lists: [][]expense.Record{
		{old},
		{old},
		{created, old},
	}}

	cfg := syncConfig{stale: time.Minute, delays: []time.Duration{20 * time.Millisecond, 50 * time.Millisecond}}
	cache := synccache.New(remote, cfg)
	sched := synccache.NewScheduler(context.Background(), cache, cfg)
	defer sched.Stop()

	svc := NewService(remote, cache, sched, identityStub{id: "u1"})
	key := svc.OwnerKey()

	obs := &notifyCounter{}
	sub := cache.Subscribe(context.Background(), key, obs)
	defer cache.Unsubscribe(sub)

	require.Eventually(t, func() bool { return obs.count() == 1 }, time.Second, time.Millisecond)
	require.Equal(t, []expense.Record{old}, cache.CurrentRecords(key))

	saved, err := svc.AddExpense(context.Background(), created)
	require.NoError(t, err)
	require.Equal(t, "created", saved.ID)

	// The optimistic insert shows the record at the top immediately.
	recs := cache.CurrentRecords(key)
	require.Len(t, recs, 2)
	assert.Equal(t, "created", recs[0].ID)
	assert.EqualValues(t, 2, obs.count())

	// The first recovery step replays the lagging list: the record drops
	// out again, but the cache keeps the server truth rather than blanking.
	require.Eventually(t, func() bool { return obs.count() == 3 }, time.Second, time.Millisecond)
	assert.Equal(t, []expense.Record{old}, cache.CurrentRecords(key))

	// The second step sees the replicated write; exactly one notification
	// fires at that point and the cache converges.
	require.Eventually(t, func() bool { return obs.count() == 4 }, time.Second, time.Millisecond)

	final := cache.CurrentRecords(key)
	require.Len(t, final, 2)
	assert.Equal(t, "created", final[0].ID)
	assert.Equal(t, 12.50, final[0].Amount)
	assert.Equal(t, "old", final[1].ID)

	// The run is done; nothing keeps refreshing afterwards.
	time.Sleep(30 * time.Millisecond)
	assert.EqualValues(t, 4, obs.count())
}
