package tracker

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vantha.app/expense-sync/internal/entity/expense"
	"vantha.app/expense-sync/internal/model/customerr"
	"vantha.app/expense-sync/internal/model/synccache"
)

type remoteSpy struct {
	mu        sync.Mutex
	created   []expense.Record
	deleted   []string
	createErr error
	deleteErr error
	echo      func(expense.Record) expense.Record
}

func (r *remoteSpy) CreateExpense(_ context.Context, rec expense.Record) (expense.Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.createErr != nil {
		return expense.Record{}, r.createErr
	}
	r.created = append(r.created, rec)
	if r.echo != nil {
		return r.echo(rec), nil
	}
	return rec, nil
}

func (r *remoteSpy) DeleteExpense(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.deleteErr != nil {
		return r.deleteErr
	}
	r.deleted = append(r.deleted, id)
	return nil
}

type cacheSpy struct {
	records []expense.Record
	inserts []expense.Record
	removes []string
}

func (c *cacheSpy) OptimisticInsert(_ synccache.Key, rec expense.Record) {
	c.inserts = append(c.inserts, rec)
}

func (c *cacheSpy) OptimisticRemove(_ synccache.Key, id string) bool {
	c.removes = append(c.removes, id)
	for i, rec := range c.records {
		if rec.ID == id {
			c.records = append(c.records[:i], c.records[i+1:]...)
			return true
		}
	}
	return false
}

func (c *cacheSpy) CurrentRecords(_ synccache.Key) []expense.Record {
	out := make([]expense.Record, len(c.records))
	copy(out, c.records)
	return out
}

type schedulerSpy struct {
	mu   sync.Mutex
	keys []synccache.Key
}

func (s *schedulerSpy) ScheduleRecoveryRun(key synccache.Key) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.keys = append(s.keys, key)
}

func (s *schedulerSpy) scheduled() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.keys)
}

type identityStub struct {
	id string
}

func (i identityStub) OwnerID() string {
	return i.id
}

func Test_OnAddExpense_ShouldInsertOptimisticallyAndScheduleRecovery(t *testing.T) {
	remote := &remoteSpy{}
	cache := &cacheSpy{}
	sched := &schedulerSpy{}
	svc := NewService(remote, cache, sched, identityStub{id: "u1"})

	saved, err := svc.AddExpense(context.Background(), expense.Record{
		Amount:   12.50,
		Currency: "USD",
		Category: "Food",
	})

	require.NoError(t, err)
	assert.NotEmpty(t, saved.ID)
	assert.Equal(t, "u1", saved.CreatedBy)
	assert.NotEmpty(t, saved.CreatedDate)

	require.Len(t, cache.inserts, 1)
	assert.Equal(t, saved.ID, cache.inserts[0].ID)
	assert.Empty(t, cache.removes)
	require.Len(t, remote.created, 1)
	assert.Equal(t, 1, sched.scheduled())
	assert.Equal(t, synccache.Key("u1"), sched.keys[0])
}

func Test_OnAddExpense_WithRemoteFailure_ShouldRevertOptimisticInsert(t *testing.T) {
	remote := &remoteSpy{createErr: customerr.NewRemoteError(customerr.ServerError, 500, "boom")}
	cache := &cacheSpy{}
	sched := &schedulerSpy{}
	svc := NewService(remote, cache, sched, identityStub{id: "u1"})

	_, err := svc.AddExpense(context.Background(), expense.Record{
		Amount:   5,
		Currency: "USD",
		Category: "Food",
	})

	assert.Error(t, err)
	require.Len(t, cache.inserts, 1)
	require.Len(t, cache.removes, 1)
	assert.Equal(t, cache.inserts[0].ID, cache.removes[0])
	assert.Equal(t, 0, sched.scheduled())
}

func Test_OnAddExpense_WithServerAssignedID_ShouldSwapOptimisticCopy(t *testing.T) {
	remote := &remoteSpy{echo: func(rec expense.Record) expense.Record {
		rec.ID = "server-id"
		return rec
	}}
	cache := &cacheSpy{}
	sched := &schedulerSpy{}
	svc := NewService(remote, cache, sched, identityStub{id: "u1"})

	saved, err := svc.AddExpense(context.Background(), expense.Record{
		ID:       "client-id",
		Amount:   5,
		Currency: "USD",
		Category: "Food",
	})

	require.NoError(t, err)
	assert.Equal(t, "server-id", saved.ID)
	require.Len(t, cache.inserts, 2)
	assert.Equal(t, "client-id", cache.inserts[0].ID)
	assert.Equal(t, "server-id", cache.inserts[1].ID)
	assert.Equal(t, []string{"client-id"}, cache.removes)
}

func Test_OnAddExpense_WithInvalidAmount_ShouldRejectBeforeAnySideEffect(t *testing.T) {
	remote := &remoteSpy{}
	cache := &cacheSpy{}
	sched := &schedulerSpy{}
	svc := NewService(remote, cache, sched, identityStub{id: "u1"})

	_, err := svc.AddExpense(context.Background(), expense.Record{
		Amount:   -1,
		Currency: "USD",
	})

	assert.Error(t, err)
	assert.Empty(t, cache.inserts)
	assert.Empty(t, remote.created)
	assert.Equal(t, 0, sched.scheduled())
}

func Test_OnRemoveExpense_ShouldRemoveOptimisticallyAndScheduleRecovery(t *testing.T) {
	target := expense.Record{ID: "a", Amount: 3, Currency: "USD", CreatedDate: "2024-01-01T00:00:00Z"}
	remote := &remoteSpy{}
	cache := &cacheSpy{records: []expense.Record{target}}
	sched := &schedulerSpy{}
	svc := NewService(remote, cache, sched, identityStub{id: "u1"})

	err := svc.RemoveExpense(context.Background(), synccache.Key("u1"), "a")

	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, cache.removes)
	assert.Equal(t, []string{"a"}, remote.deleted)
	assert.Equal(t, 1, sched.scheduled())
}

func Test_OnRemoveExpense_AlreadyGoneRemotely_ShouldBeNoOpSuccess(t *testing.T) {
	remote := &remoteSpy{deleteErr: customerr.NewRemoteError(customerr.NotFound, 404, "gone")}
	cache := &cacheSpy{}
	sched := &schedulerSpy{}
	svc := NewService(remote, cache, sched, identityStub{id: "u1"})

	err := svc.RemoveExpense(context.Background(), synccache.Key("u1"), "missing")

	assert.NoError(t, err)
	assert.Empty(t, cache.removes)
}

func Test_OnRemoveExpense_WithRemoteFailure_ShouldReinsertRemovedRecord(t *testing.T) {
	target := expense.Record{ID: "a", Amount: 3, Currency: "USD", CreatedDate: "2024-01-01T00:00:00Z"}
	remote := &remoteSpy{deleteErr: customerr.NewRemoteError(customerr.Transport, 0, "timeout")}
	cache := &cacheSpy{records: []expense.Record{target}}
	sched := &schedulerSpy{}
	svc := NewService(remote, cache, sched, identityStub{id: "u1"})

	err := svc.RemoveExpense(context.Background(), synccache.Key("u1"), "a")

	assert.Error(t, err)
	assert.Equal(t, []string{"a"}, cache.removes)
	require.Len(t, cache.inserts, 1)
	assert.Equal(t, target, cache.inserts[0])
	assert.Equal(t, 0, sched.scheduled())
}

func Test_OnLastExpense_ShouldReturnTopOfOrderedCache(t *testing.T) {
	cache := &cacheSpy{records: []expense.Record{
		{ID: "newest", CreatedDate: "2024-03-01T00:00:00Z"},
		{ID: "older", CreatedDate: "2024-01-01T00:00:00Z"},
	}}
	svc := NewService(&remoteSpy{}, cache, &schedulerSpy{}, identityStub{id: "u1"})

	last, ok := svc.LastExpense(synccache.Key("u1"))

	require.True(t, ok)
	assert.Equal(t, "newest", last.ID)

	cache.records = nil
	_, ok = svc.LastExpense(synccache.Key("u1"))
	assert.False(t, ok)
}
