package synccache

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"vantha.app/expense-sync/internal/entity/expense"
	"vantha.app/expense-sync/internal/logger"
)

type lister interface {
	ListExpenses(ctx context.Context, owner string) ([]expense.Record, error)
}

type config interface {
	StaleAfter() time.Duration
}

// entry is the mutable state for one collection key. Its mutex is the
// single-writer discipline: every mutation path for the key (optimistic
// update, refresh, recovery step) funnels through it.
type entry struct {
	mu          sync.Mutex
	records     []expense.Record
	version     uint64
	loading     bool
	loaded      bool
	refreshedAt time.Time
	lastErr     error
}

// Cache holds the current known view of each record collection. A refresh
// replaces an entry's contents wholesale; optimistic mutations adjust it in
// place ahead of remote confirmation.
type Cache struct {
	remote     lister
	fanout     *fanout
	staleAfter time.Duration

	mu      sync.Mutex
	entries map[Key]*entry
}

func New(remote lister, cfg config) *Cache {
	return &Cache{
		remote:     remote,
		fanout:     newFanout(),
		staleAfter: cfg.StaleAfter(),
		entries:    make(map[Key]*entry),
	}
}

func (c *Cache) entryFor(key Key) *entry {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		e = &entry{}
		c.entries[key] = e
	}
	return e
}

// lookup never allocates: read accessors for a key nobody ever touched
// must not grow the entry map with state eviction would never reclaim.
func (c *Cache) lookup(key Key) *entry {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.entries[key]
}

// Subscribe registers obs for change notifications on key. The current
// cached records are available synchronously through CurrentRecords before
// any network activity completes. A refresh is kicked off in the background
// when the key has never loaded or its data has gone stale.
func (c *Cache) Subscribe(ctx context.Context, key Key, obs Observer) Subscription {
	sub := c.fanout.add(key, obs)

	e := c.entryFor(key)
	e.mu.Lock()
	kick := !e.loading && (!e.loaded || time.Since(e.refreshedAt) > c.staleAfter)
	e.mu.Unlock()

	if kick {
		go func() {
			if err := c.Refresh(ctx, key); err != nil {
				logger.Warn("subscribe refresh failed",
					zap.String("key", string(key)), zap.Error(err))
			}
		}()
	}
	return sub
}

// Unsubscribe removes the observer. The entry for a key with no observers
// left is evicted; the next subscription rebuilds it from the remote store.
func (c *Cache) Unsubscribe(sub Subscription) {
	if empty := c.fanout.remove(sub); empty {
		c.mu.Lock()
		delete(c.entries, sub.key)
		c.mu.Unlock()
	}
}

// Observers reports how many observers are currently bound to key.
func (c *Cache) Observers(key Key) int {
	return c.fanout.count(key)
}

// CurrentRecords returns a snapshot of the ordered records cached for key.
func (c *Cache) CurrentRecords(key Key) []expense.Record {
	e := c.lookup(key)
	if e == nil {
		return make([]expense.Record, 0)
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	snapshot := make([]expense.Record, len(e.records))
	copy(snapshot, e.records)
	return snapshot
}

func (c *Cache) Version(key Key) uint64 {
	e := c.lookup(key)
	if e == nil {
		return 0
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.version
}

func (c *Cache) IsLoading(key Key) bool {
	e := c.lookup(key)
	if e == nil {
		return false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.loading
}

// LastError exposes the most recent refresh failure for key, nil after a
// successful refresh. Observers that want a transient error indicator read
// it; the cache itself never blanks data over a failed refresh.
func (c *Cache) LastError(key Key) error {
	e := c.lookup(key)
	if e == nil {
		return nil
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastErr
}

// OptimisticInsert places rec at its ordered position before the remote
// store has confirmed the write, and notifies observers exactly once.
func (c *Cache) OptimisticInsert(key Key, rec expense.Record) {
	e := c.entryFor(key)

	e.mu.Lock()
	pos := expense.InsertPosition(e.records, rec)
	e.records = append(e.records, expense.Record{})
	copy(e.records[pos+1:], e.records[pos:])
	e.records[pos] = rec
	e.version++
	e.mu.Unlock()

	c.fanout.notify(key)
}

// OptimisticRemove drops the record with the given id if present and reports
// whether a removal occurred. Observers are notified only on actual removal,
// so removing an id twice is a removal then a no-op.
func (c *Cache) OptimisticRemove(key Key, id string) bool {
	e := c.entryFor(key)

	e.mu.Lock()
	removed := false
	for i, rec := range e.records {
		if rec.ID == id {
			e.records = append(e.records[:i], e.records[i+1:]...)
			e.version++
			removed = true
			break
		}
	}
	e.mu.Unlock()

	if removed {
		c.fanout.notify(key)
	}
	return removed
}

// Refresh re-runs the list query and, on success, replaces the cached
// sequence wholesale with the sorted result. Observers are notified only
// when the new sequence actually differs from the old one. On failure the
// existing cache is left untouched and the error is returned to the caller;
// stale-but-present data beats a blanked view.
//
// The entry lock is released for the duration of the list call: snapshot
// reads and optimistic mutations stay synchronous while a refresh is in
// flight. The loading flag keeps refreshes for one key from overlapping;
// a call that finds one in flight coalesces into it, since the in-flight
// result is the ground truth at that instant anyway. An optimistic
// mutation landing mid-flight is replaced by that ground truth and
// restored by the next recovery step.
func (c *Cache) Refresh(ctx context.Context, key Key) error {
	e := c.entryFor(key)

	e.mu.Lock()
	if e.loading {
		e.mu.Unlock()
		return nil
	}
	e.loading = true
	e.mu.Unlock()

	start := time.Now()
	fetched, err := c.remote.ListExpenses(ctx, string(key))
	observeRefresh(time.Since(start), err != nil)

	e.mu.Lock()
	e.loading = false
	if err != nil {
		e.lastErr = err
		e.mu.Unlock()
		return errors.Wrap(err, "refresh")
	}

	expense.SortByCreatedDesc(fetched)
	changed := !expense.Equal(e.records, fetched)
	e.records = fetched
	e.version++
	e.loaded = true
	e.refreshedAt = time.Now()
	e.lastErr = nil
	e.mu.Unlock()

	if changed {
		c.fanout.notify(key)
	}
	return nil
}

// Reset invalidates every cached entry. Called on identity change: keys
// cached for the previous owner must not serve new subscriptions.
func (c *Cache) Reset() {
	c.mu.Lock()
	c.entries = make(map[Key]*entry)
	c.mu.Unlock()
}
