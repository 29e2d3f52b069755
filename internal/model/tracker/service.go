package tracker

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/opentracing/opentracing-go"
	"github.com/opentracing/opentracing-go/ext"
	"github.com/pkg/errors"

	"vantha.app/expense-sync/internal/entity/expense"
	"vantha.app/expense-sync/internal/model/customerr"
	"vantha.app/expense-sync/internal/model/synccache"
)

type remoteStore interface {
	CreateExpense(ctx context.Context, rec expense.Record) (expense.Record, error)
	DeleteExpense(ctx context.Context, id string) error
}

type listCache interface {
	OptimisticInsert(key synccache.Key, rec expense.Record)
	OptimisticRemove(key synccache.Key, id string) bool
	CurrentRecords(key synccache.Key) []expense.Record
}

type recovery interface {
	ScheduleRecoveryRun(key synccache.Key)
}

type identity interface {
	OwnerID() string
}

// Service is the mutation entry point. Every write goes: optimistic cache
// update first, then the remote call, then either a recovery run (success)
// or an inversion of the optimistic update (failure). The one failure mode
// it must prevent is silent divergence: an item that looks added or deleted
// locally while the remote call actually failed.
type Service struct {
	remote    remoteStore
	cache     listCache
	scheduler recovery
	identity  identity
}

func NewService(remote remoteStore, cache listCache, scheduler recovery, identity identity) *Service {
	return &Service{
		remote:    remote,
		cache:     cache,
		scheduler: scheduler,
		identity:  identity,
	}
}

// AddExpense validates and stores a new record. The caller sees it in the
// cached list immediately; the recovery run absorbs the window until the
// remote store makes it visible to reads.
func (s *Service) AddExpense(ctx context.Context, rec expense.Record) (saved expense.Record, err error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "addExpense")
	defer span.Finish()

	start := time.Now()
	defer func() {
		observeMutation("add", time.Since(start), err != nil)
		if err != nil {
			ext.Error.Set(span, true)
		}
	}()

	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CreatedBy == "" {
		rec.CreatedBy = s.identity.OwnerID()
	}
	if rec.CreatedDate == "" {
		rec.CreatedDate = expense.Now()
	}
	if err = rec.Validate(); err != nil {
		return rec, errors.Wrap(err, "add expense")
	}

	key := synccache.Key(rec.CreatedBy)
	s.cache.OptimisticInsert(key, rec)

	saved, err = s.remote.CreateExpense(ctx, rec)
	if err != nil {
		// Invert the optimistic insert so the local view does not
		// diverge from truth.
		s.cache.OptimisticRemove(key, rec.ID)
		return rec, errors.Wrap(err, "add expense")
	}

	// The server echo is the authoritative copy. If it re-assigned the id,
	// swap the optimistic record for the echoed one.
	if saved.ID != rec.ID {
		s.cache.OptimisticRemove(key, rec.ID)
		s.cache.OptimisticInsert(key, saved)
	}

	s.scheduler.ScheduleRecoveryRun(key)
	return saved, nil
}

// RemoveExpense deletes the record with the given id for the current owner.
// Deleting a record the remote store has already lost is a no-op success:
// the outcome the caller asked for holds either way.
func (s *Service) RemoveExpense(ctx context.Context, key synccache.Key, id string) (err error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "removeExpense")
	defer span.Finish()

	start := time.Now()
	defer func() {
		observeMutation("remove", time.Since(start), err != nil)
		if err != nil {
			ext.Error.Set(span, true)
		}
	}()

	var removed expense.Record
	var found bool
	for _, rec := range s.cache.CurrentRecords(key) {
		if rec.ID == id {
			removed, found = rec, true
			break
		}
	}
	if found {
		s.cache.OptimisticRemove(key, id)
	}

	err = s.remote.DeleteExpense(ctx, id)
	if err != nil {
		if customerr.IsNotFound(err) {
			err = nil
		} else {
			if found {
				s.cache.OptimisticInsert(key, removed)
			}
			return errors.Wrap(err, "remove expense")
		}
	}

	s.scheduler.ScheduleRecoveryRun(key)
	return nil
}

// LastExpense returns the most recent record cached for key, if any.
func (s *Service) LastExpense(key synccache.Key) (expense.Record, bool) {
	recs := s.cache.CurrentRecords(key)
	if len(recs) == 0 {
		return expense.Record{}, false
	}
	return recs[0], true
}

// OwnerKey is the collection key for the currently signed-in owner.
func (s *Service) OwnerKey() synccache.Key {
	return synccache.Key(s.identity.OwnerID())
}
