package synccache

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"vantha.app/expense-sync/internal/logger"
)

type refresher interface {
	Refresh(ctx context.Context, key Key) error
	Observers(key Key) int
}

type schedulerConfig interface {
	RecoveryDelays() []time.Duration
}

type run struct {
	cancel context.CancelFunc
}

// Scheduler compensates for replication lag in the remote store. After a
// successful write the store may not reflect it for a short unpredictable
// window, so a recovery run performs a fixed, front-loaded sequence of
// delayed refreshes instead of a single retry. At most one run is active
// per key; a newer run supersedes the older one.
type Scheduler struct {
	cache   refresher
	delays  []time.Duration
	baseCtx context.Context

	mu   sync.Mutex
	runs map[Key]*run
}

func NewScheduler(ctx context.Context, cache refresher, cfg schedulerConfig) *Scheduler {
	return &Scheduler{
		cache:   cache,
		delays:  cfg.RecoveryDelays(),
		baseCtx: ctx,
		runs:    make(map[Key]*run),
	}
}

// ScheduleRecoveryRun cancels any run already in progress for key and starts
// a new one. Only the most recent mutation's recovery matters; an older run
// left going would just repeat work the new run is about to do.
func (s *Scheduler) ScheduleRecoveryRun(key Key) {
	runCtx, cancel := context.WithCancel(s.baseCtx)
	r := &run{cancel: cancel}

	s.mu.Lock()
	if prev, ok := s.runs[key]; ok {
		prev.cancel()
	}
	s.runs[key] = r
	s.mu.Unlock()

	go s.execute(runCtx, key, r)
}

// Stop cancels every active run.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for key, r := range s.runs {
		r.cancel()
		delete(s.runs, key)
	}
}

func (s *Scheduler) execute(ctx context.Context, key Key, r *run) {
	defer s.finish(key, r)

	for step, delay := range s.delays {
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}

		// Nobody is watching this key anymore; refreshing it would be
		// wasted work.
		if s.cache.Observers(key) == 0 {
			return
		}

		// A failed step does not abort the run. The goal is eventual
		// visibility, not per-step success.
		if err := s.cache.Refresh(ctx, key); err != nil {
			logger.Warn("recovery step failed",
				zap.String("key", string(key)),
				zap.Int("step", step),
				zap.Error(err))
		}
	}
}

func (s *Scheduler) finish(key Key, r *run) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if current, ok := s.runs[key]; ok && current == r {
		delete(s.runs, key)
	}
}
