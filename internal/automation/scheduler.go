package automation

import (
	"context"
	"log"
	"sync"
	"time"

	"solana-autotrader/internal/domain"
	"solana-autotrader/internal/observability"
	"solana-autotrader/internal/strategy"
)

// DefaultTickInterval is the evaluation period.
const DefaultTickInterval = 5 * time.Second

// Clock abstracts time for deterministic scheduler tests.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// SnapshotSource supplies the latest market snapshot. May return nil
// before the first market update arrives.
type SnapshotSource interface {
	Snapshot() *domain.MarketSnapshot
}

// Executor runs a fired strategy's actions. Implementations must not
// panic across the call boundary; the scheduler additionally recovers to
// keep one strategy's failure from stopping the loop.
type Executor interface {
	Execute(ctx context.Context, st *domain.Strategy, snap *domain.MarketSnapshot)
}

// SchedulerOptions configures a Scheduler.
type SchedulerOptions struct {
	Store     *strategy.Store
	Snapshots SnapshotSource
	Executor  Executor
	Interval  time.Duration // defaults to DefaultTickInterval
	Clock     Clock         // defaults to the system clock
	Logger    *log.Logger
}

// Scheduler drives periodic strategy evaluation. A single ticker owns the
// tick; per-strategy firings run as independent goroutines so one
// strategy's slow external calls never delay another's evaluation. The
// scheduler itself performs no blocking I/O.
type Scheduler struct {
	store     *strategy.Store
	snapshots SnapshotSource
	executor  Executor
	interval  time.Duration
	clock     Clock
	logger    *log.Logger

	mu      sync.Mutex
	cancel  context.CancelFunc
	loopWg  sync.WaitGroup
	fireWg  sync.WaitGroup
	running bool
}

// NewScheduler creates a Scheduler.
func NewScheduler(opts SchedulerOptions) *Scheduler {
	interval := opts.Interval
	if interval <= 0 {
		interval = DefaultTickInterval
	}
	clock := opts.Clock
	if clock == nil {
		clock = systemClock{}
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.New(log.Writer(), "[scheduler] ", log.LstdFlags)
	}

	return &Scheduler{
		store:     opts.Store,
		snapshots: opts.Snapshots,
		executor:  opts.Executor,
		interval:  interval,
		clock:     clock,
		logger:    logger,
	}
}

// Start launches the tick loop. Returns immediately; the loop runs until
// Stop or context cancellation.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return
	}

	loopCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.running = true

	s.loopWg.Add(1)
	go s.run(loopCtx)
}

// Stop halts the tick loop and waits for in-flight firings to complete.
// A firing already dispatched runs to completion; deactivation only takes
// effect on the next tick.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	cancel := s.cancel
	s.mu.Unlock()

	cancel()
	s.loopWg.Wait()
	s.fireWg.Wait()
}

func (s *Scheduler) run(ctx context.Context) {
	defer s.loopWg.Done()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.logger.Printf("started (interval: %v)", s.interval)

	for {
		select {
		case <-ctx.Done():
			s.logger.Println("stopped")
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

// tick evaluates every strategy against the latest snapshot and fires the
// ones whose conditions hold. Counters are advanced synchronously before
// the executor is dispatched, so a slow or failing execution cannot cause
// a duplicate fire inside the cooldown window.
func (s *Scheduler) tick(ctx context.Context) {
	snap := s.snapshots.Snapshot()
	if snap == nil {
		return // no market data yet
	}

	now := s.clock.Now()
	observability.RecordTick(float64(now.Unix()))
	if !snap.TakenAt.IsZero() {
		observability.RecordSnapshotAge(now.Sub(snap.TakenAt).Seconds())
	}

	for _, st := range s.store.List() {
		if !st.Active {
			continue
		}
		if st.Exhausted() {
			observability.RecordSkip("exhausted")
			continue
		}
		// Cheap rejection before running the evaluator.
		if st.CoolingDown(now) {
			observability.RecordSkip("cooldown")
			continue
		}
		if err := st.Validate(); err != nil {
			observability.RecordSkip("invalid")
			continue
		}

		observability.RecordEvaluation()
		if !EvaluateStrategy(st, snap) {
			continue
		}

		fired, err := s.store.RecordFire(ctx, st.ID, now)
		if err != nil {
			// Counters may still have advanced; the fire proceeds
			// only when they did.
			if fired == nil {
				s.logger.Printf("strategy %s: record fire: %v", st.ID, err)
				continue
			}
			s.logger.Printf("strategy %s: persist fire state: %v", st.ID, err)
		}
		observability.RecordFire(st.ID)
		s.dispatch(ctx, fired, snap)
	}
}

// dispatch runs one strategy's actions concurrently and independently.
// A panic or error in one firing never blocks or fails another.
func (s *Scheduler) dispatch(ctx context.Context, st *domain.Strategy, snap *domain.MarketSnapshot) {
	s.fireWg.Add(1)
	go func() {
		defer s.fireWg.Done()
		defer func() {
			if r := recover(); r != nil {
				s.logger.Printf("strategy %s: execution panic: %v", st.ID, r)
			}
		}()
		s.executor.Execute(ctx, st, snap)
	}()
}
