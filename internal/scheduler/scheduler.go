// Package scheduler runs tick-based tasks. A task scheduled with a delay of d
// ticks runs during the d-th call to Tick after scheduling; tasks due on the
// same tick run concurrently on a bounded worker pool.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// ErrStopped is returned when scheduling on a stopped scheduler.
var ErrStopped = errors.New("scheduler stopped")

// Kind names a family of tasks.
type Kind string

const (
	KindExcitation    Kind = "excitation"
	KindPropagation   Kind = "propagation"
	KindGrammar       Kind = "grammar"
	KindGoal          Kind = "goal"
	KindInstantiation Kind = "instantiation"
	KindDecay         Kind = "decay"
)

// Task is a unit of work run on a scheduler tick.
type Task interface {
	Kind() Kind
	Run(ctx context.Context) error
}

// Targeted is implemented by tasks that act on a single graph node. Such
// tasks are dropped when the guard no longer recognizes the node.
type Targeted interface {
	TargetID() string
}

// Func adapts a function into a Task.
type Func struct {
	K  Kind
	Fn func(ctx context.Context) error
}

// Kind implements Task.
func (f Func) Kind() Kind { return f.K }

// Run implements Task.
func (f Func) Run(ctx context.Context) error { return f.Fn(ctx) }

// Options configures a Scheduler.
type Options struct {
	// Workers bounds how many due tasks run at once. Defaults to 4.
	Workers int
	// Guard reports whether a targeted task's node still exists.
	Guard  func(id string) bool
	Logger *slog.Logger
}

type entry struct {
	id   string
	task Task
}

// Scheduler is a discrete-time task queue.
type Scheduler struct {
	mu      sync.Mutex
	tick    int64
	queue   map[int64][]entry
	pending int
	stopped bool

	workers int
	guard   func(string) bool
	logger  *slog.Logger
}

// New creates a scheduler at tick 0.
func New(opts Options) *Scheduler {
	if opts.Workers <= 0 {
		opts.Workers = 4
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Scheduler{
		queue:   make(map[int64][]entry),
		workers: opts.Workers,
		guard:   opts.Guard,
		logger:  logger,
	}
}

// Schedule queues t to run delay ticks from now and returns its id. Delays
// below 1 are treated as 1, so a task never runs on the tick that scheduled it.
func (s *Scheduler) Schedule(delay int, t Task) (string, error) {
	if t == nil {
		return "", fmt.Errorf("nil task")
	}
	if delay < 1 {
		delay = 1
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return "", ErrStopped
	}
	due := s.tick + int64(delay)
	id := uuid.NewString()
	s.queue[due] = append(s.queue[due], entry{id: id, task: t})
	s.pending++
	return id, nil
}

// Pending returns the number of queued tasks.
func (s *Scheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending
}

// CurrentTick returns the number of ticks elapsed.
func (s *Scheduler) CurrentTick() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tick
}

// Tick advances the clock by one and runs every task due on the new tick.
// It returns the number of tasks that ran. Task errors are logged, not
// returned; only context cancellation ends a tick early.
func (s *Scheduler) Tick(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return 0, ErrStopped
	}
	s.tick++
	now := s.tick
	due := s.queue[now]
	delete(s.queue, now)
	s.pending -= len(due)
	s.mu.Unlock()

	if len(due) == 0 {
		return 0, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)

	var mu sync.Mutex
	ran := 0
	for _, e := range due {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			if tt, ok := e.task.(Targeted); ok && s.guard != nil && !s.guard(tt.TargetID()) {
				s.logger.Debug("dropping task for removed node",
					"task", e.id, "kind", e.task.Kind(), "node", tt.TargetID())
				return nil
			}
			if err := e.task.Run(gctx); err != nil {
				if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
					return err
				}
				s.logger.Warn("task failed",
					"task", e.id, "kind", e.task.Kind(), "tick", now, "error", err)
			}
			mu.Lock()
			ran++
			mu.Unlock()
			return nil
		})
	}
	err := g.Wait()
	return ran, err
}

// Run ticks every interval until ctx is cancelled or the scheduler stops.
func (s *Scheduler) Run(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		return fmt.Errorf("tick interval must be positive, got %s", interval)
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if _, err := s.Tick(ctx); err != nil {
				if errors.Is(err, ErrStopped) {
					return nil
				}
				return err
			}
		}
	}
}

// RunUntilIdle ticks until no tasks are pending or maxTicks ticks have run.
// A non-positive maxTicks means no limit. It returns the ticks executed.
func (s *Scheduler) RunUntilIdle(ctx context.Context, maxTicks int) (int, error) {
	ticks := 0
	for s.Pending() > 0 {
		if maxTicks > 0 && ticks >= maxTicks {
			break
		}
		if _, err := s.Tick(ctx); err != nil {
			return ticks, err
		}
		ticks++
	}
	return ticks, nil
}

// Stop discards all pending tasks and rejects new ones.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopped = true
	s.queue = make(map[int64][]entry)
	s.pending = 0
}
