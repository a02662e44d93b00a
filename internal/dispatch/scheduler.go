package dispatch

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Result reports how one background run ended. It exists so fire-and-forget
// work is still observable: the scheduler hands every outcome to OnDone.
type Result struct {
	RunID    string
	Name     string
	Err      error
	Duration time.Duration
}

// Scheduler runs submitted work on background goroutines that outlive the
// originating HTTP exchange. One goroutine per submission, no pool and no
// admission control; request volume is assumed low. Deduplication is the
// intake gate's job, not the scheduler's.
type Scheduler struct {
	baseCtx    context.Context
	cancelBase context.CancelFunc
	runTimeout time.Duration
	logger     *slog.Logger
	onDone     func(Result)
	wg         sync.WaitGroup
}

type Options struct {
	// RunTimeout bounds each background run. Zero means no bound.
	RunTimeout time.Duration
	Logger     *slog.Logger
	OnDone     func(Result)
}

func NewScheduler(opts Options) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		baseCtx:    ctx,
		cancelBase: cancel,
		runTimeout: opts.RunTimeout,
		logger:     logger,
		onDone:     opts.OnDone,
	}
}

// Schedule enqueues fn and returns its run ID immediately. The caller never
// waits on fn; its error surfaces only through logs and OnDone.
func (s *Scheduler) Schedule(name string, fn func(ctx context.Context) error) string {
	runID := uuid.NewString()
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ctx := s.baseCtx
		cancel := context.CancelFunc(func() {})
		if s.runTimeout > 0 {
			ctx, cancel = context.WithTimeout(ctx, s.runTimeout)
		}
		defer cancel()

		started := time.Now()
		err := fn(ctx)
		res := Result{RunID: runID, Name: name, Err: err, Duration: time.Since(started)}
		if err != nil {
			s.logger.Error("background run failed", "run_id", runID, "name", name, "err", err)
		} else {
			s.logger.Info("background run finished", "run_id", runID, "name", name, "duration", res.Duration)
		}
		if s.onDone != nil {
			s.onDone(res)
		}
	}()
	return runID
}

// Shutdown stops accepting useful work and waits for in-flight runs, up to
// ctx's deadline.
func (s *Scheduler) Shutdown(ctx context.Context) error {
	s.cancelBase()
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
