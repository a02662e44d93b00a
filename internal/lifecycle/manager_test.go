package lifecycle

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func TestManager_RunErrorCancelsOthersAndRunsShutdown(t *testing.T) {
	mgr := NewManager()

	boom := errors.New("boom")
	var otherCanceled atomic.Bool
	var shutdownRan atomic.Bool

	mgr.AddRun("failing", func(context.Context) error { return boom })
	mgr.AddRun("waiting", func(ctx context.Context) error {
		select {
		case <-ctx.Done():
			otherCanceled.Store(true)
			return ctx.Err()
		case <-time.After(5 * time.Second):
			return errors.New("never canceled")
		}
	})
	mgr.AddShutdown("cleanup", func(context.Context) error {
		shutdownRan.Store(true)
		return nil
	})

	err := mgr.StartAndWait(context.Background())
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want boom", err)
	}
	if !otherCanceled.Load() {
		t.Fatalf("sibling run job was not canceled")
	}
	if !shutdownRan.Load() {
		t.Fatalf("shutdown job did not run")
	}
}

func TestManager_ParentCancelStopsRuns(t *testing.T) {
	mgr := NewManager()
	mgr.AddRun("blocker", func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()
	if err := mgr.StartAndWait(ctx); err != nil {
		t.Fatalf("canceled run should not surface as error, got %v", err)
	}
}

func TestManager_ShutdownErrorsJoined(t *testing.T) {
	mgr := NewManager()
	e1 := errors.New("first")
	e2 := errors.New("second")
	mgr.AddShutdown("a", func(context.Context) error { return e1 })
	mgr.AddShutdown("b", func(context.Context) error { return e2 })

	err := mgr.StartAndWait(context.Background())
	if !errors.Is(err, e1) || !errors.Is(err, e2) {
		t.Fatalf("err = %v, want both shutdown errors", err)
	}
}

func TestManager_NilJobsIgnored(t *testing.T) {
	mgr := NewManager()
	mgr.AddRun("nil", nil)
	mgr.AddShutdown("nil", nil)
	if err := mgr.StartAndWait(context.Background()); err != nil {
		t.Fatalf("err = %v", err)
	}
}
