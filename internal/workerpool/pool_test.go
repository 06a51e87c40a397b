package workerpool_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/kianooshaz/hello-web-world/internal/workerpool"
)

// quietLogger discards pool output unless -v is set.
func quietLogger() *slog.Logger {
	if testing.Verbose() {
		return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// ── Concurrency limit ────────────────────────────────────────────────────────

func TestConcurrencyLimit(t *testing.T) {
	t.Parallel()

	const workers = 3
	const jobs = 20

	pool := workerpool.New(workerpool.Config{
		Workers:         workers,
		QueueSize:       jobs,
		ShutdownTimeout: 5 * time.Second,
		Logger:          quietLogger(),
	})

	var active, maxActive atomic.Int64
	barrier := make(chan struct{})

	for i := 0; i < jobs; i++ {
		err := pool.Submit(context.Background(), func(ctx context.Context) error {
			cur := active.Add(1)
			for {
				prev := maxActive.Load()
				if cur <= prev || maxActive.CompareAndSwap(prev, cur) {
					break
				}
			}
			<-barrier
			active.Add(-1)
			return nil
		})
		if err != nil {
			t.Fatalf("submit: %v", err)
		}
	}

	time.Sleep(50 * time.Millisecond)
	close(barrier)

	if err := pool.Shutdown(); err != nil {
		t.Fatalf("shutdown: %v", err)
	}

	got := maxActive.Load()
	if got > workers {
		t.Errorf("peak concurrency = %d; want <= %d", got, workers)
	}
	if got == 0 {
		t.Error("no jobs appear to have run")
	}
}

// ── All jobs complete ────────────────────────────────────────────────────────

func TestAllJobsProcessed(t *testing.T) {
	t.Parallel()

	const total = 50

	pool := workerpool.New(workerpool.Config{
		Workers:   5,
		QueueSize: total,
		Logger:    quietLogger(),
	})

	var ran atomic.Int64
	failing := errors.New("client went away")
	for i := 0; i < total; i++ {
		err := pool.Submit(context.Background(), func(ctx context.Context) error {
			if ran.Add(1)%10 == 0 {
				return failing
			}
			return nil
		})
		if err != nil {
			t.Fatalf("submit: %v", err)
		}
	}

	if err := pool.Shutdown(); err != nil {
		t.Fatalf("shutdown: %v", err)
	}

	if got := ran.Load(); got != total {
		t.Errorf("ran %d jobs; want %d", got, total)
	}
	m := pool.Metrics()
	if m.Submitted != total || m.Started != total {
		t.Errorf("submitted=%d started=%d; want %d each", m.Submitted, m.Started, total)
	}
	if m.Succeeded != total-5 || m.Failed != 5 {
		t.Errorf("succeeded=%d failed=%d; want %d and 5", m.Succeeded, m.Failed, total-5)
	}
}

// ── Shutdown ─────────────────────────────────────────────────────────────────

func TestShutdownTimeoutCancelsJobs(t *testing.T) {
	t.Parallel()

	pool := workerpool.New(workerpool.Config{
		Workers:         2,
		QueueSize:       4,
		ShutdownTimeout: 50 * time.Millisecond,
		Logger:          quietLogger(),
	})

	var cancelled atomic.Int64
	for i := 0; i < 2; i++ {
		err := pool.Submit(context.Background(), func(ctx context.Context) error {
			<-ctx.Done()
			cancelled.Add(1)
			return ctx.Err()
		})
		if err != nil {
			t.Fatalf("submit: %v", err)
		}
	}

	if err := pool.Shutdown(); !errors.Is(err, workerpool.ErrShutdownTimeout) {
		t.Fatalf("shutdown error = %v; want ErrShutdownTimeout", err)
	}
	if got := cancelled.Load(); got != 2 {
		t.Errorf("%d jobs observed cancellation; want 2", got)
	}
}

func TestSubmitAfterShutdown(t *testing.T) {
	t.Parallel()

	pool := workerpool.New(workerpool.Config{Logger: quietLogger()})
	if err := pool.Shutdown(); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
	if err := pool.Shutdown(); err != nil {
		t.Fatalf("second shutdown: %v", err)
	}

	err := pool.Submit(context.Background(), func(context.Context) error { return nil })
	if !errors.Is(err, workerpool.ErrPoolClosed) {
		t.Fatalf("submit error = %v; want ErrPoolClosed", err)
	}
	if got := pool.Metrics().Dropped; got != 1 {
		t.Errorf("dropped = %d; want 1", got)
	}
}

func TestSubmitBlocksOnFullQueue(t *testing.T) {
	t.Parallel()

	pool := workerpool.New(workerpool.Config{Workers: 1, Logger: quietLogger()})
	release := make(chan struct{})
	hold := func(context.Context) error {
		<-release
		return nil
	}

	if err := pool.Submit(context.Background(), hold); err != nil {
		t.Fatalf("submit: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	// the only worker is busy and the queue is unbuffered
	err := pool.Submit(ctx, hold)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("submit error = %v; want context.DeadlineExceeded", err)
	}

	close(release)
	if err := pool.Shutdown(); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
}
