// Package workerpool runs connection handlers on a fixed number of
// goroutines. Submit blocks while the queue is full, which pushes back on
// the accept loop instead of letting goroutines pile up.
package workerpool

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

var (
	ErrPoolClosed      = errors.New("worker pool is closed")
	ErrShutdownTimeout = errors.New("shutdown timeout elapsed; workers were cancelled")
)

// Job handles one unit of work. ctx is cancelled when Shutdown gives up
// waiting for the queue to drain.
type Job func(ctx context.Context) error

// Config holds pool construction parameters. Zero values select defaults.
type Config struct {
	// Workers is the number of goroutines consuming jobs. Defaults to 1.
	Workers int

	// QueueSize is the job channel capacity. 0 makes Submit wait for an idle worker.
	QueueSize int

	// ShutdownTimeout bounds how long Shutdown waits before cancelling jobs.
	// Defaults to 30s.
	ShutdownTimeout time.Duration

	Logger *slog.Logger
}

func (c Config) withDefaults() Config {
	if c.Workers <= 0 {
		c.Workers = 1
	}
	if c.QueueSize < 0 {
		c.QueueSize = 0
	}
	if c.ShutdownTimeout <= 0 {
		c.ShutdownTimeout = 30 * time.Second
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	return c
}

// Metrics is a snapshot of the pool counters.
type Metrics struct {
	Submitted int64
	Started   int64
	Succeeded int64
	Failed    int64
	Dropped   int64
}

type Pool struct {
	cfg    Config
	logger *slog.Logger
	jobs   chan Job
	wg     sync.WaitGroup

	ctx    context.Context
	cancel context.CancelFunc

	// quit releases Submit calls blocked on a full queue.
	quit chan struct{}

	// mu guards the send side of jobs against close in Shutdown.
	mu     sync.RWMutex
	closed bool
	once   sync.Once

	submitted, started, succeeded, failed, dropped atomic.Int64
}

// New starts cfg.Workers goroutines that run until Shutdown.
func New(cfg Config) *Pool {
	cfg = cfg.withDefaults()
	ctx, cancel := context.WithCancel(context.Background())

	p := &Pool{
		cfg:    cfg,
		logger: cfg.Logger.With("component", "workerpool"),
		jobs:   make(chan Job, cfg.QueueSize),
		quit:   make(chan struct{}),
		ctx:    ctx,
		cancel: cancel,
	}

	p.logger.Info("starting workers",
		"workers", cfg.Workers, "queue", cfg.QueueSize, "shutdown_timeout", cfg.ShutdownTimeout)

	for i := 0; i < cfg.Workers; i++ {
		p.wg.Add(1)
		go p.runWorker(i)
	}
	return p
}

// Submit enqueues job, blocking while the queue is full. It returns
// ErrPoolClosed once Shutdown has begun.
func (p *Pool) Submit(ctx context.Context, job Job) error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		p.dropped.Add(1)
		return ErrPoolClosed
	}
	p.submitted.Add(1)

	select {
	case p.jobs <- job:
		return nil
	case <-p.quit:
		p.dropped.Add(1)
		return ErrPoolClosed
	case <-ctx.Done():
		p.dropped.Add(1)
		return fmt.Errorf("submit cancelled: %w", ctx.Err())
	}
}

// Shutdown stops accepting jobs, waits up to ShutdownTimeout for queued and
// running jobs, then cancels the rest. Calls after the first are no-ops.
func (p *Pool) Shutdown() error {
	var err error

	p.once.Do(func() {
		p.logger.Info("shutdown initiated")
		close(p.quit)

		p.mu.Lock()
		p.closed = true
		close(p.jobs)
		p.mu.Unlock()

		done := make(chan struct{})
		go func() {
			p.wg.Wait()
			close(done)
		}()

		timer := time.NewTimer(p.cfg.ShutdownTimeout)
		defer timer.Stop()

		select {
		case <-done:
			p.logger.Info("shutdown complete")
		case <-timer.C:
			p.logger.Warn("shutdown timeout elapsed, cancelling workers", "timeout", p.cfg.ShutdownTimeout)
			p.cancel()
			<-done
			err = ErrShutdownTimeout
		}
		p.cancel()
	})

	return err
}

// Metrics returns the current counters. Fields are read independently.
func (p *Pool) Metrics() Metrics {
	return Metrics{
		Submitted: p.submitted.Load(),
		Started:   p.started.Load(),
		Succeeded: p.succeeded.Load(),
		Failed:    p.failed.Load(),
		Dropped:   p.dropped.Load(),
	}
}

func (p *Pool) runWorker(id int) {
	defer p.wg.Done()
	logger := p.logger.With("worker", id)
	logger.Debug("worker started")

	// Jobs queued after a forced cancel still run so they can release
	// whatever they own; they see an already cancelled ctx.
	for job := range p.jobs {
		p.started.Add(1)
		if err := job(p.ctx); err != nil {
			p.failed.Add(1)
			logger.Debug("job failed", "err", err)
			continue
		}
		p.succeeded.Add(1)
	}

	logger.Debug("worker exited")
}
