package upload

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/teslashibe/go-posture/internal/log"
	"github.com/teslashibe/go-posture/pkg/session"
)

// DefaultQueueSize bounds the number of summaries waiting to be sent.
const DefaultQueueSize = 16

// DefaultSendTimeout bounds a single upload attempt.
const DefaultSendTimeout = 15 * time.Second

// Sender delivers one summary.
type Sender interface {
	Send(ctx context.Context, s session.Summary) error
}

// SenderFunc adapts a function to Sender.
type SenderFunc func(ctx context.Context, s session.Summary) error

// Send implements Sender.
func (f SenderFunc) Send(ctx context.Context, s session.Summary) error {
	return f(ctx, s)
}

// Dispatcher uploads summaries from a background worker so the frame loop
// never blocks on the network. Failed uploads are logged and dropped.
type Dispatcher struct {
	sender  Sender
	logger  *slog.Logger
	timeout time.Duration

	queue chan session.Summary
	done  chan struct{}

	mu     sync.RWMutex
	closed bool

	statsMu sync.Mutex
	sent    int
	failed  int
	dropped int
}

// DispatcherOption configures a Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithQueueSize sets the queue capacity.
func WithQueueSize(n int) DispatcherOption {
	return func(d *Dispatcher) {
		if n > 0 {
			d.queue = make(chan session.Summary, n)
		}
	}
}

// WithSendTimeout sets the per-upload timeout.
func WithSendTimeout(timeout time.Duration) DispatcherOption {
	return func(d *Dispatcher) { d.timeout = timeout }
}

// WithDispatcherLogger sets the logger.
func WithDispatcherLogger(l *slog.Logger) DispatcherOption {
	return func(d *Dispatcher) { d.logger = l }
}

// NewDispatcher starts a worker that delivers summaries through sender.
func NewDispatcher(sender Sender, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		sender:  sender,
		timeout: DefaultSendTimeout,
		queue:   make(chan session.Summary, DefaultQueueSize),
		done:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.logger == nil {
		d.logger = log.Component("upload")
	}
	go d.run()
	return d
}

// Submit enqueues a summary without blocking. A full queue drops the
// summary and returns ErrQueueFull.
func (d *Dispatcher) Submit(s session.Summary) error {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return ErrClosed
	}

	select {
	case d.queue <- s:
		return nil
	default:
		d.statsMu.Lock()
		d.dropped++
		d.statsMu.Unlock()
		d.logger.Warn("upload queue full, dropping summary", "id", s.ID, "score", s.Score)
		return ErrQueueFull
	}
}

// Close stops accepting summaries, delivers what is queued and waits for
// the worker, or until ctx is done.
func (d *Dispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.queue)
	}
	d.mu.Unlock()

	select {
	case <-d.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stats reports delivery counters.
func (d *Dispatcher) Stats() (sent, failed, dropped int) {
	d.statsMu.Lock()
	defer d.statsMu.Unlock()
	return d.sent, d.failed, d.dropped
}

func (d *Dispatcher) run() {
	defer close(d.done)
	for s := range d.queue {
		d.deliver(s)
	}
}

func (d *Dispatcher) deliver(s session.Summary) {
	ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
	defer cancel()

	err := d.sender.Send(ctx, s)

	d.statsMu.Lock()
	if err != nil {
		d.failed++
	} else {
		d.sent++
	}
	d.statsMu.Unlock()

	if err == nil {
		d.logger.Info("summary saved", "score", s.Score, "slouch_s", s.SlouchDuration, "alerts", s.AlertCount)
		return
	}

	var apiErr *APIError
	switch {
	case errors.As(err, &apiErr) && apiErr.IsUnauthorized():
		d.logger.Error("upload rejected: check API token", "status", apiErr.StatusCode)
	case errors.As(err, &apiErr):
		d.logger.Warn("upload failed", "status", apiErr.StatusCode, "body", apiErr.Body)
	default:
		d.logger.Warn("upload failed", "error", err)
	}
}
