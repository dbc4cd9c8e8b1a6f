package monitor

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/teslashibe/go-posture/internal/log"
	"github.com/teslashibe/go-posture/pkg/pose"
	"github.com/teslashibe/go-posture/pkg/session"
)

// DefaultRetryDelay is the pause after a failed frame.
const DefaultRetryDelay = 500 * time.Millisecond

// Sink receives flushed session summaries. It must not block for long;
// upload.Dispatcher and history.Recorder both qualify.
type Sink interface {
	Submit(s session.Summary) error
}

// Sinks fans a summary out to several sinks.
type Sinks []Sink

// Submit implements Sink.
func (ss Sinks) Submit(s session.Summary) error {
	var errs []error
	for _, sink := range ss {
		if err := sink.Submit(s); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Observer is called with every frame result, on the pipeline goroutine.
type Observer func(FrameResult)

// Pipeline reads observations in arrival order, evaluates them and
// flushes a session summary every interval.
type Pipeline struct {
	source    pose.Source
	eval      *Evaluator
	sink      Sink
	observers []Observer
	interval  time.Duration
	clock     func() time.Time
	logger    *slog.Logger
	retry     time.Duration

	agg *session.Aggregator

	frames  atomic.Int64
	flushes atomic.Int64
	errors  atomic.Int64
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithSink sets where summaries go.
func WithSink(s Sink) Option {
	return func(p *Pipeline) { p.sink = s }
}

// WithObserver adds a per-frame callback.
func WithObserver(o Observer) Option {
	return func(p *Pipeline) { p.observers = append(p.observers, o) }
}

// WithInterval sets the summary interval.
func WithInterval(d time.Duration) Option {
	return func(p *Pipeline) { p.interval = d }
}

// WithClock replaces time.Now for frames that carry no timestamp.
func WithClock(clock func() time.Time) Option {
	return func(p *Pipeline) { p.clock = clock }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(p *Pipeline) { p.logger = l }
}

// WithRetryDelay sets the pause after a failed frame.
func WithRetryDelay(d time.Duration) Option {
	return func(p *Pipeline) { p.retry = d }
}

// New creates a pipeline over source.
func New(source pose.Source, eval *Evaluator, opts ...Option) *Pipeline {
	p := &Pipeline{
		source:   source,
		eval:     eval,
		interval: session.DefaultInterval,
		clock:    time.Now,
		retry:    DefaultRetryDelay,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.logger == nil {
		p.logger = log.Component("monitor")
	}
	p.agg = session.New(p.interval, p.clock())
	return p
}

// Run processes frames until the source is exhausted, closed, or ctx is
// cancelled. The partial window is flushed on the way out if it holds at
// least one frame. A cancelled context is a normal shutdown and returns nil.
func (p *Pipeline) Run(ctx context.Context) error {
	p.logger.Info("monitor running",
		"scorer", p.eval.Scorer().Name(),
		"interval", p.interval,
	)

	var last time.Time
	for {
		obs, err := p.source.Next(ctx)
		switch {
		case err == nil:
		case errors.Is(err, io.EOF), errors.Is(err, pose.ErrClosed):
			p.finalFlush(last)
			return nil
		case ctx.Err() != nil:
			p.finalFlush(last)
			return nil
		default:
			p.errors.Add(1)
			p.logger.Warn("frame skipped", "error", err)
			if !sleep(ctx, p.retry) {
				p.finalFlush(last)
				return nil
			}
			continue
		}

		now := obs.Time
		if now.IsZero() {
			now = p.clock()
		}
		last = now

		res := p.eval.Evaluate(obs, now)
		p.agg.Update(res.Score, res.IsSlouching, res.AlertTriggered)
		p.frames.Add(1)

		if res.AlertTriggered {
			p.logger.Warn("posture alert", "score", res.Score, "status", res.Status)
		}
		for _, o := range p.observers {
			o(res)
		}

		if p.agg.DueForFlush(now) {
			p.flush(now)
		}
	}
}

func (p *Pipeline) finalFlush(last time.Time) {
	if p.agg.Empty() {
		return
	}
	now := p.clock()
	if !last.IsZero() && now.Before(last) {
		now = last
	}
	p.flush(now)
}

func (p *Pipeline) flush(now time.Time) {
	s := p.agg.FlushAndReset(now)
	p.flushes.Add(1)
	p.logger.Info("session window closed",
		"score", s.Score,
		"slouch_s", s.SlouchDuration,
		"alerts", s.AlertCount,
		"frames", s.Frames,
	)
	if p.sink == nil {
		return
	}
	if err := p.sink.Submit(s); err != nil {
		p.logger.Warn("summary not delivered", "id", s.ID, "error", err)
	}
}

// Stats reports how many frames, flushes and frame errors were seen.
func (p *Pipeline) Stats() (frames, flushes, errs int64) {
	return p.frames.Load(), p.flushes.Load(), p.errors.Load()
}

func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
