// Package watch follows a running monitor's live posture stream from a
// terminal.
package watch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/teslashibe/go-posture/internal/log"
	"github.com/teslashibe/go-posture/pkg/monitor"
)

// StreamPath is the server route that broadcasts frame results.
const StreamPath = "/ws/posture"

// DefaultReconnectDelay is the pause between connection attempts.
const DefaultReconnectDelay = 2 * time.Second

// StreamURL turns a server base URL such as http://localhost:5000 into the
// websocket stream URL.
func StreamURL(base string) (string, error) {
	if !strings.Contains(base, "://") {
		base = "http://" + base
	}
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("watch: parse %q: %w", base, err)
	}
	switch u.Scheme {
	case "http", "ws":
		u.Scheme = "ws"
	case "https", "wss":
		u.Scheme = "wss"
	default:
		return "", fmt.Errorf("watch: unsupported scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return "", fmt.Errorf("watch: missing host in %q", base)
	}
	u.Path = strings.TrimSuffix(u.Path, "/") + StreamPath
	return u.String(), nil
}

// Stream reads frame results from the monitor's websocket.
type Stream struct {
	url    string
	dialer *websocket.Dialer
	delay  time.Duration
	logger *slog.Logger

	// OnState is called when the connection comes up (nil error) or drops.
	OnState func(connected bool, err error)
}

// StreamOption configures a Stream.
type StreamOption func(*Stream)

// WithReconnectDelay sets the pause between connection attempts.
func WithReconnectDelay(d time.Duration) StreamOption {
	return func(s *Stream) {
		if d > 0 {
			s.delay = d
		}
	}
}

// WithStreamLogger sets the logger.
func WithStreamLogger(l *slog.Logger) StreamOption {
	return func(s *Stream) { s.logger = l }
}

// NewStream creates a stream for a ws:// or wss:// URL.
func NewStream(wsURL string, opts ...StreamOption) *Stream {
	s := &Stream{
		url:    wsURL,
		dialer: &websocket.Dialer{HandshakeTimeout: 10 * time.Second},
		delay:  DefaultReconnectDelay,
		logger: log.Component("watch"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run delivers every frame to fn, reconnecting after failures, until ctx
// is done. It returns ctx.Err().
func (s *Stream) Run(ctx context.Context, fn func(monitor.FrameResult)) error {
	for {
		err := s.session(ctx, fn)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		s.state(false, err)
		s.logger.Debug("stream disconnected", "url", s.url, "error", err)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(s.delay):
		}
	}
}

// session runs one connection until it fails or ctx is done.
func (s *Stream) session(ctx context.Context, fn func(monitor.FrameResult)) error {
	conn, _, err := s.dialer.DialContext(ctx, s.url, nil)
	if err != nil {
		return fmt.Errorf("dial %s: %w", s.url, err)
	}
	defer conn.Close()

	stop := context.AfterFunc(ctx, func() {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		conn.Close()
	})
	defer stop()

	s.state(true, nil)
	s.logger.Debug("stream connected", "url", s.url)

	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return errors.New("server closed the stream")
			}
			return err
		}
		if msgType != websocket.TextMessage {
			continue
		}

		var res monitor.FrameResult
		if err := json.Unmarshal(data, &res); err != nil {
			s.logger.Warn("bad frame message", "error", err)
			continue
		}
		fn(res)
	}
}

func (s *Stream) state(connected bool, err error) {
	if s.OnState != nil {
		s.OnState(connected, err)
	}
}
