// Package upload sends session summaries to the remote posture store.
package upload

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/teslashibe/go-posture/internal/httpc"
	"github.com/teslashibe/go-posture/internal/log"
	"github.com/teslashibe/go-posture/pkg/session"
)

const tracerName = "github.com/teslashibe/go-posture/pkg/upload"

// maxErrorBody caps how much of an error response is kept.
const maxErrorBody = 1024

// Payload is the JSON body accepted by the store.
type Payload struct {
	Score           int `json:"score"`
	SlouchDuration  int `json:"slouch_duration"`
	DurationSeconds int `json:"duration_seconds"`
	AlertCount      int `json:"alert_count"`
}

// PayloadFor converts a summary into the store's wire shape.
func PayloadFor(s session.Summary) Payload {
	return Payload{
		Score:           s.Score,
		SlouchDuration:  s.SlouchDuration,
		DurationSeconds: s.DurationSeconds,
		AlertCount:      s.AlertCount,
	}
}

// Client posts summaries to the store API.
type Client struct {
	url    string
	token  string
	http   *http.Client
	logger *slog.Logger
	tracer trace.Tracer
}

// Option configures a Client.
type Option func(*Client)

// WithToken sets the bearer token.
func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

// WithHTTPClient overrides the shared HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// WithTracerProvider overrides the global tracer provider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(c *Client) { c.tracer = tp.Tracer(tracerName) }
}

// NewClient creates a client for the store endpoint at url.
func NewClient(url string, opts ...Option) (*Client, error) {
	url = strings.TrimSpace(url)
	if url == "" {
		return nil, ErrNoURL
	}
	c := &Client{
		url:  url,
		http: httpc.Client,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = log.Component("upload")
	}
	if c.tracer == nil {
		c.tracer = otel.Tracer(tracerName)
	}
	return c, nil
}

// URL returns the store endpoint.
func (c *Client) URL() string {
	return c.url
}

// Send posts one summary. Only 201 Created counts as success.
func (c *Client) Send(ctx context.Context, s session.Summary) error {
	ctx, span := c.tracer.Start(ctx, "upload.Send", trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()
	span.SetAttributes(
		attribute.String("posture.summary_id", s.ID.String()),
		attribute.Int("posture.score", s.Score),
		attribute.Int("posture.alert_count", s.AlertCount),
	)

	err := c.send(ctx, s)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}

func (c *Client) send(ctx context.Context, s session.Summary) error {
	body, err := json.Marshal(PayloadFor(s))
	if err != nil {
		return fmt.Errorf("upload: encode payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("upload: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("upload: request failed: %w", err)
	}
	defer resp.Body.Close()

	trace.SpanFromContext(ctx).SetAttributes(attribute.Int("http.response.status_code", resp.StatusCode))

	if resp.StatusCode != http.StatusCreated {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &APIError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(data))}
	}
	_, _ = io.Copy(io.Discard, resp.Body)

	c.logger.Debug("summary uploaded", "id", s.ID, "score", s.Score)
	return nil
}
