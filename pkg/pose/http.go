package pose

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strings"
	"sync/atomic"

	"github.com/teslashibe/go-posture/internal/httpc"
	"github.com/teslashibe/go-posture/internal/log"
)

// HTTPEstimator sends frames to a remote pose-estimation service.
//
// The service receives a multipart form with the JPEG in the "image" field
// and answers with {"landmarks": [...]} in model order. An empty or missing
// landmark list means nobody was detected.
type HTTPEstimator struct {
	url    string
	token  string
	http   *http.Client
	logger *slog.Logger
	closed atomic.Bool
}

// HTTPOption configures an HTTPEstimator.
type HTTPOption func(*HTTPEstimator)

// WithToken sets a bearer token for the pose service.
func WithToken(token string) HTTPOption {
	return func(e *HTTPEstimator) { e.token = token }
}

// WithHTTPClient overrides the shared HTTP client.
func WithHTTPClient(c *http.Client) HTTPOption {
	return func(e *HTTPEstimator) { e.http = c }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) HTTPOption {
	return func(e *HTTPEstimator) { e.logger = l }
}

// NewHTTPEstimator creates a client for the pose service at url.
func NewHTTPEstimator(url string, opts ...HTTPOption) (*HTTPEstimator, error) {
	url = strings.TrimSpace(url)
	if url == "" {
		return nil, ErrNoEndpoint
	}
	e := &HTTPEstimator{
		url:  url,
		http: httpc.Client,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = log.Component("pose.http")
	}
	return e, nil
}

type estimateResponse struct {
	Landmarks LandmarkSet `json:"landmarks"`
}

// Estimate implements Estimator.
func (e *HTTPEstimator) Estimate(ctx context.Context, jpeg []byte) (LandmarkSet, error) {
	if e.closed.Load() {
		return nil, ErrClosed
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("image", "frame.jpg")
	if err != nil {
		return nil, fmt.Errorf("pose: build form: %w", err)
	}
	if _, err := part.Write(jpeg); err != nil {
		return nil, fmt.Errorf("pose: build form: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("pose: build form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.url, &body)
	if err != nil {
		return nil, fmt.Errorf("pose: create request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Accept", "application/json")
	if e.token != "" {
		req.Header.Set("Authorization", "Bearer "+e.token)
	}

	resp, err := e.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("pose: request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, &APIError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(msg))}
	}

	var result estimateResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("pose: decode response: %w", err)
	}
	if result.Landmarks.Empty() {
		e.logger.Debug("no person detected")
		return nil, nil
	}
	return result.Landmarks, nil
}

// Close implements Estimator.
func (e *HTTPEstimator) Close() error {
	e.closed.Store(true)
	return nil
}
