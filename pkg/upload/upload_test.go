package upload

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/teslashibe/go-posture/internal/log"
	"github.com/teslashibe/go-posture/pkg/session"
)

func testSummary() session.Summary {
	return session.Summary{
		ID:              uuid.New(),
		Score:           82,
		SlouchDuration:  3,
		DurationSeconds: 10,
		AlertCount:      1,
		Frames:          300,
	}
}

func TestClient_Send(t *testing.T) {
	var got Payload
	var gotAuth, gotAccept, gotType string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		gotAuth = r.Header.Get("Authorization")
		gotAccept = r.Header.Get("Accept")
		gotType = r.Header.Get("Content-Type")
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"message":"saved"}`))
	}))
	defer server.Close()

	c, err := NewClient(server.URL, WithToken("secret"), WithLogger(log.Discard()))
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}

	s := testSummary()
	if err := c.Send(context.Background(), s); err != nil {
		t.Fatalf("Send: %v", err)
	}

	if got != PayloadFor(s) {
		t.Errorf("payload = %+v, want %+v", got, PayloadFor(s))
	}
	if gotAuth != "Bearer secret" {
		t.Errorf("Authorization = %q", gotAuth)
	}
	if gotAccept != "application/json" || gotType != "application/json" {
		t.Errorf("Accept = %q, Content-Type = %q", gotAccept, gotType)
	}
}

func TestClient_SendPayloadKeys(t *testing.T) {
	var raw map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&raw)
		w.WriteHeader(http.StatusCreated)
	}))
	defer server.Close()

	c, _ := NewClient(server.URL, WithLogger(log.Discard()))
	if err := c.Send(context.Background(), testSummary()); err != nil {
		t.Fatalf("Send: %v", err)
	}
	for _, key := range []string{"score", "slouch_duration", "duration_seconds", "alert_count"} {
		if _, ok := raw[key]; !ok {
			t.Errorf("payload missing %q: %v", key, raw)
		}
	}
	if len(raw) != 4 {
		t.Errorf("payload has extra keys: %v", raw)
	}
}

func TestClient_SendErrors(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		check      func(*APIError) bool
		wantInBody string
	}{
		{"unauthorized", http.StatusUnauthorized, (*APIError).IsUnauthorized, "Unauthenticated"},
		{"validation", http.StatusUnprocessableEntity, (*APIError).IsValidation, "duration_seconds"},
		{"server", http.StatusBadGateway, (*APIError).IsServerError, "bad gateway"},
		// 200 is not 201: the store did not create the record.
		{"ok is not created", http.StatusOK, func(e *APIError) bool { return e.StatusCode == 200 }, ""},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				w.Write([]byte(tc.wantInBody))
			}))
			defer server.Close()

			c, _ := NewClient(server.URL, WithLogger(log.Discard()))
			err := c.Send(context.Background(), testSummary())

			var apiErr *APIError
			if !errors.As(err, &apiErr) {
				t.Fatalf("expected *APIError, got %v", err)
			}
			if !tc.check(apiErr) {
				t.Errorf("status predicate failed for %d", apiErr.StatusCode)
			}
			if apiErr.Body != tc.wantInBody {
				t.Errorf("Body = %q, want %q", apiErr.Body, tc.wantInBody)
			}
		})
	}
}

func TestClient_Span(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))

	c, _ := NewClient(server.URL, WithTracerProvider(tp), WithLogger(log.Discard()))
	if err := c.Send(context.Background(), testSummary()); err == nil {
		t.Fatal("expected error")
	}

	spans := sr.Ended()
	if len(spans) != 1 {
		t.Fatalf("got %d spans, want 1", len(spans))
	}
	if spans[0].Name() != "upload.Send" {
		t.Errorf("span name = %q", spans[0].Name())
	}
	if spans[0].Status().Code != codes.Error {
		t.Errorf("span status = %v, want Error", spans[0].Status().Code)
	}
}

func TestNewClient_RequiresURL(t *testing.T) {
	if _, err := NewClient("  "); !errors.Is(err, ErrNoURL) {
		t.Errorf("expected ErrNoURL, got %v", err)
	}
	c, err := NewClient("http://localhost:8000/api/posture")
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	if c.URL() != "http://localhost:8000/api/posture" {
		t.Errorf("URL = %q", c.URL())
	}
}

func TestDispatcher_DeliversInOrder(t *testing.T) {
	var mu sync.Mutex
	var scores []int

	d := NewDispatcher(SenderFunc(func(ctx context.Context, s session.Summary) error {
		mu.Lock()
		scores = append(scores, s.Score)
		mu.Unlock()
		return nil
	}), WithDispatcherLogger(log.Discard()))

	for i := 1; i <= 5; i++ {
		if err := d.Submit(session.Summary{Score: i * 10}); err != nil {
			t.Fatalf("Submit: %v", err)
		}
	}
	if err := d.Close(context.Background()); err != nil {
		t.Fatalf("Close: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	want := []int{10, 20, 30, 40, 50}
	if len(scores) != len(want) {
		t.Fatalf("delivered %v, want %v", scores, want)
	}
	for i := range want {
		if scores[i] != want[i] {
			t.Errorf("delivered %v, want %v", scores, want)
			break
		}
	}
	if sent, failed, dropped := d.Stats(); sent != 5 || failed != 0 || dropped != 0 {
		t.Errorf("Stats = %d/%d/%d", sent, failed, dropped)
	}
}

func TestDispatcher_FailuresAreDropped(t *testing.T) {
	calls := 0
	d := NewDispatcher(SenderFunc(func(ctx context.Context, s session.Summary) error {
		calls++
		return &APIError{StatusCode: 503}
	}), WithDispatcherLogger(log.Discard()))

	d.Submit(testSummary())
	d.Submit(testSummary())
	d.Close(context.Background())

	if calls != 2 {
		t.Errorf("calls = %d, want 2 (no retry)", calls)
	}
	if _, failed, _ := d.Stats(); failed != 2 {
		t.Errorf("failed = %d, want 2", failed)
	}
}

func TestDispatcher_QueueFull(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{}, 1)

	d := NewDispatcher(SenderFunc(func(ctx context.Context, s session.Summary) error {
		select {
		case started <- struct{}{}:
		default:
		}
		<-release
		return nil
	}), WithQueueSize(1), WithDispatcherLogger(log.Discard()))

	d.Submit(testSummary()) // picked up by the worker
	<-started
	if err := d.Submit(testSummary()); err != nil { // fills the queue
		t.Fatalf("Submit: %v", err)
	}
	if err := d.Submit(testSummary()); !errors.Is(err, ErrQueueFull) {
		t.Errorf("expected ErrQueueFull, got %v", err)
	}

	close(release)
	d.Close(context.Background())

	if sent, _, dropped := d.Stats(); sent != 2 || dropped != 1 {
		t.Errorf("sent=%d dropped=%d, want 2 and 1", sent, dropped)
	}
}

func TestDispatcher_SubmitAfterClose(t *testing.T) {
	d := NewDispatcher(SenderFunc(func(context.Context, session.Summary) error { return nil }),
		WithDispatcherLogger(log.Discard()))
	d.Close(context.Background())
	if err := d.Submit(testSummary()); !errors.Is(err, ErrClosed) {
		t.Errorf("expected ErrClosed, got %v", err)
	}
	// Closing twice is harmless.
	if err := d.Close(context.Background()); err != nil {
		t.Errorf("second Close: %v", err)
	}
}

func TestDispatcher_CloseTimeout(t *testing.T) {
	block := make(chan struct{})
	defer close(block)

	d := NewDispatcher(SenderFunc(func(ctx context.Context, s session.Summary) error {
		<-block
		return nil
	}), WithDispatcherLogger(log.Discard()))
	d.Submit(testSummary())

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := d.Close(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected deadline exceeded, got %v", err)
	}
}
