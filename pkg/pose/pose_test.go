package pose

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestBodyPart_StringAndParse(t *testing.T) {
	tests := []struct {
		part BodyPart
		name string
	}{
		{Nose, "NOSE"},
		{LeftEar, "LEFT_EAR"},
		{RightEar, "RIGHT_EAR"},
		{LeftShoulder, "LEFT_SHOULDER"},
		{RightShoulder, "RIGHT_SHOULDER"},
		{LeftHip, "LEFT_HIP"},
		{RightHip, "RIGHT_HIP"},
		{RightFootIndex, "RIGHT_FOOT_INDEX"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.part.String(); got != tc.name {
				t.Errorf("String() = %q, want %q", got, tc.name)
			}
			parsed, ok := ParseBodyPart(strings.ToLower(tc.name))
			if !ok || parsed != tc.part {
				t.Errorf("ParseBodyPart(%q) = %v, %v", tc.name, parsed, ok)
			}
		})
	}

	if NumBodyParts != 33 {
		t.Errorf("NumBodyParts = %d, want 33", NumBodyParts)
	}
	if BodyPart(99).String() != "UNKNOWN" {
		t.Error("out of range body part should be UNKNOWN")
	}
}

func TestMediaPipeIndices(t *testing.T) {
	// Indices used by the model's landmark array.
	if LeftEar != 7 || LeftShoulder != 11 || LeftHip != 23 {
		t.Errorf("left chain indices = %d/%d/%d, want 7/11/23", LeftEar, LeftShoulder, LeftHip)
	}
	if RightEar != 8 || RightShoulder != 12 || RightHip != 24 {
		t.Errorf("right chain indices = %d/%d/%d, want 8/12/24", RightEar, RightShoulder, RightHip)
	}
}

func TestLandmarkSet_Get(t *testing.T) {
	set := LandmarkSet{
		LeftHip:      {X: 0.5, Y: 0.8, Visibility: 0.9},
		LeftShoulder: {X: 0.5, Y: 0.5, Visibility: 0.5},
		LeftEar:      {X: 0.5, Y: 0.3, Visibility: 0.49},
	}

	if _, ok := set.Get(LeftHip); !ok {
		t.Error("visible hip should be present")
	}
	if _, ok := set.Get(LeftShoulder); !ok {
		t.Error("visibility exactly at threshold should be present")
	}
	if _, ok := set.Get(LeftEar); ok {
		t.Error("low-visibility ear should be missing")
	}
	if _, ok := set.Get(RightHip); ok {
		t.Error("absent landmark should be missing")
	}
	if _, _, _, ok := set.Chain(Left); ok {
		t.Error("left chain should be incomplete")
	}
}

func TestLandmarkSet_UnmarshalJSON(t *testing.T) {
	t.Run("array", func(t *testing.T) {
		lms := make([]Landmark, NumBodyParts)
		lms[LeftHip] = Landmark{X: 0.1, Y: 0.2, Z: 0.3, Visibility: 1}
		data, _ := json.Marshal(lms)

		var set LandmarkSet
		if err := json.Unmarshal(data, &set); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		if len(set) != NumBodyParts {
			t.Errorf("len = %d, want %d", len(set), NumBodyParts)
		}
		if got := set[LeftHip]; got.X != 0.1 || got.Z != 0.3 {
			t.Errorf("left hip = %+v", got)
		}
	})

	t.Run("named", func(t *testing.T) {
		var set LandmarkSet
		data := `{"LEFT_EAR":{"x":0.5,"y":0.3,"z":0,"visibility":1}}`
		if err := json.Unmarshal([]byte(data), &set); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		if _, ok := set.Get(LeftEar); !ok {
			t.Error("expected LEFT_EAR")
		}

		out, err := json.Marshal(set)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		if !strings.Contains(string(out), `"LEFT_EAR"`) {
			t.Errorf("marshal should key by name: %s", out)
		}
	})

	t.Run("unknown part", func(t *testing.T) {
		var set LandmarkSet
		if err := json.Unmarshal([]byte(`{"TAIL":{"x":0}}`), &set); err == nil {
			t.Error("expected error for unknown part")
		}
	})

	t.Run("empty", func(t *testing.T) {
		var set LandmarkSet
		if err := json.Unmarshal([]byte(`[]`), &set); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		if !set.Empty() {
			t.Error("empty array should be no detection")
		}
	})
}

func TestHTTPEstimator(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer pose-key" {
			t.Errorf("unexpected Authorization %q", auth)
		}
		file, _, err := r.FormFile("image")
		if err != nil {
			t.Errorf("missing image field: %v", err)
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		data, _ := io.ReadAll(file)

		w.Header().Set("Content-Type", "application/json")
		switch string(data) {
		case "nobody":
			w.Write([]byte(`{"landmarks":[]}`))
		case "broken":
			w.WriteHeader(http.StatusInternalServerError)
			w.Write([]byte("model crashed"))
		default:
			w.Write([]byte(`{"landmarks":{"LEFT_HIP":{"x":0.5,"y":0.8,"z":0,"visibility":1}}}`))
		}
	}))
	defer server.Close()

	est, err := NewHTTPEstimator(server.URL, WithToken("pose-key"))
	if err != nil {
		t.Fatalf("NewHTTPEstimator: %v", err)
	}
	defer est.Close()
	ctx := context.Background()

	set, err := est.Estimate(ctx, []byte("person"))
	if err != nil {
		t.Fatalf("Estimate: %v", err)
	}
	if _, ok := set.Get(LeftHip); !ok {
		t.Error("expected LEFT_HIP in response")
	}

	set, err = est.Estimate(ctx, []byte("nobody"))
	if err != nil || set != nil {
		t.Errorf("no detection should be nil set, nil error; got %v, %v", set, err)
	}

	_, err = est.Estimate(ctx, []byte("broken"))
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if !apiErr.IsServerError() || apiErr.Message != "model crashed" {
		t.Errorf("unexpected APIError %+v", apiErr)
	}

	est.Close()
	if _, err := est.Estimate(ctx, nil); !errors.Is(err, ErrClosed) {
		t.Errorf("expected ErrClosed, got %v", err)
	}
}

func TestNewHTTPEstimator_RequiresURL(t *testing.T) {
	if _, err := NewHTTPEstimator("  "); !errors.Is(err, ErrNoEndpoint) {
		t.Errorf("expected ErrNoEndpoint, got %v", err)
	}
}

func TestRecording(t *testing.T) {
	start := time.Date(2025, 11, 17, 9, 0, 0, 0, time.UTC)
	input := strings.Join([]string{
		`{"width":1280,"height":720,"t":0,"landmarks":{"LEFT_HIP":{"x":0.5,"y":0.8,"z":0,"visibility":1}}}`,
		``,
		`{"t":1.5,"landmarks":[]}`,
		`{"landmarks":null}`,
	}, "\n")

	rec := NewRecording(strings.NewReader(input), start)
	defer rec.Close()
	ctx := context.Background()

	obs, err := rec.Next(ctx)
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	if obs.Width != 1280 || obs.Height != 720 || !obs.Time.Equal(start) || !obs.Detected() {
		t.Errorf("first frame = %+v", obs)
	}

	obs, err = rec.Next(ctx)
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	if obs.Detected() {
		t.Error("second frame should be no detection")
	}
	if obs.Width != DefaultWidth || obs.Height != DefaultHeight {
		t.Errorf("default size not applied: %dx%d", obs.Width, obs.Height)
	}
	if want := start.Add(1500 * time.Millisecond); !obs.Time.Equal(want) {
		t.Errorf("time = %v, want %v", obs.Time, want)
	}

	obs, err = rec.Next(ctx)
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	if !obs.Time.IsZero() {
		t.Error("frame without offset should have zero time")
	}

	if _, err := rec.Next(ctx); err != io.EOF {
		t.Errorf("expected io.EOF, got %v", err)
	}
}

func TestRecording_BadLine(t *testing.T) {
	rec := NewRecording(strings.NewReader("{not json}\n"), time.Now())
	if _, err := rec.Next(context.Background()); err == nil {
		t.Error("expected decode error")
	}
}

func TestMockEstimator(t *testing.T) {
	a := LandmarkSet{LeftHip: {Visibility: 1}}
	m := NewMockEstimator(a, nil)
	ctx := context.Background()

	if set, _ := m.Estimate(ctx, nil); set.Empty() {
		t.Error("first call should return set a")
	}
	if set, _ := m.Estimate(ctx, nil); !set.Empty() {
		t.Error("second call should return no detection")
	}
	m.SetError(errors.New("boom"))
	if _, err := m.Estimate(ctx, nil); err == nil {
		t.Error("expected configured error")
	}
	if m.Calls() != 3 {
		t.Errorf("Calls() = %d, want 3", m.Calls())
	}
}
