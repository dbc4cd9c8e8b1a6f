// Package history keeps a local SQLite record of uploaded session chunks
// and computes the daily dashboard totals from it.
package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/teslashibe/go-posture/pkg/history/migrations"
	"github.com/teslashibe/go-posture/pkg/session"
)

// Chunk is one stored session summary.
type Chunk struct {
	ID              string    `json:"id"`
	Score           int       `json:"score"`
	SlouchDuration  int       `json:"slouch_duration"`
	DurationSeconds int       `json:"duration_seconds"`
	AlertCount      int       `json:"alert_count"`
	Frames          int       `json:"frames"`
	StartedAt       time.Time `json:"started_at"`
	CreatedAt       time.Time `json:"created_at"`
}

// Store persists chunks in SQLite.
type Store struct {
	sqlDB *sql.DB
}

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

// Open opens (or creates) the history database at path and applies the
// embedded migrations.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("history: storage path is required")
	}
	dsn := filepath.Clean(path) + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := applyMigrations(context.Background(), sqlDB, migrations.FS); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &Store{sqlDB: sqlDB}, nil
}

// Close closes the SQLite handle.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

func (s *Store) ready(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return ErrNotConfigured
	}
	return nil
}

func validate(sum session.Summary) error {
	switch {
	case sum.Score < 0 || sum.Score > 100:
		return fmt.Errorf("%w: score %d outside 0..100", ErrInvalidChunk, sum.Score)
	case sum.SlouchDuration < 0:
		return fmt.Errorf("%w: negative slouch duration", ErrInvalidChunk)
	case sum.DurationSeconds < 1:
		return fmt.Errorf("%w: duration must be at least 1s", ErrInvalidChunk)
	case sum.AlertCount < 0:
		return fmt.Errorf("%w: negative alert count", ErrInvalidChunk)
	}
	return nil
}

// Save records a flushed summary. The chunk is timestamped with the
// summary's end time, or now when that is unset.
func (s *Store) Save(ctx context.Context, sum session.Summary) (Chunk, error) {
	if err := s.ready(ctx); err != nil {
		return Chunk{}, err
	}
	if err := validate(sum); err != nil {
		return Chunk{}, err
	}

	createdAt := sum.EndedAt.UTC()
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	startedAt := sum.StartedAt.UTC()
	if startedAt.IsZero() {
		startedAt = createdAt.Add(-time.Duration(sum.DurationSeconds) * time.Second)
	}

	c := Chunk{
		ID:              sum.ID.String(),
		Score:           sum.Score,
		SlouchDuration:  sum.SlouchDuration,
		DurationSeconds: sum.DurationSeconds,
		AlertCount:      sum.AlertCount,
		Frames:          sum.Frames,
		StartedAt:       fromMillis(toMillis(startedAt)),
		CreatedAt:       fromMillis(toMillis(createdAt)),
	}

	_, err := s.sqlDB.ExecContext(
		ctx,
		`INSERT INTO posture_chunks (
		   id, score, slouch_duration, duration_seconds, alert_count,
		   frames, started_at, created_at
		 ) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.Score, c.SlouchDuration, c.DurationSeconds, c.AlertCount,
		c.Frames, toMillis(c.StartedAt), toMillis(c.CreatedAt),
	)
	if err != nil {
		return Chunk{}, fmt.Errorf("save chunk: %w", err)
	}
	return c, nil
}

const selectChunk = `SELECT id, score, slouch_duration, duration_seconds, alert_count,
        frames, started_at, created_at
   FROM posture_chunks`

type scanner interface {
	Scan(dest ...any) error
}

func scanChunk(row scanner) (Chunk, error) {
	var c Chunk
	var startedAt, createdAt int64
	if err := row.Scan(
		&c.ID,
		&c.Score,
		&c.SlouchDuration,
		&c.DurationSeconds,
		&c.AlertCount,
		&c.Frames,
		&startedAt,
		&createdAt,
	); err != nil {
		return Chunk{}, err
	}
	c.StartedAt = fromMillis(startedAt)
	c.CreatedAt = fromMillis(createdAt)
	return c, nil
}

// Get returns one chunk by ID.
func (s *Store) Get(ctx context.Context, id string) (Chunk, error) {
	if err := s.ready(ctx); err != nil {
		return Chunk{}, err
	}
	row := s.sqlDB.QueryRowContext(ctx, selectChunk+` WHERE id = ?`, strings.TrimSpace(id))
	c, err := scanChunk(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Chunk{}, ErrNotFound
	}
	if err != nil {
		return Chunk{}, fmt.Errorf("get chunk: %w", err)
	}
	return c, nil
}

// List returns the chunks created inside f, newest first.
func (s *Store) List(ctx context.Context, f Filter) ([]Chunk, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}

	rows, err := s.sqlDB.QueryContext(
		ctx,
		selectChunk+` WHERE created_at >= ? AND created_at < ? ORDER BY created_at DESC, id DESC`,
		toMillis(f.From), toMillis(f.To),
	)
	if err != nil {
		return nil, fmt.Errorf("list chunks: %w", err)
	}
	defer rows.Close()

	chunks := make([]Chunk, 0)
	for rows.Next() {
		c, err := scanChunk(rows)
		if err != nil {
			return nil, fmt.Errorf("scan chunk: %w", err)
		}
		chunks = append(chunks, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate chunks: %w", err)
	}
	return chunks, nil
}

// Delete removes one chunk.
func (s *Store) Delete(ctx context.Context, id string) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	res, err := s.sqlDB.ExecContext(ctx, `DELETE FROM posture_chunks WHERE id = ?`, strings.TrimSpace(id))
	if err != nil {
		return fmt.Errorf("delete chunk: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete chunk: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// Stats are the dashboard totals over a set of chunks.
type Stats struct {
	AverageScore  int    `json:"average_score"`
	TotalAlerts   int    `json:"total_alerts"`
	TotalSlouch   int    `json:"total_slouch"`
	TotalSeconds  int    `json:"total_seconds"`
	TotalDuration string `json:"total_duration"`
	TotalLogs     int    `json:"total_logs"`
}

// Summarize computes Stats. The average score is 0 when there are no chunks.
func Summarize(chunks []Chunk) Stats {
	var st Stats
	scoreSum := 0
	for _, c := range chunks {
		scoreSum += c.Score
		st.TotalAlerts += c.AlertCount
		st.TotalSlouch += c.SlouchDuration
		st.TotalSeconds += c.DurationSeconds
	}
	st.TotalLogs = len(chunks)
	if st.TotalLogs > 0 {
		st.AverageScore = int(math.Round(float64(scoreSum) / float64(st.TotalLogs)))
	}
	st.TotalDuration = FormatDuration(st.TotalSeconds)
	return st
}

// Stats loads the chunks in f and summarizes them.
func (s *Store) Stats(ctx context.Context, f Filter) (Stats, []Chunk, error) {
	chunks, err := s.List(ctx, f)
	if err != nil {
		return Stats{}, nil, err
	}
	return Summarize(chunks), chunks, nil
}

// FormatDuration renders seconds as "2h 15m", or "15m" under an hour.
func FormatDuration(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	hours := seconds / 3600
	mins := (seconds % 3600) / 60
	if hours > 0 {
		return fmt.Sprintf("%dh %dm", hours, mins)
	}
	return fmt.Sprintf("%dm", mins)
}
