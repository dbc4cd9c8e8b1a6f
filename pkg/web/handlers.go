package web

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"go.opentelemetry.io/otel/attribute"

	"github.com/teslashibe/go-posture/pkg/history"
	"github.com/teslashibe/go-posture/pkg/hub"
	"github.com/teslashibe/go-posture/pkg/posture"
)

// Single-frame status strings.
const (
	StatusGood       = "Good Posture"
	StatusSlouching  = "Slouching"
	StatusNoPerson   = "No Person Detected"
	StatusIncomplete = "Incomplete Pose"
)

// Angles is the integer angle payload.
type Angles struct {
	Torso int `json:"torso"`
	Neck  int `json:"neck"`
	Back  int `json:"back"`
}

// FrameResponse is the /process_frame response body.
type FrameResponse struct {
	Score       int    `json:"score"`
	IsSlouching bool   `json:"is_slouching"`
	Status      string `json:"status"`
	Angles      Angles `json:"angles"`
}

// handleProcessFrame scores one uploaded image.
func (s *Server) handleProcessFrame(c *fiber.Ctx) error {
	ctx, span := s.tracer.Start(c.UserContext(), "web.ProcessFrame")
	defer span.End()

	fh, err := c.FormFile("image")
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "No image uploaded")
	}
	f, err := fh.Open()
	if err != nil {
		return fmt.Errorf("open upload: %w", err)
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return fmt.Errorf("read upload: %w", err)
	}

	width, height, err := s.cfg.Decode(data)
	if err != nil {
		s.logger.Debug("undecodable upload", "bytes", len(data), "error", err)
		return fiber.NewError(fiber.StatusBadRequest, "Image decode failed")
	}
	span.SetAttributes(attribute.Int("image.width", width), attribute.Int("image.height", height))

	set, err := s.cfg.Estimator.Estimate(ctx, data)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("estimate pose: %w", err)
	}
	if set.Empty() {
		return c.JSON(FrameResponse{Status: StatusNoPerson})
	}

	angles := posture.Extract(set, width, height)
	if !angles.Valid {
		// Someone is in view but neither side is fully visible.
		return c.JSON(FrameResponse{
			Score:  s.cfg.Scorer.Score(angles),
			Status: StatusIncomplete,
		})
	}

	a := posture.Assess(s.cfg.Scorer, angles, s.cfg.Cutoff)
	torso, neck, back := a.Angles.Rounded()

	resp := FrameResponse{
		Score:       a.Score,
		IsSlouching: a.IsSlouching,
		Status:      StatusGood,
		Angles:      Angles{Torso: torso, Neck: neck, Back: back},
	}
	if a.IsSlouching {
		resp.Status = StatusSlouching
	}
	span.SetAttributes(attribute.Int("posture.score", a.Score))
	return c.JSON(resp)
}

// handleStatus returns the latest live monitor frame.
func (s *Server) handleStatus(c *fiber.Ctx) error {
	s.latestMu.RLock()
	defer s.latestMu.RUnlock()

	body := fiber.Map{
		"running": s.hasLatest,
		"viewers": s.Viewers(),
	}
	if s.hasLatest {
		body["frame"] = s.latest
	}
	return c.JSON(body)
}

// handleHistory lists the chunks for ?date=YYYY-MM-DD (default today) or
// ?period=7d, with the dashboard totals.
func (s *Server) handleHistory(c *fiber.Ctx) error {
	if s.cfg.History == nil {
		return fiber.NewError(fiber.StatusServiceUnavailable, "history disabled")
	}

	now := time.Now()
	var (
		filter history.Filter
		err    error
	)
	switch {
	case c.Query("period") != "":
		filter, err = history.ParsePeriod(c.Query("period"), now)
	case c.Query("date") != "":
		filter, err = history.ParseDay(c.Query("date"), s.cfg.Location)
	default:
		filter = history.Day(now.In(s.cfg.Location))
	}
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	stats, chunks, err := s.cfg.History.Stats(c.UserContext(), filter)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"chunks": chunks,
		"stats":  stats,
		"filters": fiber.Map{
			"from":   filter.From,
			"to":     filter.To,
			"date":   c.Query("date"),
			"period": c.Query("period"),
		},
	})
}

// handleDeleteChunk removes one chunk.
func (s *Server) handleDeleteChunk(c *fiber.Ctx) error {
	if s.cfg.History == nil {
		return fiber.NewError(fiber.StatusServiceUnavailable, "history disabled")
	}
	err := s.cfg.History.Delete(c.UserContext(), c.Params("id"))
	if errors.Is(err, history.ErrNotFound) {
		return fiber.NewError(fiber.StatusNotFound, "chunk not found")
	}
	if err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// handlePostureWS streams every monitor frame to the viewer.
func (s *Server) handlePostureWS(c *websocket.Conn) {
	hub.NewClient(s.statusHub, c).Run()
}
