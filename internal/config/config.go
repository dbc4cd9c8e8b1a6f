// Package config loads go-posture settings from the environment.
//
// Every binary starts from a preset (DefaultConfig for local runs,
// ProductionConfig when GO_ENV=production), overlays POSTURE_* variables,
// and finally applies its own command-line flags.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/teslashibe/go-posture/pkg/feedback"
	"github.com/teslashibe/go-posture/pkg/posture"
	"github.com/teslashibe/go-posture/pkg/session"
)

// Config holds the settings shared by the posture commands.
// Unset variables keep the preset's value.
type Config struct {
	Env string `env:"GO_ENV"`

	// Remote store
	APIURL       string        `env:"POSTURE_API_URL"`
	APIToken     string        `env:"POSTURE_API_TOKEN"`
	SaveInterval time.Duration `env:"POSTURE_SAVE_INTERVAL"`

	// Scoring
	Scorer             string  `env:"POSTURE_SCORER"`
	PenaltyWeight      float64 `env:"POSTURE_PENALTY_WEIGHT"`
	ZeroScoreThreshold float64 `env:"POSTURE_ZERO_SCORE_THRESHOLD"`
	SlouchCutoff       int     `env:"POSTURE_SLOUCH_CUTOFF"`
	TorsoMin           float64 `env:"POSTURE_TORSO_MIN"`
	TorsoMax           float64 `env:"POSTURE_TORSO_MAX"`
	NeckMin            float64 `env:"POSTURE_NECK_MIN"`
	NeckMax            float64 `env:"POSTURE_NECK_MAX"`
	BackMin            float64 `env:"POSTURE_BACK_MIN"`
	BackMax            float64 `env:"POSTURE_BACK_MAX"`

	// Ideal bands for the threshold scorer
	IdealTorsoMin float64 `env:"POSTURE_IDEAL_TORSO_MIN"`
	IdealTorsoMax float64 `env:"POSTURE_IDEAL_TORSO_MAX"`
	IdealNeckMin  float64 `env:"POSTURE_IDEAL_NECK_MIN"`
	IdealNeckMax  float64 `env:"POSTURE_IDEAL_NECK_MAX"`
	IdealBackMin  float64 `env:"POSTURE_IDEAL_BACK_MIN"`
	IdealBackMax  float64 `env:"POSTURE_IDEAL_BACK_MAX"`

	// Feedback escalation
	WarningAfter  time.Duration `env:"POSTURE_WARNING_AFTER"`
	CriticalAfter time.Duration `env:"POSTURE_CRITICAL_AFTER"`
	AlertEvery    time.Duration `env:"POSTURE_ALERT_EVERY"`

	// Capture and pose estimation
	CameraDevice int    `env:"POSTURE_CAMERA_DEVICE"`
	CameraWidth  int    `env:"POSTURE_CAMERA_WIDTH"`
	CameraHeight int    `env:"POSTURE_CAMERA_HEIGHT"`
	Mirror       bool   `env:"POSTURE_MIRROR"`
	PoseURL      string `env:"POSTURE_POSE_URL"`
	PoseToken    string `env:"POSTURE_POSE_TOKEN"`

	// Local services
	HistoryPath  string `env:"POSTURE_HISTORY_PATH"`
	Port         int    `env:"POSTURE_PORT"`
	LogLevel     string `env:"LOG_LEVEL"`
	OTelEndpoint string `env:"POSTURE_OTEL_ENDPOINT"`
}

// DefaultConfig returns settings for local development: a short save
// interval and the penalty scorer.
func DefaultConfig() Config {
	rules := posture.DefaultRules()
	ideal := posture.DefaultIdealBands()
	fb := feedback.DefaultConfig()
	return Config{
		Env:                "development",
		APIURL:             "http://localhost:8000/api/posture",
		SaveInterval:       session.DefaultInterval,
		Scorer:             posture.ScorerPenalty,
		PenaltyWeight:      posture.DefaultPenaltyWeight,
		ZeroScoreThreshold: posture.DefaultZeroScoreThreshold,
		SlouchCutoff:       posture.DefaultSlouchCutoff,
		TorsoMin:           rules.Torso.Min,
		TorsoMax:           rules.Torso.Max,
		NeckMin:            rules.Neck.Min,
		NeckMax:            rules.Neck.Max,
		BackMin:            rules.Back.Min,
		BackMax:            rules.Back.Max,
		IdealTorsoMin:      ideal.Torso.Min,
		IdealTorsoMax:      ideal.Torso.Max,
		IdealNeckMin:       ideal.Neck.Min,
		IdealNeckMax:       ideal.Neck.Max,
		IdealBackMin:       ideal.Back.Min,
		IdealBackMax:       ideal.Back.Max,
		WarningAfter:       fb.WarningAfter,
		CriticalAfter:      fb.CriticalAfter,
		AlertEvery:         fb.AlertEvery,
		CameraDevice:       0,
		CameraWidth:        640,
		CameraHeight:       480,
		Mirror:             true,
		HistoryPath:        "posture.db",
		Port:               5000,
		LogLevel:           "info",
	}
}

// ProductionConfig returns DefaultConfig with the five-minute save interval.
func ProductionConfig() Config {
	cfg := DefaultConfig()
	cfg.Env = "production"
	cfg.SaveInterval = session.ProductionInterval
	cfg.LogLevel = "info"
	return cfg
}

// Load builds the configuration from the process environment.
func Load() (Config, error) {
	return load(env.Options{})
}

// LoadFrom builds the configuration from the given variables only.
func LoadFrom(environ map[string]string) (Config, error) {
	return load(env.Options{Environment: environ})
}

func load(opts env.Options) (Config, error) {
	goEnv := os.Getenv("GO_ENV")
	if opts.Environment != nil {
		goEnv = opts.Environment["GO_ENV"]
	}

	cfg := DefaultConfig()
	if strings.EqualFold(goEnv, "production") {
		cfg = ProductionConfig()
	}

	if err := env.ParseWithOptions(&cfg, opts); err != nil {
		return cfg, fmt.Errorf("parse env: %w", err)
	}
	if problems := cfg.Validate(); len(problems) > 0 {
		return cfg, &ConfigError{Problems: problems}
	}
	return cfg, nil
}

// IsProduction reports whether the production preset is active.
func (c Config) IsProduction() bool {
	return strings.EqualFold(c.Env, "production")
}

// Validate checks the values are usable.
// Returns a list of problems, or nil if valid.
func (c Config) Validate() []string {
	var problems []string

	if c.SaveInterval <= 0 {
		problems = append(problems, "save interval must be positive")
	}
	switch strings.ToLower(c.Scorer) {
	case posture.ScorerPenalty, posture.ScorerThreshold:
	default:
		problems = append(problems, fmt.Sprintf("scorer must be %q or %q", posture.ScorerPenalty, posture.ScorerThreshold))
	}
	if c.PenaltyWeight <= 0 {
		problems = append(problems, "penalty weight must be positive")
	}
	if c.ZeroScoreThreshold <= 0 {
		problems = append(problems, "zero score threshold must be positive")
	}
	if c.SlouchCutoff < 0 || c.SlouchCutoff > 100 {
		problems = append(problems, "slouch cutoff must be between 0 and 100")
	}
	if err := c.Rules().Validate(); err != nil {
		problems = append(problems, err.Error())
	}
	if err := c.IdealBands().Validate(); err != nil {
		problems = append(problems, "ideal bands: "+err.Error())
	}
	if c.WarningAfter <= 0 || c.CriticalAfter <= c.WarningAfter {
		problems = append(problems, "critical threshold must be after a positive warning threshold")
	}
	if c.AlertEvery <= 0 {
		problems = append(problems, "alert interval must be positive")
	}
	if c.CameraDevice < 0 {
		problems = append(problems, "camera device must not be negative")
	}
	if c.Port < 1 || c.Port > 65535 {
		problems = append(problems, "port must be between 1 and 65535")
	}
	return problems
}

// ConfigError lists every invalid setting.
type ConfigError struct {
	Problems []string
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	return "config: " + strings.Join(e.Problems, "; ")
}

// Rules returns the healthy ranges for the penalty scorer.
func (c Config) Rules() posture.Rules {
	return posture.Rules{
		Torso: posture.Rule{Min: c.TorsoMin, Max: c.TorsoMax, Name: "Torso"},
		Neck:  posture.Rule{Min: c.NeckMin, Max: c.NeckMax, Name: "Neck"},
		Back:  posture.Rule{Min: c.BackMin, Max: c.BackMax, Name: "Back"},
	}
}

// IdealBands returns the ideal bands for the threshold scorer.
func (c Config) IdealBands() posture.Rules {
	ideal := posture.DefaultIdealBands()
	ideal.Torso.Min, ideal.Torso.Max = c.IdealTorsoMin, c.IdealTorsoMax
	ideal.Neck.Min, ideal.Neck.Max = c.IdealNeckMin, c.IdealNeckMax
	ideal.Back.Min, ideal.Back.Max = c.IdealBackMin, c.IdealBackMax
	return ideal
}

// ScorerConfig returns the parameters for posture.NewScorer.
func (c Config) ScorerConfig() posture.ScorerConfig {
	sc := posture.DefaultScorerConfig()
	sc.Rules = c.Rules()
	sc.IdealBands = c.IdealBands()
	sc.PenaltyWeight = c.PenaltyWeight
	sc.Threshold = c.ZeroScoreThreshold
	return sc
}

// NewScorer builds the configured scorer.
func (c Config) NewScorer() (posture.Scorer, error) {
	return posture.NewScorer(c.Scorer, c.ScorerConfig())
}

// Feedback returns the escalation timings.
func (c Config) Feedback() feedback.Config {
	return feedback.Config{
		WarningAfter:  c.WarningAfter,
		CriticalAfter: c.CriticalAfter,
		AlertEvery:    c.AlertEvery,
	}
}

// Addr returns the listen address for the local server.
func (c Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}
