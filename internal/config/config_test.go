package config

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teslashibe/go-posture/pkg/posture"
)

func TestLoadFrom_Defaults(t *testing.T) {
	cfg, err := LoadFrom(map[string]string{})
	require.NoError(t, err)

	assert.Equal(t, 10*time.Second, cfg.SaveInterval)
	assert.Equal(t, posture.ScorerPenalty, cfg.Scorer)
	assert.Equal(t, 70, cfg.SlouchCutoff)
	assert.Equal(t, posture.DefaultRules(), cfg.Rules())
	assert.False(t, cfg.IsProduction())
}

func TestLoadFrom_Production(t *testing.T) {
	cfg, err := LoadFrom(map[string]string{"GO_ENV": "production"})
	require.NoError(t, err)

	assert.True(t, cfg.IsProduction())
	assert.Equal(t, 300*time.Second, cfg.SaveInterval)
}

func TestLoadFrom_Overrides(t *testing.T) {
	cfg, err := LoadFrom(map[string]string{
		"GO_ENV":                 "production",
		"POSTURE_API_URL":        "https://posture.example.com/api/posture",
		"POSTURE_API_TOKEN":      "tok",
		"POSTURE_SAVE_INTERVAL":  "1m",
		"POSTURE_SCORER":         "threshold",
		"POSTURE_TORSO_MAX":      "25",
		"POSTURE_CRITICAL_AFTER": "20s",
		"POSTURE_MIRROR":         "false",
		"POSTURE_PORT":           "8080",
	})
	require.NoError(t, err)

	assert.Equal(t, "https://posture.example.com/api/posture", cfg.APIURL)
	assert.Equal(t, "tok", cfg.APIToken)
	assert.Equal(t, time.Minute, cfg.SaveInterval)
	assert.Equal(t, 25.0, cfg.Rules().Torso.Max)
	assert.Equal(t, 20*time.Second, cfg.Feedback().CriticalAfter)
	assert.Equal(t, 5*time.Second, cfg.Feedback().WarningAfter)
	assert.False(t, cfg.Mirror)
	assert.Equal(t, ":8080", cfg.Addr())

	s, err := cfg.NewScorer()
	require.NoError(t, err)
	assert.Equal(t, posture.ScorerThreshold, s.Name())
}

func TestLoadFrom_IdealBands(t *testing.T) {
	cfg, err := LoadFrom(map[string]string{})
	require.NoError(t, err)
	assert.Equal(t, posture.DefaultIdealBands(), cfg.IdealBands())

	cfg, err = LoadFrom(map[string]string{
		"POSTURE_SCORER":          "threshold",
		"POSTURE_IDEAL_TORSO_MIN": "0",
		"POSTURE_IDEAL_TORSO_MAX": "15",
		"POSTURE_IDEAL_NECK_MIN":  "0",
		"POSTURE_IDEAL_NECK_MAX":  "25",
		"POSTURE_IDEAL_BACK_MIN":  "150",
		"POSTURE_IDEAL_BACK_MAX":  "180",
	})
	require.NoError(t, err)

	s, err := cfg.NewScorer()
	require.NoError(t, err)
	th, ok := s.(*posture.ThresholdScorer)
	require.True(t, ok, "expected threshold scorer, got %T", s)
	assert.Equal(t, posture.Rule{Min: 0, Max: 15, Name: "Torso Recline"}, th.Ideal.Torso)
	assert.Equal(t, 25.0, th.Ideal.Neck.Max)
	assert.Equal(t, 150.0, th.Ideal.Back.Min)

	upright := posture.AngleTriple{Torso: 0, Neck: 0, Back: 180, Valid: true}
	assert.Equal(t, 100, s.Score(upright))

	_, err = LoadFrom(map[string]string{"POSTURE_IDEAL_NECK_MIN": "190"})
	var cfgErr *ConfigError
	require.True(t, errors.As(err, &cfgErr), "expected *ConfigError, got %v", err)
	assert.Contains(t, cfgErr.Problems[0], "ideal bands")
}

func TestLoadFrom_ParseError(t *testing.T) {
	_, err := LoadFrom(map[string]string{"POSTURE_SLOUCH_CUTOFF": "seventy"})
	require.Error(t, err)
}

func TestLoadFrom_Invalid(t *testing.T) {
	_, err := LoadFrom(map[string]string{
		"POSTURE_SCORER":        "fuzzy",
		"POSTURE_SAVE_INTERVAL": "0s",
		"POSTURE_NECK_MIN":      "50",
	})

	var cfgErr *ConfigError
	require.True(t, errors.As(err, &cfgErr), "expected *ConfigError, got %v", err)
	assert.Len(t, cfgErr.Problems, 3)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		valid  bool
	}{
		{"default", func(*Config) {}, true},
		{"production", func(c *Config) { *c = ProductionConfig() }, true},
		{"cutoff too high", func(c *Config) { c.SlouchCutoff = 101 }, false},
		{"warning after critical", func(c *Config) { c.WarningAfter = 20 * time.Second }, false},
		{"no alert interval", func(c *Config) { c.AlertEvery = 0 }, false},
		{"bad port", func(c *Config) { c.Port = 0 }, false},
		{"negative weight", func(c *Config) { c.PenaltyWeight = -1 }, false},
		{"back range reversed", func(c *Config) { c.BackMin, c.BackMax = 180, 140 }, false},
		{"ideal torso reversed", func(c *Config) { c.IdealTorsoMin, c.IdealTorsoMax = 170, 160 }, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mutate(&cfg)
			problems := cfg.Validate()
			if tc.valid {
				assert.Empty(t, problems)
			} else {
				assert.NotEmpty(t, problems)
			}
		})
	}
}
