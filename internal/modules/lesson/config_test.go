package lesson

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/docentkit/docentkit-backend/internal/modules/lesson/kitcheck"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig("")
	require.NoError(t, err)
	require.Equal(t, 0.8, cfg.Thresholds.MinGrounding)
	require.Equal(t, 0.7, cfg.Thresholds.MinCoverage)
	require.Equal(t, 50, cfg.TimeAllocation.Total())
	require.NotEmpty(t, cfg.JargonSuffixes)
}

func TestLoadConfigYAMLAndEnvLayering(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pipeline.yaml")
	yaml := `thresholds:
  min_grounding: 0.9
  lesson_duration_minutes: 45
time_allocation:
  start: 5
  core: 35
  closing: 5
retry_budget: 3
jargon_suffixes: ["atie", "ose"]
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o644))

	// Env wins over the file.
	t.Setenv("LESSON_MIN_GROUNDING", "0.95")
	t.Setenv("LESSON_RETRY_BUDGET", "2")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	require.Equal(t, 0.95, cfg.Thresholds.MinGrounding)
	require.Equal(t, 2, cfg.RetryBudget)
	// File wins over the defaults.
	require.Equal(t, 45, cfg.Thresholds.LessonDurationMinutes)
	require.Equal(t, 5, cfg.TimeAllocation.Start)
	require.Equal(t, []string{"atie", "ose"}, cfg.JargonSuffixes)
	// Untouched values keep their defaults.
	require.Equal(t, 0.7, cfg.Thresholds.MinCoverage)
}

func TestConfigWithDefaultsKeepsCallerValues(t *testing.T) {
	partial := Config{
		Thresholds: kitcheck.Thresholds{
			MinGrounding:          0.9,
			MinCoverage:           0.5,
			ValidateTiming:        true,
			LessonDurationMinutes: 45,
		},
		RetryBudget: 2,
	}
	got := partial.withDefaults()

	// Caller-set knobs survive.
	require.Equal(t, 0.9, got.Thresholds.MinGrounding)
	require.Equal(t, 45, got.Thresholds.LessonDurationMinutes)
	require.Equal(t, 2, got.RetryBudget)
	// Zero fields fill from the defaults.
	require.Equal(t, 50, got.TimeAllocation.Total())
	require.Equal(t, 8192, got.MaxOutputTokens)
	require.NotEmpty(t, got.JargonSuffixes)

	// A zero Config becomes the full default set.
	require.Equal(t, DefaultConfig(), Config{}.withDefaults())
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}
