package lesson

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/docentkit/docentkit-backend/internal/modules/lesson/kit"
	"github.com/docentkit/docentkit-backend/internal/modules/lesson/kitcheck"
	"github.com/docentkit/docentkit-backend/internal/platform/envutil"
)

// Config bundles the pipeline knobs. YAML file values layer over the
// defaults; environment variables layer over both.
type Config struct {
	Thresholds kitcheck.Thresholds `yaml:"thresholds"`

	TimeAllocation kit.TimeAllocation `yaml:"time_allocation"`

	RetryBudget              int `yaml:"retry_budget"`
	MaxOutputTokens          int `yaml:"max_output_tokens"`
	GenerationTimeoutSeconds int `yaml:"generation_timeout_seconds"`

	// JargonSuffixes drive the hallucination heuristic; the default set is
	// tuned to Dutch instructional material.
	JargonSuffixes []string `yaml:"jargon_suffixes"`
}

func DefaultConfig() Config {
	return Config{
		Thresholds:               kitcheck.DefaultThresholds(),
		TimeAllocation:           kit.TimeAllocation{Start: 10, Core: 35, Closing: 5},
		RetryBudget:              5,
		MaxOutputTokens:          8192,
		GenerationTimeoutSeconds: 120,
		JargonSuffixes:           kitcheck.DefaultJargonSuffixes(),
	}
}

// LoadConfig reads an optional YAML file and applies env overrides. An empty
// path skips the file layer.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config: %w", err)
		}
	}
	return cfg.withEnv(), nil
}

func (c Config) withEnv() Config {
	out := c
	out.Thresholds.MinGrounding = envutil.Float("LESSON_MIN_GROUNDING", c.Thresholds.MinGrounding)
	out.Thresholds.MinCoverage = envutil.Float("LESSON_MIN_COVERAGE", c.Thresholds.MinCoverage)
	out.Thresholds.MaxHallucinations = envutil.Int("LESSON_MAX_HALLUCINATIONS", c.Thresholds.MaxHallucinations)
	out.Thresholds.RequireAllWarningsUsed = envutil.Bool("LESSON_REQUIRE_ALL_WARNINGS", c.Thresholds.RequireAllWarningsUsed)
	out.Thresholds.ValidateTiming = envutil.Bool("LESSON_VALIDATE_TIMING", c.Thresholds.ValidateTiming)
	out.Thresholds.LessonDurationMinutes = envutil.Int("LESSON_DURATION_MINUTES", c.Thresholds.LessonDurationMinutes)
	out.RetryBudget = envutil.Int("LESSON_RETRY_BUDGET", c.RetryBudget)
	out.MaxOutputTokens = envutil.Int("LESSON_MAX_OUTPUT_TOKENS", c.MaxOutputTokens)
	out.GenerationTimeoutSeconds = envutil.Int("LESSON_GENERATION_TIMEOUT_SECONDS", c.GenerationTimeoutSeconds)
	return out
}

// withDefaults fills zero fields from DefaultConfig without touching values
// the caller set. A partly-built Config keeps its custom knobs.
func (c Config) withDefaults() Config {
	def := DefaultConfig()
	out := c
	if out.Thresholds == (kitcheck.Thresholds{}) {
		out.Thresholds = def.Thresholds
	}
	if out.TimeAllocation.Total() <= 0 {
		out.TimeAllocation = def.TimeAllocation
	}
	if out.RetryBudget <= 0 {
		out.RetryBudget = def.RetryBudget
	}
	if out.MaxOutputTokens <= 0 {
		out.MaxOutputTokens = def.MaxOutputTokens
	}
	if out.GenerationTimeoutSeconds <= 0 {
		out.GenerationTimeoutSeconds = def.GenerationTimeoutSeconds
	}
	if len(out.JargonSuffixes) == 0 {
		out.JargonSuffixes = def.JargonSuffixes
	}
	return out
}

// GenerationTimeout is the per-call bound for the generation capability.
func (c Config) GenerationTimeout() time.Duration {
	return time.Duration(c.GenerationTimeoutSeconds) * time.Second
}
