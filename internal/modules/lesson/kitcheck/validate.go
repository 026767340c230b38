package kitcheck

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/docentkit/docentkit-backend/internal/modules/lesson/groundtruth"
	"github.com/docentkit/docentkit-backend/internal/modules/lesson/kit"
)

// Thresholds is the configurable quality bar. Violations surface as
// warning-severity findings; only schema errors are hard failures.
type Thresholds struct {
	MinGrounding           float64 `yaml:"min_grounding"`
	MinCoverage            float64 `yaml:"min_coverage"`
	MaxHallucinations      int     `yaml:"max_hallucinations"`
	RequireAllWarningsUsed bool    `yaml:"require_all_warnings_used"`
	ValidateTiming         bool    `yaml:"validate_timing"`
	LessonDurationMinutes  int     `yaml:"lesson_duration_minutes"`
}

func DefaultThresholds() Thresholds {
	return Thresholds{
		MinGrounding:           0.8,
		MinCoverage:            0.7,
		MaxHallucinations:      0,
		RequireAllWarningsUsed: true,
		ValidateTiming:         true,
		LessonDurationMinutes:  50,
	}
}

// ProtocolChecker is the slice of a content protocol this pass consumes.
type ProtocolChecker interface {
	ID() string
	Validate(k kit.Kit, gt groundtruth.GroundTruth) []kit.Finding
}

// Options steers one validate-and-repair invocation.
type Options struct {
	Thresholds     Thresholds
	AutoRepair     bool
	JargonSuffixes []string
}

// Result aggregates every independent check. Findings are data; the caller
// decides whether warnings-only is acceptable.
type Result struct {
	Findings       []kit.Finding
	GroundingScore float64
	CoverageScore  float64
	Hallucinations []string

	WasRepaired      bool
	RepairIncomplete bool
}

// Errors counts hard failures among the findings.
func (r Result) Errors() int {
	n := 0
	for _, f := range r.Findings {
		if f.Severity == kit.SeverityError {
			n++
		}
	}
	return n
}

// ValidateAndRepair is Pass 3. All checks run independently and aggregate;
// nothing short-circuits. When hard errors exist and repair is requested, a
// bounded rule-based repair runs once and the result is re-inspected for an
// actual error-count decrease. The returned kit is a new value with the
// final scores and review flag stamped.
func ValidateAndRepair(candidate kit.Kit, gt groundtruth.GroundTruth, checker ProtocolChecker, opts Options) (kit.Kit, Result) {
	if opts.Thresholds == (Thresholds{}) {
		opts.Thresholds = DefaultThresholds()
	}

	k := candidate.Clone()
	res := inspect(k, gt, checker, opts)

	if opts.AutoRepair && res.Errors() > 0 {
		before := res.Errors()
		k = repair(k, gt)
		rechecked := inspect(k, gt, checker, opts)
		rechecked.WasRepaired = true
		if rechecked.Errors() >= before {
			rechecked.RepairIncomplete = true
			rechecked.Findings = append(rechecked.Findings, kit.Finding{
				Severity: kit.SeverityWarning,
				Code:     "repair-incomplete",
				Message:  fmt.Sprintf("repair did not reduce error count (%d before, %d after)", before, rechecked.Errors()),
			})
		}
		res = rechecked
	}

	k.GroundingScore = res.GroundingScore
	k.CoverageScore = res.CoverageScore
	// Upstream review flags (scaffold path) survive; this pass only adds.
	if res.Errors() > 0 {
		k.NeedsReview = true
		k.ReviewReasons = append(k.ReviewReasons, fmt.Sprintf("%d validation error(s)", res.Errors()))
	}
	if res.GroundingScore < opts.Thresholds.MinGrounding {
		k.NeedsReview = true
		k.ReviewReasons = append(k.ReviewReasons,
			fmt.Sprintf("grounding score %.2f below minimum %.2f", res.GroundingScore, opts.Thresholds.MinGrounding))
	}
	return k, res
}

// inspect runs every check once over one kit value.
func inspect(k kit.Kit, gt groundtruth.GroundTruth, checker ProtocolChecker, opts Options) Result {
	var res Result

	res.Findings = append(res.Findings, schemaCheck(k)...)
	res.Findings = append(res.Findings, metaPhraseCheck(k)...)
	if opts.Thresholds.ValidateTiming {
		res.Findings = append(res.Findings, timingCheck(k, opts.Thresholds.LessonDurationMinutes)...)
	}
	if checker != nil {
		findings := checker.Validate(k, gt)
		if !opts.Thresholds.RequireAllWarningsUsed {
			findings = dropCode(findings, "warning-unused")
		}
		res.Findings = append(res.Findings, findings...)
	}

	res.Hallucinations = DetectHallucinations(k, gt, opts.JargonSuffixes)
	if len(res.Hallucinations) > opts.Thresholds.MaxHallucinations {
		res.Findings = append(res.Findings, kit.Finding{
			Severity: kit.SeverityWarning,
			Code:     "hallucination",
			Message:  fmt.Sprintf("candidate hallucinations: %s", strings.Join(res.Hallucinations, ", ")),
		})
	}

	res.GroundingScore = GroundingScore(k, gt)
	res.CoverageScore = CoverageScore(k, gt)
	if res.GroundingScore < opts.Thresholds.MinGrounding {
		res.Findings = append(res.Findings, kit.Finding{
			Severity: kit.SeverityWarning,
			Code:     "low-grounding",
			Message:  fmt.Sprintf("grounding score %.2f below %.2f", res.GroundingScore, opts.Thresholds.MinGrounding),
		})
	}
	if res.CoverageScore < opts.Thresholds.MinCoverage {
		res.Findings = append(res.Findings, kit.Finding{
			Severity: kit.SeverityWarning,
			Code:     "low-coverage",
			Message:  fmt.Sprintf("coverage score %.2f below %.2f", res.CoverageScore, opts.Thresholds.MinCoverage),
		})
	}
	return res
}

func dropCode(findings []kit.Finding, code string) []kit.Finding {
	out := findings[:0]
	for _, f := range findings {
		if f.Code != code {
			out = append(out, f)
		}
	}
	return out
}

func schemaCheck(k kit.Kit) []kit.Finding {
	var findings []kit.Finding
	errf := func(code, format string, args ...any) {
		findings = append(findings, kit.Finding{Severity: kit.SeverityError, Code: code, Message: fmt.Sprintf(format, args...)})
	}
	warnf := func(code, format string, args ...any) {
		findings = append(findings, kit.Finding{Severity: kit.SeverityWarning, Code: code, Message: fmt.Sprintf(format, args...)})
	}

	if strings.TrimSpace(k.QuickStart.OneLiner) == "" {
		errf("missing-quickstart", "quick start one-liner is empty")
	}
	if len(k.TeacherScript) == 0 {
		errf("empty-script", "teacher script has no items")
	}
	for i, it := range k.TeacherScript {
		if strings.TrimSpace(it.Time) == "" {
			errf("item-missing-time", "script item %d has no time", i)
		}
		switch it.Phase {
		case kit.PhaseStart, kit.PhaseCore, kit.PhaseClosing:
		default:
			errf("item-bad-phase", "script item %d has invalid phase %q", i, it.Phase)
		}
		if strings.TrimSpace(string(it.Action)) == "" {
			errf("item-missing-action", "script item %d has no action", i)
		}
		if strings.TrimSpace(it.Content) == "" {
			errf("item-missing-content", "script item %d has no content", i)
		}
		if it.IsGrounded && it.SourceRef == nil {
			warnf("grounded-without-ref", "script item %d is marked grounded but carries no sourceRef", i)
		}
	}
	for i, s := range k.SlideAssets {
		if s.Slide < 1 {
			warnf("slide-bad-number", "slide asset %d has non-positive slide number %d", i, s.Slide)
		}
	}
	if strings.TrimSpace(k.StudentHandout.Title) == "" && len(k.StudentHandout.Exercises) == 0 {
		warnf("missing-handout", "student handout is empty")
	}
	return findings
}

func timingCheck(k kit.Kit, lessonMinutes int) []kit.Finding {
	var findings []kit.Finding
	if lessonMinutes <= 0 {
		lessonMinutes = k.QuickStart.TimeAllocation.Total()
	}

	maxCore := -1
	for i, it := range k.TeacherScript {
		minutes, err := strconv.Atoi(strings.TrimSpace(it.Time))
		if err != nil || minutes < 0 {
			findings = append(findings, kit.Finding{
				Severity: kit.SeverityWarning,
				Code:     "time-unparseable",
				Message:  fmt.Sprintf("script item %d time %q is not a whole minute offset", i, it.Time),
			})
			continue
		}
		if lessonMinutes > 0 && minutes > lessonMinutes {
			findings = append(findings, kit.Finding{
				Severity: kit.SeverityWarning,
				Code:     "time-overrun",
				Message:  fmt.Sprintf("script item %d at minute %d exceeds lesson duration %d", i, minutes, lessonMinutes),
			})
		}
		if it.Phase == kit.PhaseCore && minutes > maxCore {
			maxCore = minutes
		}
	}

	if maxCore >= 0 && maxCore < k.QuickStart.TimeAllocation.Start {
		findings = append(findings, kit.Finding{
			Severity: kit.SeverityWarning,
			Code:     "phase-order",
			Message: fmt.Sprintf("core phase ends at minute %d, before the declared %d-minute start phase",
				maxCore, k.QuickStart.TimeAllocation.Start),
		})
	}
	return findings
}
