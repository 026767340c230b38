package lesson

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/docentkit/docentkit-backend/internal/modules/lesson/groundtruth"
	"github.com/docentkit/docentkit-backend/internal/modules/lesson/kit"
	"github.com/docentkit/docentkit-backend/internal/modules/lesson/kitcheck"
	"github.com/docentkit/docentkit-backend/internal/modules/lesson/protocols"
	"github.com/docentkit/docentkit-backend/internal/modules/lesson/transform"
	"github.com/docentkit/docentkit-backend/internal/observability"
	pkgerrors "github.com/docentkit/docentkit-backend/internal/pkg/errors"
	"github.com/docentkit/docentkit-backend/internal/platform/logger"
	"github.com/docentkit/docentkit-backend/internal/platform/openai"
)

// Notifier receives pipeline stage events. A nil Notifier is a no-op; the
// redis publisher in internal/realtime/bus satisfies it.
type Notifier interface {
	PublishStage(ctx context.Context, moduleID, stage, message string)
}

type Deps struct {
	Log      *logger.Logger
	AI       openai.Client
	Registry *protocols.Registry
	Bus      Notifier
}

type RunInput struct {
	ModuleID string
	RawText  string

	// ProtocolID forces a protocol; empty selects by applicability.
	ProtocolID     string
	SkipGeneration bool
	AutoRepair     bool

	Config Config
}

// RunResult is the single success/failure envelope of one pipeline run.
// Partial results are never returned as if complete: either Kit is a fully
// validated (possibly needsReview) kit, or OK is false and Err explains why.
type RunResult struct {
	OK  bool
	Err string

	Kit         *kit.Kit
	GroundTruth groundtruth.GroundTruth
	Validation  kitcheck.Result

	// Log is the ordered operator-visible stage log.
	Log []string
}

// Run sequences the three passes: extract, transform, validate-and-repair.
// Input insufficiency halts before any generation call is made.
func Run(ctx context.Context, deps Deps, in RunInput) (RunResult, error) {
	if deps.Log == nil {
		deps.Log = logger.NewNop()
	}
	if deps.Registry == nil {
		deps.Registry = protocols.DefaultRegistry()
	}
	in.Config = in.Config.withDefaults()
	log := deps.Log.With("module_id", in.ModuleID)

	res := RunResult{}
	logf := func(stage, format string, args ...any) {
		msg := fmt.Sprintf(format, args...)
		res.Log = append(res.Log, msg)
		log.Info(msg, "stage", stage)
		if deps.Bus != nil {
			deps.Bus.PublishStage(ctx, in.ModuleID, stage, msg)
		}
	}
	fail := func(stage string, err error) (RunResult, error) {
		res.OK = false
		res.Err = err.Error()
		logf(stage, "pipeline failed: %v", err)
		if m := observability.Current(); m != nil {
			m.ObservePipelineStage(stage, false)
			m.ObservePipelineRun(false)
		}
		return res, err
	}
	stageOK := func(stage string) {
		if m := observability.Current(); m != nil {
			m.ObservePipelineStage(stage, true)
		}
	}

	// A forced protocol must resolve before any extraction work happens.
	rules := deps.Registry.PooledRules()
	if in.ProtocolID != "" {
		proto, err := deps.Registry.Get(in.ProtocolID)
		if err != nil {
			return fail("select", err)
		}
		rules = groundtruth.Merge(groundtruth.BaseRules(), proto.ExtractionRules())
	}

	gt := groundtruth.Extract(in.ModuleID, in.RawText, rules)
	res.GroundTruth = gt
	logf("extract", "extracted %q: %d concepts, %d steps, %d warnings, %d pairs, %d media (%d words)",
		gt.Title, len(gt.KeyConcepts), len(gt.Procedures), len(gt.Warnings),
		len(gt.CorrectIncorrectPairs), len(gt.MediaAssets), gt.WordCount)
	stageOK("extract")

	report := groundtruth.ValidateGroundTruth(gt)
	if !report.Valid {
		err := fmt.Errorf("%w: %v", pkgerrors.ErrInsufficientInput, report.Reasons)
		return fail("extract", err)
	}
	logf("select", "ground truth valid, proposed protocol %s", report.ProposedProtocol)

	tr, err := transform.Transform(ctx, transform.Deps{
		Log:      deps.Log,
		AI:       deps.AI,
		Registry: deps.Registry,
	}, gt, transform.Options{
		ProtocolID:      in.ProtocolID,
		SkipGeneration:  in.SkipGeneration,
		TimeAllocation:  in.Config.TimeAllocation,
		RetryBudget:     in.Config.RetryBudget,
		MaxOutputTokens: in.Config.MaxOutputTokens,
		Timeout:         in.Config.GenerationTimeout(),
	})
	res.Log = append(res.Log, tr.Log...)
	if err != nil {
		return fail("generate", err)
	}
	stageOK("generate")
	logf("generate", "candidate kit built with protocol %s in %d attempt(s)", tr.Protocol.ID(), tr.Attempts)

	finalKit, validation := kitcheck.ValidateAndRepair(tr.Kit, gt, tr.Protocol, kitcheck.Options{
		Thresholds:     in.Config.Thresholds,
		AutoRepair:     in.AutoRepair,
		JargonSuffixes: in.Config.JargonSuffixes,
	})
	finalKit.BuildID = uuid.NewString()
	res.Validation = validation
	res.Kit = &finalKit
	stageOK("validate")
	logf("validate", "grounding %.2f, coverage %.2f, %d finding(s), needsReview=%v",
		validation.GroundingScore, validation.CoverageScore, len(validation.Findings), finalKit.NeedsReview)

	res.OK = true
	if m := observability.Current(); m != nil {
		m.ObservePipelineRun(true)
	}
	return res, nil
}
