package transform

import (
	"context"
	"fmt"
	"time"

	"github.com/docentkit/docentkit-backend/internal/modules/lesson/groundtruth"
	"github.com/docentkit/docentkit-backend/internal/modules/lesson/kit"
	"github.com/docentkit/docentkit-backend/internal/modules/lesson/protocols"
	pkgerrors "github.com/docentkit/docentkit-backend/internal/pkg/errors"
	"github.com/docentkit/docentkit-backend/internal/platform/logger"
	"github.com/docentkit/docentkit-backend/internal/platform/openai"
)

// DefaultTimeAllocation is a standard 50-minute lesson.
var DefaultTimeAllocation = kit.TimeAllocation{Start: 10, Core: 35, Closing: 5}

type Deps struct {
	Log      *logger.Logger
	AI       openai.Client
	Registry *protocols.Registry
}

type Options struct {
	// ProtocolID forces a protocol; empty means select by applicability.
	ProtocolID string
	// SkipGeneration builds the deterministic scaffold instead of calling
	// the model. Never substituted implicitly.
	SkipGeneration bool

	TimeAllocation  kit.TimeAllocation
	RetryBudget     int
	MaxOutputTokens int
	Timeout         time.Duration
}

type Result struct {
	Kit      kit.Kit
	Protocol protocols.Protocol
	Attempts int
	Log      []string
}

// Transform is Pass 2: resolve the protocol, generate a candidate kit under
// the recovery ladder (or scaffold on request), and apply the protocol's
// deterministic post-processing. The result carries protocolUsed, the
// ground-truth hash, and a build timestamp.
func Transform(ctx context.Context, deps Deps, gt groundtruth.GroundTruth, opts Options) (Result, error) {
	if deps.Log == nil {
		deps.Log = logger.NewNop()
	}
	if deps.Registry == nil {
		deps.Registry = protocols.DefaultRegistry()
	}

	res := Result{}
	logf := func(format string, args ...any) {
		msg := fmt.Sprintf(format, args...)
		res.Log = append(res.Log, msg)
		deps.Log.Info(msg, "module_id", gt.ModuleID)
	}

	var proto protocols.Protocol
	if opts.ProtocolID != "" {
		p, err := deps.Registry.Get(opts.ProtocolID)
		if err != nil {
			return res, err
		}
		proto = p
		logf("protocol forced: %s", proto.ID())
	} else {
		proto = deps.Registry.Select(gt)
		logf("protocol selected: %s", proto.ID())
	}
	res.Protocol = proto

	alloc := opts.TimeAllocation
	if alloc.Total() <= 0 {
		alloc = DefaultTimeAllocation
	}

	if opts.SkipGeneration {
		logf("generation skipped, building scaffold kit")
		res.Kit = proto.PostProcess(Scaffold(gt, proto.ID(), alloc), gt)
		res.Kit.ModuleID = gt.ModuleID
		res.Kit.ProtocolUsed = proto.ID()
		res.Kit.GroundTruthHash = gt.SourceHash
		res.Kit.BuiltAt = time.Now().UTC()
		return res, nil
	}

	if deps.AI == nil {
		return res, fmt.Errorf("generation requested without a client: %w", pkgerrors.ErrNoProvider)
	}

	system, user := proto.BuildPrompt(gt, alloc)
	base := genRequest{
		system: system,
		user:   user,
		opts: openai.GenerateOptions{
			MaxOutputTokens: opts.MaxOutputTokens,
			Timeout:         opts.Timeout,
		},
	}

	candidate, attempts, err := generateKit(ctx, deps.AI, base, opts.RetryBudget, func(msg string) {
		res.Log = append(res.Log, msg)
		deps.Log.Info(msg, "module_id", gt.ModuleID, "protocol", proto.ID())
	})
	res.Attempts = attempts
	if err != nil {
		return res, err
	}
	logf("candidate kit parsed after %d attempt(s): %d script items", attempts, len(candidate.TeacherScript))

	if candidate.QuickStart.TimeAllocation.Total() <= 0 {
		candidate.QuickStart.TimeAllocation = alloc
	}

	processed := proto.PostProcess(candidate, gt)
	processed.ModuleID = gt.ModuleID
	processed.ProtocolUsed = proto.ID()
	processed.GroundTruthHash = gt.SourceHash
	processed.BuiltAt = time.Now().UTC()
	if processed.Title == "" {
		processed.Title = gt.Title
	}
	res.Kit = processed

	logf("post-processing done: %d script items, %d discussion questions, %d slides",
		len(processed.TeacherScript), len(processed.DiscussionQuestions), len(processed.SlideAssets))
	return res, nil
}
