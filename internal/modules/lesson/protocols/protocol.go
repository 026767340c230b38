package protocols

import (
	"fmt"

	"github.com/docentkit/docentkit-backend/internal/modules/lesson/groundtruth"
	"github.com/docentkit/docentkit-backend/internal/modules/lesson/kit"
	pkgerrors "github.com/docentkit/docentkit-backend/internal/pkg/errors"
)

// Protocol IDs. ConceptualTheoryID doubles as the registry default when no
// protocol scores above zero.
const (
	ProceduralSkillID            = "procedural-skill"
	InterpersonalCommunicationID = "interpersonal-communication"
	ConceptualTheoryID           = "conceptual-theory"
)

// CoverageRequirements is the per-protocol minimum-coverage configuration the
// validator enforces. The three protocols target structurally different
// content shapes, so the thresholds are explicit per-protocol values rather
// than a shared formula.
type CoverageRequirements struct {
	// RequireAllProcedures demands one demo action per extracted procedure
	// step, complete and in source order. Missing steps are hard errors.
	RequireAllProcedures bool
	// MinPairFraction is the minimum fraction of contrast pairs that must be
	// referenced somewhere in the kit.
	MinPairFraction float64
	// MinConceptsUsed is the minimum number of key concepts that must be
	// referenced.
	MinConceptsUsed int
	// RequireRolePlay demands role-play structure in the group-work section.
	RequireRolePlay bool
	// RequireMediaOnSlides demands extracted media assets be surfaced in the
	// slide assets when any exist.
	RequireMediaOnSlides bool
}

// Protocol is one named content strategy: a closed bundle of extraction
// rules, applicability scoring, prompt construction, post-processing, and
// validation. Exactly one protocol is bound per kit build and threaded
// explicitly through the pipeline.
type Protocol interface {
	ID() string
	ExtractionRules() groundtruth.RuleSet
	// DetectApplicability scores how well this protocol fits the extracted
	// structure, in [0,1]. Deterministic.
	DetectApplicability(gt groundtruth.GroundTruth) float64
	// BuildPrompt returns the system instruction and the user prompt with the
	// serialized Ground-Truth collections, indices included.
	BuildPrompt(gt groundtruth.GroundTruth, alloc kit.TimeAllocation) (system, user string)
	// PostProcess derives a cleaned-up kit from the candidate. It may add or
	// reorder content but never invents grounded claims without a valid
	// source reference.
	PostProcess(k kit.Kit, gt groundtruth.GroundTruth) kit.Kit
	// Validate runs the protocol-specific coverage checks. Findings are data.
	Validate(k kit.Kit, gt groundtruth.GroundTruth) []kit.Finding
	CoverageRequirements() CoverageRequirements
}

// Registry holds the registered protocols in registration order. Selection
// ties favor the earlier registration; the conceptual-theory protocol is the
// designated fallback when every score is zero.
type Registry struct {
	ordered []Protocol
	byID    map[string]Protocol
}

func NewRegistry(ps ...Protocol) *Registry {
	r := &Registry{byID: map[string]Protocol{}}
	for _, p := range ps {
		r.Register(p)
	}
	return r
}

// DefaultRegistry registers the three built-in protocols.
func DefaultRegistry() *Registry {
	return NewRegistry(
		NewProceduralSkill(),
		NewInterpersonalCommunication(),
		NewConceptualTheory(),
	)
}

func (r *Registry) Register(p Protocol) {
	if p == nil {
		return
	}
	if _, dup := r.byID[p.ID()]; dup {
		return
	}
	r.ordered = append(r.ordered, p)
	r.byID[p.ID()] = p
}

// Get resolves a forced protocol id. Unknown ids are hard errors so a caller
// forcing a protocol never silently falls through to selection.
func (r *Registry) Get(id string) (Protocol, error) {
	p, ok := r.byID[id]
	if !ok {
		return nil, fmt.Errorf("protocol %q: %w", id, pkgerrors.ErrUnknownProtocol)
	}
	return p, nil
}

// Select picks the highest-scoring protocol for gt. Pure: the same Ground
// Truth always selects the same protocol. All-zero scores fall back to the
// conceptual-theory default so selection never fails.
func (r *Registry) Select(gt groundtruth.GroundTruth) Protocol {
	var best Protocol
	bestScore := 0.0
	for _, p := range r.ordered {
		score := p.DetectApplicability(gt)
		if score > bestScore {
			best = p
			bestScore = score
		}
	}
	if best == nil {
		if p, ok := r.byID[ConceptualTheoryID]; ok {
			return p
		}
		if len(r.ordered) > 0 {
			return r.ordered[0]
		}
	}
	return best
}

// PooledRules merges every registered protocol's extraction rules so Pass 1
// stays protocol-agnostic when no protocol is forced.
func (r *Registry) PooledRules() groundtruth.RuleSet {
	sets := make([]groundtruth.RuleSet, 0, len(r.ordered)+1)
	sets = append(sets, groundtruth.BaseRules())
	for _, p := range r.ordered {
		sets = append(sets, p.ExtractionRules())
	}
	return groundtruth.Merge(sets...)
}

// IDs lists registered protocol ids in registration order.
func (r *Registry) IDs() []string {
	out := make([]string, 0, len(r.ordered))
	for _, p := range r.ordered {
		out = append(out, p.ID())
	}
	return out
}
