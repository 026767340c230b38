package groundtruth

// Minimum substance a module needs before generation is worth attempting.
const (
	MinWordCount   = 100
	MinKeyConcepts = 2
)

// Report is the sufficiency verdict for one extracted Ground Truth. When
// Valid is false the pipeline halts before any generation call is made.
type Report struct {
	Valid            bool     `json:"valid"`
	Reasons          []string `json:"reasons,omitempty"`
	ProposedProtocol string   `json:"proposed_protocol"`
}

// ValidateGroundTruth checks that extraction found enough substance to teach
// from and proposes a content protocol from the structural signals alone.
// The proposal is advisory; registry scoring makes the final call unless the
// operator forces a protocol.
func ValidateGroundTruth(gt GroundTruth) Report {
	rep := Report{Valid: true}

	if gt.WordCount < MinWordCount {
		rep.Valid = false
		rep.Reasons = append(rep.Reasons, "source text too short to teach from")
	}
	if len(gt.KeyConcepts) < MinKeyConcepts {
		rep.Valid = false
		rep.Reasons = append(rep.Reasons, "too few key concepts extracted")
	}

	switch {
	case len(gt.Procedures) >= 3:
		rep.ProposedProtocol = "procedural-skill"
	case len(gt.CorrectIncorrectPairs) >= 2:
		rep.ProposedProtocol = "interpersonal-communication"
	default:
		rep.ProposedProtocol = "conceptual-theory"
	}

	return rep
}
