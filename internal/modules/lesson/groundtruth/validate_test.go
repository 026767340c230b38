package groundtruth

import (
	"strings"
	"testing"
)

func concepts(n int) []KeyConcept {
	out := make([]KeyConcept, n)
	for i := range out {
		out[i] = KeyConcept{Text: "begrip"}
	}
	return out
}

func steps(n int) []ProcedureStep {
	out := make([]ProcedureStep, n)
	for i := range out {
		out[i] = ProcedureStep{StepNumber: i + 1, Instruction: "doe iets"}
	}
	return out
}

func pairs(n int) []CorrectIncorrectPair {
	out := make([]CorrectIncorrectPair, n)
	for i := range out {
		out[i] = CorrectIncorrectPair{Wrong: "fout", Right: "goed"}
	}
	return out
}

func TestValidateGroundTruthTooThin(t *testing.T) {
	rep := ValidateGroundTruth(GroundTruth{WordCount: 40, KeyConcepts: concepts(1)})
	if rep.Valid {
		t.Fatalf("expected invalid for thin input")
	}
	if len(rep.Reasons) != 2 {
		t.Fatalf("reasons = %v, want word-count and concept reasons", rep.Reasons)
	}
	if !strings.Contains(rep.Reasons[0], "too short") {
		t.Fatalf("first reason should cite word count: %q", rep.Reasons[0])
	}
}

func TestValidateGroundTruthProtocolProposal(t *testing.T) {
	cases := []struct {
		name string
		gt   GroundTruth
		want string
	}{
		{"procedural", GroundTruth{WordCount: 200, KeyConcepts: concepts(3), Procedures: steps(3)}, "procedural-skill"},
		{"communication", GroundTruth{WordCount: 200, KeyConcepts: concepts(3), CorrectIncorrectPairs: pairs(2)}, "interpersonal-communication"},
		{"theory fallback", GroundTruth{WordCount: 200, KeyConcepts: concepts(3)}, "conceptual-theory"},
		{"procedural wins over pairs", GroundTruth{WordCount: 200, KeyConcepts: concepts(3), Procedures: steps(4), CorrectIncorrectPairs: pairs(2)}, "procedural-skill"},
	}
	for _, c := range cases {
		rep := ValidateGroundTruth(c.gt)
		if !rep.Valid {
			t.Fatalf("%s: unexpectedly invalid: %v", c.name, rep.Reasons)
		}
		if rep.ProposedProtocol != c.want {
			t.Fatalf("%s: proposed %q, want %q", c.name, rep.ProposedProtocol, c.want)
		}
	}
}
