package kit

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/docentkit/docentkit-backend/internal/modules/lesson/groundtruth"
	pkgerrors "github.com/docentkit/docentkit-backend/internal/pkg/errors"
)

func TestParseSourceRef(t *testing.T) {
	ref, err := ParseSourceRef("procedures[2]")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if ref.Collection != groundtruth.CollectionProcedures || ref.Index != 2 {
		t.Fatalf("ref = %+v", ref)
	}
	if ref.String() != "procedures[2]" {
		t.Fatalf("round trip = %q", ref.String())
	}

	for _, bad := range []string{"", "procedures", "procedures[-1]", "bogus[0]", "procedures[x]", "[3]"} {
		if _, err := ParseSourceRef(bad); !errors.Is(err, pkgerrors.ErrInvalidArgument) {
			t.Fatalf("ParseSourceRef(%q) err = %v, want ErrInvalidArgument", bad, err)
		}
	}
}

func TestSourceRefJSON(t *testing.T) {
	item := ScriptItem{
		Time: "5", Phase: PhaseCore, Action: ActionDemo, Content: "x",
		SourceRef:  &SourceRef{Collection: groundtruth.CollectionWarnings, Index: 1},
		IsGrounded: true,
	}
	data, err := json.Marshal(item)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var back ScriptItem
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if back.SourceRef == nil || back.SourceRef.String() != "warnings[1]" {
		t.Fatalf("round trip ref = %v", back.SourceRef)
	}
}

func TestSourceRefInRange(t *testing.T) {
	gt := groundtruth.GroundTruth{
		Procedures: []groundtruth.ProcedureStep{{StepNumber: 1}, {StepNumber: 2}},
	}
	in := SourceRef{Collection: groundtruth.CollectionProcedures, Index: 1}
	out := SourceRef{Collection: groundtruth.CollectionProcedures, Index: 2}
	empty := SourceRef{Collection: groundtruth.CollectionMedia, Index: 0}
	if !in.InRange(gt) {
		t.Fatalf("index 1 of 2 should be in range")
	}
	if out.InRange(gt) || empty.InRange(gt) {
		t.Fatalf("out-of-range refs must not resolve")
	}
}
