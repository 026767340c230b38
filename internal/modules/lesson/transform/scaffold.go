package transform

import (
	"strconv"

	"github.com/docentkit/docentkit-backend/internal/modules/lesson/groundtruth"
	"github.com/docentkit/docentkit-backend/internal/modules/lesson/kit"
)

// Scaffold builds a deterministic kit from the first few key concepts, for
// offline and debugging use. It is only produced when the caller explicitly
// opts out of generation, and it is always flagged for review.
func Scaffold(gt groundtruth.GroundTruth, protocolID string, alloc kit.TimeAllocation) kit.Kit {
	concepts := make([]string, 0, 3)
	for i, c := range gt.KeyConcepts {
		if i >= 3 {
			break
		}
		concepts = append(concepts, c.Text)
	}

	k := kit.Kit{
		ModuleID: gt.ModuleID,
		Title:    gt.Title,
		QuickStart: kit.QuickStart{
			OneLiner:       "Les over " + gt.Title,
			KeyConcepts:    concepts,
			Check:          "Kunnen leerlingen de kernbegrippen benoemen?",
			TimeAllocation: alloc,
		},
		StudentHandout: kit.StudentHandout{
			Title:     gt.Title,
			Exercises: []string{"Noteer de kernbegrippen van deze les in eigen woorden."},
		},
		ProtocolUsed:    protocolID,
		NeedsReview:     true,
		ReviewReasons:   []string{"generation skipped: scaffold kit built from extracted structure only"},
		GroundTruthHash: gt.SourceHash,
	}

	k.TeacherScript = append(k.TeacherScript, kit.ScriptItem{
		Time: "0", Phase: kit.PhaseStart, Action: kit.ActionOpen,
		Content: "Introduceer het onderwerp: " + gt.Title,
	})
	coreStart := alloc.Start
	for i := range concepts {
		ref := kit.SourceRef{Collection: groundtruth.CollectionKeyConcepts, Index: i}
		k.TeacherScript = append(k.TeacherScript, kit.ScriptItem{
			Time:       strconv.Itoa(coreStart + i*5),
			Phase:      kit.PhaseCore,
			Action:     kit.ActionIntroduce,
			Content:    "Behandel het begrip: " + concepts[i],
			SourceRef:  &ref,
			IsGrounded: true,
		})
	}
	k.TeacherScript = append(k.TeacherScript, kit.ScriptItem{
		Time:    strconv.Itoa(alloc.Start + alloc.Core),
		Phase:   kit.PhaseClosing,
		Action:  kit.ActionSummary,
		Content: "Vat de behandelde begrippen samen.",
	})
	return k
}
