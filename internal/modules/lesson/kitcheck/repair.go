package kitcheck

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/docentkit/docentkit-backend/internal/modules/lesson/groundtruth"
	"github.com/docentkit/docentkit-backend/internal/modules/lesson/kit"
)

// repair is the bounded rule-based pass over a kit with hard errors. It
// never re-invokes generation and it does not guarantee success; the caller
// re-inspects whether the schema error count actually decreased.
func repair(k kit.Kit, gt groundtruth.GroundTruth) kit.Kit {
	out := k.Clone()
	out = fillQuickStart(out, gt)
	out = synthesizeMinimalScript(out, gt)
	out = backfillSourceRefs(out, gt)
	return out
}

// fillQuickStart builds a missing quick-start section from the first few key
// concepts.
func fillQuickStart(k kit.Kit, gt groundtruth.GroundTruth) kit.Kit {
	if strings.TrimSpace(k.QuickStart.OneLiner) != "" {
		return k
	}
	out := k
	out.QuickStart.OneLiner = "Les over " + gt.Title
	if len(out.QuickStart.KeyConcepts) == 0 {
		for i, c := range gt.KeyConcepts {
			if i >= 3 {
				break
			}
			out.QuickStart.KeyConcepts = append(out.QuickStart.KeyConcepts, c.Text)
		}
	}
	if strings.TrimSpace(out.QuickStart.Check) == "" {
		out.QuickStart.Check = "Kunnen leerlingen de kernbegrippen benoemen?"
	}
	if out.QuickStart.TimeAllocation.Total() <= 0 {
		out.QuickStart.TimeAllocation = kit.TimeAllocation{Start: 10, Core: 35, Closing: 5}
	}
	return out
}

// synthesizeMinimalScript replaces an entirely empty script with a minimal
// open/introduce/summary sequence.
func synthesizeMinimalScript(k kit.Kit, gt groundtruth.GroundTruth) kit.Kit {
	if len(k.TeacherScript) > 0 {
		return k
	}
	out := k
	alloc := out.QuickStart.TimeAllocation
	if alloc.Total() <= 0 {
		alloc = kit.TimeAllocation{Start: 10, Core: 35, Closing: 5}
		out.QuickStart.TimeAllocation = alloc
	}

	out.TeacherScript = append(out.TeacherScript, kit.ScriptItem{
		Time: "0", Phase: kit.PhaseStart, Action: kit.ActionOpen,
		Content: "Introduceer het onderwerp: " + gt.Title,
	})
	introduce := kit.ScriptItem{
		Time: strconv.Itoa(alloc.Start), Phase: kit.PhaseCore, Action: kit.ActionIntroduce,
		Content: "Behandel de kern van " + gt.Title,
	}
	if len(gt.KeyConcepts) > 0 {
		ref := kit.SourceRef{Collection: groundtruth.CollectionKeyConcepts, Index: 0}
		introduce.Content = "Behandel het begrip: " + gt.KeyConcepts[0].Text
		introduce.SourceRef = &ref
		introduce.IsGrounded = true
	}
	out.TeacherScript = append(out.TeacherScript, introduce, kit.ScriptItem{
		Time:    strconv.Itoa(alloc.Start + alloc.Core),
		Phase:   kit.PhaseClosing,
		Action:  kit.ActionSummary,
		Content: "Vat de les samen.",
	})
	return out
}

var repairWordRE = regexp.MustCompile(`[\p{L}]{4,}`)

// backfillSourceRefs fuzzy-matches grounded items lacking a reference
// against key-concept text by significant-word overlap.
func backfillSourceRefs(k kit.Kit, gt groundtruth.GroundTruth) kit.Kit {
	out := k
	for i, it := range out.TeacherScript {
		if !it.IsGrounded || it.SourceRef != nil {
			continue
		}
		if idx, ok := bestConceptMatch(it.Content, gt); ok {
			ref := kit.SourceRef{Collection: groundtruth.CollectionKeyConcepts, Index: idx}
			out.TeacherScript[i].SourceRef = &ref
		}
	}
	return out
}

func bestConceptMatch(content string, gt groundtruth.GroundTruth) (int, bool) {
	contentWords := map[string]bool{}
	for _, w := range repairWordRE.FindAllString(strings.ToLower(content), -1) {
		contentWords[w] = true
	}
	bestIdx, bestOverlap := -1, 0
	for i, c := range gt.KeyConcepts {
		overlap := 0
		for _, w := range repairWordRE.FindAllString(strings.ToLower(c.Text), -1) {
			if contentWords[w] {
				overlap++
			}
		}
		if overlap > bestOverlap {
			bestIdx, bestOverlap = i, overlap
		}
	}
	return bestIdx, bestIdx >= 0
}
