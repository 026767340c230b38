package protocols

import (
	"fmt"
	"regexp"
	"sort"

	"github.com/docentkit/docentkit-backend/internal/modules/lesson/groundtruth"
	"github.com/docentkit/docentkit-backend/internal/modules/lesson/kit"
)

// proceduralSkill targets hands-on step-by-step content: every extracted
// procedure step must come back as a demo action, complete and in order.
type proceduralSkill struct {
	keywords []string
}

func NewProceduralSkill() Protocol {
	return &proceduralSkill{
		keywords: []string{
			"stap", "techniek", "handeling", "oefen", "uitvoer",
			"materiaal", "instrument", "demonstr",
		},
	}
}

func (p *proceduralSkill) ID() string { return ProceduralSkillID }

func (p *proceduralSkill) ExtractionRules() groundtruth.RuleSet {
	return groundtruth.RuleSet{
		Procedure: []*regexp.Regexp{
			regexp.MustCompile(`(?mi)^[ \t]*(?:handeling|onderdeel)[ \t]*(\d{1,2})[ \t]*[:.)\-][ \t]*(.+)$`),
		},
		Warning: []groundtruth.WarningRule{
			{Pattern: regexp.MustCompile(`(?mi)^[ \t]*(?:vergeet niet|denk eraan)[ \t]*[:!][ \t]*(.+)$`), Type: groundtruth.WarningAttention},
		},
	}
}

func (p *proceduralSkill) DetectApplicability(gt groundtruth.GroundTruth) float64 {
	switch {
	case len(gt.Procedures) >= 3:
		score := 0.75
		if len(gt.Warnings) >= 1 {
			score += 0.2
		}
		score += keywordBonus(gt, p.keywords, 0.01, 0.05)
		return clampScore(score)
	case len(gt.Procedures) >= 1:
		return 0.3
	default:
		return 0
	}
}

func (p *proceduralSkill) BuildPrompt(gt groundtruth.GroundTruth, alloc kit.TimeAllocation) (string, string) {
	system := systemPreamble + `

Protocol: vaardigheid aanleren.
- Maak voor ELKE procedurestap precies een script-item met "action": "demo", in de volgorde van het bronmateriaal, met sourceRef "procedures[i]".
- Verwerk elke waarschuwing als een "check"-item met sourceRef "warnings[i]", direct na de stap waar die bij hoort.
- Sluit af met een oefenopdracht ("exercise") waarin leerlingen de stappen zelf doorlopen.`

	user := serializeGroundTruth(gt) + "\n" + kitShapeInstructions(alloc) + fmt.Sprintf(`

Eisen:
- %d demo-items, een per procedurestap, oplopend.
- Alle %d waarschuwingen verwerkt.
- quickStart.keyConcepts gevuld met de kernbegrippen.`, len(gt.Procedures), len(gt.Warnings))
	return system, user
}

func (p *proceduralSkill) PostProcess(k kit.Kit, gt groundtruth.GroundTruth) kit.Kit {
	out := k.Clone()
	out.TeacherScript = dedupScript(out.TeacherScript)
	out.TeacherScript = sortDemosBySource(out.TeacherScript, gt)
	out.TeacherScript = recomputeScriptTimes(out.TeacherScript, out.QuickStart.TimeAllocation)
	out.SlideAssets = backfillMediaSlides(out.SlideAssets, gt)
	out.DiscussionQuestions = dedupQuestions(synthesizeDiscussionQuestions(out, gt, 2))
	return out
}

// sortDemosBySource reorders demo items so their procedure references come
// back ascending, leaving every other item where it stands.
func sortDemosBySource(items []kit.ScriptItem, gt groundtruth.GroundTruth) []kit.ScriptItem {
	out := append([]kit.ScriptItem(nil), items...)
	var demoPos []int
	var demos []kit.ScriptItem
	for i, it := range out {
		if it.Action == kit.ActionDemo && it.SourceRef != nil &&
			it.SourceRef.Collection == groundtruth.CollectionProcedures && it.SourceRef.InRange(gt) {
			demoPos = append(demoPos, i)
			demos = append(demos, it)
		}
	}
	sort.SliceStable(demos, func(a, b int) bool {
		return demos[a].SourceRef.Index < demos[b].SourceRef.Index
	})
	for j, pos := range demoPos {
		out[pos] = demos[j]
	}
	return out
}

func (p *proceduralSkill) Validate(k kit.Kit, gt groundtruth.GroundTruth) []kit.Finding {
	var findings []kit.Finding

	demoIdxs := scriptRefs(k, gt, groundtruth.CollectionProcedures, kit.ActionDemo)
	have := map[int]bool{}
	for _, i := range demoIdxs {
		have[i] = true
	}
	for i := range gt.Procedures {
		if !have[i] {
			findings = append(findings, kit.Finding{
				Severity: kit.SeverityError,
				Code:     "missing-procedure",
				Message:  fmt.Sprintf("procedure step %d has no demo action", gt.Procedures[i].StepNumber),
			})
		}
	}
	for j := 1; j < len(demoIdxs); j++ {
		if demoIdxs[j] < demoIdxs[j-1] {
			findings = append(findings, kit.Finding{
				Severity: kit.SeverityError,
				Code:     "procedure-order",
				Message:  "demo actions are not in source step order",
			})
			break
		}
	}

	usedWarnings := map[int]bool{}
	for _, i := range scriptRefs(k, gt, groundtruth.CollectionWarnings, "") {
		usedWarnings[i] = true
	}
	for i, w := range gt.Warnings {
		if !usedWarnings[i] {
			findings = append(findings, kit.Finding{
				Severity: kit.SeverityWarning,
				Code:     "warning-unused",
				Message:  fmt.Sprintf("warning (%s) %q not referenced in the script", w.Type, w.Text),
			})
		}
	}
	return findings
}

func (p *proceduralSkill) CoverageRequirements() CoverageRequirements {
	return CoverageRequirements{RequireAllProcedures: true}
}
