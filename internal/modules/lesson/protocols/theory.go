package protocols

import (
	"fmt"
	"regexp"

	"github.com/docentkit/docentkit-backend/internal/modules/lesson/groundtruth"
	"github.com/docentkit/docentkit-backend/internal/modules/lesson/kit"
)

// conceptualTheory is the default fallback protocol: concept-driven content
// with one introduce action per key concept and media surfaced on slides.
type conceptualTheory struct {
	keywords []string
}

func NewConceptualTheory() Protocol {
	return &conceptualTheory{
		keywords: []string{
			"begrip", "definitie", "theorie", "principe", "kenmerk",
			"functie", "betekenis", "verschil",
		},
	}
}

func (p *conceptualTheory) ID() string { return ConceptualTheoryID }

func (p *conceptualTheory) ExtractionRules() groundtruth.RuleSet {
	return groundtruth.RuleSet{
		KeyConcept: []*regexp.Regexp{
			regexp.MustCompile(`(?mi)^[ \t]*(?:kernwoord|term)[ \t]*:[ \t]*(.+)$`),
		},
	}
}

func (p *conceptualTheory) DetectApplicability(gt groundtruth.GroundTruth) float64 {
	if len(gt.KeyConcepts) == 0 {
		return 0
	}
	score := 0.3 + 0.05*float64(len(gt.KeyConcepts))
	if score > 0.6 {
		score = 0.6
	}
	return clampScore(score + keywordBonus(gt, p.keywords, 0.01, 0.05))
}

func (p *conceptualTheory) BuildPrompt(gt groundtruth.GroundTruth, alloc kit.TimeAllocation) (string, string) {
	system := systemPreamble + `

Protocol: begrippen en theorie.
- Introduceer elk kernbegrip met een eigen script-item ("action": "introduce") met sourceRef "keyConcepts[i]".
- Verwijs naar media waar beschikbaar via het bijbehorende slide-nummer.
- Wissel uitleg af met controlevragen ("question" / "check").`

	user := serializeGroundTruth(gt) + "\n" + kitShapeInstructions(alloc) + fmt.Sprintf(`

Eisen:
- Een introduce-item per kernbegrip (%d totaal).
- Media-items (%d) terug te vinden in slideAssets.`, len(gt.KeyConcepts), len(gt.MediaAssets))
	return system, user
}

func (p *conceptualTheory) PostProcess(k kit.Kit, gt groundtruth.GroundTruth) kit.Kit {
	out := k.Clone()
	out.TeacherScript = dedupScript(out.TeacherScript)
	out.TeacherScript = recomputeScriptTimes(out.TeacherScript, out.QuickStart.TimeAllocation)
	out.SlideAssets = backfillMediaSlides(out.SlideAssets, gt)
	out.DiscussionQuestions = dedupQuestions(synthesizeDiscussionQuestions(out, gt, 2))
	return out
}

func (p *conceptualTheory) Validate(k kit.Kit, gt groundtruth.GroundTruth) []kit.Finding {
	var findings []kit.Finding

	usedConcepts := map[int]bool{}
	for _, i := range scriptRefs(k, gt, groundtruth.CollectionKeyConcepts, "") {
		usedConcepts[i] = true
	}
	minUsed := minInt(3, len(gt.KeyConcepts))
	if len(usedConcepts) < minUsed {
		findings = append(findings, kit.Finding{
			Severity: kit.SeverityWarning,
			Code:     "concept-coverage",
			Message:  fmt.Sprintf("only %d of %d key concepts referenced (minimum %d)", len(usedConcepts), len(gt.KeyConcepts), minUsed),
		})
	}

	if len(gt.MediaAssets) > 0 {
		surfaced := map[string]bool{}
		for _, s := range k.SlideAssets {
			if s.ImageURL != "" {
				surfaced[s.ImageURL] = true
			}
			if s.AnimationURL != "" {
				surfaced[s.AnimationURL] = true
			}
		}
		for _, m := range gt.MediaAssets {
			if !surfaced[m.URL] {
				findings = append(findings, kit.Finding{
					Severity: kit.SeverityWarning,
					Code:     "media-unsurfaced",
					Message:  fmt.Sprintf("media asset %s not surfaced on any slide", m.URL),
				})
			}
		}
	}
	return findings
}

func (p *conceptualTheory) CoverageRequirements() CoverageRequirements {
	return CoverageRequirements{MinConceptsUsed: 3, RequireMediaOnSlides: true}
}
