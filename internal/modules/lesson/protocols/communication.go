package protocols

import (
	"fmt"
	"regexp"

	"github.com/docentkit/docentkit-backend/internal/modules/lesson/groundtruth"
	"github.com/docentkit/docentkit-backend/internal/modules/lesson/kit"
)

// interpersonalCommunication targets contrast-pair content: the lesson walks
// each fout/goed pair through a wrong, question, discuss, right sequence and
// ends in role play.
type interpersonalCommunication struct {
	keywords        []string
	minPairFraction float64
}

func NewInterpersonalCommunication() Protocol {
	return &interpersonalCommunication{
		keywords: []string{
			"gesprek", "communicat", "luister", "reactie", "empathie",
			"klant", "patient", "collega", "houding",
		},
		minPairFraction: 0.5,
	}
}

func (p *interpersonalCommunication) ID() string { return InterpersonalCommunicationID }

func (p *interpersonalCommunication) ExtractionRules() groundtruth.RuleSet {
	return groundtruth.RuleSet{
		Pair: []groundtruth.PairRule{
			{
				Pattern:    regexp.MustCompile(`(?mi)^[ \t]*(?:zeg niet|niet zeggen)[ \t]*:[ \t]*(.+)\n[ \t]*(?:zeg wel|wel zeggen)[ \t]*:[ \t]*(.+)$`),
				WrongFirst: true,
			},
		},
	}
}

func (p *interpersonalCommunication) DetectApplicability(gt groundtruth.GroundTruth) float64 {
	switch {
	case len(gt.CorrectIncorrectPairs) >= 2:
		return clampScore(0.85 + keywordBonus(gt, p.keywords, 0.01, 0.05))
	case len(gt.CorrectIncorrectPairs) == 1:
		return 0.3
	default:
		return 0
	}
}

func (p *interpersonalCommunication) BuildPrompt(gt groundtruth.GroundTruth, alloc kit.TimeAllocation) (string, string) {
	system := systemPreamble + `

Protocol: gespreksvaardigheid.
- Behandel elk fout/goed-paar in vier script-items: toon de foute variant ("demo"), stel de klas een vraag ("question"), bespreek ("check"), toon de goede variant ("demo"). Elk item krijgt sourceRef "correctIncorrectPairs[i]".
- Maak discussionQuestions die naar de paren verwijzen.
- groupWork is een rollenspel met rollen, stappen en een rubric.`

	user := serializeGroundTruth(gt) + "\n" + kitShapeInstructions(alloc) + fmt.Sprintf(`

Eisen:
- Alle %d fout/goed-paren komen aan bod.
- Minimaal %d discussievragen met sourceRef naar een paar.
- groupWork.roles is niet leeg.`, len(gt.CorrectIncorrectPairs), minInt(3, maxInt(1, len(gt.CorrectIncorrectPairs))))
	return system, user
}

func (p *interpersonalCommunication) PostProcess(k kit.Kit, gt groundtruth.GroundTruth) kit.Kit {
	out := k.Clone()
	out.TeacherScript = dedupScript(out.TeacherScript)
	out.TeacherScript = recomputeScriptTimes(out.TeacherScript, out.QuickStart.TimeAllocation)
	out.SlideAssets = backfillMediaSlides(out.SlideAssets, gt)
	out.DiscussionQuestions = dedupQuestions(synthesizeDiscussionQuestions(out, gt, minInt(3, maxInt(1, len(gt.CorrectIncorrectPairs)))))
	out.GroupWork = ensureRolePlay(out.GroupWork, gt, out.QuickStart.TimeAllocation.Core/2)
	return out
}

func (p *interpersonalCommunication) Validate(k kit.Kit, gt groundtruth.GroundTruth) []kit.Finding {
	var findings []kit.Finding

	usedPairs := map[int]bool{}
	for _, i := range scriptRefs(k, gt, groundtruth.CollectionPairs, "") {
		usedPairs[i] = true
	}
	for _, q := range k.DiscussionQuestions {
		if q.SourceRef != nil && q.SourceRef.Collection == groundtruth.CollectionPairs && q.SourceRef.InRange(gt) {
			usedPairs[q.SourceRef.Index] = true
		}
	}
	if total := len(gt.CorrectIncorrectPairs); total > 0 {
		frac := float64(len(usedPairs)) / float64(total)
		if frac < p.minPairFraction {
			findings = append(findings, kit.Finding{
				Severity: kit.SeverityWarning,
				Code:     "pair-coverage",
				Message:  fmt.Sprintf("only %d of %d contrast pairs used", len(usedPairs), total),
			})
		}
	}

	if len(k.GroupWork.Roles) == 0 || len(k.GroupWork.Steps) == 0 {
		findings = append(findings, kit.Finding{
			Severity: kit.SeverityWarning,
			Code:     "missing-role-play",
			Message:  "group work lacks role-play structure",
		})
	}
	if len(k.DiscussionQuestions) == 0 {
		findings = append(findings, kit.Finding{
			Severity: kit.SeverityWarning,
			Code:     "no-discussion-questions",
			Message:  "no discussion questions for contrast-pair content",
		})
	}
	return findings
}

func (p *interpersonalCommunication) CoverageRequirements() CoverageRequirements {
	return CoverageRequirements{MinPairFraction: p.minPairFraction, RequireRolePlay: true}
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
