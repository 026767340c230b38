package protocols

import (
	"fmt"
	"strings"

	"github.com/docentkit/docentkit-backend/internal/modules/lesson/groundtruth"
	"github.com/docentkit/docentkit-backend/internal/modules/lesson/kit"
)

// systemPreamble carries the pedagogical rules every protocol shares. The
// indices in the user prompt let the model emit matching sourceRef values.
const systemPreamble = `Je bent een ervaren didacticus die lesmateriaal omzet naar een kant-en-klaar docentenpakket.

Harde regels:
- Gebruik UITSLUITEND inhoud uit het aangeleverde bronmateriaal. Verzin niets.
- Elke inhoudelijke actie die op het bronmateriaal steunt krijgt "isGrounded": true en een "sourceRef" naar het bronitem, bijvoorbeeld "procedures[2]".
- Tijden zijn hele minuten vanaf de lesstart, als string ("0", "5", "12").
- Fasen komen in volgorde: start, core, closing.
- Antwoord met exact een JSON-object, zonder toelichting en zonder code fences.`

// serializeGroundTruth renders the extracted collections with zero-based
// indices so generated sourceRef values line up with real items.
func serializeGroundTruth(gt groundtruth.GroundTruth) string {
	var b strings.Builder
	fmt.Fprintf(&b, "TITEL: %s\n", gt.Title)

	if len(gt.KeyConcepts) > 0 {
		b.WriteString("\nKERNBEGRIPPEN (keyConcepts):\n")
		for i, c := range gt.KeyConcepts {
			fmt.Fprintf(&b, "[%d] %s\n", i, c.Text)
		}
	}
	if len(gt.Procedures) > 0 {
		b.WriteString("\nPROCEDURESTAPPEN (procedures):\n")
		for i, p := range gt.Procedures {
			fmt.Fprintf(&b, "[%d] stap %d: %s\n", i, p.StepNumber, p.Instruction)
		}
	}
	if len(gt.Warnings) > 0 {
		b.WriteString("\nWAARSCHUWINGEN (warnings):\n")
		for i, w := range gt.Warnings {
			fmt.Fprintf(&b, "[%d] (%s) %s\n", i, w.Type, w.Text)
		}
	}
	if len(gt.CorrectIncorrectPairs) > 0 {
		b.WriteString("\nFOUT/GOED-PAREN (correctIncorrectPairs):\n")
		for i, p := range gt.CorrectIncorrectPairs {
			fmt.Fprintf(&b, "[%d] fout: %s | goed: %s", i, p.Wrong, p.Right)
			if p.Explanation != "" {
				fmt.Fprintf(&b, " | uitleg: %s", p.Explanation)
			}
			b.WriteString("\n")
		}
	}
	if len(gt.MediaAssets) > 0 {
		b.WriteString("\nMEDIA (mediaAssets):\n")
		for i, m := range gt.MediaAssets {
			fmt.Fprintf(&b, "[%d] (%s) %s", i, m.Type, m.URL)
			if m.Caption != "" {
				fmt.Fprintf(&b, " - %s", m.Caption)
			}
			b.WriteString("\n")
		}
	}
	return b.String()
}

// kitShapeInstructions describes the expected JSON shape once, shared by the
// three prompt builders.
func kitShapeInstructions(alloc kit.TimeAllocation) string {
	return fmt.Sprintf(`Lever dit JSON-object:
{
  "title": "...",
  "quickStart": {"oneLiner": "...", "keyConcepts": ["..."], "check": "...", "timeAllocation": {"start": %d, "core": %d, "closing": %d}},
  "teacherScript": [{"time": "0", "phase": "start", "action": "open", "content": "...", "sourceRef": "keyConcepts[0]", "isGrounded": true, "expectedAnswers": ["..."], "ifNoAnswer": "...", "slide": 1}],
  "discussionQuestions": [{"question": "...", "sourceRef": "correctIncorrectPairs[0]"}],
  "groupWork": {"title": "...", "durationMinutes": 15, "groupSize": 4, "roles": ["..."], "materials": ["..."], "steps": ["..."], "rubric": "..."},
  "studentHandout": {"title": "...", "exercises": ["..."]},
  "slideAssets": [{"slide": 1, "title": "...", "bullets": ["..."], "imageUrl": "", "animationUrl": ""}]
}
De les duurt %d minuten: start %d, kern %d, afsluiting %d.`,
		alloc.Start, alloc.Core, alloc.Closing,
		alloc.Total(), alloc.Start, alloc.Core, alloc.Closing)
}

// keywordBonus adds score for term density in the plain text, capped at max.
func keywordBonus(gt groundtruth.GroundTruth, terms []string, perHit, max float64) float64 {
	text := strings.ToLower(gt.PlainText)
	bonus := 0.0
	for _, term := range terms {
		if strings.Contains(text, term) {
			bonus += perHit
		}
	}
	if bonus > max {
		return max
	}
	return bonus
}

func clampScore(s float64) float64 {
	if s < 0 {
		return 0
	}
	if s > 1 {
		return 1
	}
	return s
}
