package groundtruth

import (
	"bytes"
	"strings"
	"testing"
	"unicode/utf8"
)

const sampleText = `# Handen wassen in de zorg

**Hygiëne** is de basis van veilig werken. **Desinfectie** voorkomt besmetting.

Stap 2: Breng zeep aan op beide handen.
Stap 1: Maak de handen nat met lauw water.
Stap 3: Wrijf de handen minstens twintig seconden over elkaar.
Stap 3: Wrijf de handen minstens twintig seconden over elkaar.

Let op: gebruik altijd schoon stromend water.
Tip: zing een liedje om de tijd te meten.

Fout: handen drogen aan de werkkleding.
Goed: handen drogen met een papieren doekje.

![wasinstructie](https://example.org/wassen.png)
Video: https://example.org/wassen.mp4
`

func TestExtractDeterminism(t *testing.T) {
	rules := BaseRules()
	a := Extract("mod-1", sampleText, rules)
	b := Extract("mod-1", sampleText, rules)
	if !bytes.Equal(a.Canonical(), b.Canonical()) {
		t.Fatalf("two extractions of identical input differ")
	}
	if a.SourceHash != HashText(sampleText) {
		t.Fatalf("source hash mismatch")
	}
	if HashText(sampleText) == HashText(sampleText+" ") {
		t.Fatalf("hash must change when input changes")
	}
}

func TestExtractCollections(t *testing.T) {
	gt := Extract("mod-1", sampleText, BaseRules())

	if gt.Title != "Handen wassen in de zorg" {
		t.Fatalf("title = %q", gt.Title)
	}

	if len(gt.KeyConcepts) != 2 {
		t.Fatalf("key concepts = %d, want 2", len(gt.KeyConcepts))
	}
	if gt.KeyConcepts[0].Text != "Hygiëne" {
		t.Fatalf("first concept = %q", gt.KeyConcepts[0].Text)
	}

	if len(gt.Procedures) != 3 {
		t.Fatalf("procedures = %d, want 3 (duplicate step dropped)", len(gt.Procedures))
	}
	for i, p := range gt.Procedures {
		if p.StepNumber != i+1 {
			t.Fatalf("procedures not sorted by step number: %v", gt.Procedures)
		}
	}
	if !gt.HasStepByStep {
		t.Fatalf("HasStepByStep should be true with 3 steps")
	}

	if len(gt.Warnings) != 2 {
		t.Fatalf("warnings = %d, want 2", len(gt.Warnings))
	}
	if gt.Warnings[0].Type != WarningCaution || gt.Warnings[1].Type != WarningTip {
		t.Fatalf("warning types = %v %v", gt.Warnings[0].Type, gt.Warnings[1].Type)
	}

	if len(gt.CorrectIncorrectPairs) != 1 {
		t.Fatalf("pairs = %d, want 1", len(gt.CorrectIncorrectPairs))
	}
	pair := gt.CorrectIncorrectPairs[0]
	if pair.Wrong != "handen drogen aan de werkkleding." {
		t.Fatalf("pair.Wrong = %q", pair.Wrong)
	}
	if gt.HasPairs {
		t.Fatalf("HasPairs requires 2 pairs, only 1 extracted")
	}

	if len(gt.MediaAssets) != 2 {
		t.Fatalf("media = %d, want 2", len(gt.MediaAssets))
	}
	if gt.MediaAssets[0].Type != MediaImage || gt.MediaAssets[1].Type != MediaVideo {
		t.Fatalf("media types = %v %v", gt.MediaAssets[0].Type, gt.MediaAssets[1].Type)
	}
}

func TestExtractSourceSpans(t *testing.T) {
	gt := Extract("mod-1", sampleText, BaseRules())
	for _, p := range gt.Procedures {
		if p.Source.StartOffset < 0 || p.Source.EndOffset <= p.Source.StartOffset {
			t.Fatalf("bad span %+v", p.Source)
		}
		if p.Source.SourceQuote == "" {
			t.Fatalf("empty source quote for step %d", p.StepNumber)
		}
	}
}

func TestExtractPairDedupOrderAgnostic(t *testing.T) {
	text := `Fout: te hard praten.
Goed: rustig praten.

Goed: rustig praten.
Fout: te hard praten.
`
	gt := Extract("mod-1", text, BaseRules())
	if len(gt.CorrectIncorrectPairs) != 1 {
		t.Fatalf("pairs = %d, want 1 after order-agnostic dedup", len(gt.CorrectIncorrectPairs))
	}
	if gt.CorrectIncorrectPairs[0].Wrong != "te hard praten." {
		t.Fatalf("wrong side = %q", gt.CorrectIncorrectPairs[0].Wrong)
	}
}

func TestExtractPairsAdjacentBlocksDoNotCrossMatch(t *testing.T) {
	text := `Fout: wegkijken tijdens het gesprek.
Goed: oogcontact houden.
Fout: te hard praten.
Goed: rustig praten.
`
	gt := Extract("mod-1", text, BaseRules())
	if len(gt.CorrectIncorrectPairs) != 2 {
		t.Fatalf("pairs = %d, want 2 from 2 adjacent blocks: %+v",
			len(gt.CorrectIncorrectPairs), gt.CorrectIncorrectPairs)
	}
	first := gt.CorrectIncorrectPairs[0]
	if first.Wrong != "wegkijken tijdens het gesprek." || first.Right != "oogcontact houden." {
		t.Fatalf("first pair = %+v", first)
	}
	second := gt.CorrectIncorrectPairs[1]
	if second.Wrong != "te hard praten." || second.Right != "rustig praten." {
		t.Fatalf("second pair = %+v", second)
	}
}

func TestTruncationKeepsRuneBoundary(t *testing.T) {
	long := strings.Repeat("a", maxConceptLen-1) + "ë einde"
	got := clampLen(long, maxConceptLen)
	if !utf8.ValidString(got) {
		t.Fatalf("clampLen produced invalid UTF-8: %q", got)
	}
	if got != strings.Repeat("a", maxConceptLen-1) {
		t.Fatalf("clampLen = %q", got)
	}

	raw := strings.Repeat("b", maxQuoteLen-1) + "ëxtra tekst"
	if q := quoteAt(raw, 0, len(raw)); !utf8.ValidString(q) {
		t.Fatalf("quoteAt produced invalid UTF-8: %q", q)
	}
}

func TestExtractMalformedInputNeverFails(t *testing.T) {
	for _, raw := range []string{"", "   \n\t", "<<<>>>", "Stap x: geen nummer"} {
		gt := Extract("mod-1", raw, BaseRules())
		if gt.TotalItems() != 0 {
			t.Fatalf("raw %q: expected empty collections, got %d items", raw, gt.TotalItems())
		}
	}
}

func TestCountWords(t *testing.T) {
	cases := []struct {
		in   string
		want int
	}{
		{"", 0},
		{"   ", 0},
		{"een twee drie", 3},
		{"hygiëne-regels zijn belangrijk", 3},
		{"stap 1: was je handen", 5},
	}
	for _, c := range cases {
		if got := CountWords(c.in); got != c.want {
			t.Fatalf("CountWords(%q) = %d, want %d", c.in, got, c.want)
		}
	}
}
