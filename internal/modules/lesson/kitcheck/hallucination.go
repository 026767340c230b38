package kitcheck

import (
	"regexp"
	"sort"
	"strings"

	"github.com/docentkit/docentkit-backend/internal/modules/lesson/groundtruth"
	"github.com/docentkit/docentkit-backend/internal/modules/lesson/kit"
)

// DefaultJargonSuffixes signal technical-looking vocabulary, tuned to Dutch
// instructional material. Deployments override the set via config.
func DefaultJargonSuffixes() []string {
	return []string{
		"atie", "itis", "ose", "yse", "ologie", "ectomie",
		"isme", "emie", "icum", "theek", "ratuur",
	}
}

const minVocabWordLen = 4

var vocabWordRE = regexp.MustCompile(`[\p{L}]{2,}`)

// BuildVocabulary collects every significant term appearing anywhere in the
// Ground Truth: the plain text plus all extracted fields.
func BuildVocabulary(gt groundtruth.GroundTruth) map[string]bool {
	vocab := map[string]bool{}
	add := func(text string) {
		for _, w := range vocabWordRE.FindAllString(strings.ToLower(text), -1) {
			if len(w) >= minVocabWordLen {
				vocab[w] = true
			}
		}
	}
	add(gt.PlainText)
	add(gt.Title)
	for _, c := range gt.KeyConcepts {
		add(c.Text)
	}
	for _, p := range gt.Procedures {
		add(p.Instruction)
	}
	for _, w := range gt.Warnings {
		add(w.Text)
	}
	for _, p := range gt.CorrectIncorrectPairs {
		add(p.Wrong)
		add(p.Right)
		add(p.Explanation)
	}
	for _, m := range gt.MediaAssets {
		add(m.Caption)
	}
	return vocab
}

func looksTechnical(word string, suffixes []string) bool {
	if len(word) < 6 {
		return false
	}
	for _, suf := range suffixes {
		if strings.HasSuffix(word, suf) {
			return true
		}
	}
	return false
}

// substringOverlap reports whether the word shares a significant substring
// relationship with any vocabulary term, which exempts inflected or compound
// forms of real source vocabulary.
func substringOverlap(word string, vocab map[string]bool) bool {
	for v := range vocab {
		if len(v) >= minVocabWordLen && (strings.Contains(word, v) || strings.Contains(v, word)) {
			return true
		}
	}
	return false
}

// DetectHallucinations scans grounded script content for technical-looking
// terms absent from the Ground-Truth vocabulary. A heuristic for fabricated
// jargon, not a proof; paraphrase drift is out of its reach.
func DetectHallucinations(k kit.Kit, gt groundtruth.GroundTruth, suffixes []string) []string {
	if len(suffixes) == 0 {
		suffixes = DefaultJargonSuffixes()
	}
	vocab := BuildVocabulary(gt)

	hits := map[string]bool{}
	for _, it := range k.TeacherScript {
		if !it.IsGrounded {
			continue
		}
		for _, w := range vocabWordRE.FindAllString(strings.ToLower(it.Content), -1) {
			if !looksTechnical(w, suffixes) {
				continue
			}
			if vocab[w] || substringOverlap(w, vocab) {
				continue
			}
			hits[w] = true
		}
	}

	out := make([]string, 0, len(hits))
	for w := range hits {
		out = append(out, w)
	}
	sort.Strings(out)
	return out
}
