package groundtruth

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"regexp"
	"strings"
	"time"
)

// SourceSpan is a provenance pointer into the original text plus a short
// literal excerpt for human auditing. Produced only by the extractor and
// never mutated afterwards.
type SourceSpan struct {
	StartOffset int    `json:"start_offset"`
	EndOffset   int    `json:"end_offset"`
	SourceQuote string `json:"source_quote"`
}

type KeyConcept struct {
	Text   string     `json:"text"`
	Source SourceSpan `json:"source"`
}

type ProcedureStep struct {
	StepNumber  int        `json:"step_number"`
	Instruction string     `json:"instruction"`
	Source      SourceSpan `json:"source"`
}

type WarningType string

const (
	WarningTip       WarningType = "tip"
	WarningCaution   WarningType = "caution"
	WarningImportant WarningType = "important"
	WarningDanger    WarningType = "danger"
	WarningAttention WarningType = "attention-point"
)

type Warning struct {
	Text   string      `json:"text"`
	Type   WarningType `json:"type"`
	Source SourceSpan  `json:"source"`
}

type CorrectIncorrectPair struct {
	Wrong       string     `json:"wrong"`
	Right       string     `json:"right"`
	Explanation string     `json:"explanation,omitempty"`
	Source      SourceSpan `json:"source"`
}

type MediaType string

const (
	MediaImage     MediaType = "image"
	MediaVideo     MediaType = "video"
	MediaAnimation MediaType = "animation"
	MediaEmbed     MediaType = "embed"
)

type MediaAsset struct {
	Type    MediaType  `json:"type"`
	URL     string     `json:"url"`
	Caption string     `json:"caption,omitempty"`
	Source  SourceSpan `json:"source"`
}

// Collection names the Ground-Truth collections a source reference can point
// into. The string values are the wire form used inside sourceRef strings.
type Collection string

const (
	CollectionKeyConcepts Collection = "keyConcepts"
	CollectionProcedures  Collection = "procedures"
	CollectionWarnings    Collection = "warnings"
	CollectionPairs       Collection = "correctIncorrectPairs"
	CollectionMedia       Collection = "mediaAssets"
)

// Collections lists every collection in a stable order.
func Collections() []Collection {
	return []Collection{
		CollectionKeyConcepts,
		CollectionProcedures,
		CollectionWarnings,
		CollectionPairs,
		CollectionMedia,
	}
}

// GroundTruth is the sole deterministic artifact of the extraction pass. It
// is immutable once built: any groundedness claim downstream is checked
// against it and nothing downstream writes to it. A source-text change
// supersedes it (new SourceHash) rather than updating it.
type GroundTruth struct {
	ModuleID    string    `json:"module_id"`
	SourceHash  string    `json:"source_hash"`
	ExtractedAt time.Time `json:"extracted_at"`

	Title string `json:"title"`

	KeyConcepts           []KeyConcept           `json:"key_concepts"`
	Procedures            []ProcedureStep        `json:"procedures"`
	Warnings              []Warning              `json:"warnings"`
	CorrectIncorrectPairs []CorrectIncorrectPair `json:"correct_incorrect_pairs"`
	MediaAssets           []MediaAsset           `json:"media_assets"`

	PlainText     string `json:"plain_text"`
	WordCount     int    `json:"word_count"`
	HasStepByStep bool   `json:"has_step_by_step"`
	HasPairs      bool   `json:"has_pairs"`
}

// CollectionLen returns the size of the named collection, or -1 for an
// unknown collection tag.
func (gt GroundTruth) CollectionLen(c Collection) int {
	switch c {
	case CollectionKeyConcepts:
		return len(gt.KeyConcepts)
	case CollectionProcedures:
		return len(gt.Procedures)
	case CollectionWarnings:
		return len(gt.Warnings)
	case CollectionPairs:
		return len(gt.CorrectIncorrectPairs)
	case CollectionMedia:
		return len(gt.MediaAssets)
	default:
		return -1
	}
}

// TotalItems counts extracted items across all collections. Used as the
// coverage-score denominator.
func (gt GroundTruth) TotalItems() int {
	total := 0
	for _, c := range Collections() {
		if n := gt.CollectionLen(c); n > 0 {
			total += n
		}
	}
	return total
}

// Canonical serializes everything except the extraction timestamp. Two
// extractions of the same text under the same rule set produce byte-identical
// canonical forms.
func (gt GroundTruth) Canonical() []byte {
	clone := gt
	clone.ExtractedAt = time.Time{}
	b, _ := json.Marshal(clone)
	return b
}

// HashText fingerprints raw source text for change detection.
func HashText(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

var wordRE = regexp.MustCompile(`[\p{L}\p{N}]+(?:['\-][\p{L}\p{N}]+)?`)

// CountWords counts word-like tokens; it tolerates accented and hyphenated
// words so Dutch source material is counted fairly.
func CountWords(s string) int {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	return len(wordRE.FindAllString(s, -1))
}
