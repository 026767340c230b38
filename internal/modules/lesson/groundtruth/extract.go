package groundtruth

import (
	"regexp"
	"sort"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	minConceptLen     = 3
	maxConceptLen     = 120
	minInstructionLen = 3
	maxInstructionLen = 300
	minWarningLen     = 3
	maxWarningLen     = 300
	minPairSideLen    = 2
	maxPairSideLen    = 300
	maxQuoteLen       = 120
)

// Extract runs the pattern vocabulary across raw text and builds an
// immutable Ground Truth. It is a pure function of its inputs: identical
// text and rule set always produce an identical record (modulo the
// extraction timestamp, which Canonical() excludes). Malformed input never
// fails extraction; absent matches simply yield empty collections.
func Extract(moduleID, rawText string, rules RuleSet) GroundTruth {
	gt := GroundTruth{
		ModuleID:    moduleID,
		SourceHash:  HashText(rawText),
		ExtractedAt: time.Now().UTC(),
	}

	gt.Title = extractTitle(rawText, rules.Title)
	gt.KeyConcepts = extractKeyConcepts(rawText, rules.KeyConcept)
	gt.Procedures = extractProcedures(rawText, rules.Procedure)
	gt.Warnings = extractWarnings(rawText, rules.Warning)
	gt.CorrectIncorrectPairs = extractPairs(rawText, rules.Pair)
	gt.MediaAssets = extractMedia(rawText, rules.Media)

	gt.PlainText = PlainText(rawText)
	gt.WordCount = CountWords(gt.PlainText)
	gt.HasStepByStep = len(gt.Procedures) >= 3
	gt.HasPairs = len(gt.CorrectIncorrectPairs) >= 2

	return gt
}

var (
	htmlTagRE = regexp.MustCompile(`<[^>]+>`)
	spaceRE   = regexp.MustCompile(`\s+`)
)

// PlainText strips markup noise and collapses whitespace. It is also the
// text the hallucination vocabulary is built from.
func PlainText(raw string) string {
	s := htmlTagRE.ReplaceAllString(raw, " ")
	s = strings.NewReplacer("*", " ", "_", " ", "`", " ", "#", " ").Replace(s)
	s = spaceRE.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

func normalizeMatch(s string) string {
	s = htmlTagRE.ReplaceAllString(s, " ")
	s = strings.NewReplacer("*", "", "_", "", "`", "", "#", "").Replace(s)
	s = spaceRE.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

func quoteAt(raw string, start, end int) string {
	if start < 0 || end > len(raw) || start >= end {
		return ""
	}
	q := cutAtRune(raw[start:end], maxQuoteLen)
	return strings.TrimSpace(spaceRE.ReplaceAllString(q, " "))
}

func spanAt(raw string, start, end int) SourceSpan {
	return SourceSpan{StartOffset: start, EndOffset: end, SourceQuote: quoteAt(raw, start, end)}
}

type match struct {
	start, end int
	groups     []string
}

// allMatches collects every submatch of re across raw, in offset order.
func allMatches(raw string, re *regexp.Regexp) []match {
	idx := re.FindAllStringSubmatchIndex(raw, -1)
	out := make([]match, 0, len(idx))
	for _, m := range idx {
		groups := make([]string, 0, len(m)/2)
		for g := 0; g < len(m); g += 2 {
			if m[g] < 0 {
				groups = append(groups, "")
				continue
			}
			groups = append(groups, raw[m[g]:m[g+1]])
		}
		out = append(out, match{start: m[0], end: m[1], groups: groups})
	}
	return out
}

func extractTitle(raw string, rules []*regexp.Regexp) string {
	best := -1
	title := ""
	for _, re := range rules {
		for _, m := range allMatches(raw, re) {
			if len(m.groups) < 2 {
				continue
			}
			t := normalizeMatch(m.groups[1])
			if t == "" {
				continue
			}
			if best == -1 || m.start < best {
				best = m.start
				title = t
			}
		}
	}
	if title != "" {
		return clampLen(title, maxConceptLen)
	}
	// Fallback: first non-empty line.
	for _, line := range strings.Split(raw, "\n") {
		if t := normalizeMatch(line); t != "" {
			return clampLen(t, maxConceptLen)
		}
	}
	return ""
}

func clampLen(s string, max int) string {
	if len(s) > max {
		return strings.TrimSpace(cutAtRune(s, max))
	}
	return s
}

// cutAtRune truncates s to at most max bytes without splitting a rune.
func cutAtRune(s string, max int) string {
	if len(s) <= max {
		return s
	}
	for max > 0 && !utf8.RuneStart(s[max]) {
		max--
	}
	return s[:max]
}

func extractKeyConcepts(raw string, rules []*regexp.Regexp) []KeyConcept {
	out := make([]KeyConcept, 0)
	seen := map[string]bool{}
	hits := make([]match, 0)
	for _, re := range rules {
		hits = append(hits, allMatches(raw, re)...)
	}
	// First-seen order across the pooled rules means offset order.
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].start < hits[j].start })
	for _, m := range hits {
		if len(m.groups) < 2 {
			continue
		}
		text := normalizeMatch(m.groups[1])
		if len(text) < minConceptLen || len(text) > maxConceptLen {
			continue
		}
		key := strings.ToLower(text)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, KeyConcept{Text: text, Source: spanAt(raw, m.start, m.end)})
	}
	return out
}

func extractProcedures(raw string, rules []*regexp.Regexp) []ProcedureStep {
	out := make([]ProcedureStep, 0)
	seen := map[string]bool{}
	hits := make([]match, 0)
	for _, re := range rules {
		hits = append(hits, allMatches(raw, re)...)
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].start < hits[j].start })
	for _, m := range hits {
		if len(m.groups) < 3 {
			continue
		}
		num := parseSmallInt(m.groups[1])
		if num <= 0 {
			continue
		}
		instruction := normalizeMatch(m.groups[2])
		if len(instruction) < minInstructionLen || len(instruction) > maxInstructionLen {
			continue
		}
		key := strings.ToLower(instruction)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, ProcedureStep{
			StepNumber:  num,
			Instruction: instruction,
			Source:      spanAt(raw, m.start, m.end),
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].StepNumber < out[j].StepNumber })
	return out
}

func parseSmallInt(s string) int {
	n := 0
	s = strings.TrimSpace(s)
	if s == "" || len(s) > 2 {
		return 0
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0
		}
		n = n*10 + int(r-'0')
	}
	return n
}

func extractWarnings(raw string, rules []WarningRule) []Warning {
	out := make([]Warning, 0)
	seen := map[string]bool{}
	type hit struct {
		m match
		t WarningType
	}
	hits := make([]hit, 0)
	for _, r := range rules {
		for _, m := range allMatches(raw, r.Pattern) {
			hits = append(hits, hit{m: m, t: r.Type})
		}
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].m.start < hits[j].m.start })
	for _, h := range hits {
		if len(h.m.groups) < 2 {
			continue
		}
		text := normalizeMatch(h.m.groups[1])
		if len(text) < minWarningLen || len(text) > maxWarningLen {
			continue
		}
		key := strings.ToLower(text)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, Warning{Text: text, Type: h.t, Source: spanAt(raw, h.m.start, h.m.end)})
	}
	return out
}

func extractPairs(raw string, rules []PairRule) []CorrectIncorrectPair {
	out := make([]CorrectIncorrectPair, 0)
	seen := map[string]bool{}
	type hit struct {
		m          match
		wrongFirst bool
	}
	hits := make([]hit, 0)
	for _, r := range rules {
		for _, m := range allMatches(raw, r.Pattern) {
			hits = append(hits, hit{m: m, wrongFirst: r.WrongFirst})
		}
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].m.start < hits[j].m.start })
	// Earlier accepted spans win: a hit whose lines already belong to an
	// accepted pair is a cross-match between two adjacent blocks, not a pair
	// the source makes.
	type span struct{ start, end int }
	accepted := make([]span, 0)
	overlaps := func(start, end int) bool {
		for _, a := range accepted {
			if start < a.end && a.start < end {
				return true
			}
		}
		return false
	}
	for _, h := range hits {
		if len(h.m.groups) < 3 {
			continue
		}
		if overlaps(h.m.start, h.m.end) {
			continue
		}
		first := normalizeMatch(h.m.groups[1])
		second := normalizeMatch(h.m.groups[2])
		wrong, right := first, second
		if !h.wrongFirst {
			wrong, right = second, first
		}
		if len(wrong) < minPairSideLen || len(wrong) > maxPairSideLen {
			continue
		}
		if len(right) < minPairSideLen || len(right) > maxPairSideLen {
			continue
		}
		accepted = append(accepted, span{start: h.m.start, end: h.m.end})
		explanation := ""
		if len(h.m.groups) > 3 {
			explanation = normalizeMatch(h.m.groups[3])
		}
		// Order-insensitive key so a wrong-first and a right-first phrasing of
		// the same pair never both survive.
		key := strings.ToLower(wrong) + "\x00" + strings.ToLower(right)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, CorrectIncorrectPair{
			Wrong:       wrong,
			Right:       right,
			Explanation: explanation,
			Source:      spanAt(raw, h.m.start, h.m.end),
		})
	}
	return out
}

func inferMediaType(url string) MediaType {
	u := strings.ToLower(url)
	switch {
	case strings.HasSuffix(u, ".gif") || strings.HasSuffix(u, ".webp"):
		return MediaAnimation
	case strings.HasSuffix(u, ".mp4") || strings.HasSuffix(u, ".webm") || strings.HasSuffix(u, ".mov"):
		return MediaVideo
	case strings.Contains(u, "youtube.com") || strings.Contains(u, "youtu.be") || strings.Contains(u, "vimeo.com"):
		return MediaVideo
	case strings.HasSuffix(u, ".png") || strings.HasSuffix(u, ".jpg") || strings.HasSuffix(u, ".jpeg") || strings.HasSuffix(u, ".svg"):
		return MediaImage
	default:
		return MediaEmbed
	}
}

func extractMedia(raw string, rules []MediaRule) []MediaAsset {
	out := make([]MediaAsset, 0)
	seen := map[string]bool{}
	type hit struct {
		m match
		r MediaRule
	}
	hits := make([]hit, 0)
	for _, r := range rules {
		for _, m := range allMatches(raw, r.Pattern) {
			hits = append(hits, hit{m: m, r: r})
		}
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].m.start < hits[j].m.start })
	for _, h := range hits {
		if h.r.URLGroup <= 0 || h.r.URLGroup >= len(h.m.groups) {
			continue
		}
		url := strings.TrimSpace(h.m.groups[h.r.URLGroup])
		if url == "" {
			continue
		}
		key := strings.ToLower(url)
		if seen[key] {
			continue
		}
		seen[key] = true
		caption := ""
		if h.r.CaptionGroup > 0 && h.r.CaptionGroup < len(h.m.groups) {
			caption = normalizeMatch(h.m.groups[h.r.CaptionGroup])
		}
		mt := h.r.Type
		if mt == "" {
			mt = inferMediaType(url)
		}
		out = append(out, MediaAsset{
			Type:    mt,
			URL:     url,
			Caption: caption,
			Source:  spanAt(raw, h.m.start, h.m.end),
		})
	}
	return out
}
