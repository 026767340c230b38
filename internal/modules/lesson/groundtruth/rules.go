package groundtruth

import "regexp"

// RuleSet is the pattern vocabulary one extraction pass runs with. Protocols
// contribute their own variants; when no protocol is forced the registry
// pools every registered set so extraction stays protocol-agnostic.
type RuleSet struct {
	// Title patterns; group 1 is the heading text. First match wins.
	Title []*regexp.Regexp
	// KeyConcept patterns; group 1 is the concept text.
	KeyConcept []*regexp.Regexp
	// Procedure patterns; group 1 is the declared step number, group 2 the
	// instruction text.
	Procedure []*regexp.Regexp
	Warning   []WarningRule
	Pair      []PairRule
	Media     []MediaRule
}

// WarningRule tags each warning pattern with the call-out type it signals.
// Group 1 is the warning text.
type WarningRule struct {
	Pattern *regexp.Regexp
	Type    WarningType
}

// PairRule matches a before/after contrast pair. Groups 1 and 2 are the two
// sides in source order; WrongFirst says which side group 1 is. An optional
// group 3 captures an explanation.
type PairRule struct {
	Pattern    *regexp.Regexp
	WrongFirst bool
}

// MediaRule matches an embedded media reference. URLGroup is required;
// CaptionGroup may be 0 (no caption). Type "" means infer from the URL.
type MediaRule struct {
	Pattern      *regexp.Regexp
	Type         MediaType
	URLGroup     int
	CaptionGroup int
}

// Merge pools several rule sets into one. Order is preserved so pooled
// extraction stays deterministic regardless of which protocol contributed a
// pattern; exact duplicate patterns are dropped.
func Merge(sets ...RuleSet) RuleSet {
	var out RuleSet
	seen := map[string]bool{}
	mark := func(kind, expr string) bool {
		k := kind + "\x00" + expr
		if seen[k] {
			return false
		}
		seen[k] = true
		return true
	}
	for _, s := range sets {
		for _, re := range s.Title {
			if re != nil && mark("title", re.String()) {
				out.Title = append(out.Title, re)
			}
		}
		for _, re := range s.KeyConcept {
			if re != nil && mark("concept", re.String()) {
				out.KeyConcept = append(out.KeyConcept, re)
			}
		}
		for _, re := range s.Procedure {
			if re != nil && mark("procedure", re.String()) {
				out.Procedure = append(out.Procedure, re)
			}
		}
		for _, r := range s.Warning {
			if r.Pattern != nil && mark("warning", string(r.Type)+":"+r.Pattern.String()) {
				out.Warning = append(out.Warning, r)
			}
		}
		for _, r := range s.Pair {
			if r.Pattern != nil && mark("pair", r.Pattern.String()) {
				out.Pair = append(out.Pair, r)
			}
		}
		for _, r := range s.Media {
			if r.Pattern != nil && mark("media", string(r.Type)+":"+r.Pattern.String()) {
				out.Media = append(out.Media, r)
			}
		}
	}
	return out
}

// BaseRules is the structural vocabulary shared by every protocol: headings,
// emphasis markup, numbered lists, call-outs, contrast pairs, and embedded
// media references (Dutch and English cue words).
func BaseRules() RuleSet {
	return RuleSet{
		Title: []*regexp.Regexp{
			regexp.MustCompile(`(?m)^#{1,3}[ \t]+(.+?)[ \t]*#*[ \t]*$`),
			regexp.MustCompile(`(?mi)^(?:titel|title)[ \t]*:[ \t]*(.+)$`),
		},
		KeyConcept: []*regexp.Regexp{
			regexp.MustCompile(`\*\*([^*\n]+?)\*\*`),
			regexp.MustCompile(`__([^_\n]+?)__`),
			regexp.MustCompile(`<(?:b|strong)>([^<\n]+?)</(?:b|strong)>`),
			regexp.MustCompile(`(?mi)^(?:begrip|definitie|kernbegrip|concept)[ \t]*:[ \t]*(.+)$`),
		},
		Procedure: []*regexp.Regexp{
			regexp.MustCompile(`(?mi)^[ \t]*(?:stap|step)[ \t]*(\d{1,2})[ \t]*[:.)\-][ \t]*(.+)$`),
			regexp.MustCompile(`(?m)^[ \t]*(\d{1,2})[.)][ \t]+(.+)$`),
		},
		Warning: []WarningRule{
			{Pattern: regexp.MustCompile(`(?mi)^[ \t]*(?:let op|pas op|opgelet|caution)[ \t]*[:!][ \t]*(.+)$`), Type: WarningCaution},
			{Pattern: regexp.MustCompile(`(?mi)^[ \t]*(?:waarschuwing|warning)[ \t]*[:!][ \t]*(.+)$`), Type: WarningCaution},
			{Pattern: regexp.MustCompile(`(?mi)^[ \t]*(?:tip|hint)[ \t]*:[ \t]*(.+)$`), Type: WarningTip},
			{Pattern: regexp.MustCompile(`(?mi)^[ \t]*(?:belangrijk|important)[ \t]*[:!][ \t]*(.+)$`), Type: WarningImportant},
			{Pattern: regexp.MustCompile(`(?mi)^[ \t]*(?:gevaar|danger)[ \t]*[:!][ \t]*(.+)$`), Type: WarningDanger},
			{Pattern: regexp.MustCompile(`(?mi)^[ \t]*(?:aandachtspunt|attentie|attention)[ \t]*[:!][ \t]*(.+)$`), Type: WarningAttention},
		},
		Pair: []PairRule{
			{
				Pattern:    regexp.MustCompile(`(?mi)^[ \t]*(?:fout|verkeerd|niet zo|wrong|incorrect)[ \t]*:[ \t]*(.+)\n[ \t]*(?:goed|juist|wel zo|right|correct)[ \t]*:[ \t]*(.+?)(?:\n[ \t]*(?:uitleg|waarom|explanation)[ \t]*:[ \t]*(.+))?$`),
				WrongFirst: true,
			},
			{
				Pattern:    regexp.MustCompile(`(?mi)^[ \t]*(?:goed|juist|right|correct)[ \t]*:[ \t]*(.+)\n[ \t]*(?:fout|verkeerd|wrong|incorrect)[ \t]*:[ \t]*(.+?)(?:\n[ \t]*(?:uitleg|waarom|explanation)[ \t]*:[ \t]*(.+))?$`),
				WrongFirst: false,
			},
		},
		Media: []MediaRule{
			{Pattern: regexp.MustCompile(`!\[([^\]]*)\]\((https?://[^\s)]+)\)`), CaptionGroup: 1, URLGroup: 2},
			{Pattern: regexp.MustCompile(`<img[^>]+src="(https?://[^"]+)"`), Type: MediaImage, URLGroup: 1},
			{Pattern: regexp.MustCompile(`(?mi)^[ \t]*video[ \t]*:[ \t]*(https?://\S+)$`), Type: MediaVideo, URLGroup: 1},
			{Pattern: regexp.MustCompile(`(?mi)^[ \t]*(?:animatie|animation)[ \t]*:[ \t]*(https?://\S+)$`), Type: MediaAnimation, URLGroup: 1},
			{Pattern: regexp.MustCompile(`(?mi)^[ \t]*embed[ \t]*:[ \t]*(https?://\S+)$`), Type: MediaEmbed, URLGroup: 1},
		},
	}
}
