package kitcheck

import (
	"fmt"
	"strings"

	"github.com/docentkit/docentkit-backend/internal/modules/lesson/kit"
)

// bannedPhrases are model meta-commentary fragments that have no place in a
// teacher script.
var bannedPhrases = []string{
	"als taalmodel",
	"als ai",
	"in het bronmateriaal",
	"volgens de aangeleverde tekst",
	"json",
	"sourceref",
	"as an ai",
	"based on the provided",
}

// metaPhraseCheck flags script content that leaks prompt or model
// meta-language into the lesson.
func metaPhraseCheck(k kit.Kit) []kit.Finding {
	var findings []kit.Finding
	for i, it := range k.TeacherScript {
		content := strings.ToLower(it.Content)
		for _, phrase := range bannedPhrases {
			if strings.Contains(content, phrase) {
				findings = append(findings, kit.Finding{
					Severity: kit.SeverityWarning,
					Code:     "meta-phrase",
					Message:  fmt.Sprintf("script item %d contains meta-language %q", i, phrase),
				})
				break
			}
		}
	}
	return findings
}
