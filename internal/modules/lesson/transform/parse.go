package transform

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/docentkit/docentkit-backend/internal/modules/lesson/kit"
)

// Wire shapes for model output. Source references arrive as strings and are
// parsed once here; a malformed reference drops to nil rather than failing
// the whole kit, and the validator flags the grounded-without-ref item.

type wireScriptItem struct {
	Time            string   `json:"time"`
	Phase           string   `json:"phase"`
	Action          string   `json:"action"`
	Content         string   `json:"content"`
	SourceRef       string   `json:"sourceRef,omitempty"`
	IsGrounded      bool     `json:"isGrounded"`
	ExpectedAnswers []string `json:"expectedAnswers,omitempty"`
	IfNoAnswer      string   `json:"ifNoAnswer,omitempty"`
	Slide           int      `json:"slide,omitempty"`
}

type wireQuestion struct {
	Question  string `json:"question"`
	SourceRef string `json:"sourceRef,omitempty"`
}

type wireKit struct {
	Title               string             `json:"title"`
	QuickStart          kit.QuickStart     `json:"quickStart"`
	TeacherScript       []wireScriptItem   `json:"teacherScript"`
	DiscussionQuestions []wireQuestion     `json:"discussionQuestions"`
	GroupWork           kit.GroupWork      `json:"groupWork"`
	StudentHandout      kit.StudentHandout `json:"studentHandout"`
	SlideAssets         []kit.SlideAsset   `json:"slideAssets"`
}

func refOrNil(s string) *kit.SourceRef {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	ref, err := kit.ParseSourceRef(s)
	if err != nil {
		return nil
	}
	return &ref
}

// parseKitJSON locates and decodes the single JSON object in raw model
// output, tolerating code fences and surrounding prose.
func parseKitJSON(raw string) (kit.Kit, error) {
	body := extractJSONObject(raw)
	if body == "" {
		return kit.Kit{}, fmt.Errorf("no JSON object in model output")
	}

	var w wireKit
	if err := json.Unmarshal([]byte(body), &w); err != nil {
		return kit.Kit{}, fmt.Errorf("decode kit: %w", err)
	}

	k := kit.Kit{
		Title:          w.Title,
		QuickStart:     w.QuickStart,
		GroupWork:      w.GroupWork,
		StudentHandout: w.StudentHandout,
		SlideAssets:    w.SlideAssets,
	}
	for _, it := range w.TeacherScript {
		k.TeacherScript = append(k.TeacherScript, kit.ScriptItem{
			Time:            strings.TrimSpace(it.Time),
			Phase:           kit.Phase(strings.TrimSpace(it.Phase)),
			Action:          kit.Action(strings.TrimSpace(it.Action)),
			Content:         it.Content,
			SourceRef:       refOrNil(it.SourceRef),
			IsGrounded:      it.IsGrounded,
			ExpectedAnswers: it.ExpectedAnswers,
			IfNoAnswer:      it.IfNoAnswer,
			Slide:           it.Slide,
		})
	}
	for _, q := range w.DiscussionQuestions {
		k.DiscussionQuestions = append(k.DiscussionQuestions, kit.DiscussionQuestion{
			Question:  q.Question,
			SourceRef: refOrNil(q.SourceRef),
		})
	}
	return k, nil
}

// extractJSONObject strips markdown fences and returns the outermost
// {...} span, or "" when none exists.
func extractJSONObject(raw string) string {
	s := strings.TrimSpace(raw)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		if i := strings.LastIndex(s, "```"); i >= 0 {
			s = s[:i]
		}
		s = strings.TrimSpace(s)
	}
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end <= start {
		return ""
	}
	return s[start : end+1]
}

// snippet truncates raw output for fail-loud diagnostics.
func snippet(raw string, max int) string {
	raw = strings.TrimSpace(raw)
	if len(raw) <= max {
		return raw
	}
	return raw[:max] + "..."
}
