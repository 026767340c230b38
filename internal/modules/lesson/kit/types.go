package kit

import (
	"encoding/json"
	"time"
)

// Phase is a lesson phase in chronological order.
type Phase string

const (
	PhaseStart   Phase = "start"
	PhaseCore    Phase = "core"
	PhaseClosing Phase = "closing"
)

// Action is the pedagogical move a script item performs.
type Action string

const (
	ActionOpen      Action = "open"
	ActionQuestion  Action = "question"
	ActionDemo      Action = "demo"
	ActionExercise  Action = "exercise"
	ActionCheck     Action = "check"
	ActionSummary   Action = "summary"
	ActionLink      Action = "link"
	ActionIntroduce Action = "introduce"
)

// TimeAllocation splits the lesson duration across phases, in minutes.
type TimeAllocation struct {
	Start   int `json:"start"`
	Core    int `json:"core"`
	Closing int `json:"closing"`
}

// Total is the declared lesson duration in minutes.
func (t TimeAllocation) Total() int {
	return t.Start + t.Core + t.Closing
}

type QuickStart struct {
	OneLiner       string         `json:"oneLiner"`
	KeyConcepts    []string       `json:"keyConcepts"`
	Check          string         `json:"check"`
	TimeAllocation TimeAllocation `json:"timeAllocation"`
}

// ScriptItem is one timed teacher action. Time is a whole-minute offset into
// the lesson, serialized as a string ("12") to match the kit wire format.
type ScriptItem struct {
	Time       string     `json:"time"`
	Phase      Phase      `json:"phase"`
	Action     Action     `json:"action"`
	Content    string     `json:"content"`
	SourceRef  *SourceRef `json:"sourceRef,omitempty"`
	IsGrounded bool       `json:"isGrounded"`

	ExpectedAnswers []string `json:"expectedAnswers,omitempty"`
	IfNoAnswer      string   `json:"ifNoAnswer,omitempty"`
	Slide           int      `json:"slide,omitempty"`
}

type DiscussionQuestion struct {
	Question  string     `json:"question"`
	SourceRef *SourceRef `json:"sourceRef,omitempty"`
}

type GroupWork struct {
	Title           string   `json:"title"`
	DurationMinutes int      `json:"durationMinutes"`
	GroupSize       int      `json:"groupSize"`
	Roles           []string `json:"roles,omitempty"`
	Materials       []string `json:"materials"`
	Steps           []string `json:"steps"`
	Rubric          string   `json:"rubric"`
}

type StudentHandout struct {
	Title     string   `json:"title"`
	Exercises []string `json:"exercises"`
}

type SlideAsset struct {
	Slide        int      `json:"slide"`
	Title        string   `json:"title"`
	Bullets      []string `json:"bullets,omitempty"`
	ImageURL     string   `json:"imageUrl,omitempty"`
	AnimationURL string   `json:"animationUrl,omitempty"`
}

// Severity ranks validation findings. Errors are hard failures; warnings are
// advisory and left to the caller.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Finding is one validation observation. Findings are data, never Go errors.
type Finding struct {
	Severity Severity `json:"severity"`
	Code     string   `json:"code"`
	Message  string   `json:"message"`
}

// Kit is the generated teaching artifact. Pass 2 builds a candidate, the
// post-processor and Pass 3 derive successive new values from it, and the
// final value carries the stamped quality scores.
type Kit struct {
	ModuleID string `json:"moduleId"`
	BuildID  string `json:"buildId,omitempty"`
	Title    string `json:"title"`

	QuickStart          QuickStart           `json:"quickStart"`
	TeacherScript       []ScriptItem         `json:"teacherScript"`
	DiscussionQuestions []DiscussionQuestion `json:"discussionQuestions"`
	GroupWork           GroupWork            `json:"groupWork"`
	StudentHandout      StudentHandout       `json:"studentHandout"`
	SlideAssets         []SlideAsset         `json:"slideAssets"`

	ProtocolUsed    string    `json:"protocolUsed"`
	GroundingScore  float64   `json:"groundingScore"`
	CoverageScore   float64   `json:"coverageScore"`
	NeedsReview     bool      `json:"needsReview"`
	ReviewReasons   []string  `json:"reviewReasons,omitempty"`
	BuiltAt         time.Time `json:"builtAt"`
	GroundTruthHash string    `json:"groundTruthHash"`
}

// Clone deep-copies the Kit so each pipeline stage can return a new value
// without aliasing slices of its input.
func (k Kit) Clone() Kit {
	out := k
	out.QuickStart.KeyConcepts = append([]string(nil), k.QuickStart.KeyConcepts...)
	out.TeacherScript = make([]ScriptItem, len(k.TeacherScript))
	for i, it := range k.TeacherScript {
		out.TeacherScript[i] = it
		if it.SourceRef != nil {
			ref := *it.SourceRef
			out.TeacherScript[i].SourceRef = &ref
		}
		out.TeacherScript[i].ExpectedAnswers = append([]string(nil), it.ExpectedAnswers...)
	}
	out.DiscussionQuestions = make([]DiscussionQuestion, len(k.DiscussionQuestions))
	for i, q := range k.DiscussionQuestions {
		out.DiscussionQuestions[i] = q
		if q.SourceRef != nil {
			ref := *q.SourceRef
			out.DiscussionQuestions[i].SourceRef = &ref
		}
	}
	out.GroupWork.Roles = append([]string(nil), k.GroupWork.Roles...)
	out.GroupWork.Materials = append([]string(nil), k.GroupWork.Materials...)
	out.GroupWork.Steps = append([]string(nil), k.GroupWork.Steps...)
	out.StudentHandout.Exercises = append([]string(nil), k.StudentHandout.Exercises...)
	out.SlideAssets = make([]SlideAsset, len(k.SlideAssets))
	for i, s := range k.SlideAssets {
		out.SlideAssets[i] = s
		out.SlideAssets[i].Bullets = append([]string(nil), s.Bullets...)
	}
	out.ReviewReasons = append([]string(nil), k.ReviewReasons...)
	return out
}

// Encode serializes the Kit in its wire form.
func (k Kit) Encode() ([]byte, error) {
	return json.MarshalIndent(k, "", "  ")
}

// Decode parses a serialized Kit.
func Decode(data []byte) (Kit, error) {
	var k Kit
	if err := json.Unmarshal(data, &k); err != nil {
		return Kit{}, err
	}
	return k, nil
}
