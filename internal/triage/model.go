package triage

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"medibook/internal/knowledge"
)

// Step identifies one stage of the symptom-checker conversation. Steps are
// ordered but not strictly linear: the planner may skip steps based on
// collected evidence.
type Step string

const (
	StepGreeting        Step = "greeting"
	StepPrimarySymptoms Step = "primary_symptoms"
	StepSymptomDetails  Step = "symptom_details"
	StepSeverity        Step = "severity"
	StepDuration        Step = "duration"
	StepFeverCheck      Step = "fever_check"
	StepFollowUp        Step = "follow_up"
	StepDifferential    Step = "differential"
	StepAdditionalInfo  Step = "additional_info"
	StepAnalysis        Step = "analysis"
)

// stepOrder is the canonical progression used for progress reporting.
var stepOrder = []Step{
	StepGreeting,
	StepPrimarySymptoms,
	StepSymptomDetails,
	StepSeverity,
	StepFollowUp,
	StepDuration,
	StepFeverCheck,
	StepDifferential,
	StepAdditionalInfo,
	StepAnalysis,
}

// StepOrder returns a copy of the canonical step progression.
func StepOrder() []Step {
	out := make([]Step, len(stepOrder))
	copy(out, stepOrder)
	return out
}

// QuestionKind tells the UI how to render a question.
type QuestionKind string

const (
	KindChoice      QuestionKind = "choice"
	KindMultiChoice QuestionKind = "multi_choice"
	KindScale       QuestionKind = "scale"
	KindFreeText    QuestionKind = "free_text"
)

// Question is one prompt rendered by the conversational UI.
type Question struct {
	Step     Step         `json:"step"`
	Message  string       `json:"message"`
	Kind     QuestionKind `json:"kind"`
	Options  []string     `json:"options,omitempty"`
	Min      int          `json:"min,omitempty"`
	Max      int          `json:"max,omitempty"`
	Progress int          `json:"progress"`

	// Validation carries the reason the previous answer was rejected when
	// the same question is re-issued.
	Validation string `json:"validation,omitempty"`
}

// Answer is one submitted answer: a single choice or free-text string, an
// ordered multi-choice selection, or a scale value (1-10).
type Answer struct {
	Text  string   `json:"text,omitempty"`
	List  []string `json:"list,omitempty"`
	Scale int      `json:"scale,omitempty"`
}

// Labels returns the display labels carried by the answer, in submission
// order.
func (a Answer) Labels() []string {
	if len(a.List) > 0 {
		return a.List
	}
	if a.Text != "" {
		return []string{a.Text}
	}
	return nil
}

// ParseAnswer decodes the wire form of an answer: a JSON string, an array
// of strings, or a number.
func ParseAnswer(raw json.RawMessage) (Answer, error) {
	var text string
	if err := json.Unmarshal(raw, &text); err == nil {
		return Answer{Text: text}, nil
	}
	var list []string
	if err := json.Unmarshal(raw, &list); err == nil {
		return Answer{List: list}, nil
	}
	var scale int
	if err := json.Unmarshal(raw, &scale); err == nil {
		return Answer{Scale: scale}, nil
	}
	return Answer{}, fmt.Errorf("answer must be a string, a list of strings, or a number")
}

// AnswerMap accumulates answers keyed by the step they were given at. A
// later answer for the same step overwrites the earlier one.
type AnswerMap map[Step]Answer

// AllLabels flattens every string and list answer into one label sequence.
func (m AnswerMap) AllLabels() []string {
	var out []string
	for _, step := range stepOrder {
		if a, ok := m[step]; ok {
			out = append(out, a.Labels()...)
		}
	}
	return out
}

// Severity returns the recorded severity, defaulting to 5 when absent or
// out of range.
func (m AnswerMap) Severity() int {
	a, ok := m[StepSeverity]
	if !ok || a.Scale < 1 || a.Scale > 10 {
		return 5
	}
	return a.Scale
}

// Duration returns the recorded duration bucket, or DurationUnknown.
func (m AnswerMap) Duration() string {
	a, ok := m[StepDuration]
	if !ok || a.Text == "" {
		return DurationUnknown
	}
	return a.Text
}

// Duration buckets offered at the DURATION step.
const (
	DurationUnknown     = "unknown"
	DurationUnderDay    = "Less than 24 hours"
	DurationCouple      = "1-2 days"
	DurationSeveral     = "3-5 days"
	DurationWeek        = "6-7 days"
	DurationOverWeek    = "More than a week"
	DurationOverTwoWeek = "More than 2 weeks"
)

// Urgency is the coarse triage priority driving how fast care should be
// sought.
type Urgency string

const (
	UrgencyLow    Urgency = "LOW"
	UrgencyMedium Urgency = "MEDIUM"
	UrgencyHigh   Urgency = "HIGH"
	UrgencyUrgent Urgency = "URGENT"
)

// rank orders urgency tiers for comparisons.
func (u Urgency) rank() int {
	switch u {
	case UrgencyUrgent:
		return 3
	case UrgencyHigh:
		return 2
	case UrgencyMedium:
		return 1
	default:
		return 0
	}
}

// AtLeast reports whether u is the same tier as other or higher.
func (u Urgency) AtLeast(other Urgency) bool {
	return u.rank() >= other.rank()
}

// ScoredCondition is one ranked candidate diagnosis.
type ScoredCondition struct {
	Name       string  `json:"name"`
	Confidence float64 `json:"confidence"`
}

// Recommendation tells the user which specialist to see and what to do.
type Recommendation struct {
	Specialist string `json:"specialist"`
	Note       string `json:"note"`
	Action     string `json:"action"`
}

// AnalysisResult is the final report of one triage conversation.
type AnalysisResult struct {
	TopCondition   ScoredCondition   `json:"top_condition"`
	Alternatives   []ScoredCondition `json:"alternatives"`
	Urgency        Urgency           `json:"urgency"`
	Recommendation Recommendation    `json:"recommendation"`
	Confidence     float64           `json:"confidence"`
	Disclaimers    []string          `json:"disclaimers"`

	// Fallback marks results computed locally after a remote scoring
	// failure. Internal only.
	Fallback bool `json:"-"`
}

// Disclaimers appended to every final result.
var defaultDisclaimers = []string{
	"This assessment is for informational purposes only and is not a medical diagnosis.",
	"Always consult a healthcare professional for medical advice.",
	"If symptoms are severe or worsening, seek immediate medical care.",
}

// Session is one triage conversation. It lives in memory for the duration
// of the conversation and is discarded once the final result is produced.
type Session struct {
	ID        string
	Step      Step
	Answers   AnswerMap
	CreatedAt time.Time

	pending  Question
	finished bool
}

// Assessment is the persisted record of a completed conversation.
type Assessment struct {
	ID        uuid.UUID      `json:"id"`
	SessionID string         `json:"session_id"`
	Answers   AnswerMap      `json:"answers"`
	Result    AnalysisResult `json:"result"`
	Fallback  bool           `json:"fallback"`
	CreatedAt time.Time      `json:"created_at"`
}

// indicator groups used to decide whether the differential question can be
// skipped: when the collected evidence points at exactly one group, there is
// nothing left to disambiguate.
var indicatorGroups = map[string][]knowledge.Token{
	"covid": {knowledge.TokenLossOfTaste, knowledge.TokenLossOfSmell},
	"allergy": {
		knowledge.TokenItchyEyes,
		knowledge.TokenItchyNose,
		knowledge.TokenWateryEyes,
		knowledge.TokenSeasonal,
		knowledge.TokenEnvTrigger,
	},
}
