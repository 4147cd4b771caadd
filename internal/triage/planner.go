package triage

import "medibook/internal/knowledge"

// Planner decides the next question from the current step and the answers
// collected so far. Templates are table-driven; the generated option lists
// are pure lookups keyed on token membership, so UI wording can change
// without breaking the branching logic.
type Planner struct {
	norm *Normalizer
}

func NewPlanner(norm *Normalizer) *Planner {
	return &Planner{norm: norm}
}

// questionTemplate builds the question asked at one step.
type questionTemplate struct {
	kind    QuestionKind
	message func(tokens knowledge.TokenSet, answers AnswerMap) string
	options func(tokens knowledge.TokenSet, answers AnswerMap) []string
	min     int
	max     int
}

// Next returns the question for the step that follows the given one, or
// terminal=true when the conversation should move to analysis. An unknown
// step yields the generic fallback question and terminal=true; it never
// fails.
func (p *Planner) Next(step Step, answers AnswerMap) (Question, bool) {
	tokens := p.norm.NormalizeAnswers(answers)

	var next Step
	switch step {
	case StepGreeting:
		next = StepPrimarySymptoms
	case StepPrimarySymptoms:
		next = StepSymptomDetails
	case StepSymptomDetails:
		next = StepSeverity
	case StepSeverity:
		// Mild symptoms without breathing or chest involvement need no
		// elaboration.
		if answers.Severity() <= 3 && !tokens.HasAny(knowledge.RespiratoryDistress...) {
			next = StepDuration
		} else {
			next = StepFollowUp
		}
	case StepFollowUp:
		next = StepDuration
	case StepDuration:
		next = StepFeverCheck
	case StepFeverCheck:
		// When the evidence already points at exactly one condition group
		// there is nothing left to disambiguate.
		if p.unambiguous(tokens) {
			next = StepAdditionalInfo
		} else {
			next = StepDifferential
		}
	case StepDifferential:
		next = StepAdditionalInfo
	case StepAdditionalInfo:
		return Question{}, true
	default:
		return fallbackQuestion(), true
	}

	return p.Question(next, answers), false
}

// Question builds the question asked at the given step. Unknown steps get
// the generic fallback question.
func (p *Planner) Question(step Step, answers AnswerMap) Question {
	tpl, ok := templates[step]
	if !ok {
		return fallbackQuestion()
	}
	tokens := p.norm.NormalizeAnswers(answers)
	q := Question{
		Step:     step,
		Kind:     tpl.kind,
		Message:  tpl.message(tokens, answers),
		Min:      tpl.min,
		Max:      tpl.max,
		Progress: progressFor(step),
	}
	if tpl.options != nil {
		q.Options = tpl.options(tokens, answers)
	}
	return q
}

// unambiguous reports whether the token set maps to exactly one
// condition-indicator group.
func (p *Planner) unambiguous(tokens knowledge.TokenSet) bool {
	matched := 0
	for _, group := range indicatorGroups {
		if tokens.HasAny(group...) {
			matched++
		}
	}
	return matched == 1
}

func progressFor(step Step) int {
	for i, s := range stepOrder {
		if s == step {
			return i * 100 / (len(stepOrder) - 1)
		}
	}
	return 0
}

func fallbackQuestion() Question {
	return Question{
		Step:    StepAnalysis,
		Kind:    KindFreeText,
		Message: "I'm sorry, I lost track of our conversation. Please describe your symptoms in your own words, or start a new assessment.",
	}
}

func staticMessage(msg string) func(knowledge.TokenSet, AnswerMap) string {
	return func(knowledge.TokenSet, AnswerMap) string { return msg }
}

func staticOptions(opts ...string) func(knowledge.TokenSet, AnswerMap) []string {
	return func(knowledge.TokenSet, AnswerMap) []string { return opts }
}

var templates = map[Step]questionTemplate{
	StepGreeting: {
		kind: KindChoice,
		message: staticMessage("Hello! I'm your medical assistant. I'll help you understand your symptoms. " +
			"Let's start with your main concern - what symptoms are you experiencing?"),
		options: staticOptions(
			"Fever and body aches",
			"Runny nose and sneezing",
			"Cough and sore throat",
			"Loss of taste or smell",
			"Breathing difficulties",
			"Skin irritation or rash",
			"Multiple symptoms",
		),
	},
	StepPrimarySymptoms: {
		kind:    KindMultiChoice,
		message: detailMessage,
		options: detailOptions,
	},
	StepSymptomDetails: {
		kind:    KindChoice,
		message: staticMessage("How did your symptoms develop?"),
		options: staticOptions(
			"Sudden onset of severe symptoms",
			"Gradual onset of symptoms",
			"Symptoms come and go",
			"Symptoms getting progressively worse",
			"Symptoms staying about the same",
		),
	},
	StepSeverity: {
		kind:    KindScale,
		message: staticMessage("How severe are your symptoms on a scale of 1-10? (1 = very mild, 10 = severe)"),
		min:     1,
		max:     10,
	},
	StepFollowUp: {
		kind:    KindMultiChoice,
		message: followUpMessage,
		options: followUpOptions,
	},
	StepDuration: {
		kind:    KindChoice,
		message: staticMessage("How long have you been experiencing these symptoms?"),
		options: staticOptions(
			DurationUnderDay,
			DurationCouple,
			DurationSeveral,
			DurationWeek,
			DurationOverWeek,
			DurationOverTwoWeek,
		),
	},
	StepFeverCheck: {
		kind:    KindChoice,
		message: staticMessage("Have you measured your temperature? Which range matches it best?"),
		options: staticOptions(
			"Normal (below 99°F)",
			"Slightly elevated (99-100.4°F)",
			"High (100.4-103°F)",
			"Very high (above 103°F)",
			"Haven't measured",
		),
	},
	StepDifferential: {
		kind:    KindChoice,
		message: differentialMessage,
		options: differentialOptions,
	},
	StepAdditionalInfo: {
		kind:    KindMultiChoice,
		message: staticMessage("Any other symptoms or concerns you'd like to mention?"),
		options: staticOptions(
			"Fatigue or weakness",
			"Headache",
			"Nausea or vomiting",
			"Joint or muscle pain",
			"Itchy, watery eyes",
			"None of the above",
		),
	},
}

// detailMessage and detailOptions elaborate on the main concern. Each
// canned list is keyed on the tokens extracted from the first answer; an
// unrecognized concern gets the generic list.
func detailMessage(tokens knowledge.TokenSet, _ AnswerMap) string {
	switch {
	case tokens.Has(knowledge.TokenFever):
		return "Let me ask more about your fever and body aches. Which of these apply to you?"
	case tokens.Has(knowledge.TokenRunnyNose):
		return "Tell me more about your nasal symptoms. Which of these are you experiencing?"
	case tokens.Has(knowledge.TokenDryCough) || tokens.Has(knowledge.TokenSoreThroat):
		return "Let's get details about your cough and throat symptoms. Which of these apply?"
	case tokens.Has(knowledge.TokenLossOfTaste) || tokens.Has(knowledge.TokenLossOfSmell):
		return "This is an important symptom. Please tell me more:"
	case tokens.Has(knowledge.TokenBreathingIssue):
		return "Breathing issues are serious. Please describe what you're experiencing:"
	}
	return "Please provide more details about your symptoms:"
}

func detailOptions(tokens knowledge.TokenSet, _ AnswerMap) []string {
	switch {
	case tokens.Has(knowledge.TokenFever):
		return []string{
			"High fever (over 101°F/38.3°C)",
			"Low-grade fever (99-101°F/37.2-38.3°C)",
			"Chills and sweating",
			"Muscle aches all over",
			"Joint pain",
			"Back pain",
			"Weakness or fatigue",
		}
	case tokens.Has(knowledge.TokenRunnyNose):
		return []string{
			"Clear, watery runny nose",
			"Thick, colored nasal discharge",
			"Frequent sneezing",
			"Nasal congestion",
			"Itchy nose",
			"Post-nasal drip",
			"Sinus pressure",
		}
	case tokens.Has(knowledge.TokenDryCough) || tokens.Has(knowledge.TokenSoreThroat):
		return []string{
			"Dry cough",
			"Productive cough with phlegm",
			"Sore throat when swallowing",
			"Scratchy throat",
			"Hoarse voice",
			"Throat irritation",
			"Coughing up blood",
		}
	case tokens.Has(knowledge.TokenLossOfTaste) || tokens.Has(knowledge.TokenLossOfSmell):
		return []string{
			"Complete loss of taste",
			"Partial loss of taste",
			"Complete loss of smell",
			"Partial loss of smell",
			"Altered taste (metallic, strange)",
			"Altered smell",
			"Both taste and smell affected",
		}
	case tokens.Has(knowledge.TokenBreathingIssue):
		return []string{
			"Shortness of breath at rest",
			"Shortness of breath with activity",
			"Chest tightness",
			"Wheezing",
			"Rapid breathing",
			"Chest pain with breathing",
			"Feeling like you can't get enough air",
		}
	}
	return []string{
		"Mild symptoms",
		"Moderate symptoms",
		"Severe symptoms",
		"Symptoms getting worse",
		"Symptoms staying the same",
		"Symptoms improving",
	}
}

func followUpMessage(_ knowledge.TokenSet, answers AnswerMap) string {
	if answers.Severity() >= 8 {
		return "Since your symptoms are severe, I need to ask about some important signs:"
	}
	return "Based on your symptoms, I'd like to ask about a few more things:"
}

func followUpOptions(tokens knowledge.TokenSet, answers AnswerMap) []string {
	var opts []string

	if tokens.Has(knowledge.TokenHighFever) || answers.Severity() >= 8 {
		opts = append(opts,
			"Difficulty breathing or shortness of breath",
			"Chest pain or pressure",
			"Persistent high fever",
		)
	}
	if tokens.HasAny(knowledge.TokenDryCough, knowledge.TokenSoreThroat, knowledge.TokenRunnyNose, knowledge.TokenSneezing) {
		opts = append(opts,
			"Ear pain or pressure",
			"Facial pain or sinus pressure",
			"Swollen lymph nodes",
		)
	}
	if tokens.Has(knowledge.TokenLossOfTaste) || tokens.Has(knowledge.TokenLossOfSmell) {
		opts = append(opts, "Recent exposure to COVID-19")
	}

	opts = append(opts, "None of the above")
	return opts
}

func differentialMessage(tokens knowledge.TokenSet, _ AnswerMap) string {
	switch {
	case tokens.Has(knowledge.TokenFever) && tokens.HasAny(knowledge.TokenDryCough, knowledge.TokenWetCough):
		return "To help distinguish between different conditions, which best describes your overall experience?"
	case tokens.Has(knowledge.TokenRunnyNose) && tokens.Has(knowledge.TokenSneezing):
		return "These symptoms could be related to different causes. Which scenario sounds most like you?"
	}
	return "To provide the most accurate assessment, please choose the option that best fits your situation:"
}

func differentialOptions(tokens knowledge.TokenSet, _ AnswerMap) []string {
	switch {
	case tokens.Has(knowledge.TokenFever):
		return []string{
			"Sudden onset of severe symptoms",
			"Gradual onset of symptoms",
			"Symptoms mainly affecting nose/throat",
			"Whole body feels affected",
			"Mainly respiratory symptoms",
			"Gastrointestinal symptoms too",
		}
	case tokens.Has(knowledge.TokenSneezing):
		return []string{
			"Symptoms worse in certain environments",
			"Symptoms consistent throughout day",
			"Seasonal pattern to symptoms",
			"Itchy eyes or throat",
			"Itchy, watery eyes",
			"Symptoms started after being around others who were sick",
		}
	}
	return []string{
		"Symptoms getting progressively worse",
		"Symptoms staying about the same",
		"Symptoms come and go",
		"Symptoms affect daily activities",
		"Symptoms are manageable",
	}
}
