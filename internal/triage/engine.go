package triage

import (
	"sort"

	"medibook/internal/knowledge"
)

// Weights carries the evidence-scoring constants. The values are heuristic
// defaults tuned against the shipped condition table, not a certified
// medical algorithm; they can be overridden through configuration.
type Weights struct {
	Primary           float64 // per matching primary symptom
	Secondary         float64 // per matching secondary symptom
	SeverityBand      float64 // severity agrees with the profile's band
	RapidOnsetBonus   float64 // <24h duration on a rapid-onset profile
	ProlongedPenalty  float64 // >1 week duration on a short-course profile
	SmellTasteBoost   float64 // taste/smell loss on a smell/taste-linked profile
	SmellTastePenalty float64 // taste/smell loss present, other profiles
	AllergyComboBoost float64 // itchy eyes + sneezing on an allergic profile
	ReportThreshold   float64 // minimum confidence to appear in alternatives
}

func DefaultWeights() Weights {
	return Weights{
		Primary:           0.30,
		Secondary:         0.10,
		SeverityBand:      0.10,
		RapidOnsetBonus:   0.05,
		ProlongedPenalty:  0.10,
		SmellTasteBoost:   0.30,
		SmellTastePenalty: 0.10,
		AllergyComboBoost: 0.20,
		ReportThreshold:   0.10,
	}
}

// Engine scores the collected evidence against the condition table and
// produces the final ranked report. Analyze is a pure function of its
// inputs: identical answers always yield identical results.
type Engine struct {
	store   *knowledge.Store
	norm    *Normalizer
	weights Weights
}

func NewEngine(store *knowledge.Store, norm *Normalizer, weights Weights) *Engine {
	return &Engine{store: store, norm: norm, weights: weights}
}

// Analyze never fails: malformed or missing answers fall back to defaults
// (severity 5, unknown duration) rather than erroring.
func (e *Engine) Analyze(answers AnswerMap) AnalysisResult {
	tokens := e.norm.NormalizeAnswers(answers)
	severity := answers.Severity()
	duration := answers.Duration()

	profiles := e.store.Conditions()
	scores := make([]float64, len(profiles))
	for i, p := range profiles {
		scores[i] = e.score(p, tokens, severity, duration)
	}

	type ranked struct {
		profile knowledge.ConditionProfile
		score   float64
	}
	order := make([]ranked, len(profiles))
	for i := range profiles {
		order[i] = ranked{profiles[i], scores[i]}
	}
	// Stable sort keeps declaration order on ties.
	sort.SliceStable(order, func(i, j int) bool { return order[i].score > order[j].score })

	var reportable []ranked
	for _, r := range order {
		if r.score > e.weights.ReportThreshold {
			reportable = append(reportable, r)
		}
	}

	result := AnalysisResult{Disclaimers: defaultDisclaimers}
	if len(reportable) == 0 {
		result.TopCondition = ScoredCondition{Name: "Unknown condition", Confidence: 0}
		result.Urgency = e.urgency(tokens, severity, nil)
		result.Recommendation = genericRecommendation(result.Urgency)
		return result
	}

	top := reportable[0]
	result.TopCondition = ScoredCondition{Name: top.profile.Name, Confidence: top.score}
	result.Confidence = top.score
	for _, r := range reportable[1:] {
		result.Alternatives = append(result.Alternatives, ScoredCondition{Name: r.profile.Name, Confidence: r.score})
	}
	result.Urgency = e.urgency(tokens, severity, &top.profile)
	result.Recommendation = Recommendation{
		Specialist: top.profile.Specialist,
		Note:       top.profile.Note,
		Action:     actionFor(result.Urgency),
	}
	return result
}

func (e *Engine) score(p knowledge.ConditionProfile, tokens knowledge.TokenSet, severity int, duration string) float64 {
	w := e.weights
	var score float64

	// Each matching symptom contributes independently; the only cap is the
	// final clamp.
	for _, t := range p.Primary {
		if tokens.Has(t) {
			score += w.Primary
		}
	}
	for _, t := range p.Secondary {
		if tokens.Has(t) {
			score += w.Secondary
		}
	}

	if severity >= 7 && p.Band == knowledge.BandModerate {
		score += w.SeverityBand
	}
	if severity <= 4 && p.Band == knowledge.BandMild {
		score += w.SeverityBand
	}

	if duration == DurationUnderDay && p.RapidOnset {
		score += w.RapidOnsetBonus
	}
	if (duration == DurationOverWeek || duration == DurationOverTwoWeek) && p.ShortCourse {
		score -= w.ProlongedPenalty
	}

	if tokens.HasAny(knowledge.TokenLossOfTaste, knowledge.TokenLossOfSmell) {
		if p.SmellTasteLinked {
			score += w.SmellTasteBoost
		} else {
			score -= w.SmellTastePenalty
		}
	}
	if p.AllergicOrigin && tokens.Has(knowledge.TokenItchyEyes) && tokens.Has(knowledge.TokenSneezing) {
		score += w.AllergyComboBoost
	}

	return clamp01(score)
}

// urgency tiers are evaluated in priority order; the first match wins.
func (e *Engine) urgency(tokens knowledge.TokenSet, severity int, top *knowledge.ConditionProfile) Urgency {
	switch {
	case severity >= 9,
		tokens.HasAny(knowledge.RespiratoryDistress...),
		tokens.Has(knowledge.TokenVeryHighFever):
		return UrgencyUrgent
	case top != nil && top.SmellTasteLinked && severity >= 7:
		return UrgencyHigh
	case severity >= 6:
		return UrgencyMedium
	default:
		return UrgencyLow
	}
}

func genericRecommendation(u Urgency) Recommendation {
	return Recommendation{
		Specialist: "General Practitioner",
		Note:       "Please consult a healthcare professional for proper evaluation.",
		Action:     actionFor(u),
	}
}

func actionFor(u Urgency) string {
	switch u {
	case UrgencyUrgent:
		return "Seek immediate medical care."
	case UrgencyHigh:
		return "See a doctor within 24 hours."
	case UrgencyMedium:
		return "Book an appointment in the next few days."
	default:
		return "Monitor your symptoms and book an appointment if they worsen."
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
