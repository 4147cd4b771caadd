package knowledge

// Token is a canonical lowercase symptom identifier, decoupled from the
// display text shown in the conversational UI.
type Token string

// Tokens referenced by scoring and planning logic. The normalizer table may
// produce additional tokens beyond these.
const (
	TokenFever         Token = "fever"
	TokenHighFever     Token = "high_fever"
	TokenLowGradeFever Token = "low_grade_fever"
	TokenVeryHighFever Token = "very_high_fever"
	TokenChills        Token = "chills"
	TokenBodyAches     Token = "body_aches"
	TokenJointPain     Token = "joint_pain"
	TokenFatigue       Token = "fatigue"
	TokenHeadache      Token = "headache"

	TokenRunnyNose   Token = "runny_nose"
	TokenSneezing    Token = "sneezing"
	TokenCongestion  Token = "congestion"
	TokenItchyNose   Token = "itchy_nose"
	TokenSoreThroat  Token = "sore_throat"
	TokenDryCough    Token = "dry_cough"
	TokenWetCough    Token = "productive_cough"

	TokenLossOfTaste Token = "loss_of_taste"
	TokenLossOfSmell Token = "loss_of_smell"

	TokenShortBreath     Token = "shortness_of_breath"
	TokenBreathingIssue  Token = "breathing_difficulty"
	TokenChestPain       Token = "chest_pain"
	TokenChestTightness  Token = "chest_tightness"
	TokenWheezing        Token = "wheezing"
	TokenRapidBreathing  Token = "rapid_breathing"

	TokenItchyEyes     Token = "itchy_eyes"
	TokenWateryEyes    Token = "watery_eyes"
	TokenSkinRash      Token = "skin_rash"
	TokenSeasonal      Token = "seasonal_pattern"
	TokenEnvTrigger    Token = "environmental_trigger"
	TokenSuddenOnset   Token = "sudden_onset"
	TokenGradualOnset  Token = "gradual_onset"
	TokenNausea        Token = "nausea"
)

// TokenSet is an unordered collection of symptom tokens.
type TokenSet map[Token]struct{}

func (s TokenSet) Has(t Token) bool {
	_, ok := s[t]
	return ok
}

func (s TokenSet) Add(t Token) {
	s[t] = struct{}{}
}

// HasAny reports whether any of the given tokens is present.
func (s TokenSet) HasAny(tokens ...Token) bool {
	for _, t := range tokens {
		if s.Has(t) {
			return true
		}
	}
	return false
}

// Slice returns the tokens in deterministic (lexicographic) order.
func (s TokenSet) Slice() []Token {
	out := make([]Token, 0, len(s))
	for t := range s {
		out = append(out, t)
	}
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j] < out[j-1]; j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	return out
}

// SeverityBand is the baseline severity of a condition profile.
type SeverityBand string

const (
	BandMild     SeverityBand = "mild"
	BandModerate SeverityBand = "moderate"
)

// ConditionProfile describes one candidate diagnosis: its symptom signature,
// baseline severity band, and the recommendation attached when it wins.
// Trait flags drive scoring nudges so the engine never branches on condition
// names and works against any table the knowledge source provides.
type ConditionProfile struct {
	Name       string       `json:"name"`
	Primary    []Token      `json:"primary_symptoms"`
	Secondary  []Token      `json:"secondary_symptoms"`
	Band       SeverityBand `json:"severity_band"`
	Specialist string       `json:"specialist"`
	Note       string       `json:"note"`

	// RapidOnset marks conditions that typically hit within the first day
	// (flu-like); ShortCourse marks conditions that resolve within a week
	// (cold-like); SmellTasteLinked marks conditions strongly indicated by
	// loss of taste or smell (COVID-like); AllergicOrigin marks
	// histamine-driven conditions (allergy-like).
	RapidOnset       bool `json:"rapid_onset"`
	ShortCourse      bool `json:"short_course"`
	SmellTasteLinked bool `json:"smell_taste_linked"`
	AllergicOrigin   bool `json:"allergic_origin"`
}

// FallbackConditions is the built-in condition table used when the remote
// knowledge source is unavailable. Declaration order is the tie-break order
// for equal scores.
func FallbackConditions() []ConditionProfile {
	return []ConditionProfile{
		{
			Name:       "Flu",
			Primary:    []Token{TokenFever, TokenHighFever, TokenBodyAches, TokenChills},
			Secondary:  []Token{TokenFatigue, TokenHeadache, TokenJointPain},
			Band:       BandModerate,
			Specialist: "General Practitioner",
			Note:       "Rest, stay hydrated, and consider antiviral medication if seen within 48 hours.",
			RapidOnset: true,
		},
		{
			Name:        "Cold",
			Primary:     []Token{TokenRunnyNose, TokenSneezing, TokenSoreThroat, TokenCongestion},
			Secondary:   []Token{TokenWetCough, TokenHeadache, Token("post_nasal_drip"), Token("scratchy_throat")},
			Band:        BandMild,
			Specialist:  "General Practitioner",
			Note:        "Rest and use home remedies. See a doctor if symptoms persist beyond 10 days.",
			ShortCourse: true,
		},
		{
			Name:             "COVID-19",
			Primary:          []Token{TokenFever, TokenDryCough, TokenLossOfTaste, TokenLossOfSmell, TokenShortBreath},
			Secondary:        []Token{TokenFatigue, TokenHeadache, TokenBodyAches, TokenCongestion},
			Band:             BandModerate,
			Specialist:       "General Practitioner or Urgent Care",
			Note:             "Get tested and isolate until results are available.",
			SmellTasteLinked: true,
		},
		{
			Name:           "Allergy",
			Primary:        []Token{TokenSneezing, TokenItchyEyes, TokenRunnyNose, TokenItchyNose},
			Secondary:      []Token{TokenWateryEyes, TokenCongestion, TokenSkinRash, TokenSeasonal},
			Band:           BandMild,
			Specialist:     "Allergist",
			Note:           "Consider allergy testing and avoid known triggers.",
			AllergicOrigin: true,
		},
	}
}

// RespiratoryDistress holds the tokens that indicate breathing or chest
// problems; they escalate urgency and suppress question skipping.
var RespiratoryDistress = []Token{
	TokenShortBreath,
	TokenBreathingIssue,
	TokenChestPain,
	TokenChestTightness,
	TokenWheezing,
	TokenRapidBreathing,
}
