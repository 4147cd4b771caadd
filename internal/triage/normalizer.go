package triage

import "medibook/internal/knowledge"

// Normalizer maps UI option labels to canonical symptom tokens. The table
// is fixed and closed: labels without an entry are dropped silently, and
// tokens are never invented.
type Normalizer struct {
	table map[string][]knowledge.Token
}

func NewNormalizer() *Normalizer {
	return &Normalizer{table: labelTable}
}

// Normalize maps each label through the lookup table and returns the
// deduplicated token set. Unknown labels are ignored.
func (n *Normalizer) Normalize(labels []string) knowledge.TokenSet {
	set := knowledge.TokenSet{}
	for _, label := range labels {
		for _, t := range n.table[label] {
			set.Add(t)
		}
	}
	return set
}

// NormalizeAnswers flattens every string and list answer in the map into
// one token set.
func (n *Normalizer) NormalizeAnswers(answers AnswerMap) knowledge.TokenSet {
	return n.Normalize(answers.AllLabels())
}

// Vocabulary returns every token the table can produce.
func (n *Normalizer) Vocabulary() knowledge.TokenSet {
	vocab := knowledge.TokenSet{}
	for _, tokens := range n.table {
		for _, t := range tokens {
			vocab.Add(t)
		}
	}
	return vocab
}

// labelTable keys are the exact option strings the planner displays.
var labelTable = map[string][]knowledge.Token{
	// Main concern options.
	"Fever and body aches":    {knowledge.TokenFever, knowledge.TokenBodyAches},
	"Runny nose and sneezing": {knowledge.TokenRunnyNose, knowledge.TokenSneezing},
	"Cough and sore throat":   {knowledge.TokenDryCough, knowledge.TokenSoreThroat},
	"Loss of taste or smell":  {knowledge.TokenLossOfTaste, knowledge.TokenLossOfSmell},
	"Breathing difficulties":  {knowledge.TokenBreathingIssue},
	"Skin irritation or rash": {knowledge.TokenSkinRash},

	// Fever and aches details.
	"High fever (over 101°F/38.3°C)":          {knowledge.TokenHighFever, knowledge.TokenFever},
	"Low-grade fever (99-101°F/37.2-38.3°C)":  {knowledge.TokenLowGradeFever, knowledge.TokenFever},
	"Chills and sweating":   {knowledge.TokenChills},
	"Muscle aches all over": {knowledge.TokenBodyAches},
	"Joint pain":            {knowledge.TokenJointPain},
	"Back pain":             {"back_pain"},
	"Weakness or fatigue":   {knowledge.TokenFatigue},

	// Nasal details.
	"Clear, watery runny nose":       {knowledge.TokenRunnyNose},
	"Thick, colored nasal discharge": {"nasal_discharge"},
	"Frequent sneezing":              {knowledge.TokenSneezing},
	"Nasal congestion":               {knowledge.TokenCongestion},
	"Itchy nose":                     {knowledge.TokenItchyNose},
	"Post-nasal drip":                {"post_nasal_drip"},
	"Sinus pressure":                 {"sinus_pressure"},

	// Cough and throat details.
	"Dry cough":                   {knowledge.TokenDryCough},
	"Productive cough with phlegm": {knowledge.TokenWetCough},
	"Sore throat when swallowing": {knowledge.TokenSoreThroat},
	"Scratchy throat":             {"scratchy_throat"},
	"Hoarse voice":                {"hoarse_voice"},
	"Throat irritation":           {"throat_irritation"},
	"Coughing up blood":           {"coughing_blood"},

	// Taste and smell details.
	"Complete loss of taste":          {knowledge.TokenLossOfTaste},
	"Partial loss of taste":           {knowledge.TokenLossOfTaste},
	"Complete loss of smell":          {knowledge.TokenLossOfSmell},
	"Partial loss of smell":           {knowledge.TokenLossOfSmell},
	"Altered taste (metallic, strange)": {"altered_taste"},
	"Altered smell":                   {"altered_smell"},
	"Both taste and smell affected":   {knowledge.TokenLossOfTaste, knowledge.TokenLossOfSmell},

	// Breathing details.
	"Shortness of breath at rest":          {knowledge.TokenShortBreath},
	"Shortness of breath with activity":    {knowledge.TokenShortBreath},
	"Chest tightness":                      {knowledge.TokenChestTightness},
	"Wheezing":                             {knowledge.TokenWheezing},
	"Rapid breathing":                      {knowledge.TokenRapidBreathing},
	"Chest pain with breathing":            {knowledge.TokenChestPain},
	"Feeling like you can't get enough air": {knowledge.TokenShortBreath},

	// Progression.
	"Sudden onset of severe symptoms": {knowledge.TokenSuddenOnset},
	"Gradual onset of symptoms":       {knowledge.TokenGradualOnset},

	// Follow-up elaboration.
	"Difficulty breathing or shortness of breath": {knowledge.TokenShortBreath},
	"Chest pain or pressure":                      {knowledge.TokenChestPain},
	"Persistent high fever":                       {knowledge.TokenHighFever},
	"Ear pain or pressure":                        {"ear_pain"},
	"Facial pain or sinus pressure":               {"facial_pain"},
	"Swollen lymph nodes":                         {"swollen_lymph_nodes"},
	"Recent exposure to COVID-19":                 {"covid_exposure"},

	// Fever check buckets.
	"Slightly elevated (99-100.4°F)": {knowledge.TokenLowGradeFever},
	"High (100.4-103°F)":             {knowledge.TokenHighFever, knowledge.TokenFever},
	"Very high (above 103°F)":        {knowledge.TokenVeryHighFever, knowledge.TokenFever},

	// Differential options.
	"Symptoms worse in certain environments": {knowledge.TokenEnvTrigger},
	"Seasonal pattern to symptoms":           {knowledge.TokenSeasonal},
	"Itchy eyes or throat":                   {knowledge.TokenItchyEyes},
	"Itchy, watery eyes":                     {knowledge.TokenItchyEyes, knowledge.TokenWateryEyes},
	"Whole body feels affected":              {knowledge.TokenBodyAches},

	// Additional info.
	"Fatigue or weakness":  {knowledge.TokenFatigue},
	"Headache":             {knowledge.TokenHeadache},
	"Nausea or vomiting":   {knowledge.TokenNausea},
	"Joint or muscle pain": {knowledge.TokenJointPain},
}
