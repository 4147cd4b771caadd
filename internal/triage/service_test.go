package triage

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"medibook/internal/knowledge"
)

type stubScorer struct {
	result *AnalysisResult
	err    error
	calls  int
}

func (s *stubScorer) Score(ctx context.Context, sessionID string, answers AnswerMap) (*AnalysisResult, error) {
	s.calls++
	return s.result, s.err
}

type stubRepo struct {
	saved chan *Assessment
}

func newStubRepo() *stubRepo {
	return &stubRepo{saved: make(chan *Assessment, 1)}
}

func (r *stubRepo) Save(ctx context.Context, a *Assessment) error {
	r.saved <- a
	return nil
}

func (r *stubRepo) GetBySessionID(ctx context.Context, sessionID string) (*Assessment, error) {
	return nil, errors.New("assessment not found")
}

func newTestService(scorer RemoteScorer, repo Repository) Service {
	norm := NewNormalizer()
	store := knowledge.NewStore(nil, 0, zerolog.Nop())
	engine := NewEngine(store, norm, DefaultWeights())
	return NewService(NewPlanner(norm), engine, scorer, repo, nil, time.Second, zerolog.Nop())
}

// submitNext answers the pending question with the given answer and returns
// the next turn.
func submitNext(t *testing.T, svc Service, turn *Turn, answer Answer) *Turn {
	t.Helper()
	require.NotNil(t, turn.Question)
	next, err := svc.Submit(context.Background(), turn.SessionID, turn.Question.Step, answer)
	require.NoError(t, err)
	return next
}

func TestFullConversationFallsBackToLocalEngine(t *testing.T) {
	scorer := &stubScorer{err: errors.New("upstream down")}
	repo := newStubRepo()
	svc := newTestService(scorer, repo)

	turn, err := svc.Start(context.Background())
	require.NoError(t, err)
	require.Equal(t, StepGreeting, turn.Question.Step)
	require.NotEmpty(t, turn.SessionID)

	turn = submitNext(t, svc, turn, Answer{Text: "Fever and body aches"})
	require.Equal(t, StepPrimarySymptoms, turn.Question.Step)

	turn = submitNext(t, svc, turn, Answer{List: []string{"High fever (over 101°F/38.3°C)", "Chills and sweating"}})
	require.Equal(t, StepSymptomDetails, turn.Question.Step)

	turn = submitNext(t, svc, turn, Answer{Text: "Sudden onset of severe symptoms"})
	require.Equal(t, StepSeverity, turn.Question.Step)

	turn = submitNext(t, svc, turn, Answer{Scale: 8})
	require.Equal(t, StepFollowUp, turn.Question.Step)

	turn = submitNext(t, svc, turn, Answer{List: []string{"None of the above"}})
	require.Equal(t, StepDuration, turn.Question.Step)

	turn = submitNext(t, svc, turn, Answer{Text: DurationCouple})
	require.Equal(t, StepFeverCheck, turn.Question.Step)

	turn = submitNext(t, svc, turn, Answer{Text: "High (100.4-103°F)"})
	require.Equal(t, StepDifferential, turn.Question.Step)

	turn = submitNext(t, svc, turn, Answer{Text: "Whole body feels affected"})
	require.Equal(t, StepAdditionalInfo, turn.Question.Step)

	final, err := svc.Submit(context.Background(), turn.SessionID, StepAdditionalInfo, Answer{List: []string{"Fatigue or weakness"}})
	require.NoError(t, err)
	require.Nil(t, final.Question)
	require.NotNil(t, final.Result)

	require.Equal(t, 1, scorer.calls)
	require.True(t, final.Result.Fallback)
	require.Equal(t, "Flu", final.Result.TopCondition.Name)
	require.Equal(t, UrgencyMedium, final.Result.Urgency)
	require.NotEmpty(t, final.Result.Disclaimers)

	select {
	case a := <-repo.saved:
		require.Equal(t, turn.SessionID, a.SessionID)
		require.True(t, a.Fallback)
		require.Equal(t, "Flu", a.Result.TopCondition.Name)
	case <-time.After(2 * time.Second):
		t.Fatal("assessment was never persisted")
	}

	// The session is gone once the result is produced.
	_, err = svc.Submit(context.Background(), turn.SessionID, StepAdditionalInfo, Answer{List: []string{"Headache"}})
	require.ErrorIs(t, err, ErrSessionNotFound)
}

func TestRemoteResultIsPreferred(t *testing.T) {
	remote := &AnalysisResult{
		TopCondition: ScoredCondition{Name: "Sinusitis", Confidence: 0.85},
		Urgency:      UrgencyMedium,
		Recommendation: Recommendation{
			Specialist: "ENT Specialist",
			Action:     "Book an appointment in the next few days.",
		},
		Confidence: 0.85,
	}
	scorer := &stubScorer{result: remote}
	svc := newTestService(scorer, nil)

	turn, err := svc.Start(context.Background())
	require.NoError(t, err)

	turn = submitNext(t, svc, turn, Answer{Text: "Runny nose and sneezing"})
	turn = submitNext(t, svc, turn, Answer{List: []string{"Nasal congestion", "Sinus pressure"}})
	turn = submitNext(t, svc, turn, Answer{Text: "Gradual onset of symptoms"})
	turn = submitNext(t, svc, turn, Answer{Scale: 3})
	require.Equal(t, StepDuration, turn.Question.Step)
	turn = submitNext(t, svc, turn, Answer{Text: DurationSeveral})
	turn = submitNext(t, svc, turn, Answer{Text: "Haven't measured"})
	require.Equal(t, StepDifferential, turn.Question.Step)
	turn = submitNext(t, svc, turn, Answer{Text: "Symptoms consistent throughout day"})
	final := submitNext(t, svc, turn, Answer{List: []string{"None of the above"}})

	require.NotNil(t, final.Result)
	require.False(t, final.Result.Fallback)
	require.Equal(t, "Sinusitis", final.Result.TopCondition.Name)
	require.Equal(t, 1, scorer.calls)
}

func TestRemoteResultAlwaysCarriesDisclaimers(t *testing.T) {
	// Backends routinely omit disclaimers; the service backfills the
	// defaults so no final report ships without them.
	bare := &stubScorer{result: &AnalysisResult{
		TopCondition: ScoredCondition{Name: "Cold", Confidence: 0.6},
		Urgency:      UrgencyLow,
	}}
	final := runConversation(t, newTestService(bare, nil))
	require.NotEmpty(t, final.Result.Disclaimers)
	require.Len(t, final.Result.Disclaimers, 3)

	// Disclaimers the backend does send are kept as-is.
	custom := &stubScorer{result: &AnalysisResult{
		TopCondition: ScoredCondition{Name: "Cold", Confidence: 0.6},
		Urgency:      UrgencyLow,
		Disclaimers:  []string{"Reviewed by a clinician."},
	}}
	final = runConversation(t, newTestService(custom, nil))
	require.Equal(t, []string{"Reviewed by a clinician."}, final.Result.Disclaimers)
}

// runConversation answers every question with the first acceptable option
// until the final result is produced.
func runConversation(t *testing.T, svc Service) *Turn {
	t.Helper()
	turn, err := svc.Start(context.Background())
	require.NoError(t, err)
	for turn.Result == nil {
		turn = submitNext(t, svc, turn, firstValidAnswer(turn.Question))
	}
	require.NotNil(t, turn.Result)
	return turn
}

func TestSubmitRejectsWrongStep(t *testing.T) {
	svc := newTestService(nil, nil)

	turn, err := svc.Start(context.Background())
	require.NoError(t, err)

	_, err = svc.Submit(context.Background(), turn.SessionID, StepDuration, Answer{Text: DurationCouple})
	require.ErrorIs(t, err, ErrStepMismatch)

	// The session is untouched and still accepts the expected step.
	next, err := svc.Submit(context.Background(), turn.SessionID, StepGreeting, Answer{Text: "Fever and body aches"})
	require.NoError(t, err)
	require.Equal(t, StepPrimarySymptoms, next.Question.Step)
}

func TestSubmitReissuesQuestionOnInvalidAnswer(t *testing.T) {
	svc := newTestService(nil, nil)

	turn, err := svc.Start(context.Background())
	require.NoError(t, err)

	rejected, err := svc.Submit(context.Background(), turn.SessionID, StepGreeting, Answer{Text: "not an option"})
	require.NoError(t, err)
	require.NotNil(t, rejected.Question)
	require.Equal(t, StepGreeting, rejected.Question.Step)
	require.NotEmpty(t, rejected.Question.Validation)

	// Scale answers outside the advertised bounds are rejected the same way.
	next, err := svc.Submit(context.Background(), turn.SessionID, StepGreeting, Answer{Text: "Fever and body aches"})
	require.NoError(t, err)
	for next.Question.Step != StepSeverity {
		next = submitNext(t, svc, next, firstValidAnswer(next.Question))
	}
	rejected, err = svc.Submit(context.Background(), next.SessionID, StepSeverity, Answer{Scale: 0})
	require.NoError(t, err)
	require.Equal(t, StepSeverity, rejected.Question.Step)
	require.NotEmpty(t, rejected.Question.Validation)
}

func TestSubmitUnknownSession(t *testing.T) {
	svc := newTestService(nil, nil)

	_, err := svc.Submit(context.Background(), "session_0_missing", StepGreeting, Answer{Text: "Fever and body aches"})
	require.ErrorIs(t, err, ErrSessionNotFound)
}

func TestSessionIDsAreUnique(t *testing.T) {
	ids := TimeRandomIDs{}
	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		id := ids.NewID()
		require.NotEmpty(t, id)
		require.False(t, seen[id], "duplicate session id %q", id)
		seen[id] = true
	}
}

// firstValidAnswer produces a minimal acceptable answer for the question.
func firstValidAnswer(q *Question) Answer {
	switch q.Kind {
	case KindScale:
		return Answer{Scale: q.Min}
	case KindMultiChoice:
		return Answer{List: []string{q.Options[0]}}
	case KindChoice:
		return Answer{Text: q.Options[0]}
	default:
		return Answer{Text: "n/a"}
	}
}
