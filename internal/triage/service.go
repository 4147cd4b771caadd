package triage

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// RemoteScorer is the remote analysis path. It may return an enriched
// result; any failure makes the controller fall back to the local engine.
// We define it here to decouple from the specific client implementation.
type RemoteScorer interface {
	Score(ctx context.Context, sessionID string, answers AnswerMap) (*AnalysisResult, error)
}

// IDGenerator produces opaque session identifiers.
type IDGenerator interface {
	NewID() string
}

// Errors surfaced to the HTTP layer.
var (
	ErrSessionNotFound = errors.New("session not found")
	ErrSessionFinished = errors.New("conversation already finished")
	ErrStepMismatch    = errors.New("answer does not match the current step")
)

// Turn is the outcome of one submit call: either the next question or the
// final analysis result.
type Turn struct {
	SessionID string          `json:"session_id"`
	Question  *Question       `json:"question,omitempty"`
	Result    *AnalysisResult `json:"result,omitempty"`
}

type Service interface {
	Start(ctx context.Context) (*Turn, error)
	Submit(ctx context.Context, sessionID string, step Step, answer Answer) (*Turn, error)
}

type service struct {
	planner *Planner
	engine  *Engine
	scorer  RemoteScorer
	repo    Repository
	ids     IDGenerator
	logger  zerolog.Logger

	analysisTimeout time.Duration

	mu       sync.RWMutex
	sessions map[string]*Session
}

func NewService(planner *Planner, engine *Engine, scorer RemoteScorer, repo Repository, ids IDGenerator, analysisTimeout time.Duration, logger zerolog.Logger) Service {
	if ids == nil {
		ids = TimeRandomIDs{}
	}
	if analysisTimeout <= 0 {
		analysisTimeout = 30 * time.Second
	}
	return &service{
		planner:         planner,
		engine:          engine,
		scorer:          scorer,
		repo:            repo,
		ids:             ids,
		logger:          logger,
		analysisTimeout: analysisTimeout,
		sessions:        make(map[string]*Session),
	}
}

// TimeRandomIDs generates session ids with a time prefix and a random
// suffix, unique per session with high probability.
type TimeRandomIDs struct{}

func (TimeRandomIDs) NewID() string {
	return fmt.Sprintf("session_%d_%s", time.Now().UnixMilli(), uuid.NewString()[:8])
}

func (s *service) Start(ctx context.Context) (*Turn, error) {
	sess := &Session{
		ID:        s.ids.NewID(),
		Step:      StepGreeting,
		Answers:   AnswerMap{},
		CreatedAt: time.Now(),
	}
	sess.pending = s.planner.Question(StepGreeting, sess.Answers)

	s.mu.Lock()
	s.sessions[sess.ID] = sess
	s.mu.Unlock()

	q := sess.pending
	return &Turn{SessionID: sess.ID, Question: &q}, nil
}

// Submit stores the answer for the session's current step and advances the
// conversation. Submitting for any other step is an integration error and
// leaves the session untouched. A rejected answer re-issues the same
// question with a validation message.
func (s *service) Submit(ctx context.Context, sessionID string, step Step, answer Answer) (*Turn, error) {
	s.mu.RLock()
	sess, ok := s.sessions[sessionID]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrSessionNotFound
	}
	if sess.finished {
		return nil, ErrSessionFinished
	}
	if step != sess.Step {
		return nil, fmt.Errorf("%w: expected %q, got %q", ErrStepMismatch, sess.Step, step)
	}

	if msg := validate(sess.pending, answer); msg != "" {
		q := sess.pending
		q.Validation = msg
		return &Turn{SessionID: sessionID, Question: &q}, nil
	}

	sess.Answers[step] = answer

	next, terminal := s.planner.Next(step, sess.Answers)
	if !terminal {
		sess.Step = next.Step
		sess.pending = next
		return &Turn{SessionID: sessionID, Question: &next}, nil
	}

	result := s.analyze(ctx, sess)
	if result.Urgency.AtLeast(UrgencyHigh) {
		s.logger.Info().Str("session_id", sessionID).Str("urgency", string(result.Urgency)).Msg("elevated urgency assessment")
	}
	sess.finished = true

	s.mu.Lock()
	delete(s.sessions, sessionID)
	s.mu.Unlock()

	s.persist(sess, result)
	return &Turn{SessionID: sessionID, Result: &result}, nil
}

// analyze prefers the remote scoring path and falls back to the local
// engine on any failure, so the user always receives a result.
func (s *service) analyze(ctx context.Context, sess *Session) AnalysisResult {
	if s.scorer != nil {
		scoreCtx, cancel := context.WithTimeout(ctx, s.analysisTimeout)
		defer cancel()

		remote, err := s.scorer.Score(scoreCtx, sess.ID, sess.Answers)
		if err == nil && remote != nil {
			if len(remote.Disclaimers) == 0 {
				remote.Disclaimers = defaultDisclaimers
			}
			return *remote
		}
		s.logger.Warn().Err(err).Str("session_id", sess.ID).Msg("remote analysis failed, falling back to local engine")
	}

	result := s.engine.Analyze(sess.Answers)
	result.Fallback = s.scorer != nil
	return result
}

// persist writes the completed assessment in the background, best-effort.
func (s *service) persist(sess *Session, result AnalysisResult) {
	if s.repo == nil {
		return
	}
	a := Assessment{
		ID:        uuid.New(),
		SessionID: sess.ID,
		Answers:   sess.Answers,
		Result:    result,
		Fallback:  result.Fallback,
		CreatedAt: time.Now(),
	}
	go func() {
		if err := s.repo.Save(context.Background(), &a); err != nil {
			s.logger.Error().Err(err).Str("session_id", sess.ID).Msg("failed to persist assessment")
		}
	}()
}

// validate checks an answer against the question it responds to. It
// returns an empty string when the answer is acceptable.
func validate(q Question, a Answer) string {
	switch q.Kind {
	case KindScale:
		if a.Scale < q.Min || a.Scale > q.Max {
			return fmt.Sprintf("Please pick a value between %d and %d.", q.Min, q.Max)
		}
	case KindChoice:
		if a.Text == "" || !optionOffered(q.Options, a.Text) {
			return "Please choose one of the listed options."
		}
	case KindMultiChoice:
		if len(a.List) == 0 {
			return "Please select at least one option."
		}
		for _, label := range a.List {
			if !optionOffered(q.Options, label) {
				return fmt.Sprintf("%q is not one of the listed options.", label)
			}
		}
	}
	return ""
}

func optionOffered(options []string, label string) bool {
	for _, o := range options {
		if o == label {
			return true
		}
	}
	return false
}
