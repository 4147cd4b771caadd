package knowledge

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Fetcher retrieves the condition table and symptom vocabulary from the
// remote knowledge service.
type Fetcher interface {
	FetchConditions(ctx context.Context) ([]ConditionProfile, error)
	FetchVocabulary(ctx context.Context) ([]Token, error)
}

// Store owns the condition table and symptom vocabulary for the process.
// It is loaded once and read-only afterwards; a failed remote fetch falls
// back to the built-in table and is logged, never surfaced to callers.
type Store struct {
	fetcher Fetcher
	timeout time.Duration
	logger  zerolog.Logger

	once       sync.Once
	conditions []ConditionProfile
	vocabulary []Token
	source     string
	loadedAt   time.Time
}

// NewStore builds a Store backed by fetcher. A nil fetcher means the
// built-in table is used directly.
func NewStore(fetcher Fetcher, timeout time.Duration, logger zerolog.Logger) *Store {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Store{fetcher: fetcher, timeout: timeout, logger: logger}
}

// Load populates the store. It is idempotent; repeated calls are no-ops.
func (s *Store) Load(ctx context.Context) {
	s.once.Do(func() {
		s.loadedAt = time.Now()
		s.source = "builtin"
		s.conditions = FallbackConditions()

		if s.fetcher == nil {
			return
		}

		fetchCtx, cancel := context.WithTimeout(ctx, s.timeout)
		defer cancel()

		conditions, err := s.fetcher.FetchConditions(fetchCtx)
		if err != nil || len(conditions) == 0 {
			s.logger.Warn().Err(err).Msg("knowledge base unavailable, using built-in condition table")
			return
		}
		s.conditions = conditions
		s.source = "remote"

		vocab, err := s.fetcher.FetchVocabulary(fetchCtx)
		if err != nil {
			s.logger.Warn().Err(err).Msg("symptom vocabulary unavailable, deriving from condition table")
			return
		}
		s.vocabulary = vocab
	})
}

// Conditions returns the loaded condition table in declaration order.
func (s *Store) Conditions() []ConditionProfile {
	s.Load(context.Background())
	return s.conditions
}

// Vocabulary returns the loaded symptom vocabulary. When the remote source
// did not provide one, it is derived from the condition table.
func (s *Store) Vocabulary() []Token {
	s.Load(context.Background())
	if s.vocabulary != nil {
		return s.vocabulary
	}
	set := TokenSet{}
	for _, c := range s.conditions {
		for _, t := range c.Primary {
			set.Add(t)
		}
		for _, t := range c.Secondary {
			set.Add(t)
		}
	}
	return set.Slice()
}

// Source reports where the table came from ("remote" or "builtin").
func (s *Store) Source() string {
	s.Load(context.Background())
	return s.source
}

// LoadedAt reports when the table was loaded.
func (s *Store) LoadedAt() time.Time {
	s.Load(context.Background())
	return s.loadedAt
}
