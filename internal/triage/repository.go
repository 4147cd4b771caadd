package triage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// Repository is the analytics sink for completed assessments. Sessions
// themselves are never persisted; only the final record is.
type Repository interface {
	Save(ctx context.Context, a *Assessment) error
	GetBySessionID(ctx context.Context, sessionID string) (*Assessment, error)
}

type postgresRepo struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &postgresRepo{db: db}
}

func (r *postgresRepo) Save(ctx context.Context, a *Assessment) error {
	answersJSON, err := json.Marshal(a.Answers)
	if err != nil {
		return err
	}
	resultJSON, err := json.Marshal(a.Result)
	if err != nil {
		return err
	}

	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now()
	}

	query := `
		INSERT INTO assessments (id, session_id, answers, result, urgency, top_condition, fallback, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (session_id) DO UPDATE SET
			answers = $3,
			result = $4,
			urgency = $5,
			top_condition = $6,
			fallback = $7
	`
	_, err = r.db.ExecContext(ctx, query,
		a.ID, a.SessionID, answersJSON, resultJSON, string(a.Result.Urgency), a.Result.TopCondition.Name, a.Fallback, a.CreatedAt)
	return err
}

func (r *postgresRepo) GetBySessionID(ctx context.Context, sessionID string) (*Assessment, error) {
	query := `SELECT id, session_id, answers, result, fallback, created_at FROM assessments WHERE session_id = $1`

	row := r.db.QueryRowContext(ctx, query, sessionID)

	var a Assessment
	var answersJSON, resultJSON []byte

	err := row.Scan(&a.ID, &a.SessionID, &answersJSON, &resultJSON, &a.Fallback, &a.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("assessment not found")
		}
		return nil, err
	}

	if len(answersJSON) > 0 {
		if err := json.Unmarshal(answersJSON, &a.Answers); err != nil {
			return nil, fmt.Errorf("failed to unmarshal answers: %w", err)
		}
	}
	if len(resultJSON) > 0 {
		if err := json.Unmarshal(resultJSON, &a.Result); err != nil {
			return nil, fmt.Errorf("failed to unmarshal result: %w", err)
		}
	}
	a.Result.Fallback = a.Fallback

	return &a, nil
}
