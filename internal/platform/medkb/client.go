// Package medkb talks to the medical knowledge backend: it fetches the
// condition table and symptom vocabulary, and submits completed answer sets
// for remote scoring.
package medkb

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"medibook/internal/knowledge"
	"medibook/internal/triage"
)

type Client struct {
	baseURL     string
	httpClient  *http.Client
	scoreClient *http.Client
}

// NewClient builds a client for the knowledge backend at baseURL. The
// timeout bounds the knowledge fetches only: analysis requests take their
// budget from the caller's context, so the score client carries no timeout
// of its own.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		scoreClient: &http.Client{},
	}
}

func (c *Client) FetchConditions(ctx context.Context) ([]knowledge.ConditionProfile, error) {
	var body struct {
		Conditions []knowledge.ConditionProfile `json:"conditions"`
	}
	if err := c.getJSON(ctx, "/knowledge/conditions", &body); err != nil {
		return nil, err
	}
	return body.Conditions, nil
}

func (c *Client) FetchVocabulary(ctx context.Context) ([]knowledge.Token, error) {
	var body struct {
		Symptoms []knowledge.Token `json:"symptoms"`
	}
	if err := c.getJSON(ctx, "/knowledge/symptoms", &body); err != nil {
		return nil, err
	}
	return body.Symptoms, nil
}

type scoreRequest struct {
	SessionID string           `json:"session_id"`
	Answers   triage.AnswerMap `json:"user_inputs"`
	Timestamp string           `json:"timestamp"`
}

// Score submits the answers for remote analysis and normalizes the
// historically inconsistent response shapes into one AnalysisResult.
func (c *Client) Score(ctx context.Context, sessionID string, answers triage.AnswerMap) (*triage.AnalysisResult, error) {
	payload, err := json.Marshal(scoreRequest{
		SessionID: sessionID,
		Answers:   answers,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/analyze", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.scoreClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("remote analysis request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("remote analysis returned status %s", resp.Status)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	return decodeAnalysis(raw)
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("knowledge request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("knowledge backend returned status %s", resp.Status)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// Older backend revisions nested the analysis payload under "analysis" or
// "data"; current ones return it top-level. decodeAnalysis is the single
// normalization point for all three shapes.
func decodeAnalysis(raw []byte) (*triage.AnalysisResult, error) {
	var envelope struct {
		Analysis json.RawMessage `json:"analysis"`
		Data     json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, fmt.Errorf("malformed analysis response: %w", err)
	}

	body := raw
	if len(envelope.Analysis) > 0 {
		body = envelope.Analysis
	} else if len(envelope.Data) > 0 {
		body = envelope.Data
	}

	var payload struct {
		TopCondition *triage.ScoredCondition  `json:"top_condition"`
		MostLikely   *triage.ScoredCondition  `json:"most_likely"`
		Alternatives []triage.ScoredCondition `json:"alternatives"`
		Ranked       []triage.ScoredCondition `json:"ranked_conditions"`
		Urgency      triage.Urgency           `json:"urgency"`
		UrgencyLevel triage.Urgency           `json:"urgency_level"`
		Confidence   float64                  `json:"confidence"`
		Disclaimers  []string                 `json:"disclaimers"`

		Recommendation  *triage.Recommendation  `json:"recommendation"`
		Recommendations []triage.Recommendation `json:"recommendations"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("malformed analysis payload: %w", err)
	}

	result := &triage.AnalysisResult{
		Confidence:  payload.Confidence,
		Disclaimers: payload.Disclaimers,
	}

	switch {
	case payload.TopCondition != nil:
		result.TopCondition = *payload.TopCondition
	case payload.MostLikely != nil:
		result.TopCondition = *payload.MostLikely
	case len(payload.Ranked) > 0:
		result.TopCondition = payload.Ranked[0]
		payload.Ranked = payload.Ranked[1:]
	default:
		return nil, fmt.Errorf("analysis payload names no condition")
	}

	alternatives := payload.Alternatives
	if alternatives == nil {
		alternatives = payload.Ranked
	}

	result.Urgency = payload.Urgency
	if result.Urgency == "" {
		result.Urgency = payload.UrgencyLevel
	}
	if result.Urgency == "" {
		result.Urgency = triage.UrgencyMedium
	}

	switch {
	case payload.Recommendation != nil:
		result.Recommendation = *payload.Recommendation
	case len(payload.Recommendations) > 0:
		result.Recommendation = payload.Recommendations[0]
	}

	// Re-enforce the result invariants regardless of what the backend sent.
	result.TopCondition.Confidence = clamp01(result.TopCondition.Confidence)
	if result.Confidence == 0 {
		result.Confidence = result.TopCondition.Confidence
	}
	result.Confidence = clamp01(result.Confidence)
	for _, alt := range alternatives {
		alt.Confidence = clamp01(alt.Confidence)
		if alt.Confidence > 0.1 && alt.Name != result.TopCondition.Name {
			result.Alternatives = append(result.Alternatives, alt)
		}
	}
	return result, nil
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
