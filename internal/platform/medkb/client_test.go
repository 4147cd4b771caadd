package medkb

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"medibook/internal/knowledge"
	"medibook/internal/triage"
)

func newTestServer(t *testing.T, path string, status int, body string) *Client {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, path, r.URL.Path)
		w.WriteHeader(status)
		w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return NewClient(srv.URL, time.Second)
}

func TestFetchConditions(t *testing.T) {
	c := newTestServer(t, "/knowledge/conditions", http.StatusOK, `{
		"conditions": [
			{"name": "Flu", "primary_symptoms": ["fever", "chills"], "severity_band": "moderate"},
			{"name": "Cold", "primary_symptoms": ["runny_nose"], "severity_band": "mild"}
		]
	}`)

	conditions, err := c.FetchConditions(context.Background())
	require.NoError(t, err)
	require.Len(t, conditions, 2)
	require.Equal(t, "Flu", conditions[0].Name)
	require.Equal(t, []knowledge.Token{"fever", "chills"}, conditions[0].Primary)
}

func TestFetchConditionsServerError(t *testing.T) {
	c := newTestServer(t, "/knowledge/conditions", http.StatusInternalServerError, "boom")

	_, err := c.FetchConditions(context.Background())
	require.Error(t, err)
}

func TestScoreTopLevelShape(t *testing.T) {
	c := newTestServer(t, "/analyze", http.StatusOK, `{
		"top_condition": {"name": "Flu", "confidence": 0.8},
		"alternatives": [
			{"name": "Cold", "confidence": 0.3},
			{"name": "Allergy", "confidence": 0.05}
		],
		"urgency": "HIGH",
		"confidence": 0.8
	}`)

	result, err := c.Score(context.Background(), "session_1_abc", triage.AnswerMap{})
	require.NoError(t, err)
	require.Equal(t, "Flu", result.TopCondition.Name)
	require.Equal(t, triage.UrgencyHigh, result.Urgency)
	// Sub-threshold alternatives are dropped.
	require.Len(t, result.Alternatives, 1)
	require.Equal(t, "Cold", result.Alternatives[0].Name)
}

func TestScoreNestedAnalysisShape(t *testing.T) {
	c := newTestServer(t, "/analyze", http.StatusOK, `{
		"analysis": {
			"most_likely": {"name": "COVID-19", "confidence": 0.9},
			"ranked_conditions": [{"name": "Flu", "confidence": 0.4}],
			"urgency_level": "URGENT"
		}
	}`)

	result, err := c.Score(context.Background(), "session_1_abc", triage.AnswerMap{})
	require.NoError(t, err)
	require.Equal(t, "COVID-19", result.TopCondition.Name)
	require.Equal(t, triage.UrgencyUrgent, result.Urgency)
	require.Equal(t, 0.9, result.Confidence)
	require.Len(t, result.Alternatives, 1)
	require.Equal(t, "Flu", result.Alternatives[0].Name)
}

func TestScoreRankedOnlyShape(t *testing.T) {
	c := newTestServer(t, "/analyze", http.StatusOK, `{
		"data": {
			"ranked_conditions": [
				{"name": "Allergy", "confidence": 1.7},
				{"name": "Cold", "confidence": 0.5},
				{"name": "Flu", "confidence": 0.08}
			]
		}
	}`)

	result, err := c.Score(context.Background(), "session_1_abc", triage.AnswerMap{})
	require.NoError(t, err)
	// The first ranked condition becomes the top one, confidence clamped.
	require.Equal(t, "Allergy", result.TopCondition.Name)
	require.Equal(t, 1.0, result.TopCondition.Confidence)
	require.Equal(t, 1.0, result.Confidence)
	// Urgency defaults when the backend omits it.
	require.Equal(t, triage.UrgencyMedium, result.Urgency)
	require.Len(t, result.Alternatives, 1)
	require.Equal(t, "Cold", result.Alternatives[0].Name)
}

func TestScoreRejectsEmptyPayload(t *testing.T) {
	c := newTestServer(t, "/analyze", http.StatusOK, `{}`)

	_, err := c.Score(context.Background(), "session_1_abc", triage.AnswerMap{})
	require.Error(t, err)
}

func TestScoreServerError(t *testing.T) {
	c := newTestServer(t, "/analyze", http.StatusBadGateway, "bad gateway")

	_, err := c.Score(context.Background(), "session_1_abc", triage.AnswerMap{})
	require.Error(t, err)
}

func TestScoreBudgetNotCappedByFetchTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(300 * time.Millisecond)
		if r.URL.Path == "/analyze" {
			w.Write([]byte(`{"top_condition": {"name": "Flu", "confidence": 0.8}, "urgency": "LOW"}`))
			return
		}
		w.Write([]byte(`{"conditions": []}`))
	}))
	t.Cleanup(srv.Close)

	c := NewClient(srv.URL, 50*time.Millisecond)

	// The knowledge fetch is bounded by the client timeout.
	_, err := c.FetchConditions(context.Background())
	require.Error(t, err)

	// Scoring runs on the caller's longer budget.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	result, err := c.Score(ctx, "session_1_abc", triage.AnswerMap{})
	require.NoError(t, err)
	require.Equal(t, "Flu", result.TopCondition.Name)
}

func TestScoreRecommendationAliases(t *testing.T) {
	c := newTestServer(t, "/analyze", http.StatusOK, `{
		"top_condition": {"name": "Cold", "confidence": 0.6},
		"recommendations": [
			{"specialist": "General Practitioner", "action": "Rest at home."}
		],
		"urgency": "LOW"
	}`)

	result, err := c.Score(context.Background(), "session_1_abc", triage.AnswerMap{})
	require.NoError(t, err)
	require.Equal(t, "General Practitioner", result.Recommendation.Specialist)
	require.Equal(t, "Rest at home.", result.Recommendation.Action)
}
