package triage

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"medibook/internal/knowledge"
)

// ReportRenderer turns a persisted assessment into a printable document.
type ReportRenderer interface {
	Render(a *Assessment) ([]byte, error)
}

type Handler struct {
	svc      Service
	store    *knowledge.Store
	repo     Repository
	reporter ReportRenderer
}

func NewHandler(svc Service, store *knowledge.Store, repo Repository, reporter ReportRenderer) *Handler {
	return &Handler{svc: svc, store: store, repo: repo, reporter: reporter}
}

type submitRequest struct {
	Step   string          `json:"step"`
	Answer json.RawMessage `json:"answer"`
}

func (h *Handler) StartSession(w http.ResponseWriter, r *http.Request) {
	turn, err := h.svc.Start(r.Context())
	if err != nil {
		http.Error(w, "Failed to start session", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusCreated, turn)
}

func (h *Handler) SubmitAnswer(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	var req submitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}
	answer, err := ParseAnswer(req.Answer)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	turn, err := h.svc.Submit(r.Context(), sessionID, Step(req.Step), answer)
	if err != nil {
		switch {
		case errors.Is(err, ErrSessionNotFound):
			http.Error(w, "Session not found", http.StatusNotFound)
		case errors.Is(err, ErrSessionFinished):
			http.Error(w, "Conversation already finished", http.StatusGone)
		case errors.Is(err, ErrStepMismatch):
			http.Error(w, err.Error(), http.StatusConflict)
		default:
			http.Error(w, "Failed to process answer", http.StatusInternalServerError)
		}
		return
	}
	writeJSON(w, http.StatusOK, turn)
}

func (h *Handler) GetKnowledge(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"conditions": h.store.Conditions(),
		"symptoms":   h.store.Vocabulary(),
		"metadata": map[string]any{
			"source":    h.store.Source(),
			"loaded_at": h.store.LoadedAt(),
		},
	})
}

func (h *Handler) GetReport(w http.ResponseWriter, r *http.Request) {
	if h.repo == nil || h.reporter == nil {
		http.Error(w, "Reports are not available", http.StatusNotFound)
		return
	}
	sessionID := chi.URLParam(r, "sessionID")

	a, err := h.repo.GetBySessionID(r.Context(), sessionID)
	if err != nil {
		http.Error(w, "Assessment not found", http.StatusNotFound)
		return
	}

	pdf, err := h.reporter.Render(a)
	if err != nil {
		http.Error(w, "Failed to render report: "+err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `attachment; filename="assessment_`+sessionID+`.pdf"`)
	w.Write(pdf)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func RegisterRoutes(r chi.Router, h *Handler) {
	r.Post("/triage/session", h.StartSession)
	r.Post("/triage/session/{sessionID}/answer", h.SubmitAnswer)
	r.Get("/triage/assessment/{sessionID}/report", h.GetReport)
	r.Get("/triage/knowledge", h.GetKnowledge)
}
