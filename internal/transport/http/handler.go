// Package http exposes the live and practice use cases over a REST API plus
// a websocket lobby stream.
package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"managemind-quiz-service/internal/app"
	"managemind-quiz-service/internal/client"
	"managemind-quiz-service/internal/domain"
)

// Handler serves the REST API.
type Handler struct {
	log      *zap.Logger
	live     *app.LiveService
	practice *app.PracticeService
}

func NewHandler(live *app.LiveService, practice *app.PracticeService, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{log: log, live: live, practice: practice}
}

// Register wires all routes onto the mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/live/create", h.createSession)
	mux.HandleFunc("POST /api/live/create-advanced", h.createAdvancedSession)
	mux.HandleFunc("POST /api/live/join/{code}", h.joinSession)
	mux.HandleFunc("GET /api/live/{id}/status", h.sessionStatus)
	mux.HandleFunc("POST /api/live/{id}/start", h.startSession)
	mux.HandleFunc("POST /api/live/{id}/end", h.endSession)
	mux.HandleFunc("GET /api/live/{id}/questions", h.sessionQuestions)
	mux.HandleFunc("POST /api/live/{id}/submit", h.submitAnswers)
	mux.HandleFunc("GET /api/live/{id}/leaderboard", h.leaderboard)

	mux.HandleFunc("GET /api/quizzes", h.practiceQuestions)
	mux.HandleFunc("POST /api/quizzes/submit", h.submitPractice)
	mux.HandleFunc("GET /api/quizzes/export/{attemptId}", h.exportAttempt)

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
}

func (h *Handler) createSession(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	duration, _ := strconv.Atoi(q.Get("duration_minutes"))
	session, err := h.live.Create(r.Context(), app.BasicParams{
		HostID:          q.Get("host_id"),
		Unit:            q.Get("unit"),
		Topic:           q.Get("topic"),
		DurationMinutes: duration,
	})
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, session)
}

func (h *Handler) createAdvancedSession(w http.ResponseWriter, r *http.Request) {
	var params client.AdvancedSessionParams
	if err := json.NewDecoder(r.Body).Decode(&params); err != nil {
		h.writeDetail(w, http.StatusBadRequest, "invalid request body")
		return
	}
	session, err := h.live.CreateAdvanced(r.Context(), params.HostID, params.DurationMinutes, params.SyllabusSelections)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, session)
}

func (h *Handler) joinSession(w http.ResponseWriter, r *http.Request) {
	code := r.PathValue("code")
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		h.writeDetail(w, http.StatusBadRequest, "user_id is required")
		return
	}
	sessionID, err := h.live.Join(r.Context(), code, userID, r.URL.Query().Get("name"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"sessionId": sessionID})
}

func (h *Handler) sessionStatus(w http.ResponseWriter, r *http.Request) {
	snap, err := h.live.Status(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, snap)
}

func (h *Handler) startSession(w http.ResponseWriter, r *http.Request) {
	err := h.live.Start(r.Context(), r.PathValue("id"), r.URL.Query().Get("host_id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "active"})
}

func (h *Handler) endSession(w http.ResponseWriter, r *http.Request) {
	err := h.live.End(r.Context(), r.PathValue("id"), r.URL.Query().Get("host_id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "ended"})
}

func (h *Handler) sessionQuestions(w http.ResponseWriter, r *http.Request) {
	questions, err := h.live.Questions(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, questions)
}

func (h *Handler) submitAnswers(w http.ResponseWriter, r *http.Request) {
	var submission domain.SessionSubmission
	if err := json.NewDecoder(r.Body).Decode(&submission); err != nil {
		h.writeDetail(w, http.StatusBadRequest, "invalid request body")
		return
	}
	result, err := h.live.Submit(r.Context(), r.PathValue("id"), submission)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, result)
}

func (h *Handler) leaderboard(w http.ResponseWriter, r *http.Request) {
	report, err := h.live.Leaderboard(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, report)
}

func (h *Handler) practiceQuestions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	questions, err := h.practice.Questions(r.Context(), domain.QuestionFilter{
		Unit:  q.Get("unit"),
		Topic: q.Get("topic"),
		Limit: limit,
	})
	if err != nil {
		h.writeError(w, err)
		return
	}
	if questions == nil {
		questions = []domain.Question{}
	}
	h.writeJSON(w, http.StatusOK, questions)
}

func (h *Handler) submitPractice(w http.ResponseWriter, r *http.Request) {
	var attempt domain.PracticeAttempt
	if err := json.NewDecoder(r.Body).Decode(&attempt); err != nil {
		h.writeDetail(w, http.StatusBadRequest, "invalid request body")
		return
	}
	attemptID, err := h.practice.Submit(r.Context(), attempt)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, map[string]string{"attemptId": attemptID})
}

func (h *Handler) exportAttempt(w http.ResponseWriter, r *http.Request) {
	out, err := h.practice.Export(r.Context(), r.PathValue("attemptId"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Write(out)
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.log.Warn("write response", zap.Error(err))
	}
}

func (h *Handler) writeDetail(w http.ResponseWriter, status int, detail string) {
	h.writeJSON(w, status, map[string]string{"detail": detail})
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrSessionNotFound), errors.Is(err, domain.ErrAttemptNotFound):
		h.writeDetail(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrNotHost):
		h.writeDetail(w, http.StatusForbidden, err.Error())
	case errors.Is(err, domain.ErrAlreadySubmitted):
		h.writeDetail(w, http.StatusConflict, err.Error())
	case errors.Is(err, domain.ErrSessionEnded),
		errors.Is(err, domain.ErrSessionNotActive),
		errors.Is(err, domain.ErrParticipantNotFound),
		errors.Is(err, domain.ErrNoQuestions),
		errors.Is(err, domain.ErrStartFailed):
		h.writeDetail(w, http.StatusBadRequest, err.Error())
	default:
		h.log.Error("request failed", zap.Error(err))
		h.writeDetail(w, http.StatusInternalServerError, "internal error")
	}
}
