package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/lessonforge/lessonforge/internal/catalog"
	"github.com/lessonforge/lessonforge/internal/content"
	"github.com/lessonforge/lessonforge/internal/events"
	"github.com/lessonforge/lessonforge/internal/export"
	"github.com/lessonforge/lessonforge/internal/genapi"
	"github.com/lessonforge/lessonforge/internal/generator"
	"github.com/lessonforge/lessonforge/internal/notify"
	"github.com/lessonforge/lessonforge/internal/session"
)

// sessionHeader carries the session ID issued by POST /api/session.
const sessionHeader = "X-Session-ID"

// healthCheck probes one configured backend for the readiness endpoint.
type healthCheck struct {
	name  string
	check func(ctx context.Context) error
}

type server struct {
	catalog    *catalog.Catalog
	manager    *generator.Manager
	quiz       genapi.QuizAPI
	bus        *notify.Bus
	events     events.Logger
	listEvents func(ctx context.Context) ([]events.Event, error)
	// health holds one probe per configured backend (redis session store,
	// postgres event log). In-memory backends contribute none.
	health []healthCheck
}

// newMux creates the HTTP router.
func newMux(s *server) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", handleHealthz)
	mux.HandleFunc("GET /readyz", s.handleReadyz)

	mux.HandleFunc("POST /api/session", s.handleNewSession)
	mux.HandleFunc("POST /api/session/reset", s.handleReset)
	mux.HandleFunc("POST /api/generate", s.handleGenerate)
	mux.HandleFunc("GET /api/content", s.handleContent)
	mux.HandleFunc("POST /api/quiz/submit", s.handleQuizSubmit)
	mux.HandleFunc("GET /api/quiz/submission", s.handleQuizSubmission)
	mux.HandleFunc("GET /api/events/export", s.handleEventsExport)
	mux.Handle("GET /ws/status", notify.NewWSHandler(s.bus))

	return mux
}

func handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *server) handleReadyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	for _, hc := range s.health {
		if err := hc.check(ctx); err != nil {
			slog.Warn("readiness check failed", "backend", hc.name, "error", err)
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "unavailable",
				"failed": hc.name,
			})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (s *server) handleNewSession(w http.ResponseWriter, _ *http.Request) {
	id := session.NewID()
	writeJSON(w, http.StatusOK, map[string]string{"session_id": id})
}

// generateBody is the request body for POST /api/generate.
type generateBody struct {
	Language   string `json:"language"`
	Level      string `json:"level"`
	Subject    string `json:"subject"`
	Difficulty string `json:"difficulty"`
	Topic      string `json:"topic"`
	// Debounce marks fire-and-forget triggers (param-change effects). The
	// call is debounced and acknowledged with 202 before anything runs.
	Debounce bool `json:"debounce,omitempty"`
}

func (s *server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	st, ok := s.sessionState(w, r)
	if !ok {
		return
	}

	var body generateBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	req := content.Request{
		Language:   content.Language(body.Language),
		Level:      body.Level,
		Subject:    body.Subject,
		Difficulty: content.Difficulty(body.Difficulty),
		Topic:      body.Topic,
		IssuedAt:   time.Now(),
	}
	if err := s.catalog.Validate(req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if body.Debounce {
		st.Trigger.Call(req)
		w.WriteHeader(http.StatusAccepted)
		return
	}

	_, err := st.Orchestrator.Generate(r.Context(), req)
	switch {
	case errors.Is(err, generator.ErrInFlight):
		writeError(w, http.StatusConflict, "generation already in progress")
		return
	case err != nil:
		var rejected *genapi.TopicRejectedError
		if errors.As(err, &rejected) {
			writeError(w, http.StatusUnprocessableEntity, rejected.Error())
			return
		}
		slog.Error("generation failed", "error", err)
		writeError(w, http.StatusBadGateway, "something went wrong, please try again")
		return
	}

	// Displayed state is always re-derived from the cache by the current
	// request's key, so a slow superseded response can never be served for
	// the wrong request.
	bundle, ok := st.Cache.Load(req)
	if !ok {
		writeError(w, http.StatusBadGateway, "something went wrong, please try again")
		return
	}
	writeJSON(w, http.StatusOK, bundle)
}

func (s *server) handleContent(w http.ResponseWriter, r *http.Request) {
	st, ok := s.sessionState(w, r)
	if !ok {
		return
	}

	q := r.URL.Query()
	req := content.Request{
		Language:   content.Language(q.Get("language")),
		Level:      q.Get("level"),
		Subject:    q.Get("subject"),
		Difficulty: content.Difficulty(q.Get("difficulty")),
		Topic:      q.Get("topic"),
	}

	bundle, ok := st.Cache.Load(req)
	if !ok {
		writeError(w, http.StatusNotFound, "no cached content for this request")
		return
	}
	writeJSON(w, http.StatusOK, bundle)
}

// submitBody is the request body for POST /api/quiz/submit.
type submitBody struct {
	Answers    content.Answers `json:"answers"`
	ContentKey string          `json:"content_key,omitempty"`
}

func (s *server) handleQuizSubmit(w http.ResponseWriter, r *http.Request) {
	st, ok := s.sessionState(w, r)
	if !ok {
		return
	}

	var body submitBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := s.quiz.Submit(r.Context(), body.Answers)
	if err != nil {
		slog.Error("quiz grading failed", "error", err)
		writeError(w, http.StatusBadGateway, "something went wrong, please try again")
		return
	}

	if err := st.Submissions.Save(body.Answers, result, body.ContentKey); err != nil {
		// Grading succeeded; a persistence failure only costs the replay.
		slog.Warn("failed to persist submission", "error", err)
	}
	if err := st.Store.Put(session.KeySaveFlag, []byte("true")); err != nil {
		slog.Warn("failed to set save flag", "error", err)
	}
	s.bus.Publish(st.ID, notify.Notification{
		Type: notify.TypeSaveStatus,
		Data: map[string]any{"submitted": true},
	})
	s.logEvent(st.ID, events.TypeQuizGraded, map[string]any{
		"score":       result.Score,
		"content_key": body.ContentKey,
	})

	writeJSON(w, http.StatusOK, result)
}

func (s *server) handleQuizSubmission(w http.ResponseWriter, r *http.Request) {
	st, ok := s.sessionState(w, r)
	if !ok {
		return
	}

	record, ok := st.Submissions.Load()
	if !ok {
		writeError(w, http.StatusNotFound, "no recent submission")
		return
	}
	writeJSON(w, http.StatusOK, record)
}

func (s *server) handleReset(w http.ResponseWriter, r *http.Request) {
	st, ok := s.sessionState(w, r)
	if !ok {
		return
	}

	st.Reconciler.ResetForNewGeneration()
	s.bus.Publish(st.ID, notify.Notification{
		Type: notify.TypeSaveStatus,
		Data: map[string]any{"submitted": false},
	})
	s.logEvent(st.ID, events.TypeSessionReset, nil)

	w.WriteHeader(http.StatusNoContent)
}

func (s *server) handleEventsExport(w http.ResponseWriter, r *http.Request) {
	evs, err := s.listEvents(r.Context())
	if err != nil {
		slog.Error("failed to list events", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to export events")
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="learning-events.xlsx"`)
	if err := export.WriteEvents(w, evs); err != nil {
		slog.Error("failed to write export", "error", err)
	}
}

func (s *server) sessionState(w http.ResponseWriter, r *http.Request) (*generator.SessionState, bool) {
	id := r.Header.Get(sessionHeader)
	if id == "" {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("%s header is required", sessionHeader))
		return nil, false
	}
	return s.manager.Session(id), true
}

func (s *server) logEvent(sessionID, eventType string, data map[string]any) {
	err := s.events.LogEvent(events.Event{
		SessionID: sessionID,
		EventType: eventType,
		Data:      data,
	})
	if err != nil {
		slog.Warn("failed to log event", "type", eventType, "error", err)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
