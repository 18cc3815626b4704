// Package generator coordinates content generation: cache lookups, session
// reconciliation, the remote generation call and its in-flight guard.
package generator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/lessonforge/lessonforge/internal/content"
	"github.com/lessonforge/lessonforge/internal/events"
	"github.com/lessonforge/lessonforge/internal/genapi"
	"github.com/lessonforge/lessonforge/internal/session"
)

// ErrInFlight is returned when a generation for an equivalent request is
// already running. The duplicate call starts no second network request;
// callers treat this as "drop", not as a failure to retry.
var ErrInFlight = errors.New("generation already in flight for this request")

// Orchestrator runs the generation flow for one session: cache lookup,
// session reconciliation, the remote call, then the cache write.
type Orchestrator struct {
	api        genapi.ContentAPI
	cache      *content.Cache
	reconciler *session.Reconciler
	events     events.Logger
	sessionID  string

	mu       sync.Mutex
	inFlight map[string]bool
}

// OrchestratorConfig holds dependencies for an Orchestrator.
type OrchestratorConfig struct {
	API        genapi.ContentAPI
	Cache      *content.Cache
	Reconciler *session.Reconciler
	Events     events.Logger
	SessionID  string
}

// NewOrchestrator creates an orchestrator for one session.
func NewOrchestrator(cfg OrchestratorConfig) *Orchestrator {
	ev := cfg.Events
	if ev == nil {
		ev = events.NopLogger{}
	}
	return &Orchestrator{
		api:        cfg.API,
		cache:      cfg.Cache,
		reconciler: cfg.Reconciler,
		events:     ev,
		sessionID:  cfg.SessionID,
		inFlight:   make(map[string]bool),
	}
}

// Generate returns the bundle for a request, from cache when possible.
//
// A duplicate call for an equivalent request while one is running returns
// ErrInFlight without touching the network. A cache hit returns immediately
// and does not reconcile session state. On a miss, per-generation session
// state is cleared before the network call; a transport failure or a
// semantic topic rejection is returned as-is and nothing is cached. The
// in-flight mark is released on every exit path.
func (o *Orchestrator) Generate(ctx context.Context, req content.Request) (content.Bundle, error) {
	key := req.Key()

	o.mu.Lock()
	if o.inFlight[key] {
		o.mu.Unlock()
		slog.Debug("dropping duplicate generation", "key", key)
		return content.Bundle{}, ErrInFlight
	}
	o.inFlight[key] = true
	o.mu.Unlock()

	defer func() {
		o.mu.Lock()
		delete(o.inFlight, key)
		o.mu.Unlock()
	}()

	if bundle, ok := o.cache.Load(req); ok {
		slog.Debug("generation cache hit", "key", key)
		return bundle, nil
	}

	// A genuinely new lesson is starting: drop whatever the previous one
	// left behind before the network call is issued.
	o.reconciler.ResetForNewGeneration()

	bundle, err := o.api.Generate(ctx, req)
	if err != nil {
		var rejected *genapi.TopicRejectedError
		if errors.As(err, &rejected) {
			o.logEvent(events.TypeTopicRejected, map[string]any{
				"subject": rejected.Subject,
				"topic":   rejected.Topic,
			})
			return content.Bundle{}, err
		}
		return content.Bundle{}, fmt.Errorf("generating content: %w", err)
	}

	if err := o.cache.Save(req, bundle); err != nil {
		// The cache is an optimization, never authoritative: hand the
		// bundle back even if persisting it failed.
		slog.Warn("failed to cache generated bundle", "key", key, "error", err)
	}

	o.logEvent(events.TypeGenerated, map[string]any{
		"key":         key,
		"valid_topic": bundle.ValidTopic,
	})

	return bundle, nil
}

// Cache exposes the session's bundle cache for read-by-key display state.
func (o *Orchestrator) Cache() *content.Cache {
	return o.cache
}

func (o *Orchestrator) logEvent(eventType string, data map[string]any) {
	err := o.events.LogEvent(events.Event{
		SessionID: o.sessionID,
		EventType: eventType,
		Data:      data,
	})
	if err != nil {
		slog.Warn("failed to log event", "type", eventType, "error", err)
	}
}
