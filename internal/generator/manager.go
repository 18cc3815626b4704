package generator

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/lessonforge/lessonforge/internal/content"
	"github.com/lessonforge/lessonforge/internal/events"
	"github.com/lessonforge/lessonforge/internal/genapi"
	"github.com/lessonforge/lessonforge/internal/session"
)

// SessionState bundles everything owned by one session: its store, caches,
// reconciler and orchestrator.
type SessionState struct {
	ID           string
	Store        session.Store
	Cache        *content.Cache
	Submissions  *content.SubmissionCache
	Reconciler   *session.Reconciler
	Orchestrator *Orchestrator
	// Trigger debounces fire-and-forget generation requests, e.g. the
	// fetch-on-param-change effect. A dropped duplicate is not an error.
	Trigger *Debouncer[content.Request]
}

// Manager hands out per-session state, creating it lazily. It is the one
// place session-scoped components are wired together, so none of them live
// as free-standing globals.
type Manager struct {
	api           genapi.ContentAPI
	stores        session.Factory
	events        events.Logger
	submissionTTL time.Duration
	debounceQuiet time.Duration
	// baseCtx bounds debounced generations, which run outside any request;
	// cancelling it (server shutdown) aborts their network calls.
	baseCtx context.Context

	mu       sync.Mutex
	sessions map[string]*SessionState
}

// ManagerConfig holds dependencies for a Manager.
type ManagerConfig struct {
	API           genapi.ContentAPI
	Stores        session.Factory
	Events        events.Logger
	SubmissionTTL time.Duration   // zero means the default TTL
	DebounceQuiet time.Duration   // zero means the default quiet period
	BaseContext   context.Context // bounds debounced generations; nil means Background
}

// defaultDebounceQuiet matches the front-end's generate-button debounce.
const defaultDebounceQuiet = 400 * time.Millisecond

// NewManager creates a session-state manager.
func NewManager(cfg ManagerConfig) *Manager {
	ev := cfg.Events
	if ev == nil {
		ev = events.NopLogger{}
	}
	stores := cfg.Stores
	if stores == nil {
		stores = session.NewMemoryFactory()
	}
	ttl := cfg.SubmissionTTL
	if ttl == 0 {
		ttl = content.DefaultSubmissionTTL
	}
	quiet := cfg.DebounceQuiet
	if quiet == 0 {
		quiet = defaultDebounceQuiet
	}
	baseCtx := cfg.BaseContext
	if baseCtx == nil {
		baseCtx = context.Background()
	}
	return &Manager{
		api:           cfg.API,
		stores:        stores,
		events:        ev,
		submissionTTL: ttl,
		debounceQuiet: quiet,
		baseCtx:       baseCtx,
		sessions:      make(map[string]*SessionState),
	}
}

// Session returns the state for a session ID, creating it on first use.
func (m *Manager) Session(id string) *SessionState {
	m.mu.Lock()
	defer m.mu.Unlock()

	if st, ok := m.sessions[id]; ok {
		return st
	}

	store := m.stores.For(id)
	reconciler := session.NewReconciler(store)
	cache := content.NewCache(store)

	st := &SessionState{
		ID:          id,
		Store:       store,
		Cache:       cache,
		Submissions: content.NewSubmissionCache(store, content.WithSubmissionTTL(m.submissionTTL)),
		Reconciler:  reconciler,
		Orchestrator: NewOrchestrator(OrchestratorConfig{
			API:        m.api,
			Cache:      cache,
			Reconciler: reconciler,
			Events:     m.events,
			SessionID:  id,
		}),
	}
	st.Trigger = NewDebouncer(m.debounceQuiet, func(req content.Request) error {
		_, err := st.Orchestrator.Generate(m.baseCtx, req)
		if errors.Is(err, ErrInFlight) {
			return nil
		}
		return err
	})
	m.sessions[id] = st
	return st
}
