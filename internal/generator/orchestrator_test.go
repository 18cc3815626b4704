package generator

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/lessonforge/lessonforge/internal/content"
	"github.com/lessonforge/lessonforge/internal/events"
	"github.com/lessonforge/lessonforge/internal/genapi"
	"github.com/lessonforge/lessonforge/internal/session"
)

func testRequest(topic string) content.Request {
	return content.Request{
		Language:   content.LanguageEnglish,
		Level:      "Primary",
		Subject:    "Mathematics",
		Difficulty: content.DifficultyBeginner,
		Topic:      topic,
		IssuedAt:   time.Now(),
	}
}

func testBundle(topic string) content.Bundle {
	return content.Bundle{
		Lesson:     content.Lesson{Title: "About " + topic},
		ValidTopic: topic,
	}
}

type fixture struct {
	store        *session.MemoryStore
	cache        *content.Cache
	submissions  *content.SubmissionCache
	api          *genapi.MockContentAPI
	events       *events.MemoryLogger
	orchestrator *Orchestrator
}

func newFixture(api *genapi.MockContentAPI) *fixture {
	store := session.NewMemoryStore()
	cache := content.NewCache(store)
	ev := events.NewMemoryLogger()
	return &fixture{
		store:       store,
		cache:       cache,
		submissions: content.NewSubmissionCache(store),
		api:         api,
		events:      ev,
		orchestrator: NewOrchestrator(OrchestratorConfig{
			API:        api,
			Cache:      cache,
			Reconciler: session.NewReconciler(store),
			Events:     ev,
			SessionID:  "test-session",
		}),
	}
}

func TestOrchestrator_GenerateAndCacheHit(t *testing.T) {
	f := newFixture(genapi.NewMockContentAPI(testBundle("Fractions")))
	req := testRequest("fractions")

	bundle, err := f.orchestrator.Generate(t.Context(), req)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if bundle.ValidTopic != "Fractions" {
		t.Errorf("ValidTopic = %q, want %q", bundle.ValidTopic, "Fractions")
	}

	// An identical request within the session replays the cache without a
	// second upstream call.
	again, err := f.orchestrator.Generate(t.Context(), req)
	if err != nil {
		t.Fatalf("second Generate() error = %v", err)
	}
	if again.ValidTopic != "Fractions" {
		t.Errorf("cached ValidTopic = %q, want %q", again.ValidTopic, "Fractions")
	}
	if f.api.Calls() != 1 {
		t.Errorf("upstream calls = %d, want 1", f.api.Calls())
	}
}

func TestOrchestrator_InFlightGuard(t *testing.T) {
	release := make(chan struct{})
	api := genapi.NewMockContentAPI(testBundle("Fractions"))
	api.Delay = release
	f := newFixture(api)
	req := testRequest("fractions")

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		if _, err := f.orchestrator.Generate(context.Background(), req); err != nil {
			t.Errorf("first Generate() error = %v", err)
		}
	}()

	// Wait until the first call has reached the backend.
	deadline := time.After(2 * time.Second)
	for api.Calls() == 0 {
		select {
		case <-deadline:
			t.Fatal("first Generate() never reached the backend")
		case <-time.After(time.Millisecond):
		}
	}

	_, err := f.orchestrator.Generate(context.Background(), req)
	if !errors.Is(err, ErrInFlight) {
		t.Fatalf("duplicate Generate() error = %v, want ErrInFlight", err)
	}

	close(release)
	wg.Wait()

	if api.Calls() != 1 {
		t.Errorf("upstream calls = %d, want 1", api.Calls())
	}

	// The guard is released after completion: a new call is allowed (and
	// served from cache).
	if _, err := f.orchestrator.Generate(context.Background(), req); err != nil {
		t.Errorf("Generate() after completion error = %v", err)
	}
}

func TestOrchestrator_CacheHitSkipsReconcile(t *testing.T) {
	f := newFixture(genapi.NewMockContentAPI(testBundle("Fractions")))
	req := testRequest("fractions")

	if err := f.cache.Save(req, testBundle("Fractions")); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if err := f.submissions.Save(content.Answers{MultipleChoice: []int{0}}, content.GradedResult{Score: 1}, req.Key()); err != nil {
		t.Fatalf("submission Save() error = %v", err)
	}

	if _, err := f.orchestrator.Generate(t.Context(), req); err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	if f.api.Calls() != 0 {
		t.Errorf("upstream calls = %d, want 0 on cache hit", f.api.Calls())
	}
	if _, ok := f.submissions.Load(); !ok {
		t.Error("cache-hit replay must not reconcile away the submission")
	}
}

func TestOrchestrator_MissReconcilesBeforeCall(t *testing.T) {
	f := newFixture(genapi.NewMockContentAPI(testBundle("Decimals")))

	if err := f.submissions.Save(content.Answers{TrueFalse: []bool{true}}, content.GradedResult{Score: 1}, "old-key"); err != nil {
		t.Fatalf("submission Save() error = %v", err)
	}
	f.store.Put(session.KeyReflectionText, []byte(`"my draft"`))

	if _, err := f.orchestrator.Generate(t.Context(), testRequest("decimals")); err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	if _, ok := f.submissions.Load(); ok {
		t.Error("previous lesson's submission must be cleared on a new generation")
	}
	if _, ok := f.store.Get(session.KeyReflectionText); ok {
		t.Error("previous lesson's reflection draft must be cleared")
	}
}

func TestOrchestrator_TopicRejectionNotCached(t *testing.T) {
	api := genapi.NewMockContentAPI(content.Bundle{})
	api.Err = &genapi.TopicRejectedError{Subject: "Mathematics", Topic: "medieval poetry"}
	f := newFixture(api)
	req := testRequest("medieval poetry")

	_, err := f.orchestrator.Generate(t.Context(), req)
	var rejected *genapi.TopicRejectedError
	if !errors.As(err, &rejected) {
		t.Fatalf("error = %v, want TopicRejectedError", err)
	}

	if _, ok := f.cache.Load(req); ok {
		t.Error("a rejected topic must not be cached")
	}

	// The rejection was recorded for analytics.
	evs := f.events.Events()
	if len(evs) != 1 || evs[0].EventType != events.TypeTopicRejected {
		t.Errorf("events = %+v, want one %s event", evs, events.TypeTopicRejected)
	}

	// Rejection is per-attempt: the guard is released and a retry reaches
	// the backend again.
	f.orchestrator.Generate(t.Context(), req)
	if api.Calls() != 2 {
		t.Errorf("upstream calls = %d, want 2", api.Calls())
	}
}

func TestOrchestrator_TransportFailureNotCached(t *testing.T) {
	api := genapi.NewMockContentAPI(content.Bundle{})
	api.Err = &genapi.APIError{StatusCode: 503, Message: "upstream unavailable"}
	f := newFixture(api)
	req := testRequest("fractions")

	if _, err := f.orchestrator.Generate(t.Context(), req); err == nil {
		t.Fatal("Generate() should fail on a transport error")
	}
	if _, ok := f.cache.Load(req); ok {
		t.Error("a failed generation must not be cached")
	}
}

func TestOrchestrator_DistinctRequestsBothComplete(t *testing.T) {
	f := newFixture(genapi.NewMockContentAPI(testBundle("Anything")))
	r1 := testRequest("fractions")
	r2 := testRequest("decimals")

	var wg sync.WaitGroup
	for _, req := range []content.Request{r1, r2} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := f.orchestrator.Generate(context.Background(), req); err != nil {
				t.Errorf("Generate(%q) error = %v", req.Topic, err)
			}
		}()
	}
	wg.Wait()

	if f.api.Calls() != 2 {
		t.Errorf("upstream calls = %d, want 2 for distinct requests", f.api.Calls())
	}
	if _, ok := f.cache.Load(r1); !ok {
		t.Error("r1 should be cached under its own key")
	}
	if _, ok := f.cache.Load(r2); !ok {
		t.Error("r2 should be cached under its own key")
	}
}

func TestManager_SessionLifecycle(t *testing.T) {
	m := NewManager(ManagerConfig{
		API: genapi.NewMockContentAPI(testBundle("Fractions")),
	})

	a := m.Session("session-a")
	if a == nil || a.Orchestrator == nil || a.Trigger == nil {
		t.Fatal("Session() must wire all session components")
	}
	if m.Session("session-a") != a {
		t.Error("Session() must return the same state for the same ID")
	}
	if m.Session("session-b") == a {
		t.Error("distinct sessions must get distinct state")
	}

	// Session stores are isolated: a's cache writes don't leak into b.
	req := testRequest("fractions")
	if _, err := a.Orchestrator.Generate(t.Context(), req); err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if _, ok := m.Session("session-b").Cache.Load(req); ok {
		t.Error("session-b must not see session-a's cached bundle")
	}
}

func TestManager_TriggerAbortsOnShutdown(t *testing.T) {
	ctx, cancel := context.WithCancel(t.Context())
	api := genapi.NewMockContentAPI(testBundle("Fractions"))
	api.Delay = make(chan struct{}) // backend never responds
	m := NewManager(ManagerConfig{
		API:           api,
		DebounceQuiet: time.Millisecond,
		BaseContext:   ctx,
	})
	st := m.Session("session-a")

	errc := st.Trigger.Call(testRequest("fractions"))

	// Wait until the debounced generation is in flight, then shut down.
	deadline := time.After(2 * time.Second)
	for api.Calls() == 0 {
		select {
		case <-deadline:
			t.Fatal("debounced generate never reached the backend")
		case <-time.After(time.Millisecond):
		}
	}
	cancel()

	select {
	case err := <-errc:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("error = %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("in-flight debounced generation ignored shutdown")
	}
}

func TestManager_DebouncedTrigger(t *testing.T) {
	api := genapi.NewMockContentAPI(testBundle("Fractions"))
	m := NewManager(ManagerConfig{
		API:           api,
		DebounceQuiet: 20 * time.Millisecond,
	})
	st := m.Session("session-a")

	var errc <-chan error
	for range 5 {
		errc = st.Trigger.Call(testRequest("fractions"))
	}

	select {
	case err := <-errc:
		if err != nil {
			t.Fatalf("debounced generate error = %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("debounced generate never fired")
	}

	if api.Calls() != 1 {
		t.Errorf("upstream calls = %d, want 1", api.Calls())
	}
	if _, ok := st.Cache.Load(testRequest("fractions")); !ok {
		t.Error("debounced generation should populate the cache")
	}
}
