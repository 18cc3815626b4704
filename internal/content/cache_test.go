package content

import (
	"reflect"
	"testing"

	"github.com/lessonforge/lessonforge/internal/session"
)

func testRequest() Request {
	return Request{
		Language:   LanguageEnglish,
		Level:      "Primary",
		Subject:    "Mathematics",
		Difficulty: DifficultyBeginner,
		Topic:      "fractions",
	}
}

func testBundle(topic string) Bundle {
	return Bundle{
		Lesson: Lesson{
			Title: "Understanding " + topic,
			Sections: []LessonSection{
				{Heading: "Introduction", Body: "A gentle start."},
				{Heading: "Practice", Body: "Try these."},
			},
		},
		Quiz: Quiz{
			MultipleChoice: []MCQItem{
				{Question: "What is 1/2 + 1/2?", Options: []string{"1", "2", "1/4"}, Answer: 0, Rationale: "Halves sum to a whole."},
			},
			TrueFalse: []TFItem{
				{Statement: "1/3 is larger than 1/2.", Answer: false},
			},
		},
		Reflection: Reflection{Prompt: "What was hardest?"},
		ValidTopic: topic,
	}
}

func TestCache_RoundTrip(t *testing.T) {
	c := NewCache(session.NewMemoryStore())
	req := testRequest()
	bundle := testBundle("Fractions")

	if err := c.Save(req, bundle); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	got, ok := c.Load(req)
	if !ok {
		t.Fatal("Load() should hit after Save()")
	}
	if !reflect.DeepEqual(got, bundle) {
		t.Errorf("Load() = %+v, want %+v", got, bundle)
	}
}

func TestCache_LoadEquivalentRequest(t *testing.T) {
	c := NewCache(session.NewMemoryStore())
	req := testRequest()

	if err := c.Save(req, testBundle("Fractions")); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	later := req
	later.Topic = "  fractions  "
	if _, ok := c.Load(later); !ok {
		t.Error("Load() should hit for an equivalent request with untrimmed topic")
	}
}

func TestCache_Overwrite(t *testing.T) {
	c := NewCache(session.NewMemoryStore())
	req := testRequest()

	if err := c.Save(req, testBundle("First")); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if err := c.Save(req, testBundle("Second")); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	got, ok := c.Load(req)
	if !ok {
		t.Fatal("Load() should hit")
	}
	if got.ValidTopic != "Second" {
		t.Errorf("ValidTopic = %q, want %q (last write wins)", got.ValidTopic, "Second")
	}
}

func TestCache_MissForUnknownRequest(t *testing.T) {
	c := NewCache(session.NewMemoryStore())
	if _, ok := c.Load(testRequest()); ok {
		t.Error("Load() should miss on an empty cache")
	}
}

func TestCache_BackfillFromStore(t *testing.T) {
	store := session.NewMemoryStore()
	req := testRequest()

	first := NewCache(store)
	if err := first.Save(req, testBundle("Fractions")); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	// A fresh cache over the same store simulates a remount: the memory
	// tier is empty but the session store still has the entry.
	second := NewCache(store)
	got, ok := second.Load(req)
	if !ok {
		t.Fatal("Load() should back-fill from the session store")
	}
	if got.ValidTopic != "Fractions" {
		t.Errorf("ValidTopic = %q, want %q", got.ValidTopic, "Fractions")
	}
}

func TestCache_CorruptedEntryIsMiss(t *testing.T) {
	store := session.NewMemoryStore()
	req := testRequest()
	store.Put("gen:"+req.Key(), []byte("{not json"))

	c := NewCache(store)
	if _, ok := c.Load(req); ok {
		t.Error("a corrupted store entry must read as a miss, not an error")
	}
}

func TestCache_DistinctRequestsIsolated(t *testing.T) {
	c := NewCache(session.NewMemoryStore())

	r1 := testRequest()
	r2 := testRequest()
	r2.Topic = "decimals"

	if err := c.Save(r1, testBundle("Fractions")); err != nil {
		t.Fatalf("Save(r1) error = %v", err)
	}
	if err := c.Save(r2, testBundle("Decimals")); err != nil {
		t.Fatalf("Save(r2) error = %v", err)
	}

	b1, ok := c.Load(r1)
	if !ok || b1.ValidTopic != "Fractions" {
		t.Errorf("Load(r1) = %q, %v; want Fractions, true", b1.ValidTopic, ok)
	}
	b2, ok := c.Load(r2)
	if !ok || b2.ValidTopic != "Decimals" {
		t.Errorf("Load(r2) = %q, %v; want Decimals, true", b2.ValidTopic, ok)
	}
}
