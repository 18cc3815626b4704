// Package catalog loads the subject-matter catalog (languages, levels,
// subjects, difficulties) and validates generation requests against it.
// Validation lives here, upstream of the cache key codec: the codec encodes
// whatever it is given.
package catalog

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"

	"github.com/lessonforge/lessonforge/internal/content"
)

// Catalog is the loaded, indexed catalog.
type Catalog struct {
	languages    map[string]language.Tag // name -> parsed tag
	levels       map[string]bool
	subjects     map[string]*SubjectEntry
	difficulties map[string]bool
}

// Load reads and indexes a catalog YAML file.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading catalog: %w", err)
	}
	c, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("loading catalog %s: %w", path, err)
	}

	slog.Info("catalog loaded",
		"languages", len(c.languages),
		"levels", len(c.levels),
		"subjects", len(c.subjects),
	)
	return c, nil
}

// Parse builds a catalog from YAML bytes.
func Parse(data []byte) (*Catalog, error) {
	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("invalid catalog YAML: %w", err)
	}
	if len(doc.Languages) == 0 {
		return nil, fmt.Errorf("catalog declares no languages")
	}
	if len(doc.Subjects) == 0 {
		return nil, fmt.Errorf("catalog declares no subjects")
	}

	c := &Catalog{
		languages:    make(map[string]language.Tag),
		levels:       make(map[string]bool),
		subjects:     make(map[string]*SubjectEntry),
		difficulties: make(map[string]bool),
	}

	for _, l := range doc.Languages {
		tag, err := language.Parse(l.Tag)
		if err != nil {
			return nil, fmt.Errorf("language %q has invalid tag %q: %w", l.Name, l.Tag, err)
		}
		c.languages[l.Name] = tag
	}
	for _, lvl := range doc.Levels {
		c.levels[lvl] = true
	}
	for i := range doc.Subjects {
		s := doc.Subjects[i]
		c.subjects[s.Name] = &s
	}
	if len(doc.Difficulties) == 0 {
		doc.Difficulties = []string{
			string(content.DifficultyBeginner),
			string(content.DifficultyIntermediate),
			string(content.DifficultyAdvanced),
		}
	}
	for _, d := range doc.Difficulties {
		c.difficulties[d] = true
	}

	return c, nil
}

// LanguageTag returns the BCP-47 tag for a catalog language name.
func (c *Catalog) LanguageTag(name string) (language.Tag, bool) {
	tag, ok := c.languages[name]
	return tag, ok
}

// Validate checks a generation request against the catalog. The topic is
// checked after trimming, matching its identity form.
func (c *Catalog) Validate(req content.Request) error {
	if _, ok := c.languages[string(req.Language)]; !ok {
		return fmt.Errorf("unknown language: %q", req.Language)
	}
	if !c.levels[req.Level] {
		return fmt.Errorf("unknown level: %q", req.Level)
	}
	subject, ok := c.subjects[req.Subject]
	if !ok {
		return fmt.Errorf("unknown subject: %q", req.Subject)
	}
	if len(subject.Levels) > 0 && !contains(subject.Levels, req.Level) {
		return fmt.Errorf("subject %q is not taught at level %q", req.Subject, req.Level)
	}
	if !c.difficulties[string(req.Difficulty)] {
		return fmt.Errorf("unknown difficulty: %q", req.Difficulty)
	}

	topic := strings.TrimSpace(req.Topic)
	if topic == "" {
		return fmt.Errorf("topic is required")
	}
	if len(topic) > content.MaxTopicLen {
		return fmt.Errorf("topic exceeds %d characters", content.MaxTopicLen)
	}
	if strings.Contains(topic, "|") {
		return fmt.Errorf("topic must not contain %q", "|")
	}
	return nil
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}
