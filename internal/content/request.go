// Package content defines the generated-content domain types and the
// session-scoped caches built on top of them.
package content

import (
	"strings"
	"time"
)

// Language is the language a bundle is generated in.
type Language string

const (
	LanguageEnglish Language = "English"
	LanguageFrench  Language = "French"
)

// Difficulty is the requested difficulty of a bundle.
type Difficulty string

const (
	DifficultyBeginner     Difficulty = "Beginner"
	DifficultyIntermediate Difficulty = "Intermediate"
	DifficultyAdvanced     Difficulty = "Advanced"
)

// MaxTopicLen is the longest topic accepted by the form layer.
const MaxTopicLen = 150

// keyDelimiter joins the identity fields of a request. It must not appear
// in any field value; the catalog rejects topics containing it.
const keyDelimiter = "|"

// Request describes one content-generation request. Level and Subject are
// catalog-defined; validation happens in the catalog package, not here.
type Request struct {
	Language   Language   `json:"language"`
	Level      string     `json:"level"`
	Subject    string     `json:"subject"`
	Difficulty Difficulty `json:"difficulty"`
	Topic      string     `json:"topic"`
	IssuedAt   time.Time  `json:"issued_at,omitempty"`
}

// Key derives the cache key from the five identity fields. IssuedAt is
// deliberately excluded so re-issuing the same semantic request later still
// hits the cache. Fields are encoded as-is, case-sensitively; the topic is
// trimmed because trailing whitespace is not part of a request's identity.
func (r Request) Key() string {
	return strings.Join([]string{
		string(r.Language),
		r.Level,
		r.Subject,
		string(r.Difficulty),
		strings.TrimSpace(r.Topic),
	}, keyDelimiter)
}

// Equivalent reports whether two requests map to the same cache entry.
func (r Request) Equivalent(other Request) bool {
	return r.Key() == other.Key()
}
