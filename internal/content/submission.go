package content

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/lessonforge/lessonforge/internal/session"
)

// DefaultSubmissionTTL is how long a graded submission is replayed on
// remount before it is treated as stale.
const DefaultSubmissionTTL = 15 * time.Minute

// SubmissionCache persists the session's graded quiz submission under a
// single fixed key. One record per session: a new submission overwrites the
// previous one, whatever quiz it belonged to.
type SubmissionCache struct {
	store session.Store
	ttl   time.Duration
	now   func() time.Time
}

// SubmissionOption configures a SubmissionCache.
type SubmissionOption func(*SubmissionCache)

// WithSubmissionTTL overrides the record time-to-live.
func WithSubmissionTTL(ttl time.Duration) SubmissionOption {
	return func(c *SubmissionCache) {
		c.ttl = ttl
	}
}

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) SubmissionOption {
	return func(c *SubmissionCache) {
		c.now = now
	}
}

// NewSubmissionCache creates a submission cache over the given session store.
func NewSubmissionCache(store session.Store, opts ...SubmissionOption) *SubmissionCache {
	c := &SubmissionCache{
		store: store,
		ttl:   DefaultSubmissionTTL,
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Save records a freshly graded submission, stamped with the current time.
func (c *SubmissionCache) Save(answers Answers, result GradedResult, contentKey string) error {
	record := SubmissionRecord{
		Submitted:  true,
		Answers:    answers,
		Result:     result,
		ContentKey: contentKey,
		Timestamp:  c.now(),
	}

	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshal submission: %w", err)
	}
	if err := c.store.Put(session.KeySubmission, data); err != nil {
		return fmt.Errorf("persist submission: %w", err)
	}
	return nil
}

// Load returns the persisted submission if it is younger than the TTL.
// A record past the TTL is deleted on read and reported absent; it cannot
// resurface on a later Load. A corrupted record reads as absent.
func (c *SubmissionCache) Load() (SubmissionRecord, bool) {
	data, ok := c.store.Get(session.KeySubmission)
	if !ok {
		return SubmissionRecord{}, false
	}

	var record SubmissionRecord
	if err := json.Unmarshal(data, &record); err != nil {
		slog.Warn("discarding corrupted submission record", "error", err)
		c.Clear()
		return SubmissionRecord{}, false
	}

	if c.now().Sub(record.Timestamp) > c.ttl {
		slog.Debug("submission record expired", "age", c.now().Sub(record.Timestamp))
		c.Clear()
		return SubmissionRecord{}, false
	}

	return record, true
}

// Clear unconditionally deletes the submission record.
func (c *SubmissionCache) Clear() {
	if err := c.store.Delete(session.KeySubmission); err != nil {
		slog.Warn("failed to clear submission record", "error", err)
	}
}
