package session

import "log/slog"

// Session-storage keys for ephemeral per-generation state. These mirror the
// keys the web client persists between remounts.
const (
	KeySubmission          = "submitted_quiz_data"
	KeyReflectionText      = "reflection_text"
	KeyReflectionFeedback  = "reflection_feedback"
	KeyReflectionSubmitted = "reflection_submitted"
	KeyLessonRating        = "lesson_rating"
	KeyLessonFeedback      = "lesson_feedback"
	KeyLessonFbSubmitted   = "lesson_feedback_submitted"
	KeySaveFlag            = "save_flag"
)

// ephemeralKeys is everything that belongs to one generation cycle and must
// not leak into the next.
var ephemeralKeys = []string{
	KeySubmission,
	KeyReflectionText,
	KeyReflectionFeedback,
	KeyReflectionSubmitted,
	KeyLessonRating,
	KeyLessonFeedback,
	KeyLessonFbSubmitted,
	KeySaveFlag,
}

// Reconciler clears per-generation session state so answers and drafts from
// a previous lesson never leak into a newly generated one.
type Reconciler struct {
	store Store
}

// NewReconciler creates a reconciler over the given session store.
func NewReconciler(store Store) *Reconciler {
	return &Reconciler{store: store}
}

// ResetForNewGeneration deletes all ephemeral flags, drafts and the quiz
// submission record. It runs once per user-initiated generation, before the
// network call, not on cache-hit replays. Idempotent: clearing an already
// clean session is a no-op.
func (r *Reconciler) ResetForNewGeneration() {
	for _, key := range ephemeralKeys {
		if err := r.store.Delete(key); err != nil {
			slog.Warn("failed to clear session key", "key", key, "error", err)
		}
	}
	slog.Debug("session state reset for new generation")
}
