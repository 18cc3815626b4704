package content

import "time"

// Bundle is the generated lesson + quiz + reflection payload for one
// language/level/subject/difficulty/topic combination. Immutable once
// cached; a new generation for an equivalent request overwrites it.
type Bundle struct {
	Lesson     Lesson     `json:"lesson"`
	Quiz       Quiz       `json:"quiz"`
	Reflection Reflection `json:"reflection"`
	// ValidTopic is the server-normalized topic label, e.g. "fractions"
	// comes back as "Fractions".
	ValidTopic string `json:"valid_topic"`
}

// Lesson is the structured lesson content.
type Lesson struct {
	Title    string          `json:"title"`
	Sections []LessonSection `json:"sections"`
}

// LessonSection is one titled block of lesson text.
type LessonSection struct {
	Heading string `json:"heading"`
	Body    string `json:"body"`
}

// Quiz holds the multiple-choice and true/false item sets.
type Quiz struct {
	MultipleChoice []MCQItem `json:"multiple_choice"`
	TrueFalse      []TFItem  `json:"true_false"`
}

// MCQItem is a multiple-choice question.
type MCQItem struct {
	Question  string   `json:"question"`
	Options   []string `json:"options"`
	Answer    int      `json:"answer"`
	Rationale string   `json:"rationale,omitempty"`
}

// TFItem is a true/false question.
type TFItem struct {
	Statement string `json:"statement"`
	Answer    bool   `json:"answer"`
	Rationale string `json:"rationale,omitempty"`
}

// Reflection is the post-lesson reflection prompt.
type Reflection struct {
	Prompt string `json:"prompt"`
}

// Answers holds a user's quiz selections: option indices for the
// multiple-choice items, boolean selections for the true/false items.
type Answers struct {
	MultipleChoice []int  `json:"multiple_choice"`
	TrueFalse      []bool `json:"true_false"`
}

// GradedResult is the backend's grading of one submission.
type GradedResult struct {
	Score float64      `json:"score"`
	Items []GradedItem `json:"items"`
}

// GradedItem is the per-item grading outcome.
type GradedItem struct {
	Correct   bool   `json:"correct"`
	Rationale string `json:"rationale,omitempty"`
}

// SubmissionRecord is a graded quiz submission persisted for replay on
// remount. ContentKey records which bundle it was graded against.
type SubmissionRecord struct {
	Submitted  bool         `json:"submitted"`
	Answers    Answers      `json:"answers"`
	Result     GradedResult `json:"result"`
	ContentKey string       `json:"content_key,omitempty"`
	Timestamp  time.Time    `json:"timestamp"`
}
