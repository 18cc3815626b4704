// Package genapi provides clients for the remote content-generation and
// quiz-grading APIs. The backend is the source of truth for generated
// content and graded correctness; everything here is transport.
package genapi

import (
	"context"
	"fmt"

	"github.com/lessonforge/lessonforge/internal/content"
)

// ContentAPI generates a lesson/quiz/reflection bundle for a request.
type ContentAPI interface {
	Generate(ctx context.Context, req content.Request) (content.Bundle, error)
}

// QuizAPI grades a quiz submission.
type QuizAPI interface {
	Submit(ctx context.Context, answers content.Answers) (content.GradedResult, error)
}

// TopicRejectedError is the semantic rejection: the backend judged the topic
// not applicable to the subject. Distinct from a transport failure, and never
// cached; a rejected topic may grade differently on a later attempt.
type TopicRejectedError struct {
	Subject string
	Topic   string
}

func (e *TopicRejectedError) Error() string {
	return fmt.Sprintf("topic %q is not related to subject %q", e.Topic, e.Subject)
}

// APIError is a structured failure reported by the backend.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api error (status %d)", e.StatusCode)
	}
	return fmt.Sprintf("api error (status %d): %s", e.StatusCode, e.Message)
}

// generateRequest is the wire form of a generation request.
type generateRequest struct {
	Language   string `json:"language"`
	Level      string `json:"level"`
	Subject    string `json:"subject"`
	Difficulty string `json:"difficulty"`
	Topic      string `json:"topic"`
}

// generateResponse is the wire form of a generation response.
type generateResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
	Data    *struct {
		Response   content.Bundle `json:"response"`
		IsValid    bool           `json:"is_valid"`
		ValidTopic string         `json:"valid_topic"`
	} `json:"data,omitempty"`
}

// submitRequest is the wire form of a grading request.
type submitRequest struct {
	Answers content.Answers `json:"answers"`
}

// submitResponse is the wire form of a grading response.
type submitResponse struct {
	Success  bool                  `json:"success"`
	Error    string                `json:"error,omitempty"`
	Response *content.GradedResult `json:"response,omitempty"`
}
