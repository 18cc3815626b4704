package genapi

import (
	"context"
	"sync"

	"github.com/lessonforge/lessonforge/internal/content"
)

// MockContentAPI is a test double for ContentAPI. It counts calls so tests
// can assert the at-most-one-in-flight invariant.
type MockContentAPI struct {
	Bundle content.Bundle
	Err    error
	// Delay blocks Generate until released, to simulate a slow backend.
	Delay <-chan struct{}

	mu          sync.Mutex
	calls       int
	LastRequest *content.Request
}

// NewMockContentAPI creates a MockContentAPI returning the given bundle.
func NewMockContentAPI(bundle content.Bundle) *MockContentAPI {
	return &MockContentAPI{Bundle: bundle}
}

func (m *MockContentAPI) Generate(ctx context.Context, req content.Request) (content.Bundle, error) {
	m.mu.Lock()
	m.calls++
	m.LastRequest = &req
	m.mu.Unlock()

	if m.Delay != nil {
		select {
		case <-m.Delay:
		case <-ctx.Done():
			return content.Bundle{}, ctx.Err()
		}
	}
	if m.Err != nil {
		return content.Bundle{}, m.Err
	}
	return m.Bundle, nil
}

// Calls returns how many times Generate was invoked.
func (m *MockContentAPI) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// MockQuizAPI is a test double for QuizAPI.
type MockQuizAPI struct {
	Result      content.GradedResult
	Err         error
	LastAnswers *content.Answers
}

func (m *MockQuizAPI) Submit(_ context.Context, answers content.Answers) (content.GradedResult, error) {
	m.LastAnswers = &answers
	if m.Err != nil {
		return content.GradedResult{}, m.Err
	}
	return m.Result, nil
}
