package genapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/lessonforge/lessonforge/internal/content"
)

// Client talks to the learning backend over HTTP. It implements both
// ContentAPI and QuizAPI.
type Client struct {
	baseURL        string
	apiKey         string
	client         *http.Client
	validateSchema bool
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		c.client = client
	}
}

// WithAPIKey sets the bearer token sent with every request.
func WithAPIKey(key string) Option {
	return func(c *Client) {
		c.apiKey = key
	}
}

// WithoutSchemaValidation disables response schema validation.
func WithoutSchemaValidation() Option {
	return func(c *Client) {
		c.validateSchema = false
	}
}

// NewClient creates a backend API client.
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:        strings.TrimSuffix(baseURL, "/"),
		client:         http.DefaultClient,
		validateSchema: true,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Generate requests a bundle for the given request. A `success:false` body
// or non-2xx status is a transport-level failure; `is_valid:false` is the
// semantic rejection, returned as *TopicRejectedError.
func (c *Client) Generate(ctx context.Context, req content.Request) (content.Bundle, error) {
	body := generateRequest{
		Language:   string(req.Language),
		Level:      req.Level,
		Subject:    req.Subject,
		Difficulty: string(req.Difficulty),
		Topic:      strings.TrimSpace(req.Topic),
	}

	raw, err := c.post(ctx, "/generate", body)
	if err != nil {
		return content.Bundle{}, err
	}

	if c.validateSchema {
		if err := validateGenerateResponse(raw); err != nil {
			return content.Bundle{}, fmt.Errorf("malformed generate response: %w", err)
		}
	}

	var resp generateResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return content.Bundle{}, fmt.Errorf("decoding generate response: %w", err)
	}
	if !resp.Success || resp.Data == nil {
		return content.Bundle{}, &APIError{StatusCode: http.StatusOK, Message: resp.Error}
	}
	if !resp.Data.IsValid {
		return content.Bundle{}, &TopicRejectedError{Subject: req.Subject, Topic: strings.TrimSpace(req.Topic)}
	}

	bundle := resp.Data.Response
	bundle.ValidTopic = resp.Data.ValidTopic
	return bundle, nil
}

// Submit grades a quiz submission.
func (c *Client) Submit(ctx context.Context, answers content.Answers) (content.GradedResult, error) {
	raw, err := c.post(ctx, "/quiz/submit", submitRequest{Answers: answers})
	if err != nil {
		return content.GradedResult{}, err
	}

	var resp submitResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return content.GradedResult{}, fmt.Errorf("decoding submit response: %w", err)
	}
	if !resp.Success || resp.Response == nil {
		return content.GradedResult{}, &APIError{StatusCode: http.StatusOK, Message: resp.Error}
	}
	return *resp.Response, nil
}

func (c *Client) post(ctx context.Context, path string, body any) ([]byte, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	httpResp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("calling %s: %w", path, err)
	}
	defer httpResp.Body.Close()

	raw, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		apiErr := &APIError{StatusCode: httpResp.StatusCode}
		var structured struct {
			Error string `json:"error"`
		}
		if err := json.Unmarshal(raw, &structured); err == nil {
			apiErr.Message = structured.Error
		}
		return nil, apiErr
	}

	return raw, nil
}
