package model

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
)

// Request captures the normalized model input produced by agents.
type Request struct {
	Instructions string `json:"instructions,omitempty"` // System instructions for the model
	Prompt       string `json:"prompt"`                 // Rendered user prompt
	Stream       bool   `json:"stream,omitempty"`
}

// TokenUsage captures token usage statistics for a response.
type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Response is a (partial or final) chunk emitted by a model.
type Response struct {
	ID           string      `json:"id,omitempty"`
	Partial      bool        `json:"partial"` // Indicates if this is a partial response
	Text         string      `json:"text"`
	FinishReason string      `json:"finish_reason,omitempty"` // "stop", "length", etc.
	Usage        *TokenUsage `json:"usage,omitempty"`
}

// Info contains metadata about a model implementation.
type Info struct {
	Name     string `json:"name"`
	Provider string `json:"provider"` // "gemini", "openai", "anthropic", "ollama", "mock"
}

// Model is the minimal interface required by agents to drive generation.
//
// Generate streams zero or more partial responses followed by one final
// response. Both channels are closed when generation ends; at most one
// error is sent.
type Model interface {
	Generate(ctx context.Context, req Request) (<-chan Response, <-chan error)

	// Info returns information about the model implementation.
	Info() Info
}

// ErrEmptyResponse is returned by Chat when the model produced no final text.
var ErrEmptyResponse = errors.New("model returned no response")

// Chat drains Generate and returns the final response. Partial chunks are
// concatenated when the provider emits no final text.
func Chat(ctx context.Context, m Model, req Request) (Response, error) {
	respCh, errCh := m.Generate(ctx, req)

	var (
		final    *Response
		partials strings.Builder
	)

	for respCh != nil || errCh != nil {
		select {
		case <-ctx.Done():
			return Response{}, ctx.Err()
		case r, ok := <-respCh:
			if !ok {
				respCh = nil
				continue
			}

			if r.Partial {
				partials.WriteString(r.Text)
				continue
			}

			final = &r
		case err, ok := <-errCh:
			if !ok {
				errCh = nil
				continue
			}

			if err != nil {
				return Response{}, err
			}
		}
	}

	if final == nil {
		if partials.Len() == 0 {
			return Response{}, ErrEmptyResponse
		}

		return Response{Text: partials.String(), FinishReason: "stop"}, nil
	}

	if final.Text == "" && partials.Len() > 0 {
		final.Text = partials.String()
	}

	return *final, nil
}

// MockModel is a lightweight in-memory Model useful for tests & examples.
//
// Replies are looked up by exact prompt first, then produced by the optional
// Script function, then fall back to an echo. Every request is recorded.
type MockModel struct {
	info      Info
	mu        sync.Mutex
	responses map[string]string
	script    func(req Request) (string, error)
	calls     []Request
}

// NewMockModel constructs a MockModel.
func NewMockModel(name string) *MockModel {
	return &MockModel{
		info:      Info{Name: name, Provider: "mock"},
		responses: make(map[string]string),
	}
}

// AddResponse registers a deterministic canned completion for an input prompt.
func (m *MockModel) AddResponse(prompt, response string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses[prompt] = response
}

// SetScript installs fn to produce replies for prompts without a canned response.
func (m *MockModel) SetScript(fn func(req Request) (string, error)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.script = fn
}

// Calls returns the recorded requests in call order.
func (m *MockModel) Calls() []Request {
	m.mu.Lock()
	defer m.mu.Unlock()

	cp := make([]Request, len(m.calls))
	copy(cp, m.calls)

	return cp
}

func (m *MockModel) reply(req Request) (string, error) {
	m.mu.Lock()
	m.calls = append(m.calls, req)
	canned, ok := m.responses[req.Prompt]
	script := m.script
	m.mu.Unlock()

	if ok {
		return canned, nil
	}

	if script != nil {
		return script(req)
	}

	return fmt.Sprintf("Mock response to: %s", req.Prompt), nil
}

// Generate implements Model; emits optional streaming chunks then the final response.
func (m *MockModel) Generate(ctx context.Context, req Request) (<-chan Response, <-chan error) {
	respCh := make(chan Response, 16)
	errCh := make(chan error, 1)

	go func() {
		defer close(respCh)
		defer close(errCh)

		full, err := m.reply(req)
		if err != nil {
			errCh <- err
			return
		}

		if req.Stream {
			for _, word := range strings.SplitAfter(full, " ") {
				select {
				case <-ctx.Done():
					errCh <- ctx.Err()
					return
				case respCh <- Response{Partial: true, Text: word}:
				}
			}
		}

		select {
		case <-ctx.Done():
			errCh <- ctx.Err()
		case respCh <- Response{Text: full, FinishReason: "stop"}:
		}
	}()

	return respCh, errCh
}

// Info implements Model interface.
func (m *MockModel) Info() Info { return m.info }
