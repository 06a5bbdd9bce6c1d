// Package gemini provides a model.Model backed by the Google Gemini API
// through google.golang.org/genai.
package gemini

import (
	"context"
	"fmt"
	"sync"

	"google.golang.org/genai"

	"github.com/hupe1980/agentweave/model"
)

// DefaultModel is the model used when Options.Model is empty.
const DefaultModel = "gemini-2.5-flash-lite"

// Options configures the Gemini adapter.
type Options struct {
	Model           string
	APIKey          string
	Temperature     float32
	MaxOutputTokens int32
}

// Model wraps the genai client. The client is created lazily on first use.
type Model struct {
	opts Options

	once    sync.Once
	client  *genai.Client
	initErr error
}

// NewModel creates a Gemini model.
func NewModel(optFns ...func(o *Options)) *Model {
	opts := Options{
		Model:           DefaultModel,
		Temperature:     0.7,
		MaxOutputTokens: 4096,
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	return &Model{opts: opts}
}

// NewModelFromClient creates a Gemini model from an existing client.
func NewModelFromClient(client *genai.Client, optFns ...func(o *Options)) *Model {
	m := NewModel(optFns...)
	m.client = client
	m.once.Do(func() {})

	return m
}

func (m *Model) ensureClient(ctx context.Context) (*genai.Client, error) {
	m.once.Do(func() {
		m.client, m.initErr = genai.NewClient(ctx, &genai.ClientConfig{
			APIKey:  m.opts.APIKey,
			Backend: genai.BackendGeminiAPI,
		})
	})

	if m.initErr != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", m.initErr)
	}

	return m.client, nil
}

// Generate implements model.Model. Streaming requests are served with a
// single final chunk.
func (m *Model) Generate(ctx context.Context, req model.Request) (<-chan model.Response, <-chan error) {
	out := make(chan model.Response, 1)
	errCh := make(chan error, 1)

	go func() {
		defer close(out)
		defer close(errCh)

		client, err := m.ensureClient(ctx)
		if err != nil {
			errCh <- err
			return
		}

		temperature := m.opts.Temperature
		config := &genai.GenerateContentConfig{
			Temperature:     &temperature,
			MaxOutputTokens: m.opts.MaxOutputTokens,
		}

		if req.Instructions != "" {
			config.SystemInstruction = &genai.Content{
				Parts: []*genai.Part{{Text: req.Instructions}},
			}
		}

		contents := []*genai.Content{{
			Role:  "user",
			Parts: []*genai.Part{{Text: req.Prompt}},
		}}

		result, err := client.Models.GenerateContent(ctx, m.opts.Model, contents, config)
		if err != nil {
			errCh <- fmt.Errorf("gemini api error: %w", err)
			return
		}

		if result == nil {
			errCh <- fmt.Errorf("empty response from gemini api")
			return
		}

		resp := model.Response{
			ID:           result.ResponseID,
			Text:         result.Text(),
			FinishReason: finishReason(result),
		}

		if u := result.UsageMetadata; u != nil {
			resp.Usage = &model.TokenUsage{
				PromptTokens:     int(u.PromptTokenCount),
				CompletionTokens: int(u.CandidatesTokenCount),
				TotalTokens:      int(u.TotalTokenCount),
			}
		}

		out <- resp
	}()

	return out, errCh
}

func finishReason(result *genai.GenerateContentResponse) string {
	if len(result.Candidates) == 0 || result.Candidates[0].FinishReason == "" {
		return "stop"
	}

	return string(result.Candidates[0].FinishReason)
}

// Info returns metadata describing this Gemini model implementation.
func (m *Model) Info() model.Info {
	return model.Info{Name: m.opts.Model, Provider: "gemini"}
}
