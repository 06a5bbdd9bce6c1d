// Package ollama provides a model.Model backed by a local Ollama server.
package ollama

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/ollama/ollama/api"

	"github.com/hupe1980/agentweave/model"
)

// DefaultHost is the Ollama endpoint used when Options.Host is empty.
const DefaultHost = "http://localhost:11434"

// Options configures the Ollama adapter.
type Options struct {
	Model       string
	Host        string
	Temperature float64
	MaxTokens   int
}

// Model wraps the Ollama chat API.
type Model struct {
	client *api.Client
	opts   Options
}

// NewModel creates an Ollama model. An unparsable host falls back to DefaultHost.
func NewModel(optFns ...func(o *Options)) *Model {
	opts := Options{
		Model:       "llama3.2",
		Host:        DefaultHost,
		Temperature: 0.7,
		MaxTokens:   4096,
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	u, err := url.Parse(opts.Host)
	if err != nil || u.Host == "" {
		u, _ = url.Parse(DefaultHost)
	}

	return &Model{client: api.NewClient(u, http.DefaultClient), opts: opts}
}

// Generate implements model.Model.
func (m *Model) Generate(ctx context.Context, req model.Request) (<-chan model.Response, <-chan error) {
	out := make(chan model.Response, 32)
	errCh := make(chan error, 1)

	go func() {
		defer close(out)
		defer close(errCh)

		var messages []api.Message
		if req.Instructions != "" {
			messages = append(messages, api.Message{Role: "system", Content: req.Instructions})
		}

		messages = append(messages, api.Message{Role: "user", Content: req.Prompt})

		stream := req.Stream
		chatReq := &api.ChatRequest{
			Model:    m.opts.Model,
			Messages: messages,
			Stream:   &stream,
			Options: map[string]any{
				"temperature": m.opts.Temperature,
				"num_predict": m.opts.MaxTokens,
			},
		}

		var text string

		err := m.client.Chat(ctx, chatReq, func(resp api.ChatResponse) error {
			text += resp.Message.Content

			if !resp.Done {
				out <- model.Response{Partial: true, Text: resp.Message.Content}
				return nil
			}

			out <- model.Response{
				Text:         text,
				FinishReason: finishReason(resp),
				Usage: &model.TokenUsage{
					PromptTokens:     resp.PromptEvalCount,
					CompletionTokens: resp.EvalCount,
					TotalTokens:      resp.PromptEvalCount + resp.EvalCount,
				},
			}

			return nil
		})
		if err != nil {
			errCh <- fmt.Errorf("ollama api error: %w", err)
		}
	}()

	return out, errCh
}

func finishReason(resp api.ChatResponse) string {
	if resp.DoneReason == "" {
		return "stop"
	}

	return resp.DoneReason
}

// Info returns metadata describing this Ollama model implementation.
func (m *Model) Info() model.Info {
	return model.Info{Name: m.opts.Model, Provider: "ollama"}
}
