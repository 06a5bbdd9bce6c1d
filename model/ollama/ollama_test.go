package ollama

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/agentweave/model"
)

func newTestModel(t *testing.T, handler http.HandlerFunc) *Model {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	return NewModel(func(o *Options) {
		o.Host = srv.URL
		o.Model = "llama-test"
	})
}

func TestModel_Generate(t *testing.T) {
	var body map[string]any

	m := newTestModel(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/chat", r.URL.Path)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))

		fmt.Fprintln(w, `{"model":"llama-test","message":{"role":"assistant","content":"Hello"},"done":true,"done_reason":"stop","prompt_eval_count":3,"eval_count":2}`)
	})

	resp, err := model.Chat(context.Background(), m, model.Request{Instructions: "Be brief.", Prompt: "Hi"})
	require.NoError(t, err)

	assert.Equal(t, "Hello", resp.Text)
	assert.Equal(t, "stop", resp.FinishReason)
	assert.Equal(t, &model.TokenUsage{PromptTokens: 3, CompletionTokens: 2, TotalTokens: 5}, resp.Usage)

	assert.Equal(t, "llama-test", body["model"])
	assert.Equal(t, false, body["stream"])
	assert.Len(t, body["messages"], 2)
}

func TestModel_GenerateStreaming(t *testing.T) {
	m := newTestModel(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/x-ndjson")
		fmt.Fprintln(w, `{"model":"llama-test","message":{"role":"assistant","content":"Hel"},"done":false}`)
		fmt.Fprintln(w, `{"model":"llama-test","message":{"role":"assistant","content":"lo"},"done":false}`)
		fmt.Fprintln(w, `{"model":"llama-test","message":{"role":"assistant","content":""},"done":true}`)
	})

	respCh, errCh := m.Generate(context.Background(), model.Request{Prompt: "Hi", Stream: true})

	var (
		partials []string
		final    model.Response
	)

	for r := range respCh {
		if r.Partial {
			partials = append(partials, r.Text)
			continue
		}

		final = r
	}

	require.NoError(t, <-errCh)
	assert.Equal(t, []string{"Hel", "lo"}, partials)
	assert.Equal(t, "Hello", final.Text)
	assert.Equal(t, "stop", final.FinishReason)
}

func TestModel_GenerateError(t *testing.T) {
	m := newTestModel(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, `{"error":"model \"llama-test\" not found"}`)
	})

	_, err := model.Chat(context.Background(), m, model.Request{Prompt: "Hi"})
	require.ErrorContains(t, err, "ollama api error")
	assert.ErrorContains(t, err, "not found")
}

func TestNewModel_InvalidHost(t *testing.T) {
	m := NewModel(func(o *Options) { o.Host = "::not a url" })
	assert.Equal(t, "llama3.2", m.Info().Name)
}
