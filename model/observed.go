package model

import (
	"context"
	"fmt"
	"time"

	"github.com/tiktoken-go/tokenizer"

	"github.com/hupe1980/agentweave/logging"
)

// Recorder receives one observation per completed model call.
type Recorder interface {
	ObserveModelCall(model, status string, usage TokenUsage, dur time.Duration)
}

// TokenCounter estimates the token count of a text.
type TokenCounter interface {
	Count(text string) int
}

// TiktokenCounter counts tokens with a tiktoken codec. Providers that do not
// report usage are approximated with the GPT-4 encoding.
type TiktokenCounter struct {
	codec tokenizer.Codec
}

// NewTiktokenCounter creates a counter using the GPT-4 encoding.
func NewTiktokenCounter() (*TiktokenCounter, error) {
	codec, err := tokenizer.ForModel(tokenizer.GPT4)
	if err != nil {
		return nil, fmt.Errorf("failed to create tokenizer codec: %w", err)
	}

	return &TiktokenCounter{codec: codec}, nil
}

// Count returns the number of tokens in text, falling back to a four
// characters per token estimate.
func (c *TiktokenCounter) Count(text string) int {
	if c == nil || c.codec == nil {
		return len(text) / 4
	}

	n, err := c.codec.Count(text)
	if err != nil {
		return len(text) / 4
	}

	return n
}

// ObservedOptions configures Observe.
type ObservedOptions struct {
	Logger   logging.Logger
	Recorder Recorder
	Counter  TokenCounter
}

// Observed decorates a Model with token accounting, logging and metrics.
type Observed struct {
	next Model
	opts ObservedOptions
}

// Observe wraps next. Missing usage figures are filled in with Counter.
func Observe(next Model, optFns ...func(o *ObservedOptions)) *Observed {
	opts := ObservedOptions{
		Logger: logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.Counter == nil {
		if c, err := NewTiktokenCounter(); err == nil {
			opts.Counter = c
		} else {
			opts.Counter = (*TiktokenCounter)(nil)
		}
	}

	return &Observed{next: next, opts: opts}
}

// Info implements Model.
func (o *Observed) Info() Info { return o.next.Info() }

// Generate implements Model, forwarding every chunk of the wrapped model.
func (o *Observed) Generate(ctx context.Context, req Request) (<-chan Response, <-chan error) {
	out := make(chan Response, 32)
	errOut := make(chan error, 1)

	go func() {
		defer close(out)
		defer close(errOut)

		start := time.Now()
		respCh, errCh := o.next.Generate(ctx, req)

		var (
			usage  TokenUsage
			failed error
		)

		for respCh != nil || errCh != nil {
			select {
			case r, ok := <-respCh:
				if !ok {
					respCh = nil
					continue
				}

				if !r.Partial {
					usage = o.usage(req, r)
					r.Usage = &usage
				}

				select {
				case out <- r:
				case <-ctx.Done():
				}
			case err, ok := <-errCh:
				if !ok {
					errCh = nil
					continue
				}

				if err != nil {
					failed = err
					errOut <- err
				}
			}
		}

		o.record(usage, time.Since(start), failed)
	}()

	return out, errOut
}

func (o *Observed) usage(req Request, r Response) TokenUsage {
	if r.Usage != nil {
		return *r.Usage
	}

	u := TokenUsage{
		PromptTokens:     o.opts.Counter.Count(req.Instructions) + o.opts.Counter.Count(req.Prompt),
		CompletionTokens: o.opts.Counter.Count(r.Text),
	}
	u.TotalTokens = u.PromptTokens + u.CompletionTokens

	return u
}

func (o *Observed) record(usage TokenUsage, dur time.Duration, err error) {
	name := o.next.Info().Name

	logging.LogModelCall(o.opts.Logger, name, usage.TotalTokens, dur, err)

	if o.opts.Recorder == nil {
		return
	}

	status := "success"
	if err != nil {
		status = "error"
	}

	o.opts.Recorder.ObserveModelCall(name, status, usage, dur)
}
