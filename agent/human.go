package agent

import (
	"context"
	"fmt"
	"text/template"
	"time"

	"github.com/hupe1980/agentweave/core"
	"github.com/hupe1980/agentweave/internal/util"
)

// HumanChannel connects a workflow to a human reviewer.
//
// Request is fire-and-forget: its failure is logged and does not stop the
// agent. AwaitResponse blocks until the human answers or ctx ends.
type HumanChannel interface {
	Request(ctx context.Context, prompt string) error
	AwaitResponse(ctx context.Context) (string, error)
}

// HumanInputOptions configures a HumanInputAgent.
type HumanInputOptions struct {
	Description string
	// Prompt is the template shown to the human; it may reference InputKeys.
	Prompt    string
	InputKeys []string
	OutputKey string
	// Timeout bounds the wait for an answer; zero waits indefinitely.
	Timeout time.Duration
}

// HumanInputAgent is a leaf agent whose result comes from a person instead
// of a model. It blocks its invocation until the answer arrives.
type HumanInputAgent struct {
	BaseAgent
	channel   HumanChannel
	prompt    *template.Template
	promptErr error
	timeout   time.Duration
}

// NewHumanInputAgent creates a human-input agent.
func NewHumanInputAgent(name string, channel HumanChannel, optFns ...func(o *HumanInputOptions)) *HumanInputAgent {
	opts := HumanInputOptions{OutputKey: name}
	for _, fn := range optFns {
		fn(&opts)
	}

	tmpl, err := util.ParseTemplate(name, opts.Prompt)

	h := &HumanInputAgent{
		BaseAgent: NewBaseAgent(name, opts.OutputKey, opts.InputKeys...),
		channel:   channel,
		prompt:    tmpl,
		promptErr: err,
		timeout:   opts.Timeout,
	}
	h.SetDescription(opts.Description)

	return h
}

// Validate implements core.Validator.
func (h *HumanInputAgent) Validate() error {
	if h.channel == nil {
		return core.NewInvalidConfigurationError(h.Name(), "no human channel configured")
	}

	if h.promptErr != nil {
		return core.NewInvalidConfigurationError(h.Name(), "parse prompt: %v", h.promptErr)
	}

	return nil
}

// Run implements core.Agent.
func (h *HumanInputAgent) Run(ic *core.InvocationContext) error {
	data := make(map[string]any, len(h.InputKeys()))

	for _, k := range h.InputKeys() {
		v, ok := ic.Scope.Get(k)
		if !ok {
			return core.NewMissingInputError(h.Name(), k)
		}

		data[k] = v
	}

	prompt, err := util.RenderTemplate(h.prompt, data)
	if err != nil {
		return core.NewInvalidConfigurationError(h.Name(), "render prompt: %v", err)
	}

	ctx := ic.Context
	if h.timeout > 0 {
		var cancel context.CancelFunc

		ctx, cancel = context.WithTimeout(ctx, h.timeout)
		defer cancel()
	}

	if err := h.channel.Request(ctx, prompt); err != nil {
		ic.Logger.Warn("agent.human.request_failed", "agent", h.Name(), "error", err)
	}

	ic.Logger.Info("agent.human.waiting", "agent", h.Name(), "invocation_id", ic.InvocationID)

	answer, err := h.channel.AwaitResponse(ctx)
	if err != nil {
		return fmt.Errorf("agent %s: awaiting human response: %w", h.Name(), err)
	}

	ic.Scope.Set(h.OutputKey(), answer)

	return nil
}
