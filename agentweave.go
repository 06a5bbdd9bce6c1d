// Package agentweave provides a high-level façade over the workflow engine
// and the prebuilt workflows, enabling rapid construction of multi-agent
// systems on top of one language model. Most applications interact with this
// package by:
//  1. Creating an AgentWeave via New() with the model backing every agent
//  2. Registering their own workflows next to the prebuilt ones
//  3. Invoking workflows synchronously (Invoke) or asynchronously (InvokeAsync)
//
// The façade delegates orchestration to engine.Engine and keeps setup concise.
package agentweave

import (
	"context"

	"github.com/hupe1980/agentweave/core"
	"github.com/hupe1980/agentweave/engine"
	"github.com/hupe1980/agentweave/logging"
	"github.com/hupe1980/agentweave/model"
	"github.com/hupe1980/agentweave/patterns"
)

// Options configures the AgentWeave instance.
type Options struct {
	// MaxConcurrentInvocations limits the number of workflow invocations
	// that can execute simultaneously. 0 is unlimited.
	MaxConcurrentInvocations int

	// MaxModelCalls bounds the model calls of a single invocation. 0 is unlimited.
	MaxModelCalls int

	// Hooks observe every agent invocation.
	Hooks []core.Hook

	// Patterns tune the prebuilt workflows. Set SkipPatterns to register none.
	Patterns     []func(o *patterns.Options)
	SkipPatterns bool

	// Logger (defaults to NoOp logger if nil)
	Logger logging.Logger
}

// AgentWeave aggregates the engine and the model driving its agents.
type AgentWeave struct {
	opts   Options
	llm    model.Model
	engine *engine.Engine
}

// New creates an AgentWeave whose prebuilt workflows run on llm.
func New(llm model.Model, optFns ...func(o *Options)) (*AgentWeave, error) {
	opts := Options{
		Logger: logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	eng := engine.New(func(o *engine.Options) {
		o.Logger = opts.Logger
		o.Hooks = opts.Hooks
		o.MaxConcurrentInvocations = opts.MaxConcurrentInvocations
		o.MaxModelCalls = opts.MaxModelCalls
	})

	if !opts.SkipPatterns {
		patternOpts := append([]func(o *patterns.Options){func(o *patterns.Options) { o.Logger = opts.Logger }}, opts.Patterns...)
		if err := patterns.Register(eng, llm, patternOpts...); err != nil {
			return nil, err
		}
	}

	return &AgentWeave{opts: opts, llm: llm, engine: eng}, nil
}

// Engine returns the underlying engine.
func (w *AgentWeave) Engine() *engine.Engine { return w.engine }

// Model returns the model backing the prebuilt workflows.
func (w *AgentWeave) Model() model.Model { return w.llm }

// Register adds a workflow.
func (w *AgentWeave) Register(wf engine.Workflow) error { return w.engine.Register(wf) }

// Workflows lists the registered workflows.
func (w *AgentWeave) Workflows() []engine.WorkflowInfo { return w.engine.Workflows() }

// Invoke runs the named workflow and waits for its result.
func (w *AgentWeave) Invoke(ctx context.Context, workflow string, args map[string]any) (engine.Result, error) {
	return w.engine.Invoke(ctx, workflow, args)
}

// Outcome is the completion of an asynchronous invocation.
type Outcome struct {
	Result engine.Result
	Err    error
}

// InvokeAsync starts the named workflow in the background. The returned
// channel delivers exactly one Outcome and is then closed.
func (w *AgentWeave) InvokeAsync(ctx context.Context, workflow string, args map[string]any) <-chan Outcome {
	ch := make(chan Outcome, 1)

	go func() {
		defer close(ch)

		res, err := w.engine.Invoke(ctx, workflow, args)
		ch <- Outcome{Result: res, Err: err}
	}()

	return ch
}
