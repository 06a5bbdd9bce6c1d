package core

import (
	"context"
	"fmt"

	"github.com/hupe1980/agentweave/logging"
)

// Hook observes agent invocations. Hooks are instrumentation only: a hook
// returning an error or panicking never changes the outcome of the run.
type Hook interface {
	BeforeAgent(invocationCtx *InvocationContext, agent Agent) error
	AfterAgent(invocationCtx *InvocationContext, agent Agent, runErr error) error
}

// InvocationContext carries execution state for one workflow invocation.
// It aggregates:
//   - The ambient cancellation Context
//   - Identifiers (InvocationID, Workflow name, Branch label)
//   - The shared Scope
//   - Logger, hooks and an optional model call limiter
//
// Composers pass the same InvocationContext to their children; parallel
// branches receive a shallow copy with a derived Context and Branch.
type InvocationContext struct {
	Context      context.Context
	InvocationID string
	Workflow     string
	Branch       string
	Scope        *Scope
	Logger       logging.Logger
	Limiter      *ModelLimiter
	hooks        []Hook
}

// InvocationOptions configures NewInvocationContext.
type InvocationOptions struct {
	Workflow string
	Logger   logging.Logger
	Hooks    []Hook
	// MaxModelCalls bounds model calls for the invocation; 0 means unlimited.
	MaxModelCalls int
}

// NewInvocationContext constructs an InvocationContext over scope.
func NewInvocationContext(ctx context.Context, invocationID string, scope *Scope, optFns ...func(o *InvocationOptions)) *InvocationContext {
	opts := InvocationOptions{
		Logger: logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}

	if scope == nil {
		scope = NewScope(invocationID, nil)
	}

	return &InvocationContext{
		Context:      ctx,
		InvocationID: invocationID,
		Workflow:     opts.Workflow,
		Scope:        scope,
		Logger:       opts.Logger,
		Limiter:      NewModelLimiter(opts.MaxModelCalls),
		hooks:        opts.Hooks,
	}
}

// Done mirrors context.Context's Done.
func (ic *InvocationContext) Done() <-chan struct{} { return ic.Context.Done() }

// Err returns the cancellation error (if any) from the underlying context.
func (ic *InvocationContext) Err() error { return ic.Context.Err() }

// WithContext returns a shallow copy bound to ctx. Scope, hooks and limiter are shared.
func (ic *InvocationContext) WithContext(ctx context.Context) *InvocationContext {
	cp := *ic
	cp.Context = ctx

	return &cp
}

// WithBranch returns a shallow copy whose Branch is extended by name.
func (ic *InvocationContext) WithBranch(name string) *InvocationContext {
	cp := *ic
	cp.Branch = BranchPath(ic.Branch, name)

	return &cp
}

// BranchPath composes a hierarchical branch identifier ("parent.child").
func BranchPath(parent, child string) string {
	if parent == "" {
		return child
	}

	if child == "" {
		return parent
	}

	return parent + "." + child
}

// Invoke runs agent under this context, notifying hooks before and after.
// It is the single entry point composers use to run children.
func (ic *InvocationContext) Invoke(agent Agent) error {
	if err := ic.Err(); err != nil {
		return err
	}

	ic.notify(agent, func(h Hook) error { return h.BeforeAgent(ic, agent) })

	err := agent.Run(ic)

	ic.notify(agent, func(h Hook) error { return h.AfterAgent(ic, agent, err) })

	return err
}

func (ic *InvocationContext) notify(agent Agent, call func(h Hook) error) {
	for _, h := range ic.hooks {
		if err := SafeCall(func() error { return call(h) }); err != nil {
			ic.Logger.Warn("hook.failed", "agent", agent.Name(), "invocation_id", ic.InvocationID, "error", err)
		}
	}
}

// SafeCall runs fn converting a panic into an error.
func SafeCall(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()

	return fn()
}
