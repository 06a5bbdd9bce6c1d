package agent

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/agentweave/core"
	"github.com/hupe1980/agentweave/workerpool"
)

// Combiner merges the results of all parallel children into one value.
// It runs once, single-threaded, after every child has succeeded.
type Combiner func(scope *core.Scope) (any, error)

// ParallelOptions configures a ParallelAgent.
type ParallelOptions struct {
	Description string
	// Pool runs the children. It may be shared across invocations. Without
	// one, each run gets a private pool sized to the number of children.
	Pool *workerpool.Pool
	// Combiner produces the value published under OutputKey. Without one,
	// a map of child output key to value is published.
	Combiner  Combiner
	OutputKey string
	// Timeout bounds the whole fan-out; zero means no timeout.
	Timeout time.Duration
}

// ParallelAgent coordinates the concurrent execution of child agents.
//
// Children must write disjoint output keys. All children run to completion
// (full barrier) before the outcome is decided: if any child failed the
// block fails with that error and the combiner never runs.
type ParallelAgent struct {
	BaseAgent
	children []core.Agent
	pool     *workerpool.Pool
	combiner Combiner
	timeout  time.Duration
}

// NewParallelAgent creates a new parallel execution coordinator.
func NewParallelAgent(name string, children []core.Agent, optFns ...func(o *ParallelOptions)) *ParallelAgent {
	opts := ParallelOptions{OutputKey: name}
	for _, fn := range optFns {
		fn(&opts)
	}

	p := &ParallelAgent{
		BaseAgent: NewBaseAgent(name, opts.OutputKey, unionInputKeys(nonNil(children))...),
		children:  children,
		pool:      opts.Pool,
		combiner:  opts.Combiner,
		timeout:   opts.Timeout,
	}
	p.SetDescription(opts.Description)

	return p
}

// SubAgents implements core.Composite.
func (p *ParallelAgent) SubAgents() []core.Agent { return p.children }

// Validate implements core.Validator. Output keys of the children must be
// pairwise disjoint and distinct from the parallel block's own key.
func (p *ParallelAgent) Validate() error {
	if len(p.children) == 0 {
		return core.NewInvalidConfigurationError(p.Name(), "parallel block without children")
	}

	owner := map[string]string{}

	for _, c := range p.children {
		if c == nil {
			return core.NewInvalidConfigurationError(p.Name(), "nil child")
		}

		key := c.OutputKey()
		if prev, ok := owner[key]; ok {
			return core.NewInvalidConfigurationError(p.Name(), "children %s and %s both write %q", prev, c.Name(), key)
		}

		owner[key] = c.Name()
	}

	if child, ok := owner[p.OutputKey()]; ok {
		return core.NewInvalidConfigurationError(p.Name(), "child %s writes the combined key %q", child, p.OutputKey())
	}

	return nil
}

// Run implements core.Agent.
func (p *ParallelAgent) Run(ic *core.InvocationContext) error {
	ctx := ic.Context
	if p.timeout > 0 {
		var cancel context.CancelFunc

		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	pool := p.pool
	if pool == nil {
		pool = workerpool.New(func(o *workerpool.Options) { o.Size = len(p.children) })
	}

	var err error
	if pool.Held(ctx) {
		err = p.runInline(ic.WithContext(ctx))
	} else {
		err = p.runPooled(ctx, ic, pool)
	}

	if err != nil {
		return err
	}

	result, err := p.combine(ic.Scope)
	if err != nil {
		return fmt.Errorf("parallel combiner of %s failed: %w", p.Name(), err)
	}

	ic.Scope.Set(p.OutputKey(), result)

	return nil
}

// runPooled runs every child on its own worker of pool.
func (p *ParallelAgent) runPooled(ctx context.Context, ic *core.InvocationContext, pool *workerpool.Pool) error {
	// Siblings are not cancelled on failure; the barrier waits for all.
	var g errgroup.Group

	for _, child := range p.children {
		g.Go(func() error {
			release, err := pool.Acquire(ctx)
			if err != nil {
				if callerErr := ic.Context.Err(); callerErr != nil {
					return callerErr
				}

				return core.NewWorkerPoolExhaustedError(child.Name(), err)
			}
			defer release()

			branchCtx := ic.WithContext(pool.Hold(ctx)).WithBranch(p.Name() + "." + child.Name())

			return p.runChild(branchCtx, child)
		})
	}

	return g.Wait()
}

// runInline runs the children one after another on the worker an enclosing
// branch already holds. All children run; the first failure is returned.
func (p *ParallelAgent) runInline(ic *core.InvocationContext) error {
	var first error

	for _, child := range p.children {
		if err := p.runChild(ic.WithBranch(p.Name()+"."+child.Name()), child); err != nil && first == nil {
			first = err
		}
	}

	return first
}

func (p *ParallelAgent) runChild(branchCtx *core.InvocationContext, child core.Agent) error {
	if err := core.SafeCall(func() error { return branchCtx.Invoke(child) }); err != nil {
		return fmt.Errorf("parallel execution failed for agent %s: %w", child.Name(), err)
	}

	return nil
}

func (p *ParallelAgent) combine(scope *core.Scope) (any, error) {
	if p.combiner != nil {
		var out any

		err := core.SafeCall(func() error {
			var err error
			out, err = p.combiner(scope)

			return err
		})

		return out, err
	}

	results := make(map[string]any, len(p.children))
	for _, c := range p.children {
		v, _ := scope.Get(c.OutputKey())
		results[c.OutputKey()] = v
	}

	return results, nil
}

func nonNil(agents []core.Agent) []core.Agent {
	out := make([]core.Agent, 0, len(agents))
	for _, a := range agents {
		if a != nil {
			out = append(out, a)
		}
	}

	return out
}
