package agent

import (
	"fmt"
	"time"

	"github.com/hupe1980/agentweave/core"
)

// DefaultMaxIters is the iteration ceiling used when none is configured.
const DefaultMaxIters = 100

// LoopAgent coordinates the repeated execution of a body.
//
// The body runs as a sequence on the shared scope. After every complete
// body execution the exit predicate is evaluated against the scope; true
// ends the loop successfully. Reaching the iteration ceiling also ends the
// loop successfully with whatever state the last iteration left. A failing
// body iteration aborts the loop and propagates the error.
type LoopAgent struct {
	BaseAgent
	body      *SequentialAgent
	maxIters  int
	interval  time.Duration
	predicate Predicate
}

// LoopOption defines a configuration function for customizing LoopAgent behavior.
type LoopOption func(*LoopAgent)

// NewLoopAgent constructs a looping coordinator around body.
//
// Default configuration:
//   - Maximum 100 iterations
//   - No interval between iterations
//   - No exit predicate (runs to the ceiling)
//   - Output key of the last body agent
func NewLoopAgent(name string, body []core.Agent, opts ...LoopOption) *LoopAgent {
	seq := NewSequentialAgent(name+".body", body)

	la := &LoopAgent{
		BaseAgent: NewBaseAgent(name, seq.OutputKey(), seq.InputKeys()...),
		body:      seq,
		maxIters:  DefaultMaxIters,
	}

	for _, o := range opts {
		o(la)
	}

	return la
}

// WithMaxIters sets the iteration ceiling. It must be at least 1.
func WithMaxIters(n int) LoopOption {
	return func(l *LoopAgent) { l.maxIters = n }
}

// WithInterval sets the time delay between loop iterations.
func WithInterval(d time.Duration) LoopOption {
	return func(l *LoopAgent) { l.interval = d }
}

// WithPredicate sets the exit condition evaluated after each iteration.
//
// Example:
//
//	WithPredicate(func(s *core.Scope) bool {
//	    return core.ReadState(s, "score", 0.0) >= 0.9
//	})
func WithPredicate(pred Predicate) LoopOption {
	return func(l *LoopAgent) { l.predicate = pred }
}

// WithLoopOutputKey overrides the published output key.
func WithLoopOutputKey(key string) LoopOption {
	return func(l *LoopAgent) { l.outputKey = key }
}

// WithLoopDescription sets the loop description.
func WithLoopDescription(desc string) LoopOption {
	return func(l *LoopAgent) { l.SetDescription(desc) }
}

// MaxIters returns the iteration ceiling.
func (l *LoopAgent) MaxIters() int { return l.maxIters }

// SubAgents implements core.Composite.
func (l *LoopAgent) SubAgents() []core.Agent { return l.body.SubAgents() }

// Validate implements core.Validator.
func (l *LoopAgent) Validate() error {
	if l.maxIters < 1 {
		return core.NewInvalidConfigurationError(l.Name(), "max iterations must be at least 1, got %d", l.maxIters)
	}

	if l.interval < 0 {
		return core.NewInvalidConfigurationError(l.Name(), "negative interval")
	}

	return l.body.Validate()
}

// Run implements core.Agent.
func (l *LoopAgent) Run(ic *core.InvocationContext) error {
	for i := 0; i < l.maxIters; i++ {
		select {
		case <-ic.Done():
			return ic.Err()
		default:
		}

		ic.Logger.Debug("agent.loop.iteration", "agent", l.Name(), "iteration", i+1)

		if err := l.body.Run(ic); err != nil {
			return fmt.Errorf("loop iteration %d failed for agent %s: %w", i+1, l.Name(), err)
		}

		copyResult(ic.Scope, l.body.OutputKey(), l.OutputKey())

		if l.predicate != nil && l.predicate(ic.Scope) {
			ic.Logger.Debug("agent.loop.exit", "agent", l.Name(), "iterations", i+1)
			return nil
		}

		if l.interval > 0 && i < l.maxIters-1 {
			select {
			case <-ic.Done():
				return ic.Err()
			case <-time.After(l.interval):
			}
		}
	}

	ic.Logger.Info("agent.loop.ceiling", "agent", l.Name(), "iterations", l.maxIters)

	return nil
}
