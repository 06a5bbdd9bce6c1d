package agent

import (
	"fmt"

	"github.com/hupe1980/agentweave/core"
)

// SequentialOptions configures a SequentialAgent.
type SequentialOptions struct {
	Description string
	// OutputKey is the key the sequence publishes. Defaults to the result key.
	OutputKey string
	// ResultKey selects which child result is published. Defaults to the
	// output key of the last child.
	ResultKey string
}

// SequentialAgent coordinates the execution of multiple child agents in sequence.
//
// Every child runs on the same scope, so each child's output is visible to
// the children after it. Execution is fail-fast: the first failing child
// aborts the sequence and later children never run.
type SequentialAgent struct {
	BaseAgent
	children  []core.Agent
	resultKey string
}

// NewSequentialAgent creates a new sequential execution coordinator.
func NewSequentialAgent(name string, children []core.Agent, optFns ...func(o *SequentialOptions)) *SequentialAgent {
	opts := SequentialOptions{}
	if len(children) > 0 && children[len(children)-1] != nil {
		opts.ResultKey = children[len(children)-1].OutputKey()
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.OutputKey == "" {
		opts.OutputKey = opts.ResultKey
	}

	s := &SequentialAgent{
		BaseAgent: NewBaseAgent(name, opts.OutputKey, collectInputKeys(children)...),
		children:  children,
		resultKey: opts.ResultKey,
	}
	s.SetDescription(opts.Description)

	return s
}

// SubAgents implements core.Composite.
func (s *SequentialAgent) SubAgents() []core.Agent { return s.children }

// Validate implements core.Validator.
func (s *SequentialAgent) Validate() error {
	if len(s.children) == 0 {
		return core.NewInvalidConfigurationError(s.Name(), "sequence without children")
	}

	for _, c := range s.children {
		if c == nil {
			return core.NewInvalidConfigurationError(s.Name(), "nil child")
		}
	}

	if !producedBy(s.children, s.resultKey) {
		return core.NewInvalidConfigurationError(s.Name(), "result key %q is not written by any child", s.resultKey)
	}

	return nil
}

// Run implements core.Agent. It executes each child agent in order; errors
// stop further processing immediately.
func (s *SequentialAgent) Run(ic *core.InvocationContext) error {
	for _, child := range s.children {
		if err := ic.Invoke(child); err != nil {
			return fmt.Errorf("sequential execution failed at agent %s: %w", child.Name(), err)
		}
	}

	copyResult(ic.Scope, s.resultKey, s.OutputKey())

	return nil
}

// collectInputKeys returns the keys children read that no earlier child writes.
func collectInputKeys(children []core.Agent) []string {
	produced := map[string]bool{}
	seen := map[string]bool{}

	var keys []string

	for _, c := range children {
		if c == nil {
			continue
		}

		for _, k := range c.InputKeys() {
			if !produced[k] && !seen[k] {
				seen[k] = true
				keys = append(keys, k)
			}
		}

		produced[c.OutputKey()] = true
	}

	return keys
}

func producedBy(children []core.Agent, key string) bool {
	for _, c := range children {
		if c != nil && c.OutputKey() == key {
			return true
		}
	}

	return false
}
