package agent

import (
	"fmt"

	"github.com/hupe1980/agentweave/core"
)

// BaseAgent bundles identity and declared keys shared by every agent. Embed
// it in concrete agent implementations and supply a Run method to satisfy
// the core.Agent interface.
type BaseAgent struct {
	name        string
	description string
	inputKeys   []string
	outputKey   string
}

// NewBaseAgent constructs a BaseAgent with generated description (customizable via SetDescription).
func NewBaseAgent(name, outputKey string, inputKeys ...string) BaseAgent {
	return BaseAgent{
		name:        name,
		description: fmt.Sprintf("Agent %s", name),
		inputKeys:   inputKeys,
		outputKey:   outputKey,
	}
}

// Name returns the human-readable name for this agent.
func (b *BaseAgent) Name() string { return b.name }

// Description returns a detailed description of this agent's purpose.
func (b *BaseAgent) Description() string { return b.description }

// SetDescription updates the agent's description. Empty values are ignored.
func (b *BaseAgent) SetDescription(desc string) {
	if desc != "" {
		b.description = desc
	}
}

// InputKeys returns the declared input keys in declaration order.
func (b *BaseAgent) InputKeys() []string { return b.inputKeys }

// OutputKey returns the scope key this agent writes.
func (b *BaseAgent) OutputKey() string { return b.outputKey }

// FindAgent performs a depth-first search over the tree rooted at root
// (including root itself) returning the first agent whose Name matches.
func FindAgent(root core.Agent, name string) core.Agent {
	if root == nil {
		return nil
	}

	if root.Name() == name {
		return root
	}

	c, ok := root.(core.Composite)
	if !ok {
		return nil
	}

	for _, child := range c.SubAgents() {
		if found := FindAgent(child, name); found != nil {
			return found
		}
	}

	return nil
}

// Validate checks the wiring of every agent in the tree rooted at root.
// It stops at the first invalid agent.
func Validate(root core.Agent) error {
	if root == nil {
		return core.NewInvalidConfigurationError("", "nil agent")
	}

	if root.Name() == "" {
		return core.NewInvalidConfigurationError("", "agent without name")
	}

	if root.OutputKey() == "" {
		return core.NewInvalidConfigurationError(root.Name(), "no output key declared")
	}

	if v, ok := root.(core.Validator); ok {
		if err := v.Validate(); err != nil {
			return err
		}
	}

	if c, ok := root.(core.Composite); ok {
		for _, child := range c.SubAgents() {
			if err := Validate(child); err != nil {
				return err
			}
		}
	}

	return nil
}

// copyResult copies the value stored under from to to, when they differ.
func copyResult(scope *core.Scope, from, to string) {
	if from == "" || from == to {
		return
	}

	if v, ok := scope.Get(from); ok {
		scope.Set(to, v)
	}
}
