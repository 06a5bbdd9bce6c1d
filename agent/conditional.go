package agent

import (
	"fmt"
	"strings"

	"github.com/hupe1980/agentweave/core"
)

// Predicate decides a branch from the current scope. It must not mutate it.
type Predicate func(scope *core.Scope) bool

// Branch pairs a predicate with the agent run when it holds.
type Branch struct {
	When  Predicate
	Agent core.Agent
}

// ConditionalOptions configures a ConditionalAgent.
type ConditionalOptions struct {
	Description string
	// Default runs when no predicate holds. Without it that case fails
	// with core.ErrNoMatchingBranch.
	Default core.Agent
	// OutputKey is the key the conditional publishes. Defaults to the
	// output key shared by all branches.
	OutputKey string
}

// ConditionalAgent runs exactly one of its branches: the first whose
// predicate holds, in declaration order, else the default branch.
type ConditionalAgent struct {
	BaseAgent
	branches   []Branch
	fallback   core.Agent
	buildError error
}

// NewConditionalAgent creates an ordered branch selector.
func NewConditionalAgent(name string, branches []Branch, optFns ...func(o *ConditionalOptions)) *ConditionalAgent {
	opts := ConditionalOptions{}
	for _, fn := range optFns {
		fn(&opts)
	}

	agents := branchAgents(branches, opts.Default)
	if opts.OutputKey == "" {
		opts.OutputKey = sharedOutputKey(agents)
	}

	c := &ConditionalAgent{
		BaseAgent: NewBaseAgent(name, opts.OutputKey, unionInputKeys(agents)...),
		branches:  branches,
		fallback:  opts.Default,
	}
	c.SetDescription(opts.Description)

	return c
}

// SubAgents implements core.Composite.
func (c *ConditionalAgent) SubAgents() []core.Agent {
	return branchAgents(c.branches, c.fallback)
}

// Validate implements core.Validator.
func (c *ConditionalAgent) Validate() error {
	if c.buildError != nil {
		return c.buildError
	}

	if len(c.branches) == 0 && c.fallback == nil {
		return core.NewInvalidConfigurationError(c.Name(), "conditional without branches")
	}

	for i, b := range c.branches {
		if b.When == nil || b.Agent == nil {
			return core.NewInvalidConfigurationError(c.Name(), "branch %d is incomplete", i)
		}
	}

	return nil
}

// Run implements core.Agent.
func (c *ConditionalAgent) Run(ic *core.InvocationContext) error {
	selected := c.fallback

	for _, b := range c.branches {
		if b.When(ic.Scope) {
			selected = b.Agent
			break
		}
	}

	if selected == nil {
		return core.NewNoMatchingBranchError(c.Name())
	}

	ic.Logger.Debug("agent.branch.selected", "agent", c.Name(), "branch", selected.Name())

	if err := ic.Invoke(selected); err != nil {
		return fmt.Errorf("conditional branch %s failed: %w", selected.Name(), err)
	}

	copyResult(ic.Scope, selected.OutputKey(), c.OutputKey())

	return nil
}

// SwitchOptions configures NewSwitchAgent.
type SwitchOptions struct {
	Description string
	// Default handles every variant without an explicit case.
	Default   core.Agent
	OutputKey string
}

// NewSwitchAgent builds a conditional dispatching on the enumeration value
// stored under key. The case table must cover every variant of enum,
// including its unknown variant, unless a Default is given; a gap is
// reported by Validate. A value of another type selects the unknown variant.
func NewSwitchAgent[T ~string](name, key string, enum Enum[T], cases map[T]core.Agent, optFns ...func(o *SwitchOptions)) *ConditionalAgent {
	opts := SwitchOptions{}
	for _, fn := range optFns {
		fn(&opts)
	}

	var (
		branches []Branch
		missing  []string
	)

	for _, variant := range enum.Values() {
		a, ok := cases[variant]
		if !ok {
			missing = append(missing, string(variant))
			continue
		}

		v := variant
		branches = append(branches, Branch{
			When:  func(s *core.Scope) bool { return core.ReadState(s, key, enum.Unknown()) == v },
			Agent: a,
		})
	}

	c := NewConditionalAgent(name, branches, func(o *ConditionalOptions) {
		o.Description = opts.Description
		o.Default = opts.Default
		o.OutputKey = opts.OutputKey
	})

	c.inputKeys = append([]string{key}, c.inputKeys...)

	for variant := range cases {
		if !contains(enum.Values(), variant) {
			c.buildError = core.NewInvalidConfigurationError(name, "case %q is not a variant", string(variant))
		}
	}

	if len(missing) > 0 && opts.Default == nil && c.buildError == nil {
		c.buildError = core.NewInvalidConfigurationError(name, "switch on %q is not exhaustive: missing %s", key, strings.Join(missing, ", "))
	}

	return c
}

func branchAgents(branches []Branch, fallback core.Agent) []core.Agent {
	agents := make([]core.Agent, 0, len(branches)+1)
	for _, b := range branches {
		if b.Agent != nil {
			agents = append(agents, b.Agent)
		}
	}

	if fallback != nil {
		agents = append(agents, fallback)
	}

	return agents
}

// sharedOutputKey returns the output key common to all agents, or "".
func sharedOutputKey(agents []core.Agent) string {
	if len(agents) == 0 {
		return ""
	}

	key := agents[0].OutputKey()
	for _, a := range agents[1:] {
		if a.OutputKey() != key {
			return ""
		}
	}

	return key
}

func unionInputKeys(agents []core.Agent) []string {
	seen := map[string]bool{}

	var keys []string

	for _, a := range agents {
		for _, k := range a.InputKeys() {
			if !seen[k] {
				seen[k] = true
				keys = append(keys, k)
			}
		}
	}

	return keys
}

func contains[T comparable](values []T, v T) bool {
	for _, x := range values {
		if x == v {
			return true
		}
	}

	return false
}
