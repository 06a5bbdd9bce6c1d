package core

// Agent is the unit of composition in AgentWeave.
//
// An agent consumes values from the invocation Scope, performs one piece of
// work and writes exactly one named result back into the Scope. Composers
// (sequence, conditional, loop, parallel, supervisor) are agents built from
// agents and share the same Run signature, so they nest arbitrarily.
//
// Implementations must:
//   - Respect context cancellation of the InvocationContext
//   - Write their result under OutputKey on success
//   - Return a wrapped error (see AgentError) on failure
type Agent interface {
	Name() string
	Description() string
	// InputKeys lists the Scope keys the agent reads, in declaration order.
	InputKeys() []string
	// OutputKey is the Scope key the agent writes on success.
	OutputKey() string
	Run(invocationCtx *InvocationContext) error
}

// Validator is implemented by agents able to check their own wiring at
// build time (for example disjoint parallel output keys).
type Validator interface {
	Validate() error
}

// Composite is implemented by agents that contain other agents.
type Composite interface {
	SubAgents() []Agent
}

// AgentInfo describes an agent for capability tables and listings.
type AgentInfo struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	InputKeys   []string `json:"input_keys"`
	OutputKey   string   `json:"output_key"`
}

// Describe builds the AgentInfo of a.
func Describe(a Agent) AgentInfo {
	in := make([]string, len(a.InputKeys()))
	copy(in, a.InputKeys())

	return AgentInfo{
		Name:        a.Name(),
		Description: a.Description(),
		InputKeys:   in,
		OutputKey:   a.OutputKey(),
	}
}
