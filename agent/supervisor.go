package agent

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/hupe1980/agentweave/core"
	"github.com/hupe1980/agentweave/internal/util"
	"github.com/hupe1980/agentweave/model"
)

// DefaultMaxSteps bounds supervisor plans when no limit is configured.
const DefaultMaxSteps = 10

// Plan is the replayable output of supervisor planning: an ordered list of
// sub-agent invocations with their argument bindings.
type Plan struct {
	Steps []PlanStep `json:"steps" jsonschema:"minItems=1"`
	// Final names the step agent whose result is published. Defaults to the last step.
	Final string `json:"final,omitempty"`
}

// PlanStep invokes one sub-agent after applying its bindings to the scope.
type PlanStep struct {
	Agent    string             `json:"agent" jsonschema:"minLength=1"`
	Bindings map[string]Binding `json:"bindings,omitempty"`
}

// Binding assigns a sub-agent input either a literal value or the value of
// another scope key.
type Binding struct {
	Value *string `json:"value,omitempty"`
	From  string  `json:"from,omitempty"`
}

var planSchema = util.MustSchemaFor(&Plan{})

// ResponseStrategy decides how the supervisor output is produced.
type ResponseStrategy string

const (
	// ResponseLast publishes the final step's result.
	ResponseLast ResponseStrategy = "last"
	// ResponseSummary asks the planner model to synthesize all step results.
	ResponseSummary ResponseStrategy = "summary"
)

// SupervisorOptions configures a SupervisorAgent.
type SupervisorOptions struct {
	Description string
	// Instruction is the natural-language goal handed to the planner.
	Instruction string
	InputKeys   []string
	OutputKey   string
	MaxSteps    int
	Strategy    ResponseStrategy
}

// SupervisorAgent lets a planning model choose which registered sub-agents
// to run, in which order and with which arguments.
//
// Planning produces a Plan validated against a JSON schema and against the
// capability table before any step executes; execution then behaves like a
// sequence over the planned steps.
type SupervisorAgent struct {
	BaseAgent
	planner     model.Model
	registry    map[string]core.Agent
	order       []core.Agent
	instruction string
	maxSteps    int
	strategy    ResponseStrategy
}

// NewSupervisorAgent creates a supervisor over subAgents.
func NewSupervisorAgent(name string, planner model.Model, subAgents []core.Agent, optFns ...func(o *SupervisorOptions)) *SupervisorAgent {
	opts := SupervisorOptions{
		OutputKey: name,
		MaxSteps:  DefaultMaxSteps,
		Strategy:  ResponseLast,
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	registry := make(map[string]core.Agent, len(subAgents))
	for _, a := range nonNil(subAgents) {
		registry[a.Name()] = a
	}

	s := &SupervisorAgent{
		BaseAgent:   NewBaseAgent(name, opts.OutputKey, opts.InputKeys...),
		planner:     planner,
		registry:    registry,
		order:       subAgents,
		instruction: opts.Instruction,
		maxSteps:    opts.MaxSteps,
		strategy:    opts.Strategy,
	}
	s.SetDescription(opts.Description)

	return s
}

// SubAgents implements core.Composite.
func (s *SupervisorAgent) SubAgents() []core.Agent { return s.order }

// Capabilities returns the capability table handed to the planner, sorted by name.
func (s *SupervisorAgent) Capabilities() []core.AgentInfo {
	infos := make([]core.AgentInfo, 0, len(s.registry))
	for _, a := range s.registry {
		infos = append(infos, core.Describe(a))
	}

	sort.Slice(infos, func(i, j int) bool { return infos[i].Name < infos[j].Name })

	return infos
}

// Validate implements core.Validator.
func (s *SupervisorAgent) Validate() error {
	if s.planner == nil {
		return core.NewInvalidConfigurationError(s.Name(), "no planner model configured")
	}

	if len(s.registry) == 0 {
		return core.NewInvalidConfigurationError(s.Name(), "supervisor without sub-agents")
	}

	if len(s.registry) != len(s.order) {
		return core.NewInvalidConfigurationError(s.Name(), "sub-agent names must be unique and non-nil")
	}

	if s.maxSteps < 1 {
		return core.NewInvalidConfigurationError(s.Name(), "max steps must be at least 1")
	}

	if s.strategy != ResponseLast && s.strategy != ResponseSummary {
		return core.NewInvalidConfigurationError(s.Name(), "unknown response strategy %q", s.strategy)
	}

	return nil
}

// Run implements core.Agent: plan, validate, execute.
func (s *SupervisorAgent) Run(ic *core.InvocationContext) error {
	plan, err := s.Plan(ic)
	if err != nil {
		return err
	}

	return s.Execute(ic, plan)
}

// Plan asks the planner model for a plan and validates it against the
// current scope. The returned plan can be stored and replayed with Execute.
func (s *SupervisorAgent) Plan(ic *core.InvocationContext) (Plan, error) {
	for _, k := range s.InputKeys() {
		if !ic.Scope.Has(k) {
			return Plan{}, core.NewMissingInputError(s.Name(), k)
		}
	}

	prompt, err := s.planningPrompt(ic.Scope)
	if err != nil {
		return Plan{}, core.NewInvalidConfigurationError(s.Name(), "build planning prompt: %v", err)
	}

	if err := ic.Limiter.Increment(); err != nil {
		return Plan{}, fmt.Errorf("agent %s: %w", s.Name(), err)
	}

	resp, err := model.Chat(ic.Context, s.planner, model.Request{
		Instructions: plannerInstructions,
		Prompt:       prompt,
	})
	if err != nil {
		return Plan{}, core.NewModelInvocationError(s.Name(), err)
	}

	plan, err := ParsePlan(resp.Text)
	if err != nil {
		ic.Logger.Warn("agent.supervisor.plan_rejected", "agent", s.Name(), "reply", resp.Text, "error", err)
		return Plan{}, core.NewInvalidPlanError(s.Name(), err)
	}

	if err := s.ValidatePlan(plan, ic.Scope.Keys()); err != nil {
		ic.Logger.Warn("agent.supervisor.plan_rejected", "agent", s.Name(), "reply", resp.Text, "error", err)
		return Plan{}, core.NewInvalidPlanError(s.Name(), err)
	}

	ic.Logger.Info("agent.supervisor.plan", "agent", s.Name(), "steps", plan.agentNames())

	return plan, nil
}

// ParsePlan decodes a planner reply, tolerating a surrounding markdown code fence.
func ParsePlan(reply string) (Plan, error) {
	raw := []byte(stripCodeFence(reply))

	if err := planSchema.Validate(raw); err != nil {
		return Plan{}, err
	}

	var plan Plan
	if err := json.Unmarshal(raw, &plan); err != nil {
		return Plan{}, fmt.Errorf("decode plan: %w", err)
	}

	return plan, nil
}

// ValidatePlan checks plan against the capability table. available lists the
// scope keys present before the first step.
func (s *SupervisorAgent) ValidatePlan(plan Plan, available []string) error {
	if len(plan.Steps) == 0 {
		return errors.New("plan has no steps")
	}

	if len(plan.Steps) > s.maxSteps {
		return fmt.Errorf("plan has %d steps, limit is %d", len(plan.Steps), s.maxSteps)
	}

	known := map[string]bool{}
	for _, k := range available {
		known[k] = true
	}

	planned := map[string]bool{}

	for i, step := range plan.Steps {
		a, ok := s.registry[step.Agent]
		if !ok {
			return fmt.Errorf("step %d: unknown agent %q", i+1, step.Agent)
		}

		for key, b := range step.Bindings {
			if !contains(a.InputKeys(), key) {
				return fmt.Errorf("step %d: agent %s has no input %q", i+1, a.Name(), key)
			}

			if (b.Value == nil) == (b.From == "") {
				return fmt.Errorf("step %d: binding %q needs exactly one of value or from", i+1, key)
			}

			if b.From != "" && !known[b.From] {
				return fmt.Errorf("step %d: binding %q reads unavailable key %q", i+1, key, b.From)
			}
		}

		for _, in := range a.InputKeys() {
			if _, bound := step.Bindings[in]; !bound && !known[in] {
				return fmt.Errorf("step %d: input %q of agent %s is neither bound nor available", i+1, in, a.Name())
			}
		}

		for key := range step.Bindings {
			known[key] = true
		}

		known[a.OutputKey()] = true
		planned[a.Name()] = true
	}

	if plan.Final != "" && !planned[plan.Final] {
		return fmt.Errorf("final agent %q is not part of the plan", plan.Final)
	}

	return nil
}

// Execute runs a validated plan. Any failing step aborts execution.
func (s *SupervisorAgent) Execute(ic *core.InvocationContext, plan Plan) error {
	if err := s.ValidatePlan(plan, ic.Scope.Keys()); err != nil {
		return core.NewInvalidPlanError(s.Name(), err)
	}

	for i, step := range plan.Steps {
		a := s.registry[step.Agent]

		for key, b := range step.Bindings {
			if b.Value != nil {
				ic.Scope.Set(key, *b.Value)
				continue
			}

			v, ok := ic.Scope.Get(b.From)
			if !ok {
				return core.NewMissingInputError(a.Name(), b.From)
			}

			ic.Scope.Set(key, v)
		}

		if err := ic.Invoke(a); err != nil {
			return fmt.Errorf("supervisor step %d failed at agent %s: %w", i+1, a.Name(), err)
		}
	}

	result, err := s.respond(ic, plan)
	if err != nil {
		return err
	}

	ic.Scope.Set(s.OutputKey(), result)

	return nil
}

func (s *SupervisorAgent) respond(ic *core.InvocationContext, plan Plan) (any, error) {
	final := plan.Final
	if final == "" {
		final = plan.Steps[len(plan.Steps)-1].Agent
	}

	if s.strategy == ResponseLast {
		v, ok := ic.Scope.Get(s.registry[final].OutputKey())
		if !ok {
			return nil, &core.AgentError{Agent: final, Kind: core.ErrMissingOutput, Key: s.registry[final].OutputKey()}
		}

		return v, nil
	}

	var b strings.Builder

	fmt.Fprintf(&b, "Goal:\n%s\n\nResults:\n", s.instruction)

	for _, step := range plan.Steps {
		a := s.registry[step.Agent]
		v, _ := ic.Scope.Get(a.OutputKey())
		fmt.Fprintf(&b, "\n[%s]\n%v\n", a.Name(), v)
	}

	if err := ic.Limiter.Increment(); err != nil {
		return nil, fmt.Errorf("agent %s: %w", s.Name(), err)
	}

	resp, err := model.Chat(ic.Context, s.planner, model.Request{
		Instructions: "Synthesize the results into one final answer for the goal.",
		Prompt:       b.String(),
	})
	if err != nil {
		return nil, core.NewModelInvocationError(s.Name(), err)
	}

	return resp.Text, nil
}

const plannerInstructions = `You are a planner coordinating specialised agents.
Choose which agents to run, in which order, and how to bind their inputs.
Respond with a single JSON object matching the given schema and nothing else.`

func (s *SupervisorAgent) planningPrompt(scope *core.Scope) (string, error) {
	caps, err := json.MarshalIndent(s.Capabilities(), "", "  ")
	if err != nil {
		return "", err
	}

	var b strings.Builder

	fmt.Fprintf(&b, "Goal:\n%s\n\n", s.instruction)
	fmt.Fprintf(&b, "Available agents:\n%s\n\n", caps)
	b.WriteString("Known values:\n")

	for _, k := range scope.Keys() {
		v, _ := scope.Get(k)
		fmt.Fprintf(&b, "- %s: %v\n", k, v)
	}

	fmt.Fprintf(&b, "\nAt most %d steps. Inputs already known need no binding.\n", s.maxSteps)
	fmt.Fprintf(&b, "Plan JSON schema:\n%s\n", planSchema.JSON())

	return b.String(), nil
}

func (p Plan) agentNames() []string {
	names := make([]string, len(p.Steps))
	for i, s := range p.Steps {
		names[i] = s.Agent
	}

	return names
}

func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}

	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	}

	return strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), "```"))
}
