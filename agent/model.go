package agent

import (
	"fmt"
	"text/template"
	"time"

	"github.com/hupe1980/agentweave/core"
	"github.com/hupe1980/agentweave/internal/util"
	"github.com/hupe1980/agentweave/model"
)

// InvocationHook observes one agent invocation before it calls the model.
// Errors and panics are logged and otherwise ignored.
type InvocationHook func(ic *core.InvocationContext, agentName string) error

// ModelAgentOptions configures a ModelAgent instance.
//
// Use functional options with NewModelAgent to override defaults.
type ModelAgentOptions struct {
	Description string
	// Instruction is sent as the system message.
	Instruction Instruction
	// Prompt is the user message template; it may reference declared input keys.
	Prompt    string
	InputKeys []string
	// Defaults supplies values for input keys absent from the scope.
	Defaults  map[string]any
	OutputKey string
	Coercion  Coercion
	Stream    bool
	// BeforeInvocation hooks run on every invocation of this agent.
	BeforeInvocation []InvocationHook
}

// ModelAgent is the leaf agent: it renders a prompt from declared scope
// keys, calls a language model once and stores the coerced reply.
//
// Failure semantics:
//   - Absent input without default: core.ErrMissingInput, the model is not called
//   - Model failure: core.ErrModelInvocation, no local retry
//   - Reply not coercible: core.ErrResultParse, the raw reply is logged
type ModelAgent struct {
	BaseAgent
	llm         model.Model
	instruction Instruction
	prompt      *template.Template
	promptErr   error
	defaults    map[string]any
	coercion    Coercion
	stream      bool
	hooks       []InvocationHook
}

// NewModelAgent creates a new model-based agent.
//
// Defaults: text coercion, output key equal to the agent name and a generic
// system instruction. Template errors are reported by Validate.
func NewModelAgent(name string, llm model.Model, optFns ...func(o *ModelAgentOptions)) *ModelAgent {
	opts := ModelAgentOptions{
		Instruction: NewInstructionFromText(fmt.Sprintf("You are %s, a helpful AI assistant.", name)),
		OutputKey:   name,
		Coercion:    TextResult(),
		Defaults:    map[string]any{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	tmpl, err := util.ParseTemplate(name, opts.Prompt)

	a := &ModelAgent{
		BaseAgent:   NewBaseAgent(name, opts.OutputKey, opts.InputKeys...),
		llm:         llm,
		instruction: opts.Instruction,
		prompt:      tmpl,
		promptErr:   err,
		defaults:    opts.Defaults,
		coercion:    opts.Coercion,
		stream:      opts.Stream,
		hooks:       opts.BeforeInvocation,
	}
	a.SetDescription(opts.Description)

	return a
}

// AddHook registers an additional per-agent invocation hook.
func (a *ModelAgent) AddHook(h InvocationHook) { a.hooks = append(a.hooks, h) }

// Coercion returns the reply coercion of the agent.
func (a *ModelAgent) Coercion() Coercion { return a.coercion }

// Validate implements core.Validator. It dry-renders the prompt with
// placeholders so references to undeclared keys fail at build time.
func (a *ModelAgent) Validate() error {
	if a.llm == nil {
		return core.NewInvalidConfigurationError(a.Name(), "no model configured")
	}

	if a.promptErr != nil {
		return core.NewInvalidConfigurationError(a.Name(), "parse prompt: %v", a.promptErr)
	}

	placeholders := make(map[string]any, len(a.InputKeys()))
	for _, k := range a.InputKeys() {
		placeholders[k] = "<" + k + ">"
	}

	if _, err := util.RenderTemplate(a.prompt, placeholders); err != nil {
		return core.NewInvalidConfigurationError(a.Name(), "prompt references undeclared key: %v", err)
	}

	return nil
}

// Run implements core.Agent.
func (a *ModelAgent) Run(ic *core.InvocationContext) error {
	for _, h := range a.hooks {
		if err := core.SafeCall(func() error { return h(ic, a.Name()) }); err != nil {
			ic.Logger.Warn("agent.hook.failed", "agent", a.Name(), "error", err)
		}
	}

	data, err := a.inputs(ic.Scope)
	if err != nil {
		return err
	}

	prompt, err := util.RenderTemplate(a.prompt, data)
	if err != nil {
		return core.NewInvalidConfigurationError(a.Name(), "render prompt: %v", err)
	}

	instructions, err := a.instruction.Resolve(ic)
	if err != nil {
		return core.NewInvalidConfigurationError(a.Name(), "resolve instruction: %v", err)
	}

	if err := ic.Limiter.Increment(); err != nil {
		return fmt.Errorf("agent %s: %w", a.Name(), err)
	}

	start := time.Now()

	resp, err := model.Chat(ic.Context, a.llm, model.Request{
		Instructions: instructions,
		Prompt:       prompt,
		Stream:       a.stream,
	})
	if err != nil {
		ic.Logger.Error("agent.model.failed", "agent", a.Name(), "invocation_id", ic.InvocationID, "error", err)
		return core.NewModelInvocationError(a.Name(), err)
	}

	value, err := a.coercion.Coerce(resp.Text)
	if err != nil {
		ic.Logger.Warn("agent.result.unparseable", "agent", a.Name(), "coercion", a.coercion.Kind(), "reply", resp.Text)
		return core.NewResultParseError(a.Name(), a.OutputKey(), err)
	}

	ic.Scope.Set(a.OutputKey(), value)

	ic.Logger.Debug("agent.run.completed", "agent", a.Name(), "output_key", a.OutputKey(), "duration", time.Since(start))

	return nil
}

// inputs collects declared input keys, applying defaults for absent keys.
func (a *ModelAgent) inputs(scope *core.Scope) (map[string]any, error) {
	data := make(map[string]any, len(a.InputKeys()))

	for _, k := range a.InputKeys() {
		if v, ok := scope.Get(k); ok {
			data[k] = v
			continue
		}

		if v, ok := a.defaults[k]; ok {
			data[k] = v
			continue
		}

		return nil, core.NewMissingInputError(a.Name(), k)
	}

	return data, nil
}
