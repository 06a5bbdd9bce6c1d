package engine

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"

	"github.com/hupe1980/agentweave/agent"
	"github.com/hupe1980/agentweave/core"
	"github.com/hupe1980/agentweave/logging"
	"github.com/hupe1980/agentweave/tracing"
	"github.com/hupe1980/agentweave/workerpool"
)

var (
	// ErrWorkflowNotFound is returned by Invoke for an unregistered workflow name.
	ErrWorkflowNotFound = errors.New("workflow not found")

	// ErrDuplicateWorkflow is returned by Register for a name already in use.
	ErrDuplicateWorkflow = errors.New("workflow already registered")

	// ErrInvocationNotFound is returned by StopInvocation for an unknown id.
	ErrInvocationNotFound = errors.New("invocation not found")
)

// Workflow is a named agent tree ready for invocation.
type Workflow struct {
	Name        string
	Description string
	// Root is the agent run for every invocation.
	Root core.Agent
	// Arguments lists the keys callers must supply. Defaults to the root's input keys.
	Arguments []string
	// OutputKey is read from the scope after the root finished. Defaults to
	// the root's output key.
	OutputKey string
}

// WorkflowInfo describes a registered workflow.
type WorkflowInfo struct {
	Name        string           `json:"name"`
	Description string           `json:"description"`
	Arguments   []string         `json:"arguments"`
	OutputKey   string           `json:"output_key"`
	Agents      []core.AgentInfo `json:"agents"`
}

// Result is the outcome of one workflow invocation.
type Result struct {
	InvocationID string         `json:"invocation_id"`
	Workflow     string         `json:"workflow"`
	Output       any            `json:"output"`
	State        map[string]any `json:"state"`
	Duration     time.Duration  `json:"duration"`
}

// WorkflowRecorder receives one observation per finished workflow invocation.
type WorkflowRecorder interface {
	ObserveWorkflow(workflow string, err error, dur time.Duration)
}

// Options configures an Engine instance using the functional options pattern.
//
// Example:
//
//	eng := New(func(o *Options) {
//	    o.Logger = logger
//	    o.MaxConcurrentInvocations = 20
//	})
type Options struct {
	// Logger provides structured logging. Defaults to a no-op logger.
	Logger logging.Logger

	// Callbacks runs lifecycle callbacks. Defaults to an empty manager.
	Callbacks *CallbackManager

	// Hooks observe every agent invocation, after the callbacks.
	Hooks []core.Hook

	// Tracer opens one span per invocation when set.
	Tracer *tracing.Tracer

	// Recorder observes finished invocations when set.
	Recorder WorkflowRecorder

	// MaxConcurrentInvocations bounds simultaneous invocations; callers
	// beyond it wait. Zero means unlimited.
	MaxConcurrentInvocations int

	// MaxModelCalls bounds model calls per invocation. Zero means unlimited.
	MaxModelCalls int
}

// Engine registers workflows and runs invocations of them.
//
// Every invocation gets:
//   - A fresh invocation id (UUID) and a fresh Scope seeded with the arguments
//   - Hooks for callbacks, tracing and caller supplied instrumentation
//   - Cancellation through ctx or StopInvocation
//
// Workflows are validated at registration, so wiring errors never surface
// at invocation time. All methods are safe for concurrent use.
type Engine struct {
	logger        logging.Logger
	callbacks     *CallbackManager
	hooks         []core.Hook
	tracer        *tracing.Tracer
	recorder      WorkflowRecorder
	limiter       *workerpool.Pool
	maxModelCalls int

	mu        sync.RWMutex
	workflows map[string]Workflow

	invocationsMu     sync.Mutex
	activeInvocations map[string]context.CancelFunc
}

// New creates a new Engine instance.
func New(optFns ...func(o *Options)) *Engine {
	opts := Options{
		Logger:    logging.NoOpLogger{},
		Callbacks: NewCallbackManager(),
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}

	if opts.Callbacks == nil {
		opts.Callbacks = NewCallbackManager()
	}

	e := &Engine{
		logger:            opts.Logger,
		callbacks:         opts.Callbacks,
		hooks:             opts.Hooks,
		tracer:            opts.Tracer,
		recorder:          opts.Recorder,
		maxModelCalls:     opts.MaxModelCalls,
		workflows:         make(map[string]Workflow),
		activeInvocations: make(map[string]context.CancelFunc),
	}

	if opts.MaxConcurrentInvocations > 0 {
		e.limiter = workerpool.New(func(o *workerpool.Options) { o.Size = opts.MaxConcurrentInvocations })
	}

	return e
}

// Callbacks returns the engine's callback manager.
func (e *Engine) Callbacks() *CallbackManager { return e.callbacks }

// Register validates w and adds it to the registry.
func (e *Engine) Register(w Workflow) error {
	if w.Name == "" {
		return core.NewInvalidConfigurationError("", "workflow without name")
	}

	if w.Root == nil {
		return core.NewInvalidConfigurationError(w.Name, "workflow without root agent")
	}

	if err := agent.Validate(w.Root); err != nil {
		return fmt.Errorf("workflow %s: %w", w.Name, err)
	}

	if w.Arguments == nil {
		w.Arguments = w.Root.InputKeys()
	}

	if w.OutputKey == "" {
		w.OutputKey = w.Root.OutputKey()
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if _, exists := e.workflows[w.Name]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateWorkflow, w.Name)
	}

	e.workflows[w.Name] = w

	return nil
}

// Workflow returns the registered workflow with the given name.
func (e *Engine) Workflow(name string) (Workflow, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	w, ok := e.workflows[name]

	return w, ok
}

// Workflows describes all registered workflows, sorted by name.
func (e *Engine) Workflows() []WorkflowInfo {
	e.mu.RLock()
	defer e.mu.RUnlock()

	infos := make([]WorkflowInfo, 0, len(e.workflows))

	for _, w := range e.workflows {
		infos = append(infos, WorkflowInfo{
			Name:        w.Name,
			Description: w.Description,
			Arguments:   w.Arguments,
			OutputKey:   w.OutputKey,
			Agents:      describeTree(w.Root),
		})
	}

	sort.Slice(infos, func(i, j int) bool { return infos[i].Name < infos[j].Name })

	return infos
}

// Invoke runs the named workflow with args seeding the scope and blocks
// until it finished. The returned Result carries the invocation id and the
// final scope even when err is non-nil.
//
// Failure modes:
//   - Unknown workflow: ErrWorkflowNotFound
//   - Missing argument: core.ErrMissingInput, nothing runs
//   - Agent failure: the agent's error, wrapped by its composers
//   - Root finished without writing the output key: core.ErrMissingOutput
func (e *Engine) Invoke(ctx context.Context, name string, args map[string]any) (Result, error) {
	w, ok := e.Workflow(name)
	if !ok {
		return Result{Workflow: name}, fmt.Errorf("%w: %s", ErrWorkflowNotFound, name)
	}

	for _, k := range w.Arguments {
		if _, present := args[k]; !present {
			return Result{Workflow: name}, core.NewMissingInputError(w.Name, k)
		}
	}

	invocationID := uuid.NewString()
	result := Result{InvocationID: invocationID, Workflow: name}

	if e.limiter != nil {
		release, err := e.limiter.Acquire(ctx)
		if err != nil {
			return result, err
		}
		defer release()
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	e.invocationsMu.Lock()
	e.activeInvocations[invocationID] = cancel
	e.invocationsMu.Unlock()

	defer func() {
		e.invocationsMu.Lock()
		delete(e.activeInvocations, invocationID)
		e.invocationsMu.Unlock()
	}()

	hooks := make([]core.Hook, 0, len(e.hooks)+2)
	hooks = append(hooks, e.callbacks)

	var err error

	if e.tracer != nil {
		var span trace.Span

		ctx, span = e.tracer.StartInvocation(ctx, name, invocationID)
		hooks = append(hooks, e.tracer)

		defer func() { tracing.End(span, err) }()
	}

	hooks = append(hooks, e.hooks...)

	scope := core.NewScope(invocationID, args)
	ic := core.NewInvocationContext(ctx, invocationID, scope, func(o *core.InvocationOptions) {
		o.Workflow = name
		o.Logger = e.logger
		o.Hooks = hooks
		o.MaxModelCalls = e.maxModelCalls
	})

	e.logger.Info("engine.invoke.start", "workflow", name, "invocation_id", invocationID)
	e.workflowCallback(ic, CallbackBeforeWorkflow, nil)

	start := time.Now()
	err = ic.Invoke(w.Root)

	var output any

	if err == nil {
		var present bool

		output, present = scope.Get(w.OutputKey)
		if !present {
			err = &core.AgentError{Agent: w.Root.Name(), Kind: core.ErrMissingOutput, Key: w.OutputKey}
		}
	}

	result.Output = output
	result.State = scope.Snapshot()
	result.Duration = time.Since(start)

	e.workflowCallback(ic, CallbackAfterWorkflow, err)

	if err != nil {
		e.workflowCallback(ic, CallbackOnError, err)
	}

	logging.LogWorkflowRun(e.logger, name, invocationID, result.Duration, err)

	if e.recorder != nil {
		e.recorder.ObserveWorkflow(name, err, result.Duration)
	}

	if err != nil {
		return result, fmt.Errorf("workflow %s: %w", name, err)
	}

	return result, nil
}

// StopInvocation cancels a running invocation.
func (e *Engine) StopInvocation(invocationID string) error {
	e.invocationsMu.Lock()
	cancel, exists := e.activeInvocations[invocationID]
	e.invocationsMu.Unlock()

	if !exists {
		return fmt.Errorf("%w: %s", ErrInvocationNotFound, invocationID)
	}

	cancel()

	return nil
}

// ActiveInvocations returns the ids of running invocations.
func (e *Engine) ActiveInvocations() []string {
	e.invocationsMu.Lock()
	defer e.invocationsMu.Unlock()

	ids := make([]string, 0, len(e.activeInvocations))
	for id := range e.activeInvocations {
		ids = append(ids, id)
	}

	sort.Strings(ids)

	return ids
}

func (e *Engine) workflowCallback(ic *core.InvocationContext, t CallbackType, err error) {
	cbErr := core.SafeCall(func() error {
		return e.callbacks.ExecuteCallbacks(ic.Context, t, &CallbackContext{
			InvocationContext: ic,
			Workflow:          ic.Workflow,
			Err:               err,
		})
	})
	if cbErr != nil {
		e.logger.Warn("engine.callback.failed", "workflow", ic.Workflow, "invocation_id", ic.InvocationID, "error", cbErr)
	}
}

// describeTree lists every agent of the tree rooted at root, depth first.
func describeTree(root core.Agent) []core.AgentInfo {
	if root == nil {
		return nil
	}

	infos := []core.AgentInfo{core.Describe(root)}

	if c, ok := root.(core.Composite); ok {
		for _, child := range c.SubAgents() {
			infos = append(infos, describeTree(child)...)
		}
	}

	return infos
}
