package engine

import (
	"context"
	"fmt"
	"sync"

	"github.com/hupe1980/agentweave/core"
)

// CallbackType defines the lifecycle points where callbacks run.
//
// Available callback types:
//   - BeforeWorkflow/AfterWorkflow: Around one workflow invocation
//   - BeforeAgent/AfterAgent: Around every agent invocation in the tree
//   - OnError: After an agent or workflow failed
//
// Callbacks are instrumentation: their errors are logged and never change
// the outcome of a run.
type CallbackType string

const (
	// CallbackBeforeWorkflow is triggered once before the root agent runs.
	CallbackBeforeWorkflow CallbackType = "before_workflow"

	// CallbackAfterWorkflow is triggered once after the root agent finished.
	CallbackAfterWorkflow CallbackType = "after_workflow"

	// CallbackBeforeAgent is triggered before an agent begins execution.
	CallbackBeforeAgent CallbackType = "before_agent"

	// CallbackAfterAgent is triggered after an agent completes execution,
	// successfully or not.
	CallbackAfterAgent CallbackType = "after_agent"

	// CallbackOnError is triggered when an agent or the workflow failed.
	CallbackOnError CallbackType = "on_error"
)

// CallbackContext provides context information for callback execution.
type CallbackContext struct {
	// InvocationContext is the context of the running invocation.
	InvocationContext *core.InvocationContext

	// Workflow names the invoked workflow.
	Workflow string

	// Agent is the agent concerned. Nil for workflow callbacks.
	Agent core.Agent

	// CallbackType indicates which callback type triggered this execution.
	CallbackType CallbackType

	// Err is the failure for after and error callbacks, nil otherwise.
	Err error

	// Metadata provides extensible storage for custom callback data.
	Metadata map[string]any
}

// AgentName returns the concerned agent's name, or "" for workflow callbacks.
func (c *CallbackContext) AgentName() string {
	if c.Agent == nil {
		return ""
	}

	return c.Agent.Name()
}

// Callback defines the interface for execution lifecycle hooks.
//
// Implementations should be fast: callbacks run synchronously on the
// goroutine executing the agent, which includes parallel branches.
type Callback interface {
	// Type returns the callback type this implementation handles.
	Type() CallbackType

	// Execute performs the callback logic with the provided context.
	Execute(ctx context.Context, callbackCtx *CallbackContext) error
}

// FunctionCallback wraps a function as a callback implementation.
//
// Example:
//
//	cb := NewFunctionCallback(
//	    CallbackBeforeAgent,
//	    func(ctx context.Context, callbackCtx *CallbackContext) error {
//	        log.Printf("Processing with Agent: %s", callbackCtx.AgentName())
//	        return nil
//	    },
//	)
type FunctionCallback struct {
	callbackType CallbackType
	fn           func(ctx context.Context, callbackCtx *CallbackContext) error
}

// NewFunctionCallback creates a new function-based callback.
func NewFunctionCallback(
	callbackType CallbackType,
	fn func(ctx context.Context, callbackCtx *CallbackContext) error,
) *FunctionCallback {
	return &FunctionCallback{
		callbackType: callbackType,
		fn:           fn,
	}
}

// Type returns the callback type this function handles.
func (c *FunctionCallback) Type() CallbackType {
	return c.callbackType
}

// Execute calls the wrapped function with the provided context.
func (c *FunctionCallback) Execute(ctx context.Context, callbackCtx *CallbackContext) error {
	return c.fn(ctx, callbackCtx)
}

// CallbackManager holds registered callbacks and runs them in registration
// order. It implements core.Hook so it can observe every agent in a tree.
//
// Registration and execution are safe for concurrent use; parallel branches
// execute agent callbacks concurrently.
type CallbackManager struct {
	mu        sync.RWMutex
	callbacks map[CallbackType][]Callback
}

var _ core.Hook = (*CallbackManager)(nil)

// NewCallbackManager creates a new callback manager instance.
func NewCallbackManager() *CallbackManager {
	return &CallbackManager{
		callbacks: make(map[CallbackType][]Callback),
	}
}

// RegisterCallback adds a callback for its type.
func (cm *CallbackManager) RegisterCallback(callback Callback) {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	callbackType := callback.Type()
	cm.callbacks[callbackType] = append(cm.callbacks[callbackType], callback)
}

// ExecuteCallbacks executes all registered callbacks for the specified type.
// Execution stops at the first error, which is returned.
func (cm *CallbackManager) ExecuteCallbacks(
	ctx context.Context,
	callbackType CallbackType,
	callbackCtx *CallbackContext,
) error {
	cm.mu.RLock()
	callbacks := cm.callbacks[callbackType]
	cm.mu.RUnlock()

	callbackCtx.CallbackType = callbackType

	for _, callback := range callbacks {
		if err := callback.Execute(ctx, callbackCtx); err != nil {
			return fmt.Errorf("%s callback failed: %w", callbackType, err)
		}
	}

	return nil
}

// BeforeAgent implements core.Hook.
func (cm *CallbackManager) BeforeAgent(ic *core.InvocationContext, agent core.Agent) error {
	return cm.ExecuteCallbacks(ic.Context, CallbackBeforeAgent, &CallbackContext{
		InvocationContext: ic,
		Workflow:          ic.Workflow,
		Agent:             agent,
	})
}

// AfterAgent implements core.Hook. A failed agent additionally triggers the
// error callbacks.
func (cm *CallbackManager) AfterAgent(ic *core.InvocationContext, agent core.Agent, runErr error) error {
	cbCtx := &CallbackContext{
		InvocationContext: ic,
		Workflow:          ic.Workflow,
		Agent:             agent,
		Err:               runErr,
	}

	err := cm.ExecuteCallbacks(ic.Context, CallbackAfterAgent, cbCtx)

	if runErr != nil {
		if errCb := cm.ExecuteCallbacks(ic.Context, CallbackOnError, cbCtx); errCb != nil && err == nil {
			err = errCb
		}
	}

	return err
}

// LoggingCallback forwards lifecycle events to a logging function.
//
// Example:
//
//	callback := NewLoggingCallback(CallbackBeforeAgent, func(msg string) {
//	    log.Print(msg)
//	})
type LoggingCallback struct {
	callbackType CallbackType
	logger       func(message string)
}

// NewLoggingCallback creates a new logging callback.
func NewLoggingCallback(callbackType CallbackType, logger func(message string)) *LoggingCallback {
	return &LoggingCallback{
		callbackType: callbackType,
		logger:       logger,
	}
}

// Type returns the callback type this logger handles.
func (c *LoggingCallback) Type() CallbackType {
	return c.callbackType
}

// Execute logs the lifecycle event. Agent events read
// "Processing with Agent: <name>".
func (c *LoggingCallback) Execute(_ context.Context, callbackCtx *CallbackContext) error {
	if c.logger == nil {
		return nil
	}

	var message string

	switch {
	case callbackCtx.CallbackType == CallbackBeforeAgent:
		message = "Processing with Agent: " + callbackCtx.AgentName()
	case callbackCtx.Agent != nil && callbackCtx.Err != nil:
		message = fmt.Sprintf("[%s] Agent: %s, Error: %v", callbackCtx.CallbackType, callbackCtx.AgentName(), callbackCtx.Err)
	case callbackCtx.Agent != nil:
		message = fmt.Sprintf("[%s] Agent: %s", callbackCtx.CallbackType, callbackCtx.AgentName())
	default:
		message = fmt.Sprintf("[%s] Workflow: %s", callbackCtx.CallbackType, callbackCtx.Workflow)
	}

	c.logger(message)

	return nil
}

// StateValidationCallback checks the scope after every agent.
//
// The validator receives a snapshot of the scope; an error is reported via
// the logs and the error callbacks but does not fail the run.
//
// Example:
//
//	callback := NewStateValidationCallback(func(state map[string]any) error {
//	    if _, ok := state["score"].(string); ok {
//	        return errors.New("score must be numeric")
//	    }
//	    return nil
//	})
type StateValidationCallback struct {
	validator func(state map[string]any) error
}

// NewStateValidationCallback creates a new state validation callback.
func NewStateValidationCallback(validator func(state map[string]any) error) *StateValidationCallback {
	return &StateValidationCallback{
		validator: validator,
	}
}

// Type returns the callback type (always CallbackAfterAgent).
func (c *StateValidationCallback) Type() CallbackType {
	return CallbackAfterAgent
}

// Execute validates the scope after a successful agent.
func (c *StateValidationCallback) Execute(_ context.Context, callbackCtx *CallbackContext) error {
	if c.validator == nil || callbackCtx.Err != nil || callbackCtx.InvocationContext == nil {
		return nil
	}

	return c.validator(callbackCtx.InvocationContext.Scope.Snapshot())
}
