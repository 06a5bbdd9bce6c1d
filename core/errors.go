package core

import (
	"errors"
	"fmt"
)

// Error kinds. Every error produced by an agent wraps exactly one of these so
// callers can branch with errors.Is.
var (
	ErrMissingInput         = errors.New("missing input")
	ErrModelInvocation      = errors.New("model invocation failed")
	ErrResultParse          = errors.New("result parse failed")
	ErrNoMatchingBranch     = errors.New("no matching branch")
	ErrWorkerPoolExhausted  = errors.New("worker pool exhausted")
	ErrInvalidPlan          = errors.New("invalid plan")
	ErrInvalidConfiguration = errors.New("invalid configuration")
	ErrMissingOutput        = errors.New("missing output")
	ErrModelCallLimit       = errors.New("model call limit exceeded")
)

var kindNames = []struct {
	err  error
	name string
}{
	{ErrMissingInput, "missing_input"},
	{ErrModelInvocation, "model_invocation"},
	{ErrResultParse, "result_parse"},
	{ErrNoMatchingBranch, "no_matching_branch"},
	{ErrWorkerPoolExhausted, "worker_pool_exhausted"},
	{ErrInvalidPlan, "invalid_plan"},
	{ErrInvalidConfiguration, "invalid_configuration"},
	{ErrMissingOutput, "missing_output"},
	{ErrModelCallLimit, "model_call_limit"},
}

// AgentError carries the failing agent, the error kind and the cause.
type AgentError struct {
	Agent string
	Kind  error
	// Key is the scope key involved, if any.
	Key string
	Err error
}

// Error implements error.
func (e *AgentError) Error() string {
	msg := fmt.Sprintf("agent %s", e.Agent)
	if e.Err == nil || !errors.Is(e.Err, e.Kind) {
		msg += fmt.Sprintf(": %v", e.Kind)
	}

	if e.Key != "" {
		msg += fmt.Sprintf(" (key %q)", e.Key)
	}

	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}

	return msg
}

// Unwrap exposes both the kind sentinel and the cause to errors.Is / errors.As.
func (e *AgentError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}

	return []error{e.Kind, e.Err}
}

// NewMissingInputError reports a declared input key absent from the scope.
func NewMissingInputError(agent, key string) error {
	return &AgentError{Agent: agent, Kind: ErrMissingInput, Key: key}
}

// NewModelInvocationError wraps a failure of the language-model call.
func NewModelInvocationError(agent string, err error) error {
	return &AgentError{Agent: agent, Kind: ErrModelInvocation, Err: err}
}

// NewResultParseError reports a model reply that could not be coerced.
func NewResultParseError(agent, key string, err error) error {
	return &AgentError{Agent: agent, Kind: ErrResultParse, Key: key, Err: err}
}

// NewNoMatchingBranchError reports a conditional where no predicate held.
func NewNoMatchingBranchError(agent string) error {
	return &AgentError{Agent: agent, Kind: ErrNoMatchingBranch}
}

// NewWorkerPoolExhaustedError reports that a parallel branch could not obtain a worker.
func NewWorkerPoolExhaustedError(agent string, err error) error {
	return &AgentError{Agent: agent, Kind: ErrWorkerPoolExhausted, Err: err}
}

// NewInvalidPlanError reports a supervisor plan that failed validation.
func NewInvalidPlanError(agent string, err error) error {
	return &AgentError{Agent: agent, Kind: ErrInvalidPlan, Err: err}
}

// NewInvalidConfigurationError reports a wiring error detected at build time.
func NewInvalidConfigurationError(agent string, format string, args ...any) error {
	return &AgentError{Agent: agent, Kind: ErrInvalidConfiguration, Err: fmt.Errorf(format, args...)}
}

// KindOf returns a stable machine readable name for the kind of err, or
// "internal" if err carries none of the known kinds.
func KindOf(err error) string {
	if err == nil {
		return ""
	}

	for _, k := range kindNames {
		if errors.Is(err, k.err) {
			return k.name
		}
	}

	return "internal"
}

// FailingAgent returns the name of the innermost agent recorded in err.
func FailingAgent(err error) string {
	var name string

	for err != nil {
		var ae *AgentError
		if !errors.As(err, &ae) {
			break
		}

		name = ae.Agent
		err = ae.Err
	}

	return name
}
