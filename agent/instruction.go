package agent

import (
	"github.com/hupe1980/agentweave/core"
	"github.com/hupe1980/agentweave/internal/util"
)

// Provider supplies dynamic instruction text at runtime.
// Implementations can derive instructions from the invocation scope, environment, etc.
type Provider interface {
	Instruction(*core.InvocationContext) (string, error)
}

// Func is a functional adapter to allow ordinary functions to be used as Providers.
type Func func(*core.InvocationContext) (string, error)

// Instruction implements Provider.
func (f Func) Instruction(ic *core.InvocationContext) (string, error) { return f(ic) }

// Instruction represents either a static instruction string or a dynamic provider.
// Static text may reference scope values with template actions.
type Instruction struct {
	text     string
	provider Provider
}

// NewInstructionFromText creates an Instruction from a static string.
func NewInstructionFromText(text string) Instruction { return Instruction{text: text} }

// NewInstructionFromProvider creates an Instruction from a dynamic provider.
func NewInstructionFromProvider(p Provider) Instruction { return Instruction{provider: p} }

// NewInstructionFromFunc creates an Instruction from a function.
func NewInstructionFromFunc(f func(*core.InvocationContext) (string, error)) Instruction {
	return Instruction{provider: Func(f)}
}

// IsStatic returns true if the instruction is backed by a static string.
func (i Instruction) IsStatic() bool { return i.provider == nil }

// Resolve returns the instruction text, invoking the provider if needed.
func (i Instruction) Resolve(ic *core.InvocationContext) (string, error) {
	if i.provider != nil {
		return i.provider.Instruction(ic)
	}

	return util.Render(i.text, ic.Scope.Snapshot())
}
