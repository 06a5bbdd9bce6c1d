package agent

import (
	"errors"
	"testing"

	"github.com/hupe1980/agentweave/core"
)

type mockProvider struct {
	text string
	err  error
}

func (m mockProvider) Instruction(*core.InvocationContext) (string, error) { return m.text, m.err }

func TestInstruction_Static(t *testing.T) {
	inst := NewInstructionFromText("static instruction")
	if !inst.IsStatic() {
		t.Fatalf("expected static instruction")
	}

	got, err := inst.Resolve(makeInvocationCtx(t, nil))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got != "static instruction" {
		t.Fatalf("got %q", got)
	}
}

func TestInstruction_StaticTemplate(t *testing.T) {
	inst := NewInstructionFromText("You cook {{.cuisine}} food.")

	got, err := inst.Resolve(makeInvocationCtx(t, map[string]any{"cuisine": "Italian"}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got != "You cook Italian food." {
		t.Fatalf("got %q", got)
	}
}

func TestInstruction_StaticTemplateMissingKey(t *testing.T) {
	inst := NewInstructionFromText("You cook {{.cuisine}} food.")

	if _, err := inst.Resolve(makeInvocationCtx(t, nil)); err == nil {
		t.Fatalf("expected error for missing key")
	}
}

func TestInstruction_Provider(t *testing.T) {
	inst := NewInstructionFromProvider(mockProvider{text: "dynamic"})
	if inst.IsStatic() {
		t.Fatalf("expected dynamic instruction")
	}

	got, err := inst.Resolve(makeInvocationCtx(t, nil))
	if err != nil || got != "dynamic" {
		t.Fatalf("got %q, %v", got, err)
	}
}

func TestInstruction_ProviderError(t *testing.T) {
	boom := errors.New("boom")
	inst := NewInstructionFromProvider(mockProvider{err: boom})

	if _, err := inst.Resolve(makeInvocationCtx(t, nil)); !errors.Is(err, boom) {
		t.Fatalf("expected provider error, got %v", err)
	}
}

func TestInstruction_Func(t *testing.T) {
	inst := NewInstructionFromFunc(func(ic *core.InvocationContext) (string, error) {
		return "invocation " + ic.InvocationID, nil
	})

	got, err := inst.Resolve(makeInvocationCtx(t, nil))
	if err != nil || got != "invocation test-invocation" {
		t.Fatalf("got %q, %v", got, err)
	}
}
