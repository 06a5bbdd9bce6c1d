package core

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubAgent struct {
	name string
	run  func(ic *InvocationContext) error
}

func (a *stubAgent) Name() string        { return a.name }
func (a *stubAgent) Description() string { return "stub " + a.name }
func (a *stubAgent) InputKeys() []string { return nil }
func (a *stubAgent) OutputKey() string   { return a.name }
func (a *stubAgent) Run(ic *InvocationContext) error {
	if a.run == nil {
		return nil
	}

	return a.run(ic)
}

type recordingHook struct {
	before, after []string
	failBefore    bool
	panicAfter    bool
}

func (h *recordingHook) BeforeAgent(_ *InvocationContext, a Agent) error {
	h.before = append(h.before, a.Name())
	if h.failBefore {
		return errors.New("sink unavailable")
	}

	return nil
}

func (h *recordingHook) AfterAgent(_ *InvocationContext, a Agent, _ error) error {
	h.after = append(h.after, a.Name())
	if h.panicAfter {
		panic("sink exploded")
	}

	return nil
}

func TestInvocationContext_InvokeNotifiesHooks(t *testing.T) {
	hook := &recordingHook{}
	ic := NewInvocationContext(context.Background(), "inv-1", nil, func(o *InvocationOptions) {
		o.Hooks = []Hook{hook}
	})

	a := &stubAgent{name: "A", run: func(ic *InvocationContext) error {
		ic.Scope.Set("A", "done")
		return nil
	}}

	require.NoError(t, ic.Invoke(a))
	assert.Equal(t, []string{"A"}, hook.before)
	assert.Equal(t, []string{"A"}, hook.after)
	assert.Equal(t, "done", ReadState(ic.Scope, "A", ""))
}

func TestInvocationContext_HookFailuresAreSwallowed(t *testing.T) {
	hook := &recordingHook{failBefore: true, panicAfter: true}
	ic := NewInvocationContext(context.Background(), "inv-2", nil, func(o *InvocationOptions) {
		o.Hooks = []Hook{hook}
	})

	ran := false
	a := &stubAgent{name: "B", run: func(*InvocationContext) error {
		ran = true
		return nil
	}}

	assert.NoError(t, ic.Invoke(a))
	assert.True(t, ran)
	assert.Equal(t, []string{"B"}, hook.after)
}

func TestInvocationContext_InvokePropagatesAgentError(t *testing.T) {
	ic := NewInvocationContext(context.Background(), "inv-3", nil)
	want := NewMissingInputError("C", "x")

	err := ic.Invoke(&stubAgent{name: "C", run: func(*InvocationContext) error { return want }})
	assert.ErrorIs(t, err, ErrMissingInput)
}

func TestInvocationContext_InvokeHonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	ic := NewInvocationContext(ctx, "inv-4", nil)

	ran := false
	err := ic.Invoke(&stubAgent{name: "D", run: func(*InvocationContext) error {
		ran = true
		return nil
	}})

	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, ran)
}

func TestInvocationContext_WithBranch(t *testing.T) {
	ic := NewInvocationContext(context.Background(), "inv-5", NewScope("inv-5", nil))

	child := ic.WithBranch("pitch").WithBranch("market")
	assert.Equal(t, "pitch.market", child.Branch)
	assert.Equal(t, "", ic.Branch)
	assert.Same(t, ic.Scope, child.Scope)
}

func TestModelLimiter(t *testing.T) {
	l := NewModelLimiter(2)
	require.NoError(t, l.Increment())
	require.NoError(t, l.Increment())
	assert.ErrorIs(t, l.Increment(), ErrModelCallLimit)
	assert.Equal(t, 3, l.Count())

	unlimited := NewModelLimiter(0)
	for i := 0; i < 10; i++ {
		require.NoError(t, unlimited.Increment())
	}

	var nilLimiter *ModelLimiter
	assert.NoError(t, nilLimiter.Increment())
}
