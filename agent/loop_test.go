package agent

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/agentweave/core"
)

// scoreBody returns a body agent raising "score" by step on every run.
func scoreBody(step float64) *testChildAgent {
	return newTestChildAgent("Refiner", "score", func(ic *core.InvocationContext) error {
		ic.Scope.Set("score", core.ReadState(ic.Scope, "score", 0.0)+step)
		return nil
	})
}

func scoreAtLeast(threshold float64) Predicate {
	return func(s *core.Scope) bool { return core.ReadState(s, "score", 0.0) >= threshold }
}

func TestNewLoopAgent_Defaults(t *testing.T) {
	la := NewLoopAgent("Loop", []core.Agent{newTestChildAgent("Body", "out", nil, "in")})

	assert.Equal(t, DefaultMaxIters, la.MaxIters())
	assert.Equal(t, "out", la.OutputKey())
	assert.Equal(t, []string{"in"}, la.InputKeys())
	assert.Len(t, la.SubAgents(), 1)
	require.NoError(t, la.Validate())
}

func TestLoopAgent_ReachesCeiling(t *testing.T) {
	body := scoreBody(0.05)
	la := NewLoopAgent("Refine", []core.Agent{body}, WithMaxIters(5), WithPredicate(scoreAtLeast(0.9)))

	ic := makeInvocationCtx(t, map[string]any{"score": 0.5})
	require.NoError(t, la.Run(ic))

	assert.Equal(t, 5, body.Runs())
	assert.InDelta(t, 0.75, core.ReadState(ic.Scope, "score", 0.0), 1e-9)
}

func TestLoopAgent_PredicateExitsEarly(t *testing.T) {
	body := scoreBody(0.15)
	la := NewLoopAgent("Refine", []core.Agent{body}, WithMaxIters(5), WithPredicate(scoreAtLeast(0.9)))

	ic := makeInvocationCtx(t, map[string]any{"score": 0.5})
	require.NoError(t, la.Run(ic))

	assert.Equal(t, 3, body.Runs())
	assert.GreaterOrEqual(t, core.ReadState(ic.Scope, "score", 0.0), 0.9)
}

func TestLoopAgent_PredicateCheckedAfterBody(t *testing.T) {
	body := scoreBody(0.0)
	la := NewLoopAgent("Refine", []core.Agent{body}, WithMaxIters(5), WithPredicate(scoreAtLeast(0.9)))

	require.NoError(t, la.Run(makeInvocationCtx(t, map[string]any{"score": 1.0})))
	assert.Equal(t, 1, body.Runs(), "body runs at least once")
}

func TestLoopAgent_MissingScoreRunsToCeiling(t *testing.T) {
	body := newTestChildAgent("Body", "out", nil)
	la := NewLoopAgent("Refine", []core.Agent{body}, WithMaxIters(3), WithPredicate(scoreAtLeast(0.9)))

	require.NoError(t, la.Run(makeInvocationCtx(t, nil)))
	assert.Equal(t, 3, body.Runs())
}

func TestLoopAgent_BodyErrorAborts(t *testing.T) {
	calls := 0
	body := newTestChildAgent("Body", "out", func(*core.InvocationContext) error {
		calls++
		if calls == 2 {
			return core.NewModelInvocationError("Body", errors.New("timeout"))
		}

		return nil
	})

	la := NewLoopAgent("Refine", []core.Agent{body}, WithMaxIters(5))

	err := la.Run(makeInvocationCtx(t, nil))
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrModelInvocation)
	assert.Contains(t, err.Error(), "loop iteration 2")
	assert.Equal(t, 2, calls)
}

func TestLoopAgent_SequentialBody(t *testing.T) {
	var order []string

	first := newTestChildAgent("Draft", "draft", func(ic *core.InvocationContext) error {
		order = append(order, "Draft")
		return nil
	})
	second := newTestChildAgent("Review", "review", func(ic *core.InvocationContext) error {
		order = append(order, "Review")
		ic.Scope.Set("review", "ok")
		return nil
	})

	la := NewLoopAgent("Refine", []core.Agent{first, second}, WithMaxIters(2), WithLoopOutputKey("final"))

	ic := makeInvocationCtx(t, nil)
	require.NoError(t, la.Run(ic))

	assert.Equal(t, []string{"Draft", "Review", "Draft", "Review"}, order)
	assert.Equal(t, "ok", core.ReadState(ic.Scope, "final", ""))
}

func TestLoopAgent_Validate(t *testing.T) {
	body := []core.Agent{newTestChildAgent("Body", "out", nil)}

	assert.ErrorIs(t, NewLoopAgent("L", body, WithMaxIters(0)).Validate(), core.ErrInvalidConfiguration)
	assert.ErrorIs(t, NewLoopAgent("L", body, WithInterval(-time.Second)).Validate(), core.ErrInvalidConfiguration)
	assert.ErrorIs(t, NewLoopAgent("L", nil).Validate(), core.ErrInvalidConfiguration)

	la := NewLoopAgent("L", body, WithLoopDescription("Refines drafts"))
	assert.Equal(t, "Refines drafts", la.Description())
}

func TestLoopAgent_Cancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	body := newTestChildAgent("Body", "out", func(*core.InvocationContext) error {
		cancel()
		return nil
	})

	la := NewLoopAgent("Refine", []core.Agent{body}, WithMaxIters(10), WithInterval(time.Hour))
	ic := core.NewInvocationContext(ctx, "inv", nil)

	err := la.Run(ic)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, body.Runs())
}
