package agent

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/agentweave/core"
	"github.com/hupe1980/agentweave/model"
)

func newSupervisorFixture(t *testing.T, planReply string) (*SupervisorAgent, *model.MockModel, *testChildAgent, *testChildAgent) {
	t.Helper()

	planner := model.NewMockModel("planner")
	planner.SetScript(func(req model.Request) (string, error) {
		if strings.HasPrefix(req.Instructions, "Synthesize") {
			return "summary of results", nil
		}

		return planReply, nil
	})

	coach := newTestChildAgent("Coach", "coaching", func(ic *core.InvocationContext) error {
		ic.Scope.Set("coaching", "feedback on "+core.ReadState(ic.Scope, "response", ""))
		return nil
	}, "response")

	assessor := newTestChildAgent("Assessor", "assessment", func(ic *core.InvocationContext) error {
		ic.Scope.Set("assessment", "hire based on "+core.ReadState(ic.Scope, "coaching", ""))
		return nil
	}, "coaching")

	sup := NewSupervisorAgent("Supervisor", planner, []core.Agent{coach, assessor}, func(o *SupervisorOptions) {
		o.Instruction = "Assess the interview answer"
		o.InputKeys = []string{"request"}
		o.OutputKey = "result"
	})
	require.NoError(t, sup.Validate())

	return sup, planner, coach, assessor
}

const validPlan = `{
  "steps": [
    {"agent": "Coach", "bindings": {"response": {"from": "request"}}},
    {"agent": "Assessor"}
  ]
}`

func TestSupervisorAgent_Run(t *testing.T) {
	sup, planner, coach, assessor := newSupervisorFixture(t, validPlan)

	ic := makeInvocationCtx(t, map[string]any{"request": "I led the migration"})
	require.NoError(t, sup.Run(ic))

	assert.Equal(t, 1, coach.Runs())
	assert.Equal(t, 1, assessor.Runs())
	assert.Equal(t, "hire based on feedback on I led the migration", core.ReadState(ic.Scope, "result", ""))

	calls := planner.Calls()
	require.Len(t, calls, 1)
	assert.Contains(t, calls[0].Prompt, "Assess the interview answer")
	assert.Contains(t, calls[0].Prompt, `"name": "Assessor"`)
	assert.Contains(t, calls[0].Prompt, "request: I led the migration")
}

func TestSupervisorAgent_CodeFence(t *testing.T) {
	sup, _, _, _ := newSupervisorFixture(t, "```json\n"+validPlan+"\n```")

	ic := makeInvocationCtx(t, map[string]any{"request": "answer"})
	require.NoError(t, sup.Run(ic))
	assert.True(t, ic.Scope.Has("result"))
}

func TestSupervisorAgent_InvalidPlans(t *testing.T) {
	tests := map[string]string{
		"not json":         "I would first ask the coach.",
		"no steps":         `{"steps": []}`,
		"unknown agent":    `{"steps": [{"agent": "Oracle"}]}`,
		"unbound input":    `{"steps": [{"agent": "Assessor"}]}`,
		"unknown binding":  `{"steps": [{"agent": "Coach", "bindings": {"mood": {"value": "x"}, "response": {"value": "y"}}}]}`,
		"both sources":     `{"steps": [{"agent": "Coach", "bindings": {"response": {"value": "x", "from": "request"}}}]}`,
		"unavailable from": `{"steps": [{"agent": "Coach", "bindings": {"response": {"from": "nowhere"}}}]}`,
		"final not run":    `{"steps": [{"agent": "Coach", "bindings": {"response": {"from": "request"}}}], "final": "Assessor"}`,
	}

	for name, reply := range tests {
		t.Run(name, func(t *testing.T) {
			sup, _, coach, assessor := newSupervisorFixture(t, reply)

			ic := makeInvocationCtx(t, map[string]any{"request": "answer"})
			err := sup.Run(ic)

			require.Error(t, err)
			assert.ErrorIs(t, err, core.ErrInvalidPlan)
			assert.Equal(t, 0, coach.Runs(), "no step runs before the plan is valid")
			assert.Equal(t, 0, assessor.Runs())
		})
	}
}

func TestSupervisorAgent_MaxSteps(t *testing.T) {
	sup, _, _, _ := newSupervisorFixture(t, validPlan)
	sup.maxSteps = 1

	err := sup.Run(makeInvocationCtx(t, map[string]any{"request": "answer"}))
	assert.ErrorIs(t, err, core.ErrInvalidPlan)
}

func TestSupervisorAgent_MissingInput(t *testing.T) {
	sup, planner, _, _ := newSupervisorFixture(t, validPlan)

	err := sup.Run(makeInvocationCtx(t, nil))
	assert.ErrorIs(t, err, core.ErrMissingInput)
	assert.Empty(t, planner.Calls())
}

func TestSupervisorAgent_PlannerError(t *testing.T) {
	planner := model.NewMockModel("planner")
	planner.SetScript(func(model.Request) (string, error) { return "", errors.New("down") })

	sup := NewSupervisorAgent("Supervisor", planner, []core.Agent{newTestChildAgent("A", "a", nil)})

	err := sup.Run(makeInvocationCtx(t, nil))
	assert.ErrorIs(t, err, core.ErrModelInvocation)
}

func TestSupervisorAgent_ExecuteReplaysPlan(t *testing.T) {
	sup, planner, coach, _ := newSupervisorFixture(t, validPlan)

	first := makeInvocationCtx(t, map[string]any{"request": "first"})
	plan, err := sup.Plan(first)
	require.NoError(t, err)
	assert.Equal(t, []string{"Coach", "Assessor"}, plan.agentNames())

	value := "literal answer"
	plan.Steps[0].Bindings["response"] = Binding{Value: &value}

	second := makeInvocationCtx(t, map[string]any{"request": "second"})
	require.NoError(t, sup.Execute(second, plan))

	assert.Len(t, planner.Calls(), 1, "replay does not consult the planner")
	assert.Equal(t, 1, coach.Runs())
	assert.Equal(t, "hire based on feedback on literal answer", core.ReadState(second.Scope, "result", ""))
}

func TestSupervisorAgent_StepFailureAborts(t *testing.T) {
	planner := model.NewMockModel("planner")
	planner.SetScript(func(model.Request) (string, error) {
		return `{"steps": [{"agent": "Broken"}, {"agent": "Never"}]}`, nil
	})

	broken := newTestChildAgent("Broken", "b", func(*core.InvocationContext) error {
		return core.NewModelInvocationError("Broken", errors.New("down"))
	})
	never := newTestChildAgent("Never", "n", nil)

	sup := NewSupervisorAgent("Supervisor", planner, []core.Agent{broken, never})

	err := sup.Run(makeInvocationCtx(t, nil))
	require.Error(t, err)
	assert.Equal(t, "Broken", core.FailingAgent(err))
	assert.Equal(t, 0, never.Runs())
}

func TestSupervisorAgent_SummaryStrategy(t *testing.T) {
	sup, planner, _, _ := newSupervisorFixture(t, validPlan)
	sup.strategy = ResponseSummary

	ic := makeInvocationCtx(t, map[string]any{"request": "answer"})
	require.NoError(t, sup.Run(ic))

	assert.Equal(t, "summary of results", core.ReadState(ic.Scope, "result", ""))

	calls := planner.Calls()
	require.Len(t, calls, 2)
	assert.Contains(t, calls[1].Prompt, "[Coach]")
	assert.Contains(t, calls[1].Prompt, "[Assessor]")
}

func TestSupervisorAgent_Validate(t *testing.T) {
	a := newTestChildAgent("A", "a", nil)

	assert.ErrorIs(t, NewSupervisorAgent("S", nil, []core.Agent{a}).Validate(), core.ErrInvalidConfiguration)
	assert.ErrorIs(t, NewSupervisorAgent("S", model.NewMockModel("p"), nil).Validate(), core.ErrInvalidConfiguration)

	dup := NewSupervisorAgent("S", model.NewMockModel("p"), []core.Agent{a, newTestChildAgent("A", "other", nil)})
	assert.ErrorIs(t, dup.Validate(), core.ErrInvalidConfiguration)

	bad := NewSupervisorAgent("S", model.NewMockModel("p"), []core.Agent{a}, func(o *SupervisorOptions) { o.Strategy = "vote" })
	assert.ErrorIs(t, bad.Validate(), core.ErrInvalidConfiguration)
}

func TestParsePlan(t *testing.T) {
	plan, err := ParsePlan("```\n{\"steps\":[{\"agent\":\"A\"}],\"final\":\"A\"}\n```")
	require.NoError(t, err)
	assert.Equal(t, "A", plan.Final)
	require.Len(t, plan.Steps, 1)

	_, err = ParsePlan(`{"steps":[{"agent":""}]}`)
	assert.Error(t, err)

	_, err = ParsePlan(`{"final":"A"}`)
	assert.Error(t, err)
}

func TestSupervisorAgent_Capabilities(t *testing.T) {
	sup, _, _, _ := newSupervisorFixture(t, validPlan)

	caps := sup.Capabilities()
	require.Len(t, caps, 2)
	assert.Equal(t, "Assessor", caps[0].Name)
	assert.Equal(t, []string{"coaching"}, caps[0].InputKeys)
	assert.Equal(t, "Coach", caps[1].Name)
}
