package agent

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/agentweave/core"
	"github.com/hupe1980/agentweave/model"
)

func TestNewModelAgent_Defaults(t *testing.T) {
	llm := model.NewMockModel("mock")
	a := NewModelAgent("Writer", llm)

	assert.Equal(t, "Writer", a.OutputKey())
	assert.Equal(t, "text", a.Coercion().Kind())
	assert.Equal(t, "Agent Writer", a.Description())
	require.NoError(t, a.Validate())
}

func TestModelAgent_Run_RendersPrompt(t *testing.T) {
	llm := model.NewMockModel("mock")
	llm.AddResponse("Suggest ingredients for Italian vegetarian dinner.", "tomatoes, basil")

	a := NewModelAgent("Curator", llm, func(o *ModelAgentOptions) {
		o.Instruction = NewInstructionFromText("You are a chef.")
		o.Prompt = "Suggest ingredients for {{.cuisine}} {{.dietary}} {{.meal}}."
		o.InputKeys = []string{"cuisine", "dietary", "meal"}
		o.OutputKey = "ingredients"
	})
	require.NoError(t, a.Validate())

	ic := makeInvocationCtx(t, map[string]any{"cuisine": "Italian", "dietary": "vegetarian", "meal": "dinner"})
	require.NoError(t, a.Run(ic))

	assert.Equal(t, "tomatoes, basil", core.ReadState(ic.Scope, "ingredients", ""))

	calls := llm.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, "You are a chef.", calls[0].Instructions)
	assert.Equal(t, 1, ic.Limiter.Count())
}

func TestModelAgent_Run_MissingInput(t *testing.T) {
	llm := model.NewMockModel("mock")
	a := NewModelAgent("Curator", llm, func(o *ModelAgentOptions) {
		o.Prompt = "{{.cuisine}}"
		o.InputKeys = []string{"cuisine"}
	})

	err := a.Run(makeInvocationCtx(t, nil))
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrMissingInput)

	var ae *core.AgentError
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, "cuisine", ae.Key)
	assert.Empty(t, llm.Calls(), "model must not be called")
}

func TestModelAgent_Run_Defaults(t *testing.T) {
	llm := model.NewMockModel("mock")
	a := NewModelAgent("Curator", llm, func(o *ModelAgentOptions) {
		o.Prompt = "Cook {{.meal}}"
		o.InputKeys = []string{"meal"}
		o.Defaults = map[string]any{"meal": "dinner"}
	})

	ic := makeInvocationCtx(t, nil)
	require.NoError(t, a.Run(ic))
	assert.Equal(t, "Cook dinner", llm.Calls()[0].Prompt)

	ic = makeInvocationCtx(t, map[string]any{"meal": "lunch"})
	require.NoError(t, a.Run(ic))
	assert.Equal(t, "Cook lunch", llm.Calls()[1].Prompt)
}

func TestModelAgent_Run_ModelError(t *testing.T) {
	llm := model.NewMockModel("mock")
	llm.SetScript(func(model.Request) (string, error) { return "", errors.New("rate limited") })

	a := NewModelAgent("Writer", llm)

	ic := makeInvocationCtx(t, nil)
	err := a.Run(ic)

	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrModelInvocation)
	assert.Contains(t, err.Error(), "rate limited")
	assert.False(t, ic.Scope.Has("Writer"))
}

func TestModelAgent_Run_FloatCoercion(t *testing.T) {
	tests := []struct {
		reply   string
		want    float64
		wantErr bool
	}{
		{reply: " 0.85\n", want: 0.85},
		{reply: "1", want: 1},
		{reply: "Score: 0.8", wantErr: true},
		{reply: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.reply, func(t *testing.T) {
			llm := model.NewMockModel("mock")
			llm.SetScript(func(model.Request) (string, error) { return tt.reply, nil })

			a := NewModelAgent("Scorer", llm, func(o *ModelAgentOptions) {
				o.OutputKey = "score"
				o.Coercion = FloatResult()
			})

			ic := makeInvocationCtx(t, nil)
			err := a.Run(ic)

			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, core.ErrResultParse)
				assert.False(t, ic.Scope.Has("score"))

				return
			}

			require.NoError(t, err)
			assert.InDelta(t, tt.want, core.ReadState(ic.Scope, "score", 0.0), 1e-9)
		})
	}
}

func TestModelAgent_Run_EnumCoercion(t *testing.T) {
	llm := model.NewMockModel("mock")
	llm.SetScript(func(req model.Request) (string, error) { return "  y.\n", nil })

	a := NewModelAgent("Classifier", llm, func(o *ModelAgentOptions) {
		o.OutputKey = "route"
		o.Coercion = EnumResult(routes)
	})

	ic := makeInvocationCtx(t, nil)
	require.NoError(t, a.Run(ic))
	assert.Equal(t, routeY, core.ReadState(ic.Scope, "route", routeUnknown))
}

func TestModelAgent_Run_Streaming(t *testing.T) {
	llm := model.NewMockModel("mock")
	llm.AddResponse("hi", "hello there friend")

	a := NewModelAgent("Writer", llm, func(o *ModelAgentOptions) {
		o.Prompt = "hi"
		o.Stream = true
	})

	ic := makeInvocationCtx(t, nil)
	require.NoError(t, a.Run(ic))
	assert.Equal(t, "hello there friend", core.ReadState(ic.Scope, "Writer", ""))
}

func TestModelAgent_Hooks(t *testing.T) {
	llm := model.NewMockModel("mock")

	var seen []string

	a := NewModelAgent("Writer", llm, func(o *ModelAgentOptions) {
		o.BeforeInvocation = []InvocationHook{
			func(_ *core.InvocationContext, name string) error {
				seen = append(seen, "first:"+name)
				return errors.New("ignored")
			},
		}
	})
	a.AddHook(func(*core.InvocationContext, string) error { panic("hook panic") })
	a.AddHook(func(_ *core.InvocationContext, name string) error {
		seen = append(seen, "third:"+name)
		return nil
	})

	ic := makeInvocationCtx(t, nil)
	require.NoError(t, a.Run(ic))

	assert.Equal(t, []string{"first:Writer", "third:Writer"}, seen)
	assert.True(t, ic.Scope.Has("Writer"))
}

func TestModelAgent_Validate(t *testing.T) {
	llm := model.NewMockModel("mock")

	undeclared := NewModelAgent("Writer", llm, func(o *ModelAgentOptions) {
		o.Prompt = "Write about {{.topic}} in {{.style}}"
		o.InputKeys = []string{"topic"}
	})
	assert.ErrorIs(t, undeclared.Validate(), core.ErrInvalidConfiguration)

	broken := NewModelAgent("Writer", llm, func(o *ModelAgentOptions) { o.Prompt = "{{.topic" })
	assert.ErrorIs(t, broken.Validate(), core.ErrInvalidConfiguration)

	assert.ErrorIs(t, NewModelAgent("Writer", nil).Validate(), core.ErrInvalidConfiguration)
}

func TestModelAgent_ModelCallLimit(t *testing.T) {
	llm := model.NewMockModel("mock")
	a := NewModelAgent("Writer", llm)

	ic := core.NewInvocationContext(t.Context(), "inv", nil, func(o *core.InvocationOptions) { o.MaxModelCalls = 1 })

	require.NoError(t, a.Run(ic))

	err := a.Run(ic)
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrModelCallLimit)
	assert.Len(t, llm.Calls(), 1)
}
