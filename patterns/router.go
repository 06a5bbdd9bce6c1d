package patterns

import (
	"github.com/hupe1980/agentweave/agent"
	"github.com/hupe1980/agentweave/core"
	"github.com/hupe1980/agentweave/engine"
	"github.com/hupe1980/agentweave/model"
)

// Category is the expert domain a request is routed to.
type Category string

// Categories known to the router.
const (
	CategoryCreative  Category = "creative"
	CategoryFinancial Category = "financial"
	CategoryWellness  Category = "wellness"
	CategoryCareer    Category = "career"
	CategoryUnknown   Category = "unknown"
)

// Categories is the closed set the router classifies into.
var Categories = agent.NewEnum(CategoryUnknown, CategoryCreative, CategoryFinancial, CategoryWellness, CategoryCareer)

const routerPrompt = `Analyze the following user request and categorize it as 'creative', 'financial', 'wellness', or 'career'.
- 'creative': Questions about art, design, writing, music, content creation, or creative problem-solving
- 'financial': Questions about money management, investing, budgeting, business finance, or economic advice
- 'wellness': Questions about health, fitness, mental wellbeing, nutrition, lifestyle, or personal development
- 'career': Questions about job search, professional growth, workplace issues, skills development, or career transitions
In case the request doesn't belong to any of those categories, categorize it as 'unknown'.
Reply with only one of those words and nothing else.
The user request is: '{{.request}}'.`

type expert struct {
	category    Category
	name        string
	description string
}

var experts = []expert{
	{CategoryCreative, "CreativeExpert", "Creative expert specializing in art, design, writing, music, and innovative problem-solving"},
	{CategoryFinancial, "FinancialAdvisor", "Financial advisor providing expert guidance on money management, investing, budgeting, and business finance"},
	{CategoryWellness, "WellnessCoach", "Wellness coach offering holistic advice on health, fitness, mental wellbeing, nutrition, and lifestyle optimization"},
	{CategoryCareer, "CareerMentor", "Career mentor guiding professionals through job search, skill development, workplace challenges, and career transitions"},
	{CategoryUnknown, "GeneralAssistant", "General assistant answering requests outside the expert domains"},
}

// newExpertRouter builds the expert router: classify the request, then
// dispatch to the matching expert. Unclassifiable requests reach the
// general assistant.
func newExpertRouter(llm model.Model, opts Options) engine.Workflow {
	const flow = "Conditional Routing"

	router := leaf(llm, opts, flow, "CategoryRouter", func(o *agent.ModelAgentOptions) {
		o.Description = "Router agent that classifies queries into expert domains"
		o.Prompt = routerPrompt
		o.InputKeys = []string{"request"}
		o.OutputKey = "category"
		o.Coercion = agent.EnumResult(Categories)
	})

	cases := make(map[Category]core.Agent, len(experts))

	for _, e := range experts {
		cases[e.category] = leaf(llm, opts, flow, e.name, func(o *agent.ModelAgentOptions) {
			o.Description = e.description
			o.Instruction = agent.NewInstructionFromText(e.description + ". Answer the request directly and concisely.")
			o.Prompt = "{{.request}}"
			o.InputKeys = []string{"request"}
			o.OutputKey = "response"
		})
	}

	dispatch := agent.NewSwitchAgent("ExpertDispatch", "category", Categories, cases, func(o *agent.SwitchOptions) {
		o.Description = "Dispatches the request to the expert of its category"
	})

	root := agent.NewSequentialAgent("ExpertRouterAgent", []core.Agent{router, dispatch}, func(o *agent.SequentialOptions) {
		o.Description = "Routes a request to a domain expert"
	})

	return engine.Workflow{
		Name:        ExpertRouter,
		Description: "Conditional routing of a request to a creative, financial, wellness or career expert",
		Root:        root,
	}
}
