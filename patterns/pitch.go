package patterns

import (
	"strings"

	"github.com/hupe1980/agentweave/agent"
	"github.com/hupe1980/agentweave/core"
	"github.com/hupe1980/agentweave/engine"
	"github.com/hupe1980/agentweave/model"
)

const summaryPrompt = `You are an expert business strategist and pitch coach.
Create a compelling executive summary for a startup.

Startup Name: {{.startupName}}
Idea/Product: {{.idea}}
Target Market: {{.targetMarket}}

The executive summary should:
- Hook the reader with the problem being solved
- Clearly state the unique value proposition
- Highlight why this startup will succeed
- Keep it to 3-4 sentences maximum

Return only the executive summary and nothing else.`

const marketPrompt = `You are a venture capital analyst and market research expert.
Analyze the market opportunity for a startup.

Startup Name: {{.startupName}}
Product/Service: {{.idea}}
Target Market: {{.targetMarket}}

Provide market analysis including:
- Estimated market size (TAM - Total Addressable Market)
- Key market trends supporting this opportunity
- Target customer segments
- Competitive landscape overview
- Growth potential and timeline

Return only the market analysis and nothing else.`

const riskPrompt = `You are a risk management consultant and due diligence expert.
Assess risks for a startup and propose mitigation strategies.

Startup Name: {{.startupName}}
Product/Service: {{.idea}}
Target Market: {{.targetMarket}}

Identify and analyze:
- Key business risks (market, competition, execution)
- Technology and operational risks
- Regulatory and compliance risks
- Financial risks
- Mitigation strategies for each identified risk

Be realistic but constructive in your assessment.
Return only the risk assessment and nothing else.`

var pitchInputs = []string{"startupName", "idea", "targetMarket"}

// newStartupPitch builds the pitch builder: three independent analysts run
// concurrently and their results are merged into one document.
func newStartupPitch(llm model.Model, opts Options) engine.Workflow {
	const flow = "Parallel Flow"

	summary := leaf(llm, opts, flow, "ExecutiveSummaryGenerator", func(o *agent.ModelAgentOptions) {
		o.Description = "Generates compelling executive summary for startup pitch"
		o.Prompt = summaryPrompt
		o.InputKeys = pitchInputs
		o.OutputKey = "executiveSummary"
	})

	market := leaf(llm, opts, flow, "MarketAnalyzer", func(o *agent.ModelAgentOptions) {
		o.Description = "Analyzes market opportunity and trends"
		o.Prompt = marketPrompt
		o.InputKeys = pitchInputs
		o.OutputKey = "marketAnalysis"
	})

	risk := leaf(llm, opts, flow, "RiskAssessor", func(o *agent.ModelAgentOptions) {
		o.Description = "Assesses risks and proposes mitigation strategies"
		o.Prompt = riskPrompt
		o.InputKeys = pitchInputs
		o.OutputKey = "riskAssessment"
	})

	root := agent.NewParallelAgent("StartupPitcher", []core.Agent{summary, market, risk}, func(o *agent.ParallelOptions) {
		o.Description = "Builds a startup pitch from concurrent analyses"
		o.Pool = opts.Pool
		o.Combiner = PitchDocument
		o.OutputKey = "pitch"
	})

	return engine.Workflow{
		Name:        StartupPitch,
		Description: "Parallel startup pitch: executive summary, market analysis and risk assessment",
		Root:        root,
	}
}

const (
	heavyRule = "═══════════════════════════════════════════════════════════\n"
	lightRule = "───────────────────────────────────────────────────────────\n"
)

// PitchDocument renders the analyst results as the pitch document.
// Missing sections render empty.
func PitchDocument(s *core.Scope) (any, error) {
	var b strings.Builder

	b.WriteString(heavyRule)
	b.WriteString("                    STARTUP PITCH DOCUMENT\n")
	b.WriteString(heavyRule)
	b.WriteString("\n")

	section := func(title, key, trailer string) {
		b.WriteString(title + "\n")
		b.WriteString(lightRule)
		b.WriteString(core.ReadState(s, key, ""))
		b.WriteString(trailer)
	}

	section("EXECUTIVE SUMMARY", "executiveSummary", "\n\n")
	section("MARKET ANALYSIS", "marketAnalysis", "\n\n")
	section("RISK ASSESSMENT & MITIGATION", "riskAssessment", "\n")

	return b.String(), nil
}
