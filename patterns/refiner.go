package patterns

import (
	"github.com/hupe1980/agentweave/agent"
	"github.com/hupe1980/agentweave/core"
	"github.com/hupe1980/agentweave/engine"
	"github.com/hupe1980/agentweave/logging"
	"github.com/hupe1980/agentweave/model"
)

const creatorPrompt = `You are a creative content writer.
Create engaging content about the following topic in the specified style.

Topic: {{.topic}}
Style: {{.style}}

Write a compelling piece that is informative, well-structured, and matches the requested style.
Keep it concise (2-3 paragraphs).
Return only the content and nothing else.`

const scorerPrompt = `You are a content quality analyst.
Evaluate the following content and provide a quality score between 0.0 and 1.0.

Evaluation Criteria:
- Clarity and coherence (0.3 weight)
- Engagement and style (0.3 weight)
- Grammar and structure (0.2 weight)
- Relevance to topic (0.2 weight)

Content to evaluate:
{{.content}}

Respond with ONLY a decimal number between 0.0 and 1.0 (e.g., 0.75).
Do not include any explanation, just the number.`

const editorPrompt = `You are an expert content editor.
Improve the following content to enhance its quality.

Current Quality Score: {{.score}}

Focus on:
- Enhancing clarity and flow
- Improving engagement and style
- Fixing any grammatical issues
- Strengthening the narrative

Content to improve:
{{.content}}

Provide the improved version. Return only the improved content and nothing else.`

// newContentRefiner builds the refinement pipeline: write once, then score
// and edit until the score reaches the threshold or the ceiling is hit.
func newContentRefiner(llm model.Model, opts Options) engine.Workflow {
	const flow = "Loop Pattern"

	creator := leaf(llm, opts, flow, "ContentCreator", func(o *agent.ModelAgentOptions) {
		o.Description = "Creates initial content based on topic and style"
		o.Prompt = creatorPrompt
		o.InputKeys = []string{"topic", "style"}
		o.OutputKey = "content"
	})

	scorer := leaf(llm, opts, flow, "QualityScorer", func(o *agent.ModelAgentOptions) {
		o.Description = "Evaluates content quality and assigns a score"
		o.Prompt = scorerPrompt
		o.InputKeys = []string{"content"}
		o.OutputKey = "score"
		o.Coercion = agent.FloatResult()
	})

	editor := leaf(llm, opts, flow, "ContentEditor", func(o *agent.ModelAgentOptions) {
		o.Description = "Refines and improves content quality"
		o.Prompt = editorPrompt
		o.InputKeys = []string{"content", "score"}
		o.OutputKey = "content"
	})

	refinement := agent.NewLoopAgent("RefinementLoop", []core.Agent{scorer, editor},
		agent.WithMaxIters(opts.LoopMaxIterations),
		agent.WithPredicate(scoreReached(opts.Logger, opts.LoopThreshold)),
		agent.WithLoopDescription("Scores and edits the content until it is good enough"),
	)

	root := agent.NewSequentialAgent("ContentRefiner", []core.Agent{creator, refinement}, func(o *agent.SequentialOptions) {
		o.Description = "Creates content and refines it iteratively"
	})

	return engine.Workflow{
		Name:        ContentRefiner,
		Description: "Iterative content refinement until the quality score reaches the threshold",
		Root:        root,
	}
}

// scoreReached holds once the stored score is at least threshold. A missing
// or non-numeric score reads as 0.
func scoreReached(logger logging.Logger, threshold float64) agent.Predicate {
	return func(s *core.Scope) bool {
		score := core.ReadState(s, "score", 0.0)
		logger.Info("Quality Scorer - Score", "score", score, "threshold", threshold)

		return score >= threshold
	}
}
