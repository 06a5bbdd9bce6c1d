package patterns

import (
	"github.com/hupe1980/agentweave/agent"
	"github.com/hupe1980/agentweave/core"
	"github.com/hupe1980/agentweave/engine"
	"github.com/hupe1980/agentweave/model"
)

const coachPrompt = `Position: {{.position}}
Question: {{.question}}
Response: {{.response}}

Provide concise feedback on:
1. Communication effectiveness
2. Technical depth (if applicable)
3. Soft skills demonstrated
4. Key strengths
5. Areas for improvement`

const assessorPrompt = `Candidate: {{.candidateName}}
Position: {{.position}}

AI Coaching Feedback:
{{.coachFeedback}}

Human Interviewer Feedback:
{{.humanFeedback}}

Provide a final assessment with:
1. Performance Rating (1-10)
2. Key Strengths
3. Areas for Development
4. Hiring Recommendation (Strong Hire / Hire / Consider / No Hire)`

const interviewGoal = `Analyze the interview response of the candidate.
Provide AI coaching feedback, collect human interviewer feedback, and
synthesize both into a final hiring assessment.`

// newInterview builds the interview coach: a supervisor plans over a model
// coach, a human reviewer and a model assessor.
func newInterview(llm model.Model, opts Options) engine.Workflow {
	const flow = "Human in Loop"

	coach := leaf(llm, opts, flow, "InterviewCoach", func(o *agent.ModelAgentOptions) {
		o.Description = "Interview coach providing constructive feedback"
		o.Instruction = agent.NewInstructionFromText("You are an expert interview coach. Provide constructive, actionable feedback.")
		o.Prompt = coachPrompt
		o.InputKeys = []string{"position", "question", "response"}
		o.OutputKey = "coachFeedback"
	})

	reviewer := agent.NewHumanInputAgent("HumanFeedback", opts.Human, func(o *agent.HumanInputOptions) {
		o.Description = "An agent that collects real-time feedback from human interviewers"
		o.Prompt = "{{.feedbackRequest}}"
		o.InputKeys = []string{"feedbackRequest"}
		o.OutputKey = "humanFeedback"
		o.Timeout = opts.HumanTimeout
	})

	assessor := leaf(llm, opts, flow, "InterviewAssessor", func(o *agent.ModelAgentOptions) {
		o.Description = "Assessment agent synthesizing feedback"
		o.Instruction = agent.NewInstructionFromText("You are a senior hiring manager synthesizing feedback into a hiring recommendation.")
		o.Prompt = assessorPrompt
		o.InputKeys = []string{"candidateName", "position", "coachFeedback", "humanFeedback"}
		o.OutputKey = "assessment"
	})

	root := agent.NewSupervisorAgent("InterviewSupervisor", llm, []core.Agent{coach, reviewer, assessor}, func(o *agent.SupervisorOptions) {
		o.Description = "Supervisor orchestrating interview workflow"
		o.Instruction = interviewGoal
		o.InputKeys = []string{"candidateName", "position", "question", "response"}
		o.OutputKey = "assessment"
		o.MaxSteps = opts.SupervisorMaxSteps
	})

	return engine.Workflow{
		Name:        Interview,
		Description: "Supervised interview assessment with AI coaching and human feedback",
		Root:        root,
	}
}
