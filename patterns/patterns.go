// Package patterns builds the prebuilt AgentWeave workflows: one per
// composition style, all backed by a single language model.
//
//   - recipe: a sequence of three specialists
//   - expert-router: a classifier followed by a switch over experts
//   - content-refiner: a writer followed by a score-and-edit loop
//   - startup-pitch: three analysts in parallel and a combined document
//   - interview: a supervisor over a coach, a human reviewer and an assessor
package patterns

import (
	"time"

	"github.com/hupe1980/agentweave/agent"
	"github.com/hupe1980/agentweave/config"
	"github.com/hupe1980/agentweave/core"
	"github.com/hupe1980/agentweave/engine"
	"github.com/hupe1980/agentweave/human"
	"github.com/hupe1980/agentweave/logging"
	"github.com/hupe1980/agentweave/model"
	"github.com/hupe1980/agentweave/workerpool"
)

// Workflow names.
const (
	Recipe         = "recipe"
	ExpertRouter   = "expert-router"
	ContentRefiner = "content-refiner"
	StartupPitch   = "startup-pitch"
	Interview      = "interview"
)

// Options tunes the prebuilt workflows.
type Options struct {
	Logger logging.Logger
	// Human answers the interview's feedback requests. Defaults to a
	// console channel on stdin and stdout.
	Human agent.HumanChannel
	// HumanTimeout bounds the wait for human feedback; zero waits indefinitely.
	HumanTimeout time.Duration
	// Pool runs the startup-pitch analysts. Defaults to a pool of PoolSize
	// workers shared by all invocations.
	Pool               *workerpool.Pool
	PoolSize           int
	LoopMaxIterations  int
	LoopThreshold      float64
	SupervisorMaxSteps int
}

// WithConfig applies the workflows and human sections of cfg.
func WithConfig(cfg *config.Config) func(o *Options) {
	return func(o *Options) {
		o.PoolSize = cfg.Workflows.PoolSize
		o.LoopMaxIterations = cfg.Workflows.LoopMaxIterations
		o.LoopThreshold = cfg.Workflows.LoopThreshold
		o.SupervisorMaxSteps = cfg.Workflows.SupervisorMaxSteps

		if cfg.Human.Mode == config.HumanStatic {
			o.Human = human.NewStaticChannel(cfg.Human.DefaultFeedback)
		} else {
			o.Human = human.NewConsoleChannel(func(co *human.ConsoleOptions) { co.Default = cfg.Human.DefaultFeedback })
		}
	}
}

func newOptions(optFns []func(o *Options)) Options {
	opts := Options{
		Logger:             logging.NoOpLogger{},
		PoolSize:           workerpool.DefaultSize,
		LoopMaxIterations:  5,
		LoopThreshold:      0.9,
		SupervisorMaxSteps: agent.DefaultMaxSteps,
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}

	if opts.Human == nil {
		opts.Human = human.NewConsoleChannel()
	}

	if opts.Pool == nil {
		opts.Pool = workerpool.New(func(o *workerpool.Options) { o.Size = opts.PoolSize })
	}

	return opts
}

// All builds every prebuilt workflow on llm.
func All(llm model.Model, optFns ...func(o *Options)) []engine.Workflow {
	opts := newOptions(optFns)

	return []engine.Workflow{
		newRecipe(llm, opts),
		newExpertRouter(llm, opts),
		newContentRefiner(llm, opts),
		newStartupPitch(llm, opts),
		newInterview(llm, opts),
	}
}

// Register builds every prebuilt workflow on llm and registers it with eng.
func Register(eng *engine.Engine, llm model.Model, optFns ...func(o *Options)) error {
	for _, w := range All(llm, optFns...) {
		if err := eng.Register(w); err != nil {
			return err
		}
	}

	return nil
}

// processingHook logs every invocation of the agent it is attached to.
func processingHook(logger logging.Logger, flow string) agent.InvocationHook {
	return func(ic *core.InvocationContext, agentName string) error {
		logger.Info(flow+" - Processing with Agent: "+agentName,
			"workflow", ic.Workflow,
			"invocation_id", ic.InvocationID,
			"branch", ic.Branch,
		)

		return nil
	}
}

// leaf builds a model agent with the processing hook of flow attached.
func leaf(llm model.Model, opts Options, flow, name string, optFns ...func(o *agent.ModelAgentOptions)) *agent.ModelAgent {
	a := agent.NewModelAgent(name, llm, optFns...)
	a.AddHook(processingHook(opts.Logger, flow))

	return a
}
