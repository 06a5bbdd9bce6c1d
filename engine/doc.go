// Package engine implements the workflow registry and invocation layer of AgentWeave.
//
// The Engine holds named workflows, each an agent tree built from the agent
// package, and runs invocations of them. It bridges callers such as the HTTP
// server and the CLI with the agent tree: it seeds a fresh scope with the
// caller's arguments, runs the root agent and returns the published output.
//
// # Core Responsibilities
//
// Workflow Management:
//   - Thread-safe registry with name-based lookup
//   - Tree validation at registration time
//   - Descriptions of every agent for listings
//
// Invocation Orchestration:
//   - Argument checks before anything runs
//   - Bounded concurrency with configurable limits
//   - Context-aware cancellation and StopInvocation
//   - Per-invocation model call limits
//
// Instrumentation:
//   - Lifecycle callbacks around workflows and agents
//   - One OpenTelemetry span per invocation with agent events
//   - Workflow metrics through a WorkflowRecorder
//
// # Basic Usage
//
//	eng := engine.New(func(o *engine.Options) {
//	    o.Logger = logger
//	    o.Tracer = tracing.NewTracer(nil)
//	})
//
//	if err := eng.Register(engine.Workflow{Name: "recipe", Root: root}); err != nil {
//	    return err
//	}
//
//	res, err := eng.Invoke(ctx, "recipe", map[string]any{"cuisine": "thai"})
//
// # Callbacks
//
// Callbacks are instrumentation. A failing or panicking callback is logged
// and never changes the outcome of an invocation:
//
//	eng.Callbacks().RegisterCallback(engine.NewLoggingCallback(
//	    engine.CallbackBeforeAgent,
//	    func(msg string) { log.Print(msg) },
//	))
package engine
