// Package agent contains the agent implementations of AgentWeave:
//
//  1. Identity plumbing (BaseAgent) and tree helpers (FindAgent, Validate)
//  2. The leaf ModelAgent with text, float and enumeration coercions
//  3. Composers: SequentialAgent, ConditionalAgent (and NewSwitchAgent),
//     LoopAgent, ParallelAgent and SupervisorAgent
//  4. HumanInputAgent, a leaf blocked on a human reviewer
//
// Execution Model:
//   - An agent's Run receives a *core.InvocationContext shared by the whole run
//   - Composers run children through InvocationContext.Invoke so hooks fire
//   - Only ParallelAgent introduces concurrency, bounded by a workerpool.Pool
//
// Wiring errors (duplicate parallel keys, non-exhaustive switches, loops
// without a ceiling) are reported by Validate before anything runs.
package agent
