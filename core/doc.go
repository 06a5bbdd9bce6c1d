// Package core provides the foundational domain types used by AgentWeave.
// It defines the core abstractions for:
//
//   - Agents (units of work reading a shared Scope and writing one result)
//   - Scope (the per-invocation, concurrency safe key/value store)
//   - InvocationContext (cancellation, identifiers, logging and hooks)
//   - The error taxonomy shared by every agent and composer
//
// The package intentionally keeps concrete agents, models and the engine
// out of scope, exposing small interfaces to enable custom implementations.
package core
