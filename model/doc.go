// Package model defines the provider agnostic language-model contract used
// by AgentWeave agents, a MockModel for tests and an Observed middleware
// adding token accounting, logging and metrics around any Model.
//
// Provider adapters live in subpackages: gemini, openai, anthropic and ollama.
package model
