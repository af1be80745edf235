// Package agents provides the model-backed agent: a single-purpose reasoning unit
// with ordered instructions, optional tools and an optional typed output contract.
//
// An Agent is built once and is safe for concurrent use,
// all per-call state lives on the stack of Run.
package agents
