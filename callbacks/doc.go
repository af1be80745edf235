// Package callbacks provides handlers for agent and tool lifecycle events:
// logging, printing, recording steps of a run and fan-out to several handlers.
package callbacks
