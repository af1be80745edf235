// Package orchestrator implements the travel planning operations.
//
// The Service builds the task of a request, resolves it with a team
// within the configured timeout, and returns the typed result or an error
// classified by KindOf. Market research is retried up to the configured
// number of attempts, generating an itinerary is not retried.
// Each operation is recorded as a store.Run when a run store is configured.
package orchestrator
