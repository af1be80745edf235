// Package travel defines the travel planning domain:
// the requests and structured results, the task prompts,
// and the agents and teams resolving them.
package travel
