// Package llms provides a provider-neutral surface for the language models used by agents.
//
// Subpackages implement the Model interface for Google Gemini, OpenAI and Anthropic.
// The `llms.go` file contains the Model interface and provider capabilities,
// `generatecontent.go` the message and response types, and `options.go` the call options.
package llms
