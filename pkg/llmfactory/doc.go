// Package llmfactory creates the language models configured for the agents,
// supporting Gemini, OpenAI and Anthropic providers and per-agent model selection.
package llmfactory
