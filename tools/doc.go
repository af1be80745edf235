// Package tools defines the tool interface used by agents to fetch external facts,
// such as web search results, during a model call.
package tools
