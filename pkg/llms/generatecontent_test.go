package llms_test

import (
	"testing"

	"github.com/effective-security/tripcrew/pkg/llms"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTextParts(t *testing.T) {
	t.Parallel()
	mc := llms.MessageFromTextParts(llms.RoleHuman, "a", "b", "c")
	assert.Equal(t, llms.Message{
		Role: llms.RoleHuman,
		Parts: []llms.ContentPart{
			llms.TextContent{Text: "a"},
			llms.TextContent{Text: "b"},
			llms.TextContent{Text: "c"},
		},
	}, mc)
	assert.Equal(t, "a\nb\nc\n", mc.GetContent())
}

func TestGetContent(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		msg     llms.Message
		content string
	}{
		{
			"text_with_newline",
			llms.MessageFromTextParts(llms.RoleSystem, "a\n", "b"),
			"a\nb\n",
		},
		{
			"tool_call",
			llms.MessageFromToolCalls(llms.RoleAI, llms.ToolCall{
				ID:   "t1",
				Type: "function",
				FunctionCall: &llms.FunctionCall{
					Name:      "web_search",
					Arguments: `{"query":"kyoto"}`,
				},
			}),
			"Tool Call: {\"id\":\"t1\",\"type\":\"function\",\"function\":{\"name\":\"web_search\",\"arguments\":\"{\\\"query\\\":\\\"kyoto\\\"}\"}}\n",
		},
		{
			"tool_response",
			llms.MessageFromToolResponse(llms.RoleTool, llms.ToolCallResponse{
				ToolCallID: "t1",
				Name:       "web_search",
				Content:    "sunny",
			}),
			"Response: {\"tool_call_id\":\"t1\",\"name\":\"web_search\",\"content\":\"sunny\"}\n",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.content, tt.msg.GetContent())
		})
	}
}

func TestMessageFromToolCalls_Copies(t *testing.T) {
	t.Parallel()
	fc := &llms.FunctionCall{Name: "web_search", Arguments: "{}"}
	msg := llms.MessageFromToolCalls(llms.RoleAI, llms.ToolCall{ID: "1", Type: "function", FunctionCall: fc})
	fc.Name = "changed"

	require.Len(t, msg.Parts, 1)
	tc, ok := msg.Parts[0].(llms.ToolCall)
	require.True(t, ok)
	assert.Equal(t, "web_search", tc.FunctionCall.Name)
	assert.Equal(t, "ToolCall: 1 (web_search), input: {}", tc.String())

	// a call without a function does not panic
	msg = llms.MessageFromToolCalls(llms.RoleAI, llms.ToolCall{ID: "2"})
	assert.Equal(t, "ToolCall: 2", msg.Parts[0].(llms.ToolCall).String())
}

func TestCapabilities(t *testing.T) {
	t.Parallel()
	assert.True(t, llms.ProviderOpenAI.Supports(llms.CapabilityJSONSchemaStrict))
	assert.False(t, llms.ProviderAnthropic.Supports(llms.CapabilityJSONSchema))
	assert.True(t, llms.ProviderGoogleAI.Supports(llms.CapabilityFunctionCalling))
	assert.False(t, llms.ProviderType("UNKNOWN").Supports(llms.CapabilityText))
}
