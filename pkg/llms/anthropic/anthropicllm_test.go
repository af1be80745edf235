package anthropic_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/effective-security/tripcrew/pkg/llms"
	"github.com/effective-security/tripcrew/pkg/llms/anthropic"
	"github.com/effective-security/tripcrew/pkg/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	t.Setenv(anthropic.TokenEnvVarName, "")

	_, err := anthropic.New(anthropic.WithModel("claude-sonnet-4-5"))
	assert.ErrorIs(t, err, anthropic.ErrMissingToken)

	_, err = anthropic.New(anthropic.WithToken("fake-token"))
	assert.EqualError(t, err, "anthropic: model is required")

	t.Setenv(anthropic.TokenEnvVarName, "env-token")
	llm, err := anthropic.New(anthropic.WithModel("claude-sonnet-4-5"))
	require.NoError(t, err)
	assert.Equal(t, "env-token", llm.Options.Token)
	assert.Equal(t, "claude-sonnet-4-5", llm.GetName())
	assert.Equal(t, llms.ProviderAnthropic, llm.GetProviderType())
}

func TestGenerateContent(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/messages", r.URL.Path)
		assert.Equal(t, "fake-token", r.Header.Get("x-api-key"))

		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		var req map[string]any
		require.NoError(t, json.Unmarshal(body, &req))

		assert.Equal(t, "claude-sonnet-4-5", req["model"])
		assert.EqualValues(t, anthropic.DefaultMaxTokens, req["max_tokens"])
		system := req["system"].([]any)
		assert.Equal(t, "You are a weather information specialist.", system[0].(map[string]any)["text"])
		msgs := req["messages"].([]any)
		require.Len(t, msgs, 3)
		assert.Equal(t, "user", msgs[0].(map[string]any)["role"])
		assert.Equal(t, "assistant", msgs[1].(map[string]any)["role"])
		assert.Equal(t, "user", msgs[2].(map[string]any)["role"])
		tools := req["tools"].([]any)
		assert.Equal(t, "web_search", tools[0].(map[string]any)["name"])

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "msg_1",
			"type": "message",
			"role": "assistant",
			"model": "claude-sonnet-4-5",
			"content": [
				{"type": "text", "text": "Looking up."},
				{"type": "tool_use", "id": "tu_2", "name": "web_search", "input": {"query": "Kyoto forecast"}}
			],
			"stop_reason": "tool_use",
			"usage": {"input_tokens": 12, "output_tokens": 8}
		}`))
	}))
	defer srv.Close()

	llm, err := anthropic.New(
		anthropic.WithToken("fake-token"),
		anthropic.WithModel("claude-sonnet-4-5"),
		anthropic.WithBaseURL(srv.URL),
		anthropic.WithHTTPClient(srv.Client()),
		anthropic.WithMaxRetries(0),
	)
	require.NoError(t, err)

	resp, err := llm.GenerateContent(context.Background(), []llms.Message{
		llms.MessageFromTextParts(llms.RoleSystem, "You are a weather information specialist."),
		llms.MessageFromTextParts(llms.RoleHuman, "Weather in Kyoto"),
		llms.MessageFromToolCalls(llms.RoleAI, llms.ToolCall{
			ID:           "tu_1",
			Type:         "function",
			FunctionCall: &llms.FunctionCall{Name: "web_search", Arguments: `{"query":"Kyoto"}`},
		}),
		llms.MessageFromToolResponse(llms.RoleTool, llms.ToolCallResponse{ToolCallID: "tu_1", Name: "web_search", Content: "sunny"}),
	}, llms.WithTools([]llms.Tool{{
		Type: "function",
		Function: &llms.FunctionDefinition{
			Name:        "web_search",
			Description: "Search the web",
			Parameters: schema.MustFromAny(map[string]any{
				"type":       "object",
				"properties": map[string]any{"query": map[string]any{"type": "string"}},
				"required":   []string{"query"},
			}),
		},
	}}))
	require.NoError(t, err)
	require.Len(t, resp.Choices, 1)
	choice := resp.Choices[0]
	assert.Equal(t, "Looking up.", choice.Content)
	assert.Equal(t, "tool_use", choice.StopReason)
	require.Len(t, choice.ToolCalls, 1)
	assert.Equal(t, "tu_2", choice.ToolCalls[0].ID)
	assert.Equal(t, "web_search", choice.ToolCalls[0].FunctionCall.Name)
	assert.JSONEq(t, `{"query":"Kyoto forecast"}`, choice.ToolCalls[0].FunctionCall.Arguments)
	assert.Equal(t, llms.Usage{InputTokens: 12, OutputTokens: 8, TotalTokens: 20}, resp.Usage)
}

func TestProcessMessages(t *testing.T) {
	t.Parallel()

	msgs, system, err := anthropic.ProcessMessages([]llms.Message{
		llms.MessageFromTextParts(llms.RoleSystem, "a"),
		llms.MessageFromTextParts(llms.RoleSystem, "b"),
		llms.MessageFromTextParts(llms.RoleHuman, "hi"),
		{Role: llms.RoleHuman},
	})
	require.NoError(t, err)
	assert.Equal(t, "a\nb", system)
	assert.Len(t, msgs, 1)

	_, _, err = anthropic.ProcessMessages([]llms.Message{
		llms.MessageFromTextParts(llms.Role("bot"), "hi"),
	})
	assert.ErrorIs(t, err, anthropic.ErrUnsupportedMessageType)

	_, _, err = anthropic.ProcessMessages([]llms.Message{
		llms.MessageFromToolCalls(llms.RoleHuman, llms.ToolCall{ID: "1", FunctionCall: &llms.FunctionCall{Name: "f", Arguments: "{}"}}),
	})
	assert.ErrorIs(t, err, anthropic.ErrInvalidContentType)

	assert.Nil(t, anthropic.ToTools(nil))
}
