package openai_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/effective-security/tripcrew/pkg/llms"
	"github.com/effective-security/tripcrew/pkg/llms/openai"
	"github.com/effective-security/tripcrew/pkg/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("OPENAI_MODEL", "")

	_, err := openai.New()
	assert.ErrorIs(t, err, openai.ErrMissingToken)

	llm, err := openai.New(openai.WithToken("fake"))
	require.NoError(t, err)
	assert.Equal(t, openai.DefaultChatModel, llm.GetName())
	assert.Equal(t, llms.ProviderOpenAI, llm.GetProviderType())
}

func TestGenerateContent(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer fake", r.Header.Get("Authorization"))

		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		var req map[string]any
		require.NoError(t, json.Unmarshal(body, &req))

		assert.Equal(t, "gpt-5-mini", req["model"])
		assert.Equal(t, map[string]any{"type": "json_object"}, req["response_format"])
		msgs := req["messages"].([]any)
		require.Len(t, msgs, 4)
		assert.Equal(t, "system", msgs[0].(map[string]any)["role"])
		assert.Equal(t, "user", msgs[1].(map[string]any)["role"])
		assistant := msgs[2].(map[string]any)
		assert.Equal(t, "assistant", assistant["role"])
		assert.Len(t, assistant["tool_calls"], 1)
		assert.Equal(t, "tool", msgs[3].(map[string]any)["role"])
		assert.Equal(t, "call_1", msgs[3].(map[string]any)["tool_call_id"])

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "chatcmpl-1",
			"object": "chat.completion",
			"created": 1,
			"model": "gpt-5-mini",
			"choices": [{
				"index": 0,
				"finish_reason": "stop",
				"message": {"role": "assistant", "content": "{\"hotels\":[]}"}
			}],
			"usage": {"prompt_tokens": 20, "completion_tokens": 7, "total_tokens": 27}
		}`))
	}))
	defer srv.Close()

	llm, err := openai.New(
		openai.WithToken("fake"),
		openai.WithModel("gpt-5-mini"),
		openai.WithBaseURL(srv.URL),
		openai.WithHTTPClient(srv.Client()),
		openai.WithMaxRetries(0),
	)
	require.NoError(t, err)

	resp, err := llm.GenerateContent(context.Background(), []llms.Message{
		llms.MessageFromTextParts(llms.RoleSystem, "You research travel markets."),
		llms.MessageFromTextParts(llms.RoleHuman, "Kyoto"),
		llms.MessageFromToolCalls(llms.RoleAI, llms.ToolCall{
			ID:           "call_1",
			Type:         "function",
			FunctionCall: &llms.FunctionCall{Name: "web_search", Arguments: `{"query":"Kyoto hotels"}`},
		}),
		llms.MessageFromToolResponse(llms.RoleTool, llms.ToolCallResponse{ToolCallID: "call_1", Name: "web_search", Content: "results"}),
	}, llms.WithResponseFormat(schema.JSONObjectFormat()))
	require.NoError(t, err)
	require.Len(t, resp.Choices, 1)
	assert.Equal(t, `{"hotels":[]}`, resp.Choices[0].Content)
	assert.Equal(t, "stop", resp.Choices[0].StopReason)
	assert.Equal(t, llms.Usage{InputTokens: 20, OutputTokens: 7, TotalTokens: 27}, resp.Usage)
}

func TestToMessages(t *testing.T) {
	t.Parallel()

	_, err := openai.ToMessages([]llms.Message{llms.MessageFromTextParts(llms.Role("bot"), "x")})
	assert.ErrorIs(t, err, llms.ErrUnexpectedRole)

	_, err = openai.ToMessages([]llms.Message{llms.MessageFromTextParts(llms.RoleTool, "x")})
	assert.Error(t, err)

	tools, err := openai.ToTools([]llms.Tool{{
		Type: "function",
		Function: &llms.FunctionDefinition{
			Name: "web_search",
			Parameters: schema.MustFromAny(map[string]any{
				"type":       "object",
				"properties": map[string]any{"query": map[string]any{"type": "string"}},
			}),
		},
	}})
	require.NoError(t, err)
	assert.Len(t, tools, 1)

	_, err = openai.ToTools([]llms.Tool{{Type: "code"}})
	assert.EqualError(t, err, `tool [0]: unsupported type "code"`)
}
