package googleai_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/effective-security/tripcrew/pkg/llms"
	"github.com/effective-security/tripcrew/pkg/llms/googleai"
	"github.com/effective-security/tripcrew/pkg/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, reply string, check func(req map[string]any)) *httptest.Server {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.True(t, strings.HasSuffix(r.URL.Path, "/models/gemini-2.5-flash:generateContent"), r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("x-goog-api-key"))

		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		var req map[string]any
		require.NoError(t, json.Unmarshal(body, &req))
		if check != nil {
			check(req)
		}

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(reply))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestGenerateContent(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	srv := newTestServer(t, `{
		"candidates": [{
			"content": {"role": "model", "parts": [{"text": "{\"day_wise_itinerary\":{}}"}]},
			"finishReason": "STOP"
		}],
		"usageMetadata": {"promptTokenCount": 10, "candidatesTokenCount": 5, "totalTokenCount": 15}
	}`, func(req map[string]any) {
		si, ok := req["systemInstruction"].(map[string]any)
		require.True(t, ok, "system instruction")
		parts := si["parts"].([]any)
		assert.Equal(t, "You are a travel itinerary expert.", parts[0].(map[string]any)["text"])

		contents := req["contents"].([]any)
		require.Len(t, contents, 1)
		assert.Equal(t, "user", contents[0].(map[string]any)["role"])

		cfg := req["generationConfig"].(map[string]any)
		assert.Equal(t, "application/json", cfg["responseMimeType"])
	})

	llm, err := googleai.New(ctx,
		googleai.WithAPIKey("test-key"),
		googleai.WithBaseURL(srv.URL),
		googleai.WithHTTPClient(srv.Client()),
	)
	require.NoError(t, err)
	assert.Equal(t, "gemini-2.5-flash", llm.GetName())
	assert.Equal(t, llms.ProviderGoogleAI, llm.GetProviderType())

	resp, err := llm.GenerateContent(ctx, []llms.Message{
		llms.MessageFromTextParts(llms.RoleSystem, "You are a travel itinerary expert."),
		llms.MessageFromTextParts(llms.RoleHuman, "Plan Kyoto"),
	}, llms.WithResponseFormat(schema.JSONObjectFormat()))
	require.NoError(t, err)
	require.Len(t, resp.Choices, 1)
	assert.Equal(t, `{"day_wise_itinerary":{}}`, resp.Choices[0].Content)
	assert.Equal(t, "STOP", resp.Choices[0].StopReason)
	assert.Equal(t, llms.Usage{InputTokens: 10, OutputTokens: 5, TotalTokens: 15}, resp.Usage)
}

func TestGenerateContent_ToolCalls(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	srv := newTestServer(t, `{
		"candidates": [{
			"content": {"role": "model", "parts": [{"functionCall": {"name": "web_search", "args": {"query": "Kyoto weather"}}}]},
			"finishReason": "STOP"
		}]
	}`, func(req map[string]any) {
		tools := req["tools"].([]any)
		require.Len(t, tools, 1)
		decls := tools[0].(map[string]any)["functionDeclarations"].([]any)
		assert.Equal(t, "web_search", decls[0].(map[string]any)["name"])

		contents := req["contents"].([]any)
		require.Len(t, contents, 3)
		assert.Equal(t, "model", contents[1].(map[string]any)["role"])
	})

	llm, err := googleai.New(ctx,
		googleai.WithAPIKey("test-key"),
		googleai.WithBaseURL(srv.URL),
	)
	require.NoError(t, err)

	resp, err := llm.GenerateContent(ctx, []llms.Message{
		llms.MessageFromTextParts(llms.RoleHuman, "weather in Kyoto"),
		llms.MessageFromToolCalls(llms.RoleAI, llms.ToolCall{
			ID:           "web_search",
			Type:         "function",
			FunctionCall: &llms.FunctionCall{Name: "web_search", Arguments: `{"query":"Kyoto"}`},
		}),
		llms.MessageFromToolResponse(llms.RoleTool, llms.ToolCallResponse{
			ToolCallID: "web_search",
			Name:       "web_search",
			Content:    "sunny",
		}),
	}, llms.WithTools([]llms.Tool{{
		Type: "function",
		Function: &llms.FunctionDefinition{
			Name:        "web_search",
			Description: "Search the web",
			Parameters: schema.MustFromAny(map[string]any{
				"type":       "object",
				"properties": map[string]any{"query": map[string]any{"type": "string"}},
			}),
		},
	}}))
	require.NoError(t, err)
	require.Len(t, resp.Choices, 1)
	require.Len(t, resp.Choices[0].ToolCalls, 1)
	tc := resp.Choices[0].ToolCalls[0]
	assert.Equal(t, "web_search", tc.ID)
	assert.Equal(t, "web_search", tc.FunctionCall.Name)
	assert.JSONEq(t, `{"query":"Kyoto weather"}`, tc.FunctionCall.Arguments)
}

func TestGenerateContent_Errors(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	srv := newTestServer(t, `{"candidates": []}`, nil)
	llm, err := googleai.New(ctx, googleai.WithAPIKey("test-key"), googleai.WithBaseURL(srv.URL))
	require.NoError(t, err)

	_, err = llm.GenerateContent(ctx, []llms.Message{llms.MessageFromTextParts(llms.RoleHuman, "hi")})
	assert.ErrorIs(t, err, googleai.ErrNoContentInResponse)

	_, err = llm.GenerateContent(ctx, []llms.Message{llms.MessageFromTextParts(llms.Role("bot"), "hi")})
	assert.ErrorIs(t, err, llms.ErrUnexpectedRole)
}

func TestNew_MissingKey(t *testing.T) {
	t.Setenv("GOOGLE_API_KEY", "")
	_, err := googleai.New(context.Background())
	assert.EqualError(t, err, "googleai: missing API key, set GOOGLE_API_KEY")
}
