package tavily_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/cockroachdb/errors"
	tavilyModels "github.com/diverged/tavily-go/models"
	"github.com/effective-security/tripcrew/chatmodel"
	"github.com/effective-security/tripcrew/pkg/llmutils"
	"github.com/effective-security/tripcrew/tools"
	"github.com/effective-security/tripcrew/tools/tavily"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_Tool(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var req tavilyModels.SearchRequest
		err := json.NewDecoder(r.Body).Decode(&req)
		assert.NoError(t, err)

		assert.Equal(t, "Kyoto weather in April", req.Query)
		assert.Equal(t, "basic", req.SearchDepth)

		resp := tavily.SearchResult{
			Results: []tavilyModels.SearchResult{
				{Title: "Kyoto forecast", URL: "https://example.com", Content: "Mild, 18C", Score: 0.9},
			},
		}
		if req.IncludeAnswer {
			resp.Answer = "Mild and sunny"
		}

		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	ctx := context.Background()

	_, err := tavily.New("")
	assert.EqualError(t, err, "TAVILY_API_KEY is not set")

	tool, err := tavily.New("testkey")
	require.NoError(t, err)
	tool.WithBaseURL(server.URL).WithHTTPClient(server.Client())

	assert.Equal(t, tavily.ToolName, tool.Name())
	assert.Contains(t, tool.Description(), `web search`)

	params := llmutils.ToJSONIndent(tool.Parameters())
	expParams := `{
	"properties": {
		"Query": {
			"type": "string",
			"title": "Search Query",
			"description": "The query to search web."
		}
	},
	"type": "object",
	"required": [
		"Query"
	]
}`
	assert.Equal(t, expParams, params)

	llmTools := tools.ToLLMTools(tool)
	require.Len(t, llmTools, 1)
	assert.Equal(t, "function", llmTools[0].Type)
	assert.Equal(t, tavily.ToolName, llmTools[0].Function.Name)
	assert.Same(t, tool.Parameters(), llmTools[0].Function.Parameters)

	_, err = tool.Call(ctx, "plain string")
	assert.True(t, errors.Is(err, chatmodel.ErrFailedUnmarshalInput))
	assert.EqualError(t, err, "failed to unmarshal input: check the schema and try again")

	_, err = tool.Run(ctx, &tavily.SearchRequest{Query: " "})
	assert.EqualError(t, err, "invalid request: empty query")

	input := &tavily.SearchRequest{
		Query: "Kyoto weather in April",
	}

	resp, err := tool.Run(ctx, input)
	require.NoError(t, err)
	exp := `ANSWER: Mild and sunny
- URL: https://example.com
  TITLE: Kyoto forecast
  SCORE: 0.900000
  CONTENT: Mild, 18C
`
	assert.Equal(t, exp, resp.String())

	resp2, err := tool.Call(ctx, llmutils.ToJSON(input))
	require.NoError(t, err)
	exp = `{"results":[{"title":"Kyoto forecast","url":"https://example.com","content":"Mild, 18C","score":0.9}],"answer":"Mild and sunny"}`
	assert.Equal(t, exp, resp2)
	assert.Equal(t, exp, resp.GetContent())
}

func Test_Tool_Failure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte("internal error"))
	}))
	defer server.Close()

	tool, err := tavily.New("testkey")
	require.NoError(t, err)
	tool.WithBaseURL(server.URL).WithHTTPClient(server.Client()).WithSearchDepth("advanced")

	_, err = tool.Call(context.Background(), `{"Query":"hotels in Kyoto"}`)
	require.Error(t, err)
	assert.Equal(t, chatmodel.KindToolFailure, chatmodel.KindOf(err))
}

func Test_Tool_Canceled(t *testing.T) {
	tool, err := tavily.New("testkey")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = tool.Run(ctx, &tavily.SearchRequest{Query: "hotels"})
	assert.ErrorIs(t, err, context.Canceled)
}

func Test_Tool_Real(t *testing.T) {
	// uncomment to run Real Tests
	t.Skip("skipping real test")

	apikey := os.Getenv(tavily.APIKeyEnvVarName)
	if apikey == "" {
		t.Skip("TAVILY_API_KEY is not set")
	}

	tool, err := tavily.New(apikey)
	require.NoError(t, err)

	resp, err := tool.Call(context.Background(), `{"Query":"What is capital of France"}`)
	require.NoError(t, err)
	assert.Contains(t, resp, "Paris")
}
