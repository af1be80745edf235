package tavily

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"reflect"
	"strings"

	"github.com/cockroachdb/errors"
	tavilygo "github.com/diverged/tavily-go"
	tavilyModels "github.com/diverged/tavily-go/models"
	"github.com/effective-security/tripcrew/chatmodel"
	"github.com/effective-security/tripcrew/pkg/llmutils"
	"github.com/effective-security/tripcrew/pkg/schema"
	"github.com/effective-security/tripcrew/tools"
	"github.com/effective-security/xlog"
	"github.com/invopop/jsonschema"
)

var logger = xlog.NewPackageLogger("github.com/effective-security/tripcrew/tools", "tavily")

const (
	ToolName = "WebSearch"
	// APIKeyEnvVarName is the environment variable of the Tavily API key
	APIKeyEnvVarName = "TAVILY_API_KEY" //nolint:gosec
)

// SearchRequest represents the tool input.
type SearchRequest struct {
	Query string `json:"Query" yaml:"Query" jsonschema:"title=Search Query,description=The query to search web."`
}

// SearchResult represents the structure for a search response
type SearchResult struct {
	Results []tavilyModels.SearchResult `json:"results" yaml:"Results" jsonschema:"title=results,description=The results from a web search."`
	Answer  string                      `json:"answer,omitempty" yaml:"Answer" jsonschema:"title=answer,description=The aggregated answer from a web search."`
}

// GetContent returns the content for the conversation
func (r *SearchResult) GetContent() string {
	return llmutils.ToJSON(r)
}

// Tool is a tool that provides a web search functionality
type Tool struct {
	name        string
	description string
	apiKey      string
	params      *jsonschema.Schema
	searchDepth string

	baseURL    string
	httpClient *http.Client
}

// ensure Tool implements the tools.Tool interface
var _ tools.Tool[SearchRequest, SearchResult] = (*Tool)(nil)

// New returns the web search tool with the Tavily API key
func New(apiKey string) (*Tool, error) {
	if apiKey == "" {
		return nil, errors.Errorf("%s is not set", APIKeyEnvVarName)
	}

	sc, err := schema.New(reflect.TypeOf(SearchRequest{}))
	if err != nil {
		return nil, errors.Wrap(err, "failed to create schema")
	}
	tool := &Tool{
		name:        ToolName,
		description: "A tool that provides a web search functionality. Use it to find current facts: weather forecasts, hotel prices, transport options.",
		apiKey:      apiKey,
		params:      sc.Parameters,
		searchDepth: "basic",
		httpClient:  http.DefaultClient,
	}
	return tool, nil
}

func (t *Tool) WithBaseURL(baseURL string) *Tool {
	t.baseURL = baseURL
	return t
}

func (t *Tool) WithHTTPClient(client *http.Client) *Tool {
	t.httpClient = client
	return t
}

// WithSearchDepth sets the search depth: basic or advanced
func (t *Tool) WithSearchDepth(depth string) *Tool {
	t.searchDepth = depth
	return t
}

func (t *Tool) Name() string {
	return t.name
}

func (t *Tool) Description() string {
	return t.description
}

func (t *Tool) Parameters() *jsonschema.Schema {
	return t.params
}

// Run performs the search.
// Failures of the search service are marked with chatmodel.ErrToolFailure.
func (t *Tool) Run(ctx context.Context, req *SearchRequest) (*SearchResult, error) {
	if strings.TrimSpace(req.Query) == "" {
		return nil, errors.New("invalid request: empty query")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	client := tavilygo.NewClient(t.apiKey)
	if t.baseURL != "" {
		client.BaseURL = t.baseURL
	}
	if t.httpClient != nil {
		client.HTTPClient = t.httpClient
	}

	searchReq := tavilyModels.SearchRequest{
		Query:         req.Query,
		SearchDepth:   t.searchDepth,
		IncludeAnswer: true,
	}

	searchResp, err := tavilygo.Search(client, searchReq)
	if err != nil {
		logger.ContextKV(ctx, xlog.DEBUG,
			"reason", "search",
			"query", req.Query,
			"err", err.Error(),
		)
		return nil, chatmodel.WithKind(errors.Wrap(err, "failed to perform search"), chatmodel.KindToolFailure)
	}

	return &SearchResult{
		Results: searchResp.Results,
		Answer:  searchResp.Answer,
	}, nil
}

func (t *Tool) Call(ctx context.Context, input string) (string, error) {
	var req SearchRequest
	if err := json.Unmarshal(llmutils.CleanJSON([]byte(input)), &req); err != nil {
		return "", errors.WithStack(chatmodel.ErrFailedUnmarshalInput)
	}
	out, err := t.Run(ctx, &req)
	if err != nil {
		return "", err
	}
	bs, err := json.Marshal(out)
	if err != nil {
		return "", errors.Wrap(err, "failed to marshal output")
	}
	return string(bs), nil
}

func (r *SearchResult) String() string {
	var buf bytes.Buffer
	if r.Answer != "" {
		fmt.Fprintf(&buf, "ANSWER: %s\n", r.Answer)
	}

	for _, result := range r.Results {
		fmt.Fprintf(&buf, "- URL: %s\n", result.URL)
		fmt.Fprintf(&buf, "  TITLE: %s\n", result.Title)
		fmt.Fprintf(&buf, "  SCORE: %f\n", result.Score)
		fmt.Fprintf(&buf, "  CONTENT: %s\n", result.Content)
	}

	return buf.String()
}
