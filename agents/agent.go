package agents

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/tripcrew/callbacks"
	"github.com/effective-security/tripcrew/chatmodel"
	"github.com/effective-security/tripcrew/encoding"
	"github.com/effective-security/tripcrew/pkg/llms"
	"github.com/effective-security/tripcrew/pkg/llmutils"
	"github.com/effective-security/tripcrew/pkg/metricskey"
	"github.com/effective-security/tripcrew/pkg/schema"
	"github.com/effective-security/tripcrew/tools"
	"github.com/effective-security/x/slices"
	"github.com/effective-security/x/values"
	"github.com/effective-security/xlog"
)

var logger = xlog.NewPackageLogger("github.com/effective-security/tripcrew", "agents")

// ToolFailureNotice is sent to the model in place of the output of a failed tool
const ToolFailureNotice = "no grounding data available"

// Limits of a call, reported as UpstreamException
var (
	ErrMessagesLimit               = errors.New("the messages count exceeded limit")
	ErrContentSizeLimit            = errors.New("the content size exceeded limit")
	ErrToolCallsLimit              = errors.New("the tool calls limit is exceeded")
	ErrFunctionCallingNotSupported = errors.New("the model does not support function calling")
)

// Resolver resolves a task to text.
// Team members and coordinators implement it.
type Resolver interface {
	Name() string
	Resolve(ctx context.Context, task string) (string, error)
}

// Agent is a model-backed reasoning unit producing O.
// Use chatmodel.String for plain text output.
type Agent[O any] struct {
	llm    llms.Model
	parser chatmodel.OutputParser[O]

	id           string
	description  string
	instructions []string
	structured   bool

	tools       []tools.ITool
	toolsByName map[string]tools.ITool
	toolsNames  []string
	llmToolDefs []llms.Tool

	cfg *Config
}

var _ Resolver = (*Agent[chatmodel.String])(nil)

// New returns the Agent with the ID, unique per process,
// and the ordered instructions for the system prompt.
func New[O any](id string, llm llms.Model, instructions []string, options ...Option) (*Agent[O], error) {
	if id == "" {
		return nil, errors.New("agent ID is required")
	}
	if llm == nil {
		return nil, errors.Newf("agent %s: model is required", id)
	}

	a := &Agent[O]{
		id:           id,
		llm:          llm,
		instructions: append([]string(nil), instructions...),
		cfg:          NewConfig(options...),
		toolsByName:  make(map[string]tools.ITool),
	}

	var output O
	if _, ok := any(&output).(*chatmodel.String); ok {
		a.parser = any(encoding.NewSimpleOutputParser()).(chatmodel.OutputParser[O])
	} else {
		parser, err := encoding.NewTypedOutputParser(output, encoding.ModeJSON)
		if err != nil {
			return nil, errors.WithMessagef(err, "agent %s", id)
		}
		a.parser = parser
		a.structured = true
	}
	return a, nil
}

// WithDescription sets the description of the Agent, to be used in the prompt of other Agents.
func (a *Agent[O]) WithDescription(description string) *Agent[O] {
	a.description = description
	return a
}

// WithOutputParser replaces the output parser.
func (a *Agent[O]) WithOutputParser(parser chatmodel.OutputParser[O]) *Agent[O] {
	a.parser = parser
	return a
}

// WithTools adds new tools to the Agent,
// existing tools are not replaced.
func (a *Agent[O]) WithTools(list ...tools.ITool) *Agent[O] {
	for _, tool := range list {
		name := tool.Name()
		// use lowercase for the key
		key := strings.ToLower(name)
		if a.toolsByName[key] == nil {
			a.toolsByName[key] = tool
			a.toolsNames = append(a.toolsNames, name)
			a.tools = append(a.tools, tool)
		}
	}
	a.llmToolDefs = tools.ToLLMTools(a.tools...)
	return a
}

// Name returns the ID of the Agent.
func (a *Agent[O]) Name() string {
	return a.id
}

// Description returns the description of the Agent.
func (a *Agent[O]) Description() string {
	return a.description
}

// Model returns the language model of the Agent.
func (a *Agent[O]) Model() llms.Model {
	return a.llm
}

func (a *Agent[O]) GetTools() []tools.ITool {
	return a.tools
}

// GetSystemPrompt returns the instructions joined by newline,
// with the output schema when the model does not receive it natively.
func (a *Agent[O]) GetSystemPrompt() string {
	systemPrompt := strings.TrimRight(strings.Join(a.instructions, "\n"), "\n")

	if a.structured {
		rf := a.cfg.responseFormat(a.llm.GetProviderType())
		if rf == nil || rf.Type != schema.ResponseFormatTypeJSONSchema {
			outputSchema := strings.TrimRight(a.parser.GetFormatInstructions(), "\n")
			if outputSchema != "" {
				systemPrompt = fmt.Sprintf("%s\n\n# OUTPUT SCHEMA\n%s", systemPrompt, outputSchema)
			}
		}
	}
	return systemPrompt
}

// Resolve runs the task and returns the output as text:
// the content of plain text output, or JSON of structured output.
func (a *Agent[O]) Resolve(ctx context.Context, task string) (string, error) {
	out, err := a.Run(ctx, task)
	if err != nil {
		return "", err
	}
	return contentOf(out), nil
}

func contentOf(out any) string {
	if cp, ok := out.(chatmodel.ContentProvider); ok {
		return cp.GetContent()
	}
	return llmutils.ToJSON(out)
}

// Run runs the task and returns the parsed output.
//
// Failures are classified by chatmodel.KindOf:
// KindSchemaViolation when the output does not match O,
// KindEmptyResult when the model returns no content,
// KindUpstreamException when the model call fails,
// and KindTimeout when the deadline of ctx expires.
// Tool failures are reported to the model and do not fail the call.
func (a *Agent[O]) Run(ctx context.Context, task string) (*O, error) {
	started := time.Now()
	defer metricskey.PerfAgentCall.MeasureSince(started, a.id)

	callback := a.cfg.Callback
	if callback != nil {
		callback.OnAgentStart(ctx, a, task)
	}

	out, text, err := a.run(ctx, task)
	if err != nil {
		metricskey.StatsAgentCallsFailed.IncrCounter(1, a.id)
		if callback != nil {
			callback.OnAgentError(ctx, a, task, err)
		}
		return nil, err
	}
	metricskey.StatsAgentCallsSucceeded.IncrCounter(1, a.id)
	if callback != nil {
		callback.OnAgentEnd(ctx, a, task, text)
	}
	return out, nil
}

func (a *Agent[O]) run(ctx context.Context, task string) (*O, string, error) {
	cfg := a.cfg
	agentName := a.id
	modelName := a.llm.GetName()
	prov := a.llm.GetProviderType()

	messages := []llms.Message{
		llms.MessageFromTextParts(llms.RoleSystem, a.GetSystemPrompt()),
		llms.MessageFromTextParts(llms.RoleHuman, task),
	}

	callOpts := cfg.GetCallOptions(prov)
	if len(a.llmToolDefs) > 0 {
		if !prov.Supports(llms.CapabilityFunctionCalling) {
			return nil, "", limitError(ErrFunctionCallingNotSupported, agentName)
		}
		callOpts = append(callOpts, llms.WithTools(a.llmToolDefs))
	}

	maxMessages := values.NumbersCoalesce(cfg.MaxMessages, DefaultMaxMessages)
	bytesLimit := uint64(values.NumbersCoalesce(cfg.MaxContentSize, DefaultMaxContentSize))
	toolsLimit := values.NumbersCoalesce(cfg.MaxToolCalls, DefaultMaxToolCalls)
	emptyLimit := values.NumbersCoalesce(cfg.MaxEmptyResponses, DefaultMaxEmptyResponses)

	var resp *llms.ContentResponse
	totalToolCalls := 0
	emptyCount := 0
	for {
		if err := ctx.Err(); err != nil {
			return nil, "", contextError(err, agentName)
		}
		if len(messages) >= maxMessages {
			return nil, "", limitError(ErrMessagesLimit, agentName)
		}
		bytesSent := llmutils.CountMessagesContentSize(messages)
		if bytesSent > bytesLimit {
			return nil, "", limitError(ErrContentSizeLimit, agentName)
		}

		if cfg.Callback != nil {
			cfg.Callback.OnLLMCallStart(ctx, a, a.llm, messages)
		}

		metricskey.StatsLLMMessagesSent.IncrCounter(float64(len(messages)), agentName, modelName)
		metricskey.StatsLLMBytesSent.IncrCounter(float64(bytesSent), agentName, modelName)

		var err error
		resp, err = a.llm.GenerateContent(ctx, messages, callOpts...)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, "", contextError(ctxErr, agentName)
			}
			return nil, "", chatmodel.WithKind(
				errors.Wrapf(err, "agent %s: failed to generate content", agentName),
				chatmodel.KindUpstreamException)
		}
		if resp == nil {
			resp = &llms.ContentResponse{}
		}

		if cfg.Callback != nil {
			cfg.Callback.OnLLMCallEnd(ctx, a, a.llm, resp)
		}

		metricskey.StatsLLMBytesReceived.IncrCounter(float64(llmutils.CountResponseContentSize(resp)), agentName, modelName)
		metricskey.StatsLLMInputTokens.IncrCounter(float64(resp.Usage.InputTokens), agentName, modelName)
		metricskey.StatsLLMOutputTokens.IncrCounter(float64(resp.Usage.OutputTokens), agentName, modelName)

		if isEmpty(resp) {
			emptyCount++
			if emptyCount >= emptyLimit {
				logger.ContextKV(ctx, xlog.ERROR,
					"agent", agentName,
					"status", "empty_response",
					"input", slices.StringUpto(task, 64),
					"count", emptyCount,
				)
				return nil, "", errors.Wrapf(chatmodel.ErrEmptyResult,
					"agent %s: model returned empty response %d times", agentName, emptyCount)
			}
			metricskey.StatsAgentCallsRetried.IncrCounter(1, agentName)
			logger.ContextKV(ctx, xlog.WARNING,
				"agent", agentName,
				"status", "retrying_empty_response",
				"count", emptyCount,
			)
			continue
		}

		var executed int
		executed, messages = a.executeToolCalls(ctx, messages, resp)
		if executed == 0 {
			break
		}
		totalToolCalls += executed
		if totalToolCalls > toolsLimit {
			return nil, "", limitError(ErrToolCallsLimit, agentName)
		}
	}

	result := resp.Choices[0].Content
	if len(resp.Choices) > 1 {
		var combined strings.Builder
		for i, choice := range resp.Choices {
			if i > 0 {
				combined.WriteString("\n\n")
			}
			combined.WriteString(choice.Content)
		}
		result = combined.String()
	}

	logger.ContextKV(ctx, xlog.DEBUG,
		"agent", agentName,
		"status", "response",
		"choices", len(resp.Choices),
		"tool_calls", totalToolCalls,
		"size", len(result),
	)

	out, err := a.parser.Parse(result)
	if err != nil {
		metricskey.StatsAgentParseErrors.IncrCounter(1, agentName)
		logger.ContextKV(ctx, xlog.DEBUG,
			"agent", agentName,
			"status", "failed_to_parse_response",
			"output_parser", a.parser.Type(),
			"err", err.Error(),
		)
		if cfg.Callback != nil {
			cfg.Callback.OnParseError(ctx, a, task, result, err)
		}
		// parsers of other packages may not classify the error
		if chatmodel.KindOf(err) != chatmodel.KindSchemaViolation {
			err = chatmodel.WithKind(err, chatmodel.KindSchemaViolation)
		}
		return nil, result, errors.WithMessagef(err, "agent %s", agentName)
	}

	return out, result, nil
}

// isEmpty returns true if the response has neither content nor tool calls
func isEmpty(resp *llms.ContentResponse) bool {
	for _, choice := range resp.Choices {
		if strings.TrimSpace(choice.Content) != "" || len(choice.ToolCalls) > 0 {
			return false
		}
	}
	return true
}

func limitError(err error, agentName string) error {
	return chatmodel.WithKind(errors.Wrapf(err, "agent %s", agentName), chatmodel.KindUpstreamException)
}

func contextError(err error, agentName string) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return chatmodel.WithKind(errors.Wrapf(err, "agent %s", agentName), chatmodel.KindTimeout)
	}
	return errors.Wrapf(err, "agent %s", agentName)
}

type toolCallResult struct {
	toolCall llms.ToolCall
	response string
}

// executeToolCalls executes the tool calls of the response concurrently,
// and appends the calls and the results, in call order, to the messages.
func (a *Agent[O]) executeToolCalls(ctx context.Context, messages []llms.Message, resp *llms.ContentResponse) (int, []llms.Message) {
	var toolCalls []llms.ToolCall
	for _, choice := range resp.Choices {
		var choiceToolCalls []llms.ToolCall
		for i, toolCall := range choice.ToolCalls {
			if toolCall.FunctionCall == nil {
				continue
			}
			if toolCall.ID == "" {
				toolCall.ID = fmt.Sprintf("%s_%d", toolCall.FunctionCall.Name, i)
			}
			toolCall.Type = values.StringsCoalesce(toolCall.Type, "function")
			choiceToolCalls = append(choiceToolCalls, toolCall)
		}
		if len(choiceToolCalls) == 0 {
			continue
		}
		toolCalls = append(toolCalls, choiceToolCalls...)
		messages = append(messages, llms.MessageFromToolCalls(llms.RoleAI, choiceToolCalls...))
	}

	if len(toolCalls) == 0 {
		return 0, messages
	}

	results := make([]toolCallResult, len(toolCalls))
	var wg sync.WaitGroup
	for i, tc := range toolCalls {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i] = toolCallResult{
				toolCall: tc,
				response: a.callTool(ctx, tc),
			}
		}()
	}
	wg.Wait()

	for _, result := range results {
		messages = append(messages, llms.MessageFromToolResponse(llms.RoleTool, llms.ToolCallResponse{
			ToolCallID: result.toolCall.ID,
			Name:       result.toolCall.FunctionCall.Name,
			Content:    result.response,
		}))
	}

	return len(toolCalls), messages
}

// callTool returns the tool output, or the notice for the model on failure
func (a *Agent[O]) callTool(ctx context.Context, tc llms.ToolCall) string {
	cb := a.cfg.Callback
	toolName := tc.FunctionCall.Name
	toolArgs := tc.FunctionCall.Arguments

	tool := a.toolsByName[strings.ToLower(toolName)]
	if tool == nil {
		metricskey.StatsToolCallsNotFound.IncrCounter(1, toolName)
		if cb != nil {
			cb.OnToolNotFound(ctx, a, toolName)
		}
		availableTools := strings.Join(a.toolsNames, ", ")
		logger.ContextKV(ctx, xlog.WARNING,
			"agent", a.id,
			"status", "tool_not_found",
			"tool_name", toolName,
			"available_tools", availableTools,
		)
		return fmt.Sprintf("Tool `%s` not found. Available tools: %s", toolName, availableTools)
	}

	if cb != nil {
		cb.OnToolStart(ctx, tool, a.id, toolArgs)
	}

	started := time.Now()
	res, err := tool.Call(ctx, toolArgs)
	metricskey.PerfToolCall.MeasureSince(started, toolName)

	if err != nil {
		metricskey.StatsToolCallsFailed.IncrCounter(1, toolName)
		if cb != nil {
			cb.OnToolError(ctx, tool, a.id, toolArgs, err)
		}
		logger.ContextKV(ctx, xlog.WARNING,
			"agent", a.id,
			"status", "tool_call_failed",
			"tool", toolName,
			"kind", chatmodel.KindOf(err),
			"err", err.Error(),
		)
		if errors.Is(err, chatmodel.ErrFailedUnmarshalInput) {
			return "Tool call failed: invalid input, check the JSON schema of the parameters and try again."
		}
		return "Tool call failed: " + ToolFailureNotice + "."
	}

	metricskey.StatsToolCallsSucceeded.IncrCounter(1, toolName)
	if cb != nil {
		cb.OnToolEnd(ctx, tool, a.id, toolArgs, res)
	}
	return res
}

var _ callbacks.Agent = (*Agent[chatmodel.String])(nil)
