package llmutils_test

import (
	"bytes"
	"testing"

	"github.com/effective-security/tripcrew/pkg/llms"
	"github.com/effective-security/tripcrew/pkg/llmutils"
	"github.com/stretchr/testify/assert"
)

func Test_CleanJSON(t *testing.T) {
	llmOutput := "\n```json\n\n{\"city\": \"Kyoto\", \"country\": \"Japan\"}\n\n```\n\n"
	expected := "{\"city\": \"Kyoto\", \"country\": \"Japan\"}"
	assert.Equal(t, expected, string(llmutils.CleanJSON([]byte(llmOutput))))

	llmOutput = "Here you go:\n```json\n\n[{\"city\": \"Kyoto\"}]\n```\n\n"
	assert.Equal(t, "[{\"city\": \"Kyoto\"}]", string(llmutils.CleanJSON([]byte(llmOutput))))

	assert.Equal(t, "no json", string(llmutils.CleanJSON([]byte("no json"))))
}

func Test_TrimBackticks(t *testing.T) {
	expected := "{\"city\": \"Kyoto\"}"

	assert.Equal(t, expected, llmutils.TrimBackticks("\n```json\n\n{\"city\": \"Kyoto\"}\n\n```\n\n"))
	assert.Equal(t, expected, llmutils.TrimBackticks(expected))
	assert.Equal(t, expected, llmutils.TrimBackticks("\n```\n\n{\"city\": \"Kyoto\"}\n\n```\n\n"))
	assert.Equal(t, expected, llmutils.TrimBackticks("\n```{\"city\": \"Kyoto\"}\n\n```\n\n"))
}

func Test_Stringify(t *testing.T) {
	assert.Equal(t, "text", llmutils.Stringify("text"))
	assert.Equal(t, "a", llmutils.Stringify(llms.TextPart("a")))
	assert.Equal(t, "\n```json\n{\n\t\"a\": 1\n}\n```\n", llmutils.Stringify(map[string]int{"a": 1}))
	assert.Equal(t, "a: 1\n", llmutils.ToYAML(map[string]int{"a": 1}))
	assert.Equal(t, `{"a":1}`, llmutils.ToJSON(map[string]int{"a": 1}))

	resp := llmutils.NewContentResponse("done")
	assert.Equal(t, "done", resp.Choices[0].Content)
}

func Test_CountSize(t *testing.T) {
	msgs := []llms.Message{
		llms.MessageFromTextParts(llms.RoleHuman, "abc"),
		llms.MessageFromToolCalls(llms.RoleAI, llms.ToolCall{
			ID:           "1",
			Type:         "function",
			FunctionCall: &llms.FunctionCall{Name: "f", Arguments: "{}"},
		}),
		llms.MessageFromToolResponse(llms.RoleTool, llms.ToolCallResponse{ToolCallID: "1", Name: "f", Content: "ok"}),
	}
	// human(5)+abc(3) + ai(2)+1+function+f+{} (12) + tool(4)+1+f+ok (4)
	assert.Equal(t, uint64(30), llmutils.CountMessagesContentSize(msgs))

	assert.Equal(t, uint64(0), llmutils.CountResponseContentSize(nil))
	assert.Equal(t, uint64(4), llmutils.CountResponseContentSize(llmutils.NewContentResponse("done")))

	var buf bytes.Buffer
	llmutils.PrintMessages(&buf, msgs)
	assert.Equal(t, "HUMAN: abc\nAI: ToolCall: 1 (f), input: {}\nTOOL: ToolCallResponse ID=1, Name=f, Content=ok\n", buf.String())
}

func Test_EnsureEndsWithNewline(t *testing.T) {
	assert.Equal(t, "", llmutils.EnsureEndsWithNewline("  "))
	assert.Equal(t, "a\n", llmutils.EnsureEndsWithNewline(" a \n\n"))
}
