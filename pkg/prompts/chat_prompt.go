package prompts

import (
	"strings"

	"github.com/effective-security/tripcrew/pkg/llms"
	"github.com/effective-security/tripcrew/pkg/llmutils"
)

// ChatPromptValue is a prompt value that is a list of chat messages.
type ChatPromptValue []llms.Message

// String returns the chat messages as a readable text.
func (v ChatPromptValue) String() string {
	var buf strings.Builder
	llmutils.PrintMessages(&buf, v)
	return buf.String()
}

// Messages returns the messages.
func (v ChatPromptValue) Messages() []llms.Message {
	return v
}

// MessageFormatter formats a single message of a chat prompt.
type MessageFormatter interface {
	FormatMessage(values map[string]any) (llms.Message, error)
}

// ChatPromptTemplate is a sequence of message templates.
type ChatPromptTemplate []MessageFormatter

// NewChatPromptTemplate returns a chat prompt of the given messages.
func NewChatPromptTemplate(messages []MessageFormatter) ChatPromptTemplate {
	return ChatPromptTemplate(messages)
}

// FormatPrompt renders every message with the values.
func (c ChatPromptTemplate) FormatPrompt(values map[string]any) (ChatPromptValue, error) {
	res := make(ChatPromptValue, 0, len(c))
	for _, m := range c {
		msg, err := m.FormatMessage(values)
		if err != nil {
			return nil, err
		}
		res = append(res, msg)
	}
	return res, nil
}

type messageTemplate struct {
	role Role
	tmpl *Template
}

// Role is an alias of the message role for templates.
type Role = llms.Role

func (m messageTemplate) FormatMessage(values map[string]any) (llms.Message, error) {
	text, err := m.tmpl.Format(values)
	if err != nil {
		return llms.Message{}, err
	}
	return llms.MessageFromTextParts(m.role, text), nil
}

// NewSystemMessagePromptTemplate returns a system message template.
// It panics if the template does not parse.
func NewSystemMessagePromptTemplate(text string, required []string) MessageFormatter {
	return messageTemplate{role: llms.RoleSystem, tmpl: MustTemplate("system", text, required...)}
}

// NewHumanMessagePromptTemplate returns a human message template.
// It panics if the template does not parse.
func NewHumanMessagePromptTemplate(text string, required []string) MessageFormatter {
	return messageTemplate{role: llms.RoleHuman, tmpl: MustTemplate("human", text, required...)}
}
