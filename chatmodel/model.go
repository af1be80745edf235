package chatmodel

import (
	"github.com/cockroachdb/errors"
)

var (
	// ErrFailedUnmarshalInput is returned by tools when the model sent input
	// that does not match the tool parameters.
	ErrFailedUnmarshalInput = errors.New("failed to unmarshal input: check the schema and try again")
	// ErrInvalidRunContext is returned when the context does not carry a RunContext.
	ErrInvalidRunContext = errors.New("invalid run context")
)

// OutputParser is an interface for parsing the output of an LLM call.
type OutputParser[T any] interface {
	// Parse parses the output of an LLM call.
	// Decoding and validation failures are marked with ErrSchemaViolation.
	Parse(text string) (*T, error)
	// GetFormatInstructions returns a string describing the format of the output.
	GetFormatInstructions() string
	// Type returns the string type key uniquely identifying this class of parser
	Type() string
}

// ContentProvider returns the content of a value as text for the conversation.
type ContentProvider interface {
	GetContent() string
}

type Stringer interface {
	String() string
}
