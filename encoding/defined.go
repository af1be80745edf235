package encoding

import (
	"fmt"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/tripcrew/chatmodel"
)

// TypedOutputParser parses output from an LLM into Go structs.
// The format instructions carry the JSON schema of T for the model.
type TypedOutputParser[T any] struct {
	enc      SchemaEncoder
	name     string
	validate bool
}

var _ chatmodel.OutputParser[any] = (*TypedOutputParser[any])(nil)

// NewTypedOutputParser creates an output parser that structures data according to
// a given schema, as defined by struct field names and types. Tagging the
// field with "json" will explicitly use that value as the field name,
// "jsonschema" adds the description for the model,
// and "validate" declares the constraints checked after decoding.
func NewTypedOutputParser[T any](sourceType T, mode Mode) (*TypedOutputParser[T], error) {
	enc, err := PredefinedSchemaEncoder(mode, sourceType)
	if err != nil {
		return nil, errors.WithMessage(err, "failed to create encoder")
	}

	return &TypedOutputParser[T]{
		enc:      enc,
		name:     fmt.Sprintf("%T parser", sourceType),
		validate: true,
	}, nil
}

// WithValidation enables or disables struct validation after decoding.
func (p *TypedOutputParser[T]) WithValidation(validate bool) *TypedOutputParser[T] {
	p.validate = validate
	return p
}

// Parse parses the output of an LLM call.
func (p *TypedOutputParser[T]) Parse(text string) (*T, error) {
	var target T
	if err := p.enc.Unmarshal([]byte(text), &target); err != nil {
		return nil, errors.Mark(errors.Wrap(err, "failed to decode"), chatmodel.ErrSchemaViolation)
	}
	if checker, ok := p.enc.(RequiredChecker); ok && p.validate {
		if err := checker.CheckRequired([]byte(text)); err != nil {
			return nil, errors.Mark(errors.Wrap(err, "failed to validate"), chatmodel.ErrSchemaViolation)
		}
	}
	if validator, ok := p.enc.(Validator); ok && p.validate {
		if err := validator.Validate(target); err != nil {
			return nil, errors.Mark(errors.Wrap(err, "failed to validate"), chatmodel.ErrSchemaViolation)
		}
	}
	return &target, nil
}

// GetFormatInstructions returns a string describing the format of the output.
func (p *TypedOutputParser[T]) GetFormatInstructions() string {
	return p.enc.GetFormatInstructions()
}

// Type returns the string type key uniquely identifying this class of parser
func (p *TypedOutputParser[T]) Type() string {
	return p.name
}
