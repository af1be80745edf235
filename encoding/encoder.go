package encoding

import (
	"github.com/cockroachdb/errors"
	jsonenc "github.com/effective-security/tripcrew/encoding/json"
	textenc "github.com/effective-security/tripcrew/encoding/text"
)

// SchemaEncoder encodes and decodes the values exchanged with a model.
type SchemaEncoder interface {
	Marshal(req any) ([]byte, error)
	Unmarshal([]byte, any) error
	// GetFormatInstructions returns the wrapped message with message schema for the prompt
	GetFormatInstructions() string
}

type Validator interface {
	Validate(any) error
}

// RequiredChecker verifies the presence of required properties
// in the raw response, which zero values can not express.
type RequiredChecker interface {
	CheckRequired([]byte) error
}

type Mode = string

const (
	ModeJSON      Mode = "json"
	ModePlainText Mode = "plain_text"
)

func PredefinedSchemaEncoder(mode Mode, req any) (SchemaEncoder, error) {
	switch mode {
	case ModeJSON:
		return jsonenc.NewEncoder(req)
	case ModePlainText:
		return textenc.NewEncoder(), nil
	default:
		return nil, errors.Errorf("no predefined encoder: %s", mode)
	}
}

var (
	_ SchemaEncoder   = (*textenc.Encoder)(nil)
	_ SchemaEncoder   = (*jsonenc.Encoder)(nil)
	_ Validator       = (*jsonenc.Encoder)(nil)
	_ RequiredChecker = (*jsonenc.Encoder)(nil)
)
