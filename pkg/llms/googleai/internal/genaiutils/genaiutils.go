package genaiutils

import (
	"github.com/cockroachdb/errors"
	"github.com/effective-security/tripcrew/pkg/llms"
	"github.com/effective-security/tripcrew/pkg/schema"
	"github.com/invopop/jsonschema"
	"google.golang.org/genai"
)

// ConvertTools converts function tools to genai tools.
func ConvertTools(tools []llms.Tool) ([]*genai.Tool, error) {
	genaiTools := make([]*genai.Tool, 0, len(tools))
	for i, tool := range tools {
		if tool.Type != "function" || tool.Function == nil {
			return nil, errors.Errorf("tool [%d]: unsupported type %q, want 'function'", i, tool.Type)
		}

		decl := &genai.FunctionDeclaration{
			Name:        tool.Function.Name,
			Description: tool.Function.Description,
		}

		if tool.Function.Parameters != nil {
			params, err := ConvertJSONSchemaDefinition(tool.Function.Parameters)
			if err != nil {
				return nil, errors.Wrapf(err, "tool [%d]", i)
			}
			decl.Parameters = params
		}

		genaiTools = append(genaiTools, &genai.Tool{
			FunctionDeclarations: []*genai.FunctionDeclaration{decl},
		})
	}

	return genaiTools, nil
}

// ConvertResponseFormatJSONSchema converts a json_schema response format to a genai.Schema.
// Objects with arbitrary keys can not be expressed in a Gemini schema
// and are reported as an error.
func ConvertResponseFormatJSONSchema(js *schema.ResponseFormatJSONSchema) (*genai.Schema, error) {
	if js == nil || js.Schema == nil {
		return nil, nil
	}

	var convert func(path string, p *schema.ResponseFormatJSONSchemaProperty) (*genai.Schema, error)
	convert = func(path string, p *schema.ResponseFormatJSONSchemaProperty) (*genai.Schema, error) {
		if p.IsOpenMap() {
			return nil, errors.Errorf("property %q: open object is not supported", path)
		}

		out := &genai.Schema{
			Type:        ConvertJSONSchemaType(p.Type),
			Title:       p.Title,
			Description: p.Description,
			Required:    p.Required,
		}
		for _, e := range p.Enum {
			if s, ok := e.(string); ok {
				out.Enum = append(out.Enum, s)
			}
		}

		if len(p.Properties) > 0 {
			out.Properties = make(map[string]*genai.Schema, len(p.Properties))
			for k, v := range p.Properties {
				child, err := convert(path+"."+k, v)
				if err != nil {
					return nil, err
				}
				out.Properties[k] = child
			}
		}

		if p.Items != nil {
			items, err := convert(path+"[]", p.Items)
			if err != nil {
				return nil, err
			}
			out.Items = items
		}

		return out, nil
	}

	return convert(js.Name, js.Schema)
}

// ConvertJSONSchemaDefinition converts a jsonschema.Schema to a genai.Schema.
func ConvertJSONSchemaDefinition(js *jsonschema.Schema) (*genai.Schema, error) {
	if js == nil {
		return nil, nil
	}

	out := &genai.Schema{
		Type:        ConvertJSONSchemaType(js.Type),
		Description: js.Description,
		Required:    js.Required,
	}

	if js.Properties != nil {
		out.Properties = make(map[string]*genai.Schema, js.Properties.Len())
		for pair := js.Properties.Oldest(); pair != nil; pair = pair.Next() {
			prop, err := ConvertJSONSchemaDefinition(pair.Value)
			if err != nil {
				return nil, errors.Wrapf(err, "property [%s]", pair.Key)
			}
			out.Properties[pair.Key] = prop
		}
	}

	if js.Items != nil {
		items, err := ConvertJSONSchemaDefinition(js.Items)
		if err != nil {
			return nil, errors.Wrap(err, "items")
		}
		out.Items = items
	}

	return out, nil
}

// ConvertJSONSchemaType converts a JSON schema type name to a genai.Type.
func ConvertJSONSchemaType(dt string) genai.Type {
	switch dt {
	case "object":
		return genai.TypeObject
	case "string":
		return genai.TypeString
	case "number":
		return genai.TypeNumber
	case "integer":
		return genai.TypeInteger
	case "boolean":
		return genai.TypeBoolean
	case "array":
		return genai.TypeArray
	default:
		return genai.TypeUnspecified
	}
}

// Float32Ptr returns nil for zero.
func Float32Ptr(f float32) *float32 {
	if f == 0 {
		return nil
	}
	return &f
}

// Int32Ptr returns nil for zero.
func Int32Ptr(i int32) *int32 {
	if i == 0 {
		return nil
	}
	return &i
}
