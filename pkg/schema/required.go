package schema

import (
	"encoding/json"
	"slices"
	"strconv"

	"github.com/cockroachdb/errors"
	"github.com/invopop/jsonschema"
)

// CheckRequired verifies that the JSON document has every property
// listed as required by the schema, at any depth.
// A property with a null value is reported as missing.
func (s *Schema) CheckRequired(data []byte) error {
	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return errors.WithStack(err)
	}
	return checkRequired("", s.Parameters, doc)
}

func checkRequired(path string, sc *jsonschema.Schema, v any) error {
	if sc == nil || v == nil {
		return nil
	}

	switch val := v.(type) {
	case map[string]any:
		for _, name := range sc.Required {
			if p, ok := val[name]; !ok || p == nil {
				return errors.Errorf("%s is required", propertyPath(path, name))
			}
		}
		if sc.Properties != nil && sc.Properties.Len() > 0 {
			for pair := sc.Properties.Oldest(); pair != nil; pair = pair.Next() {
				if err := checkRequired(propertyPath(path, pair.Key), pair.Value, val[pair.Key]); err != nil {
					return err
				}
			}
		} else if sc.AdditionalProperties != nil {
			// map values share one schema
			keys := make([]string, 0, len(val))
			for k := range val {
				keys = append(keys, k)
			}
			slices.Sort(keys)
			for _, k := range keys {
				if err := checkRequired(propertyPath(path, k), sc.AdditionalProperties, val[k]); err != nil {
					return err
				}
			}
		}
	case []any:
		for i, item := range val {
			if err := checkRequired(path+"["+strconv.Itoa(i)+"]", sc.Items, item); err != nil {
				return err
			}
		}
	}
	return nil
}

func propertyPath(path, name string) string {
	if path == "" {
		return name
	}
	return path + "." + name
}
