// parseadapters.go
package nucleo

import (
	json "github.com/segmentio/encoding/json"
)

// ParseParams turns path params into a generic object and validates it
// against schema.
func ParseParams(params map[string]string, schema *SchemaType) (any, *ValidationError) {
	obj := make(map[string]any, len(params))
	for k, v := range params {
		obj[k] = v
	}
	return Validate(obj, schema, "params")
}

// ParseQuery turns a query multimap into a generic object: a key with one
// value becomes a string, multiple values become an array, zero values
// becomes null.
func ParseQuery(query map[string][]string, schema *SchemaType) (any, *ValidationError) {
	obj := make(map[string]any, len(query))
	for k, values := range query {
		switch len(values) {
		case 0:
			obj[k] = nil
		case 1:
			obj[k] = values[0]
		default:
			arr := make([]any, len(values))
			for i, v := range values {
				arr[i] = v
			}
			obj[k] = arr
		}
	}
	return Validate(obj, schema, "query")
}

// ParseBody parses raw JSON bytes and validates the result against
// schema. An empty body with an optional object schema yields the
// schema's default (or null); a non-empty body that fails to parse as
// JSON fails with "Invalid JSON".
func ParseBody(body []byte, schema *SchemaType) (any, *ValidationError) {
	if len(body) == 0 {
		if schema != nil && schema.Kind == KindObject && schema.Optional {
			return schema.Default, nil
		}
		return nil, newValidationError("body", "Request body is required")
	}

	var value any
	if err := json.Unmarshal(body, &value); err != nil {
		return nil, newValidationError("body", "Invalid JSON")
	}

	return Validate(value, schema, "body")
}

// ParseHeaders turns a lower-cased header map into a generic object and
// validates it against schema.
func ParseHeaders(headers map[string]string, schema *SchemaType) (any, *ValidationError) {
	obj := make(map[string]any, len(headers))
	for k, v := range headers {
		obj[k] = v
	}
	return Validate(obj, schema, "headers")
}
