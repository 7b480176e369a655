// schema.go
package nucleo

import (
	"fmt"

	json "github.com/segmentio/encoding/json"
)

// Kind tags a SchemaType variant.
type Kind string

const (
	KindString  Kind = "string"
	KindNumber  Kind = "number"
	KindBoolean Kind = "boolean"
	KindArray   Kind = "array"
	KindObject  Kind = "object"
	KindLiteral Kind = "literal"
	KindUnion   Kind = "union"
)

// StringConstraintKind tags a StringConstraint variant.
type StringConstraintKind string

const (
	StringMin   StringConstraintKind = "min"
	StringMax   StringConstraintKind = "max"
	StringLen   StringConstraintKind = "length"
	StringEmail StringConstraintKind = "email"
	StringURL   StringConstraintKind = "url"
	StringUUID  StringConstraintKind = "uuid"
	StringRegex StringConstraintKind = "regex"
)

// StringConstraint is one check applied, in order, to a string field.
type StringConstraint struct {
	Kind  StringConstraintKind
	Value int    // for Min/Max/Length
	Regex string // for Regex
}

// NumberConstraintKind tags a NumberConstraint variant.
type NumberConstraintKind string

const (
	NumberMin      NumberConstraintKind = "min"
	NumberMax      NumberConstraintKind = "max"
	NumberInt      NumberConstraintKind = "int"
	NumberPositive NumberConstraintKind = "positive"
	NumberNegative NumberConstraintKind = "negative"
)

// NumberConstraint is one check applied, in order, to a number field.
type NumberConstraint struct {
	Kind  NumberConstraintKind
	Value float64 // for Min/Max
}

// ArrayConstraintKind tags an ArrayConstraint variant.
type ArrayConstraintKind string

const (
	ArrayMin ArrayConstraintKind = "min"
	ArrayMax ArrayConstraintKind = "max"
	ArrayLen ArrayConstraintKind = "length"
)

// ArrayConstraint is one check applied to an array's length.
type ArrayConstraint struct {
	Kind  ArrayConstraintKind
	Value int
}

// SchemaType is the tagged-variant schema tree describing one expected
// request field.
// The zero value is not meaningful; use the New* constructors or
// UnmarshalJSON to build one. A schema tree is immutable once built and
// safe for concurrent reads.
type SchemaType struct {
	Kind     Kind
	Optional bool
	Default  any // consulted only when Optional && presented value is null/missing

	StringConstraints []StringConstraint // Kind == KindString
	NumberConstraints  []NumberConstraint // Kind == KindNumber
	ArrayConstraints   []ArrayConstraint  // Kind == KindArray

	Item  *SchemaType            // Kind == KindArray
	Shape map[string]*SchemaType // Kind == KindObject

	Literal any          // Kind == KindLiteral
	Schemas []*SchemaType // Kind == KindUnion
}

// String builds a required String schema.
func String(constraints ...StringConstraint) *SchemaType {
	return &SchemaType{Kind: KindString, StringConstraints: constraints}
}

// Number builds a required Number schema.
func Number(constraints ...NumberConstraint) *SchemaType {
	return &SchemaType{Kind: KindNumber, NumberConstraints: constraints}
}

// Boolean builds a required Boolean schema.
func Boolean() *SchemaType { return &SchemaType{Kind: KindBoolean} }

// Array builds a required Array schema over item.
func Array(item *SchemaType, constraints ...ArrayConstraint) *SchemaType {
	return &SchemaType{Kind: KindArray, Item: item, ArrayConstraints: constraints}
}

// Object builds a required Object schema over shape.
func Object(shape map[string]*SchemaType) *SchemaType {
	return &SchemaType{Kind: KindObject, Shape: shape}
}

// Literal builds a required Literal schema comparing against value.
func Literal(value any) *SchemaType {
	return &SchemaType{Kind: KindLiteral, Literal: value}
}

// Union builds a required Union schema trying each alternative in order.
func Union(schemas ...*SchemaType) *SchemaType {
	return &SchemaType{Kind: KindUnion, Schemas: schemas}
}

// Opt marks s optional, attaching default (nil for none).
func Opt(s *SchemaType, def any) *SchemaType {
	s.Optional = true
	s.Default = def
	return s
}

// RouteSchema holds the four independently optional schema trees for a
// route: params, query, body, headers.
type RouteSchema struct {
	Params  *SchemaType
	Query   *SchemaType
	Body    *SchemaType
	Headers *SchemaType
}

// --- wire decoding: schema_json ---

type wireStringConstraint struct {
	Type  string `json:"type"`
	Value any    `json:"value,omitempty"`
}

type wireNumberConstraint struct {
	Type  string  `json:"type"`
	Value float64 `json:"value,omitempty"`
}

type wireArrayConstraint struct {
	Type  string `json:"type"`
	Value int    `json:"value,omitempty"`
}

type wireSchema struct {
	Type        string                 `json:"type"`
	Optional    bool                   `json:"optional,omitempty"`
	Default     json.RawMessage        `json:"default,omitempty"`
	Constraints json.RawMessage        `json:"constraints,omitempty"`
	Item        json.RawMessage        `json:"item,omitempty"`
	Shape       map[string]json.RawMessage `json:"shape,omitempty"`
	Value       json.RawMessage        `json:"value,omitempty"`
	Schemas     []json.RawMessage      `json:"schemas,omitempty"`
}

// ParseSchemaJSON decodes a schema_json document into a
// SchemaType tree. Malformed schema JSON is a registration-time error.
func ParseSchemaJSON(data []byte) (*SchemaType, error) {
	var w wireSchema
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("invalid schema json: %w", err)
	}
	return decodeWireSchema(&w)
}

func decodeWireSchema(w *wireSchema) (*SchemaType, error) {
	s := &SchemaType{Optional: w.Optional}

	if len(w.Default) > 0 {
		var v any
		if err := json.Unmarshal(w.Default, &v); err != nil {
			return nil, fmt.Errorf("invalid schema default: %w", err)
		}
		s.Default = v
	}

	switch Kind(w.Type) {
	case KindString:
		s.Kind = KindString
		if len(w.Constraints) > 0 {
			var raw []wireStringConstraint
			if err := json.Unmarshal(w.Constraints, &raw); err != nil {
				return nil, fmt.Errorf("invalid string constraints: %w", err)
			}
			for _, c := range raw {
				sc := StringConstraint{Kind: StringConstraintKind(c.Type)}
				switch sc.Kind {
				case StringMin, StringMax, StringLen:
					n, _ := c.Value.(float64)
					sc.Value = int(n)
				case StringRegex:
					sc.Regex, _ = c.Value.(string)
				case StringEmail, StringURL, StringUUID:
				default:
					return nil, fmt.Errorf("unknown string constraint %q", c.Type)
				}
				s.StringConstraints = append(s.StringConstraints, sc)
			}
		}

	case KindNumber:
		s.Kind = KindNumber
		if len(w.Constraints) > 0 {
			var raw []wireNumberConstraint
			if err := json.Unmarshal(w.Constraints, &raw); err != nil {
				return nil, fmt.Errorf("invalid number constraints: %w", err)
			}
			for _, c := range raw {
				s.NumberConstraints = append(s.NumberConstraints, NumberConstraint{
					Kind: NumberConstraintKind(c.Type), Value: c.Value,
				})
			}
		}

	case KindBoolean:
		s.Kind = KindBoolean

	case KindArray:
		s.Kind = KindArray
		if len(w.Constraints) > 0 {
			var raw []wireArrayConstraint
			if err := json.Unmarshal(w.Constraints, &raw); err != nil {
				return nil, fmt.Errorf("invalid array constraints: %w", err)
			}
			for _, c := range raw {
				s.ArrayConstraints = append(s.ArrayConstraints, ArrayConstraint{
					Kind: ArrayConstraintKind(c.Type), Value: c.Value,
				})
			}
		}
		if len(w.Item) == 0 {
			return nil, fmt.Errorf("array schema missing item")
		}
		var itemW wireSchema
		if err := json.Unmarshal(w.Item, &itemW); err != nil {
			return nil, fmt.Errorf("invalid array item schema: %w", err)
		}
		item, err := decodeWireSchema(&itemW)
		if err != nil {
			return nil, err
		}
		s.Item = item

	case KindObject:
		s.Kind = KindObject
		s.Shape = make(map[string]*SchemaType, len(w.Shape))
		for name, raw := range w.Shape {
			var fieldW wireSchema
			if err := json.Unmarshal(raw, &fieldW); err != nil {
				return nil, fmt.Errorf("invalid object field %q: %w", name, err)
			}
			field, err := decodeWireSchema(&fieldW)
			if err != nil {
				return nil, err
			}
			s.Shape[name] = field
		}

	case KindLiteral:
		s.Kind = KindLiteral
		if len(w.Value) == 0 {
			return nil, fmt.Errorf("literal schema missing value")
		}
		var v any
		if err := json.Unmarshal(w.Value, &v); err != nil {
			return nil, fmt.Errorf("invalid literal value: %w", err)
		}
		s.Literal = v

	case KindUnion:
		s.Kind = KindUnion
		for _, raw := range w.Schemas {
			var altW wireSchema
			if err := json.Unmarshal(raw, &altW); err != nil {
				return nil, fmt.Errorf("invalid union alternative: %w", err)
			}
			alt, err := decodeWireSchema(&altW)
			if err != nil {
				return nil, err
			}
			s.Schemas = append(s.Schemas, alt)
		}

	default:
		return nil, fmt.Errorf("unknown schema type %q", w.Type)
	}

	return s, nil
}

// ParseRouteSchemaJSON decodes a document with independently optional
// params/query/body/headers subtrees.
func ParseRouteSchemaJSON(data []byte) (*RouteSchema, error) {
	var doc struct {
		Params  json.RawMessage `json:"params,omitempty"`
		Query   json.RawMessage `json:"query,omitempty"`
		Body    json.RawMessage `json:"body,omitempty"`
		Headers json.RawMessage `json:"headers,omitempty"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("invalid route schema json: %w", err)
	}

	rs := &RouteSchema{}
	var err error
	if len(doc.Params) > 0 {
		if rs.Params, err = ParseSchemaJSON(doc.Params); err != nil {
			return nil, fmt.Errorf("params: %w", err)
		}
	}
	if len(doc.Query) > 0 {
		if rs.Query, err = ParseSchemaJSON(doc.Query); err != nil {
			return nil, fmt.Errorf("query: %w", err)
		}
	}
	if len(doc.Body) > 0 {
		if rs.Body, err = ParseSchemaJSON(doc.Body); err != nil {
			return nil, fmt.Errorf("body: %w", err)
		}
	}
	if len(doc.Headers) > 0 {
		if rs.Headers, err = ParseSchemaJSON(doc.Headers); err != nil {
			return nil, fmt.Errorf("headers: %w", err)
		}
	}
	return rs, nil
}
