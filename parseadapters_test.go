// parseadapters_test.go
package nucleo

import "testing"

func TestParseParams(t *testing.T) {
	schema := Object(map[string]*SchemaType{"id": String()})
	got, verr := ParseParams(map[string]string{"id": "42"}, schema)
	if verr != nil {
		t.Fatalf("unexpected error: %v", verr)
	}
	obj := got.(map[string]any)
	if obj["id"] != "42" {
		t.Fatalf("unexpected params result: %#v", obj)
	}
}

// Scenario 4: a single query value coerces to a string; multiple values
// coerce to an array. An Array-typed schema only accepts the latter.
func TestParseQuery_MultiValueCoercion_Scenario4(t *testing.T) {
	schema := Object(map[string]*SchemaType{"tags": Array(String())})

	if _, verr := ParseQuery(map[string][]string{"tags": {"a", "b"}}, schema); verr != nil {
		t.Fatalf("expected multi-value query to validate as array: %v", verr)
	}

	if _, verr := ParseQuery(map[string][]string{"tags": {"a"}}, schema); verr == nil {
		t.Fatalf("expected single-value query to fail an Array schema")
	}
}

func TestParseQuery_ZeroValuesBecomesNull(t *testing.T) {
	schema := Object(map[string]*SchemaType{"flag": Opt(String(), nil)})
	got, verr := ParseQuery(map[string][]string{"flag": {}}, schema)
	if verr != nil {
		t.Fatalf("unexpected error: %v", verr)
	}
	obj := got.(map[string]any)
	if _, present := obj["flag"]; present {
		t.Fatalf("expected optional null field to be omitted, got %#v", obj)
	}
}

func TestParseBody_InvalidJSON(t *testing.T) {
	_, verr := ParseBody([]byte("{not json"), Object(nil))
	if verr == nil || verr.Message != "Invalid JSON" {
		t.Fatalf("expected Invalid JSON error, got %#v", verr)
	}
}

func TestParseBody_EmptyRequiredBody(t *testing.T) {
	schema := Object(map[string]*SchemaType{"age": Number()})
	_, verr := ParseBody(nil, schema)
	if verr == nil || verr.Message != "Request body is required" {
		t.Fatalf("expected Request body is required, got %#v", verr)
	}
}

func TestParseBody_EmptyOptionalBodyUsesDefault(t *testing.T) {
	schema := Opt(Object(map[string]*SchemaType{"age": Number()}), map[string]any{"age": 0.0})
	got, verr := ParseBody(nil, schema)
	if verr != nil {
		t.Fatalf("unexpected error: %v", verr)
	}
	m, ok := got.(map[string]any)
	if !ok || m["age"] != 0.0 {
		t.Fatalf("expected schema default, got %#v", got)
	}
}

// Scenario 3: a required Number field failing a Positive constraint.
func TestParseBody_ValidationFailure_Scenario3(t *testing.T) {
	schema := Object(map[string]*SchemaType{
		"age": Number(NumberConstraint{Kind: NumberPositive}),
	})
	_, verr := ParseBody([]byte(`{"age":-3}`), schema)
	if verr == nil {
		t.Fatalf("expected validation error")
	}
	if verr.FieldPath != "body.age" || verr.Message != "Number must be positive" {
		t.Fatalf("got field=%q message=%q, want body.age / Number must be positive", verr.FieldPath, verr.Message)
	}
}

func TestParseHeaders(t *testing.T) {
	schema := Object(map[string]*SchemaType{"x-api-key": String()})
	got, verr := ParseHeaders(map[string]string{"x-api-key": "secret"}, schema)
	if verr != nil {
		t.Fatalf("unexpected error: %v", verr)
	}
	obj := got.(map[string]any)
	if obj["x-api-key"] != "secret" {
		t.Fatalf("unexpected headers result: %#v", obj)
	}
}
