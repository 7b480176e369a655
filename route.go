// route.go
package nucleo

import (
	"encoding/base64"
	"fmt"
	"strings"

	json "github.com/segmentio/encoding/json"
)

// Method is one of the eight HTTP/1.1 methods the FFI contract exposes.
type Method string

const (
	MethodGet     Method = "GET"
	MethodPost    Method = "POST"
	MethodPut     Method = "PUT"
	MethodDelete  Method = "DELETE"
	MethodPatch   Method = "PATCH"
	MethodHead    Method = "HEAD"
	MethodOptions Method = "OPTIONS"
	MethodTrace   Method = "TRACE"
)

// Route is the externally supplied route spec handed to Router.AddRoute /
// ServerCore.AddRoute.
type Route struct {
	Path             string
	Method           Method
	Handler          HandlerToken
	SchemaJSON       []byte // optional
	StaticResponseJSON []byte // optional
}

// ResponseStrategyKind tags a ResponseStrategy variant.
type ResponseStrategyKind int

const (
	StrategyDynamic ResponseStrategyKind = iota
	StrategyFullStatic
	StrategyParamTemplate
)

// StaticResponse is a pre-built status/headers/body served verbatim.
type StaticResponse struct {
	Status  int
	Headers [][2]string
	Body    []byte
}

// ParamTemplateResponse renders a string template per request from
// captured path parameters.
type ParamTemplateResponse struct {
	Template   string
	ParamNames []string
	Headers    [][2]string
}

// ResponseStrategy decides how a matched route produces its response.
type ResponseStrategy struct {
	Kind ResponseStrategyKind

	Handler HandlerToken // StrategyDynamic

	Static *StaticResponse // StrategyFullStatic

	Template *ParamTemplateResponse // StrategyParamTemplate
}

// CompiledRoute is immutable once inserted into a Router.
type CompiledRoute struct {
	Method   Method
	Path     string
	Segments []string
	Strategy ResponseStrategy
	Schema   *RouteSchema // optional
}

// wireStaticResponse mirrors the static_response_json document.
type wireStaticResponse struct {
	Type     string            `json:"type"`
	Status   int               `json:"status,omitempty"`
	Headers  map[string]string `json:"headers,omitempty"`
	Body     string            `json:"body,omitempty"`
	Template string            `json:"template,omitempty"`
	Params   []string          `json:"params,omitempty"`
}

// splitSegments splits a path by '/' and drops empty segments, producing
// the immutable segment vector CompiledRoute carries.
func splitSegments(path string) []string {
	parts := strings.Split(path, "/")
	segments := make([]string, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			segments = append(segments, p)
		}
	}
	return segments
}

// CompileRoute transforms an externally supplied Route into a
// CompiledRoute. Malformed schema or static-response JSON is
// a registration-time error.
func CompileRoute(r Route) (*CompiledRoute, error) {
	compiled := &CompiledRoute{
		Method:   r.Method,
		Path:     r.Path,
		Segments: splitSegments(r.Path),
	}

	switch {
	case len(r.StaticResponseJSON) > 0:
		strategy, err := compileStaticStrategy(r.StaticResponseJSON, r.Handler)
		if err != nil {
			return nil, err
		}
		compiled.Strategy = strategy
	default:
		compiled.Strategy = ResponseStrategy{Kind: StrategyDynamic, Handler: r.Handler}
	}

	if len(r.SchemaJSON) > 0 {
		schema, err := ParseRouteSchemaJSON(r.SchemaJSON)
		if err != nil {
			return nil, fmt.Errorf("invalid route schema: %w", err)
		}
		compiled.Schema = schema
	}

	return compiled, nil
}

func compileStaticStrategy(data []byte, fallback HandlerToken) (ResponseStrategy, error) {
	var w wireStaticResponse
	if err := json.Unmarshal(data, &w); err != nil {
		return ResponseStrategy{}, fmt.Errorf("invalid static_response_json: %w", err)
	}

	switch w.Type {
	case "full_static":
		body, err := base64.StdEncoding.DecodeString(w.Body)
		if err != nil {
			return ResponseStrategy{}, fmt.Errorf("invalid static_response_json body: %w", err)
		}
		status := w.Status
		if status == 0 {
			status = 200
		}
		headers := make([][2]string, 0, len(w.Headers))
		for k, v := range w.Headers {
			headers = append(headers, [2]string{k, v})
		}
		return ResponseStrategy{
			Kind: StrategyFullStatic,
			Static: &StaticResponse{
				Status:  status,
				Headers: headers,
				Body:    body,
			},
		}, nil

	case "param_template":
		headers := make([][2]string, 0, len(w.Headers))
		for k, v := range w.Headers {
			headers = append(headers, [2]string{k, v})
		}
		return ResponseStrategy{
			Kind: StrategyParamTemplate,
			Template: &ParamTemplateResponse{
				Template:   w.Template,
				ParamNames: w.Params,
				Headers:    headers,
			},
		}, nil

	default:
		// Unknown type falls through to Dynamic(handler)
		return ResponseStrategy{Kind: StrategyDynamic, Handler: fallback}, nil
	}
}

// renderParamTemplate replaces each {{params.NAME}} with the captured
// value; a missing param leaves the placeholder intact.
func renderParamTemplate(t *ParamTemplateResponse, params map[string]string) string {
	rendered := t.Template
	for _, name := range t.ParamNames {
		if value, ok := params[name]; ok {
			placeholder := "{{params." + name + "}}"
			rendered = strings.ReplaceAll(rendered, placeholder, value)
		}
	}
	return rendered
}
