// request.go
package nucleo

import (
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/net/http/httpguts"
)

// RequestCore is the frozen, cloneable snapshot of an inbound request
// handed across the FFI boundary. Only Params is assigned after
// construction (by the router, from the route match, before dispatch);
// after that it is not modified, so it is safe to clone into multiple
// goroutines.
type RequestCore struct {
	Method      Method
	URL         string
	Pathname    string
	Search      string
	Protocol    string
	Hostname    string
	OriginalURL string
	Secure      bool
	XHR         bool
	IP          string
	IPs         []string

	Body       []byte
	HeadersRaw map[string]string // lower-cased keys
	Params     map[string]string
	QueryRaw   map[string][]string
	CookiesRaw map[string]string
}

// NewRequestCore builds a RequestCore from an *http.Request, consuming
// its body. When trustProxy is false, X-Forwarded-* headers are ignored
// and protocol/ip are derived only from the connection itself.
func NewRequestCore(req *http.Request, trustProxy bool, maxBodyBytes int64) (*RequestCore, error) {
	// Header field names/values are validated with httpguts before they
	// ever reach the parser adapters; a junk proxy injecting a malformed
	// field drops that field instead of failing the whole request.
	headersRaw := make(map[string]string, len(req.Header))
	for name, values := range req.Header {
		if len(values) == 0 || !httpguts.ValidHeaderFieldName(name) || !httpguts.ValidHeaderFieldValue(values[0]) {
			continue
		}
		headersRaw[strings.ToLower(name)] = values[0]
	}

	queryRaw := map[string][]string(req.URL.Query())

	search := ""
	if req.URL.RawQuery != "" {
		search = "?" + req.URL.RawQuery
	}

	var body []byte
	if req.Body != nil {
		reader := io.Reader(req.Body)
		if maxBodyBytes > 0 {
			reader = io.LimitReader(reader, maxBodyBytes+1)
		}
		b, err := io.ReadAll(reader)
		if err != nil {
			return nil, err
		}
		if maxBodyBytes > 0 && int64(len(b)) > maxBodyBytes {
			return nil, ErrBodyTooLarge
		}
		body = b
	}

	scheme := "http"
	if req.TLS != nil {
		scheme = "https"
	}

	protocol := scheme
	var ips []string
	if trustProxy {
		if fwd := headersRaw["x-forwarded-proto"]; fwd != "" {
			protocol = fwd
		}
		if fwdFor := headersRaw["x-forwarded-for"]; fwdFor != "" {
			for _, ip := range strings.Split(fwdFor, ",") {
				ips = append(ips, strings.TrimSpace(ip))
			}
		}
	}

	ip := ""
	if len(ips) > 0 {
		ip = ips[0]
	} else if host, _, err := net.SplitHostPort(req.RemoteAddr); err == nil {
		ip = host
	} else {
		ip = req.RemoteAddr
	}

	// net/http moves the Host header into req.Host, so it is normally
	// absent from req.Header.
	hostname := headersRaw["host"]
	if hostname == "" {
		hostname = req.Host
	}
	if hostname == "" {
		hostname = "localhost"
	}

	cookiesRaw := map[string]string{}
	if cookieHeader := headersRaw["cookie"]; cookieHeader != "" {
		for _, part := range strings.Split(cookieHeader, ";") {
			kv := strings.SplitN(strings.TrimSpace(part), "=", 2)
			if len(kv) == 2 {
				cookiesRaw[kv[0]] = kv[1]
			}
		}
	}

	return &RequestCore{
		Method:      Method(req.Method),
		URL:         req.URL.RequestURI(),
		Pathname:    req.URL.Path,
		Search:      search,
		Protocol:    protocol,
		Hostname:    hostname,
		OriginalURL: req.URL.RequestURI(),
		Secure:      strings.EqualFold(protocol, "https"),
		XHR:         strings.EqualFold(headersRaw["x-requested-with"], "XMLHttpRequest"),
		IP:          ip,
		IPs:         ips,
		Body:        body,
		HeadersRaw:  headersRaw,
		Params:      map[string]string{},
		QueryRaw:    queryRaw,
		CookiesRaw:  cookiesRaw,
	}, nil
}

// Header returns a single header value (case-insensitive).
func (c *RequestCore) Header(name string) (string, bool) {
	v, ok := c.HeadersRaw[strings.ToLower(name)]
	return v, ok
}

// Cookie returns one cookie value by name.
func (c *RequestCore) Cookie(name string) (string, bool) {
	v, ok := c.CookiesRaw[name]
	return v, ok
}

// QueryParam returns the percent-decoded values for a query key.
func (c *RequestCore) QueryParam(name string) []string {
	return c.QueryRaw[name]
}

// requestCoreToHTTPRequest reconstructs a *http.Request from a
// RequestCore so that a native Go Handler can run against a
// RequestCore delivered through the Dynamic dispatch path exactly as it
// would against one built directly from a live *http.Request.
func requestCoreToHTTPRequest(core *RequestCore) *http.Request {
	u, err := url.Parse(core.URL)
	if err != nil {
		u = &url.URL{Path: core.Pathname, RawQuery: strings.TrimPrefix(core.Search, "?")}
	}

	req := &http.Request{
		Method:     string(core.Method),
		URL:        u,
		Proto:      "HTTP/1.1",
		Header:     make(http.Header, len(core.HeadersRaw)),
		Host:       core.Hostname,
		RemoteAddr: core.IP,
		Body:       io.NopCloser(strings.NewReader(string(core.Body))),
	}
	for k, v := range core.HeadersRaw {
		req.Header.Set(k, v)
	}
	req = req.WithContext(req.Context())
	return req
}
