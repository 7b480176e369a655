// cookie.go
package nucleo

import (
	"fmt"
	"strings"
)

// CookieOptions mirrors the original core's CookieOptionsCore: the fields
// spec.md's §6 Set-Cookie grammar
// (`<name>=<value>; [Max-Age=<n>; ]Path=<path-or-/>[; Domain=<d>][; HttpOnly][; Secure][; SameSite=<v>]`)
// names individually, restoring the distilled spec's compressed
// serialization grammar into a concrete builder. Signing (the original's
// `signed` field) is out of scope per spec.md §1 — it depends on a
// signing key the host runtime owns.
type CookieOptions struct {
	MaxAge   *int // seconds; omitted when nil
	Path     string // defaults to "/"
	Domain   string
	HTTPOnly bool
	Secure   bool
	SameSite string // "Strict" | "Lax" | "None"
}

// SerializeCookie renders name/value/options per the grammar above.
func SerializeCookie(name, value string, opts CookieOptions) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s=%s", name, value)

	if opts.MaxAge != nil {
		fmt.Fprintf(&b, "; Max-Age=%d", *opts.MaxAge)
	}

	path := opts.Path
	if path == "" {
		path = "/"
	}
	fmt.Fprintf(&b, "; Path=%s", path)

	if opts.Domain != "" {
		fmt.Fprintf(&b, "; Domain=%s", opts.Domain)
	}
	if opts.HTTPOnly {
		b.WriteString("; HttpOnly")
	}
	if opts.Secure {
		b.WriteString("; Secure")
	}
	if opts.SameSite != "" {
		fmt.Fprintf(&b, "; SameSite=%s", opts.SameSite)
	}

	return b.String()
}

// SetCookieOptions appends a Set-Cookie response header built from
// SerializeCookie, the CookieOptions-based counterpart to SetCookie's
// net/http-native *http.Cookie.
func (c *Ctx) SetCookieOptions(name, value string, opts CookieOptions) {
	c.Header().Add("Set-Cookie", SerializeCookie(name, value, opts))
}

// MaxAgeSeconds is a small helper for constructing CookieOptions.MaxAge
// from a plain int literal at call sites.
func MaxAgeSeconds(n int) *int { return &n }
