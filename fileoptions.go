// fileoptions.go
package nucleo

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// DotfilesPolicy governs how Ctx.File treats a dotfile (a path
// whose base name starts with ".").
type DotfilesPolicy string

const (
	DotfilesAllow  DotfilesPolicy = "allow"
	DotfilesDeny   DotfilesPolicy = "deny"
	DotfilesIgnore DotfilesPolicy = "ignore"
)

// FileOptions mirrors the original core's SendFileOptionsCore, restoring
// the static-file serving controls the distilled spec.md's Static route
// strategy and §6 MIME table leave implicit. Fields left at their zero
// value take the defaults noted per-field.
type FileOptions struct {
	MaxAge       time.Duration  // Cache-Control max-age; 0 means omitted
	Root         string         // sandbox directory; path is resolved under it when set
	LastModified bool           // emit Last-Modified (default false unless explicitly set true)
	Headers      map[string]string
	Dotfiles     DotfilesPolicy // defaults to DotfilesIgnore
	AcceptRanges bool           // emit "Accept-Ranges: bytes"
	CacheControl bool           // emit a Cache-Control header at all
	Immutable    bool           // append ", immutable" to Cache-Control
}

// File serves path under opts, applying the dotfiles policy, root
// sandboxing, and Cache-Control/Accept-Ranges/Last-Modified headers
// before delegating to http.ServeContent for range and conditional
// request handling. Content-Type comes from MimeByExtension (spec.md's
// fixed table), not net/http's sniffing. A status other than 200 (from
// code or an earlier Status call) is written before ServeContent runs, so
// it replaces ServeContent's own 206/304 choice and the headers
// ServeContent sets itself are not sent.
func (c *Ctx) File(code int, path string, opts ...FileOptions) error {
	var o FileOptions
	if len(opts) > 0 {
		o = opts[0]
	}
	if o.Dotfiles == "" {
		o.Dotfiles = DotfilesIgnore
	}

	servedPath := path
	if o.Root != "" {
		servedPath = filepath.Join(o.Root, path)
		rel, err := filepath.Rel(o.Root, servedPath)
		if err != nil || strings.HasPrefix(rel, "..") {
			return os.ErrNotExist
		}
	}

	base := filepath.Base(servedPath)
	if strings.HasPrefix(base, ".") {
		switch o.Dotfiles {
		case DotfilesDeny:
			c.w.WriteHeader(http.StatusForbidden)
			return nil
		case DotfilesIgnore:
			c.w.WriteHeader(http.StatusNotFound)
			return nil
		}
	}

	f, err := os.Open(servedPath)
	if err != nil {
		return err
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		return err
	}
	if info.IsDir() {
		c.w.WriteHeader(http.StatusNotFound)
		return nil
	}

	for k, v := range o.Headers {
		c.Header().Set(k, v)
	}

	c.Header().Set("Content-Type", MimeByExtension(filepath.Ext(servedPath)))

	if o.AcceptRanges {
		c.Header().Set("Accept-Ranges", "bytes")
	}
	if o.CacheControl {
		cc := fmt.Sprintf("max-age=%d", int(o.MaxAge.Seconds()))
		if o.Immutable {
			cc += ", immutable"
		}
		c.Header().Set("Cache-Control", cc)
	}

	modTime := info.ModTime()
	if !o.LastModified {
		modTime = time.Time{}
	}

	if code != 0 {
		c.status = code
	}
	if c.status != http.StatusOK {
		c.w.WriteHeader(c.status)
	}
	http.ServeContent(c.w, c.req, base, modTime, f)
	return nil
}

// Download serves path as an attachment named filename.
func (c *Ctx) Download(code int, path, filename string, opts ...FileOptions) error {
	c.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	return c.File(code, path, opts...)
}
