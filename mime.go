// mime.go
package nucleo

import "strings"

// mimeTable is the fixed lowercased-extension -> content-type mapping
// spec.md's external interfaces section pins, rather than deferring to
// the OS-dependent mime.types lookup net/http's sniffing would otherwise
// use.
var mimeTable = map[string]string{
	".html": "text/html",
	".htm":  "text/html",
	".css":  "text/css",
	".js":   "application/javascript",
	".mjs":  "application/javascript",
	".json": "application/json",
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".gif":  "image/gif",
	".svg":  "image/svg+xml",
	".webp": "image/webp",
	".ico":  "image/x-icon",
	".pdf":  "application/pdf",
	".zip":  "application/zip",
	".wasm": "application/wasm",
	".mp4":  "video/mp4",
	".webm": "video/webm",
	".mp3":  "audio/mpeg",
	".wav":  "audio/wav",
	".woff": "font/woff2",
	".woff2": "font/woff2",
	".ttf":  "font/ttf",
	".otf":  "font/otf",
	".txt":  "text/plain",
	".xml":  "application/xml",
}

// MimeByExtension returns the content type for ext (with or without a
// leading dot, case-insensitive), or "application/octet-stream" for an
// unrecognized or empty extension.
func MimeByExtension(ext string) string {
	if ext == "" {
		return "application/octet-stream"
	}
	if ext[0] != '.' {
		ext = "." + ext
	}
	if ct, ok := mimeTable[strings.ToLower(ext)]; ok {
		return ct
	}
	return "application/octet-stream"
}
