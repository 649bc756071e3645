// Package mimex resolves a Content-Type from a file name.
package mimex

import (
	"mime"
	"path/filepath"
	"strings"

	"github.com/dmitrijs2005/customuploader/internal/common"
)

// known takes precedence over the system MIME database so that the common
// upload types resolve the same way on every host.
var known = map[string]string{
	".7z":   "application/x-7z-compressed",
	".bmp":  "image/bmp",
	".css":  "text/css",
	".csv":  "text/csv",
	".gif":  "image/gif",
	".gz":   "application/gzip",
	".htm":  "text/html",
	".html": "text/html",
	".ico":  "image/x-icon",
	".jpeg": "image/jpeg",
	".jpg":  "image/jpeg",
	".js":   "text/javascript",
	".json": "application/json",
	".log":  "text/plain",
	".md":   "text/markdown",
	".mov":  "video/quicktime",
	".mp3":  "audio/mpeg",
	".mp4":  "video/mp4",
	".pdf":  "application/pdf",
	".png":  "image/png",
	".svg":  "image/svg+xml",
	".tif":  "image/tiff",
	".tiff": "image/tiff",
	".txt":  "text/plain",
	".wav":  "audio/wav",
	".webm": "video/webm",
	".webp": "image/webp",
	".xml":  "application/xml",
	".zip":  "application/zip",
}

// TypeForFileName returns the MIME type for name's extension without
// parameters, or application/octet-stream when the extension is unknown.
func TypeForFileName(name string) string {
	ext := strings.ToLower(filepath.Ext(name))
	if ext == "" {
		return common.DefaultContentType
	}

	if t, ok := known[ext]; ok {
		return t
	}

	if t := mime.TypeByExtension(ext); t != "" {
		if mediaType, _, err := mime.ParseMediaType(t); err == nil {
			return mediaType
		}
	}

	return common.DefaultContentType
}
