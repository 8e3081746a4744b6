package fs

import (
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// Sniffing cannot tell these apart from plain text.
var extensionTypes = map[string]string{
	".md":       "text/markdown",
	".markdown": "text/markdown",
	".yaml":     "application/yaml",
	".yml":      "application/yaml",
}

// DetectContentType sniffs data and returns a MIME type without
// parameters. Text formats that only differ by extension are resolved from
// the file name.
func DetectContentType(path string, data []byte) string {
	detected := mimetype.Detect(data)
	if detected.Is("text/plain") {
		if ct, ok := extensionTypes[strings.ToLower(filepath.Ext(path))]; ok {
			return ct
		}
	}
	return BaseType(detected.String())
}

// BaseType strips parameters such as charset from a MIME type.
func BaseType(contentType string) string {
	if i := strings.IndexByte(contentType, ';'); i >= 0 {
		contentType = contentType[:i]
	}
	return strings.ToLower(strings.TrimSpace(contentType))
}
