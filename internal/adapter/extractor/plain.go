package extractor

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"docrag/internal/domain"
)

var plainTypes = map[string]struct{}{
	"text/plain":       {},
	"text/markdown":    {},
	"text/x-markdown":  {},
	"text/csv":         {},
	"text/html":        {},
	"text/xml":         {},
	"application/xml":  {},
	"application/json": {},
	"application/yaml": {},
	"text/yaml":        {},
}

var (
	bomUTF8    = []byte{0xEF, 0xBB, 0xBF}
	bomUTF16LE = []byte{0xFF, 0xFE}
	bomUTF16BE = []byte{0xFE, 0xFF}
)

// PlainTextExtractor decodes text formats to NFC-normalised UTF-8 with
// LF line endings. Input that is not valid UTF-8 and carries no BOM is
// decoded as Shift_JIS.
type PlainTextExtractor struct{}

func NewPlainTextExtractor() *PlainTextExtractor {
	return &PlainTextExtractor{}
}

func (e *PlainTextExtractor) Supports(contentType string) bool {
	_, ok := plainTypes[baseType(contentType)]
	return ok
}

func (e *PlainTextExtractor) Extract(_ context.Context, content []byte, contentType string) (domain.ExtractedText, error) {
	text, enc, err := decode(content)
	if err != nil {
		return domain.ExtractedText{}, err
	}
	text = normalizeText(text)
	return domain.ExtractedText{
		Content: text,
		Metadata: map[string]string{
			"content_type": baseType(contentType),
			"encoding":     enc,
		},
	}, nil
}

func decode(content []byte) (string, string, error) {
	switch {
	case bytes.HasPrefix(content, bomUTF8):
		return string(content[len(bomUTF8):]), "utf-8", nil
	case bytes.HasPrefix(content, bomUTF16LE), bytes.HasPrefix(content, bomUTF16BE):
		dec := unicode.UTF16(unicode.LittleEndian, unicode.ExpectBOM).NewDecoder()
		s, err := transcode(dec, content)
		return s, "utf-16", err
	case utf8.Valid(content):
		return string(content), "utf-8", nil
	default:
		s, err := transcode(japanese.ShiftJIS.NewDecoder(), content)
		return s, "shift_jis", err
	}
}

func transcode(dec *encoding.Decoder, content []byte) (string, error) {
	out, _, err := transform.Bytes(dec, content)
	if err != nil {
		return "", fmt.Errorf("decode text: %w", err)
	}
	if !utf8.Valid(out) {
		return "", fmt.Errorf("decode text: result is not valid utf-8")
	}
	return string(out), nil
}

func normalizeText(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	return norm.NFC.String(s)
}

func baseType(contentType string) string {
	if i := strings.IndexByte(contentType, ';'); i >= 0 {
		contentType = contentType[:i]
	}
	return strings.ToLower(strings.TrimSpace(contentType))
}
