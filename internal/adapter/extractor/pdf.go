package extractor

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strconv"

	"github.com/ledongthuc/pdf"

	"docrag/internal/domain"
)

type PDFExtractor struct{}

func NewPDFExtractor() *PDFExtractor {
	return &PDFExtractor{}
}

func (e *PDFExtractor) Supports(contentType string) bool {
	return baseType(contentType) == "application/pdf"
}

func (e *PDFExtractor) Extract(ctx context.Context, content []byte, _ string) (domain.ExtractedText, error) {
	r, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return domain.ExtractedText{}, fmt.Errorf("open pdf: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return domain.ExtractedText{}, err
	}
	plain, err := r.GetPlainText()
	if err != nil {
		return domain.ExtractedText{}, fmt.Errorf("extract pdf text: %w", err)
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, plain); err != nil {
		return domain.ExtractedText{}, fmt.Errorf("read pdf text: %w", err)
	}
	return domain.ExtractedText{
		Content: normalizeText(buf.String()),
		Metadata: map[string]string{
			"content_type": "application/pdf",
			"pages":        strconv.Itoa(r.NumPage()),
		},
	}, nil
}
