package extractor

import (
	"context"
	"fmt"

	"docrag/internal/domain"
	"docrag/internal/port"
)

// Composite hands content to the first extractor that supports its type.
type Composite struct {
	extractors []port.TextExtractor
}

func NewComposite(extractors ...port.TextExtractor) *Composite {
	return &Composite{extractors: extractors}
}

// NewDefault covers plain text formats, PDF and Word documents.
func NewDefault() *Composite {
	return NewComposite(NewPlainTextExtractor(), NewPDFExtractor(), NewDocxExtractor())
}

func (c *Composite) Supports(contentType string) bool {
	return c.find(contentType) != nil
}

func (c *Composite) Extract(ctx context.Context, content []byte, contentType string) (domain.ExtractedText, error) {
	e := c.find(contentType)
	if e == nil {
		return domain.ExtractedText{}, fmt.Errorf("%w: %s", domain.ErrUnsupportedContentType, contentType)
	}
	return e.Extract(ctx, content, contentType)
}

func (c *Composite) find(contentType string) port.TextExtractor {
	for _, e := range c.extractors {
		if e.Supports(contentType) {
			return e
		}
	}
	return nil
}
