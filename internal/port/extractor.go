package port

import (
	"context"

	"docrag/internal/domain"
)

// TextExtractor turns raw document bytes into plain text.
type TextExtractor interface {
	Extract(ctx context.Context, content []byte, contentType string) (domain.ExtractedText, error)

	Supports(contentType string) bool
}
