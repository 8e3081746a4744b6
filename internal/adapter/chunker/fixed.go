package chunker

import (
	"strings"
	"unicode/utf8"

	"docrag/internal/domain"
)

// FixedWindowStrategy slides a window of chunkSize characters over the text,
// advancing chunkSize-overlapSize characters each step.
type FixedWindowStrategy struct{}

func NewFixedWindowStrategy() *FixedWindowStrategy {
	return &FixedWindowStrategy{}
}

func (s *FixedWindowStrategy) SplitText(text string, chunkSize, overlapSize int) ([]domain.TextSegment, error) {
	if err := domain.ValidateChunkingParameters(chunkSize, overlapSize); err != nil {
		return nil, err
	}
	runes := []rune(text)
	return windows(runes, 0, len(runes), chunkSize, chunkSize-overlapSize), nil
}

func (s *FixedWindowStrategy) EstimateChunkCount(text string, chunkSize, overlapSize int) int {
	return domain.EstimateChunkCount(utf8.RuneCountInString(text), chunkSize, overlapSize)
}

// windows cuts runes[from:to] into fixed windows. Whitespace-only windows
// are dropped and the walk stops once a window reaches to.
func windows(runes []rune, from, to, size, step int) []domain.TextSegment {
	var segments []domain.TextSegment
	for start := from; start < to; start += step {
		end := start + size
		if end > to {
			end = to
		}
		piece := string(runes[start:end])
		if strings.TrimSpace(piece) != "" {
			segments = append(segments, domain.TextSegment{Text: piece, Start: start, End: end})
		}
		if end == to {
			break
		}
	}
	return segments
}
