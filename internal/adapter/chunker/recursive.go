package chunker

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/tmc/langchaingo/textsplitter"

	"docrag/internal/domain"
)

// DefaultSeparators are tried in order: paragraphs, lines, Japanese and
// Latin sentence ends, words, then single characters.
var DefaultSeparators = []string{"\n\n", "\n", "。", ". ", " ", ""}

// RecursiveStrategy delegates splitting to langchaingo's recursive character
// splitter and recovers the offsets of each piece in the source text.
type RecursiveStrategy struct {
	separators []string
}

func NewRecursiveStrategy(separators []string) *RecursiveStrategy {
	if len(separators) == 0 {
		separators = DefaultSeparators
	}
	return &RecursiveStrategy{separators: separators}
}

func (s *RecursiveStrategy) SplitText(text string, chunkSize, overlapSize int) ([]domain.TextSegment, error) {
	if err := domain.ValidateChunkingParameters(chunkSize, overlapSize); err != nil {
		return nil, err
	}
	if text == "" {
		return nil, nil
	}

	splitter := textsplitter.NewRecursiveCharacter(
		textsplitter.WithSeparators(s.separators),
		textsplitter.WithChunkSize(chunkSize),
		textsplitter.WithChunkOverlap(overlapSize),
	)
	pieces, err := splitter.SplitText(text)
	if err != nil {
		return nil, fmt.Errorf("recursive split: %w", err)
	}

	var (
		segments []domain.TextSegment
		cursor   int // pieces start strictly after the previous start
		lastByte int
		lastRune int
	)
	runeAt := func(b int) int {
		lastRune += utf8.RuneCountInString(text[lastByte:b])
		lastByte = b
		return lastRune
	}

	for _, piece := range pieces {
		if strings.TrimSpace(piece) == "" {
			continue
		}
		// The splitter carries at most overlapSize runes of the previous
		// piece forward, so the next piece cannot start before that.
		from := cursor
		if n := len(segments); n > 0 {
			from = max(from, backRunes(text, byteOffset(text, lastByte, lastRune, segments[n-1].End), overlapSize))
		}
		idx := strings.Index(text[from:], piece)
		if idx < 0 {
			return nil, fmt.Errorf("recursive split: piece at byte %d not found in source text", from)
		}
		startByte := from + idx
		start := runeAt(startByte)
		end := start + utf8.RuneCountInString(piece)
		segments = append(segments, domain.TextSegment{Text: piece, Start: start, End: end})

		_, size := utf8.DecodeRuneInString(text[startByte:])
		cursor = startByte + size
	}
	return segments, nil
}

// byteOffset walks forward from a known byte/rune pair to the byte offset of
// rune index r.
func byteOffset(text string, fromByte, fromRune, r int) int {
	b := fromByte
	for i := fromRune; i < r && b < len(text); i++ {
		_, size := utf8.DecodeRuneInString(text[b:])
		b += size
	}
	return b
}

// backRunes steps n runes back from byte offset b.
func backRunes(text string, b, n int) int {
	for ; n > 0 && b > 0; n-- {
		_, size := utf8.DecodeLastRuneInString(text[:b])
		b -= size
	}
	return b
}

func (s *RecursiveStrategy) EstimateChunkCount(text string, chunkSize, overlapSize int) int {
	return domain.EstimateChunkCount(utf8.RuneCountInString(text), chunkSize, overlapSize)
}
