package chunker

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/pkoukk/tiktoken-go"

	"docrag/internal/domain"
)

const DefaultEncoding = "cl100k_base"

// Encoder is the subset of a BPE tokenizer the token strategy needs.
type Encoder interface {
	Encode(text string) []int
	Decode(tokens []int) string
}

type tiktokenEncoder struct {
	tke *tiktoken.Tiktoken
}

func (e tiktokenEncoder) Encode(text string) []int {
	return e.tke.Encode(text, nil, nil)
}

func (e tiktokenEncoder) Decode(tokens []int) string {
	return e.tke.Decode(tokens)
}

// NewTiktokenEncoder resolves an encoding by name, then by model name,
// falling back to cl100k_base.
func NewTiktokenEncoder(encodingOrModel string) (Encoder, error) {
	if encodingOrModel == "" {
		encodingOrModel = DefaultEncoding
	}
	tke, err := tiktoken.GetEncoding(encodingOrModel)
	if err != nil {
		tke, err = tiktoken.EncodingForModel(encodingOrModel)
	}
	if err != nil {
		tke, err = tiktoken.GetEncoding(DefaultEncoding)
		if err != nil {
			return nil, fmt.Errorf("load encoding %s: %w", DefaultEncoding, err)
		}
	}
	return tiktokenEncoder{tke: tke}, nil
}

// TokenStrategy windows text by BPE tokens: chunkSize and overlapSize are
// token counts. Segment offsets are still characters, with window edges
// widened to whole runes when a token splits a multi-byte character.
type TokenStrategy struct {
	enc Encoder
}

func NewTokenStrategy(enc Encoder) *TokenStrategy {
	return &TokenStrategy{enc: enc}
}

func (s *TokenStrategy) SplitText(text string, chunkSize, overlapSize int) ([]domain.TextSegment, error) {
	if err := domain.ValidateChunkingParameters(chunkSize, overlapSize); err != nil {
		return nil, err
	}
	if text == "" {
		return nil, nil
	}

	bounds, err := s.tokenBounds(text)
	if err != nil {
		return nil, err
	}
	count := len(bounds) - 1
	step := chunkSize - overlapSize

	var segments []domain.TextSegment
	for first := 0; first < count; first += step {
		last := first + chunkSize
		if last > count {
			last = count
		}
		startByte := snapBack(text, bounds[first])
		endByte := snapForward(text, bounds[last])
		piece := text[startByte:endByte]
		if strings.TrimSpace(piece) != "" {
			start := utf8.RuneCountInString(text[:startByte])
			segments = append(segments, domain.TextSegment{
				Text:  piece,
				Start: start,
				End:   start + utf8.RuneCountInString(piece),
			})
		}
		if last == count {
			break
		}
	}
	return segments, nil
}

// EstimateChunkCount applies the window formula to the token count.
func (s *TokenStrategy) EstimateChunkCount(text string, chunkSize, overlapSize int) int {
	return domain.EstimateChunkCount(len(s.enc.Encode(text)), chunkSize, overlapSize)
}

// tokenBounds returns the byte offset of every token start plus len(text).
func (s *TokenStrategy) tokenBounds(text string) ([]int, error) {
	tokens := s.enc.Encode(text)
	bounds := make([]int, 0, len(tokens)+1)
	offset := 0
	for _, tok := range tokens {
		bounds = append(bounds, offset)
		offset += len(s.enc.Decode([]int{tok}))
	}
	if offset != len(text) {
		return nil, fmt.Errorf("token split: decoded %d bytes, text has %d", offset, len(text))
	}
	return append(bounds, offset), nil
}

func snapBack(text string, b int) int {
	for b > 0 && b < len(text) && !utf8.RuneStart(text[b]) {
		b--
	}
	return b
}

func snapForward(text string, b int) int {
	for b < len(text) && !utf8.RuneStart(text[b]) {
		b++
	}
	return b
}
