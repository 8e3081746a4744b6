package chunker

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"docrag/internal/domain"
)

// SentenceStrategy packs whole sentences into chunks of at most chunkSize
// characters. Overlap is made of whole trailing sentences of the previous
// chunk. It understands both Japanese and Latin punctuation.
type SentenceStrategy struct{}

func NewSentenceStrategy() *SentenceStrategy {
	return &SentenceStrategy{}
}

type span struct {
	start, end int
}

func (s span) len() int { return s.end - s.start }

func (s *SentenceStrategy) SplitText(text string, chunkSize, overlapSize int) ([]domain.TextSegment, error) {
	if err := domain.ValidateChunkingParameters(chunkSize, overlapSize); err != nil {
		return nil, err
	}
	runes := []rune(text)
	if len(runes) == 0 {
		return nil, nil
	}

	var segments []domain.TextSegment
	emit := func(group []span) {
		if len(group) == 0 {
			return
		}
		start, end := group[0].start, group[len(group)-1].end
		piece := string(runes[start:end])
		if strings.TrimSpace(piece) == "" {
			return
		}
		segments = append(segments, domain.TextSegment{Text: piece, Start: start, End: end})
	}

	var current []span
	currentLen := 0
	for _, sent := range splitSentences(runes) {
		if sent.len() > chunkSize {
			emit(current)
			current, currentLen = nil, 0
			segments = append(segments, windows(runes, sent.start, sent.end, chunkSize, chunkSize-overlapSize)...)
			continue
		}

		if currentLen > 0 && currentLen+sent.len() > chunkSize {
			emit(current)
			current = carryOver(current, overlapSize, chunkSize-sent.len())
			currentLen = 0
			for _, c := range current {
				currentLen += c.len()
			}
		}

		current = append(current, sent)
		currentLen += sent.len()
	}
	emit(current)

	return segments, nil
}

func (s *SentenceStrategy) EstimateChunkCount(text string, chunkSize, overlapSize int) int {
	return domain.EstimateChunkCount(utf8.RuneCountInString(text), chunkSize, overlapSize)
}

// carryOver returns the longest suffix of group whose length is within both
// the overlap and the room left for the next sentence.
func carryOver(group []span, overlap, room int) []span {
	limit := overlap
	if room < limit {
		limit = room
	}
	total := 0
	i := len(group)
	for i > 0 && total+group[i-1].len() <= limit {
		total += group[i-1].len()
		i--
	}
	out := make([]span, len(group)-i)
	copy(out, group[i:])
	return out
}

var (
	fullStops    = map[rune]bool{'。': true, '！': true, '？': true, '．': true, '…': true}
	latinStops   = map[rune]bool{'.': true, '!': true, '?': true}
	closingMarks = map[rune]bool{'」': true, '』': true, '）': true, '】': true, ')': true, ']': true, '"': true, '\'': true, '”': true, '’': true}
)

// splitSentences partitions runes into contiguous sentences covering the
// whole input. Trailing closers and whitespace belong to the sentence they
// follow; a blank line ends a sentence as well.
func splitSentences(runes []rune) []span {
	var out []span
	n := len(runes)
	start := 0

	for i := 0; i < n; i++ {
		r := runes[i]
		var cut int

		switch {
		case fullStops[r] || latinStops[r]:
			j := i + 1
			for j < n && (fullStops[runes[j]] || latinStops[runes[j]]) {
				j++
			}
			// A Latin stop only ends a sentence before whitespace, so
			// "3.14" and "e.g.x" stay whole.
			needsSpace := true
			for k := i; k < j; k++ {
				if fullStops[runes[k]] {
					needsSpace = false
				}
			}
			for j < n && closingMarks[runes[j]] {
				j++
			}
			if needsSpace && j < n && !unicode.IsSpace(runes[j]) {
				i = j - 1
				continue
			}
			for j < n && unicode.IsSpace(runes[j]) {
				j++
			}
			cut = j
		case r == '\n' && i+1 < n && runes[i+1] == '\n':
			j := i + 1
			for j < n && unicode.IsSpace(runes[j]) {
				j++
			}
			cut = j
		default:
			continue
		}

		out = append(out, span{start: start, end: cut})
		start = cut
		i = cut - 1
	}
	if start < n {
		out = append(out, span{start: start, end: n})
	}
	return out
}
