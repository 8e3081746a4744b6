package analyzer

import (
	"strings"
	"unicode"
)

// Tokenizer produces index terms for keyword search. Latin-script words are
// lowercased and filtered against a stopword list; runs of CJK characters
// are indexed as overlapping character bigrams since they carry no spaces.
type Tokenizer struct {
	stopwords map[string]struct{}
	minLen    int
}

func NewTokenizer() *Tokenizer {
	return &Tokenizer{
		stopwords: defaultStopwords(),
		minLen:    2,
	}
}

func (t *Tokenizer) Tokenize(text string) []string {
	var tokens []string
	for _, w := range splitWords(text) {
		if w.cjk {
			tokens = append(tokens, bigrams(w.runes)...)
			continue
		}
		word := strings.ToLower(string(w.runes))
		if len(w.runes) < t.minLen {
			continue
		}
		if _, isStop := t.stopwords[word]; isStop {
			continue
		}
		tokens = append(tokens, word)
	}
	return tokens
}

// CountTokens approximates the LLM token cost of text for budget packing.
// Words count ~1.3 tokens, CJK characters one token each.
func (t *Tokenizer) CountTokens(text string) int {
	words := 0
	cjk := 0
	for _, w := range splitWords(text) {
		if w.cjk {
			cjk += len(w.runes)
		} else {
			words++
		}
	}
	return int(float64(words)*1.3) + cjk
}

type word struct {
	runes []rune
	cjk   bool
}

func splitWords(text string) []word {
	var words []word
	var current []rune
	currentCJK := false

	flush := func() {
		if len(current) > 0 {
			words = append(words, word{runes: current, cjk: currentCJK})
			current = nil
		}
	}

	for _, r := range text {
		switch {
		case isCJK(r):
			if !currentCJK {
				flush()
			}
			currentCJK = true
			current = append(current, r)
		case unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_':
			if currentCJK {
				flush()
			}
			currentCJK = false
			current = append(current, r)
		default:
			flush()
		}
	}
	flush()
	return words
}

func isCJK(r rune) bool {
	return unicode.Is(unicode.Han, r) ||
		unicode.Is(unicode.Hiragana, r) ||
		unicode.Is(unicode.Katakana, r) ||
		unicode.Is(unicode.Hangul, r)
}

func bigrams(runes []rune) []string {
	if len(runes) == 1 {
		return []string{string(runes)}
	}
	out := make([]string, 0, len(runes)-1)
	for i := 0; i+1 < len(runes); i++ {
		out = append(out, string(runes[i:i+2]))
	}
	return out
}

func defaultStopwords() map[string]struct{} {
	stops := []string{
		"a", "an", "and", "are", "as", "at", "be", "by", "for",
		"from", "has", "he", "in", "is", "it", "its", "of", "on",
		"that", "the", "to", "was", "were", "will", "with", "this",
		"have", "had", "but", "not", "you", "your", "we", "our",
		"they", "their", "she", "her", "his", "if", "or", "so",
		"no", "can", "do", "does", "did", "been", "being", "would",
		"could", "should", "may", "might", "must", "shall", "which",
		"who", "whom", "what", "when", "where", "why", "how", "all",
		"each", "every", "both", "few", "more", "most", "other",
		"some", "such", "than", "too", "very", "just", "also",
	}
	m := make(map[string]struct{}, len(stops))
	for _, s := range stops {
		m[s] = struct{}{}
	}
	return m
}
