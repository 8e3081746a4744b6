package analyzer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTokenizer_Tokenize(t *testing.T) {
	tok := NewTokenizer()

	tokens := tok.Tokenize("Running dogs are playing")
	assert.Equal(t, []string{"running", "dogs", "playing"}, tokens)
}

func TestTokenizer_StopwordAndShortWordRemoval(t *testing.T) {
	tok := NewTokenizer()

	tokens := tok.Tokenize("the quick brown fox a I go to")
	assert.NotContains(t, tokens, "the")
	assert.NotContains(t, tokens, "to")
	for _, token := range tokens {
		assert.GreaterOrEqual(t, len(token), 2)
	}
}

func TestTokenizer_CJKBigrams(t *testing.T) {
	tok := NewTokenizer()

	assert.Equal(t, []string{"東京", "京都"}, tok.Tokenize("東京都"))
	assert.Equal(t, []string{"日"}, tok.Tokenize("日"))
	assert.Equal(t, []string{"go", "言語"}, tok.Tokenize("Go言語"))
}

func TestTokenizer_CountTokens(t *testing.T) {
	tok := NewTokenizer()

	assert.Equal(t, 0, tok.CountTokens(""))
	assert.GreaterOrEqual(t, tok.CountTokens("hello world this is a test"), 6)
	assert.Equal(t, 3, tok.CountTokens("東京都"))
}

func TestSplitWords(t *testing.T) {
	tests := []struct {
		input    string
		expected int
	}{
		{"hello world", 2},
		{"hello_world", 1},
		{"hello-world", 2},
		{"func(x, y)", 3},
		{"123numbers456", 1},
		{"これはペンです", 1},
		{"abc日本", 2},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Len(t, splitWords(tt.input), tt.expected)
		})
	}
}
