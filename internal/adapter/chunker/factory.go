package chunker

import (
	"fmt"
	"sort"

	"docrag/internal/port"
)

const (
	Fixed     = "fixed"
	Sentence  = "sentence"
	Recursive = "recursive"
	Token     = "token"
)

type Options struct {
	// Separators overrides DefaultSeparators for the recursive strategy.
	Separators []string
	// Encoding names the tiktoken encoding or model for the token strategy.
	Encoding string
	// Encoder replaces tiktoken, mainly for tests.
	Encoder Encoder
}

// New returns the strategy registered under name.
func New(name string, opts Options) (port.ChunkingStrategy, error) {
	switch name {
	case Fixed:
		return NewFixedWindowStrategy(), nil
	case Sentence:
		return NewSentenceStrategy(), nil
	case Recursive:
		return NewRecursiveStrategy(opts.Separators), nil
	case Token:
		enc := opts.Encoder
		if enc == nil {
			var err error
			if enc, err = NewTiktokenEncoder(opts.Encoding); err != nil {
				return nil, err
			}
		}
		return NewTokenStrategy(enc), nil
	default:
		return nil, fmt.Errorf("unknown chunking strategy %q (available: %v)", name, Names())
	}
}

func Names() []string {
	names := []string{Fixed, Sentence, Recursive, Token}
	sort.Strings(names)
	return names
}
