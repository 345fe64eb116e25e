package service

import (
	"github.com/pkoukk/tiktoken-go"
)

// TextSizer measures text under the configured size model and extracts
// size-bounded tails for chunk overlap. The chunker never branches on which
// implementation is active; both must agree on the unit of measurement
// (approximate tokens).
type TextSizer interface {
	// Size returns the measured size of text.
	Size(text string) int
	// Tail returns a suffix of text measuring at most size. When the whole
	// text measures size or less, the whole text is returned.
	Tail(text string, size int) string
}

// TokenSizer measures text with a real tokenizer (cl100k_base).
type TokenSizer struct {
	encoding *tiktoken.Tiktoken
}

// NewTokenSizer creates a TokenSizer. Callers should fall back to CharSizer
// when the encoding cannot be loaded (e.g. offline first run).
func NewTokenSizer() (*TokenSizer, error) {
	enc, err := tiktoken.GetEncoding("cl100k_base")
	if err != nil {
		return nil, err
	}
	return &TokenSizer{encoding: enc}, nil
}

func (s *TokenSizer) Size(text string) int {
	return len(s.encoding.Encode(text, nil, nil))
}

func (s *TokenSizer) Tail(text string, size int) string {
	if size <= 0 {
		return ""
	}
	tokens := s.encoding.Encode(text, nil, nil)
	if len(tokens) <= size {
		return text
	}
	return s.encoding.Decode(tokens[len(tokens)-size:])
}

// CharSizer approximates token counts from rune counts using a fixed
// characters-per-token ratio.
type CharSizer struct {
	CharsPerToken int
}

// NewCharSizer creates a CharSizer with the given ratio. Non-positive ratios
// default to 4, the usual approximation for English text.
func NewCharSizer(charsPerToken int) *CharSizer {
	if charsPerToken <= 0 {
		charsPerToken = 4
	}
	return &CharSizer{CharsPerToken: charsPerToken}
}

func (s *CharSizer) Size(text string) int {
	runes := len([]rune(text))
	if runes == 0 {
		return 0
	}
	return (runes + s.CharsPerToken - 1) / s.CharsPerToken
}

func (s *CharSizer) Tail(text string, size int) string {
	if size <= 0 {
		return ""
	}
	runes := []rune(text)
	chars := size * s.CharsPerToken
	if len(runes) <= chars {
		return text
	}
	return string(runes[len(runes)-chars:])
}
