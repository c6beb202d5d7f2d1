// SPDX-License-Identifier: Apache-2.0

// Package tokenizer implements the wordpiece tokenizer the taggers were
// trained with. Every whitespace-delimited word is followed by a reserved
// word-boundary token so that multi-word spans can be rebuilt with their
// original spacing.
package tokenizer

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Reserved tokens.
const (
	CLS          = "[CLS]"
	SEP          = "[SEP]"
	UNK          = "[UNK]"
	WordBoundary = "[unused1]"

	continuation = "##"
)

// WordPiece is a greedy longest-match-first wordpiece tokenizer.
type WordPiece struct {
	vocab Vocab
	cased bool
	unkID int
}

// Option configures a WordPiece tokenizer.
type Option func(*WordPiece)

// WithCased keeps case and diacritics when true. Uncased tokenizers strip
// nonspacing marks after NFD decomposition and lowercase the text.
func WithCased(cased bool) Option {
	return func(w *WordPiece) {
		w.cased = cased
	}
}

// New creates a tokenizer over vocab. Tokenizers are cased by default.
func New(vocab Vocab, opts ...Option) *WordPiece {
	w := &WordPiece{
		vocab: vocab,
		cased: true,
	}
	if id, ok := vocab[UNK]; ok {
		w.unkID = id
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Tokenize returns [CLS], the wordpieces of text with a word boundary after
// every word, and [SEP].
func (w *WordPiece) Tokenize(text string) []string {
	tokens := []string{CLS}
	for _, word := range strings.Fields(w.normalize(text)) {
		tokens = append(tokens, w.wordPieces(word)...)
		tokens = append(tokens, WordBoundary)
	}
	return append(tokens, SEP)
}

// Encode returns the vocabulary ids of Tokenize(text) and an all-zero segment
// sequence of the same length. Out-of-vocabulary pieces map to [UNK].
func (w *WordPiece) Encode(text string) (tokenIDs, segmentIDs []int) {
	tokens := w.Tokenize(text)
	tokenIDs = make([]int, len(tokens))
	for i, tok := range tokens {
		id, ok := w.vocab[tok]
		if !ok {
			id = w.unkID
		}
		tokenIDs[i] = id
	}
	return tokenIDs, make([]int, len(tokens))
}

var stripMarks = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)))

func (w *WordPiece) normalize(text string) string {
	if !w.cased {
		if stripped, _, err := transform.String(stripMarks, text); err == nil {
			text = stripped
		}
		text = strings.ToLower(text)
	}

	var b strings.Builder
	b.Grow(len(text))
	for _, r := range text {
		if r == 0 || r == unicode.ReplacementChar || isControl(r) {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// isControl reports control and format characters. Tab, newline and carriage
// return are control characters too, so "Paris\nFrance" reads as one word.
func isControl(r rune) bool {
	return unicode.In(r, unicode.Cc, unicode.Cf)
}

// wordPieces splits one word. At each position the longest vocabulary entry
// wins; when nothing matches the single character becomes its own piece.
func (w *WordPiece) wordPieces(word string) []string {
	if _, ok := w.vocab[word]; ok {
		return []string{word}
	}

	chars := []rune(word)
	var pieces []string
	for start := 0; start < len(chars); {
		stop := len(chars)
		var sub string
		for ; stop > start; stop-- {
			sub = string(chars[start:stop])
			if start > 0 {
				sub = continuation + sub
			}
			if _, ok := w.vocab[sub]; ok {
				break
			}
		}
		if stop == start {
			stop = start + 1
			sub = string(chars[start:stop])
			if start > 0 {
				sub = continuation + sub
			}
		}
		pieces = append(pieces, sub)
		start = stop
	}
	return pieces
}
