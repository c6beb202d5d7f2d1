// SPDX-License-Identifier: Apache-2.0

package extraction

import (
	"context"
	"errors"
)

// ErrShapeMismatch is returned when token, id or probability sequences that
// must be index-aligned have different lengths.
var ErrShapeMismatch = errors.New("shape mismatch")

// Encoding is one tokenized document. Tokens, TokenIDs and SegmentIDs are
// index-aligned; Text is the raw input they were produced from.
type Encoding struct {
	Text       string
	Tokens     []string
	TokenIDs   []int
	SegmentIDs []int
}

// Len returns the number of token positions.
func (e Encoding) Len() int {
	return len(e.TokenIDs)
}

// Span is a token index range produced by pairing a head with a tail.
// The tail marks the word-boundary token that closes the mention, so the
// mention text covers tokens [Start, End).
type Span struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// ObjectSpan is an object span together with the relation id it was detected under.
type ObjectSpan struct {
	Span
	Relation int
}

// Triple is one extracted (subject, relation, object) fact.
type Triple struct {
	Subject  string `json:"subject"`
	Relation string `json:"relation"`
	Object   string `json:"object"`
}

// SubjectScores holds per-token subject head and tail probabilities.
type SubjectScores struct {
	Heads []float64
	Tails []float64
}

// ObjectScores holds per-token, per-relation object probabilities for one
// candidate subject. Both grids are indexed [token][relation].
type ObjectScores struct {
	Heads [][]float64
	Tails [][]float64
}

// Tokenizer turns raw text into wordpiece tokens and their numeric encoding.
type Tokenizer interface {
	Tokenize(text string) []string
	Encode(text string) (tokenIDs, segmentIDs []int)
}

// SubjectTagger scores every token position as a subject head and tail.
type SubjectTagger interface {
	TagSubjects(ctx context.Context, enc Encoding) (SubjectScores, error)
}

// ObjectTagger scores object heads and tails per relation, once per candidate
// subject. All candidates of a document are scored in a single call and the
// result is returned in candidate order.
type ObjectTagger interface {
	TagObjects(ctx context.Context, enc Encoding, subjects []Span) ([]ObjectScores, error)
}
