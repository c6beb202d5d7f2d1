// SPDX-License-Identifier: Apache-2.0

package extraction

import (
	"fmt"
	"sort"
	"strings"
)

const (
	// DefaultHeadThreshold is the default h_bar.
	DefaultHeadThreshold = 0.5
	// DefaultTailThreshold is the default t_bar.
	DefaultTailThreshold = 0.5

	// WordBoundary is the reserved token the tokenizer emits after every word.
	WordBoundary = "[unused1]"
	// ContinuationPrefix marks a wordpiece that attaches to the previous piece.
	ContinuationPrefix = "##"
)

// Decoder turns head/tail probabilities into spans and deduplicated triples.
// Scores strictly greater than a threshold count as detections.
type Decoder struct {
	relations Relations
	hBar      float64
	tBar      float64
}

// DecoderOption configures a Decoder.
type DecoderOption func(*Decoder)

// WithThresholds sets h_bar and t_bar.
func WithThresholds(hBar, tBar float64) DecoderOption {
	return func(d *Decoder) {
		d.hBar = hBar
		d.tBar = tBar
	}
}

// NewDecoder creates a Decoder labelling relation ids with relations.
func NewDecoder(relations Relations, opts ...DecoderOption) *Decoder {
	d := &Decoder{
		relations: relations,
		hBar:      DefaultHeadThreshold,
		tBar:      DefaultTailThreshold,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Subjects pairs every head above h_bar, in ascending order, with the nearest
// tail above t_bar at or after it. Heads without such a tail are dropped and
// several heads may share one tail.
func (d *Decoder) Subjects(scores SubjectScores) []Span {
	heads := above(scores.Heads, d.hBar)
	tails := above(scores.Tails, d.tBar)

	var spans []Span
	for _, h := range heads {
		i := sort.SearchInts(tails, h)
		if i < len(tails) {
			spans = append(spans, Span{Start: h, End: tails[i]})
		}
	}
	return spans
}

// Objects pairs thresholded object heads with thresholded object tails of the
// same relation. Both grids are scanned token first, then relation. Each head
// takes the first tail in that order at or after it and stops there, even if a
// later tail scores higher.
func (d *Decoder) Objects(scores ObjectScores) []ObjectSpan {
	heads := aboveGrid(scores.Heads, d.hBar)
	tails := aboveGrid(scores.Tails, d.tBar)

	var spans []ObjectSpan
	for _, h := range heads {
		for _, t := range tails {
			if h.token > t.token || h.relation != t.relation {
				continue
			}
			if _, ok := d.relations.Label(h.relation); ok {
				spans = append(spans, ObjectSpan{
					Span:     Span{Start: h.token, End: t.token},
					Relation: h.relation,
				})
			}
			break
		}
	}
	return spans
}

// Decode builds the triple set for one document. objects[i] holds the object
// grids scored for subjects[i].
func (d *Decoder) Decode(tokens []string, subjects []Span, objects []ObjectScores) ([]Triple, error) {
	if len(objects) != len(subjects) {
		return nil, fmt.Errorf("%w: %d object grids for %d subjects", ErrShapeMismatch, len(objects), len(subjects))
	}

	set := make(TripleSet)
	for i, sub := range subjects {
		subject := ReconstructText(spanTokens(tokens, sub))
		for _, obj := range d.Objects(objects[i]) {
			label, _ := d.relations.Label(obj.Relation)
			set.Add(Triple{
				Subject:  subject,
				Relation: label,
				Object:   ReconstructText(spanTokens(tokens, obj.Span)),
			})
		}
	}
	return set.Sorted(), nil
}

// ReconstructText joins wordpieces back into text. Continuation prefixes are
// stripped, pieces are concatenated without spaces and every word-boundary
// token becomes a single space.
func ReconstructText(tokens []string) string {
	var b strings.Builder
	for _, tok := range tokens {
		b.WriteString(strings.TrimPrefix(tok, ContinuationPrefix))
	}
	return strings.ReplaceAll(b.String(), WordBoundary, " ")
}

func spanTokens(tokens []string, s Span) []string {
	start, end := s.Start, s.End
	if end > len(tokens) {
		end = len(tokens)
	}
	if start < 0 || start >= end {
		return nil
	}
	return tokens[start:end]
}

func above(probs []float64, bar float64) []int {
	var idx []int
	for i, p := range probs {
		if p > bar {
			idx = append(idx, i)
		}
	}
	return idx
}

type cell struct {
	token    int
	relation int
}

func aboveGrid(grid [][]float64, bar float64) []cell {
	var cells []cell
	for t, row := range grid {
		for r, p := range row {
			if p > bar {
				cells = append(cells, cell{token: t, relation: r})
			}
		}
	}
	return cells
}
