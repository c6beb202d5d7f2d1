// SPDX-License-Identifier: Apache-2.0

package taggers

import (
	"context"
	"fmt"
	"math"

	"github.com/gemaraproj/casrel/internal/extraction"
)

// Scorer is the pretrained encoder. It maps a batch of token id and segment
// id sequences to one feature vector per token: [batch][token][hidden].
type Scorer interface {
	Score(ctx context.Context, tokenIDs, segmentIDs [][]int) ([][][]float32, error)
}

// Classifier maps per-token features to independent per-token probabilities:
// [token][output].
type Classifier interface {
	Classify(features [][]float32) [][]float64
}

// Ensure the models implement the tagger interfaces.
var (
	_ extraction.SubjectTagger = (*SubjectModel)(nil)
	_ extraction.ObjectTagger  = (*ObjectModel)(nil)
	_ Classifier               = Linear{}
)

// Linear is a dense layer followed by a sigmoid.
type Linear struct {
	// Weights is laid out [output][input].
	Weights [][]float64 `yaml:"weights" json:"weights"`
	Bias    []float64   `yaml:"bias" json:"bias"`
}

// Outputs returns the number of outputs per token.
func (l Linear) Outputs() int {
	return len(l.Weights)
}

func (l Linear) validate(name string, inputs int) error {
	if len(l.Weights) == 0 {
		return fmt.Errorf("%s: no weights", name)
	}
	if len(l.Bias) != len(l.Weights) {
		return fmt.Errorf("%s: %d biases for %d outputs", name, len(l.Bias), len(l.Weights))
	}
	for i, row := range l.Weights {
		if len(row) != inputs {
			return fmt.Errorf("%s: output %d has %d weights, want %d", name, i, len(row), inputs)
		}
	}
	return nil
}

// Classify applies the layer to every token's feature vector.
func (l Linear) Classify(features [][]float32) [][]float64 {
	out := make([][]float64, len(features))
	for t, x := range features {
		row := make([]float64, len(l.Weights))
		for o, w := range l.Weights {
			z := l.Bias[o]
			for i := 0; i < len(w) && i < len(x); i++ {
				z += w[i] * float64(x[i])
			}
			row[o] = sigmoid(z)
		}
		out[t] = row
	}
	return out
}

func sigmoid(z float64) float64 {
	return 1 / (1 + math.Exp(-z))
}

// SubjectModel tags subject heads and tails over one encoder pass.
type SubjectModel struct {
	scorer     Scorer
	hiddenSize int
	head       Classifier
	tail       Classifier
}

// NewSubjectModel creates a subject tagger over an encoder producing
// hiddenSize features per token. head and tail must produce one output per
// token.
func NewSubjectModel(scorer Scorer, hiddenSize int, head, tail Classifier) *SubjectModel {
	return &SubjectModel{scorer: scorer, hiddenSize: hiddenSize, head: head, tail: tail}
}

func (m *SubjectModel) TagSubjects(ctx context.Context, enc extraction.Encoding) (extraction.SubjectScores, error) {
	features, err := m.scorer.Score(ctx, [][]int{enc.TokenIDs}, [][]int{enc.SegmentIDs})
	if err != nil {
		return extraction.SubjectScores{}, fmt.Errorf("encoder failed: %w", err)
	}
	if len(features) != 1 {
		return extraction.SubjectScores{}, fmt.Errorf("%w: encoder returned %d sequences for 1 document",
			extraction.ErrShapeMismatch, len(features))
	}
	if err := checkWidth(features, m.hiddenSize); err != nil {
		return extraction.SubjectScores{}, err
	}
	return extraction.SubjectScores{
		Heads: firstColumn(m.head.Classify(features[0])),
		Tails: firstColumn(m.tail.Classify(features[0])),
	}, nil
}

func firstColumn(grid [][]float64) []float64 {
	col := make([]float64, len(grid))
	for i, row := range grid {
		if len(row) > 0 {
			col[i] = row[0]
		}
	}
	return col
}

// ObjectModel tags object heads and tails per relation, conditioned on a
// candidate subject.
type ObjectModel struct {
	scorer     Scorer
	hiddenSize int
	head       Classifier
	tail       Classifier
}

// NewObjectModel creates an object tagger over an encoder producing
// hiddenSize features per token. head and tail must produce one output per
// relation.
func NewObjectModel(scorer Scorer, hiddenSize int, head, tail Classifier) *ObjectModel {
	return &ObjectModel{scorer: scorer, hiddenSize: hiddenSize, head: head, tail: tail}
}

// TagObjects repeats the document once per subject and encodes the batch in a
// single call. For each subject the features at its head and tail are
// averaged and added to every token's features before classification.
func (m *ObjectModel) TagObjects(ctx context.Context, enc extraction.Encoding, subjects []extraction.Span) ([]extraction.ObjectScores, error) {
	if len(subjects) == 0 {
		return nil, nil
	}

	ids := make([][]int, len(subjects))
	segs := make([][]int, len(subjects))
	heads := make([]int, len(subjects))
	tails := make([]int, len(subjects))
	for i, s := range subjects {
		ids[i] = enc.TokenIDs
		segs[i] = enc.SegmentIDs
		heads[i] = s.Start
		tails[i] = s.End
	}

	features, err := m.scorer.Score(ctx, ids, segs)
	if err != nil {
		return nil, fmt.Errorf("encoder failed: %w", err)
	}
	if len(features) != len(subjects) {
		return nil, fmt.Errorf("%w: encoder returned %d sequences for %d subjects",
			extraction.ErrShapeMismatch, len(features), len(subjects))
	}
	if err := checkWidth(features, m.hiddenSize); err != nil {
		return nil, err
	}

	headFeatures, err := gather(features, heads)
	if err != nil {
		return nil, err
	}
	tailFeatures, err := gather(features, tails)
	if err != nil {
		return nil, err
	}

	scores := make([]extraction.ObjectScores, len(subjects))
	for i := range subjects {
		fused := fuse(features[i], headFeatures[i], tailFeatures[i])
		scores[i] = extraction.ObjectScores{
			Heads: m.head.Classify(fused),
			Tails: m.tail.Classify(fused),
		}
	}
	return scores, nil
}

// checkWidth rejects encoder output whose token vectors are not width wide.
func checkWidth(features [][][]float32, width int) error {
	for b, seq := range features {
		for t, vec := range seq {
			if len(vec) != width {
				return fmt.Errorf("%w: sequence %d token %d has %d features, want %d",
					extraction.ErrShapeMismatch, b, t, len(vec), width)
			}
		}
	}
	return nil
}

// gather picks seq[b][idxs[b]] for every batch row b.
func gather(seq [][][]float32, idxs []int) ([][]float32, error) {
	out := make([][]float32, len(idxs))
	for b, idx := range idxs {
		if idx < 0 || idx >= len(seq[b]) {
			return nil, fmt.Errorf("%w: index %d outside sequence of %d tokens",
				extraction.ErrShapeMismatch, idx, len(seq[b]))
		}
		out[b] = seq[b][idx]
	}
	return out, nil
}

// fuse adds the mean of head and tail to every token vector.
func fuse(tokens [][]float32, head, tail []float32) [][]float32 {
	out := make([][]float32, len(tokens))
	for t, x := range tokens {
		row := make([]float32, len(x))
		for i := range x {
			var sub float32
			if i < len(head) && i < len(tail) {
				sub = (head[i] + tail[i]) / 2
			}
			row[i] = x[i] + sub
		}
		out[t] = row
	}
	return out
}
