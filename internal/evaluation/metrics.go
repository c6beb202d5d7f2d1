// SPDX-License-Identifier: Apache-2.0

package evaluation

import (
	"strings"

	"github.com/gemaraproj/casrel/internal/extraction"
)

// epsilon seeds every counter so that empty runs divide safely.
const epsilon = 1e-10

// Counts accumulates true positives, predictions and gold triples over a run.
type Counts struct {
	Correct   float64 `json:"correct"`
	Predicted float64 `json:"predicted"`
	Gold      float64 `json:"gold"`
}

// NewCounts returns counters seeded with epsilon.
func NewCounts() Counts {
	return Counts{Correct: epsilon, Predicted: epsilon, Gold: epsilon}
}

// Add accumulates one document's already-matched sets.
func (c *Counts) Add(pred, gold extraction.TripleSet) {
	c.Correct += float64(pred.Intersect(gold))
	c.Predicted += float64(len(pred))
	c.Gold += float64(len(gold))
}

// Metrics holds precision, recall and their harmonic mean.
type Metrics struct {
	Precision float64 `json:"precision"`
	Recall    float64 `json:"recall"`
	F1        float64 `json:"f1"`
}

func (c Counts) Metrics() Metrics {
	p := c.Correct / c.Predicted
	r := c.Correct / c.Gold
	return Metrics{Precision: p, Recall: r, F1: 2 * p * r / (p + r)}
}

// PartialMatch reduces every triple's subject and object to their first
// space-separated word. Text without a space is kept whole.
func PartialMatch(set extraction.TripleSet) extraction.TripleSet {
	out := make(extraction.TripleSet, len(set))
	for t := range set {
		out.Add(extraction.Triple{
			Subject:  firstWord(t.Subject),
			Relation: t.Relation,
			Object:   firstWord(t.Object),
		})
	}
	return out
}

func firstWord(s string) string {
	word, _, _ := strings.Cut(s, " ")
	return word
}
