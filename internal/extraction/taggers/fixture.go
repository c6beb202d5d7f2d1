// SPDX-License-Identifier: Apache-2.0

package taggers

import (
	"context"
	"fmt"
	"os"

	"github.com/goccy/go-yaml"

	"github.com/gemaraproj/casrel/internal/extraction"
)

// Ensure Fixture implements both tagger interfaces.
var (
	_ extraction.SubjectTagger = (*Fixture)(nil)
	_ extraction.ObjectTagger  = (*Fixture)(nil)
)

// FixtureDocument holds precomputed scores for one input text.
type FixtureDocument struct {
	Text         string          `yaml:"text"`
	SubjectHeads []float64       `yaml:"subject_heads"`
	SubjectTails []float64       `yaml:"subject_tails"`
	Objects      []FixtureObject `yaml:"objects"`
}

// FixtureObject holds the object grids scored for one subject span.
type FixtureObject struct {
	Subject FixtureSpan `yaml:"subject"`
	Heads   [][]float64 `yaml:"heads"`
	Tails   [][]float64 `yaml:"tails"`
}

type FixtureSpan struct {
	Start int `yaml:"start"`
	End   int `yaml:"end"`
}

type fixtureFile struct {
	Documents []FixtureDocument `yaml:"documents"`
}

// Fixture replays precomputed probabilities instead of running a model.
// Texts and subjects it has no scores for get all-zero scores, which decode
// to no triples.
type Fixture struct {
	docs map[string]FixtureDocument
}

// NewFixture indexes documents by text. A later document with the same text
// replaces an earlier one.
func NewFixture(docs ...FixtureDocument) *Fixture {
	f := &Fixture{docs: make(map[string]FixtureDocument, len(docs))}
	for _, d := range docs {
		f.docs[d.Text] = d
	}
	return f
}

// LoadFixture reads a fixture file in YAML or JSON.
func LoadFixture(path string) (*Fixture, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read fixture %q: %w", path, err)
	}
	var file fixtureFile
	if err := yaml.Unmarshal(content, &file); err != nil {
		return nil, fmt.Errorf("failed to unmarshal fixture %q: %w", path, err)
	}
	return NewFixture(file.Documents...), nil
}

// Len returns the number of documents with scores.
func (f *Fixture) Len() int {
	return len(f.docs)
}

func (f *Fixture) TagSubjects(_ context.Context, enc extraction.Encoding) (extraction.SubjectScores, error) {
	doc, ok := f.docs[enc.Text]
	if !ok {
		return extraction.SubjectScores{
			Heads: make([]float64, enc.Len()),
			Tails: make([]float64, enc.Len()),
		}, nil
	}
	return extraction.SubjectScores{
		Heads: truncate(doc.SubjectHeads, enc.Len()),
		Tails: truncate(doc.SubjectTails, enc.Len()),
	}, nil
}

func (f *Fixture) TagObjects(_ context.Context, enc extraction.Encoding, subjects []extraction.Span) ([]extraction.ObjectScores, error) {
	doc := f.docs[enc.Text]
	scores := make([]extraction.ObjectScores, len(subjects))
	for i, s := range subjects {
		scores[i] = extraction.ObjectScores{
			Heads: make([][]float64, enc.Len()),
			Tails: make([][]float64, enc.Len()),
		}
		for _, obj := range doc.Objects {
			if obj.Subject.Start == s.Start && obj.Subject.End == s.End {
				scores[i] = extraction.ObjectScores{
					Heads: truncate(obj.Heads, enc.Len()),
					Tails: truncate(obj.Tails, enc.Len()),
				}
				break
			}
		}
	}
	return scores, nil
}

// truncate drops positions past n, as the encoder never scores them.
func truncate[T any](s []T, n int) []T {
	if len(s) > n {
		return s[:n]
	}
	return s
}
