// SPDX-License-Identifier: Apache-2.0

package extraction_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gemaraproj/casrel/internal/extraction"
)

const wb = extraction.WordBoundary

// ---------------------------------------------------------------------------
// Decoder.Subjects
// ---------------------------------------------------------------------------

func TestDecoder_Subjects(t *testing.T) {
	d := extraction.NewDecoder(extraction.Relations{"r"})

	tests := []struct {
		name  string
		heads []float64
		tails []float64
		want  []extraction.Span
	}{
		{
			name:  "greedy nearest tail per head",
			heads: []float64{0, 0, 0.9, 0, 0, 0.8, 0},
			tails: []float64{0, 0, 0, 0.7, 0, 0, 0.6},
			want:  []extraction.Span{{Start: 2, End: 3}, {Start: 5, End: 6}},
		},
		{
			name:  "head and tail on the same token",
			heads: []float64{0, 0.9, 0},
			tails: []float64{0, 0.9, 0},
			want:  []extraction.Span{{Start: 1, End: 1}},
		},
		{
			name:  "head without a later tail is dropped",
			heads: []float64{0, 0.9, 0, 0.9},
			tails: []float64{0, 0, 0.9, 0},
			want:  []extraction.Span{{Start: 1, End: 2}},
		},
		{
			name:  "several heads share one tail",
			heads: []float64{0.9, 0.9, 0},
			tails: []float64{0, 0, 0.9},
			want:  []extraction.Span{{Start: 0, End: 2}, {Start: 1, End: 2}},
		},
		{
			name:  "scores equal to the threshold are excluded",
			heads: []float64{0.5, 0.50001},
			tails: []float64{0.5, 0.6},
			want:  []extraction.Span{{Start: 1, End: 1}},
		},
		{
			name:  "no head above threshold",
			heads: []float64{0.1, 0.2, 0.3},
			tails: []float64{0.9, 0.9, 0.9},
			want:  nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := d.Subjects(extraction.SubjectScores{Heads: tt.heads, Tails: tt.tails})
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDecoder_Subjects_SpansRespectThresholds(t *testing.T) {
	heads := []float64{0.1, 0.7, 0.5, 0.9, 0.2, 0.6, 0.97, 0.0}
	tails := []float64{0.3, 0.2, 0.8, 0.55, 0.1, 0.99, 0.4, 0.75}
	bars := []float64{0, 0.25, 0.5, 0.75, 0.95, 1}

	for _, hBar := range bars {
		for _, tBar := range bars {
			d := extraction.NewDecoder(extraction.Relations{"r"}, extraction.WithThresholds(hBar, tBar))
			for _, s := range d.Subjects(extraction.SubjectScores{Heads: heads, Tails: tails}) {
				assert.LessOrEqual(t, s.Start, s.End)
				assert.Greater(t, heads[s.Start], hBar)
				assert.Greater(t, tails[s.End], tBar)
			}
		}
	}
}

// ---------------------------------------------------------------------------
// Decoder.Objects
// ---------------------------------------------------------------------------

// grid builds a tokens x relations probability grid with the given hits.
func grid(tokens, relations int, hits map[[2]int]float64) [][]float64 {
	g := make([][]float64, tokens)
	for i := range g {
		g[i] = make([]float64, relations)
	}
	for at, p := range hits {
		g[at[0]][at[1]] = p
	}
	return g
}

func TestDecoder_Objects(t *testing.T) {
	d := extraction.NewDecoder(extraction.Relations{"born_in", "lives_in"})

	tests := []struct {
		name  string
		heads map[[2]int]float64
		tails map[[2]int]float64
		want  []extraction.ObjectSpan
	}{
		{
			name:  "first matching tail wins and relations must agree",
			heads: map[[2]int]float64{{1, 0}: 0.9},
			tails: map[[2]int]float64{{2, 1}: 0.9, {3, 0}: 0.6, {4, 0}: 0.99},
			want:  []extraction.ObjectSpan{{Span: extraction.Span{Start: 1, End: 3}, Relation: 0}},
		},
		{
			name:  "tail before head is rejected",
			heads: map[[2]int]float64{{3, 1}: 0.9},
			tails: map[[2]int]float64{{2, 1}: 0.9},
			want:  nil,
		},
		{
			name:  "one head per relation on the same token",
			heads: map[[2]int]float64{{1, 0}: 0.9, {1, 1}: 0.8},
			tails: map[[2]int]float64{{2, 0}: 0.9, {3, 1}: 0.9},
			want: []extraction.ObjectSpan{
				{Span: extraction.Span{Start: 1, End: 2}, Relation: 0},
				{Span: extraction.Span{Start: 1, End: 3}, Relation: 1},
			},
		},
		{
			name:  "threshold ties are excluded",
			heads: map[[2]int]float64{{1, 0}: 0.5},
			tails: map[[2]int]float64{{2, 0}: 0.9},
			want:  nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := d.Objects(extraction.ObjectScores{
				Heads: grid(6, 2, tt.heads),
				Tails: grid(6, 2, tt.tails),
			})
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDecoder_Objects_UnknownRelationSkipped(t *testing.T) {
	d := extraction.NewDecoder(extraction.Relations{"only"})
	got := d.Objects(extraction.ObjectScores{
		Heads: grid(4, 3, map[[2]int]float64{{1, 2}: 0.9}),
		Tails: grid(4, 3, map[[2]int]float64{{2, 2}: 0.9}),
	})
	assert.Empty(t, got)
}

// ---------------------------------------------------------------------------
// ReconstructText and Decode
// ---------------------------------------------------------------------------

func TestReconstructText(t *testing.T) {
	tests := []struct {
		name   string
		tokens []string
		want   string
	}{
		{"wordpieces and boundaries", []string{"un", "##aff", "##able", wb, "to", wb, "go"}, "unaffable to go"},
		{"single word", []string{"paris"}, "paris"},
		{"empty", nil, ""},
		{"hash token keeps its text", []string{"#", "##1"}, "#1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, extraction.ReconstructText(tt.tokens))
		})
	}
}

func TestDecoder_Decode_DeduplicatesAcrossSubjects(t *testing.T) {
	tokens := []string{"[CLS]", "paris", wb, "paris", wb, "france", wb, "[SEP]"}
	d := extraction.NewDecoder(extraction.Relations{"capital_of"})

	objects := extraction.ObjectScores{
		Heads: grid(len(tokens), 1, map[[2]int]float64{{5, 0}: 0.9}),
		Tails: grid(len(tokens), 1, map[[2]int]float64{{6, 0}: 0.9}),
	}
	subjects := []extraction.Span{{Start: 1, End: 2}, {Start: 3, End: 4}}

	triples, err := d.Decode(tokens, subjects, []extraction.ObjectScores{objects, objects})
	require.NoError(t, err)
	assert.Equal(t, []extraction.Triple{{Subject: "paris", Relation: "capital_of", Object: "france"}}, triples)
}

func TestDecoder_Decode_MismatchedGrids(t *testing.T) {
	d := extraction.NewDecoder(extraction.Relations{"r"})
	_, err := d.Decode([]string{"a"}, []extraction.Span{{Start: 0, End: 0}}, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, extraction.ErrShapeMismatch))
}

// ---------------------------------------------------------------------------
// Pipeline
// ---------------------------------------------------------------------------

type stubTokenizer struct {
	tokens []string
	segs   int // overrides the segment id count when non-zero
}

func (s stubTokenizer) Tokenize(string) []string {
	return s.tokens
}

func (s stubTokenizer) Encode(string) ([]int, []int) {
	ids := make([]int, len(s.tokens))
	for i := range ids {
		ids[i] = i
	}
	n := len(s.tokens)
	if s.segs != 0 {
		n = s.segs
	}
	return ids, make([]int, n)
}

type stubSubjects struct {
	scores extraction.SubjectScores
	seen   extraction.Encoding
}

func (s *stubSubjects) TagSubjects(_ context.Context, enc extraction.Encoding) (extraction.SubjectScores, error) {
	s.seen = enc
	return s.scores, nil
}

type stubObjects struct {
	bySubject map[extraction.Span]extraction.ObjectScores
	calls     int
	batch     int
	err       error
}

func (s *stubObjects) TagObjects(_ context.Context, enc extraction.Encoding, subjects []extraction.Span) ([]extraction.ObjectScores, error) {
	s.calls++
	s.batch = len(subjects)
	if s.err != nil {
		return nil, s.err
	}
	out := make([]extraction.ObjectScores, len(subjects))
	for i, sub := range subjects {
		scores, ok := s.bySubject[sub]
		if !ok {
			scores = extraction.ObjectScores{Heads: grid(enc.Len(), 2, nil), Tails: grid(enc.Len(), 2, nil)}
		}
		out[i] = scores
	}
	return out, nil
}

var sentence = []string{"[CLS]", "new", wb, "york", wb, "in", wb, "united", wb, "states", wb, "[SEP]"}

func TestPipeline_RunWithMeta(t *testing.T) {
	n := len(sentence)
	subjects := &stubSubjects{scores: extraction.SubjectScores{
		Heads: []float64{0, 0.9, 0, 0, 0, 0, 0, 0.7, 0, 0, 0, 0},
		Tails: []float64{0, 0, 0, 0, 0.8, 0, 0, 0, 0, 0, 0.6, 0},
	}}
	objects := &stubObjects{bySubject: map[extraction.Span]extraction.ObjectScores{
		{Start: 1, End: 4}: {
			Heads: grid(n, 2, map[[2]int]float64{{7, 0}: 0.9}),
			Tails: grid(n, 2, map[[2]int]float64{{10, 0}: 0.95}),
		},
	}}

	p := extraction.NewPipeline(
		stubTokenizer{tokens: sentence},
		subjects,
		objects,
		extraction.NewDecoder(extraction.Relations{"located_in", "contains"}),
	)

	result, err := p.RunWithMeta(context.Background(), "New York in United States")
	require.NoError(t, err)
	assert.Equal(t, n, result.TokenCount)
	assert.Equal(t, 2, result.SubjectCount)
	assert.False(t, result.Truncated)
	assert.Equal(t, 1, objects.calls, "all candidates go through one batched call")
	assert.Equal(t, 2, objects.batch)
	assert.Equal(t, []extraction.Triple{
		{Subject: "new york", Relation: "located_in", Object: "united states"},
	}, result.Triples)
}

func TestPipeline_NoSubjectsSkipsObjectPass(t *testing.T) {
	objects := &stubObjects{}
	p := extraction.NewPipeline(
		stubTokenizer{tokens: []string{"[CLS]", "hi", wb, "[SEP]"}},
		&stubSubjects{scores: extraction.SubjectScores{
			Heads: []float64{0.1, 0.2, 0.3, 0.4},
			Tails: []float64{0.9, 0.9, 0.9, 0.9},
		}},
		objects,
		extraction.NewDecoder(extraction.Relations{"r"}),
	)

	triples, err := p.Extract(context.Background(), "hi")
	require.NoError(t, err)
	assert.NotNil(t, triples)
	assert.Empty(t, triples)
	assert.Zero(t, objects.calls, "object tagger must not run without subjects")
}

func TestPipeline_TruncatesToMaxLen(t *testing.T) {
	subjects := &stubSubjects{scores: extraction.SubjectScores{
		Heads: make([]float64, 4),
		Tails: make([]float64, 4),
	}}
	p := extraction.NewPipeline(
		stubTokenizer{tokens: sentence},
		subjects,
		&stubObjects{},
		extraction.NewDecoder(extraction.Relations{"r"}),
		extraction.WithMaxLen(4),
	)

	result, err := p.RunWithMeta(context.Background(), "long text")
	require.NoError(t, err)
	assert.True(t, result.Truncated)
	assert.Equal(t, 4, result.TokenCount)
	assert.Equal(t, 4, subjects.seen.Len())
	assert.Len(t, subjects.seen.Tokens, 4)
	assert.Len(t, subjects.seen.SegmentIDs, 4)
}

func TestPipeline_ShapeErrors(t *testing.T) {
	tests := []struct {
		name     string
		tok      stubTokenizer
		subjects extraction.SubjectScores
		objects  *stubObjects
	}{
		{
			name: "segment ids do not match token ids",
			tok:  stubTokenizer{tokens: []string{"[CLS]", "[SEP]"}, segs: 3},
		},
		{
			name:     "subject scores shorter than encoding",
			tok:      stubTokenizer{tokens: []string{"[CLS]", "a", "[SEP]"}},
			subjects: extraction.SubjectScores{Heads: []float64{0.9}, Tails: []float64{0.9}},
		},
		{
			name:     "object grid shorter than encoding",
			tok:      stubTokenizer{tokens: []string{"[CLS]", "a", "[SEP]"}},
			subjects: extraction.SubjectScores{Heads: []float64{0, 0.9, 0}, Tails: []float64{0, 0.9, 0}},
			objects: &stubObjects{bySubject: map[extraction.Span]extraction.ObjectScores{
				{Start: 1, End: 1}: {Heads: grid(1, 1, nil), Tails: grid(1, 1, nil)},
			}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			objects := tt.objects
			if objects == nil {
				objects = &stubObjects{}
			}
			p := extraction.NewPipeline(tt.tok, &stubSubjects{scores: tt.subjects}, objects,
				extraction.NewDecoder(extraction.Relations{"r"}))
			_, err := p.Extract(context.Background(), "text")
			require.Error(t, err)
			assert.True(t, errors.Is(err, extraction.ErrShapeMismatch), "got %v", err)
		})
	}
}

func TestPipeline_ObjectTaggerError(t *testing.T) {
	p := extraction.NewPipeline(
		stubTokenizer{tokens: []string{"[CLS]", "a", "[SEP]"}},
		&stubSubjects{scores: extraction.SubjectScores{Heads: []float64{0, 0.9, 0}, Tails: []float64{0, 0.9, 0}}},
		&stubObjects{err: errors.New("encoder unavailable")},
		extraction.NewDecoder(extraction.Relations{"r"}),
	)
	_, err := p.Extract(context.Background(), "a")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "object tagging failed")
	assert.Contains(t, err.Error(), "encoder unavailable")
}

// ---------------------------------------------------------------------------
// Relations
// ---------------------------------------------------------------------------

func TestParseRelations(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    extraction.Relations
		wantErr bool
	}{
		{
			name:    "json list",
			content: `["born_in", "lives_in"]`,
			want:    extraction.Relations{"born_in", "lives_in"},
		},
		{
			name:    "json id mapping",
			content: `{"1": "lives_in", "0": "born_in"}`,
			want:    extraction.Relations{"born_in", "lives_in"},
		},
		{
			name:    "id2rel and rel2id pair",
			content: `[{"0": "/people/person/nationality", "1": "/location/location/contains"}, {"/people/person/nationality": 0, "/location/location/contains": 1}]`,
			want:    extraction.Relations{"/people/person/nationality", "/location/location/contains"},
		},
		{
			name:    "yaml mapping with integer keys",
			content: "0: founded_by\n1: ceo_of\n",
			want:    extraction.Relations{"founded_by", "ceo_of"},
		},
		{
			name:    "gap in ids",
			content: `{"0": "a", "2": "c"}`,
			wantErr: true,
		},
		{
			name:    "empty list",
			content: `[]`,
			wantErr: true,
		},
		{
			name:    "scalar document",
			content: `"just a string"`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := extraction.ParseRelations([]byte(tt.content))
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRelations_Label(t *testing.T) {
	rels := extraction.Relations{"a", "b"}
	label, ok := rels.Label(1)
	assert.True(t, ok)
	assert.Equal(t, "b", label)

	_, ok = rels.Label(2)
	assert.False(t, ok)
	_, ok = rels.Label(-1)
	assert.False(t, ok)
}

// ---------------------------------------------------------------------------
// TripleSet
// ---------------------------------------------------------------------------

func TestTripleSet(t *testing.T) {
	a := extraction.Triple{Subject: "a", Relation: "r", Object: "b"}
	b := extraction.Triple{Subject: "c", Relation: "r", Object: "d"}
	c := extraction.Triple{Subject: "a", Relation: "q", Object: "b"}

	pred := extraction.NewTripleSet(a, b, a)
	gold := extraction.NewTripleSet(a, c)

	assert.Len(t, pred, 2)
	assert.Equal(t, 1, pred.Intersect(gold))
	assert.Equal(t, []extraction.Triple{b}, pred.Difference(gold).Sorted())
	assert.Equal(t, []extraction.Triple{c}, gold.Difference(pred).Sorted())
	assert.Equal(t, []extraction.Triple{c, a}, gold.Sorted())
	assert.NotNil(t, extraction.NewTripleSet().Sorted())
}
