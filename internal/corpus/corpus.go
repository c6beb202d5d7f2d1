// SPDX-License-Identifier: Apache-2.0

package corpus

import (
	"context"
	"fmt"

	"github.com/gemaraproj/casrel/internal/extraction"
)

// Record is one document and its gold triples. Plain documents have no gold.
type Record struct {
	Text    string
	Triples []extraction.Triple
}

// Gold returns the record's gold triples as a set.
func (r Record) Gold() extraction.TripleSet {
	return extraction.NewTripleSet(r.Triples...)
}

// RawRecord is the on-disk shape of a labeled record:
// {"text": ..., "triple_list": [[subject, relation, object], ...]}.
type RawRecord struct {
	Text       string     `yaml:"text" json:"text"`
	TripleList [][]string `yaml:"triple_list" json:"triple_list"`
}

// Record converts the raw form, checking that every triple has three parts.
func (r RawRecord) Record() (Record, error) {
	rec := Record{Text: r.Text, Triples: make([]extraction.Triple, 0, len(r.TripleList))}
	for i, t := range r.TripleList {
		if len(t) != 3 {
			return Record{}, fmt.Errorf("triple %d has %d elements, want 3", i, len(t))
		}
		rec.Triples = append(rec.Triples, extraction.Triple{Subject: t[0], Relation: t[1], Object: t[2]})
	}
	return rec, nil
}

// Source describes the raw input to the loader.
type Source struct {
	// Content is the raw dataset content.
	Content []byte
	Format  string
	ID      string
}

type Reader interface {
	CanHandle(source Source) bool
	Read(ctx context.Context, source Source) ([]Record, error)
	Name() string
}
