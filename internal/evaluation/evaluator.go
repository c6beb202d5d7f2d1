// SPDX-License-Identifier: Apache-2.0

// Package evaluation scores extracted triples against labeled records.
package evaluation

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"

	"github.com/gemaraproj/casrel/internal/corpus"
	"github.com/gemaraproj/casrel/internal/extraction"
)

// Extractor produces the predicted triples for one document.
type Extractor interface {
	Extract(ctx context.Context, text string) ([]extraction.Triple, error)
}

// Evaluator runs an Extractor over labeled records and scores the result.
type Evaluator struct {
	extractor   Extractor
	exact       bool
	diagnostics io.Writer
	logger      *slog.Logger
}

// Option configures an Evaluator.
type Option func(*Evaluator)

// WithExactMatch compares whole triples instead of first words.
func WithExactMatch(exact bool) Option {
	return func(e *Evaluator) {
		e.exact = exact
	}
}

// WithDiagnostics writes one indented JSON object per record to w.
func WithDiagnostics(w io.Writer) Option {
	return func(e *Evaluator) {
		e.diagnostics = w
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(e *Evaluator) {
		if l != nil {
			e.logger = l
		}
	}
}

// NewEvaluator creates an Evaluator. Partial matching is the default.
func NewEvaluator(extractor Extractor, opts ...Option) *Evaluator {
	e := &Evaluator{
		extractor: extractor,
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Report is the outcome of one evaluation run.
type Report struct {
	Metrics
	Counts     Counts `json:"counts"`
	Records    int    `json:"records"`
	ExactMatch bool   `json:"exact_match"`
}

// Diagnostic is the per-record comparison written to the diagnostics stream.
// All lists hold the unreduced triples.
type Diagnostic struct {
	Text string              `json:"text"`
	Gold []extraction.Triple `json:"triple_list_gold"`
	Pred []extraction.Triple `json:"triple_list_pred"`
	New  []extraction.Triple `json:"new"`
	Lack []extraction.Triple `json:"lack"`
}

// Comparison is the result of scoring one document.
type Comparison struct {
	Counts Counts
	// New holds predicted triples missing from gold; Lack the reverse.
	New  []extraction.Triple
	Lack []extraction.Triple
}

// Compare scores one document. Counts are unseeded, so they can be summed.
func Compare(pred, gold extraction.TripleSet, exact bool) Comparison {
	predEval, goldEval := pred, gold
	if !exact {
		predEval, goldEval = PartialMatch(pred), PartialMatch(gold)
	}
	var c Counts
	c.Add(predEval, goldEval)
	return Comparison{
		Counts: c,
		New:    pred.Difference(gold).Sorted(),
		Lack:   gold.Difference(pred).Sorted(),
	}
}

// Evaluate scores every record in order. The first extraction failure stops
// the run and is returned with the record index.
func (e *Evaluator) Evaluate(ctx context.Context, records []corpus.Record) (Report, error) {
	var enc *json.Encoder
	if e.diagnostics != nil {
		enc = json.NewEncoder(e.diagnostics)
		enc.SetIndent("", "    ")
		enc.SetEscapeHTML(false)
	}

	counts := NewCounts()
	for i, rec := range records {
		if err := ctx.Err(); err != nil {
			return Report{}, err
		}

		triples, err := e.extractor.Extract(ctx, rec.Text)
		if err != nil {
			return Report{}, fmt.Errorf("record %d: %w", i, err)
		}
		pred := extraction.NewTripleSet(triples...)
		gold := rec.Gold()

		cmp := Compare(pred, gold, e.exact)
		counts.Correct += cmp.Counts.Correct
		counts.Predicted += cmp.Counts.Predicted
		counts.Gold += cmp.Counts.Gold

		if enc != nil {
			d := Diagnostic{
				Text: rec.Text,
				Gold: gold.Sorted(),
				Pred: pred.Sorted(),
				New:  cmp.New,
				Lack: cmp.Lack,
			}
			if err := enc.Encode(d); err != nil {
				return Report{}, fmt.Errorf("failed to write diagnostics for record %d: %w", i, err)
			}
		}
	}

	report := Report{
		Metrics:    counts.Metrics(),
		Counts:     counts,
		Records:    len(records),
		ExactMatch: e.exact,
	}
	e.logger.Info("evaluation finished",
		"records", report.Records,
		"correct", counts.Correct,
		"predicted", counts.Predicted,
		"gold", counts.Gold,
		"precision", report.Precision,
		"recall", report.Recall,
		"f1", report.F1,
	)
	return report, nil
}
