// SPDX-License-Identifier: Apache-2.0

package extraction

import (
	"context"
	"fmt"
	"io"
	"log/slog"
)

// DefaultMaxLen is the longest token sequence the encoder accepts.
const DefaultMaxLen = 512

// Pipeline runs tokenization, both taggers and the decoder over one document.
type Pipeline struct {
	tokenizer Tokenizer
	subjects  SubjectTagger
	objects   ObjectTagger
	decoder   *Decoder
	maxLen    int
	logger    *slog.Logger
}

// PipelineOption configures a Pipeline.
type PipelineOption func(*Pipeline)

// WithMaxLen sets the truncation length. Non-positive values are ignored.
func WithMaxLen(n int) PipelineOption {
	return func(p *Pipeline) {
		if n > 0 {
			p.maxLen = n
		}
	}
}

func WithLogger(l *slog.Logger) PipelineOption {
	return func(p *Pipeline) {
		if l != nil {
			p.logger = l
		}
	}
}

// NewPipeline creates a Pipeline from its collaborators.
func NewPipeline(tok Tokenizer, subjects SubjectTagger, objects ObjectTagger, decoder *Decoder, opts ...PipelineOption) *Pipeline {
	p := &Pipeline{
		tokenizer: tok,
		subjects:  subjects,
		objects:   objects,
		decoder:   decoder,
		maxLen:    DefaultMaxLen,
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// RunResult is the output of one document run.
type RunResult struct {
	Triples      []Triple
	TokenCount   int
	SubjectCount int
	Truncated    bool
}

// Extract returns the deduplicated triples found in text.
func (p *Pipeline) Extract(ctx context.Context, text string) ([]Triple, error) {
	result, err := p.RunWithMeta(ctx, text)
	if err != nil {
		return nil, err
	}
	return result.Triples, nil
}

// RunWithMeta extracts triples and reports how the document was processed.
// The object tagger is not called when no subject is found.
func (p *Pipeline) RunWithMeta(ctx context.Context, text string) (RunResult, error) {
	enc, truncated, err := p.Encode(text)
	if err != nil {
		return RunResult{}, err
	}
	result := RunResult{
		Triples:    []Triple{},
		TokenCount: enc.Len(),
		Truncated:  truncated,
	}
	if truncated {
		p.logger.Debug("document truncated", "max_len", p.maxLen)
	}

	subScores, err := p.subjects.TagSubjects(ctx, enc)
	if err != nil {
		return RunResult{}, fmt.Errorf("subject tagging failed: %w", err)
	}
	if len(subScores.Heads) != enc.Len() || len(subScores.Tails) != enc.Len() {
		return RunResult{}, fmt.Errorf("%w: subject scores %d/%d for %d tokens",
			ErrShapeMismatch, len(subScores.Heads), len(subScores.Tails), enc.Len())
	}

	subjects := p.decoder.Subjects(subScores)
	result.SubjectCount = len(subjects)
	if len(subjects) == 0 {
		return result, nil
	}

	objScores, err := p.objects.TagObjects(ctx, enc, subjects)
	if err != nil {
		return RunResult{}, fmt.Errorf("object tagging failed: %w", err)
	}
	for i, grid := range objScores {
		if len(grid.Heads) != enc.Len() || len(grid.Tails) != enc.Len() {
			return RunResult{}, fmt.Errorf("%w: object scores %d/%d for %d tokens (subject %d)",
				ErrShapeMismatch, len(grid.Heads), len(grid.Tails), enc.Len(), i)
		}
	}

	triples, err := p.decoder.Decode(enc.Tokens, subjects, objScores)
	if err != nil {
		return RunResult{}, err
	}
	result.Triples = triples
	p.logger.Debug("document decoded", "tokens", enc.Len(), "subjects", len(subjects), "triples", len(triples))
	return result, nil
}

// Encode tokenizes text and truncates the encoding to the maximum length.
// It reports whether truncation happened.
func (p *Pipeline) Encode(text string) (Encoding, bool, error) {
	tokens := p.tokenizer.Tokenize(text)
	ids, segs := p.tokenizer.Encode(text)
	if len(tokens) != len(ids) || len(ids) != len(segs) {
		return Encoding{}, false, fmt.Errorf("%w: %d tokens, %d token ids, %d segment ids",
			ErrShapeMismatch, len(tokens), len(ids), len(segs))
	}

	truncated := false
	if len(ids) > p.maxLen {
		tokens, ids, segs = tokens[:p.maxLen], ids[:p.maxLen], segs[:p.maxLen]
		truncated = true
	}
	return Encoding{Text: text, Tokens: tokens, TokenIDs: ids, SegmentIDs: segs}, truncated, nil
}
