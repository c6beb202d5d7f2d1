// SPDX-License-Identifier: Apache-2.0

package tool

import (
	"context"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/gemaraproj/casrel/internal/extraction"
)

// MetadataExtractTriples describes the extract_triples tool.
var MetadataExtractTriples = &mcp.Tool{
	Name: "extract_triples",
	Description: "Extract (subject, relation, object) triples from natural-language text. " +
		"Subjects are tagged first; the text is then tagged once per candidate subject for " +
		"objects under every known relation. Duplicate triples are collapsed. " +
		"Text longer than the encoder limit is truncated and reported as such.",
	InputSchema: map[string]interface{}{
		"type":     "object",
		"required": []string{"text"},
		"properties": map[string]interface{}{
			"text": map[string]interface{}{
				"type":        "string",
				"description": "Raw text to extract triples from",
			},
		},
	},
}

// InputExtractTriples is the input for the ExtractTriples tool.
type InputExtractTriples struct {
	Text string `json:"text"`
}

// OutputExtractTriples is the output for the ExtractTriples tool.
type OutputExtractTriples struct {
	// Triples is sorted by subject, relation and object.
	Triples []extraction.Triple `json:"triples"`
	// TokenCount is the number of tokens the taggers saw, after truncation.
	TokenCount   int  `json:"token_count"`
	SubjectCount int  `json:"subject_count"`
	Truncated    bool `json:"truncated"`
}

// Runner extracts triples and reports how the document was processed.
type Runner interface {
	RunWithMeta(ctx context.Context, text string) (extraction.RunResult, error)
}

// Handlers serves the tools over one extraction pipeline.
type Handlers struct {
	runner     Runner
	exactMatch bool
}

// NewHandlers creates tool handlers. exactMatch is the default matching mode
// for evaluate_triples when a call does not set one.
func NewHandlers(runner Runner, exactMatch bool) *Handlers {
	return &Handlers{runner: runner, exactMatch: exactMatch}
}

// ExtractTriples runs the pipeline over the provided text.
func (h *Handlers) ExtractTriples(ctx context.Context, _ *mcp.CallToolRequest, input InputExtractTriples) (*mcp.CallToolResult, OutputExtractTriples, error) {
	if strings.TrimSpace(input.Text) == "" {
		return nil, OutputExtractTriples{}, fmt.Errorf("text is required")
	}

	result, err := h.runner.RunWithMeta(ctx, input.Text)
	if err != nil {
		return nil, OutputExtractTriples{}, err
	}

	return nil, OutputExtractTriples{
		Triples:      result.Triples,
		TokenCount:   result.TokenCount,
		SubjectCount: result.SubjectCount,
		Truncated:    result.Truncated,
	}, nil
}
