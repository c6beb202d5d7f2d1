// SPDX-License-Identifier: Apache-2.0

package tool

import (
	"context"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/gemaraproj/casrel/internal/evaluation"
	"github.com/gemaraproj/casrel/internal/extraction"
)

var tripleSchema = map[string]interface{}{
	"type":     "object",
	"required": []string{"subject", "relation", "object"},
	"properties": map[string]interface{}{
		"subject":  map[string]interface{}{"type": "string"},
		"relation": map[string]interface{}{"type": "string"},
		"object":   map[string]interface{}{"type": "string"},
	},
}

// MetadataEvaluateTriples describes the evaluate_triples tool.
var MetadataEvaluateTriples = &mcp.Tool{
	Name: "evaluate_triples",
	Description: "Extract triples from text and score them against gold triples. " +
		"Returns precision, recall and F1, the predicted triples, the predictions missing " +
		"from gold (new) and the gold triples that were not predicted (lack). " +
		"Partial matching compares only the first word of subjects and objects; " +
		"new and lack always compare whole triples.",
	InputSchema: map[string]interface{}{
		"type":     "object",
		"required": []string{"text", "gold"},
		"properties": map[string]interface{}{
			"text": map[string]interface{}{
				"type":        "string",
				"description": "Raw text to extract triples from",
			},
			"gold": map[string]interface{}{
				"type":        "array",
				"description": "Expected triples for the text",
				"items":       tripleSchema,
			},
			"exact_match": map[string]interface{}{
				"type":        "boolean",
				"description": "Compare whole triples instead of first words. Defaults to the server setting.",
			},
		},
	},
}

// InputEvaluateTriples is the input for the EvaluateTriples tool.
type InputEvaluateTriples struct {
	Text       string              `json:"text"`
	Gold       []extraction.Triple `json:"gold"`
	ExactMatch *bool               `json:"exact_match,omitempty"`
}

// OutputEvaluateTriples is the output for the EvaluateTriples tool.
type OutputEvaluateTriples struct {
	Precision  float64             `json:"precision"`
	Recall     float64             `json:"recall"`
	F1         float64             `json:"f1"`
	Counts     evaluation.Counts   `json:"counts"`
	ExactMatch bool                `json:"exact_match"`
	Predicted  []extraction.Triple `json:"predicted"`
	New        []extraction.Triple `json:"new"`
	Lack       []extraction.Triple `json:"lack"`
}

// EvaluateTriples scores one document's predictions against its gold triples.
func (h *Handlers) EvaluateTriples(ctx context.Context, _ *mcp.CallToolRequest, input InputEvaluateTriples) (*mcp.CallToolResult, OutputEvaluateTriples, error) {
	if strings.TrimSpace(input.Text) == "" {
		return nil, OutputEvaluateTriples{}, fmt.Errorf("text is required")
	}
	exact := h.exactMatch
	if input.ExactMatch != nil {
		exact = *input.ExactMatch
	}

	result, err := h.runner.RunWithMeta(ctx, input.Text)
	if err != nil {
		return nil, OutputEvaluateTriples{}, err
	}

	pred := extraction.NewTripleSet(result.Triples...)
	cmp := evaluation.Compare(pred, extraction.NewTripleSet(input.Gold...), exact)

	counts := evaluation.NewCounts()
	counts.Correct += cmp.Counts.Correct
	counts.Predicted += cmp.Counts.Predicted
	counts.Gold += cmp.Counts.Gold

	metrics := counts.Metrics()
	return nil, OutputEvaluateTriples{
		Precision:  metrics.Precision,
		Recall:     metrics.Recall,
		F1:         metrics.F1,
		Counts:     cmp.Counts,
		ExactMatch: exact,
		Predicted:  pred.Sorted(),
		New:        cmp.New,
		Lack:       cmp.Lack,
	}, nil
}
