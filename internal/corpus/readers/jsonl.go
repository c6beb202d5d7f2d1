// SPDX-License-Identifier: Apache-2.0

package readers

import (
	"context"
	"fmt"
	"strings"

	"github.com/goccy/go-yaml"

	"github.com/gemaraproj/casrel/internal/corpus"
)

// JSONLReader reads one JSON record per line. Blank lines are skipped.
type JSONLReader struct{}

func NewJSONLReader() *JSONLReader {
	return &JSONLReader{}
}

func (r *JSONLReader) Name() string {
	return "jsonl"
}

// CanHandle returns true for jsonl/ndjson format hints. Without a hint it
// accepts content that starts with a JSON object.
func (r *JSONLReader) CanHandle(source corpus.Source) bool {
	if source.Format != "" {
		f := strings.ToLower(source.Format)
		return f == "jsonl" || f == "ndjson"
	}
	return strings.HasPrefix(strings.TrimSpace(string(source.Content)), "{")
}

// Read decodes every line independently. A malformed line fails the whole
// dataset, naming its line number.
func (r *JSONLReader) Read(_ context.Context, source corpus.Source) ([]corpus.Record, error) {
	lines := strings.Split(string(source.Content), "\n")
	var records []corpus.Record

	for i, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		var raw corpus.RawRecord
		if err := yaml.Unmarshal([]byte(line), &raw); err != nil {
			return nil, fmt.Errorf("line %d: failed to unmarshal record: %w", i+1, err)
		}
		rec, err := raw.Record()
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", i+1, err)
		}
		records = append(records, rec)
	}
	return records, nil
}
