// SPDX-License-Identifier: Apache-2.0

package readers

import (
	"context"
	"fmt"
	"strings"

	"github.com/goccy/go-yaml"

	"github.com/gemaraproj/casrel/internal/corpus"
)

// JSONReader reads a dataset stored as one JSON or YAML array of records.
type JSONReader struct{}

func NewJSONReader() *JSONReader {
	return &JSONReader{}
}

func (r *JSONReader) Name() string {
	return "json"
}

// CanHandle returns true for json/yaml format hints. Without a hint it
// accepts content that opens a JSON array or a YAML sequence.
func (r *JSONReader) CanHandle(source corpus.Source) bool {
	if source.Format != "" {
		switch strings.ToLower(source.Format) {
		case "json", "yaml", "yml":
			return true
		}
		return false
	}
	content := strings.TrimSpace(string(source.Content))
	return strings.HasPrefix(content, "[") || strings.HasPrefix(content, "- ")
}

func (r *JSONReader) Read(_ context.Context, source corpus.Source) ([]corpus.Record, error) {
	var raw []corpus.RawRecord
	if err := yaml.Unmarshal(source.Content, &raw); err != nil {
		return nil, fmt.Errorf("failed to unmarshal records: %w", err)
	}

	records := make([]corpus.Record, 0, len(raw))
	for i, rr := range raw {
		rec, err := rr.Record()
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		records = append(records, rec)
	}
	return records, nil
}
