// SPDX-License-Identifier: Apache-2.0

package readers

import (
	"context"
	"strings"

	"github.com/gemaraproj/casrel/internal/corpus"
)

// TextReader treats every non-empty line as an unlabeled document.
type TextReader struct{}

func NewTextReader() *TextReader {
	return &TextReader{}
}

func (r *TextReader) Name() string {
	return "text"
}

// CanHandle returns true for text/txt format hints. Without a hint it
// accepts any non-blank content that does not look like structured records.
func (r *TextReader) CanHandle(source corpus.Source) bool {
	if source.Format != "" {
		f := strings.ToLower(source.Format)
		return f == "text" || f == "txt"
	}
	content := strings.TrimSpace(string(source.Content))
	if content == "" {
		return false
	}
	return !strings.HasPrefix(content, "[") && !strings.HasPrefix(content, "{")
}

func (r *TextReader) Read(_ context.Context, source corpus.Source) ([]corpus.Record, error) {
	var records []corpus.Record
	for _, line := range strings.Split(string(source.Content), "\n") {
		text := strings.TrimSpace(line)
		if text == "" {
			continue
		}
		records = append(records, corpus.Record{Text: text})
	}
	return records, nil
}
