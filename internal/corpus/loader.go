// SPDX-License-Identifier: Apache-2.0

package corpus

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrUnknownFormat is returned when no registered reader accepts a source.
var ErrUnknownFormat = errors.New("unsupported dataset format")

type Loader struct {
	readers []Reader
}

// NewLoader creates a Loader that tries readers in order.
func NewLoader(readers ...Reader) *Loader {
	return &Loader{readers: readers}
}

// LoadResult is the output of a successful load.
type LoadResult struct {
	Records    []Record
	ReaderUsed string
}

func (l *Loader) Load(ctx context.Context, source Source) ([]Record, error) {
	result, err := l.LoadWithMeta(ctx, source)
	if err != nil {
		return nil, err
	}
	return result.Records, nil
}

func (l *Loader) LoadWithMeta(ctx context.Context, source Source) (LoadResult, error) {
	reader, err := l.selectReader(source)
	if err != nil {
		return LoadResult{}, err
	}

	records, err := reader.Read(ctx, source)
	if err != nil {
		return LoadResult{}, fmt.Errorf("reader %q failed on %q: %w", reader.Name(), source.ID, err)
	}
	return LoadResult{Records: records, ReaderUsed: reader.Name()}, nil
}

// LoadFile reads path and loads it. An empty format is inferred from the file
// extension.
func (l *Loader) LoadFile(ctx context.Context, path, format string) (LoadResult, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return LoadResult{}, fmt.Errorf("failed to read dataset %q: %w", path, err)
	}
	if format == "" {
		format = strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	}
	return l.LoadWithMeta(ctx, Source{Content: content, Format: format, ID: path})
}

// selectReader returns the first registered reader that can handle the source.
// A hint no reader recognizes falls back to content sniffing.
func (l *Loader) selectReader(source Source) (Reader, error) {
	for _, reader := range l.readers {
		if reader.CanHandle(source) {
			return reader, nil
		}
	}
	if source.Format != "" {
		unhinted := source
		unhinted.Format = ""
		for _, reader := range l.readers {
			if reader.CanHandle(unhinted) {
				return reader, nil
			}
		}
	}
	return nil, fmt.Errorf("%w: no reader found for source %q (format hint: %q)", ErrUnknownFormat, source.ID, source.Format)
}

// RegisteredReaders returns the names of all registered readers.
func (l *Loader) RegisteredReaders() []string {
	names := make([]string, len(l.readers))
	for i, reader := range l.readers {
		names[i] = reader.Name()
	}
	return names
}
