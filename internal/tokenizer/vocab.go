// SPDX-License-Identifier: Apache-2.0

package tokenizer

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// ErrEmptyVocab is returned when a vocabulary file holds no tokens.
var ErrEmptyVocab = errors.New("vocabulary is empty")

// Vocab maps tokens to ids.
type Vocab map[string]int

// LoadVocab reads a vocabulary file from disk.
func LoadVocab(path string) (Vocab, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open vocabulary %q: %w", path, err)
	}
	defer f.Close()

	vocab, err := ReadVocab(f)
	if err != nil {
		return nil, fmt.Errorf("vocabulary %q: %w", path, err)
	}
	return vocab, nil
}

// ReadVocab reads one token per line. Each token gets the number of entries
// already read as its id, which is its line number when no token repeats.
// Surrounding whitespace is trimmed.
func ReadVocab(r io.Reader) (Vocab, error) {
	vocab := make(Vocab)
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		vocab[strings.TrimSpace(scanner.Text())] = len(vocab)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read vocabulary: %w", err)
	}
	if len(vocab) == 0 {
		return nil, ErrEmptyVocab
	}
	return vocab, nil
}
