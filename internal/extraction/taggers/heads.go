// SPDX-License-Identifier: Apache-2.0

package taggers

import (
	"fmt"
	"os"

	"github.com/goccy/go-yaml"
)

// Heads holds the learned classification layers that sit on top of the
// encoder. Subject layers have one output; object layers have one output per
// relation.
type Heads struct {
	HiddenSize  int    `yaml:"hidden_size" json:"hidden_size"`
	SubjectHead Linear `yaml:"subject_head" json:"subject_head"`
	SubjectTail Linear `yaml:"subject_tail" json:"subject_tail"`
	ObjectHead  Linear `yaml:"object_head" json:"object_head"`
	ObjectTail  Linear `yaml:"object_tail" json:"object_tail"`
}

// LoadHeads reads head weights from a YAML or JSON file.
func LoadHeads(path string) (*Heads, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read head weights %q: %w", path, err)
	}
	heads, err := ParseHeads(content)
	if err != nil {
		return nil, fmt.Errorf("head weights %q: %w", path, err)
	}
	return heads, nil
}

// ParseHeads decodes and validates head weights.
func ParseHeads(content []byte) (*Heads, error) {
	var h Heads
	if err := yaml.Unmarshal(content, &h); err != nil {
		return nil, fmt.Errorf("failed to unmarshal head weights: %w", err)
	}
	if err := h.Validate(); err != nil {
		return nil, err
	}
	return &h, nil
}

// Validate checks that every layer matches hidden_size, that subject layers
// have a single output and that both object layers agree on the relation count.
func (h *Heads) Validate() error {
	if h.HiddenSize <= 0 {
		return fmt.Errorf("hidden_size must be positive, got %d", h.HiddenSize)
	}
	layers := []struct {
		name  string
		layer Linear
	}{
		{"subject_head", h.SubjectHead},
		{"subject_tail", h.SubjectTail},
		{"object_head", h.ObjectHead},
		{"object_tail", h.ObjectTail},
	}
	for _, l := range layers {
		if err := l.layer.validate(l.name, h.HiddenSize); err != nil {
			return err
		}
	}
	if h.SubjectHead.Outputs() != 1 || h.SubjectTail.Outputs() != 1 {
		return fmt.Errorf("subject layers must have 1 output, got %d and %d",
			h.SubjectHead.Outputs(), h.SubjectTail.Outputs())
	}
	if h.ObjectHead.Outputs() != h.ObjectTail.Outputs() {
		return fmt.Errorf("object layers disagree on relation count: %d and %d",
			h.ObjectHead.Outputs(), h.ObjectTail.Outputs())
	}
	return nil
}

// NumRelations returns the number of relation outputs of the object layers.
func (h *Heads) NumRelations() int {
	return h.ObjectHead.Outputs()
}

// Models builds the subject and object taggers over scorer.
func (h *Heads) Models(scorer Scorer) (*SubjectModel, *ObjectModel) {
	return NewSubjectModel(scorer, h.HiddenSize, h.SubjectHead, h.SubjectTail),
		NewObjectModel(scorer, h.HiddenSize, h.ObjectHead, h.ObjectTail)
}
