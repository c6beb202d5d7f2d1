// SPDX-License-Identifier: Apache-2.0

package extraction

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/goccy/go-yaml"
)

// ErrEmptyRelations is returned when a relation vocabulary holds no labels.
var ErrEmptyRelations = errors.New("relation vocabulary is empty")

// Relations maps relation ids to labels. The id of a label is its index.
type Relations []string

// Label returns the label for id, or false when id is out of range.
func (r Relations) Label(id int) (string, bool) {
	if id < 0 || id >= len(r) {
		return "", false
	}
	return r[id], true
}

// LoadRelations reads a relation vocabulary from a JSON or YAML file.
func LoadRelations(path string) (Relations, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read relations %q: %w", path, err)
	}
	rels, err := ParseRelations(content)
	if err != nil {
		return nil, fmt.Errorf("relations %q: %w", path, err)
	}
	return rels, nil
}

// ParseRelations accepts three shapes: a list of labels, a mapping from id to
// label, or a two-element [id2rel, rel2id] array whose first element is used.
func ParseRelations(content []byte) (Relations, error) {
	var doc interface{}
	if err := yaml.Unmarshal(content, &doc); err != nil {
		return nil, fmt.Errorf("failed to unmarshal relations: %w", err)
	}

	var rels Relations
	var err error
	switch v := doc.(type) {
	case []interface{}:
		if len(v) == 2 && isMapping(v[0]) {
			rels, err = fromMapping(v[0])
		} else {
			rels, err = fromList(v)
		}
	default:
		if !isMapping(v) {
			return nil, fmt.Errorf("unsupported relations document of type %T", doc)
		}
		rels, err = fromMapping(v)
	}
	if err != nil {
		return nil, err
	}
	if len(rels) == 0 {
		return nil, ErrEmptyRelations
	}
	return rels, nil
}

func isMapping(v interface{}) bool {
	switch v.(type) {
	case map[string]interface{}, map[interface{}]interface{}:
		return true
	}
	return false
}

func fromList(items []interface{}) (Relations, error) {
	rels := make(Relations, 0, len(items))
	for i, item := range items {
		label, ok := item.(string)
		if !ok {
			return nil, fmt.Errorf("relation %d is %T, want string", i, item)
		}
		rels = append(rels, label)
	}
	return rels, nil
}

func fromMapping(m interface{}) (Relations, error) {
	byID := make(map[int]string)
	add := func(k, v interface{}) error {
		id, err := strconv.Atoi(fmt.Sprint(k))
		if err != nil {
			return fmt.Errorf("relation id %v is not an integer", k)
		}
		byID[id] = fmt.Sprint(v)
		return nil
	}

	switch mm := m.(type) {
	case map[string]interface{}:
		for k, v := range mm {
			if err := add(k, v); err != nil {
				return nil, err
			}
		}
	case map[interface{}]interface{}:
		for k, v := range mm {
			if err := add(k, v); err != nil {
				return nil, err
			}
		}
	}

	rels := make(Relations, len(byID))
	for id, label := range byID {
		if id < 0 || id >= len(rels) {
			return nil, fmt.Errorf("relation ids must be contiguous from 0, found %d in %d labels", id, len(rels))
		}
		rels[id] = label
	}
	return rels, nil
}
