package models

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Stats is the decoded "stats" object of a player stats file, keyed by raw
// category identifier. Leaves are kept as decoded (json.Number for numbers) so
// that numeric validation happens at projection time.
type Stats map[string]any

// ParseStats decodes the contents of stats/<uuid>.json.
func ParseStats(data []byte) (Stats, error) {
	var doc struct {
		Stats map[string]any `json:"stats"`
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: stats json: %v", ErrParseFailure, err)
	}
	if doc.Stats == nil {
		return nil, fmt.Errorf("%w: stats json: missing \"stats\" object", ErrParseFailure)
	}

	return Stats(doc.Stats), nil
}

// Category returns the type-key to value map for a category.
// The second result is false when the category is absent or is not an object.
func (s Stats) Category(c StatCategory) (map[string]any, bool) {
	m, ok := s[string(c)].(map[string]any)
	return m, ok
}
