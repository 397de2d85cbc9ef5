package store

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"
	"strings"
	"unicode/utf8"
)

// marshalConnected converts a peer id set to JSON TEXT for storage.
// Ids are sorted and de-duplicated so that equal sets produce equal text.
func marshalConnected(ids []string) (string, error) {
	sorted := slices.Clone(ids)
	slices.Sort(sorted)
	sorted = slices.Compact(sorted)
	if sorted == nil {
		sorted = []string{}
	}

	for _, id := range sorted {
		if !utf8.ValidString(id) {
			return "", fmt.Errorf("marshal connected ids: id %q is not valid UTF-8", id)
		}
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false) // Ids are opaque; keep < > & verbatim
	if err := enc.Encode(sorted); err != nil {
		return "", fmt.Errorf("marshal connected ids: %w", err)
	}
	// Encoder adds a trailing newline, remove it
	return strings.TrimSpace(buf.String()), nil
}

// unmarshalConnected parses JSON TEXT to a peer id set.
// Returns an empty (non-nil) slice for an empty set.
func unmarshalConnected(data string) ([]string, error) {
	if data == "" || data == "[]" {
		return []string{}, nil
	}
	var ids []string
	if err := json.Unmarshal([]byte(data), &ids); err != nil {
		return nil, fmt.Errorf("unmarshal connected ids: %w", err)
	}
	if ids == nil {
		ids = []string{}
	}
	return ids, nil
}
