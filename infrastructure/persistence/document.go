// Package persistence holds the storage adapters for the templates document
// and its relational mirror.
package persistence

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"gallery-backend/domain/template"
)

// EncodeDocument renders the templates document the way it is committed:
// two-space indentation, no HTML escaping, trailing newline.
func EncodeDocument(templates template.Collection) ([]byte, error) {
	if templates == nil {
		templates = template.Collection{}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(templates); err != nil {
		return nil, fmt.Errorf("encode templates document: %w", err)
	}
	return buf.Bytes(), nil
}

// DecodeDocument parses a templates document. Empty input is an empty collection.
func DecodeDocument(data []byte) (template.Collection, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return template.Collection{}, nil
	}
	var templates template.Collection
	if err := json.Unmarshal(data, &templates); err != nil {
		return nil, fmt.Errorf("decode templates document: %w", err)
	}
	return templates, nil
}

// ContentVersion is a version token derived from document bytes
func ContentVersion(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
