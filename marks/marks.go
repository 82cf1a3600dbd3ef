// Package marks adapts external persistence layers into raw mark records.
// The engine never owns this data; it only reads whatever schema the
// upstream happens to use.
package marks

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/a-bouts/tactics-server/course"
)

// Document is the JSON file layout: marks plus optional race metadata.
type Document struct {
	Metadata *course.Metadata `json:"metadata,omitempty"`
	Marks    []course.RawMark `json:"marks"`
}

// LoadFile reads a course document from a JSON file. Used for demo venues
// and as the fallback when no database is configured.
func LoadFile(path string) (*Document, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read course file %s: %w", path, err)
	}

	var doc Document
	if err := json.Unmarshal(content, &doc); err != nil {
		return nil, fmt.Errorf("parse course file %s: %w", path, err)
	}
	return &doc, nil
}
