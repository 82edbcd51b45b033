package source

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/huangsam/pulse/internal/contract"
	"github.com/huangsam/pulse/schema"
)

// FileSource reads a previously exported batch from a JSON file. The file holds either
// a RawBatch object or a bare array of RawEvent values.
type FileSource struct {
	path string
}

var _ contract.EventSource = &FileSource{} // Compile-time check

// NewFileSource creates a source reading from path.
func NewFileSource(path string) *FileSource {
	return &FileSource{path: path}
}

// Name implements the EventSource interface.
func (s *FileSource) Name() string {
	return string(schema.FileSource)
}

// Fetch implements the EventSource interface. The range is not applied here;
// the engine filters by range after normalization.
func (s *FileSource) Fetch(ctx context.Context, projectID string, _ schema.DateRange) (schema.RawBatch, error) {
	if err := ctx.Err(); err != nil {
		return schema.RawBatch{}, err
	}
	data, err := os.ReadFile(s.path)
	if err != nil {
		return schema.RawBatch{}, fmt.Errorf("failed to read input file %q: %w", s.path, err)
	}
	batch, err := DecodeBatch(data)
	if err != nil {
		return schema.RawBatch{}, fmt.Errorf("failed to decode input file %q: %w", s.path, err)
	}
	if batch.Project.ID == "" {
		batch.Project.ID = projectID
	}
	return batch, nil
}

// DecodeBatch parses a RawBatch object or a bare RawEvent array.
func DecodeBatch(data []byte) (schema.RawBatch, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var events []schema.RawEvent
		if err := json.Unmarshal(trimmed, &events); err != nil {
			return schema.RawBatch{}, err
		}
		return schema.RawBatch{Events: events}, nil
	}
	var batch schema.RawBatch
	if err := json.Unmarshal(trimmed, &batch); err != nil {
		return schema.RawBatch{}, err
	}
	return batch, nil
}
