// Package queue reads the CSV posting queue.
package queue

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ghostpost/ghostpost/internal/types"
)

// Column names of the queue file header
const (
	ColImagePath = "image_path"
	ColCaption   = "caption"
	ColTags      = "tags"
	ColPlatforms = "platforms"
)

var requiredColumns = []string{ColImagePath, ColCaption, ColTags, ColPlatforms}

// RowError describes a queue row that could not be used
type RowError struct {
	Line int
	Err  error
}

func (e *RowError) Error() string {
	return fmt.Sprintf("queue line %d: %v", e.Line, e.Err)
}

func (e *RowError) Unwrap() error { return e.Err }

// Read loads every entry from the queue file at path
func Read(path string) ([]types.QueueEntry, []*RowError, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()
	return Parse(f)
}

// Parse reads a queue with a header row. Columns are matched by name, so their
// order is free. Rows that fail validation are reported in the second return
// value and left out of the entries.
func Parse(r io.Reader) ([]types.QueueEntry, []*RowError, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read queue header: %w", err)
	}

	index := make(map[string]int, len(header))
	for i, h := range header {
		index[strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))] = i
	}
	for _, col := range requiredColumns {
		if _, ok := index[col]; !ok {
			return nil, nil, fmt.Errorf("queue header is missing column %q", col)
		}
	}

	field := func(record []string, col string) string {
		i := index[col]
		if i >= len(record) {
			return ""
		}
		return record[i]
	}

	var entries []types.QueueEntry
	var rowErrs []*RowError
	for {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return entries, rowErrs, fmt.Errorf("failed to read queue: %w", err)
		}
		line, _ := cr.FieldPos(0)

		entry := types.QueueEntry{
			ImagePath:    strings.TrimSpace(field(record, ColImagePath)),
			Caption:      field(record, ColCaption),
			Tags:         strings.TrimSpace(field(record, ColTags)),
			PlatformList: strings.TrimSpace(field(record, ColPlatforms)),
		}
		if err := entry.Validate(); err != nil {
			rowErrs = append(rowErrs, &RowError{Line: line, Err: err})
			continue
		}
		entries = append(entries, entry)
	}

	return entries, rowErrs, nil
}
