package load

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"

	"github.com/nickyhof/stressdb/core"
)

// CSVLoader reads a table and its notes from two CSV files, each with a
// header row. Paths may be local or remote (see OpenReader).
type CSVLoader struct {
	TablePath string
	NotesPath string
	Layout    Layout
	S3        *S3Config
}

func (l *CSVLoader) Source() string {
	return "csv"
}

func (l *CSVLoader) Load(ctx context.Context, variant string) (*core.MaterialTable, error) {
	data, err := l.readSheet(ctx, l.TablePath)
	if err != nil {
		return nil, err
	}

	var notes Sheet
	if l.NotesPath != "" {
		if notes, err = l.readSheet(ctx, l.NotesPath); err != nil {
			return nil, err
		}
	}

	return BuildTable(variant, data, notes, l.Layout)
}

func (l *CSVLoader) readSheet(ctx context.Context, path string) (Sheet, error) {
	reader, err := OpenReader(ctx, path, l.S3)
	if err != nil {
		return Sheet{}, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer reader.Close()

	return ReadCSV(reader)
}

// ReadCSV reads a header row and data rows. Rows may have differing
// lengths; missing trailing cells read as empty.
func ReadCSV(r io.Reader) (Sheet, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	rows, err := reader.ReadAll()
	if err != nil {
		return Sheet{}, fmt.Errorf("failed to read CSV: %w", err)
	}
	if len(rows) == 0 {
		return Sheet{}, nil
	}
	return Sheet{Header: rows[0], Rows: rows[1:]}, nil
}
