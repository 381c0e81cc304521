package load

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/duckdb/duckdb-go/v2"
	"github.com/nickyhof/stressdb/core"
)

// DuckDBLoader reads sheets through an in-process DuckDB. Paths ending in
// .xlsx are read with read_xlsx from the excel extension, anything else
// with read_csv. Remote paths are downloaded to a temporary file first.
type DuckDBLoader struct {
	Path       string
	TableSheet string // xlsx sheet with the records, e.g. "Table-1A"
	NotesSheet string // xlsx sheet with the notes, e.g. "Notes-1A"
	NotesPath  string // separate notes file for csv sources
	Layout     Layout
	S3         *S3Config
}

func (l *DuckDBLoader) Source() string {
	return "duckdb"
}

func (l *DuckDBLoader) Load(ctx context.Context, variant string) (*core.MaterialTable, error) {
	db, err := sql.Open("duckdb", "")
	if err != nil {
		return nil, fmt.Errorf("failed to open duckdb: %w", err)
	}
	defer db.Close()

	tablePath, cleanup, err := l.localCopy(ctx, l.Path)
	if err != nil {
		return nil, err
	}
	defer cleanup()

	xlsx := strings.EqualFold(filepath.Ext(tablePath), ".xlsx")
	if xlsx {
		if _, err := db.ExecContext(ctx, "INSTALL excel; LOAD excel;"); err != nil {
			return nil, fmt.Errorf("failed to load duckdb excel extension: %w", err)
		}
	}

	data, err := readDuckDBSheet(ctx, db, sheetSource(tablePath, l.TableSheet, xlsx))
	if err != nil {
		return nil, fmt.Errorf("failed to read table %s: %w", variant, err)
	}

	var notes Sheet
	switch {
	case xlsx && l.NotesSheet != "":
		notes, err = readDuckDBSheet(ctx, db, sheetSource(tablePath, l.NotesSheet, true))
	case l.NotesPath != "":
		notesPath, cleanupNotes, copyErr := l.localCopy(ctx, l.NotesPath)
		if copyErr != nil {
			return nil, copyErr
		}
		defer cleanupNotes()
		notes, err = readDuckDBSheet(ctx, db, sheetSource(notesPath, "", false))
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read notes of %s: %w", variant, err)
	}

	return BuildTable(variant, data, notes, l.Layout)
}

// localCopy returns a local path for path, downloading remote files into a
// temporary file that cleanup removes.
func (l *DuckDBLoader) localCopy(ctx context.Context, path string) (string, func(), error) {
	if IsLocal(path) {
		return LocalPath(path), func() {}, nil
	}

	reader, err := OpenReader(ctx, path, l.S3)
	if err != nil {
		return "", nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer reader.Close()

	tmp, err := os.CreateTemp("", "stressdb-*"+filepath.Ext(path))
	if err != nil {
		return "", nil, err
	}
	cleanup := func() { os.Remove(tmp.Name()) }

	if _, err := io.Copy(tmp, reader); err != nil {
		tmp.Close()
		cleanup()
		return "", nil, fmt.Errorf("failed to download %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return "", nil, err
	}
	return tmp.Name(), cleanup, nil
}

// sheetSource returns the table function reading every cell as text with
// no header detection, so the header comes back as the first row.
func sheetSource(path, sheet string, xlsx bool) string {
	if xlsx {
		return fmt.Sprintf("read_xlsx(%s, sheet = %s, header = false, all_varchar = true)", quote(path), quote(sheet))
	}
	return fmt.Sprintf("read_csv(%s, header = false, all_varchar = true)", quote(path))
}

func quote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

func readDuckDBSheet(ctx context.Context, db *sql.DB, source string) (Sheet, error) {
	rows, err := db.QueryContext(ctx, "SELECT * FROM "+source)
	if err != nil {
		return Sheet{}, err
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return Sheet{}, err
	}

	values := make([]sql.NullString, len(columns))
	dest := make([]any, len(columns))
	for i := range values {
		dest[i] = &values[i]
	}

	var all [][]string
	for rows.Next() {
		if err := rows.Scan(dest...); err != nil {
			return Sheet{}, err
		}
		row := make([]string, len(values))
		for i, v := range values {
			row[i] = v.String
		}
		all = append(all, row)
	}
	if err := rows.Err(); err != nil {
		return Sheet{}, err
	}

	if len(all) == 0 {
		return Sheet{}, nil
	}
	return Sheet{Header: all[0], Rows: all[1:]}, nil
}
