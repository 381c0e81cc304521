package load

import (
	"context"
	"fmt"
	"strconv"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nickyhof/stressdb/core"
	"go.uber.org/zap"
)

// PostgresLoader reads a table from PostgreSQL. TableQuery returns the
// records in sheet layout; its column names are the header, so the stress
// columns must be named by their temperatures. NotesQuery returns the
// notes sheet.
type PostgresLoader struct {
	DSN        string
	TableQuery string
	NotesQuery string
	Layout     Layout
	Logger     *zap.Logger
}

func (l *PostgresLoader) Source() string {
	return "postgres"
}

func (l *PostgresLoader) Load(ctx context.Context, variant string) (*core.MaterialTable, error) {
	pool, err := pgxpool.New(ctx, l.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}
	defer pool.Close()

	data, err := queryPostgresSheet(ctx, pool, l.TableQuery, variant)
	if err != nil {
		return nil, fmt.Errorf("failed to query table %s: %w", variant, err)
	}

	var notes Sheet
	if l.NotesQuery != "" {
		if notes, err = queryPostgresSheet(ctx, pool, l.NotesQuery, variant); err != nil {
			return nil, fmt.Errorf("failed to query notes of %s: %w", variant, err)
		}
	}

	if l.Logger != nil {
		l.Logger.Debug("queried table from postgres",
			zap.String("variant", variant),
			zap.Int("rows", len(data.Rows)),
			zap.Int("notes", len(notes.Rows)))
	}
	return BuildTable(variant, data, notes, l.Layout)
}

// queryPostgresSheet runs query and returns its column names as the header
// and every value as text. NULL becomes an empty cell. The query may refer
// to the variant id as $1.
func queryPostgresSheet(ctx context.Context, pool *pgxpool.Pool, query, variant string) (Sheet, error) {
	var args []any
	if usesVariantParam(query) {
		args = append(args, variant)
	}

	rows, err := pool.Query(ctx, query, args...)
	if err != nil {
		return Sheet{}, err
	}
	defer rows.Close()

	var sheet Sheet
	for _, field := range rows.FieldDescriptions() {
		sheet.Header = append(sheet.Header, field.Name)
	}

	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return Sheet{}, err
		}
		row := make([]string, len(values))
		for i, v := range values {
			row[i] = cellText(v)
		}
		sheet.Rows = append(sheet.Rows, row)
	}
	return sheet, rows.Err()
}

func cellText(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32)
	case pgtype.Numeric:
		f, err := x.Float64Value()
		if err != nil || !f.Valid {
			return ""
		}
		return strconv.FormatFloat(f.Float64, 'f', -1, 64)
	default:
		return fmt.Sprint(x)
	}
}

func usesVariantParam(query string) bool {
	for i := 0; i+1 < len(query); i++ {
		if query[i] == '$' && query[i+1] == '1' && (i+2 == len(query) || query[i+2] < '0' || query[i+2] > '9') {
			return true
		}
	}
	return false
}
