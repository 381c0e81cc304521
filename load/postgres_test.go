package load

import (
	"context"
	"os"
	"testing"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nickyhof/stressdb/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUsesVariantParam(t *testing.T) {
	assert.True(t, usesVariantParam("SELECT * FROM rows WHERE variant = $1"))
	assert.True(t, usesVariantParam("SELECT * FROM rows WHERE variant = $1 ORDER BY n"))
	assert.False(t, usesVariantParam("SELECT * FROM rows WHERE n = $10"))
	assert.False(t, usesVariantParam("SELECT * FROM rows"))
}

func TestCellText(t *testing.T) {
	var numeric pgtype.Numeric
	require.NoError(t, numeric.Scan("118.5"))

	assert.Equal(t, "", cellText(nil))
	assert.Equal(t, "SA-516", cellText("SA-516"))
	assert.Equal(t, "138", cellText(float64(138)))
	assert.Equal(t, "118.5", cellText(numeric))
	assert.Equal(t, "7", cellText(int32(7)))
}

func TestPostgresLoader(t *testing.T) {
	dsn := os.Getenv("STRESSDB_PG_DSN")
	if dsn == "" {
		t.Skip("STRESSDB_PG_DSN not set")
	}
	ctx := context.Background()

	pool, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err)
	defer pool.Close()

	_, err = pool.Exec(ctx, `
		CREATE TABLE stressdb_test_rows (
			variant text, n int, composition text, product text, spec_no text, type_grade text,
			class text, size_tck text, p_no text, group_no text, tensile text, yield text,
			max_temp text, chart text, notes text, "40" numeric, "100" numeric
		)`)
	require.NoError(t, err)
	t.Cleanup(func() { _, _ = pool.Exec(context.Background(), "DROP TABLE IF EXISTS stressdb_test_rows") })

	_, err = pool.Exec(ctx, `
		INSERT INTO stressdb_test_rows VALUES
			('Table-1A', 1, 'Carbon steel', 'Plate', 'SA-516', '70', NULL, NULL, '1', '2', '485', '260', '540', 'CS-2', 'G10', 138, 138),
			('Table-1A', 2, 'Carbon steel', 'Pipe', 'SA-106', 'B', NULL, NULL, '1', '1', '415', '240', '540', 'CS-2', NULL, 118, NULL),
			('Table-3', 1, 'Low alloy', 'Bolt', 'SA-193', 'B7', NULL, NULL, '', '', '860', '720', '540', '', NULL, 172, 172)`)
	require.NoError(t, err)

	loader := &PostgresLoader{
		DSN: dsn,
		TableQuery: `SELECT composition, product, spec_no, type_grade, class, size_tck, p_no, group_no,
			tensile, yield, max_temp, chart, notes, "40", "100" FROM stressdb_test_rows WHERE variant = $1 ORDER BY n`,
		NotesQuery: `SELECT 1 AS no, 'General' AS type, 'G10' AS code, 1 AS page, 'Upon prolonged exposure' AS detail`,
	}

	table, err := loader.Load(ctx, "Table-1A")
	require.NoError(t, err)

	assert.Equal(t, []float64{40, 100}, table.TemperaturesC)
	require.Len(t, table.Records, 2)
	assert.Equal(t, "SA-516", table.Records[0].SpecNo)
	assert.Equal(t, "", table.Records[0].Class)
	assert.Equal(t, []core.StressValue{core.Defined(118), core.Undefined}, table.Records[1].Stress)
	assert.Equal(t, "Upon prolonged exposure", table.Notes["G10"].Detail)
}
