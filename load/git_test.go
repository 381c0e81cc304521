package load

import (
	"context"
	"testing"

	"github.com/nickyhof/stressdb/core"
	"github.com/nickyhof/stressdb/ps"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGitLoader(t *testing.T) {
	persistence, err := ps.NewMemoryPersistence()
	require.NoError(t, err)

	source, err := BuildTable("Table-1A", sheet(t, ferrousCSV), sheet(t, notesCSV), DefaultLayout)
	require.NoError(t, err)
	_, err = persistence.SaveTable(source, core.Identity{Name: "test", Email: "test@test.com"})
	require.NoError(t, err)

	loader := &GitLoader{Persistence: persistence}
	table, err := loader.Load(context.Background(), "Table-1A")
	require.NoError(t, err)

	assert.Equal(t, source.TemperaturesC, table.TemperaturesC)
	assert.Equal(t, source.Records, table.Records)
	assert.Equal(t, source.Notes, table.Notes)
	assert.Equal(t, "git", SourceOf(loader))

	_, err = loader.Load(context.Background(), "Table-3")
	assert.ErrorIs(t, err, ps.ErrTableNotFound)
}
