package load

import (
	"errors"
	"strings"
	"testing"

	"github.com/nickyhof/stressdb/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const ferrousCSV = `Composition,Product,Spec No,Type/Grade,Class,Size/Tck,P-No.,Group No.,Min. Tensile,Min. Yield,Max. Temp,Ext. Chart,Notes,40,100,150,200
Carbon steel,Plate,SA-516,60,,,1,1,415,220,540,CS-2,"G10, T2",118,118,118,118
Carbon steel,Plate,SA-516,70,,,1,2,485,260,540,CS-2,"G10, T2, G5",138,138,138,136
Carbon steel,Pipe,SA-106,B,,,1,1,415,240,540,CS-2,G10,118,118,118,
,,,,,,,,,,,,,,,,
Low alloy,Plate,SA-387,11,2,,4,1,515,310,650,CS-2,T2,138,135,0,-
`

const notesCSV = `No,Type,Code,Page,Detail
1,General,G10,1,Upon prolonged exposure to temperatures above 425°C...
2,Temperature,T2,3,Allowable stresses for temperatures of 370°C and above...
3,General,G10,1,Duplicate entry
4,General,,1,No code
`

func sheet(t *testing.T, text string) Sheet {
	t.Helper()
	s, err := ReadCSV(strings.NewReader(text))
	require.NoError(t, err)
	return s
}

func TestBuildTable(t *testing.T) {
	table, err := BuildTable("Table-1A", sheet(t, ferrousCSV), sheet(t, notesCSV), DefaultLayout)
	require.NoError(t, err)

	assert.Equal(t, "Table-1A", table.Variant)
	assert.Equal(t, []float64{40, 100, 150, 200}, table.TemperaturesC)
	require.Len(t, table.Records, 4)

	first := table.Records[0]
	assert.Equal(t, "000001", first.Key)
	assert.Equal(t, "Carbon steel", first.Composition)
	assert.Equal(t, "60", first.TypeGrade)
	assert.Equal(t, "", first.Class)
	assert.Equal(t, "415", first.MinTensileStrengthMPa)
	assert.Equal(t, "CS-2", first.ExternalPressureChartNo)
	assert.Equal(t, []string{"G10", "T2"}, first.NoteCodes)

	// Missing trailing cell is undefined
	assert.Equal(t, core.Undefined, table.Records[2].Stress[3])

	// The blank row is skipped and keys stay contiguous
	lowAlloy := table.Records[3]
	assert.Equal(t, "000004", lowAlloy.Key)
	assert.Equal(t, "2", lowAlloy.Class)
	assert.Equal(t, []core.StressValue{core.Defined(138), core.Defined(135), core.Defined(0), core.Undefined}, lowAlloy.Stress)

	require.Len(t, table.Notes, 2)
	assert.Equal(t, "Upon prolonged exposure to temperatures above 425°C...", table.Notes["G10"].Detail)
}

func TestBuildTableCustomNoteColumns(t *testing.T) {
	notes := Sheet{Header: []string{"Code", "Detail"}, Rows: [][]string{{"G10", "custom"}}}
	layout := Layout{AxisStart: 13, NoteCode: 0, NoteDetail: 1}

	table, err := BuildTable("Table-1A", sheet(t, ferrousCSV), notes, layout)
	require.NoError(t, err)
	assert.Equal(t, "custom", table.Notes["G10"].Detail)
}

func TestBuildTableNonNumericHeader(t *testing.T) {
	data := Sheet{Header: []string{"a", "b", "c", "d", "e", "f", "g", "h", "i", "j", "k", "l", "m", "40", "hot"}}

	_, err := BuildTable("Table-1A", data, Sheet{}, DefaultLayout)
	require.ErrorIs(t, err, core.ErrDataIntegrity)
	assert.Contains(t, err.Error(), "hot")
}

func TestBuildTableNonFiniteHeader(t *testing.T) {
	for _, header := range []string{"NaN", "Inf", "-inf", "+Infinity"} {
		text := strings.Replace(ferrousCSV, "40,100,150,200", "40,"+header+",150,200", 1)

		_, err := BuildTable("Table-1A", sheet(t, text), Sheet{}, DefaultLayout)
		require.ErrorIs(t, err, core.ErrDataIntegrity, header)
		assert.Contains(t, err.Error(), header)
	}
}

func TestBuildTableNoAxis(t *testing.T) {
	data := Sheet{Header: []string{"Composition", "Product"}}

	_, err := BuildTable("Table-1A", data, Sheet{}, DefaultLayout)
	assert.ErrorIs(t, err, core.ErrDataIntegrity)
}

func TestBuildTableDecreasingAxis(t *testing.T) {
	text := strings.Replace(ferrousCSV, "40,100,150,200", "40,100,90,200", 1)

	_, err := BuildTable("Table-1A", sheet(t, text), Sheet{}, DefaultLayout)
	assert.ErrorIs(t, err, core.ErrDataIntegrity)
}

func TestBuildTableValuesBeyondAxis(t *testing.T) {
	text := ferrousCSV + "Low alloy,Plate,SA-387,22,1,,5A,1,415,205,650,CS-2,,130,128,125,120,999\n"

	_, err := BuildTable("Table-1A", sheet(t, text), Sheet{}, DefaultLayout)
	require.Error(t, err)

	var integrity *core.DataIntegrityError
	require.True(t, errors.As(err, &integrity))
	assert.Equal(t, "000005", integrity.Record)
}

func TestParseStress(t *testing.T) {
	assert.Equal(t, core.Defined(0), parseStress("0"))
	assert.Equal(t, core.Defined(118.5), parseStress(" 118.5 "))
	assert.Equal(t, core.Undefined, parseStress(""))
	assert.Equal(t, core.Undefined, parseStress("-"))
	assert.Equal(t, core.Undefined, parseStress("NaN"))
	assert.Equal(t, core.Undefined, parseStress("Inf"))
}
