package load

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/nickyhof/stressdb/core"
	"github.com/nickyhof/stressdb/ps"
)

// Layout locates the fields of a table in a row of cells. Column indexes
// are zero based.
type Layout struct {
	// AxisStart is the first stress column; its header and every header
	// after it is an axis temperature.
	AxisStart int `yaml:"axisStart"`
	// NoteCode and NoteDetail are the code and text columns of the notes sheet.
	NoteCode   int `yaml:"noteCode"`
	NoteDetail int `yaml:"noteDetail"`
}

// DefaultLayout is the layout of the published Table-1A and Table-3 sheets.
var DefaultLayout = Layout{AxisStart: 13, NoteCode: 2, NoteDetail: 4}

const (
	colPNo = 6 + iota
	colGroupNo
	colTensile
	colYield
	colMaxTemp
	colChart
	colNotes
)

func (l Layout) withDefaults() Layout {
	if l.AxisStart == 0 {
		l.AxisStart = DefaultLayout.AxisStart
	}
	if l.NoteCode == 0 && l.NoteDetail == 0 {
		l.NoteCode, l.NoteDetail = DefaultLayout.NoteCode, DefaultLayout.NoteDetail
	}
	return l
}

// Sheet is raw cell text: a header row followed by data rows.
type Sheet struct {
	Header []string
	Rows   [][]string
}

// BuildTable assembles a table from a data sheet and a notes sheet.
//
// Stress cells that are empty or not numeric are undefined; "0" is a
// defined zero. Blank data rows are skipped and record keys follow the
// remaining rows in order. Notes rows without a code are skipped and the
// first entry for a code wins.
func BuildTable(variant string, data Sheet, notes Sheet, layout Layout) (*core.MaterialTable, error) {
	layout = layout.withDefaults()

	axis, err := parseAxis(variant, data.Header, layout.AxisStart)
	if err != nil {
		return nil, err
	}

	table := &core.MaterialTable{
		Variant:       variant,
		TemperaturesC: axis,
		Notes:         make(map[string]core.NoteEntry),
	}

	for _, row := range data.Rows {
		if blank(row) {
			continue
		}
		key := ps.RecordKey(len(table.Records))
		record, err := parseRecord(key, row, len(axis), layout)
		if err != nil {
			return nil, &core.DataIntegrityError{Variant: variant, Record: key, Reason: err.Error()}
		}
		table.Records = append(table.Records, record)
	}

	for _, row := range notes.Rows {
		code := strings.TrimSpace(cell(row, layout.NoteCode))
		if code == "" {
			continue
		}
		if _, exists := table.Notes[code]; exists {
			continue
		}
		table.Notes[code] = core.NoteEntry{Code: code, Detail: strings.TrimSpace(cell(row, layout.NoteDetail))}
	}

	if err := table.Validate(); err != nil {
		return nil, err
	}
	return table, nil
}

func parseAxis(variant string, header []string, start int) ([]float64, error) {
	end := len(header)
	for end > start && strings.TrimSpace(header[end-1]) == "" {
		end--
	}
	if end <= start {
		return nil, &core.DataIntegrityError{Variant: variant, Reason: fmt.Sprintf("no temperature columns from column %d", start)}
	}

	axis := make([]float64, 0, end-start)
	for i := start; i < end; i++ {
		temp, err := strconv.ParseFloat(strings.TrimSpace(header[i]), 64)
		if err != nil || math.IsNaN(temp) || math.IsInf(temp, 0) {
			return nil, &core.DataIntegrityError{
				Variant: variant,
				Reason:  fmt.Sprintf("temperature header %q in column %d is not a number", header[i], i),
			}
		}
		axis = append(axis, temp)
	}
	return axis, nil
}

func parseRecord(key string, row []string, axisLen int, layout Layout) (core.MaterialRecord, error) {
	record := core.MaterialRecord{
		Key:                     key,
		PNo:                     strings.TrimSpace(cell(row, colPNo)),
		GroupNo:                 strings.TrimSpace(cell(row, colGroupNo)),
		MinTensileStrengthMPa:   strings.TrimSpace(cell(row, colTensile)),
		MinYieldStrengthMPa:     strings.TrimSpace(cell(row, colYield)),
		MaxTempLimitC:           strings.TrimSpace(cell(row, colMaxTemp)),
		ExternalPressureChartNo: strings.TrimSpace(cell(row, colChart)),
		NoteCodes:               core.ParseNoteCodes(cell(row, colNotes)),
	}
	for _, attr := range core.Attributes {
		record.SetAttribute(attr, strings.TrimSpace(cell(row, int(attr))))
	}

	for i := layout.AxisStart + axisLen; i < len(row); i++ {
		if strings.TrimSpace(row[i]) != "" {
			return record, fmt.Errorf("value %q in column %d lies beyond the temperature axis", row[i], i)
		}
	}

	record.Stress = make([]core.StressValue, axisLen)
	for i := range record.Stress {
		record.Stress[i] = parseStress(cell(row, layout.AxisStart+i))
	}
	return record, nil
}

func parseStress(text string) core.StressValue {
	mpa, err := strconv.ParseFloat(strings.TrimSpace(text), 64)
	if err != nil || math.IsNaN(mpa) || math.IsInf(mpa, 0) {
		return core.Undefined
	}
	return core.Defined(mpa)
}

func cell(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return row[i]
}

func blank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
