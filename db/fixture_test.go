package db

import (
	"github.com/nickyhof/stressdb/core"
)

func stress(values ...float64) []core.StressValue {
	out := make([]core.StressValue, len(values))
	for i, v := range values {
		if v < 0 {
			out[i] = core.Undefined
		} else {
			out[i] = core.Defined(v)
		}
	}
	return out
}

// u marks an undefined point in stress().
const u = -1

func record(key, composition, product, specNo, typeGrade, class, sizeTck string, values []core.StressValue, notes ...string) core.MaterialRecord {
	return core.MaterialRecord{
		Key:         key,
		Composition: composition,
		Product:     product,
		SpecNo:      specNo,
		TypeGrade:   typeGrade,
		Class:       class,
		SizeTck:     sizeTck,
		PNo:         "1",
		GroupNo:     "1",
		NoteCodes:   notes,
		Stress:      values,
	}
}

func ferrousTable() *core.MaterialTable {
	return &core.MaterialTable{
		Variant:       "Table-1A",
		Title:         "Ferrous materials",
		TemperaturesC: []float64{40, 100, 150, 200},
		Records: []core.MaterialRecord{
			record("000001", "Carbon steel", "Plate", "SA-516", "60", "", "", stress(118, 118, 118, 118)),
			record("000002", "Carbon steel", "Plate", "SA-516", "70", "", "", stress(138, 138, 138, 136), "G10", "T2", "G5"),
			record("000003", "Carbon steel", "Pipe", "SA-106", "B", "", "", stress(118, 118, 118, u), "G10"),
			record("000004", "Carbon steel", "Pipe", "SA-106", "C", "", "", stress(138, 138, 138, 130)),
			record("000005", "Low alloy", "Plate", "SA-387", "11", "2", "", stress(138, 135, 130, 126), "T2"),
			record("000006", "Low alloy", "Plate", "SA-387", "11", "2", "t<=50", stress(u, u, u, u)),
		},
		Notes: map[string]core.NoteEntry{
			"G10": {Code: "G10", Detail: "Upon prolonged exposure to temperatures above 425°C..."},
			"T2":  {Code: "T2", Detail: "Allowable stresses for temperatures of 370°C and above..."},
		},
	}
}
