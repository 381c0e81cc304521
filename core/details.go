package core

import "strings"

// Details is the descriptive view of a material record, in the order the
// published tables present it.
type Details struct {
	Composition             string `json:"composition"`
	Product                 string `json:"product"`
	PNo                     string `json:"pNo"`
	GroupNo                 string `json:"groupNo"`
	MinTensileStrengthMPa   string `json:"minTensileStrengthMPa"`
	MinYieldStrengthMPa     string `json:"minYieldStrengthMPa"`
	MaxTempLimitC           string `json:"maxTempLimitC"`
	ExternalPressureChartNo string `json:"externalPressureChartNo"`
	Notes                   string `json:"notes"`
}

func DetailsOf(record MaterialRecord) Details {
	return Details{
		Composition:             record.Composition,
		Product:                 record.Product,
		PNo:                     record.PNo,
		GroupNo:                 record.GroupNo,
		MinTensileStrengthMPa:   record.MinTensileStrengthMPa,
		MinYieldStrengthMPa:     record.MinYieldStrengthMPa,
		MaxTempLimitC:           record.MaxTempLimitC,
		ExternalPressureChartNo: record.ExternalPressureChartNo,
		Notes:                   strings.Join(record.NoteCodes, ", "),
	}
}

// Rows returns label/value pairs for tabular display.
func (d Details) Rows() [][]string {
	return [][]string{
		{"Composition", d.Composition},
		{"Product", d.Product},
		{"P-No.", d.PNo},
		{"Group No.", d.GroupNo},
		{"Min. Tensile Strength, MPa", d.MinTensileStrengthMPa},
		{"Min. Yield Strength, MPa", d.MinYieldStrengthMPa},
		{"Applic. and Max. Temp. Limit (°C)", d.MaxTempLimitC},
		{"External Pressure Chart No.", d.ExternalPressureChartNo},
		{"Notes", d.Notes},
	}
}
