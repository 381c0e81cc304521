package core

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/hashicorp/go-multierror"
)

// StressValue is the published allowable stress at one axis temperature.
// The zero value is undefined (no published value), which is not the same
// as a defined stress of 0 MPa.
type StressValue struct {
	MPa     float64
	Defined bool
}

// Defined returns a defined stress value.
func Defined(mpa float64) StressValue {
	return StressValue{MPa: mpa, Defined: true}
}

// Undefined is the value of a cell with no published stress.
var Undefined = StressValue{}

func (v StressValue) MarshalJSON() ([]byte, error) {
	if !v.Defined {
		return []byte("null"), nil
	}
	return json.Marshal(v.MPa)
}

func (v *StressValue) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*v = Undefined
		return nil
	}
	var mpa float64
	if err := json.Unmarshal(data, &mpa); err != nil {
		return fmt.Errorf("invalid stress value %s: %w", data, err)
	}
	*v = Defined(mpa)
	return nil
}

// MaterialRecord is one row of a reference table.
type MaterialRecord struct {
	Key string `json:"key"`

	Composition string `json:"composition,omitempty"`
	Product     string `json:"product,omitempty"`
	SpecNo      string `json:"specNo,omitempty"`
	TypeGrade   string `json:"typeGrade,omitempty"`
	Class       string `json:"class,omitempty"`
	SizeTck     string `json:"sizeTck,omitempty"`

	PNo                     string `json:"pNo,omitempty"`
	GroupNo                 string `json:"groupNo,omitempty"`
	MinTensileStrengthMPa   string `json:"minTensileStrengthMPa,omitempty"`
	MinYieldStrengthMPa     string `json:"minYieldStrengthMPa,omitempty"`
	MaxTempLimitC           string `json:"maxTempLimitC,omitempty"`
	ExternalPressureChartNo string `json:"externalPressureChartNo,omitempty"`

	NoteCodes []string      `json:"noteCodes,omitempty"`
	Stress    []StressValue `json:"stress"`
}

// Attribute returns the record's value for a filter attribute. An empty
// string means the cell is absent.
func (r MaterialRecord) Attribute(a Attribute) string {
	switch a {
	case Composition:
		return r.Composition
	case Product:
		return r.Product
	case SpecNo:
		return r.SpecNo
	case TypeGrade:
		return r.TypeGrade
	case Class:
		return r.Class
	case SizeTck:
		return r.SizeTck
	default:
		return ""
	}
}

// SetAttribute sets the record's value for a filter attribute.
func (r *MaterialRecord) SetAttribute(a Attribute, value string) {
	switch a {
	case Composition:
		r.Composition = value
	case Product:
		r.Product = value
	case SpecNo:
		r.SpecNo = value
	case TypeGrade:
		r.TypeGrade = value
	case Class:
		r.Class = value
	case SizeTck:
		r.SizeTck = value
	}
}

// ParseNoteCodes splits a comma-separated notes cell into codes, keeping
// order and duplicates and skipping blank items.
func ParseNoteCodes(field string) []string {
	var codes []string
	for _, part := range strings.Split(field, ",") {
		if code := strings.TrimSpace(part); code != "" {
			codes = append(codes, code)
		}
	}
	return codes
}

type NoteEntry struct {
	Code   string `json:"code"`
	Detail string `json:"detail"`
}

// MaterialTable is one loaded table variant. It is never mutated after it
// has been loaded and may be shared between sessions without locking.
type MaterialTable struct {
	Variant       string               `json:"variant"`
	Title         string               `json:"title,omitempty"`
	TemperaturesC []float64            `json:"temperaturesC"`
	Records       []MaterialRecord     `json:"records"`
	Notes         map[string]NoteEntry `json:"notes"`
}

// Note looks up a note code in the table's dictionary.
func (t *MaterialTable) Note(code string) (NoteEntry, bool) {
	entry, ok := t.Notes[code]
	return entry, ok
}

// Validate checks the shared-axis invariant: the axis is strictly
// increasing and every record has exactly one stress value per axis point.
// All violations are reported together.
func (t *MaterialTable) Validate() error {
	var result *multierror.Error

	if reason, ok := CheckAxis(t.TemperaturesC); !ok {
		result = multierror.Append(result, &DataIntegrityError{
			Variant: t.Variant,
			Reason:  "temperature axis " + reason,
		})
	}

	for _, record := range t.Records {
		if len(record.Stress) != len(t.TemperaturesC) {
			result = multierror.Append(result, &DataIntegrityError{
				Variant: t.Variant,
				Record:  record.Key,
				Reason:  fmt.Sprintf("%d stress values for %d temperatures", len(record.Stress), len(t.TemperaturesC)),
			})
		}
	}

	return result.ErrorOrNil()
}

// CheckAxis reports whether axis is finite and strictly increasing. When it
// is not, reason names the first offending point.
func CheckAxis(axis []float64) (reason string, ok bool) {
	for i, temp := range axis {
		if math.IsNaN(temp) || math.IsInf(temp, 0) {
			return fmt.Sprintf("has non-finite value %g at point %d", temp, i), false
		}
		// written so that NaN fails it too
		if i > 0 && !(temp > axis[i-1]) {
			return fmt.Sprintf("not strictly increasing at point %d (%g after %g)", i, temp, axis[i-1]), false
		}
	}
	return "", true
}

// StressCurve is a temperature to stress mapping with every point defined.
// The two slices are index aligned.
type StressCurve struct {
	TemperaturesC []float64 `json:"temperaturesC"`
	StressesMPa   []float64 `json:"stressesMPa"`
}

func (c StressCurve) Len() int {
	return len(c.TemperaturesC)
}

func (c StressCurve) IsEmpty() bool {
	return len(c.TemperaturesC) == 0
}

// Domain returns the lowest and highest temperature of the curve.
// It returns zeros for an empty curve.
func (c StressCurve) Domain() (minC, maxC float64) {
	if len(c.TemperaturesC) == 0 {
		return 0, 0
	}
	return c.TemperaturesC[0], c.TemperaturesC[len(c.TemperaturesC)-1]
}
