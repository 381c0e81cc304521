package db

import (
	"fmt"

	"github.com/nickyhof/stressdb/core"
)

// CurveStatus tells a usable curve apart from the two no-data states.
type CurveStatus int

const (
	CurveOK CurveStatus = iota
	// CurveNoCandidates: the selection matched no records.
	CurveNoCandidates
	// CurveUndefined: records matched but none has a published stress.
	CurveUndefined
)

func (s CurveStatus) String() string {
	switch s {
	case CurveOK:
		return "ok"
	case CurveNoCandidates:
		return "no candidates"
	case CurveUndefined:
		return "undefined"
	default:
		return fmt.Sprintf("CurveStatus(%d)", int(s))
	}
}

func (s CurveStatus) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Err maps the no-data states to their sentinel errors.
func (s CurveStatus) Err() error {
	switch s {
	case CurveNoCandidates:
		return core.ErrEmptyCandidateSet
	case CurveUndefined:
		return core.ErrUndefinedCurve
	default:
		return nil
	}
}

type CurveResult struct {
	Status  CurveStatus      `json:"status"`
	Curve   core.StressCurve `json:"curve"`
	Records int              `json:"records"`
}

// Aggregate collapses records sharing axis into one curve. Each temperature
// point is the mean over the records that publish a value there; points no
// record publishes are dropped from both sequences. A single record yields
// its own defined points unchanged.
//
// A non-increasing axis or a record whose stress series does not match the
// axis length is a *core.DataIntegrityError.
func Aggregate(axis []float64, records []core.MaterialRecord) (CurveResult, error) {
	if reason, ok := core.CheckAxis(axis); !ok {
		return CurveResult{}, &core.DataIntegrityError{Reason: "temperature axis " + reason}
	}

	if len(records) == 0 {
		return CurveResult{Status: CurveNoCandidates}, nil
	}

	sums := make([]float64, len(axis))
	counts := make([]int, len(axis))

	for _, record := range records {
		if len(record.Stress) != len(axis) {
			return CurveResult{}, &core.DataIntegrityError{
				Record: record.Key,
				Reason: fmt.Sprintf("%d stress values for %d temperatures", len(record.Stress), len(axis)),
			}
		}
		for i, v := range record.Stress {
			if v.Defined {
				sums[i] += v.MPa
				counts[i]++
			}
		}
	}

	result := CurveResult{Records: len(records)}
	for i, n := range counts {
		if n == 0 {
			continue
		}
		result.Curve.TemperaturesC = append(result.Curve.TemperaturesC, axis[i])
		result.Curve.StressesMPa = append(result.Curve.StressesMPa, sums[i]/float64(n))
	}

	if result.Curve.IsEmpty() {
		result.Status = CurveUndefined
	}
	return result, nil
}

// AggregateTable aggregates records of table, tagging integrity errors with
// the table's variant.
func AggregateTable(table *core.MaterialTable, records []core.MaterialRecord) (CurveResult, error) {
	result, err := Aggregate(table.TemperaturesC, records)
	if integrity, ok := err.(*core.DataIntegrityError); ok {
		integrity.Variant = table.Variant
	}
	return result, err
}
