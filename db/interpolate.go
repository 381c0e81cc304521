package db

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/nickyhof/stressdb/core"
)

var ErrInvalidTemperature = errors.New("invalid temperature")

// Interpolation is a stress read off a curve at one temperature. Clamped is
// set when the temperature lay outside the curve and the nearest endpoint
// was used.
type Interpolation struct {
	TemperatureC float64 `json:"temperatureC"`
	StressMPa    float64 `json:"stressMPa"`
	Clamped      bool    `json:"clamped"`
}

// Interpolate evaluates curve at targetC by piecewise linear interpolation.
// Targets outside the curve clamp to the nearest endpoint; a target on a
// knot returns that knot's stress exactly.
func Interpolate(curve core.StressCurve, targetC float64) (Interpolation, error) {
	temps, stresses := curve.TemperaturesC, curve.StressesMPa

	if len(temps) != len(stresses) {
		return Interpolation{}, &core.DataIntegrityError{
			Reason: fmt.Sprintf("curve has %d temperatures and %d stresses", len(temps), len(stresses)),
		}
	}
	if len(temps) == 0 {
		return Interpolation{}, core.ErrEmptyCurve
	}
	if math.IsNaN(targetC) {
		return Interpolation{}, fmt.Errorf("%w: NaN", ErrInvalidTemperature)
	}
	if reason, ok := core.CheckAxis(temps); !ok {
		return Interpolation{}, &core.DataIntegrityError{Reason: "curve temperatures " + reason}
	}
	for i, stress := range stresses {
		if math.IsNaN(stress) || math.IsInf(stress, 0) {
			return Interpolation{}, &core.DataIntegrityError{
				Reason: fmt.Sprintf("curve stress %g at point %d is not finite", stress, i),
			}
		}
	}

	result := Interpolation{TemperatureC: targetC}
	last := len(temps) - 1

	switch {
	case targetC <= temps[0]:
		result.StressMPa = stresses[0]
		result.Clamped = targetC < temps[0]
	case targetC >= temps[last]:
		result.StressMPa = stresses[last]
		result.Clamped = targetC > temps[last]
	default:
		hi := sort.SearchFloat64s(temps, targetC)
		if temps[hi] == targetC {
			result.StressMPa = stresses[hi]
			break
		}
		lo := hi - 1
		result.StressMPa = stresses[lo] + (stresses[hi]-stresses[lo])*(targetC-temps[lo])/(temps[hi]-temps[lo])
	}
	return result, nil
}
