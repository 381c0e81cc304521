package core

import (
	"errors"
	"fmt"
)

var (
	ErrDataIntegrity     = errors.New("data integrity violation")
	ErrEmptyCandidateSet = errors.New("no material records match the selection")
	ErrUndefinedCurve    = errors.New("no defined stress values for the selection")
	ErrEmptyCurve        = errors.New("curve has no points")
	ErrUnknownAttribute  = errors.New("unknown attribute")
	ErrUnknownVariant    = errors.New("unknown table variant")
)

// DataIntegrityError reports a malformed source table: a stress series that
// does not line up with the temperature axis, or an axis that is not
// strictly increasing. It aborts the query that hit it.
type DataIntegrityError struct {
	Variant string
	Record  string // record key, empty for table-level problems
	Reason  string
}

func (e *DataIntegrityError) Error() string {
	switch {
	case e.Variant != "" && e.Record != "":
		return fmt.Sprintf("data integrity violation in %s record %s: %s", e.Variant, e.Record, e.Reason)
	case e.Variant != "":
		return fmt.Sprintf("data integrity violation in %s: %s", e.Variant, e.Reason)
	default:
		return fmt.Sprintf("data integrity violation: %s", e.Reason)
	}
}

func (e *DataIntegrityError) Is(target error) bool {
	return target == ErrDataIntegrity
}
