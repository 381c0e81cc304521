package db

import (
	"fmt"
	"io"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/ipc"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/nickyhof/stressdb/core"
)

// CurveSchema is the Arrow layout of an exported stress curve.
var CurveSchema = arrow.NewSchema([]arrow.Field{
	{Name: "temperature_c", Type: arrow.PrimitiveTypes.Float64},
	{Name: "stress_mpa", Type: arrow.PrimitiveTypes.Float64},
}, nil)

// CurveRecord builds an Arrow record from a curve. The caller releases it.
func CurveRecord(curve core.StressCurve, pool memory.Allocator) (arrow.Record, error) {
	if curve.Len() != len(curve.StressesMPa) {
		return nil, &core.DataIntegrityError{
			Reason: fmt.Sprintf("curve has %d temperatures and %d stresses", curve.Len(), len(curve.StressesMPa)),
		}
	}
	if pool == nil {
		pool = memory.NewGoAllocator()
	}

	builder := array.NewRecordBuilder(pool, CurveSchema)
	defer builder.Release()

	builder.Field(0).(*array.Float64Builder).AppendValues(curve.TemperaturesC, nil)
	builder.Field(1).(*array.Float64Builder).AppendValues(curve.StressesMPa, nil)

	return builder.NewRecord(), nil
}

// WriteCurveIPC writes a curve as an Arrow IPC stream, for plotting tools
// that read Arrow directly.
func WriteCurveIPC(w io.Writer, curve core.StressCurve) error {
	record, err := CurveRecord(curve, nil)
	if err != nil {
		return err
	}
	defer record.Release()

	writer := ipc.NewWriter(w, ipc.WithSchema(CurveSchema))
	if err := writer.Write(record); err != nil {
		writer.Close()
		return fmt.Errorf("failed to write curve: %w", err)
	}
	return writer.Close()
}

// ReadCurveIPC reads back a curve written by WriteCurveIPC.
func ReadCurveIPC(r io.Reader) (core.StressCurve, error) {
	reader, err := ipc.NewReader(r, ipc.WithSchema(CurveSchema))
	if err != nil {
		return core.StressCurve{}, fmt.Errorf("failed to open curve stream: %w", err)
	}
	defer reader.Release()

	var curve core.StressCurve
	for reader.Next() {
		record := reader.Record()
		temps := record.Column(0).(*array.Float64)
		stresses := record.Column(1).(*array.Float64)
		for i := 0; i < int(record.NumRows()); i++ {
			curve.TemperaturesC = append(curve.TemperaturesC, temps.Value(i))
			curve.StressesMPa = append(curve.StressesMPa, stresses.Value(i))
		}
	}
	if err := reader.Err(); err != nil {
		return core.StressCurve{}, fmt.Errorf("failed to read curve stream: %w", err)
	}
	return curve, nil
}
