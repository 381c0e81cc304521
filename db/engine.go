package db

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/nickyhof/stressdb/core"
	"github.com/nickyhof/stressdb/query"
	"go.uber.org/zap"
)

var ErrNoVariant = errors.New("no table variant selected, run USE <variant>")

// Catalog is the set of table variants the engine can query. Tables it
// returns are shared and must not be modified.
type Catalog interface {
	Variants() []core.VariantInfo
	Table(ctx context.Context, variant string) (*core.MaterialTable, error)
}

// Engine answers lookups for sessions. Apart from the catalog's table cache
// it is stateless and safe for concurrent use.
type Engine struct {
	catalog Catalog
	logger  *zap.Logger
}

func NewEngine(catalog Catalog, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{catalog: catalog, logger: logger}
}

// InterpolationResult is an interpolated stress, or the reason there is none.
type InterpolationResult struct {
	Status CurveStatus `json:"status"`
	Interpolation
	DomainMinC float64 `json:"domainMinC"`
	DomainMaxC float64 `json:"domainMaxC"`
}

// Description is what the engine knows about the current selection: the
// explicit and implied selections and the representative record, which is
// the first candidate in table order.
type Description struct {
	Variant        string
	Selection      core.Selection
	Resolved       core.Selection
	Candidates     int
	Representative *core.MaterialRecord
	Curve          CurveResult
}

func (engine *Engine) Variants() []core.VariantInfo {
	return engine.catalog.Variants()
}

func (engine *Engine) table(ctx context.Context, session *Session) (*core.MaterialTable, error) {
	if session.Variant == "" {
		return nil, ErrNoVariant
	}
	return engine.catalog.Table(ctx, session.Variant)
}

// Use switches the session to variant after checking that it loads.
func (engine *Engine) Use(ctx context.Context, session *Session, variant string) error {
	if _, err := engine.catalog.Table(ctx, variant); err != nil {
		return err
	}
	session.Use(variant)
	return nil
}

func (engine *Engine) Options(ctx context.Context, session *Session, attr core.Attribute) ([]string, error) {
	table, err := engine.table(ctx, session)
	if err != nil {
		return nil, err
	}
	return NewFilter(table).Options(attr, session.Selection)
}

// Select sets attr to value in the session, or clears it when value is empty.
func (engine *Engine) Select(ctx context.Context, session *Session, attr core.Attribute, value string) error {
	table, err := engine.table(ctx, session)
	if err != nil {
		return err
	}

	sel, err := NewFilter(table).Apply(session.Selection, attr, value)
	if err != nil {
		return err
	}

	for _, dropped := range session.Selection.Selected() {
		if _, ok := sel.Get(dropped); !ok && dropped != attr {
			engine.logger.Debug("selection invalidated",
				zap.Stringer("session", session.ID),
				zap.Stringer("attribute", dropped))
		}
	}
	session.Selection = sel
	return nil
}

func (engine *Engine) Clear(ctx context.Context, session *Session, attr core.Attribute) error {
	return engine.Select(ctx, session, attr, "")
}

func (engine *Engine) Candidates(ctx context.Context, session *Session) ([]core.MaterialRecord, error) {
	table, err := engine.table(ctx, session)
	if err != nil {
		return nil, err
	}
	return NewFilter(table).Candidates(session.Selection), nil
}

func (engine *Engine) Curve(ctx context.Context, session *Session) (CurveResult, error) {
	table, err := engine.table(ctx, session)
	if err != nil {
		return CurveResult{}, err
	}
	return engine.curve(table, session)
}

func (engine *Engine) curve(table *core.MaterialTable, session *Session) (CurveResult, error) {
	result, err := AggregateTable(table, NewFilter(table).Candidates(session.Selection))
	if err != nil {
		engine.logger.Error("aggregation failed",
			zap.String("variant", table.Variant),
			zap.Stringer("session", session.ID),
			zap.Error(err))
	}
	return result, err
}

// Interpolate evaluates the session's curve at targetC. The no-data states
// come back as a Status, not as an error.
func (engine *Engine) Interpolate(ctx context.Context, session *Session, targetC float64) (InterpolationResult, error) {
	curve, err := engine.Curve(ctx, session)
	if err != nil {
		return InterpolationResult{}, err
	}
	if curve.Status != CurveOK {
		return InterpolationResult{Status: curve.Status, Interpolation: Interpolation{TemperatureC: targetC}}, nil
	}

	interpolation, err := Interpolate(curve.Curve, targetC)
	if err != nil {
		return InterpolationResult{}, err
	}

	minC, maxC := curve.Curve.Domain()
	return InterpolationResult{
		Status:        CurveOK,
		Interpolation: interpolation,
		DomainMinC:    minC,
		DomainMaxC:    maxC,
	}, nil
}

// Notes resolves the note codes of the representative record. With no
// candidates the result is empty.
func (engine *Engine) Notes(ctx context.Context, session *Session, strict bool) ([]NoteResolution, error) {
	table, err := engine.table(ctx, session)
	if err != nil {
		return nil, err
	}

	candidates := NewFilter(table).Candidates(session.Selection)
	if len(candidates) == 0 {
		return []NoteResolution{}, nil
	}

	opts := []NoteOption{WithUnresolvedHandler(func(code string) {
		engine.logger.Warn("unresolved note code",
			zap.String("variant", table.Variant),
			zap.String("record", candidates[0].Key),
			zap.String("code", code))
	})}
	if strict {
		opts = append(opts, WithStrictNotes())
	}
	return ResolveNotes(candidates[0], table.Notes, opts...), nil
}

func (engine *Engine) Describe(ctx context.Context, session *Session) (Description, error) {
	table, err := engine.table(ctx, session)
	if err != nil {
		return Description{}, err
	}

	candidates := NewFilter(table).Candidates(session.Selection)
	description := Description{
		Variant:    table.Variant,
		Selection:  session.Selection,
		Resolved:   AutoResolve(candidates, session.Selection),
		Candidates: len(candidates),
	}
	if len(candidates) > 0 {
		description.Representative = &candidates[0]
	}

	description.Curve, err = engine.curve(table, session)
	return description, err
}

// Execute parses and runs one statement against session.
func (engine *Engine) Execute(ctx context.Context, session *Session, input string) (Result, error) {
	statement, err := query.Parse(input)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	result, err := engine.execute(ctx, session, statement)
	if err != nil {
		return nil, err
	}

	elapsed := time.Since(start).Seconds()
	switch r := result.(type) {
	case QueryResult:
		r.Statement = statement.Type().String()
		r.ExecutionTimeSec = elapsed
		result = r
	case SessionResult:
		r.Statement = statement.Type().String()
		r.ExecutionTimeSec = elapsed
		result = r
	}

	engine.logger.Debug("statement executed",
		zap.Stringer("session", session.ID),
		zap.Stringer("statement", statement.Type()),
		zap.Float64("seconds", elapsed))
	return result, nil
}

func (engine *Engine) execute(ctx context.Context, session *Session, statement query.Statement) (Result, error) {
	switch s := statement.(type) {
	case query.ShowVariantsStatement:
		return engine.showVariants(), nil
	case query.UseStatement:
		if err := engine.Use(ctx, session, s.Variant); err != nil {
			return nil, err
		}
		return engine.sessionResult(ctx, session)
	case query.ShowOptionsStatement:
		return engine.showOptions(ctx, session, s.Attribute)
	case query.SelectStatement:
		if err := engine.Select(ctx, session, s.Attribute, s.Value); err != nil {
			return nil, err
		}
		return engine.sessionResult(ctx, session)
	case query.ClearStatement:
		if err := engine.Clear(ctx, session, s.Attribute); err != nil {
			return nil, err
		}
		return engine.sessionResult(ctx, session)
	case query.ResetStatement:
		session.Reset()
		return engine.sessionResult(ctx, session)
	case query.ShowSelectionStatement:
		return engine.showSelection(ctx, session)
	case query.ShowCandidatesStatement:
		return engine.showCandidates(ctx, session, s.Limit)
	case query.ShowCurveStatement:
		return engine.showCurve(ctx, session)
	case query.InterpolateStatement:
		return engine.showInterpolation(ctx, session, s.TemperatureC)
	case query.ShowNotesStatement:
		return engine.showNotes(ctx, session, s.Strict)
	case query.DescribeStatement:
		return engine.describe(ctx, session)
	default:
		return nil, fmt.Errorf("unsupported statement type: %v", statement.Type())
	}
}

func (engine *Engine) sessionResult(ctx context.Context, session *Session) (SessionResult, error) {
	candidates, err := engine.Candidates(ctx, session)
	if err != nil {
		return SessionResult{}, err
	}

	selection := make(map[string]string)
	for attr, v := range session.Selection.Map() {
		selection[attr.String()] = v
	}
	return SessionResult{
		Variant:    session.Variant,
		Selection:  selection,
		Candidates: len(candidates),
	}, nil
}

func (engine *Engine) showVariants() QueryResult {
	result := QueryResult{Columns: []string{"Variant", "Title", "Subtitle"}}
	for _, v := range engine.catalog.Variants() {
		result.Data = append(result.Data, []string{v.ID, v.Title, v.Subtitle})
	}
	result.RecordsRead = len(result.Data)
	return result
}

func (engine *Engine) showOptions(ctx context.Context, session *Session, attr core.Attribute) (QueryResult, error) {
	options, err := engine.Options(ctx, session, attr)
	if err != nil {
		return QueryResult{}, err
	}

	result := QueryResult{Columns: []string{attr.Label()}}
	for _, option := range options {
		result.Data = append(result.Data, []string{option})
	}
	return result, nil
}

func (engine *Engine) showSelection(ctx context.Context, session *Session) (QueryResult, error) {
	candidates, err := engine.Candidates(ctx, session)
	if err != nil {
		return QueryResult{}, err
	}
	resolved := AutoResolve(candidates, session.Selection)

	result := QueryResult{Columns: []string{"Attribute", "Value", "Source"}, RecordsRead: len(candidates)}
	for _, attr := range core.Attributes {
		row := []string{attr.Label(), "", ""}
		if v, ok := session.Selection.Get(attr); ok {
			row[1], row[2] = v, "selected"
		} else if v, ok := resolved.Get(attr); ok {
			row[1], row[2] = v, "implied"
		}
		result.Data = append(result.Data, row)
	}
	return result, nil
}

func (engine *Engine) showCandidates(ctx context.Context, session *Session, limit int) (QueryResult, error) {
	candidates, err := engine.Candidates(ctx, session)
	if err != nil {
		return QueryResult{}, err
	}

	columns := []string{"Key"}
	for _, attr := range core.Attributes {
		columns = append(columns, attr.Label())
	}
	columns = append(columns, "P-No.", "Group No.", "Notes")

	result := QueryResult{Columns: columns, RecordsRead: len(candidates)}
	if len(candidates) == 0 {
		result.Status = CurveNoCandidates.String()
	}
	for i, record := range candidates {
		if limit > 0 && i >= limit {
			break
		}
		row := []string{record.Key}
		for _, attr := range core.Attributes {
			row = append(row, record.Attribute(attr))
		}
		row = append(row, record.PNo, record.GroupNo, strings.Join(record.NoteCodes, ", "))
		result.Data = append(result.Data, row)
	}
	return result, nil
}

func (engine *Engine) showCurve(ctx context.Context, session *Session) (QueryResult, error) {
	curve, err := engine.Curve(ctx, session)
	if err != nil {
		return QueryResult{}, err
	}

	result := QueryResult{
		Status:         curve.Status.String(),
		Columns:        []string{"Temp (°C)", "Stress (MPa)"},
		NumericColumns: []int{0, 1},
		RecordsRead:    curve.Records,
	}
	for i := range curve.Curve.TemperaturesC {
		result.Data = append(result.Data, []string{
			formatNumber(curve.Curve.TemperaturesC[i]),
			formatNumber(curve.Curve.StressesMPa[i]),
		})
	}
	return result, nil
}

func (engine *Engine) showInterpolation(ctx context.Context, session *Session, targetC float64) (QueryResult, error) {
	interpolation, err := engine.Interpolate(ctx, session, targetC)
	if err != nil {
		return QueryResult{}, err
	}

	result := QueryResult{
		Status:         interpolation.Status.String(),
		Columns:        []string{"Temp (°C)", "Stress (MPa)", "Clamped"},
		NumericColumns: []int{0, 1},
	}
	if interpolation.Status == CurveOK {
		result.Data = [][]string{{
			formatNumber(interpolation.TemperatureC),
			formatNumber(interpolation.StressMPa),
			strconv.FormatBool(interpolation.Clamped),
		}}
	}
	return result, nil
}

func (engine *Engine) showNotes(ctx context.Context, session *Session, strict bool) (QueryResult, error) {
	notes, err := engine.Notes(ctx, session, strict)
	if err != nil {
		return QueryResult{}, err
	}

	result := QueryResult{Columns: []string{"Code", "Detail"}}
	if strict {
		result.Columns = append(result.Columns, "Resolved")
	}
	for _, note := range notes {
		row := []string{note.Code, note.Detail}
		if strict {
			row = append(row, strconv.FormatBool(note.Resolved))
		}
		result.Data = append(result.Data, row)
	}
	return result, nil
}

func (engine *Engine) describe(ctx context.Context, session *Session) (QueryResult, error) {
	description, err := engine.Describe(ctx, session)
	if err != nil {
		return QueryResult{}, err
	}

	result := QueryResult{
		Status:      description.Curve.Status.String(),
		Columns:     []string{"Field", "Value"},
		RecordsRead: description.Candidates,
	}
	if description.Representative == nil {
		return result, nil
	}

	for _, attr := range core.Attributes {
		v, _ := description.Resolved.Get(attr)
		result.Data = append(result.Data, []string{attr.Label(), v})
	}
	for _, row := range core.DetailsOf(*description.Representative).Rows()[2:] {
		result.Data = append(result.Data, row)
	}
	if description.Curve.Status == CurveOK {
		minC, maxC := description.Curve.Curve.Domain()
		result.Data = append(result.Data, []string{"Temperature range (°C)", formatNumber(minC) + " to " + formatNumber(maxC)})
	}
	return result, nil
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
