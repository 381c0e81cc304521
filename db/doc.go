// Package db is the lookup engine for stressdb.
//
// The building blocks work on an already loaded, immutable table:
//
//	f := db.NewFilter(table)
//	options, _ := f.Options(core.SpecNo, sel)     // values offered for SpecNo
//	sel, _ = f.Apply(sel, core.SpecNo, "SA-516")  // narrow
//	candidates := f.Candidates(sel)
//	curve, _ := db.AggregateTable(table, candidates)
//	stress, _ := db.Interpolate(curve.Curve, 150)
//	notes := db.ResolveNotes(candidates[0], table.Notes)
//
// # Engine Usage
//
// The Engine ties them to a Catalog of variants and an explicit Session:
//
//	engine := db.NewEngine(registry, logger)
//	session := db.NewSession("Table-1A")
//	result, err := engine.Execute(ctx, session, "SELECT SpecNo = 'SA-516'")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	result.Display(os.Stdout)
//
// # Result Types
//
// There are two result types:
//   - QueryResult: returned by SHOW, INTERPOLATE and DESCRIBE
//   - SessionResult: returned by USE, SELECT, CLEAR and RESET
//
// No matching records and a curve without published values are reported
// through CurveStatus, not as errors. A malformed table is reported as a
// *core.DataIntegrityError and aborts only the statement that hit it.
package db
