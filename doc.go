// Package stressdb looks up allowable stress values of pressure-vessel
// materials from versioned reference tables.
//
// A table variant (for example Table-1A, ferrous materials) is narrowed by
// selecting values for six attributes in cascade order: Composition,
// Product, Spec No, Type/Grade, Class and Size/Tck. The stress curves of
// the remaining records are averaged into one temperature to stress curve,
// which can be read at any design temperature by linear interpolation.
//
// # Quick Start
//
//	instance, _ := stressdb.Open(config.Default(), zap.NewNop())
//	engine := instance.Engine()
//	session := instance.NewSession()
//
//	engine.Execute(ctx, session, "USE Table-1A")
//	engine.Execute(ctx, session, "SELECT SpecNo = 'SA-516'")
//	engine.Execute(ctx, session, "SELECT TypeGrade = '70'")
//
//	result, _ := engine.Execute(ctx, session, "INTERPOLATE 175")
//	result.Display(os.Stdout)
//
// # Statements
//
//   - SHOW VARIANTS, USE <variant>
//   - SHOW OPTIONS <attribute>
//   - SELECT <attribute> = '<value>', CLEAR <attribute>, RESET
//   - SHOW SELECTION, SHOW CANDIDATES [LIMIT n]
//   - SHOW CURVE, INTERPOLATE <temperature>
//   - SHOW NOTES [STRICT], DESCRIBE
//
// Tables are loaded from CSV, XLSX (through DuckDB), PostgreSQL or the
// Git-backed store, where every import is a commit.
package stressdb
