// Package core provides core types used throughout stressdb.
//
// The package defines the material table data model: MaterialRecord,
// NoteEntry, MaterialTable, the six filter attributes and the Selection
// that narrows a table, plus the StressCurve produced from it.
//
// # Identity
//
// Identity identifies the author of table imports (Git commit author):
//
//	identity := core.Identity{
//	    Name:  "Jane Doe",
//	    Email: "jane@example.com",
//	}
//
// # Attributes
//
// Records are narrowed in a fixed attribute order:
//   - Composition
//   - Product
//   - SpecNo
//   - TypeGrade
//   - Class
//   - SizeTck
//
// # Stress Values
//
// Each record carries one StressValue per temperature on the table axis.
// A value is either defined (MPa) or undefined, which is distinct from zero:
//
//	v := core.Defined(118)
//	if v.Defined {
//	    fmt.Println(v.MPa)
//	}
package core
