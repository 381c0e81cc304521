// Package query parses the statements used to drive a lookup session from
// the REPL, the TCP server and the C bindings.
//
// # Statements
//
//	SHOW VARIANTS                       list table variants
//	USE Table-1A                        switch variant, clearing the selection
//	SHOW OPTIONS SpecNo                 values offered for an attribute
//	SELECT SpecNo = 'SA-516'            select a value (also SET)
//	CLEAR SpecNo                        clear one attribute
//	RESET                               clear every attribute
//	SHOW SELECTION                      explicit and implied selections
//	SHOW CANDIDATES [LIMIT n]           matching records
//	SHOW CURVE                          aggregated stress curve
//	INTERPOLATE 150                     stress at a temperature (also STRESS AT 150)
//	SHOW NOTES [STRICT]                 note texts of the representative record
//	DESCRIBE                            descriptive fields of the representative record
//
// Keywords are case-insensitive. Values are single-quoted strings, with ''
// for a literal quote. Attribute names are Composition, Product, SpecNo,
// TypeGrade, Class and SizeTck; the spellings of the published column
// headings are accepted too.
//
// # Usage
//
//	stmt, err := query.Parse("SELECT SpecNo = 'SA-516'")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	sel := stmt.(query.SelectStatement)
package query
