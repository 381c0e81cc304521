// Package load turns table sources into core.MaterialTable values and keeps
// the registry of known table variants.
//
// Every source delivers the same row layout, the one used by the published
// spreadsheets: six filter attributes, the descriptive columns, a notes
// column and then one stress column per axis temperature. Sources differ
// only in how they fetch rows:
//
//   - CSVLoader reads CSV files from a local path, file://, http(s):// or s3://
//   - DuckDBLoader reads CSV or XLSX sheets through an in-process DuckDB
//   - PostgresLoader runs a query against PostgreSQL
//   - GitLoader reads tables previously imported into the versioned store
//
// A Registry maps variant ids to loaders and caches each table after its
// first load.
package load
