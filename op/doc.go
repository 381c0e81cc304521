// Package op provides table-level operations over the versioned store.
//
// It sits between the loaders and commands (load/, cmd/) and the persistence
// layer (ps/):
//
//	_, tableOp, err := op.ImportTable(table, persistence, identity)
//
//	tableOp, err := op.GetTable("Table-1A", persistence)
//	tableOp.Count()                       // number of records
//	tableOp.Get("000001")                 // one record
//	tableOp.History()                     // editions, newest first
//	tableOp.Restore(txn, identity)        // roll the variant back
//	tableOp.Drop(identity)                // remove the variant
//
// The layering is:
//
//	Statements (query/) → Engine (db/) → Registry (load/)
//	                                         ↓
//	                                   Operations (op/)
//	                                         ↓
//	                                   Persistence (ps/)
//	                                         ↓
//	                                   Git Storage (go-git)
package op
