// Package ps provides the versioned table store for stressdb.
//
// Imported material tables are kept in a Git repository, using go-git for
// storage. Every import creates one commit, so each edition of a published
// table can be listed, tagged and restored.
//
// A table variant is stored as a header file plus one blob per record:
//
//	Table-1A.table        variant, title, temperature axis, notes
//	Table-1A/000001       first record
//	Table-1A/000002       ...
//
// # Memory Persistence
//
// For testing or ephemeral stores:
//
//	store, err := ps.NewMemoryPersistence()
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// # File Persistence
//
// For persistent storage, optionally cloned from a remote:
//
//	store, err := ps.NewFilePersistence("/path/to/data", nil)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// # Importing
//
//	txn, err := store.SaveTable(table, identity)
//	table, err := store.GetTable("Table-1A")
package ps
