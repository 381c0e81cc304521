package op

import (
	"github.com/nickyhof/stressdb/core"
	"github.com/nickyhof/stressdb/ps"
)

// TableOp is one stored variant together with the store it came from.
type TableOp struct {
	Table       *core.MaterialTable
	Persistence *ps.Persistence
}

// ImportTable commits a loaded table as the current edition of its variant.
// The returned transaction is nil when the stored edition was already
// identical.
func ImportTable(table *core.MaterialTable, persistence *ps.Persistence, identity core.Identity) (*ps.Transaction, *TableOp, error) {
	txn, err := persistence.SaveTable(table, identity)
	if err != nil {
		return nil, nil, err
	}

	tableOp := &TableOp{Table: table, Persistence: persistence}
	if txn.Id == "" {
		return nil, tableOp, nil
	}
	return &txn, tableOp, nil
}

func GetTable(variant string, persistence *ps.Persistence) (*TableOp, error) {
	table, err := persistence.GetTable(variant)
	if err != nil {
		return nil, err
	}

	return &TableOp{
		Table:       table,
		Persistence: persistence,
	}, nil
}

func (op *TableOp) Variant() string {
	return op.Table.Variant
}

func (op *TableOp) Count() int {
	return len(op.Table.Records)
}

func (op *TableOp) Keys() []string {
	return op.Persistence.ListRecordKeys(op.Table.Variant)
}

// Get reads a single record from the store by key.
func (op *TableOp) Get(key string) (core.MaterialRecord, bool) {
	return op.Persistence.GetRecord(op.Table.Variant, key)
}

// History lists the editions of the variant, newest first.
func (op *TableOp) History() []ps.Transaction {
	return op.Persistence.TableHistory(op.Table.Variant)
}

// Restore brings the variant back to its state at asof and reloads it.
func (op *TableOp) Restore(asof ps.Transaction, identity core.Identity) (ps.Transaction, error) {
	txn, err := op.Persistence.RestoreTable(asof, op.Table.Variant, identity)
	if err != nil {
		return ps.Transaction{}, err
	}

	table, err := op.Persistence.GetTable(op.Table.Variant)
	if err != nil {
		return txn, err
	}
	op.Table = table
	return txn, nil
}

func (op *TableOp) Drop(identity core.Identity) (ps.Transaction, error) {
	return op.Persistence.DropTable(op.Table.Variant, identity)
}
