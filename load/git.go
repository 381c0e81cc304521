package load

import (
	"context"

	"github.com/nickyhof/stressdb/core"
	"github.com/nickyhof/stressdb/op"
	"github.com/nickyhof/stressdb/ps"
)

// GitLoader reads tables imported into the versioned store.
type GitLoader struct {
	Persistence *ps.Persistence
}

func (l *GitLoader) Source() string {
	return "git"
}

func (l *GitLoader) Load(ctx context.Context, variant string) (*core.MaterialTable, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	tableOp, err := op.GetTable(variant, l.Persistence)
	if err != nil {
		return nil, err
	}
	return tableOp.Table, nil
}
