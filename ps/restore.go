package ps

import (
	"fmt"

	"github.com/go-git/go-git/v6"
	"github.com/go-git/go-git/v6/plumbing"
	"github.com/go-git/go-git/v6/plumbing/filemode"
	"github.com/nickyhof/stressdb/core"
)

// Snapshot tags an edition of the store. A nil asof tags HEAD.
func (persistence *Persistence) Snapshot(name string, asof *Transaction) error {
	if err := persistence.ensureInitialized(); err != nil {
		return err
	}

	var hash plumbing.Hash
	if asof != nil {
		hash = plumbing.NewHash(asof.Id)
	} else {
		headRef, err := persistence.repo.Head()
		if err != nil {
			return fmt.Errorf("nothing to snapshot: %w", err)
		}
		hash = headRef.Hash()
	}

	_, err := persistence.repo.CreateTag(name, hash, nil)
	return err
}

// Recover hard resets the whole store to a snapshot.
func (persistence *Persistence) Recover(name string) error {
	if err := persistence.ensureInitialized(); err != nil {
		return err
	}

	persistence.mu.Lock()
	defer persistence.mu.Unlock()

	ref, err := persistence.repo.Tag(name)
	if err != nil {
		return fmt.Errorf("snapshot %s: %w", name, err)
	}
	wt, err := persistence.repo.Worktree()
	if err != nil {
		return err
	}

	return wt.Reset(&git.ResetOptions{
		Mode:   git.HardReset,
		Commit: ref.Hash(),
	})
}

// RestoreTable brings one variant back to its state at asof, leaving other
// variants alone. The restore is recorded as a new commit, so later editions
// stay in the history. A variant that did not exist at asof is removed.
func (persistence *Persistence) RestoreTable(asof Transaction, variant string, identity core.Identity) (Transaction, error) {
	if err := persistence.ensureInitialized(); err != nil {
		return Transaction{}, err
	}
	if err := validName(variant); err != nil {
		return Transaction{}, err
	}

	persistence.mu.Lock()
	defer persistence.mu.Unlock()

	commit, err := persistence.repo.CommitObject(plumbing.NewHash(asof.Id))
	if err != nil {
		return Transaction{}, fmt.Errorf("transaction %s: %w", asof.Id, err)
	}
	tree, err := commit.Tree()
	if err != nil {
		return Transaction{}, fmt.Errorf("failed to get tree: %w", err)
	}

	changes := []TreeChange{
		{Path: headerPath(variant), Delete: true},
		{Path: variant, Delete: true},
	}
	if header, err := tree.FindEntry(headerPath(variant)); err == nil {
		changes[0] = TreeChange{Path: headerPath(variant), Hash: header.Hash}
	}
	if dir, err := tree.FindEntry(variant); err == nil && dir.Mode == filemode.Dir {
		changes[1] = TreeChange{Path: variant, Hash: dir.Hash, Mode: filemode.Dir}
	}

	short := asof.Id
	if len(short) > 7 {
		short = short[:7]
	}
	return persistence.commitChanges(changes, identity, fmt.Sprintf("Restoring %s to %s", variant, short))
}
