package ps

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/go-git/go-git/v6"
	"github.com/go-git/go-git/v6/plumbing"
	"github.com/go-git/go-git/v6/plumbing/filemode"
	"github.com/go-git/go-git/v6/plumbing/object"
	"github.com/nickyhof/stressdb/core"
)

// TreeChange is one edit applied to the HEAD tree by commitChanges.
type TreeChange struct {
	Path   string        // slash separated, e.g. "Table-1A/000001"
	Hash   plumbing.Hash // blob, or tree when Mode is filemode.Dir
	Mode   filemode.FileMode
	Delete bool
}

func (c TreeChange) mode() filemode.FileMode {
	if c.Mode == 0 {
		return filemode.Regular
	}
	return c.Mode
}

// createBlob writes data into the object store without touching the worktree
func (p *Persistence) createBlob(data []byte) (plumbing.Hash, error) {
	obj := p.repo.Storer.NewEncodedObject()
	obj.SetType(plumbing.BlobObject)
	obj.SetSize(int64(len(data)))

	writer, err := obj.Writer()
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("failed to create blob writer: %w", err)
	}
	if _, err := writer.Write(data); err != nil {
		writer.Close()
		return plumbing.ZeroHash, fmt.Errorf("failed to write blob data: %w", err)
	}
	if err := writer.Close(); err != nil {
		return plumbing.ZeroHash, fmt.Errorf("failed to close blob writer: %w", err)
	}

	hash, err := p.repo.Storer.SetEncodedObject(obj)
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("failed to store blob: %w", err)
	}
	return hash, nil
}

// headCommit returns the commit HEAD points at, or nil for an empty repository.
func (p *Persistence) headCommit() (*object.Commit, error) {
	headRef, err := p.repo.Head()
	if err != nil {
		return nil, nil
	}

	commit, err := p.repo.CommitObject(headRef.Hash())
	if err != nil {
		return nil, fmt.Errorf("failed to get head commit: %w", err)
	}
	return commit, nil
}

// headTree returns the tree of HEAD, or nil for an empty repository.
func (p *Persistence) headTree() (*object.Tree, error) {
	commit, err := p.headCommit()
	if err != nil || commit == nil {
		return nil, err
	}

	tree, err := commit.Tree()
	if err != nil {
		return nil, fmt.Errorf("failed to get tree: %w", err)
	}
	return tree, nil
}

func (p *Persistence) treeEntries(treeHash plumbing.Hash) (map[string]object.TreeEntry, error) {
	entries := make(map[string]object.TreeEntry)
	if treeHash == plumbing.ZeroHash {
		return entries, nil
	}

	tree, err := object.GetTree(p.repo.Storer, treeHash)
	if err != nil {
		return nil, fmt.Errorf("failed to get tree: %w", err)
	}
	for _, entry := range tree.Entries {
		entries[entry.Name] = entry
	}
	return entries, nil
}

// writeTree stores a tree built from entries. An empty map yields ZeroHash.
func (p *Persistence) writeTree(entries map[string]object.TreeEntry) (plumbing.Hash, error) {
	if len(entries) == 0 {
		return plumbing.ZeroHash, nil
	}

	sorted := make([]object.TreeEntry, 0, len(entries))
	for _, entry := range entries {
		sorted = append(sorted, entry)
	}

	// git orders directories as if their name had a trailing slash
	sortName := func(e object.TreeEntry) string {
		if e.Mode == filemode.Dir {
			return e.Name + "/"
		}
		return e.Name
	}
	sort.Slice(sorted, func(i, j int) bool {
		return sortName(sorted[i]) < sortName(sorted[j])
	})

	obj := p.repo.Storer.NewEncodedObject()
	if err := (&object.Tree{Entries: sorted}).Encode(obj); err != nil {
		return plumbing.ZeroHash, fmt.Errorf("failed to encode tree: %w", err)
	}

	hash, err := p.repo.Storer.SetEncodedObject(obj)
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("failed to store tree: %w", err)
	}
	return hash, nil
}

// applyChanges returns the hash of treeHash with changes applied. Changes at
// this level run in order before changes below it, so deleting a directory
// and then writing into it replaces the directory wholesale.
func (p *Persistence) applyChanges(treeHash plumbing.Hash, changes []TreeChange) (plumbing.Hash, error) {
	if len(changes) == 0 {
		return treeHash, nil
	}

	entries, err := p.treeEntries(treeHash)
	if err != nil {
		return plumbing.ZeroHash, err
	}

	nested := make(map[string][]TreeChange)
	var dirs []string

	for _, change := range changes {
		dir, rest, isNested := strings.Cut(change.Path, "/")
		if !isNested {
			if change.Delete {
				delete(entries, dir)
			} else {
				entries[dir] = object.TreeEntry{Name: dir, Mode: change.mode(), Hash: change.Hash}
			}
			continue
		}

		if _, seen := nested[dir]; !seen {
			dirs = append(dirs, dir)
		}
		change.Path = rest
		nested[dir] = append(nested[dir], change)
	}

	for _, dir := range dirs {
		sub := plumbing.ZeroHash
		if existing, ok := entries[dir]; ok && existing.Mode == filemode.Dir {
			sub = existing.Hash
		}

		newSub, err := p.applyChanges(sub, nested[dir])
		if err != nil {
			return plumbing.ZeroHash, err
		}

		if newSub == plumbing.ZeroHash {
			delete(entries, dir)
		} else {
			entries[dir] = object.TreeEntry{Name: dir, Mode: filemode.Dir, Hash: newSub}
		}
	}

	return p.writeTree(entries)
}

// commitChanges applies changes to HEAD and records a commit. If the
// resulting tree equals HEAD's tree no commit is made and an empty
// Transaction is returned.
func (p *Persistence) commitChanges(changes []TreeChange, identity core.Identity, message string) (Transaction, error) {
	head, err := p.headCommit()
	if err != nil {
		return Transaction{}, err
	}

	current := plumbing.ZeroHash
	if head != nil {
		current = head.TreeHash
	}

	newTree, err := p.applyChanges(current, changes)
	if err != nil {
		return Transaction{}, fmt.Errorf("failed to update tree: %w", err)
	}

	if head != nil && newTree == current {
		return Transaction{}, nil
	}

	txn, err := p.createCommit(head, newTree, identity, message)
	if err != nil {
		return Transaction{}, err
	}

	if err := p.syncWorktree(); err != nil {
		return Transaction{}, fmt.Errorf("failed to sync worktree: %w", err)
	}
	return txn, nil
}

func (p *Persistence) createCommit(parent *object.Commit, treeHash plumbing.Hash, identity core.Identity, message string) (Transaction, error) {
	if treeHash == plumbing.ZeroHash {
		var err error
		if treeHash, err = p.writeEmptyTree(); err != nil {
			return Transaction{}, err
		}
	}

	sig := object.Signature{
		Name:  identity.Name,
		Email: identity.Email,
		When:  time.Now(),
	}

	commit := &object.Commit{
		Author:    sig,
		Committer: sig,
		Message:   message,
		TreeHash:  treeHash,
	}
	if parent != nil {
		commit.ParentHashes = []plumbing.Hash{parent.Hash}
	}

	obj := p.repo.Storer.NewEncodedObject()
	if err := commit.Encode(obj); err != nil {
		return Transaction{}, fmt.Errorf("failed to encode commit: %w", err)
	}

	commitHash, err := p.repo.Storer.SetEncodedObject(obj)
	if err != nil {
		return Transaction{}, fmt.Errorf("failed to store commit: %w", err)
	}

	branch, err := p.headBranch()
	if err != nil {
		return Transaction{}, err
	}
	if err := p.repo.Storer.SetReference(plumbing.NewHashReference(branch, commitHash)); err != nil {
		return Transaction{}, fmt.Errorf("failed to update HEAD: %w", err)
	}

	return Transaction{
		Id:      commitHash.String(),
		When:    sig.When,
		Author:  formatAuthor(sig),
		Message: message,
	}, nil
}

// headBranch returns the branch HEAD points at, which may not exist yet in
// a fresh repository.
func (p *Persistence) headBranch() (plumbing.ReferenceName, error) {
	ref, err := p.repo.Storer.Reference(plumbing.HEAD)
	if err != nil {
		return "", fmt.Errorf("failed to read HEAD: %w", err)
	}
	if ref.Type() == plumbing.SymbolicReference {
		return ref.Target(), nil
	}
	if headRef, err := p.repo.Head(); err == nil && headRef.Name().IsBranch() {
		return headRef.Name(), nil
	}
	return plumbing.Master, nil
}

func (p *Persistence) writeEmptyTree() (plumbing.Hash, error) {
	obj := p.repo.Storer.NewEncodedObject()
	if err := (&object.Tree{}).Encode(obj); err != nil {
		return plumbing.ZeroHash, fmt.Errorf("failed to encode empty tree: %w", err)
	}
	hash, err := p.repo.Storer.SetEncodedObject(obj)
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("failed to store empty tree: %w", err)
	}
	return hash, nil
}

// syncWorktree checks HEAD out into the worktree so a file-backed store can
// be browsed with ordinary git tools. Memory stores are only read through
// the object store and skip it.
func (p *Persistence) syncWorktree() error {
	if p.isMemoryMode {
		return nil
	}

	wt, err := p.repo.Worktree()
	if err != nil {
		return err
	}

	tree, err := p.headTree()
	if err != nil || tree == nil {
		return err
	}

	// reset refuses to remove the base dir of an empty tree
	if len(tree.Entries) == 0 {
		entries, err := wt.Filesystem.ReadDir("/")
		if err != nil {
			return nil
		}
		for _, entry := range entries {
			if entry.Name() != ".git" {
				wt.Filesystem.Remove(entry.Name())
			}
		}
		return nil
	}

	headRef, err := p.repo.Head()
	if err != nil {
		return err
	}
	return wt.Reset(&git.ResetOptions{
		Mode:   git.HardReset,
		Commit: headRef.Hash(),
	})
}

// ReadFileDirect reads a file from the HEAD tree
func (p *Persistence) ReadFileDirect(filePath string) ([]byte, error) {
	if err := p.ensureInitialized(); err != nil {
		return nil, err
	}

	tree, err := p.headTree()
	if err != nil {
		return nil, err
	}
	if tree == nil {
		return nil, fmt.Errorf("no commits yet")
	}

	file, err := tree.File(filePath)
	if err != nil {
		return nil, fmt.Errorf("file not found: %w", err)
	}

	content, err := file.Contents()
	if err != nil {
		return nil, fmt.Errorf("failed to read contents: %w", err)
	}
	return []byte(content), nil
}

// TreeEntry represents a directory entry from the Git tree
type TreeEntry struct {
	Name  string
	IsDir bool
}

// ListEntriesDirect lists a directory of the HEAD tree. A missing directory
// lists as empty.
func (p *Persistence) ListEntriesDirect(dirPath string) ([]TreeEntry, error) {
	if err := p.ensureInitialized(); err != nil {
		return nil, err
	}

	tree, err := p.headTree()
	if err != nil || tree == nil {
		return nil, err
	}

	if dirPath != "" && dirPath != "." {
		if tree, err = tree.Tree(dirPath); err != nil {
			return nil, nil
		}
	}

	entries := make([]TreeEntry, 0, len(tree.Entries))
	for _, entry := range tree.Entries {
		entries = append(entries, TreeEntry{
			Name:  entry.Name,
			IsDir: entry.Mode == filemode.Dir,
		})
	}
	return entries, nil
}
