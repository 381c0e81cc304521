package ps

import (
	"encoding/json"
	"fmt"
	"iter"
	"path"
	"sort"
	"strings"

	"github.com/go-git/go-git/v6/plumbing/object"
	"github.com/nickyhof/stressdb/core"
)

const tableSuffix = ".table"

// tableHeader is the content of <variant>.table. Keys lists the record blobs
// in table order.
type tableHeader struct {
	Variant       string           `json:"variant"`
	Title         string           `json:"title,omitempty"`
	TemperaturesC []float64        `json:"temperaturesC"`
	Keys          []string         `json:"keys"`
	Notes         []core.NoteEntry `json:"notes"`
}

func validName(name string) error {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, "/\\") || strings.HasSuffix(name, tableSuffix) {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return nil
}

func headerPath(variant string) string {
	return variant + tableSuffix
}

// RecordKey is the key given to the record at index i when the source did
// not supply one. Zero padding keeps git's tree order equal to table order.
func RecordKey(i int) string {
	return fmt.Sprintf("%06d", i+1)
}

// SaveTable stores a table, replacing any previous edition of the same
// variant, in a single commit. Saving an identical table makes no commit and
// returns an empty Transaction.
func (p *Persistence) SaveTable(table *core.MaterialTable, identity core.Identity) (Transaction, error) {
	if err := p.ensureInitialized(); err != nil {
		return Transaction{}, err
	}
	if err := validName(table.Variant); err != nil {
		return Transaction{}, err
	}
	if err := table.Validate(); err != nil {
		return Transaction{}, err
	}

	header := tableHeader{
		Variant:       table.Variant,
		Title:         table.Title,
		TemperaturesC: table.TemperaturesC,
		Keys:          make([]string, len(table.Records)),
		Notes:         make([]core.NoteEntry, 0, len(table.Notes)),
	}
	for _, note := range table.Notes {
		header.Notes = append(header.Notes, note)
	}
	sort.Slice(header.Notes, func(i, j int) bool { return header.Notes[i].Code < header.Notes[j].Code })

	changes := []TreeChange{{Path: table.Variant, Delete: true}}
	seen := make(map[string]bool, len(table.Records))

	for i, record := range table.Records {
		if record.Key == "" {
			record.Key = RecordKey(i)
		}
		if err := validName(record.Key); err != nil {
			return Transaction{}, err
		}
		if seen[record.Key] {
			return Transaction{}, fmt.Errorf("duplicate record key %s in %s", record.Key, table.Variant)
		}
		seen[record.Key] = true
		header.Keys[i] = record.Key

		data, err := json.Marshal(record)
		if err != nil {
			return Transaction{}, fmt.Errorf("failed to marshal record %s: %w", record.Key, err)
		}
		hash, err := p.createBlob(data)
		if err != nil {
			return Transaction{}, fmt.Errorf("failed to create blob for %s: %w", record.Key, err)
		}
		changes = append(changes, TreeChange{Path: path.Join(table.Variant, record.Key), Hash: hash})
	}

	headerBytes, err := json.Marshal(header)
	if err != nil {
		return Transaction{}, fmt.Errorf("failed to marshal table header: %w", err)
	}
	headerHash, err := p.createBlob(headerBytes)
	if err != nil {
		return Transaction{}, err
	}
	changes = append(changes, TreeChange{Path: headerPath(table.Variant), Hash: headerHash})

	p.mu.Lock()
	defer p.mu.Unlock()

	message := fmt.Sprintf("Importing %s (%d records)", table.Variant, len(table.Records))
	return p.commitChanges(changes, identity, message)
}

// GetTable reads the current edition of a variant.
func (p *Persistence) GetTable(variant string) (*core.MaterialTable, error) {
	if err := p.ensureInitialized(); err != nil {
		return nil, err
	}

	p.mu.RLock()
	defer p.mu.RUnlock()

	tree, err := p.headTree()
	if err != nil {
		return nil, err
	}
	if tree == nil {
		return nil, fmt.Errorf("%w: %s", ErrTableNotFound, variant)
	}

	return readTable(tree, variant)
}

func readTable(tree *object.Tree, variant string) (*core.MaterialTable, error) {
	header, err := readHeader(tree, variant)
	if err != nil {
		return nil, err
	}

	table := &core.MaterialTable{
		Variant:       header.Variant,
		Title:         header.Title,
		TemperaturesC: header.TemperaturesC,
		Records:       make([]core.MaterialRecord, 0, len(header.Keys)),
		Notes:         make(map[string]core.NoteEntry, len(header.Notes)),
	}
	for _, note := range header.Notes {
		table.Notes[note.Code] = note
	}

	for record, err := range scan(tree, variant, header.Keys) {
		if err != nil {
			return nil, err
		}
		table.Records = append(table.Records, record)
	}
	return table, nil
}

func readHeader(tree *object.Tree, variant string) (*tableHeader, error) {
	file, err := tree.File(headerPath(variant))
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrTableNotFound, variant)
	}
	content, err := file.Contents()
	if err != nil {
		return nil, fmt.Errorf("failed to read table header %s: %w", variant, err)
	}

	var header tableHeader
	if err := json.Unmarshal([]byte(content), &header); err != nil {
		return nil, fmt.Errorf("failed to unmarshal table header %s: %w", variant, err)
	}
	return &header, nil
}

// scan yields the records named by keys in order, stopping at the first
// error.
func scan(tree *object.Tree, variant string, keys []string) iter.Seq2[core.MaterialRecord, error] {
	return func(yield func(core.MaterialRecord, error) bool) {
		for _, key := range keys {
			record, err := readRecord(tree, variant, key)
			if !yield(record, err) || err != nil {
				return
			}
		}
	}
}

func readRecord(tree *object.Tree, variant, key string) (core.MaterialRecord, error) {
	var record core.MaterialRecord

	file, err := tree.File(path.Join(variant, key))
	if err != nil {
		return record, fmt.Errorf("record %s/%s: %w", variant, key, err)
	}
	content, err := file.Contents()
	if err != nil {
		return record, fmt.Errorf("failed to read record %s/%s: %w", variant, key, err)
	}
	if err := json.Unmarshal([]byte(content), &record); err != nil {
		return record, fmt.Errorf("failed to unmarshal record %s/%s: %w", variant, key, err)
	}
	return record, nil
}

// GetRecord reads one record of the current edition of a variant.
func (p *Persistence) GetRecord(variant, key string) (core.MaterialRecord, bool) {
	if !p.IsInitialized() {
		return core.MaterialRecord{}, false
	}

	p.mu.RLock()
	defer p.mu.RUnlock()

	tree, err := p.headTree()
	if err != nil || tree == nil {
		return core.MaterialRecord{}, false
	}

	record, err := readRecord(tree, variant, key)
	if err != nil {
		return core.MaterialRecord{}, false
	}
	return record, true
}

// ListTables returns the stored variants in name order.
func (p *Persistence) ListTables() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()

	entries, err := p.ListEntriesDirect(".")
	if err != nil {
		return nil
	}

	var variants []string
	for _, entry := range entries {
		if !entry.IsDir && strings.HasSuffix(entry.Name, tableSuffix) {
			variants = append(variants, strings.TrimSuffix(entry.Name, tableSuffix))
		}
	}
	sort.Strings(variants)
	return variants
}

// ListRecordKeys returns the record keys of a variant in tree order.
func (p *Persistence) ListRecordKeys(variant string) []string {
	p.mu.RLock()
	defer p.mu.RUnlock()

	entries, err := p.ListEntriesDirect(variant)
	if err != nil {
		return nil
	}

	var keys []string
	for _, entry := range entries {
		if !entry.IsDir {
			keys = append(keys, entry.Name)
		}
	}
	return keys
}

func (p *Persistence) DropTable(variant string, identity core.Identity) (Transaction, error) {
	if err := p.ensureInitialized(); err != nil {
		return Transaction{}, err
	}
	if err := validName(variant); err != nil {
		return Transaction{}, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if _, err := p.ReadFileDirect(headerPath(variant)); err != nil {
		return Transaction{}, fmt.Errorf("%w: %s", ErrTableNotFound, variant)
	}

	return p.commitChanges([]TreeChange{
		{Path: headerPath(variant), Delete: true},
		{Path: variant, Delete: true},
	}, identity, fmt.Sprintf("Dropping %s", variant))
}
