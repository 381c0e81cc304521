package db

import (
	"fmt"
	"slices"
	"sort"

	"github.com/nickyhof/stressdb/core"
)

// Filter narrows a table through the cascading attribute selections.
// It keeps no state besides the table, which it never modifies.
type Filter struct {
	table *core.MaterialTable
}

func NewFilter(table *core.MaterialTable) *Filter {
	return &Filter{table: table}
}

// Options returns the distinct non-empty values of attr, sorted, over the
// records that satisfy every selected attribute before attr. Selections of
// attr itself and of later attributes are ignored.
func (f *Filter) Options(attr core.Attribute, sel core.Selection) ([]string, error) {
	if !attr.Valid() {
		return nil, fmt.Errorf("%w: %d", core.ErrUnknownAttribute, int(attr))
	}

	seen := make(map[string]bool)
	var options []string
	for _, record := range f.table.Records {
		if !sel.MatchesBefore(record, attr) {
			continue
		}
		if v := record.Attribute(attr); v != "" && !seen[v] {
			seen[v] = true
			options = append(options, v)
		}
	}
	sort.Strings(options)
	return options, nil
}

// Apply returns sel with attr set to value, or cleared when value is empty.
//
// Selecting a previously unselected attribute only narrows. Replacing or
// clearing a value re-checks every later selection against its recomputed
// options and drops those that are no longer offered.
func (f *Filter) Apply(sel core.Selection, attr core.Attribute, value string) (core.Selection, error) {
	if !attr.Valid() {
		return sel, fmt.Errorf("%w: %d", core.ErrUnknownAttribute, int(attr))
	}

	previous, wasSet := sel.Get(attr)
	if value == "" {
		sel = sel.Without(attr)
	} else {
		sel = sel.With(attr, value)
	}

	if !wasSet || previous == value {
		return sel, nil
	}

	for later := attr + 1; later.Valid(); later++ {
		v, ok := sel.Get(later)
		if !ok {
			continue
		}
		options, err := f.Options(later, sel)
		if err != nil {
			return sel, err
		}
		if !slices.Contains(options, v) {
			sel = sel.Without(later)
		}
	}
	return sel, nil
}

// Candidates returns the records, in table order, that satisfy every
// selected attribute. An empty result is a valid state, not an error.
func (f *Filter) Candidates(sel core.Selection) []core.MaterialRecord {
	var candidates []core.MaterialRecord
	for _, record := range f.table.Records {
		if sel.Matches(record) {
			candidates = append(candidates, record)
		}
	}
	return candidates
}

// AutoResolve returns sel with each unselected auto-resolvable attribute
// filled in when the candidates leave exactly one distinct value for it.
// Attributes are considered in cascade order, each over the candidates
// that agree with the values implied before it. The result is meant for
// display and is not fed back into option lists.
func AutoResolve(candidates []core.MaterialRecord, sel core.Selection) core.Selection {
	working := candidates
	for _, attr := range core.AutoResolvable {
		if _, ok := sel.Get(attr); ok {
			continue
		}

		value, single := singleValue(working, attr)
		if !single {
			continue
		}
		sel = sel.With(attr, value)

		narrowed := working[:0:0]
		for _, record := range working {
			if record.Attribute(attr) == value {
				narrowed = append(narrowed, record)
			}
		}
		working = narrowed
	}
	return sel
}

func singleValue(records []core.MaterialRecord, attr core.Attribute) (string, bool) {
	var value string
	for _, record := range records {
		v := record.Attribute(attr)
		switch {
		case v == "":
		case value == "":
			value = v
		case v != value:
			return "", false
		}
	}
	return value, value != ""
}
