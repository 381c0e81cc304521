package db

import (
	"testing"

	"github.com/nickyhof/stressdb/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func keys(records []core.MaterialRecord) []string {
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = r.Key
	}
	return out
}

func TestOptionsWholeTable(t *testing.T) {
	f := NewFilter(ferrousTable())

	options, err := f.Options(core.Composition, core.NewSelection())
	require.NoError(t, err)
	assert.Equal(t, []string{"Carbon steel", "Low alloy"}, options)

	// Empty cells are never offered
	options, err = f.Options(core.Class, core.NewSelection())
	require.NoError(t, err)
	assert.Equal(t, []string{"2"}, options)
}

func TestOptionsDependOnlyOnEarlierAttributes(t *testing.T) {
	f := NewFilter(ferrousTable())

	sel := core.NewSelection().With(core.Composition, "Carbon steel")
	options, err := f.Options(core.Product, sel)
	require.NoError(t, err)
	assert.Equal(t, []string{"Pipe", "Plate"}, options)

	// A later selection does not narrow an earlier attribute's options
	sel = sel.With(core.SpecNo, "SA-106")
	options, err = f.Options(core.Composition, sel)
	require.NoError(t, err)
	assert.Equal(t, []string{"Carbon steel", "Low alloy"}, options)

	// Nor does the attribute's own selection
	options, err = f.Options(core.SpecNo, sel)
	require.NoError(t, err)
	assert.Equal(t, []string{"SA-106", "SA-516"}, options)
}

func TestOptionsUnknownAttribute(t *testing.T) {
	_, err := NewFilter(ferrousTable()).Options(core.Attribute(9), core.NewSelection())
	assert.ErrorIs(t, err, core.ErrUnknownAttribute)

	_, err = NewFilter(ferrousTable()).Apply(core.NewSelection(), core.Attribute(-1), "x")
	assert.ErrorIs(t, err, core.ErrUnknownAttribute)
}

func TestMonotonicNarrowing(t *testing.T) {
	f := NewFilter(ferrousTable())

	steps := []struct {
		attr  core.Attribute
		value string
	}{
		{core.SpecNo, "SA-516"},
		{core.Composition, "Carbon steel"},
		{core.Product, "Plate"},
		{core.TypeGrade, "70"},
		{core.SizeTck, "t<=50"},
	}

	sel := core.NewSelection()
	previous := keys(f.Candidates(sel))
	for _, step := range steps {
		var err error
		sel, err = f.Apply(sel, step.attr, step.value)
		require.NoError(t, err)

		current := keys(f.Candidates(sel))
		assert.Subset(t, previous, current, "after selecting %s", step.attr)
		previous = current
	}
	assert.Empty(t, previous)
}

func TestApplyReplacingDropsInvalidLaterSelections(t *testing.T) {
	f := NewFilter(ferrousTable())

	sel := core.NewSelection()
	for _, step := range [][2]string{{"Composition", "Carbon steel"}, {"Product", "Plate"}, {"SpecNo", "SA-516"}, {"TypeGrade", "70"}} {
		attr, err := core.ParseAttribute(step[0])
		require.NoError(t, err)
		sel, err = f.Apply(sel, attr, step[1])
		require.NoError(t, err)
	}

	sel, err := f.Apply(sel, core.Product, "Pipe")
	require.NoError(t, err)

	assert.Equal(t, []core.Attribute{core.Composition, core.Product}, sel.Selected())
	assert.Equal(t, []string{"000003", "000004"}, keys(f.Candidates(sel)))
}

func TestApplyClearingKeepsStillValidSelections(t *testing.T) {
	f := NewFilter(ferrousTable())

	sel := core.NewSelection().
		With(core.Composition, "Carbon steel").
		With(core.Product, "Pipe").
		With(core.SpecNo, "SA-106")

	sel, err := f.Apply(sel, core.Composition, "")
	require.NoError(t, err)

	_, ok := sel.Get(core.Composition)
	assert.False(t, ok)
	assert.Equal(t, []core.Attribute{core.Product, core.SpecNo}, sel.Selected())

	// Clearing Product leaves SpecNo offered only if some record still has it
	sel = core.NewSelection().With(core.Composition, "Low alloy").With(core.Product, "Plate").With(core.SpecNo, "SA-387")
	sel, err = f.Apply(sel, core.Composition, "Carbon steel")
	require.NoError(t, err)
	assert.Equal(t, []core.Attribute{core.Composition, core.Product}, sel.Selected())
}

func TestResetIdempotence(t *testing.T) {
	table := ferrousTable()
	f := NewFilter(table)

	sel := core.NewSelection().With(core.SpecNo, "SA-106").With(core.TypeGrade, "B")
	require.Len(t, f.Candidates(sel), 1)

	for _, attr := range sel.Selected() {
		var err error
		sel, err = f.Apply(sel, attr, "")
		require.NoError(t, err)
	}

	assert.Equal(t, table.Records, f.Candidates(sel))
	assert.Equal(t, table.Records, f.Candidates(core.NewSelection()))
}

func TestCandidatesNoMatchIsEmpty(t *testing.T) {
	f := NewFilter(ferrousTable())

	candidates := f.Candidates(core.NewSelection().With(core.SpecNo, "SA-999"))
	assert.Empty(t, candidates)
}

func TestAutoResolve(t *testing.T) {
	f := NewFilter(ferrousTable())

	sel := core.NewSelection().With(core.Composition, "Low alloy")
	resolved := AutoResolve(f.Candidates(sel), sel)

	v, ok := resolved.Get(core.TypeGrade)
	assert.True(t, ok)
	assert.Equal(t, "11", v)
	v, _ = resolved.Get(core.Class)
	assert.Equal(t, "2", v)
	v, _ = resolved.Get(core.SizeTck)
	assert.Equal(t, "t<=50", v)

	// Attributes outside the auto-resolvable set are never implied
	_, ok = resolved.Get(core.SpecNo)
	assert.False(t, ok)

	// The input selection is untouched
	assert.Equal(t, []core.Attribute{core.Composition}, sel.Selected())
}

func TestAutoResolveKeepsAmbiguousUnset(t *testing.T) {
	f := NewFilter(ferrousTable())

	sel := core.NewSelection().With(core.SpecNo, "SA-516")
	resolved := AutoResolve(f.Candidates(sel), sel)

	_, ok := resolved.Get(core.TypeGrade)
	assert.False(t, ok, "60 and 70 remain")
	assert.Equal(t, sel, resolved)

	// An explicit choice is not overridden
	sel = sel.With(core.TypeGrade, "70")
	resolved = AutoResolve(f.Candidates(sel), sel)
	v, _ := resolved.Get(core.TypeGrade)
	assert.Equal(t, "70", v)
}
