package db

import (
	"github.com/nickyhof/stressdb/core"
)

// NoteResolution is one note code of a record with its text.
type NoteResolution struct {
	Code     string `json:"code"`
	Detail   string `json:"detail"`
	Resolved bool   `json:"resolved"`
}

type noteOptions struct {
	strict       bool
	onUnresolved func(code string)
}

type NoteOption func(*noteOptions)

// WithStrictNotes keeps codes missing from the dictionary in the result,
// marked unresolved, instead of dropping them.
func WithStrictNotes() NoteOption {
	return func(o *noteOptions) { o.strict = true }
}

// WithUnresolvedHandler calls fn for every code missing from the dictionary.
func WithUnresolvedHandler(fn func(code string)) NoteOption {
	return func(o *noteOptions) { o.onUnresolved = fn }
}

// ResolveNotes looks up each of the record's note codes, keeping their order
// and duplicates. Unknown codes are dropped unless WithStrictNotes is given.
func ResolveNotes(record core.MaterialRecord, notes map[string]core.NoteEntry, opts ...NoteOption) []NoteResolution {
	var o noteOptions
	for _, opt := range opts {
		opt(&o)
	}

	resolutions := make([]NoteResolution, 0, len(record.NoteCodes))
	for _, code := range record.NoteCodes {
		entry, ok := notes[code]
		if !ok {
			if o.onUnresolved != nil {
				o.onUnresolved(code)
			}
			if o.strict {
				resolutions = append(resolutions, NoteResolution{Code: code})
			}
			continue
		}
		resolutions = append(resolutions, NoteResolution{Code: code, Detail: entry.Detail, Resolved: true})
	}
	return resolutions
}
