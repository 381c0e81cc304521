package db

import (
	"time"

	"github.com/google/uuid"
	"github.com/nickyhof/stressdb/core"
)

// Session is the query context of one user: the variant being browsed and
// the current selection. The engine keeps no per-user state, so every call
// names its session. A Session must not be shared between goroutines.
type Session struct {
	ID        uuid.UUID
	Variant   string
	Selection core.Selection
	Created   time.Time
}

func NewSession(variant string) *Session {
	return &Session{
		ID:        uuid.New(),
		Variant:   variant,
		Selection: core.NewSelection(),
		Created:   time.Now(),
	}
}

// Reset clears every selection.
func (s *Session) Reset() {
	s.Selection = core.NewSelection()
}

// Use switches the session to another variant. Selections do not carry
// over because option values differ between variants.
func (s *Session) Use(variant string) {
	s.Variant = variant
	s.Reset()
}
