package core

import (
	"encoding/json"
)

// Selection records the chosen value, if any, for each filter attribute.
// It is a value type: With and Without return modified copies.
type Selection struct {
	values [AttributeCount]string
}

func NewSelection() Selection {
	return Selection{}
}

// Get returns the selected value for an attribute and whether one is set.
func (s Selection) Get(a Attribute) (string, bool) {
	if !a.Valid() || s.values[a] == "" {
		return "", false
	}
	return s.values[a], true
}

func (s Selection) With(a Attribute, value string) Selection {
	if a.Valid() {
		s.values[a] = value
	}
	return s
}

func (s Selection) Without(a Attribute) Selection {
	if a.Valid() {
		s.values[a] = ""
	}
	return s
}

func (s Selection) IsEmpty() bool {
	for _, v := range s.values {
		if v != "" {
			return false
		}
	}
	return true
}

// Selected returns the attributes that have a value, in cascade order.
func (s Selection) Selected() []Attribute {
	var attrs []Attribute
	for _, a := range Attributes {
		if s.values[a] != "" {
			attrs = append(attrs, a)
		}
	}
	return attrs
}

// Matches reports whether a record satisfies every selected attribute.
func (s Selection) Matches(record MaterialRecord) bool {
	return s.MatchesBefore(record, Attribute(AttributeCount))
}

// MatchesBefore reports whether a record satisfies every selected attribute
// that comes before limit in cascade order.
func (s Selection) MatchesBefore(record MaterialRecord, limit Attribute) bool {
	for a := Composition; a < limit && a.Valid(); a++ {
		if v := s.values[a]; v != "" && record.Attribute(a) != v {
			return false
		}
	}
	return true
}

func (s Selection) Map() map[Attribute]string {
	m := make(map[Attribute]string)
	for _, a := range Attributes {
		if s.values[a] != "" {
			m[a] = s.values[a]
		}
	}
	return m
}

func (s Selection) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Map())
}

func (s *Selection) UnmarshalJSON(data []byte) error {
	var m map[Attribute]string
	if err := json.Unmarshal(data, &m); err != nil {
		return err
	}
	*s = Selection{}
	for a, v := range m {
		s.values[a] = v
	}
	return nil
}
