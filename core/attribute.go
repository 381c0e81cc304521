package core

import (
	"fmt"
	"strings"
)

// Attribute is one of the six filter columns of a material table.
type Attribute int

const (
	Composition Attribute = iota
	Product
	SpecNo
	TypeGrade
	Class
	SizeTck
)

// AttributeCount is the number of filter attributes.
const AttributeCount = 6

// Attributes lists the filter attributes in cascade order.
var Attributes = []Attribute{Composition, Product, SpecNo, TypeGrade, Class, SizeTck}

// AutoResolvable lists the attributes that may be implied when a
// candidate set leaves them with a single distinct value.
var AutoResolvable = []Attribute{TypeGrade, Class, SizeTck}

func (a Attribute) Valid() bool {
	return a >= Composition && a <= SizeTck
}

func (a Attribute) String() string {
	switch a {
	case Composition:
		return "Composition"
	case Product:
		return "Product"
	case SpecNo:
		return "SpecNo"
	case TypeGrade:
		return "TypeGrade"
	case Class:
		return "Class"
	case SizeTck:
		return "SizeTck"
	default:
		return fmt.Sprintf("Attribute(%d)", int(a))
	}
}

// Label returns the column heading used in the published tables.
func (a Attribute) Label() string {
	switch a {
	case SpecNo:
		return "Spec No"
	case TypeGrade:
		return "Type/Grade"
	case SizeTck:
		return "Size/Tck"
	default:
		return a.String()
	}
}

func (a Attribute) MarshalText() ([]byte, error) {
	if !a.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownAttribute, int(a))
	}
	return []byte(a.String()), nil
}

func (a *Attribute) UnmarshalText(text []byte) error {
	parsed, err := ParseAttribute(string(text))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// ParseAttribute resolves an attribute from its name or published heading.
// Matching ignores case, spaces, underscores, dashes, dots and slashes, so
// "Spec No", "spec_no" and "SPECNO" all resolve to SpecNo.
func ParseAttribute(name string) (Attribute, error) {
	var b strings.Builder
	for _, r := range strings.ToLower(name) {
		switch r {
		case ' ', '_', '-', '.', '/':
			continue
		}
		b.WriteRune(r)
	}

	switch b.String() {
	case "composition":
		return Composition, nil
	case "product", "productform":
		return Product, nil
	case "specno", "spec", "specification":
		return SpecNo, nil
	case "typegrade", "type", "grade":
		return TypeGrade, nil
	case "class", "classcondtemper":
		return Class, nil
	case "sizetck", "size", "thickness", "sizethickness":
		return SizeTck, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownAttribute, name)
	}
}
