package query

import (
	"errors"
	"reflect"
	"testing"

	"github.com/nickyhof/stressdb/core"
)

func TestParser(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected Statement
	}{
		{"show variants", "SHOW VARIANTS", ShowVariantsStatement{}},
		{"lower case", "show variants;", ShowVariantsStatement{}},
		{"use bare", "USE Table-1A", UseStatement{Variant: "Table-1A"}},
		{"use quoted", "USE 'Table-3'", UseStatement{Variant: "Table-3"}},
		{"show options", "SHOW OPTIONS Composition", ShowOptionsStatement{Attribute: core.Composition}},
		{"show options heading", "SHOW OPTIONS 'Spec No'", ShowOptionsStatement{Attribute: core.SpecNo}},
		{"select", "SELECT SpecNo = 'SA-516'", SelectStatement{Attribute: core.SpecNo, Value: "SA-516"}},
		{"set alias", "SET Type_Grade = '70'", SelectStatement{Attribute: core.TypeGrade, Value: "70"}},
		{"select number", "SELECT Class = 2", SelectStatement{Attribute: core.Class, Value: "2"}},
		{"select digit-led grade", "SELECT TypeGrade = 304L", SelectStatement{Attribute: core.TypeGrade, Value: "304L"}},
		{"select digit-led composition", "SELECT Composition = 2.25Cr-1Mo", SelectStatement{Attribute: core.Composition, Value: "2.25Cr-1Mo"}},
		{"select fraction", "SELECT SizeTck = 1/2", SelectStatement{Attribute: core.SizeTck, Value: "1/2"}},
		{"select quote escape", "SELECT Product = 'Smls. pipe ''A'''", SelectStatement{Attribute: core.Product, Value: "Smls. pipe 'A'"}},
		{"select clears", "SELECT Size/Tck = ''", SelectStatement{Attribute: core.SizeTck, Value: ""}},
		{"clear", "CLEAR class", ClearStatement{Attribute: core.Class}},
		{"reset", "RESET", ResetStatement{}},
		{"show selection", "SHOW SELECTION", ShowSelectionStatement{}},
		{"show candidates", "SHOW CANDIDATES", ShowCandidatesStatement{}},
		{"show candidates limit", "SHOW CANDIDATES LIMIT 5", ShowCandidatesStatement{Limit: 5}},
		{"show curve", "SHOW CURVE", ShowCurveStatement{}},
		{"interpolate", "INTERPOLATE 150", InterpolateStatement{TemperatureC: 150}},
		{"interpolate decimal", "INTERPOLATE 162.5", InterpolateStatement{TemperatureC: 162.5}},
		{"interpolate negative", "INTERPOLATE -29", InterpolateStatement{TemperatureC: -29}},
		{"stress at", "STRESS AT 300", InterpolateStatement{TemperatureC: 300}},
		{"show notes", "SHOW NOTES", ShowNotesStatement{}},
		{"show notes strict", "SHOW NOTES STRICT", ShowNotesStatement{Strict: true}},
		{"describe", "DESCRIBE", DescribeStatement{}},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			statement, err := Parse(test.input)
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if !reflect.DeepEqual(statement, test.expected) {
				t.Errorf("Expected %#v, got %#v", test.expected, statement)
			}
		})
	}
}

func TestParserErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"empty", ""},
		{"unknown statement", "DROP TABLE x"},
		{"show nothing", "SHOW"},
		{"select without value", "SELECT SpecNo ="},
		{"select without equals", "SELECT SpecNo 'SA-516'"},
		{"unterminated string", "SELECT SpecNo = 'SA-516"},
		{"interpolate without number", "INTERPOLATE hot"},
		{"interpolate with unit", "INTERPOLATE 150C"},
		{"stress without at", "STRESS 100"},
		{"bad limit", "SHOW CANDIDATES LIMIT 2.5"},
		{"trailing tokens", "RESET now"},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if _, err := Parse(test.input); !errors.Is(err, ErrSyntax) {
				t.Errorf("Expected syntax error for %q, got %v", test.input, err)
			}
		})
	}
}

func TestParserUnknownAttribute(t *testing.T) {
	_, err := Parse("SHOW OPTIONS Colour")
	if !errors.Is(err, core.ErrUnknownAttribute) {
		t.Errorf("Expected ErrUnknownAttribute, got %v", err)
	}
}

func TestTokenize(t *testing.T) {
	tokens := tokenize("select SpecNo = 'SA-516';")
	expected := []TokenType{Select, Identifier, Equals, String, Semicolon, EOF}

	if len(tokens) != len(expected) {
		t.Fatalf("Expected %d tokens, got %v", len(expected), tokens)
	}
	for i, tokenType := range expected {
		if tokens[i].Type != tokenType {
			t.Errorf("Token %d: expected %v, got %v", i, tokenType, tokens[i])
		}
	}
	if tokens[3].Value != "SA-516" {
		t.Errorf("Expected string value SA-516, got %s", tokens[3].Value)
	}
}

func TestTokenizeDigitLedWord(t *testing.T) {
	tokens := tokenize("SELECT TypeGrade = 316H;")
	if len(tokens) != 6 {
		t.Fatalf("Expected 6 tokens, got %v", tokens)
	}
	if tokens[3].Type != Identifier || tokens[3].Value != "316H" {
		t.Errorf("Expected identifier 316H, got %v", tokens[3])
	}
	if tokens[4].Type != Semicolon {
		t.Errorf("Expected semicolon after 316H, got %v", tokens[4])
	}

	tokens = tokenize("INTERPOLATE -29")
	if tokens[1].Type != Number || tokens[1].Value != "-29" {
		t.Errorf("Expected number -29, got %v", tokens[1])
	}
}
