package query

import (
	"errors"
	"fmt"
	"math"
	"strconv"

	"github.com/nickyhof/stressdb/core"
)

var ErrSyntax = errors.New("syntax error")

type StatementType int

const (
	ShowVariantsStatementType StatementType = iota
	UseStatementType
	ShowOptionsStatementType
	SelectStatementType
	ClearStatementType
	ResetStatementType
	ShowSelectionStatementType
	ShowCandidatesStatementType
	ShowCurveStatementType
	InterpolateStatementType
	ShowNotesStatementType
	DescribeStatementType
)

var statementNames = [...]string{
	ShowVariantsStatementType:   "SHOW VARIANTS",
	UseStatementType:            "USE",
	ShowOptionsStatementType:    "SHOW OPTIONS",
	SelectStatementType:         "SELECT",
	ClearStatementType:          "CLEAR",
	ResetStatementType:          "RESET",
	ShowSelectionStatementType:  "SHOW SELECTION",
	ShowCandidatesStatementType: "SHOW CANDIDATES",
	ShowCurveStatementType:      "SHOW CURVE",
	InterpolateStatementType:    "INTERPOLATE",
	ShowNotesStatementType:      "SHOW NOTES",
	DescribeStatementType:       "DESCRIBE",
}

func (t StatementType) String() string {
	if int(t) < len(statementNames) {
		return statementNames[t]
	}
	return fmt.Sprintf("StatementType(%d)", int(t))
}

type Statement interface {
	Type() StatementType
}

type ShowVariantsStatement struct{}

type UseStatement struct {
	Variant string
}

type ShowOptionsStatement struct {
	Attribute core.Attribute
}

// SelectStatement sets one attribute of the session selection.
type SelectStatement struct {
	Attribute core.Attribute
	Value     string
}

type ClearStatement struct {
	Attribute core.Attribute
}

type ResetStatement struct{}

type ShowSelectionStatement struct{}

type ShowCandidatesStatement struct {
	Limit int // 0 means no limit
}

type ShowCurveStatement struct{}

type InterpolateStatement struct {
	TemperatureC float64
}

type ShowNotesStatement struct {
	Strict bool
}

type DescribeStatement struct{}

func (s ShowVariantsStatement) Type() StatementType   { return ShowVariantsStatementType }
func (s UseStatement) Type() StatementType            { return UseStatementType }
func (s ShowOptionsStatement) Type() StatementType    { return ShowOptionsStatementType }
func (s SelectStatement) Type() StatementType         { return SelectStatementType }
func (s ClearStatement) Type() StatementType          { return ClearStatementType }
func (s ResetStatement) Type() StatementType          { return ResetStatementType }
func (s ShowSelectionStatement) Type() StatementType  { return ShowSelectionStatementType }
func (s ShowCandidatesStatement) Type() StatementType { return ShowCandidatesStatementType }
func (s ShowCurveStatement) Type() StatementType      { return ShowCurveStatementType }
func (s InterpolateStatement) Type() StatementType    { return InterpolateStatementType }
func (s ShowNotesStatement) Type() StatementType      { return ShowNotesStatementType }
func (s DescribeStatement) Type() StatementType       { return DescribeStatementType }

type Parser struct {
	lexer *Lexer
}

func NewParser(input string) *Parser {
	return &Parser{lexer: NewLexer(input)}
}

// Parse parses a single statement, optionally terminated by a semicolon.
func Parse(input string) (Statement, error) {
	return NewParser(input).Parse()
}

func (parser *Parser) Parse() (Statement, error) {
	statement, err := parser.parseStatement()
	if err != nil {
		return nil, err
	}

	token := parser.lexer.NextToken()
	if token.Type == Semicolon {
		token = parser.lexer.NextToken()
	}
	if token.Type != EOF {
		return nil, syntaxError("unexpected %s after %s", token, statement.Type())
	}
	return statement, nil
}

func (parser *Parser) parseStatement() (Statement, error) {
	token := parser.lexer.NextToken()
	switch token.Type {
	case Show:
		return parser.parseShow()
	case Use:
		name, err := parser.expectName("variant")
		if err != nil {
			return nil, err
		}
		return UseStatement{Variant: name}, nil
	case Select, Set:
		return parser.parseSelect()
	case Clear:
		attr, err := parser.expectAttribute()
		if err != nil {
			return nil, err
		}
		return ClearStatement{Attribute: attr}, nil
	case Reset:
		return ResetStatement{}, nil
	case Interpolate:
		temp, err := parser.expectTemperature()
		if err != nil {
			return nil, err
		}
		return InterpolateStatement{TemperatureC: temp}, nil
	case Stress:
		// STRESS AT <t>
		if token := parser.lexer.NextToken(); token.Type != At {
			return nil, syntaxError("expected AT after STRESS")
		}
		temp, err := parser.expectTemperature()
		if err != nil {
			return nil, err
		}
		return InterpolateStatement{TemperatureC: temp}, nil
	case Describe:
		return DescribeStatement{}, nil
	case EOF:
		return nil, syntaxError("empty statement")
	default:
		return nil, syntaxError("unknown statement %s", token)
	}
}

func (parser *Parser) parseShow() (Statement, error) {
	token := parser.lexer.NextToken()
	switch token.Type {
	case Variants:
		return ShowVariantsStatement{}, nil
	case Options:
		attr, err := parser.expectAttribute()
		if err != nil {
			return nil, err
		}
		return ShowOptionsStatement{Attribute: attr}, nil
	case Selection:
		return ShowSelectionStatement{}, nil
	case Candidates:
		statement := ShowCandidatesStatement{}
		if parser.lexer.PeekToken().Type == Limit {
			parser.lexer.NextToken()
			token := parser.lexer.NextToken()
			limit, err := strconv.Atoi(token.Value)
			if token.Type != Number || err != nil || limit < 0 {
				return nil, syntaxError("expected a non-negative integer after LIMIT, got %s", token)
			}
			statement.Limit = limit
		}
		return statement, nil
	case Curve:
		return ShowCurveStatement{}, nil
	case Notes:
		statement := ShowNotesStatement{}
		if parser.lexer.PeekToken().Type == Strict {
			parser.lexer.NextToken()
			statement.Strict = true
		}
		return statement, nil
	default:
		return nil, syntaxError("expected VARIANTS, OPTIONS, SELECTION, CANDIDATES, CURVE or NOTES after SHOW")
	}
}

// parseSelect parses <attribute> = <value>. An empty string value clears
// the attribute.
func (parser *Parser) parseSelect() (Statement, error) {
	attr, err := parser.expectAttribute()
	if err != nil {
		return nil, err
	}

	if token := parser.lexer.NextToken(); token.Type != Equals {
		return nil, syntaxError("expected '=' after %s", attr)
	}

	token := parser.lexer.NextToken()
	switch token.Type {
	case String, Number, Identifier:
		return SelectStatement{Attribute: attr, Value: token.Value}, nil
	default:
		return nil, syntaxError("expected a value for %s, got %s", attr, token)
	}
}

func (parser *Parser) expectAttribute() (core.Attribute, error) {
	token := parser.lexer.NextToken()
	if token.Type != Identifier && token.Type != String {
		return 0, syntaxError("expected an attribute name, got %s", token)
	}
	return core.ParseAttribute(token.Value)
}

func (parser *Parser) expectName(what string) (string, error) {
	token := parser.lexer.NextToken()
	if token.Type != Identifier && token.Type != String {
		return "", syntaxError("expected %s name, got %s", what, token)
	}
	return token.Value, nil
}

func (parser *Parser) expectTemperature() (float64, error) {
	token := parser.lexer.NextToken()
	if token.Type != Number {
		return 0, syntaxError("expected a temperature, got %s", token)
	}
	temp, err := strconv.ParseFloat(token.Value, 64)
	if err != nil || math.IsInf(temp, 0) {
		return 0, syntaxError("invalid temperature %s", token.Value)
	}
	return temp, nil
}

func syntaxError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrSyntax, fmt.Sprintf(format, args...))
}
