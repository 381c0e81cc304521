package query

type Token struct {
	Type  TokenType
	Value string
}

type TokenType int

const (
	Identifier TokenType = iota
	String
	Number
	Equals
	Semicolon
	Show
	Variants
	Use
	Options
	Select
	Set
	Clear
	Reset
	Selection
	Candidates
	Limit
	Curve
	Interpolate
	Stress
	At
	Notes
	Strict
	Describe
	EOF
	Unknown
)

var tokenNames = map[TokenType]string{
	Identifier:  "Identifier",
	String:      "String",
	Number:      "Number",
	Equals:      "Equals",
	Semicolon:   "Semicolon",
	Show:        "Show",
	Variants:    "Variants",
	Use:         "Use",
	Options:     "Options",
	Select:      "Select",
	Set:         "Set",
	Clear:       "Clear",
	Reset:       "Reset",
	Selection:   "Selection",
	Candidates:  "Candidates",
	Limit:       "Limit",
	Curve:       "Curve",
	Interpolate: "Interpolate",
	Stress:      "Stress",
	At:          "At",
	Notes:       "Notes",
	Strict:      "Strict",
	Describe:    "Describe",
	EOF:         "EOF",
	Unknown:     "Unknown",
}

var keywords = map[string]TokenType{
	"SHOW":        Show,
	"VARIANTS":    Variants,
	"USE":         Use,
	"OPTIONS":     Options,
	"SELECT":      Select,
	"SET":         Set,
	"CLEAR":       Clear,
	"RESET":       Reset,
	"SELECTION":   Selection,
	"CANDIDATES":  Candidates,
	"LIMIT":       Limit,
	"CURVE":       Curve,
	"INTERPOLATE": Interpolate,
	"STRESS":      Stress,
	"AT":          At,
	"NOTES":       Notes,
	"STRICT":      Strict,
	"DESCRIBE":    Describe,
}

func (token Token) String() string {
	name := tokenNames[token.Type]
	switch token.Type {
	case Identifier, String, Number, Unknown:
		return name + "(" + token.Value + ")"
	default:
		return name
	}
}

type Lexer struct {
	input        string
	position     int
	readPosition int
	ch           byte
}

func NewLexer(input string) *Lexer {
	lexer := &Lexer{input: input}
	lexer.readChar()
	return lexer
}

func (lexer *Lexer) readChar() {
	if lexer.readPosition >= len(lexer.input) {
		lexer.ch = 0
	} else {
		lexer.ch = lexer.input[lexer.readPosition]
	}
	lexer.position = lexer.readPosition
	lexer.readPosition++
}

func (lexer *Lexer) peekChar() byte {
	if lexer.readPosition >= len(lexer.input) {
		return 0
	}
	return lexer.input[lexer.readPosition]
}

func (lexer *Lexer) NextToken() Token {
	lexer.skipWhitespace()

	switch {
	case lexer.ch == 0:
		return Token{Type: EOF}
	case lexer.ch == '=':
		lexer.readChar()
		return Token{Type: Equals, Value: "="}
	case lexer.ch == ';':
		lexer.readChar()
		return Token{Type: Semicolon, Value: ";"}
	case lexer.ch == '\'':
		value, ok := lexer.readString()
		if !ok {
			return Token{Type: Unknown, Value: "'" + value}
		}
		return Token{Type: String, Value: value}
	case isDigit(lexer.ch), (lexer.ch == '-' || lexer.ch == '+' || lexer.ch == '.') && isDigit(lexer.peekChar()):
		position := lexer.position
		number := lexer.readNumber()
		// digit-led words such as 304L or 2.25Cr-1Mo
		if isLetter(lexer.ch) || lexer.ch == '-' || lexer.ch == '/' || lexer.ch == '.' {
			lexer.readIdentifier()
			return Token{Type: Identifier, Value: lexer.input[position:lexer.position]}
		}
		return Token{Type: Number, Value: number}
	case isLetter(lexer.ch):
		literal := lexer.readIdentifier()
		if tokenType, ok := keywords[toUpper(literal)]; ok {
			return Token{Type: tokenType, Value: literal}
		}
		return Token{Type: Identifier, Value: literal}
	default:
		token := Token{Type: Unknown, Value: string(lexer.ch)}
		lexer.readChar()
		return token
	}
}

func (lexer *Lexer) PeekToken() Token {
	savedPosition := lexer.position
	savedReadPosition := lexer.readPosition
	savedCh := lexer.ch

	token := lexer.NextToken()

	lexer.position = savedPosition
	lexer.readPosition = savedReadPosition
	lexer.ch = savedCh

	return token
}

func (lexer *Lexer) skipWhitespace() {
	for lexer.ch == ' ' || lexer.ch == '\t' || lexer.ch == '\n' || lexer.ch == '\r' {
		lexer.readChar()
	}
}

// readIdentifier reads a bare word. Identifiers may contain '-', '/' and
// '.' after the first character so variant ids like Table-1A need no quotes.
func (lexer *Lexer) readIdentifier() string {
	position := lexer.position
	for isLetter(lexer.ch) || isDigit(lexer.ch) || lexer.ch == '-' || lexer.ch == '/' || lexer.ch == '.' {
		lexer.readChar()
	}
	return lexer.input[position:lexer.position]
}

// readString reads a single-quoted string. A doubled quote stands for one
// quote character. ok is false when the closing quote is missing.
func (lexer *Lexer) readString() (value string, ok bool) {
	var buf []byte
	lexer.readChar()
	for {
		switch lexer.ch {
		case 0:
			return string(buf), false
		case '\'':
			if lexer.peekChar() != '\'' {
				lexer.readChar()
				return string(buf), true
			}
			lexer.readChar()
		}
		buf = append(buf, lexer.ch)
		lexer.readChar()
	}
}

func (lexer *Lexer) readNumber() string {
	position := lexer.position
	if lexer.ch == '-' || lexer.ch == '+' {
		lexer.readChar()
	}
	for isDigit(lexer.ch) {
		lexer.readChar()
	}
	if lexer.ch == '.' {
		lexer.readChar()
		for isDigit(lexer.ch) {
			lexer.readChar()
		}
	}
	return lexer.input[position:lexer.position]
}

func isLetter(ch byte) bool {
	return ('a' <= ch && ch <= 'z') || ('A' <= ch && ch <= 'Z') || ch == '_'
}

func isDigit(ch byte) bool {
	return '0' <= ch && ch <= '9'
}

// toUpper converts a string to uppercase without allocating for ASCII strings
func toUpper(s string) string {
	for i := 0; i < len(s); i++ {
		if s[i] >= 'a' && s[i] <= 'z' {
			b := []byte(s)
			for j := i; j < len(b); j++ {
				if b[j] >= 'a' && b[j] <= 'z' {
					b[j] -= 32
				}
			}
			return string(b)
		}
	}
	return s
}

func tokenize(input string) []Token {
	lexer := NewLexer(input)

	var tokens []Token
	for {
		token := lexer.NextToken()
		tokens = append(tokens, token)
		if token.Type == EOF {
			return tokens
		}
	}
}
