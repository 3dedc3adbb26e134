package compiler

import (
	"strconv"
	"unicode"
	"unicode/utf8"
)

// ---------------------------------------------------------------------------
// Lexer: Tokenizer for Lispík source
// ---------------------------------------------------------------------------

// Lexer tokenizes Lispík source code.
type Lexer struct {
	input   string
	pos     int  // current position in input
	readPos int  // reading position (after current char)
	ch      rune // current character
	line    int  // current line (0-based)
	col     int  // current column (0-based)
	done    bool // EOF token already handed out
}

// NewLexer creates a new lexer for the given input.
func NewLexer(input string) *Lexer {
	l := &Lexer{input: input, col: -1}
	l.readChar()
	return l
}

// readChar reads the next character.
func (l *Lexer) readChar() {
	if l.ch == '\n' {
		l.line++
		l.col = -1
	}
	if l.readPos >= len(l.input) {
		l.ch = 0 // EOF
		l.pos = l.readPos
		l.col++
		return
	}
	r, size := utf8.DecodeRuneInString(l.input[l.readPos:])
	l.ch = r
	l.pos = l.readPos
	l.readPos += size
	l.col++
}

// peekChar returns the next character without consuming it.
func (l *Lexer) peekChar() rune {
	if l.readPos >= len(l.input) {
		return 0
	}
	r, _ := utf8.DecodeRuneInString(l.input[l.readPos:])
	return r
}

func (l *Lexer) atEOF() bool {
	return l.pos >= len(l.input)
}

// position returns the current position.
func (l *Lexer) position() Position {
	return Position{Line: l.line, Column: l.col}
}

// NextToken returns the next token. After the EOF token has been returned
// once, further calls fail with EOFReached.
func (l *Lexer) NextToken() (Token, error) {
	if err := l.skipWhitespaceAndComments(); err != nil {
		return Token{}, err
	}

	pos := l.position()

	if l.atEOF() {
		if l.done {
			return Token{}, &TokenError{Kind: EOFReached, Pos: pos}
		}
		l.done = true
		return Token{Type: TokenEOF, Pos: pos, Offset: l.pos}, nil
	}

	start := l.pos
	tok, err := l.scan(pos)
	tok.Offset = start
	return tok, err
}

func (l *Lexer) scan(pos Position) (Token, error) {
	switch ch := l.ch; {
	case ch == '(':
		l.readChar()
		return Token{Type: TokenOpen, Literal: "(", Pos: pos}, nil

	case ch == ')':
		l.readChar()
		return Token{Type: TokenClose, Literal: ")", Pos: pos}, nil

	case ch == '\'':
		l.readChar()
		return Token{Type: TokenQuote, Literal: "'", Pos: pos}, nil

	case ch == '+':
		l.readChar()
		return l.operator(OperatorAdd, pos), nil

	case ch == '*':
		l.readChar()
		return l.operator(OperatorMul, pos), nil

	case ch == '/':
		l.readChar()
		return l.operator(OperatorDiv, pos), nil

	case ch == '<':
		l.readChar()
		if l.ch == '=' {
			l.readChar()
			return l.operator(OperatorLowerEq, pos), nil
		}
		return l.operator(OperatorLower, pos), nil

	case ch == '>':
		l.readChar()
		if l.ch == '=' {
			l.readChar()
			return l.operator(OperatorGreaterEq, pos), nil
		}
		return l.operator(OperatorGreater, pos), nil

	case ch == '-':
		if isDigit(l.peekChar()) {
			return l.readNumber(pos)
		}
		l.readChar()
		return l.operator(OperatorSub, pos), nil

	case isDigit(ch):
		return l.readNumber(pos)

	case IsIdentStart(ch):
		return l.readIdentifier(pos), nil
	}

	return Token{}, &TokenError{Kind: UnknownCharacter, Pos: pos, Char: l.ch}
}

func (l *Lexer) operator(op Operator, pos Position) Token {
	return Token{Type: TokenOperator, Literal: op.String(), Operator: op, Pos: pos}
}

// ---------------------------------------------------------------------------
// Whitespace and comments
// ---------------------------------------------------------------------------

func (l *Lexer) skipWhitespaceAndComments() error {
	for !l.atEOF() {
		switch {
		case unicode.IsSpace(l.ch):
			l.readChar()

		case l.ch == ';':
			for !l.atEOF() && l.ch != '\n' {
				l.readChar()
			}

		case l.ch == '#':
			start := l.position()
			if l.peekChar() != '|' {
				return &TokenError{Kind: CommentWrongFormat, Pos: start}
			}
			l.readChar()
			l.readChar()
			if err := l.skipBlockComment(start); err != nil {
				return err
			}

		default:
			return nil
		}
	}
	return nil
}

// skipBlockComment consumes everything up to and including the closing |#.
// Block comments do not nest.
func (l *Lexer) skipBlockComment(start Position) error {
	for {
		if l.atEOF() {
			return &TokenError{Kind: UnclosedComment, Pos: start}
		}
		if l.ch == '|' && l.peekChar() == '#' {
			l.readChar()
			l.readChar()
			return nil
		}
		l.readChar()
	}
}

// ---------------------------------------------------------------------------
// Numbers and identifiers
// ---------------------------------------------------------------------------

func (l *Lexer) readNumber(pos Position) (Token, error) {
	start := l.pos
	if l.ch == '-' {
		l.readChar()
	}
	for isDigit(l.ch) {
		l.readChar()
	}
	text := l.input[start:l.pos]

	n, err := strconv.ParseInt(text, 10, 64)
	if err != nil {
		return Token{}, &TokenError{Kind: NumberOutOfRange, Pos: pos, Text: text}
	}
	return Token{Type: TokenNumber, Literal: text, Number: n, Pos: pos}, nil
}

func (l *Lexer) readIdentifier(pos Position) Token {
	start := l.pos
	for !l.atEOF() && IsIdentPart(l.ch) {
		l.readChar()
	}
	return Token{Type: TokenText, Literal: l.input[start:l.pos], Pos: pos}
}

func isLetter(r rune) bool {
	return unicode.IsLetter(r)
}

func isDigit(r rune) bool {
	return r >= '0' && r <= '9'
}

// Tokenize runs the lexer to completion. The returned slice always ends with
// a TokenEOF.
func Tokenize(input string) ([]Token, error) {
	l := NewLexer(input)
	var tokens []Token
	for {
		tok, err := l.NextToken()
		if err != nil {
			return nil, err
		}
		tokens = append(tokens, tok)
		if tok.Type == TokenEOF {
			return tokens, nil
		}
	}
}
