package compiler

import (
	"github.com/chazu/lispik/pkg/bytecode"
)

// ---------------------------------------------------------------------------
// Parser: Recursive descent parser for Lispík
// ---------------------------------------------------------------------------

// keyword identifies a builtin form.
type keyword int

const (
	kwNil keyword = iota
	kwCons
	kwCar
	kwCdr
	kwIsEqual
	kwIsAtom
	kwIsPair
	kwIsNil
	kwIsZero
	kwNot
	kwAnd
	kwOr
	kwIf
	kwList
	kwApply
	kwLambda
	kwDeFun
	kwLet
	kwLetRec
	kwPrint
	kwRead
)

// keywords maps every spelling, aliases included, to its builtin.
var keywords = map[string]keyword{
	"nil":    kwNil,
	"null":   kwNil,
	"cons":   kwCons,
	"car":    kwCar,
	"cdr":    kwCdr,
	"eq?":    kwIsEqual,
	"equal?": kwIsEqual,
	"atom?":  kwIsAtom,
	"pair?":  kwIsPair,
	"nil?":   kwIsNil,
	"null?":  kwIsNil,
	"zero?":  kwIsZero,
	"not":    kwNot,
	"and":    kwAnd,
	"or":     kwOr,
	"if":     kwIf,
	"list":   kwList,
	"apply":  kwApply,
	"lambda": kwLambda,
	"λ":      kwLambda,
	"defun":  kwDeFun,
	"def":    kwDeFun,
	"define": kwDeFun,
	"let":    kwLet,
	"letrec": kwLetRec,
	"print":  kwPrint,
	"read":   kwRead,
}

var unaryKeywords = map[keyword]UnaryKind{
	kwCar:    UnaryCar,
	kwCdr:    UnaryCdr,
	kwIsNil:  UnaryIsNil,
	kwIsAtom: UnaryIsAtom,
	kwIsPair: UnaryIsPair,
	kwIsZero: UnaryIsZero,
	kwNot:    UnaryNot,
	kwPrint:  UnaryPrint,
}

var binaryKeywords = map[keyword]BinaryKind{
	kwCons:    BinaryCons,
	kwIsEqual: BinaryIsEqual,
	kwAnd:     BinaryAnd,
	kwOr:      BinaryOr,
}

var operatorKinds = map[Operator]BinaryKind{
	OperatorAdd:       BinaryAdd,
	OperatorSub:       BinarySub,
	OperatorMul:       BinaryMul,
	OperatorDiv:       BinaryDiv,
	OperatorLower:     BinaryLower,
	OperatorGreater:   BinaryGreater,
	OperatorLowerEq:   BinaryLowerEq,
	OperatorGreaterEq: BinaryGreaterEq,
}

// IsKeyword reports whether name is a reserved builtin spelling.
func IsKeyword(name string) bool {
	_, ok := keywords[name]
	return ok
}

// Keywords returns every reserved spelling.
func Keywords() []string {
	out := make([]string, 0, len(keywords))
	for k := range keywords {
		out = append(out, k)
	}
	return out
}

// Parser parses Lispík source code into an AST.
type Parser struct {
	tokens []Token
	pos    int
	input  string // original source text (for source preservation)
}

// NewParser tokenizes input and prepares a parser over it.
func NewParser(input string) (*Parser, error) {
	tokens, err := Tokenize(input)
	if err != nil {
		return nil, err
	}
	return &Parser{tokens: tokens, input: input}, nil
}

// Parse parses a whole program.
func Parse(input string) (*GlobalScope, error) {
	p, err := NewParser(input)
	if err != nil {
		return nil, err
	}
	return p.ParseProgram()
}

// next consumes and returns the current token. The trailing EOF is sticky.
func (p *Parser) next() Token {
	tok := p.tokens[p.pos]
	if p.pos < len(p.tokens)-1 {
		p.pos++
	}
	return tok
}

func (p *Parser) peek() Token {
	return p.tokens[p.pos]
}

func (p *Parser) unexpected(tok Token) error {
	if tok.Type == TokenEOF {
		return &ParserError{Kind: EndReached, Pos: tok.Pos, Token: tok}
	}
	return &ParserError{Kind: UnexpectedToken, Pos: tok.Pos, Token: tok}
}

// expect consumes a token of type t.
func (p *Parser) expect(t TokenType) (Token, error) {
	tok := p.next()
	if tok.Type != t {
		return tok, p.unexpected(tok)
	}
	return tok, nil
}

// ---------------------------------------------------------------------------
// Top-level parsing
// ---------------------------------------------------------------------------

// ParseProgram parses expressions until EOF, collecting functions into the
// scope's function table.
func (p *Parser) ParseProgram() (*GlobalScope, error) {
	scope := &GlobalScope{}
	for p.peek().Type != TokenEOF {
		node, err := p.parseExpression(true)
		if err != nil {
			return nil, err
		}
		if fn, ok := node.(*DeFun); ok {
			if err := scope.AddFunction(fn); err != nil {
				return nil, err
			}
			continue
		}
		scope.Expressions = append(scope.Expressions, node)
	}
	return scope, nil
}

// parseExpression parses one expression. root is true only for top-level
// expressions, where defun is allowed.
func (p *Parser) parseExpression(root bool) (Node, error) {
	tok := p.next()

	switch tok.Type {
	case TokenNumber:
		return &IntegerLit{Value: tok.Number}, nil

	case TokenText:
		kw, isKw := keywords[tok.Literal]
		switch {
		case isKw && kw == kwNil:
			return &NilLit{}, nil
		case isKw:
			return nil, p.unexpected(tok)
		}
		return &VarRef{Name: tok.Literal, Pos: tok.Pos}, nil

	case TokenQuote:
		return p.parseQuote()

	case TokenOpen:
		node, err := p.parseCallable(root)
		if err != nil {
			return nil, err
		}
		closeTok, err := p.expect(TokenClose)
		if err != nil {
			return nil, err
		}
		if fn, ok := node.(*DeFun); ok {
			fn.Source = p.input[tok.Offset : closeTok.Offset+1]
		}
		return node, nil
	}

	return nil, p.unexpected(tok)
}

// parseArgs parses expressions up to, but not including, the closing bracket.
func (p *Parser) parseArgs() ([]Node, error) {
	var args []Node
	for {
		switch p.peek().Type {
		case TokenClose:
			return args, nil
		case TokenEOF:
			return nil, p.unexpected(p.peek())
		}
		arg, err := p.parseExpression(false)
		if err != nil {
			return nil, err
		}
		args = append(args, arg)
	}
}

// parseCallable parses the contents of a bracketed form after the opening
// bracket, leaving the closing bracket in place.
func (p *Parser) parseCallable(root bool) (Node, error) {
	head := p.next()

	switch head.Type {
	case TokenOpen:
		target, err := p.parseCallable(false)
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(TokenClose); err != nil {
			return nil, err
		}
		args, err := p.parseArgs()
		if err != nil {
			return nil, err
		}
		return &CallByEval{Target: target, Args: args}, nil

	case TokenOperator:
		args, err := p.parseArgs()
		if err != nil {
			return nil, err
		}
		if len(args) != 2 {
			return nil, &ParserError{
				Kind:     InvalidNumberOfArgumentsOperator,
				Pos:      head.Pos,
				Token:    head,
				Name:     head.Operator.String(),
				Expected: 2,
				Got:      len(args),
			}
		}
		return &Binary{Kind: operatorKinds[head.Operator], Arg0: args[0], Arg1: args[1]}, nil

	case TokenText:
		if kw, ok := keywords[head.Literal]; ok {
			return p.parseBuiltin(kw, head, root)
		}
		args, err := p.parseArgs()
		if err != nil {
			return nil, err
		}
		return &CallByName{Name: head.Literal, Args: args, Pos: head.Pos}, nil
	}

	return nil, p.unexpected(head)
}

// ---------------------------------------------------------------------------
// Builtins
// ---------------------------------------------------------------------------

func (p *Parser) fixedArgs(head Token, expected int) ([]Node, error) {
	args, err := p.parseArgs()
	if err != nil {
		return nil, err
	}
	if len(args) != expected {
		return nil, &ParserError{
			Kind:     InvalidNumberOfArgumentsBuildIn,
			Pos:      head.Pos,
			Token:    head,
			Name:     head.Literal,
			Expected: expected,
			Got:      len(args),
		}
	}
	return args, nil
}

func (p *Parser) parseBuiltin(kw keyword, head Token, root bool) (Node, error) {
	if kind, ok := unaryKeywords[kw]; ok {
		args, err := p.fixedArgs(head, 1)
		if err != nil {
			return nil, err
		}
		return &Unary{Kind: kind, Arg: args[0]}, nil
	}
	if kind, ok := binaryKeywords[kw]; ok {
		args, err := p.fixedArgs(head, 2)
		if err != nil {
			return nil, err
		}
		return &Binary{Kind: kind, Arg0: args[0], Arg1: args[1]}, nil
	}

	switch kw {
	case kwNil:
		if _, err := p.fixedArgs(head, 0); err != nil {
			return nil, err
		}
		return &NilLit{}, nil

	case kwRead:
		if _, err := p.fixedArgs(head, 0); err != nil {
			return nil, err
		}
		return &Nullary{Kind: NullaryRead}, nil

	case kwIf:
		args, err := p.fixedArgs(head, 3)
		if err != nil {
			return nil, err
		}
		return &If{Cond: args[0], Then: args[1], Else: args[2]}, nil

	case kwList:
		args, err := p.parseArgs()
		if err != nil {
			return nil, err
		}
		return &ListExpr{Items: args}, nil

	case kwApply:
		return p.parseApply(head)

	case kwLambda:
		params, err := p.parseParams()
		if err != nil {
			return nil, err
		}
		body, err := p.parseExpression(false)
		if err != nil {
			return nil, err
		}
		return &Lambda{Params: params, Body: body}, nil

	case kwDeFun:
		if !root {
			return nil, &ParserError{Kind: DeFunInNonRootScope, Pos: head.Pos, Token: head}
		}
		return p.parseDeFun(head)

	case kwLet, kwLetRec:
		name, value, body, err := p.parseLet()
		if err != nil {
			return nil, err
		}
		if kw == kwLetRec {
			return &LetRec{Name: name, Value: value, Body: body}, nil
		}
		return &Let{Name: name, Value: value, Body: body}, nil
	}

	return nil, p.unexpected(head)
}

// parseApply parses (apply target args...).
func (p *Parser) parseApply(head Token) (Node, error) {
	target := p.next()

	var node Node
	switch target.Type {
	case TokenText:
		node = &ApplyCall{Name: target.Literal, Pos: target.Pos}
	case TokenOperator:
		node = &ApplyOperator{Operator: target.Operator, Pos: target.Pos}
	case TokenOpen:
		inner, err := p.parseCallable(false)
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(TokenClose); err != nil {
			return nil, err
		}
		node = &ApplyEval{Target: inner}
	case TokenEOF:
		return nil, p.unexpected(target)
	default:
		return nil, &ParserError{Kind: ApplyTargetMissingOrInvalid, Pos: target.Pos, Token: target}
	}

	args, err := p.parseArgs()
	if err != nil {
		return nil, err
	}
	if len(args) == 0 {
		return nil, &ParserError{Kind: ApplyEmpty, Pos: head.Pos, Token: head}
	}

	switch n := node.(type) {
	case *ApplyCall:
		n.Args = args
	case *ApplyOperator:
		n.Args = args
	case *ApplyEval:
		n.Args = args
	}
	return node, nil
}

// parseParams parses a bracketed list of parameter names.
func (p *Parser) parseParams() ([]string, error) {
	if _, err := p.expect(TokenOpen); err != nil {
		return nil, err
	}
	var params []string
	for {
		tok := p.next()
		switch {
		case tok.Type == TokenClose:
			return params, nil
		case tok.Type == TokenText && !IsKeyword(tok.Literal):
			params = append(params, tok.Literal)
		default:
			return nil, p.unexpected(tok)
		}
	}
}

// parseDeFun parses ((name params...) body).
func (p *Parser) parseDeFun(head Token) (Node, error) {
	if _, err := p.expect(TokenOpen); err != nil {
		return nil, err
	}
	nameTok := p.next()
	if nameTok.Type != TokenText || IsKeyword(nameTok.Literal) {
		return nil, &ParserError{Kind: NameMissing, Pos: nameTok.Pos, Token: nameTok}
	}

	var params []string
	for {
		tok := p.next()
		if tok.Type == TokenClose {
			break
		}
		if tok.Type != TokenText || IsKeyword(tok.Literal) {
			return nil, p.unexpected(tok)
		}
		params = append(params, tok.Literal)
	}

	body, err := p.parseExpression(false)
	if err != nil {
		return nil, err
	}
	return &DeFun{Name: nameTok.Literal, Params: params, Body: body, Pos: head.Pos}, nil
}

// parseLet parses ((name value) body).
func (p *Parser) parseLet() (string, Node, Node, error) {
	if _, err := p.expect(TokenOpen); err != nil {
		return "", nil, nil, err
	}
	nameTok := p.next()
	if nameTok.Type != TokenText || IsKeyword(nameTok.Literal) {
		return "", nil, nil, &ParserError{Kind: NameMissing, Pos: nameTok.Pos, Token: nameTok}
	}
	value, err := p.parseExpression(false)
	if err != nil {
		return "", nil, nil, err
	}
	if _, err := p.expect(TokenClose); err != nil {
		return "", nil, nil, err
	}
	body, err := p.parseExpression(false)
	if err != nil {
		return "", nil, nil, err
	}
	return nameTok.Literal, value, body, nil
}

// ---------------------------------------------------------------------------
// Literals
// ---------------------------------------------------------------------------

// parseQuote parses the literal following a quote.
func (p *Parser) parseQuote() (Node, error) {
	tok := p.next()
	switch tok.Type {
	case TokenOpen:
		return p.parseListTail()
	case TokenNumber:
		return &IntegerLit{Value: tok.Number}, nil
	case TokenText:
		if kw, ok := keywords[tok.Literal]; ok && kw == kwNil {
			return &NilLit{}, nil
		}
	}
	return nil, p.unexpected(tok)
}

// parseListTail reads literals up to and including the closing bracket.
func (p *Parser) parseListTail() (*ListLit, error) {
	list := &ListLit{}
	for {
		tok := p.next()
		switch tok.Type {
		case TokenClose:
			return list, nil
		case TokenOpen:
			inner, err := p.parseListTail()
			if err != nil {
				return nil, err
			}
			list.Items = append(list.Items, inner)
		case TokenNumber:
			list.Items = append(list.Items, &IntegerLit{Value: tok.Number})
		case TokenText:
			if kw, ok := keywords[tok.Literal]; ok && kw == kwNil {
				list.Items = append(list.Items, &NilLit{})
				continue
			}
			return nil, p.unexpected(tok)
		default:
			return nil, p.unexpected(tok)
		}
	}
}

// ParseLiterals parses a line consisting only of literals: integers, nil and
// lists with or without a leading quote.
func ParseLiterals(input string) ([]Literal, error) {
	p, err := NewParser(input)
	if err != nil {
		return nil, err
	}

	var out []Literal
	for {
		tok := p.next()
		switch tok.Type {
		case TokenEOF:
			return out, nil
		case TokenNumber:
			out = append(out, &IntegerLit{Value: tok.Number})
		case TokenQuote:
			node, err := p.parseQuote()
			if err != nil {
				return nil, err
			}
			out = append(out, node.(Literal))
		case TokenOpen:
			list, err := p.parseListTail()
			if err != nil {
				return nil, err
			}
			out = append(out, list)
		case TokenText:
			if kw, ok := keywords[tok.Literal]; ok && kw == kwNil {
				out = append(out, &NilLit{})
				continue
			}
			return nil, &ParserError{Kind: LiteralsOnly, Pos: tok.Pos, Token: tok}
		default:
			return nil, &ParserError{Kind: LiteralsOnly, Pos: tok.Pos, Token: tok}
		}
	}
}

// ReadValues parses a line of literals into runtime values.
func ReadValues(input string) ([]bytecode.Literal, error) {
	lits, err := ParseLiterals(input)
	if err != nil {
		return nil, err
	}
	out := make([]bytecode.Literal, len(lits))
	for i, l := range lits {
		out[i] = LiteralValue(l)
	}
	return out, nil
}

// LiteralValue converts a literal node to its runtime value.
func LiteralValue(l Literal) bytecode.Literal {
	switch v := l.(type) {
	case *IntegerLit:
		return bytecode.Integer(v.Value)
	case *ListLit:
		items := make([]bytecode.Literal, len(v.Items))
		for i, item := range v.Items {
			items[i] = LiteralValue(item)
		}
		return bytecode.List(items...)
	}
	return bytecode.Nil{}
}
