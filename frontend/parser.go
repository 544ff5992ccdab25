package frontend

import (
	"fmt"
	"strconv"
)

// ---------------------------------------------------------------------------
// Parser: Recursive descent parser over a token stream
// ---------------------------------------------------------------------------

// Parser parses a Fusabi token stream into an AST. It operates on the
// output of a completed lex stage, so lexical failures never surface here.
type Parser struct {
	tokens []Token
	pos    int
}

// NewParser creates a parser over the given token stream.
func NewParser(tokens []Token) *Parser {
	return &Parser{tokens: tokens}
}

// cur returns the current token, or EOF past the end.
func (p *Parser) cur() Token {
	if p.pos >= len(p.tokens) {
		pos := Position{}
		if len(p.tokens) > 0 {
			pos = p.tokens[len(p.tokens)-1].Pos
		}
		return Token{Type: TokenEOF, Pos: pos}
	}
	return p.tokens[p.pos]
}

// advance consumes the current token.
func (p *Parser) advance() Token {
	tok := p.cur()
	p.pos++
	return tok
}

// curIs checks if the current token is of the given type.
func (p *Parser) curIs(t TokenType) bool {
	return p.cur().Type == t
}

// expect consumes the current token if it matches, otherwise fails.
func (p *Parser) expect(t TokenType) (Token, error) {
	if p.curIs(t) {
		return p.advance(), nil
	}
	return Token{}, p.errorf("expected %s, got %s", t, p.cur())
}

// errorf builds a ParseError at the current token.
func (p *Parser) errorf(format string, args ...interface{}) error {
	return &ParseError{Pos: p.cur().Pos, Msg: fmt.Sprintf(format, args...)}
}

// ParseProgram parses a whole compilation unit: zero or more function
// declarations. The first failure aborts the stage.
func (p *Parser) ParseProgram() (*Program, error) {
	prog := &Program{}
	for !p.curIs(TokenEOF) {
		fn, err := p.parseFnDecl()
		if err != nil {
			return nil, err
		}
		prog.Functions = append(prog.Functions, fn)
	}
	return prog, nil
}

// parseFnDecl parses: fn name ( params ) block
func (p *Parser) parseFnDecl() (*FnDecl, error) {
	start, err := p.expect(TokenFn)
	if err != nil {
		return nil, err
	}
	name, err := p.expect(TokenIdent)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(TokenLParen); err != nil {
		return nil, err
	}

	var params []string
	for !p.curIs(TokenRParen) {
		if len(params) > 0 {
			if _, err := p.expect(TokenComma); err != nil {
				return nil, err
			}
		}
		param, err := p.expect(TokenIdent)
		if err != nil {
			return nil, err
		}
		params = append(params, param.Lexeme)
	}
	p.advance() // consume ')'

	body, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	return &FnDecl{Name: name.Lexeme, Params: params, Body: body, pos: start.Pos}, nil
}

// parseBlock parses: { stmt* }
func (p *Parser) parseBlock() (*Block, error) {
	open, err := p.expect(TokenLBrace)
	if err != nil {
		return nil, err
	}
	block := &Block{pos: open.Pos}
	for !p.curIs(TokenRBrace) {
		if p.curIs(TokenEOF) {
			return nil, p.errorf("expected '}', got EOF")
		}
		stmt, err := p.parseStmt()
		if err != nil {
			return nil, err
		}
		block.Stmts = append(block.Stmts, stmt)
	}
	p.advance() // consume '}'
	return block, nil
}

// parseStmt parses one statement.
func (p *Parser) parseStmt() (Stmt, error) {
	switch p.cur().Type {
	case TokenLet:
		return p.parseLet()
	case TokenReturn:
		return p.parseReturn()
	case TokenIf:
		return p.parseIf()
	case TokenWhile:
		return p.parseWhile()
	}

	// Assignment or expression statement. An identifier followed by '='
	// is an assignment, anything else is an expression.
	if p.curIs(TokenIdent) && p.pos+1 < len(p.tokens) && p.tokens[p.pos+1].Type == TokenAssign {
		name := p.advance()
		p.advance() // consume '='
		value, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(TokenSemicolon); err != nil {
			return nil, err
		}
		return &AssignStmt{Name: name.Lexeme, Value: value, pos: name.Pos}, nil
	}

	pos := p.cur().Pos
	e, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(TokenSemicolon); err != nil {
		return nil, err
	}
	return &ExprStmt{E: e, pos: pos}, nil
}

// parseLet parses: let name = expr ;
func (p *Parser) parseLet() (Stmt, error) {
	start := p.advance()
	name, err := p.expect(TokenIdent)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(TokenAssign); err != nil {
		return nil, err
	}
	value, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(TokenSemicolon); err != nil {
		return nil, err
	}
	return &LetStmt{Name: name.Lexeme, Value: value, pos: start.Pos}, nil
}

// parseReturn parses: return expr? ;
func (p *Parser) parseReturn() (Stmt, error) {
	start := p.advance()
	stmt := &ReturnStmt{pos: start.Pos}
	if !p.curIs(TokenSemicolon) {
		value, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		stmt.Value = value
	}
	if _, err := p.expect(TokenSemicolon); err != nil {
		return nil, err
	}
	return stmt, nil
}

// parseIf parses: if ( expr ) block (else block)?
func (p *Parser) parseIf() (Stmt, error) {
	start := p.advance()
	if _, err := p.expect(TokenLParen); err != nil {
		return nil, err
	}
	cond, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(TokenRParen); err != nil {
		return nil, err
	}
	then, err := p.parseBlock()
	if err != nil {
		return nil, err
	}

	stmt := &IfStmt{Cond: cond, Then: then, pos: start.Pos}
	if p.curIs(TokenElse) {
		p.advance()
		els, err := p.parseBlock()
		if err != nil {
			return nil, err
		}
		stmt.Else = els
	}
	return stmt, nil
}

// parseWhile parses: while ( expr ) block
func (p *Parser) parseWhile() (Stmt, error) {
	start := p.advance()
	if _, err := p.expect(TokenLParen); err != nil {
		return nil, err
	}
	cond, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(TokenRParen); err != nil {
		return nil, err
	}
	body, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	return &WhileStmt{Cond: cond, Body: body, pos: start.Pos}, nil
}

// ---------------------------------------------------------------------------
// Expression parsing, precedence climbing
// ---------------------------------------------------------------------------

// parseExpr parses an expression at the lowest precedence level.
func (p *Parser) parseExpr() (Expr, error) {
	return p.parseOr()
}

func (p *Parser) parseOr() (Expr, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.curIs(TokenOr) {
		op := p.advance()
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = &BinaryExpr{Op: op.Type, L: left, R: right, pos: op.Pos}
	}
	return left, nil
}

func (p *Parser) parseAnd() (Expr, error) {
	left, err := p.parseEquality()
	if err != nil {
		return nil, err
	}
	for p.curIs(TokenAnd) {
		op := p.advance()
		right, err := p.parseEquality()
		if err != nil {
			return nil, err
		}
		left = &BinaryExpr{Op: op.Type, L: left, R: right, pos: op.Pos}
	}
	return left, nil
}

func (p *Parser) parseEquality() (Expr, error) {
	left, err := p.parseComparison()
	if err != nil {
		return nil, err
	}
	for p.curIs(TokenEq) || p.curIs(TokenNe) {
		op := p.advance()
		right, err := p.parseComparison()
		if err != nil {
			return nil, err
		}
		left = &BinaryExpr{Op: op.Type, L: left, R: right, pos: op.Pos}
	}
	return left, nil
}

func (p *Parser) parseComparison() (Expr, error) {
	left, err := p.parseAdditive()
	if err != nil {
		return nil, err
	}
	for p.curIs(TokenLt) || p.curIs(TokenLe) || p.curIs(TokenGt) || p.curIs(TokenGe) {
		op := p.advance()
		right, err := p.parseAdditive()
		if err != nil {
			return nil, err
		}
		left = &BinaryExpr{Op: op.Type, L: left, R: right, pos: op.Pos}
	}
	return left, nil
}

func (p *Parser) parseAdditive() (Expr, error) {
	left, err := p.parseMultiplicative()
	if err != nil {
		return nil, err
	}
	for p.curIs(TokenPlus) || p.curIs(TokenMinus) {
		op := p.advance()
		right, err := p.parseMultiplicative()
		if err != nil {
			return nil, err
		}
		left = &BinaryExpr{Op: op.Type, L: left, R: right, pos: op.Pos}
	}
	return left, nil
}

func (p *Parser) parseMultiplicative() (Expr, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for p.curIs(TokenStar) || p.curIs(TokenSlash) || p.curIs(TokenPercent) {
		op := p.advance()
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		left = &BinaryExpr{Op: op.Type, L: left, R: right, pos: op.Pos}
	}
	return left, nil
}

func (p *Parser) parseUnary() (Expr, error) {
	if p.curIs(TokenMinus) || p.curIs(TokenBang) {
		op := p.advance()
		x, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &UnaryExpr{Op: op.Type, X: x, pos: op.Pos}, nil
	}
	return p.parsePrimary()
}

// parsePrimary parses literals, identifiers, calls, and parenthesized
// expressions.
func (p *Parser) parsePrimary() (Expr, error) {
	tok := p.cur()
	switch tok.Type {
	case TokenInt:
		p.advance()
		n, err := strconv.ParseInt(tok.Lexeme, 10, 64)
		if err != nil {
			return nil, p.errorf("integer literal %s out of range", tok.Lexeme)
		}
		return &IntLit{Value: n, pos: tok.Pos}, nil

	case TokenFloat:
		p.advance()
		f, err := strconv.ParseFloat(tok.Lexeme, 64)
		if err != nil {
			return nil, p.errorf("malformed float literal %s", tok.Lexeme)
		}
		return &FloatLit{Value: f, pos: tok.Pos}, nil

	case TokenString:
		p.advance()
		return &StringLit{Value: tok.Lexeme, pos: tok.Pos}, nil

	case TokenTrue:
		p.advance()
		return &BoolLit{Value: true, pos: tok.Pos}, nil

	case TokenFalse:
		p.advance()
		return &BoolLit{Value: false, pos: tok.Pos}, nil

	case TokenNil:
		p.advance()
		return &NilLit{pos: tok.Pos}, nil

	case TokenIdent:
		p.advance()
		if p.curIs(TokenLParen) {
			return p.parseCallArgs(tok)
		}
		return &Ident{Name: tok.Lexeme, pos: tok.Pos}, nil

	case TokenLParen:
		p.advance()
		e, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(TokenRParen); err != nil {
			return nil, err
		}
		return e, nil
	}

	return nil, p.errorf("expected expression, got %s", tok)
}

// parseCallArgs parses the argument list of a call whose callee has
// already been consumed.
func (p *Parser) parseCallArgs(callee Token) (Expr, error) {
	p.advance() // consume '('
	var args []Expr
	for !p.curIs(TokenRParen) {
		if len(args) > 0 {
			if _, err := p.expect(TokenComma); err != nil {
				return nil, err
			}
		}
		arg, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		args = append(args, arg)
	}
	p.advance() // consume ')'
	return &CallExpr{Name: callee.Lexeme, Args: args, pos: callee.Pos}, nil
}
