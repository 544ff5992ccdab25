package frontend

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

// ---------------------------------------------------------------------------
// Lexer: Tokenizer for Fusabi syntax
// ---------------------------------------------------------------------------

// Lexer tokenizes Fusabi source code.
type Lexer struct {
	input   string
	pos     int  // current position in input
	readPos int  // reading position (after current char)
	ch      rune // current character
	line    int  // current line (1-based)
	col     int  // current column (1-based)
}

// NewLexer creates a new lexer for the given input.
func NewLexer(input string) *Lexer {
	l := &Lexer{
		input: input,
		line:  1,
		col:   0,
	}
	l.readChar()
	return l
}

// Tokenize runs the lexer over the whole input and returns the token
// stream, excluding EOF. The first lexical failure aborts the stage.
func (l *Lexer) Tokenize() ([]Token, error) {
	var tokens []Token
	for {
		tok, err := l.NextToken()
		if err != nil {
			return nil, err
		}
		if tok.Type == TokenEOF {
			return tokens, nil
		}
		tokens = append(tokens, tok)
	}
}

// readChar reads the next character.
func (l *Lexer) readChar() {
	if l.readPos >= len(l.input) {
		l.ch = 0 // EOF
		l.pos = l.readPos
	} else {
		r, size := utf8.DecodeRuneInString(l.input[l.readPos:])
		l.ch = r
		l.pos = l.readPos
		l.readPos += size
	}
	if l.ch == '\n' {
		l.line++
		l.col = 0
	} else {
		l.col++
	}
}

// peekChar returns the next character without consuming it.
func (l *Lexer) peekChar() rune {
	if l.readPos >= len(l.input) {
		return 0
	}
	r, _ := utf8.DecodeRuneInString(l.input[l.readPos:])
	return r
}

// position returns the current position.
func (l *Lexer) position() Position {
	return Position{Offset: l.pos, Line: l.line, Col: l.col}
}

// NextToken scans and returns the next token.
func (l *Lexer) NextToken() (Token, error) {
	l.skipWhitespaceAndComments()

	pos := l.position()
	switch {
	case l.ch == 0:
		return Token{Type: TokenEOF, Pos: pos}, nil

	case isIdentStart(l.ch):
		lexeme := l.readIdentifier()
		if kw, ok := keywords[lexeme]; ok {
			return Token{Type: kw, Lexeme: lexeme, Pos: pos}, nil
		}
		return Token{Type: TokenIdent, Lexeme: lexeme, Pos: pos}, nil

	case unicode.IsDigit(l.ch):
		return l.readNumber(pos)

	case l.ch == '"':
		return l.readString(pos)
	}

	// Operators and punctuation.
	ch := l.ch
	switch ch {
	case '(', ')', '{', '}', ',', ';', '+', '-', '*', '/', '%':
		l.readChar()
		return Token{Type: punctType(ch), Lexeme: string(ch), Pos: pos}, nil

	case '=':
		l.readChar()
		if l.ch == '=' {
			l.readChar()
			return Token{Type: TokenEq, Lexeme: "==", Pos: pos}, nil
		}
		return Token{Type: TokenAssign, Lexeme: "=", Pos: pos}, nil

	case '!':
		l.readChar()
		if l.ch == '=' {
			l.readChar()
			return Token{Type: TokenNe, Lexeme: "!=", Pos: pos}, nil
		}
		return Token{Type: TokenBang, Lexeme: "!", Pos: pos}, nil

	case '<':
		l.readChar()
		if l.ch == '=' {
			l.readChar()
			return Token{Type: TokenLe, Lexeme: "<=", Pos: pos}, nil
		}
		return Token{Type: TokenLt, Lexeme: "<", Pos: pos}, nil

	case '>':
		l.readChar()
		if l.ch == '=' {
			l.readChar()
			return Token{Type: TokenGe, Lexeme: ">=", Pos: pos}, nil
		}
		return Token{Type: TokenGt, Lexeme: ">", Pos: pos}, nil

	case '&':
		l.readChar()
		if l.ch == '&' {
			l.readChar()
			return Token{Type: TokenAnd, Lexeme: "&&", Pos: pos}, nil
		}
		return Token{}, &LexError{Pos: pos, Msg: "expected '&&'"}

	case '|':
		l.readChar()
		if l.ch == '|' {
			l.readChar()
			return Token{Type: TokenOr, Lexeme: "||", Pos: pos}, nil
		}
		return Token{}, &LexError{Pos: pos, Msg: "expected '||'"}
	}

	return Token{}, &LexError{Pos: pos, Msg: fmt.Sprintf("unexpected character %q", ch)}
}

// punctType maps single-character punctuation to its token type.
func punctType(ch rune) TokenType {
	switch ch {
	case '(':
		return TokenLParen
	case ')':
		return TokenRParen
	case '{':
		return TokenLBrace
	case '}':
		return TokenRBrace
	case ',':
		return TokenComma
	case ';':
		return TokenSemicolon
	case '+':
		return TokenPlus
	case '-':
		return TokenMinus
	case '*':
		return TokenStar
	case '/':
		return TokenSlash
	case '%':
		return TokenPercent
	}
	return TokenEOF
}

// skipWhitespaceAndComments skips whitespace and // line comments.
func (l *Lexer) skipWhitespaceAndComments() {
	for {
		for unicode.IsSpace(l.ch) {
			l.readChar()
		}
		if l.ch == '/' && l.peekChar() == '/' {
			for l.ch != '\n' && l.ch != 0 {
				l.readChar()
			}
			continue
		}
		return
	}
}

// readIdentifier consumes an identifier or keyword.
func (l *Lexer) readIdentifier() string {
	start := l.pos
	for isIdentStart(l.ch) || unicode.IsDigit(l.ch) {
		l.readChar()
	}
	return l.input[start:l.pos]
}

// readNumber consumes an integer or float literal.
func (l *Lexer) readNumber(pos Position) (Token, error) {
	start := l.pos
	for unicode.IsDigit(l.ch) {
		l.readChar()
	}

	isFloat := false
	if l.ch == '.' && unicode.IsDigit(l.peekChar()) {
		isFloat = true
		l.readChar()
		for unicode.IsDigit(l.ch) {
			l.readChar()
		}
	}

	lexeme := l.input[start:l.pos]
	if isIdentStart(l.ch) {
		return Token{}, &LexError{Pos: pos, Msg: "malformed number " + lexeme}
	}
	if isFloat {
		return Token{Type: TokenFloat, Lexeme: lexeme, Pos: pos}, nil
	}
	return Token{Type: TokenInt, Lexeme: lexeme, Pos: pos}, nil
}

// readString consumes a double-quoted string literal with escapes.
func (l *Lexer) readString(pos Position) (Token, error) {
	var b strings.Builder
	l.readChar() // consume opening quote

	for l.ch != '"' {
		if l.ch == 0 || l.ch == '\n' {
			return Token{}, &LexError{Pos: pos, Msg: "unterminated string literal"}
		}
		if l.ch == '\\' {
			l.readChar()
			switch l.ch {
			case 'n':
				b.WriteByte('\n')
			case 't':
				b.WriteByte('\t')
			case 'r':
				b.WriteByte('\r')
			case '\\':
				b.WriteByte('\\')
			case '"':
				b.WriteByte('"')
			default:
				return Token{}, &LexError{Pos: l.position(), Msg: "invalid escape sequence"}
			}
			l.readChar()
			continue
		}
		b.WriteRune(l.ch)
		l.readChar()
	}
	l.readChar() // consume closing quote

	return Token{Type: TokenString, Lexeme: b.String(), Pos: pos}, nil
}

// isIdentStart reports whether ch can start an identifier.
func isIdentStart(ch rune) bool {
	return ch == '_' || unicode.IsLetter(ch)
}
