// Package frontend implements the Fusabi compile pipeline: lexical
// analysis, parsing, and bytecode generation. The stages run in strict
// order and each stage fails independently with its own error type, so a
// caller always knows which stage rejected the input.
package frontend

import "fmt"

// TokenType identifies the kind of a token.
type TokenType int

const (
	TokenEOF TokenType = iota
	TokenIdent
	TokenInt
	TokenFloat
	TokenString

	// Keywords
	TokenFn
	TokenLet
	TokenReturn
	TokenIf
	TokenElse
	TokenWhile
	TokenTrue
	TokenFalse
	TokenNil

	// Punctuation
	TokenLParen
	TokenRParen
	TokenLBrace
	TokenRBrace
	TokenComma
	TokenSemicolon

	// Operators
	TokenAssign // =
	TokenPlus
	TokenMinus
	TokenStar
	TokenSlash
	TokenPercent
	TokenBang
	TokenEq // ==
	TokenNe // !=
	TokenLt
	TokenLe
	TokenGt
	TokenGe
	TokenAnd // &&
	TokenOr  // ||
)

// tokenNames maps token types to display names.
var tokenNames = map[TokenType]string{
	TokenEOF:       "EOF",
	TokenIdent:     "identifier",
	TokenInt:       "integer",
	TokenFloat:     "float",
	TokenString:    "string",
	TokenFn:        "'fn'",
	TokenLet:       "'let'",
	TokenReturn:    "'return'",
	TokenIf:        "'if'",
	TokenElse:      "'else'",
	TokenWhile:     "'while'",
	TokenTrue:      "'true'",
	TokenFalse:     "'false'",
	TokenNil:       "'nil'",
	TokenLParen:    "'('",
	TokenRParen:    "')'",
	TokenLBrace:    "'{'",
	TokenRBrace:    "'}'",
	TokenComma:     "','",
	TokenSemicolon: "';'",
	TokenAssign:    "'='",
	TokenPlus:      "'+'",
	TokenMinus:     "'-'",
	TokenStar:      "'*'",
	TokenSlash:     "'/'",
	TokenPercent:   "'%'",
	TokenBang:      "'!'",
	TokenEq:        "'=='",
	TokenNe:        "'!='",
	TokenLt:        "'<'",
	TokenLe:        "'<='",
	TokenGt:        "'>'",
	TokenGe:        "'>='",
	TokenAnd:       "'&&'",
	TokenOr:        "'||'",
}

// String returns a display name for the token type.
func (t TokenType) String() string {
	if name, ok := tokenNames[t]; ok {
		return name
	}
	return fmt.Sprintf("TokenType(%d)", int(t))
}

// keywords maps identifier spellings to keyword token types.
var keywords = map[string]TokenType{
	"fn":     TokenFn,
	"let":    TokenLet,
	"return": TokenReturn,
	"if":     TokenIf,
	"else":   TokenElse,
	"while":  TokenWhile,
	"true":   TokenTrue,
	"false":  TokenFalse,
	"nil":    TokenNil,
}

// Position is a location in source text.
type Position struct {
	Offset int // byte offset, 0-based
	Line   int // 1-based
	Col    int // 1-based
}

// Token is one lexical unit of Fusabi source.
type Token struct {
	Type   TokenType
	Lexeme string
	Pos    Position
}

// String implements the Stringer interface.
func (t Token) String() string {
	if t.Lexeme == "" {
		return t.Type.String()
	}
	return fmt.Sprintf("%s %q", t.Type, t.Lexeme)
}
