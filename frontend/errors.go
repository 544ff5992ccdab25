package frontend

import "fmt"

// LexError is a lexical analysis failure.
type LexError struct {
	Pos Position
	Msg string
}

// Error implements the error interface.
func (e *LexError) Error() string {
	return fmt.Sprintf("frontend: lex error at %d:%d: %s", e.Pos.Line, e.Pos.Col, e.Msg)
}

// ParseError is a parsing failure.
type ParseError struct {
	Pos Position
	Msg string
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	return fmt.Sprintf("frontend: parse error at %d:%d: %s", e.Pos.Line, e.Pos.Col, e.Msg)
}

// CompileError is a bytecode generation failure.
type CompileError struct {
	Pos Position
	Msg string
}

// Error implements the error interface.
func (e *CompileError) Error() string {
	return fmt.Sprintf("frontend: compile error at %d:%d: %s", e.Pos.Line, e.Pos.Col, e.Msg)
}
