package asset

import (
	"errors"
	"fmt"
	"unicode/utf8"

	"github.com/tliron/commonlog"

	"github.com/fusabi-lang/fusabi/frontend"
	"github.com/fusabi-lang/fusabi/vm"
)

// Recognized file extensions.
const (
	ExtSource   = ".fsx" // UTF-8 source text, compiled at load time
	ExtBytecode = ".fzb" // precompiled bytecode container
)

// Stage identifies the load-pipeline stage that failed.
type Stage int

const (
	StageIo Stage = iota
	StageEncoding
	StageLex
	StageParse
	StageCompile
	StageBytecode
	StageExtension
)

// String returns a human-readable name for the stage.
func (s Stage) String() string {
	switch s {
	case StageIo:
		return "io"
	case StageEncoding:
		return "encoding"
	case StageLex:
		return "lex"
	case StageParse:
		return "parse"
	case StageCompile:
		return "compile"
	case StageBytecode:
		return "bytecode"
	case StageExtension:
		return "extension"
	default:
		return fmt.Sprintf("Stage(%d)", int(s))
	}
}

// LoadError is a structured script load failure. Stage reports which
// pipeline stage rejected the input; stages are never coerced into one
// another, so a parse failure always surfaces as StageParse.
type LoadError struct {
	Stage Stage
	Name  string // script or file name
	Err   error
}

// Error implements the error interface.
func (e *LoadError) Error() string {
	return fmt.Sprintf("asset: load %q failed at %s stage: %v", e.Name, e.Stage, e.Err)
}

// Unwrap returns the underlying stage error.
func (e *LoadError) Unwrap() error { return e.Err }

// Loader sentinel errors.
var (
	ErrUnsupportedExtension = errors.New("unsupported extension")
	ErrNotText              = errors.New("source is not valid UTF-8")
	ErrHeaderVersion        = errors.New("unsupported container version")
)

// Loader converts raw file bytes into Script assets. Given an extension
// hint it either passes precompiled bytecode through or runs the compile
// pipeline over source text. The loader makes no caching decisions;
// identity belongs to the Store.
type Loader struct {
	log commonlog.Logger
}

// NewLoader creates a loader.
func NewLoader() *Loader {
	return &Loader{log: commonlog.GetLogger("fusabi.loader")}
}

// Extensions returns the extensions the loader should be registered for.
func (l *Loader) Extensions() []string {
	return []string{ExtSource, ExtBytecode}
}

// Load converts raw bytes into a script asset. ext is the file extension
// hint including the leading dot. Unrecognized extensions are rejected
// rather than guessed at.
func (l *Loader) Load(data []byte, name, ext string) (*Script, error) {
	switch ext {
	case ExtBytecode:
		return l.loadBytecode(data, name)
	case ExtSource:
		return l.loadSource(data, name)
	default:
		return nil, &LoadError{Stage: StageExtension, Name: name,
			Err: fmt.Errorf("%w: %q", ErrUnsupportedExtension, ext)}
	}
}

// loadBytecode accepts precompiled bytecode. A container header, when
// present, is validated and stripped; the payload itself is deliberately
// not validated here — malformed bytecode is detected at execution time
// when the consumer deserializes it.
func (l *Loader) loadBytecode(data []byte, name string) (*Script, error) {
	if h, ok := DecodeHeader(data); ok {
		if h.Version > HeaderVersion {
			return nil, &LoadError{Stage: StageBytecode, Name: name,
				Err: fmt.Errorf("%w: %d", ErrHeaderVersion, h.Version)}
		}
		data = data[HeaderSize:]
	}
	l.log.Debugf("loaded precompiled script %q (%d bytes)", name, len(data))
	return NewScript(name, data), nil
}

// loadSource compiles source text: UTF-8 validation, then lex, parse,
// and compile in strict order, surfacing the first failing stage, then
// serialization of the resulting chunk.
func (l *Loader) loadSource(data []byte, name string) (*Script, error) {
	if !utf8.Valid(data) {
		return nil, &LoadError{Stage: StageEncoding, Name: name, Err: ErrNotText}
	}
	source := string(data)

	tokens, err := frontend.NewLexer(source).Tokenize()
	if err != nil {
		return nil, &LoadError{Stage: StageLex, Name: name, Err: err}
	}
	prog, err := frontend.NewParser(tokens).ParseProgram()
	if err != nil {
		return nil, &LoadError{Stage: StageParse, Name: name, Err: err}
	}
	chunk, err := frontend.NewCompiler(name).CompileProgram(prog)
	if err != nil {
		return nil, &LoadError{Stage: StageCompile, Name: name, Err: err}
	}

	bytecode, err := vm.Serialize(chunk)
	if err != nil {
		return nil, &LoadError{Stage: StageBytecode, Name: name, Err: err}
	}
	l.log.Debugf("compiled script %q (%d bytes of bytecode)", name, len(bytecode))
	return NewScript(name, bytecode), nil
}
