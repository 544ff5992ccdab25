package vm

import "fmt"

// ChunkVersion is the current bytecode format version.
// Increment when making incompatible changes to the format.
const ChunkVersion uint16 = 1

// Function describes one compiled function inside a chunk.
type Function struct {
	Name   string `cbor:"1,keyasint"`           // function name as written in source
	Arity  uint8  `cbor:"2,keyasint,omitempty"` // number of parameters
	Offset uint32 `cbor:"3,keyasint"`           // entry point in the code section
	Locals uint8  `cbor:"4,keyasint,omitempty"` // local slots beyond the parameters
}

// Constant is the wire representation of a pooled constant. Only ints,
// floats, and strings are pooled; nil and booleans have dedicated opcodes.
type Constant struct {
	Kind  Kind    `cbor:"1,keyasint"`
	Int   int64   `cbor:"2,keyasint,omitempty"`
	Float float64 `cbor:"3,keyasint,omitempty"`
	Str   string  `cbor:"4,keyasint,omitempty"`
}

// Value converts the pooled constant back to a runtime value.
func (c Constant) Value() Value {
	switch c.Kind {
	case KindInt:
		return FromInt(c.Int)
	case KindFloat:
		return FromFloat(c.Float)
	case KindString:
		return FromString(c.Str)
	default:
		return Nil
	}
}

// ConstantOf returns the wire representation of a value, or false if the
// value's kind cannot be pooled.
func ConstantOf(v Value) (Constant, bool) {
	switch v.Kind() {
	case KindInt:
		return Constant{Kind: KindInt, Int: v.Int()}, true
	case KindFloat:
		return Constant{Kind: KindFloat, Float: v.Float()}, true
	case KindString:
		return Constant{Kind: KindString, Str: v.Str()}, true
	default:
		return Constant{}, false
	}
}

// Chunk represents a compiled Fusabi program: a flat code section, a
// constant pool, and a function table. It is the fundamental unit of
// bytecode that can be serialized and executed.
type Chunk struct {
	Version   uint16     `cbor:"1,keyasint"`
	Name      string     `cbor:"2,keyasint,omitempty"` // source name, for diagnostics
	Code      []byte     `cbor:"3,keyasint"`
	Constants []Constant `cbor:"4,keyasint,omitempty"`
	Functions []Function `cbor:"5,keyasint"`
}

// NewChunk creates a new empty chunk with the current version.
func NewChunk(name string) *Chunk {
	return &Chunk{
		Version: ChunkVersion,
		Name:    name,
		Code:    make([]byte, 0, 64),
	}
}

// AddConstant adds a constant to the pool and returns its index.
// If an equal constant already exists, returns the existing index.
func (c *Chunk) AddConstant(v Value) (uint16, error) {
	wire, ok := ConstantOf(v)
	if !ok {
		return 0, fmt.Errorf("vm: kind %s cannot be pooled as a constant", v.Kind())
	}
	for i, existing := range c.Constants {
		if existing == wire {
			return uint16(i), nil
		}
	}
	if len(c.Constants) >= 1<<16 {
		return 0, fmt.Errorf("vm: constant pool overflow in %q", c.Name)
	}
	idx := uint16(len(c.Constants))
	c.Constants = append(c.Constants, wire)
	return idx, nil
}

// FunctionByName returns the function table entry with the given name.
func (c *Chunk) FunctionByName(name string) (*Function, bool) {
	for i := range c.Functions {
		if c.Functions[i].Name == name {
			return &c.Functions[i], true
		}
	}
	return nil, false
}

// functionIndex returns the table index of the named function.
func (c *Chunk) functionIndex(name string) (int, bool) {
	for i := range c.Functions {
		if c.Functions[i].Name == name {
			return i, true
		}
	}
	return 0, false
}

// ---------------------------------------------------------------------------
// Code emission
// ---------------------------------------------------------------------------

// Emit appends a single-byte opcode to the code section and returns its offset.
func (c *Chunk) Emit(op Opcode) int {
	offset := len(c.Code)
	c.Code = append(c.Code, byte(op))
	return offset
}

// EmitByte appends an opcode with a single byte operand.
func (c *Chunk) EmitByte(op Opcode, operand byte) int {
	offset := len(c.Code)
	c.Code = append(c.Code, byte(op), operand)
	return offset
}

// EmitUint16 appends an opcode with a 16-bit operand (big-endian).
func (c *Chunk) EmitUint16(op Opcode, operand uint16) int {
	offset := len(c.Code)
	c.Code = append(c.Code, byte(op), byte(operand>>8), byte(operand))
	return offset
}

// EmitCall appends a CALL instruction.
func (c *Chunk) EmitCall(fn uint16, argc uint8) int {
	offset := len(c.Code)
	c.Code = append(c.Code, byte(OpCall), byte(fn>>8), byte(fn), argc)
	return offset
}

// EmitJump emits a jump instruction with a placeholder offset.
// Returns the offset of the placeholder bytes for later patching.
func (c *Chunk) EmitJump(op Opcode) int {
	c.Code = append(c.Code, byte(op), 0xFF, 0xFF)
	return len(c.Code) - 2
}

// PatchJump patches a jump placeholder to target the current position.
func (c *Chunk) PatchJump(placeholder int) {
	// Offset is relative to the position after the 2-byte operand.
	delta := len(c.Code) - (placeholder + 2)
	c.Code[placeholder] = byte(delta >> 8)
	c.Code[placeholder+1] = byte(delta)
}

// EmitLoop emits a backward jump to the given loop start.
func (c *Chunk) EmitLoop(loopStart int) {
	delta := loopStart - (len(c.Code) + 3)
	c.Code = append(c.Code, byte(OpJump), byte(delta>>8), byte(delta))
}

// CurrentOffset returns the current offset in the code section.
func (c *Chunk) CurrentOffset() int {
	return len(c.Code)
}
