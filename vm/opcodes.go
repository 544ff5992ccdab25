package vm

import "fmt"

// ---------------------------------------------------------------------------
// Opcode definitions
// ---------------------------------------------------------------------------

// Opcode represents a single bytecode instruction.
// Opcodes are organized into ranges by category.
type Opcode byte

// Stack manipulation (0x00-0x0F)
const (
	OpNop Opcode = 0x00 // no operation
	OpPop Opcode = 0x01 // discard top of stack
	OpDup Opcode = 0x02 // duplicate top of stack
)

// Constants (0x10-0x1F)
const (
	OpConst Opcode = 0x10 // push constant from pool (16-bit index)
	OpNil   Opcode = 0x11 // push nil
	OpTrue  Opcode = 0x12 // push true
	OpFalse Opcode = 0x13 // push false
)

// Local variables (0x20-0x2F)
const (
	OpLoadLocal  Opcode = 0x20 // push local/parameter (8-bit slot)
	OpStoreLocal Opcode = 0x21 // pop and store into local (8-bit slot)
)

// Arithmetic (0x50-0x5F)
const (
	OpAdd Opcode = 0x50 // pop two, push sum (or concatenation for strings)
	OpSub Opcode = 0x51 // pop two, push difference
	OpMul Opcode = 0x52 // pop two, push product
	OpDiv Opcode = 0x53 // pop two, push quotient
	OpMod Opcode = 0x54 // pop two, push remainder
	OpNeg Opcode = 0x55 // negate top of stack
)

// Comparison and logic (0x60-0x6F)
const (
	OpEq  Opcode = 0x60 // pop two, push equality
	OpNe  Opcode = 0x61 // pop two, push inequality
	OpLt  Opcode = 0x62 // pop two, push a < b
	OpLe  Opcode = 0x63 // pop two, push a <= b
	OpGt  Opcode = 0x64 // pop two, push a > b
	OpGe  Opcode = 0x65 // pop two, push a >= b
	OpNot Opcode = 0x68 // logical NOT of top of stack
)

// String operations (0x70-0x7F)
const (
	OpConcat Opcode = 0x70 // pop two, push string concatenation
)

// Control flow (0x80-0x8F)
const (
	OpJump      Opcode = 0x80 // unconditional jump (16-bit signed offset)
	OpJumpTrue  Opcode = 0x81 // pop, jump if truthy (16-bit signed offset)
	OpJumpFalse Opcode = 0x82 // pop, jump if falsy (16-bit signed offset)
)

// Calls and returns (0x90-0x9F)
const (
	OpCall      Opcode = 0x90 // call function (16-bit index, 8-bit argc)
	OpReturn    Opcode = 0x91 // return top of stack
	OpReturnNil Opcode = 0x92 // return nil
)

// Builtins (0xA0-0xAF)
const (
	OpPrint Opcode = 0xA0 // pop, print, push nil
)

// ---------------------------------------------------------------------------
// Opcode metadata
// ---------------------------------------------------------------------------

// OpcodeInfo holds metadata about an opcode.
type OpcodeInfo struct {
	Name         string // human-readable name
	OperandBytes int    // number of operand bytes
}

// opcodeTable maps opcodes to their metadata.
var opcodeTable = map[Opcode]OpcodeInfo{
	OpNop: {"NOP", 0},
	OpPop: {"POP", 0},
	OpDup: {"DUP", 0},

	OpConst: {"CONST", 2},
	OpNil:   {"NIL", 0},
	OpTrue:  {"TRUE", 0},
	OpFalse: {"FALSE", 0},

	OpLoadLocal:  {"LOAD_LOCAL", 1},
	OpStoreLocal: {"STORE_LOCAL", 1},

	OpAdd: {"ADD", 0},
	OpSub: {"SUB", 0},
	OpMul: {"MUL", 0},
	OpDiv: {"DIV", 0},
	OpMod: {"MOD", 0},
	OpNeg: {"NEG", 0},

	OpEq:  {"EQ", 0},
	OpNe:  {"NE", 0},
	OpLt:  {"LT", 0},
	OpLe:  {"LE", 0},
	OpGt:  {"GT", 0},
	OpGe:  {"GE", 0},
	OpNot: {"NOT", 0},

	OpConcat: {"CONCAT", 0},

	OpJump:      {"JUMP", 2},
	OpJumpTrue:  {"JUMP_TRUE", 2},
	OpJumpFalse: {"JUMP_FALSE", 2},

	OpCall:      {"CALL", 3},
	OpReturn:    {"RETURN", 0},
	OpReturnNil: {"RETURN_NIL", 0},

	OpPrint: {"PRINT", 0},
}

// Info returns the metadata for an opcode.
func (op Opcode) Info() OpcodeInfo {
	if info, ok := opcodeTable[op]; ok {
		return info
	}
	return OpcodeInfo{Name: fmt.Sprintf("UNKNOWN_%02X", byte(op))}
}

// Name returns the human-readable name for an opcode.
func (op Opcode) Name() string {
	return op.Info().Name
}

// OperandBytes returns the number of operand bytes for an opcode.
func (op Opcode) OperandBytes() int {
	return op.Info().OperandBytes
}

// String implements the Stringer interface.
func (op Opcode) String() string {
	return op.Name()
}

// IsValid reports whether the opcode is defined.
func (op Opcode) IsValid() bool {
	_, ok := opcodeTable[op]
	return ok
}
