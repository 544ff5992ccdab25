package vm

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"
)

// ---------------------------------------------------------------------------
// VM: Stack-based chunk interpreter
// ---------------------------------------------------------------------------

// EntryFunction is the function a chunk's execution starts from.
const EntryFunction = "main"

// DefaultMaxSteps bounds a single execution. A chunk that has not returned
// after this many instructions is aborted with a RuntimeError instead of
// hanging the scheduling pass that invoked it.
const DefaultMaxSteps = 10_000_000

// maxCallDepth bounds the frame stack.
const maxCallDepth = 1024

// RuntimeError describes a failed execution. The chunk itself is not
// corrupted by a runtime error and may be executed again.
type RuntimeError struct {
	Chunk string // chunk name, if any
	Op    string // opcode being executed, if any
	IP    int    // code offset of the failing instruction
	Msg   string
}

// Error implements the error interface.
func (e *RuntimeError) Error() string {
	if e.Op == "" {
		return fmt.Sprintf("vm: runtime error in %q: %s", e.Chunk, e.Msg)
	}
	return fmt.Sprintf("vm: runtime error in %q at %04d (%s): %s", e.Chunk, e.IP, e.Op, e.Msg)
}

// frame is one function activation.
type frame struct {
	fn      *Function
	retAddr int // code offset to resume after return
	base    int // stack offset of the first parameter slot
}

// VM executes chunks. A VM is a fresh, disposable execution context:
// create one per invocation and discard it afterwards. A VM must not be
// shared across concurrent executions.
type VM struct {
	chunk  *Chunk
	stack  []Value
	frames []frame
	ip     int

	// Stdout receives print output. Defaults to os.Stdout.
	Stdout io.Writer

	// MaxSteps overrides DefaultMaxSteps when positive.
	MaxSteps int
}

// NewVM creates a fresh execution context.
func NewVM() *VM {
	return &VM{
		stack:  make([]Value, 0, 64),
		frames: make([]frame, 0, 8),
		Stdout: os.Stdout,
	}
}

// Execute runs the chunk's entry function ("main") to completion and
// returns its result value.
func (m *VM) Execute(chunk *Chunk) (Value, error) {
	return m.ExecuteFunction(chunk, EntryFunction)
}

// ExecuteFunction runs a named function in the chunk with the given
// arguments and returns its result value.
func (m *VM) ExecuteFunction(chunk *Chunk, name string, args ...Value) (Value, error) {
	if chunk == nil {
		return Nil, &RuntimeError{Msg: "nil chunk"}
	}
	m.chunk = chunk
	if chunk.Version > ChunkVersion {
		return Nil, m.errorf("chunk version %d is newer than supported version %d", chunk.Version, ChunkVersion)
	}

	fn, ok := chunk.FunctionByName(name)
	if !ok {
		return Nil, m.errorf("function %q not defined", name)
	}
	if int(fn.Arity) != len(args) {
		return Nil, m.errorf("function %q expects %d arguments, got %d", name, fn.Arity, len(args))
	}

	m.stack = m.stack[:0]
	m.frames = m.frames[:0]
	m.stack = append(m.stack, args...)
	m.pushFrame(fn, len(chunk.Code), 0)
	m.ip = int(fn.Offset)

	return m.run()
}

// run is the interpreter loop. It returns when the outermost frame returns.
func (m *VM) run() (Value, error) {
	maxSteps := m.MaxSteps
	if maxSteps <= 0 {
		maxSteps = DefaultMaxSteps
	}
	code := m.chunk.Code

	for steps := 0; ; steps++ {
		if steps >= maxSteps {
			return Nil, m.errorf("execution exceeded %d steps", maxSteps)
		}
		if m.ip < 0 || m.ip >= len(code) {
			return Nil, m.errorf("instruction pointer %d out of range", m.ip)
		}

		opIP := m.ip
		op := Opcode(code[m.ip])
		m.ip++

		switch op {
		case OpNop:

		case OpPop:
			if _, err := m.pop(opIP, op); err != nil {
				return Nil, err
			}

		case OpDup:
			v, err := m.peek(opIP, op)
			if err != nil {
				return Nil, err
			}
			m.push(v)

		case OpConst:
			idx, err := m.readUint16(opIP, op)
			if err != nil {
				return Nil, err
			}
			if int(idx) >= len(m.chunk.Constants) {
				return Nil, m.opError(opIP, op, "constant index %d out of range", idx)
			}
			m.push(m.chunk.Constants[idx].Value())

		case OpNil:
			m.push(Nil)
		case OpTrue:
			m.push(True)
		case OpFalse:
			m.push(False)

		case OpLoadLocal:
			slot, err := m.readByte(opIP, op)
			if err != nil {
				return Nil, err
			}
			at := m.currentFrame().base + int(slot)
			if at >= len(m.stack) {
				return Nil, m.opError(opIP, op, "local slot %d out of range", slot)
			}
			m.push(m.stack[at])

		case OpStoreLocal:
			slot, err := m.readByte(opIP, op)
			if err != nil {
				return Nil, err
			}
			v, err := m.pop(opIP, op)
			if err != nil {
				return Nil, err
			}
			at := m.currentFrame().base + int(slot)
			if at >= len(m.stack) {
				return Nil, m.opError(opIP, op, "local slot %d out of range", slot)
			}
			m.stack[at] = v

		case OpAdd, OpSub, OpMul, OpDiv, OpMod:
			if err := m.arithmetic(opIP, op); err != nil {
				return Nil, err
			}

		case OpNeg:
			v, err := m.pop(opIP, op)
			if err != nil {
				return Nil, err
			}
			switch v.Kind() {
			case KindInt:
				m.push(FromInt(-v.Int()))
			case KindFloat:
				m.push(FromFloat(-v.Float()))
			default:
				return Nil, m.opError(opIP, op, "cannot negate %s", v.Kind())
			}

		case OpEq, OpNe:
			b, err := m.pop(opIP, op)
			if err != nil {
				return Nil, err
			}
			a, err := m.pop(opIP, op)
			if err != nil {
				return Nil, err
			}
			eq := a.Equal(b)
			if op == OpNe {
				eq = !eq
			}
			m.push(FromBool(eq))

		case OpLt, OpLe, OpGt, OpGe:
			if err := m.compare(opIP, op); err != nil {
				return Nil, err
			}

		case OpNot:
			v, err := m.pop(opIP, op)
			if err != nil {
				return Nil, err
			}
			m.push(FromBool(!v.Truthy()))

		case OpConcat:
			b, err := m.pop(opIP, op)
			if err != nil {
				return Nil, err
			}
			a, err := m.pop(opIP, op)
			if err != nil {
				return Nil, err
			}
			m.push(FromString(a.String() + b.String()))

		case OpJump:
			delta, err := m.readInt16(opIP, op)
			if err != nil {
				return Nil, err
			}
			m.ip += int(delta)

		case OpJumpTrue, OpJumpFalse:
			delta, err := m.readInt16(opIP, op)
			if err != nil {
				return Nil, err
			}
			v, err := m.pop(opIP, op)
			if err != nil {
				return Nil, err
			}
			if v.Truthy() == (op == OpJumpTrue) {
				m.ip += int(delta)
			}

		case OpCall:
			idx, err := m.readUint16(opIP, op)
			if err != nil {
				return Nil, err
			}
			argc, err := m.readByte(opIP, op)
			if err != nil {
				return Nil, err
			}
			if int(idx) >= len(m.chunk.Functions) {
				return Nil, m.opError(opIP, op, "function index %d out of range", idx)
			}
			fn := &m.chunk.Functions[idx]
			if fn.Arity != argc {
				return Nil, m.opError(opIP, op, "function %q expects %d arguments, got %d", fn.Name, fn.Arity, argc)
			}
			if len(m.frames) >= maxCallDepth {
				return Nil, m.opError(opIP, op, "call depth exceeded %d frames", maxCallDepth)
			}
			if len(m.stack) < int(argc) {
				return Nil, m.opError(opIP, op, "stack underflow calling %q", fn.Name)
			}
			m.pushFrame(fn, m.ip, len(m.stack)-int(argc))
			m.ip = int(fn.Offset)

		case OpReturn, OpReturnNil:
			var result Value
			if op == OpReturn {
				v, err := m.pop(opIP, op)
				if err != nil {
					return Nil, err
				}
				result = v
			}
			f := m.popFrame()
			m.stack = m.stack[:f.base]
			if len(m.frames) == 0 {
				return result, nil
			}
			m.push(result)
			m.ip = f.retAddr

		case OpPrint:
			v, err := m.pop(opIP, op)
			if err != nil {
				return Nil, err
			}
			fmt.Fprintln(m.Stdout, v.String())
			m.push(Nil)

		default:
			return Nil, m.opError(opIP, op, "unknown opcode 0x%02X", byte(op))
		}
	}
}

// arithmetic executes a binary numeric operation. OpAdd additionally
// concatenates when both operands are strings.
func (m *VM) arithmetic(opIP int, op Opcode) error {
	b, err := m.pop(opIP, op)
	if err != nil {
		return err
	}
	a, err := m.pop(opIP, op)
	if err != nil {
		return err
	}

	if op == OpAdd && a.Kind() == KindString && b.Kind() == KindString {
		m.push(FromString(a.Str() + b.Str()))
		return nil
	}
	if !a.IsNumber() || !b.IsNumber() {
		return m.opError(opIP, op, "cannot apply %s to %s and %s", op.Name(), a.Kind(), b.Kind())
	}

	// Integer arithmetic when both operands are ints, float otherwise.
	if a.Kind() == KindInt && b.Kind() == KindInt {
		x, y := a.Int(), b.Int()
		switch op {
		case OpAdd:
			m.push(FromInt(x + y))
		case OpSub:
			m.push(FromInt(x - y))
		case OpMul:
			m.push(FromInt(x * y))
		case OpDiv:
			if y == 0 {
				return m.opError(opIP, op, "division by zero")
			}
			m.push(FromInt(x / y))
		case OpMod:
			if y == 0 {
				return m.opError(opIP, op, "division by zero")
			}
			m.push(FromInt(x % y))
		}
		return nil
	}

	x, y := a.AsFloat(), b.AsFloat()
	switch op {
	case OpAdd:
		m.push(FromFloat(x + y))
	case OpSub:
		m.push(FromFloat(x - y))
	case OpMul:
		m.push(FromFloat(x * y))
	case OpDiv:
		if y == 0 {
			return m.opError(opIP, op, "division by zero")
		}
		m.push(FromFloat(x / y))
	case OpMod:
		return m.opError(opIP, op, "modulo requires integer operands")
	}
	return nil
}

// compare executes an ordering comparison on numbers or strings.
func (m *VM) compare(opIP int, op Opcode) error {
	b, err := m.pop(opIP, op)
	if err != nil {
		return err
	}
	a, err := m.pop(opIP, op)
	if err != nil {
		return err
	}

	var less, equal bool
	switch {
	case a.IsNumber() && b.IsNumber():
		x, y := a.AsFloat(), b.AsFloat()
		less, equal = x < y, x == y
	case a.Kind() == KindString && b.Kind() == KindString:
		less, equal = a.Str() < b.Str(), a.Str() == b.Str()
	default:
		return m.opError(opIP, op, "cannot compare %s and %s", a.Kind(), b.Kind())
	}

	var result bool
	switch op {
	case OpLt:
		result = less
	case OpLe:
		result = less || equal
	case OpGt:
		result = !less && !equal
	case OpGe:
		result = !less
	}
	m.push(FromBool(result))
	return nil
}

// ---------------------------------------------------------------------------
// Stack and frame helpers
// ---------------------------------------------------------------------------

func (m *VM) push(v Value) {
	m.stack = append(m.stack, v)
}

func (m *VM) pop(opIP int, op Opcode) (Value, error) {
	if len(m.stack) == 0 {
		return Nil, m.opError(opIP, op, "stack underflow")
	}
	v := m.stack[len(m.stack)-1]
	m.stack = m.stack[:len(m.stack)-1]
	return v, nil
}

func (m *VM) peek(opIP int, op Opcode) (Value, error) {
	if len(m.stack) == 0 {
		return Nil, m.opError(opIP, op, "stack underflow")
	}
	return m.stack[len(m.stack)-1], nil
}

func (m *VM) pushFrame(fn *Function, retAddr, base int) {
	// Reserve the function's local slots above its parameters.
	for i := 0; i < int(fn.Locals); i++ {
		m.stack = append(m.stack, Nil)
	}
	m.frames = append(m.frames, frame{fn: fn, retAddr: retAddr, base: base})
}

func (m *VM) popFrame() frame {
	f := m.frames[len(m.frames)-1]
	m.frames = m.frames[:len(m.frames)-1]
	return f
}

func (m *VM) currentFrame() *frame {
	return &m.frames[len(m.frames)-1]
}

func (m *VM) readByte(opIP int, op Opcode) (byte, error) {
	if m.ip >= len(m.chunk.Code) {
		return 0, m.opError(opIP, op, "truncated operand")
	}
	b := m.chunk.Code[m.ip]
	m.ip++
	return b, nil
}

func (m *VM) readUint16(opIP int, op Opcode) (uint16, error) {
	if m.ip+2 > len(m.chunk.Code) {
		return 0, m.opError(opIP, op, "truncated operand")
	}
	v := binary.BigEndian.Uint16(m.chunk.Code[m.ip:])
	m.ip += 2
	return v, nil
}

func (m *VM) readInt16(opIP int, op Opcode) (int16, error) {
	v, err := m.readUint16(opIP, op)
	return int16(v), err
}

func (m *VM) chunkName() string {
	if m.chunk == nil {
		return ""
	}
	return m.chunk.Name
}

func (m *VM) errorf(format string, args ...interface{}) *RuntimeError {
	return &RuntimeError{Chunk: m.chunkName(), Msg: fmt.Sprintf(format, args...)}
}

func (m *VM) opError(opIP int, op Opcode, format string, args ...interface{}) *RuntimeError {
	return &RuntimeError{
		Chunk: m.chunkName(),
		Op:    op.Name(),
		IP:    opIP,
		Msg:   fmt.Sprintf(format, args...),
	}
}
