package frontend

import (
	"fmt"

	"github.com/fusabi-lang/fusabi/vm"
)

// ---------------------------------------------------------------------------
// Codegen: Compile AST to a bytecode chunk
// ---------------------------------------------------------------------------

// maxLocals bounds parameter plus local slots per function (8-bit operand).
const maxLocals = 256

// Compiler compiles a parsed program to a chunk.
type Compiler struct {
	chunk *vm.Chunk
	fns   map[string]uint16 // function name -> table index

	// Current function scope
	slots    map[string]uint8 // binding name -> slot
	nextSlot int
}

// NewCompiler creates a compiler that emits into a chunk with the given
// source name.
func NewCompiler(name string) *Compiler {
	return &Compiler{
		chunk: vm.NewChunk(name),
		fns:   make(map[string]uint16),
	}
}

// CompileProgram compiles a parsed program into a chunk. The first
// failure aborts the stage.
func (c *Compiler) CompileProgram(prog *Program) (*vm.Chunk, error) {
	// First pass: declare every function so calls can reference functions
	// defined later in the file.
	for _, fn := range prog.Functions {
		if _, exists := c.fns[fn.Name]; exists {
			return nil, &CompileError{Pos: fn.Pos(), Msg: fmt.Sprintf("function %q redefined", fn.Name)}
		}
		if len(fn.Params) >= maxLocals {
			return nil, &CompileError{Pos: fn.Pos(), Msg: fmt.Sprintf("function %q has too many parameters", fn.Name)}
		}
		idx := uint16(len(c.chunk.Functions))
		c.fns[fn.Name] = idx
		c.chunk.Functions = append(c.chunk.Functions, vm.Function{
			Name:  fn.Name,
			Arity: uint8(len(fn.Params)),
		})
	}

	// Second pass: compile bodies.
	for _, fn := range prog.Functions {
		if err := c.compileFn(fn); err != nil {
			return nil, err
		}
	}
	return c.chunk, nil
}

// compileFn compiles one function body.
func (c *Compiler) compileFn(fn *FnDecl) error {
	c.slots = make(map[string]uint8)
	c.nextSlot = 0
	for _, param := range fn.Params {
		if _, dup := c.slots[param]; dup {
			return &CompileError{Pos: fn.Pos(), Msg: fmt.Sprintf("duplicate parameter %q in %q", param, fn.Name)}
		}
		c.slots[param] = uint8(c.nextSlot)
		c.nextSlot++
	}

	entry := &c.chunk.Functions[c.fns[fn.Name]]
	entry.Offset = uint32(c.chunk.CurrentOffset())

	if err := c.compileBlock(fn.Body); err != nil {
		return err
	}
	// Implicit return for bodies that fall off the end.
	c.chunk.Emit(vm.OpReturnNil)

	entry.Locals = uint8(c.nextSlot - len(fn.Params))
	return nil
}

// compileBlock compiles a statement list.
func (c *Compiler) compileBlock(b *Block) error {
	for _, stmt := range b.Stmts {
		if err := c.compileStmt(stmt); err != nil {
			return err
		}
	}
	return nil
}

// compileStmt compiles one statement.
func (c *Compiler) compileStmt(stmt Stmt) error {
	switch s := stmt.(type) {
	case *LetStmt:
		if _, dup := c.slots[s.Name]; dup {
			return &CompileError{Pos: s.Pos(), Msg: fmt.Sprintf("variable %q redeclared", s.Name)}
		}
		if c.nextSlot >= maxLocals {
			return &CompileError{Pos: s.Pos(), Msg: "too many local variables"}
		}
		if err := c.compileExpr(s.Value); err != nil {
			return err
		}
		slot := uint8(c.nextSlot)
		c.slots[s.Name] = slot
		c.nextSlot++
		c.chunk.EmitByte(vm.OpStoreLocal, slot)
		return nil

	case *AssignStmt:
		slot, ok := c.slots[s.Name]
		if !ok {
			return &CompileError{Pos: s.Pos(), Msg: fmt.Sprintf("assignment to undeclared variable %q", s.Name)}
		}
		if err := c.compileExpr(s.Value); err != nil {
			return err
		}
		c.chunk.EmitByte(vm.OpStoreLocal, slot)
		return nil

	case *ReturnStmt:
		if s.Value == nil {
			c.chunk.Emit(vm.OpReturnNil)
			return nil
		}
		if err := c.compileExpr(s.Value); err != nil {
			return err
		}
		c.chunk.Emit(vm.OpReturn)
		return nil

	case *IfStmt:
		if err := c.compileExpr(s.Cond); err != nil {
			return err
		}
		elseJump := c.chunk.EmitJump(vm.OpJumpFalse)
		if err := c.compileBlock(s.Then); err != nil {
			return err
		}
		if s.Else == nil {
			c.chunk.PatchJump(elseJump)
			return nil
		}
		endJump := c.chunk.EmitJump(vm.OpJump)
		c.chunk.PatchJump(elseJump)
		if err := c.compileBlock(s.Else); err != nil {
			return err
		}
		c.chunk.PatchJump(endJump)
		return nil

	case *WhileStmt:
		loopStart := c.chunk.CurrentOffset()
		if err := c.compileExpr(s.Cond); err != nil {
			return err
		}
		exitJump := c.chunk.EmitJump(vm.OpJumpFalse)
		if err := c.compileBlock(s.Body); err != nil {
			return err
		}
		c.chunk.EmitLoop(loopStart)
		c.chunk.PatchJump(exitJump)
		return nil

	case *ExprStmt:
		if err := c.compileExpr(s.E); err != nil {
			return err
		}
		c.chunk.Emit(vm.OpPop)
		return nil
	}

	return &CompileError{Pos: stmt.Pos(), Msg: fmt.Sprintf("unsupported statement %T", stmt)}
}

// compileExpr compiles one expression, leaving its value on the stack.
func (c *Compiler) compileExpr(expr Expr) error {
	switch e := expr.(type) {
	case *IntLit:
		return c.emitConstant(vm.FromInt(e.Value), e.Pos())
	case *FloatLit:
		return c.emitConstant(vm.FromFloat(e.Value), e.Pos())
	case *StringLit:
		return c.emitConstant(vm.FromString(e.Value), e.Pos())

	case *BoolLit:
		if e.Value {
			c.chunk.Emit(vm.OpTrue)
		} else {
			c.chunk.Emit(vm.OpFalse)
		}
		return nil

	case *NilLit:
		c.chunk.Emit(vm.OpNil)
		return nil

	case *Ident:
		slot, ok := c.slots[e.Name]
		if !ok {
			return &CompileError{Pos: e.Pos(), Msg: fmt.Sprintf("undefined variable %q", e.Name)}
		}
		c.chunk.EmitByte(vm.OpLoadLocal, slot)
		return nil

	case *UnaryExpr:
		if err := c.compileExpr(e.X); err != nil {
			return err
		}
		switch e.Op {
		case TokenMinus:
			c.chunk.Emit(vm.OpNeg)
		case TokenBang:
			c.chunk.Emit(vm.OpNot)
		default:
			return &CompileError{Pos: e.Pos(), Msg: fmt.Sprintf("unsupported unary operator %s", e.Op)}
		}
		return nil

	case *BinaryExpr:
		return c.compileBinary(e)

	case *CallExpr:
		return c.compileCall(e)
	}

	return &CompileError{Pos: expr.Pos(), Msg: fmt.Sprintf("unsupported expression %T", expr)}
}

// compileBinary compiles an infix operation. && and || short-circuit via
// jumps; everything else is a single opcode over both operands.
func (c *Compiler) compileBinary(e *BinaryExpr) error {
	if e.Op == TokenAnd || e.Op == TokenOr {
		if err := c.compileExpr(e.L); err != nil {
			return err
		}
		c.chunk.Emit(vm.OpDup)
		var skip int
		if e.Op == TokenAnd {
			skip = c.chunk.EmitJump(vm.OpJumpFalse)
		} else {
			skip = c.chunk.EmitJump(vm.OpJumpTrue)
		}
		c.chunk.Emit(vm.OpPop)
		if err := c.compileExpr(e.R); err != nil {
			return err
		}
		c.chunk.PatchJump(skip)
		return nil
	}

	if err := c.compileExpr(e.L); err != nil {
		return err
	}
	if err := c.compileExpr(e.R); err != nil {
		return err
	}

	var op vm.Opcode
	switch e.Op {
	case TokenPlus:
		op = vm.OpAdd
	case TokenMinus:
		op = vm.OpSub
	case TokenStar:
		op = vm.OpMul
	case TokenSlash:
		op = vm.OpDiv
	case TokenPercent:
		op = vm.OpMod
	case TokenEq:
		op = vm.OpEq
	case TokenNe:
		op = vm.OpNe
	case TokenLt:
		op = vm.OpLt
	case TokenLe:
		op = vm.OpLe
	case TokenGt:
		op = vm.OpGt
	case TokenGe:
		op = vm.OpGe
	default:
		return &CompileError{Pos: e.Pos(), Msg: fmt.Sprintf("unsupported binary operator %s", e.Op)}
	}
	c.chunk.Emit(op)
	return nil
}

// compileCall compiles a function call. The builtin print takes one
// argument and is compiled to a dedicated opcode.
func (c *Compiler) compileCall(e *CallExpr) error {
	if e.Name == "print" {
		if len(e.Args) != 1 {
			return &CompileError{Pos: e.Pos(), Msg: fmt.Sprintf("print expects 1 argument, got %d", len(e.Args))}
		}
		if err := c.compileExpr(e.Args[0]); err != nil {
			return err
		}
		c.chunk.Emit(vm.OpPrint)
		return nil
	}

	idx, ok := c.fns[e.Name]
	if !ok {
		return &CompileError{Pos: e.Pos(), Msg: fmt.Sprintf("call to undefined function %q", e.Name)}
	}
	fn := c.chunk.Functions[idx]
	if int(fn.Arity) != len(e.Args) {
		return &CompileError{Pos: e.Pos(), Msg: fmt.Sprintf("function %q expects %d arguments, got %d", e.Name, fn.Arity, len(e.Args))}
	}

	for _, arg := range e.Args {
		if err := c.compileExpr(arg); err != nil {
			return err
		}
	}
	c.chunk.EmitCall(idx, uint8(len(e.Args)))
	return nil
}

// emitConstant pools a constant value and emits a CONST instruction.
func (c *Compiler) emitConstant(v vm.Value, pos Position) error {
	idx, err := c.chunk.AddConstant(v)
	if err != nil {
		return &CompileError{Pos: pos, Msg: err.Error()}
	}
	c.chunk.EmitUint16(vm.OpConst, idx)
	return nil
}

// ---------------------------------------------------------------------------
// Staged pipeline entry point
// ---------------------------------------------------------------------------

// Compile runs the full pipeline over source text: lexical analysis,
// parsing, then bytecode generation. The first failing stage aborts the
// rest and its typed error is returned unwrapped.
func Compile(name, source string) (*vm.Chunk, error) {
	tokens, err := NewLexer(source).Tokenize()
	if err != nil {
		return nil, err
	}
	prog, err := NewParser(tokens).ParseProgram()
	if err != nil {
		return nil, err
	}
	return NewCompiler(name).CompileProgram(prog)
}
