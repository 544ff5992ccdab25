package vm

import (
	"strings"
	"testing"
)

func TestDisassemble(t *testing.T) {
	c := NewChunk("demo")
	c.Functions = append(c.Functions, Function{Name: "main"})
	idx, err := c.AddConstant(FromInt(7))
	if err != nil {
		t.Fatal(err)
	}
	c.EmitUint16(OpConst, idx)
	c.Emit(OpReturn)

	out := Disassemble(c)
	for _, want := range []string{`chunk "demo"`, "fn main/0", "CONST 0 (7)", "RETURN"} {
		if !strings.Contains(out, want) {
			t.Errorf("listing missing %q:\n%s", want, out)
		}
	}
}

func TestDisassembleInstruction(t *testing.T) {
	c := NewChunk("demo")
	c.Functions = append(c.Functions, Function{Name: "f", Arity: 1})
	c.EmitCall(0, 1)

	line, next := DisassembleInstruction(c, 0)
	if !strings.Contains(line, "CALL f argc=1") {
		t.Errorf("line = %q", line)
	}
	if next != 4 {
		t.Errorf("next = %d, want 4", next)
	}
}

func TestDisassembleTruncatedOperand(t *testing.T) {
	c := NewChunk("demo")
	c.Code = append(c.Code, byte(OpConst), 0x00)

	line, next := DisassembleInstruction(c, 0)
	if !strings.Contains(line, "truncated") {
		t.Errorf("line = %q", line)
	}
	if next != len(c.Code) {
		t.Errorf("next = %d, want %d", next, len(c.Code))
	}
}
