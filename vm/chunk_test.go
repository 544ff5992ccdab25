package vm

import "testing"

func TestNewChunk(t *testing.T) {
	c := NewChunk("test")

	if c.Version != ChunkVersion {
		t.Errorf("Version = %d, want %d", c.Version, ChunkVersion)
	}
	if c.Name != "test" {
		t.Errorf("Name = %q, want %q", c.Name, "test")
	}
	if c.Code == nil {
		t.Error("Code is nil")
	}
}

func TestChunkAddConstant(t *testing.T) {
	c := NewChunk("test")

	idx0, err := c.AddConstant(FromInt(1))
	if err != nil {
		t.Fatal(err)
	}
	if idx0 != 0 {
		t.Errorf("first constant index = %d, want 0", idx0)
	}

	idx1, err := c.AddConstant(FromString("hello"))
	if err != nil {
		t.Fatal(err)
	}
	if idx1 != 1 {
		t.Errorf("second constant index = %d, want 1", idx1)
	}

	// Duplicate should return the existing index.
	idx2, err := c.AddConstant(FromInt(1))
	if err != nil {
		t.Fatal(err)
	}
	if idx2 != 0 {
		t.Errorf("duplicate constant index = %d, want 0", idx2)
	}
	if len(c.Constants) != 2 {
		t.Errorf("len(Constants) = %d, want 2", len(c.Constants))
	}
}

func TestChunkAddConstantUnpoolableKind(t *testing.T) {
	c := NewChunk("test")
	if _, err := c.AddConstant(True); err == nil {
		t.Error("AddConstant(true) did not fail")
	}
	if _, err := c.AddConstant(Nil); err == nil {
		t.Error("AddConstant(nil) did not fail")
	}
}

func TestChunkEmit(t *testing.T) {
	c := NewChunk("test")

	if off := c.Emit(OpNop); off != 0 {
		t.Errorf("first emit offset = %d, want 0", off)
	}
	if off := c.EmitByte(OpLoadLocal, 5); off != 1 {
		t.Errorf("second emit offset = %d, want 1", off)
	}
	if off := c.EmitUint16(OpConst, 0x0102); off != 3 {
		t.Errorf("third emit offset = %d, want 3", off)
	}

	want := []byte{byte(OpNop), byte(OpLoadLocal), 5, byte(OpConst), 0x01, 0x02}
	if len(c.Code) != len(want) {
		t.Fatalf("len(Code) = %d, want %d", len(c.Code), len(want))
	}
	for i, b := range want {
		if c.Code[i] != b {
			t.Errorf("Code[%d] = 0x%02X, want 0x%02X", i, c.Code[i], b)
		}
	}
}

func TestChunkEmitCall(t *testing.T) {
	c := NewChunk("test")
	c.EmitCall(0x0203, 2)

	want := []byte{byte(OpCall), 0x02, 0x03, 2}
	for i, b := range want {
		if c.Code[i] != b {
			t.Errorf("Code[%d] = 0x%02X, want 0x%02X", i, c.Code[i], b)
		}
	}
}

func TestChunkPatchJump(t *testing.T) {
	c := NewChunk("test")
	placeholder := c.EmitJump(OpJumpFalse)
	c.Emit(OpNop)
	c.Emit(OpNop)
	c.PatchJump(placeholder)

	// Offset is relative to the position after the operand: 2 NOPs.
	if c.Code[placeholder] != 0 || c.Code[placeholder+1] != 2 {
		t.Errorf("patched offset = %d %d, want 0 2", c.Code[placeholder], c.Code[placeholder+1])
	}
}

func TestChunkEmitLoop(t *testing.T) {
	c := NewChunk("test")
	start := c.CurrentOffset()
	c.Emit(OpNop)
	c.EmitLoop(start)

	// Jump lands on start: delta = start - (len after instruction).
	delta := int16(uint16(c.Code[2])<<8 | uint16(c.Code[3]))
	if int(delta) != start-len(c.Code) {
		t.Errorf("loop delta = %d, want %d", delta, start-len(c.Code))
	}
}

func TestFunctionByName(t *testing.T) {
	c := NewChunk("test")
	c.Functions = append(c.Functions,
		Function{Name: "main"},
		Function{Name: "helper", Arity: 2},
	)

	fn, ok := c.FunctionByName("helper")
	if !ok {
		t.Fatal("helper not found")
	}
	if fn.Arity != 2 {
		t.Errorf("Arity = %d, want 2", fn.Arity)
	}

	if _, ok := c.FunctionByName("missing"); ok {
		t.Error("found a function that does not exist")
	}
}
