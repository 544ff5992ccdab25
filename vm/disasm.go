package vm

import (
	"encoding/binary"
	"fmt"
	"strings"
)

// ---------------------------------------------------------------------------
// Disassembly
// ---------------------------------------------------------------------------

// Disassemble returns a human-readable listing of a chunk, one function
// section per function table entry.
func Disassemble(c *Chunk) string {
	var b strings.Builder
	fmt.Fprintf(&b, "chunk %q version %d: %d bytes, %d constants, %d functions\n",
		c.Name, c.Version, len(c.Code), len(c.Constants), len(c.Functions))

	for i, fn := range c.Functions {
		end := len(c.Code)
		for _, other := range c.Functions {
			if other.Offset > fn.Offset && int(other.Offset) < end {
				end = int(other.Offset)
			}
		}
		fmt.Fprintf(&b, "fn %s/%d (index %d, locals %d):\n", fn.Name, fn.Arity, i, fn.Locals)
		disassembleRange(&b, c, int(fn.Offset), end)
	}
	return b.String()
}

// disassembleRange writes instructions in [start, end) to b.
func disassembleRange(b *strings.Builder, c *Chunk, start, end int) {
	pos := start
	for pos < end && pos < len(c.Code) {
		line, next := DisassembleInstruction(c, pos)
		b.WriteString("  ")
		b.WriteString(line)
		b.WriteByte('\n')
		pos = next
	}
}

// DisassembleInstruction disassembles the instruction at the given offset.
// Returns its string representation and the offset of the next instruction.
func DisassembleInstruction(c *Chunk, pos int) (string, int) {
	op := Opcode(c.Code[pos])
	info := op.Info()
	next := pos + 1 + info.OperandBytes

	if next > len(c.Code) {
		return fmt.Sprintf("%04d  %s <truncated>", pos, info.Name), len(c.Code)
	}

	switch op {
	case OpConst:
		idx := binary.BigEndian.Uint16(c.Code[pos+1:])
		if int(idx) < len(c.Constants) {
			return fmt.Sprintf("%04d  %s %d (%s)", pos, info.Name, idx, c.Constants[idx].Value()), next
		}
		return fmt.Sprintf("%04d  %s %d <bad index>", pos, info.Name, idx), next

	case OpLoadLocal, OpStoreLocal:
		return fmt.Sprintf("%04d  %s %d", pos, info.Name, c.Code[pos+1]), next

	case OpJump, OpJumpTrue, OpJumpFalse:
		delta := int16(binary.BigEndian.Uint16(c.Code[pos+1:]))
		return fmt.Sprintf("%04d  %s %d (-> %04d)", pos, info.Name, delta, next+int(delta)), next

	case OpCall:
		idx := binary.BigEndian.Uint16(c.Code[pos+1:])
		argc := c.Code[pos+3]
		name := "?"
		if int(idx) < len(c.Functions) {
			name = c.Functions[idx].Name
		}
		return fmt.Sprintf("%04d  %s %s argc=%d", pos, info.Name, name, argc), next

	default:
		return fmt.Sprintf("%04d  %s", pos, info.Name), next
	}
}
