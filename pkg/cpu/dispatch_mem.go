package cpu

import (
	"github.com/noah1400/vm32/pkg/decoder"
	"github.com/noah1400/vm32/pkg/vmerr"
)

// dispatchMem handles the 0xC0-0xDF memory-management range. ALLOC,
// FREE, and PROTECT address a register directly the same way FREE's
// contract in spec section 4.4 does ("free(R[r])") — reg1 always
// holds an address value, never an addressing-mode operand. MEMCPY and
// MEMSET need three operands (dst, src-or-byte, n) but the encoding
// only carries two; n reuses the same fixed register, R6, that the
// syscall layer's memcpy (category 20-29) already uses for its count,
// so the convention is the one instruction set already establishes
// rather than an invented third slot.
func (c *CPU) dispatchMem(instr decoder.Instruction) *vmerr.Error {
	switch instr.Opcode {
	case decoder.ALLOC:
		size, err := c.readOperand(instr, 4)
		if err != nil {
			return err
		}
		addr, aerr := c.Mem.Alloc(uint16(size))
		if aerr != nil {
			return aerr
		}
		c.Reg[instr.Reg1] = uint32(addr)
		return nil

	case decoder.FREE:
		return c.Mem.Free(uint16(c.Reg[instr.Reg1]))

	case decoder.MEMCPY:
		src, err := c.readOperand(instr, 4)
		if err != nil {
			return err
		}
		dst := c.Reg[instr.Reg1]
		n := c.Reg[6]
		return c.Mem.Copy(uint16(dst), uint16(src), uint16(n))

	case decoder.MEMSET:
		val, err := c.readOperand(instr, 4)
		if err != nil {
			return err
		}
		dst := c.Reg[instr.Reg1]
		n := c.Reg[6]
		return c.Mem.Fill(uint16(dst), byte(val), uint16(n))

	case decoder.PROTECT:
		flags, err := c.readOperand(instr, 4)
		if err != nil {
			return err
		}
		return c.Mem.Protect(uint16(c.Reg[instr.Reg1]), byte(flags))

	default:
		return invalidOpcode(instr)
	}
}
