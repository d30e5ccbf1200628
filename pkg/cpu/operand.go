package cpu

import (
	"github.com/noah1400/vm32/pkg/decoder"
	"github.com/noah1400/vm32/pkg/vmerr"
)

// operandAddress resolves the effective address for the memory-bearing
// addressing modes (spec section 4.4's "Address for write" column). It
// is an error for IMM and REG, which never produce an address.
func (c *CPU) operandAddress(instr decoder.Instruction) (uint16, *vmerr.Error) {
	switch instr.Mode {
	case decoder.ModeMem:
		return instr.Immediate, nil
	case decoder.ModeRegM:
		return uint16(c.Reg[instr.Reg2]), nil
	case decoder.ModeIdx:
		return uint16(c.Reg[instr.Reg2]) + instr.Immediate, nil
	case decoder.ModeStk:
		return uint16(c.Reg[RegSP]) + instr.Immediate, nil
	case decoder.ModeBas:
		return uint16(c.Reg[RegBP]) + instr.Immediate, nil
	default:
		return 0, vmerr.Newf(vmerr.InvalidInstruction,
			"addressing mode %d does not produce an effective address", instr.Mode)
	}
}

func maskForSize(size byte) uint32 {
	switch size {
	case 1:
		return 0xFF
	case 2:
		return 0xFFFF
	default:
		return 0xFFFFFFFF
	}
}

// readOperand reads a value of the given byte width (1, 2, or 4) using
// the instruction's addressing mode, per spec section 4.4's operand
// table generalized to LOADB/LOADW's narrower access widths.
func (c *CPU) readOperand(instr decoder.Instruction, size byte) (uint32, *vmerr.Error) {
	switch instr.Mode {
	case decoder.ModeImm:
		return uint32(instr.Immediate) & maskForSize(size), nil
	case decoder.ModeReg:
		return c.Reg[instr.Reg2] & maskForSize(size), nil
	default:
		addr, err := c.operandAddress(instr)
		if err != nil {
			return 0, err
		}
		switch size {
		case 1:
			v, err := c.Mem.Read8(addr)
			return uint32(v), err
		case 2:
			v, err := c.Mem.Read16(addr)
			return uint32(v), err
		default:
			return c.Mem.Read32(addr)
		}
	}
}

// writeOperand writes a value of the given byte width to the memory
// location named by the instruction's addressing mode. IMM and REG are
// rejected — callers with a register destination write c.Reg directly
// instead of going through here.
func (c *CPU) writeOperand(instr decoder.Instruction, size byte, value uint32) *vmerr.Error {
	addr, err := c.operandAddress(instr)
	if err != nil {
		return err
	}
	switch size {
	case 1:
		return c.Mem.Write8(addr, byte(value))
	case 2:
		return c.Mem.Write16(addr, uint16(value))
	default:
		return c.Mem.Write32(addr, value)
	}
}
