package cpu

import (
	"github.com/noah1400/vm32/pkg/decoder"
	"github.com/noah1400/vm32/pkg/vmerr"
)

// dispatchLogic handles the 0x40-0x5F logical/shift range.
func (c *CPU) dispatchLogic(instr decoder.Instruction) *vmerr.Error {
	switch instr.Opcode {
	case decoder.AND:
		a := c.Reg[instr.Reg1]
		b, err := c.readOperand(instr, 4)
		if err != nil {
			return err
		}
		r := a & b
		c.updateLogicFlags(r)
		c.Reg[instr.Reg1] = r
		return nil

	case decoder.OR:
		a := c.Reg[instr.Reg1]
		b, err := c.readOperand(instr, 4)
		if err != nil {
			return err
		}
		r := a | b
		c.updateLogicFlags(r)
		c.Reg[instr.Reg1] = r
		return nil

	case decoder.XOR:
		a := c.Reg[instr.Reg1]
		b, err := c.readOperand(instr, 4)
		if err != nil {
			return err
		}
		r := a ^ b
		c.updateLogicFlags(r)
		c.Reg[instr.Reg1] = r
		return nil

	case decoder.NOT:
		r := ^c.Reg[instr.Reg1]
		c.updateLogicFlags(r)
		c.Reg[instr.Reg1] = r
		return nil

	case decoder.TEST:
		a := c.Reg[instr.Reg1]
		b, err := c.readOperand(instr, 4)
		if err != nil {
			return err
		}
		c.updateLogicFlags(a & b)
		return nil

	case decoder.SHL:
		return c.shift(instr, shlOp)

	case decoder.SHR:
		return c.shift(instr, shrOp)

	case decoder.SAR:
		return c.shift(instr, sarOp)

	case decoder.ROL:
		return c.shift(instr, rolOp)

	case decoder.ROR:
		return c.shift(instr, rorOp)

	default:
		return invalidOpcode(instr)
	}
}

type shiftKind int

const (
	shlOp shiftKind = iota
	shrOp
	sarOp
	rolOp
	rorOp
)

// shift implements SHL/SHR/SAR/ROL/ROR's carry rules from spec section
// 4.3. The shift count is masked to 5 bits, the conventional width for
// a 32-bit operand, since the instruction set has no way to encode a
// count above 31 meaningfully.
func (c *CPU) shift(instr decoder.Instruction, kind shiftKind) *vmerr.Error {
	a := c.Reg[instr.Reg1]
	raw, err := c.readOperand(instr, 4)
	if err != nil {
		return err
	}
	count := raw & 0x1F

	var r uint32
	switch kind {
	case shlOp:
		r = a << count
		if count > 0 {
			c.SetFlag(FlagCarry, (a>>(32-count))&1 != 0)
		}
	case shrOp:
		r = a >> count
		if count > 0 {
			c.SetFlag(FlagCarry, (a>>(count-1))&1 != 0)
		}
	case sarOp:
		r = uint32(int32(a) >> count)
		if count > 0 {
			c.SetFlag(FlagCarry, (a>>(count-1))&1 != 0)
		}
	case rolOp:
		if count == 0 {
			r = a
		} else {
			r = (a << count) | (a >> (32 - count))
		}
		c.SetFlag(FlagCarry, r&1 != 0)
	case rorOp:
		if count == 0 {
			r = a
		} else {
			r = (a >> count) | (a << (32 - count))
		}
		c.SetFlag(FlagCarry, r&0x80000000 != 0)
	}

	c.setZN(r)
	c.Reg[instr.Reg1] = r
	return nil
}
