package cpu

import (
	"github.com/noah1400/vm32/pkg/decoder"
	"github.com/noah1400/vm32/pkg/vmerr"
)

// dispatchArith handles the 0x20-0x3F arithmetic range. Every
// two-operand form follows the x86-style convention implied by the
// spec's register file: reg1 is both an input and the destination,
// the second operand is resolved through the addressing mode table.
func (c *CPU) dispatchArith(instr decoder.Instruction) *vmerr.Error {
	switch instr.Opcode {
	case decoder.ADD:
		a := c.Reg[instr.Reg1]
		b, err := c.readOperand(instr, 4)
		if err != nil {
			return err
		}
		r := a + b
		c.updateAddFlags(a, b, r)
		c.Reg[instr.Reg1] = r
		return nil

	case decoder.ADDC:
		a := c.Reg[instr.Reg1]
		b, err := c.readOperand(instr, 4)
		if err != nil {
			return err
		}
		carry := uint32(0)
		if c.GetFlag(FlagCarry) {
			carry = 1
		}
		r := a + b + carry
		c.updateAddFlags(a, b, r)
		c.Reg[instr.Reg1] = r
		return nil

	case decoder.SUB:
		a := c.Reg[instr.Reg1]
		b, err := c.readOperand(instr, 4)
		if err != nil {
			return err
		}
		r := a - b
		c.updateSubFlags(a, b, r)
		c.Reg[instr.Reg1] = r
		return nil

	case decoder.SUBC:
		a := c.Reg[instr.Reg1]
		b, err := c.readOperand(instr, 4)
		if err != nil {
			return err
		}
		borrow := uint32(0)
		if c.GetFlag(FlagCarry) {
			borrow = 1
		}
		r := a - b - borrow
		c.updateSubFlags(a, b, r)
		c.Reg[instr.Reg1] = r
		return nil

	case decoder.MUL:
		a := c.Reg[instr.Reg1]
		b, err := c.readOperand(instr, 4)
		if err != nil {
			return err
		}
		r := a * b
		c.setZN(r)
		c.Reg[instr.Reg1] = r
		return nil

	case decoder.DIV:
		b, err := c.readOperand(instr, 4)
		if err != nil {
			return err
		}
		if b == 0 {
			return vmerr.New(vmerr.DivisionByZero, "division by zero")
		}
		a := c.Reg[instr.Reg1]
		r := a / b
		c.setZN(r)
		c.Reg[instr.Reg1] = r
		return nil

	case decoder.MOD:
		b, err := c.readOperand(instr, 4)
		if err != nil {
			return err
		}
		if b == 0 {
			return vmerr.New(vmerr.DivisionByZero, "division by zero")
		}
		a := c.Reg[instr.Reg1]
		r := a % b
		c.setZN(r)
		c.Reg[instr.Reg1] = r
		return nil

	case decoder.INC:
		a := c.Reg[instr.Reg1]
		r := a + 1
		c.updateAddFlags(a, 1, r)
		c.Reg[instr.Reg1] = r
		return nil

	case decoder.DEC:
		a := c.Reg[instr.Reg1]
		r := a - 1
		c.updateSubFlags(a, 1, r)
		c.Reg[instr.Reg1] = r
		return nil

	case decoder.NEG:
		b := c.Reg[instr.Reg1]
		r := uint32(0) - b
		c.updateSubFlags(0, b, r)
		c.Reg[instr.Reg1] = r
		return nil

	case decoder.CMP:
		a := c.Reg[instr.Reg1]
		b, err := c.readOperand(instr, 4)
		if err != nil {
			return err
		}
		c.updateSubFlags(a, b, a-b)
		return nil

	default:
		return invalidOpcode(instr)
	}
}
