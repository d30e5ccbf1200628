package cpu

import (
	"github.com/noah1400/vm32/pkg/decoder"
	"github.com/noah1400/vm32/pkg/vmerr"
)

// jumpTarget resolves a control-flow instruction's target through the
// same addressing-mode machinery as a data operand — a jump target is
// just a 32-bit value, usually produced by IMM mode from the
// assembler's label resolution.
func (c *CPU) jumpTarget(instr decoder.Instruction) (uint32, *vmerr.Error) {
	return c.readOperand(instr, 4)
}

// dispatchControl handles the 0x60-0x7F control-flow range.
func (c *CPU) dispatchControl(instr decoder.Instruction) *vmerr.Error {
	switch instr.Opcode {
	case decoder.JMP:
		target, err := c.jumpTarget(instr)
		if err != nil {
			return err
		}
		c.Reg[RegPC] = target
		return nil

	case decoder.JZ:
		return c.conditionalJump(instr, c.GetFlag(FlagZero))

	case decoder.JNZ:
		return c.conditionalJump(instr, !c.GetFlag(FlagZero))

	case decoder.JN:
		return c.conditionalJump(instr, c.GetFlag(FlagNegative))

	case decoder.JP:
		return c.conditionalJump(instr, !c.GetFlag(FlagNegative) && !c.GetFlag(FlagZero))

	case decoder.JO:
		return c.conditionalJump(instr, c.GetFlag(FlagOverflow))

	case decoder.JC:
		return c.conditionalJump(instr, c.GetFlag(FlagCarry))

	case decoder.JBE:
		return c.conditionalJump(instr, c.GetFlag(FlagCarry) || c.GetFlag(FlagZero))

	case decoder.JA:
		return c.conditionalJump(instr, !c.GetFlag(FlagCarry) && !c.GetFlag(FlagZero))

	case decoder.CALL:
		target, err := c.jumpTarget(instr)
		if err != nil {
			return err
		}
		if err := c.pushStack(c.Reg[RegPC]); err != nil {
			return err
		}
		c.Reg[RegPC] = target
		return nil

	case decoder.RET:
		pc, err := c.popStack()
		if err != nil {
			return err
		}
		c.Reg[RegPC] = pc
		if instr.Immediate != 0 {
			c.Reg[RegSP] += uint32(instr.Immediate)
		}
		return nil

	case decoder.SYSCALL:
		return c.syscall(instr.Immediate)

	case decoder.LOOP:
		target, err := c.jumpTarget(instr)
		if err != nil {
			return err
		}
		c.Reg[instr.Reg1]--
		if c.Reg[instr.Reg1] != 0 {
			c.Reg[RegPC] = target
		}
		return nil

	default:
		return invalidOpcode(instr)
	}
}

func (c *CPU) conditionalJump(instr decoder.Instruction, take bool) *vmerr.Error {
	if !take {
		return nil
	}
	target, err := c.jumpTarget(instr)
	if err != nil {
		return err
	}
	c.Reg[RegPC] = target
	return nil
}
