package cpu

import (
	"github.com/noah1400/vm32/pkg/decoder"
	"github.com/noah1400/vm32/pkg/vmerr"
)

// dispatchStack handles the 0x80-0x9F stack range.
func (c *CPU) dispatchStack(instr decoder.Instruction) *vmerr.Error {
	switch instr.Opcode {
	case decoder.PUSH:
		v, err := c.readOperand(instr, 4)
		if err != nil {
			return err
		}
		return c.pushStack(v)

	case decoder.POP:
		v, err := c.popStack()
		if err != nil {
			return err
		}
		c.Reg[instr.Reg1] = v
		return nil

	case decoder.PUSHF:
		return c.pushStack(c.Reg[RegSR])

	case decoder.POPF:
		v, err := c.popStack()
		if err != nil {
			return err
		}
		c.Reg[RegSR] = v
		return nil

	case decoder.PUSHA:
		return c.pushAll()

	case decoder.POPA:
		return c.popAll()

	case decoder.ENTER:
		return c.enterFrame(uint32(instr.Immediate))

	case decoder.LEAVE:
		return c.leaveFrame()

	default:
		return invalidOpcode(instr)
	}
}

// pushAll saves all 16 registers. Per the Open Question resolution in
// DESIGN.md, the value stored for SP is the SP as it was before any of
// PUSHA's own pushes touched it.
func (c *CPU) pushAll() *vmerr.Error {
	preSP := c.Reg[RegSP]
	for i := 0; i < numRegs; i++ {
		v := c.Reg[i]
		if i == RegSP {
			v = preSP
		}
		if err := c.pushStack(v); err != nil {
			return err
		}
	}
	return nil
}

// popAll restores the registers in the reverse order PUSHA saved them.
// The SP and PC slots are popped (consumed off the stack) but not
// written back — SP is left wherever the matching pushes and pops put
// it, and execution continues after the POPA instead of jumping back
// to the PC saved by PUSHA.
func (c *CPU) popAll() *vmerr.Error {
	for i := numRegs - 1; i >= 0; i-- {
		v, err := c.popStack()
		if err != nil {
			return err
		}
		if i == RegSP || i == RegPC {
			continue
		}
		c.Reg[i] = v
	}
	return nil
}
