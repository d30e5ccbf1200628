package cpu

import (
	"github.com/noah1400/vm32/pkg/memory"
	"github.com/noah1400/vm32/pkg/vmerr"
)

// pushStack decrements SP by 4 and writes value at the new SP, per
// spec section 4.3. SP is bounds-checked against the stack segment
// before the write.
func (c *CPU) pushStack(value uint32) *vmerr.Error {
	sp := int64(c.Reg[RegSP]) - 4
	if sp < memory.StackBase {
		return vmerr.New(vmerr.StackOverflow, "stack overflow")
	}
	if err := c.Mem.Write32(uint16(sp), value); err != nil {
		return err
	}
	c.Reg[RegSP] = uint32(sp)
	return nil
}

// popStack reads the 32-bit value at SP, then increments SP by 4.
func (c *CPU) popStack() (uint32, *vmerr.Error) {
	sp := c.Reg[RegSP]
	if uint64(sp)+4 > memory.StackBase+memory.StackSize {
		return 0, vmerr.New(vmerr.StackUnderflow, "stack underflow")
	}
	v, err := c.Mem.Read32(uint16(sp))
	if err != nil {
		return 0, err
	}
	c.Reg[RegSP] = sp + 4
	return v, nil
}

// enterFrame pushes the old BP, sets BP to the current SP, then
// reserves localsSize bytes for locals by decrementing SP.
func (c *CPU) enterFrame(localsSize uint32) *vmerr.Error {
	if err := c.pushStack(c.Reg[RegBP]); err != nil {
		return err
	}
	c.Reg[RegBP] = c.Reg[RegSP]
	sp := int64(c.Reg[RegSP]) - int64(localsSize)
	if sp < memory.StackBase {
		return vmerr.New(vmerr.StackOverflow, "stack overflow")
	}
	c.Reg[RegSP] = uint32(sp)
	return nil
}

// leaveFrame collapses the current frame: SP <- BP, then pop BP.
func (c *CPU) leaveFrame() *vmerr.Error {
	c.Reg[RegSP] = c.Reg[RegBP]
	bp, err := c.popStack()
	if err != nil {
		return err
	}
	c.Reg[RegBP] = bp
	return nil
}
