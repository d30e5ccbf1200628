package cpu

import "github.com/noah1400/vm32/pkg/vmerr"

// interrupt implements INT <vector> per spec section 4.3: push flags,
// then push the return PC, clear interrupt-enable, and jump to the
// vector's handler. A vector raised while interrupts are already
// disabled is the nested-interrupt case the spec calls out; it is
// rejected before anything is pushed.
func (c *CPU) interrupt(vector byte) *vmerr.Error {
	if !c.GetFlag(FlagInterruptEnable) {
		return vmerr.Newf(vmerr.NestedInterrupt,
			"interrupt vector %d raised while interrupts are disabled", vector)
	}

	handler := c.Vectors[vector%vectorCount]
	if handler == 0 {
		return vmerr.Newf(vmerr.UnhandledInterrupt,
			"no handler installed for interrupt vector %d", vector)
	}

	if err := c.pushStack(c.Reg[RegSR]); err != nil {
		return err
	}
	if err := c.pushStack(c.Reg[RegPC]); err != nil {
		return err
	}

	c.SetFlag(FlagInterruptEnable, false)
	c.Reg[RegPC] = handler
	return nil
}
