package cpu

import (
	"github.com/noah1400/vm32/pkg/decoder"
	"github.com/noah1400/vm32/pkg/vmerr"
)

// dispatchSystem handles the 0xA0-0xBF system range.
func (c *CPU) dispatchSystem(instr decoder.Instruction) *vmerr.Error {
	switch instr.Opcode {
	case decoder.HALT:
		c.Halted = true
		return nil

	case decoder.INT:
		return c.interrupt(byte(instr.Immediate))

	case decoder.CLI:
		c.SetFlag(FlagInterruptEnable, false)
		return nil

	case decoder.STI:
		c.SetFlag(FlagInterruptEnable, true)
		return nil

	case decoder.IRET:
		pc, err := c.popStack()
		if err != nil {
			return err
		}
		sr, err := c.popStack()
		if err != nil {
			return err
		}
		c.Reg[RegPC] = pc
		c.Reg[RegSR] = sr
		return nil

	case decoder.IN:
		port, err := c.readOperand(instr, 4)
		if err != nil {
			return err
		}
		v, err := c.inPort(uint16(port))
		if err != nil {
			return err
		}
		c.Reg[instr.Reg1] = v
		return nil

	case decoder.OUT:
		port, err := c.readOperand(instr, 4)
		if err != nil {
			return err
		}
		return c.outPort(uint16(port), c.Reg[instr.Reg1])

	case decoder.RESET:
		c.Reset()
		return nil

	case decoder.DEBUG:
		c.DebugMode = true
		return nil

	default:
		return invalidOpcode(instr)
	}
}
