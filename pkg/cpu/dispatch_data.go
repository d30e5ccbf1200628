package cpu

import (
	"github.com/noah1400/vm32/pkg/decoder"
	"github.com/noah1400/vm32/pkg/vmerr"
)

// dispatchData handles the 0x00-0x1F data transfer range (spec
// section 4.4's "Selected instruction contracts").
func (c *CPU) dispatchData(instr decoder.Instruction) *vmerr.Error {
	switch instr.Opcode {
	case decoder.NOP:
		return nil

	case decoder.LOAD:
		v, err := c.readOperand(instr, 4)
		if err != nil {
			return err
		}
		c.Reg[instr.Reg1] = v
		return nil

	case decoder.STORE:
		return c.writeOperand(instr, 4, c.Reg[instr.Reg1])

	case decoder.MOVE:
		c.Reg[instr.Reg1] = c.Reg[instr.Reg2]
		return nil

	case decoder.LOADB:
		v, err := c.readOperand(instr, 1)
		if err != nil {
			return err
		}
		c.Reg[instr.Reg1] = v
		return nil

	case decoder.STOREB:
		return c.writeOperand(instr, 1, c.Reg[instr.Reg1])

	case decoder.LOADW:
		v, err := c.readOperand(instr, 2)
		if err != nil {
			return err
		}
		c.Reg[instr.Reg1] = v
		return nil

	case decoder.STOREW:
		return c.writeOperand(instr, 2, c.Reg[instr.Reg1])

	case decoder.LEA:
		addr, err := c.operandAddress(instr)
		if err != nil {
			return err
		}
		c.Reg[instr.Reg1] = uint32(addr)
		return nil

	default:
		return invalidOpcode(instr)
	}
}
