// Package cpu implements the register file, flag semantics, execution
// dispatcher, syscall layer, and interrupt handling of the VM core
// (spec sections 4.3-4.5). It owns a *memory.Memory and drives it
// through decoder.Instruction values produced from that memory.
package cpu

import (
	"bufio"
	"io"
	"os"
	"time"

	"github.com/noah1400/vm32/pkg/decoder"
	"github.com/noah1400/vm32/pkg/memory"
	"github.com/noah1400/vm32/pkg/vmerr"
)

// Conventionally named registers (spec section 3).
const (
	RegAcc  = 0
	RegBP   = 1
	RegSP   = 2
	RegPC   = 3
	RegSR   = 4
	RegLink = 15

	numRegs = 16
)

// vectorCount is the size of the fixed interrupt vector table (Design
// Note §9: "a small, fixed vector table, e.g. 32 entries").
const vectorCount = 32

// CPU is one logical processor: register file plus the memory it
// drives. It owns no goroutines and performs no I/O except through the
// Stdin/Stdout/Stderr it was configured with.
type CPU struct {
	Mem *memory.Memory
	Reg [numRegs]uint32

	Halted    bool
	DebugMode bool

	// StopRequested is polled once per Step by Run; it is the only
	// cancellation seam (spec section 5: external only, no in-band
	// token). cmd/vm32 sets it from a SIGINT handler goroutine.
	StopRequested bool

	LastError        *vmerr.Error
	ErrorPC          uint32
	InstructionCount uint64

	Vectors [vectorCount]uint32

	rngState uint32

	timerValue   uint32
	timerRunning bool
	startTime    time.Time

	Stdin  *bufio.Reader
	Stdout io.Writer
	Stderr io.Writer
}

// New builds a CPU with a freshly seeded memory and console wired to
// the process's standard streams. Callers embedding the VM in a
// non-CLI host should set Stdin/Stdout/Stderr themselves before the
// first Step.
func New() *CPU {
	c := &CPU{
		Mem:       memory.New(),
		Stdin:     bufio.NewReader(os.Stdin),
		Stdout:    os.Stdout,
		Stderr:    os.Stderr,
		startTime: time.Now(),
	}
	c.Reset()
	return c
}

// Reset re-initializes registers, flags, and the halted flag: SP and
// BP at the top of the stack segment, PC at the code base, SR clear.
// Memory contents are untouched — callers wanting a "zero memory"
// reset too call Mem.Reset first.
func (c *CPU) Reset() {
	for i := range c.Reg {
		c.Reg[i] = 0
	}
	c.Reg[RegSP] = memory.StackBase + memory.StackSize
	c.Reg[RegBP] = c.Reg[RegSP]
	c.Reg[RegPC] = memory.CodeBase
	c.Halted = false
	c.DebugMode = false
	c.StopRequested = false
	c.LastError = nil
	c.ErrorPC = 0
	c.InstructionCount = 0
	for i := range c.Vectors {
		c.Vectors[i] = 0
	}
}

// Step executes exactly one instruction: save error_pc, fetch, decode,
// advance PC by 4, dispatch. Instruction count only increments on a
// fully successful step (spec section 4.7). A halted CPU steps as a
// no-op, so a debugger can keep single-stepping past HALT safely.
func (c *CPU) Step() *vmerr.Error {
	if c.Halted {
		return nil
	}

	pc := c.Reg[RegPC]
	c.ErrorPC = pc

	word, err := c.Mem.FetchInstruction(uint16(pc))
	if err != nil {
		c.LastError = err
		return err
	}

	instr := decoder.Decode(word)
	c.Reg[RegPC] = pc + 4

	if err := c.dispatch(instr); err != nil {
		c.LastError = err
		return err
	}

	c.InstructionCount++
	return nil
}

// Run steps until halted, an error occurs, or StopRequested is set.
func (c *CPU) Run() *vmerr.Error {
	for !c.Halted && !c.StopRequested {
		if err := c.Step(); err != nil {
			return err
		}
	}
	return nil
}

func (c *CPU) dispatch(instr decoder.Instruction) *vmerr.Error {
	switch {
	case instr.Opcode < 0x20:
		return c.dispatchData(instr)
	case instr.Opcode < 0x40:
		return c.dispatchArith(instr)
	case instr.Opcode < 0x60:
		return c.dispatchLogic(instr)
	case instr.Opcode < 0x80:
		return c.dispatchControl(instr)
	case instr.Opcode < 0xA0:
		return c.dispatchStack(instr)
	case instr.Opcode < 0xC0:
		return c.dispatchSystem(instr)
	case instr.Opcode < 0xE0:
		return c.dispatchMem(instr)
	default:
		return vmerr.Newf(vmerr.InvalidInstruction, "opcode 0x%02X is out of range", instr.Opcode)
	}
}

func invalidOpcode(instr decoder.Instruction) *vmerr.Error {
	return vmerr.Newf(vmerr.InvalidInstruction, "unrecognized opcode 0x%02X (%s)",
		instr.Opcode, decoder.Mnemonic(instr.Opcode))
}
