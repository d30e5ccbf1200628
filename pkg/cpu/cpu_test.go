package cpu

import (
	"bufio"
	"bytes"
	"strings"
	"testing"

	"github.com/noah1400/vm32/pkg/decoder"
	"github.com/noah1400/vm32/pkg/memory"
	"github.com/noah1400/vm32/pkg/vmerr"
	"github.com/stretchr/testify/assert"
)

// asm writes instr encoded as a 32-bit word at addr in code memory.
func asm(t *testing.T, c *CPU, addr uint16, instr decoder.Instruction) {
	t.Helper()
	word := decoder.Encode(instr)
	var b [4]byte
	b[0] = byte(word)
	b[1] = byte(word >> 8)
	b[2] = byte(word >> 16)
	b[3] = byte(word >> 24)
	if err := c.Mem.LoadRaw(addr, b[:]); err != nil {
		t.Fatalf("LoadRaw at 0x%04X: %v", addr, err)
	}
}

func newTestCPU() *CPU {
	c := New()
	c.Stdin = bufio.NewReader(strings.NewReader(""))
	c.Stdout = &bytes.Buffer{}
	c.Stderr = &bytes.Buffer{}
	return c
}

func TestStepAdvancesPCAndCount(t *testing.T) {
	assert := assert.New(t)
	c := newTestCPU()
	asm(t, c, memory.CodeBase, decoder.Instruction{Opcode: decoder.NOP})

	err := c.Step()
	assert.Nil(err)
	assert.Equal(uint32(memory.CodeBase+4), c.Reg[RegPC])
	assert.Equal(uint64(1), c.InstructionCount)
}

func TestHaltedStepIsNoop(t *testing.T) {
	assert := assert.New(t)
	c := newTestCPU()
	c.Halted = true
	pc := c.Reg[RegPC]
	assert.Nil(c.Step())
	assert.Equal(pc, c.Reg[RegPC])
}

func TestLoadImmediateAndAdd(t *testing.T) {
	assert := assert.New(t)
	c := newTestCPU()

	asm(t, c, memory.CodeBase, decoder.Instruction{
		Opcode: decoder.LOAD, Mode: decoder.ModeImm, Reg1: 0, Immediate: 10,
	})
	asm(t, c, memory.CodeBase+4, decoder.Instruction{
		Opcode: decoder.ADD, Mode: decoder.ModeImm, Reg1: 0, Immediate: 5,
	})
	asm(t, c, memory.CodeBase+8, decoder.Instruction{Opcode: decoder.HALT})

	err := c.Run()
	assert.Nil(err)
	assert.Equal(uint32(15), c.Reg[0])
	assert.True(c.Halted)
}

func TestDivisionByZeroLeavesDestinationUnchanged(t *testing.T) {
	assert := assert.New(t)
	c := newTestCPU()
	c.Reg[0] = 10

	asm(t, c, memory.CodeBase, decoder.Instruction{
		Opcode: decoder.DIV, Mode: decoder.ModeImm, Reg1: 0, Immediate: 0,
	})

	err := c.Step()
	assert.NotNil(err)
	assert.Equal(vmerr.DivisionByZero, err.Code)
	assert.Equal(uint32(10), c.Reg[0])
}

func TestFactorialOfFive(t *testing.T) {
	assert := assert.New(t)
	c := newTestCPU()

	// R0 = acc = 1, R6 = counter = 5
	// loop: MUL R0, R6 ; LOOP R6, loop ; HALT
	// LOOP decrements reg1 itself and jumps back while nonzero, so the
	// loop body only needs the multiply before it.
	asm(t, c, memory.CodeBase, decoder.Instruction{
		Opcode: decoder.LOAD, Mode: decoder.ModeImm, Reg1: 0, Immediate: 1,
	})
	asm(t, c, memory.CodeBase+4, decoder.Instruction{
		Opcode: decoder.LOAD, Mode: decoder.ModeImm, Reg1: 6, Immediate: 5,
	})
	loopAddr := uint16(memory.CodeBase + 8)
	asm(t, c, loopAddr, decoder.Instruction{
		Opcode: decoder.MUL, Mode: decoder.ModeReg, Reg1: 0, Reg2: 6,
	})
	asm(t, c, loopAddr+4, decoder.Instruction{
		Opcode: decoder.LOOP, Mode: decoder.ModeImm, Reg1: 6, Immediate: uint16(loopAddr),
	})
	asm(t, c, loopAddr+8, decoder.Instruction{Opcode: decoder.HALT})

	err := c.Run()
	assert.Nil(err)
	assert.Equal(uint32(120), c.Reg[0])
}

func TestPrintHelloViaSyscall(t *testing.T) {
	assert := assert.New(t)
	c := newTestCPU()
	out := &bytes.Buffer{}
	c.Stdout = out

	msg := "Hello\x00"
	if err := c.Mem.LoadRaw(memory.DataBase, []byte(msg)); err != nil {
		t.Fatalf("LoadRaw: %v", err)
	}

	asm(t, c, memory.CodeBase, decoder.Instruction{
		Opcode: decoder.LOAD, Mode: decoder.ModeImm, Reg1: 0, Immediate: memory.DataBase,
	})
	asm(t, c, memory.CodeBase+4, decoder.Instruction{
		Opcode: decoder.SYSCALL, Immediate: 2,
	})
	asm(t, c, memory.CodeBase+8, decoder.Instruction{Opcode: decoder.HALT})

	err := c.Run()
	assert.Nil(err)
	assert.Equal("Hello", out.String())
}

func TestHeapAllocFreeRoundTripViaInstructions(t *testing.T) {
	assert := assert.New(t)
	c := newTestCPU()

	asm(t, c, memory.CodeBase, decoder.Instruction{
		Opcode: decoder.ALLOC, Mode: decoder.ModeImm, Reg1: 0, Immediate: 16,
	})
	asm(t, c, memory.CodeBase+4, decoder.Instruction{Opcode: decoder.FREE, Reg1: 0})
	asm(t, c, memory.CodeBase+8, decoder.Instruction{Opcode: decoder.HALT})

	err := c.Run()
	assert.Nil(err)
	assert.NotEqual(uint32(0), c.Reg[0])
}

func TestDoubleFreeViaInstructionFaults(t *testing.T) {
	assert := assert.New(t)
	c := newTestCPU()

	asm(t, c, memory.CodeBase, decoder.Instruction{
		Opcode: decoder.ALLOC, Mode: decoder.ModeImm, Reg1: 0, Immediate: 16,
	})
	asm(t, c, memory.CodeBase+4, decoder.Instruction{Opcode: decoder.FREE, Reg1: 0})
	asm(t, c, memory.CodeBase+8, decoder.Instruction{Opcode: decoder.FREE, Reg1: 0})

	err := c.Run()
	assert.NotNil(err)
	assert.Equal(vmerr.InvalidAddress, err.Code)
}

func TestStackPushPopBalanced(t *testing.T) {
	assert := assert.New(t)
	c := newTestCPU()
	spBefore := c.Reg[RegSP]

	asm(t, c, memory.CodeBase, decoder.Instruction{
		Opcode: decoder.PUSH, Mode: decoder.ModeImm, Immediate: 0xABC,
	})
	asm(t, c, memory.CodeBase+4, decoder.Instruction{Opcode: decoder.POP, Reg1: 7})
	asm(t, c, memory.CodeBase+8, decoder.Instruction{Opcode: decoder.HALT})

	err := c.Run()
	assert.Nil(err)
	assert.Equal(uint32(0xABC), c.Reg[7])
	assert.Equal(spBefore, c.Reg[RegSP])
}

func TestPushaPopaLeavesSPConsistent(t *testing.T) {
	assert := assert.New(t)
	c := newTestCPU()
	c.Reg[7] = 0xDEAD
	spBefore := c.Reg[RegSP]

	asm(t, c, memory.CodeBase, decoder.Instruction{Opcode: decoder.PUSHA})
	asm(t, c, memory.CodeBase+4, decoder.Instruction{Opcode: decoder.POPA})
	asm(t, c, memory.CodeBase+8, decoder.Instruction{Opcode: decoder.HALT})

	err := c.Run()
	assert.Nil(err)
	assert.Equal(uint32(0xDEAD), c.Reg[7])
	assert.Equal(spBefore, c.Reg[RegSP])
}

func TestCallRetRoundTrip(t *testing.T) {
	assert := assert.New(t)
	c := newTestCPU()

	funcAddr := uint16(memory.CodeBase + 12)
	asm(t, c, memory.CodeBase, decoder.Instruction{
		Opcode: decoder.CALL, Mode: decoder.ModeImm, Immediate: funcAddr,
	})
	asm(t, c, memory.CodeBase+4, decoder.Instruction{Opcode: decoder.HALT})
	asm(t, c, funcAddr, decoder.Instruction{
		Opcode: decoder.LOAD, Mode: decoder.ModeImm, Reg1: 0, Immediate: 99,
	})
	asm(t, c, funcAddr+4, decoder.Instruction{Opcode: decoder.RET})

	err := c.Run()
	assert.Nil(err)
	assert.Equal(uint32(99), c.Reg[0])
	// RET returned to the HALT at CodeBase+4, whose own step advanced PC.
	assert.Equal(uint32(memory.CodeBase+8), c.Reg[RegPC])
}

func TestInterruptDispatchAndReturn(t *testing.T) {
	assert := assert.New(t)
	c := newTestCPU()
	c.SetFlag(FlagInterruptEnable, true)
	handlerAddr := uint16(memory.CodeBase + 16)
	c.Vectors[3] = uint32(handlerAddr)

	asm(t, c, memory.CodeBase, decoder.Instruction{Opcode: decoder.INT, Immediate: 3})
	asm(t, c, memory.CodeBase+4, decoder.Instruction{Opcode: decoder.HALT})
	asm(t, c, handlerAddr, decoder.Instruction{Opcode: decoder.IRET})

	err := c.Run()
	assert.Nil(err)
	// IRET returned to the HALT at CodeBase+4, whose own step advanced PC.
	assert.Equal(uint32(memory.CodeBase+8), c.Reg[RegPC])
	assert.True(c.GetFlag(FlagInterruptEnable))
}

func TestNestedInterruptRejected(t *testing.T) {
	assert := assert.New(t)
	c := newTestCPU()
	c.SetFlag(FlagInterruptEnable, false)

	asm(t, c, memory.CodeBase, decoder.Instruction{Opcode: decoder.INT, Immediate: 1})

	err := c.Run()
	assert.NotNil(err)
	assert.Equal(vmerr.NestedInterrupt, err.Code)
}

func TestProtectionViolationViaInstructions(t *testing.T) {
	assert := assert.New(t)
	c := newTestCPU()

	asm(t, c, memory.CodeBase, decoder.Instruction{
		Opcode: decoder.ALLOC, Mode: decoder.ModeImm, Reg1: 0, Immediate: 16,
	})
	asm(t, c, memory.CodeBase+4, decoder.Instruction{
		Opcode: decoder.PROTECT, Mode: decoder.ModeImm, Reg1: 0, Immediate: uint16(memory.ProtRead),
	})
	asm(t, c, memory.CodeBase+8, decoder.Instruction{
		Opcode: decoder.STORE, Mode: decoder.ModeRegM, Reg1: 0, Reg2: 0,
	})

	err := c.Run()
	assert.NotNil(err)
	assert.Equal(vmerr.ProtectionFault, err.Code)
}

func TestAllocationTooLargeFaults(t *testing.T) {
	assert := assert.New(t)
	c := newTestCPU()

	// The size is staged in a register and read via ModeReg, so this
	// also exercises ALLOC's register operand path.
	c.Reg[1] = memory.HeapSize
	asm(t, c, memory.CodeBase, decoder.Instruction{
		Opcode: decoder.ALLOC, Mode: decoder.ModeReg, Reg1: 0, Reg2: 1,
	})

	err := c.Run()
	assert.NotNil(err)
	assert.Equal(vmerr.MemoryAllocation, err.Code)
}

func TestInvalidOpcodeFaults(t *testing.T) {
	assert := assert.New(t)
	c := newTestCPU()
	asm(t, c, memory.CodeBase, decoder.Instruction{Opcode: 0x09})

	err := c.Run()
	assert.NotNil(err)
	assert.Equal(vmerr.InvalidInstruction, err.Code)
}
