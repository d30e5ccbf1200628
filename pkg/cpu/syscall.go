package cpu

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/noah1400/vm32/pkg/memory"
	"github.com/noah1400/vm32/pkg/vmerr"
)

// ansiColorCode maps a 0-15 guest color code to an ANSI SGR parameter:
// 0-7 standard foreground colors, 8-15 their bright counterparts.
func ansiColorCode(code uint32) int {
	code &= 0xF
	if code < 8 {
		return 30 + int(code)
	}
	return 90 + int(code-8)
}

// syscall dispatches on the fixed category table: console I/O (0-9),
// file stubs (10-19), memory (20-29), process (30-39), random (40-49).
// Inputs are in R0/R5/R6/R7, output in R0, and the error flag in R5 —
// syscalls that read R5 as an input capture it into a local before the
// handler overwrites R5 with the error flag.
func (c *CPU) syscall(num uint16) *vmerr.Error {
	switch num {
	case 0: // print char
		c.Stdout.Write([]byte{byte(c.Reg[RegAcc])})
		c.Reg[5] = 0

	case 1: // print int, signed decimal
		fmt.Fprintf(c.Stdout, "%d", int32(c.Reg[RegAcc]))
		c.Reg[5] = 0

	case 2: // print NUL-terminated string at R0
		addr := uint16(c.Reg[RegAcc])
		for {
			b, err := c.Mem.Read8(addr)
			if err != nil {
				c.Reg[5] = 1
				return err
			}
			if b == 0 {
				break
			}
			c.Stdout.Write([]byte{b})
			addr++
		}
		c.Reg[5] = 0

	case 3: // print hex, 8 digits
		fmt.Fprintf(c.Stdout, "%08X", c.Reg[RegAcc])
		c.Reg[5] = 0

	case 4: // print formatted in base R5
		base := c.Reg[5]
		if base < 2 || base > 36 {
			base = 10
		}
		s := strconv.FormatUint(uint64(c.Reg[RegAcc]), int(base))
		fmt.Fprint(c.Stdout, strings.ToUpper(s))
		c.Reg[5] = 0

	case 5: // read char, blocks on stdin
		b, err := c.Stdin.ReadByte()
		if err != nil {
			c.Reg[RegAcc] = 0xFFFFFFFF
			c.Reg[5] = 1
			return nil
		}
		c.Reg[RegAcc] = uint32(b)
		c.Reg[5] = 0

	case 6: // read line into buffer R0, max length R5
		addr := uint16(c.Reg[RegAcc])
		maxlen := c.Reg[5]
		var n uint32
		for n < maxlen {
			b, err := c.Stdin.ReadByte()
			if err != nil || b == '\n' {
				break
			}
			if werr := c.Mem.Write8(addr+uint16(n), b); werr != nil {
				c.Reg[5] = 1
				return werr
			}
			n++
		}
		if n < maxlen {
			c.Mem.Write8(addr+uint16(n), 0)
		}
		c.Reg[RegAcc] = n
		c.Reg[5] = 0

	case 7: // clear screen
		c.Stdout.Write([]byte("\x1b[2J\x1b[H"))
		c.Reg[5] = 0

	case 8: // set color, R0 = code 0-15
		fmt.Fprintf(c.Stdout, "\x1b[%dm", ansiColorCode(c.Reg[RegAcc]))
		c.Reg[5] = 0

	case 9: // reserved
		c.Reg[5] = 0

	case 10: // file open (stub: always fails)
		c.Reg[RegAcc] = 0xFFFFFFFF
		c.Reg[5] = 1

	case 11, 12, 13: // file close/read/write (stubs)
		c.Reg[RegAcc] = 0
		c.Reg[5] = 0

	case 20: // heap allocate
		addr, err := c.Mem.Alloc(uint16(c.Reg[RegAcc]))
		if err != nil {
			c.Reg[RegAcc] = 0
			c.Reg[5] = 1
			return nil
		}
		c.Reg[RegAcc] = uint32(addr)
		c.Reg[5] = 0

	case 21: // heap free
		if err := c.Mem.Free(uint16(c.Reg[RegAcc])); err != nil {
			c.Reg[5] = 1
			return nil
		}
		c.Reg[5] = 0

	case 22: // heap copy: dst=R0, src=R5, n=R6
		src := c.Reg[5]
		dst := c.Reg[RegAcc]
		n := c.Reg[6]
		if err := c.Mem.Copy(uint16(dst), uint16(src), uint16(n)); err != nil {
			c.Reg[5] = 1
			return err
		}
		c.Reg[5] = 0

	case 23: // query segment layout into buffer at R0
		addr := uint16(c.Reg[RegAcc])
		segments := [4][2]uint32{
			{memory.CodeBase, memory.CodeSize},
			{memory.DataBase, memory.DataSize},
			{memory.StackBase, memory.StackSize},
			{memory.HeapBase, memory.HeapSize},
		}
		for i, seg := range segments {
			off := addr + uint16(i*8)
			if err := c.Mem.Write32(off, seg[0]); err != nil {
				c.Reg[5] = 1
				return err
			}
			if err := c.Mem.Write32(off+4, seg[1]); err != nil {
				c.Reg[5] = 1
				return err
			}
		}
		c.Reg[5] = 0

	case 30: // exit(code)
		c.Halted = true
		c.Reg[5] = 0

	case 31: // sleep milliseconds
		time.Sleep(time.Duration(c.Reg[RegAcc]) * time.Millisecond)
		c.Reg[5] = 0

	case 32: // get time, ms since VM start
		c.Reg[RegAcc] = uint32(time.Since(c.startTime).Milliseconds())
		c.Reg[5] = 0

	case 33: // perf counter
		c.Reg[RegAcc] = uint32(c.InstructionCount)
		c.Reg[5] = 0

	case 40: // seed PRNG
		c.seedRNG(c.Reg[RegAcc])
		c.Reg[5] = 0

	case 41: // next PRNG value
		c.Reg[RegAcc] = c.nextRNG()
		c.Reg[5] = 0

	default:
		c.Reg[5] = 1
		return vmerr.Newf(vmerr.InvalidSyscall, "unknown syscall number %d", num)
	}
	return nil
}
