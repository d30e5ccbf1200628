package cpu

import (
	"fmt"
	"strings"

	"github.com/noah1400/vm32/pkg/memory"
)

// mightBeString guesses whether addr starts a NUL-terminated ASCII
// run, by sampling up to 64 bytes and requiring most of them to be
// printable. Ported from the original state-dump heuristic: it exists
// purely to make register dumps readable, never to drive VM semantics.
func mightBeString(mem *memory.Memory, addr uint16) bool {
	if !inDataOrHeap(addr) {
		return false
	}
	const maxCheck = 64
	bytes := mem.Bytes()
	printable, total := 0, 0
	for i := 0; i < maxCheck; i++ {
		pos := int(addr) + i
		if pos >= len(bytes) {
			break
		}
		b := bytes[pos]
		if b == 0 && printable > 0 {
			return true
		}
		if isPrintable(b) {
			printable++
		}
		total++
		if total > 3 && printable < total/2 {
			return false
		}
	}
	return printable > 3
}

func inDataOrHeap(addr uint16) bool {
	inData := addr >= memory.DataBase && int(addr) < memory.DataBase+memory.DataSize
	return inData || memory.InHeap(addr)
}

func isPrintable(b byte) bool {
	return (b >= 32 && b <= 126) || b == '\n' || b == '\r' || b == '\t'
}

// extractString reads a NUL-terminated run at addr, up to maxLength
// bytes, for display in a register dump.
func extractString(mem *memory.Memory, addr uint16, maxLength int) string {
	bytes := mem.Bytes()
	var sb strings.Builder
	for i := 0; i < maxLength; i++ {
		pos := int(addr) + i
		if pos >= len(bytes) || bytes[pos] == 0 {
			break
		}
		sb.WriteByte(bytes[pos])
	}
	return sb.String()
}

func escapeChar(b byte) string {
	switch b {
	case '\n':
		return "\\n"
	case '\r':
		return "\\r"
	case '\t':
		return "\\t"
	default:
		return string(b)
	}
}

// DumpState renders the register file, flags, and a best-effort guess
// at which registers hold ASCII characters or string pointers — the
// same heuristic the reference's cpu_dump_registers uses, reworked
// into a single formatted string for a host CLI or test to print.
func (c *CPU) DumpState() string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "R0(ACC): 0x%08X  R1(BP):  0x%08X  R2(SP):  0x%08X  R3(PC):  0x%08X\n",
		c.Reg[0], c.Reg[1], c.Reg[2], c.Reg[3])
	fmt.Fprintf(&sb, "R4(SR):  0x%08X  R5:      0x%08X  R6:      0x%08X  R7:      0x%08X\n",
		c.Reg[4], c.Reg[5], c.Reg[6], c.Reg[7])
	fmt.Fprintf(&sb, "R8:      0x%08X  R9:      0x%08X  R10:     0x%08X  R11:     0x%08X\n",
		c.Reg[8], c.Reg[9], c.Reg[10], c.Reg[11])
	fmt.Fprintf(&sb, "R12:     0x%08X  R13:     0x%08X  R14:     0x%08X  R15(LR): 0x%08X\n",
		c.Reg[12], c.Reg[13], c.Reg[14], c.Reg[15])

	flag := func(set bool, ch byte) byte {
		if set {
			return ch
		}
		return '-'
	}
	fmt.Fprintf(&sb, "Flags: [%c%c%c%c%c%c%c%c]\n",
		flag(c.GetFlag(FlagZero), 'Z'),
		flag(c.GetFlag(FlagNegative), 'N'),
		flag(c.GetFlag(FlagCarry), 'C'),
		flag(c.GetFlag(FlagOverflow), 'O'),
		flag(c.GetFlag(FlagInterruptEnable), 'I'),
		flag(c.GetFlag(FlagDirection), 'D'),
		flag(c.GetFlag(FlagSystem), 'S'),
		flag(c.GetFlag(FlagTrap), 'T'))

	for i := 0; i < numRegs; i++ {
		if i == RegBP || i == RegSP || i == RegPC || i == RegSR {
			continue
		}
		value := c.Reg[i]
		name := fmt.Sprintf("R%-2d", i)
		if i == RegAcc {
			name = "R0(ACC)"
		} else if i == RegLink {
			name = "R15(LR)"
		}

		low := byte(value)
		if isPrintable(low) {
			fmt.Fprintf(&sb, "%s contains ASCII: '%s' (%d)\n", name, escapeChar(low), low)
			if value <= 0xFF {
				continue
			}
		}

		addr := uint16(value)
		if mightBeString(c.Mem, addr) {
			s := extractString(c.Mem, addr, 40)
			if len(s) > 30 {
				s = s[:27] + "..."
			}
			fmt.Fprintf(&sb, "%s points to string: %q\n", name, s)
		}
	}

	if c.LastError != nil {
		fmt.Fprintf(&sb, "Last error at PC 0x%04X: %s\n", c.ErrorPC, c.LastError)
	}

	return sb.String()
}
