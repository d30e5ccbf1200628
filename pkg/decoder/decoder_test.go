package decoder_test

import (
	"testing"

	"github.com/noah1400/vm32/pkg/decoder"
)

func TestDecodeFields(t *testing.T) {
	table := []struct {
		name string
		word uint32
		want decoder.Instruction
	}{
		{
			name: "reg mode keeps reg2 and 12-bit immediate",
			word: 0x20_1_2_3_045,
			want: decoder.Instruction{Opcode: 0x20, Mode: 0x1, Reg1: 0x2, Reg2: 0x3, Immediate: 0x045},
		},
		{
			name: "imm mode widens reg2 into immediate high nibble",
			word: 0x01_0_4_A_123,
			want: decoder.Instruction{Opcode: 0x01, Mode: 0x0, Reg1: 0x4, Reg2: 0xA, Immediate: 0xA123},
		},
		{
			name: "mem mode widens",
			word: 0x02_2_1_F_FFF,
			want: decoder.Instruction{Opcode: 0x02, Mode: 0x2, Reg1: 0x1, Reg2: 0xF, Immediate: 0xFFFF},
		},
		{
			name: "idx mode does not widen",
			word: 0x01_4_3_7_001,
			want: decoder.Instruction{Opcode: 0x01, Mode: 0x4, Reg1: 0x3, Reg2: 0x7, Immediate: 0x001},
		},
	}

	for _, entry := range table {
		got := decoder.Decode(entry.word)
		if got != entry.want {
			t.Errorf("%s: Decode(0x%08X) = %+v, want %+v", entry.name, entry.word, got, entry.want)
		}
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	modes := []byte{decoder.ModeImm, decoder.ModeReg, decoder.ModeMem, decoder.ModeRegM, decoder.ModeIdx, decoder.ModeStk, decoder.ModeBas}
	opcodes := []byte{decoder.NOP, decoder.LOAD, decoder.ADD, decoder.JMP, decoder.PUSH, decoder.HALT, decoder.ALLOC}

	for _, opcode := range opcodes {
		for _, mode := range modes {
			for _, imm := range []uint16{0x000, 0x001, 0xFFF, 0xABCD, 0x1234} {
				want := decoder.Instruction{
					Opcode:    opcode,
					Mode:      mode,
					Reg1:      0x5,
					Reg2:      0x9,
					Immediate: imm,
				}
				if widens(mode) {
					// Widening modes carry the immediate's high nibble in the
					// reg2 field, so Decode reports it as Reg2 as well.
					want.Reg2 = byte(imm >> 12)
				} else {
					want.Immediate &= 0x0FFF
				}
				word := decoder.Encode(want)
				got := decoder.Decode(word)
				if got != want {
					t.Errorf("round trip broke for opcode 0x%02X mode 0x%X imm 0x%04X: got %+v, want %+v",
						opcode, mode, imm, got, want)
				}
			}
		}
	}
}

func widens(mode byte) bool {
	switch mode {
	case decoder.ModeImm, decoder.ModeMem, decoder.ModeStk, decoder.ModeBas:
		return true
	default:
		return false
	}
}

func TestMnemonic(t *testing.T) {
	table := []struct {
		opcode byte
		want   string
	}{
		{decoder.NOP, "NOP"},
		{decoder.ADD, "ADD"},
		{decoder.HALT, "HALT"},
		{decoder.MEMCPY, "MEMCPY"},
		{0xFF, "UNKNOWN"},
		{0x09, "UNKNOWN"},
	}

	for _, entry := range table {
		if got := decoder.Mnemonic(entry.opcode); got != entry.want {
			t.Errorf("Mnemonic(0x%02X) = %q, want %q", entry.opcode, got, entry.want)
		}
	}
}
