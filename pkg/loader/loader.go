// Package loader implements the program image container described in
// spec sections 4.6 and 6: the "VM32"-magic versioned container, and
// the bare raw-load fallback for a plain code+data byte stream.
package loader

import (
	"encoding/binary"
	"io"

	"github.com/noah1400/vm32/pkg/cpu"
	"github.com/noah1400/vm32/pkg/memory"
	"github.com/noah1400/vm32/pkg/vmerr"
)

const (
	magic      = "VM32"
	headerSize = 32
)

// Load reads an entire image from r and places it into c's memory. If
// the stream begins with the VM32 magic it is parsed as a versioned
// container; otherwise it is loaded via the raw fallback. The returned
// *SymbolTable is non-nil only when the container carried a trailing
// symbol section and c.DebugMode was set before Load was called.
func Load(c *cpu.CPU, r io.Reader) (*SymbolTable, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, vmerr.Newf(vmerr.IOError, "reading program image: %v", err)
	}

	if len(data) >= 4 && string(data[:4]) == magic {
		return loadContainer(c, data)
	}
	return nil, loadRaw(c, data)
}

func loadContainer(c *cpu.CPU, data []byte) (*SymbolTable, error) {
	if len(data) < headerSize {
		return nil, vmerr.New(vmerr.IOError, "program image header truncated")
	}

	le := binary.LittleEndian
	declaredHeaderSize := le.Uint32(data[8:12])
	codeBase := le.Uint32(data[12:16])
	codeSize := le.Uint32(data[16:20])
	dataBase := le.Uint32(data[20:24])
	dataSize := le.Uint32(data[24:28])
	symSize := le.Uint32(data[28:32])

	offset := int(declaredHeaderSize)
	if offset < headerSize {
		offset = headerSize
	}

	end := offset + int(codeSize) + int(dataSize)
	if end > len(data) {
		return nil, vmerr.New(vmerr.SegmentationFault, "program image shorter than declared segment sizes")
	}

	if err := c.Mem.LoadRaw(uint16(codeBase), data[offset:offset+int(codeSize)]); err != nil {
		return nil, err
	}
	offset += int(codeSize)
	if err := c.Mem.LoadRaw(uint16(dataBase), data[offset:offset+int(dataSize)]); err != nil {
		return nil, err
	}
	offset += int(dataSize)

	c.Reg[cpu.RegPC] = codeBase

	if !c.DebugMode || symSize == 0 {
		return nil, nil
	}
	if offset+int(symSize) > len(data) {
		return nil, vmerr.New(vmerr.SegmentationFault, "program image shorter than declared symbol table size")
	}
	symTable, err := parseSymbolTable(data[offset : offset+int(symSize)])
	if err != nil {
		return nil, err
	}
	return symTable, nil
}

// loadRaw implements spec section 4.6's fallback: place the stream at
// CODE_BASE, overflowing into the data segment if it doesn't fit.
func loadRaw(c *cpu.CPU, data []byte) error {
	switch {
	case len(data) <= memory.CodeSize:
		if err := c.Mem.LoadRaw(memory.CodeBase, data); err != nil {
			return err
		}
	case len(data) <= memory.CodeSize+memory.DataSize:
		if err := c.Mem.LoadRaw(memory.CodeBase, data[:memory.CodeSize]); err != nil {
			return err
		}
		if err := c.Mem.LoadRaw(memory.DataBase, data[memory.CodeSize:]); err != nil {
			return err
		}
	default:
		return vmerr.New(vmerr.SegmentationFault, "program image exceeds code and data segments combined")
	}
	c.Reg[cpu.RegPC] = memory.CodeBase
	return nil
}
