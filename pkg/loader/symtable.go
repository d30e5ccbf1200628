package loader

import (
	"encoding/binary"

	"github.com/noah1400/vm32/pkg/vmerr"
)

// Symbol type tags (spec section 6).
const (
	SymbolCode byte = 0
	SymbolData byte = 1
)

// Symbol is one entry of the debug symbol table produced by the
// external assembler.
type Symbol struct {
	Name    string
	Address uint32
	Type    byte
	Line    uint32
	File    string
}

// SourceLine maps a code address back to a source location, for the
// external debugger's source-level stepping.
type SourceLine struct {
	Address uint32
	Line    uint32
	Source  string
	File    string
}

// SymbolTable is the parsed form of the optional trailing section of
// a program image. This module only parses and exposes it; it is the
// external debugger's job to interpret it.
type SymbolTable struct {
	Symbols []Symbol
	Lines   []SourceLine
}

type cursor struct {
	data []byte
	pos  int
}

func (cur *cursor) need(n int) *vmerr.Error {
	if cur.pos+n > len(cur.data) {
		return vmerr.New(vmerr.IOError, "symbol table truncated")
	}
	return nil
}

func (cur *cursor) u16() (uint16, *vmerr.Error) {
	if err := cur.need(2); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint16(cur.data[cur.pos:])
	cur.pos += 2
	return v, nil
}

func (cur *cursor) u32() (uint32, *vmerr.Error) {
	if err := cur.need(4); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint32(cur.data[cur.pos:])
	cur.pos += 4
	return v, nil
}

func (cur *cursor) u8() (byte, *vmerr.Error) {
	if err := cur.need(1); err != nil {
		return 0, err
	}
	v := cur.data[cur.pos]
	cur.pos++
	return v, nil
}

func (cur *cursor) bytes(n int) (string, *vmerr.Error) {
	if err := cur.need(n); err != nil {
		return "", err
	}
	s := string(cur.data[cur.pos : cur.pos+n])
	cur.pos += n
	return s, nil
}

// parseSymbolTable decodes the trailing symbol-table section exactly
// per spec section 6: symbol count, then per-symbol name/address/
// type/line/file, then a source-line count and per-line entries.
func parseSymbolTable(data []byte) (*SymbolTable, *vmerr.Error) {
	cur := &cursor{data: data}

	symCount, err := cur.u32()
	if err != nil {
		return nil, err
	}

	table := &SymbolTable{}
	for i := uint32(0); i < symCount; i++ {
		nameLen, err := cur.u16()
		if err != nil {
			return nil, err
		}
		name, err := cur.bytes(int(nameLen))
		if err != nil {
			return nil, err
		}
		addr, err := cur.u32()
		if err != nil {
			return nil, err
		}
		typ, err := cur.u8()
		if err != nil {
			return nil, err
		}
		line, err := cur.u32()
		if err != nil {
			return nil, err
		}
		fileLen, err := cur.u16()
		if err != nil {
			return nil, err
		}
		file, err := cur.bytes(int(fileLen))
		if err != nil {
			return nil, err
		}
		table.Symbols = append(table.Symbols, Symbol{
			Name: name, Address: addr, Type: typ, Line: line, File: file,
		})
	}

	lineCount, err := cur.u32()
	if err != nil {
		return nil, err
	}
	for i := uint32(0); i < lineCount; i++ {
		addr, err := cur.u32()
		if err != nil {
			return nil, err
		}
		lineNo, err := cur.u32()
		if err != nil {
			return nil, err
		}
		srcLen, err := cur.u16()
		if err != nil {
			return nil, err
		}
		src, err := cur.bytes(int(srcLen))
		if err != nil {
			return nil, err
		}
		fileLen, err := cur.u16()
		if err != nil {
			return nil, err
		}
		file, err := cur.bytes(int(fileLen))
		if err != nil {
			return nil, err
		}
		table.Lines = append(table.Lines, SourceLine{
			Address: addr, Line: lineNo, Source: src, File: file,
		})
	}

	return table, nil
}
