// Package memory implements the VM's segmented linear address space:
// bounds- and permission-checked byte/word/dword access, block
// copy/fill, and the heap allocator described in spec section 4.1.
//
// The whole address space lives in one owned byte slice; heap block
// headers are reached through the indexed accessors in heap.go rather
// than pointer casts, so there is never any unsafe aliasing between
// Go values and guest memory.
package memory

import "github.com/noah1400/vm32/pkg/vmerr"

// Segment layout, fixed at compile time per spec section 3.
const (
	CodeBase  = 0x0000
	CodeSize  = 0x4000
	DataBase  = 0x4000
	DataSize  = 0x4000
	StackBase = 0x8000
	StackSize = 0x4000
	HeapBase  = 0xC000
	HeapSize  = 0x4000

	TotalSize = CodeSize + DataSize + StackSize + HeapSize
)

// Protection bits, as carried in each heap block header.
const (
	ProtNone  byte = 0
	ProtRead  byte = 1
	ProtWrite byte = 2
	ProtExec  byte = 4
	ProtAll   byte = ProtRead | ProtWrite | ProtExec
)

// Memory is the VM's byte-addressable, segment-aware address space.
type Memory struct {
	bytes []byte
}

// New allocates a zero-initialized address space and seeds the heap
// with a single free block spanning the whole heap segment.
func New() *Memory {
	m := &Memory{bytes: make([]byte, TotalSize)}
	m.initHeap()
	return m
}

// Size returns the total backing array size in bytes.
func (m *Memory) Size() int {
	return len(m.bytes)
}

// Reset zeroes the backing array and reseeds the heap. It does not
// touch CPU state — callers that want a reset preserving memory
// contents simply don't call this.
func (m *Memory) Reset() {
	for i := range m.bytes {
		m.bytes[i] = 0
	}
	m.initHeap()
}

func inSegment(addr uint16, base, size int) bool {
	a := int(addr)
	return a >= base && a < base+size
}

// InHeap reports whether addr lies within the heap segment.
func InHeap(addr uint16) bool {
	return inSegment(addr, HeapBase, HeapSize)
}

func (m *Memory) checkBounds(addr, size uint16) *vmerr.Error {
	end := uint32(addr) + uint32(size)
	if end > uint32(len(m.bytes)) {
		return vmerr.Newf(vmerr.SegmentationFault,
			"memory access violation: address 0x%04X, size %d", addr, size)
	}
	return nil
}

// checkAccess validates an access of size bytes at addr against perm,
// applying the heap same-block rule. Accesses entirely outside the
// heap segment are implicitly granted: execute/protection enforcement
// outside the heap is not performed, consistently, everywhere.
func (m *Memory) checkAccess(addr, size uint16, perm byte) *vmerr.Error {
	if err := m.checkBounds(addr, size); err != nil {
		return err
	}
	if size == 0 {
		return nil
	}
	last := addr + size - 1

	startHeap := InHeap(addr)
	lastHeap := InHeap(last)
	if startHeap != lastHeap {
		return vmerr.Newf(vmerr.SegmentationFault,
			"access [0x%04X, 0x%04X) spans the heap boundary", addr, uint32(addr)+uint32(size))
	}
	if !startHeap {
		return nil
	}

	block, offset, err := m.findBlockCoveringPayload(addr, last)
	if err != nil {
		return err
	}
	if block.Protection&perm != perm {
		return vmerr.Newf(vmerr.ProtectionFault,
			"access to 0x%04X requires permission 0x%X, block at 0x%04X grants 0x%X",
			addr, perm, offset, block.Protection)
	}
	return nil
}

func get16(b []byte) uint16 {
	return uint16(b[0]) | uint16(b[1])<<8
}

func put16(b []byte, v uint16) {
	b[0] = byte(v)
	b[1] = byte(v >> 8)
}

// Read8 reads one byte, requiring read permission.
func (m *Memory) Read8(addr uint16) (byte, *vmerr.Error) {
	if err := m.checkAccess(addr, 1, ProtRead); err != nil {
		return 0, err
	}
	return m.bytes[addr], nil
}

// Write8 writes one byte, requiring write permission.
func (m *Memory) Write8(addr uint16, v byte) *vmerr.Error {
	if err := m.checkAccess(addr, 1, ProtWrite); err != nil {
		return err
	}
	m.bytes[addr] = v
	return nil
}

// Read16 reads a little-endian 16-bit word, zero-extended by callers
// that need a 32-bit value.
func (m *Memory) Read16(addr uint16) (uint16, *vmerr.Error) {
	if err := m.checkAccess(addr, 2, ProtRead); err != nil {
		return 0, err
	}
	return get16(m.bytes[addr : addr+2]), nil
}

// Write16 writes a little-endian 16-bit word, truncating v.
func (m *Memory) Write16(addr uint16, v uint16) *vmerr.Error {
	if err := m.checkAccess(addr, 2, ProtWrite); err != nil {
		return err
	}
	put16(m.bytes[addr:addr+2], v)
	return nil
}

// Read32 reads a little-endian 32-bit dword.
func (m *Memory) Read32(addr uint16) (uint32, *vmerr.Error) {
	if err := m.checkAccess(addr, 4, ProtRead); err != nil {
		return 0, err
	}
	b := m.bytes[addr : addr+4]
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24, nil
}

// Write32 writes a little-endian 32-bit dword.
func (m *Memory) Write32(addr uint16, v uint32) *vmerr.Error {
	if err := m.checkAccess(addr, 4, ProtWrite); err != nil {
		return err
	}
	b := m.bytes[addr : addr+4]
	b[0] = byte(v)
	b[1] = byte(v >> 8)
	b[2] = byte(v >> 16)
	b[3] = byte(v >> 24)
	return nil
}

// FetchInstruction reads the 32-bit word at addr for decode. Per the
// design-note 9 resolution, instruction fetch never enforces execute
// permission — it is only bounds-checked; the heap block and
// permission checks that Read32 applies are skipped.
func (m *Memory) FetchInstruction(addr uint16) (uint32, *vmerr.Error) {
	if err := m.checkBounds(addr, 4); err != nil {
		return 0, err
	}
	b := m.bytes[addr : addr+4]
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24, nil
}

// Copy moves size bytes from src to dst, checking read permission on
// the source range and write permission on the destination range.
// Overlapping ranges behave like memmove (Go's copy already does).
func (m *Memory) Copy(dst, src, size uint16) *vmerr.Error {
	if size == 0 {
		return nil
	}
	if err := m.checkAccess(src, size, ProtRead); err != nil {
		return err
	}
	if err := m.checkAccess(dst, size, ProtWrite); err != nil {
		return err
	}
	copy(m.bytes[dst:int(dst)+int(size)], m.bytes[src:int(src)+int(size)])
	return nil
}

// Fill sets size bytes starting at addr to value, requiring write
// permission.
func (m *Memory) Fill(addr uint16, value byte, size uint16) *vmerr.Error {
	if size == 0 {
		return nil
	}
	if err := m.checkAccess(addr, size, ProtWrite); err != nil {
		return err
	}
	region := m.bytes[addr : int(addr)+int(size)]
	for i := range region {
		region[i] = value
	}
	return nil
}

// LoadRaw writes data starting at addr without any permission check,
// used only by the image loader to place code/data segments before
// the guest program ever runs.
func (m *Memory) LoadRaw(addr uint16, data []byte) *vmerr.Error {
	if err := m.checkBounds(addr, uint16(len(data))); err != nil {
		return err
	}
	copy(m.bytes[addr:], data)
	return nil
}

// Bytes exposes the backing array read-only, for diagnostics (state
// dumps, string-likely heuristics) that must not go through the
// permission-checked accessors.
func (m *Memory) Bytes() []byte {
	return m.bytes
}
