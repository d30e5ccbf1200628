package memory

import "github.com/noah1400/vm32/pkg/vmerr"

// heapHeader mirrors the co-resident block header from spec section 3:
// magic (u16), size (u16, header+payload), free flag (u8), protection
// (u8), next (u16, byte offset to the next header from this header;
// 0 means terminal).
type heapHeader struct {
	Magic      uint16
	Size       uint16
	Free       bool
	Protection byte
	Next       uint16
}

const (
	heapMagic      = 0xABCD
	heapHeaderSize = 8
	heapMinPayload = 8
)

func roundUp4(n uint16) uint16 {
	return (n + 3) &^ 3
}

// readHeapHeader decodes the header at a raw byte offset. It bypasses
// the permission-checked accessors deliberately: block metadata is
// VM-internal bookkeeping, not guest-addressable payload.
func (m *Memory) readHeapHeader(offset uint16) heapHeader {
	b := m.bytes[offset : offset+heapHeaderSize]
	return heapHeader{
		Magic:      get16(b[0:2]),
		Size:       get16(b[2:4]),
		Free:       b[4] != 0,
		Protection: b[5],
		Next:       get16(b[6:8]),
	}
}

func (m *Memory) writeHeapHeader(offset uint16, h heapHeader) {
	b := m.bytes[offset : offset+heapHeaderSize]
	put16(b[0:2], heapMagic)
	put16(b[2:4], h.Size)
	if h.Free {
		b[4] = 1
	} else {
		b[4] = 0
	}
	b[5] = h.Protection
	put16(b[6:8], h.Next)
}

func (m *Memory) initHeap() {
	m.writeHeapHeader(HeapBase, heapHeader{
		Magic: heapMagic,
		Size:  HeapSize,
		Free:  true,
		Next:  0,
	})
}

// Alloc reserves n payload bytes using first-fit over the heap's block
// chain, splitting the found block when the remainder can host another
// minimal block. See spec section 4.1.
func (m *Memory) Alloc(n uint16) (uint16, *vmerr.Error) {
	payload := n
	if payload < heapMinPayload {
		payload = heapMinPayload
	}
	payload = roundUp4(payload)

	total := uint32(payload) + heapHeaderSize
	if total > HeapSize {
		return 0, vmerr.Newf(vmerr.MemoryAllocation,
			"requested allocation of %d bytes exceeds heap size", n)
	}

	offset := uint16(HeapBase)
	for {
		h := m.readHeapHeader(offset)
		if h.Free && uint32(h.Size) >= total {
			if uint32(h.Size) >= total+heapHeaderSize+heapMinPayload {
				newOffset := offset + uint16(total)
				var newNext uint16
				if h.Next != 0 {
					newNext = h.Next - uint16(total)
				}
				m.writeHeapHeader(newOffset, heapHeader{
					Size: h.Size - uint16(total),
					Free: true,
					Next: newNext,
				})
				h.Size = uint16(total)
				h.Next = uint16(total)
			}
			h.Free = false
			h.Protection = ProtAll
			m.writeHeapHeader(offset, h)
			return offset + heapHeaderSize, nil
		}
		if h.Next == 0 {
			break
		}
		offset += h.Next
	}

	return 0, vmerr.New(vmerr.MemoryAllocation, "heap exhausted")
}

// blockAt returns the header and offset of the block whose payload
// begins exactly at addr, or ok=false if no block starts there.
func (m *Memory) blockAt(addr uint16) (h heapHeader, offset uint16, ok bool) {
	offset = HeapBase
	for {
		h = m.readHeapHeader(offset)
		if offset+heapHeaderSize == addr {
			return h, offset, true
		}
		if h.Next == 0 {
			return heapHeader{}, 0, false
		}
		offset += h.Next
	}
}

// Free releases the block whose payload starts at addr.
func (m *Memory) Free(addr uint16) *vmerr.Error {
	if !InHeap(addr) {
		return vmerr.Newf(vmerr.InvalidAddress, "address 0x%04X is not in the heap segment", addr)
	}
	h, offset, ok := m.blockAt(addr)
	if !ok {
		return vmerr.Newf(vmerr.InvalidAddress, "0x%04X is not a live allocation", addr)
	}
	if h.Free {
		return vmerr.New(vmerr.InvalidAddress, "double free detected")
	}
	h.Free = true
	m.writeHeapHeader(offset, h)
	return nil
}

// Protect sets the protection bitmask of the block whose payload
// starts at addr.
func (m *Memory) Protect(addr uint16, flags byte) *vmerr.Error {
	if !InHeap(addr) {
		return vmerr.Newf(vmerr.InvalidAddress, "address 0x%04X is not in the heap segment", addr)
	}
	h, offset, ok := m.blockAt(addr)
	if !ok {
		return vmerr.Newf(vmerr.InvalidAddress, "0x%04X is not a live allocation", addr)
	}
	h.Protection = flags
	m.writeHeapHeader(offset, h)
	return nil
}

// findBlockCoveringPayload walks the heap chain looking for an
// allocated block whose payload range contains [addr, last]. Both
// ends must land strictly inside the same block's payload.
func (m *Memory) findBlockCoveringPayload(addr, last uint16) (heapHeader, uint16, *vmerr.Error) {
	offset := uint16(HeapBase)
	for {
		h := m.readHeapHeader(offset)
		payloadStart := offset + heapHeaderSize
		payloadEnd := offset + h.Size // exclusive
		if addr >= payloadStart && addr < payloadEnd {
			if h.Free || last >= payloadEnd {
				return heapHeader{}, offset, vmerr.Newf(vmerr.SegmentationFault,
					"access at 0x%04X spans or targets a non-live heap block", addr)
			}
			return h, offset, nil
		}
		if h.Next == 0 {
			return heapHeader{}, 0, vmerr.Newf(vmerr.SegmentationFault,
				"address 0x%04X is outside any allocated heap block", addr)
		}
		offset += h.Next
	}
}

// WalkHeap visits every block header from the heap base, in chain
// order, calling fn with the block's offset, size, and free flag. It
// is used by tests asserting heap well-formedness.
func (m *Memory) WalkHeap(fn func(offset uint16, size uint16, free bool)) {
	offset := uint16(HeapBase)
	for {
		h := m.readHeapHeader(offset)
		fn(offset, h.Size, h.Free)
		if h.Next == 0 {
			return
		}
		offset += h.Next
	}
}
