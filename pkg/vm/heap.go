package vm

import (
	"encoding/binary"
)

// Cell and header sizes in bytes.
const (
	CharSize        = 1
	IntSize         = 4
	PointerSize     = 8
	ArrayHeaderSize = 16

	heapAlign = 8
)

// Heap is the VM's memory: a single arena addressed by Pointer. Blocks
// are zero-filled, 8-byte aligned and never freed. The first word is
// reserved so that no block lives at address 0.
//
// Arrays are laid out as a header {count int32, eltSize int32, elems
// Pointer} followed by a separate element block.
type Heap struct {
	mem   []byte
	used  int
	limit int

	roStart, roEnd Pointer
}

// NewHeap creates an empty heap with no allocation limit.
func NewHeap() *Heap {
	return &Heap{mem: make([]byte, heapAlign)}
}

// SetLimit caps the bytes the program may allocate. 0 means unlimited.
func (h *Heap) SetLimit(n int) {
	h.limit = n
}

// Used returns the number of bytes allocated by the program.
func (h *Heap) Used() int { return h.used }

// Size returns the arena size including the reserved word and padding.
func (h *Heap) Size() int { return len(h.mem) }

func (h *Heap) grow(size int) Pointer {
	p := Pointer(len(h.mem))
	padded := (size + heapAlign - 1) &^ (heapAlign - 1)
	if padded == 0 {
		padded = heapAlign
	}
	h.mem = append(h.mem, make([]byte, padded)...)
	return p
}

// Alloc allocates a zero-initialized block of size bytes.
func (h *Heap) Alloc(size int) (Pointer, error) {
	if size < 0 {
		return Null, NewFault(MemoryFault, "negative allocation size %d", size)
	}
	if h.limit > 0 && h.used+size > h.limit {
		return Null, NewFault(MemoryFault, "heap limit exceeded (%d bytes)", h.limit)
	}
	h.used += size
	return h.grow(size), nil
}

// MapReadOnly copies data into the heap and protects it against stores.
// It does not count against the allocation limit.
func (h *Heap) MapReadOnly(data []byte) Pointer {
	p := h.grow(len(data))
	copy(h.mem[p:], data)
	h.roStart = p
	h.roEnd = p + Pointer(len(data))
	return p
}

func (h *Heap) span(p Pointer, n int) ([]byte, error) {
	if p == Null {
		return nil, NewFault(MemoryFault, "null pointer dereference")
	}
	size := uint64(len(h.mem))
	if uint64(p) < heapAlign || uint64(p) > size || uint64(n) > size-uint64(p) {
		return nil, NewFault(MemoryFault, "address 0x%x out of bounds", uint64(p))
	}
	return h.mem[p : p+Pointer(n)], nil
}

func (h *Heap) writable(p Pointer, n int) ([]byte, error) {
	b, err := h.span(p, n)
	if err != nil {
		return nil, err
	}
	if p < h.roEnd && p+Pointer(n) > h.roStart {
		return nil, NewFault(MemoryFault, "write to read-only address 0x%x", uint64(p))
	}
	return b, nil
}

// LoadInt reads a 4-byte integer cell.
func (h *Heap) LoadInt(p Pointer) (int32, error) {
	b, err := h.span(p, IntSize)
	if err != nil {
		return 0, err
	}
	return int32(binary.LittleEndian.Uint32(b)), nil
}

// StoreInt writes a 4-byte integer cell.
func (h *Heap) StoreInt(p Pointer, v int32) error {
	b, err := h.writable(p, IntSize)
	if err != nil {
		return err
	}
	binary.LittleEndian.PutUint32(b, uint32(v))
	return nil
}

// LoadPointer reads a pointer cell.
func (h *Heap) LoadPointer(p Pointer) (Pointer, error) {
	b, err := h.span(p, PointerSize)
	if err != nil {
		return Null, err
	}
	return Pointer(binary.LittleEndian.Uint64(b)), nil
}

// StorePointer writes a pointer cell.
func (h *Heap) StorePointer(p Pointer, v Pointer) error {
	b, err := h.writable(p, PointerSize)
	if err != nil {
		return err
	}
	binary.LittleEndian.PutUint64(b, uint64(v))
	return nil
}

// LoadChar reads a byte cell, sign-extended.
func (h *Heap) LoadChar(p Pointer) (int32, error) {
	b, err := h.span(p, CharSize)
	if err != nil {
		return 0, err
	}
	return int32(int8(b[0])), nil
}

// StoreChar writes a byte cell.
func (h *Heap) StoreChar(p Pointer, c byte) error {
	b, err := h.writable(p, CharSize)
	if err != nil {
		return err
	}
	b[0] = c
	return nil
}

// AllocArray allocates an array of count zeroed elements of eltSize bytes
// and returns a pointer to its header.
func (h *Heap) AllocArray(count int32, eltSize int) (Pointer, error) {
	if count < 0 {
		return Null, NewFault(MemoryFault, "negative array size %d", count)
	}
	elems, err := h.Alloc(int(count) * eltSize)
	if err != nil {
		return Null, err
	}
	arr, err := h.Alloc(ArrayHeaderSize)
	if err != nil {
		return Null, err
	}
	binary.LittleEndian.PutUint32(h.mem[arr:], uint32(count))
	binary.LittleEndian.PutUint32(h.mem[arr+4:], uint32(eltSize))
	binary.LittleEndian.PutUint64(h.mem[arr+8:], uint64(elems))
	return arr, nil
}

// ArrayLength returns the element count of the array at p.
func (h *Heap) ArrayLength(p Pointer) (int32, error) {
	if p == Null {
		return 0, NewFault(MemoryFault, "null array pointer")
	}
	return h.LoadInt(p)
}

// ArrayElement returns the address of element index of the array at p.
func (h *Heap) ArrayElement(p Pointer, index int32) (Pointer, error) {
	if p == Null {
		return Null, NewFault(MemoryFault, "null array pointer")
	}
	hdr, err := h.span(p, ArrayHeaderSize)
	if err != nil {
		return Null, err
	}
	count := int32(binary.LittleEndian.Uint32(hdr))
	eltSize := int32(binary.LittleEndian.Uint32(hdr[4:]))
	elems := Pointer(binary.LittleEndian.Uint64(hdr[8:]))
	if index < 0 || index >= count {
		return Null, NewFault(MemoryFault, "array index %d out of bounds [0, %d)", index, count)
	}
	return elems + Pointer(int64(index)*int64(eltSize)), nil
}

// LoadString reads the NUL-terminated string starting at p.
func (h *Heap) LoadString(p Pointer) (string, error) {
	if _, err := h.span(p, 0); err != nil {
		return "", err
	}
	for end := int(p); end < len(h.mem); end++ {
		if h.mem[end] == 0 {
			return string(h.mem[p:end]), nil
		}
	}
	return "", NewFault(MemoryFault, "unterminated string at 0x%x", uint64(p))
}

// AllocString copies s into a fresh NUL-terminated block.
func (h *Heap) AllocString(s string) (Pointer, error) {
	p, err := h.Alloc(len(s) + 1)
	if err != nil {
		return Null, err
	}
	copy(h.mem[p:], s)
	return p, nil
}
