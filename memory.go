// memory.go - flat byte-addressable memory.
//
// A fixed-size buffer with bounds-checked get/set/fill and no aliasing or
// address translation. Every access is checked against the buffer length;
// out-of-range offsets and lengths are rejected rather than masked or
// wrapped.

package vm

import "fmt"

// Memory is a fixed-size, byte-addressable flat memory.
type Memory struct {
	bytes []byte
}

// NewMemory allocates a zeroed Memory of the given size in bytes.
func NewMemory(size uint32) *Memory {
	return &Memory{bytes: make([]byte, size)}
}

// Size returns the number of addressable bytes.
func (m *Memory) Size() uint32 {
	return uint32(len(m.bytes))
}

func (m *Memory) inBounds(offset, size uint32) bool {
	if size == 0 {
		return offset <= uint32(len(m.bytes))
	}
	end := offset + size
	return offset < uint32(len(m.bytes)) && end >= offset && end <= uint32(len(m.bytes))
}

// Get returns a copy of the size bytes starting at offset.
func (m *Memory) Get(offset, size uint32) ([]byte, error) {
	if !m.inBounds(offset, size) {
		return nil, fmt.Errorf("%w: memory read at %#x size %d (memory size %d)", ErrOutOfBounds, offset, size, len(m.bytes))
	}
	out := make([]byte, size)
	copy(out, m.bytes[offset:offset+size])
	return out, nil
}

// Set writes value at offset.
func (m *Memory) Set(offset uint32, value []byte) error {
	if !m.inBounds(offset, uint32(len(value))) {
		return fmt.Errorf("%w: memory write at %#x size %d (memory size %d)", ErrOutOfBounds, offset, len(value), len(m.bytes))
	}
	copy(m.bytes[offset:], value)
	return nil
}

// Fill sets every byte in [offset, Size()) to value.
func (m *Memory) Fill(offset uint32, value byte) error {
	if offset > uint32(len(m.bytes)) {
		return fmt.Errorf("%w: memory fill at %#x (memory size %d)", ErrOutOfBounds, offset, len(m.bytes))
	}
	for i := offset; i < uint32(len(m.bytes)); i++ {
		m.bytes[i] = value
	}
	return nil
}
