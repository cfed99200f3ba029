package vm

import (
	"encoding/binary"
	"unsafe"
)

// HostWordSize is the width, in bytes, of a code reference, data reference,
// or foreign-call table index. This build targets 64-bit hosts.
const HostWordSize = 8

// Cell is a fixed-size storage word holding any of the widths the PZ
// instruction set understands: unsigned/signed 8/16/32/64-bit integers or a
// host pointer. Go has no untagged union, so Cell is a raw byte array and
// every read/write goes through a width-typed accessor below. The token that
// last wrote a cell is what determines how it should be read back — nothing
// here records a runtime type tag, matching spec.md's Value cell model.
//
// Writes narrower than 8 bytes only touch the bytes the width implies; they
// never zero the remaining bytes, so code that reads a cell at the wrong
// width sees stale bytes rather than zeros. That mirrors the C union this
// type replaces.
type Cell [8]byte

// The getters below take Cell by value (it's 8 bytes, cheap to copy) so
// they can be chained directly off a function call result, e.g.
// it.pop().Ptr() — only the mutators below need a pointer receiver.
func (c Cell) Uint8() uint8    { return c[0] }
func (c Cell) Int8() int8      { return int8(c[0]) }
func (c Cell) Uint16() uint16  { return binary.LittleEndian.Uint16(c[:2]) }
func (c Cell) Int16() int16    { return int16(c.Uint16()) }
func (c Cell) Uint32() uint32  { return binary.LittleEndian.Uint32(c[:4]) }
func (c Cell) Int32() int32    { return int32(c.Uint32()) }
func (c Cell) Uint64() uint64  { return binary.LittleEndian.Uint64(c[:8]) }
func (c Cell) Int64() int64    { return int64(c.Uint64()) }

func (c *Cell) SetUint8(v uint8)   { c[0] = v }
func (c *Cell) SetInt8(v int8)     { c[0] = byte(v) }
func (c *Cell) SetUint16(v uint16) { binary.LittleEndian.PutUint16(c[:2], v) }
func (c *Cell) SetInt16(v int16)   { c.SetUint16(uint16(v)) }
func (c *Cell) SetUint32(v uint32) { binary.LittleEndian.PutUint32(c[:4], v) }
func (c *Cell) SetInt32(v int32)   { c.SetUint32(uint32(v)) }
func (c *Cell) SetUint64(v uint64) { binary.LittleEndian.PutUint64(c[:8], v) }
func (c *Cell) SetInt64(v int64)   { c.SetUint64(uint64(v)) }

// Ptr reads the cell as a host pointer. The bit pattern is whatever a
// previous SetPtr wrote; the loop never dereferences it except inside a
// CCALL target, matching spec.md's "the VM never implicitly frees them".
func (c Cell) Ptr() unsafe.Pointer { return unsafe.Pointer(uintptr(c.Uint64())) }

func (c *Cell) SetPtr(p unsafe.Pointer) { c.SetUint64(uint64(uintptr(p))) }

// ReadWidth reads the cell's unsigned value at the given bit width, used by
// width-parametric tokens that operate generically over all four widths.
func (c Cell) ReadWidth(w Width) uint64 {
	switch w {
	case Width8:
		return uint64(c.Uint8())
	case Width16:
		return uint64(c.Uint16())
	case Width32:
		return uint64(c.Uint32())
	case Width64:
		return c.Uint64()
	default:
		panic(fatalf("ReadWidth: unsupported width %v", w))
	}
}

// WriteWidth writes the low bits of v into the cell at the given width.
func (c *Cell) WriteWidth(w Width, v uint64) {
	switch w {
	case Width8:
		c.SetUint8(uint8(v))
	case Width16:
		c.SetUint16(uint16(v))
	case Width32:
		c.SetUint32(uint32(v))
	case Width64:
		c.SetUint64(v)
	default:
		panic(fatalf("WriteWidth: unsupported width %v", w))
	}
}
