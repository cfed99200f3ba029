package vm

import (
	"testing"
	"unsafe"
)

func TestCellWidthAccessors(t *testing.T) {
	var c Cell
	c.SetInt32(-5)
	assert(t, c.Int32() == -5, "Int32 round trip: got %d", c.Int32())
	assert(t, c.ReadWidth(Width32) == 0xFFFFFFFB, "ReadWidth(32) mismatch: got %x", c.ReadWidth(Width32))

	c.WriteWidth(Width8, 0xFF)
	assert(t, c.Uint8() == 0xFF, "WriteWidth(8) round trip: got %d", c.Uint8())
}

func TestCellPtrRoundTrip(t *testing.T) {
	buf := make([]byte, 8)
	p := unsafe.Pointer(&buf[0])
	var c Cell
	c.SetPtr(p)
	assert(t, c.Ptr() == p, "pointer round trip mismatch")
}
