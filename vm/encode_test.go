package vm

import "testing"

// assert mirrors the teacher's vm/vm_test.go helper: no third-party
// assertion library is used anywhere in the retrieved corpus.
func assert(t *testing.T, cond bool, format string, args ...any) {
	t.Helper()
	if !cond {
		t.Fatalf(format, args...)
	}
}

// measure runs Encode in measure mode (nil buf) and returns the offset
// it reports.
func measure(t *testing.T, offset int, opcode Opcode, w1, w2 Width, immType ImmType, imm Immediate) int {
	t.Helper()
	end, err := Encode(nil, offset, opcode, w1, w2, immType, imm)
	assert(t, err == nil, "measure: unexpected error: %v", err)
	return end
}

// TestMeasureEqualsWrite is spec.md §8's central testable property: for
// every token, measuring and actually writing must agree on the ending
// offset, for any starting offset (alignment padding differs by starting
// offset, so this is checked across a few different offsets).
func TestMeasureEqualsWrite(t *testing.T) {
	cases := []struct {
		name     string
		opcode   Opcode
		w1, w2   Width
		immType  ImmType
		imm      Immediate
	}{
		{"nop", OpNop, WidthNone, WidthNone, ImmNone, Immediate{}},
		{"load8", OpLoadImmediateNum, Width8, WidthNone, Imm8, ImmediateU8(5)},
		{"load16", OpLoadImmediateNum, Width16, WidthNone, Imm16, ImmediateU16(500)},
		{"load32", OpLoadImmediateNum, Width32, WidthNone, Imm32, ImmediateU32(70000)},
		{"load64", OpLoadImmediateNum, Width64, WidthNone, Imm64, ImmediateU64(1 << 40)},
		{"add32", OpAdd, Width32, WidthNone, ImmNone, Immediate{}},
		{"roll3", OpRoll, WidthNone, WidthNone, Imm8, ImmediateU8(3)},
		{"roll2->swap", OpRoll, WidthNone, WidthNone, Imm8, ImmediateU8(2)},
		{"pick4", OpPick, WidthNone, WidthNone, Imm8, ImmediateU8(4)},
		{"pick1->dup", OpPick, WidthNone, WidthNone, Imm8, ImmediateU8(1)},
		{"call", OpCall, WidthNone, WidthNone, ImmCodeRef, ImmediateWord(128)},
		{"cjmp32", OpCJmp, Width32, WidthNone, ImmCodeRef, ImmediateWord(256)},
		{"ccall", OpCCall, WidthNone, WidthNone, ImmCodeRef, ImmediateWord(0)},
		{"ze_identity", OpZE, Width32, Width32, ImmNone, Immediate{}},
		{"ze_8_32", OpZE, Width8, Width32, ImmNone, Immediate{}},
		{"trunc_64_16", OpTrunc, Width64, Width16, ImmNone, Immediate{}},
	}

	for _, tc := range cases {
		for _, startOffset := range []int{0, 1, 3, 7, 8} {
			measured := measure(t, startOffset, tc.opcode, tc.w1, tc.w2, tc.immType, tc.imm)

			buf := make([]byte, measured+16) // padding so writes past measured would still be caught
			written, err := Encode(buf, startOffset, tc.opcode, tc.w1, tc.w2, tc.immType, tc.imm)
			assert(t, err == nil, "%s@%d: write mode error: %v", tc.name, startOffset, err)
			assert(t, written == measured, "%s@%d: measure=%d write=%d", tc.name, startOffset, measured, written)
		}
	}
}

// TestLoadImmediateRoundTrip checks that encoding a literal and reading
// it back with the same width-typed accessor returns the original value.
func TestLoadImmediateRoundTrip(t *testing.T) {
	buf := make([]byte, 32)
	end, err := Encode(buf, 0, OpLoadImmediateNum, Width32, WidthNone, Imm32, ImmediateU32(123456))
	assert(t, err == nil, "unexpected error: %v", err)
	assert(t, Token(buf[0]) == LoadImmediate32, "expected load_immediate_32, got %v", Token(buf[0]))

	pos := alignUp(1, 4)
	assert(t, end == pos+4, "unexpected end offset %d", end)
	assert(t, getUint32(buf[pos:]) == 123456, "round trip mismatch: got %d", getUint32(buf[pos:]))
}

// TestIdentityConversionIsNop checks that ZE/SE/TRUNC with width1==width2
// always collapse to a single NOP token with no immediate, regardless of
// which width is repeated.
func TestIdentityConversionIsNop(t *testing.T) {
	for _, w := range []Width{Width8, Width16, Width32, Width64} {
		for _, opcode := range []Opcode{OpZE, OpSE, OpTrunc} {
			buf := make([]byte, 4)
			end, err := Encode(buf, 0, opcode, w, w, ImmNone, Immediate{})
			assert(t, err == nil, "opcode=%v width=%v: unexpected error: %v", opcode, w, err)
			assert(t, end == 1, "opcode=%v width=%v: expected 1-byte NOP, got end=%d", opcode, w, end)
			assert(t, Token(buf[0]) == Nop, "opcode=%v width=%v: expected NOP, got %v", opcode, w, Token(buf[0]))
		}
	}
}

// TestPeepholeByteIdentity checks that ROLL 2 / PICK 1 produce exactly
// the same bytes as encoding SWAP / DUP directly.
func TestPeepholeByteIdentity(t *testing.T) {
	rollBuf := make([]byte, 4)
	rollEnd, err := Encode(rollBuf, 0, OpRoll, WidthNone, WidthNone, Imm8, ImmediateU8(2))
	assert(t, err == nil, "unexpected error: %v", err)

	swapBuf := make([]byte, 4)
	swapEnd, err := Encode(swapBuf, 0, OpSwap, WidthNone, WidthNone, ImmNone, Immediate{})
	assert(t, err == nil, "unexpected error: %v", err)

	assert(t, rollEnd == swapEnd, "roll 2 end=%d swap end=%d", rollEnd, swapEnd)
	assert(t, rollBuf[0] == swapBuf[0], "roll 2 byte=%d swap byte=%d", rollBuf[0], swapBuf[0])

	pickBuf := make([]byte, 4)
	pickEnd, err := Encode(pickBuf, 0, OpPick, WidthNone, WidthNone, Imm8, ImmediateU8(1))
	assert(t, err == nil, "unexpected error: %v", err)

	dupBuf := make([]byte, 4)
	dupEnd, err := Encode(dupBuf, 0, OpDup, WidthNone, WidthNone, ImmNone, Immediate{})
	assert(t, err == nil, "unexpected error: %v", err)

	assert(t, pickEnd == dupEnd, "pick 1 end=%d dup end=%d", pickEnd, dupEnd)
	assert(t, pickBuf[0] == dupBuf[0], "pick 1 byte=%d dup byte=%d", pickBuf[0], dupBuf[0])
}

// TestUnsupportedCombinationErrors checks that an unrecognized
// (opcode, width1, width2) combination is reported as an error rather
// than silently producing a bogus token.
func TestUnsupportedCombinationErrors(t *testing.T) {
	_, err := Encode(nil, 0, OpZE, Width32, Width8, ImmNone, Immediate{}) // narrowing ZE is invalid
	assert(t, err == ErrUnsupportedInstruction, "expected ErrUnsupportedInstruction, got %v", err)

	_, err = Encode(nil, 0, OpLoadImmediateNum, Width32, WidthNone, ImmCodeRef, Immediate{})
	assert(t, err == ErrInvalidImmediateType, "expected ErrInvalidImmediateType, got %v", err)
}
