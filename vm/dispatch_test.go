package vm

import (
	"bytes"
	"testing"
)

// link is a small test helper around Link + NewBuilder to keep the
// scenarios below focused on the instruction sequence being tested.
func link(t *testing.T, b *Builder, cfuncs CFuncTable) *Program {
	t.Helper()
	prog, err := Link("main", cfuncs, NamedProcedure{Name: "main", Code: b.Bytes()})
	assert(t, err == nil, "link: unexpected error: %v", err)
	return prog
}

func runExpectExit(t *testing.T, prog *Program, want int32) {
	t.Helper()
	var out bytes.Buffer
	got, err := Run(prog, &out)
	assert(t, err == nil, "run: unexpected error: %v", err)
	assert(t, got == want, "exit code: got %d want %d", got, want)
}

// TestExitLiteral: push a literal, END with it (spec.md §8 scenario 1).
func TestExitLiteral(t *testing.T) {
	b := NewBuilder()
	b.LoadImmediate32(7)
	b.End()
	runExpectExit(t, link(t, b, nil), 7)
}

// TestArithmetic: (3 + 4) * 2 == 14 (spec.md §8 scenario 2).
func TestArithmetic(t *testing.T) {
	b := NewBuilder()
	b.LoadImmediate32(3)
	b.LoadImmediate32(4)
	b.Add(Width32)
	b.LoadImmediate32(2)
	b.Mul(Width32)
	b.End()
	runExpectExit(t, link(t, b, nil), 14)
}

// TestConditionalBranchTaken and TestConditionalBranchNotTaken cover
// spec.md §8 scenario 3 in both directions.
func TestConditionalBranchTaken(t *testing.T) {
	runExpectExit(t, buildBranch(t, 10, 20), 1) // 10 < 20
}

func TestConditionalBranchNotTaken(t *testing.T) {
	runExpectExit(t, buildBranch(t, 20, 10), 0) // 20 < 10 is false
}

func buildBranch(t *testing.T, lhs, rhs int32) *Program {
	t.Helper()
	b := NewBuilder()
	b.LoadImmediate32(uint32(lhs))
	b.LoadImmediate32(uint32(rhs))
	b.LtS(Width32)
	jmp := b.CJmp(Width32, 0)
	b.LoadImmediate32(0)
	b.End()
	target := uint64(b.Len())
	b.PatchWord(jmp, target)
	b.LoadImmediate32(1)
	b.End()
	return link(t, b, nil)
}

// TestCallReturn covers spec.md §8 scenario 4: a CALL into a helper
// procedure, which computes a value and RETs back to fall through to
// END in the caller.
func TestCallReturn(t *testing.T) {
	double := NewBuilder()
	double.LoadImmediate32(2)
	double.Mul(Width32)
	double.Ret()

	mainB := NewBuilder()
	mainB.LoadImmediate32(21)
	callPos := mainB.Call(0)
	mainB.End()

	prog, err := Link("main", nil,
		NamedProcedure{Name: "main", Code: mainB.Bytes()},
		NamedProcedure{Name: "double", Code: double.Bytes()},
	)
	assert(t, err == nil, "link: unexpected error: %v", err)

	target, ok := prog.Offset("double")
	assert(t, ok, "double procedure not linked")
	mainOffset, ok := prog.Offset("main")
	assert(t, ok, "main procedure not linked")
	PatchCodeWord(prog.Code, int(mainOffset)+callPos, target)

	runExpectExit(t, prog, 42)
}

// TestRollNonPeephole covers spec.md §8 scenario 5: ROLL 3 (not a
// peephole case) brings the deepest of three pushed values to the top.
func TestRollNonPeephole(t *testing.T) {
	b := NewBuilder()
	b.LoadImmediate32(1)
	b.LoadImmediate32(2)
	b.LoadImmediate32(3)
	b.Roll(3)
	b.End()
	runExpectExit(t, link(t, b, nil), 1)
}

// TestDupThenDropIsIdentity checks DUP immediately followed by DROP
// leaves the stack exactly as it was (spec.md §8's identity property).
func TestDupThenDropIsIdentity(t *testing.T) {
	b := NewBuilder()
	b.LoadImmediate32(99)
	b.Dup()
	b.Drop()
	b.End()
	runExpectExit(t, link(t, b, nil), 99)
}

// TestComparisonProducesBooleanWidths checks that LT_S at 32 bits
// produces exactly 0 or 1.
func TestComparisonProducesBooleanWidths(t *testing.T) {
	cases := []struct {
		a, b int32
		want int32
	}{
		{1, 2, 1},
		{2, 1, 0},
		{5, 5, 0},
	}
	for _, tc := range cases {
		b := NewBuilder()
		b.LoadImmediate32(uint32(tc.a))
		b.LoadImmediate32(uint32(tc.b))
		b.LtS(Width32)
		b.End()
		runExpectExit(t, link(t, b, nil), tc.want)
	}
}

// TestNotProducesBoolean checks NOT_w is logical negation (0 or 1), not
// a bitwise complement: NOT of a nonzero value is 0, NOT of 0 is 1.
func TestNotProducesBoolean(t *testing.T) {
	cases := []struct {
		in   uint32
		want int32
	}{
		{0, 1},
		{5, 0},
		{1, 0},
	}
	for _, tc := range cases {
		b := NewBuilder()
		b.LoadImmediate32(tc.in)
		b.Not(Width32)
		b.End()
		runExpectExit(t, link(t, b, nil), tc.want)
	}
}

// TestEmptyStackReturnExitsZero covers the index-0 sentinel cell: an
// entry procedure that RETs with nothing pushed falls through to the
// wrapper's END, which must read the sentinel (0), not underflow.
func TestEmptyStackReturnExitsZero(t *testing.T) {
	b := NewBuilder()
	b.Ret()
	runExpectExit(t, link(t, b, nil), 0)
}

// TestForeignCallRoundTrip covers spec.md §8 scenario 6: convert 42 to
// a string, print it, free it, and exit 0.
func TestForeignCallRoundTrip(t *testing.T) {
	b := NewBuilder()
	b.LoadImmediate32(42)
	b.CCall(CFuncIntToString)
	b.Dup()
	b.CCall(CFuncPrint)
	b.CCall(CFuncFree)
	b.LoadImmediate32(0)
	b.End()

	prog := link(t, b, DefaultCFuncTable())
	var out bytes.Buffer
	got, err := Run(prog, &out)
	assert(t, err == nil, "run: unexpected error: %v", err)
	assert(t, got == 0, "exit code: got %d want 0", got)
	assert(t, out.String() == "42", "stdout: got %q want %q", out.String(), "42")
}

// TestDoubleFreeIsFatal checks that freeing a pointer twice is reported
// as a fatal error, not silently ignored.
func TestDoubleFreeIsFatal(t *testing.T) {
	b := NewBuilder()
	b.LoadImmediate32(1)
	b.CCall(CFuncIntToString)
	b.Dup()
	b.CCall(CFuncFree)
	b.CCall(CFuncFree)
	b.LoadImmediate32(0)
	b.End()

	prog := link(t, b, DefaultCFuncTable())
	var out bytes.Buffer
	_, err := Run(prog, &out)
	assert(t, err != nil, "expected fatal error on double free, got nil")
}

// TestIllegalRollDepthIsFatal checks ROLL 0 is a fatal error.
func TestIllegalRollDepthIsFatal(t *testing.T) {
	b := NewBuilder()
	b.LoadImmediate32(1)
	b.Roll(0)
	b.End()

	var out bytes.Buffer
	_, err := Run(link(t, b, nil), &out)
	assert(t, err == ErrIllegalRollDepth, "expected ErrIllegalRollDepth, got %v", err)
}

// TestShiftMasksCountModuloWidth checks a shift count >= width is
// reduced modulo the width rather than treated as an error.
func TestShiftMasksCountModuloWidth(t *testing.T) {
	b := NewBuilder()
	b.LoadImmediate32(1)
	b.LoadImmediate8(32) // 32 mod 32 == 0, so this should be a no-op shift
	b.LShift(Width32)
	b.End()
	runExpectExit(t, link(t, b, nil), 1)
}
