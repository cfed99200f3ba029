package vm

// Builder sequences Encode calls into a growing procedure buffer. It is not
// the bytecode assembler or loader spec.md §1 scopes out — it has no
// concept of source text, labels, or a symbol table — it is simply the
// direct, repeated caller of the Encoder component itself, playing the
// role pz_write_instr's (out-of-scope) caller plays in the original
// runtime: measure, grow, write, repeat. vm/compile.go's NewInstruction
// plays the analogous "turn a higher-level description into bytes" role
// for the teacher's fixed-width format.
type Builder struct {
	buf []byte
}

// NewBuilder returns an empty Builder ready to accept instructions.
func NewBuilder() *Builder {
	return &Builder{}
}

// Len returns the number of bytes written so far.
func (b *Builder) Len() int { return len(b.buf) }

// Bytes returns the procedure buffer built so far. The caller owns the
// returned slice; Builder does not reuse it after this call is made
// available to a Program (spec.md §9 "Ownership of procedure buffers").
func (b *Builder) Bytes() []byte { return b.buf }

// emit measures the instruction, grows buf to fit, then writes it for
// real. Measuring first keeps this in lockstep with how an assembler
// would size a whole procedure up front via repeated measure-mode calls
// before allocating its buffer once (spec.md §4.3 "Measure mode").
func (b *Builder) emit(opcode Opcode, w1, w2 Width, immType ImmType, imm Immediate) (int, error) {
	start := len(b.buf)
	end, err := Encode(nil, start, opcode, w1, w2, immType, imm)
	if err != nil {
		return start, err
	}

	if end > len(b.buf) {
		grown := make([]byte, end)
		copy(grown, b.buf)
		b.buf = grown
	}

	newOffset, err := Encode(b.buf, start, opcode, w1, w2, immType, imm)
	if err != nil {
		return start, err
	}
	if newOffset != end {
		panic(fatalf("builder: measure/write offset mismatch (%d != %d)", end, newOffset))
	}
	return start, nil
}

func (b *Builder) Nop() { _, _ = b.emit(OpNop, WidthNone, WidthNone, ImmNone, Immediate{}) }

func (b *Builder) LoadImmediate8(v uint8) {
	_, _ = b.emit(OpLoadImmediateNum, Width8, WidthNone, Imm8, ImmediateU8(v))
}
func (b *Builder) LoadImmediate16(v uint16) {
	_, _ = b.emit(OpLoadImmediateNum, Width16, WidthNone, Imm16, ImmediateU16(v))
}
func (b *Builder) LoadImmediate32(v uint32) {
	_, _ = b.emit(OpLoadImmediateNum, Width32, WidthNone, Imm32, ImmediateU32(v))
}
func (b *Builder) LoadImmediate64(v uint64) {
	_, _ = b.emit(OpLoadImmediateNum, Width64, WidthNone, Imm64, ImmediateU64(v))
}

// LoadImmediateData pushes a resolved data/code host-word reference.
func (b *Builder) LoadImmediateData(ref uint64) {
	_, _ = b.emit(OpLoadImmediateData, WidthNone, WidthNone, ImmDataRef, ImmediateWord(ref))
}

func (b *Builder) ZE(from, to Width)    { _, _ = b.emit(OpZE, from, to, ImmNone, Immediate{}) }
func (b *Builder) SE(from, to Width)    { _, _ = b.emit(OpSE, from, to, ImmNone, Immediate{}) }
func (b *Builder) Trunc(from, to Width) { _, _ = b.emit(OpTrunc, from, to, ImmNone, Immediate{}) }

func (b *Builder) Add(w Width) { _, _ = b.emit(OpAdd, w, WidthNone, ImmNone, Immediate{}) }
func (b *Builder) Sub(w Width) { _, _ = b.emit(OpSub, w, WidthNone, ImmNone, Immediate{}) }
func (b *Builder) Mul(w Width) { _, _ = b.emit(OpMul, w, WidthNone, ImmNone, Immediate{}) }
func (b *Builder) Div(w Width) { _, _ = b.emit(OpDiv, w, WidthNone, ImmNone, Immediate{}) }
func (b *Builder) Mod(w Width) { _, _ = b.emit(OpMod, w, WidthNone, ImmNone, Immediate{}) }

func (b *Builder) And(w Width) { _, _ = b.emit(OpAnd, w, WidthNone, ImmNone, Immediate{}) }
func (b *Builder) Or(w Width)  { _, _ = b.emit(OpOr, w, WidthNone, ImmNone, Immediate{}) }
func (b *Builder) Xor(w Width) { _, _ = b.emit(OpXor, w, WidthNone, ImmNone, Immediate{}) }

func (b *Builder) LShift(w Width) { _, _ = b.emit(OpLShift, w, WidthNone, ImmNone, Immediate{}) }
func (b *Builder) RShift(w Width) { _, _ = b.emit(OpRShift, w, WidthNone, ImmNone, Immediate{}) }

func (b *Builder) LtU(w Width) { _, _ = b.emit(OpLtU, w, WidthNone, ImmNone, Immediate{}) }
func (b *Builder) LtS(w Width) { _, _ = b.emit(OpLtS, w, WidthNone, ImmNone, Immediate{}) }
func (b *Builder) GtU(w Width) { _, _ = b.emit(OpGtU, w, WidthNone, ImmNone, Immediate{}) }
func (b *Builder) GtS(w Width) { _, _ = b.emit(OpGtS, w, WidthNone, ImmNone, Immediate{}) }
func (b *Builder) Eq(w Width)  { _, _ = b.emit(OpEq, w, WidthNone, ImmNone, Immediate{}) }
func (b *Builder) Not(w Width) { _, _ = b.emit(OpNot, w, WidthNone, ImmNone, Immediate{}) }

func (b *Builder) Dup()  { _, _ = b.emit(OpDup, WidthNone, WidthNone, ImmNone, Immediate{}) }
func (b *Builder) Drop() { _, _ = b.emit(OpDrop, WidthNone, WidthNone, ImmNone, Immediate{}) }
func (b *Builder) Swap() { _, _ = b.emit(OpSwap, WidthNone, WidthNone, ImmNone, Immediate{}) }

func (b *Builder) Roll(depth uint8) {
	_, _ = b.emit(OpRoll, WidthNone, WidthNone, Imm8, ImmediateU8(depth))
}
func (b *Builder) Pick(depth uint8) {
	_, _ = b.emit(OpPick, WidthNone, WidthNone, Imm8, ImmediateU8(depth))
}

// Call, CJmp and CCall take an unresolved forward reference: the target
// offset may not be known yet (e.g. a branch to a label later in the same
// procedure). PatchWord lets the caller back-patch the immediate once the
// target is known, without re-running the measure/write pipeline (which
// would be wrong here anyway, since the peepholes and alignment decisions
// are already locked in at first-emit time).
func (b *Builder) Call(target uint64) int {
	pos, _ := b.emit(OpCall, WidthNone, WidthNone, ImmCodeRef, ImmediateWord(target))
	return pos
}

func (b *Builder) CJmp(w Width, target uint64) int {
	pos, _ := b.emit(OpCJmp, w, WidthNone, ImmCodeRef, ImmediateWord(target))
	return pos
}

func (b *Builder) CCall(fn uint64) int {
	pos, _ := b.emit(OpCCall, WidthNone, WidthNone, ImmCodeRef, ImmediateWord(fn))
	return pos
}

func (b *Builder) Ret() { _, _ = b.emit(OpRet, WidthNone, WidthNone, ImmNone, Immediate{}) }
func (b *Builder) End() { _, _ = b.emit(OpEnd, WidthNone, WidthNone, ImmNone, Immediate{}) }

// PatchWord overwrites the host-word immediate belonging to the
// instruction that was emitted starting at instrStart (the value Call/
// CJmp/CCall returned). It locates the already-aligned immediate position
// by re-applying the host-word alignment rule to the byte after the token
// at instrStart, so it tolerates whatever alignment padding was inserted
// at first-emit time.
func (b *Builder) PatchWord(instrStart int, value uint64) {
	PatchCodeWord(b.buf, instrStart, value)
}

// PatchCodeWord overwrites the host-word immediate belonging to the
// instruction starting at instrStart within an already-linked (or
// still-building) code buffer. It is the same alignment-recovery logic
// Builder.PatchWord uses, exposed so callers patching a Program's linked
// Code directly (cross-procedure CALL targets, resolved only after
// Link) don't have to reimplement it.
func PatchCodeWord(buf []byte, instrStart int, value uint64) {
	pos := instrStart + 1
	pos = alignUp(pos, HostWordSize)
	putUint64(buf[pos:pos+HostWordSize], value)
}
