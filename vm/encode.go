package vm

// Encode lowers an (opcode, width1, width2, immediate) tuple into a Token
// plus its aligned immediate, and writes it into buf at offset (or, when
// buf is nil, only computes where writing would end — "measure mode",
// spec.md §4.3). It returns the offset immediately past the instruction's
// immediate (or past its opcode byte, if it carries none).
//
// Encode never mutates its own correctness based on whether buf is nil:
// every offset computation below runs unconditionally, and only the
// actual byte stores are gated on buf != nil. That is what keeps measure
// mode and write mode in lockstep — the central invariant spec.md §1 and
// §3 call out. Drift here is a silent memory-corruption bug in any caller
// that sized a buffer from a measure-mode call and then wrote past it.
func Encode(buf []byte, offset int, opcode Opcode, width1, width2 Width, immType ImmType, imm Immediate) (int, error) {
	width1 = normalizeOperandWidth(width1)
	width2 = normalizeOperandWidth(width2)

	tok, immType, imm, err := selectToken(opcode, width1, width2, immType, imm)
	if err != nil {
		return offset, err
	}

	return emit(buf, offset, tok, immType, imm), nil
}

// selectToken implements the opcode -> token relation of spec.md §4.2,
// including the identity-conversion-to-NOP collapse and the ROLL
// 2->SWAP / PICK 1->DUP peepholes. It may rewrite immType/imm (e.g.
// LOAD_IMMEDIATE_NUM coerces the immediate to match width1, and the two
// peepholes drop the immediate entirely).
func selectToken(opcode Opcode, width1, width2 Width, immType ImmType, imm Immediate) (Token, ImmType, Immediate, error) {
	switch opcode {
	case OpNop:
		return Nop, ImmNone, Immediate{}, nil

	case OpLoadImmediateNum:
		switch immType {
		case Imm8, Imm16, Imm32, Imm64:
			// valid
		default:
			return Nop, ImmNone, Immediate{}, ErrInvalidImmediateType
		}

		var tok Token
		var toType ImmType
		switch width1 {
		case Width8:
			tok, toType = LoadImmediate8, Imm8
		case Width16:
			tok, toType = LoadImmediate16, Imm16
		case Width32:
			tok, toType = LoadImmediate32, Imm32
		case Width64:
			tok, toType = LoadImmediate64, Imm64
		default:
			return Nop, ImmNone, Immediate{}, ErrUnknownWidth
		}
		newType, newImm := coerceImmediate(immType, imm, toType)
		return tok, newType, newImm, nil

	case OpLoadImmediateData:
		return LoadImmediateData, ImmDataRef, imm, nil

	case OpZE:
		if width1 == width2 {
			return Nop, ImmNone, Immediate{}, nil
		}
		if tok, ok := zeTable[widthPair{width1, width2}]; ok {
			return tok, ImmNone, Immediate{}, nil
		}
		return Nop, ImmNone, Immediate{}, ErrUnsupportedInstruction

	case OpSE:
		if width1 == width2 {
			return Nop, ImmNone, Immediate{}, nil
		}
		if tok, ok := seTable[widthPair{width1, width2}]; ok {
			return tok, ImmNone, Immediate{}, nil
		}
		return Nop, ImmNone, Immediate{}, ErrUnsupportedInstruction

	case OpTrunc:
		if width1 == width2 {
			return Nop, ImmNone, Immediate{}, nil
		}
		if tok, ok := truncTable[widthPair{width1, width2}]; ok {
			return tok, ImmNone, Immediate{}, nil
		}
		return Nop, ImmNone, Immediate{}, ErrUnsupportedInstruction

	case OpAdd:
		return widthFamily(Add8, width1)
	case OpSub:
		return widthFamily(Sub8, width1)
	case OpMul:
		return widthFamily(Mul8, width1)
	case OpDiv:
		return widthFamily(Div8, width1)
	case OpMod:
		return widthFamily(Mod8, width1)
	case OpAnd:
		return widthFamily(And8, width1)
	case OpOr:
		return widthFamily(Or8, width1)
	case OpXor:
		return widthFamily(Xor8, width1)
	case OpLShift:
		return widthFamily(LShift8, width1)
	case OpRShift:
		return widthFamily(RShift8, width1)
	case OpLtU:
		return widthFamily(LtU8, width1)
	case OpLtS:
		return widthFamily(LtS8, width1)
	case OpGtU:
		return widthFamily(GtU8, width1)
	case OpGtS:
		return widthFamily(GtS8, width1)
	case OpEq:
		return widthFamily(Eq8, width1)
	case OpNot:
		return widthFamily(Not8, width1)

	case OpDup:
		return Dup, ImmNone, Immediate{}, nil
	case OpDrop:
		return Drop, ImmNone, Immediate{}, nil
	case OpSwap:
		return Swap, ImmNone, Immediate{}, nil

	case OpRoll:
		if immType == Imm8 && imm.U8 == 2 {
			// Peephole: roll 2 == swap. Byte-identical to encoding SWAP
			// directly (spec.md §8 "Peephole equivalence").
			return Swap, ImmNone, Immediate{}, nil
		}
		return Roll, Imm8, imm, nil

	case OpPick:
		if immType == Imm8 && imm.U8 == 1 {
			// Peephole: pick 1 == dup.
			return Dup, ImmNone, Immediate{}, nil
		}
		return Pick, Imm8, imm, nil

	case OpCall:
		return Call, ImmCodeRef, imm, nil

	case OpCJmp:
		if tok, ok := widthToToken4(CJmp8, width1); ok {
			return tok, ImmCodeRef, imm, nil
		}
		return Nop, ImmNone, Immediate{}, ErrUnsupportedInstruction

	case OpRet:
		return Ret, ImmNone, Immediate{}, nil
	case OpEnd:
		return End, ImmNone, Immediate{}, nil
	case OpCCall:
		return CCall, ImmCodeRef, imm, nil
	}

	return Nop, ImmNone, Immediate{}, ErrUnsupportedInstruction
}

// widthFamily resolves one of the sixteen width-parametric opcode families
// (ADD, SUB, ..., NOT) to its width-specific token. All of them carry no
// immediate: they operate purely on the expression stack.
func widthFamily(base Token, w Width) (Token, ImmType, Immediate, error) {
	tok, ok := widthToToken4(base, w)
	if !ok {
		return Nop, ImmNone, Immediate{}, ErrUnsupportedInstruction
	}
	return tok, ImmNone, Immediate{}, nil
}

type widthPair struct{ from, to Width }

var zeTable = map[widthPair]Token{
	{Width8, Width16}:  Ze8_16,
	{Width8, Width32}:  Ze8_32,
	{Width8, Width64}:  Ze8_64,
	{Width16, Width32}: Ze16_32,
	{Width16, Width64}: Ze16_64,
	{Width32, Width64}: Ze32_64,
}

var seTable = map[widthPair]Token{
	{Width8, Width16}:  Se8_16,
	{Width8, Width32}:  Se8_32,
	{Width8, Width64}:  Se8_64,
	{Width16, Width32}: Se16_32,
	{Width16, Width64}: Se16_64,
	{Width32, Width64}: Se32_64,
}

var truncTable = map[widthPair]Token{
	{Width16, Width8}:  Trunc16_8,
	{Width32, Width8}:  Trunc32_8,
	{Width32, Width16}: Trunc32_16,
	{Width64, Width8}:  Trunc64_8,
	{Width64, Width16}: Trunc64_16,
	{Width64, Width32}: Trunc64_32,
}

// coerceImmediate moves the input immediate's value (read out according to
// the caller's claimed immType) into the field matching toType, as
// PZI_LOAD_IMMEDIATE_NUM's SELECT_IMMEDIATE macro does in pz_run_generic.c.
func coerceImmediate(fromType ImmType, imm Immediate, toType ImmType) (ImmType, Immediate) {
	var v uint64
	switch fromType {
	case Imm8:
		v = uint64(imm.U8)
	case Imm16:
		v = uint64(imm.U16)
	case Imm32:
		v = uint64(imm.U32)
	case Imm64:
		v = imm.U64
	default:
		// Not reached from selectToken, which rejects any other immType
		// with ErrInvalidImmediateType before calling here.
		v = 0
	}

	switch toType {
	case Imm8:
		return Imm8, Immediate{U8: uint8(v)}
	case Imm16:
		return Imm16, Immediate{U16: uint16(v)}
	case Imm32:
		return Imm32, Immediate{U32: uint32(v)}
	case Imm64:
		return Imm64, Immediate{U64: v}
	default:
		return toType, Immediate{}
	}
}

// alignUp rounds offset up to the next multiple of align (align must be a
// power of two, or 1/0 for "no alignment needed").
func alignUp(offset, align int) int {
	if align <= 1 {
		return offset
	}
	return (offset + align - 1) &^ (align - 1)
}

// emit writes the token byte and its (already alignment-padded) immediate
// into buf at offset, or — when buf is nil — only advances offset. This is
// the single choke point both write mode and measure mode funnel through,
// so they cannot drift apart.
func emit(buf []byte, offset int, tok Token, immType ImmType, imm Immediate) int {
	if buf != nil {
		buf[offset] = byte(tok)
	}
	offset++

	if immType == ImmNone {
		return offset
	}

	size := immediateSize(immType)
	offset = alignUp(offset, size)

	if buf != nil {
		switch immType {
		case Imm8:
			buf[offset] = imm.U8
		case Imm16:
			putUint16(buf[offset:], imm.U16)
		case Imm32:
			putUint32(buf[offset:], imm.U32)
		case Imm64:
			putUint64(buf[offset:], imm.U64)
		case ImmDataRef, ImmCodeRef, ImmLabelRef:
			putUint64(buf[offset:], imm.Word)
		}
	}

	return offset + size
}
