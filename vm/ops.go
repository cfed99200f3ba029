package vm

// This file implements the body of every width-parametric token family
// the dispatch loop in dispatch.go switches on: arithmetic, bitwise,
// shift, comparison, unary not, and the three width-conversion families.
// Each operates directly on Interpreter's expression stack, mirroring
// the PZ_RUN_ARITHMETIC/PZ_RUN_ARITHMETIC1/PZ_RUN_SHIFT macros in
// original_source/runtime/pz_run_generic.c, generalized from C macro
// expansion to a Go switch over Width.

// execArith handles ADD/SUB/MUL/DIV/MOD, which spec.md §4.2 specifies as
// signed arithmetic (the original runtime's integer cells don't
// distinguish signedness at rest; only the operation does).
func (it *Interpreter) execArith(tok, base Token) {
	w := widthForFamilyIndex(tokenWidthFamily(tok, base))
	b := it.pop()
	a := it.pop()

	var result int64
	switch base {
	case Add8:
		result = signedOf(a, w) + signedOf(b, w)
	case Sub8:
		result = signedOf(a, w) - signedOf(b, w)
	case Mul8:
		result = signedOf(a, w) * signedOf(b, w)
	case Div8:
		bv := signedOf(b, w)
		if bv == 0 {
			panic(fatalf("pzvm: division by zero"))
		}
		result = signedOf(a, w) / bv
	case Mod8:
		bv := signedOf(b, w)
		if bv == 0 {
			panic(fatalf("pzvm: modulo by zero"))
		}
		result = signedOf(a, w) % bv
	}

	var c Cell
	c.WriteWidth(w, uint64(result))
	it.push(c)
}

// execBitwise handles AND/OR/XOR, treated as raw-bits operations on the
// zero-extended width-w representation.
func (it *Interpreter) execBitwise(tok, base Token) {
	w := widthForFamilyIndex(tokenWidthFamily(tok, base))
	b := it.pop()
	a := it.pop()

	var result uint64
	switch base {
	case And8:
		result = a.ReadWidth(w) & b.ReadWidth(w)
	case Or8:
		result = a.ReadWidth(w) | b.ReadWidth(w)
	case Xor8:
		result = a.ReadWidth(w) ^ b.ReadWidth(w)
	}

	var c Cell
	c.WriteWidth(w, result)
	it.push(c)
}

// execShift handles LSHIFT/RSHIFT. The shift amount is always a u8 cell
// (spec.md §4.2's "RHS always u8"); a count at or beyond the LHS width is
// masked modulo that width rather than treated as an error (spec.md §9).
// RSHIFT is a logical (unsigned) shift, matching the token set's single
// RSHIFT_w family with no separate signed variant.
func (it *Interpreter) execShift(tok, base Token) {
	w := widthForFamilyIndex(tokenWidthFamily(tok, base))
	amount := it.pop().Uint8()
	value := it.pop()

	bits := uint(widthBits(w))
	shift := uint(amount) % bits

	var result uint64
	switch base {
	case LShift8:
		result = value.ReadWidth(w) << shift
	case RShift8:
		result = value.ReadWidth(w) >> shift
	}

	var c Cell
	c.WriteWidth(w, result)
	it.push(c)
}

// execCompare handles LT_U/LT_S/GT_U/GT_S/EQ, pushing a 0/1 result cell
// at the same width as the operands so it can feed directly into a
// matching CJMP_w.
func (it *Interpreter) execCompare(tok, base Token) {
	w := widthForFamilyIndex(tokenWidthFamily(tok, base))
	b := it.pop()
	a := it.pop()

	var truth bool
	switch base {
	case LtU8:
		truth = a.ReadWidth(w) < b.ReadWidth(w)
	case LtS8:
		truth = signedOf(a, w) < signedOf(b, w)
	case GtU8:
		truth = a.ReadWidth(w) > b.ReadWidth(w)
	case GtS8:
		truth = signedOf(a, w) > signedOf(b, w)
	case Eq8:
		truth = a.ReadWidth(w) == b.ReadWidth(w)
	}

	var c Cell
	if truth {
		c.WriteWidth(w, 1)
	} else {
		c.WriteWidth(w, 0)
	}
	it.push(c)
}

// execNot handles logical negation: zero maps to 1, anything else maps
// to 0 (original_source/runtime/pz_run_generic.c:433's PZT_NOT uses C's
// `!` operator, not bitwise complement).
func (it *Interpreter) execNot(tok Token) {
	w := widthForFamilyIndex(tokenWidthFamily(tok, Not8))
	a := it.pop()
	var c Cell
	if a.ReadWidth(w) == 0 {
		c.WriteWidth(w, 1)
	} else {
		c.WriteWidth(w, 0)
	}
	it.push(c)
}

// execZE zero-extends the top cell from the token's source width to its
// destination width in place.
func (it *Interpreter) execZE(tok Token) {
	wp := zeWidths[tok]
	a := it.pop()
	var c Cell
	c.WriteWidth(wp.to, a.ReadWidth(wp.from))
	it.push(c)
}

// execSE sign-extends the top cell from the token's source width to its
// destination width in place.
func (it *Interpreter) execSE(tok Token) {
	wp := seWidths[tok]
	a := it.pop()
	var c Cell
	c.WriteWidth(wp.to, uint64(signedOf(a, wp.from)))
	it.push(c)
}

// execTrunc truncates the top cell from the token's source width down
// to its destination width, discarding the high bits.
func (it *Interpreter) execTrunc(tok Token) {
	wp := truncWidths[tok]
	a := it.pop()
	var c Cell
	c.WriteWidth(wp.to, a.ReadWidth(wp.from)&widthMask(wp.to))
	it.push(c)
}

// zeWidths/seWidths/truncWidths invert encode.go's zeTable/seTable/
// truncTable so the dispatch loop can recover (from, to) from a token
// without re-deriving it from an opcode.
var zeWidths = invertWidthTable(zeTable)
var seWidths = invertWidthTable(seTable)
var truncWidths = invertWidthTable(truncTable)

func invertWidthTable(table map[widthPair]Token) map[Token]widthPair {
	out := make(map[Token]widthPair, len(table))
	for wp, tok := range table {
		out[tok] = wp
	}
	return out
}

// signedOf reads a cell's value at width w and sign-extends it into an
// int64, for use by the signed arithmetic and comparison families.
func signedOf(c Cell, w Width) int64 {
	switch w {
	case Width8:
		return int64(c.Int8())
	case Width16:
		return int64(c.Int16())
	case Width32:
		return int64(c.Int32())
	case Width64:
		return c.Int64()
	default:
		panic(fatalf("signedOf: unsupported width %v", w))
	}
}

func widthBits(w Width) int {
	switch w {
	case Width8:
		return 8
	case Width16:
		return 16
	case Width32:
		return 32
	case Width64:
		return 64
	default:
		panic(fatalf("widthBits: unsupported width %v", w))
	}
}

func widthMask(w Width) uint64 {
	bits := widthBits(w)
	if bits >= 64 {
		return ^uint64(0)
	}
	return (uint64(1) << uint(bits)) - 1
}
