package vm

/*
	Token is the closed, one-byte instruction alphabet the dispatch loop
	understands (spec.md §4.2). It is distinct from Opcode: the encoder
	accepts the wider, width-generic Opcode surface and narrows it down to
	exactly one Token per (opcode, width1, width2) combination.

	Width-parametric families (ADD, SUB, ..., NOT) get one token per width
	in {8, 16, 32, 64}; everything else is a single fixed token. ZE/SE/TRUNC
	additionally collapse to NOP whenever width1 == width2 (an identity
	conversion) — see encode.go.
*/
type Token byte

const (
	Nop Token = iota

	LoadImmediate8
	LoadImmediate16
	LoadImmediate32
	LoadImmediate64
	LoadImmediateData

	Ze8_16
	Ze8_32
	Ze8_64
	Ze16_32
	Ze16_64
	Ze32_64

	Se8_16
	Se8_32
	Se8_64
	Se16_32
	Se16_64
	Se32_64

	Trunc16_8
	Trunc32_8
	Trunc32_16
	Trunc64_8
	Trunc64_16
	Trunc64_32

	Add8
	Add16
	Add32
	Add64

	Sub8
	Sub16
	Sub32
	Sub64

	Mul8
	Mul16
	Mul32
	Mul64

	Div8
	Div16
	Div32
	Div64

	Mod8
	Mod16
	Mod32
	Mod64

	And8
	And16
	And32
	And64

	Or8
	Or16
	Or32
	Or64

	Xor8
	Xor16
	Xor32
	Xor64

	LShift8
	LShift16
	LShift32
	LShift64

	RShift8
	RShift16
	RShift32
	RShift64

	LtU8
	LtU16
	LtU32
	LtU64

	LtS8
	LtS16
	LtS32
	LtS64

	GtU8
	GtU16
	GtU32
	GtU64

	GtS8
	GtS16
	GtS32
	GtS64

	Eq8
	Eq16
	Eq32
	Eq64

	Not8
	Not16
	Not32
	Not64

	Dup
	Drop
	Swap
	Roll
	Pick

	Call

	CJmp8
	CJmp16
	CJmp32
	CJmp64

	Ret
	End
	CCall

	tokenCount // sentinel, not a real token
)

func (t Token) String() string {
	if s, ok := tokenNames[t]; ok {
		return s
	}
	return "?token?"
}

var tokenNames = map[Token]string{
	Nop:                "nop",
	LoadImmediate8:     "load_immediate_8",
	LoadImmediate16:    "load_immediate_16",
	LoadImmediate32:    "load_immediate_32",
	LoadImmediate64:    "load_immediate_64",
	LoadImmediateData:  "load_immediate_data",
	Ze8_16:             "ze_8_16",
	Ze8_32:             "ze_8_32",
	Ze8_64:             "ze_8_64",
	Ze16_32:            "ze_16_32",
	Ze16_64:            "ze_16_64",
	Ze32_64:            "ze_32_64",
	Se8_16:             "se_8_16",
	Se8_32:             "se_8_32",
	Se8_64:             "se_8_64",
	Se16_32:            "se_16_32",
	Se16_64:            "se_16_64",
	Se32_64:            "se_32_64",
	Trunc16_8:          "trunc_16_8",
	Trunc32_8:          "trunc_32_8",
	Trunc32_16:         "trunc_32_16",
	Trunc64_8:          "trunc_64_8",
	Trunc64_16:         "trunc_64_16",
	Trunc64_32:         "trunc_64_32",
	Add8:               "add_8",
	Add16:              "add_16",
	Add32:              "add_32",
	Add64:              "add_64",
	Sub8:               "sub_8",
	Sub16:              "sub_16",
	Sub32:              "sub_32",
	Sub64:              "sub_64",
	Mul8:               "mul_8",
	Mul16:              "mul_16",
	Mul32:              "mul_32",
	Mul64:              "mul_64",
	Div8:               "div_8",
	Div16:              "div_16",
	Div32:              "div_32",
	Div64:              "div_64",
	Mod8:               "mod_8",
	Mod16:              "mod_16",
	Mod32:              "mod_32",
	Mod64:              "mod_64",
	And8:               "and_8",
	And16:              "and_16",
	And32:              "and_32",
	And64:              "and_64",
	Or8:                "or_8",
	Or16:               "or_16",
	Or32:               "or_32",
	Or64:               "or_64",
	Xor8:               "xor_8",
	Xor16:              "xor_16",
	Xor32:              "xor_32",
	Xor64:              "xor_64",
	LShift8:            "lshift_8",
	LShift16:           "lshift_16",
	LShift32:           "lshift_32",
	LShift64:           "lshift_64",
	RShift8:            "rshift_8",
	RShift16:           "rshift_16",
	RShift32:           "rshift_32",
	RShift64:           "rshift_64",
	LtU8:               "lt_u_8",
	LtU16:              "lt_u_16",
	LtU32:              "lt_u_32",
	LtU64:              "lt_u_64",
	LtS8:               "lt_s_8",
	LtS16:              "lt_s_16",
	LtS32:              "lt_s_32",
	LtS64:              "lt_s_64",
	GtU8:               "gt_u_8",
	GtU16:              "gt_u_16",
	GtU32:              "gt_u_32",
	GtU64:              "gt_u_64",
	GtS8:               "gt_s_8",
	GtS16:              "gt_s_16",
	GtS32:              "gt_s_32",
	GtS64:              "gt_s_64",
	Eq8:                "eq_8",
	Eq16:               "eq_16",
	Eq32:               "eq_32",
	Eq64:               "eq_64",
	Not8:               "not_8",
	Not16:              "not_16",
	Not32:              "not_32",
	Not64:              "not_64",
	Dup:                "dup",
	Drop:               "drop",
	Swap:               "swap",
	Roll:               "roll",
	Pick:               "pick",
	Call:               "call",
	CJmp8:              "cjmp_8",
	CJmp16:             "cjmp_16",
	CJmp32:             "cjmp_32",
	CJmp64:             "cjmp_64",
	Ret:                "ret",
	End:                "end",
	CCall:              "ccall",
}

// widthToToken4 maps a width to one of four same-shaped tokens laid out
// contiguously (..._8, ..._16, ..._32, ..._64), used by the encoder's
// width-parametric opcode families to avoid one map entry per width.
func widthToToken4(base Token, w Width) (Token, bool) {
	switch w {
	case Width8:
		return base, true
	case Width16:
		return base + 1, true
	case Width32:
		return base + 2, true
	case Width64:
		return base + 3, true
	default:
		return Nop, false
	}
}
