package vm

import "io"

// ExpressionStackSize and ReturnStackSize are the two fixed-size stacks
// spec.md §3 describes. Neither grows; exceeding either is an
// interpreter fatal error, never a silently-truncated operation.
const (
	ExpressionStackSize = 1024
	ReturnStackSize     = 1024
)

// Interpreter holds everything pz_run's locals hold in
// original_source/runtime/pz_run_generic.c: the expression stack and its
// pointer, the return stack and its pointer, the instruction pointer,
// and the code segment bytes it reads tokens and immediates out of. The
// foreign-call table and allocator registry round out what a CCALL needs
// that the original reached for through file-scope globals.
type Interpreter struct {
	estack [ExpressionStackSize]Cell
	esp    int

	rstack [ReturnStackSize]uint64
	rsp    int

	ip   uint64
	code []byte

	cfuncs CFuncTable
	alloc  *allocRegistry
	stdout io.Writer

	exitCode int32
}

// newInterpreter builds an Interpreter over prog, appending a one-token
// synthesized END-only "wrapper procedure" after the real code segment
// and seeding return_stack[0] with its offset. This is exactly
// pz_run_generic.c's bootstrap: the entry procedure is entered directly
// (not via CALL), so its eventual RET has nowhere to return to except
// this wrapper, whose own END is what actually terminates the loop
// (spec.md §6 "Execution ... always bottoms out via a synthesized
// one-token END-only wrapper procedure").
//
// estack[0] is a permanent zero sentinel, not a user-visible slot: esp
// starts at 1 and the first pushed value lands at index 1, matching
// pz_run_generic.c's expr_stack[0], which is what a RET with nothing
// else pushed ultimately falls through to reading (pz_run_generic.c:551
// "retcode = expr_stack[esp].s32" at esp == 0).
func newInterpreter(prog *Program, stdout io.Writer) *Interpreter {
	it := &Interpreter{
		cfuncs: prog.CFuncs,
		alloc:  newAllocRegistry(),
		stdout: stdout,
	}
	wrapperOffset := uint64(len(prog.Code))
	it.code = append(append([]byte{}, prog.Code...), byte(End))
	it.rstack[0] = wrapperOffset
	it.rsp = 1
	it.esp = 1
	it.ip = prog.EntryOffset()
	return it
}

func (it *Interpreter) push(c Cell) {
	if it.esp >= ExpressionStackSize {
		panic(ErrExpressionStackOverflow)
	}
	it.estack[it.esp] = c
	it.esp++
}

// pop removes and returns the top real value. esp == 1 means only the
// index-0 sentinel remains, which pop refuses to consume.
func (it *Interpreter) pop() Cell {
	if it.esp <= 1 {
		panic(ErrExpressionStackUnderflow)
	}
	it.esp--
	return it.estack[it.esp]
}

// peek returns the top real value without removing it. Like pop, it
// refuses to read the index-0 sentinel as if it were a user value.
func (it *Interpreter) peek() *Cell {
	if it.esp <= 1 {
		panic(ErrExpressionStackUnderflow)
	}
	return &it.estack[it.esp-1]
}

func (it *Interpreter) pushReturn(addr uint64) {
	if it.rsp >= ReturnStackSize {
		panic(ErrReturnStackOverflow)
	}
	it.rstack[it.rsp] = addr
	it.rsp++
}

func (it *Interpreter) popReturn() uint64 {
	if it.rsp <= 0 {
		panic(ErrReturnStackUnderflow)
	}
	it.rsp--
	return it.rstack[it.rsp]
}

// readImmediateWord reads a host-word (8-byte) immediate starting at the
// alignment-padded position following pos, returning the value and the
// offset just past it. This is the dispatch-side mirror of encode.go's emit: the
// same alignUp call, applied to reading instead of writing, is what
// keeps the loop's pointer advancement equal to the encoder's
// measure-mode offset for every token (spec.md §1's central invariant).
func (it *Interpreter) readImmediateWord(pos uint64) (uint64, uint64) {
	pos = uint64(alignUp(int(pos), HostWordSize))
	if pos+HostWordSize > uint64(len(it.code)) {
		panic(ErrCodeOutOfRange)
	}
	return getUint64(it.code[pos:]), pos + HostWordSize
}

// run executes tokens until an END token sets exitCode, or a fatal
// condition panics with a *FatalError for Run's recover to catch.
func (it *Interpreter) run() {
	for {
		if it.ip >= uint64(len(it.code)) {
			panic(ErrCodeOutOfRange)
		}
		tok := Token(it.code[it.ip])
		pos := it.ip + 1

		switch {
		case tok == Nop:
			it.ip = pos

		case tok == LoadImmediate8:
			if pos >= uint64(len(it.code)) {
				panic(ErrCodeOutOfRange)
			}
			var c Cell
			c.SetUint8(it.code[pos])
			it.push(c)
			it.ip = pos + 1

		case tok == LoadImmediate16:
			p := uint64(alignUp(int(pos), 2))
			if p+2 > uint64(len(it.code)) {
				panic(ErrCodeOutOfRange)
			}
			var c Cell
			c.SetUint16(getUint16(it.code[p:]))
			it.push(c)
			it.ip = p + 2

		case tok == LoadImmediate32:
			p := uint64(alignUp(int(pos), 4))
			if p+4 > uint64(len(it.code)) {
				panic(ErrCodeOutOfRange)
			}
			var c Cell
			c.SetUint32(getUint32(it.code[p:]))
			it.push(c)
			it.ip = p + 4

		case tok == LoadImmediate64:
			v, next := it.readImmediateWord(pos)
			var c Cell
			c.SetUint64(v)
			it.push(c)
			it.ip = next

		case tok == LoadImmediateData:
			v, next := it.readImmediateWord(pos)
			var c Cell
			c.SetUint64(v)
			it.push(c)
			it.ip = next

		case isZE(tok):
			it.execZE(tok)
			it.ip = pos
		case isSE(tok):
			it.execSE(tok)
			it.ip = pos
		case isTrunc(tok):
			it.execTrunc(tok)
			it.ip = pos

		case tokenWidthFamily(tok, Add8) >= 0:
			it.execArith(tok, Add8)
			it.ip = pos
		case tokenWidthFamily(tok, Sub8) >= 0:
			it.execArith(tok, Sub8)
			it.ip = pos
		case tokenWidthFamily(tok, Mul8) >= 0:
			it.execArith(tok, Mul8)
			it.ip = pos
		case tokenWidthFamily(tok, Div8) >= 0:
			it.execArith(tok, Div8)
			it.ip = pos
		case tokenWidthFamily(tok, Mod8) >= 0:
			it.execArith(tok, Mod8)
			it.ip = pos
		case tokenWidthFamily(tok, And8) >= 0:
			it.execBitwise(tok, And8)
			it.ip = pos
		case tokenWidthFamily(tok, Or8) >= 0:
			it.execBitwise(tok, Or8)
			it.ip = pos
		case tokenWidthFamily(tok, Xor8) >= 0:
			it.execBitwise(tok, Xor8)
			it.ip = pos
		case tokenWidthFamily(tok, LShift8) >= 0:
			it.execShift(tok, LShift8)
			it.ip = pos
		case tokenWidthFamily(tok, RShift8) >= 0:
			it.execShift(tok, RShift8)
			it.ip = pos
		case tokenWidthFamily(tok, LtU8) >= 0:
			it.execCompare(tok, LtU8)
			it.ip = pos
		case tokenWidthFamily(tok, LtS8) >= 0:
			it.execCompare(tok, LtS8)
			it.ip = pos
		case tokenWidthFamily(tok, GtU8) >= 0:
			it.execCompare(tok, GtU8)
			it.ip = pos
		case tokenWidthFamily(tok, GtS8) >= 0:
			it.execCompare(tok, GtS8)
			it.ip = pos
		case tokenWidthFamily(tok, Eq8) >= 0:
			it.execCompare(tok, Eq8)
			it.ip = pos
		case tokenWidthFamily(tok, Not8) >= 0:
			it.execNot(tok)
			it.ip = pos

		case tok == Dup:
			top := *it.peek()
			it.push(top)
			it.ip = pos
		case tok == Drop:
			it.pop()
			it.ip = pos
		case tok == Swap:
			it.execRoll(2)
			it.ip = pos

		case tok == Roll:
			if pos >= uint64(len(it.code)) {
				panic(ErrCodeOutOfRange)
			}
			depth := it.code[pos]
			if depth == 0 {
				panic(ErrIllegalRollDepth)
			}
			it.execRoll(int(depth))
			it.ip = pos + 1

		case tok == Pick:
			if pos >= uint64(len(it.code)) {
				panic(ErrCodeOutOfRange)
			}
			depth := it.code[pos]
			it.execPick(int(depth))
			it.ip = pos + 1

		case tok == Call:
			target, next := it.readImmediateWord(pos)
			it.pushReturn(next)
			it.ip = target

		case tokenWidthFamily(tok, CJmp8) >= 0:
			target, next := it.readImmediateWord(pos)
			w := widthForFamilyIndex(tokenWidthFamily(tok, CJmp8))
			cond := it.pop()
			if cond.ReadWidth(w) != 0 {
				it.ip = target
			} else {
				it.ip = next
			}

		case tok == Ret:
			it.ip = it.popReturn()

		case tok == End:
			// Read estack[esp-1] directly rather than through peek: an
			// entry procedure that RETs with nothing pushed leaves
			// esp == 1, and the wrapper's END must still read the
			// index-0 sentinel (zero) as the exit code in that case,
			// not fail with an underflow.
			it.exitCode = it.estack[it.esp-1].Int32()
			return

		case tok == CCall:
			idx, next := it.readImmediateWord(pos)
			if idx >= uint64(len(it.cfuncs)) {
				panic(ErrCCallIndexOutOfRange)
			}
			if err := it.cfuncs[idx](it); err != nil {
				panic(fatalf("pzvm: ccall %d: %v", idx, err))
			}
			it.ip = next

		default:
			panic(fatalf("pzvm: unknown token %v at offset %d", tok, it.ip))
		}
	}
}

// Run executes prog to completion and returns its exit code. A fatal
// interpreter error (spec.md §7 class 2) is recovered here and returned
// as err rather than propagated as a panic, mirroring the teacher's
// getDefaultRecoverFuncForVM boundary in vm/run.go.
func Run(prog *Program, stdout io.Writer) (exitCode int32, err error) {
	defer func() {
		if r := recover(); r != nil {
			if fe, ok := r.(*FatalError); ok {
				err = fe
				return
			}
			panic(r)
		}
	}()

	it := newInterpreter(prog, stdout)
	it.run()
	return it.exitCode, nil
}

// execRoll rotates the top `depth` cells: the deepest cell in that
// window moves to the top, and every cell above it shifts down by one.
// depth == 2 is exactly a two-element swap, which is why ROLL 2 and
// SWAP are byte-identical at the encoder level.
func (it *Interpreter) execRoll(depth int) {
	if depth <= 0 {
		panic(ErrIllegalRollDepth)
	}
	if it.esp <= depth {
		panic(ErrExpressionStackUnderflow)
	}
	base := it.esp - depth
	deepest := it.estack[base]
	copy(it.estack[base:it.esp-1], it.estack[base+1:it.esp])
	it.estack[it.esp-1] = deepest
}

// execPick duplicates the cell `depth` positions from the top (1 ==
// the current top) onto the top of the stack, without removing it.
// depth == 1 is exactly DUP, which is why PICK 1 and DUP are
// byte-identical at the encoder level.
func (it *Interpreter) execPick(depth int) {
	if depth <= 0 || it.esp <= depth {
		panic(ErrExpressionStackUnderflow)
	}
	it.push(it.estack[it.esp-depth])
}

func isZE(t Token) bool    { return t >= Ze8_16 && t <= Ze32_64 }
func isSE(t Token) bool    { return t >= Se8_16 && t <= Se32_64 }
func isTrunc(t Token) bool { return t >= Trunc16_8 && t <= Trunc64_32 }

// tokenWidthFamily returns the width-family index (0..3 for 8/16/32/64)
// of tok within the four-token family starting at base, or -1 if tok is
// not in that family. Families are laid out contiguously in token.go.
func tokenWidthFamily(tok, base Token) int {
	if tok < base || tok > base+3 {
		return -1
	}
	return int(tok - base)
}

func widthForFamilyIndex(i int) Width {
	switch i {
	case 0:
		return Width8
	case 1:
		return Width16
	case 2:
		return Width32
	default:
		return Width64
	}
}
