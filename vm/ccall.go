package vm

import "strconv"

// CFunc is a foreign procedure reachable through CCALL. It receives the
// running Interpreter and manipulates the expression stack directly, the
// same contract pz_run_generic.c's builtin_*_func family has with the
// PZ's stack: pop your own arguments, push your own result, and leave
// esp pointing at whatever you pushed last.
type CFunc func(it *Interpreter) error

// CFuncTable is the fixed, indexed set of foreign procedures a Program
// can CCALL into (spec.md §9 "CCALL targets may be resolved as indices
// into a linked symbol table of host function pointers" — this build
// picks the table-of-indices option over raw function pointers, since a
// Go []CFunc is both simpler and just as fast as an unsafe function
// pointer cast would be).
type CFuncTable []CFunc

// Index constants for the four built-in foreign procedures spec.md §6
// names. A caller wiring its own Program is free to append more after
// these, or build an entirely different table; nothing in the dispatch
// loop is hardcoded to these positions.
const (
	CFuncPrint = iota
	CFuncIntToString
	CFuncFree
	CFuncConcatString
)

// DefaultCFuncTable returns the four builtin foreign procedures in the
// order CFuncPrint..CFuncConcatString, backed by it.alloc for the two
// that allocate.
func DefaultCFuncTable() CFuncTable {
	return CFuncTable{
		CFuncPrint:        builtinPrint,
		CFuncIntToString:  builtinIntToString,
		CFuncFree:         builtinFree,
		CFuncConcatString: builtinConcatString,
	}
}

// builtinPrint pops a host pointer to a NUL-terminated string and writes
// it to the interpreter's stdout, mirroring builtin_print_func.
func builtinPrint(it *Interpreter) error {
	p := it.pop().Ptr()
	buf := it.alloc.bytesAt(p)
	if buf == nil {
		panic(fatalf("pzvm: print: pointer not owned by this VM's allocator"))
	}
	n := indexNUL(buf)
	_, err := it.stdout.Write(buf[:n])
	return err
}

// builtinIntToString pops a signed 32-bit value and pushes a pointer to
// a freshly-allocated, NUL-terminated decimal ASCII rendering of it,
// like builtin_int_to_string_func. The buffer is sized to the rendered
// text plus the NUL (at most 12 bytes for an int32: sign, 10 digits, NUL).
// The caller owns the returned buffer and must eventually CCALL free on
// it.
func builtinIntToString(it *Interpreter) error {
	v := it.pop().Int32()
	s := strconv.FormatInt(int64(v), 10)

	p := it.alloc.alloc(len(s) + 1)
	buf := it.alloc.bytesAt(p)
	copy(buf, s)
	buf[len(s)] = 0

	var c Cell
	c.SetPtr(p)
	it.push(c)
	return nil
}

// builtinFree pops a host pointer and releases it, matching
// builtin_free_func. Freeing a pointer the allocator does not recognize
// is a fatal error (see allocRegistry.free).
func builtinFree(it *Interpreter) error {
	p := it.pop().Ptr()
	it.alloc.free(p)
	return nil
}

// builtinConcatString pops s2 then s1 (both host pointers to
// NUL-terminated strings) and pushes a pointer to a freshly-allocated
// buffer holding s1's bytes followed by s2's bytes and a NUL terminator,
// matching builtin_concat_string_func's pop order.
func builtinConcatString(it *Interpreter) error {
	p2 := it.pop().Ptr()
	p1 := it.pop().Ptr()

	b2 := it.alloc.bytesAt(p2)
	b1 := it.alloc.bytesAt(p1)
	if b1 == nil || b2 == nil {
		panic(fatalf("pzvm: concat_string: pointer not owned by this VM's allocator"))
	}
	n1 := indexNUL(b1)
	n2 := indexNUL(b2)

	out := it.alloc.alloc(n1 + n2 + 1)
	buf := it.alloc.bytesAt(out)
	copy(buf, b1[:n1])
	copy(buf[n1:], b2[:n2])
	buf[n1+n2] = 0

	var c Cell
	c.SetPtr(out)
	it.push(c)
	return nil
}

// indexNUL returns the offset of the first NUL byte in buf, or len(buf)
// if there is none.
func indexNUL(buf []byte) int {
	for i, b := range buf {
		if b == 0 {
			return i
		}
	}
	return len(buf)
}
