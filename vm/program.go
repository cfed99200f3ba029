package vm

// NamedProcedure pairs a Builder's output with the name a Program links
// it under. Procedure.md §4 treats a procedure as nothing more than a
// code pointer and a size (see original_source/runtime/pz_code.c's
// PZ_Proc_Struct); NamedProcedure is that same pair before linking has
// turned "pointer" into "offset into one shared segment".
type NamedProcedure struct {
	Name string
	Code []byte
}

// Proc names a procedure by the CodeRef offset its first instruction
// starts at within a linked Program's CodeSegment, plus its length. It
// is the linked-and-addressable form of NamedProcedure.
type Proc struct {
	Name   string
	Offset uint64
	Size   uint64
}

// Program is a fully linked, ready-to-run unit: one contiguous
// CodeSegment all CodeRef immediates are byte offsets into, a resolved
// entry point, and the foreign-call table CCALL indexes into. spec.md
// §1 leaves "how procedures and data end up addressable" to the
// embedder; this build's resolution (documented in DESIGN.md) is to
// concatenate every procedure's bytes into one []byte and let CodeRef
// be a uint64 offset into it, rather than reproducing the original's
// raw C pointers.
type Program struct {
	Code       []byte
	Procs      []Proc
	EntryProc  string
	CFuncs     CFuncTable
}

// Link concatenates a set of named procedure buffers into one
// CodeSegment, recording each procedure's offset and size. Each procedure
// starts at a multiple of HostWordSize (the gap is filled with NOP bytes),
// so immediates aligned relative to the procedure's own buffer stay
// aligned in the segment. entryName must name one of procs; it becomes
// Program.EntryProc. Link does not resolve forward references between
// procedures — callers wire cross-procedure CALL/CJMP targets themselves,
// with PatchCodeWord on the linked Code once Offset reports the callee's
// position.
func Link(entryName string, cfuncs CFuncTable, procs ...NamedProcedure) (*Program, error) {
	prog := &Program{CFuncs: cfuncs, EntryProc: entryName}

	found := false
	for _, p := range procs {
		for len(prog.Code)%HostWordSize != 0 {
			prog.Code = append(prog.Code, byte(Nop))
		}
		offset := uint64(len(prog.Code))
		prog.Code = append(prog.Code, p.Code...)
		prog.Procs = append(prog.Procs, Proc{Name: p.Name, Offset: offset, Size: uint64(len(p.Code))})
		if p.Name == entryName {
			found = true
		}
	}
	if !found {
		return nil, ErrNoEntryProcedure
	}
	return prog, nil
}

// Offset returns the CodeSegment offset of the named procedure's first
// instruction, and whether that name was linked into this Program.
func (p *Program) Offset(name string) (uint64, bool) {
	for _, proc := range p.Procs {
		if proc.Name == name {
			return proc.Offset, true
		}
	}
	return 0, false
}

// EntryOffset resolves Program.EntryProc. It panics with a *FatalError
// if the program was somehow constructed without Link validating it
// (Run treats this as the "no entry procedure" fatal condition, spec.md
// §6).
func (p *Program) EntryOffset() uint64 {
	off, ok := p.Offset(p.EntryProc)
	if !ok {
		panic(ErrNoEntryProcedure)
	}
	return off
}
