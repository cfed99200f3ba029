package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"

	"pzvm/vm"
)

// main is the PZ VM's command-line harness: pick one of the built-in
// demo procedures, link it against the default foreign-call table, run
// it to completion, and report its exit code. There is no bytecode
// loader or text assembler here — spec.md §1 scopes both out — so
// "loading a program" means building one in-process with vm.Builder,
// the same role the teacher's flag-driven main() plays for its own
// fixed-width instruction format.
func main() {
	demoName := flag.String("demo", "arithmetic", "which built-in demo procedure to run: "+demoNames())
	debug := flag.Bool("debug", false, "print the linked procedure's size before running")
	flag.Parse()

	prog, err := buildDemo(*demoName)
	if err != nil {
		fmt.Fprintf(os.Stderr, "pzvm: %v\n", err)
		os.Exit(1)
	}

	if *debug {
		fmt.Fprintf(os.Stderr, "pzvm: linked %d bytes, entry %q\n", len(prog.Code), prog.EntryProc)
	}

	out := bufio.NewWriter(os.Stdout)
	defer out.Flush()

	exitCode, err := vm.Run(prog, out)
	if err != nil {
		out.Flush()
		fmt.Fprintf(os.Stderr, "pzvm: %v\n", err)
		os.Exit(1)
	}

	out.Flush()
	os.Exit(int(exitCode))
}

func demoNames() string {
	names := make([]string, 0, len(demos))
	for name := range demos {
		names = append(names, name)
	}
	return fmt.Sprint(names)
}

func buildDemo(name string) (*vm.Program, error) {
	build, ok := demos[name]
	if !ok {
		return nil, fmt.Errorf("unknown demo %q", name)
	}
	return build()
}

var demos = map[string]func() (*vm.Program, error){
	"exit-literal":  demoExitLiteral,
	"arithmetic":    demoArithmetic,
	"branch":        demoBranch,
	"call-return":   demoCallReturn,
	"roll":          demoRoll,
	"foreign-call":  demoForeignCall,
}

// demoExitLiteral pushes a literal and exits with it: spec.md §8's
// simplest end-to-end scenario.
func demoExitLiteral() (*vm.Program, error) {
	b := vm.NewBuilder()
	b.LoadImmediate32(7)
	b.End()
	return vm.Link("main", vm.DefaultCFuncTable(), vm.NamedProcedure{Name: "main", Code: b.Bytes()})
}

// demoArithmetic computes (3 + 4) * 2 and exits with the result.
func demoArithmetic() (*vm.Program, error) {
	b := vm.NewBuilder()
	b.LoadImmediate32(3)
	b.LoadImmediate32(4)
	b.Add(vm.Width32)
	b.LoadImmediate32(2)
	b.Mul(vm.Width32)
	b.End()
	return vm.Link("main", vm.DefaultCFuncTable(), vm.NamedProcedure{Name: "main", Code: b.Bytes()})
}

// demoBranch exits 1 if 10 < 20, else 0 — exercising LT_S and a
// conditional jump over the "wrong" literal.
func demoBranch() (*vm.Program, error) {
	b := vm.NewBuilder()
	b.LoadImmediate32(10)
	b.LoadImmediate32(20)
	b.LtS(vm.Width32)
	jmp := b.CJmp(vm.Width32, 0) // patched below
	b.LoadImmediate32(0)
	b.End()
	target := uint64(b.Len())
	b.PatchWord(jmp, target)
	b.LoadImmediate32(1)
	b.End()
	return vm.Link("main", vm.DefaultCFuncTable(), vm.NamedProcedure{Name: "main", Code: b.Bytes()})
}

// demoCallReturn calls a helper procedure that doubles its caller's
// pushed literal, then exits with the doubled value.
func demoCallReturn() (*vm.Program, error) {
	double := vm.NewBuilder()
	double.LoadImmediate32(2)
	double.Mul(vm.Width32)
	double.Ret()

	mainB := vm.NewBuilder()
	mainB.LoadImmediate32(21)
	callPos := mainB.Call(0) // patched below
	mainB.End()

	prog, err := vm.Link("main", vm.DefaultCFuncTable(),
		vm.NamedProcedure{Name: "main", Code: mainB.Bytes()},
		vm.NamedProcedure{Name: "double", Code: double.Bytes()},
	)
	if err != nil {
		return nil, err
	}
	target, _ := prog.Offset("double")
	mainOffset, _ := prog.Offset("main")
	vm.PatchCodeWord(prog.Code, int(mainOffset)+callPos, target)
	return prog, nil
}

// demoRoll exercises ROLL 3 (a non-peephole roll depth): pushes 1, 2, 3,
// rolls the top three, and exits with whichever value the roll brought
// to the top (expected: the original 1).
func demoRoll() (*vm.Program, error) {
	b := vm.NewBuilder()
	b.LoadImmediate32(1)
	b.LoadImmediate32(2)
	b.LoadImmediate32(3)
	b.Roll(3)
	b.End()
	return vm.Link("main", vm.DefaultCFuncTable(), vm.NamedProcedure{Name: "main", Code: b.Bytes()})
}

// demoForeignCall converts 42 to a string, prints it, frees the buffer,
// and exits 0 — the foreign-call round trip spec.md §8 calls out.
func demoForeignCall() (*vm.Program, error) {
	b := vm.NewBuilder()
	b.LoadImmediate32(42)
	b.CCall(vm.CFuncIntToString)
	b.Dup()
	b.CCall(vm.CFuncPrint)
	b.CCall(vm.CFuncFree)
	b.LoadImmediate32(0)
	b.End()
	return vm.Link("main", vm.DefaultCFuncTable(), vm.NamedProcedure{Name: "main", Code: b.Bytes()})
}
