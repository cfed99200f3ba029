package vm

import "unsafe"

// allocRegistry tracks the host-heap buffers the foreign procedures hand
// out as Cell pointers. spec.md §5 scopes a garbage collector out and
// says the VM never implicitly frees anything — foreign code is the only
// thing that allocates or frees, in pairs, by contract. original_source's
// pz_code.c shows the same manual-ownership shape for procedure buffers
// (pz_proc_init/pz_proc_free); allocRegistry generalizes that pattern to
// the int_to_string/concat_string/free trio so a double-free or a free of
// a pointer the VM never allocated is caught rather than corrupting the
// host heap silently.
type allocRegistry struct {
	live map[unsafe.Pointer][]byte
}

func newAllocRegistry() *allocRegistry {
	return &allocRegistry{live: make(map[unsafe.Pointer][]byte)}
}

// alloc reserves an n-byte buffer and returns a pointer keyed into the
// registry. The backing slice is retained by the map entry so the Go
// garbage collector can't reclaim it out from under an unsafe.Pointer
// derived from it. The backing array is always at least one byte (even
// for n == 0) so &backing[0] is always valid; the map entry is still
// sliced down to the requested length n.
func (r *allocRegistry) alloc(n int) unsafe.Pointer {
	size := n
	if size == 0 {
		size = 1
	}
	backing := make([]byte, size)
	p := unsafe.Pointer(&backing[0])
	r.live[p] = backing[:n]
	return p
}

// free releases a pointer previously returned by alloc. Freeing a
// pointer the registry does not recognize (double-free, or a pointer
// that was never allocated by a foreign procedure) is an interpreter
// fatal error, not a silently-ignored no-op, matching the spec's
// classification of such calls as programming errors in the embedding
// program rather than well-defined runtime outcomes.
func (r *allocRegistry) free(p unsafe.Pointer) {
	if _, ok := r.live[p]; !ok {
		panic(fatalf("pzvm: free of unknown or already-freed pointer"))
	}
	delete(r.live, p)
}

// bytesAt returns the live buffer a pointer refers to, or nil if the
// pointer is not one the registry owns (used by foreign procedures that
// only read through a pointer, such as print, rather than free it).
func (r *allocRegistry) bytesAt(p unsafe.Pointer) []byte {
	return r.live[p]
}
