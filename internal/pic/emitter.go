package pic

// Emitter accumulates thunks and materializes their bytes once a base
// address is chosen, threading the running address through each thunk in
// turn the way spec.md §4.2 requires.
type Emitter struct {
	thunks []Thunkable
}

// Add appends a thunk to the end of the emitter's sequence.
func (e *Emitter) Add(t Thunkable) {
	e.thunks = append(e.thunks, t)
}

// Len returns the total size of the bytes Emit would produce.
func (e *Emitter) Len() int {
	n := 0
	for _, t := range e.thunks {
		n += t.Len()
	}
	return n
}

// Emit concatenates every thunk's generated bytes, each computed against the
// cumulative offset of its predecessors from base.
func (e *Emitter) Emit(base uintptr) []byte {
	out := make([]byte, 0, e.Len())
	cur := base
	for _, t := range e.thunks {
		code := t.Generate(cur)
		if len(code) != t.Len() {
			panic("pic: thunk generated a length different from its declared Len()")
		}
		out = append(out, code...)
		cur += uintptr(t.Len())
	}
	return out
}
