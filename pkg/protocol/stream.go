package protocol

// EditStream is the ordered batch of edits produced for one update cycle.
// A stream is immutable once built; Edits returns a copy.
type EditStream struct {
	seq   uint64
	edits []Edit
}

// NewEditStream builds a stream from edits. The slice is copied.
func NewEditStream(seq uint64, edits []Edit) EditStream {
	cp := make([]Edit, len(edits))
	copy(cp, edits)
	return EditStream{seq: seq, edits: cp}
}

// Seq returns the stream's sequence number.
func (s EditStream) Seq() uint64 {
	return s.seq
}

// Len returns the number of edits.
func (s EditStream) Len() int {
	return len(s.edits)
}

// At returns the i-th edit.
func (s EditStream) At(i int) Edit {
	return s.edits[i]
}

// Edits returns a copy of the edits.
func (s EditStream) Edits() []Edit {
	cp := make([]Edit, len(s.edits))
	copy(cp, s.edits)
	return cp
}

// Empty reports whether the stream carries no edits.
func (s EditStream) Empty() bool {
	return len(s.edits) == 0
}

// Checker statically validates streams against the cumulative history of
// introduced ids. It is the producer-side mirror of what an interpreter
// enforces, and never touches a renderer.
//
// Released ids stay in the history: the model never reuses an id, so a
// reference to a released id is a renderer-side UnknownID, not a forward
// reference.
type Checker struct {
	known map[NodeID]struct{}
}

// NewChecker creates a Checker. Roots are ids the renderer pre-registers
// (for example the mount point) and are treated as already introduced.
func NewChecker(roots ...NodeID) *Checker {
	c := &Checker{known: make(map[NodeID]struct{}, len(roots))}
	for _, id := range roots {
		c.known[id] = struct{}{}
	}
	return c
}

// Known reports whether id was introduced by an earlier checked stream.
func (c *Checker) Known(id NodeID) bool {
	_, ok := c.known[id]
	return ok
}

// Check validates s. On success the ids introduced by s join the history;
// on failure the history is left untouched.
func (c *Checker) Check(s EditStream) error {
	return c.check(s.seq, s.edits)
}

func (c *Checker) check(seq uint64, edits []Edit) error {
	depth := 0
	introduced := make(map[NodeID]struct{})

	known := func(id NodeID) bool {
		if _, ok := c.known[id]; ok {
			return true
		}
		_, ok := introduced[id]
		return ok
	}

	for i, e := range edits {
		if !e.Op.Valid() {
			return &RenderError{Seq: seq, Index: i, Op: e.Op, Err: ErrMalformedStream}
		}
		if id, ok := e.References(); ok && !known(id) {
			return &RenderError{Seq: seq, Index: i, Op: e.Op, ID: id, Err: ErrUnknownID}
		}
		if e.Introduces() {
			if _, dup := introduced[e.ID]; dup || c.Known(e.ID) {
				return &RenderError{Seq: seq, Index: i, Op: e.Op, ID: e.ID, Err: ErrDuplicateID}
			}
			introduced[e.ID] = struct{}{}
		}
		pops, pushes, needs := e.StackEffect()
		if depth < needs {
			return &RenderError{Seq: seq, Index: i, Op: e.Op, Err: ErrMalformedStream}
		}
		depth += pushes - pops
		if depth > MaxStackDepth {
			return &RenderError{Seq: seq, Index: i, Op: e.Op, Err: ErrMalformedStream}
		}
	}
	if depth != 0 {
		return &RenderError{Seq: seq, Index: len(edits), Err: ErrMalformedStream}
	}

	for id := range introduced {
		c.known[id] = struct{}{}
	}
	return nil
}

// Record adds the ids s introduces to the history without validating s.
// It keeps the history cumulative for streams that were sent unchecked.
func (c *Checker) Record(s EditStream) {
	for _, e := range s.edits {
		if e.Introduces() {
			c.known[e.ID] = struct{}{}
		}
	}
}

// CheckPending validates edits that have not been flushed into a stream yet.
// The history is not updated.
func (c *Checker) CheckPending(edits []Edit) error {
	snapshot := make(map[NodeID]struct{}, len(c.known))
	for id := range c.known {
		snapshot[id] = struct{}{}
	}
	probe := &Checker{known: snapshot}
	return probe.check(0, edits)
}
