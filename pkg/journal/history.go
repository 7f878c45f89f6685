package journal

import (
	"sync"
	"time"
)

// Entry is one recorded stream.
type Entry struct {
	Seq       uint64    // Stream sequence number
	Edits     int       // Number of edits in the stream
	Data      []byte    // Encoded stream
	AppliedAt time.Time // When the stream was recorded
}

// History is a thread-safe ring buffer of encoded streams. When full, the
// oldest entry is overwritten.
type History struct {
	mu       sync.RWMutex
	entries  []Entry
	head     int // next write position
	count    int
	capacity int
	now      func() time.Time
}

// DefaultCapacity is used when NewHistory is given a non-positive capacity.
const DefaultCapacity = 128

// NewHistory creates a history holding up to capacity streams.
func NewHistory(capacity int) *History {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &History{
		entries:  make([]Entry, capacity),
		capacity: capacity,
		now:      time.Now,
	}
}

// Add stores an encoded stream. data is copied.
func (h *History) Add(seq uint64, edits int, data []byte) {
	cp := make([]byte, len(data))
	copy(cp, data)

	h.mu.Lock()
	defer h.mu.Unlock()

	h.entries[h.head] = Entry{Seq: seq, Edits: edits, Data: cp, AppliedAt: h.now()}
	h.head = (h.head + 1) % h.capacity
	if h.count < h.capacity {
		h.count++
	}
}

// at returns the i-th oldest entry. Callers hold mu.
func (h *History) at(i int) Entry {
	return h.entries[(h.head-h.count+i+h.capacity)%h.capacity]
}

// Since returns the encoded streams recorded after seq, oldest first. It
// returns nil when any of them has already been overwritten.
func (h *History) Since(seq uint64) [][]byte {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if !h.canRecover(seq) {
		return nil
	}
	var out [][]byte
	for i := 0; i < h.count; i++ {
		if e := h.at(i); e.Seq > seq {
			out = append(out, e.Data)
		}
	}
	return out
}

// CanRecover reports whether every stream after seq is still held and there
// is at least one.
func (h *History) CanRecover(seq uint64) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.canRecover(seq)
}

func (h *History) canRecover(seq uint64) bool {
	if h.count == 0 {
		return false
	}
	oldest, newest := h.at(0).Seq, h.at(h.count-1).Seq
	return seq+1 >= oldest && seq < newest
}

// Latest returns the newest recorded sequence number, or 0.
func (h *History) Latest() uint64 {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.count == 0 {
		return 0
	}
	return h.at(h.count - 1).Seq
}

// Len returns the number of held entries.
func (h *History) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.count
}

// Entries returns the held entries, oldest first. Data is shared; callers
// must not modify it.
func (h *History) Entries() []Entry {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]Entry, h.count)
	for i := range out {
		out[i] = h.at(i)
	}
	return out
}

// Clear removes all entries.
func (h *History) Clear() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for i := range h.entries {
		h.entries[i] = Entry{}
	}
	h.head = 0
	h.count = 0
}
