package registry

import (
	"fmt"
	"slices"
	"sync"

	"github.com/vango-dev/editstream/pkg/protocol"
)

// Registry maps NodeIDs to native handles of type H.
//
// It is safe for concurrent use. In practice one interpreter writes while
// event bridges resolve targets concurrently.
type Registry[H comparable] struct {
	mu sync.RWMutex

	// id → slot index
	index map[protocol.NodeID]int

	// slot → entry; released slots are zeroed and pushed on free
	slots []entry[H]
	free  []int

	// handle → id for reverse lookup
	reverse map[H]protocol.NodeID
}

type entry[H comparable] struct {
	id     protocol.NodeID
	handle H
	live   bool
}

// New creates an empty registry.
func New[H comparable]() *Registry[H] {
	return &Registry[H]{
		index:   make(map[protocol.NodeID]int),
		reverse: make(map[H]protocol.NodeID),
	}
}

// Register maps id to h. It fails with protocol.ErrDuplicateID if id is live.
func (r *Registry[H]) Register(id protocol.NodeID, h H) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.index[id]; ok {
		return fmt.Errorf("%w: %d", protocol.ErrDuplicateID, id)
	}

	var slot int
	if n := len(r.free); n > 0 {
		slot = r.free[n-1]
		r.free = r.free[:n-1]
	} else {
		slot = len(r.slots)
		r.slots = append(r.slots, entry[H]{})
	}

	r.slots[slot] = entry[H]{id: id, handle: h, live: true}
	r.index[id] = slot
	r.reverse[h] = id
	return nil
}

// Lookup returns the handle for id, or protocol.ErrUnknownID.
func (r *Registry[H]) Lookup(id protocol.NodeID) (H, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	slot, ok := r.index[id]
	if !ok {
		var zero H
		return zero, fmt.Errorf("%w: %d", protocol.ErrUnknownID, id)
	}
	return r.slots[slot].handle, nil
}

// Release removes the mapping for id and frees its slot. Callers release
// only after the node is unreachable from the native tree.
func (r *Registry[H]) Release(id protocol.NodeID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	slot, ok := r.index[id]
	if !ok {
		return fmt.Errorf("%w: %d", protocol.ErrUnknownID, id)
	}

	h := r.slots[slot].handle
	if cur, ok := r.reverse[h]; ok && cur == id {
		delete(r.reverse, h)
	}
	delete(r.index, id)
	r.slots[slot] = entry[H]{}
	r.free = append(r.free, slot)
	return nil
}

// Resolve returns the id registered for h.
func (r *Registry[H]) Resolve(h H) (protocol.NodeID, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.reverse[h]
	return id, ok
}

// Live reports whether id is registered.
func (r *Registry[H]) Live(id protocol.NodeID) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.index[id]
	return ok
}

// Len returns the number of live ids.
func (r *Registry[H]) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.index)
}

// IDs returns the live ids in ascending order.
func (r *Registry[H]) IDs() []protocol.NodeID {
	r.mu.RLock()
	ids := make([]protocol.NodeID, 0, len(r.index))
	for id := range r.index {
		ids = append(ids, id)
	}
	r.mu.RUnlock()

	slices.Sort(ids)
	return ids
}

// Slot returns the internal slot occupied by id. It exists for diagnostics
// and tests; slot numbers carry no protocol meaning.
func (r *Registry[H]) Slot(id protocol.NodeID) (int, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	slot, ok := r.index[id]
	return slot, ok
}

// Stats reports table occupancy.
type Stats struct {
	Live  int // Registered ids
	Slots int // Allocated slots, live or free
	Free  int // Slots waiting for reuse
}

// Stats returns current occupancy.
func (r *Registry[H]) Stats() Stats {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return Stats{Live: len(r.index), Slots: len(r.slots), Free: len(r.free)}
}
