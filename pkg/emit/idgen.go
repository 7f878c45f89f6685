package emit

import (
	"sync"

	"github.com/vango-dev/editstream/pkg/protocol"
)

// IDGen issues NodeIDs from a monotonic counter. Each model instance owns
// one; ids are never handed out twice by the same generator.
type IDGen struct {
	mu   sync.Mutex
	next protocol.NodeID
}

// NewIDGen creates a generator whose first id is start. Renderer-mounted
// roots conventionally use ids below start.
func NewIDGen(start protocol.NodeID) *IDGen {
	return &IDGen{next: start}
}

// Next returns a fresh id.
func (g *IDGen) Next() protocol.NodeID {
	g.mu.Lock()
	defer g.mu.Unlock()
	id := g.next
	g.next++
	return id
}

// Peek returns the id the next call to Next will return.
func (g *IDGen) Peek() protocol.NodeID {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.next
}
