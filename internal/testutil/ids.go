package testutil

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// SeededIDs generates deterministic span identifiers: UUIDv5 values derived
// from a seed string and a counter. The same seed always yields the same
// sequence, so repeated scenario executions produce identical raw IDs.
//
// Thread-safety: Next is safe for concurrent use, though deterministic
// ordering then depends on call order.
type SeededIDs struct {
	mu        sync.Mutex
	namespace uuid.UUID
	counter   int64
}

// NewSeededIDs creates a generator for the given seed.
func NewSeededIDs(seed string) *SeededIDs {
	return &SeededIDs{
		namespace: uuid.NewSHA1(uuid.NameSpaceOID, []byte(seed)),
	}
}

// Next returns the next identifier in the sequence.
func (g *SeededIDs) Next() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	id := uuid.NewSHA1(g.namespace, fmt.Appendf(nil, "%d", g.counter))
	g.counter++
	return id.String()
}

// Reset rewinds the sequence to its start for test reuse.
func (g *SeededIDs) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.counter = 0
}
