package delivery

import (
	"sync"

	"github.com/google/uuid"
)

// ReportIDGenerator assigns the identity each flushed report carries into the
// durable queue.
type ReportIDGenerator interface {
	Generate() string
}

// UUIDv7Generator generates time-sortable UUIDv7 report ids.
//
// UUIDv7 embeds a timestamp in the most significant bits, so queued reports
// sort by flush time even when the flushed_at column is ignored.
//
// Thread-safety: stateless and safe for concurrent use.
type UUIDv7Generator struct{}

// Generate creates a new UUIDv7 as a hyphenated string.
// Panics if UUID generation fails (should never happen in practice).
func (g UUIDv7Generator) Generate() string {
	return uuid.Must(uuid.NewV7()).String()
}

// FixedGenerator returns predetermined report ids for testing.
// Enables deterministic queue contents and golden comparison.
//
// Thread-safety: safe for concurrent use via internal mutex.
type FixedGenerator struct {
	mu  sync.Mutex
	ids []string
	idx int
}

// NewFixedGenerator creates a generator that returns ids in order.
// Generate panics once all ids are consumed - tests that flush more than
// they scripted should fail fast.
func NewFixedGenerator(ids ...string) *FixedGenerator {
	return &FixedGenerator{ids: ids}
}

// Generate returns the next predetermined id.
func (g *FixedGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.idx >= len(g.ids) {
		panic("FixedGenerator: all report ids exhausted")
	}
	id := g.ids[g.idx]
	g.idx++
	return id
}
