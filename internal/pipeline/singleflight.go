package pipeline

import (
	"errors"
	"sync"

	"github.com/google/uuid"
)

// ErrAlreadyRunning is returned when a pipeline run is triggered for a
// prospect that already has one in flight.
var ErrAlreadyRunning = errors.New("pipeline: run already in progress for this prospect")

// Guard serializes pipeline runs per prospect id. Idempotency checks in the
// artifact stage protect the terminal writes, but concurrent full runs
// would still duplicate model calls and churn checkpoints.
type Guard struct {
	mu     sync.Mutex
	active map[uuid.UUID]struct{}
}

// NewGuard creates a single-flight guard.
func NewGuard() *Guard {
	return &Guard{active: make(map[uuid.UUID]struct{})}
}

// TryAcquire claims the prospect for a run. Returns false when a run is
// already in flight.
func (g *Guard) TryAcquire(id uuid.UUID) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, running := g.active[id]; running {
		return false
	}
	g.active[id] = struct{}{}
	return true
}

// Release frees the prospect for future runs.
func (g *Guard) Release(id uuid.UUID) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.active, id)
}
