package field

import (
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/ayusman/strikezone/internal/geom"
)

// MemoryAnchors is an in-process world-tracking session. It refuses anchors
// until it is marked ready.
type MemoryAnchors struct {
	mu      sync.Mutex
	ready   bool
	anchors map[string]geom.Pose
}

// NewMemoryAnchors returns a session with the given readiness.
func NewMemoryAnchors(ready bool) *MemoryAnchors {
	return &MemoryAnchors{ready: ready, anchors: make(map[string]geom.Pose)}
}

// SetReady marks the session as able (or unable) to accept anchors.
func (m *MemoryAnchors) SetReady(ready bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ready = ready
}

// AddAnchor stores pose under a new ID.
func (m *MemoryAnchors) AddAnchor(pose geom.Pose) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.ready {
		return "", ErrWorldTrackingNotReady
	}
	id := uuid.NewString()
	m.anchors[id] = pose
	return id, nil
}

// RemoveAnchor deletes an anchor.
func (m *MemoryAnchors) RemoveAnchor(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.anchors[id]; !ok {
		return fmt.Errorf("anchor %s not found", id)
	}
	delete(m.anchors, id)
	return nil
}

// Get returns the pose stored for id.
func (m *MemoryAnchors) Get(id string) (geom.Pose, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.anchors[id]
	return p, ok
}

// Len returns the number of live anchors.
func (m *MemoryAnchors) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.anchors)
}
