// Package scene keeps the field's renderable geometry as an explicit tree of
// transform nodes stored in a flat arena. Moving a container is a single
// write to its local pose; world poses are derived by walking parent indices.
package scene

import (
	"errors"
	"fmt"
	"sync"

	"github.com/golang/geo/r3"

	"github.com/ayusman/strikezone/internal/geom"
)

// ErrUnknownNode is returned for IDs that were never allocated or were removed.
var ErrUnknownNode = errors.New("unknown scene node")

// NodeID indexes a node in the arena.
type NodeID int

// Root is the implicit world node every top-level node hangs from.
const Root NodeID = -1

// Node is a single transform in the tree.
type Node struct {
	Name    string
	Parent  NodeID
	Local   geom.Pose
	Extent  r3.Vector // box size for renderable nodes, zero for pure transforms
	Visible bool

	removed bool
}

// Tree owns every node. It is safe for concurrent use.
type Tree struct {
	mu    sync.RWMutex
	nodes []Node
}

// NewTree returns an empty tree.
func NewTree() *Tree {
	return &Tree{}
}

// Add creates a visible node under parent and returns its ID.
func (t *Tree) Add(parent NodeID, name string, local geom.Pose, extent r3.Vector) (NodeID, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if parent != Root && !t.alive(parent) {
		return 0, fmt.Errorf("add %q: parent %d: %w", name, parent, ErrUnknownNode)
	}
	t.nodes = append(t.nodes, Node{
		Name:    name,
		Parent:  parent,
		Local:   local,
		Extent:  extent,
		Visible: true,
	})
	return NodeID(len(t.nodes) - 1), nil
}

// Get returns a copy of the node.
func (t *Tree) Get(id NodeID) (Node, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if !t.alive(id) {
		return Node{}, fmt.Errorf("get %d: %w", id, ErrUnknownNode)
	}
	return t.nodes[id], nil
}

// SetLocal replaces the node's pose relative to its parent.
func (t *Tree) SetLocal(id NodeID, local geom.Pose) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.alive(id) {
		return fmt.Errorf("set local %d: %w", id, ErrUnknownNode)
	}
	t.nodes[id].Local = local
	return nil
}

// SetExtent replaces the node's box size.
func (t *Tree) SetExtent(id NodeID, extent r3.Vector) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.alive(id) {
		return fmt.Errorf("set extent %d: %w", id, ErrUnknownNode)
	}
	t.nodes[id].Extent = extent
	return nil
}

// SetVisible toggles a single node. Children inherit invisibility through IsVisible.
func (t *Tree) SetVisible(id NodeID, visible bool) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.alive(id) {
		return fmt.Errorf("set visible %d: %w", id, ErrUnknownNode)
	}
	t.nodes[id].Visible = visible
	return nil
}

// IsVisible reports whether the node and all of its ancestors are visible.
func (t *Tree) IsVisible(id NodeID) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()

	for id != Root {
		if !t.alive(id) || !t.nodes[id].Visible {
			return false
		}
		id = t.nodes[id].Parent
	}
	return true
}

// World returns the node's pose in world space.
func (t *Tree) World(id NodeID) (geom.Pose, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if !t.alive(id) {
		return geom.Pose{}, fmt.Errorf("world %d: %w", id, ErrUnknownNode)
	}

	var chain []geom.Pose
	for cur := id; cur != Root; cur = t.nodes[cur].Parent {
		chain = append(chain, t.nodes[cur].Local)
	}

	pose := geom.IdentityPose()
	for i := len(chain) - 1; i >= 0; i-- {
		pose = pose.Compose(chain[i])
	}
	return pose, nil
}

// Children returns the live direct children of id.
func (t *Tree) Children(id NodeID) []NodeID {
	t.mu.RLock()
	defer t.mu.RUnlock()

	var out []NodeID
	for i, n := range t.nodes {
		if !n.removed && n.Parent == id {
			out = append(out, NodeID(i))
		}
	}
	return out
}

// Remove deletes id and its whole subtree.
func (t *Tree) Remove(id NodeID) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.alive(id) {
		return fmt.Errorf("remove %d: %w", id, ErrUnknownNode)
	}
	t.removeLocked(id)
	return nil
}

func (t *Tree) removeLocked(id NodeID) {
	t.nodes[id].removed = true
	for i := range t.nodes {
		if !t.nodes[i].removed && t.nodes[i].Parent == id {
			t.removeLocked(NodeID(i))
		}
	}
}

// Len returns the number of live nodes.
func (t *Tree) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()

	n := 0
	for _, node := range t.nodes {
		if !node.removed {
			n++
		}
	}
	return n
}

// Clear removes every node and releases the arena.
func (t *Tree) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.nodes = nil
}

func (t *Tree) alive(id NodeID) bool {
	return id >= 0 && int(id) < len(t.nodes) && !t.nodes[id].removed
}
