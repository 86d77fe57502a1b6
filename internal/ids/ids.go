// Package ids mints the NodeIDs that join the AST, the scope map and the
// session side tables.
package ids

import (
	"fmt"

	"fortio.org/safecast"
)

// NodeID identifies one AST node, definition, type variable or lowered value.
type NodeID uint64

const (
	// NoID marks the absence of a node reference.
	NoID NodeID = 0
)

// IsValid reports whether the id was minted by a Generator.
func (id NodeID) IsValid() bool { return id != NoID }

func (id NodeID) String() string { return fmt.Sprintf("#%d", uint64(id)) }

// Generator hands out monotonically increasing ids. It is owned by one
// compilation session and is not safe for concurrent use.
type Generator struct {
	last NodeID
}

// NewGenerator returns a generator whose first id is start+1.
func NewGenerator(start NodeID) *Generator {
	return &Generator{last: start}
}

// Next returns a fresh id.
func (g *Generator) Next() NodeID {
	g.last++
	return g.last
}

// Last returns the most recently minted id.
func (g *Generator) Last() NodeID { return g.last }

// Reserve advances the generator past id so ids decoded from an external
// tree never collide with freshly minted ones.
func (g *Generator) Reserve(id NodeID) {
	if id > g.last {
		g.last = id
	}
}

// FromIndex converts a slice index into an id offset, panicking on overflow.
func FromIndex(i int) NodeID {
	v, err := safecast.Conv[uint64](i)
	if err != nil {
		panic(fmt.Errorf("node index overflow: %w", err))
	}
	return NodeID(v)
}
