package selset

import (
	"github.com/n9te9/graphql-parser/ast"
)

// Node is a logical selection-set: the selections themselves plus the
// context the planner needs to reason about them (spec §3: "selection set").
type Node struct {
	ParentType string
	Path       Path
	Selections []ast.Selection
}

// Builder is the mutable selection-set-index builder of spec §4.1: a
// bidirectional registry (node <-> stable id) plus the cloned-to-original
// table used to reach through inline-fragment / requirement clones back to
// their logical origin. Builder must be Seal()-ed into an Index before it is
// embedded in a plan node (spec §5: plan nodes are immutable).
type Builder struct {
	byID     []*Node // index i holds the node with id i+1 (ids are 1-based)
	nextID   int
	idOf     map[*Node]int
	clonedTo map[int]int // cloned id -> original id
}

// NewBuilder creates an empty selection-set-index builder.
func NewBuilder() *Builder {
	return &Builder{
		idOf:     make(map[*Node]int),
		clonedTo: make(map[int]int),
	}
}

// GetID returns the id for node, 0 if it has never been registered.
func (b *Builder) GetID(node *Node) int {
	return b.idOf[node]
}

// IsRegistered reports whether node already has an id.
func (b *Builder) IsRegistered(node *Node) bool {
	_, ok := b.idOf[node]
	return ok
}

// Register assigns node a fresh stable id and returns it. Registering the
// same node pointer twice returns the original id (idempotent).
func (b *Builder) Register(node *Node) int {
	if id, ok := b.idOf[node]; ok {
		return id
	}
	b.nextID++
	id := b.nextID
	b.idOf[node] = id
	b.byID = append(b.byID, node)
	return id
}

// RegisterAlias registers newNode under a fresh id and links it back to
// existingID through the cloned-to-original table (spec §4.1: "register
// (existingId, newNode)"), so a later inline pass can resolve the clone back
// to its logical position.
func (b *Builder) RegisterAlias(existingID int, newNode *Node) int {
	newID := b.Register(newNode)
	origin := existingID
	if o, ok := b.clonedTo[existingID]; ok {
		origin = o
	}
	b.clonedTo[newID] = origin
	return newID
}

// TryGetOriginalID resolves a cloned id back to its original id. Returns
// (0, false) when clonedID was never registered as a clone.
func (b *Builder) TryGetOriginalID(clonedID int) (int, bool) {
	orig, ok := b.clonedTo[clonedID]
	return orig, ok
}

// NodeByID returns the node registered under id, or nil.
func (b *Builder) NodeByID(id int) *Node {
	if id < 1 || id > len(b.byID) {
		return nil
	}
	return b.byID[id-1]
}

// IDForPath scans the registry for a node at path, returning its most
// recently registered id. Used by callers that only have a path (e.g. after
// a builder constructed a fresh node internally and handed back just the
// path) and need the stable id to record in a step's selection-set id set.
func (b *Builder) IDForPath(path Path) (int, bool) {
	for i := len(b.byID) - 1; i >= 0; i-- {
		if b.byID[i] != nil && path.Compare(b.byID[i].Path) == 0 {
			return i + 1, true
		}
	}
	return 0, false
}

// Seal produces an immutable Index snapshot of the builder's current state.
// The builder itself remains usable afterward but per spec §5 callers that
// need to diverge must Seal (or Clone) before letting two plan nodes
// reference overlapping mutable state.
func (b *Builder) Seal() *Index {
	byID := make([]*Node, len(b.byID))
	copy(byID, b.byID)
	idOf := make(map[*Node]int, len(b.idOf))
	for k, v := range b.idOf {
		idOf[k] = v
	}
	clonedTo := make(map[int]int, len(b.clonedTo))
	for k, v := range b.clonedTo {
		clonedTo[k] = v
	}
	return &Index{byID: byID, idOf: idOf, clonedTo: clonedTo}
}

// Clone returns a deep-enough copy of the builder that can diverge
// independently (used when two branches of the search must register
// different aliases from the same starting point).
func (b *Builder) Clone() *Builder {
	nb := NewBuilder()
	nb.byID = append(nb.byID, b.byID...)
	nb.nextID = b.nextID
	for k, v := range b.idOf {
		nb.idOf[k] = v
	}
	for k, v := range b.clonedTo {
		nb.clonedTo[k] = v
	}
	return nb
}

// Index is the immutable form of Builder, safe to embed in a PlanNode and to
// share across plan-node copies (spec §5: persistent / structurally shared).
type Index struct {
	byID     []*Node
	idOf     map[*Node]int
	clonedTo map[int]int
}

func (idx *Index) GetID(node *Node) int { return idx.idOf[node] }

func (idx *Index) IsRegistered(node *Node) bool {
	_, ok := idx.idOf[node]
	return ok
}

func (idx *Index) NodeByID(id int) *Node {
	if id < 1 || id > len(idx.byID) {
		return nil
	}
	return idx.byID[id-1]
}

func (idx *Index) TryGetOriginalID(clonedID int) (int, bool) {
	orig, ok := idx.clonedTo[clonedID]
	return orig, ok
}

// IDForPath scans the registry for a node at path, returning its most
// recently registered id.
func (idx *Index) IDForPath(path Path) (int, bool) {
	for i := len(idx.byID) - 1; i >= 0; i-- {
		if idx.byID[i] != nil && path.Compare(idx.byID[i].Path) == 0 {
			return i + 1, true
		}
	}
	return 0, false
}

// Builder reopens the immutable index as a mutable builder, the inverse of
// Seal, for handlers that need to register new selection sets mid-branch.
func (idx *Index) Builder() *Builder {
	b := NewBuilder()
	b.byID = append(b.byID, idx.byID...)
	b.nextID = len(idx.byID)
	for k, v := range idx.idOf {
		b.idOf[k] = v
	}
	for k, v := range idx.clonedTo {
		b.clonedTo[k] = v
	}
	return b
}
