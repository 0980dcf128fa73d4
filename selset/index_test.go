package selset

import (
	"testing"

	"github.com/n9te9/graphql-parser/ast"
)

func TestBuilderRegisterIsIdempotentForSamePointer(t *testing.T) {
	b := NewBuilder()
	node := &Node{ParentType: "A", Path: Path{RootSegment()}}

	id1 := b.Register(node)
	id2 := b.Register(node)

	if id1 != id2 {
		t.Fatalf("registering the same node twice returned different ids: %d, %d", id1, id2)
	}
	if b.GetID(node) != id1 {
		t.Fatalf("GetID mismatch: got %d, want %d", b.GetID(node), id1)
	}
}

func TestBuilderRegisterAliasResolvesToOriginal(t *testing.T) {
	b := NewBuilder()
	original := &Node{ParentType: "A", Path: Path{RootSegment()}}
	originalID := b.Register(original)

	clone := &Node{ParentType: "A", Path: Path{RootSegment()}}
	cloneID := b.RegisterAlias(originalID, clone)

	if cloneID == originalID {
		t.Fatalf("clone should receive a fresh id distinct from the original")
	}
	got, ok := b.TryGetOriginalID(cloneID)
	if !ok || got != originalID {
		t.Fatalf("TryGetOriginalID(%d) = (%d, %v), want (%d, true)", cloneID, got, ok, originalID)
	}

	// Aliasing a clone of a clone still resolves back to the same origin.
	clone2 := &Node{ParentType: "A", Path: Path{RootSegment()}}
	clone2ID := b.RegisterAlias(cloneID, clone2)
	got2, ok2 := b.TryGetOriginalID(clone2ID)
	if !ok2 || got2 != originalID {
		t.Fatalf("TryGetOriginalID(%d) = (%d, %v), want (%d, true)", clone2ID, got2, ok2, originalID)
	}
}

func TestBuilderIDForPathReturnsMostRecentRegistration(t *testing.T) {
	b := NewBuilder()
	path := Path{RootSegment(), FieldSegment("a")}

	first := &Node{ParentType: "A", Path: path}
	b.Register(first)

	second := &Node{ParentType: "A", Path: path}
	secondID := b.Register(second)

	id, ok := b.IDForPath(path)
	if !ok || id != secondID {
		t.Fatalf("IDForPath = (%d, %v), want (%d, true)", id, ok, secondID)
	}
}

func TestBuilderSealAndCloneRoundTrip(t *testing.T) {
	b := NewBuilder()
	field := &ast.Field{Name: &ast.Name{Value: "x"}}
	node := &Node{ParentType: "A", Path: Path{RootSegment()}, Selections: []ast.Selection{field}}
	id := b.Register(node)

	idx := b.Seal()
	if idx.NodeByID(id) != node {
		t.Fatalf("sealed index lost the registered node")
	}
	if !idx.IsRegistered(node) {
		t.Fatalf("sealed index should report the node as registered")
	}

	// Mutating the builder afterward must not affect the sealed snapshot.
	other := &Node{ParentType: "B", Path: Path{RootSegment(), FieldSegment("b")}}
	b.Register(other)
	if idx.NodeByID(id+1) != nil {
		t.Fatalf("sealed index should not see registrations made after Seal")
	}

	reopened := idx.Builder()
	if reopened.GetID(node) != id {
		t.Fatalf("reopening a sealed index lost the original id for node")
	}

	clone := b.Clone()
	extra := &Node{ParentType: "C", Path: Path{RootSegment(), FieldSegment("c")}}
	cloneID := clone.Register(extra)
	if b.IsRegistered(extra) {
		t.Fatalf("registering on a clone must not affect the original builder")
	}
	if clone.GetID(extra) != cloneID {
		t.Fatalf("clone lost its own registration")
	}
}

func TestNodeByIDOutOfRangeReturnsNil(t *testing.T) {
	b := NewBuilder()
	if b.NodeByID(0) != nil || b.NodeByID(1) != nil {
		t.Fatalf("NodeByID should return nil for an empty builder")
	}
}
