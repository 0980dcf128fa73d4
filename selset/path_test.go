package selset

import "testing"

func TestPathCompareOrdering(t *testing.T) {
	root := Path{RootSegment()}
	a := root.Append(FieldSegment("a"))
	b := root.Append(FieldSegment("b"))
	aFragment := a.Append(InlineFragmentSegment("Product"))

	if root.Compare(root) != 0 {
		t.Fatalf("expected a path to compare equal to itself")
	}
	if a.Compare(b) >= 0 {
		t.Fatalf("expected %q to sort before %q", a, b)
	}
	if root.Compare(a) >= 0 {
		t.Fatalf("expected shorter prefix %q to sort before %q", root, a)
	}
	if a.Compare(aFragment) >= 0 {
		t.Fatalf("expected %q to sort before its own deeper extension %q", a, aFragment)
	}
}

func TestPathAppendDoesNotMutateReceiver(t *testing.T) {
	root := Path{RootSegment()}
	a := root.Append(FieldSegment("a"))
	_ = root.Append(FieldSegment("b"))

	if len(root) != 1 {
		t.Fatalf("Append mutated the receiver: root has length %d", len(root))
	}
	if len(a) != 2 || a[1].Name != "a" {
		t.Fatalf("unexpected appended path: %v", a)
	}
}

func TestPathString(t *testing.T) {
	p := Path{RootSegment(), FieldSegment("a"), InlineFragmentSegment("Product")}
	if got, want := p.String(), "Root.a....Product"; got != want {
		t.Fatalf("String() = %q, want %q", got, want)
	}
}
