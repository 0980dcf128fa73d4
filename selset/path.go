// Package selset implements the selection-path and selection-set-index data
// model of spec §3/§4.1: the ordered-path identity scheme the planner uses
// to name positions in a client operation's selection tree, and the
// bidirectional registry (selection-set node <-> stable integer id) shared
// by the planner core and the selection-set partitioners.
package selset

import "strings"

// SegmentKind discriminates the three path-segment shapes of spec §3.
type SegmentKind int

const (
	SegmentRoot SegmentKind = iota
	SegmentField
	SegmentInlineFragment
)

// PathSegment is one element of a SelectionPath.
type PathSegment struct {
	Kind SegmentKind
	Name string // response name for SegmentField, type name for SegmentInlineFragment
}

func RootSegment() PathSegment                  { return PathSegment{Kind: SegmentRoot} }
func FieldSegment(responseName string) PathSegment {
	return PathSegment{Kind: SegmentField, Name: responseName}
}
func InlineFragmentSegment(typeName string) PathSegment {
	return PathSegment{Kind: SegmentInlineFragment, Name: typeName}
}

// Path is an ordered sequence of segments identifying a position in the
// operation tree. Paths compare as tuples (spec §3).
type Path []PathSegment

// Append returns a new path with seg appended; Path values are treated as
// immutable throughout the planner, so this never mutates the receiver.
func (p Path) Append(seg PathSegment) Path {
	out := make(Path, len(p)+1)
	copy(out, p)
	out[len(p)] = seg
	return out
}

// Compare implements the tuple ordering spec §3 requires for determinism:
// shorter paths sort first on a common prefix, then by kind, then by name.
func (p Path) Compare(other Path) int {
	for i := 0; i < len(p) && i < len(other); i++ {
		if c := p[i].compare(other[i]); c != 0 {
			return c
		}
	}
	switch {
	case len(p) < len(other):
		return -1
	case len(p) > len(other):
		return 1
	default:
		return 0
	}
}

func (s PathSegment) compare(o PathSegment) int {
	if s.Kind != o.Kind {
		if s.Kind < o.Kind {
			return -1
		}
		return 1
	}
	return strings.Compare(s.Name, o.Name)
}

// String renders a path as a dotted, debug-friendly string, e.g. "Root.a.b".
func (p Path) String() string {
	parts := make([]string, 0, len(p))
	for _, seg := range p {
		switch seg.Kind {
		case SegmentRoot:
			parts = append(parts, "Root")
		case SegmentField:
			parts = append(parts, seg.Name)
		case SegmentInlineFragment:
			parts = append(parts, "..."+seg.Name)
		}
	}
	return strings.Join(parts, ".")
}
