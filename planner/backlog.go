package planner

import "github.com/n9te9/fusion-query-planner/selset"

// BacklogCost is the aggregate cost the backlog carries alongside its work
// items, spec §3: minimum remaining cost, the max depth any backlog item
// could still introduce, and how many operation steps each depth projects.
type BacklogCost struct {
	MinCost          float64
	MaxProjectedDepth int
	ProjectedOpsPerLevel map[int]int // depth -> projected op-step count
}

// EmptyBacklogCost is the zero cost carried by an empty backlog.
func EmptyBacklogCost() BacklogCost {
	return BacklogCost{ProjectedOpsPerLevel: map[int]int{}}
}

func (c BacklogCost) clone() BacklogCost {
	m := make(map[int]int, len(c.ProjectedOpsPerLevel))
	for k, v := range c.ProjectedOpsPerLevel {
		m[k] = v
	}
	return BacklogCost{MinCost: c.MinCost, MaxProjectedDepth: c.MaxProjectedDepth, ProjectedOpsPerLevel: m}
}

// Backlog is the immutable LIFO of work items of spec §3/§4.2. Push/Pop
// return a new Backlog value; the underlying slice is shared structurally
// (append-only, never mutated in place after being observed) the way the
// teacher shares ast slices across rewritten selection sets.
type Backlog struct {
	items []*WorkItem // items[len-1] is the top of the stack
	Cost  BacklogCost
}

// EmptyBacklog is the starting backlog before any seeding.
func EmptyBacklog() Backlog {
	return Backlog{Cost: EmptyBacklogCost()}
}

func (b Backlog) IsEmpty() bool { return len(b.items) == 0 }

func (b Backlog) Peek() *WorkItem {
	if len(b.items) == 0 {
		return nil
	}
	return b.items[len(b.items)-1]
}

// Push returns a new Backlog with item on top, cost updated in O(1).
func (b Backlog) Push(item *WorkItem) Backlog {
	items := make([]*WorkItem, len(b.items)+1)
	copy(items, b.items)
	items[len(items)-1] = item
	return Backlog{items: items, Cost: addWorkItemCost(b.Cost, item)}
}

// Pop returns the backlog without its top item and the popped item.
func (b Backlog) Pop() (Backlog, *WorkItem) {
	if len(b.items) == 0 {
		return b, nil
	}
	top := b.items[len(b.items)-1]
	items := b.items[:len(b.items)-1]
	return Backlog{items: items, Cost: removeWorkItemCost(b.Cost, top)}, top
}

// PushUnresolvable pushes each unresolvable selection set, in reverse order
// (so the first one ends up on top), as operation-lookup work items
// targeting schemas other than fromSchema (spec §4.2).
func (b Backlog) PushUnresolvable(stack []NodeAtDepth, fromSchema string) Backlog {
	out := b
	for i := len(stack) - 1; i >= 0; i-- {
		item := newOperationWorkItem(WorkItemLookup, stack[i].Node, nil, fromSchema, stack[i].ParentDepth)
		out = out.Push(item)
	}
	return out
}

// NodeAtDepth pairs an unresolvable selection-set node with the depth of the
// step that produced it, since partitioners return bare nodes.
type NodeAtDepth struct {
	Node        *selset.Node
	ParentDepth int
}

// PushRequirements pushes each field-with-requirements, in reverse order, as
// field-requirement work items owned by stepID (spec §4.2).
func (b Backlog) PushRequirements(fields []*selset.FieldSelection, stepID int, parentDepth int) Backlog {
	out := b
	for i := len(fields) - 1; i >= 0; i-- {
		item := newFieldRequirementWorkItem(fields[i], stepID, nil, parentDepth)
		out = out.Push(item)
	}
	return out
}
