package planner

import (
	"container/heap"
)

// planQueueItem is one element of the best-first search frontier: a
// candidate PlanNode, its cached scoreNode priority (spec §4.3), and the
// heap index container/heap maintains for us. The score is computed once at
// enqueue time since it depends on the schema held by PlanQueue, not on the
// node alone, and container/heap's Less has no way to reach it.
type planQueueItem struct {
	node  *PlanNode
	score float64
	index int
}

// planQueuePQ implements heap.Interface as a min-heap ordered by each item's
// cached scoreNode priority, tie-broken by the deterministic comparator of
// spec §4.7. Modeled on the teacher's dijkstraPQ
// (federation/graph/weighted_graph.go).
type planQueuePQ []*planQueueItem

func (pq planQueuePQ) Len() int { return len(pq) }

func (pq planQueuePQ) Less(i, j int) bool {
	a, b := pq[i], pq[j]
	if a.score != b.score {
		return a.score < b.score
	}
	return comparePlanNodes(a.node, b.node) < 0
}

func (pq planQueuePQ) Swap(i, j int) {
	pq[i], pq[j] = pq[j], pq[i]
	pq[i].index = i
	pq[j].index = j
}

func (pq *planQueuePQ) Push(x any) {
	n := len(*pq)
	item := x.(*planQueueItem)
	item.index = n
	*pq = append(*pq, item)
}

func (pq *planQueuePQ) Pop() any {
	old := *pq
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	item.index = -1
	*pq = old[:n-1]
	return item
}

// PlanQueue is the best-first search frontier of spec §4.4: a min-heap of
// candidate PlanNodes ordered by scoreNode with a deterministic tie-break.
type PlanQueue struct {
	pq  planQueuePQ
	ctx *planContext
}

// NewPlanQueue creates an empty queue bound to the plan's external
// collaborators and tuned options.
func NewPlanQueue(ctx *planContext) *PlanQueue {
	q := &PlanQueue{ctx: ctx}
	heap.Init(&q.pq)
	return q
}

func (q *PlanQueue) Count() int { return q.pq.Len() }

func (q *PlanQueue) Enqueue(n *PlanNode) {
	heap.Push(&q.pq, &planQueueItem{node: n, score: q.score(n)})
}

func (q *PlanQueue) TryDequeue() (*PlanNode, bool) {
	if q.pq.Len() == 0 {
		return nil, false
	}
	item := heap.Pop(&q.pq).(*planQueueItem)
	return item.node, true
}

func (q *PlanQueue) TryPeek() (*PlanNode, bool) {
	if q.pq.Len() == 0 {
		return nil, false
	}
	return q.pq[0].node, true
}

func (q *PlanQueue) Clear() {
	q.pq = nil
}

// score exposes scoreNode bound to this queue's schema, cached onto each
// planQueueItem at Enqueue time so the heap orders by spec §4.3's
// totalCost-plus-backlog-top-tweak priority rather than bare TotalCost.
func (q *PlanQueue) score(n *PlanNode) float64 {
	return scoreNode(n, q.ctx.Schema)
}

// EnqueueBranches resets template's resolutionCost, pops the top work item
// off its backlog, and enqueues every branch spec §4.4 defines for that
// item's kind. template itself is never mutated; every branch is built from
// a fresh clone. A node-field item or an empty backlog is enqueued directly,
// since node-field branching happens in the planner driver (spec §4.4).
func (q *PlanQueue) EnqueueBranches(template *PlanNode) error {
	reset := template.WithResolutionCostReset()

	if reset.Backlog.IsEmpty() {
		q.Enqueue(reset)
		return nil
	}

	if reset.Backlog.Peek().Kind == WorkItemNodeField {
		q.Enqueue(reset)
		return nil
	}

	backlog, item := reset.Backlog.Pop()

	switch item.Kind {
	case WorkItemRoot:
		return q.branchRoot(reset, backlog, item)
	case WorkItemLookup:
		return q.branchLookup(reset, backlog, item)
	case WorkItemFieldRequirement:
		return q.branchFieldRequirement(reset, backlog, item)
	case WorkItemNodeLookup:
		return q.branchNodeLookup(reset, backlog, item)
	default:
		return invalidArgument("EnqueueBranches", nil)
	}
}

// branchRoot enumerates every schema able to resolve some prefix of the
// root selection set (spec §4.4 "Root operation item"), scored by
// schema.PossibleSchemas, and enqueues one candidate per fit.
func (q *PlanQueue) branchRoot(template *PlanNode, backlog Backlog, item *WorkItem) error {
	fits := q.ctx.Schema.PossibleSchemas(item.SelectionSet.Selections, item.SelectionSet.ParentType)
	if len(fits) == 0 {
		// Spec §4.5 "Seeding": no candidate source schema found (pure
		// introspection) — enqueue the node as-is, with the root item
		// already popped and no operation step produced for it.
		q.Enqueue(template.WithBacklog(backlog))
		return nil
	}
	for _, fit := range fits {
		next, err := handlePlanRootOrLookup(template, backlog, item, fit.SchemaName, fit.Cost, q.ctx)
		if err != nil {
			return err
		}
		if next != nil {
			q.Enqueue(next)
		}
	}
	return nil
}

// branchLookup enumerates candidates for an unresolvable selection set that
// must be fetched via a @lookup field in some other schema (spec §4.4
// "Lookup operation item"): prefer a single best direct lookup when one
// exists, otherwise branch over every ordered lookup candidate, falling back
// to a path-walk search (handlePlanLookupViaPathWalk) when none match
// directly.
func (q *PlanQueue) branchLookup(template *PlanNode, backlog Backlog, item *WorkItem) error {
	typeName := item.SelectionSet.ParentType
	exclude := map[string]bool{item.FromSchema: true}

	if best, ok := q.ctx.Schema.TryBestDirectLookup(typeName, exclude, ""); ok {
		next, err := handlePlanLookupWithRequirements(template, backlog, item, best, q.ctx)
		if err != nil {
			return err
		}
		if next != nil {
			q.Enqueue(next)
			return nil
		}
	}

	branched := false
	for _, lookup := range q.ctx.Schema.PossibleLookupsOrdered(typeName, "") {
		if exclude[lookup.SchemaName] {
			continue
		}
		next, err := handlePlanLookupWithRequirements(template, backlog, item, lookup, q.ctx)
		if err != nil {
			return err
		}
		if next != nil {
			q.Enqueue(next)
			branched = true
		}
	}
	if branched {
		return nil
	}

	// Path-walk fallback (spec §4.4): walk the operation path upward for an
	// ancestor step on which the target schema does have a lookup.
	next, err := handlePlanLookupViaPathWalk(template, backlog, item, q.ctx)
	if err != nil {
		return err
	}
	if next != nil {
		q.Enqueue(next)
	}
	return nil
}

// branchFieldRequirement enumerates the inline-vs-lookup branches of spec
// §4.4 "Field-requirement item": first try inlining the field into a
// sibling/ancestor step already owning the same source schema, then branch
// over every lookup that could resolve the field on a fresh step.
func (q *PlanQueue) branchFieldRequirement(template *PlanNode, backlog Backlog, item *WorkItem) error {
	if inlined, err := handleInlineFieldRequirement(template, backlog, item, q.ctx); err != nil {
		return err
	} else if inlined != nil {
		q.Enqueue(inlined)
	}

	typeName := item.Field.DeclaringType
	for _, lookup := range q.ctx.Schema.PossibleLookupsOrdered(typeName, "") {
		next, err := handlePlanFieldRequirementViaLookup(template, backlog, item, lookup, q.ctx)
		if err != nil {
			return err
		}
		if next != nil {
			q.Enqueue(next)
		}
	}
	return nil
}

// branchNodeLookup enumerates every lookup able to resolve item.ConcreteType
// directly (spec §4.4 "Node-lookup (unbound) item"): a by-id lookup
// (fields = [id], non-internal, concrete non-abstract return type if
// possible); falls back to the globally best by-id lookup when no schema
// matches, or replays the single bound lookup when the item already carries
// one.
func (q *PlanQueue) branchNodeLookup(template *PlanNode, backlog Backlog, item *WorkItem) error {
	if item.BoundLookup != nil {
		next, err := handlePlanNodeLookup(template, backlog, item, item.BoundLookup, q.ctx)
		if err != nil {
			return err
		}
		if next != nil {
			q.Enqueue(next)
		}
		return nil
	}

	candidates := byIDLookups(q.ctx.Schema.PossibleLookupsOrdered(item.ConcreteType, ""))
	if len(candidates) == 0 {
		if best, ok := q.ctx.Schema.TryBestDirectLookup(item.ConcreteType, nil, ""); ok {
			candidates = append(candidates, best)
		}
	}

	for _, lookup := range candidates {
		next, err := handlePlanNodeLookup(template, backlog, item, lookup, q.ctx)
		if err != nil {
			return err
		}
		if next != nil {
			q.Enqueue(next)
		}
	}
	return nil
}
