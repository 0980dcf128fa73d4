package planner

import (
	"github.com/n9te9/graphql-parser/ast"

	"github.com/n9te9/fusion-query-planner/selset"
)

// unresolvedSchema is the sentinel SchemaName a seed plan node carries before
// the root work item has been branched onto any candidate schema.
const unresolvedSchema = "unresolved"

// PlanNode is the immutable snapshot of partial-plan state of spec §3: a
// vertex in the A* search graph. Every mutating operation returns a new
// PlanNode; the fields a handler doesn't touch are shared, not copied, with
// the node it branched from (spec §5).
type PlanNode struct {
	OriginalOperationDefinition *ast.OperationDefinition
	InternalOperationDefinition *ast.OperationDefinition
	ShortHash                   string

	SchemaName string // "unresolved" before the root item has been seeded onto a schema
	Options    Options
	Index      *selset.Index
	Backlog    Backlog

	Steps               []*Step
	OperationStepCount  int
	MaxDepth            int
	ExcessFanout        int
	OpsPerLevel         map[int]int
	OperationStepDepths map[int]int
	LastRequirementID   int

	RemainingCost  float64
	PathCost       float64
	ResolutionCost float64
	TotalCost      float64
	BestCaseCost   float64
}

// NewSeedPlanNode builds the initial PlanNode for a plan call, before any
// work item has been dispatched (spec §4.5 "Seeding").
func NewSeedPlanNode(original, internal *ast.OperationDefinition, shortHash string, opts Options, index *selset.Index, backlog Backlog) *PlanNode {
	n := &PlanNode{
		OriginalOperationDefinition: original,
		InternalOperationDefinition: internal,
		ShortHash:                   shortHash,
		SchemaName:                  unresolvedSchema,
		Options:                     opts,
		Index:                       index,
		Backlog:                     backlog,
		OpsPerLevel:                 map[int]int{},
		OperationStepDepths:         map[int]int{},
	}
	n.recompute(opts)
	return n
}

// clone returns a shallow copy with fresh top-level maps/slices ready for a
// handler to mutate without disturbing n.
func (n *PlanNode) clone() *PlanNode {
	c := *n
	c.Steps = append([]*Step(nil), n.Steps...)
	c.OpsPerLevel = cloneIntMap(n.OpsPerLevel)
	c.OperationStepDepths = cloneIntMap(n.OperationStepDepths)
	return &c
}

func cloneIntMap(m map[int]int) map[int]int {
	out := make(map[int]int, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// recompute derives PathCost/RemainingCost/BestCaseCost/TotalCost from the
// node's current counters, per the formulas of spec §3.
func (n *PlanNode) recompute(opts Options) {
	n.Options = opts
	n.PathCost = float64(n.MaxDepth)*opts.DepthWeight +
		float64(n.OperationStepCount)*opts.OperationWeight +
		float64(n.ExcessFanout)*opts.ExcessFanoutWeight
	n.RemainingCost = estimateRemainingCost(opts, n.MaxDepth, n.OpsPerLevel, n.Backlog.Cost)
	n.BestCaseCost = n.PathCost + n.RemainingCost
	n.TotalCost = n.PathCost + n.RemainingCost + n.ResolutionCost
}

// WithBacklog returns a clone with a new backlog, recomputing the admissible
// remaining-cost estimate.
func (n *PlanNode) WithBacklog(b Backlog) *PlanNode {
	c := n.clone()
	c.Backlog = b
	c.recompute(n.Options)
	return c
}

// WithSchema returns a clone seeded onto schemaName with resolutionCost set
// (spec §4.4 "Root operation item": `template with { schemaName,
// resolutionCost = fit.cost }`).
func (n *PlanNode) WithSchema(schemaName string, resolutionCost float64) *PlanNode {
	c := n.clone()
	c.SchemaName = schemaName
	c.ResolutionCost = resolutionCost
	c.recompute(n.Options)
	return c
}

// WithResolutionCostReset clears resolutionCost to 0, as enqueueBranches does
// before dispatching the next work item (spec §4.4).
func (n *PlanNode) WithResolutionCostReset() *PlanNode {
	c := n.clone()
	c.ResolutionCost = 0
	c.recompute(n.Options)
	return c
}

// WithIndexBuilder seals b and installs it as the node's index.
func (n *PlanNode) WithIndexBuilder(b *selset.Builder) *PlanNode {
	c := n.clone()
	c.Index = b.Seal()
	return c
}

// NextStepID returns the id the next appended step would receive (spec §3
// invariant 2: monotonic, starting at 1).
func (n *PlanNode) NextStepID() int {
	return len(n.Steps) + 1
}

// NextRequirementID increments and returns the requirement-id counter (spec
// §3 invariant 5).
func (n *PlanNode) NextRequirementID() (*PlanNode, int) {
	c := n.clone()
	c.LastRequirementID++
	return c, c.LastRequirementID
}

// AddOperationStep appends step (already built, with a fresh id and a
// definition) and updates every derived counter: operationStepCount,
// maxDepth, operationStepDepths, opsPerLevel, and the resulting excess
// fan-out at depth.
func (n *PlanNode) AddOperationStep(step *Step, depth int) *PlanNode {
	c := n.clone()
	c.Steps = append(c.Steps, step)
	c.OperationStepCount++
	c.OperationStepDepths[step.ID] = depth
	if depth > c.MaxDepth {
		c.MaxDepth = depth
	}
	before := excess(c.OpsPerLevel[depth], n.Options.FanoutPenaltyThreshold)
	c.OpsPerLevel[depth]++
	after := excess(c.OpsPerLevel[depth], n.Options.FanoutPenaltyThreshold)
	c.ExcessFanout += after - before
	c.recompute(n.Options)
	return c
}

// AddNodeFieldStep appends a node-field step without affecting
// operationStepCount (it is not an OperationPlanStep; only its eventual
// branches and fallback are).
func (n *PlanNode) AddNodeFieldStep(step *Step) *PlanNode {
	c := n.clone()
	c.Steps = append(c.Steps, step)
	return c
}

// ReplaceStep returns a clone with Steps[i] swapped for replacement, used
// when a handler mutates a step in place (e.g. inlining a requirement, or
// attaching a node-lookup branch to its owning node-field step).
func (n *PlanNode) ReplaceStep(i int, replacement *Step) *PlanNode {
	c := n.clone()
	c.Steps[i] = replacement
	return c
}

// StepByID finds a step by its id, or nil.
func (n *PlanNode) StepByID(id int) (int, *Step) {
	for i, s := range n.Steps {
		if s.ID == id {
			return i, s
		}
	}
	return -1, nil
}

// IsComplete reports whether the backlog is empty (spec §3 invariant 4).
func (n *PlanNode) IsComplete() bool { return n.Backlog.IsEmpty() }

// operationType returns the operation type of the client-facing operation
// this plan node is being built for.
func (n *PlanNode) operationType() ast.OperationType {
	return n.OriginalOperationDefinition.Operation
}
