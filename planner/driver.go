package planner

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/n9te9/graphql-parser/ast"

	"github.com/n9te9/fusion-query-planner/schema"
	"github.com/n9te9/fusion-query-planner/selset"
)

// DefaultMaxExpandedNodes bounds the best-first search so a pathological
// schema/operation combination cannot spin forever; a plan call that
// exhausts it returns the best complete plan found so far, or fails with
// NoPlanFound when it has found none, rather than hanging the host.
const DefaultMaxExpandedNodes = 200000

// PlannerConfig bundles the external collaborators of spec §6 and the tuning
// knobs of spec §3 needed to construct an OperationPlanner. Schema and
// Partitioner have no usable zero value and must be supplied; the three
// remaining collaborators default to this repository's concrete
// implementations when left nil.
type PlannerConfig struct {
	Schema              schema.CompositeSchema
	Partitioner         schema.SelectionPartitioner
	TypePartitioner     schema.TypePartitioner
	NodeRootPartitioner schema.NodeRootPartitioner
	Builder             schema.OperationDefinitionBuilder
	Options             Options
	Sink                EventSink
	MaxExpandedNodes    int
}

// OperationPlanner is the spec §6 createPlan entry point, bound once to a
// composite schema and its collaborators and safe to reuse (and share
// across goroutines, spec §5: "composite schema is read-only and may be
// shared across plans and threads") for many plan calls.
type OperationPlanner struct {
	ctx              *planContext
	maxExpandedNodes int
}

// NewOperationPlanner constructs a planner bound to cfg, filling in the
// default partitioners/builder/sink this repository ships when the caller
// leaves them nil.
func NewOperationPlanner(cfg PlannerConfig) *OperationPlanner {
	builder := cfg.Builder
	if builder == nil {
		builder = schema.NewOperationDefinitionBuilder()
	}
	typePartitioner := cfg.TypePartitioner
	if typePartitioner == nil {
		typePartitioner = schema.NewTypePartitioner()
	}
	nodeRootPartitioner := cfg.NodeRootPartitioner
	if nodeRootPartitioner == nil {
		nodeRootPartitioner = schema.NewNodeRootPartitioner()
	}
	sink := cfg.Sink
	if sink == nil {
		sink = NoopSink{}
	}
	max := cfg.MaxExpandedNodes
	if max <= 0 {
		max = DefaultMaxExpandedNodes
	}

	return &OperationPlanner{
		ctx: &planContext{
			Schema:              cfg.Schema,
			Partitioner:         cfg.Partitioner,
			TypePartitioner:     typePartitioner,
			NodeRootPartitioner: nodeRootPartitioner,
			Builder:             builder,
			Options:             cfg.Options.withDefaults(),
			Sink:                sink,
		},
		maxExpandedNodes: max,
	}
}

// CreatePlan is the public entry point of spec §6: given a caller-supplied
// correlation id/hash/shortHash and a client operation, runs the best-first
// search to a complete OperationPlan or fails per spec §7.
func (p *OperationPlanner) CreatePlan(goCtx context.Context, id, hash, shortHash string, operation *ast.OperationDefinition) (*OperationPlan, error) {
	if id == "" || hash == "" || shortHash == "" {
		return nil, invalidArgument("CreatePlan", fmt.Errorf("id, hash and shortHash must be non-empty"))
	}
	if operation == nil {
		return nil, invalidArgument("CreatePlan", fmt.Errorf("operation definition must not be nil"))
	}

	opTypeName := operationTypeLabel(operation.Operation)
	start := time.Now()
	p.ctx.Sink.PlanStart(id, opTypeName, len(operation.SelectionSet))

	fail := func(err error) (*OperationPlan, error) {
		p.ctx.Sink.PlanError(id, opTypeName, kindOf(err).String(), time.Since(start))
		return nil, err
	}

	seed, err := p.seed(shortHash, operation)
	if err != nil {
		return fail(err)
	}

	// Spec §4.5 "Greedy pre-run": attempt one greedy completion before the
	// main search to obtain an initial upper bound for branch-and-bound
	// pruning. A failed greedy run leaves the bound at +Inf and the main
	// search proceeds unbounded.
	bestCompletePlanCost := math.Inf(1)
	var bestPlan *PlanNode
	if greedy, ok := p.greedyComplete(seed); ok {
		bestPlan = greedy
		bestCompletePlanCost = greedy.TotalCost
	}

	queue := NewPlanQueue(p.ctx)
	queue.Enqueue(seed)

	cycle := 0
	expanded := 0
	searchSpace := 0

	for {
		select {
		case <-goCtx.Done():
			return fail(externalFailure("CreatePlan", goCtx.Err()))
		default:
		}

		current, ok := queue.TryDequeue()
		if !ok {
			break
		}
		cycle++
		expanded++
		if c := queue.Count(); c > searchSpace {
			searchSpace = c
		}

		if top := current.Backlog.Peek(); top != nil {
			p.ctx.Sink.PlanDequeue(id, cycle, queue.Count(), top.Kind.String(), current.SchemaName)
		} else {
			p.ctx.Sink.PlanDequeue(id, cycle, queue.Count(), "", current.SchemaName)
		}

		// Spec §4.5 main loop step 2: branch-and-bound pruning against the
		// best complete plan cost found so far. BestCaseCost is an
		// admissible lower bound on any completion reachable from current.
		if current.BestCaseCost >= bestCompletePlanCost {
			continue
		}

		if current.IsComplete() {
			if bestPlan == nil || current.TotalCost < bestCompletePlanCost ||
				(current.TotalCost == bestCompletePlanCost && comparePlanNodes(current, bestPlan) < 0) {
				bestPlan = current
				bestCompletePlanCost = current.TotalCost
			}
			continue
		}

		if expanded > p.maxExpandedNodes {
			break
		}

		if top := current.Backlog.Peek(); top != nil && top.Kind == WorkItemNodeField {
			next, err := handleNodeField(current, p.ctx)
			if err != nil {
				return fail(err)
			}
			if err := queue.EnqueueBranches(next); err != nil {
				return fail(err)
			}
			continue
		}

		if err := queue.EnqueueBranches(current); err != nil {
			return fail(err)
		}
	}

	if bestPlan == nil {
		return fail(noPlanFound("CreatePlan"))
	}

	plan := p.finalize(id, bestPlan)
	p.ctx.Sink.PlanStop(id, time.Since(start), searchSpace, expanded, len(plan.Steps))
	return plan, nil
}

// greedyComplete implements spec §4.5's "Greedy pre-run": repeatedly take
// only the cheapest branch produced by EnqueueBranches from a fresh
// one-element candidate queue, applying the same work-item handlers as the
// main search, until the backlog is empty (success) or no branch can be
// produced (failure). Used solely to seed bestCompletePlanCost; its result
// is still eligible to become the final plan if the main search can't beat
// it.
func (p *OperationPlanner) greedyComplete(seed *PlanNode) (*PlanNode, bool) {
	current := seed
	for i := 0; i < p.maxExpandedNodes; i++ {
		if current.IsComplete() {
			return current, true
		}

		var next *PlanNode
		var err error
		if top := current.Backlog.Peek(); top != nil && top.Kind == WorkItemNodeField {
			next, err = handleNodeField(current, p.ctx)
			if err != nil {
				return nil, false
			}
		} else {
			next = current
		}

		step := NewPlanQueue(p.ctx)
		if err := step.EnqueueBranches(next); err != nil {
			return nil, false
		}
		candidate, ok := step.TryDequeue()
		if !ok {
			return nil, false
		}
		current = candidate
	}
	return nil, false
}

// seed builds the initial PlanNode of spec §4.5 "Seeding": split the root
// selection set into non-node root work and one NodeField work item per
// Relay node(...) root field, registering every selection set touched.
func (p *OperationPlanner) seed(shortHash string, operation *ast.OperationDefinition) (*PlanNode, error) {
	builder := selset.NewBuilder()

	nodeRootOut, err := p.ctx.NodeRootPartitioner.PartitionNodeRoot(schema.NodeRootInput{
		SelectionSet: operation.SelectionSet,
		Index:        builder,
	})
	if err != nil {
		return nil, externalFailure("seed.nodeRoot", err)
	}

	backlog := EmptyBacklog()
	rootType := p.ctx.Schema.OperationTypeName(operation.Operation)

	if len(nodeRootOut.SelectionSet) > 0 {
		rootPath := selset.Path{selset.RootSegment()}
		if operation.Operation == ast.Mutation {
			// Spec §4.5 "Seeding": mutations slice the root selection set
			// into one work item per root field, pushed in reverse so the
			// first root field ends up on top of the stack and is dispatched
			// (and assigned the lowest step id) first — the downstream
			// executor depends on document-order sequential execution.
			fields := rootFieldsOf(nodeRootOut.SelectionSet)
			for i := len(fields) - 1; i >= 0; i-- {
				fieldNode := &selset.Node{ParentType: rootType, Path: rootPath, Selections: []ast.Selection{fields[i]}}
				builder.Register(fieldNode)
				backlog = backlog.Push(newOperationWorkItem(WorkItemRoot, fieldNode, nil, "", 0))
			}
		} else {
			rootNode := &selset.Node{ParentType: rootType, Path: rootPath, Selections: nodeRootOut.SelectionSet}
			builder.Register(rootNode)
			backlog = backlog.Push(newOperationWorkItem(WorkItemRoot, rootNode, nil, "", 0))
		}
	}

	for _, nf := range nodeRootOut.NodeFields {
		item, err := p.seedNodeField(nf, builder)
		if err != nil {
			return nil, err
		}
		backlog = backlog.Push(item)
	}

	index := builder.Seal()
	return NewSeedPlanNode(operation, operation, shortHash, p.ctx.Options, index, backlog), nil
}

// seedNodeField splits one root node(...) field's selection set by concrete
// type (spec §4.5 "Seeding": selection-set-by-type partitioner), merging the
// shared selections into every type's branch, and extracts its skip/include
// conditions.
func (p *OperationPlanner) seedNodeField(nf schema.NodeField, builder *selset.Builder) (*WorkItem, error) {
	responseName := selset.ResponseNameOf(nf.Field)
	basePath := selset.Path{selset.RootSegment(), selset.FieldSegment(responseName)}

	typeOut, err := p.ctx.TypePartitioner.PartitionByType(schema.TypePartitionInput{
		SelectionSet: nf.Field.SelectionSet,
		Path:         basePath,
		Index:        builder,
	})
	if err != nil {
		return nil, externalFailure("seed.typePartition", err)
	}

	subTypes := make(map[string][]ast.Selection, len(typeOut.SelectionsByType))
	for typeName, selections := range typeOut.SelectionsByType {
		subTypes[typeName] = mergeSelections(selections, typeOut.Shared)
	}

	conditions := skipIncludeConditionsOf(nf.Field.Directives)
	return newNodeFieldWorkItem(nf.Field, subTypes, typeOut.Shared, conditions, 0), nil
}

// finalize implements spec §4.6's final rewrite pass over a complete plan
// node: inject __typename into every abstract-typed position the operation
// rewrites introduced, and assemble the public OperationPlan result.
func (p *OperationPlanner) finalize(id string, n *PlanNode) *OperationPlan {
	steps := make([]*Step, len(n.Steps))
	for i, s := range n.Steps {
		if s.Kind != StepKindOperation || s.Definition == nil {
			steps[i] = s
			continue
		}
		clone := s.clone()
		clone.Definition = InjectTypename(s.Definition, p.ctx.Schema, rootTypeForStep(n, s))
		steps[i] = clone
	}

	return &OperationPlan{
		ID:                  id,
		OperationType:       n.OriginalOperationDefinition.Operation,
		Steps:               steps,
		ExecutionOrder:      computeExecutionOrder(steps),
		OperationStepCount:  n.OperationStepCount,
		MaxDepth:            n.MaxDepth,
		OperationStepDepths: n.OperationStepDepths,
		LastRequirementID:   n.LastRequirementID,
		TotalCost:           n.TotalCost,
		InternalDefinition:  n.InternalOperationDefinition,
	}
}

func operationTypeLabel(op ast.OperationType) string {
	switch op {
	case ast.Mutation:
		return "mutation"
	case ast.Subscription:
		return "subscription"
	default:
		return "query"
	}
}

func kindOf(err error) ErrorKind {
	if pe, ok := err.(*Error); ok {
		return pe.Kind
	}
	return KindExternalFailure
}
