package planner

import (
	"fmt"

	"github.com/n9te9/graphql-parser/ast"

	"github.com/n9te9/fusion-query-planner/selset"
)

// handleNodeField implements spec §4.5 handler (e). EnqueueBranches
// re-enqueues a WorkItemNodeField item unchanged because node-field handling
// isn't a branch-and-score decision like the other four kinds — it is a
// single deterministic step the driver itself performs once the item
// reaches the top of the backlog: build the NodeFieldPlanStep (the id
// argument value, the skip/include conditions of the node field's own
// directives) and push one NodeLookup work item per concrete type
// the client named, each tagged with the new step's id so
// handlePlanNodeLookup can attach its eventual branch back onto it.
func handleNodeField(n *PlanNode, ctx *planContext) (*PlanNode, error) {
	backlog, item := n.Backlog.Pop()
	field := item.NodeField

	idValue, ok := idArgValue(field)
	if !ok {
		return nil, invalidArgument("handleNodeField", fmt.Errorf("node field %q carries no id argument", field.Name.String()))
	}

	responseName := selset.ResponseNameOf(field)
	stepID := n.NextStepID()
	step := &Step{
		Kind:         StepKindNodeField,
		ID:           stepID,
		ResponseName: responseName,
		IDValueNode:  idValue,
		Conditions:   item.Conditions,
		Branches:     map[string]*Step{},
	}

	next := n.WithBacklog(backlog)
	next = next.AddNodeFieldStep(step)

	// The fallback query (spec §9 Open Question (1): schemaName = null, left
	// for the execution layer to dispatch) always accompanies a node field so
	// the gateway can discover the runtime type even when the client named no
	// matching inline fragment. Its selection set is the shared part every
	// concrete type carries, with __typename ensured present (spec §4.5
	// handler (e): "node(id:…) { …shared… }").
	sharedSelections := item.Shared
	if !hasUnaliasedTypename(sharedSelections) {
		sharedSelections = append(append([]ast.Selection(nil), sharedSelections...), plainTypenameField())
	}
	fallback := &Step{
		Kind:         StepKindOperation,
		ID:           next.NextStepID(),
		EntityType:   "Node",
		Dependents:   map[int]bool{},
		Requirements: map[string]*Requirement{},
		SourcePath:   []string{responseName},
		TargetPath:   []string{responseName},
		Definition: &ast.OperationDefinition{
			Operation: ast.Query,
			Name:      identName(fmt.Sprintf("NodeFallback%d", stepID)),
			SelectionSet: []ast.Selection{&ast.Field{
				Name:         identName("node"),
				Arguments:    []*ast.Argument{{Name: identName("id"), Value: idValue}},
				SelectionSet: sharedSelections,
			}},
		},
	}
	next = next.AddOperationStep(fallback, item.EstimatedDepth)

	nodeFieldIdx, _ := next.StepByID(stepID)
	updatedNodeField := step.clone()
	updatedNodeField.Fallback = fallback
	next = next.ReplaceStep(nodeFieldIdx, updatedNodeField)

	types := sortedStringKeys(item.SubTypeFragments)
	if len(types) == 0 {
		types = ctx.Schema.PossibleTypes("Node")
	}

	nextBacklog := next.Backlog
	for i := len(types) - 1; i >= 0; i-- {
		typeName := types[i]
		path := selset.Path{selset.RootSegment(), selset.FieldSegment(responseName), selset.InlineFragmentSegment(typeName)}
		ss := newSelsetNode(typeName, path, item.SubTypeFragments[typeName])
		lookupItem := newNodeLookupWorkItem(stepID, typeName, ss, nil, item.EstimatedDepth)
		nextBacklog = nextBacklog.Push(lookupItem)
	}
	next = next.WithBacklog(nextBacklog)
	return next, nil
}

// idArgValue returns the value node bound to a node(...) field's `id`
// argument.
func idArgValue(field *ast.Field) (ast.Value, bool) {
	for _, arg := range field.Arguments {
		if arg.Name.String() == "id" {
			return arg.Value, true
		}
	}
	return nil, false
}
