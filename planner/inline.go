package planner

import (
	"github.com/n9te9/graphql-parser/ast"

	"github.com/n9te9/fusion-query-planner/schema"
)

// inlineLookupRequirements implements spec §4.5 handler (b): before the
// lookup's own operation step exists, try to satisfy its requirement
// selections by merging them into existing steps on other schemas, pushing
// whatever remains back onto the backlog as new lookup work items, and
// always recording the original requirement selections on the plan's
// internal operation definition.
//
// consumerStepID is the id the caller is about to assign the lookup's own
// operation step (predicted via PlanNode.NextStepID before it is built).
func inlineLookupRequirements(n *PlanNode, backlog Backlog, item *WorkItem, lookup *schema.Lookup, consumerStepID int, ctx *planContext) (*PlanNode, Backlog, error) {
	remaining := requirementSelectionsOf(lookup)
	if len(remaining) == 0 {
		return n, backlog, nil
	}

	node := n
	parentDepth := item.ParentDepth

	// The requirement selections belong at item.SelectionSet's own position
	// (e.g. the entity the lookup's key data hangs off of), not necessarily
	// at a candidate step's top level — look that position's id up once so
	// the merge target and the "does this step cover it" filter agree.
	targetSelectionSetID, _ := node.Index.IDForPath(item.SelectionSet.Path)

	for _, step := range node.Steps {
		if len(remaining) == 0 {
			break
		}
		if step.Kind != StepKindOperation || step.SchemaName == lookup.SchemaName {
			continue
		}
		mergeTargetID := step.RootSelectionSetID
		if targetSelectionSetID != 0 {
			if !step.SelectionSetIDs[targetSelectionSetID] {
				continue
			}
			mergeTargetID = targetSelectionSetID
		}

		builder := node.Index.Builder()
		partOut, err := ctx.Partitioner.Partition(schema.PartitionInput{
			SchemaName:   step.SchemaName,
			ParentType:   item.SelectionSet.ParentType,
			SelectionSet: remaining,
			Path:         item.SelectionSet.Path,
			Index:        builder,
		})
		if err != nil {
			return nil, backlog, externalFailure("inlineLookupRequirements.partition", err)
		}
		if partOut.Resolvable == nil {
			continue
		}

		newDef, err := InlineSelections(step.Definition, builder, rootTypeForStep(node, step), mergeTargetID, partOut.Resolvable, false)
		if err != nil {
			return nil, backlog, err
		}

		updated := step.clone()
		updated.Definition = newDef

		stepIdx, _ := node.StepByID(step.ID)
		node = node.WithIndexBuilder(builder)
		node = node.ReplaceStep(stepIdx, updated)
		node = addDependent(node, step.ID, consumerStepID)

		remaining = flattenUnresolvable(partOut.Unresolvable)
		for _, fr := range partOut.FieldsWithRequirements {
			remaining = append(remaining, fr.Field)
		}
		_ = parentDepth
	}

	if len(remaining) > 0 {
		residualNode := newSelsetNode(item.SelectionSet.ParentType, item.SelectionSet.Path, remaining)
		builder := node.Index.Builder()
		builder.Register(residualNode)
		node = node.WithIndexBuilder(builder)

		residualItem := newOperationWorkItem(WorkItemLookup, residualNode, nil, node.SchemaName, item.ParentDepth)
		residualItem.Dependents[consumerStepID] = true
		backlog = backlog.Push(residualItem)
	}

	if targetID := node.Index.GetID(item.SelectionSet); targetID != 0 {
		builder := node.Index.Builder()
		internalDef, err := InlineSelections(node.InternalOperationDefinition, builder, rootTypeOf(node), targetID, requirementSelectionsOf(lookup), true)
		if err == nil {
			node = node.WithIndexBuilder(builder)
			node = node.withInternalDefinition(internalDef)
		}
	}

	return node, backlog, nil
}

// TryInlineFieldRequirements implements the shared contract of spec §4.5
// handlers (b)/(c) for a single field's requirement selections: find an
// existing step able to serve them, on a different schema than the one
// currently being planned, that is neither the owning step itself nor
// transitively dependent on it (cycle avoidance).
func TryInlineFieldRequirements(n *PlanNode, owningStepID int, parentType string, requirementSelections []ast.Selection, excludeSchema string, ctx *planContext) (*PlanNode, []ast.Selection, bool) {
	remaining := requirementSelections

	for _, step := range n.Steps {
		if len(remaining) == 0 {
			break
		}
		if step.Kind != StepKindOperation {
			continue
		}
		if step.SchemaName == excludeSchema {
			continue
		}
		if dependsOn(n, step.ID, owningStepID) {
			continue
		}

		builder := n.Index.Builder()
		partOut, err := ctx.Partitioner.Partition(schema.PartitionInput{
			SchemaName:   step.SchemaName,
			ParentType:   parentType,
			SelectionSet: remaining,
			Index:        builder,
		})
		if err != nil || partOut.Resolvable == nil {
			continue
		}

		newDef, err := InlineSelections(step.Definition, builder, rootTypeForStep(n, step), step.RootSelectionSetID, partOut.Resolvable, false)
		if err != nil {
			continue
		}

		updated := step.clone()
		updated.Definition = newDef
		stepIdx, _ := n.StepByID(step.ID)
		n = n.WithIndexBuilder(builder)
		n = n.ReplaceStep(stepIdx, updated)
		n = addDependent(n, step.ID, owningStepID)

		remaining = flattenUnresolvable(partOut.Unresolvable)
		for _, fr := range partOut.FieldsWithRequirements {
			remaining = append(remaining, fr.Field)
		}
	}

	return n, remaining, len(remaining) < len(requirementSelections)
}

func rootTypeForStep(n *PlanNode, s *Step) string {
	if s.EntityType != "" {
		return s.EntityType
	}
	return rootTypeOf(n)
}

func rootTypeOf(n *PlanNode) string {
	switch n.OriginalOperationDefinition.Operation {
	case ast.Mutation:
		return "Mutation"
	case ast.Subscription:
		return "Subscription"
	default:
		return "Query"
	}
}

func (n *PlanNode) withInternalDefinition(def *ast.OperationDefinition) *PlanNode {
	c := n.clone()
	c.InternalOperationDefinition = def
	return c
}
