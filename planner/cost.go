package planner

import (
	"github.com/n9te9/graphql-parser/ast"

	"github.com/n9te9/fusion-query-planner/schema"
)

// scoreNode is the priority-queue key of spec §4.3:
//
//	scoreNode(n, schema) = n.totalCost + tweak(peek(n.backlog))
func scoreNode(n *PlanNode, sch schema.CompositeSchema) float64 {
	return n.TotalCost + tweak(n, sch)
}

func tweak(n *PlanNode, sch schema.CompositeSchema) float64 {
	item := n.Backlog.Peek()
	if item == nil {
		return 0
	}

	switch item.Kind {
	case WorkItemRoot, WorkItemLookup:
		return float64(spillover(item.SelectionSet.Selections, item.SelectionSet.ParentType, n.SchemaName, sch)) * perOperationStepCost
	case WorkItemFieldRequirement:
		if item.FieldLookup != nil {
			return 0
		}
		if anyExistingStepCoversSelectionSet(n, item.Field.SelectionSetID) {
			return 0
		}
		return perOperationStepCost - perInlineLikelyCost
	default:
		return 0
	}
}

// spillover counts the distinct *other* source schemas that own fields
// schemaName cannot serve in selectionSet, incrementing a sentinel bucket
// when schemaName owns the field outright but only with requirements
// attached (spec §4.3, requirementSpilloverMarker).
func spillover(selections []ast.Selection, parentType, schemaName string, sch schema.CompositeSchema) int {
	others := map[string]bool{}
	for _, sel := range selections {
		field, ok := sel.(*ast.Field)
		if !ok {
			continue
		}
		fieldName := field.Name.String()
		if fieldName == "__typename" {
			continue
		}
		res, known := sch.TryFieldResolution(parentType, fieldName)
		if !known {
			continue
		}
		if res.ContainsSchema(schemaName) {
			if res.HasRequirements(schemaName) {
				others[requirementSpilloverMarker] = true
			}
			continue
		}
		for _, other := range res.Schemas() {
			others[other] = true
		}
	}
	return len(others)
}

// anyExistingStepCoversSelectionSet reports whether some already-built
// operation step covers selectionSetID, meaning a field-requirement work
// item targeting it could be inlined essentially for free.
func anyExistingStepCoversSelectionSet(n *PlanNode, selectionSetID int) bool {
	if selectionSetID == 0 {
		return false
	}
	for _, s := range n.Steps {
		if s.Kind != StepKindOperation {
			continue
		}
		if s.SelectionSetIDs[selectionSetID] {
			return true
		}
	}
	return false
}

// addWorkItemCost increments bc by the cheapest possible completion of w
// (spec §4.3) and records its projected contribution to per-depth fan-out
// for every item kind that is guaranteed to produce an operation step.
func addWorkItemCost(bc BacklogCost, w *WorkItem) BacklogCost {
	out := bc.clone()

	switch w.Kind {
	case WorkItemRoot, WorkItemLookup:
		out.MinCost += perOperationStepCost
		projectOpsAtDepth(&out, w.EstimatedDepth, 1)
	case WorkItemFieldRequirement:
		if w.FieldLookup != nil {
			out.MinCost += perRequirementLookup
			projectOpsAtDepth(&out, w.EstimatedDepth, 1)
		} else {
			out.MinCost += perInlineLikelyCost
		}
	case WorkItemNodeField:
		branchCount := len(w.SubTypeFragments)
		out.MinCost += perOperationStepCost + float64(branchCount)*perOperationStepCost
		projectOpsAtDepth(&out, w.EstimatedDepth, 1+branchCount)
	case WorkItemNodeLookup:
		out.MinCost += perOperationStepCost
		projectOpsAtDepth(&out, w.EstimatedDepth, 1)
	default:
		out.MinCost += perInlineLikelyCost
	}

	return out
}

// removeWorkItemCost is the inverse of addWorkItemCost: it undoes the cost
// and fan-out projection recorded when w was pushed, clamping MinCost at
// zero (spec invariant 1) and recomputing MaxProjectedDepth when the removed
// depth was the max.
func removeWorkItemCost(bc BacklogCost, w *WorkItem) BacklogCost {
	out := bc.clone()

	var delta float64
	var opsDelta int
	switch w.Kind {
	case WorkItemRoot, WorkItemLookup:
		delta = perOperationStepCost
		opsDelta = 1
	case WorkItemFieldRequirement:
		if w.FieldLookup != nil {
			delta = perRequirementLookup
			opsDelta = 1
		} else {
			delta = perInlineLikelyCost
		}
	case WorkItemNodeField:
		branchCount := len(w.SubTypeFragments)
		delta = perOperationStepCost + float64(branchCount)*perOperationStepCost
		opsDelta = 1 + branchCount
	case WorkItemNodeLookup:
		delta = perOperationStepCost
		opsDelta = 1
	default:
		delta = perInlineLikelyCost
	}

	out.MinCost -= delta
	if out.MinCost < 0 {
		out.MinCost = 0
	}

	if opsDelta != 0 {
		unprojectOpsAtDepth(&out, w.EstimatedDepth, opsDelta)
	}

	return out
}

func projectOpsAtDepth(bc *BacklogCost, depth, count int) {
	bc.ProjectedOpsPerLevel[depth] += count
	if depth > bc.MaxProjectedDepth {
		bc.MaxProjectedDepth = depth
	}
}

func unprojectOpsAtDepth(bc *BacklogCost, depth, count int) {
	remaining := bc.ProjectedOpsPerLevel[depth] - count
	if remaining <= 0 {
		delete(bc.ProjectedOpsPerLevel, depth)
	} else {
		bc.ProjectedOpsPerLevel[depth] = remaining
	}

	if depth == bc.MaxProjectedDepth {
		max := 0
		for d := range bc.ProjectedOpsPerLevel {
			if d > max {
				max = d
			}
		}
		bc.MaxProjectedDepth = max
	}
}

// estimateRemainingCost computes the admissible lower bound h(n) of spec
// §4.3: the backlog's committed minimum cost, plus depth growth the backlog
// still owes, plus only the *additional* fan-out excess the backlog's
// projected ops would add at each depth (never double-charging fan-out
// already reflected in currentOpsPerLevel).
func estimateRemainingCost(opts Options, currentMaxDepth int, currentOpsPerLevel map[int]int, bc BacklogCost) float64 {
	total := bc.MinCost

	if d := bc.MaxProjectedDepth - currentMaxDepth; d > 0 {
		total += float64(d) * opts.DepthWeight
	}

	threshold := opts.FanoutPenaltyThreshold
	depths := make(map[int]bool, len(bc.ProjectedOpsPerLevel)+len(currentOpsPerLevel))
	for d := range bc.ProjectedOpsPerLevel {
		depths[d] = true
	}
	for d := range currentOpsPerLevel {
		depths[d] = true
	}

	for d := range depths {
		currentAtDepth := currentOpsPerLevel[d]
		projectedAtDepth := bc.ProjectedOpsPerLevel[d]

		before := excess(currentAtDepth, threshold)
		after := excess(currentAtDepth+projectedAtDepth, threshold)
		if after > before {
			total += float64(after-before) * opts.ExcessFanoutWeight
		}
	}

	return total
}

func excess(count, threshold int) int {
	if count > threshold {
		return count - threshold
	}
	return 0
}
