package planner

import "strings"

// comparePlanNodes implements the deterministic tie-break of spec §4.7,
// used both by the main loop to pick between equally-costed complete plans
// and by the priority queue to order equally-scored candidates.
func comparePlanNodes(a, b *PlanNode) int {
	if a.OperationStepCount != b.OperationStepCount {
		return a.OperationStepCount - b.OperationStepCount
	}
	if len(a.Steps) != len(b.Steps) {
		return len(a.Steps) - len(b.Steps)
	}
	for i := range a.Steps {
		if c := compareSteps(a.Steps[i], b.Steps[i]); c != 0 {
			return c
		}
	}
	return strings.Compare(a.SchemaName, b.SchemaName)
}

// compareSteps orders a pair of steps at the same position: step id, then
// schema name ordinal, then root selection-set id, then definition's
// selection count, then definition name ordinal. Operation steps rank
// before node-field steps at equal position.
func compareSteps(a, b *Step) int {
	if a.isOperation() != b.isOperation() {
		if a.isOperation() {
			return -1
		}
		return 1
	}
	if a.ID != b.ID {
		return a.ID - b.ID
	}
	if c := strings.Compare(a.SchemaName, b.SchemaName); c != 0 {
		return c
	}
	if a.RootSelectionSetID != b.RootSelectionSetID {
		return a.RootSelectionSetID - b.RootSelectionSetID
	}
	if c := selectionCount(a) - selectionCount(b); c != 0 {
		return c
	}
	return strings.Compare(definitionName(a), definitionName(b))
}

func selectionCount(s *Step) int {
	if s.Definition == nil {
		return 0
	}
	return len(s.Definition.SelectionSet)
}

func definitionName(s *Step) string {
	if s.Definition == nil || s.Definition.Name == nil {
		return ""
	}
	return s.Definition.Name.String()
}
