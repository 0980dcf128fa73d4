package planner

import (
	"testing"

	"github.com/n9te9/graphql-parser/ast"
)

func opStep(id int, schemaName string, rootID int, selCount int, defName string) *Step {
	def := &ast.OperationDefinition{
		Operation:    "query",
		SelectionSet: make([]ast.Selection, selCount),
	}
	if defName != "" {
		def.Name = &ast.Name{Value: defName}
	}
	return &Step{
		Kind:               StepKindOperation,
		ID:                 id,
		SchemaName:         schemaName,
		RootSelectionSetID: rootID,
		Definition:         def,
	}
}

func nodeFieldStep(id int) *Step {
	return &Step{Kind: StepKindNodeField, ID: id}
}

func TestCompareStepsOperationBeforeNodeField(t *testing.T) {
	op := opStep(1, "s1", 1, 1, "")
	nf := nodeFieldStep(1)
	if c := compareSteps(op, nf); c >= 0 {
		t.Fatalf("operation step should sort before a node-field step at equal position")
	}
	if c := compareSteps(nf, op); c <= 0 {
		t.Fatalf("comparison should be antisymmetric")
	}
}

func TestCompareStepsByID(t *testing.T) {
	a := opStep(1, "s1", 0, 0, "")
	b := opStep(2, "s1", 0, 0, "")
	if c := compareSteps(a, b); c >= 0 {
		t.Fatalf("lower step id should sort first")
	}
}

func TestCompareStepsBySchemaNameThenRootID(t *testing.T) {
	a := opStep(1, "s1", 2, 0, "")
	b := opStep(1, "s2", 1, 0, "")
	if c := compareSteps(a, b); c >= 0 {
		t.Fatalf("s1 should sort before s2 regardless of root selection set id")
	}

	c1 := opStep(1, "s1", 1, 0, "")
	c2 := opStep(1, "s1", 2, 0, "")
	if c := compareSteps(c1, c2); c >= 0 {
		t.Fatalf("with equal schema name, lower root selection set id should sort first")
	}
}

func TestCompareStepsBySelectionCountThenDefinitionName(t *testing.T) {
	a := opStep(1, "s1", 1, 1, "A")
	b := opStep(1, "s1", 1, 2, "A")
	if c := compareSteps(a, b); c >= 0 {
		t.Fatalf("fewer selections should sort first when everything else ties")
	}

	c1 := opStep(1, "s1", 1, 1, "A")
	c2 := opStep(1, "s1", 1, 1, "B")
	if c := compareSteps(c1, c2); c >= 0 {
		t.Fatalf("with equal selection count, lexically earlier definition name should sort first")
	}
}

func TestCompareStepsFullyEqualIsZero(t *testing.T) {
	a := opStep(1, "s1", 1, 1, "A")
	b := opStep(1, "s1", 1, 1, "A")
	if c := compareSteps(a, b); c != 0 {
		t.Fatalf("compareSteps(a,b) = %d, want 0 for identical steps", c)
	}
}

func TestComparePlanNodesByOperationStepCount(t *testing.T) {
	a := &PlanNode{OperationStepCount: 1}
	b := &PlanNode{OperationStepCount: 2}
	if c := comparePlanNodes(a, b); c >= 0 {
		t.Fatalf("fewer operation steps should sort first")
	}
}

func TestComparePlanNodesFallsThroughToSchemaName(t *testing.T) {
	a := &PlanNode{SchemaName: "s1"}
	b := &PlanNode{SchemaName: "s2"}
	if c := comparePlanNodes(a, b); c >= 0 {
		t.Fatalf("with identical step lists, SchemaName should decide the order")
	}
}

func TestComparePlanNodesStepByStep(t *testing.T) {
	a := &PlanNode{
		OperationStepCount: 1,
		Steps:              []*Step{opStep(1, "s1", 1, 1, "A")},
	}
	b := &PlanNode{
		OperationStepCount: 1,
		Steps:              []*Step{opStep(2, "s1", 1, 1, "A")},
	}
	if c := comparePlanNodes(a, b); c >= 0 {
		t.Fatalf("the first differing step should decide the order before falling back to SchemaName")
	}
}
