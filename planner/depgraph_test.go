package planner

import "testing"

func stepWithID(id int) *Step {
	return &Step{Kind: StepKindOperation, ID: id, Dependents: map[int]bool{}, Requirements: map[string]*Requirement{}}
}

func TestAddDependentRecordsOnTheIdentifiedStep(t *testing.T) {
	n := &PlanNode{Steps: []*Step{stepWithID(1), stepWithID(2)}}
	out := addDependent(n, 1, 2)

	_, step := out.StepByID(1)
	if !step.Dependents[2] {
		t.Fatalf("expected step 1 to record step 2 as a dependent, got %v", step.Dependents)
	}
	// The original node's step must be untouched (persistent update).
	_, orig := n.StepByID(1)
	if orig.Dependents[2] {
		t.Fatalf("addDependent must not mutate the original plan node's step")
	}
}

func TestAddDependentOnUnknownStepIsNoop(t *testing.T) {
	n := &PlanNode{Steps: []*Step{stepWithID(1)}}
	out := addDependent(n, 99, 2)
	if out != n {
		t.Fatalf("addDependent on an unknown prereq step should return n unchanged")
	}
}

func TestDependsOnDetectsDirectEdge(t *testing.T) {
	n := &PlanNode{Steps: []*Step{stepWithID(1), stepWithID(2)}}
	n = addDependent(n, 1, 2)

	if !dependsOn(n, 2, 1) {
		t.Fatalf("expected step 2 to depend on step 1")
	}
	if dependsOn(n, 1, 2) {
		t.Fatalf("step 1 should not depend on step 2")
	}
}

func TestDependsOnDetectsTransitiveEdge(t *testing.T) {
	n := &PlanNode{Steps: []*Step{stepWithID(1), stepWithID(2), stepWithID(3)}}
	n = addDependent(n, 1, 2)
	n = addDependent(n, 2, 3)

	if !dependsOn(n, 3, 1) {
		t.Fatalf("expected step 3 to transitively depend on step 1 via step 2")
	}
}

func TestDependsOnStepDependsOnItself(t *testing.T) {
	n := &PlanNode{Steps: []*Step{stepWithID(1)}}
	if !dependsOn(n, 1, 1) {
		t.Fatalf("a step should be considered to depend on itself (used to reject self-cycles)")
	}
}

func TestDependsOnUnrelatedStepsIsFalse(t *testing.T) {
	n := &PlanNode{Steps: []*Step{stepWithID(1), stepWithID(2)}}
	if dependsOn(n, 1, 2) {
		t.Fatalf("unrelated steps should not report a dependency")
	}
}
