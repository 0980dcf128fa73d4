package planner_test

import (
	"context"
	"sort"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/n9te9/graphql-parser/ast"
	"github.com/n9te9/graphql-parser/lexer"
	"github.com/n9te9/graphql-parser/parser"

	"github.com/n9te9/fusion-query-planner/planner"
	"github.com/n9te9/fusion-query-planner/schema"
)

func mustComposite(t *testing.T, sdls map[string]string) *schema.Composite {
	t.Helper()
	bytes := make(map[string][]byte, len(sdls))
	for name, src := range sdls {
		bytes[name] = []byte(src)
	}
	c, err := schema.NewComposite(bytes)
	if err != nil {
		t.Fatalf("NewComposite: %v", err)
	}
	return c
}

func parseOperation(t *testing.T, src string) *ast.OperationDefinition {
	t.Helper()
	l := lexer.New(src)
	p := parser.New(l)
	doc := p.ParseDocument()
	if len(p.Errors()) > 0 {
		t.Fatalf("parse errors: %v", p.Errors())
	}
	for _, def := range doc.Definitions {
		if op, ok := def.(*ast.OperationDefinition); ok {
			return op
		}
	}
	t.Fatalf("no operation definition found in %q", src)
	return nil
}

func newTestPlanner(t *testing.T, c *schema.Composite) *planner.OperationPlanner {
	t.Helper()
	return planner.NewOperationPlanner(planner.PlannerConfig{
		Schema:      c,
		Partitioner: schema.NewSelectionPartitioner(c),
	})
}

// fieldNames collects the top-level response names of sel, in order, for
// shallow shape assertions.
func fieldNames(sel []ast.Selection) []string {
	var out []string
	for _, s := range sel {
		if f, ok := s.(*ast.Field); ok {
			out = append(out, f.Name.String())
		}
	}
	return out
}

func containsName(names []string, want string) bool {
	for _, n := range names {
		if n == want {
			return true
		}
	}
	return false
}

func sortedSchemaNames(steps []*planner.Step) []string {
	var names []string
	for _, s := range steps {
		if s.SchemaName != "" {
			names = append(names, s.SchemaName)
		}
	}
	sort.Strings(names)
	return names
}

func TestCreatePlanSingleSchemaQueryHasOneStep(t *testing.T) {
	c := mustComposite(t, map[string]string{
		"s1": `
			type Query { a: A }
			type A { id: ID! x: Int y: Int }
		`,
	})
	p := newTestPlanner(t, c)
	op := parseOperation(t, `query { a { x y } }`)

	plan, err := p.CreatePlan(context.Background(), "req-1", "hash-1", "short-1", op)
	if err != nil {
		t.Fatalf("CreatePlan: %v", err)
	}
	if plan.OperationStepCount != 1 {
		t.Fatalf("OperationStepCount = %d, want 1 for a single-schema query", plan.OperationStepCount)
	}
	if len(plan.Steps) != 1 {
		t.Fatalf("len(Steps) = %d, want 1", len(plan.Steps))
	}
	step := plan.Steps[0]
	if step.SchemaName != "s1" {
		t.Fatalf("step.SchemaName = %q, want s1", step.SchemaName)
	}
	aField := step.Definition.SelectionSet[0].(*ast.Field)
	names := fieldNames(aField.SelectionSet)
	if !containsName(names, "x") || !containsName(names, "y") {
		t.Fatalf("expected both x and y resolved on the single schema, got %v", names)
	}
}

// Scenario: A.x lives on s1, A.y lives on s2, reached via a root field "a".
// s2 exposes aById(id: ID!): A @lookup. The planner must key the lookup off
// A's own id (not y's scalar return type) and merge the lookup's id
// requirement back as a sibling of x, not as a new top-level field.
func TestCreatePlanCrossSchemaNestedFieldUsesLookup(t *testing.T) {
	c := mustComposite(t, map[string]string{
		"s1": `
			type Query { a: A }
			type A { id: ID! x: Int }
		`,
		"s2": `
			type A { id: ID! y: Int }
			type Query { aById(id: ID!): A @lookup }
		`,
	})
	p := newTestPlanner(t, c)
	op := parseOperation(t, `query { a { x y } }`)

	plan, err := p.CreatePlan(context.Background(), "req-2", "hash-2", "short-2", op)
	if err != nil {
		t.Fatalf("CreatePlan: %v", err)
	}
	if plan.OperationStepCount != 2 {
		t.Fatalf("OperationStepCount = %d, want 2 (one per schema)", plan.OperationStepCount)
	}

	var s1Step, s2Step *planner.Step
	for _, s := range plan.Steps {
		switch s.SchemaName {
		case "s1":
			s1Step = s
		case "s2":
			s2Step = s
		}
	}
	if s1Step == nil || s2Step == nil {
		t.Fatalf("expected one step on each of s1 and s2, got schemas %v", sortedSchemaNames(plan.Steps))
	}

	aField := s1Step.Definition.SelectionSet[0].(*ast.Field)
	if aField.Name.String() != "a" {
		t.Fatalf("s1 step's root field = %q, want a", aField.Name.String())
	}
	names := fieldNames(aField.SelectionSet)
	if !containsName(names, "x") {
		t.Fatalf("expected x resolved on s1, got %v", names)
	}
	if !containsName(names, "id") {
		t.Fatalf("expected the lookup key (id) merged as a sibling of x on s1, got %v", names)
	}
	if containsName(names, "y") {
		t.Fatalf("y must not be resolved on s1, got %v", names)
	}

	if s2Step.Lookup == nil || s2Step.Lookup.FieldName != "aById" {
		t.Fatalf("expected s2's step to resolve via the aById lookup, got %+v", s2Step.Lookup)
	}
	lookupField := s2Step.Definition.SelectionSet[0].(*ast.Field)
	if lookupField.Name.String() != "aById" {
		t.Fatalf("s2 step's root field = %q, want aById", lookupField.Name.String())
	}
	s2Names := fieldNames(lookupField.SelectionSet)
	if !containsName(s2Names, "y") {
		t.Fatalf("expected y resolved on s2 via the lookup, got %v", s2Names)
	}
	if len(s2Step.Requirements) != 1 {
		t.Fatalf("expected exactly one bound requirement (the id key) on s2's step, got %+v", s2Step.Requirements)
	}
}

// Mutations slice their root selection set into one step per root field, in
// document order, so a downstream executor can run them sequentially.
func TestCreatePlanMutationOrdersRootFieldsByDocumentOrder(t *testing.T) {
	c := mustComposite(t, map[string]string{
		"s1": `
			type Mutation {
				createA(name: String!): A
				createB(name: String!): B
			}
			type A { id: ID! name: String }
			type B { id: ID! name: String }
		`,
	})
	p := newTestPlanner(t, c)
	op := parseOperation(t, `mutation { createA(name: "a") { id } createB(name: "b") { id } }`)

	plan, err := p.CreatePlan(context.Background(), "req-3", "hash-3", "short-3", op)
	if err != nil {
		t.Fatalf("CreatePlan: %v", err)
	}
	if plan.OperationStepCount != 2 {
		t.Fatalf("OperationStepCount = %d, want 2 (one per root mutation field)", plan.OperationStepCount)
	}

	var ops []*planner.Step
	for _, s := range plan.Steps {
		if s.Kind == planner.StepKindOperation {
			ops = append(ops, s)
		}
	}
	sort.Slice(ops, func(i, j int) bool { return ops[i].ID < ops[j].ID })

	firstField := ops[0].Definition.SelectionSet[0].(*ast.Field)
	secondField := ops[1].Definition.SelectionSet[0].(*ast.Field)
	if firstField.Name.String() != "createA" {
		t.Fatalf("first step by id should resolve createA (document order), got %q", firstField.Name.String())
	}
	if secondField.Name.String() != "createB" {
		t.Fatalf("second step by id should resolve createB, got %q", secondField.Name.String())
	}
}

// A Relay node(id:) root field dispatches to a per-concrete-type branch plus
// a fallback step for when the runtime type doesn't match any named fragment.
func TestCreatePlanNodeFieldDispatchesPerTypeAndFallback(t *testing.T) {
	c := mustComposite(t, map[string]string{
		"s1": `
			interface Node { id: ID! }
			type Product implements Node {
				id: ID!
				name: String
			}
			type Query {
				node(id: ID!): Node
				productById(id: ID!): Product @lookup
			}
		`,
	})
	p := newTestPlanner(t, c)
	op := parseOperation(t, `query { node(id: "abc") { id ... on Product { name } } }`)

	plan, err := p.CreatePlan(context.Background(), "req-4", "hash-4", "short-4", op)
	if err != nil {
		t.Fatalf("CreatePlan: %v", err)
	}

	var nodeStep *planner.Step
	for _, s := range plan.Steps {
		if s.Kind == planner.StepKindNodeField {
			nodeStep = s
		}
	}
	if nodeStep == nil {
		t.Fatalf("expected a NodeField step among %+v", plan.Steps)
	}
	if nodeStep.Fallback == nil {
		t.Fatalf("expected the node field to carry a fallback operation step")
	}
	if nodeStep.Branches["Product"] == nil {
		t.Fatalf("expected a Product branch bound via productById, got branches %+v", nodeStep.Branches)
	}
	if nodeStep.Branches["Product"].Lookup == nil || nodeStep.Branches["Product"].Lookup.FieldName != "productById" {
		t.Fatalf("expected the Product branch to resolve via productById, got %+v", nodeStep.Branches["Product"].Lookup)
	}
}

// stepShape reduces a Step to the plain, cmp-friendly fields spec §8's
// determinism property cares about, sidestepping ast.Node's unexported
// lexer/position state that cmp.Diff can't see into.
type stepShape struct {
	Kind               planner.StepKind
	ID                 int
	SchemaName         string
	EntityType         string
	RootSelectionSetID int
	Dependents         []int
	RequirementKeys    []string
	Branches           []string
}

func shapeOfStep(s *planner.Step) stepShape {
	shape := stepShape{
		Kind:               s.Kind,
		ID:                 s.ID,
		SchemaName:         s.SchemaName,
		EntityType:         s.EntityType,
		RootSelectionSetID: s.RootSelectionSetID,
	}
	for id := range s.Dependents {
		shape.Dependents = append(shape.Dependents, id)
	}
	sort.Ints(shape.Dependents)
	for key := range s.Requirements {
		shape.RequirementKeys = append(shape.RequirementKeys, key)
	}
	sort.Strings(shape.RequirementKeys)
	for typeName := range s.Branches {
		shape.Branches = append(shape.Branches, typeName)
	}
	sort.Strings(shape.Branches)
	return shape
}

// planShape reduces an OperationPlan to its cmp-comparable shape: spec §8's
// "planning the same operation twice produces byte-identical plans" is
// checked here via structural comparison rather than the byte-identical AST
// (go-cmp can't see into the parser's unexported node fields).
type planShape struct {
	OperationType      ast.OperationType
	OperationStepCount int
	MaxDepth           int
	ExecutionOrder     []int
	Steps              []stepShape
}

func shapeOfPlan(p *planner.OperationPlan) planShape {
	shape := planShape{
		OperationType:      p.OperationType,
		OperationStepCount: p.OperationStepCount,
		MaxDepth:           p.MaxDepth,
		ExecutionOrder:     p.ExecutionOrder,
	}
	for _, s := range p.Steps {
		shape.Steps = append(shape.Steps, shapeOfStep(s))
	}
	return shape
}

// Spec §8 "round-trip / idempotence": planning the same operation twice with
// the same inputs and options produces byte-identical plans.
func TestCreatePlanIsDeterministicAcrossRepeatedCalls(t *testing.T) {
	c := mustComposite(t, map[string]string{
		"s1": `
			type Query { a: A }
			type A { id: ID! x: Int }
		`,
		"s2": `
			type A { id: ID! y: Int }
			type Query { aById(id: ID!): A @lookup }
		`,
	})
	p := newTestPlanner(t, c)
	op := parseOperation(t, `query { a { x y } }`)

	first, err := p.CreatePlan(context.Background(), "req-5a", "hash-5", "short-5", op)
	if err != nil {
		t.Fatalf("CreatePlan (first): %v", err)
	}
	second, err := p.CreatePlan(context.Background(), "req-5b", "hash-5", "short-5", op)
	if err != nil {
		t.Fatalf("CreatePlan (second): %v", err)
	}

	if diff := cmp.Diff(shapeOfPlan(first), shapeOfPlan(second)); diff != "" {
		t.Fatalf("plan shape differs across repeated CreatePlan calls (-first +second):\n%s", diff)
	}
}
