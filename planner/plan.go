package planner

import (
	"fmt"
	"sort"
	"strings"

	"github.com/n9te9/graphql-parser/ast"
)

// OperationPlan is the public result of spec §6 createPlan: a complete,
// immutable plan over one or more steps, ready for an execution layer to
// walk (respecting Step.Dependents) and dispatch.
type OperationPlan struct {
	ID             string
	OperationType  ast.OperationType
	Steps          []*Step
	ExecutionOrder []int // step ids in a dependency-respecting, deterministic order

	OperationStepCount  int
	MaxDepth            int
	OperationStepDepths map[int]int
	LastRequirementID   int
	TotalCost           float64

	// InternalDefinition is the client operation plus the lookup requirement
	// selections the planner injected in spec §4.6 internal mode, each field
	// tagged with fusion__requirement so requirement data can be told apart
	// from client-requested data.
	InternalDefinition *ast.OperationDefinition
}

// computeExecutionOrder topologically sorts steps by their Dependents edges
// (a step's Dependents are the steps that must run after it) via Kahn's
// algorithm, breaking ties by ascending step id for a deterministic result.
func computeExecutionOrder(steps []*Step) []int {
	indegree := make(map[int]int, len(steps))
	for _, s := range steps {
		if _, ok := indegree[s.ID]; !ok {
			indegree[s.ID] = 0
		}
		for dep := range s.Dependents {
			indegree[dep]++
		}
	}

	byID := make(map[int]*Step, len(steps))
	for _, s := range steps {
		byID[s.ID] = s
	}

	var ready []int
	for id, deg := range indegree {
		if deg == 0 {
			ready = append(ready, id)
		}
	}
	sort.Ints(ready)

	order := make([]int, 0, len(steps))
	for len(ready) > 0 {
		sort.Ints(ready)
		id := ready[0]
		ready = ready[1:]
		order = append(order, id)

		step := byID[id]
		if step == nil {
			continue
		}
		for dep := range step.Dependents {
			indegree[dep]--
			if indegree[dep] == 0 {
				ready = append(ready, dep)
			}
		}
	}
	return order
}

// StepByID finds a step of the finished plan by id, mirroring PlanNode's
// accessor for callers that only hold the OperationPlan.
func (p *OperationPlan) StepByID(id int) *Step {
	for _, s := range p.Steps {
		if s.ID == id {
			return s
		}
	}
	return nil
}

// String renders a deterministic, human-readable summary of the plan —
// intended for debugging and golden-file tests, not for wire transport.
func (p *OperationPlan) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Plan %s (%s, cost=%.2f, steps=%d, depth=%d)\n", p.ID, operationTypeLabel(p.OperationType), p.TotalCost, p.OperationStepCount, p.MaxDepth)

	steps := append([]*Step(nil), p.Steps...)
	sort.Slice(steps, func(i, j int) bool { return steps[i].ID < steps[j].ID })

	for _, s := range steps {
		writeStep(&b, s, "")
	}
	return b.String()
}

func writeStep(b *strings.Builder, s *Step, indent string) {
	switch s.Kind {
	case StepKindNodeField:
		fmt.Fprintf(b, "%s[%d] node field %q\n", indent, s.ID, s.ResponseName)
		for _, typeName := range sortedStringKeys(s.Branches) {
			fmt.Fprintf(b, "%s  -> %s:\n", indent, typeName)
			writeStep(b, s.Branches[typeName], indent+"    ")
		}
		if s.Fallback != nil {
			fmt.Fprintf(b, "%s  fallback:\n", indent)
			writeStep(b, s.Fallback, indent+"    ")
		}
	default:
		schemaName := s.SchemaName
		if schemaName == "" {
			schemaName = "<null>"
		}
		fmt.Fprintf(b, "%s[%d] operation schema=%s deps=%s\n", indent, s.ID, schemaName, depSetString(s.Dependents))
		if s.Definition != nil {
			fmt.Fprintf(b, "%s%s\n", indent+"  ", printOperationDefinition(s.Definition))
		}
	}
}

func depSetString(deps map[int]bool) string {
	ids := make([]int, 0, len(deps))
	for id := range deps {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = fmt.Sprintf("%d", id)
	}
	return "[" + strings.Join(parts, ",") + "]"
}

// printOperationDefinition renders an operation definition back to GraphQL
// text. It is a debug/test renderer, not a spec-compliant printer: it
// favors determinism (stable field order, no line wrapping) over exactly
// matching any particular formatter's style.
func printOperationDefinition(def *ast.OperationDefinition) string {
	var b strings.Builder
	b.WriteString(operationTypeLabel(def.Operation))
	if def.Name != nil && def.Name.String() != "" {
		b.WriteString(" ")
		b.WriteString(def.Name.String())
	}
	b.WriteString(" ")
	writeSelectionSet(&b, def.SelectionSet)
	return b.String()
}

func writeSelectionSet(b *strings.Builder, selections []ast.Selection) {
	b.WriteString("{ ")
	for i, sel := range selections {
		if i > 0 {
			b.WriteString(" ")
		}
		writeSelection(b, sel)
	}
	b.WriteString(" }")
}

func writeSelection(b *strings.Builder, sel ast.Selection) {
	switch s := sel.(type) {
	case *ast.Field:
		if s.Alias != nil && s.Alias.String() != "" {
			b.WriteString(s.Alias.String())
			b.WriteString(": ")
		}
		b.WriteString(s.Name.String())
		writeArguments(b, s.Arguments)
		writeDirectives(b, s.Directives)
		if len(s.SelectionSet) > 0 {
			b.WriteString(" ")
			writeSelectionSet(b, s.SelectionSet)
		}
	case *ast.InlineFragment:
		b.WriteString("... on ")
		b.WriteString(s.TypeCondition.Name.String())
		b.WriteString(" ")
		writeSelectionSet(b, s.SelectionSet)
	default:
		b.WriteString(fmt.Sprintf("%v", sel))
	}
}

func writeArguments(b *strings.Builder, args []*ast.Argument) {
	if len(args) == 0 {
		return
	}
	b.WriteString("(")
	for i, a := range args {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(a.Name.String())
		b.WriteString(": ")
		b.WriteString(printValue(a.Value))
	}
	b.WriteString(")")
}

func writeDirectives(b *strings.Builder, directives []*ast.Directive) {
	for _, d := range directives {
		b.WriteString(" @")
		b.WriteString(d.Name)
		writeArguments(b, d.Arguments)
	}
}

func printValue(v ast.Value) string {
	if v == nil {
		return "null"
	}
	if variable, ok := v.(*ast.Variable); ok {
		return "$" + variable.Name
	}
	if stringer, ok := v.(fmt.Stringer); ok {
		return stringer.String()
	}
	return fmt.Sprintf("%v", v)
}
