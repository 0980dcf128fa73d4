package planner

import (
	"github.com/n9te9/graphql-parser/ast"
)

// StepKind discriminates the two plan-step shapes of spec §3.
type StepKind int

const (
	StepKindOperation StepKind = iota
	StepKindNodeField
)

// Step is the tagged variant of a completed plan step. Only the fields
// relevant to Kind are populated; this mirrors the teacher's StepV2 (a
// single struct covering StepTypeQuery/StepTypeEntity) generalized to the
// richer node-field/operation split spec §3 requires.
type Step struct {
	Kind StepKind
	ID   int

	// Operation step fields.
	Definition         *ast.OperationDefinition
	EntityType         string
	RootSelectionSetID int
	SelectionSetIDs    map[int]bool
	Dependents         map[int]bool
	Requirements       map[string]*Requirement
	SourcePath         []string
	TargetPath         []string
	Lookup             *lookupRef // nil unless this step resolves via a lookup
	SchemaName         string     // "" (null) for the fallback node query step

	// Node-field step fields.
	ResponseName string
	IDValueNode  ast.Value
	Conditions   []SkipIncludeCondition
	Branches     map[string]*Step // concrete type name -> operation step
	Fallback     *Step            // operation step, used when the runtime type is unknown
}

// lookupRef captures just enough about the lookup used to build a step so
// downstream rewriting/printing doesn't need the schema package.
type lookupRef struct {
	SchemaName string
	FieldName  string
	TargetType string
}

func (s *Step) isOperation() bool { return s.Kind == StepKindOperation }

// clone returns a shallow-ish copy of a step (operation or node-field) with
// fresh maps, so handlers can mutate a branch's copy without disturbing the
// plan node it branched from (spec §5: persistent / structurally shared —
// steps themselves are small enough that a full field copy suffices).
func (s *Step) clone() *Step {
	c := *s
	c.SelectionSetIDs = copyIntSet(s.SelectionSetIDs)
	c.Dependents = copyIntSet(s.Dependents)
	c.Requirements = make(map[string]*Requirement, len(s.Requirements))
	for k, v := range s.Requirements {
		c.Requirements[k] = v
	}
	if s.Branches != nil {
		c.Branches = make(map[string]*Step, len(s.Branches))
		for k, v := range s.Branches {
			c.Branches[k] = v
		}
	}
	return &c
}

func copyIntSet(src map[int]bool) map[int]bool {
	out := make(map[int]bool, len(src))
	for k, v := range src {
		out[k] = v
	}
	return out
}
