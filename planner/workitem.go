package planner

import (
	"github.com/n9te9/graphql-parser/ast"

	"github.com/n9te9/fusion-query-planner/schema"
	"github.com/n9te9/fusion-query-planner/selset"
)

// WorkItemKind discriminates the four work-item shapes of spec §3.
type WorkItemKind int

const (
	WorkItemRoot WorkItemKind = iota
	WorkItemLookup
	WorkItemFieldRequirement
	WorkItemNodeField
	WorkItemNodeLookup
)

func (k WorkItemKind) String() string {
	switch k {
	case WorkItemRoot:
		return "Root"
	case WorkItemLookup:
		return "Lookup"
	case WorkItemFieldRequirement:
		return "FieldRequirement"
	case WorkItemNodeField:
		return "NodeField"
	case WorkItemNodeLookup:
		return "NodeLookup"
	default:
		return "Unknown"
	}
}

// WorkItem is the tagged variant of spec §3: an unresolved planning
// obligation on the Backlog. Every field that is only meaningful for one
// variant is left at its zero value for the others; Kind always disambiguates.
type WorkItem struct {
	Kind WorkItemKind

	Dependents     map[int]bool // step ids that depend on this item's eventual step (copied into its Step.Dependents)
	ParentDepth    int
	EstimatedDepth int

	// Operation work item (Root, Lookup).
	SelectionSet *selset.Node
	Lookup       *schema.Lookup
	FromSchema   string

	// Field-requirement work item.
	Field       *selset.FieldSelection
	OwningStep  int
	FieldLookup *schema.Lookup // nil means "inline into siblings/parents"

	// Node-field work item.
	NodeField        *ast.Field
	SubTypeFragments map[string][]ast.Selection // typeName -> selections under that inline fragment
	Shared           []ast.Selection            // selections shared by every concrete type, for the fallback step
	Conditions       []SkipIncludeCondition

	// Node-lookup work item.
	NodeStepID   int // the NodeFieldPlanStep this belongs to
	ConcreteType string
	BoundLookup  *schema.Lookup
}

// SkipIncludeCondition is one extracted @skip/@include condition (spec §4.5
// handler (e)): the variable it reads and the boolean value that causes the
// field to be included.
type SkipIncludeCondition struct {
	VariableName  string
	Directive     string // "skip" or "include"
	PassingValue  bool
}

func cloneDependents(src map[int]bool) map[int]bool {
	out := make(map[int]bool, len(src))
	for k, v := range src {
		out[k] = v
	}
	return out
}

// newOperationWorkItem builds the work item for one root (or lookup) selection set.
func newOperationWorkItem(kind WorkItemKind, ss *selset.Node, lookup *schema.Lookup, fromSchema string, parentDepth int) *WorkItem {
	depth := 1
	if parentDepth > 0 {
		depth = parentDepth + 1
	}
	return &WorkItem{
		Kind:           kind,
		Dependents:     make(map[int]bool),
		ParentDepth:    parentDepth,
		EstimatedDepth: depth,
		SelectionSet:   ss,
		Lookup:         lookup,
		FromSchema:     fromSchema,
	}
}

func newFieldRequirementWorkItem(field *selset.FieldSelection, owningStep int, lookup *schema.Lookup, parentDepth int) *WorkItem {
	return &WorkItem{
		Kind:           WorkItemFieldRequirement,
		Dependents:     make(map[int]bool),
		ParentDepth:    parentDepth,
		EstimatedDepth: parentDepth + 1,
		Field:          field,
		OwningStep:     owningStep,
		FieldLookup:    lookup,
	}
}

func newNodeFieldWorkItem(field *ast.Field, subTypes map[string][]ast.Selection, shared []ast.Selection, conditions []SkipIncludeCondition, parentDepth int) *WorkItem {
	return &WorkItem{
		Kind:             WorkItemNodeField,
		Dependents:       make(map[int]bool),
		ParentDepth:      parentDepth,
		EstimatedDepth:   parentDepth + 1,
		NodeField:        field,
		SubTypeFragments: subTypes,
		Shared:           shared,
		Conditions:       conditions,
	}
}

func newNodeLookupWorkItem(nodeStepID int, concreteType string, ss *selset.Node, lookup *schema.Lookup, parentDepth int) *WorkItem {
	return &WorkItem{
		Kind:           WorkItemNodeLookup,
		Dependents:     make(map[int]bool),
		ParentDepth:    parentDepth,
		EstimatedDepth: parentDepth + 1,
		NodeStepID:     nodeStepID,
		ConcreteType:   concreteType,
		SelectionSet:   ss,
		BoundLookup:    lookup,
	}
}
