package schema

import (
	"github.com/n9te9/graphql-parser/ast"

	"github.com/n9te9/fusion-query-planner/selset"
)

// PartitionInput is the main selection-set partitioner's input, spec §6.
type PartitionInput struct {
	SchemaName   string
	ParentType   string
	SelectionSet []ast.Selection
	Path         selset.Path
	Index        *selset.Builder
}

// PartitionOutput is the main selection-set partitioner's output, spec §6.
// Resolvable is nil when nothing in the selection set can be served by
// SchemaName — callers must treat that as "abandon this branch".
type PartitionOutput struct {
	Resolvable            []ast.Selection
	Unresolvable          []*selset.Node // pushed as a stack: index 0 popped first
	FieldsWithRequirements []*selset.FieldSelection

	// CoveredSelectionSetIDs collects the id of every nested entity position
	// (a field with its own sub-selection) this partition resolved, so the
	// caller can record which selection-set ids a step covers beyond its own
	// root — needed so a later requirement can be merged back at the right
	// nesting level instead of always the step's top level.
	CoveredSelectionSetIDs map[int]bool
}

// SelectionPartitioner is the main selection-set partitioner of spec §6.
type SelectionPartitioner interface {
	Partition(in PartitionInput) (PartitionOutput, error)
}

type defaultPartitioner struct {
	schema *Composite
}

// NewSelectionPartitioner returns the main partitioner backed by the given
// composite schema, splitting a selection set into the part SchemaName can
// resolve directly, the parts it cannot (pushed back for other schemas), and
// the fields it owns but which carry cross-schema requirements.
func NewSelectionPartitioner(schema *Composite) SelectionPartitioner {
	return &defaultPartitioner{schema: schema}
}

func (p *defaultPartitioner) Partition(in PartitionInput) (PartitionOutput, error) {
	var out PartitionOutput

	for _, sel := range in.SelectionSet {
		field, ok := sel.(*ast.Field)
		if !ok {
			continue // fragments are expected to already be expanded by the caller
		}
		fieldName := field.Name.String()
		if fieldName == "__typename" {
			out.Resolvable = append(out.Resolvable, field)
			continue
		}

		res, known := p.schema.TryFieldResolution(in.ParentType, fieldName)
		if !known {
			continue
		}

		responseName := selset.ResponseNameOf(field)
		fieldPath := in.Path.Append(selset.FieldSegment(responseName))

		if !res.ContainsSchema(in.SchemaName) {
			// Owned elsewhere: queue the whole sub-selection (or, for a
			// scalar leaf, the bare field) as unresolvable on this schema.
			//
			// At the operation root (in.Path is just the Root segment) there
			// is no established entity to re-attach to, so the type to look
			// up is the field's own return type. Nested inside an
			// already-partially-resolvable entity, the field belongs to that
			// entity (in.ParentType at in.Path) — re-fetching it elsewhere
			// means looking up the SAME entity, not the field's return type,
			// so the result merges back as a sibling of whatever this schema
			// already resolved.
			var node *selset.Node
			if len(in.Path) <= 1 {
				childType, _ := p.schema.FieldTypeName(in.ParentType, fieldName)
				node = &selset.Node{ParentType: childType, Path: fieldPath, Selections: []ast.Selection{field}}
			} else {
				node = &selset.Node{ParentType: in.ParentType, Path: in.Path, Selections: []ast.Selection{field}}
			}
			in.Index.Register(node)
			out.Unresolvable = append(out.Unresolvable, node)
			continue
		}

		if res.HasRequirements(in.SchemaName) {
			childType, _ := p.schema.FieldTypeName(in.ParentType, fieldName)
			var ssID int
			if len(field.SelectionSet) > 0 {
				node := &selset.Node{ParentType: childType, Path: fieldPath, Selections: field.SelectionSet}
				ssID = in.Index.Register(node)
			}
			out.FieldsWithRequirements = append(out.FieldsWithRequirements, &selset.FieldSelection{
				Field:          field,
				ResponseName:   responseName,
				DeclaringType:  in.ParentType,
				ComputedType:   childType,
				SelectionSetID: ssID,
				Path:           fieldPath,
			})
			continue
		}

		// Resolvable here outright; recurse into children on the same schema.
		if len(field.SelectionSet) == 0 {
			out.Resolvable = append(out.Resolvable, field)
			continue
		}
		childType, err := p.schema.FieldTypeName(in.ParentType, fieldName)
		if err != nil {
			return out, err
		}
		childOut, err := p.Partition(PartitionInput{
			SchemaName:   in.SchemaName,
			ParentType:   childType,
			SelectionSet: field.SelectionSet,
			Path:         fieldPath,
			Index:        in.Index,
		})
		if err != nil {
			return out, err
		}
		out.Unresolvable = append(out.Unresolvable, childOut.Unresolvable...)
		out.FieldsWithRequirements = append(out.FieldsWithRequirements, childOut.FieldsWithRequirements...)

		// Register this field's own position after its children are
		// resolved, so a later requirement targeting this exact entity can
		// find it again by path (selset.Builder.IDForPath always resolves to
		// the most-recently-registered node at a path).
		if out.CoveredSelectionSetIDs == nil {
			out.CoveredSelectionSetIDs = map[int]bool{}
		}
		fieldSSID := in.Index.Register(&selset.Node{ParentType: childType, Path: fieldPath, Selections: field.SelectionSet})
		out.CoveredSelectionSetIDs[fieldSSID] = true
		for id := range childOut.CoveredSelectionSetIDs {
			out.CoveredSelectionSetIDs[id] = true
		}

		newField := &ast.Field{Alias: field.Alias, Name: field.Name, Arguments: field.Arguments, Directives: field.Directives}
		newField.SelectionSet = childOut.Resolvable
		out.Resolvable = append(out.Resolvable, newField)
	}

	if len(out.Resolvable) == 0 {
		out.Resolvable = nil
	}
	return out, nil
}

// TypePartitionInput is the selection-set-by-type partitioner's input.
type TypePartitionInput struct {
	SelectionSet []ast.Selection // selections under a node(...) field, possibly with inline fragments
	Path         selset.Path
	Index        *selset.Builder
}

// TypePartitionOutput is the selection-set-by-type partitioner's output.
type TypePartitionOutput struct {
	Shared         []ast.Selection // selections shared by every concrete type (not inside a type condition)
	SelectionsByType map[string][]ast.Selection
}

// TypePartitioner is the selection-set-by-type partitioner of spec §6.
type TypePartitioner interface {
	PartitionByType(in TypePartitionInput) (TypePartitionOutput, error)
}

type defaultTypePartitioner struct{}

// NewTypePartitioner returns the by-type partitioner used for node(id:) field
// handling (spec §4.5 handler (e)).
func NewTypePartitioner() TypePartitioner { return &defaultTypePartitioner{} }

func (defaultTypePartitioner) PartitionByType(in TypePartitionInput) (TypePartitionOutput, error) {
	out := TypePartitionOutput{SelectionsByType: make(map[string][]ast.Selection)}
	for _, sel := range in.SelectionSet {
		switch s := sel.(type) {
		case *ast.InlineFragment:
			typeName := s.TypeCondition.Name.String()
			out.SelectionsByType[typeName] = append(out.SelectionsByType[typeName], s.SelectionSet...)
		default:
			out.Shared = append(out.Shared, sel)
		}
	}
	return out, nil
}

// NodeRootInput is the node-field root partitioner's input.
type NodeRootInput struct {
	SelectionSet []ast.Selection // the operation's root selection set
	Index        *selset.Builder
}

// NodeField is one `node(id: ...)` root field extracted from the operation.
type NodeField struct {
	Field *ast.Field
}

// NodeRootOutput is the node-field root partitioner's output.
type NodeRootOutput struct {
	SelectionSet []ast.Selection // non-node root selections, nil if none remain
	NodeFields   []NodeField
}

// NodeRootPartitioner is the node-field root partitioner of spec §6.
type NodeRootPartitioner interface {
	PartitionNodeRoot(in NodeRootInput) (NodeRootOutput, error)
}

type defaultNodeRootPartitioner struct{}

// NewNodeRootPartitioner returns the partitioner that separates Relay
// `node(...)` root selections from the rest (spec §4.5 "Seeding").
func NewNodeRootPartitioner() NodeRootPartitioner { return &defaultNodeRootPartitioner{} }

func (defaultNodeRootPartitioner) PartitionNodeRoot(in NodeRootInput) (NodeRootOutput, error) {
	var out NodeRootOutput
	for _, sel := range in.SelectionSet {
		field, ok := sel.(*ast.Field)
		if ok && field.Name.String() == "node" {
			out.NodeFields = append(out.NodeFields, NodeField{Field: field})
			continue
		}
		out.SelectionSet = append(out.SelectionSet, sel)
	}
	return out, nil
}
