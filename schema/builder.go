package schema

import (
	"github.com/n9te9/graphql-parser/ast"
	"github.com/n9te9/graphql-parser/token"

	"github.com/n9te9/fusion-query-planner/selset"
)

// LookupBinding supplies the arguments for one lookup call when the operation
// definition being built resolves a work item via a Lookup rather than a
// plain root selection set (spec §6: "optional lookup binding (lookup,
// argumentNodes, type [, responseName])").
type LookupBinding struct {
	Lookup       *Lookup
	Arguments    []*ast.Argument
	Type         string
	ResponseName string
}

// OperationDefinitionBuilder is the fluent builder of spec §6, producing a
// rewritten operation definition, the selection-set-index builder it
// registered new nodes against, and the source path of the built selection.
type OperationDefinitionBuilder interface {
	Build(opType ast.OperationType, name string, selectionSet []ast.Selection, index *selset.Builder, lookup *LookupBinding) (*ast.OperationDefinition, *selset.Builder, selset.Path, error)
}

type defaultOperationBuilder struct{}

// NewOperationDefinitionBuilder returns the default operation-definition
// builder, grounded in the teacher's practice of constructing fresh AST
// nodes rather than mutating the client's document in place
// (planner_v2.go: buildStepSelections).
func NewOperationDefinitionBuilder() OperationDefinitionBuilder { return &defaultOperationBuilder{} }

func (defaultOperationBuilder) Build(opType ast.OperationType, name string, selectionSet []ast.Selection, index *selset.Builder, lookup *LookupBinding) (*ast.OperationDefinition, *selset.Builder, selset.Path, error) {
	def := &ast.OperationDefinition{
		Operation: opType,
		Name:      identifierName(name),
	}

	if lookup == nil {
		def.SelectionSet = selectionSet
		path := selset.Path{selset.RootSegment()}
		node := &selset.Node{ParentType: rootTypeNameOf(opType), Path: path, Selections: selectionSet}
		index.Register(node)
		return def, index, path, nil
	}

	field := &ast.Field{
		Name:      identifierName(lookup.Lookup.FieldName),
		Arguments: lookup.Arguments,
	}
	if lookup.ResponseName != "" && lookup.ResponseName != lookup.Lookup.FieldName {
		field.Alias = identifierName(lookup.ResponseName)
	}
	field.SelectionSet = selectionSet

	def.SelectionSet = []ast.Selection{field}

	responseName := lookup.ResponseName
	if responseName == "" {
		responseName = lookup.Lookup.FieldName
	}
	path := selset.Path{selset.RootSegment(), selset.FieldSegment(responseName)}
	node := &selset.Node{ParentType: lookup.Type, Path: path, Selections: selectionSet}
	index.Register(node)

	return def, index, path, nil
}

func identifierName(v string) *ast.Name {
	return &ast.Name{Token: token.Token{Type: token.IDENT, Literal: v}, Value: v}
}

func rootTypeNameOf(opType ast.OperationType) string {
	switch opType {
	case ast.Mutation:
		return "Mutation"
	case ast.Subscription:
		return "Subscription"
	default:
		return "Query"
	}
}
