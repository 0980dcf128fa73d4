package planner

import (
	"github.com/n9te9/graphql-parser/ast"
	"github.com/n9te9/graphql-parser/token"

	"github.com/n9te9/fusion-query-planner/schema"
	"github.com/n9te9/fusion-query-planner/selset"
)

// fusionRequirementDirectiveName is the synthetic marker directive spec
// §4.6 attaches to selections injected by the planner (requirement data,
// __typename discriminators) so the executor can tell injected selections
// apart from selections the client actually asked for.
const fusionRequirementDirectiveName = "fusion__requirement"

func fusionRequirementDirective() *ast.Directive {
	return &ast.Directive{Name: fusionRequirementDirectiveName}
}

func hasDirective(directives []*ast.Directive, name string) bool {
	for _, d := range directives {
		if d.Name == name {
			return true
		}
	}
	return false
}

// InlineSelections walks operation, finds the selection set registered
// under targetSelectionSetID (resolving through the cloned-to-original table
// if the id isn't found directly), and either merges selectionsToInline into
// it (merge mode) or appends them verbatim, each field tagged with the
// synthetic fusion__requirement directive (internal mode) — spec §4.6.
// Internal mode does not register the injected selections' sub-selection-sets
// in index.
func InlineSelections(def *ast.OperationDefinition, index *selset.Builder, rootType string, targetSelectionSetID int, selectionsToInline []ast.Selection, inlineInternal bool) (*ast.OperationDefinition, error) {
	node := index.NodeByID(targetSelectionSetID)
	if node == nil {
		if orig, ok := index.TryGetOriginalID(targetSelectionSetID); ok {
			node = index.NodeByID(orig)
		}
	}
	if node == nil {
		return nil, invariantViolation("InlineSelections", nil)
	}

	out := &ast.OperationDefinition{Operation: def.Operation, Name: def.Name}
	rootPath := selset.Path{selset.RootSegment()}
	if rootPath.Compare(node.Path) == 0 {
		if inlineInternal {
			injected := tagAndRegister(selectionsToInline, index)
			out.SelectionSet = append(append([]ast.Selection(nil), def.SelectionSet...), injected...)
		} else {
			out.SelectionSet = mergeSelections(def.SelectionSet, selectionsToInline)
		}
		return out, nil
	}

	newSel, found, err := inlineAt(def.SelectionSet, rootPath, node.Path, selectionsToInline, inlineInternal, index)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, invariantViolation("InlineSelections", nil)
	}
	out.SelectionSet = newSel
	return out, nil
}

func inlineAt(selections []ast.Selection, currentPath, targetPath selset.Path, toInline []ast.Selection, internal bool, index *selset.Builder) ([]ast.Selection, bool, error) {
	out := make([]ast.Selection, len(selections))
	copy(out, selections)
	found := false

	for i, sel := range selections {
		switch s := sel.(type) {
		case *ast.Field:
			responseName := selset.ResponseNameOf(s)
			fieldPath := currentPath.Append(selset.FieldSegment(responseName))

			if fieldPath.Compare(targetPath) == 0 {
				clone := *s
				if internal {
					injected := tagAndRegister(toInline, index)
					clone.SelectionSet = append(append([]ast.Selection(nil), s.SelectionSet...), injected...)
				} else {
					clone.SelectionSet = mergeSelections(s.SelectionSet, toInline)
				}
				out[i] = &clone
				found = true
				continue
			}

			if len(s.SelectionSet) == 0 {
				continue
			}
			childSel, childFound, err := inlineAt(s.SelectionSet, fieldPath, targetPath, toInline, internal, index)
			if err != nil {
				return nil, false, err
			}
			if childFound {
				clone := *s
				clone.SelectionSet = childSel
				out[i] = &clone
				found = true
			}

		case *ast.InlineFragment:
			typeName := s.TypeCondition.Name.String()
			fragPath := currentPath.Append(selset.InlineFragmentSegment(typeName))
			var childSel []ast.Selection
			var childFound bool
			var err error
			if fragPath.Compare(targetPath) == 0 {
				clone := *s
				if internal {
					injected := tagAndRegister(toInline, index)
					clone.SelectionSet = append(append([]ast.Selection(nil), s.SelectionSet...), injected...)
				} else {
					clone.SelectionSet = mergeSelections(s.SelectionSet, toInline)
				}
				out[i] = &clone
				found = true
				continue
			}
			childSel, childFound, err = inlineAt(s.SelectionSet, fragPath, targetPath, toInline, internal, index)
			if err != nil {
				return nil, false, err
			}
			if childFound {
				clone := *s
				clone.SelectionSet = childSel
				out[i] = &clone
				found = true
			}
		}
	}

	return out, found, nil
}

// tagAndRegister tags every field selection with the synthetic requirement
// directive for spec §4.6 internal-mode inlining. Other selections (inline
// fragments) pass through untagged, and nothing is registered in index.
func tagAndRegister(selections []ast.Selection, index *selset.Builder) []ast.Selection {
	out := make([]ast.Selection, 0, len(selections))
	for _, sel := range selections {
		switch s := sel.(type) {
		case *ast.Field:
			clone := *s
			if !hasDirective(clone.Directives, fusionRequirementDirectiveName) {
				clone.Directives = append(append([]*ast.Directive(nil), clone.Directives...), fusionRequirementDirective())
			}
			out = append(out, &clone)
		default:
			out = append(out, sel)
		}
	}
	return out
}

// mergeSelections unions two selection sets by response-name (fields) or
// type-condition (inline fragments), recursively merging matched children,
// appending anything with no counterpart (spec §4.6 merge mode).
func mergeSelections(existing, toInline []ast.Selection) []ast.Selection {
	out := append([]ast.Selection(nil), existing...)

	for _, sel := range toInline {
		switch s := sel.(type) {
		case *ast.Field:
			responseName := selset.ResponseNameOf(s)
			idx := findFieldIndex(out, responseName)
			if idx < 0 {
				out = append(out, s)
				continue
			}
			existingField := out[idx].(*ast.Field)
			if len(s.SelectionSet) == 0 {
				continue
			}
			clone := *existingField
			clone.SelectionSet = mergeSelections(existingField.SelectionSet, s.SelectionSet)
			out[idx] = &clone

		case *ast.InlineFragment:
			typeName := s.TypeCondition.Name.String()
			idx := findFragmentIndex(out, typeName)
			if idx < 0 {
				out = append(out, s)
				continue
			}
			existingFrag := out[idx].(*ast.InlineFragment)
			clone := *existingFrag
			clone.SelectionSet = mergeSelections(existingFrag.SelectionSet, s.SelectionSet)
			out[idx] = &clone

		default:
			out = append(out, sel)
		}
	}

	return out
}

func findFieldIndex(selections []ast.Selection, responseName string) int {
	for i, sel := range selections {
		if f, ok := sel.(*ast.Field); ok && selset.ResponseNameOf(f) == responseName {
			return i
		}
	}
	return -1
}

func findFragmentIndex(selections []ast.Selection, typeName string) int {
	for i, sel := range selections {
		if f, ok := sel.(*ast.InlineFragment); ok && f.TypeCondition.Name.String() == typeName {
			return i
		}
	}
	return -1
}

// InjectTypename walks def looking for fields whose own type is abstract and
// which lack an unaliased __typename selection, injecting one tagged with
// the synthetic requirement directive (spec §4.6 "__typename injection").
func InjectTypename(def *ast.OperationDefinition, sch schema.CompositeSchema, rootType string) *ast.OperationDefinition {
	out := &ast.OperationDefinition{Operation: def.Operation, Name: def.Name}
	out.SelectionSet = injectTypename(def.SelectionSet, rootType, sch)
	return out
}

func injectTypename(selections []ast.Selection, parentType string, sch schema.CompositeSchema) []ast.Selection {
	out := make([]ast.Selection, len(selections))
	for i, sel := range selections {
		switch s := sel.(type) {
		case *ast.Field:
			if len(s.SelectionSet) == 0 {
				out[i] = s
				continue
			}
			childType, err := sch.FieldTypeName(parentType, s.Name.String())
			if err != nil {
				out[i] = s
				continue
			}
			clone := *s
			clone.SelectionSet = injectTypename(s.SelectionSet, childType, sch)
			if sch.IsAbstractType(childType) && !hasUnaliasedTypename(clone.SelectionSet) {
				clone.SelectionSet = append(clone.SelectionSet, typenameRequirementField())
			}
			out[i] = &clone
		case *ast.InlineFragment:
			typeName := s.TypeCondition.Name.String()
			clone := *s
			clone.SelectionSet = injectTypename(s.SelectionSet, typeName, sch)
			out[i] = &clone
		default:
			out[i] = sel
		}
	}
	return out
}

func hasUnaliasedTypename(selections []ast.Selection) bool {
	for _, sel := range selections {
		if f, ok := sel.(*ast.Field); ok && f.Name.String() == "__typename" && f.Alias == nil {
			return true
		}
	}
	return false
}

func typenameRequirementField() *ast.Field {
	return &ast.Field{
		Name:       &ast.Name{Token: token.Token{Type: token.IDENT, Literal: "__typename"}, Value: "__typename"},
		Directives: []*ast.Directive{fusionRequirementDirective()},
	}
}
