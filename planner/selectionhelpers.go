package planner

import (
	"sort"

	"github.com/n9te9/graphql-parser/ast"
	"github.com/n9te9/graphql-parser/token"

	"github.com/n9te9/fusion-query-planner/schema"
	"github.com/n9te9/fusion-query-planner/selset"
)

func newSelsetNode(parentType string, path selset.Path, selections []ast.Selection) *selset.Node {
	return &selset.Node{ParentType: parentType, Path: path, Selections: selections}
}

// rootFieldsOf extracts the top-level field selections from a root
// selection set in document order, used to slice a mutation's root
// selection set into one work item per root field (spec §4.5 "Seeding").
func rootFieldsOf(selections []ast.Selection) []*ast.Field {
	out := make([]*ast.Field, 0, len(selections))
	for _, sel := range selections {
		if f, ok := sel.(*ast.Field); ok {
			out = append(out, f)
		}
	}
	return out
}

func identName(v string) *ast.Name {
	return &ast.Name{Token: token.Token{Type: token.IDENT, Literal: v}, Value: v}
}

// selectionForPath builds the nested-field chain a requirement selection map
// describes, e.g. ["address", "zip"] -> `address { zip }`.
func selectionForPath(path []string) ast.Selection {
	if len(path) == 0 {
		return nil
	}
	f := &ast.Field{Name: identName(path[0])}
	if len(path) > 1 {
		if child := selectionForPath(path[1:]); child != nil {
			f.SelectionSet = []ast.Selection{child}
		}
	}
	return f
}

// requirementSelectionsOf merges every field-selection-map of a lookup into
// one selection set, the requirement data it needs from whatever schema
// already has it (spec §3 "Lookup descriptor": "parallel ordered list of
// requirement field selections").
func requirementSelectionsOf(lookup *schema.Lookup) []ast.Selection {
	return requirementSelectionsOfFields(lookup.Fields)
}

// requirementSelectionsOfFields is requirementSelectionsOf generalized to any
// source of field-selection-maps, shared with the source-field requirements
// of spec §4.5 handler (c) (plain field @require, not a lookup key).
func requirementSelectionsOfFields(fields []schema.FieldSelectionMap) []ast.Selection {
	var out []ast.Selection
	for _, f := range fields {
		if sel := selectionForPath(f.Path); sel != nil {
			out = mergeSelections(out, []ast.Selection{sel})
		}
	}
	return out
}

// argNameOfPath derives the variable-argument name for one requirement
// field-selection-map: the last path segment, matching the convention
// sourceschema.go uses when reading @require-declared lookup arguments.
func argNameOfPath(path []string) string {
	if len(path) == 0 {
		return "arg"
	}
	return path[len(path)-1]
}

func argNamesOfFields(fields []schema.FieldSelectionMap) []string {
	out := make([]string, len(fields))
	for i, f := range fields {
		out[i] = argNameOfPath(f.Path)
	}
	return out
}

// typeRefForPath makes a best-effort guess at a requirement variable's GraphQL
// type reference, using the one-level CompositeSchema.FieldTypeName lookup
// the external interface exposes; defaults to "ID!" for the common by-id case.
func typeRefForPath(declaringType string, path []string, sch schema.CompositeSchema) string {
	if len(path) == 0 {
		return "ID!"
	}
	if t, err := sch.FieldTypeName(declaringType, path[0]); err == nil && t != "" {
		return t + "!"
	}
	return "ID!"
}

// flattenUnresolvable flattens a stack of unresolvable selection-set nodes
// back into a flat selection list, used when a requirement's residual
// (what a candidate step couldn't serve) must be tried against the next
// candidate or pushed back onto the backlog.
func flattenUnresolvable(nodes []*selset.Node) []ast.Selection {
	var out []ast.Selection
	for _, n := range nodes {
		out = append(out, n.Selections...)
	}
	return out
}

// byIDLookups filters lookups down to the by-id shape spec §4.4 wants for
// node-lookup branching: a single `id` argument, non-internal.
func byIDLookups(lookups []*schema.Lookup) []*schema.Lookup {
	var out []*schema.Lookup
	for _, l := range lookups {
		if l.Internal {
			continue
		}
		if len(l.Arguments) == 1 && len(l.Fields) == 1 && len(l.Fields[0].Path) == 1 && l.Fields[0].Path[0] == "id" {
			out = append(out, l)
		}
	}
	return out
}

// skipIncludeConditionsOf extracts the @skip/@include directives in the given
// list, storing the passing boolean value per spec §3: skip stores
// passingValue=false, include stores true. Only conditions whose `if`
// argument is a variable are recorded. seedNodeField passes the node field's
// own directives only; directives on enclosing fragments are not collected.
func skipIncludeConditionsOf(directives []*ast.Directive) []SkipIncludeCondition {
	var out []SkipIncludeCondition
	for _, d := range directives {
		switch d.Name {
		case "skip":
			if v, ok := variableArg(d, "if"); ok {
				out = append(out, SkipIncludeCondition{VariableName: v, Directive: "skip", PassingValue: false})
			}
		case "include":
			if v, ok := variableArg(d, "if"); ok {
				out = append(out, SkipIncludeCondition{VariableName: v, Directive: "include", PassingValue: true})
			}
		}
	}
	return out
}

func variableArg(d *ast.Directive, argName string) (string, bool) {
	for _, arg := range d.Arguments {
		if arg.Name.String() != argName {
			continue
		}
		if v, ok := arg.Value.(*ast.Variable); ok {
			return v.Name, true
		}
	}
	return "", false
}

// pathStrings renders a selection path as the plain string segments Step's
// SourcePath/TargetPath carry (spec §3 "Plan step": "source path"/"target
// path"), skipping the leading Root segment.
func pathStrings(p selset.Path) []string {
	out := make([]string, 0, len(p))
	for _, seg := range p {
		switch seg.Kind {
		case selset.SegmentField:
			out = append(out, seg.Name)
		case selset.SegmentInlineFragment:
			out = append(out, "..."+seg.Name)
		}
	}
	return out
}

// toNodeAtDepth pairs a stack of partitioner-produced unresolvable selection
// sets with the depth of the step that produced them, the shape
// Backlog.PushUnresolvable expects.
func toNodeAtDepth(nodes []*selset.Node, depth int) []NodeAtDepth {
	out := make([]NodeAtDepth, len(nodes))
	for i, n := range nodes {
		out[i] = NodeAtDepth{Node: n, ParentDepth: depth}
	}
	return out
}

// plainTypenameField builds an ordinary, client-visible __typename selection
// (no fusion__requirement tag), used where the planner itself needs the
// discriminator operationally — e.g. the node-lookup branches and fallback
// query of spec §4.5 handler (e)/(f) — as opposed to InjectTypename's final
// abstract-type rewrite pass (spec §4.6), which does tag its injections.
func plainTypenameField() *ast.Field {
	return &ast.Field{Name: identName("__typename")}
}

func sortedStringKeys[V any](m map[string]V) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// isPathPrefix reports whether prefix is a (possibly equal-length) leading
// segment run of path.
func isPathPrefix(prefix, path selset.Path) bool {
	if len(prefix) > len(path) {
		return false
	}
	for i := range prefix {
		if prefix[i].Kind != path[i].Kind || prefix[i].Name != path[i].Name {
			return false
		}
	}
	return true
}
