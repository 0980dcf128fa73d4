// Package schema models the composite (fused) GraphQL schema the planner core
// plans against: the merge of several source-schema SDLs, their field
// ownership, and the @lookup entry points that let the planner hop between
// schemas to resolve an entity. The planner core only ever talks to this
// package through the interfaces declared here (CompositeSchema, the three
// Partitioner interfaces, OperationDefinitionBuilder); schema is the concrete
// collaborator the planner is tested against.
package schema

import (
	"fmt"
	"sort"
	"strings"

	"github.com/n9te9/graphql-parser/ast"
	"github.com/n9te9/graphql-parser/lexer"
	"github.com/n9te9/graphql-parser/parser"
)

// FieldResolution describes, for one field of one composite type, which
// source schemas can resolve it.
type FieldResolution struct {
	TypeName  string
	FieldName string
	// schemas in the order they were discovered; ContainsSchema/HasRequirements
	// are O(n) over this, which is fine since n is the subgraph count.
	schemas      []string
	requirements map[string]bool // schemaName -> has @require-derived requirements
}

// ContainsSchema reports whether the given schema can resolve this field.
func (r *FieldResolution) ContainsSchema(schemaName string) bool {
	if r == nil {
		return false
	}
	for _, s := range r.schemas {
		if s == schemaName {
			return true
		}
	}
	return false
}

// HasRequirements reports whether resolving this field on schemaName needs
// data gathered from elsewhere first.
func (r *FieldResolution) HasRequirements(schemaName string) bool {
	if r == nil {
		return false
	}
	return r.requirements[schemaName]
}

// Schemas returns the schemas that can resolve the field, ordinal order.
func (r *FieldResolution) Schemas() []string {
	if r == nil {
		return nil
	}
	out := make([]string, len(r.schemas))
	copy(out, r.schemas)
	sort.Strings(out)
	return out
}

// FieldSelectionMap is a tiny selection fragment ("a selection map") telling
// the gateway where, in a partial result, to read one requirement argument's
// value from. It mirrors the shape of a single-field selection set such as
// `{ id }` or `{ address { zip } }`.
type FieldSelectionMap struct {
	Path []string // e.g. ["address", "zip"]
}

// Lookup is a field on a source schema that resolves an entity by key,
// declared by the schema (an `@lookup` field in Fusion terms).
type Lookup struct {
	SchemaName string
	TargetType string
	FieldName  string
	// Arguments, parallel to Fields: Arguments[i] is populated by Fields[i].
	Arguments []string
	Fields    []FieldSelectionMap
	Path      []string // optional nested path the lookup sits behind
	Internal  bool
}

// determinismKey is the ordinal sort key from spec §3:
// (schemaName, fieldName, dotted-path, argLen, fieldsLen).
func (l *Lookup) determinismKey() string {
	return fmt.Sprintf("%s\x00%s\x00%s\x00%04d\x00%04d",
		l.SchemaName, l.FieldName, strings.Join(l.Path, "."), len(l.Arguments), len(l.Fields))
}

// SchemaFit is one candidate schema and its fit cost for a root selection
// set, ordered ascending by FitCost then schema name (spec §4.5).
type SchemaFit struct {
	SchemaName string
	Cost       float64
}

// CompositeSchema is the external collaborator described in spec §6: schema
// lookups, field resolution, and lookup/requirement metadata. The planner
// core never constructs one; it is always handed one.
type CompositeSchema interface {
	OperationTypeName(op ast.OperationType) string
	QueryTypeName() string
	TypeNames() []string
	IsAbstractType(typeName string) bool
	PossibleTypes(abstractTypeName string) []string
	FieldTypeName(parentType, fieldName string) (string, error)

	TryFieldResolution(typeName, fieldName string) (*FieldResolution, bool)
	// TryFieldRequirements returns the source-field requirement selections
	// (spec §4.5 handler (c): "per the schema's source-field requirements")
	// schemaName declares for fieldName, i.e. the data fieldName needs
	// gathered from elsewhere before schemaName can resolve it.
	TryFieldRequirements(typeName, fieldName, schemaName string) ([]FieldSelectionMap, bool)
	// PossibleSchemas returns candidate schemas for a root selection set,
	// ordered ascending by fit cost then schema name (spec §4.5).
	PossibleSchemas(selectionSet []ast.Selection, parentType string) []SchemaFit
	TryBestDirectLookup(typeName string, excludeSchemas map[string]bool, targetSchema string) (*Lookup, bool)
	// PossibleLookupsOrdered returns every lookup for typeName, optionally
	// restricted to one schema, ordered by the lookup determinism key.
	PossibleLookupsOrdered(typeName string, onlySchema string) []*Lookup
}

// ParseSDL parses one source-schema document; a thin wrapper kept so callers
// never import the parser package directly.
func ParseSDL(src []byte) (*ast.Document, error) {
	l := lexer.New(string(src))
	p := parser.New(l)
	doc := p.ParseDocument()
	if len(p.Errors()) > 0 {
		return nil, fmt.Errorf("schema parse error: %v", p.Errors())
	}
	return doc, nil
}
