package schema

import (
	"fmt"
	"strings"

	"github.com/n9te9/graphql-parser/ast"
)

// sourceSchema is one subgraph's parsed SDL plus the directive metadata the
// planner needs: which fields it owns, which carry @require, and which
// fields are @lookup entry points. Modeled after the teacher's SubGraphV2,
// but against the Fusion-style composite-schema metadata of spec §3/§6
// (lookup/require) rather than Apollo's @key/@requires/@provides.
type sourceSchema struct {
	name   string
	doc    *ast.Document
	fields map[string]map[string]*sourceField // typeName -> fieldName -> field
	lookups []*Lookup
}

type sourceField struct {
	name         string
	typeName     string // this field's own return type
	requirePaths [][]string
	internal     bool
}

func newSourceSchema(name string, doc *ast.Document) *sourceSchema {
	s := &sourceSchema{
		name:   name,
		doc:    doc,
		fields: make(map[string]map[string]*sourceField),
	}
	for _, def := range doc.Definitions {
		obj, ok := def.(*ast.ObjectTypeDefinition)
		if !ok {
			continue
		}
		typeName := obj.Name.String()
		if s.fields[typeName] == nil {
			s.fields[typeName] = make(map[string]*sourceField)
		}
		for _, fd := range obj.Fields {
			f := &sourceField{
				name:     fd.Name.String(),
				typeName: namedTypeOf(fd.Type),
			}
			for _, d := range fd.Directives {
				switch d.Name {
				case "require":
					f.requirePaths = append(f.requirePaths, requirePathsFromDirective(d)...)
				case "internal":
					f.internal = true
				}
			}
			s.fields[typeName][f.name] = f

			if lu := lookupFromDirectives(name, typeName, f, fd.Directives); lu != nil {
				s.lookups = append(s.lookups, lu)
			}
		}
	}
	return s
}

// namedTypeOf unwraps NonNull/List wrappers to the innermost named type.
func namedTypeOf(t ast.Type) string {
	switch typ := t.(type) {
	case *ast.NamedType:
		return typ.Name.String()
	case *ast.ListType:
		return namedTypeOf(typ.Type)
	case *ast.NonNullType:
		return namedTypeOf(typ.Type)
	default:
		return ""
	}
}

// requirePathsFromDirective reads `@require(field: "a.b c")`-style field sets
// into dotted requirement paths, one per whitespace-separated entry.
func requirePathsFromDirective(d *ast.Directive) [][]string {
	var paths [][]string
	for _, arg := range d.Arguments {
		if arg.Name.String() != "field" && arg.Name.String() != "fields" {
			continue
		}
		raw := strings.Trim(arg.Value.String(), "\"")
		for _, entry := range strings.Fields(raw) {
			paths = append(paths, strings.Split(entry, "."))
		}
	}
	return paths
}

// lookupFromDirectives builds a Lookup descriptor when fd carries @lookup.
// The by-position pairing of arguments to requirement field sets follows
// spec §3: "argument at index i takes its value from the selection map at
// index i" — declared via `@require(field: "...")` directives on the lookup
// field itself, read in declaration order; each argument is named after the
// last segment of its requirement path.
func lookupFromDirectives(schemaName, typeName string, f *sourceField, directives []*ast.Directive) *Lookup {
	isLookup := false
	internal := false
	for _, d := range directives {
		if d.Name == "lookup" {
			isLookup = true
		}
		if d.Name == "internal" {
			internal = true
		}
	}
	if !isLookup {
		return nil
	}

	lu := &Lookup{
		SchemaName: schemaName,
		TargetType: f.typeName,
		FieldName:  f.name,
		Internal:   internal,
	}
	for i, path := range f.requirePaths {
		argName := "arg" + fmt.Sprintf("%d", i)
		if len(path) > 0 {
			argName = path[len(path)-1]
		}
		lu.Arguments = append(lu.Arguments, argName)
		lu.Fields = append(lu.Fields, FieldSelectionMap{Path: path})
	}
	if len(lu.Arguments) == 0 {
		// A bare @lookup with no recorded @require defaults to a single `id`
		// key argument, the common case exercised by Relay node(id:) lookups.
		lu.Arguments = []string{"id"}
		lu.Fields = []FieldSelectionMap{{Path: []string{"id"}}}
	}
	return lu
}

func (s *sourceSchema) ownsField(typeName, fieldName string) (*sourceField, bool) {
	fs, ok := s.fields[typeName]
	if !ok {
		return nil, false
	}
	f, ok := fs[fieldName]
	return f, ok
}
