package schema

import (
	"sort"

	"github.com/n9te9/graphql-parser/ast"
)

// Composite is the concrete CompositeSchema implementation the planner is
// exercised against in this repository: several parsed source schemas merged
// into one field-ownership table plus a lookup index, grounded in the
// teacher's SuperGraphV2 composition pass (schema merge + ownership map)
// but generalized from Apollo entity ownership to Fusion-style field
// resolution sets (spec §3 FieldResolution, §4.5 schema-fit cost).
type Composite struct {
	schemas      map[string]*sourceSchema
	order        []string // ordinal schema name order, for deterministic iteration
	resolutions  map[string]map[string]*FieldResolution // typeName -> fieldName -> resolution
	abstract     map[string][]string                     // interface/union name -> possible concrete type names
	queryType    string
	mutationType string
	subType      string
}

// NewComposite merges the given per-schema SDLs into one CompositeSchema.
func NewComposite(sdls map[string][]byte) (*Composite, error) {
	c := &Composite{
		schemas:     make(map[string]*sourceSchema),
		resolutions: make(map[string]map[string]*FieldResolution),
		abstract:    make(map[string][]string),
		queryType:   "Query",
	}

	for name := range sdls {
		c.order = append(c.order, name)
	}
	sort.Strings(c.order)

	for _, name := range c.order {
		doc, err := ParseSDL(sdls[name])
		if err != nil {
			return nil, err
		}
		c.schemas[name] = newSourceSchema(name, doc)
		c.indexAbstractTypes(doc)
	}

	for _, name := range c.order {
		src := c.schemas[name]
		for typeName, fields := range src.fields {
			if c.resolutions[typeName] == nil {
				c.resolutions[typeName] = make(map[string]*FieldResolution)
			}
			for fieldName, f := range fields {
				res, ok := c.resolutions[typeName][fieldName]
				if !ok {
					res = &FieldResolution{
						TypeName:     typeName,
						FieldName:    fieldName,
						requirements: make(map[string]bool),
					}
					c.resolutions[typeName][fieldName] = res
				}
				res.schemas = append(res.schemas, name)
				if len(f.requirePaths) > 0 {
					res.requirements[name] = true
				}
			}
		}
	}

	return c, nil
}

func (c *Composite) indexAbstractTypes(doc *ast.Document) {
	for _, def := range doc.Definitions {
		switch td := def.(type) {
		case *ast.UnionTypeDefinition:
			name := td.Name.String()
			for _, m := range td.Types {
				c.abstract[name] = appendUnique(c.abstract[name], m.Name.String())
			}
		case *ast.InterfaceTypeDefinition:
			name := td.Name.String()
			if _, ok := c.abstract[name]; !ok {
				c.abstract[name] = nil
			}
		case *ast.ObjectTypeDefinition:
			for _, itf := range td.Interfaces {
				c.abstract[itf.Name.String()] = appendUnique(c.abstract[itf.Name.String()], td.Name.String())
			}
		}
	}
}

func appendUnique(list []string, v string) []string {
	for _, e := range list {
		if e == v {
			return list
		}
	}
	return append(list, v)
}

// OperationTypeName maps a client operation kind to its composite root type
// name ("Query"/"Mutation"/"Subscription"); schema definitions that rename
// root types are not read.
func (c *Composite) OperationTypeName(op ast.OperationType) string {
	switch op {
	case ast.Mutation:
		if c.mutationType != "" {
			return c.mutationType
		}
		return "Mutation"
	case ast.Subscription:
		if c.subType != "" {
			return c.subType
		}
		return "Subscription"
	default:
		return c.queryType
	}
}

func (c *Composite) QueryTypeName() string { return c.queryType }

func (c *Composite) TypeNames() []string {
	seen := make(map[string]bool)
	var out []string
	for _, src := range c.schemas {
		for t := range src.fields {
			if !seen[t] {
				seen[t] = true
				out = append(out, t)
			}
		}
	}
	sort.Strings(out)
	return out
}

func (c *Composite) IsAbstractType(typeName string) bool {
	_, ok := c.abstract[typeName]
	return ok
}

func (c *Composite) PossibleTypes(abstractTypeName string) []string {
	types := append([]string(nil), c.abstract[abstractTypeName]...)
	sort.Strings(types)
	return types
}

func (c *Composite) FieldTypeName(parentType, fieldName string) (string, error) {
	if fieldName == "__typename" {
		return "String", nil
	}
	for _, name := range c.order {
		if f, ok := c.schemas[name].ownsField(parentType, fieldName); ok {
			return f.typeName, nil
		}
	}
	return "", errFieldNotFound(parentType, fieldName)
}

func (c *Composite) TryFieldResolution(typeName, fieldName string) (*FieldResolution, bool) {
	byField, ok := c.resolutions[typeName]
	if !ok {
		return nil, false
	}
	r, ok := byField[fieldName]
	return r, ok
}

func (c *Composite) TryFieldRequirements(typeName, fieldName, schemaName string) ([]FieldSelectionMap, bool) {
	src, ok := c.schemas[schemaName]
	if !ok {
		return nil, false
	}
	f, ok := src.ownsField(typeName, fieldName)
	if !ok || len(f.requirePaths) == 0 {
		return nil, false
	}
	out := make([]FieldSelectionMap, len(f.requirePaths))
	for i, p := range f.requirePaths {
		out[i] = FieldSelectionMap{Path: p}
	}
	return out, true
}

func (c *Composite) TryBestDirectLookup(typeName string, excludeSchemas map[string]bool, targetSchema string) (*Lookup, bool) {
	candidates := c.PossibleLookupsOrdered(typeName, targetSchema)
	for _, l := range candidates {
		if excludeSchemas != nil && excludeSchemas[l.SchemaName] {
			continue
		}
		return l, true
	}
	return nil, false
}

func (c *Composite) PossibleLookupsOrdered(typeName string, onlySchema string) []*Lookup {
	var out []*Lookup
	for _, name := range c.order {
		if onlySchema != "" && name != onlySchema {
			continue
		}
		for _, l := range c.schemas[name].lookups {
			if l.TargetType == typeName {
				out = append(out, l)
			}
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].determinismKey() < out[j].determinismKey()
	})
	return out
}

// PossibleSchemas implements the schema-fit cost model of spec §4.5.
func (c *Composite) PossibleSchemas(selectionSet []ast.Selection, parentType string) []SchemaFit {
	totalFields := c.countOwnedFields(parentType)
	if totalFields == 0 {
		return nil
	}

	type acc struct {
		resolvable, withReqs int
		spillover            map[string]bool
	}
	accs := make(map[string]*acc)
	for _, name := range c.order {
		accs[name] = &acc{spillover: make(map[string]bool)}
	}

	fieldNames := fieldNamesOf(selectionSet)

	for _, name := range c.order {
		a := accs[name]
		for _, fn := range fieldNames {
			res, ok := c.TryFieldResolution(parentType, fn)
			if !ok {
				continue
			}
			if res.ContainsSchema(name) {
				a.resolvable++
				if res.HasRequirements(name) {
					a.withReqs++
				}
			} else {
				for _, other := range res.Schemas() {
					if other != name {
						a.spillover[other] = true
					}
				}
			}
		}
	}

	var fits []SchemaFit
	for _, name := range c.order {
		a := accs[name]
		if a.resolvable == 0 {
			continue
		}
		coverage := float64(a.resolvable) / float64(totalFields)
		cost := (1-coverage)*(1-coverage)*20 + float64(len(a.spillover))*5 + float64(a.withReqs)*2
		fits = append(fits, SchemaFit{SchemaName: name, Cost: cost})
	}
	sort.SliceStable(fits, func(i, j int) bool {
		if fits[i].Cost != fits[j].Cost {
			return fits[i].Cost < fits[j].Cost
		}
		return fits[i].SchemaName < fits[j].SchemaName
	})
	return fits
}

func (c *Composite) countOwnedFields(typeName string) int {
	seen := make(map[string]bool)
	for _, src := range c.schemas {
		for fn := range src.fields[typeName] {
			if fn == "__typename" || fn == "node" {
				continue
			}
			seen[fn] = true
		}
	}
	return len(seen)
}

func fieldNamesOf(selections []ast.Selection) []string {
	var out []string
	for _, sel := range selections {
		if f, ok := sel.(*ast.Field); ok {
			name := f.Name.String()
			if name == "__typename" {
				continue
			}
			out = append(out, name)
		}
	}
	return out
}

type fieldNotFoundError struct{ parentType, fieldName string }

func (e *fieldNotFoundError) Error() string {
	return "field " + e.fieldName + " not found in type " + e.parentType
}

func errFieldNotFound(parentType, fieldName string) error {
	return &fieldNotFoundError{parentType: parentType, fieldName: fieldName}
}
