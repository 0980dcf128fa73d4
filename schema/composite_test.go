package schema

import (
	"testing"

	"github.com/n9te9/graphql-parser/ast"
)

func mustComposite(t *testing.T, sdls map[string]string) *Composite {
	t.Helper()
	bytes := make(map[string][]byte, len(sdls))
	for name, src := range sdls {
		bytes[name] = []byte(src)
	}
	c, err := NewComposite(bytes)
	if err != nil {
		t.Fatalf("NewComposite: %v", err)
	}
	return c
}

// fieldSelections builds a flat list of bare field selections, a convenience
// for composite fit-cost tests that only need top-level field names.
func fieldSelections(fieldNames ...string) []ast.Selection {
	out := make([]ast.Selection, len(fieldNames))
	for i, name := range fieldNames {
		out[i] = &ast.Field{Name: &ast.Name{Value: name}}
	}
	return out
}

func TestPossibleSchemasCostFormula(t *testing.T) {
	c := mustComposite(t, map[string]string{
		"s1": `
			type Query { a: A }
			type A { id: ID! x: Int }
		`,
		"s2": `
			type A { id: ID! y: Int }
			type Query { aById(id: ID!): A @lookup }
		`,
	})

	fits := c.PossibleSchemas(fieldSelections("a"), "Query")
	if len(fits) != 1 {
		t.Fatalf("expected exactly one candidate schema for field %q owned only by s1, got %d: %+v", "a", len(fits), fits)
	}
	if fits[0].SchemaName != "s1" {
		t.Fatalf("expected s1 to be the sole candidate, got %q", fits[0].SchemaName)
	}
	// totalFields across Query = {a, aById} = 2; resolvable on s1 = 1 (just "a");
	// coverage = 0.5 -> cost = (1-0.5)^2*20 = 5.
	if fits[0].Cost != 5 {
		t.Fatalf("cost = %v, want 5", fits[0].Cost)
	}
}

func TestPossibleSchemasPrefersFullCoverage(t *testing.T) {
	c := mustComposite(t, map[string]string{
		"s1": `type Query { a: Int b: Int }`,
	})
	fits := c.PossibleSchemas(fieldSelections("a", "b"), "Query")
	if len(fits) != 1 || fits[0].Cost != 0 {
		t.Fatalf("full single-schema coverage should cost 0, got %+v", fits)
	}
}

func TestPossibleSchemasEmptyWhenTypeUnknown(t *testing.T) {
	c := mustComposite(t, map[string]string{
		"s1": `type Query { a: Int }`,
	})
	if fits := c.PossibleSchemas(fieldSelections("a"), "Mystery"); fits != nil {
		t.Fatalf("expected no fits for an unknown parent type, got %+v", fits)
	}
}

func TestLookupDefaultsToIDKeyWithNoRequire(t *testing.T) {
	c := mustComposite(t, map[string]string{
		"s1": `
			type Query { a: A }
			type A { id: ID! x: Int }
		`,
		"s2": `
			type A { id: ID! y: Int }
			type Query { aById(id: ID!): A @lookup }
		`,
	})

	lookup, ok := c.TryBestDirectLookup("A", map[string]bool{"s1": true}, "")
	if !ok {
		t.Fatalf("expected a lookup for A excluding s1")
	}
	if lookup.SchemaName != "s2" || lookup.FieldName != "aById" {
		t.Fatalf("unexpected lookup: %+v", lookup)
	}
	if len(lookup.Arguments) != 1 || lookup.Arguments[0] != "id" {
		t.Fatalf("expected default single 'id' argument, got %+v", lookup.Arguments)
	}
	if len(lookup.Fields) != 1 || len(lookup.Fields[0].Path) != 1 || lookup.Fields[0].Path[0] != "id" {
		t.Fatalf("expected default id field-selection-map, got %+v", lookup.Fields)
	}
}

func TestPossibleLookupsOrderedIsDeterministic(t *testing.T) {
	c := mustComposite(t, map[string]string{
		"s2": `
			type A { id: ID! y: Int }
			type Query {
				aById(id: ID!): A @lookup
				aByHandle(handle: String!): A @lookup @require(field: "handle")
			}
		`,
	})
	lookups := c.PossibleLookupsOrdered("A", "")
	if len(lookups) != 2 {
		t.Fatalf("expected 2 lookups for A, got %d", len(lookups))
	}
	first, second := lookups[0], lookups[1]
	if first.determinismKey() >= second.determinismKey() {
		t.Fatalf("lookups not ordered by determinism key: %q >= %q", first.determinismKey(), second.determinismKey())
	}

	// Re-running must reproduce the exact same order (no map-iteration flake).
	again := c.PossibleLookupsOrdered("A", "")
	for i := range lookups {
		if lookups[i].FieldName != again[i].FieldName {
			t.Fatalf("PossibleLookupsOrdered is not stable across calls: %v vs %v", lookups, again)
		}
	}
}

func TestTryFieldRequirementsReadsRequireDirective(t *testing.T) {
	c := mustComposite(t, map[string]string{
		"s2": `
			type A {
				id: ID!
				y: String
				z: String @require(field: "y")
			}
		`,
	})
	reqs, ok := c.TryFieldRequirements("A", "z", "s2")
	if !ok {
		t.Fatalf("expected requirements for A.z on s2")
	}
	if len(reqs) != 1 || len(reqs[0].Path) != 1 || reqs[0].Path[0] != "y" {
		t.Fatalf("unexpected requirement fields: %+v", reqs)
	}

	if _, ok := c.TryFieldRequirements("A", "y", "s2"); ok {
		t.Fatalf("A.y declares no @require, should report ok=false")
	}
}

func TestFieldTypeNameAndAbstractTypes(t *testing.T) {
	c := mustComposite(t, map[string]string{
		"s1": `
			interface Node { id: ID! }
			type Product implements Node { id: ID! name: String }
			type Query { a: Product }
		`,
	})
	typeName, err := c.FieldTypeName("Query", "a")
	if err != nil || typeName != "Product" {
		t.Fatalf("FieldTypeName(Query,a) = (%q, %v), want (Product, nil)", typeName, err)
	}
	if !c.IsAbstractType("Node") {
		t.Fatalf("Node should be recognized as an abstract type")
	}
	if c.IsAbstractType("Product") {
		t.Fatalf("Product is a concrete type, not abstract")
	}
	possible := c.PossibleTypes("Node")
	if len(possible) != 1 || possible[0] != "Product" {
		t.Fatalf("PossibleTypes(Node) = %v, want [Product]", possible)
	}
}

func TestFieldTypeNameUnknownFieldErrors(t *testing.T) {
	c := mustComposite(t, map[string]string{
		"s1": `type Query { a: Int }`,
	})
	if _, err := c.FieldTypeName("Query", "missing"); err == nil {
		t.Fatalf("expected an error for an unowned field")
	}
}
