package selset

import "github.com/n9te9/graphql-parser/ast"

// FieldSelection is spec §3's "field selection": a field node plus the
// context needed to plan around it.
type FieldSelection struct {
	Field          *ast.Field
	ResponseName   string
	DeclaringType  string // type that declares the field
	ComputedType   string // the field's own (unwrapped) return type
	SelectionSetID int    // 0 if the field is a scalar leaf
	Path           Path
}

// ResponseNameOf returns a field's alias if present, else its name — the
// identifier used for merging, paths, and result-shape lookups.
func ResponseNameOf(f *ast.Field) string {
	if f.Alias != nil && f.Alias.String() != "" {
		return f.Alias.String()
	}
	return f.Name.String()
}
