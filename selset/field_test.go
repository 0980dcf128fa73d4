package selset

import (
	"testing"

	"github.com/n9te9/graphql-parser/ast"
)

func TestResponseNameOfPrefersAlias(t *testing.T) {
	aliased := &ast.Field{
		Alias: &ast.Name{Value: "renamed"},
		Name:  &ast.Name{Value: "original"},
	}
	if got := ResponseNameOf(aliased); got != "renamed" {
		t.Fatalf("ResponseNameOf = %q, want %q", got, "renamed")
	}

	plain := &ast.Field{Name: &ast.Name{Value: "original"}}
	if got := ResponseNameOf(plain); got != "original" {
		t.Fatalf("ResponseNameOf = %q, want %q", got, "original")
	}
}
