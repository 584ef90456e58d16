package gapfill

import (
	"go/ast"
	"sort"
	"testing"

	"golang.org/x/tools/go/packages"
)

// TestReferenceMutatorsStayInNormalisation ensures only direction
// normalisation rewrites the reference reaction table. Every other package
// treats the table as read-only.
func TestReferenceMutatorsStayInNormalisation(t *testing.T) {
	mutators := map[string]bool{
		"ReverseInPlace":     true,
		"PinTransportBounds": true,
		"ClampForward":       true,
		"InsertDerived":      true,
	}
	allowed := map[string]bool{
		"gapfill/internal/gapfill": true,
		"gapfill/pkg/domain":       true,
	}

	cfg := &packages.Config{Mode: packages.NeedName | packages.NeedFiles | packages.NeedSyntax}
	pkgs, err := packages.Load(cfg, "gapfill/...")
	if err != nil {
		t.Fatalf("load packages: %v", err)
	}

	var violations []string
	for _, pkg := range pkgs {
		if allowed[pkg.PkgPath] {
			continue
		}
		for _, file := range pkg.Syntax {
			ast.Inspect(file, func(n ast.Node) bool {
				sel, ok := n.(*ast.SelectorExpr)
				if ok && mutators[sel.Sel.Name] {
					violations = append(violations, pkg.Fset.Position(sel.Pos()).String()+": "+sel.Sel.Name)
				}
				return true
			})
		}
	}
	sort.Strings(violations)
	for _, v := range violations {
		t.Errorf("reference table mutated outside normalisation: %s", v)
	}
}
