package editor_test

import (
	"sort"
	"strings"
	"testing"

	"golang.org/x/tools/go/packages"
)

// TestEditorDoesNotDependOnViews keeps the editor free of rendering and
// transport packages so any view can drive it.
func TestEditorDoesNotDependOnViews(t *testing.T) {
	forbidden := []string{
		"digitalroom/internal/tui",
		"digitalroom/internal/adapters",
		"digitalroom/cmd",
		"github.com/charmbracelet",
		"github.com/spf13/cobra",
	}
	cfg := &packages.Config{Mode: packages.NeedName | packages.NeedImports | packages.NeedDeps}
	pkgs, err := packages.Load(cfg, "digitalroom/internal/editor")
	if err != nil {
		t.Fatalf("load packages: %v", err)
	}
	seen := map[string]bool{}
	var violations []string
	var walk func(p *packages.Package)
	walk = func(p *packages.Package) {
		if seen[p.PkgPath] {
			return
		}
		seen[p.PkgPath] = true
		for _, prefix := range forbidden {
			if p.PkgPath == prefix || strings.HasPrefix(p.PkgPath, prefix+"/") {
				violations = append(violations, p.PkgPath)
			}
		}
		for _, imp := range p.Imports {
			walk(imp)
		}
	}
	for _, p := range pkgs {
		walk(p)
	}
	sort.Strings(violations)
	for _, v := range violations {
		t.Errorf("editor depends on %s", v)
	}
}
