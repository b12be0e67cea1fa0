package bundler

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"onefile/internal/errors"
	"onefile/internal/extract"
	"onefile/internal/guard"
	"onefile/internal/registry"
	"onefile/internal/syntax"
	"onefile/internal/testutil"
)

func libraryModules() []*registry.Module {
	return []*registry.Module{
		{Name: "A", TypeNames: []string{"Ta"}, Imports: []string{"import shared"}, Body: "struct Ta {}"},
		{Name: "B", TypeNames: []string{"Tb"}, Imports: []string{"import shared", "import b_only"}, Body: "struct Tb { a: Ta }"},
		{Name: "C", TypeNames: []string{"Tc"}, Body: "struct Tc { b: Tb }"},
		{Name: "D", TypeNames: []string{"Td"}, Imports: []string{"import d_only"}, Body: "struct Td {}"},
	}
}

type fataler interface {
	Fatal(args ...any)
}

func newEngine(t fataler, modules []*registry.Module, method extract.Method) *Engine {
	reg, err := registry.New(syntax.Generic, modules)
	if err != nil {
		t.Fatal(err)
	}
	s, err := extract.New(method, reg)
	if err != nil {
		t.Fatal(err)
	}
	e, err := New(reg, s, WithAutoBuild(nil))
	if err != nil {
		t.Fatal(err)
	}
	return e
}

const entryText = "import shared\nfn main(){ let c = Tc{}; }\n"

func TestResolve_AutoBuild(t *testing.T) {
	e := newEngine(t, libraryModules(), extract.NameHeuristic)

	b, err := e.Resolve(context.Background(), entryText)
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B", "C"}, b.ModuleNames)
	assert.Equal(t, []string{"import b_only", "import shared"}, b.SortedImports)
	assert.True(t, e.Registry().Ready())

	assert.Equal(t,
		"import b_only\nimport shared\n\nfn main(){ let c = Tc{}; }\n// BEGIN-LIBRARY\nstruct Ta {}\nstruct Tb { a: Ta }\nstruct Tc { b: Tb }\n// END-LIBRARY\n",
		b.String())
}

func TestResolve_NotBuiltWithoutAutoBuild(t *testing.T) {
	reg, err := registry.New(syntax.Generic, libraryModules())
	require.NoError(t, err)
	s, err := extract.New(extract.NameHeuristic, reg)
	require.NoError(t, err)

	_, err = Resolve(context.Background(), entryText, reg, s)
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.RegistryNotBuilt))
}

func TestNew_NilStrategy(t *testing.T) {
	reg, err := registry.New(syntax.Generic, libraryModules())
	require.NoError(t, err)

	_, err = New(reg, nil)
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.UnsupportedStrategy))
}

func TestResolve_EmitAll(t *testing.T) {
	e := newEngine(t, libraryModules(), extract.EmitAll)

	b, err := e.Resolve(context.Background(), "fn main(){}")
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B", "C", "D"}, b.ModuleNames)
}

func TestResolve_Idempotent(t *testing.T) {
	e := newEngine(t, libraryModules(), extract.NameHeuristic)
	ctx := context.Background()

	rapid.Check(t, func(t *rapid.T) {
		var refs []string
		for _, ty := range []string{"Ta", "Tb", "Tc", "Td", "Unknown"} {
			if rapid.Bool().Draw(t, ty) {
				refs = append(refs, ty)
			}
		}
		text := "import shared\nfn main(){ " + strings.Join(refs, "; ") + " }"

		first, err := e.Render(ctx, text)
		if err != nil {
			t.Fatal(err)
		}
		second, err := e.Render(ctx, text)
		if err != nil {
			t.Fatal(err)
		}
		if first != second {
			t.Fatalf("render not idempotent:\n%s\nvs\n%s", first, second)
		}
	})
}

func TestResolve_RegistryOrderIndependent(t *testing.T) {
	ctx := context.Background()
	want, err := newEngine(t, libraryModules(), extract.NameHeuristic).Render(ctx, entryText)
	require.NoError(t, err)

	rapid.Check(t, func(t *rapid.T) {
		perm := rapid.Permutation(libraryModules()).Draw(t, "modules")
		got, err := newEngine(t, perm, extract.NameHeuristic).Render(ctx, entryText)
		if err != nil {
			t.Fatal(err)
		}
		if got != want {
			t.Fatalf("output depends on registry order:\n%s\nvs\n%s", got, want)
		}
	})
}

func TestWriteIfStale(t *testing.T) {
	dir := t.TempDir()
	testutil.WriteTree(t, dir, map[string]string{"main.src": entryText})
	entry := filepath.Join(dir, "main.src")
	output := filepath.Join(dir, "bundle.src")

	e := newEngine(t, libraryModules(), extract.NameHeuristic)
	ctx := context.Background()

	outcome, err := e.WriteIfStale(ctx, output, entry)
	require.NoError(t, err)
	assert.Equal(t, guard.Written, outcome)

	content := testutil.ReadFile(t, output)
	assert.True(t, strings.HasPrefix(content, "// onefile: mtime:"))
	assert.Contains(t, content, "struct Tc { b: Tb }")

	outcome, err = e.WriteIfStale(ctx, output, entry)
	require.NoError(t, err)
	assert.Equal(t, guard.Skipped, outcome)
}

func TestWriteIfStale_UnsupportedStrategyLeavesOutput(t *testing.T) {
	dir := t.TempDir()
	testutil.WriteTree(t, dir, map[string]string{"main.src": entryText})
	output := filepath.Join(dir, "bundle.src")

	reg, err := registry.NewBuilt(syntax.Generic, libraryModules())
	require.NoError(t, err)
	_, err = extract.New(extract.SemanticResolution, reg)
	require.Error(t, err, "semantic resolution needs a Go registry")

	outcome, err := WriteIfStale(context.Background(), output, filepath.Join(dir, "main.src"), reg, nil)
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.UnsupportedStrategy))
	assert.Equal(t, guard.Skipped, outcome)
	_, statErr := os.Stat(output)
	assert.True(t, os.IsNotExist(statErr))
}
