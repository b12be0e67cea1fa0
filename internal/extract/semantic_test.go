package extract

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"onefile/internal/errors"
	"onefile/internal/registry"
	"onefile/internal/syntax"
)

func TestSemanticResolution(t *testing.T) {
	s, err := NewSemanticResolution(goRegistry(t), nil)
	require.NoError(t, err)

	tests := []struct {
		name   string
		source string
		want   []string
	}{
		{
			name:   "constructor call",
			source: "func main() { d := NewDsu(3); _ = d }",
			want:   []string{"acl.NewDsu"},
		},
		{
			name:   "method call reports receiver type",
			source: "func run(m *MinCostFlow) int { return m.Flow() }",
			want:   []string{"acl.MinCostFlow"},
		},
		{
			name:   "method value on returned pointer",
			source: "func main() { println(NewDsu(2).Leader(1)) }",
			want:   []string{"acl.Dsu", "acl.NewDsu"},
		},
		{
			name:   "generic type",
			source: "func main() { var s Segtree[int]; _ = s.Prod() }",
			want:   []string{"acl.Segtree[S]"},
		},
		{
			name:   "constant",
			source: "func main() { println(Mod) }",
			want:   []string{"acl.Mod"},
		},
		{
			name:   "local shadowing is not a reference",
			source: "func main() { Graph := 3; println(Graph) }",
			want:   []string{},
		},
		{
			name:   "comments and strings are not references",
			source: "// Graph\nfunc main() { println(\"Edge\") }",
			want:   []string{},
		},
		{
			name:   "source redeclares a library type",
			source: "type Edge struct{ From int }\n\nfunc main() { var e Edge; _ = e.From }",
			want:   []string{},
		},
		{
			name:   "source redeclares one name and uses another",
			source: "func NewDsu() int { return 0 }\n\nfunc main() { var g Graph; _ = g; _ = NewDsu() }",
			want:   []string{"acl.Graph"},
		},
		{
			name:   "qualified reference against library package",
			source: "func main() { var e acl.Edge; _ = e }",
			want:   []string{"acl.Edge"},
		},
		{
			name:   "full file with package clause and imports",
			source: "package main\n\nimport \"fmt\"\n\nfunc main() { fmt.Println(NewDsu(1)) }\n",
			want:   []string{"acl.NewDsu"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.ExtractReferencedTypes(context.Background(), tt.source)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.Sorted())
		})
	}
}

func TestSemanticResolution_ModuleBody(t *testing.T) {
	r := goRegistry(t)
	s, err := NewSemanticResolution(r, nil)
	require.NoError(t, err)

	m, ok := r.Get("mincost.go")
	require.True(t, ok)

	got, err := s.ExtractReferencedTypes(context.Background(), m.Body)
	require.NoError(t, err)
	assert.Equal(t, []string{"acl.Dsu", "acl.Graph", "acl.MinCostFlow"}, got.Sorted(),
		"a module body reports its own declarations and what it uses")
}

func TestSemanticResolution_InvalidSource(t *testing.T) {
	s, err := NewSemanticResolution(goRegistry(t), nil)
	require.NoError(t, err)

	_, err = s.ExtractReferencedTypes(context.Background(), "func main( {")
	assert.True(t, errors.HasCode(err, errors.InvalidSource))
}

func TestSemanticResolution_NilLoggerWithTypeErrors(t *testing.T) {
	s, err := NewSemanticResolution(goRegistry(t), nil)
	require.NoError(t, err)

	got, err := s.ExtractReferencedTypes(context.Background(), "func main() { undefinedCall(NewDsu(1)) }")
	require.NoError(t, err)
	assert.Equal(t, []string{"acl.NewDsu"}, got.Sorted())
}

func TestSemanticResolution_UnparsableModule(t *testing.T) {
	r, err := registry.New(syntax.Go, []*registry.Module{
		{Name: "bad.go", TypeNames: []string{"acl.Bad"}, Body: "type Bad struct{}\n\nfunc helper( {"},
		{Name: "ok.go", TypeNames: []string{"acl.Ok"}, Body: "type Ok struct{}"},
	})
	require.NoError(t, err)
	s, err := NewSemanticResolution(r, nil)
	require.NoError(t, err)

	_, err = s.ExtractReferencedTypes(context.Background(), "var b Bad\nvar o Ok")
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.InvalidSource))
	assert.Contains(t, err.Error(), "bad.go")

	_, err = s.ExtractReferencedTypes(context.Background(), "var o Ok")
	assert.True(t, errors.HasCode(err, errors.InvalidSource), "the failure is sticky")
}
