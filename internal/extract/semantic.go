package extract

import (
	"context"
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"go/types"
	"log/slog"
	"path"
	"strings"
	"sync"

	"golang.org/x/tools/go/ast/inspector"

	"onefile/internal/errors"
	"onefile/internal/registry"
	"onefile/internal/slogutil"
	"onefile/internal/syntax"
)

// checkedPackage is the package name every file is checked under. A bundle
// puts the entry and all library bodies in one file, so they share a scope.
const checkedPackage = "onefile"

const sourceFilename = "<source>"

type semanticResolution struct {
	reg    *registry.Registry
	logger *slog.Logger

	once    sync.Once
	lib     *goLibrary
	loadErr error
}

// goLibrary is the registry parsed once and reused by every check.
type goLibrary struct {
	fset       *token.FileSet
	files      []*ast.File
	fileOf     map[string]*ast.File         // module name, also the filename -> file
	byBody     map[string]string            // body text -> module name
	declared   map[string]map[string]string // module name -> simple name -> type id
	qualified  map[string]string            // "pkg.Name" -> type id
	qualifiers map[string]bool
}

// NewSemanticResolution returns a strategy that type-checks the source
// together with every registry module body as one Go package and reports
// the library declarations its identifiers bind to. Methods and fields report
// their receiver type. Only Go registries are supported.
func NewSemanticResolution(reg *registry.Registry, logger *slog.Logger) (Strategy, error) {
	if reg.Language() != syntax.Go {
		return nil, errors.Newf(errors.UnsupportedStrategy,
			"semantic resolution is not available for %s sources; use \"name\" or \"all\"", reg.Language())
	}
	return &semanticResolution{reg: reg, logger: slogutil.OrDiscard(logger)}, nil
}

func (s *semanticResolution) Method() Method { return SemanticResolution }

func (s *semanticResolution) ExtractReferencedTypes(ctx context.Context, source string) (TypeSet, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.once.Do(func() { s.lib, s.loadErr = s.loadLibrary() })
	if s.loadErr != nil {
		return nil, s.loadErr
	}
	lib := s.lib

	files := lib.files
	var target *ast.File
	if name, ok := lib.byBody[source]; ok {
		target = lib.fileOf[name]
	} else {
		f, err := parseGoSource(lib.fset, sourceFilename, source)
		if err != nil {
			return nil, errors.New(errors.InvalidSource, "cannot parse Go source", err)
		}
		target = f
		files = append(append(make([]*ast.File, 0, len(lib.files)+1), lib.files...), f)
	}

	info := &types.Info{
		Uses:       make(map[*ast.Ident]types.Object),
		Selections: make(map[*ast.SelectorExpr]*types.Selection),
	}
	softErrors := 0
	conf := types.Config{
		Importer:                 emptyImporter{},
		FakeImportC:              true,
		DisableUnusedImportCheck: true,
		Error:                    func(error) { softErrors++ },
	}
	pkg, _ := conf.Check(checkedPackage, lib.fset, files, info)
	if softErrors > 0 {
		s.logger.Debug("Tolerated type errors", "count", softErrors)
	}

	// Names the target declares itself. The checker binds a redeclared
	// name to the library's declaration, so those uses are the target's own.
	own := topLevelNames(target)
	targetFile := lib.fset.Position(target.Pos()).Filename

	set := make(TypeSet)
	report := func(obj types.Object) {
		if own[obj.Name()] && lib.fset.Position(obj.Pos()).Filename != targetFile {
			return
		}
		if typeID, ok := lib.typeIDFor(pkg, obj); ok {
			set.Add(typeID)
		}
	}

	insp := inspector.New([]*ast.File{target})
	insp.Preorder([]ast.Node{(*ast.Ident)(nil), (*ast.SelectorExpr)(nil)}, func(n ast.Node) {
		switch n := n.(type) {
		case *ast.Ident:
			if obj := info.Uses[n]; obj != nil {
				report(obj)
			}
		case *ast.SelectorExpr:
			if sel, ok := info.Selections[n]; ok {
				if named := namedType(sel.Recv()); named != nil {
					report(named.Obj())
				}
				return
			}
			// acl.Dsu written against the library's own package name
			if x, ok := n.X.(*ast.Ident); ok && info.Uses[x] == nil && lib.qualifiers[x.Name] {
				if typeID, ok := lib.qualified[x.Name+"."+n.Sel.Name]; ok {
					set.Add(typeID)
				}
			}
		}
	})

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return set, nil
}

// loadLibrary parses every module once. A module that does not parse fails
// the whole strategy: its declarations could never be resolved.
func (s *semanticResolution) loadLibrary() (*goLibrary, error) {
	lib := &goLibrary{
		fset:       token.NewFileSet(),
		fileOf:     make(map[string]*ast.File),
		byBody:     make(map[string]string),
		declared:   make(map[string]map[string]string),
		qualified:  make(map[string]string),
		qualifiers: make(map[string]bool),
	}

	for _, m := range s.reg.Modules() {
		declared := make(map[string]string, len(m.TypeNames))
		for _, id := range m.TypeNames {
			declared[syntax.SimpleName(id)] = id
			base := strings.SplitN(id, "[", 2)[0]
			if i := strings.LastIndex(base, "."); i > 0 {
				qual := base[:i]
				lib.qualifiers[qual] = true
				lib.qualified[qual+"."+base[i+1:]] = id
			}
		}
		lib.declared[m.Name] = declared

		text := "package " + checkedPackage + "\n" + strings.Join(m.Imports, "\n") + "\n" + m.Body
		f, err := parser.ParseFile(lib.fset, m.Name, text, parser.SkipObjectResolution)
		if err != nil {
			return nil, errors.New(errors.InvalidSource, fmt.Sprintf("cannot parse module %s", m.Name), err)
		}
		lib.files = append(lib.files, f)
		lib.fileOf[m.Name] = f
		if _, dup := lib.byBody[m.Body]; !dup {
			lib.byBody[m.Body] = m.Name
		}
	}
	return lib, nil
}

// topLevelNames returns the package-level names f declares. Methods are
// excluded since they live in their receiver's scope.
func topLevelNames(f *ast.File) map[string]bool {
	names := make(map[string]bool)
	for _, decl := range f.Decls {
		switch d := decl.(type) {
		case *ast.FuncDecl:
			if d.Recv == nil {
				names[d.Name.Name] = true
			}
		case *ast.GenDecl:
			for _, spec := range d.Specs {
				switch sp := spec.(type) {
				case *ast.TypeSpec:
					names[sp.Name.Name] = true
				case *ast.ValueSpec:
					for _, n := range sp.Names {
						names[n.Name] = true
					}
				}
			}
		}
	}
	return names
}

// typeIDFor maps a package-level library object to the type identifier its
// module declares. Methods map to their receiver type.
func (lib *goLibrary) typeIDFor(pkg *types.Package, obj types.Object) (string, bool) {
	if pkg == nil || obj.Pkg() != pkg {
		return "", false
	}
	if fn, ok := obj.(*types.Func); ok {
		if recv := fn.Type().(*types.Signature).Recv(); recv != nil {
			named := namedType(recv.Type())
			if named == nil {
				return "", false
			}
			obj = named.Obj()
		}
	}
	if v, ok := obj.(*types.Var); ok && v.IsField() {
		return "", false
	}
	if obj.Parent() != pkg.Scope() {
		return "", false
	}

	declared, ok := lib.declared[lib.fset.Position(obj.Pos()).Filename]
	if !ok {
		return "", false
	}
	typeID, ok := declared[obj.Name()]
	return typeID, ok
}

// namedType strips pointers and returns the named type, if any.
func namedType(t types.Type) *types.Named {
	for {
		switch tt := t.(type) {
		case *types.Pointer:
			t = tt.Elem()
		case *types.Alias:
			t = types.Unalias(tt)
		case *types.Named:
			return tt
		default:
			return nil
		}
	}
}

// parseGoSource parses a file or a bare body. Files keep their imports and
// are renamed into the checked package.
func parseGoSource(fset *token.FileSet, filename, source string) (*ast.File, error) {
	text := source
	if len(syntax.SplitImports(syntax.Go, source).Preamble) == 0 {
		text = "package " + checkedPackage + "\n" + source
	}
	f, err := parser.ParseFile(fset, filename, text, parser.SkipObjectResolution)
	if err != nil {
		return nil, err
	}
	f.Name = ast.NewIdent(checkedPackage)
	return f, nil
}

// emptyImporter satisfies every import with an empty package so checking
// never touches the toolchain; uses of imported names become soft errors.
type emptyImporter struct{}

func (emptyImporter) Import(importPath string) (*types.Package, error) {
	if importPath == "" {
		return nil, fmt.Errorf("empty import path")
	}
	name := path.Base(importPath)
	if i := strings.IndexAny(name, ".-"); i > 0 {
		name = name[:i]
	}
	pkg := types.NewPackage(importPath, name)
	pkg.MarkComplete()
	return pkg, nil
}
