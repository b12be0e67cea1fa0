//go:build cgo

package syntax

import (
	"context"

	sitter "github.com/smacker/go-tree-sitter"
)

// Declaration is a named top-level declaration found in a source file.
type Declaration struct {
	Name string
	Kind string // "type", "class", "interface", "enum", "function", "value"
	Line int    // 1-indexed
}

// Declarations lists the type-level declarations of source: types, classes,
// interfaces, structs, enums, traits and top-level functions. Go also yields
// top-level var and const names. Methods are not declarations.
func (p *Parser) Declarations(ctx context.Context, lang Language, source string) ([]Declaration, error) {
	src := []byte(source)
	tree, err := p.Parse(ctx, src, lang)
	if err != nil {
		return nil, err
	}
	defer tree.Close()

	root := tree.RootNode()
	var decls []Declaration
	add := func(node, nameNode *sitter.Node, kind string) {
		if nameNode == nil {
			return
		}
		name := nameNode.Content(src)
		if name == "" || name == "_" || (lang == Go && (name == "init" || name == "main")) {
			return
		}
		decls = append(decls, Declaration{Name: name, Kind: kind, Line: int(node.StartPoint().Row) + 1})
	}

	if lang == Go {
		for i := 0; i < int(root.NamedChildCount()); i++ {
			node := root.NamedChild(i)
			switch node.Type() {
			case "type_declaration":
				for _, spec := range children(node, "type_spec", "type_alias") {
					add(spec, spec.ChildByFieldName("name"), "type")
				}
			case "function_declaration":
				add(node, node.ChildByFieldName("name"), "function")
			case "var_declaration", "const_declaration":
				for _, spec := range findNodes(node, []string{"var_spec", "const_spec"}) {
					for _, id := range children(spec, "identifier") {
						add(spec, id, "value")
					}
				}
			}
		}
		return decls, nil
	}

	for _, node := range findNodes(root, classNodeTypes(lang)) {
		add(node, className(node), classKind(node))
	}
	for i := 0; i < int(root.NamedChildCount()); i++ {
		node := root.NamedChild(i)
		if contains(topLevelFunctionTypes(lang), node.Type()) {
			add(node, className(node), "function")
		}
	}
	return decls, nil
}

// classNodeTypes returns node types for classes/types/interfaces.
func classNodeTypes(lang Language) []string {
	switch lang {
	case JavaScript, TypeScript:
		return []string{"class_declaration", "interface_declaration", "type_alias_declaration", "enum_declaration"}
	case Python:
		return []string{"class_definition"}
	case Rust:
		return []string{"struct_item", "enum_item", "trait_item", "type_item", "union_item"}
	case Java:
		return []string{"class_declaration", "interface_declaration", "enum_declaration", "record_declaration"}
	case Kotlin:
		return []string{"class_declaration", "object_declaration"}
	case CSharp:
		return []string{"class_declaration", "struct_declaration", "interface_declaration", "enum_declaration", "record_declaration"}
	default:
		return nil
	}
}

func topLevelFunctionTypes(lang Language) []string {
	switch lang {
	case JavaScript, TypeScript:
		return []string{"function_declaration", "generator_function_declaration"}
	case Python:
		return []string{"function_definition"}
	case Rust:
		return []string{"function_item"}
	case Kotlin:
		return []string{"function_declaration"}
	default:
		return nil
	}
}

// className extracts the declared name from a declaration node.
func className(node *sitter.Node) *sitter.Node {
	if name := node.ChildByFieldName("name"); name != nil {
		return name
	}
	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		switch child.Type() {
		case "identifier", "simple_identifier", "type_identifier":
			return child
		}
	}
	return nil
}

func classKind(node *sitter.Node) string {
	switch node.Type() {
	case "interface_declaration", "trait_item":
		return "interface"
	case "enum_declaration", "enum_item":
		return "enum"
	case "class_declaration", "class_definition", "object_declaration", "record_declaration":
		return "class"
	}
	return "type"
}

func children(node *sitter.Node, types ...string) []*sitter.Node {
	var out []*sitter.Node
	for i := 0; i < int(node.NamedChildCount()); i++ {
		child := node.NamedChild(i)
		if contains(types, child.Type()) {
			out = append(out, child)
		}
	}
	return out
}

// findNodes finds all nodes of the given types in the AST.
func findNodes(root *sitter.Node, types []string) []*sitter.Node {
	if len(types) == 0 {
		return nil
	}

	var result []*sitter.Node
	var walk func(*sitter.Node)
	walk = func(node *sitter.Node) {
		if node == nil {
			return
		}
		if contains(types, node.Type()) {
			result = append(result, node)
		}
		for i := 0; i < int(node.ChildCount()); i++ {
			walk(node.Child(i))
		}
	}
	walk(root)
	return result
}

func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}
