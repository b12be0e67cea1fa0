//go:build cgo

package syntax

import (
	"context"
	"fmt"
	"sync"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/csharp"
	"github.com/smacker/go-tree-sitter/golang"
	"github.com/smacker/go-tree-sitter/java"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/kotlin"
	"github.com/smacker/go-tree-sitter/python"
	"github.com/smacker/go-tree-sitter/rust"
	"github.com/smacker/go-tree-sitter/typescript/typescript"
)

// Parser wraps tree-sitter for multi-language parsing. It is safe for
// concurrent use; parses are serialized.
type Parser struct {
	mu     sync.Mutex
	parser *sitter.Parser
}

// NewParser creates a new tree-sitter parser.
func NewParser() *Parser {
	return &Parser{
		parser: sitter.NewParser(),
	}
}

// IsAvailable reports whether tree-sitter support was compiled in.
func IsAvailable() bool {
	return true
}

// HasGrammar reports whether lang has a tree-sitter grammar.
func HasGrammar(lang Language) bool {
	_, err := getLanguage(lang)
	return err == nil
}

// Parse parses source code and returns the syntax tree. Callers must Close it.
func (p *Parser) Parse(ctx context.Context, source []byte, lang Language) (*sitter.Tree, error) {
	tsLang, err := getLanguage(lang)
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	p.parser.SetLanguage(tsLang)
	tree, err := p.parser.ParseCtx(ctx, nil, source)
	if err != nil {
		return nil, fmt.Errorf("parse error: %w", err)
	}
	return tree, nil
}

// Identifiers returns the distinct identifier leaves of source in order of
// first appearance. Identifiers inside comments and literals are never leaves
// of an identifier node, so they are excluded by construction.
func (p *Parser) Identifiers(ctx context.Context, lang Language, source string) ([]string, error) {
	src := []byte(source)
	tree, err := p.Parse(ctx, src, lang)
	if err != nil {
		return nil, err
	}
	defer tree.Close()

	seen := make(map[string]struct{})
	var out []string

	var walk func(*sitter.Node)
	walk = func(node *sitter.Node) {
		if node == nil {
			return
		}
		if node.ChildCount() == 0 {
			if identifierNodeTypes[node.Type()] {
				name := node.Content(src)
				if _, ok := seen[name]; !ok {
					seen[name] = struct{}{}
					out = append(out, name)
				}
			}
			return
		}
		for i := 0; i < int(node.ChildCount()); i++ {
			walk(node.Child(i))
		}
	}
	walk(tree.RootNode())

	return out, nil
}

var identifierNodeTypes = map[string]bool{
	"identifier":                    true,
	"type_identifier":               true,
	"field_identifier":              true,
	"package_identifier":            true,
	"simple_identifier":             true,
	"property_identifier":           true,
	"shorthand_property_identifier": true,
	"constant":                      true,
}

// getLanguage returns the tree-sitter Language for a given language identifier.
func getLanguage(lang Language) (*sitter.Language, error) {
	switch lang {
	case Go:
		return golang.GetLanguage(), nil
	case JavaScript:
		return javascript.GetLanguage(), nil
	case TypeScript:
		return typescript.GetLanguage(), nil
	case Python:
		return python.GetLanguage(), nil
	case Rust:
		return rust.GetLanguage(), nil
	case Java:
		return java.GetLanguage(), nil
	case Kotlin:
		return kotlin.GetLanguage(), nil
	case CSharp:
		return csharp.GetLanguage(), nil
	default:
		return nil, fmt.Errorf("no grammar for language: %s", lang)
	}
}
