//go:build !cgo

package syntax

import (
	"context"
)

// Declaration is a named top-level declaration found in a source file.
type Declaration struct {
	Name string
	Kind string
	Line int
}

// Parser is a stub for non-CGO builds.
type Parser struct{}

// NewParser returns nil when CGO is disabled.
func NewParser() *Parser {
	return nil
}

// IsAvailable returns false when CGO is disabled.
func IsAvailable() bool {
	return false
}

// HasGrammar returns false when CGO is disabled.
func HasGrammar(lang Language) bool {
	return false
}

// Identifiers always fails without CGO.
func (p *Parser) Identifiers(ctx context.Context, lang Language, source string) ([]string, error) {
	return nil, ErrNoCGO
}

// Declarations always fails without CGO.
func (p *Parser) Declarations(ctx context.Context, lang Language, source string) ([]Declaration, error) {
	return nil, ErrNoCGO
}
