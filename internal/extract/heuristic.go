package extract

import (
	"context"
	"log/slog"

	"onefile/internal/registry"
	"onefile/internal/slogutil"
	"onefile/internal/syntax"
)

type nameHeuristic struct {
	reg    *registry.Registry
	lang   syntax.Language
	parser *syntax.Parser
	logger *slog.Logger
}

// NewNameHeuristic returns a strategy that reports every type identifier whose
// simple name appears as an identifier in the source. Identifiers come from
// tree-sitter when the language has a grammar, otherwise from a lexical scan.
// Over-inclusion is possible when unrelated identifiers share a simple name.
func NewNameHeuristic(reg *registry.Registry, logger *slog.Logger) Strategy {
	h := &nameHeuristic{
		reg:    reg,
		lang:   reg.Language(),
		logger: slogutil.OrDiscard(logger),
	}
	if syntax.HasGrammar(h.lang) {
		h.parser = syntax.NewParser()
	}
	return h
}

func (h *nameHeuristic) Method() Method { return NameHeuristic }

func (h *nameHeuristic) ExtractReferencedTypes(ctx context.Context, source string) (TypeSet, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	ids, err := h.identifiers(ctx, source)
	if err != nil {
		return nil, err
	}

	simple := h.reg.SimpleNames()
	set := make(TypeSet)
	for _, id := range ids {
		for _, typeID := range simple[id] {
			set.Add(typeID)
		}
	}
	return set, nil
}

func (h *nameHeuristic) identifiers(ctx context.Context, source string) ([]string, error) {
	if h.parser == nil {
		return syntax.LexIdentifiers(h.lang, source), nil
	}
	ids, err := h.parser.Identifiers(ctx, h.lang, source)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		h.logger.Debug("tree-sitter identifier scan failed, using lexer", "language", string(h.lang), "error", err.Error())
		return syntax.LexIdentifiers(h.lang, source), nil
	}
	return ids, nil
}
