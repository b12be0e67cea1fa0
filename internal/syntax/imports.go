package syntax

import (
	"strings"
)

// Split is a source file divided at the end of its import block.
type Split struct {
	// Preamble holds header lines such as a package clause, in source order.
	Preamble []string
	// Imports holds one trimmed directive per import, in source order.
	Imports []string
	// Body is everything after the import block.
	Body string
}

// lineKind classifies a header line.
type lineKind int

const (
	lineBlank lineKind = iota
	lineComment
	linePreamble
	lineImport
	lineCode
)

// SplitImports separates the leading preamble and import directives of text
// from its body. Blank lines and comments between directives are dropped; a
// comment directly ahead of the first body line stays with the body.
//
// Go grouped imports are expanded to one `import "path"` directive per spec,
// keeping aliases.
func SplitImports(lang Language, text string) Split {
	p := ProfileFor(lang)
	text = strings.TrimPrefix(text, "\ufeff")
	lines := strings.SplitAfter(text, "\n")

	var (
		split        Split
		inBlock      bool // inside /* ... */
		pendingStart = -1
	)

	for i := 0; i < len(lines); i++ {
		line := strings.TrimRight(lines[i], "\r\n")
		trimmed := strings.TrimSpace(line)

		if inBlock {
			if pendingStart < 0 {
				pendingStart = i
			}
			if strings.Contains(trimmed, "*/") {
				inBlock = false
			}
			continue
		}

		switch classify(p, trimmed) {
		case lineBlank:
			continue
		case lineComment:
			if pendingStart < 0 {
				pendingStart = i
			}
			if p.BlockComments && strings.HasPrefix(trimmed, "/*") && !strings.Contains(trimmed[2:], "*/") {
				inBlock = true
			}
			continue
		case linePreamble:
			if len(split.Imports) > 0 {
				break
			}
			split.Preamble = append(split.Preamble, trimmed)
			pendingStart = -1
			continue
		case lineImport:
			if lang == Go && isGroupOpen(trimmed) {
				directives, next := goImportGroup(lines, i)
				split.Imports = append(split.Imports, directives...)
				i = next
			} else {
				split.Imports = append(split.Imports, trimmed)
			}
			pendingStart = -1
			continue
		}

		start := i
		if pendingStart >= 0 {
			start = pendingStart
		}
		split.Body = strings.Join(lines[start:], "")
		return split
	}

	return split
}

func classify(p Profile, trimmed string) lineKind {
	if trimmed == "" {
		return lineBlank
	}
	for _, c := range p.LineComments {
		if strings.HasPrefix(trimmed, c) {
			return lineComment
		}
	}
	if p.BlockComments && strings.HasPrefix(trimmed, "/*") {
		return lineComment
	}
	for _, prefix := range p.PreamblePrefixes {
		if hasKeyword(trimmed, prefix) {
			return linePreamble
		}
	}
	for _, prefix := range p.ImportPrefixes {
		if hasKeyword(trimmed, prefix) {
			return lineImport
		}
	}
	return lineCode
}

// hasKeyword reports whether line starts with kw followed by a separator.
func hasKeyword(line, kw string) bool {
	if !strings.HasPrefix(line, kw) {
		return false
	}
	if len(line) == len(kw) {
		return false
	}
	switch line[len(kw)] {
	case ' ', '\t', '(', '"', '{', '*':
		return true
	}
	return false
}

func isGroupOpen(trimmed string) bool {
	rest := strings.TrimSpace(strings.TrimPrefix(trimmed, "import"))
	return strings.HasPrefix(rest, "(")
}

// goImportGroup expands the group opening at lines[start] and returns the
// directives and the index of the closing line.
func goImportGroup(lines []string, start int) ([]string, int) {
	var directives []string
	add := func(spec string) {
		spec = stripLineComment(strings.TrimSpace(spec))
		spec = strings.TrimSpace(strings.TrimSuffix(spec, ";"))
		if spec == "" || strings.HasPrefix(spec, "//") {
			return
		}
		directives = append(directives, "import "+spec)
	}

	first := strings.TrimSpace(strings.TrimRight(lines[start], "\r\n"))
	rest := strings.TrimSpace(strings.TrimPrefix(first, "import"))
	rest = strings.TrimPrefix(rest, "(")
	if end := strings.Index(rest, ")"); end >= 0 {
		for _, spec := range strings.Split(rest[:end], ";") {
			add(spec)
		}
		return directives, start
	}
	add(rest)

	for i := start + 1; i < len(lines); i++ {
		line := stripLineComment(strings.TrimSpace(strings.TrimRight(lines[i], "\r\n")))
		if end := strings.Index(line, ")"); end >= 0 {
			add(line[:end])
			return directives, i
		}
		add(line)
	}
	return directives, len(lines) - 1
}

// stripLineComment drops a trailing // comment outside a quoted path.
func stripLineComment(spec string) string {
	inQuote := false
	for i := 0; i < len(spec); i++ {
		switch spec[i] {
		case '"', '`':
			inQuote = !inQuote
		case '/':
			if !inQuote && i+1 < len(spec) && spec[i+1] == '/' {
				return strings.TrimSpace(spec[:i])
			}
		}
	}
	return spec
}

// Namespace returns the qualifier declared in a file's header: the Go package
// name, the Java/Kotlin package or the C# namespace. Empty when none.
func Namespace(lang Language, text string) string {
	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		var kw string
		switch lang {
		case Go, Java, Kotlin:
			kw = "package"
		case CSharp:
			kw = "namespace"
		default:
			return ""
		}
		if !hasKeyword(trimmed, kw) {
			continue
		}
		name := strings.TrimSpace(trimmed[len(kw):])
		name = strings.TrimRight(name, ";{ \t")
		if i := strings.IndexAny(name, " \t/"); i >= 0 {
			name = name[:i]
		}
		return name
	}
	return ""
}
