package syntax

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// LexIdentifiers returns the distinct identifiers in source in order of first
// appearance. Comments and string or character literals are skipped.
func LexIdentifiers(lang Language, source string) []string {
	p := ProfileFor(lang)
	seen := make(map[string]struct{})
	var out []string

	i := 0
	for i < len(source) {
		if n := commentLen(p, source[i:]); n > 0 {
			i += n
			continue
		}

		r, size := utf8.DecodeRuneInString(source[i:])
		switch {
		case r == '"' || r == '\'' || (r == '`' && p.RawStrings):
			i += stringLen(p, source[i:], byte(r))
		case isIdentStart(r):
			start := i
			i += size
			for i < len(source) {
				r, size = utf8.DecodeRuneInString(source[i:])
				if !isIdentPart(r) {
					break
				}
				i += size
			}
			word := source[start:i]
			if _, ok := seen[word]; !ok {
				seen[word] = struct{}{}
				out = append(out, word)
			}
		case unicode.IsDigit(r):
			// Skip numeric literals whole so 0x1F does not yield "x1F".
			i += size
			for i < len(source) {
				r, size = utf8.DecodeRuneInString(source[i:])
				if !isIdentPart(r) && r != '.' {
					break
				}
				i += size
			}
		default:
			i += size
		}
	}
	return out
}

func isIdentStart(r rune) bool {
	return r == '_' || unicode.IsLetter(r)
}

func isIdentPart(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

// commentLen returns the length of the comment starting at s, or 0.
func commentLen(p Profile, s string) int {
	for _, c := range p.LineComments {
		if strings.HasPrefix(s, c) {
			if end := strings.IndexByte(s, '\n'); end >= 0 {
				return end + 1
			}
			return len(s)
		}
	}
	if p.BlockComments && strings.HasPrefix(s, "/*") {
		if end := strings.Index(s[2:], "*/"); end >= 0 {
			return end + 4
		}
		return len(s)
	}
	return 0
}

// stringLen returns the length of the literal opened by quote at s[0].
// Unterminated literals run to the end of the line.
func stringLen(p Profile, s string, quote byte) int {
	if p.Language == Python && strings.HasPrefix(s, strings.Repeat(string(quote), 3)) {
		delim := s[:3]
		if end := strings.Index(s[3:], delim); end >= 0 {
			return end + 6
		}
		return len(s)
	}

	raw := quote == '`'
	// Rust lifetimes ('a) and generics look like char literals; bail at the first non-closing rune.
	if quote == '\'' && p.Language == Rust && !rustCharLiteral(s) {
		return 1
	}
	for i := 1; i < len(s); i++ {
		switch s[i] {
		case '\\':
			if !raw {
				i++
			}
		case '\n':
			if !raw {
				return i
			}
		case quote:
			return i + 1
		}
	}
	return len(s)
}

func rustCharLiteral(s string) bool {
	if len(s) >= 3 && s[1] == '\\' {
		return true
	}
	_, size := utf8.DecodeRuneInString(s[1:])
	return len(s) > 1+size && s[1+size] == '\''
}
