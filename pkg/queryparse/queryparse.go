// Package queryparse extracts operation names and requested field names
// from raw GraphQL-ish query text without a schema-aware parser.
//
// Exactly three document shapes are recognized: the anonymous object form
// beginning with "{", the named-operation form beginning with an
// identifier, and the combined multi-operation form beginning with
// "query CombinedQuery" whose top-level fields carry an encryptedKey
// string argument. Field extraction is a single-level word scan over each
// selection body: aliases, fragments, and nested selections are not
// resolved, and extending the parser past these shapes is out of its
// contract.
package queryparse

import (
	"regexp"
	"strings"
)

const combinedPrefix = "query CombinedQuery"

var (
	wordPat         = regexp.MustCompile(`[A-Za-z_][A-Za-z0-9_]*`)
	encryptedKeyPat = regexp.MustCompile(`encryptedKey\s*:\s*"`)
)

// Parse reduces query text to a map of operation name to requested field
// names. Unrecognized text yields an empty map; callers treat an empty
// result as "nothing authorizable requested".
func Parse(query string) map[string][]string {
	trimmed := strings.TrimSpace(query)

	switch {
	case hasCombinedPrefix(trimmed):
		return parseCombined(trimmed[len(combinedPrefix):])
	case strings.HasPrefix(trimmed, "{"):
		return parseAnonymous(trimmed)
	default:
		return parseNamed(trimmed)
	}
}

// hasCombinedPrefix requires the marker as a whole word so that
// operation labels merely starting with it fall through to parseNamed.
func hasCombinedPrefix(text string) bool {
	if !strings.HasPrefix(text, combinedPrefix) {
		return false
	}
	return len(text) == len(combinedPrefix) || !isWordByte(text[len(combinedPrefix)])
}

// parseAnonymous handles documents of the form
// `{ op1(args) { fields } op2 { fields } }`. Fields for repeated
// invocations of the same operation are grouped together.
func parseAnonymous(text string) map[string][]string {
	s := newScanner(text)
	if !s.consume('{') {
		return map[string][]string{}
	}

	ops := map[string][]string{}
	for s.pos < len(s.text) {
		name, ok := s.readIdent()
		if !ok {
			s.pos++
			continue
		}
		s.skipParens()
		body, ok := s.readBraceBody()
		if !ok {
			// A scalar field with no selection body; keep scanning.
			continue
		}
		ops[name] = dedupeFields(append(ops[name], extractWords(body)...))
	}
	return ops
}

// parseNamed handles a single wrapped operation such as
// `query fetchSpecies($id: ID) { getSpecies(id: $id) { fields } }`.
// The map key is the inner field name, the operation actually invoked.
func parseNamed(text string) map[string][]string {
	s := newScanner(text)
	if _, ok := s.readIdent(); !ok {
		return map[string][]string{}
	}
	s.skipIdent() // optional operation label after the keyword
	s.skipParens()
	if !s.consume('{') {
		return map[string][]string{}
	}

	name, ok := s.readIdent()
	if !ok {
		return map[string][]string{}
	}
	s.skipParens()
	body, ok := s.readBraceBody()
	if !ok {
		return map[string][]string{}
	}

	return map[string][]string{name: dedupeFields(extractWords(body))}
}

// parseCombined handles `query CombinedQuery { ... }` documents. Only
// top-level fields invoked with a literal encryptedKey string argument
// are taken; anything else at that level is skipped.
func parseCombined(text string) map[string][]string {
	s := newScanner(text)
	s.skipParens()
	if !s.consume('{') {
		return map[string][]string{}
	}

	ops := map[string][]string{}
	for s.pos < len(s.text) {
		name, ok := s.readIdent()
		if !ok {
			s.pos++
			continue
		}
		args := s.readParens()
		body, ok := s.readBraceBody()
		if !ok {
			continue
		}
		if !encryptedKeyPat.MatchString(args) {
			continue
		}
		ops[name] = dedupeFields(append(ops[name], extractWords(body)...))
	}
	return ops
}

// extractWords performs the single-level scan: every word token in the
// body counts as a requested field, punctuation and nesting are skipped.
func extractWords(body string) []string {
	return wordPat.FindAllString(body, -1)
}

// dedupeFields removes duplicates preserving first-seen order and always
// drops the __typename meta field.
func dedupeFields(fields []string) []string {
	seen := map[string]bool{}
	rc := make([]string, 0, len(fields))
	for _, f := range fields {
		if strings.EqualFold(f, "__typename") {
			continue
		}
		if seen[f] {
			continue
		}
		seen[f] = true
		rc = append(rc, f)
	}
	return rc
}

type scanner struct {
	text string
	pos  int
}

func newScanner(text string) *scanner {
	return &scanner{text: text}
}

func (s *scanner) skipSpace() {
	for s.pos < len(s.text) {
		switch s.text[s.pos] {
		case ' ', '\t', '\n', '\r', ',':
			s.pos++
		default:
			return
		}
	}
}

func (s *scanner) consume(c byte) bool {
	s.skipSpace()
	if s.pos < len(s.text) && s.text[s.pos] == c {
		s.pos++
		return true
	}
	return false
}

func isWordByte(c byte) bool {
	return c == '_' ||
		(c >= 'a' && c <= 'z') ||
		(c >= 'A' && c <= 'Z') ||
		(c >= '0' && c <= '9')
}

func (s *scanner) readIdent() (string, bool) {
	s.skipSpace()
	start := s.pos
	for s.pos < len(s.text) && isWordByte(s.text[s.pos]) {
		s.pos++
	}
	if s.pos == start {
		return "", false
	}
	return s.text[start:s.pos], true
}

func (s *scanner) skipIdent() {
	s.readIdent()
}

// readParens consumes a balanced parenthesized group, returning its raw
// contents, or "" when the next token is not an open paren. Quoted
// strings inside the group may contain parens and are skipped whole.
func (s *scanner) readParens() string {
	s.skipSpace()
	if s.pos >= len(s.text) || s.text[s.pos] != '(' {
		return ""
	}
	start := s.pos + 1
	depth := 0
	for s.pos < len(s.text) {
		switch s.text[s.pos] {
		case '"':
			s.pos++
			for s.pos < len(s.text) && s.text[s.pos] != '"' {
				if s.text[s.pos] == '\\' {
					s.pos++
				}
				s.pos++
			}
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				contents := s.text[start:s.pos]
				s.pos++
				return contents
			}
		}
		s.pos++
	}
	return ""
}

func (s *scanner) skipParens() {
	s.readParens()
}

// readBraceBody consumes a balanced brace block, returning its raw
// contents without the outer braces.
func (s *scanner) readBraceBody() (string, bool) {
	s.skipSpace()
	if s.pos >= len(s.text) || s.text[s.pos] != '{' {
		return "", false
	}
	start := s.pos + 1
	depth := 0
	for s.pos < len(s.text) {
		switch s.text[s.pos] {
		case '"':
			s.pos++
			for s.pos < len(s.text) && s.text[s.pos] != '"' {
				if s.text[s.pos] == '\\' {
					s.pos++
				}
				s.pos++
			}
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				body := s.text[start:s.pos]
				s.pos++
				return body, true
			}
		}
		s.pos++
	}
	return "", false
}
