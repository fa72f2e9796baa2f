// Package expr reads and rewrites question references inside questionnaire
// conditions and calculated expressions, e.g. "{age} > 18 and {bp.sys} notempty".
package expr

import "strings"

type segmentKind int

const (
	segmentText segmentKind = iota
	segmentString
	segmentReference
)

// segment is a lossless slice of the input. For references, raw holds the text
// between the braces and name the leading identifier.
type segment struct {
	kind segmentKind
	raw  string
	name string
}

func tokenize(input string) []segment {
	var (
		out   []segment
		start int
		i     int
	)
	flush := func(end int) {
		if end > start {
			out = append(out, segment{kind: segmentText, raw: input[start:end]})
		}
	}

	for i < len(input) {
		ch := input[i]
		switch ch {
		case '"', '\'':
			end := scanString(input, i)
			flush(i)
			out = append(out, segment{kind: segmentString, raw: input[i:end]})
			i, start = end, end
		case '{':
			closeIdx := strings.IndexByte(input[i+1:], '}')
			if closeIdx < 0 {
				i = len(input)
				continue
			}
			inner := input[i+1 : i+1+closeIdx]
			name := leadingIdentifier(inner)
			if name == "" {
				i++
				continue
			}
			flush(i)
			out = append(out, segment{kind: segmentReference, raw: inner, name: name})
			i = i + closeIdx + 2
			start = i
		default:
			i++
		}
	}
	flush(len(input))
	return out
}

// scanString returns the index just past the literal starting at pos. An
// unterminated literal runs to the end of input.
func scanString(input string, pos int) int {
	quote := input[pos]
	escaped := false
	for i := pos + 1; i < len(input); i++ {
		c := input[i]
		if escaped {
			escaped = false
			continue
		}
		if c == '\\' {
			escaped = true
			continue
		}
		if c == quote {
			return i + 1
		}
	}
	return len(input)
}

func leadingIdentifier(inner string) string {
	trimmed := strings.TrimSpace(inner)
	if idx := strings.IndexAny(trimmed, ".["); idx >= 0 {
		trimmed = trimmed[:idx]
	}
	trimmed = strings.TrimSpace(trimmed)
	if trimmed == "" || strings.ContainsAny(trimmed, "{}") {
		return ""
	}
	return trimmed
}

// References lists the distinct question names an expression refers to, in
// order of first appearance. Only the leading segment of a dotted or indexed
// reference is reported.
func References(expression string) []string {
	var out []string
	seen := make(map[string]struct{})
	for _, seg := range tokenize(expression) {
		if seg.kind != segmentReference {
			continue
		}
		if _, ok := seen[seg.name]; ok {
			continue
		}
		seen[seg.name] = struct{}{}
		out = append(out, seg.name)
	}
	return out
}

// Rename rewrites references whose leading identifier is a key of renames.
// Matching is by whole identifier, so {a} never touches {ab}; text inside
// quoted literals is left as is.
func Rename(expression string, renames map[string]string) string {
	if expression == "" || len(renames) == 0 {
		return expression
	}
	segments := tokenize(expression)
	changed := false
	var b strings.Builder
	b.Grow(len(expression))
	for _, seg := range segments {
		switch seg.kind {
		case segmentReference:
			b.WriteByte('{')
			if repl, ok := renames[seg.name]; ok && repl != seg.name {
				b.WriteString(strings.Replace(seg.raw, seg.name, repl, 1))
				changed = true
			} else {
				b.WriteString(seg.raw)
			}
			b.WriteByte('}')
		default:
			b.WriteString(seg.raw)
		}
	}
	if !changed {
		return expression
	}
	return b.String()
}
