package planner

import (
	"fmt"
	"strings"
)

const previewLimit = 600

// ExtractJSON isolates the JSON object in raw model output. It strips a fenced code
// block and its language tag, then slices from the first '{' to the last '}'. Without a
// usable brace pair the trimmed text is returned as is.
func ExtractJSON(text string) string {
	t := strings.TrimSpace(text)

	if strings.HasPrefix(t, "```") {
		t = strings.TrimSpace(strings.Trim(t, "`"))
		if tag, rest, ok := strings.Cut(t, "\n"); ok && isLanguageTag(tag) {
			t = strings.TrimSpace(rest)
		} else if len(t) >= 4 && strings.EqualFold(t[:4], "json") {
			t = strings.TrimSpace(t[4:])
		}
	}

	start := strings.Index(t, "{")
	end := strings.LastIndex(t, "}")
	if start != -1 && end > start {
		return t[start : end+1]
	}
	return t
}

func isLanguageTag(s string) bool {
	s = strings.TrimSpace(s)
	if s == "" {
		return false
	}
	for _, r := range s {
		if !(r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' || r == '-' || r == '_') {
			return false
		}
	}
	return true
}

// SanitizeJSON escapes control characters that appear inside string literals.
// Anything outside a string, including newlines between tokens, is left alone.
func SanitizeJSON(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 16)

	inString := false
	escaped := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if !inString {
			if c == '"' {
				inString = true
			}
			b.WriteByte(c)
			continue
		}

		switch {
		case escaped:
			escaped = false
			b.WriteByte(c)
		case c == '\\':
			escaped = true
			b.WriteByte(c)
		case c == '"':
			inString = false
			b.WriteByte(c)
		case c == '\n':
			b.WriteString(`\n`)
		case c == '\r':
			b.WriteString(`\r`)
		case c == '\t':
			b.WriteString(`\t`)
		case c < 0x20:
			fmt.Fprintf(&b, `\u%04x`, c)
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}

// Preview returns the first 600 characters of text with newlines escaped.
func Preview(text string) string {
	r := []rune(text)
	if len(r) > previewLimit {
		r = r[:previewLimit]
	}
	p := strings.ReplaceAll(string(r), "\r", `\r`)
	return strings.ReplaceAll(p, "\n", `\n`)
}
