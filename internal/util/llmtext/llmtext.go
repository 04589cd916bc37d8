// Package llmtext recovers structured fragments from free-form LLM
// responses: fenced code blocks and JSON objects embedded in prose.
package llmtext

import (
	"regexp"
	"strings"
)

// Fence is one fenced code block from a model response.
type Fence struct {
	Lang string
	Body string
}

var fenceRe = regexp.MustCompile("(?s)```([a-zA-Z0-9_+-]*)\\s*\\n(.*?)\\n```")

// Fences returns every fenced block in s in order of appearance.
// Language tags are lowercased, bodies trimmed.
func Fences(s string) []Fence {
	matches := fenceRe.FindAllStringSubmatch(s, -1)
	out := make([]Fence, 0, len(matches))
	for _, m := range matches {
		out = append(out, Fence{
			Lang: strings.ToLower(strings.TrimSpace(m[1])),
			Body: strings.TrimSpace(m[2]),
		})
	}
	return out
}

// FirstFence returns the body of the first fence tagged with lang.
// An empty lang matches any fence, tagged or not.
func FirstFence(s, lang string) (string, bool) {
	for _, f := range Fences(s) {
		if lang == "" || f.Lang == lang {
			return f.Body, true
		}
	}
	return "", false
}

// BalancedObject returns the JSON object in s whose first key starts
// with key. It walks back from the key to the opening brace, then
// forward to the matching close. String literals (double or single
// quoted) are skipped so braces inside values do not end the scan.
func BalancedObject(s, key string) (string, bool) {
	at := strings.Index(s, key)
	if at < 0 {
		return "", false
	}
	open := -1
	for i := at - 1; i >= 0; i-- {
		c := s[i]
		if c == ' ' || c == '\t' || c == '\r' || c == '\n' {
			continue
		}
		if c == '{' {
			open = i
		}
		break
	}
	if open < 0 {
		return "", false
	}

	depth := 0
	var quote byte
	escaped := false
	for i := open; i < len(s); i++ {
		c := s[i]
		if quote != 0 {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == quote:
				quote = 0
			}
			continue
		}
		switch c {
		case '"', '\'':
			quote = c
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[open : i+1], true
			}
		}
	}
	return "", false
}
