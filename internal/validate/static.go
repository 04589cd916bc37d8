package validate

import (
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"springforge/internal/generate"
)

// Static sweeps the generated tree without a toolchain: every .java
// file must declare the package its directory implies and keep braces
// and parentheses balanced. Findings come back one string per defect,
// prefixed with the file's slash-separated path relative to root.
func Static(root string) ([]string, error) {
	var findings []string
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(d.Name(), ".java") {
			return nil
		}
		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		src, err := os.ReadFile(p)
		if err != nil {
			return err
		}
		findings = append(findings, checkJava(filepath.ToSlash(rel), string(src))...)
		return nil
	})
	if err != nil {
		return findings, fmt.Errorf("validate: walk %s: %w", root, err)
	}
	return findings, nil
}

func checkJava(rel, src string) []string {
	var out []string
	want := generate.PackageFor(path.Dir(rel))
	decl := generate.DeclaredPackage(src)
	switch {
	case want != "" && decl == "":
		out = append(out, rel+": missing package declaration, directory implies "+want)
	case want != "" && decl != want:
		out = append(out, fmt.Sprintf("%s: declared package %s, directory implies %s", rel, decl, want))
	}
	braces, parens := countDelims(src)
	if braces != 0 {
		out = append(out, fmt.Sprintf("%s: unbalanced braces (%+d)", rel, braces))
	}
	if parens != 0 {
		out = append(out, fmt.Sprintf("%s: unbalanced parentheses (%+d)", rel, parens))
	}
	return out
}

// countDelims tallies brace and parenthesis nesting outside string
// literals, character literals and comments. A balanced file returns
// zero for both.
func countDelims(src string) (braces, parens int) {
	const (
		code = iota
		lineComment
		blockComment
		inString
		inChar
	)
	state, escaped := code, false
	for i := 0; i < len(src); i++ {
		c := src[i]
		switch state {
		case code:
			switch c {
			case '{':
				braces++
			case '}':
				braces--
			case '(':
				parens++
			case ')':
				parens--
			case '"':
				state = inString
			case '\'':
				state = inChar
			case '/':
				if i+1 < len(src) {
					switch src[i+1] {
					case '/':
						state = lineComment
						i++
					case '*':
						state = blockComment
						i++
					}
				}
			}
		case lineComment:
			if c == '\n' {
				state = code
			}
		case blockComment:
			if c == '*' && i+1 < len(src) && src[i+1] == '/' {
				state = code
				i++
			}
		case inString, inChar:
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case state == inString && c == '"', state == inChar && c == '\'':
				state = code
			}
		}
	}
	return braces, parens
}
