package analyzer

import (
	"fmt"
	"sort"
	"strings"

	"springforge/internal/prompt"
	"springforge/internal/util/jsonutil"
	"springforge/internal/util/llmtext"
)

// ParseError reports a structure response that none of the extraction
// strategies could decode. Raw keeps the full response for corrective
// re-prompts and for review.
type ParseError struct {
	Reason string
	Raw    string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("structure response not parseable: %s", e.Reason)
}

// Parse decodes an LLM structure response into a proposal. The JSON
// layout is required; the mermaid diagram is optional and its absence
// becomes a warning rather than an error.
func Parse(raw string) (*StructureProposal, error) {
	dirs, warns, ok := extractDirs(raw)
	if !ok {
		return nil, &ParseError{
			Reason: "no JSON object with src/ directory keys found",
			Raw:    raw,
		}
	}
	prop := &StructureProposal{Dirs: dirs, Warnings: warns}
	if diagram, ok := extractDiagram(raw); ok {
		prop.Diagram = diagram
	} else {
		prop.Warnings = append(prop.Warnings, "response carries no mermaid diagram")
	}
	return prop, nil
}

func extractDirs(raw string) (map[string][]ProposedFile, []string, bool) {
	for _, candidate := range jsonCandidates(raw) {
		var decoded map[string]any
		if err := jsonutil.UnmarshalFlex([]byte(candidate), &decoded); err != nil {
			continue
		}
		dirs, warns := cleanDirs(decoded)
		if len(dirs) > 0 {
			return dirs, warns, true
		}
	}
	return nil, nil, false
}

// jsonCandidates yields possible JSON payloads in decreasing order of
// confidence. Models that ignore the formatting instructions still
// tend to produce one of these shapes.
func jsonCandidates(raw string) []string {
	var out []string
	if body, ok := llmtext.FirstFence(raw, "json"); ok {
		out = append(out, body)
	}
	for _, f := range llmtext.Fences(raw) {
		if f.Lang != "json" && strings.HasPrefix(f.Body, "{") {
			out = append(out, f.Body)
		}
	}
	if obj, ok := llmtext.BalancedObject(raw, `"src/`); ok {
		out = append(out, obj)
	}
	if obj, ok := llmtext.BalancedObject(raw, `'src/`); ok {
		out = append(out, strings.ReplaceAll(obj, "'", `"`))
	}
	if trimmed := strings.TrimSpace(raw); strings.HasPrefix(trimmed, "{") {
		out = append(out, trimmed)
	}
	return out
}

// cleanDirs keeps only src/ directories and well-formed file entries,
// sorts each directory's files by name, and reports everything it
// dropped. File entries may be objects with name/summary keys or bare
// strings.
func cleanDirs(decoded map[string]any) (map[string][]ProposedFile, []string) {
	dirs := make(map[string][]ProposedFile)
	var warns []string
	for key, val := range decoded {
		dir := strings.Trim(strings.TrimSpace(key), "/")
		if !strings.HasPrefix(dir, "src/") {
			warns = append(warns, fmt.Sprintf("dropped non-source key %q", key))
			continue
		}
		list, ok := val.([]any)
		if !ok {
			warns = append(warns, fmt.Sprintf("dropped %q: value is not a file list", key))
			continue
		}
		files := make([]ProposedFile, 0, len(list))
		for _, item := range list {
			switch v := item.(type) {
			case string:
				if name := strings.TrimSpace(v); name != "" {
					files = append(files, ProposedFile{Name: name})
				}
			case map[string]any:
				name, _ := v["name"].(string)
				if name == "" {
					name, _ = v["file"].(string)
				}
				if strings.TrimSpace(name) == "" {
					warns = append(warns, fmt.Sprintf("dropped unnamed entry in %q", key))
					continue
				}
				summary, _ := v["summary"].(string)
				if summary == "" {
					summary, _ = v["description"].(string)
				}
				files = append(files, ProposedFile{
					Name:    strings.TrimSpace(name),
					Summary: strings.TrimSpace(summary),
				})
			default:
				warns = append(warns, fmt.Sprintf("dropped malformed entry in %q", key))
			}
		}
		if len(files) == 0 {
			warns = append(warns, fmt.Sprintf("dropped %q: no usable files", key))
			continue
		}
		sort.Slice(files, func(i, j int) bool { return files[i].Name < files[j].Name })
		dirs[dir] = files
	}
	sort.Strings(warns)
	return dirs, warns
}

// extractDiagram recovers the mermaid diagram: a tagged fence first,
// then the text after the delimiter, then a bare graph header anywhere
// in the response.
func extractDiagram(raw string) (string, bool) {
	if body, ok := llmtext.FirstFence(raw, "mermaid"); ok {
		return body, true
	}
	if _, after, found := strings.Cut(raw, prompt.MermaidDelimiter); found {
		if body, ok := llmtext.FirstFence(after, ""); ok {
			return body, true
		}
		if d := trimToGraph(after); d != "" {
			return d, true
		}
	}
	if d := trimToGraph(raw); d != "" {
		return d, true
	}
	return "", false
}

var graphHeaders = []string{"graph TD", "graph LR", "flowchart TD", "flowchart LR"}

// trimToGraph returns s from the first mermaid graph header onward,
// with any trailing fence removed.
func trimToGraph(s string) string {
	start := -1
	for _, h := range graphHeaders {
		if i := strings.Index(s, h); i >= 0 && (start < 0 || i < start) {
			start = i
		}
	}
	if start < 0 {
		return ""
	}
	d := s[start:]
	if i := strings.Index(d, "```"); i >= 0 {
		d = d[:i]
	}
	return strings.TrimSpace(d)
}
