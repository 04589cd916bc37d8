// Package analyzer runs the structure phase of a conversion: it asks
// the configured LLM for a target Spring Boot layout of the scanned
// Ruby project and parses the response tolerantly.
package analyzer

import (
	"path"
	"sort"
	"strings"
)

// ProposedFile is a single Java file suggested for the target project.
type ProposedFile struct {
	Name    string `json:"name"`
	Summary string `json:"summary,omitempty"`
}

// StructureProposal is the parsed outcome of the structure phase: the
// proposed directory layout plus the architecture diagram. Warnings
// collect everything the parser had to drop or flag; they are surfaced
// during review and never block the conversion.
type StructureProposal struct {
	Dirs     map[string][]ProposedFile `json:"dirs"`
	Diagram  string                    `json:"diagram,omitempty"`
	Warnings []string                  `json:"warnings,omitempty"`
}

// Placement is one proposed file joined with its directory and the
// role inferred from that directory.
type Placement struct {
	Dir      string
	File     ProposedFile
	Category string
}

// Flatten returns every proposed file in deterministic order:
// directories sorted lexically, files in their per-directory order.
func (p *StructureProposal) Flatten() []Placement {
	var out []Placement
	for _, dir := range sortedDirs(p.Dirs) {
		cat := DirCategory(dir)
		for _, f := range p.Dirs[dir] {
			out = append(out, Placement{Dir: dir, File: f, Category: cat})
		}
	}
	return out
}

// FileCount reports how many files the proposal contains.
func (p *StructureProposal) FileCount() int {
	n := 0
	for _, files := range p.Dirs {
		n += len(files)
	}
	return n
}

func sortedDirs(m map[string][]ProposedFile) []string {
	out := make([]string, 0, len(m))
	for d := range m {
		out = append(out, d)
	}
	sort.Strings(out)
	return out
}

// DirCategory infers the architectural role of a proposed directory.
// Java package directories are judged by their last segment, resource
// directories by their place under src/main/resources.
func DirCategory(dir string) string {
	d := strings.TrimSuffix(strings.TrimSpace(dir), "/")
	if strings.Contains(d, "src/main/resources") {
		switch {
		case strings.Contains(d, "templates"):
			return "view"
		case strings.Contains(d, "static"):
			return "asset"
		default:
			return "config"
		}
	}
	switch path.Base(d) {
	case "model", "models", "entity", "entities", "domain":
		return "model"
	case "repository", "repositories", "dao":
		return "repository"
	case "controller", "controllers", "web", "api", "rest":
		return "controller"
	case "service", "services":
		return "service"
	case "util", "utils", "helper", "helpers", "common":
		return "util"
	case "config", "configuration":
		return "config"
	case "dto", "dtos", "request", "response":
		return "dto"
	default:
		return "generic"
	}
}
