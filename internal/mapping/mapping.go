// Package mapping pairs each proposed Java file with its most likely
// Ruby source using deterministic name and path heuristics. No LLM
// call happens here: the result is a pure function of the proposal
// and the scanned file list, so running it twice yields the same
// mapping.
package mapping

import (
	"fmt"
	"path"
	"strings"

	"github.com/agext/levenshtein"
	"github.com/fatih/camelcase"

	"springforge/internal/analyzer"
	"springforge/internal/scan"
)

// Pair joins one proposed file with the Ruby source chosen for it.
// Source is empty when nothing plausible matched; the generator then
// renders boilerplate instead of translating.
type Pair struct {
	Placement analyzer.Placement
	Source    string
	Strategy  string
}

// Mapped reports whether a Ruby source was found for the proposed file.
func (p Pair) Mapped() bool { return p.Source != "" }

// Result is the full mapping plus every ambiguity the heuristics had
// to resolve along the way.
type Result struct {
	Pairs    []Pair
	Warnings []string
}

// MappedCount reports how many proposed files found a source.
func (r *Result) MappedCount() int {
	n := 0
	for _, p := range r.Pairs {
		if p.Mapped() {
			n++
		}
	}
	return n
}

// Map computes the source pairing for every file in the proposal.
// Files are processed in the proposal's deterministic order; within a
// category each source is consumed at most once, first come first
// served, so two controllers never claim the same Ruby controller. A
// source may still back proposed files of different categories (one
// Ruby model informs both the entity and its repository).
func Map(prop *analyzer.StructureProposal, files []scan.SourceFile) *Result {
	m := &mapper{
		sources: files,
		taken:   map[string]map[string]string{},
	}
	res := &Result{}
	for _, pl := range prop.Flatten() {
		res.Pairs = append(res.Pairs, m.match(pl))
	}
	res.Warnings = m.warnings
	return res
}

const similarityFloor = 0.6

type mapper struct {
	sources  []scan.SourceFile
	taken    map[string]map[string]string // category -> source path -> proposed file
	warnings []string
}

type candidate struct {
	path string
	base string // file name without extension(s)
}

func (m *mapper) match(pl analyzer.Placement) Pair {
	// The Spring entry point is always generated, never translated.
	if strings.HasSuffix(pl.File.Name, "Application.java") {
		return Pair{Placement: pl}
	}
	switch pl.Category {
	case "view":
		return m.matchView(pl)
	case "asset":
		return m.matchAsset(pl)
	default:
		if !strings.HasSuffix(pl.File.Name, ".java") {
			return Pair{Placement: pl}
		}
		return m.matchRuby(pl)
	}
}

// strategy is one matcher in the ordered chain. The first strategy
// with a free hit decides the pairing.
type strategy struct {
	name   string
	filter func(pool []candidate, stem string) []candidate
}

var strategies = []strategy{
	{"exact", exactMatches},
	{"affix", affixMatches},
	{"similar", similarMatches},
}

func (m *mapper) matchRuby(pl analyzer.Placement) Pair {
	stem := Stem(pl.File.Name)
	if stem == "" {
		return Pair{Placement: pl}
	}
	pool := m.rubyPool(searchDirs(pl.Category))
	if len(pool) == 0 {
		return Pair{Placement: pl}
	}

	for _, strat := range strategies {
		hits := strat.filter(pool, stem)
		if len(hits) == 0 {
			continue
		}
		free, used := m.partition(pl.Category, hits)
		if len(free) == 0 {
			m.warnf("mapping ambiguity: %s: every %s candidate is already assigned in category %s",
				pl.File.Name, strat.name, pl.Category)
			continue
		}
		best := shortest(free)
		if len(free) > 1 {
			m.warnf("mapping ambiguity: %s: %s match chose %s over %s",
				pl.File.Name, strat.name, best.path, joinPaths(free, best))
		}
		if len(used) > 0 {
			m.warnf("mapping ambiguity: %s: skipped %s, already assigned in category %s",
				pl.File.Name, joinPaths(used, candidate{}), pl.Category)
		}
		m.take(pl.Category, best.path, pl.File.Name)
		return Pair{Placement: pl, Source: best.path, Strategy: strat.name}
	}
	return Pair{Placement: pl}
}

// matchView pairs a proposed template with a Rails view. Proposals
// name flat files (products.html) while Rails nests them
// (app/views/products/index.html.erb), so a view directory named
// after the stem counts as a hit when no file name matches.
func (m *mapper) matchView(pl analyzer.Placement) Pair {
	stem := strings.ToLower(beforeDot(pl.File.Name))
	if stem == "" {
		return Pair{Placement: pl}
	}
	views := m.byCategory(scan.CategoryView)

	var byName, byDir []candidate
	for _, c := range views {
		switch {
		case strings.ToLower(beforeDot(path.Base(c.path))) == stem:
			byName = append(byName, c)
		case strings.ToLower(path.Base(path.Dir(c.path))) == stem:
			byDir = append(byDir, c)
		}
	}
	for _, hits := range [][]candidate{byName, byDir} {
		free, _ := m.partition("view", hits)
		if len(free) == 0 {
			continue
		}
		best := shortest(free)
		if len(free) > 1 {
			m.warnf("mapping ambiguity: %s: chose %s over %s",
				pl.File.Name, best.path, joinPaths(free, best))
		}
		m.take("view", best.path, pl.File.Name)
		return Pair{Placement: pl, Source: best.path, Strategy: "view"}
	}
	return Pair{Placement: pl}
}

// matchAsset pairs a static resource with an original asset: exact
// file name first, then the same name with extra preprocessor
// extensions (style.css matches style.css.scss), then the bare stem.
func (m *mapper) matchAsset(pl analyzer.Placement) Pair {
	name := pl.File.Name
	assets := m.byCategory(scan.CategoryAsset)

	var exact, preproc, stemmed []candidate
	for _, c := range assets {
		base := path.Base(c.path)
		switch {
		case base == name:
			exact = append(exact, c)
		case strings.HasPrefix(base, name+"."):
			preproc = append(preproc, c)
		case beforeDot(base) == beforeDot(name):
			stemmed = append(stemmed, c)
		}
	}
	for _, hits := range [][]candidate{exact, preproc, stemmed} {
		free, _ := m.partition("asset", hits)
		if len(free) == 0 {
			continue
		}
		best := shortest(free)
		if len(free) > 1 {
			m.warnf("mapping ambiguity: %s: chose %s over %s",
				pl.File.Name, best.path, joinPaths(free, best))
		}
		m.take("asset", best.path, pl.File.Name)
		return Pair{Placement: pl, Source: best.path, Strategy: "asset"}
	}
	return Pair{Placement: pl}
}

/* -------- matcher strategies -------- */

func exactMatches(pool []candidate, stem string) []candidate {
	var out []candidate
	for _, c := range pool {
		if c.base == stem {
			out = append(out, c)
		}
	}
	return out
}

func affixMatches(pool []candidate, stem string) []candidate {
	if len(stem) < 3 {
		return nil
	}
	var out []candidate
	for _, c := range pool {
		if c.base == stem {
			continue
		}
		if strings.HasPrefix(c.base, stem) || strings.HasSuffix(c.base, stem) {
			out = append(out, c)
		}
	}
	return out
}

// similarMatches keeps only the best-scoring candidates above the
// similarity floor, so an implausible source is never matched just
// because it is the closest one around.
func similarMatches(pool []candidate, stem string) []candidate {
	best := 0.0
	var out []candidate
	for _, c := range pool {
		score := levenshtein.Match(stem, c.base, nil)
		if score < similarityFloor {
			continue
		}
		switch {
		case score > best:
			best = score
			out = []candidate{c}
		case score == best:
			out = append(out, c)
		}
	}
	return out
}

/* -------- pools and bookkeeping -------- */

// searchDirs lists the Ruby directories a category's source is
// expected in.
func searchDirs(category string) []string {
	switch category {
	case "model", "repository", "dto":
		return []string{"app/models"}
	case "controller":
		return []string{"app/controllers"}
	case "service":
		return []string{"app/services", "lib"}
	case "util":
		return []string{"app/helpers", "lib"}
	case "config":
		return []string{"config"}
	case "generic":
		return []string{"lib", "app"}
	default:
		return nil
	}
}

func (m *mapper) rubyPool(dirs []string) []candidate {
	var out []candidate
	for _, dir := range dirs {
		prefix := dir + "/"
		for _, sf := range m.sources {
			if strings.HasPrefix(sf.Path, prefix) && strings.HasSuffix(sf.Path, ".rb") {
				out = append(out, candidate{
					path: sf.Path,
					base: strings.TrimSuffix(path.Base(sf.Path), ".rb"),
				})
			}
		}
	}
	return out
}

func (m *mapper) byCategory(cat scan.Category) []candidate {
	var out []candidate
	for _, sf := range m.sources {
		if sf.Category == cat {
			out = append(out, candidate{path: sf.Path, base: path.Base(sf.Path)})
		}
	}
	return out
}

func (m *mapper) partition(category string, hits []candidate) (free, used []candidate) {
	byCat := m.taken[category]
	for _, c := range hits {
		if _, ok := byCat[c.path]; ok {
			used = append(used, c)
		} else {
			free = append(free, c)
		}
	}
	return free, used
}

func (m *mapper) take(category, src, consumer string) {
	byCat := m.taken[category]
	if byCat == nil {
		byCat = map[string]string{}
		m.taken[category] = byCat
	}
	byCat[src] = consumer
}

func (m *mapper) warnf(format string, args ...any) {
	m.warnings = append(m.warnings, fmt.Sprintf(format, args...))
}

func shortest(cands []candidate) candidate {
	best := cands[0]
	for _, c := range cands[1:] {
		if len(c.path) < len(best.path) ||
			(len(c.path) == len(best.path) && c.path < best.path) {
			best = c
		}
	}
	return best
}

func joinPaths(cands []candidate, skip candidate) string {
	var out []string
	for _, c := range cands {
		if c.path == skip.path {
			continue
		}
		out = append(out, c.path)
	}
	return strings.Join(out, ", ")
}

func beforeDot(name string) string {
	if i := strings.IndexByte(name, '.'); i >= 0 {
		return name[:i]
	}
	return name
}

/* -------- stem recovery -------- */

var knownSuffixes = []string{"Controller", "Service", "Repository", "Util", "Helper", "Dto"}

// Stem recovers the snake_case Ruby naming stem from a proposed Java
// file name: the .java extension and one known role suffix are
// stripped, then PascalCase words are joined with underscores.
// ProductController.java becomes product, OrderItemService.java
// becomes order_item.
func Stem(javaName string) string {
	base := strings.TrimSuffix(javaName, ".java")
	for _, suf := range knownSuffixes {
		if base != suf && strings.HasSuffix(base, suf) {
			base = strings.TrimSuffix(base, suf)
			break
		}
	}
	words := camelcase.Split(base)
	parts := make([]string, 0, len(words))
	for _, w := range words {
		w = strings.TrimFunc(w, func(r rune) bool { return r == '_' || r == ' ' })
		if w == "" {
			continue
		}
		parts = append(parts, strings.ToLower(w))
	}
	return strings.Join(parts, "_")
}
