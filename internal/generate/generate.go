// Package generate assembles the output Spring Boot tree: scaffold
// files from templates, translated sources from the LLM, copied
// assets and placeholder views, mirroring the approved proposal
// exactly. Translations run on a bounded worker pool; all writes go
// through a single coordinator so no two goroutines touch the output
// tree at once.
package generate

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"strings"
	"sync"

	"springforge/internal/analyzer"
	"springforge/internal/mapping"
	"springforge/internal/safeio"
	"springforge/internal/scan"
	"springforge/internal/translate"
)

// Status classifies one generated file in progress events and the
// summary.
type Status string

const (
	StatusTranslated Status = "translated"
	StatusBoiler     Status = "boilerplate"
	StatusCopied     Status = "copied"
	StatusFailed     Status = "failed"
	StatusSkipped    Status = "skipped"
)

// Failure records one file whose content could not be produced.
type Failure struct {
	Path   string `json:"path"`
	Source string `json:"source,omitempty"`
	Reason string `json:"reason"`
}

// Summary is the outcome of one generation run. A failed file never
// aborts the run; it is counted here and a placeholder keeps the tree
// consistent with the proposal.
type Summary struct {
	OutputDir  string    `json:"output_dir"`
	Translated int       `json:"translated"`
	Boiler     int       `json:"boilerplate"`
	Copied     int       `json:"copied"`
	Failed     int       `json:"failed"`
	Skipped    int       `json:"skipped"`
	Failures   []Failure `json:"failures,omitempty"`
	Warnings   []string  `json:"warnings,omitempty"`
}

// Total reports how many files the run touched.
func (s *Summary) Total() int {
	return s.Translated + s.Boiler + s.Copied + s.Failed + s.Skipped
}

// Options tune one generation run.
type Options struct {
	BasePackage string
	AppName     string
	Parallelism int
	Progress    func(path string, status Status, detail string)
}

// Generator writes the output tree for one conversion session.
type Generator struct {
	tr   *translate.Translator
	inv  *scan.Inventory
	out  *safeio.SafeFS
	opts Options
}

// New builds a Generator writing under outDir, creating it if needed.
func New(tr *translate.Translator, inv *scan.Inventory, outDir string, opts Options) (*Generator, error) {
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, err
	}
	out, err := safeio.NewSafeFS(outDir)
	if err != nil {
		return nil, err
	}
	if opts.Parallelism <= 0 {
		opts.Parallelism = 4
	}
	if opts.AppName == "" {
		opts.AppName = "transpiled-app"
	}
	return &Generator{tr: tr, inv: inv, out: out, opts: opts}, nil
}

// OutputDir returns the absolute output root.
func (g *Generator) OutputDir() string { return g.out.Root() }

// Run produces the full tree. Cancellation is honored between files:
// already-written files stay, files not yet attempted are dropped, and
// ctx.Err() is returned alongside the partial summary.
func (g *Generator) Run(ctx context.Context, prop *analyzer.StructureProposal, pairs []mapping.Pair) (*Summary, error) {
	sum := &Summary{OutputDir: g.out.Root()}

	for dir := range prop.Dirs {
		if err := g.out.SafeMkdirAll(dir, 0o755); err != nil {
			return sum, err
		}
	}
	if err := g.writeScaffold(prop, sum); err != nil {
		return sum, err
	}

	var jobs []mapping.Pair
	for _, pr := range pairs {
		if err := ctx.Err(); err != nil {
			return sum, err
		}
		pl := pr.Placement
		switch {
		case strings.HasSuffix(pl.File.Name, "Application.java"):
			// written by the scaffold step
		case pl.Category == "asset":
			g.copyAsset(pr, sum)
		case pl.Category == "view":
			g.writeView(pr, sum)
		case !pr.Mapped():
			g.writeStub(pr, sum)
		default:
			jobs = append(jobs, pr)
		}
	}

	for res := range g.translateAll(ctx, jobs) {
		g.writeResult(res, sum)
	}
	if err := ctx.Err(); err != nil {
		return sum, err
	}
	return sum, nil
}

// writeScaffold renders the build descriptor, the application
// properties and the entry point. A proposed *Application.java
// placement wins over the default location under the base package.
func (g *Generator) writeScaffold(prop *analyzer.StructureProposal, sum *Summary) error {
	artifact := ArtifactID(g.opts.AppName)

	if err := g.writeBoiler("pom.xml", RenderPom(g.opts.BasePackage, artifact), sum); err != nil {
		return err
	}
	propsPath := "src/main/resources/application.properties"
	if err := g.writeBoiler(propsPath, RenderProperties(artifact), sum); err != nil {
		return err
	}

	appDir := "src/main/java/" + strings.ReplaceAll(g.opts.BasePackage, ".", "/")
	appClass := AppClassName(g.opts.AppName)
	for _, pl := range prop.Flatten() {
		if strings.HasSuffix(pl.File.Name, "Application.java") && PackageFor(pl.Dir) != "" {
			appDir = pl.Dir
			appClass = JavaClassName(pl.File.Name)
			break
		}
	}
	appPath := path.Join(appDir, appClass+".java")
	return g.writeBoiler(appPath, RenderApplication(PackageFor(appDir), appClass), sum)
}

func (g *Generator) writeBoiler(p, content string, sum *Summary) error {
	if err := g.out.SafeWriteFile(p, []byte(content), 0o644); err != nil {
		return err
	}
	sum.Boiler++
	g.progress(p, StatusBoiler, "")
	return nil
}

func (g *Generator) copyAsset(pr mapping.Pair, sum *Summary) {
	pl := pr.Placement
	full := path.Join(pl.Dir, pl.File.Name)
	if !pr.Mapped() {
		sum.Skipped++
		g.progress(full, StatusSkipped, "no matching asset in the source tree")
		return
	}
	data, err := g.inv.Read(pr.Source)
	if err != nil {
		g.recordFailure(sum, full, pr.Source, err.Error())
		return
	}
	if err := g.out.SafeWriteFile(full, data, 0o644); err != nil {
		g.recordFailure(sum, full, pr.Source, err.Error())
		return
	}
	sum.Copied++
	g.progress(full, StatusCopied, pr.Source)
}

func (g *Generator) writeView(pr mapping.Pair, sum *Summary) {
	pl := pr.Placement
	full := path.Join(pl.Dir, pl.File.Name)
	body := RenderView(pl.File.Name, pr.Source)
	if err := g.out.SafeWriteFile(full, []byte(body), 0o644); err != nil {
		g.recordFailure(sum, full, pr.Source, err.Error())
		return
	}
	sum.Boiler++
	g.progress(full, StatusBoiler, pr.Source)
}

func (g *Generator) writeStub(pr mapping.Pair, sum *Summary) {
	pl := pr.Placement
	full := path.Join(pl.Dir, pl.File.Name)

	if pl.File.Name == "application.properties" {
		sum.Skipped++
		g.progress(full, StatusSkipped, "generated with the scaffold")
		return
	}
	var body string
	if strings.HasSuffix(pl.File.Name, ".java") {
		body = RenderStub(PackageFor(pl.Dir), pl.File.Name, pl.Category, pl.File.Summary)
	}
	if err := g.out.SafeWriteFile(full, []byte(body), 0o644); err != nil {
		g.recordFailure(sum, full, "", err.Error())
		return
	}
	sum.Boiler++
	g.progress(full, StatusBoiler, "no source mapped")
}

type result struct {
	pair mapping.Pair
	code string
	err  error
}

// translateAll fans jobs out to a bounded pool and streams results
// back for the coordinator to write.
func (g *Generator) translateAll(ctx context.Context, jobs []mapping.Pair) <-chan result {
	out := make(chan result)
	if len(jobs) == 0 {
		close(out)
		return out
	}
	workers := g.opts.Parallelism
	if workers > len(jobs) {
		workers = len(jobs)
	}
	tasks := make(chan mapping.Pair)
	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			for pr := range tasks {
				out <- g.translateOne(ctx, pr)
			}
		}()
	}
	go func() {
		for _, pr := range jobs {
			select {
			case <-ctx.Done():
				close(tasks)
				wg.Wait()
				close(out)
				return
			case tasks <- pr:
			}
		}
		close(tasks)
		wg.Wait()
		close(out)
	}()
	return out
}

func (g *Generator) translateOne(ctx context.Context, pr mapping.Pair) result {
	if err := ctx.Err(); err != nil {
		return result{pair: pr, err: err}
	}
	src, err := g.inv.Read(pr.Source)
	if err != nil {
		return result{pair: pr, err: fmt.Errorf("read %s: %w", pr.Source, err)}
	}
	pl := pr.Placement
	code, err := g.tr.Translate(ctx, translate.Request{
		Category:    pl.Category,
		ClassName:   JavaClassName(pl.File.Name),
		BasePackage: g.opts.BasePackage,
		TargetPath:  path.Join(pl.Dir, pl.File.Name),
		SourcePath:  pr.Source,
		SourceCode:  string(src),
	})
	return result{pair: pr, code: code, err: err}
}

func (g *Generator) writeResult(res result, sum *Summary) {
	pl := res.pair.Placement
	full := path.Join(pl.Dir, pl.File.Name)

	if res.err != nil {
		// Files never attempted because of an abort get no placeholder.
		if errors.Is(res.err, context.Canceled) || errors.Is(res.err, context.DeadlineExceeded) {
			return
		}
		body := RenderFailurePlaceholder(PackageFor(pl.Dir), pl.File.Name, res.pair.Source, res.err.Error())
		if werr := g.out.SafeWriteFile(full, []byte(body), 0o644); werr != nil {
			g.recordFailure(sum, full, res.pair.Source, werr.Error())
			return
		}
		g.recordFailure(sum, full, res.pair.Source, res.err.Error())
		return
	}

	code := res.code
	if !strings.HasSuffix(code, "\n") {
		code += "\n"
	}
	if warn := checkPackage(code, PackageFor(pl.Dir)); warn != "" {
		sum.Warnings = append(sum.Warnings, fmt.Sprintf("%s: %s", full, warn))
	}
	if err := g.out.SafeWriteFile(full, []byte(code), 0o644); err != nil {
		g.recordFailure(sum, full, res.pair.Source, err.Error())
		return
	}
	sum.Translated++
	g.progress(full, StatusTranslated, res.pair.Source)
}

func (g *Generator) recordFailure(sum *Summary, p, source, reason string) {
	sum.Failed++
	sum.Failures = append(sum.Failures, Failure{Path: p, Source: source, Reason: reason})
	g.progress(p, StatusFailed, reason)
}

func (g *Generator) progress(p string, status Status, detail string) {
	if g.opts.Progress != nil {
		g.opts.Progress(p, status, detail)
	}
}

// checkPackage compares the declared package with the one the file's
// directory implies. Mismatches are reported, never rewritten.
func checkPackage(code, wantPkg string) string {
	if wantPkg == "" {
		return ""
	}
	decl := DeclaredPackage(code)
	switch {
	case decl == "":
		return "missing package declaration, expected " + wantPkg
	case decl != wantPkg:
		return fmt.Sprintf("declared package %s, expected %s", decl, wantPkg)
	}
	return ""
}

// DeclaredPackage reads the package declaration off the first code
// line of a Java source, skipping comments. Empty when the file has
// none or opens with something else.
func DeclaredPackage(code string) string {
	for _, line := range strings.Split(code, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "//") ||
			strings.HasPrefix(line, "/*") || strings.HasPrefix(line, "*") {
			continue
		}
		if rest, ok := strings.CutPrefix(line, "package "); ok {
			return strings.TrimSuffix(strings.TrimSpace(rest), ";")
		}
		return ""
	}
	return ""
}
