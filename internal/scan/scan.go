// Package scan walks a fetched Ruby project and produces the immutable
// inventory the rest of the pipeline works from: every file with its
// Rails role, plus helpers for the subsets the analyzer, mapper and
// generator care about.
package scan

import (
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"springforge/internal/safeio"
)

// Category classifies a source file by its Rails role.
type Category string

const (
	CategoryModel      Category = "model"
	CategoryController Category = "controller"
	CategoryView       Category = "view"
	CategoryHelper     Category = "helper"
	CategoryService    Category = "service"
	CategoryLib        Category = "lib"
	CategoryAsset      Category = "asset"
	CategoryConfig     Category = "config"
	CategoryOther      Category = "other"
)

// SourceFile describes one file in the fetched tree. Immutable once scanned.
type SourceFile struct {
	Path     string   `json:"path"` // repo-relative, forward slashes
	Category Category `json:"category"`
	Size     int64    `json:"size"`
}

// FileVisit carries per-entry metadata to user callbacks.
type FileVisit struct {
	Path  string // repo-relative path using forward slashes
	IsDir bool
	Ext   string // lowercased extension; empty for dirs or no-ext files
	Size  int64
}

// VisitFunc is an optional callback invoked for every visited entry.
// Use a closure to accumulate custom stats (e.g., progress counts).
type VisitFunc func(f FileVisit)

// Inventory is the read-only scan result for one session work dir.
type Inventory struct {
	fs     *safeio.SafeFS
	files  []SourceFile
	byPath map[string]int
}

// Index walks the project root and classifies every file.
// It is equivalent to IndexWithCallback(root, nil).
func Index(root string) (*Inventory, error) {
	return IndexWithCallback(root, nil)
}

// IndexWithCallback walks the project and also invokes cb for each visited
// entry (dirs and files), allowing callers to report progress.
func IndexWithCallback(root string, cb VisitFunc) (*Inventory, error) {
	jail, err := safeio.NewSafeFS(root)
	if err != nil {
		return nil, err
	}

	var files []SourceFile
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if skipDir(root, path) {
				return filepath.SkipDir
			}
		}

		rel, _ := filepath.Rel(root, path)
		rel = filepath.ToSlash(rel)
		ext := strings.ToLower(filepath.Ext(rel))
		size := int64(0)
		if !d.IsDir() {
			if fi, e := os.Stat(path); e == nil {
				size = fi.Size()
			}
		}

		if cb != nil {
			cb(FileVisit{Path: rel, IsDir: d.IsDir(), Ext: ext, Size: size})
		}
		if d.IsDir() || rel == "." {
			return nil
		}

		files = append(files, SourceFile{
			Path:     rel,
			Category: Categorize(rel),
			Size:     size,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(files, func(i, j int) bool { return files[i].Path < files[j].Path })
	byPath := make(map[string]int, len(files))
	for i, f := range files {
		byPath[f.Path] = i
	}
	return &Inventory{fs: jail, files: files, byPath: byPath}, nil
}

// skipDir filters VCS internals and Rails noise that never informs the
// proposed layout. vendor/assets stays in: those files get copied.
func skipDir(root, path string) bool {
	base := filepath.Base(path)
	switch base {
	case ".git", ".hg", ".svn", "node_modules", "tmp", "log", "coverage", ".bundle":
		return true
	}
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	rel = filepath.ToSlash(rel)
	return rel == "vendor/bundle" || rel == "storage"
}

// Categorize maps a repo-relative path to its Rails role.
func Categorize(rel string) Category {
	ext := strings.ToLower(filepath.Ext(rel))
	switch {
	case strings.HasPrefix(rel, "app/models/") && ext == ".rb":
		return CategoryModel
	case strings.HasPrefix(rel, "app/controllers/") && ext == ".rb":
		return CategoryController
	case strings.HasPrefix(rel, "app/views/"):
		return CategoryView
	case strings.HasPrefix(rel, "app/helpers/") && ext == ".rb":
		return CategoryHelper
	case strings.HasPrefix(rel, "app/services/") && ext == ".rb":
		return CategoryService
	case strings.HasPrefix(rel, "lib/") && ext == ".rb":
		return CategoryLib
	case strings.HasPrefix(rel, "app/assets/"),
		strings.HasPrefix(rel, "public/"),
		strings.HasPrefix(rel, "vendor/assets/"):
		return CategoryAsset
	case strings.HasPrefix(rel, "config/"):
		return CategoryConfig
	default:
		return CategoryOther
	}
}

// Files returns the full classified file list in path order.
func (inv *Inventory) Files() []SourceFile { return inv.files }

// Len reports the number of files in the inventory.
func (inv *Inventory) Len() int { return len(inv.files) }

// Lookup returns the SourceFile for a repo-relative path.
func (inv *Inventory) Lookup(path string) (SourceFile, bool) {
	i, ok := inv.byPath[path]
	if !ok {
		return SourceFile{}, false
	}
	return inv.files[i], true
}

// Read returns the content of a file in the inventory. Content is read
// on demand and never cached: translated trees can be large.
func (inv *Inventory) Read(path string) ([]byte, error) {
	return inv.fs.SafeReadFile(filepath.FromSlash(path))
}

// ByCategory returns files of one category, in path order.
func (inv *Inventory) ByCategory(c Category) []SourceFile {
	var out []SourceFile
	for _, f := range inv.files {
		if f.Category == c {
			out = append(out, f)
		}
	}
	return out
}

// RubySources returns the files that are candidates for translation.
func (inv *Inventory) RubySources() []SourceFile {
	var out []SourceFile
	for _, f := range inv.files {
		switch f.Category {
		case CategoryModel, CategoryController, CategoryHelper, CategoryService, CategoryLib:
			out = append(out, f)
		case CategoryOther:
			if strings.HasSuffix(f.Path, ".rb") {
				out = append(out, f)
			}
		}
	}
	return out
}

// Assets returns the static files the generator copies byte-for-byte.
func (inv *Inventory) Assets() []SourceFile {
	return inv.ByCategory(CategoryAsset)
}

// PromptPaths returns at most max file paths for the analysis prompt,
// in sorted order, and whether the list was truncated.
func (inv *Inventory) PromptPaths(max int) ([]string, bool) {
	paths := make([]string, 0, len(inv.files))
	for _, f := range inv.files {
		paths = append(paths, f.Path)
	}
	if max > 0 && len(paths) > max {
		return paths[:max], true
	}
	return paths, false
}

// IsRailsProject reports whether root carries the canonical Rails markers.
func IsRailsProject(root string) bool {
	if _, err := os.Stat(filepath.Join(root, "app")); err != nil {
		return false
	}
	if _, err := os.Stat(filepath.Join(root, "config", "routes.rb")); err != nil {
		return false
	}
	return true
}

// LooksLikeRubyProject reports whether root is worth analyzing at all:
// a Gemfile, a Rails layout, or any Ruby source counts.
func LooksLikeRubyProject(root string) bool {
	if _, err := os.Stat(filepath.Join(root, "Gemfile")); err == nil {
		return true
	}
	if IsRailsProject(root) {
		return true
	}
	found := false
	_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if skipDir(root, path) {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.HasSuffix(path, ".rb") {
			found = true
			return filepath.SkipAll
		}
		return nil
	})
	return found
}
