// Package fetch acquires the Ruby project a session converts: a Git
// URL, a ZIP archive, or a directory already on disk. Whatever the
// source, the result is a read-only tree under the session work dir.
package fetch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-git/go-git/v5"

	"springforge/internal/scan"
)

// Error is the fatal acquisition failure: bad URL, unreadable archive,
// network trouble, or a tree that is not a Ruby project. It always
// aborts the session before analysis.
type Error struct {
	Source string
	Err    error
}

func (e *Error) Error() string { return fmt.Sprintf("fetch %s: %v", e.Source, e.Err) }
func (e *Error) Unwrap() error { return e.Err }

// Fetcher materializes sources into session work dirs.
type Fetcher struct {
	// WorkDirPrefix names the temp dirs holding fetched trees.
	WorkDirPrefix string
}

func New(workDirPrefix string) *Fetcher {
	if workDirPrefix == "" {
		workDirPrefix = "springforge-"
	}
	return &Fetcher{WorkDirPrefix: workDirPrefix}
}

// Fetch resolves source into a local directory. cleanup removes any
// temp state and is non-nil on success even when nothing was created.
func (f *Fetcher) Fetch(ctx context.Context, source string) (dir string, cleanup func(), err error) {
	source = strings.TrimSpace(source)
	switch {
	case source == "":
		return "", nil, &Error{Source: source, Err: fmt.Errorf("empty source")}
	case isGitURL(source):
		dir, cleanup, err = f.clone(ctx, source)
	case strings.HasSuffix(strings.ToLower(source), ".zip"):
		dir, cleanup, err = f.extractZipFile(source)
	default:
		dir, cleanup, err = f.useLocalDir(source)
	}
	if err != nil {
		return "", nil, err
	}

	if !scan.LooksLikeRubyProject(dir) {
		cleanup()
		return "", nil, &Error{Source: source, Err: fmt.Errorf("no Gemfile, Rails layout or .rb sources found")}
	}
	return dir, cleanup, nil
}

func isGitURL(s string) bool {
	return strings.HasPrefix(s, "http://") ||
		strings.HasPrefix(s, "https://") ||
		strings.HasPrefix(s, "git@") ||
		strings.HasSuffix(s, ".git")
}

func (f *Fetcher) clone(ctx context.Context, url string) (string, func(), error) {
	dir, err := os.MkdirTemp("", f.WorkDirPrefix+"src-")
	if err != nil {
		return "", nil, &Error{Source: url, Err: err}
	}
	cleanup := func() { _ = os.RemoveAll(dir) }

	_, err = git.PlainCloneContext(ctx, dir, false, &git.CloneOptions{
		URL:   url,
		Depth: 1,
	})
	if err != nil {
		cleanup()
		return "", nil, &Error{Source: url, Err: err}
	}
	return dir, cleanup, nil
}

func (f *Fetcher) extractZipFile(path string) (string, func(), error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", nil, &Error{Source: path, Err: err}
	}
	return f.ExtractZip(data, filepath.Base(path))
}

func (f *Fetcher) useLocalDir(path string) (string, func(), error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", nil, &Error{Source: path, Err: err}
	}
	if !info.IsDir() {
		return "", nil, &Error{Source: path, Err: fmt.Errorf("not a directory")}
	}
	return path, func() {}, nil
}
