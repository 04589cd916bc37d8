package fetch

import (
	"archive/zip"
	"bytes"
	"fmt"
	"os"
	"strings"

	"springforge/internal/safeio"
	"springforge/internal/scan"
)

// FetchUpload materializes an uploaded archive and applies the same
// project check Fetch applies to the other source kinds.
func (f *Fetcher) FetchUpload(data []byte, name string) (string, func(), error) {
	dir, cleanup, err := f.ExtractZip(data, name)
	if err != nil {
		return "", nil, err
	}
	if !scan.LooksLikeRubyProject(dir) {
		cleanup()
		return "", nil, &Error{Source: name, Err: fmt.Errorf("no Gemfile, Rails layout or .rb sources found")}
	}
	return dir, cleanup, nil
}

// ExtractZip writes an uploaded archive into a fresh work dir. When every
// entry lives under one top-level directory (the usual GitHub export
// shape), that directory is stripped so the project root sits directly
// in the returned dir. Entries are written through a path jail, so a
// crafted archive cannot escape it.
func (f *Fetcher) ExtractZip(data []byte, name string) (string, func(), error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", nil, &Error{Source: name, Err: err}
	}

	dir, err := os.MkdirTemp("", f.WorkDirPrefix+"zip-")
	if err != nil {
		return "", nil, &Error{Source: name, Err: err}
	}
	cleanup := func() { _ = os.RemoveAll(dir) }

	jail, err := safeio.NewSafeFS(dir)
	if err != nil {
		cleanup()
		return "", nil, &Error{Source: name, Err: err}
	}

	root := singleRoot(zr.File)
	wrote := 0
	for _, zf := range zr.File {
		rel := normalizeEntry(zf.Name)
		if rel == "" {
			continue
		}
		if hasDotDot(rel) {
			cleanup()
			return "", nil, &Error{Source: name, Err: fmt.Errorf("unsafe path %q in archive", zf.Name)}
		}
		if root != "" {
			if !strings.HasPrefix(rel, root) {
				continue
			}
			rel = strings.TrimPrefix(rel, root)
			if rel == "" {
				continue
			}
		}

		if zf.FileInfo().IsDir() {
			if err := jail.SafeMkdirAll(rel, 0o755); err != nil {
				cleanup()
				return "", nil, &Error{Source: name, Err: err}
			}
			continue
		}

		rc, err := zf.Open()
		if err != nil {
			cleanup()
			return "", nil, &Error{Source: name, Err: err}
		}
		_, err = jail.SafeCopy(rel, rc)
		rc.Close()
		if err != nil {
			cleanup()
			return "", nil, &Error{Source: name, Err: err}
		}
		wrote++
	}
	if wrote == 0 {
		cleanup()
		return "", nil, &Error{Source: name, Err: fmt.Errorf("archive contains no files")}
	}
	return dir, cleanup, nil
}

// normalizeEntry drops junk entries (macOS metadata, empty names) and
// normalizes separators.
func normalizeEntry(name string) string {
	rel := strings.TrimPrefix(strings.ReplaceAll(name, "\\", "/"), "./")
	rel = strings.TrimPrefix(rel, "/")
	if rel == "" {
		return ""
	}
	if strings.HasPrefix(rel, "__MACOSX/") || strings.HasSuffix(rel, ".DS_Store") {
		return ""
	}
	return rel
}

// hasDotDot reports whether any path segment is "..".
func hasDotDot(rel string) bool {
	for _, seg := range strings.Split(rel, "/") {
		if seg == ".." {
			return true
		}
	}
	return false
}

// singleRoot returns the shared "top-dir/" prefix when every entry lives
// under the same top-level directory, otherwise "".
func singleRoot(files []*zip.File) string {
	var root string
	for _, zf := range files {
		rel := normalizeEntry(zf.Name)
		if rel == "" || hasDotDot(rel) {
			continue
		}
		i := strings.Index(rel, "/")
		if i < 0 {
			if zf.FileInfo().IsDir() {
				continue
			}
			return "" // file at the top level, nothing to strip
		}
		top := rel[:i+1]
		if root == "" {
			root = top
			continue
		}
		if root != top {
			return ""
		}
	}
	return root
}
