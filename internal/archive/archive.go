// Package archive packages a generated project tree into a zip for
// download. Entry names are slash-separated and relative to the tree
// root so the archive unpacks the same way everywhere.
package archive

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/flate"
)

// Write zips the tree rooted at root into w. Every file and directory
// under root becomes an entry; nothing is filtered.
func Write(root string, w io.Writer) error {
	zw := zip.NewWriter(w)
	zw.RegisterCompressor(zip.Deflate, func(out io.Writer) (io.WriteCloser, error) {
		return flate.NewWriter(out, flate.DefaultCompression)
	})

	walkErr := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		if rel == "." {
			return nil
		}
		return addEntry(zw, p, filepath.ToSlash(rel), d)
	})
	if walkErr != nil {
		zw.Close()
		return fmt.Errorf("archive %s: %w", root, walkErr)
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("archive %s: finalize: %w", root, err)
	}
	return nil
}

// Build zips the tree rooted at root into memory. The result is handed
// to the artifact store and served as the session download.
func Build(root string) ([]byte, error) {
	var buf bytes.Buffer
	if err := Write(root, &buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func addEntry(zw *zip.Writer, p, name string, d fs.DirEntry) error {
	info, err := d.Info()
	if err != nil {
		return err
	}
	hdr, err := zip.FileInfoHeader(info)
	if err != nil {
		return err
	}
	if d.IsDir() {
		hdr.Name = name + "/"
		_, err = zw.CreateHeader(hdr)
		return err
	}
	hdr.Name = name
	hdr.Method = zip.Deflate

	dst, err := zw.CreateHeader(hdr)
	if err != nil {
		return err
	}
	src, err := os.Open(p)
	if err != nil {
		return err
	}
	defer src.Close()
	_, err = io.Copy(dst, src)
	return err
}
