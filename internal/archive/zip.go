// Package archive packs prediction directories into zip archives.
package archive

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"

	"github.com/klauspost/compress/zip"
)

// ZipDir writes every regular file under dir to w as a deflated zip archive.
// Symlinks to regular files are followed; other symlinks are skipped.
// Entry names are prefix joined with the file's slash-separated path relative
// to dir. Directories contribute no entries of their own. It returns the
// number of files written.
func ZipDir(w io.Writer, dir, prefix string) (int, error) {
	fi, err := os.Stat(dir)
	if err != nil {
		return 0, err
	}
	if !fi.IsDir() {
		return 0, fmt.Errorf("%s is not a directory", dir)
	}

	zw := zip.NewWriter(w)
	count := 0
	walkErr := filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.Type().IsRegular() {
			if d.Type()&fs.ModeSymlink == 0 {
				return nil
			}
			// Symlinks count when they resolve to a regular file.
			target, err := os.Stat(p)
			if err != nil || !target.Mode().IsRegular() {
				return nil
			}
		}
		rel, err := filepath.Rel(dir, p)
		if err != nil {
			return err
		}
		if err := addFile(zw, p, path.Join(prefix, filepath.ToSlash(rel))); err != nil {
			return err
		}
		count++
		return nil
	})
	if walkErr != nil {
		_ = zw.Close()
		return count, walkErr
	}
	if err := zw.Close(); err != nil {
		return count, fmt.Errorf("finalize zip: %w", err)
	}
	return count, nil
}

func addFile(zw *zip.Writer, src, name string) error {
	f, err := os.Open(src)
	if err != nil {
		return err
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		return err
	}
	hdr, err := zip.FileInfoHeader(info)
	if err != nil {
		return fmt.Errorf("zip header %s: %w", src, err)
	}
	hdr.Name = name
	hdr.Method = zip.Deflate
	dst, err := zw.CreateHeader(hdr)
	if err != nil {
		return fmt.Errorf("zip entry %s: %w", name, err)
	}
	if _, err := io.Copy(dst, f); err != nil {
		return fmt.Errorf("zip copy %s: %w", src, err)
	}
	return nil
}
