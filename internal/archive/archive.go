// Package archive builds and unpacks the gzip-compressed tar archives that
// carry published packages.
package archive

import (
	"archive/tar"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/gzip"
	"lukechampine.com/blake3"

	"github.com/TrueSelph/jvcli/internal/ignore"
)

// Result describes a built archive.
type Result struct {
	Path   string
	Files  int
	Size   int64
	Digest string // hex BLAKE3-256 of the archive bytes
}

// Create archives the contents of sourceDir into a gzip-compressed tar at
// outputPath. Member names are slash-separated paths relative to sourceDir,
// so extracting the archive reproduces sourceDir's contents, not sourceDir
// itself. Build artifacts (__jac_gen__, __pycache__) are pruned at any
// depth, along with anything matched by a .jvcliignore file in the package
// root. Filesystem errors abort the archive and remove the partial output.
func Create(sourceDir, outputPath string) (*Result, error) {
	info, err := os.Stat(sourceDir)
	if err != nil {
		return nil, fmt.Errorf("reading source: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("source %s is not a directory", sourceDir)
	}

	matcher := ignore.NewMatcher(sourceDir)
	matcher.LoadDefaults()
	if err := matcher.LoadFile(filepath.Join(sourceDir, ignore.File)); err != nil {
		return nil, fmt.Errorf("reading %s: %w", ignore.File, err)
	}

	out, err := os.Create(outputPath)
	if err != nil {
		return nil, fmt.Errorf("creating archive: %w", err)
	}

	hasher := blake3.New(32, nil)
	gz := gzip.NewWriter(io.MultiWriter(out, hasher))
	tw := tar.NewWriter(gz)

	files := 0
	err = filepath.Walk(sourceDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		rel, err := filepath.Rel(sourceDir, path)
		if err != nil {
			return err
		}
		if rel == "." {
			return nil
		}

		if info.IsDir() {
			if matcher.Match(rel, true) {
				return filepath.SkipDir
			}
			return nil
		}

		// Symlinks and other irregular entries have no place in a package
		if !info.Mode().IsRegular() {
			return nil
		}

		if matcher.Match(rel, false) {
			return nil
		}

		hdr, err := tar.FileInfoHeader(info, "")
		if err != nil {
			return fmt.Errorf("building header for %s: %w", rel, err)
		}
		hdr.Name = filepath.ToSlash(rel)

		if err := tw.WriteHeader(hdr); err != nil {
			return fmt.Errorf("writing header for %s: %w", rel, err)
		}

		f, err := os.Open(path)
		if err != nil {
			return err
		}
		if _, err := io.Copy(tw, f); err != nil {
			f.Close()
			return fmt.Errorf("archiving %s: %w", rel, err)
		}
		f.Close()

		files++
		return nil
	})
	if err == nil {
		err = tw.Close()
	} else {
		tw.Close()
	}
	if cerr := gz.Close(); err == nil {
		err = cerr
	}
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(outputPath)
		return nil, err
	}

	stat, err := os.Stat(outputPath)
	if err != nil {
		return nil, fmt.Errorf("reading archive: %w", err)
	}

	return &Result{
		Path:   outputPath,
		Files:  files,
		Size:   stat.Size(),
		Digest: hex.EncodeToString(hasher.Sum(nil)),
	}, nil
}

// Extract unpacks a gzip-compressed tar archive into destDir. Member names
// that would escape destDir are rejected.
func Extract(archivePath, destDir string) error {
	f, err := os.Open(archivePath)
	if err != nil {
		return fmt.Errorf("opening archive: %w", err)
	}
	defer f.Close()

	gz, err := gzip.NewReader(f)
	if err != nil {
		return fmt.Errorf("reading archive: %w", err)
	}
	defer gz.Close()

	tr := tar.NewReader(gz)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("reading archive: %w", err)
		}

		name := filepath.FromSlash(hdr.Name)
		if !filepath.IsLocal(name) {
			return fmt.Errorf("unsafe path %q in archive", hdr.Name)
		}
		target := filepath.Join(destDir, name)

		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0755); err != nil {
				return fmt.Errorf("creating %s: %w", name, err)
			}
		case tar.TypeReg:
			if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
				return fmt.Errorf("creating %s: %w", name, err)
			}
			mode := hdr.FileInfo().Mode().Perm()
			w, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, mode)
			if err != nil {
				return fmt.Errorf("creating %s: %w", name, err)
			}
			if _, err := io.Copy(w, tr); err != nil {
				w.Close()
				return fmt.Errorf("extracting %s: %w", name, err)
			}
			if err := w.Close(); err != nil {
				return fmt.Errorf("extracting %s: %w", name, err)
			}
		}
	}
}

// Clean removes build artifacts (__jac_gen__, __pycache__ subtrees) under
// root and returns how many entries were deleted.
func Clean(root string) (int, error) {
	matcher := ignore.NewMatcher(root)
	matcher.LoadDefaults()

	var doomed []string
	err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		if rel == "." {
			return nil
		}
		if info.IsDir() && matcher.Match(rel, true) {
			doomed = append(doomed, path)
			return filepath.SkipDir
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	for _, path := range doomed {
		if err := os.RemoveAll(path); err != nil {
			return 0, fmt.Errorf("removing %s: %w", path, err)
		}
	}
	return len(doomed), nil
}
