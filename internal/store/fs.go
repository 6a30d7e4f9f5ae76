package store

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/skelding/pdfpress/internal/domain"
)

// validateUnder resolves p (symlinks included) and confirms the result
// sits strictly below root, which must itself be resolved. Anything that
// cannot be proven inside is refused with PATH_ESCAPE.
func validateUnder(root, p string) (string, error) {
	if !filepath.IsAbs(p) {
		p = filepath.Join(root, p)
	}
	p = filepath.Clean(p)

	resolved, err := filepath.EvalSymlinks(p)
	if err != nil {
		if !os.IsNotExist(err) {
			return "", domain.CodedFrom(domain.ErrPathEscape, err, "path not allowed")
		}
		// The file may not exist yet (an allocation). Resolve the parent
		// instead so a symlinked ancestor still cannot escape.
		dir, base := filepath.Split(p)
		rdir, derr := filepath.EvalSymlinks(filepath.Clean(dir))
		if derr != nil {
			return "", domain.CodedFrom(domain.ErrPathEscape, derr, "path not allowed")
		}
		resolved = filepath.Join(rdir, base)
	}

	rel, err := filepath.Rel(root, resolved)
	if err != nil || rel == "." || rel == ".." ||
		strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", domain.Coded(domain.ErrPathEscape, "path escapes storage root")
	}
	return resolved, nil
}

// moveFile moves a file, falling back to copy+unlink if rename fails
// (likely cross-device).
func moveFile(source, dest string) error {
	if err := os.Rename(source, dest); err == nil {
		return nil
	}
	return moveCrossDevice(source, dest)
}

// moveCrossDevice copies through a hidden temp file next to the
// destination, so a partially copied artifact is never visible under its
// final name.
func moveCrossDevice(sourcePath, destPath string) error {
	src, err := os.Open(sourcePath)
	if err != nil {
		return err
	}
	defer src.Close()

	tempDest := filepath.Join(filepath.Dir(destPath), "."+filepath.Base(destPath)+".tmp")

	dst, err := os.Create(tempDest)
	if err != nil {
		return err
	}

	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		os.Remove(tempDest)
		return err
	}

	if err := dst.Sync(); err != nil {
		dst.Close()
		os.Remove(tempDest)
		return err
	}
	if err := dst.Close(); err != nil {
		os.Remove(tempDest)
		return err
	}

	if err := os.Rename(tempDest, destPath); err != nil {
		os.Remove(tempDest)
		return err
	}

	// Remove the original only after the copy landed
	return os.Remove(sourcePath)
}
