package store

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/segmentio/ksuid"

	"github.com/skelding/pdfpress/internal/domain"
	"github.com/skelding/pdfpress/internal/infra/logger"
)

// TempStore owns the two scratch roots: uploads (request inputs and tool
// scratch space) and downloads (finished artifacts). Nothing in either
// root survives a restart on purpose.
type TempStore struct {
	uploadsDir   string
	downloadsDir string
	log          *logger.Logger
}

func NewTempStore(uploadsDir, downloadsDir string, log *logger.Logger) (*TempStore, error) {
	// Ensure both roots exist before resolving them
	if err := os.MkdirAll(uploadsDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create uploads directory: %w", err)
	}
	if err := os.MkdirAll(downloadsDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create downloads directory: %w", err)
	}

	// Resolve the roots once so containment checks compare resolved
	// paths against resolved roots (/tmp is a symlink on some systems).
	up, err := filepath.EvalSymlinks(uploadsDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve uploads directory: %w", err)
	}
	down, err := filepath.EvalSymlinks(downloadsDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve downloads directory: %w", err)
	}

	return &TempStore{uploadsDir: up, downloadsDir: down, log: log}, nil
}

func (s *TempStore) UploadsDir() string   { return s.uploadsDir }
func (s *TempStore) DownloadsDir() string { return s.downloadsDir }

// AllocateUploadPath reserves a unique name under the uploads root. The
// file is not created; callers write it with CreateExclusive.
func (s *TempStore) AllocateUploadPath(ext string) string {
	name := ksuid.New().String()
	if ext = strings.TrimPrefix(ext, "."); ext != "" {
		name += "." + strings.ToLower(ext)
	}
	return filepath.Join(s.uploadsDir, name)
}

// DownloadPath maps a job ID to its artifact path. Ext must be pdf or
// zip; the ID is containment-checked so a hostile ID cannot address
// files outside the downloads root.
func (s *TempStore) DownloadPath(jobID, ext string) (string, error) {
	if ext != "pdf" && ext != "zip" {
		return "", fmt.Errorf("unsupported artifact extension %q", ext)
	}
	return s.ValidateDownload(filepath.Join(s.downloadsDir, jobID+"."+ext))
}

// FindArtifact locates the artifact for a job, zip first then pdf.
// Returns os.ErrNotExist when neither is present.
func (s *TempStore) FindArtifact(jobID string) (string, error) {
	for _, ext := range []string{"zip", "pdf"} {
		p, err := s.DownloadPath(jobID, ext)
		if err != nil {
			return "", err
		}
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}
	return "", os.ErrNotExist
}

// ValidateUpload resolves p and confirms it sits strictly under the
// uploads root.
func (s *TempStore) ValidateUpload(p string) (string, error) {
	return validateUnder(s.uploadsDir, p)
}

// ValidateDownload resolves p and confirms it sits strictly under the
// downloads root.
func (s *TempStore) ValidateDownload(p string) (string, error) {
	return validateUnder(s.downloadsDir, p)
}

// CreateExclusive opens path for writing, refusing to clobber an
// existing file.
func (s *TempStore) CreateExclusive(path string) (*os.File, error) {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", filepath.Base(path), err)
	}
	return f, nil
}

// WriteBuffer writes data to a fresh file at path, failing rather than
// overwriting.
func (s *TempStore) WriteBuffer(path string, data []byte) error {
	f, err := s.CreateExclusive(path)
	if err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(path)
		return fmt.Errorf("failed to write %s: %w", filepath.Base(path), err)
	}
	return f.Close()
}

// ScratchDir creates a private working directory under the uploads root
// for one tool invocation. Callers remove it with RemoveTree.
func (s *TempStore) ScratchDir() (string, error) {
	dir, err := os.MkdirTemp(s.uploadsDir, "work-")
	if err != nil {
		return "", fmt.Errorf("failed to create scratch dir: %w", err)
	}
	return dir, nil
}

// Remove unlinks a single file. A missing file is not an error; cleanup
// paths run this unconditionally.
func (s *TempStore) Remove(path string) error {
	if path == "" {
		return nil
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// RemoveTree removes a scratch directory and everything under it.
func (s *TempStore) RemoveTree(path string) error {
	if path == "" {
		return nil
	}
	return os.RemoveAll(path)
}

// Publish moves a finished output from scratch space into its final
// artifact path, surviving a cross-device boundary between the roots.
func (s *TempStore) Publish(src, dst string) error {
	if err := moveFile(src, dst); err != nil {
		return domain.CodedFrom(domain.ErrInternal, err, "failed to publish artifact")
	}
	return nil
}

// SweepUploads removes upload files and scratch dirs older than age.
// Paths in keep survive whatever their mtime; the caller names the
// inputs of jobs that have not terminated yet.
func (s *TempStore) SweepUploads(age time.Duration, keep map[string]bool) int {
	return s.sweepDir(s.uploadsDir, age, keep)
}

// SweepDownloads removes artifacts older than age.
func (s *TempStore) SweepDownloads(age time.Duration) int {
	return s.sweepDir(s.downloadsDir, age, nil)
}

func (s *TempStore) sweepDir(dir string, age time.Duration, keep map[string]bool) int {
	entries, err := os.ReadDir(dir)
	if err != nil {
		s.log.Warn("store: sweep of %s failed: %v", dir, err)
		return 0
	}

	cutoff := time.Now().Add(-age)
	removed := 0
	for _, entry := range entries {
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if info.ModTime().After(cutoff) {
			continue
		}
		p := filepath.Join(dir, entry.Name())
		if keep[p] {
			continue
		}
		if err := os.RemoveAll(p); err != nil {
			s.log.Warn("store: failed to remove %s: %v", p, err)
			continue
		}
		removed++
	}
	return removed
}
