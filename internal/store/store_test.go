package store

import (
	"archive/zip"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/skelding/pdfpress/internal/domain"
	"github.com/skelding/pdfpress/internal/infra/logger"
)

func newTestStore(t *testing.T) *TempStore {
	t.Helper()
	st, err := NewTempStore(t.TempDir(), t.TempDir(), logger.Nop())
	if err != nil {
		t.Fatalf("failed to build temp store: %v", err)
	}
	return st
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write %s: %v", path, err)
	}
}

func TestValidateUploadAcceptsInside(t *testing.T) {
	st := newTestStore(t)

	existing := filepath.Join(st.UploadsDir(), "doc.pdf")
	writeFile(t, existing, "%PDF-1.4")

	got, err := st.ValidateUpload(existing)
	if err != nil {
		t.Fatalf("existing file refused: %v", err)
	}
	if got != existing {
		t.Fatalf("resolved to %s, want %s", got, existing)
	}

	// Allocations are validated before the file exists.
	pending := filepath.Join(st.UploadsDir(), "not-yet.pdf")
	if _, err := st.ValidateUpload(pending); err != nil {
		t.Fatalf("pending allocation refused: %v", err)
	}

	// Bare names resolve relative to the root.
	if got, err := st.ValidateUpload("doc.pdf"); err != nil || got != existing {
		t.Fatalf("relative name resolved to (%q, %v), want %s", got, err, existing)
	}
}

func TestValidateUploadRejectsEscapes(t *testing.T) {
	st := newTestStore(t)
	outside := filepath.Join(t.TempDir(), "outside.pdf")
	writeFile(t, outside, "%PDF-1.4")

	cases := []struct {
		name string
		path string
	}{
		{"dot dot traversal", "../outside.pdf"},
		{"absolute outside", outside},
		{"root itself", st.UploadsDir()},
		{"nested traversal", "sub/../../outside.pdf"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := st.ValidateUpload(tc.path)
			if err == nil {
				t.Fatalf("path %q accepted", tc.path)
			}
			if code := domain.CodeOf(err); code != domain.ErrPathEscape {
				t.Fatalf("code = %q, want %q", code, domain.ErrPathEscape)
			}
		})
	}
}

func TestValidateUploadFollowsSymlinks(t *testing.T) {
	st := newTestStore(t)

	secret := filepath.Join(t.TempDir(), "secret.pdf")
	writeFile(t, secret, "%PDF-1.4")

	link := filepath.Join(st.UploadsDir(), "innocent.pdf")
	if err := os.Symlink(secret, link); err != nil {
		t.Skipf("cannot create symlinks here: %v", err)
	}

	_, err := st.ValidateUpload(link)
	if err == nil {
		t.Fatal("symlink pointing outside the root accepted")
	}
	if code := domain.CodeOf(err); code != domain.ErrPathEscape {
		t.Fatalf("code = %q, want %q", code, domain.ErrPathEscape)
	}
}

func TestDownloadPathRejectsHostileID(t *testing.T) {
	st := newTestStore(t)

	if _, err := st.DownloadPath("../../etc/cron", "pdf"); err == nil {
		t.Fatal("traversal in job ID accepted")
	} else if code := domain.CodeOf(err); code != domain.ErrPathEscape {
		t.Fatalf("code = %q, want %q", code, domain.ErrPathEscape)
	}

	if _, err := st.DownloadPath("abc", "exe"); err == nil {
		t.Fatal("unsupported artifact extension accepted")
	}
}

func TestCreateExclusiveRefusesClobber(t *testing.T) {
	st := newTestStore(t)
	p := filepath.Join(st.UploadsDir(), "once.pdf")

	f, err := st.CreateExclusive(p)
	if err != nil {
		t.Fatalf("fresh create failed: %v", err)
	}
	f.Close()

	if _, err := st.CreateExclusive(p); err == nil {
		t.Fatal("second create over an existing file succeeded")
	}
}

func TestWriteZipPacksFlatEntries(t *testing.T) {
	st := newTestStore(t)

	sub := filepath.Join(st.UploadsDir(), "work")
	if err := os.MkdirAll(sub, 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	one := filepath.Join(st.UploadsDir(), "one.pdf")
	two := filepath.Join(sub, "two.pdf")
	writeFile(t, one, "first part")
	writeFile(t, two, "second part")

	archive := filepath.Join(st.DownloadsDir(), "job.zip")
	if err := st.WriteZip(archive, []string{one, two}); err != nil {
		t.Fatalf("WriteZip failed: %v", err)
	}

	zr, err := zip.OpenReader(archive)
	if err != nil {
		t.Fatalf("archive unreadable: %v", err)
	}
	defer zr.Close()

	got := make(map[string]string, len(zr.File))
	for _, f := range zr.File {
		rc, err := f.Open()
		if err != nil {
			t.Fatalf("open entry %s: %v", f.Name, err)
		}
		data, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			t.Fatalf("read entry %s: %v", f.Name, err)
		}
		got[f.Name] = string(data)
	}

	want := map[string]string{"one.pdf": "first part", "two.pdf": "second part"}
	if len(got) != len(want) {
		t.Fatalf("archive holds %d entries, want %d", len(got), len(want))
	}
	for name, content := range want {
		if got[name] != content {
			t.Fatalf("entry %s = %q, want %q (directories must be stripped)", name, got[name], content)
		}
	}
}

func TestWriteZipMissingInputRemovesArchive(t *testing.T) {
	st := newTestStore(t)
	one := filepath.Join(st.UploadsDir(), "one.pdf")
	writeFile(t, one, "only part")

	archive := filepath.Join(st.DownloadsDir(), "job.zip")
	err := st.WriteZip(archive, []string{one, filepath.Join(st.UploadsDir(), "gone.pdf")})
	if err == nil {
		t.Fatal("WriteZip succeeded with a missing input")
	}
	if _, serr := os.Stat(archive); !os.IsNotExist(serr) {
		t.Fatal("half-written archive left on disk")
	}
}

func TestPublishMovesIntoDownloads(t *testing.T) {
	st := newTestStore(t)

	src := filepath.Join(st.UploadsDir(), "scratch.pdf")
	writeFile(t, src, "%PDF-1.4 finished")

	dst, err := st.DownloadPath("job123", "pdf")
	if err != nil {
		t.Fatalf("DownloadPath: %v", err)
	}
	if err := st.Publish(src, dst); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}

	if _, err := os.Stat(src); !os.IsNotExist(err) {
		t.Fatal("source still present after publish")
	}
	data, err := os.ReadFile(dst)
	if err != nil {
		t.Fatalf("artifact unreadable: %v", err)
	}
	if string(data) != "%PDF-1.4 finished" {
		t.Fatalf("artifact content = %q", data)
	}
}

func TestFindArtifactPrefersZip(t *testing.T) {
	st := newTestStore(t)
	writeFile(t, filepath.Join(st.DownloadsDir(), "both.pdf"), "pdf")
	writeFile(t, filepath.Join(st.DownloadsDir(), "both.zip"), "zip")
	writeFile(t, filepath.Join(st.DownloadsDir(), "solo.pdf"), "pdf")

	p, err := st.FindArtifact("both")
	if err != nil {
		t.Fatalf("FindArtifact: %v", err)
	}
	if filepath.Ext(p) != ".zip" {
		t.Fatalf("found %s, want the zip", p)
	}

	p, err = st.FindArtifact("solo")
	if err != nil || filepath.Ext(p) != ".pdf" {
		t.Fatalf("found (%q, %v), want the pdf", p, err)
	}

	if _, err := st.FindArtifact("nobody"); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("missing artifact error = %v, want ErrNotExist", err)
	}
}

func TestSweepsHonorAge(t *testing.T) {
	st := newTestStore(t)
	old := time.Now().Add(-2 * time.Hour)

	staleUp := filepath.Join(st.UploadsDir(), "stale.pdf")
	freshUp := filepath.Join(st.UploadsDir(), "fresh.pdf")
	staleScratch := filepath.Join(st.UploadsDir(), "work-old")
	writeFile(t, staleUp, "x")
	writeFile(t, freshUp, "x")
	if err := os.MkdirAll(staleScratch, 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	writeFile(t, filepath.Join(staleScratch, "part.pdf"), "x")
	for _, p := range []string{staleUp, staleScratch} {
		if err := os.Chtimes(p, old, old); err != nil {
			t.Fatalf("backdate %s: %v", p, err)
		}
	}

	if removed := st.SweepUploads(30 * time.Minute, nil); removed != 2 {
		t.Fatalf("SweepUploads removed %d entries, want 2", removed)
	}
	if _, err := os.Stat(freshUp); err != nil {
		t.Fatalf("fresh upload swept: %v", err)
	}
	for _, p := range []string{staleUp, staleScratch} {
		if _, err := os.Stat(p); !os.IsNotExist(err) {
			t.Fatalf("%s survived the sweep", p)
		}
	}

	staleDown := filepath.Join(st.DownloadsDir(), "stale.zip")
	freshDown := filepath.Join(st.DownloadsDir(), "fresh.zip")
	writeFile(t, staleDown, "x")
	writeFile(t, freshDown, "x")
	if err := os.Chtimes(staleDown, old, old); err != nil {
		t.Fatalf("backdate: %v", err)
	}

	if removed := st.SweepDownloads(30 * time.Minute); removed != 1 {
		t.Fatalf("SweepDownloads removed %d entries, want 1", removed)
	}
	if _, err := os.Stat(freshDown); err != nil {
		t.Fatalf("fresh artifact swept: %v", err)
	}
}

func TestSweepUploadsKeepsNamedPaths(t *testing.T) {
	st := newTestStore(t)
	old := time.Now().Add(-2 * time.Hour)

	kept := filepath.Join(st.UploadsDir(), "kept.pdf")
	doomed := filepath.Join(st.UploadsDir(), "doomed.pdf")
	writeFile(t, kept, "x")
	writeFile(t, doomed, "x")
	for _, p := range []string{kept, doomed} {
		if err := os.Chtimes(p, old, old); err != nil {
			t.Fatalf("backdate %s: %v", p, err)
		}
	}

	if removed := st.SweepUploads(30*time.Minute, map[string]bool{kept: true}); removed != 1 {
		t.Fatalf("SweepUploads removed %d entries, want 1", removed)
	}
	if _, err := os.Stat(kept); err != nil {
		t.Fatalf("kept upload swept despite keep set: %v", err)
	}
	if _, err := os.Stat(doomed); !os.IsNotExist(err) {
		t.Fatal("unkept stale upload survived the sweep")
	}
}
