package store

import (
	"archive/zip"
	"compress/flate"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// WriteZip packs the given files into a fresh archive at path. Entries
// sit flat under their base names; clients never see directories.
func (s *TempStore) WriteZip(path string, files []string) error {
	out, err := s.CreateExclusive(path)
	if err != nil {
		return err
	}

	zw := zip.NewWriter(out)
	zw.RegisterCompressor(zip.Deflate, func(w io.Writer) (io.WriteCloser, error) {
		return flate.NewWriter(w, flate.BestCompression)
	})

	for _, f := range files {
		if err := addZipEntry(zw, f); err != nil {
			zw.Close()
			out.Close()
			os.Remove(path)
			return err
		}
	}

	if err := zw.Close(); err != nil {
		out.Close()
		os.Remove(path)
		return fmt.Errorf("failed to finalize zip: %w", err)
	}
	return out.Close()
}

func addZipEntry(zw *zip.Writer, path string) error {
	src, err := os.Open(path)
	if err != nil {
		return err
	}
	defer src.Close()

	entry, err := zw.Create(filepath.Base(path))
	if err != nil {
		return err
	}
	if _, err := io.Copy(entry, src); err != nil {
		return fmt.Errorf("failed to archive %s: %w", filepath.Base(path), err)
	}
	return nil
}
