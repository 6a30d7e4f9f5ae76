package queue

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const reapInterval = time.Minute

func (m *Manager) reapLoop(ctx context.Context) {
	defer m.wg.Done()
	ticker := time.NewTicker(reapInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			records, files := m.Reap()
			if records > 0 || files > 0 {
				m.log.Debug("queue: reaped %d records, %d files", records, files)
			}
		case <-ctx.Done():
			return
		}
	}
}

// Reap drops terminal records past their TTL together with their
// artifacts, then sweeps orphaned files. Filesystem trouble is logged
// and swallowed; the reaper never fails loudly.
func (m *Manager) Reap() (records, files int) {
	now := time.Now()

	// Inputs belong to their record until it terminates. Jobs still
	// queued or running keep theirs out of the upload sweep, however old
	// the files have grown waiting for a worker.
	keep := make(map[string]bool)

	// Expired artifacts are collected under the lock and unlinked after
	// releasing it, so slow storage cannot stall Enqueue or status reads.
	var expired []string

	m.mu.Lock()
	for id, rec := range m.records {
		if !rec.Status.Terminal() {
			for _, f := range rec.CleanupFiles {
				keep[f] = true
			}
			continue
		}
		if now.Sub(rec.FinishedAt) <= m.jobTTL {
			continue
		}
		if rec.OutputPath != "" {
			expired = append(expired, rec.OutputPath)
		}
		delete(m.records, id)
		records++
	}
	m.mu.Unlock()

	for _, p := range expired {
		if err := m.store.Remove(p); err != nil {
			m.log.Warn("queue: failed to remove artifact %s: %v", p, err)
		} else {
			files++
		}
	}

	files += m.sweepArtifacts(now)
	files += m.store.SweepUploads(m.jobTTL, keep)
	return records, files
}

// sweepArtifacts unlinks download files older than the output TTL whose
// record is gone or terminal. Artifacts of running jobs are left alone.
func (m *Manager) sweepArtifacts(now time.Time) int {
	entries, err := os.ReadDir(m.store.DownloadsDir())
	if err != nil {
		m.log.Warn("queue: artifact sweep failed: %v", err)
		return 0
	}

	removed := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil || now.Sub(info.ModTime()) <= m.outputTTL {
			continue
		}

		name := entry.Name()
		id := strings.TrimSuffix(name, filepath.Ext(name))

		m.mu.Lock()
		rec, ok := m.records[id]
		live := ok && !rec.Status.Terminal()
		m.mu.Unlock()
		if live {
			continue
		}

		path := filepath.Join(m.store.DownloadsDir(), name)
		if err := m.store.Remove(path); err != nil {
			m.log.Warn("queue: failed to remove stale artifact %s: %v", path, err)
			continue
		}
		removed++
	}
	return removed
}
