package queue

import (
	"context"
	"errors"
	"runtime/debug"
	"time"

	"github.com/skelding/pdfpress/internal/domain"
)

func (m *Manager) workerLoop(ctx context.Context, id int) {
	defer m.wg.Done()
	for {
		rec, jobCtx := m.next(ctx)
		if rec == nil {
			return
		}
		m.log.Debug("queue: worker %d picked up job %s (%s)", id, rec.ID, rec.Kind)
		m.execute(jobCtx, rec)
	}
}

// next blocks until it can admit a job or ctx ends. The head of pending
// is taken first; a head whose client key is saturated rotates to the
// back so other keys get through while its work is kept.
func (m *Manager) next(ctx context.Context) (*domain.JobRecord, context.Context) {
	for {
		// Once the stop signal fires nothing more is dispatched; whatever
		// sits in pending stays queued.
		if ctx.Err() != nil {
			return nil, nil
		}
		m.mu.Lock()
		scan := len(m.pending)
		for i := 0; i < scan && len(m.pending) > 0; i++ {
			id := m.pending[0]
			m.pending = m.pending[1:]

			rec, ok := m.records[id]
			if !ok || rec.Status != domain.StatusQueued {
				m.log.Warn("queue: dropping stale pending entry %s", id)
				continue
			}

			key := rec.ClientKey
			m.queuedByKey[key]--
			if m.queuedByKey[key] <= 0 {
				delete(m.queuedByKey, key)
			}

			if m.runningByKey[key] >= m.maxPerUser {
				m.pending = append(m.pending, id)
				m.queuedByKey[key]++
				continue
			}

			m.runningByKey[key]++
			m.globalRun++
			rec.Status = domain.StatusRunning
			rec.StartedAt = time.Now()

			jobCtx, cancel := context.WithTimeout(m.baseCtx, m.jobTimeout)
			rec.CancelFunc = cancel
			m.mu.Unlock()
			return rec, jobCtx
		}
		m.mu.Unlock()

		select {
		case <-m.newJobChan:
		case <-ctx.Done():
			return nil, nil
		}
	}
}

func (m *Manager) execute(jobCtx context.Context, rec *domain.JobRecord) {
	out, err := m.runHandler(jobCtx, rec)
	m.finish(rec, out, err)
}

// runHandler is the panic barrier: a handler crash becomes a failed job,
// never a dead worker.
func (m *Manager) runHandler(ctx context.Context, rec *domain.JobRecord) (out string, err error) {
	defer func() {
		if r := recover(); r != nil {
			m.log.Error("queue: handler for job %s panicked: %v\n%s", rec.ID, r, debug.Stack())
			err = domain.Coded(domain.ErrInternal, "unexpected failure while processing the job")
		}
	}()
	return m.dispatcher.Run(ctx, rec)
}

func (m *Manager) finish(rec *domain.JobRecord, out string, err error) {
	// File removal runs before the terminal status is published, and
	// outside the lock so slow storage cannot stall Enqueue or status
	// reads. The record is still running here, so nothing else touches
	// its files; CleanupFiles is set at enqueue and never mutated.
	if err != nil {
		m.removeArtifacts(rec.ID)
	}
	// Inputs are spent whatever the outcome.
	for _, f := range rec.CleanupFiles {
		if rerr := m.store.Remove(f); rerr != nil {
			m.log.Warn("queue: failed to remove input %s: %v", f, rerr)
		}
	}

	m.mu.Lock()

	if cancel := rec.CancelFunc; cancel != nil {
		cancel()
		rec.CancelFunc = nil
	}

	key := rec.ClientKey
	m.runningByKey[key]--
	if m.runningByKey[key] <= 0 {
		delete(m.runningByKey, key)
	}
	m.globalRun--
	rec.FinishedAt = time.Now()

	switch {
	case err == nil:
		rec.Status = domain.StatusSucceeded
		rec.OutputPath = out
		m.log.Info("queue: job %s succeeded in %s", rec.ID, rec.FinishedAt.Sub(rec.StartedAt).Round(time.Millisecond))

	case errors.Is(err, context.Canceled):
		rec.Status = domain.StatusCancelled
		rec.Error = "cancelled before completion"
		m.log.Info("queue: job %s cancelled", rec.ID)

	case errors.Is(err, context.DeadlineExceeded):
		rec.Status = domain.StatusFailed
		rec.Error = "job exceeded its time limit"
		rec.ErrorCode = domain.ErrJobTimeout
		m.log.Warn("queue: job %s timed out after %s", rec.ID, m.jobTimeout)

	default:
		rec.Status = domain.StatusFailed
		rec.Error = err.Error()
		rec.ErrorCode = domain.CodeOf(err)
		m.log.Warn("queue: job %s failed (%s): %v", rec.ID, rec.ErrorCode, err)
	}
	m.mu.Unlock()

	// A slot opened; a worker parked on a saturated key may proceed.
	m.wake()
}

// removeArtifacts drops any partial output a failed or cancelled job
// left under the downloads root.
func (m *Manager) removeArtifacts(id string) {
	for _, ext := range []string{"pdf", "zip"} {
		path, err := m.store.DownloadPath(id, ext)
		if err != nil {
			continue
		}
		if rerr := m.store.Remove(path); rerr != nil {
			m.log.Warn("queue: failed to remove partial artifact %s: %v", path, rerr)
		}
	}
}
