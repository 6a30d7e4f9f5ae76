package handlers

import (
	"context"
	"os"
	"time"

	"github.com/skelding/pdfpress/internal/domain"
)

func (s *Set) compress(ctx context.Context, rec *domain.JobRecord, p domain.CompressPayload) (string, error) {
	switch p.Preset {
	case "smallest", "balanced", "high":
	case "":
		p.Preset = "balanced"
	default:
		return "", domain.Coded(domain.ErrBadPayload, "unknown compression preset %q", p.Preset)
	}

	in, err := s.store.ValidateUpload(p.Input)
	if err != nil {
		return "", err
	}

	origInfo, err := os.Stat(in)
	if err != nil {
		return "", domain.CodedFrom(domain.ErrInternal, err, "input vanished before compression")
	}

	out, err := s.store.DownloadPath(rec.ID, "pdf")
	if err != nil {
		return "", err
	}

	rec.Progress.Store(15)
	start := time.Now()
	if err := s.tools.Compress(ctx, in, out, p.Preset); err != nil {
		return "", err
	}
	rec.Progress.Store(90)

	rec.Metrics[domain.MetricOriginalSize] = origInfo.Size()
	if outInfo, err := os.Stat(out); err == nil {
		rec.Metrics[domain.MetricCompressedSize] = outInfo.Size()
	}
	rec.Metrics[domain.MetricElapsedMs] = time.Since(start).Milliseconds()
	return out, nil
}
