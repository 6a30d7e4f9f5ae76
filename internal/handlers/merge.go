package handlers

import (
	"context"

	"github.com/skelding/pdfpress/internal/domain"
)

func (s *Set) merge(ctx context.Context, rec *domain.JobRecord, p domain.MergePayload) (string, error) {
	if len(p.Inputs) < 2 {
		return "", domain.Coded(domain.ErrBadPayload, "merge needs at least two documents")
	}

	inputs := make([]string, 0, len(p.Inputs))
	for _, raw := range p.Inputs {
		in, err := s.store.ValidateUpload(raw)
		if err != nil {
			return "", err
		}
		inputs = append(inputs, in)
	}

	out, err := s.store.DownloadPath(rec.ID, "pdf")
	if err != nil {
		return "", err
	}

	rec.Progress.Store(20)
	if err := s.tools.Merge(ctx, inputs, out); err != nil {
		return "", err
	}
	rec.Progress.Store(90)

	if n, err := s.tools.PageCount(ctx, out); err == nil {
		rec.Metrics[domain.MetricTotalPages] = int64(n)
	}
	return out, nil
}
