package handlers

import (
	"context"
	"strings"

	"github.com/skelding/pdfpress/internal/domain"
)

func (s *Set) fromHTML(ctx context.Context, rec *domain.JobRecord, p domain.FromHTMLPayload) (string, error) {
	if p.URL != "" {
		return "", domain.Coded(domain.ErrRemoteURLDisabled,
			"rendering remote URLs is disabled; submit the HTML itself")
	}
	if strings.TrimSpace(p.HTML) == "" {
		return "", domain.Coded(domain.ErrBadPayload, "html is required")
	}

	out, err := s.store.DownloadPath(rec.ID, "pdf")
	if err != nil {
		return "", err
	}
	rec.Progress.Store(30)
	return out, s.tools.RenderHTML(ctx, p.HTML, out)
}
