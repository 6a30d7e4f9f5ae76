package handlers

import (
	"context"
	"strings"

	"github.com/skelding/pdfpress/internal/domain"
	"github.com/skelding/pdfpress/internal/tools"
)

// watermark stamps diagonal text across every page: a one-page stamp is
// distilled from generated PostScript, then overlaid onto the document.
func (s *Set) watermark(ctx context.Context, rec *domain.JobRecord, p domain.WatermarkPayload) (string, error) {
	text := strings.TrimSpace(p.Text)
	if text == "" {
		return "", domain.Coded(domain.ErrBadPayload, "watermark text is required")
	}

	in, err := s.store.ValidateUpload(p.Input)
	if err != nil {
		return "", err
	}

	// Size the stamp to the first page; qpdf places overlay content at
	// the origin without scaling.
	box := tools.DefaultPageBoxes(1)[0]
	if boxes, err := tools.PageBoxes(in); err == nil && len(boxes) > 0 {
		box = boxes[0]
	}

	stamp := s.store.AllocateUploadPath("pdf")
	defer s.store.Remove(stamp)

	rec.Progress.Store(20)
	program := tools.WatermarkProgram(text, box.Width, box.Height, p.FontSize, p.Opacity)
	if err := s.tools.RenderPostScript(ctx, program, stamp); err != nil {
		return "", err
	}
	rec.Progress.Store(60)

	out, err := s.store.DownloadPath(rec.ID, "pdf")
	if err != nil {
		return "", err
	}
	return out, s.tools.Overlay(ctx, in, stamp, out)
}
