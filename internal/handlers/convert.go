package handlers

import (
	"context"
	"path/filepath"

	"github.com/skelding/pdfpress/internal/domain"
)

// convertTargets maps each conversion kind onto the converter's output
// format.
var convertTargets = map[domain.JobKind]string{
	domain.KindToWord:    "docx",
	domain.KindToExcel:   "xlsx",
	domain.KindToPPT:     "pptx",
	domain.KindFromWord:  "pdf",
	domain.KindFromExcel: "pdf",
	domain.KindFromPPT:   "pdf",
}

// convert drives the office converter. PDF outputs ship directly;
// office outputs are wrapped in a zip so artifacts stay pdf-or-zip.
func (s *Set) convert(ctx context.Context, rec *domain.JobRecord, p domain.ConvertPayload) (string, error) {
	target, ok := convertTargets[p.Op]
	if !ok {
		return "", domain.Coded(domain.ErrInternal, "no conversion target for kind %s", p.Op)
	}

	in, err := s.store.ValidateUpload(p.Input)
	if err != nil {
		return "", err
	}

	rec.Progress.Store(20)
	if target == "pdf" {
		out, err := s.store.DownloadPath(rec.ID, "pdf")
		if err != nil {
			return "", err
		}
		return out, s.tools.ConvertOffice(ctx, in, target, out)
	}

	// Stage under a scratch dir so the archive entry gets a readable
	// name instead of a storage ID.
	scratch, err := s.store.ScratchDir()
	if err != nil {
		return "", err
	}
	defer s.store.RemoveTree(scratch)

	converted := filepath.Join(scratch, "document."+target)
	if err := s.tools.ConvertOffice(ctx, in, target, converted); err != nil {
		return "", err
	}
	rec.Progress.Store(80)

	out, err := s.store.DownloadPath(rec.ID, "zip")
	if err != nil {
		return "", err
	}
	return out, s.store.WriteZip(out, []string{converted})
}
