package handlers

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/skelding/pdfpress/internal/domain"
)

// split produces one document per page, or one per comma token of the
// page spec when given, bundled into a zip.
func (s *Set) split(ctx context.Context, rec *domain.JobRecord, p domain.SplitPayload) (string, error) {
	in, err := s.store.ValidateUpload(p.Input)
	if err != nil {
		return "", err
	}

	total, err := s.tools.PageCount(ctx, in)
	if err != nil {
		return "", coded(err, domain.ErrToolFailed, "could not read page count")
	}

	ranges, err := splitRanges(p.Pages, total)
	if err != nil {
		return "", err
	}

	// Parts live in a scratch dir under readable names; those names are
	// what the client sees inside the archive.
	scratch, err := s.store.ScratchDir()
	if err != nil {
		return "", err
	}
	defer s.store.RemoveTree(scratch)

	parts := make([]string, 0, len(ranges))
	for i, r := range ranges {
		part := filepath.Join(scratch, fmt.Sprintf("part-%02d-pages-%s.pdf", i+1, r))
		if err := s.tools.ExtractPages(ctx, in, r, part); err != nil {
			return "", err
		}
		parts = append(parts, part)
		rec.Progress.Store(int32(10 + 80*(i+1)/len(ranges)))
	}

	out, err := s.store.DownloadPath(rec.ID, "zip")
	if err != nil {
		return "", err
	}
	if err := s.store.WriteZip(out, parts); err != nil {
		return "", err
	}

	rec.Metrics[domain.MetricTotalPages] = int64(total)
	return out, nil
}

// splitRanges maps the payload's page spec to one range string per
// output document.
func splitRanges(spec string, total int) ([]string, error) {
	if strings.TrimSpace(spec) == "" {
		ranges := make([]string, 0, total)
		for p := 1; p <= total; p++ {
			ranges = append(ranges, FormatPages([]int{p}))
		}
		return ranges, nil
	}

	var ranges []string
	for _, token := range strings.Split(spec, ",") {
		token = strings.TrimSpace(token)
		if token == "" {
			continue
		}
		a, b, err := parseToken(token)
		if err != nil {
			return nil, err
		}
		// Tokens entirely beyond the document clip away silently.
		if a > total {
			continue
		}
		if b > total {
			b = total
		}
		pages := make([]int, 0, b-a+1)
		for p := a; p <= b; p++ {
			pages = append(pages, p)
		}
		ranges = append(ranges, FormatPages(pages))
	}
	if len(ranges) == 0 {
		return nil, domain.Coded(domain.ErrBadPayload,
			"page spec %q selects nothing in a %d page document", spec, total)
	}
	return ranges, nil
}
