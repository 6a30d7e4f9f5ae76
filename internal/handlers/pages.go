package handlers

import (
	"context"
	"strconv"
	"strings"

	"github.com/skelding/pdfpress/internal/domain"
	"github.com/skelding/pdfpress/internal/tools"
)

func (s *Set) removePages(ctx context.Context, rec *domain.JobRecord, p domain.RemovePagesPayload) (string, error) {
	in, err := s.store.ValidateUpload(p.Input)
	if err != nil {
		return "", err
	}

	total, err := s.tools.PageCount(ctx, in)
	if err != nil {
		return "", coded(err, domain.ErrToolFailed, "could not read page count")
	}

	remove, err := ParsePages(p.Pages, total)
	if err != nil {
		return "", err
	}
	keep := complement(remove, total)
	if len(keep) == 0 {
		return "", domain.Coded(domain.ErrBadPayload, "cannot remove all pages")
	}

	out, err := s.store.DownloadPath(rec.ID, "pdf")
	if err != nil {
		return "", err
	}
	rec.Progress.Store(30)
	if err := s.tools.ExtractPages(ctx, in, FormatPages(keep), out); err != nil {
		return "", err
	}

	rec.Metrics[domain.MetricOriginalPageCount] = int64(total)
	rec.Metrics[domain.MetricRemovedCount] = int64(len(remove))
	rec.Metrics[domain.MetricFinalPageCount] = int64(len(keep))
	return out, nil
}

func (s *Set) rotate(ctx context.Context, rec *domain.JobRecord, p domain.RotatePayload) (string, error) {
	switch p.Angle {
	case 0, 90, 180, 270:
	default:
		return "", domain.Coded(domain.ErrBadPayload,
			"rotation must be one of 0, 90, 180, 270; got %d", p.Angle)
	}

	in, err := s.store.ValidateUpload(p.Input)
	if err != nil {
		return "", err
	}

	ranges := ""
	if strings.TrimSpace(p.Pages) != "" {
		total, err := s.tools.PageCount(ctx, in)
		if err != nil {
			return "", coded(err, domain.ErrToolFailed, "could not read page count")
		}
		pages, err := ParsePages(p.Pages, total)
		if err != nil {
			return "", err
		}
		ranges = FormatPages(pages)
	}

	out, err := s.store.DownloadPath(rec.ID, "pdf")
	if err != nil {
		return "", err
	}
	rec.Progress.Store(30)
	return out, s.tools.Rotate(ctx, in, p.Angle, ranges, out)
}

func (s *Set) organize(ctx context.Context, rec *domain.JobRecord, p domain.OrganizePayload) (string, error) {
	in, err := s.store.ValidateUpload(p.Input)
	if err != nil {
		return "", err
	}

	total, err := s.tools.PageCount(ctx, in)
	if err != nil {
		return "", coded(err, domain.ErrToolFailed, "could not read page count")
	}
	if err := checkPermutation(p.Order, total); err != nil {
		return "", err
	}

	// The selection list keeps the caller's order; no sorting here.
	tokens := make([]string, len(p.Order))
	for i, page := range p.Order {
		tokens[i] = strconv.Itoa(page)
	}

	out, err := s.store.DownloadPath(rec.ID, "pdf")
	if err != nil {
		return "", err
	}
	rec.Progress.Store(30)
	return out, s.tools.ExtractPages(ctx, in, strings.Join(tokens, ","), out)
}

// checkPermutation accepts exactly the permutations of 1..total.
func checkPermutation(order []int, total int) error {
	if len(order) != total {
		return domain.Coded(domain.ErrBadPayload,
			"order lists %d pages, document has %d", len(order), total)
	}
	seen := make([]bool, total+1)
	for _, page := range order {
		if page < 1 || page > total {
			return domain.Coded(domain.ErrBadPayload, "page %d is out of range", page)
		}
		if seen[page] {
			return domain.Coded(domain.ErrBadPayload, "page %d appears twice", page)
		}
		seen[page] = true
	}
	return nil
}

func (s *Set) crop(ctx context.Context, rec *domain.JobRecord, p domain.CropPayload) (string, error) {
	unit := p.Unit
	if unit == "" {
		unit = "pt"
	}
	if unit != "pt" && unit != "percent" {
		return "", domain.Coded(domain.ErrBadPayload, "unit must be pt or percent, got %q", unit)
	}
	if p.Top < 0 || p.Bottom < 0 || p.Left < 0 || p.Right < 0 {
		return "", domain.Coded(domain.ErrBadPayload, "margins cannot be negative")
	}

	in, err := s.store.ValidateUpload(p.Input)
	if err != nil {
		return "", err
	}

	boxes, err := tools.PageBoxes(in)
	if err != nil {
		// Fall back to uniform letter geometry when the native parser
		// cannot read the file.
		total, cerr := s.tools.PageCount(ctx, in)
		if cerr != nil {
			return "", coded(cerr, domain.ErrToolFailed, "could not read page geometry")
		}
		boxes = tools.DefaultPageBoxes(total)
	}

	runs := cropRuns(boxes, p, unit)

	out, err := s.store.DownloadPath(rec.ID, "pdf")
	if err != nil {
		return "", err
	}

	if len(runs) == 1 {
		return out, s.tools.CropRange(ctx, in, out, runs[0].first, runs[0].last, runs[0].box)
	}

	parts := make([]string, 0, len(runs))
	defer func() {
		for _, part := range parts {
			s.store.Remove(part)
		}
	}()
	for i, run := range runs {
		part := s.store.AllocateUploadPath("pdf")
		if err := s.tools.CropRange(ctx, in, part, run.first, run.last, run.box); err != nil {
			return "", err
		}
		parts = append(parts, part)
		rec.Progress.Store(int32(10 + 70*(i+1)/len(runs)))
	}
	return out, s.tools.Merge(ctx, parts, out)
}

type cropRun struct {
	first, last int
	box         [4]float64
}

// cropRuns derives each page's new visible box and groups consecutive
// pages sharing one. A margin set that would leave nothing visible keeps
// that page at full size.
func cropRuns(boxes []tools.PageBox, p domain.CropPayload, unit string) []cropRun {
	var runs []cropRun
	for i, pb := range boxes {
		top, bottom, left, right := p.Top, p.Bottom, p.Left, p.Right
		if unit == "percent" {
			top = pb.Height * top / 100
			bottom = pb.Height * bottom / 100
			left = pb.Width * left / 100
			right = pb.Width * right / 100
		}

		box := [4]float64{left, bottom, pb.Width - right, pb.Height - top}
		if box[2]-box[0] <= 0 || box[3]-box[1] <= 0 {
			box = [4]float64{0, 0, pb.Width, pb.Height}
		}

		page := i + 1
		if n := len(runs); n > 0 && runs[n-1].box == box && runs[n-1].last == page-1 {
			runs[n-1].last = page
			continue
		}
		runs = append(runs, cropRun{first: page, last: page, box: box})
	}
	return runs
}
