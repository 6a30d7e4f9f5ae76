package controllers

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/skelding/pdfpress/internal/domain"
	"github.com/skelding/pdfpress/internal/upload"
)

// enqueueKinds are the operations accepted by POST /pdf/:op. CV
// generation has its own endpoint.
var enqueueKinds = map[string]domain.JobKind{
	"merge":        domain.KindMerge,
	"split":        domain.KindSplit,
	"compress":     domain.KindCompress,
	"protect":      domain.KindProtect,
	"unlock":       domain.KindUnlock,
	"remove-pages": domain.KindRemovePages,
	"rotate":       domain.KindRotate,
	"organize":     domain.KindOrganize,
	"crop":         domain.KindCrop,
	"to-word":      domain.KindToWord,
	"to-excel":     domain.KindToExcel,
	"to-ppt":       domain.KindToPPT,
	"from-word":    domain.KindFromWord,
	"from-excel":   domain.KindFromExcel,
	"from-ppt":     domain.KindFromPPT,
	"from-html":    domain.KindFromHTML,
	"repair":       domain.KindRepair,
	"watermark":    domain.KindWatermark,
}

// classFor picks the upload document class for an operation. Only the
// office-to-PDF directions accept non-PDF inputs.
func classFor(kind domain.JobKind) upload.Class {
	switch kind {
	case domain.KindFromWord:
		return upload.ClassWord
	case domain.KindFromExcel:
		return upload.ClassExcel
	case domain.KindFromPPT:
		return upload.ClassPowerPoint
	default:
		return upload.ClassPDF
	}
}

// maxFilesFor returns the per-request file cap. Zero defers to the
// configured request-wide maximum.
func maxFilesFor(kind domain.JobKind) int {
	if kind == domain.KindMerge {
		return 0
	}
	return 1
}

func needsFiles(kind domain.JobKind) bool {
	return kind != domain.KindFromHTML
}

// buildPayload shapes the multipart form into the typed work order for a
// kind. Only structural problems are rejected here; content validation
// (page ranges against the real page count, permutation checks) belongs
// to the handler, which fails the job with BAD_PAYLOAD.
func buildPayload(kind domain.JobKind, form url.Values, saved []upload.Saved) (domain.Payload, error) {
	switch kind {
	case domain.KindMerge:
		if len(saved) < 2 {
			return nil, domain.Coded(domain.ErrBadPayload, "merge needs at least two files")
		}
		return domain.MergePayload{Inputs: savedPaths(saved)}, nil

	case domain.KindSplit:
		return domain.SplitPayload{Input: saved[0].Path, Pages: form.Get("pages")}, nil

	case domain.KindCompress:
		return domain.CompressPayload{Input: saved[0].Path, Preset: form.Get("preset")}, nil

	case domain.KindProtect:
		return domain.ProtectPayload{Input: saved[0].Path, Password: form.Get("password")}, nil

	case domain.KindUnlock:
		return domain.UnlockPayload{Input: saved[0].Path, Password: form.Get("password")}, nil

	case domain.KindRemovePages:
		return domain.RemovePagesPayload{Input: saved[0].Path, Pages: form.Get("pages")}, nil

	case domain.KindRotate:
		angle, err := formInt(form, "angle")
		if err != nil {
			return nil, err
		}
		return domain.RotatePayload{Input: saved[0].Path, Angle: angle, Pages: form.Get("pages")}, nil

	case domain.KindOrganize:
		order, err := formIntList(form, "order")
		if err != nil {
			return nil, err
		}
		return domain.OrganizePayload{Input: saved[0].Path, Order: order}, nil

	case domain.KindCrop:
		return buildCrop(form, saved[0].Path)

	case domain.KindToWord, domain.KindToExcel, domain.KindToPPT,
		domain.KindFromWord, domain.KindFromExcel, domain.KindFromPPT:
		return domain.ConvertPayload{Op: kind, Input: saved[0].Path}, nil

	case domain.KindFromHTML:
		return domain.FromHTMLPayload{HTML: form.Get("html"), URL: form.Get("url")}, nil

	case domain.KindRepair:
		return domain.RepairPayload{Input: saved[0].Path, Method: form.Get("method")}, nil

	case domain.KindWatermark:
		fontSize, err := formFloat(form, "fontSize", 0)
		if err != nil {
			return nil, err
		}
		opacity, err := formFloat(form, "opacity", 0)
		if err != nil {
			return nil, err
		}
		return domain.WatermarkPayload{
			Input:    saved[0].Path,
			Text:     form.Get("text"),
			FontSize: fontSize,
			Opacity:  opacity,
		}, nil
	}

	return nil, domain.Coded(domain.ErrBadPayload, "unknown operation %q", kind)
}

func buildCrop(form url.Values, input string) (domain.Payload, error) {
	p := domain.CropPayload{Input: input, Unit: form.Get("unit")}
	if p.Unit == "" {
		p.Unit = "pt"
	}
	var err error
	if p.Top, err = formFloat(form, "top", 0); err != nil {
		return nil, err
	}
	if p.Bottom, err = formFloat(form, "bottom", 0); err != nil {
		return nil, err
	}
	if p.Left, err = formFloat(form, "left", 0); err != nil {
		return nil, err
	}
	if p.Right, err = formFloat(form, "right", 0); err != nil {
		return nil, err
	}
	return p, nil
}

func savedPaths(saved []upload.Saved) []string {
	paths := make([]string, len(saved))
	for i, s := range saved {
		paths[i] = s.Path
	}
	return paths
}

func formInt(form url.Values, key string) (int, error) {
	raw := strings.TrimSpace(form.Get(key))
	if raw == "" {
		return 0, domain.Coded(domain.ErrBadPayload, "missing %q field", key)
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, domain.Coded(domain.ErrBadPayload, "%q must be a number", key)
	}
	return n, nil
}

func formFloat(form url.Values, key string, def float64) (float64, error) {
	raw := strings.TrimSpace(form.Get(key))
	if raw == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, domain.Coded(domain.ErrBadPayload, "%q must be a number", key)
	}
	return f, nil
}

func formIntList(form url.Values, key string) ([]int, error) {
	raw := strings.TrimSpace(form.Get(key))
	if raw == "" {
		return nil, domain.Coded(domain.ErrBadPayload, "missing %q field", key)
	}
	parts := strings.Split(raw, ",")
	out := make([]int, 0, len(parts))
	for _, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return nil, domain.Coded(domain.ErrBadPayload,
				"%q must be a comma-separated list of numbers", key)
		}
		out = append(out, n)
	}
	return out, nil
}
