package handlers

import (
	"context"
	"errors"

	"github.com/skelding/pdfpress/internal/domain"
	"github.com/skelding/pdfpress/internal/infra/logger"
	"github.com/skelding/pdfpress/internal/store"
	"github.com/skelding/pdfpress/internal/tools"
)

// Set holds one handler per job kind. Handlers are stateless: everything
// they touch lives on the record, in the payload, or under the scratch
// roots.
type Set struct {
	store *store.TempStore
	tools *tools.Toolbox
	log   *logger.Logger
}

func NewSet(st *store.TempStore, tb *tools.Toolbox, log *logger.Logger) *Set {
	return &Set{store: st, tools: tb, log: log}
}

// Run executes the handler for the record's kind and returns the
// artifact path. The worker owns all status bookkeeping.
func (s *Set) Run(ctx context.Context, rec *domain.JobRecord) (string, error) {
	rec.Progress.Store(5)

	var (
		out string
		err error
	)
	switch p := rec.Payload.(type) {
	case domain.MergePayload:
		out, err = s.merge(ctx, rec, p)
	case domain.SplitPayload:
		out, err = s.split(ctx, rec, p)
	case domain.CompressPayload:
		out, err = s.compress(ctx, rec, p)
	case domain.ProtectPayload:
		out, err = s.protect(ctx, rec, p)
	case domain.UnlockPayload:
		out, err = s.unlock(ctx, rec, p)
	case domain.RemovePagesPayload:
		out, err = s.removePages(ctx, rec, p)
	case domain.RotatePayload:
		out, err = s.rotate(ctx, rec, p)
	case domain.OrganizePayload:
		out, err = s.organize(ctx, rec, p)
	case domain.CropPayload:
		out, err = s.crop(ctx, rec, p)
	case domain.ConvertPayload:
		out, err = s.convert(ctx, rec, p)
	case domain.FromHTMLPayload:
		out, err = s.fromHTML(ctx, rec, p)
	case domain.RepairPayload:
		out, err = s.repair(ctx, rec, p)
	case domain.WatermarkPayload:
		out, err = s.watermark(ctx, rec, p)
	case domain.CVPayload:
		out, err = s.cvGenerate(ctx, rec, p)
	default:
		return "", domain.Coded(domain.ErrInternal, "no handler for kind %s", rec.Kind)
	}

	if err != nil {
		return "", err
	}
	rec.Progress.Store(100)
	return out, nil
}

// coded passes coded errors through untouched and tags everything else.
func coded(err error, code domain.ErrorCode, msg string) error {
	var ce *domain.CodedError
	if errors.As(err, &ce) {
		return err
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return domain.CodedFrom(code, err, "%s", msg)
}
