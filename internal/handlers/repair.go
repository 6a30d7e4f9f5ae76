package handlers

import (
	"context"

	"github.com/skelding/pdfpress/internal/domain"
)

type repairAttempt struct {
	name string
	run  func(ctx context.Context, in, out string) error
}

func (s *Set) quickAttempts() []repairAttempt {
	return []repairAttempt{
		{"relinearize", func(ctx context.Context, in, out string) error {
			return s.tools.Reemit(ctx, in, out, "--linearize")
		}},
		{"reemit", func(ctx context.Context, in, out string) error {
			return s.tools.Reemit(ctx, in, out)
		}},
		{"object-streams-off", func(ctx context.Context, in, out string) error {
			return s.tools.Reemit(ctx, in, out, "--object-streams=disable")
		}},
		{"normalize", func(ctx context.Context, in, out string) error {
			return s.tools.Reemit(ctx, in, out, "--qdf", "--normalize-content=y")
		}},
	}
}

func (s *Set) deepAttempts() []repairAttempt {
	return []repairAttempt{
		{"rerender", func(ctx context.Context, in, out string) error {
			return s.tools.DeepRepair(ctx, in, out, true)
		}},
		{"rerender-permissive", func(ctx context.Context, in, out string) error {
			return s.tools.DeepRepair(ctx, in, out, false)
		}},
	}
}

// repair walks a ladder of strategies; the first attempt that yields a
// parseable, non-empty document wins. A timeout on one attempt does not
// abort the rest, but the job deadline does.
func (s *Set) repair(ctx context.Context, rec *domain.JobRecord, p domain.RepairPayload) (string, error) {
	var attempts []repairAttempt
	switch p.Method {
	case "quick":
		attempts = s.quickAttempts()
	case "deep":
		attempts = s.deepAttempts()
	case "auto", "":
		attempts = append(s.quickAttempts(), s.deepAttempts()...)
	default:
		return "", domain.Coded(domain.ErrBadPayload,
			"repair method must be quick, deep or auto; got %q", p.Method)
	}

	in, err := s.store.ValidateUpload(p.Input)
	if err != nil {
		return "", err
	}
	out, err := s.store.DownloadPath(rec.ID, "pdf")
	if err != nil {
		return "", err
	}

	for i, attempt := range attempts {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		rec.Progress.Store(int32(10 + 80*i/len(attempts)))

		candidate := s.store.AllocateUploadPath("pdf")
		if err := attempt.run(ctx, in, candidate); err != nil {
			s.store.Remove(candidate)
			s.log.Debug("repair: %s attempt %q failed: %v", rec.ID, attempt.name, err)
			continue
		}
		if err := s.tools.ProbeValid(ctx, candidate); err != nil {
			s.store.Remove(candidate)
			s.log.Debug("repair: %s attempt %q produced an invalid file: %v", rec.ID, attempt.name, err)
			continue
		}

		if err := s.store.Publish(candidate, out); err != nil {
			s.store.Remove(candidate)
			return "", err
		}
		s.log.Info("repair: %s recovered via %q", rec.ID, attempt.name)
		return out, nil
	}

	return "", domain.Coded(domain.ErrRepairFailed, "all repair strategies failed")
}
