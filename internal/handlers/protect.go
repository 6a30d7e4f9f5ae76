package handlers

import (
	"context"

	"github.com/skelding/pdfpress/internal/domain"
)

func (s *Set) protect(ctx context.Context, rec *domain.JobRecord, p domain.ProtectPayload) (string, error) {
	if p.Password == "" {
		return "", domain.Coded(domain.ErrBadPayload, "password is required")
	}
	in, err := s.store.ValidateUpload(p.Input)
	if err != nil {
		return "", err
	}
	out, err := s.store.DownloadPath(rec.ID, "pdf")
	if err != nil {
		return "", err
	}
	rec.Progress.Store(30)
	return out, s.tools.Encrypt(ctx, in, p.Password, out)
}

func (s *Set) unlock(ctx context.Context, rec *domain.JobRecord, p domain.UnlockPayload) (string, error) {
	if p.Password == "" {
		return "", domain.Coded(domain.ErrBadPayload, "password is required")
	}
	in, err := s.store.ValidateUpload(p.Input)
	if err != nil {
		return "", err
	}
	out, err := s.store.DownloadPath(rec.ID, "pdf")
	if err != nil {
		return "", err
	}
	rec.Progress.Store(30)
	// A wrong password comes back as INVALID_PASSWORD from the tool's
	// stderr mapping.
	return out, s.tools.Decrypt(ctx, in, p.Password, out)
}
