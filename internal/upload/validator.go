package upload

import (
	"bytes"
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"

	"github.com/skelding/pdfpress/internal/domain"
	"github.com/skelding/pdfpress/internal/infra/config"
	"github.com/skelding/pdfpress/internal/infra/logger"
	"github.com/skelding/pdfpress/internal/store"
)

// Rules are the per-endpoint acceptance parameters.
type Rules struct {
	MaxFiles    int
	MaxFileSize int64
	Extensions  []string
	Signatures  [][]byte
}

// Saved is one upload persisted under the uploads root. Ownership moves
// to the job's cleanup list once the endpoint enqueues.
type Saved struct {
	Path         string
	OriginalName string
	Size         int64
}

// Validator gates every multipart upload: count, size, magic bytes, then
// extension, in that order. Any failure unlinks everything the request
// persisted.
type Validator struct {
	store *store.TempStore
	cfg   *config.Config
	log   *logger.Logger
}

func NewValidator(st *store.TempStore, cfg *config.Config, log *logger.Logger) *Validator {
	return &Validator{store: st, cfg: cfg, log: log}
}

// RulesFor builds the rules for a document class. maxFiles of zero means
// the configured request-wide cap.
func (v *Validator) RulesFor(class Class, maxFiles int) Rules {
	if maxFiles <= 0 || maxFiles > v.cfg.Upload.MaxFiles {
		maxFiles = v.cfg.Upload.MaxFiles
	}
	size := v.cfg.Upload.MaxFileSize
	if class != ClassPDF {
		size = v.cfg.Upload.MaxOfficeFileSize
	}
	return Rules{
		MaxFiles:    maxFiles,
		MaxFileSize: size,
		Extensions:  class.extensions(),
		Signatures:  class.signatures(),
	}
}

// Persist runs the acceptance checks over the request's files and copies
// the survivors under the uploads root.
func (v *Validator) Persist(files []*multipart.FileHeader, rules Rules) ([]Saved, error) {
	if len(files) < 1 || len(files) > rules.MaxFiles {
		return nil, domain.Coded(domain.ErrUploadTooManyFiles,
			"expected between 1 and %d files, got %d", rules.MaxFiles, len(files))
	}

	for _, fh := range files {
		if fh.Size > rules.MaxFileSize {
			return nil, domain.Coded(domain.ErrUploadTooLarge,
				"%s exceeds the %d byte limit", fh.Filename, rules.MaxFileSize)
		}
	}

	saved := make([]Saved, 0, len(files))
	fail := func(err error) ([]Saved, error) {
		for _, s := range saved {
			if rerr := v.store.Remove(s.Path); rerr != nil {
				v.log.Warn("upload: failed to discard %s: %v", s.Path, rerr)
			}
		}
		return nil, err
	}

	for _, fh := range files {
		s, err := v.persistOne(fh)
		if err != nil {
			return fail(err)
		}
		saved = append(saved, s)
	}

	for _, s := range saved {
		if err := checkMagic(s, rules.Signatures); err != nil {
			return fail(err)
		}
	}

	for _, s := range saved {
		ext := strings.ToLower(filepath.Ext(s.OriginalName))
		if !extAllowed(ext, rules.Extensions) {
			return fail(domain.Coded(domain.ErrUploadBadType,
				"%s: type %q is not accepted here", s.OriginalName, ext))
		}
	}

	return saved, nil
}

func (v *Validator) persistOne(fh *multipart.FileHeader) (Saved, error) {
	src, err := fh.Open()
	if err != nil {
		return Saved{}, fmt.Errorf("failed to open upload %s: %w", fh.Filename, err)
	}
	defer src.Close()

	path := v.store.AllocateUploadPath(filepath.Ext(fh.Filename))
	dst, err := v.store.CreateExclusive(path)
	if err != nil {
		return Saved{}, err
	}

	n, err := io.Copy(dst, src)
	if err != nil {
		dst.Close()
		os.Remove(path)
		return Saved{}, fmt.Errorf("failed to persist upload %s: %w", fh.Filename, err)
	}
	if err := dst.Close(); err != nil {
		os.Remove(path)
		return Saved{}, err
	}

	return Saved{Path: path, OriginalName: fh.Filename, Size: n}, nil
}

func checkMagic(s Saved, sigs [][]byte) error {
	f, err := os.Open(s.Path)
	if err != nil {
		return err
	}
	defer f.Close()

	head := make([]byte, maxSignatureLen)
	n, err := io.ReadFull(f, head)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return err
	}
	head = head[:n]

	for _, sig := range sigs {
		if bytes.HasPrefix(head, sig) {
			return nil
		}
	}
	return domain.Coded(domain.ErrUploadInvalidMagic,
		"%s does not look like an accepted document", s.OriginalName)
}

func extAllowed(ext string, allowed []string) bool {
	for _, a := range allowed {
		if ext == a {
			return true
		}
	}
	return false
}

// Discard removes persisted uploads, used when enqueueing fails after a
// successful validation pass.
func (v *Validator) Discard(saved []Saved) {
	for _, s := range saved {
		if err := v.store.Remove(s.Path); err != nil {
			v.log.Warn("upload: failed to discard %s: %v", s.Path, err)
		}
	}
}
