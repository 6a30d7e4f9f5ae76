package tools

import (
	"os"
	"path/filepath"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/skelding/pdfpress/internal/domain"
	"github.com/skelding/pdfpress/internal/infra/logger"
	"github.com/skelding/pdfpress/internal/platform"
	"github.com/skelding/pdfpress/internal/store"
)

// Per-family invocation deadlines. Each sits under the job deadline, so
// the job-level timeout always wins when it is shorter.
const (
	qpdfTimeout          = 60 * time.Second
	repairAttemptTimeout = 90 * time.Second
	gsCompressTimeout    = 10 * time.Minute
	gsRenderTimeout      = 2 * time.Minute
	browserTimeout       = 30 * time.Second
	officeTimeout        = 2 * time.Minute
	popplerTimeout       = 30 * time.Second
)

// Toolbox exposes one capability per tool family. Every method stages
// intermediate output in a scratch dir under the uploads root and
// removes it before returning, success or not.
type Toolbox struct {
	bins   *platform.Binaries
	runner *Runner
	store  *store.TempStore
	log    *logger.Logger

	// soffice corrupts its profile under concurrent use, so office
	// conversions are serialized.
	office *semaphore.Weighted
}

func NewToolbox(bins *platform.Binaries, st *store.TempStore, log *logger.Logger) *Toolbox {
	return &Toolbox{
		bins:   bins,
		runner: NewRunner(log),
		store:  st,
		log:    log,
		office: semaphore.NewWeighted(1),
	}
}

// stage runs fn with a fresh scratch dir and a temp output path inside
// it, then publishes the temp output to out.
func (t *Toolbox) stage(out string, fn func(scratch, tmpOut string) error) error {
	scratch, err := t.store.ScratchDir()
	if err != nil {
		return err
	}
	defer t.store.RemoveTree(scratch)

	tmpOut := filepath.Join(scratch, "out"+filepath.Ext(out))
	if err := fn(scratch, tmpOut); err != nil {
		return err
	}
	if err := requireOutput(tmpOut); err != nil {
		return err
	}
	return t.store.Publish(tmpOut, out)
}

// requireOutput rejects the empty files some tools leave behind while
// still exiting zero.
func requireOutput(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return domain.CodedFrom(domain.ErrToolFailed, err, "tool produced no output")
	}
	if info.Size() == 0 {
		return domain.Coded(domain.ErrToolFailed, "tool produced an empty output file")
	}
	return nil
}
