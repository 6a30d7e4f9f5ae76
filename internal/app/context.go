package app

import (
	"context"
	"mime/multipart"

	"github.com/skelding/pdfpress/internal/domain"
	"github.com/skelding/pdfpress/internal/infra/config"
	"github.com/skelding/pdfpress/internal/infra/logger"
	"github.com/skelding/pdfpress/internal/upload"
)

type Queue interface {
	// This allows the API to enqueue and observe jobs without importing the queue package
	Enqueue(clientKey string, payload domain.Payload, cleanup []string) *domain.JobRecord
	Get(id string) (domain.JobView, bool)
	List() []domain.JobView
	Reap() (records, files int)
}

type Uploads interface {
	// This allows controllers to persist multipart files without importing upload internals
	RulesFor(class upload.Class, maxFiles int) upload.Rules
	Persist(files []*multipart.FileHeader, rules upload.Rules) ([]upload.Saved, error)
	Discard(saved []upload.Saved)
}

// Store is the slice of the temp store the HTTP layer touches: allocating
// scratch outputs for synchronous renders and resolving artifacts for
// download.
type Store interface {
	AllocateUploadPath(ext string) string
	FindArtifact(jobID string) (string, error)
	DownloadPath(jobID, ext string) (string, error)
	ValidateDownload(p string) (string, error)
	Remove(path string) error
}

// CVRenderer produces a CV PDF synchronously, outside the queue.
type CVRenderer interface {
	RenderCV(ctx context.Context, p domain.CVPayload, out string) error
}

// RateLimiter admits or refuses a request for a client key.
type RateLimiter interface {
	Allow(key string) bool
}

// Context holds the core environment and shared resources for pdfpress.
// It acts as the "Single Source of Truth" for the application state.
type Context struct {
	Config *config.Config
	Logger *logger.Logger

	// High-level interfaces for the HTTP layer to use
	Queue   Queue
	Uploads Uploads
	Store   Store
	CV      CVRenderer
	Limit   RateLimiter

	// Optional features switched off because their binary is missing.
	DisabledFeatures []string
}

// NewContext initializes the base environment.
func NewContext(cfg *config.Config, log *logger.Logger) *Context {
	return &Context{
		Config: cfg,
		Logger: log,
	}
}
