package domain

import (
	"context"
	"sync/atomic"
	"time"
)

type JobStatus string

const (
	StatusQueued    JobStatus = "queued"
	StatusRunning   JobStatus = "running"
	StatusSucceeded JobStatus = "succeeded"
	StatusFailed    JobStatus = "failed"
	StatusCancelled JobStatus = "cancelled"
)

// Terminal reports whether the status is final. Terminal records never
// transition again; only the reaper may drop them.
func (s JobStatus) Terminal() bool {
	return s == StatusSucceeded || s == StatusFailed || s == StatusCancelled
}

type JobKind string

const (
	KindMerge       JobKind = "merge"
	KindSplit       JobKind = "split"
	KindCompress    JobKind = "compress"
	KindProtect     JobKind = "protect"
	KindUnlock      JobKind = "unlock"
	KindRemovePages JobKind = "remove-pages"
	KindRotate      JobKind = "rotate"
	KindOrganize    JobKind = "organize"
	KindCrop        JobKind = "crop"
	KindToWord      JobKind = "to-word"
	KindToExcel     JobKind = "to-excel"
	KindToPPT       JobKind = "to-ppt"
	KindFromWord    JobKind = "from-word"
	KindFromExcel   JobKind = "from-excel"
	KindFromPPT     JobKind = "from-ppt"
	KindFromHTML    JobKind = "from-html"
	KindRepair      JobKind = "repair"
	KindWatermark   JobKind = "watermark"
	KindCVGenerate  JobKind = "cv-generate"
)

// Metric keys handlers may record on a job. The download surface decides
// how to present them.
const (
	MetricOriginalSize      = "originalSize"
	MetricCompressedSize    = "compressedSize"
	MetricElapsedMs         = "elapsedMs"
	MetricTotalPages        = "totalPages"
	MetricOriginalPageCount = "originalPageCount"
	MetricRemovedCount      = "removedCount"
	MetricFinalPageCount    = "finalPageCount"
)

// JobRecord tracks one unit of work through the queue. The queue manager
// owns every field except Progress and Metrics, which the running handler
// updates; reads outside the manager go through JobView snapshots.
type JobRecord struct {
	ID        string
	Kind      JobKind
	ClientKey string
	Status    JobStatus

	Payload Payload

	Progress atomic.Int32
	Metrics  map[string]int64

	CreatedAt  time.Time
	StartedAt  time.Time
	FinishedAt time.Time

	OutputPath string
	Error      string
	ErrorCode  ErrorCode

	// CleanupFiles are uploaded inputs unlinked when the job leaves the
	// system, whatever the outcome.
	CleanupFiles []string

	CancelFunc context.CancelFunc
}

// JobView is an immutable snapshot of a JobRecord, built by the manager
// under its lock so handlers and HTTP readers never share mutable state.
// The API layer shapes it for the wire.
type JobView struct {
	ID        string
	Kind      JobKind
	Status    JobStatus
	Progress  int
	Error     string
	ErrorCode ErrorCode
	Metrics   map[string]int64

	OutputPath string

	CreatedAt  time.Time
	StartedAt  time.Time
	FinishedAt time.Time
}
