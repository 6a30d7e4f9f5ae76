package controllers

import (
	"time"

	"github.com/skelding/pdfpress/internal/domain"
)

// ErrorBody is the uniform synchronous error shape. Code is omitted on
// plain not-found responses, which have no entry in the code table.
type ErrorBody struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// EnqueuedBody acknowledges an accepted job.
type EnqueuedBody struct {
	JobID string `json:"jobId"`
}

type JobStatusBody struct {
	JobID       string     `json:"jobId"`
	Kind        string     `json:"kind"`
	Status      string     `json:"status"`
	Progress    int        `json:"progress,omitempty"`
	Error       string     `json:"error,omitempty"`
	ErrorCode   string     `json:"errorCode,omitempty"`
	DownloadURL string     `json:"downloadUrl,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	StartedAt   *time.Time `json:"startedAt,omitempty"`
	FinishedAt  *time.Time `json:"finishedAt,omitempty"`
}

type HealthBody struct {
	Status   string   `json:"status"`
	Provider string   `json:"provider"`
	Disabled []string `json:"disabledFeatures,omitempty"`
}

type CleanupBody struct {
	RemovedRecords int `json:"removedRecords"`
	RemovedFiles   int `json:"removedFiles"`
}

// statusBody shapes a queue snapshot for the wire. downloadURL is empty
// unless the caller resolved one for a succeeded job.
func statusBody(v domain.JobView, downloadURL string) JobStatusBody {
	return JobStatusBody{
		JobID:       v.ID,
		Kind:        string(v.Kind),
		Status:      string(v.Status),
		Progress:    v.Progress,
		Error:       v.Error,
		ErrorCode:   string(v.ErrorCode),
		DownloadURL: downloadURL,
		CreatedAt:   v.CreatedAt,
		StartedAt:   timePtr(v.StartedAt),
		FinishedAt:  timePtr(v.FinishedAt),
	}
}

func timePtr(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
