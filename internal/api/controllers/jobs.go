package controllers

import (
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"

	"github.com/labstack/echo/v5"

	"github.com/skelding/pdfpress/internal/app"
	"github.com/skelding/pdfpress/internal/domain"
	"github.com/skelding/pdfpress/internal/upload"
)

// multipartMemory bounds the in-memory part of multipart parsing; larger
// files spill to OS temp and are copied under the uploads root by the
// validator.
const multipartMemory = 32 << 20

type JobsController struct {
	App *app.Context
}

// HandleEnqueue is the single entry point for every PDF operation. The
// :op segment selects the job kind, the multipart body carries the files
// and the per-operation fields.
func (ctrl *JobsController) HandleEnqueue(c *echo.Context) error {
	kind, ok := enqueueKinds[c.Param("op")]
	if !ok {
		return notFound(c, fmt.Sprintf("unknown operation %q", c.Param("op")))
	}

	r := c.Request()
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		return writeCoded(c, domain.CodedFrom(domain.ErrBadPayload, err, "malformed multipart body"))
	}
	defer r.MultipartForm.RemoveAll()

	var saved []upload.Saved
	if needsFiles(kind) {
		rules := ctrl.App.Uploads.RulesFor(classFor(kind), maxFilesFor(kind))
		var err error
		saved, err = ctrl.App.Uploads.Persist(formFiles(r), rules)
		if err != nil {
			return writeCoded(c, err)
		}
	}

	payload, err := buildPayload(kind, url.Values(r.MultipartForm.Value), saved)
	if err != nil {
		ctrl.App.Uploads.Discard(saved)
		return writeCoded(c, err)
	}

	// Ownership of the saved inputs moves to the job's cleanup list.
	rec := ctrl.App.Queue.Enqueue(ClientKey(c), payload, savedPaths(saved))
	return c.JSON(http.StatusAccepted, EnqueuedBody{JobID: rec.ID})
}

func (ctrl *JobsController) HandleStatus(c *echo.Context) error {
	view, ok := ctrl.App.Queue.Get(c.Param("id"))
	if !ok {
		return notFound(c, "job not found")
	}

	var downloadURL string
	if view.Status == domain.StatusSucceeded {
		downloadURL = fmt.Sprintf("%s://%s/jobs/download/%s", c.Scheme(), c.Request().Host, view.ID)
	}
	return c.JSON(http.StatusOK, statusBody(view, downloadURL))
}

// HandleDownload streams the artifact of a succeeded job.
func (ctrl *JobsController) HandleDownload(c *echo.Context) error {
	view, ok := ctrl.App.Queue.Get(c.Param("id"))
	if !ok {
		return notFound(c, "job not found")
	}
	if view.Status != domain.StatusSucceeded {
		return writeCoded(c, domain.Coded(domain.ErrBadPayload, "job is %s, not succeeded", view.Status))
	}
	if view.OutputPath == "" {
		return notFound(c, "artifact not available")
	}

	// The stored path is re-checked against the downloads root before any
	// byte leaves the process.
	path, err := ctrl.App.Store.ValidateDownload(view.OutputPath)
	if err != nil {
		return writeCoded(c, err)
	}
	return ctrl.streamArtifact(c, view.ID, path, view.Metrics)
}

// HandleLegacyDownload serves an artifact by bare ID, zip preferred, for
// clients that never polled the status endpoint.
func (ctrl *JobsController) HandleLegacyDownload(c *echo.Context) error {
	id := c.Param("id")
	if id == "" {
		id = c.QueryParam("id")
	}
	if id == "" {
		return writeCoded(c, domain.Coded(domain.ErrBadPayload, "missing id"))
	}

	path, err := ctrl.App.Store.FindArtifact(id)
	if err != nil {
		if os.IsNotExist(err) {
			return notFound(c, "artifact not found")
		}
		return writeCoded(c, err)
	}

	var metrics map[string]int64
	if view, ok := ctrl.App.Queue.Get(id); ok {
		metrics = view.Metrics
	}
	return ctrl.streamArtifact(c, id, path, metrics)
}

func (ctrl *JobsController) streamArtifact(c *echo.Context, id, path string, metrics map[string]int64) error {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return notFound(c, "artifact expired")
		}
		return writeCoded(c, domain.CodedFrom(domain.ErrInternal, err, "failed to open artifact"))
	}
	defer f.Close()

	h := c.Response().Header()
	h.Set(echo.HeaderContentType, contentTypeFor(path))
	h.Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%s%s", id, filepath.Ext(path)))
	h.Set("Cache-Control", "no-store")
	for k, val := range metrics {
		if hdr, ok := metricHeaders[k]; ok {
			h.Set(hdr, strconv.FormatInt(val, 10))
		}
	}
	if fi, err := f.Stat(); err == nil {
		h.Set(echo.HeaderContentLength, strconv.FormatInt(fi.Size(), 10))
	}

	c.Response().WriteHeader(http.StatusOK)
	if _, err := io.Copy(c.Response(), f); err != nil {
		// Interrupted stream: the artifact stays so the client can retry.
		return err
	}

	// Downloads are one-shot. Once the client has the last byte the
	// artifact is unlinked; anything never collected is left to the reaper.
	if err := ctrl.App.Store.Remove(path); err != nil {
		ctrl.App.Logger.Warn("download: failed to remove %s: %v", path, err)
	}
	return nil
}

// metricHeaders maps job metric keys onto the response header names
// clients of the old synchronous endpoints read. Unknown keys never
// become headers.
var metricHeaders = map[string]string{
	domain.MetricOriginalSize:      "X-Original-Size",
	domain.MetricCompressedSize:    "X-Compressed-Size",
	domain.MetricElapsedMs:         "X-Elapsed-Time",
	domain.MetricTotalPages:        "X-Total-Pages",
	domain.MetricOriginalPageCount: "X-Original-Page-Count",
	domain.MetricRemovedCount:      "X-Removed-Count",
	domain.MetricFinalPageCount:    "X-Final-Page-Count",
}

func contentTypeFor(path string) string {
	if filepath.Ext(path) == ".zip" {
		return "application/zip"
	}
	return "application/pdf"
}

func formFiles(r *http.Request) []*multipart.FileHeader {
	if r.MultipartForm == nil {
		return nil
	}
	files := r.MultipartForm.File["files"]
	if len(files) == 0 {
		files = r.MultipartForm.File["file"]
	}
	return files
}
