package controllers

import (
	"encoding/json"
	"io"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/labstack/echo/v5"

	"github.com/skelding/pdfpress/internal/app"
	"github.com/skelding/pdfpress/internal/domain"
)

type CVController struct {
	App *app.Context
}

// HandleGenerate renders a CV synchronously and streams the PDF back.
// It goes through the same network-confined renderer the queue uses; the
// scratch output never becomes a published artifact.
func (ctrl *CVController) HandleGenerate(c *echo.Context) error {
	var p domain.CVPayload
	if err := json.NewDecoder(c.Request().Body).Decode(&p); err != nil {
		return writeCoded(c, domain.CodedFrom(domain.ErrBadPayload, err, "malformed JSON body"))
	}

	start := time.Now()
	out := ctrl.App.Store.AllocateUploadPath("pdf")
	defer ctrl.App.Store.Remove(out)

	if err := ctrl.App.CV.RenderCV(c.Request().Context(), p, out); err != nil {
		return writeCoded(c, err)
	}

	f, err := os.Open(out)
	if err != nil {
		return writeCoded(c, domain.CodedFrom(domain.ErrInternal, err, "failed to open rendered document"))
	}
	defer f.Close()

	h := c.Response().Header()
	h.Set(echo.HeaderContentType, "application/pdf")
	h.Set(echo.HeaderContentDisposition, "attachment; filename=cv.pdf")
	h.Set("Cache-Control", "no-store")
	h.Set("X-Elapsed-Time", strconv.FormatInt(time.Since(start).Milliseconds(), 10))
	if fi, err := f.Stat(); err == nil {
		h.Set(echo.HeaderContentLength, strconv.FormatInt(fi.Size(), 10))
	}

	c.Response().WriteHeader(http.StatusOK)
	_, err = io.Copy(c.Response(), f)
	return err
}
