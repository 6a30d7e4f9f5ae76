package controllers

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v5"

	"github.com/skelding/pdfpress/internal/app"
	"github.com/skelding/pdfpress/internal/domain"
)

type SystemController struct {
	App *app.Context
}

func (ctrl *SystemController) HandleHealth(c *echo.Context) error {
	return c.JSON(http.StatusOK, HealthBody{
		Status:   "ok",
		Provider: ctrl.App.Config.Tools.Provider,
		Disabled: ctrl.App.DisabledFeatures,
	})
}

// HandleAdminJobs lists every job record still held in memory.
func (ctrl *SystemController) HandleAdminJobs(c *echo.Context) error {
	views := ctrl.App.Queue.List()
	out := make([]JobStatusBody, 0, len(views))
	for _, v := range views {
		var downloadURL string
		if v.Status == domain.StatusSucceeded {
			downloadURL = fmt.Sprintf("%s://%s/jobs/download/%s", c.Scheme(), c.Request().Host, v.ID)
		}
		out = append(out, statusBody(v, downloadURL))
	}
	return c.JSON(http.StatusOK, out)
}

// HandleAdminCleanup runs a reap pass immediately instead of waiting for
// the next tick.
func (ctrl *SystemController) HandleAdminCleanup(c *echo.Context) error {
	records, files := ctrl.App.Queue.Reap()
	ctrl.App.Logger.Info("admin: cleanup removed %d records, %d files", records, files)
	return c.JSON(http.StatusOK, CleanupBody{RemovedRecords: records, RemovedFiles: files})
}
