package api

import (
	"net/http"

	"github.com/labstack/echo/v5"
	"github.com/labstack/echo/v5/middleware"

	"github.com/skelding/pdfpress/internal/api/controllers"
	"github.com/skelding/pdfpress/internal/app"
	"github.com/skelding/pdfpress/internal/domain"
)

func RegisterRoutes(e *echo.Echo, app *app.Context) {

	// Middleware: Request Logger
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus:  true,
		LogURI:     true,
		LogMethod:  true,
		LogLatency: true,
		LogValuesFunc: func(c *echo.Context, v middleware.RequestLoggerValues) error {
			app.Logger.Info("%s %s | %d | %s", v.Method, v.URI, v.Status, v.Latency)
			return nil
		},
	}))

	// Middleware: global rate limit, enforced before any body handling
	e.Use(rateLimit(app))

	jobs := &controllers.JobsController{App: app}
	cv := &controllers.CVController{App: app}
	system := &controllers.SystemController{App: app}

	// One enqueue endpoint per PDF operation
	e.POST("/pdf/:op", jobs.HandleEnqueue)

	// Synchronous CV rendering
	e.POST("/cv/generate", cv.HandleGenerate)

	e.GET("/jobs/:id", jobs.HandleStatus)
	e.GET("/jobs/download/:id", jobs.HandleDownload)

	// Legacy direct download by artifact name
	e.GET("/download/:id", jobs.HandleLegacyDownload)

	e.GET("/health", system.HandleHealth)

	e.GET("/admin/jobs", system.HandleAdminJobs)
	e.POST("/admin/cleanup", system.HandleAdminCleanup)
}

// rateLimit refuses over-budget requests before they touch uploads or
// queue state.
func rateLimit(app *app.Context) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c *echo.Context) error {
			if !app.Limit.Allow(controllers.ClientKey(c)) {
				return c.JSON(http.StatusTooManyRequests, controllers.ErrorBody{
					Error: "too many requests",
					Code:  string(domain.ErrRateLimited),
				})
			}
			return next(c)
		}
	}
}
