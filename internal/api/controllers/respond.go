package controllers

import (
	"net/http"

	"github.com/labstack/echo/v5"

	"github.com/skelding/pdfpress/internal/domain"
)

// ClientKey identifies the caller for fairness and rate limiting. Absent
// header means the shared anonymous bucket.
func ClientKey(c *echo.Context) string {
	if key := c.Request().Header.Get("x-api-key"); key != "" {
		return key
	}
	return "anon"
}

// writeCoded renders a coded error with its mapped HTTP status. Messages
// on coded errors are already client-safe.
func writeCoded(c *echo.Context, err error) error {
	code := domain.CodeOf(err)
	return c.JSON(domain.HTTPStatus(code), ErrorBody{Error: err.Error(), Code: string(code)})
}

func notFound(c *echo.Context, msg string) error {
	return c.JSON(http.StatusNotFound, ErrorBody{Error: msg})
}
