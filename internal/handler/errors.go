package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/product-api/internal/logging"
)

func badRequest(c echo.Context, msg string) error {
	return c.JSON(http.StatusBadRequest, echo.Map{"error": msg})
}

func notFound(c echo.Context, msg string) error {
	return c.JSON(http.StatusNotFound, echo.Map{"error": msg})
}

// internalError logs the cause and answers with a generic 500.
func internalError(c echo.Context, log logging.Logger, op string, err error) error {
	log.Error(c.Request().Context(), op+" failed", "err", err, "path", c.Path())
	return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
}

func parseID(c echo.Context) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return id, true
}
