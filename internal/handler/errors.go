package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	apperrors "filemanager/internal/errors"
)

// Helper function to turn service errors into echo errors.
// Internal failures are logged since their cause never reaches the client.
func respondError(c echo.Context, logger *slog.Logger, err error) error {
	he := apperrors.MapErrorToHTTP(err)
	if he.StatusCode >= http.StatusInternalServerError {
		logger.Error("request failed",
			"method", c.Request().Method,
			"path", c.Path(),
			"request_id", c.Response().Header().Get(echo.HeaderXRequestID),
			"error", err,
		)
	}
	return echo.NewHTTPError(he.StatusCode, he.ToErrorResponse())
}

func badRequest(message string) *echo.HTTPError {
	return echo.NewHTTPError(http.StatusBadRequest, apperrors.ErrorResponse{
		Error: message,
		Code:  "VALIDATION_ERROR",
	})
}

// validationMessage reports the first failing field as "Missing <field>".
func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		return "Missing " + verrs[0].Field()
	}
	return err.Error()
}
