// Package middleware resolves X-Token sessions for echo handlers.
package middleware

import (
	"context"
	"errors"

	"github.com/labstack/echo/v4"

	apperrors "filemanager/internal/errors"
)

// HeaderToken carries the session token.
const HeaderToken = "X-Token"

const userIDKey = "userID"

// SessionResolver maps a session token to its user id.
type SessionResolver interface {
	Resolve(ctx context.Context, token string) (uint, error)
}

// RequireSession rejects requests without a live session with 401.
func RequireSession(resolver SessionResolver) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			userID, err := resolver.Resolve(c.Request().Context(), c.Request().Header.Get(HeaderToken))
			if err != nil {
				return httpError(err)
			}
			c.Set(userIDKey, userID)
			return next(c)
		}
	}
}

// OptionalSession attaches the user of a live session and lets anonymous requests through.
// Store failures are still reported.
func OptionalSession(resolver SessionResolver) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token := c.Request().Header.Get(HeaderToken)
			if token == "" {
				return next(c)
			}
			userID, err := resolver.Resolve(c.Request().Context(), token)
			switch {
			case err == nil:
				c.Set(userIDKey, userID)
			case errors.Is(err, apperrors.ErrUnauthorized):
			default:
				return httpError(err)
			}
			return next(c)
		}
	}
}

// UserID returns the authenticated user id, or 0 for anonymous requests.
func UserID(c echo.Context) uint {
	id, _ := c.Get(userIDKey).(uint)
	return id
}

// Token returns the raw session token of the request.
func Token(c echo.Context) string {
	return c.Request().Header.Get(HeaderToken)
}

func httpError(err error) error {
	he := apperrors.MapErrorToHTTP(err)
	return echo.NewHTTPError(he.StatusCode, he.ToErrorResponse())
}
