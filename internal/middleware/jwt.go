package middleware // reusable HTTP middleware functions

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/dmytrik/notesApi/internal/auth"
)

// JWTAuth returns an Echo middleware that validates a Bearer access
// token through the token authority and injects the resolved user id
// into the request context under "user_id". Refresh tokens are signed
// with a different key and therefore never pass this check. All
// authority failures map to 401; none are retried.
func JWTAuth(authority *auth.Authority) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			// A valid header is "Bearer <token>"; anything else is
			// rejected before touching the authority.
			header := c.Request().Header.Get("Authorization")
			if !strings.HasPrefix(header, "Bearer ") {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing bearer token"})
			}
			raw := strings.TrimPrefix(header, "Bearer ")

			uid, err := authority.Resolve(raw, auth.KindAccess)
			if err != nil {
				msg := "invalid token"
				if errors.Is(err, auth.ErrCredentialExpired) {
					msg = "token expired"
				}
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": msg})
			}

			c.Set("user_id", uid)
			return next(c)
		}
	}
}
