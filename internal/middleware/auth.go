package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/ELEVATE-Project/chat-communications/pkg/logger"
	"github.com/labstack/echo/v4"
)

// InternalAccessMiddleware guards the bridge endpoints with the shared
// internal access token. Callers are other internal services, not end users,
// so a static header token is the whole auth surface.
func InternalAccessMiddleware(accessToken string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			log := logger.FromContext(c)

			token := c.Request().Header.Get("internal_access_token")
			if token == "" {
				log.Warn("Missing internal access token")
				return c.JSON(http.StatusUnauthorized, echo.Map{
					"statusCode":   http.StatusUnauthorized,
					"message":      "internal access token required",
					"responseCode": "UNAUTHORIZED",
				})
			}

			if subtle.ConstantTimeCompare([]byte(token), []byte(accessToken)) != 1 {
				log.Warn("Invalid internal access token")
				return c.JSON(http.StatusUnauthorized, echo.Map{
					"statusCode":   http.StatusUnauthorized,
					"message":      "invalid internal access token",
					"responseCode": "UNAUTHORIZED",
				})
			}

			return next(c)
		}
	}
}
