package middleware

import (
	"net/http"
	"strings"

	"tenant-service/pkg/jwtutil"
	"tenant-service/pkg/logger"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// IdentityMiddleware validates the identity token issued by the identity
// collaborator and stores {user_id, company_id, role} in the context. No
// credential re-verification happens here.
func IdentityMiddleware(jwtUtil *jwtutil.JWTUtil) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			log := logger.FromContext(c)

			// Extract the token from the Authorization header
			authHeader := c.Request().Header.Get("Authorization")
			if authHeader == "" {
				log.Warn("Missing authorization header")
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "Missing authorization header"})
			}

			// Check if the header format is valid
			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || parts[0] != "Bearer" {
				log.Warn("Invalid authorization header format")
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "Invalid authorization header format"})
			}

			// Validate the token
			claims, err := jwtUtil.ValidateToken(parts[1])
			if err != nil {
				log.Warn("Invalid or expired token", zap.Error(err))
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "Invalid or expired token"})
			}

			// Store the identity triple in the context for later use
			c.Set("user_id", claims.UserID)
			c.Set("company_id", claims.CompanyID)
			c.Set("role", claims.Role)
			log.Debug("Identity token validated",
				zap.String("user_id", claims.UserID),
				zap.String("company_id", claims.CompanyID))

			return next(c)
		}
	}
}

// AdminOnly rejects callers whose identity role is not admin. Must run
// after IdentityMiddleware.
func AdminOnly(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		role, _ := c.Get("role").(string)
		if role != "admin" {
			return c.JSON(http.StatusForbidden, echo.Map{"error": "Admin role required"})
		}
		return next(c)
	}
}
