package handler

import (
	"errors"
	"net/http"
	"time"

	"tenant-service/internal/tenant"
	"tenant-service/pkg/logger"
	"tenant-service/prometheus"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// routingErrorResponse maps router errors onto HTTP responses. Unknown
// caller and broken company reference stay distinguishable; neither is ever
// collapsed into a silent "no access".
func routingErrorResponse(c echo.Context, log *zap.Logger, err error) error {
	switch {
	case errors.Is(err, tenant.ErrUserNotFound):
		log.Warn("Unknown central user", zap.Error(err))
		return c.JSON(http.StatusNotFound, echo.Map{"error": "User not found"})
	case errors.Is(err, tenant.ErrUserInactive), errors.Is(err, tenant.ErrCompanyInactive):
		log.Warn("Deactivated caller", zap.Error(err))
		return c.JSON(http.StatusForbidden, echo.Map{"error": err.Error()})
	case errors.Is(err, tenant.ErrCompanyNotFound):
		log.Error("User references missing company", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Company not found for user"})
	default:
		log.Error("Tenant routing failed", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to reach tenant database"})
	}
}

// GetMyModules returns the modules and menus visible to the caller in its
// tenant database
func GetMyModules(c echo.Context) error {
	log := logger.FromContext(c)

	userID, ok := c.Get("user_id").(string)
	if !ok || userID == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
	}

	ctx := c.Request().Context()
	router := service.Router()

	conn, err := router.ResolveConnection(ctx, userID)
	if err != nil {
		if prometheus.ConnectionResolutionCounter != nil {
			prometheus.ConnectionResolutionCounter.WithLabelValues("error").Inc()
		}
		return routingErrorResponse(c, log, err)
	}
	defer conn.Close()
	if prometheus.ConnectionResolutionCounter != nil {
		prometheus.ConnectionResolutionCounter.WithLabelValues("ok").Inc()
	}

	defer prometheus.TrackDBOperation("query")(time.Now())

	modules, err := router.ListUserModules(ctx, conn, userID)
	if err != nil {
		log.Error("Failed to list user modules", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to list modules"})
	}
	if modules == nil {
		modules = []tenant.ModuleInfo{}
	}

	return c.JSON(http.StatusOK, modules)
}

// CheckMyPermission reports whether the caller's tenant profile grants a
// permission kind on the menu at the given path. Absence of a grant is a
// false result, not an error.
func CheckMyPermission(c echo.Context) error {
	log := logger.FromContext(c)

	userID, ok := c.Get("user_id").(string)
	if !ok || userID == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
	}

	path := c.QueryParam("path")
	kind := c.QueryParam("kind")
	if path == "" || kind == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "path and kind are required"})
	}

	granted, err := service.Router().CheckPermission(c.Request().Context(), userID, path, kind)
	if err != nil {
		if errors.Is(err, tenant.ErrUserNotFound) || errors.Is(err, tenant.ErrCompanyNotFound) ||
			errors.Is(err, tenant.ErrUserInactive) || errors.Is(err, tenant.ErrCompanyInactive) {
			return routingErrorResponse(c, log, err)
		}
		log.Error("Permission check failed", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}

	result := "denied"
	if granted {
		result = "granted"
	}
	if prometheus.PermissionCheckCounter != nil {
		prometheus.PermissionCheckCounter.WithLabelValues(result).Inc()
	}

	return c.JSON(http.StatusOK, echo.Map{
		"path":    path,
		"kind":    kind,
		"granted": granted,
	})
}
