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

var service *tenant.Service

// InitHandlers wires the tenant service into the handler package
func InitHandlers(svc *tenant.Service) {
	service = svc
}

// Setup runs the one-shot tenant setup flow: company record, physical
// database, schema, seed data, admin user, mirror sync.
func Setup(c echo.Context) error {
	log := logger.FromContext(c)

	var req tenant.SetupRequest
	if err := c.Bind(&req); err != nil {
		log.Error("Failed to parse setup request", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{
			"error": "Could not parse request body",
		})
	}

	log.Info("Tenant setup requested",
		zap.String("company_name", req.CompanyName),
		zap.String("database_name", req.DatabaseName))

	start := time.Now()
	result, err := service.ProvisionTenant(c.Request().Context(), req)
	if prometheus.ProvisionDurationHistogram != nil {
		prometheus.ProvisionDurationHistogram.Observe(time.Since(start).Seconds())
	}
	if err != nil {
		var vErr *tenant.ValidationError
		switch {
		case errors.As(err, &vErr):
			log.Warn("Setup validation failed", zap.Error(err))
			return c.JSON(http.StatusBadRequest, echo.Map{"error": vErr.Error()})
		case errors.Is(err, tenant.ErrInvalidDatabaseName):
			log.Warn("Setup rejected: bad database name", zap.Error(err))
			return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
		case errors.Is(err, tenant.ErrDatabaseExists):
			log.Warn("Setup rejected: database exists", zap.Error(err))
			return c.JSON(http.StatusConflict, echo.Map{"error": err.Error()})
		case errors.Is(err, tenant.ErrPermissionDenied):
			log.Error("Setup rejected by database server", zap.Error(err))
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": err.Error()})
		default:
			log.Error("Setup failed", zap.Error(err))
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": err.Error()})
		}
	}

	if prometheus.ActiveTenantsGauge != nil {
		prometheus.ActiveTenantsGauge.Inc()
	}

	return c.JSON(http.StatusCreated, result)
}
