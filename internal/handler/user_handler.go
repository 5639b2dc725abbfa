package handler

import (
	"errors"
	"net/http"
	"time"

	"tenant-service/internal/model"
	"tenant-service/internal/tenant"
	"tenant-service/pkg/logger"
	"tenant-service/prometheus"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// CreateUser creates a central registry user for the caller's company and
// mirrors it into the tenant database. Only admins may choose a role or a
// different company; everyone else gets role=user in their own company.
func CreateUser(c echo.Context) error {
	log := logger.FromContext(c)

	var req tenant.CreateUserRequest
	if err := c.Bind(&req); err != nil {
		log.Error("Failed to parse user creation request", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{
			"error": "Could not parse request body",
		})
	}

	callerCompanyID, _ := c.Get("company_id").(string)
	callerRole, _ := c.Get("role").(string)

	if callerRole != model.RoleAdmin {
		req.Role = model.RoleUser
		req.CompanyID = callerCompanyID
	} else if req.CompanyID == "" {
		req.CompanyID = callerCompanyID
	}

	defer prometheus.TrackDBOperation("insert")(time.Now())

	user, err := service.CreateCentralUser(c.Request().Context(), req)
	if err != nil {
		var vErr *tenant.ValidationError
		if errors.As(err, &vErr) {
			log.Warn("User creation validation failed", zap.Error(err))
			return c.JSON(http.StatusBadRequest, echo.Map{"error": vErr.Error()})
		}
		log.Error("Failed to create user", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{
			"error": "Failed to create user",
		})
	}

	log.Info("Central user created",
		zap.String("user_id", user.ID),
		zap.String("company_id", user.CompanyID),
		zap.String("role", user.Role))

	return c.JSON(http.StatusCreated, user)
}
