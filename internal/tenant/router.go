package tenant

import (
	"context"
	"errors"
	"fmt"

	"tenant-service/internal/model"
	"tenant-service/pkg/config"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Permission kinds accepted by CheckPermission. The kind selects a column in
// the Permission table, so anything outside this set is rejected before the
// query is built.
var permissionColumns = map[string]string{
	"canView":   "canView",
	"canCreate": "canCreate",
	"canEdit":   "canEdit",
	"canDelete": "canDelete",
}

// MenuInfo is one tenant menu row as returned to UI collaborators
type MenuInfo struct {
	ID    string `gorm:"column:id" json:"id"`
	Name  string `gorm:"column:name" json:"name"`
	Path  string `gorm:"column:path" json:"path"`
	Icon  string `gorm:"column:icon" json:"icon"`
	Order int    `gorm:"column:order" json:"order"`
}

// ModuleInfo is one tenant module row with its menus
type ModuleInfo struct {
	ID    string     `gorm:"column:id" json:"id"`
	Name  string     `gorm:"column:name" json:"name"`
	Icon  string     `gorm:"column:icon" json:"icon"`
	Path  string     `gorm:"column:path" json:"path"`
	Order int        `gorm:"column:order" json:"order"`
	Menus []MenuInfo `gorm:"-" json:"menus"`
}

// Router is the single chokepoint every tenant-scoped operation uses to
// reach tenant data: central user id in, live tenant connection out.
type Router struct {
	registry *gorm.DB
	cfg      config.TenantDBConfig
	open     Opener
	log      *zap.Logger
}

// NewRouter creates a router over the registry database using the default
// tenant connection opener
func NewRouter(registry *gorm.DB, cfg config.TenantDBConfig, log *zap.Logger) *Router {
	return &Router{registry: registry, cfg: cfg, open: OpenDSN, log: log}
}

// NewRouterWithOpener creates a router with a custom opener; used by tests
func NewRouterWithOpener(registry *gorm.DB, cfg config.TenantDBConfig, open Opener, log *zap.Logger) *Router {
	return &Router{registry: registry, cfg: cfg, open: open, log: log}
}

// CoordinatesFor extracts tenant connection coordinates from a registry
// company row
func CoordinatesFor(company *model.Company) Coordinates {
	return Coordinates{
		Host:     company.DatabaseHost,
		Port:     company.DatabasePort,
		User:     company.DatabaseUser,
		Password: company.DatabasePass,
		Database: company.DatabaseName,
	}
}

// ResolveUser looks up the central user together with its company and
// applies the active checks. ErrUserNotFound and ErrCompanyNotFound stay
// distinguishable for the caller.
func (r *Router) ResolveUser(ctx context.Context, centralUserID string) (*model.User, error) {
	var user model.User
	err := r.registry.WithContext(ctx).Preload("Company").First(&user, "id = ?", centralUserID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrUserNotFound, centralUserID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up central user: %w", err)
	}
	if user.Company == nil {
		// Data-integrity violation: the user row points at a company that
		// no longer exists.
		return nil, fmt.Errorf("%w: user %s", ErrCompanyNotFound, centralUserID)
	}
	if !user.Active {
		return nil, fmt.Errorf("%w: %s", ErrUserInactive, centralUserID)
	}
	if !user.Company.Active {
		return nil, fmt.Errorf("%w: %s", ErrCompanyInactive, user.Company.ID)
	}
	return &user, nil
}

// ResolveConnection resolves the owning company of a central user and opens
// a fresh connection to that company's tenant database. The caller owns the
// returned connection and must Close it on every exit path.
func (r *Router) ResolveConnection(ctx context.Context, centralUserID string) (*Conn, error) {
	user, err := r.ResolveUser(ctx, centralUserID)
	if err != nil {
		return nil, err
	}
	coords := CoordinatesFor(user.Company)
	if coords.SSLMode == "" {
		coords.SSLMode = r.cfg.SSLMode
	}
	return r.open(BuildDSN(coords))
}

// CheckPermission reports whether the central user's tenant profile grants
// the requested permission kind on the menu at the given path. Absence of a
// grant (no mirror user, no profile, no permission row) is the default deny
// and comes back as false, not as an error.
func (r *Router) CheckPermission(ctx context.Context, centralUserID, path, kind string) (bool, error) {
	column, ok := permissionColumns[kind]
	if !ok {
		return false, fmt.Errorf("unknown permission kind: %q", kind)
	}

	conn, err := r.ResolveConnection(ctx, centralUserID)
	if err != nil {
		return false, err
	}
	defer conn.Close()

	// The column name comes from the whitelist above, never from the caller.
	query := fmt.Sprintf(`SELECT p.%q
		FROM "Permission" p
		JOIN "Menu" m ON p."menuId" = m."id"
		JOIN "Profile" pr ON p."profileId" = pr."id"
		JOIN "ClientUser" u ON u."profileId" = pr."id"
		WHERE u."mainId" = ? AND m."path" = ?
		LIMIT 1`, column)

	var granted bool
	tx := conn.DB().WithContext(ctx).Raw(query, centralUserID, path).Scan(&granted)
	if tx.Error != nil {
		return false, fmt.Errorf("failed to check permission: %w", tx.Error)
	}
	if tx.RowsAffected == 0 {
		return false, nil
	}
	return granted, nil
}

// ListUserModules returns the modules visible to the central user in its
// tenant, with nested menus, ordered by display order. A mirror user with
// no profile sees every active module when it holds the admin role and
// nothing otherwise.
func (r *Router) ListUserModules(ctx context.Context, conn *Conn, centralUserID string) ([]ModuleInfo, error) {
	var mirror struct {
		ID        string  `gorm:"column:id"`
		ProfileID *string `gorm:"column:profileId"`
		Role      string  `gorm:"column:role"`
	}
	tx := conn.DB().WithContext(ctx).Raw(
		`SELECT "id", "profileId", "role" FROM "ClientUser" WHERE "mainId" = ? LIMIT 1`, centralUserID,
	).Scan(&mirror)
	if tx.Error != nil {
		return nil, fmt.Errorf("failed to look up mirror user: %w", tx.Error)
	}
	if tx.RowsAffected == 0 {
		// No mirror row yet (sync pending or failed): nothing is visible.
		return nil, nil
	}

	var modules []ModuleInfo
	switch {
	case mirror.ProfileID == nil && mirror.Role == model.RoleAdmin:
		tx = conn.DB().WithContext(ctx).Raw(
			`SELECT "id", "name", "icon", "path", "order" FROM "Module"
			 WHERE "active" = TRUE ORDER BY "order" ASC`,
		).Scan(&modules)
	case mirror.ProfileID == nil:
		return nil, nil
	default:
		tx = conn.DB().WithContext(ctx).Raw(
			`SELECT DISTINCT m."id", m."name", m."icon", m."path", m."order"
			 FROM "Module" m
			 JOIN "Menu" mn ON mn."moduleId" = m."id"
			 JOIN "Permission" p ON p."menuId" = mn."id"
			 WHERE p."profileId" = ? AND p."canView" = TRUE AND m."active" = TRUE
			 ORDER BY m."order" ASC`,
			*mirror.ProfileID,
		).Scan(&modules)
	}
	if tx.Error != nil {
		return nil, fmt.Errorf("failed to list modules: %w", tx.Error)
	}

	for i := range modules {
		var menus []MenuInfo
		tx = conn.DB().WithContext(ctx).Raw(
			`SELECT "id", "name", "path", "icon", "order" FROM "Menu"
			 WHERE "moduleId" = ? AND "active" = TRUE ORDER BY "order" ASC`,
			modules[i].ID,
		).Scan(&menus)
		if tx.Error != nil {
			return nil, fmt.Errorf("failed to list menus: %w", tx.Error)
		}
		modules[i].Menus = menus
	}
	return modules, nil
}
