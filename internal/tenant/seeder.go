package tenant

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// AdminProfileName is the name of the unrestricted profile every tenant
// starts with. The mirror sync resolves admin users against this name.
const AdminProfileName = "Administrator"

type starterMenu struct {
	Name  string
	Path  string
	Icon  string
	Order int
}

type starterModule struct {
	Name        string
	Description string
	Icon        string
	Path        string
	Order       int
	Menu        starterMenu
}

// The fixed starter catalog: one menu per module's primary screen.
var starterModules = []starterModule{
	{
		Name: "Dashboard", Description: "Main dashboard", Icon: "dashboard", Path: "/dashboard", Order: 1,
		Menu: starterMenu{Name: "Overview", Path: "/dashboard", Icon: "dashboard", Order: 1},
	},
	{
		Name: "Users", Description: "User management", Icon: "users", Path: "/users", Order: 2,
		Menu: starterMenu{Name: "User list", Path: "/users", Icon: "users", Order: 1},
	},
	{
		Name: "Profiles", Description: "Profile and permission management", Icon: "shield", Path: "/profiles", Order: 3,
		Menu: starterMenu{Name: "Profile list", Path: "/profiles", Icon: "shield", Order: 1},
	},
	{
		Name: "Settings", Description: "Company settings", Icon: "settings", Path: "/settings", Order: 4,
		Menu: starterMenu{Name: "General settings", Path: "/settings", Icon: "settings", Order: 1},
	},
}

// Seeder populates a freshly schema'd tenant database with its minimal
// usable configuration: the mirror ClientCompany row, the Administrator
// profile, the starter modules and menus, and the all-true admin
// permissions. Every entity is check-then-create keyed by its natural
// name/path uniqueness, so running the seeder twice does not duplicate rows.
type Seeder struct {
	log *zap.Logger
}

// NewSeeder creates a tenant seeder
func NewSeeder(log *zap.Logger) *Seeder {
	return &Seeder{log: log}
}

// Seed inserts the default records. mainCompanyID is the central registry
// Company.id that becomes the mirror row's mainId.
func (s *Seeder) Seed(ctx context.Context, conn *Conn, mainCompanyID, companyName string) error {
	companyID, err := s.ensureClientCompany(ctx, conn, mainCompanyID, companyName)
	if err != nil {
		return err
	}

	profileID, err := s.ensureAdminProfile(ctx, conn, companyID)
	if err != nil {
		return err
	}

	for _, mod := range starterModules {
		moduleID, err := s.ensureModule(ctx, conn, companyID, mod)
		if err != nil {
			return err
		}
		menuID, err := s.ensureMenu(ctx, conn, moduleID, mod.Menu)
		if err != nil {
			return err
		}
		if err := s.ensurePermission(ctx, conn, profileID, menuID); err != nil {
			return err
		}
	}

	s.log.Info("Tenant seed completed",
		zap.String("main_company_id", mainCompanyID),
		zap.String("admin_profile_id", profileID))
	return nil
}

func (s *Seeder) ensureClientCompany(ctx context.Context, conn *Conn, mainCompanyID, companyName string) (string, error) {
	var id string
	tx := conn.DB().WithContext(ctx).Raw(
		`SELECT "id" FROM "ClientCompany" WHERE "mainId" = ? LIMIT 1`, mainCompanyID,
	).Scan(&id)
	if tx.Error != nil {
		return "", fmt.Errorf("failed to look up mirror company: %w", tx.Error)
	}
	if tx.RowsAffected > 0 {
		return id, nil
	}

	tx = conn.DB().WithContext(ctx).Raw(
		`INSERT INTO "ClientCompany" ("name", "mainId", "active") VALUES (?, ?, TRUE) RETURNING "id"`,
		companyName, mainCompanyID,
	).Scan(&id)
	if tx.Error != nil {
		return "", fmt.Errorf("failed to create mirror company: %w", tx.Error)
	}
	return id, nil
}

func (s *Seeder) ensureAdminProfile(ctx context.Context, conn *Conn, companyID string) (string, error) {
	var id string
	tx := conn.DB().WithContext(ctx).Raw(
		`SELECT "id" FROM "Profile" WHERE "name" = ? LIMIT 1`, AdminProfileName,
	).Scan(&id)
	if tx.Error != nil {
		return "", fmt.Errorf("failed to look up admin profile: %w", tx.Error)
	}
	if tx.RowsAffected > 0 {
		return id, nil
	}

	tx = conn.DB().WithContext(ctx).Raw(
		`INSERT INTO "Profile" ("name", "description", "companyId", "active") VALUES (?, ?, ?, TRUE) RETURNING "id"`,
		AdminProfileName, "Full access to the system", companyID,
	).Scan(&id)
	if tx.Error != nil {
		return "", fmt.Errorf("failed to create admin profile: %w", tx.Error)
	}
	return id, nil
}

func (s *Seeder) ensureModule(ctx context.Context, conn *Conn, companyID string, mod starterModule) (string, error) {
	var id string
	tx := conn.DB().WithContext(ctx).Raw(
		`SELECT "id" FROM "Module" WHERE "name" = ? AND "companyId" = ? LIMIT 1`, mod.Name, companyID,
	).Scan(&id)
	if tx.Error != nil {
		return "", fmt.Errorf("failed to look up module %s: %w", mod.Name, tx.Error)
	}
	if tx.RowsAffected > 0 {
		return id, nil
	}

	tx = conn.DB().WithContext(ctx).Raw(
		`INSERT INTO "Module" ("name", "description", "icon", "path", "order", "companyId", "active")
		 VALUES (?, ?, ?, ?, ?, ?, TRUE) RETURNING "id"`,
		mod.Name, mod.Description, mod.Icon, mod.Path, mod.Order, companyID,
	).Scan(&id)
	if tx.Error != nil {
		return "", fmt.Errorf("failed to create module %s: %w", mod.Name, tx.Error)
	}
	return id, nil
}

func (s *Seeder) ensureMenu(ctx context.Context, conn *Conn, moduleID string, menu starterMenu) (string, error) {
	var id string
	tx := conn.DB().WithContext(ctx).Raw(
		`SELECT "id" FROM "Menu" WHERE "path" = ? LIMIT 1`, menu.Path,
	).Scan(&id)
	if tx.Error != nil {
		return "", fmt.Errorf("failed to look up menu %s: %w", menu.Path, tx.Error)
	}
	if tx.RowsAffected > 0 {
		return id, nil
	}

	tx = conn.DB().WithContext(ctx).Raw(
		`INSERT INTO "Menu" ("name", "path", "icon", "moduleId", "order", "active")
		 VALUES (?, ?, ?, ?, ?, TRUE) RETURNING "id"`,
		menu.Name, menu.Path, menu.Icon, moduleID, menu.Order,
	).Scan(&id)
	if tx.Error != nil {
		return "", fmt.Errorf("failed to create menu %s: %w", menu.Path, tx.Error)
	}
	return id, nil
}

func (s *Seeder) ensurePermission(ctx context.Context, conn *Conn, profileID, menuID string) error {
	var id string
	tx := conn.DB().WithContext(ctx).Raw(
		`SELECT "id" FROM "Permission" WHERE "profileId" = ? AND "menuId" = ? LIMIT 1`, profileID, menuID,
	).Scan(&id)
	if tx.Error != nil {
		return fmt.Errorf("failed to look up permission: %w", tx.Error)
	}
	if tx.RowsAffected > 0 {
		return nil
	}

	err := conn.DB().WithContext(ctx).Exec(
		`INSERT INTO "Permission" ("profileId", "menuId", "canView", "canCreate", "canEdit", "canDelete")
		 VALUES (?, ?, TRUE, TRUE, TRUE, TRUE)`,
		profileID, menuID,
	).Error
	if err != nil {
		return fmt.Errorf("failed to create permission: %w", err)
	}
	return nil
}
