package tenant

import (
	"context"
	"fmt"

	"tenant-service/internal/model"

	"go.uber.org/zap"
)

// Sync keeps tenant-local ClientUser rows consistent with central User rows.
// It only ever touches the tenant database; the registry is never mutated
// from here.
type Sync struct {
	log *zap.Logger
}

// NewSync creates a mirror sync
func NewSync(log *zap.Logger) *Sync {
	return &Sync{log: log}
}

// SyncUser upserts the ClientUser mirror row for a central user. Idempotent:
// re-running with the same central data converges to the same mirror state.
// Returns ErrMirrorCompanyMissing when the tenant has no mirror company row
// for the user's company; callers treat that as non-fatal.
func (s *Sync) SyncUser(ctx context.Context, conn *Conn, user *model.User) error {
	var companyID string
	tx := conn.DB().WithContext(ctx).Raw(
		`SELECT "id" FROM "ClientCompany" WHERE "mainId" = ? LIMIT 1`, user.CompanyID,
	).Scan(&companyID)
	if tx.Error != nil {
		return fmt.Errorf("failed to resolve mirror company: %w", tx.Error)
	}
	if tx.RowsAffected == 0 {
		return fmt.Errorf("%w: company %s", ErrMirrorCompanyMissing, user.CompanyID)
	}

	// Admin users are attached to the Administrator profile; everyone else
	// stays unassigned until a tenant admin picks a profile for them.
	var profileID *string
	if user.IsAdmin() {
		var id string
		tx = conn.DB().WithContext(ctx).Raw(
			`SELECT "id" FROM "Profile" WHERE "name" = ? LIMIT 1`, AdminProfileName,
		).Scan(&id)
		if tx.Error != nil {
			return fmt.Errorf("failed to resolve admin profile: %w", tx.Error)
		}
		if tx.RowsAffected > 0 {
			profileID = &id
		}
	}

	var existingID string
	tx = conn.DB().WithContext(ctx).Raw(
		`SELECT "id" FROM "ClientUser" WHERE "mainId" = ? LIMIT 1`, user.ID,
	).Scan(&existingID)
	if tx.Error != nil {
		return fmt.Errorf("failed to look up mirror user: %w", tx.Error)
	}

	if tx.RowsAffected > 0 {
		err := conn.DB().WithContext(ctx).Exec(
			`UPDATE "ClientUser"
			 SET "name" = ?, "email" = ?, "profileId" = ?, "role" = ?, "active" = ?, "updatedAt" = now()
			 WHERE "id" = ?`,
			user.Name, user.Email, profileID, user.Role, user.Active, existingID,
		).Error
		if err != nil {
			return fmt.Errorf("failed to update mirror user: %w", err)
		}
		s.log.Debug("Mirror user updated", zap.String("main_id", user.ID))
		return nil
	}

	err := conn.DB().WithContext(ctx).Exec(
		`INSERT INTO "ClientUser" ("name", "email", "mainId", "companyId", "profileId", "role", "active")
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		user.Name, user.Email, user.ID, companyID, profileID, user.Role, user.Active,
	).Error
	if err != nil {
		return fmt.Errorf("failed to insert mirror user: %w", err)
	}
	s.log.Debug("Mirror user created", zap.String("main_id", user.ID))
	return nil
}
