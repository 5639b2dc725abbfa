package tenant

import (
	"context"
	"errors"
	"fmt"

	"tenant-service/internal/model"
	"tenant-service/pkg/config"
	"tenant-service/prometheus"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ProvisionState tracks how far a tenant's provisioning saga got. Each step
// is idempotent and independently retriable; on failure the compensating
// delete of the registry Company row runs and the state becomes RolledBack.
type ProvisionState string

const (
	StateCreated       ProvisionState = "created"
	StateSchemaApplied ProvisionState = "schema_applied"
	StateSeeded        ProvisionState = "seeded"
	StateMirrorSynced  ProvisionState = "mirror_synced"
	StateRolledBack    ProvisionState = "rolled_back"
)

// SetupRequest is the input of the one-shot tenant setup flow
type SetupRequest struct {
	CompanyName   string `json:"company_name"`
	DatabaseName  string `json:"database_name"`
	DatabasePass  string `json:"database_pass"`
	AdminName     string `json:"admin_name"`
	AdminEmail    string `json:"admin_email"`
	AdminPassword string `json:"admin_password"`
}

// SetupResult is returned to the setup-flow collaborator on success
type SetupResult struct {
	CompanyID   string         `json:"company_id"`
	AdminUserID string         `json:"admin_user_id"`
	State       ProvisionState `json:"state"`
}

// CreateUserRequest is the input for creating a central user
type CreateUserRequest struct {
	Name      string `json:"name"`
	Email     string `json:"email"`
	Password  string `json:"password"`
	Role      string `json:"role"`
	CompanyID string `json:"company_id"`
}

// Service orchestrates the tenant lifecycle: provisioning saga, central
// user creation, and the best-effort mirror sync that follows both.
type Service struct {
	registry    *gorm.DB
	provisioner *Provisioner
	seeder      *Seeder
	sync        *Sync
	router      *Router
	cfg         config.TenantDBConfig
	log         *zap.Logger
}

// NewService wires the tenant subsystem together over the registry database
func NewService(registry *gorm.DB, cfg config.TenantDBConfig, log *zap.Logger) *Service {
	return &Service{
		registry:    registry,
		provisioner: NewProvisioner(cfg, log),
		seeder:      NewSeeder(log),
		sync:        NewSync(log),
		router:      NewRouter(registry, cfg, log),
		cfg:         cfg,
		log:         log,
	}
}

// NewServiceWithParts wires a service from explicit parts; used by tests
func NewServiceWithParts(registry *gorm.DB, provisioner *Provisioner, seeder *Seeder, sync *Sync, router *Router, cfg config.TenantDBConfig, log *zap.Logger) *Service {
	return &Service{
		registry:    registry,
		provisioner: provisioner,
		seeder:      seeder,
		sync:        sync,
		router:      router,
		cfg:         cfg,
		log:         log,
	}
}

// Router exposes the connection router for tenant-scoped collaborators
func (s *Service) Router() *Router {
	return s.router
}

func (r *SetupRequest) validate() error {
	switch {
	case r.CompanyName == "":
		return &ValidationError{Field: "company_name", Reason: "is required"}
	case r.DatabaseName == "":
		return &ValidationError{Field: "database_name", Reason: "is required"}
	case r.DatabasePass == "":
		return &ValidationError{Field: "database_pass", Reason: "is required"}
	case r.AdminName == "":
		return &ValidationError{Field: "admin_name", Reason: "is required"}
	case r.AdminEmail == "":
		return &ValidationError{Field: "admin_email", Reason: "is required"}
	case r.AdminPassword == "":
		return &ValidationError{Field: "admin_password", Reason: "is required"}
	}
	return ValidateDatabaseName(r.DatabaseName)
}

// ProvisionTenant runs the full setup saga: create the registry Company row,
// create and schema the physical tenant database, seed it, create the admin
// user, and mirror it into the tenant. The Company row is the first
// mutation; any later failure triggers its compensating delete (the tenant
// database, if created, is left behind for manual inspection). Mirror sync
// failure alone is logged and non-fatal.
func (s *Service) ProvisionTenant(ctx context.Context, req SetupRequest) (*SetupResult, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}

	company := model.Company{
		Name:         req.CompanyName,
		DatabaseHost: s.cfg.DefaultHost,
		DatabasePort: s.cfg.DefaultPort,
		DatabaseName: req.DatabaseName,
		DatabaseUser: s.cfg.DefaultUser,
		DatabasePass: req.DatabasePass,
		Active:       true,
	}
	if err := s.registry.WithContext(ctx).Create(&company).Error; err != nil {
		prometheus.RecordProvision("registry_error")
		return nil, fmt.Errorf("failed to create company record: %w", err)
	}
	state := StateCreated
	s.log.Info("Company record created",
		zap.String("company_id", company.ID),
		zap.String("database", company.DatabaseName))

	coords := CoordinatesFor(&company)
	coords.SSLMode = s.cfg.SSLMode

	if err := s.provisioner.CreateDatabase(ctx, coords); err != nil {
		return nil, s.rollback(ctx, &company, state, err)
	}

	conn, err := s.provisioner.Open(coords)
	if err != nil {
		return nil, s.rollback(ctx, &company, state, err)
	}
	defer conn.Close()

	if err := s.provisioner.ApplySchema(ctx, conn); err != nil {
		return nil, s.rollback(ctx, &company, state, err)
	}
	state = StateSchemaApplied

	seedCtx, cancel := context.WithTimeout(ctx, s.cfg.OpTimeout)
	err = s.seeder.Seed(seedCtx, conn, company.ID, company.Name)
	cancel()
	if err != nil {
		return nil, s.rollback(ctx, &company, state, err)
	}
	state = StateSeeded

	admin := model.User{
		Name:      req.AdminName,
		Email:     req.AdminEmail,
		Role:      model.RoleAdmin,
		CompanyID: company.ID,
		Active:    true,
	}
	if err := admin.SetPassword(req.AdminPassword); err != nil {
		return nil, s.rollback(ctx, &company, state, err)
	}
	if err := s.registry.WithContext(ctx).Create(&admin).Error; err != nil {
		return nil, s.rollback(ctx, &company, state, fmt.Errorf("failed to create admin user: %w", err))
	}

	syncCtx, cancel := context.WithTimeout(ctx, s.cfg.OpTimeout)
	err = s.sync.SyncUser(syncCtx, conn, &admin)
	cancel()
	if err != nil {
		// Non-fatal: the central records exist and the tenant is usable;
		// downstream permission checks deny until sync is repaired.
		prometheus.RecordMirrorSync("error")
		s.log.Warn("Mirror sync failed after setup",
			zap.String("user_id", admin.ID), zap.Error(err))
	} else {
		prometheus.RecordMirrorSync("ok")
		state = StateMirrorSynced
	}

	prometheus.RecordProvision("ok")
	s.log.Info("Tenant provisioned",
		zap.String("company_id", company.ID),
		zap.String("admin_user_id", admin.ID),
		zap.String("state", string(state)))

	return &SetupResult{
		CompanyID:   company.ID,
		AdminUserID: admin.ID,
		State:       state,
	}, nil
}

// rollback runs the compensating delete of the Company row. If the delete
// itself fails (double fault) the orphaned row is logged and left in place;
// there is no auto-heal.
func (s *Service) rollback(ctx context.Context, company *model.Company, state ProvisionState, cause error) error {
	prometheus.RecordProvision("error")
	if prometheus.RollbackCounter != nil {
		prometheus.RollbackCounter.Inc()
	}
	s.log.Error("Provisioning failed, rolling back company record",
		zap.String("company_id", company.ID),
		zap.String("state", string(state)),
		zap.Error(cause))

	if err := s.registry.WithContext(ctx).Delete(&model.Company{}, "id = ?", company.ID).Error; err != nil {
		if prometheus.RollbackFailureCounter != nil {
			prometheus.RollbackFailureCounter.Inc()
		}
		s.log.Error("Compensating delete failed, company record orphaned",
			zap.String("company_id", company.ID),
			zap.NamedError("rollback_error", err),
			zap.Error(cause))
		return fmt.Errorf("provisioning failed (rollback also failed: %v): %w", err, cause)
	}
	return fmt.Errorf("provisioning failed: %w", cause)
}

// CreateCentralUser creates a central registry user and mirrors it into the
// owning company's tenant database. The mirror sync is best-effort: its
// failure never fails the central write.
func (s *Service) CreateCentralUser(ctx context.Context, req CreateUserRequest) (*model.User, error) {
	switch {
	case req.Name == "":
		return nil, &ValidationError{Field: "name", Reason: "is required"}
	case req.Email == "":
		return nil, &ValidationError{Field: "email", Reason: "is required"}
	case req.Password == "":
		return nil, &ValidationError{Field: "password", Reason: "is required"}
	case req.CompanyID == "":
		return nil, &ValidationError{Field: "company_id", Reason: "is required"}
	}
	role := req.Role
	if role == "" {
		role = model.RoleUser
	}
	if role != model.RoleAdmin && role != model.RoleUser {
		return nil, &ValidationError{Field: "role", Reason: "must be admin or user"}
	}

	var company model.Company
	err := s.registry.WithContext(ctx).First(&company, "id = ? AND active = ?", req.CompanyID, true).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, &ValidationError{Field: "company_id", Reason: "does not reference an active company"}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up company: %w", err)
	}

	var count int64
	if err := s.registry.WithContext(ctx).Model(&model.User{}).Where("email = ?", req.Email).Count(&count).Error; err != nil {
		return nil, fmt.Errorf("failed to check email uniqueness: %w", err)
	}
	if count > 0 {
		return nil, &ValidationError{Field: "email", Reason: "is already in use"}
	}

	user := model.User{
		Name:      req.Name,
		Email:     req.Email,
		Role:      role,
		CompanyID: company.ID,
		Active:    true,
	}
	if err := user.SetPassword(req.Password); err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}
	if err := s.registry.WithContext(ctx).Create(&user).Error; err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	s.mirrorUser(ctx, &company, &user)
	return &user, nil
}

// mirrorUser syncs one central user into its tenant, logging instead of
// failing. The central write has already succeeded by the time this runs.
func (s *Service) mirrorUser(ctx context.Context, company *model.Company, user *model.User) {
	coords := CoordinatesFor(company)
	coords.SSLMode = s.cfg.SSLMode

	conn, err := s.provisioner.Open(coords)
	if err != nil {
		prometheus.RecordMirrorSync("error")
		s.log.Warn("Mirror sync skipped: tenant unreachable",
			zap.String("user_id", user.ID), zap.Error(err))
		return
	}
	defer conn.Close()

	syncCtx, cancel := context.WithTimeout(ctx, s.cfg.OpTimeout)
	defer cancel()
	if err := s.sync.SyncUser(syncCtx, conn, user); err != nil {
		prometheus.RecordMirrorSync("error")
		s.log.Warn("Mirror sync failed",
			zap.String("user_id", user.ID), zap.Error(err))
		return
	}
	prometheus.RecordMirrorSync("ok")
}
