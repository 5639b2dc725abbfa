package tenant

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"tenant-service/pkg/config"

	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"
)

// Postgres SQLSTATE codes the provisioner distinguishes
const (
	pgDuplicateDatabase     = "42P04"
	pgInsufficientPrivilege = "42501"
)

// Database names are interpolated into CREATE DATABASE as identifiers, so
// only plain unquoted-identifier shapes are accepted.
var databaseNamePattern = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// Provisioner turns a set of tenant coordinates into a ready-to-use tenant
// database: it creates the physical database through the server's
// administrative endpoint and applies the fixed schema.
type Provisioner struct {
	cfg  config.TenantDBConfig
	open Opener
	log  *zap.Logger
}

// NewProvisioner creates a provisioner using the default connection opener
func NewProvisioner(cfg config.TenantDBConfig, log *zap.Logger) *Provisioner {
	return &Provisioner{cfg: cfg, open: OpenDSN, log: log}
}

// NewProvisionerWithOpener creates a provisioner with a custom opener; used by tests
func NewProvisionerWithOpener(cfg config.TenantDBConfig, open Opener, log *zap.Logger) *Provisioner {
	return &Provisioner{cfg: cfg, open: open, log: log}
}

// ValidateDatabaseName rejects names that cannot be used as a plain
// Postgres identifier. Returns ErrInvalidDatabaseName otherwise.
func ValidateDatabaseName(name string) error {
	if name == "" || len(name) > 63 || !databaseNamePattern.MatchString(name) {
		return ErrInvalidDatabaseName
	}
	return nil
}

// adminCoordinates returns the coordinates of the server's administrative
// endpoint for the given tenant. Operator credentials from deployment
// configuration win; absent those, the tenant's own requested credentials
// are used.
func (p *Provisioner) adminCoordinates(coords Coordinates) Coordinates {
	admin := Coordinates{
		Host:     coords.Host,
		Port:     coords.Port,
		User:     coords.User,
		Password: coords.Password,
		Database: p.cfg.AdminDatabase,
		SSLMode:  p.cfg.SSLMode,
	}
	if p.cfg.OperatorUser != "" {
		admin.User = p.cfg.OperatorUser
		admin.Password = p.cfg.OperatorPassword
	}
	return admin
}

// CreateDatabase issues CREATE DATABASE for the requested name against the
// administrative endpoint. Fails with ErrDatabaseExists or
// ErrPermissionDenied when the engine rejects it; both are fatal to
// provisioning. No partial state is left behind on failure.
func (p *Provisioner) CreateDatabase(ctx context.Context, coords Coordinates) error {
	if err := ValidateDatabaseName(coords.Database); err != nil {
		return err
	}

	conn, err := p.open(BuildDSN(p.adminCoordinates(coords)))
	if err != nil {
		return fmt.Errorf("failed to reach administrative endpoint: %w", err)
	}
	defer conn.Close()

	ctx, cancel := context.WithTimeout(ctx, p.cfg.OpTimeout)
	defer cancel()

	// Name shape was validated above, so quoting the identifier is safe.
	// CREATE DATABASE cannot be parameterized.
	stmt := fmt.Sprintf(`CREATE DATABASE %q`, coords.Database)
	if err := conn.DB().WithContext(ctx).Exec(stmt).Error; err != nil {
		return classifyCreateError(err, coords.Database)
	}

	p.log.Info("Tenant database created", zap.String("database", coords.Database))
	return nil
}

// classifyCreateError maps server rejections onto the provisioning error
// taxonomy, keeping the engine error text for the caller's message.
func classifyCreateError(err error, database string) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgDuplicateDatabase:
			return fmt.Errorf("%w: %s: %s", ErrDatabaseExists, database, pgErr.Message)
		case pgInsufficientPrivilege:
			return fmt.Errorf("%w: %s: %s", ErrPermissionDenied, database, pgErr.Message)
		}
	}
	return fmt.Errorf("failed to create tenant database %s: %w", database, err)
}

// Open connects to the tenant database itself
func (p *Provisioner) Open(coords Coordinates) (*Conn, error) {
	if coords.SSLMode == "" {
		coords.SSLMode = p.cfg.SSLMode
	}
	return p.open(BuildDSN(coords))
}

// ApplySchema applies the fixed six-table schema to a tenant connection.
// Every statement is idempotent, so reapplying against an already-schema'd
// database is a no-op.
func (p *Provisioner) ApplySchema(ctx context.Context, conn *Conn) error {
	for _, stmt := range SchemaStatements() {
		opCtx, cancel := context.WithTimeout(ctx, p.cfg.OpTimeout)
		err := conn.DB().WithContext(opCtx).Exec(stmt).Error
		cancel()
		if err != nil {
			return fmt.Errorf("failed to apply tenant schema: %w", err)
		}
	}
	return nil
}
