package tenant

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func validSetupRequest() SetupRequest {
	return SetupRequest{
		CompanyName:   "Acme",
		DatabaseName:  "acme_db",
		DatabasePass:  "secret",
		AdminName:     "Jane Admin",
		AdminEmail:    "jane@acme.test",
		AdminPassword: "admin123",
	}
}

// newTestService wires a service whose registry is a sqlmock database.
// Every open of a tenant connection hands out the next connection from a
// queue of fresh sqlmock databases, mirroring the fresh-connection-per-call
// contract; openErr, when set, makes every open fail instead. The returned
// mocks correspond to the opens in call order (admin endpoint first).
func newTestService(t *testing.T, openErr error, conns int) (*Service, sqlmock.Sqlmock, []sqlmock.Sqlmock) {
	t.Helper()
	registry, registryMock := newMockGorm(t)

	queue := make([]*Conn, 0, conns)
	mocks := make([]sqlmock.Sqlmock, 0, conns)
	for i := 0; i < conns; i++ {
		conn, mock := newMockConn(t)
		queue = append(queue, conn)
		mocks = append(mocks, mock)
	}

	cfg := testTenantConfig()
	log := zap.NewNop()

	opened := 0
	open := func(dsn string) (*Conn, error) {
		if openErr != nil {
			return nil, openErr
		}
		require.Less(t, opened, len(queue), "more tenant connections opened than mocked")
		conn := queue[opened]
		opened++
		return conn, nil
	}
	provisioner := NewProvisionerWithOpener(cfg, open, log)
	router := NewRouterWithOpener(registry, cfg, open, log)
	svc := NewServiceWithParts(registry, provisioner, NewSeeder(log), NewSync(log), router, cfg, log)
	return svc, registryMock, mocks
}

// companyDefaultsRows satisfies the RETURNING clause gorm adds for the
// Company columns that carry database defaults.
func companyDefaultsRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"database_host", "database_port", "database_user", "active"}).
		AddRow("localhost", 5432, "postgres", true)
}

func userDefaultsRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"role", "active"}).
		AddRow("admin", true)
}

func TestProvisionTenantValidatesBeforeAnyDatabaseCall(t *testing.T) {
	svc, registryMock, _ := newTestService(t, nil, 0)

	var vErr *ValidationError
	for _, mutate := range []func(*SetupRequest){
		func(r *SetupRequest) { r.CompanyName = "" },
		func(r *SetupRequest) { r.DatabaseName = "" },
		func(r *SetupRequest) { r.DatabasePass = "" },
		func(r *SetupRequest) { r.AdminName = "" },
		func(r *SetupRequest) { r.AdminEmail = "" },
		func(r *SetupRequest) { r.AdminPassword = "" },
	} {
		req := validSetupRequest()
		mutate(&req)
		_, err := svc.ProvisionTenant(context.Background(), req)
		require.Error(t, err)
		assert.ErrorAs(t, err, &vErr)
	}

	req := validSetupRequest()
	req.DatabaseName = "Not A Valid Name"
	_, err := svc.ProvisionTenant(context.Background(), req)
	assert.ErrorIs(t, err, ErrInvalidDatabaseName)

	// No registry traffic at all for rejected requests
	assert.NoError(t, registryMock.ExpectationsWereMet())
}

func TestProvisionTenantRollsBackCompanyOnProvisioningFailure(t *testing.T) {
	openErr := errors.New("connection refused")
	svc, registryMock, _ := newTestService(t, openErr, 0)

	registryMock.ExpectQuery(`INSERT INTO "companies"`).
		WillReturnRows(companyDefaultsRows())
	// Compensating delete of the just-created Company row
	registryMock.ExpectExec(`DELETE FROM "companies"`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	_, err := svc.ProvisionTenant(context.Background(), validSetupRequest())
	require.Error(t, err)
	assert.ErrorIs(t, err, openErr)
	assert.NoError(t, registryMock.ExpectationsWereMet())
}

func TestProvisionTenantDoubleFaultLeavesOrphanVisible(t *testing.T) {
	openErr := errors.New("connection refused")
	svc, registryMock, _ := newTestService(t, openErr, 0)

	registryMock.ExpectQuery(`INSERT INTO "companies"`).
		WillReturnRows(companyDefaultsRows())
	registryMock.ExpectExec(`DELETE FROM "companies"`).
		WillReturnError(errors.New("registry unavailable"))

	_, err := svc.ProvisionTenant(context.Background(), validSetupRequest())
	require.Error(t, err)
	assert.ErrorIs(t, err, openErr)
	assert.Contains(t, err.Error(), "rollback also failed")
	assert.NoError(t, registryMock.ExpectationsWereMet())
}

func TestProvisionTenantHappyPath(t *testing.T) {
	svc, registryMock, mocks := newTestService(t, nil, 2)
	adminMock, tenantMock := mocks[0], mocks[1]

	registryMock.ExpectQuery(`INSERT INTO "companies"`).
		WillReturnRows(companyDefaultsRows())

	// CREATE DATABASE through the administrative endpoint, then schema
	adminMock.ExpectExec(`CREATE DATABASE "acme_db"`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	adminMock.ExpectClose()
	for range createTableStatements {
		tenantMock.ExpectExec("CREATE TABLE IF NOT EXISTS").
			WillReturnResult(sqlmock.NewResult(0, 0))
	}
	for range deferredConstraintStatements {
		tenantMock.ExpectExec("ALTER TABLE").
			WillReturnResult(sqlmock.NewResult(0, 0))
	}

	// Fresh seed
	tenantMock.ExpectQuery(`SELECT "id" FROM "ClientCompany"`).WillReturnRows(emptyIDRows())
	tenantMock.ExpectQuery(`INSERT INTO "ClientCompany"`).WillReturnRows(idRows(companyRowID))
	tenantMock.ExpectQuery(`SELECT "id" FROM "Profile"`).WillReturnRows(emptyIDRows())
	tenantMock.ExpectQuery(`INSERT INTO "Profile"`).WillReturnRows(idRows(profileRowID))
	for _, mod := range starterModules {
		tenantMock.ExpectQuery(`SELECT "id" FROM "Module"`).WillReturnRows(emptyIDRows())
		tenantMock.ExpectQuery(`INSERT INTO "Module"`).WillReturnRows(idRows(mod.Path + "-module"))
		tenantMock.ExpectQuery(`SELECT "id" FROM "Menu"`).WillReturnRows(emptyIDRows())
		tenantMock.ExpectQuery(`INSERT INTO "Menu"`).WillReturnRows(idRows(mod.Menu.Path + "-menu"))
		tenantMock.ExpectQuery(`SELECT "id" FROM "Permission"`).WillReturnRows(emptyIDRows())
		tenantMock.ExpectExec(`INSERT INTO "Permission"`).WillReturnResult(sqlmock.NewResult(0, 1))
	}

	// Admin user in the registry, then mirror sync into the tenant
	registryMock.ExpectQuery(`INSERT INTO "users"`).
		WillReturnRows(userDefaultsRows())

	tenantMock.ExpectQuery(`SELECT "id" FROM "ClientCompany"`).WillReturnRows(idRows(companyRowID))
	tenantMock.ExpectQuery(`SELECT "id" FROM "Profile"`).WillReturnRows(idRows(profileRowID))
	tenantMock.ExpectQuery(`SELECT "id" FROM "ClientUser"`).WillReturnRows(emptyIDRows())
	tenantMock.ExpectExec(`INSERT INTO "ClientUser"`).WillReturnResult(sqlmock.NewResult(0, 1))
	tenantMock.ExpectClose()

	result, err := svc.ProvisionTenant(context.Background(), validSetupRequest())
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.NotEmpty(t, result.CompanyID)
	assert.NotEmpty(t, result.AdminUserID)
	assert.Equal(t, StateMirrorSynced, result.State)
	assert.NoError(t, registryMock.ExpectationsWereMet())
	assert.NoError(t, tenantMock.ExpectationsWereMet())
}

func TestProvisionTenantSurvivesMirrorSyncFailure(t *testing.T) {
	svc, registryMock, mocks := newTestService(t, nil, 2)
	adminMock, tenantMock := mocks[0], mocks[1]

	registryMock.ExpectQuery(`INSERT INTO "companies"`).
		WillReturnRows(companyDefaultsRows())

	adminMock.ExpectExec(`CREATE DATABASE "acme_db"`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	adminMock.ExpectClose()
	for range createTableStatements {
		tenantMock.ExpectExec("CREATE TABLE IF NOT EXISTS").
			WillReturnResult(sqlmock.NewResult(0, 0))
	}
	for range deferredConstraintStatements {
		tenantMock.ExpectExec("ALTER TABLE").
			WillReturnResult(sqlmock.NewResult(0, 0))
	}

	tenantMock.ExpectQuery(`SELECT "id" FROM "ClientCompany"`).WillReturnRows(emptyIDRows())
	tenantMock.ExpectQuery(`INSERT INTO "ClientCompany"`).WillReturnRows(idRows(companyRowID))
	tenantMock.ExpectQuery(`SELECT "id" FROM "Profile"`).WillReturnRows(emptyIDRows())
	tenantMock.ExpectQuery(`INSERT INTO "Profile"`).WillReturnRows(idRows(profileRowID))
	for _, mod := range starterModules {
		tenantMock.ExpectQuery(`SELECT "id" FROM "Module"`).WillReturnRows(emptyIDRows())
		tenantMock.ExpectQuery(`INSERT INTO "Module"`).WillReturnRows(idRows(mod.Path + "-module"))
		tenantMock.ExpectQuery(`SELECT "id" FROM "Menu"`).WillReturnRows(emptyIDRows())
		tenantMock.ExpectQuery(`INSERT INTO "Menu"`).WillReturnRows(idRows(mod.Menu.Path + "-menu"))
		tenantMock.ExpectQuery(`SELECT "id" FROM "Permission"`).WillReturnRows(emptyIDRows())
		tenantMock.ExpectExec(`INSERT INTO "Permission"`).WillReturnResult(sqlmock.NewResult(0, 1))
	}

	registryMock.ExpectQuery(`INSERT INTO "users"`).
		WillReturnRows(userDefaultsRows())

	// Mirror sync blows up: the setup must still succeed, one state short
	tenantMock.ExpectQuery(`SELECT "id" FROM "ClientCompany"`).
		WillReturnError(errors.New("tenant database gone"))
	tenantMock.ExpectClose()

	result, err := svc.ProvisionTenant(context.Background(), validSetupRequest())
	require.NoError(t, err)
	assert.Equal(t, StateSeeded, result.State)
}

func TestCreateCentralUserValidation(t *testing.T) {
	svc, _, _ := newTestService(t, nil, 0)

	var vErr *ValidationError
	_, err := svc.CreateCentralUser(context.Background(), CreateUserRequest{})
	require.Error(t, err)
	assert.ErrorAs(t, err, &vErr)

	_, err = svc.CreateCentralUser(context.Background(), CreateUserRequest{
		Name: "x", Email: "x@y.z", Password: "p", CompanyID: mainCompanyID, Role: "superuser",
	})
	require.Error(t, err)
	assert.ErrorAs(t, err, &vErr)
	assert.Contains(t, err.Error(), "role")
}

func TestCreateCentralUserRejectsUnknownCompany(t *testing.T) {
	svc, registryMock, _ := newTestService(t, nil, 0)

	registryMock.ExpectQuery(`SELECT \* FROM "companies"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := svc.CreateCentralUser(context.Background(), CreateUserRequest{
		Name: "Joe", Email: "joe@acme.test", Password: "p", CompanyID: mainCompanyID,
	})
	require.Error(t, err)
	var vErr *ValidationError
	assert.ErrorAs(t, err, &vErr)
	assert.Equal(t, "company_id", vErr.Field)
}

func TestCreateCentralUserMirrorsBestEffort(t *testing.T) {
	svc, registryMock, mocks := newTestService(t, nil, 1)
	tenantMock := mocks[0]

	registryMock.ExpectQuery(`SELECT \* FROM "companies"`).
		WillReturnRows(companyRows(true))
	registryMock.ExpectQuery(`SELECT count\(\*\) FROM "users"`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	registryMock.ExpectQuery(`INSERT INTO "users"`).
		WillReturnRows(sqlmock.NewRows([]string{"role", "active"}).AddRow("user", true))

	// Best-effort mirror: the tenant side fails, the central write stands
	tenantMock.ExpectQuery(`SELECT "id" FROM "ClientCompany"`).
		WillReturnError(errors.New("tenant unreachable"))
	tenantMock.ExpectClose()

	user, err := svc.CreateCentralUser(context.Background(), CreateUserRequest{
		Name: "Joe", Email: "joe@acme.test", Password: "p", CompanyID: mainCompanyID,
	})
	require.NoError(t, err)
	assert.Equal(t, "user", user.Role)
	assert.NotEqual(t, "p", user.Password, "password must be stored hashed")
}
