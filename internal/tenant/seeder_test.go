package tenant

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const (
	mainCompanyID = "6f1c1a1e-0000-4000-8000-000000000001"
	companyRowID  = "aaaaaaaa-0000-4000-8000-000000000001"
	profileRowID  = "bbbbbbbb-0000-4000-8000-000000000001"
)

func emptyIDRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id"})
}

func idRows(id string) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id"}).AddRow(id)
}

func TestSeedFreshTenant(t *testing.T) {
	conn, mock := newMockConn(t)
	seeder := NewSeeder(zap.NewNop())

	// Mirror company: absent, then created
	mock.ExpectQuery(`SELECT "id" FROM "ClientCompany" WHERE "mainId"`).
		WithArgs(mainCompanyID).
		WillReturnRows(emptyIDRows())
	mock.ExpectQuery(`INSERT INTO "ClientCompany"`).
		WithArgs("Acme", mainCompanyID).
		WillReturnRows(idRows(companyRowID))

	// Administrator profile: absent, then created
	mock.ExpectQuery(`SELECT "id" FROM "Profile" WHERE "name"`).
		WithArgs(AdminProfileName).
		WillReturnRows(emptyIDRows())
	mock.ExpectQuery(`INSERT INTO "Profile"`).
		WillReturnRows(idRows(profileRowID))

	// Four starter modules, one menu and one permission each
	for _, mod := range starterModules {
		mock.ExpectQuery(`SELECT "id" FROM "Module" WHERE "name"`).
			WithArgs(mod.Name, companyRowID).
			WillReturnRows(emptyIDRows())
		mock.ExpectQuery(`INSERT INTO "Module"`).
			WillReturnRows(idRows(mod.Path + "-module"))

		mock.ExpectQuery(`SELECT "id" FROM "Menu" WHERE "path"`).
			WithArgs(mod.Menu.Path).
			WillReturnRows(emptyIDRows())
		mock.ExpectQuery(`INSERT INTO "Menu"`).
			WillReturnRows(idRows(mod.Menu.Path + "-menu"))

		mock.ExpectQuery(`SELECT "id" FROM "Permission" WHERE "profileId"`).
			WithArgs(profileRowID, mod.Menu.Path+"-menu").
			WillReturnRows(emptyIDRows())
		mock.ExpectExec(`INSERT INTO "Permission"`).
			WillReturnResult(sqlmock.NewResult(0, 1))
	}

	require.NoError(t, seeder.Seed(context.Background(), conn, mainCompanyID, "Acme"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSeedIsIdempotent(t *testing.T) {
	conn, mock := newMockConn(t)
	seeder := NewSeeder(zap.NewNop())

	// Everything already exists: the second run must be query-only, no
	// inserts at all.
	mock.ExpectQuery(`SELECT "id" FROM "ClientCompany" WHERE "mainId"`).
		WillReturnRows(idRows(companyRowID))
	mock.ExpectQuery(`SELECT "id" FROM "Profile" WHERE "name"`).
		WillReturnRows(idRows(profileRowID))

	for _, mod := range starterModules {
		mock.ExpectQuery(`SELECT "id" FROM "Module" WHERE "name"`).
			WillReturnRows(idRows(mod.Path + "-module"))
		mock.ExpectQuery(`SELECT "id" FROM "Menu" WHERE "path"`).
			WillReturnRows(idRows(mod.Menu.Path + "-menu"))
		mock.ExpectQuery(`SELECT "id" FROM "Permission" WHERE "profileId"`).
			WillReturnRows(idRows("existing-permission"))
	}

	require.NoError(t, seeder.Seed(context.Background(), conn, mainCompanyID, "Acme"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStarterCatalogShape(t *testing.T) {
	require.Len(t, starterModules, 4)
	names := make([]string, 0, len(starterModules))
	for i, mod := range starterModules {
		assert.Equal(t, i+1, mod.Order)
		assert.NotEmpty(t, mod.Menu.Path)
		names = append(names, mod.Name)
	}
	assert.Equal(t, []string{"Dashboard", "Users", "Profiles", "Settings"}, names)
}
