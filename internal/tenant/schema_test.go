package tenant

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSchemaTablesInDependencyOrder(t *testing.T) {
	require.Equal(t, []string{
		"ClientCompany", "ClientUser", "Profile", "Module", "Menu", "Permission",
	}, TenantTables)

	require.Len(t, createTableStatements, len(TenantTables))
	for i, table := range TenantTables {
		assert.Contains(t, createTableStatements[i],
			fmt.Sprintf(`CREATE TABLE IF NOT EXISTS "%s"`, table))
	}
}

func TestSchemaStatementsAreReapplySafe(t *testing.T) {
	for _, stmt := range createTableStatements {
		assert.Contains(t, stmt, "IF NOT EXISTS")
	}
	// Constraints without IF NOT EXISTS support swallow duplicate_object
	for _, stmt := range deferredConstraintStatements {
		assert.Contains(t, stmt, "duplicate_object")
	}
}

func TestDeferredConstraintsComeAfterTables(t *testing.T) {
	stmts := SchemaStatements()
	require.Len(t, stmts, len(createTableStatements)+len(deferredConstraintStatements))

	// The self-references and the ClientUser -> Profile reference must not
	// appear inside any CREATE TABLE: Profile does not exist yet when
	// ClientUser is created.
	for _, stmt := range createTableStatements {
		assert.NotContains(t, stmt, `"parentId" UUID NOT NULL REFERENCES`)
		if strings.Contains(stmt, `"ClientUser"`) {
			assert.NotContains(t, stmt, `"profileId" UUID REFERENCES`)
		}
	}

	joined := strings.Join(stmts, "\n")
	assert.Contains(t, joined, `"ClientUser_profileId_fkey"`)
	assert.Contains(t, joined, `"Module_parentId_fkey"`)
	assert.Contains(t, joined, `"Menu_parentId_fkey"`)
}

func TestPermissionScopesToMenu(t *testing.T) {
	permission := createTableStatements[len(createTableStatements)-1]
	assert.Contains(t, permission, `"menuId" UUID NOT NULL REFERENCES "Menu" ("id")`)
	assert.NotContains(t, permission, "moduleId")
	assert.Contains(t, permission, `UNIQUE ("profileId", "menuId")`)
}
