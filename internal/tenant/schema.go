package tenant

// The fixed tenant schema. Identifiers are quoted and case-sensitive; they
// must match the names used by the raw tenant queries exactly. Tables are
// created in dependency order and every statement is safe to reapply:
// CREATE TABLE uses IF NOT EXISTS and the deferred constraints swallow
// duplicate_object.
//
// The self-referencing foreign keys (Module.parentId, Menu.parentId) and the
// ClientUser.profileId reference are added only after both ends exist.

// TenantTables lists the six tenant tables in creation order.
var TenantTables = []string{
	"ClientCompany",
	"ClientUser",
	"Profile",
	"Module",
	"Menu",
	"Permission",
}

var createTableStatements = []string{
	`CREATE TABLE IF NOT EXISTS "ClientCompany" (
		"id" UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		"name" VARCHAR(100) NOT NULL,
		"mainId" UUID NOT NULL UNIQUE,
		"active" BOOLEAN NOT NULL DEFAULT TRUE,
		"createdAt" TIMESTAMPTZ NOT NULL DEFAULT now(),
		"updatedAt" TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS "ClientUser" (
		"id" UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		"name" VARCHAR(100) NOT NULL,
		"email" VARCHAR(100) NOT NULL UNIQUE,
		"mainId" UUID NOT NULL UNIQUE,
		"companyId" UUID NOT NULL REFERENCES "ClientCompany" ("id"),
		"profileId" UUID,
		"role" VARCHAR(20) NOT NULL DEFAULT 'user',
		"active" BOOLEAN NOT NULL DEFAULT TRUE,
		"createdAt" TIMESTAMPTZ NOT NULL DEFAULT now(),
		"updatedAt" TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS "Profile" (
		"id" UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		"name" VARCHAR(100) NOT NULL,
		"description" TEXT,
		"companyId" UUID NOT NULL REFERENCES "ClientCompany" ("id"),
		"active" BOOLEAN NOT NULL DEFAULT TRUE,
		"createdAt" TIMESTAMPTZ NOT NULL DEFAULT now(),
		"updatedAt" TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS "Module" (
		"id" UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		"name" VARCHAR(100) NOT NULL,
		"description" TEXT,
		"icon" VARCHAR(50),
		"path" VARCHAR(200),
		"order" INTEGER NOT NULL DEFAULT 0,
		"parentId" UUID,
		"companyId" UUID NOT NULL REFERENCES "ClientCompany" ("id"),
		"active" BOOLEAN NOT NULL DEFAULT TRUE,
		"createdAt" TIMESTAMPTZ NOT NULL DEFAULT now(),
		"updatedAt" TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS "Menu" (
		"id" UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		"name" VARCHAR(100) NOT NULL,
		"description" TEXT,
		"path" VARCHAR(200) NOT NULL UNIQUE,
		"icon" VARCHAR(50),
		"moduleId" UUID NOT NULL REFERENCES "Module" ("id"),
		"parentId" UUID,
		"order" INTEGER NOT NULL DEFAULT 0,
		"active" BOOLEAN NOT NULL DEFAULT TRUE,
		"createdAt" TIMESTAMPTZ NOT NULL DEFAULT now(),
		"updatedAt" TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS "Permission" (
		"id" UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		"profileId" UUID NOT NULL REFERENCES "Profile" ("id"),
		"menuId" UUID NOT NULL REFERENCES "Menu" ("id"),
		"canView" BOOLEAN NOT NULL DEFAULT FALSE,
		"canCreate" BOOLEAN NOT NULL DEFAULT FALSE,
		"canEdit" BOOLEAN NOT NULL DEFAULT FALSE,
		"canDelete" BOOLEAN NOT NULL DEFAULT FALSE,
		"createdAt" TIMESTAMPTZ NOT NULL DEFAULT now(),
		"updatedAt" TIMESTAMPTZ NOT NULL DEFAULT now(),
		UNIQUE ("profileId", "menuId")
	)`,
}

// Added after the referenced tables exist. ALTER TABLE has no IF NOT EXISTS
// for constraints, so reapplication swallows duplicate_object instead.
var deferredConstraintStatements = []string{
	`DO $$ BEGIN
		ALTER TABLE "ClientUser"
			ADD CONSTRAINT "ClientUser_profileId_fkey"
			FOREIGN KEY ("profileId") REFERENCES "Profile" ("id");
	EXCEPTION WHEN duplicate_object THEN NULL;
	END $$`,
	`DO $$ BEGIN
		ALTER TABLE "Module"
			ADD CONSTRAINT "Module_parentId_fkey"
			FOREIGN KEY ("parentId") REFERENCES "Module" ("id");
	EXCEPTION WHEN duplicate_object THEN NULL;
	END $$`,
	`DO $$ BEGIN
		ALTER TABLE "Menu"
			ADD CONSTRAINT "Menu_parentId_fkey"
			FOREIGN KEY ("parentId") REFERENCES "Menu" ("id");
	EXCEPTION WHEN duplicate_object THEN NULL;
	END $$`,
}

// SchemaStatements returns every DDL statement needed to bring a fresh
// tenant database to the fixed schema, in execution order.
func SchemaStatements() []string {
	stmts := make([]string, 0, len(createTableStatements)+len(deferredConstraintStatements))
	stmts = append(stmts, createTableStatements...)
	stmts = append(stmts, deferredConstraintStatements...)
	return stmts
}
