package permissions

import "relato/internal/models"

// CatalogEntry defines one permission in the static catalog.
type CatalogEntry struct {
	Code        string
	Name        string
	Description string
	Module      string
}

// Catalog is the full permission catalog. It is configuration: the
// registry syncs it into the store at startup and never deletes codes
// that later disappear from this list.
var Catalog = []CatalogEntry{
	// Field incident reports
	{Code: "FRI_READ", Name: "Read incident reports", Description: "View field incident reports", Module: "fri"},
	{Code: "FRI_WRITE", Name: "Write incident reports", Description: "Create and edit field incident reports", Module: "fri"},
	{Code: "FRI_DELETE", Name: "Delete incident reports", Description: "Delete field incident reports", Module: "fri"},
	{Code: "FRI_APPROVE", Name: "Approve incident reports", Description: "Sign off submitted incident reports", Module: "fri"},

	// Users
	{Code: "USERS_READ", Name: "Read users", Description: "List and view users", Module: "users"},
	{Code: "USERS_WRITE", Name: "Manage users", Description: "Create, edit and deactivate users", Module: "users"},

	// Companies
	{Code: "COMPANIES_READ", Name: "Read companies", Description: "View company records", Module: "companies"},
	{Code: "COMPANIES_WRITE", Name: "Manage companies", Description: "Create and edit company records", Module: "companies"},

	// Audit
	{Code: "AUDIT_READ", Name: "Read audit log", Description: "View the login audit log", Module: "audit"},
}

// RoleDefaults maps each role to its baseline permission codes. The map
// is configuration, not runtime-mutable state; a (re)assignment replaces
// the user's grants with exactly these codes.
var RoleDefaults = map[models.Role][]string{
	models.RoleAdmin: {
		"FRI_READ", "FRI_WRITE", "FRI_DELETE", "FRI_APPROVE",
		"USERS_READ", "USERS_WRITE",
		"COMPANIES_READ", "COMPANIES_WRITE",
		"AUDIT_READ",
	},
	models.RoleSupervisor: {
		"FRI_READ", "FRI_WRITE", "FRI_APPROVE",
		"USERS_READ",
		"COMPANIES_READ",
		"AUDIT_READ",
	},
	models.RoleOperator: {
		"FRI_READ", "FRI_WRITE",
	},
}
