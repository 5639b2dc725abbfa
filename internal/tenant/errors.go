package tenant

import "errors"

// Routing errors. These must stay distinguishable: the caller needs to tell
// "unknown caller" apart from "caller has no permission".
var (
	ErrUserNotFound     = errors.New("central user not found")
	ErrCompanyNotFound  = errors.New("company not found for user")
	ErrUserInactive     = errors.New("user is deactivated")
	ErrCompanyInactive  = errors.New("company is deactivated")
)

// Provisioning errors. Both are fatal to the setup request.
var (
	ErrDatabaseExists    = errors.New("tenant database already exists")
	ErrPermissionDenied  = errors.New("server refused database creation")
	ErrInvalidDatabaseName = errors.New("invalid tenant database name")
)

// ErrMirrorCompanyMissing means the tenant database has no ClientCompany
// row for the central company yet, so a mirror sync cannot proceed. Callers
// log it and carry on; the central write still succeeds.
var ErrMirrorCompanyMissing = errors.New("mirror company not found in tenant database")

// Validation error for setup/user creation input, reported before any
// database call is made.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return "validation failed: " + e.Field + " " + e.Reason
}
