package store

import "errors"

// Registry error taxonomy. Callers match with errors.Is and choose HTTP
// statuses without inspecting driver errors.
var (
	ErrTenantNotFound        = errors.New("tenant not found")
	ErrTenantInactive        = errors.New("tenant is deactivated")
	ErrDuplicateTenant       = errors.New("seller with this NTN/CNIC already exists")
	ErrDuplicateDatabaseName = errors.New("database name is already in use")
)
