package tenantdb

import (
	"errors"
	"fmt"
)

// Connection errors for already-provisioned tenant databases. Both are
// transient: the failed handle is never cached, so a retry starts clean.
var (
	ErrConnectionFailed  = errors.New("could not connect to tenant database")
	ErrConnectionTimeout = errors.New("tenant database connection timed out")
)

// ProvisioningError reports a failed physical database creation or schema
// sync. The registry row may survive the failure; Step says how far
// provisioning got.
type ProvisioningError struct {
	DatabaseName string
	Step         string
	Err          error
}

func (e *ProvisioningError) Error() string {
	return fmt.Sprintf("provisioning %s failed at %s: %v", e.DatabaseName, e.Step, e.Err)
}

func (e *ProvisioningError) Unwrap() error { return e.Err }
