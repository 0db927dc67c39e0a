// Package sqlutil holds the database/sql plumbing shared by the SQL ledger
// stores: value scanners, error classification and schema migration.
package sqlutil

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"net"
	"syscall"

	"github.com/kilianp07/worklog/core/ledger"
)

// Classify maps driver errors onto the ledger taxonomy. sql.ErrNoRows becomes
// ledger.ErrNotFound; connection level failures become
// ledger.ErrStorageUnavailable. extra lets a driver flag its own transport
// errors. Anything else is returned unchanged.
func Classify(err error, extra ...func(error) bool) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return ledger.ErrNotFound
	}
	if Transient(err) {
		return ledger.Unavailable(err)
	}
	for _, f := range extra {
		if f(err) {
			return ledger.Unavailable(err)
		}
	}
	return err
}

// Transient reports connection and deadline failures common to all drivers.
func Transient(err error) bool {
	switch {
	case errors.Is(err, driver.ErrBadConn),
		errors.Is(err, sql.ErrConnDone),
		errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, context.Canceled),
		errors.Is(err, syscall.ECONNREFUSED),
		errors.Is(err, syscall.ECONNRESET):
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}
