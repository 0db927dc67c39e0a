package ledger

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidInput reports negative hours or a single call exceeding the
	// daily cap. It is raised before any storage access.
	ErrInvalidInput = errors.New("ledger: invalid input")
	// ErrCapacityExceeded reports that the conditional write affected no row
	// because the resulting totals would break the daily cap.
	ErrCapacityExceeded = errors.New("ledger: daily capacity exceeded")
	// ErrNotFound reports a lookup against a missing entry.
	ErrNotFound = errors.New("ledger: not found")
	// ErrStorageUnavailable wraps transport and connection failures of the
	// backing store. Callers may retry with backoff.
	ErrStorageUnavailable = errors.New("ledger: storage unavailable")
)

// Unavailable wraps err so that errors.Is(err, ErrStorageUnavailable) holds
// while keeping the original cause in the chain.
func Unavailable(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrStorageUnavailable) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrStorageUnavailable, err)
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}

// IsRejection reports whether err is a business rejection (invalid input or
// capacity) rather than an infrastructure failure.
func IsRejection(err error) bool {
	return errors.Is(err, ErrInvalidInput) || errors.Is(err, ErrCapacityExceeded)
}
