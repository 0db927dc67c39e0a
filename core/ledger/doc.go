// Package ledger implements the work-hour ledger: one cell per (vehicle, day)
// holding accumulated active and maintenance hours.
//
// The combined hours of a cell never exceed MaxDailyHours. The check is made by
// the Store atomically with the write that applies a Delta, so concurrent
// accumulations on the same cell can never both pass against a stale total.
//
// Typical usage:
//
//	store := ledger.NewMemoryStore(dir)
//	acc := ledger.NewAccumulator(store, ledger.WithAudit(sink))
//	entry, err := acc.Accumulate(ctx, vehicleID, day, active, maintenance, actorID)
//	switch {
//	case errors.Is(err, ledger.ErrInvalidInput):
//	case errors.Is(err, ledger.ErrCapacityExceeded):
//	}
package ledger
