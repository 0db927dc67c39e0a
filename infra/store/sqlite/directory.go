package sqlite

import "github.com/kilianp07/worklog/infra/store/sqlutil"

// Directory returns the vehicle directory stored next to the ledger.
func (s *Store) Directory() *sqlutil.Directory {
	return sqlutil.NewDirectory(s.db, nil, true)
}
