package ledger

import (
	"context"
	"errors"
	"sync"
)

// Serialize wraps a store whose Apply is not atomic per cell. Every Apply on
// the same (vehicle, day) runs in an exclusive section; different cells do not
// contend. The section is released on every exit path.
func Serialize(s Store) Store {
	return &serialStore{Store: s, locks: map[cellKey]*cellLock{}}
}

type cellLock struct {
	mu   sync.Mutex
	refs int
}

type serialStore struct {
	Store
	mu    sync.Mutex
	locks map[cellKey]*cellLock
}

func (s *serialStore) acquire(key cellKey) *cellLock {
	s.mu.Lock()
	l, ok := s.locks[key]
	if !ok {
		l = &cellLock{}
		s.locks[key] = l
	}
	l.refs++
	s.mu.Unlock()
	l.mu.Lock()
	return l
}

func (s *serialStore) release(key cellKey, l *cellLock) {
	l.mu.Unlock()
	s.mu.Lock()
	l.refs--
	if l.refs == 0 {
		delete(s.locks, key)
	}
	s.mu.Unlock()
}

func (s *serialStore) Apply(ctx context.Context, d Delta) (Applied, error) {
	key := cellKey{d.VehicleID, Day(d.Day)}
	l := s.acquire(key)
	defer s.release(key, l)
	return s.Store.Apply(ctx, d)
}

// Delete takes the cell section too so a removal cannot interleave with an
// Apply on the same cell.
func (s *serialStore) Delete(ctx context.Context, id int64) (Entry, bool, error) {
	e, err := s.Store.Get(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Entry{}, false, nil
		}
		return Entry{}, false, err
	}
	key := cellKey{e.VehicleID, Day(e.WorkDate)}
	l := s.acquire(key)
	defer s.release(key, l)
	return s.Store.Delete(ctx, id)
}
