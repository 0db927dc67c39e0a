package fleet

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// MemoryDirectory is an in-memory Registry. It also resolves display names for
// the in-memory ledger store.
type MemoryDirectory struct {
	mu       sync.RWMutex
	vehicles map[int64]Vehicle
	users    map[int64]User
	nextV    int64
	nextU    int64
}

func NewMemoryDirectory() *MemoryDirectory {
	return &MemoryDirectory{vehicles: map[int64]Vehicle{}, users: map[int64]User{}}
}

// Put stores v under its own id.
func (d *MemoryDirectory) Put(v Vehicle) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.vehicles[v.ID] = v
	if v.ID > d.nextV {
		d.nextV = v.ID
	}
}

// PutUser stores u under its own id.
func (d *MemoryDirectory) PutUser(u User) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.users[u.ID] = u
	if u.ID > d.nextU {
		d.nextU = u.ID
	}
}

func (d *MemoryDirectory) AddVehicle(_ context.Context, name, plate string) (Vehicle, error) {
	name, plate = strings.TrimSpace(name), strings.TrimSpace(plate)
	if name == "" {
		return Vehicle{}, fmt.Errorf("fleet: vehicle name required")
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.nextV++
	v := Vehicle{ID: d.nextV, Name: name, Plate: plate}
	d.vehicles[v.ID] = v
	return v, nil
}

func (d *MemoryDirectory) AddUser(_ context.Context, name string) (User, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return User{}, fmt.Errorf("fleet: user name required")
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.nextU++
	u := User{ID: d.nextU, Name: name}
	d.users[u.ID] = u
	return u, nil
}

func (d *MemoryDirectory) List(context.Context) ([]Vehicle, error) {
	d.mu.RLock()
	out := make([]Vehicle, 0, len(d.vehicles))
	for _, v := range d.vehicles {
		out = append(out, v)
	}
	d.mu.RUnlock()
	SortByName(out)
	return out, nil
}

func (d *MemoryDirectory) Users(context.Context) ([]User, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]User, 0, len(d.users))
	for id := int64(1); id <= d.nextU; id++ {
		if u, ok := d.users[id]; ok {
			out = append(out, u)
		}
	}
	return out, nil
}

func (d *MemoryDirectory) Exists(_ context.Context, id int64) (bool, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	_, ok := d.vehicles[id]
	return ok, nil
}

// VehicleLabel returns the name and plate of id.
func (d *MemoryDirectory) VehicleLabel(_ context.Context, id int64) (string, string, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	v, ok := d.vehicles[id]
	return v.Name, v.Plate, ok
}

// UserName returns the display name of id, or "" when unknown.
func (d *MemoryDirectory) UserName(_ context.Context, id int64) string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.users[id].Name
}
