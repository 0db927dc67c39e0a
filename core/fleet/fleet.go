// Package fleet holds the vehicle and user identities the ledger refers to.
// The ledger never owns them; it only consumes ids and display data.
package fleet

import (
	"context"
	"fmt"
	"sort"
)

// Vehicle is the display identity of a fleet vehicle.
type Vehicle struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Plate string `json:"plate"`
}

// Label is the timeline label of the vehicle, "Name (Plate)".
func (v Vehicle) Label() string {
	if v.Plate == "" {
		return v.Name
	}
	return fmt.Sprintf("%s (%s)", v.Name, v.Plate)
}

// User is an actor that writes to the ledger.
type User struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Directory lists vehicles known to the fleet.
type Directory interface {
	List(ctx context.Context) ([]Vehicle, error)
	Exists(ctx context.Context, id int64) (bool, error)
}

// Registry is a Directory that also accepts new identities. The CLI uses it to
// seed local databases.
type Registry interface {
	Directory
	AddVehicle(ctx context.Context, name, plate string) (Vehicle, error)
	AddUser(ctx context.Context, name string) (User, error)
	Users(ctx context.Context) ([]User, error)
}

// SortByName orders vehicles by display name, ordinal ascending.
func SortByName(vs []Vehicle) {
	sort.SliceStable(vs, func(i, j int) bool { return vs[i].Name < vs[j].Name })
}

// Select returns the vehicles of vs whose id is in ids. A nil ids selects all.
func Select(vs []Vehicle, ids []int64) []Vehicle {
	if ids == nil {
		return vs
	}
	want := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		want[id] = struct{}{}
	}
	var out []Vehicle
	for _, v := range vs {
		if _, ok := want[v.ID]; ok {
			out = append(out, v)
		}
	}
	return out
}

// IDs returns the ids of vs in order.
func IDs(vs []Vehicle) []int64 {
	out := make([]int64, len(vs))
	for i, v := range vs {
		out[i] = v.ID
	}
	return out
}
