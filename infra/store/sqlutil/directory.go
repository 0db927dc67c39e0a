package sqlutil

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/kilianp07/worklog/core/fleet"
)

// Directory is a fleet.Registry over the vehicles and users tables.
type Directory struct {
	db        *sql.DB
	bind      func(string) string
	returning bool
}

// NewDirectory builds a Directory. bind rewrites placeholders for the dialect
// and returning selects INSERT ... RETURNING over LastInsertId.
func NewDirectory(db *sql.DB, bind func(string) string, returning bool) *Directory {
	if bind == nil {
		bind = func(q string) string { return q }
	}
	return &Directory{db: db, bind: bind, returning: returning}
}

func (d *Directory) List(ctx context.Context) ([]fleet.Vehicle, error) {
	rows, err := d.db.QueryContext(ctx, `SELECT id, name, plate FROM vehicles ORDER BY name, id`)
	if err != nil {
		return nil, Classify(err)
	}
	defer func() { _ = rows.Close() }()
	var out []fleet.Vehicle
	for rows.Next() {
		var v fleet.Vehicle
		if err := rows.Scan(&v.ID, &v.Name, &v.Plate); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, Classify(err)
	}
	fleet.SortByName(out)
	return out, nil
}

func (d *Directory) Exists(ctx context.Context, id int64) (bool, error) {
	var one int
	err := d.db.QueryRowContext(ctx, d.bind(`SELECT 1 FROM vehicles WHERE id = ?`), id).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, Classify(err)
	}
	return true, nil
}

func (d *Directory) AddVehicle(ctx context.Context, name, plate string) (fleet.Vehicle, error) {
	name, plate = strings.TrimSpace(name), strings.TrimSpace(plate)
	if name == "" {
		return fleet.Vehicle{}, fmt.Errorf("fleet: vehicle name required")
	}
	id, err := d.insert(ctx, `INSERT INTO vehicles (name, plate) VALUES (?, ?)`, name, plate)
	if err != nil {
		return fleet.Vehicle{}, err
	}
	return fleet.Vehicle{ID: id, Name: name, Plate: plate}, nil
}

func (d *Directory) AddUser(ctx context.Context, name string) (fleet.User, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return fleet.User{}, fmt.Errorf("fleet: user name required")
	}
	id, err := d.insert(ctx, `INSERT INTO users (name) VALUES (?)`, name)
	if err != nil {
		return fleet.User{}, err
	}
	return fleet.User{ID: id, Name: name}, nil
}

func (d *Directory) Users(ctx context.Context) ([]fleet.User, error) {
	rows, err := d.db.QueryContext(ctx, `SELECT id, name FROM users ORDER BY id`)
	if err != nil {
		return nil, Classify(err)
	}
	defer func() { _ = rows.Close() }()
	var out []fleet.User
	for rows.Next() {
		var u fleet.User
		if err := rows.Scan(&u.ID, &u.Name); err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

func (d *Directory) insert(ctx context.Context, q string, args ...any) (int64, error) {
	if d.returning {
		var id int64
		if err := d.db.QueryRowContext(ctx, d.bind(q+" RETURNING id"), args...).Scan(&id); err != nil {
			return 0, Classify(err)
		}
		return id, nil
	}
	res, err := d.db.ExecContext(ctx, d.bind(q), args...)
	if err != nil {
		return 0, Classify(err)
	}
	return res.LastInsertId()
}
