package mongo

import (
	"context"
	"fmt"
	"strings"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/kilianp07/worklog/core/fleet"
)

type vehicleDoc struct {
	ID    int64  `bson:"_id"`
	Name  string `bson:"name"`
	Plate string `bson:"plate"`
}

type userDoc struct {
	ID   int64  `bson:"_id"`
	Name string `bson:"name"`
}

// Directory is a fleet.Registry over the vehicles and users collections.
type Directory struct {
	s *Store
}

func (s *Store) Directory() *Directory { return &Directory{s: s} }

func (d *Directory) List(ctx context.Context) ([]fleet.Vehicle, error) {
	cur, err := d.s.db.Collection(vehicles).Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "name", Value: 1}}))
	if err != nil {
		return nil, classify(err)
	}
	var docs []vehicleDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, classify(err)
	}
	out := make([]fleet.Vehicle, len(docs))
	for i, v := range docs {
		out[i] = fleet.Vehicle{ID: v.ID, Name: v.Name, Plate: v.Plate}
	}
	fleet.SortByName(out)
	return out, nil
}

func (d *Directory) Exists(ctx context.Context, id int64) (bool, error) {
	n, err := d.s.db.Collection(vehicles).CountDocuments(ctx, bson.M{"_id": id})
	if err != nil {
		return false, classify(err)
	}
	return n > 0, nil
}

func (d *Directory) AddVehicle(ctx context.Context, name, plate string) (fleet.Vehicle, error) {
	name, plate = strings.TrimSpace(name), strings.TrimSpace(plate)
	if name == "" {
		return fleet.Vehicle{}, fmt.Errorf("fleet: vehicle name required")
	}
	id, err := d.s.nextID(ctx, vehicles)
	if err != nil {
		return fleet.Vehicle{}, err
	}
	if _, err := d.s.db.Collection(vehicles).InsertOne(ctx, vehicleDoc{ID: id, Name: name, Plate: plate}); err != nil {
		return fleet.Vehicle{}, classify(err)
	}
	return fleet.Vehicle{ID: id, Name: name, Plate: plate}, nil
}

func (d *Directory) AddUser(ctx context.Context, name string) (fleet.User, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return fleet.User{}, fmt.Errorf("fleet: user name required")
	}
	id, err := d.s.nextID(ctx, users)
	if err != nil {
		return fleet.User{}, err
	}
	if _, err := d.s.db.Collection(users).InsertOne(ctx, userDoc{ID: id, Name: name}); err != nil {
		return fleet.User{}, classify(err)
	}
	return fleet.User{ID: id, Name: name}, nil
}

func (d *Directory) Users(ctx context.Context) ([]fleet.User, error) {
	cur, err := d.s.db.Collection(users).Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, classify(err)
	}
	var docs []userDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, classify(err)
	}
	out := make([]fleet.User, len(docs))
	for i, u := range docs {
		out[i] = fleet.User{ID: u.ID, Name: u.Name}
	}
	return out, nil
}

func (d *Directory) vehicleIndex(ctx context.Context, ids []int64) (map[int64]vehicleDoc, error) {
	var docs []vehicleDoc
	if err := findIn(ctx, d.s.db.Collection(vehicles), ids, &docs); err != nil {
		return nil, err
	}
	out := make(map[int64]vehicleDoc, len(docs))
	for _, v := range docs {
		out[v.ID] = v
	}
	return out, nil
}

func (d *Directory) userIndex(ctx context.Context, ids []int64) (map[int64]string, error) {
	var docs []userDoc
	if err := findIn(ctx, d.s.db.Collection(users), ids, &docs); err != nil {
		return nil, err
	}
	out := make(map[int64]string, len(docs))
	for _, u := range docs {
		out[u.ID] = u.Name
	}
	return out, nil
}

func findIn(ctx context.Context, c *mongo.Collection, ids []int64, out any) error {
	if len(ids) == 0 {
		return nil
	}
	cur, err := c.Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return classify(err)
	}
	return classify(cur.All(ctx, out))
}
