// Package mongo persists the ledger in MongoDB. Each cell is one document;
// the cap check rides on a single-document findAndModify so it is atomic
// with the write. Hours are stored as integer hundredths.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"

	"github.com/kilianp07/worklog/core/ledger"
)

const (
	workLogs = "work_logs"
	vehicles = "vehicles"
	users    = "users"
	counters = "counters"
	capCenti = 2400
)

type cellDoc struct {
	ID          int64      `bson:"_id"`
	VehicleID   int64      `bson:"vehicle_id"`
	WorkDate    string     `bson:"work_date"`
	Active      int64      `bson:"active_centi"`
	Maintenance int64      `bson:"maintenance_centi"`
	CreatedBy   int64      `bson:"created_by"`
	CreatedAt   time.Time  `bson:"created_at"`
	UpdatedBy   *int64     `bson:"updated_by,omitempty"`
	UpdatedAt   *time.Time `bson:"updated_at,omitempty"`
}

func (d cellDoc) entry() ledger.Entry {
	day, _ := ledger.ParseDay(d.WorkDate)
	e := ledger.Entry{
		ID:               d.ID,
		VehicleID:        d.VehicleID,
		WorkDate:         day,
		ActiveHours:      ledger.FromCenti(d.Active),
		MaintenanceHours: ledger.FromCenti(d.Maintenance),
		CreatedBy:        d.CreatedBy,
		CreatedAt:        d.CreatedAt.UTC(),
		UpdatedBy:        d.UpdatedBy,
	}
	if d.UpdatedAt != nil {
		t := d.UpdatedAt.UTC()
		e.UpdatedAt = &t
	}
	return e
}

// Store implements ledger.Store on MongoDB.
type Store struct {
	client *mongo.Client
	db     *mongo.Database
	owned  bool
}

// Open connects to uri, selects database and ensures indexes.
func Open(ctx context.Context, uri, database string) (*Store, error) {
	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		return nil, err
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, classify(err)
	}
	s := &Store{client: client, db: client.Database(database), owned: true}
	if err := s.Migrate(ctx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	return s, nil
}

// New wraps an existing database handle. Close leaves the client open.
func New(db *mongo.Database) *Store { return &Store{client: db.Client(), db: db} }

// Migrate creates the unique (vehicle, day) index.
func (s *Store) Migrate(ctx context.Context) error {
	_, err := s.db.Collection(workLogs).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "vehicle_id", Value: 1}, {Key: "work_date", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uq_vehicle_day"),
		},
		{Keys: bson.D{{Key: "work_date", Value: 1}}},
	})
	if err != nil {
		return fmt.Errorf("mongo indexes: %w", classify(err))
	}
	return nil
}

func classify(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, mongo.ErrNoDocuments):
		return ledger.ErrNotFound
	case mongo.IsNetworkError(err), mongo.IsTimeout(err),
		errors.Is(err, mongo.ErrClientDisconnected),
		errors.Is(err, context.DeadlineExceeded):
		return ledger.Unavailable(err)
	}
	return err
}

func (s *Store) logs() *mongo.Collection { return s.db.Collection(workLogs) }

func (s *Store) findOne(ctx context.Context, filter bson.M) (ledger.Entry, error) {
	var doc cellDoc
	if err := s.logs().FindOne(ctx, filter).Decode(&doc); err != nil {
		return ledger.Entry{}, classify(err)
	}
	return doc.entry(), nil
}

func (s *Store) Get(ctx context.Context, id int64) (ledger.Entry, error) {
	return s.findOne(ctx, bson.M{"_id": id})
}

func (s *Store) GetByVehicleAndDay(ctx context.Context, vehicleID int64, day time.Time) (ledger.Entry, error) {
	return s.findOne(ctx, bson.M{"vehicle_id": vehicleID, "work_date": dateKey(day)})
}

func dateKey(t time.Time) string { return ledger.Day(t).Format(ledger.DateLayout) }

func rangeFilter(r ledger.DateRange) bson.M {
	return bson.M{"$gte": dateKey(r.Start), "$lt": dateKey(r.End)}
}

func (s *Store) find(ctx context.Context, filter bson.M, sort bson.D) ([]cellDoc, error) {
	cur, err := s.logs().Find(ctx, filter, options.Find().SetSort(sort))
	if err != nil {
		return nil, classify(err)
	}
	var docs []cellDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, classify(err)
	}
	return docs, nil
}

func (s *Store) ScanByVehicle(ctx context.Context, vehicleID int64, r ledger.DateRange) ([]ledger.Entry, error) {
	docs, err := s.find(ctx,
		bson.M{"vehicle_id": vehicleID, "work_date": rangeFilter(r)},
		bson.D{{Key: "work_date", Value: -1}})
	if err != nil {
		return nil, err
	}
	out := make([]ledger.Entry, len(docs))
	for i, d := range docs {
		out[i] = d.entry()
	}
	return out, nil
}

func (s *Store) ScanByVehicles(ctx context.Context, vehicleIDs []int64, r ledger.DateRange) ([]ledger.Row, error) {
	if len(vehicleIDs) == 0 {
		return nil, nil
	}
	docs, err := s.find(ctx,
		bson.M{"vehicle_id": bson.M{"$in": vehicleIDs}, "work_date": rangeFilter(r)},
		bson.D{{Key: "vehicle_id", Value: 1}, {Key: "work_date", Value: 1}})
	if err != nil {
		return nil, err
	}
	dir := s.Directory()
	names, err := dir.vehicleIndex(ctx, vehicleIDs)
	if err != nil {
		return nil, err
	}
	creators := make([]int64, 0, len(docs))
	for _, d := range docs {
		creators = append(creators, d.CreatedBy)
	}
	userNames, err := dir.userIndex(ctx, creators)
	if err != nil {
		return nil, err
	}
	out := make([]ledger.Row, len(docs))
	for i, d := range docs {
		e := d.entry()
		v := names[d.VehicleID]
		out[i] = ledger.Row{
			VehicleID:        e.VehicleID,
			VehicleName:      v.Name,
			Plate:            v.Plate,
			WorkDate:         e.WorkDate,
			ActiveHours:      e.ActiveHours,
			MaintenanceHours: e.MaintenanceHours,
			CreatedByName:    userNames[d.CreatedBy],
		}
	}
	return out, nil
}

func (s *Store) Apply(ctx context.Context, d ledger.Delta) (ledger.Applied, error) {
	return ledger.ApplyConditional(ctx, s, d)
}

// UpdateCell increments the document when the $expr guard holds on the
// current document.
func (s *Store) UpdateCell(ctx context.Context, d ledger.Delta) (ledger.Entry, bool, error) {
	da, dm := ledger.Centi(d.Active), ledger.Centi(d.Maintenance)
	filter := bson.M{
		"vehicle_id": d.VehicleID,
		"work_date":  dateKey(d.Day),
		"$expr": bson.M{"$and": bson.A{
			bson.M{"$gte": bson.A{bson.M{"$add": bson.A{"$active_centi", da}}, 0}},
			bson.M{"$gte": bson.A{bson.M{"$add": bson.A{"$maintenance_centi", dm}}, 0}},
			bson.M{"$lte": bson.A{bson.M{"$add": bson.A{"$active_centi", "$maintenance_centi", da + dm}}, capCenti}},
		}},
	}
	update := bson.M{
		"$inc": bson.M{"active_centi": da, "maintenance_centi": dm},
		"$set": bson.M{"updated_by": d.Actor, "updated_at": d.At.UTC()},
	}
	var doc cellDoc
	err := s.logs().FindOneAndUpdate(ctx, filter, update,
		options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return ledger.Entry{}, false, nil
	}
	if err != nil {
		return ledger.Entry{}, false, classify(err)
	}
	return doc.entry(), true, nil
}

// InsertCell creates the document; the unique index rejects a second cell.
func (s *Store) InsertCell(ctx context.Context, d ledger.Delta) (ledger.Entry, bool, error) {
	if !ledger.Fits(d.Active, d.Maintenance) {
		return ledger.Entry{}, false, nil
	}
	id, err := s.nextID(ctx, workLogs)
	if err != nil {
		return ledger.Entry{}, false, err
	}
	doc := cellDoc{
		ID:          id,
		VehicleID:   d.VehicleID,
		WorkDate:    dateKey(d.Day),
		Active:      ledger.Centi(d.Active),
		Maintenance: ledger.Centi(d.Maintenance),
		CreatedBy:   d.Actor,
		CreatedAt:   d.At.UTC().Truncate(time.Millisecond),
	}
	if _, err := s.logs().InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ledger.Entry{}, false, nil
		}
		return ledger.Entry{}, false, classify(err)
	}
	return doc.entry(), true, nil
}

// nextID hands out sequential integer ids per collection.
func (s *Store) nextID(ctx context.Context, name string) (int64, error) {
	var c struct {
		Seq int64 `bson:"seq"`
	}
	err := s.db.Collection(counters).FindOneAndUpdate(ctx,
		bson.M{"_id": name},
		bson.M{"$inc": bson.M{"seq": int64(1)}},
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	).Decode(&c)
	if err != nil {
		return 0, classify(err)
	}
	return c.Seq, nil
}

func (s *Store) Delete(ctx context.Context, id int64) (ledger.Entry, bool, error) {
	var doc cellDoc
	err := s.logs().FindOneAndDelete(ctx, bson.M{"_id": id}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return ledger.Entry{}, false, nil
	}
	if err != nil {
		return ledger.Entry{}, false, classify(err)
	}
	return doc.entry(), true, nil
}

func (s *Store) Ping(ctx context.Context) error {
	return classify(s.client.Ping(ctx, readpref.Primary()))
}

func (s *Store) Close() error {
	if !s.owned {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}
