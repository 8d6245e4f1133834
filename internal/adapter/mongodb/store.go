// Package mongodb implements the location store on MongoDB. Uniqueness of
// the city name is enforced by a unique index with strength-2 collation, so
// "nairobi" and "Nairobi" are the same key.
package mongodb

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/abhijith-96/city-weather/internal/config"
	"github.com/abhijith-96/city-weather/internal/domain"
)

// nameCollation makes every name lookup case-insensitive, matching the
// unique index on the collection.
var nameCollation = &options.Collation{Locale: "en", Strength: 2}

// Store persists location records in a single MongoDB collection.
// All operations are single-document atomic; the pipeline needs nothing more.
type Store struct {
	client *mongo.Client
	coll   *mongo.Collection
	clock  clockwork.Clock
	logger *slog.Logger
}

// Connect establishes the MongoDB client, pings it, and ensures the unique
// name index. Any failure is fatal for the caller.
func Connect(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Store, error) {
	ctx, cancel := context.WithTimeout(ctx, cfg.MongoConnectTimeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo ping: %w", err)
	}

	s := &Store{
		client: client,
		coll:   client.Database(cfg.MongoDatabase).Collection(cfg.MongoCollection),
		clock:  clockwork.NewRealClock(),
		logger: logger,
	}
	if err := s.ensureIndexes(ctx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo ensure indexes: %w", err)
	}
	return s, nil
}

func (s *Store) ensureIndexes(ctx context.Context) error {
	_, err := s.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "city", Value: 1}},
		Options: options.Index().SetUnique(true).SetCollation(nameCollation),
	})
	return err
}

// CheckReadiness pings the server; used by the API's readiness endpoint.
func (s *Store) CheckReadiness(ctx context.Context) error {
	return s.client.Ping(ctx, nil)
}

// Close disconnects the client.
func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

// Insert creates a new location record. Returns domain.ErrAlreadyExists when
// a record with the same case-insensitive name is present.
func (s *Store) Insert(ctx context.Context, loc domain.Location) (domain.Location, error) {
	now := s.clock.Now().UTC()
	doc := locationDocument{
		City:      loc.Name,
		Lat:       loc.Lat,
		Lon:       loc.Lon,
		CreatedAt: now,
		UpdatedAt: now,
	}

	res, err := s.coll.InsertOne(ctx, doc)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return domain.Location{}, domain.ErrAlreadyExists
		}
		return domain.Location{}, fmt.Errorf("insert location: %w", err)
	}
	if id, ok := res.InsertedID.(primitive.ObjectID); ok {
		doc.ID = id
	}
	return doc.toDomain(), nil
}

// FindByName returns the record for name, or domain.ErrNotFound.
func (s *Store) FindByName(ctx context.Context, name string) (domain.Location, error) {
	var doc locationDocument
	err := s.coll.FindOne(ctx,
		bson.D{{Key: "city", Value: domain.NormalizeName(name)}},
		options.FindOne().SetCollation(nameCollation),
	).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return domain.Location{}, domain.ErrNotFound
		}
		return domain.Location{}, fmt.Errorf("find location: %w", err)
	}
	return doc.toDomain(), nil
}

// List returns all locations sorted by name.
func (s *Store) List(ctx context.Context) ([]domain.Location, error) {
	cur, err := s.coll.Find(ctx, bson.D{}, options.Find().SetSort(bson.D{{Key: "city", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("list locations: %w", err)
	}
	defer cur.Close(ctx)

	var docs []locationDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode locations: %w", err)
	}
	locs := make([]domain.Location, len(docs))
	for i, doc := range docs {
		locs[i] = doc.toDomain()
	}
	return locs, nil
}

// UpdateCoordinates sets new coordinates on an existing record and returns
// the updated record, or domain.ErrNotFound.
func (s *Store) UpdateCoordinates(ctx context.Context, name string, lat, lon float64) (domain.Location, error) {
	var doc locationDocument
	err := s.coll.FindOneAndUpdate(ctx,
		bson.D{{Key: "city", Value: domain.NormalizeName(name)}},
		bson.D{{Key: "$set", Value: bson.D{
			{Key: "lat", Value: lat},
			{Key: "lon", Value: lon},
			{Key: "updatedAt", Value: s.clock.Now().UTC()},
		}}},
		options.FindOneAndUpdate().SetCollation(nameCollation).SetReturnDocument(options.After),
	).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return domain.Location{}, domain.ErrNotFound
		}
		return domain.Location{}, fmt.Errorf("update location: %w", err)
	}
	return doc.toDomain(), nil
}

// Delete removes the record for name, or returns domain.ErrNotFound.
func (s *Store) Delete(ctx context.Context, name string) error {
	err := s.coll.FindOneAndDelete(ctx,
		bson.D{{Key: "city", Value: domain.NormalizeName(name)}},
		options.FindOneAndDelete().SetCollation(nameCollation),
	).Err()
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return domain.ErrNotFound
		}
		return fmt.Errorf("delete location: %w", err)
	}
	return nil
}

// UpsertSnapshot replaces the cached weather snapshot on the named record.
// The second return reports whether a record matched; false means the
// location vanished between event emission and processing, and nothing was
// written.
func (s *Store) UpsertSnapshot(ctx context.Context, name string, snap domain.WeatherSnapshot) (bool, error) {
	res, err := s.coll.UpdateOne(ctx,
		bson.D{{Key: "city", Value: domain.NormalizeName(name)}},
		bson.D{{Key: "$set", Value: bson.D{
			{Key: "lastWeather", Value: newSnapshotDocument(snap)},
			{Key: "updatedAt", Value: s.clock.Now().UTC()},
		}}},
		options.Update().SetCollation(nameCollation),
	)
	if err != nil {
		return false, fmt.Errorf("upsert snapshot: %w", err)
	}
	return res.MatchedCount > 0, nil
}

// locationDocument is the BSON shape of a location record.
type locationDocument struct {
	ID          primitive.ObjectID `bson:"_id,omitempty"`
	City        string             `bson:"city"`
	Lat         float64            `bson:"lat"`
	Lon         float64            `bson:"lon"`
	LastWeather *snapshotDocument  `bson:"lastWeather,omitempty"`
	CreatedAt   time.Time          `bson:"createdAt"`
	UpdatedAt   time.Time          `bson:"updatedAt"`
}

type snapshotDocument struct {
	Temperature float64   `bson:"temperature"`
	Humidity    float64   `bson:"humidity"`
	Pressure    float64   `bson:"pressure"`
	WindSpeed   float64   `bson:"wind_speed"`
	Condition   string    `bson:"condition"`
	FetchedAt   time.Time `bson:"fetchedAt"`
}

func newSnapshotDocument(snap domain.WeatherSnapshot) snapshotDocument {
	return snapshotDocument{
		Temperature: snap.Temperature,
		Humidity:    snap.Humidity,
		Pressure:    snap.Pressure,
		WindSpeed:   snap.WindSpeed,
		Condition:   snap.Condition,
		FetchedAt:   snap.FetchedAt,
	}
}

func (d locationDocument) toDomain() domain.Location {
	loc := domain.Location{
		Name:      d.City,
		Lat:       d.Lat,
		Lon:       d.Lon,
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
	}
	if !d.ID.IsZero() {
		loc.ID = d.ID.Hex()
	}
	if d.LastWeather != nil {
		loc.LastWeather = &domain.WeatherSnapshot{
			Temperature: d.LastWeather.Temperature,
			Humidity:    d.LastWeather.Humidity,
			Pressure:    d.LastWeather.Pressure,
			WindSpeed:   d.LastWeather.WindSpeed,
			Condition:   d.LastWeather.Condition,
			FetchedAt:   d.LastWeather.FetchedAt,
		}
	}
	return loc
}
