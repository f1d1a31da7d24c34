package recordstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	mongoopts "go.mongodb.org/mongo-driver/mongo/options"
)

// MongoStore implements Store on a MongoDB database, one Mongo collection per
// record collection.
type MongoStore struct {
	client   *mongo.Client
	database *mongo.Database
}

// NewMongoStore connects to MongoDB and verifies the connection with a ping.
func NewMongoStore(ctx context.Context, uri, database string) (*MongoStore, error) {
	clientOpts := mongoopts.Client().
		ApplyURI(uri).
		SetConnectTimeout(10 * time.Second)

	client, err := mongo.Connect(ctx, clientOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}

	return &MongoStore{
		client:   client,
		database: client.Database(database),
	}, nil
}

// Close disconnects from MongoDB.
func (s *MongoStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

type mongoRecord struct {
	ID        string         `bson:"_id"`
	Fields    map[string]any `bson:"fields"`
	CreatedAt time.Time      `bson:"created_at"`
}

// Create stores a new record.
func (s *MongoStore) Create(ctx context.Context, collection string, fields map[string]any) (Record, error) {
	doc := mongoRecord{
		ID:        uuid.New().String(),
		Fields:    fields,
		CreatedAt: time.Now().UTC(),
	}
	if _, err := s.database.Collection(collection).InsertOne(ctx, doc); err != nil {
		return Record{}, fmt.Errorf("failed to insert record: %w", err)
	}
	return Record{ID: doc.ID, Fields: doc.Fields, CreatedAt: doc.CreatedAt}, nil
}

// Get returns one record by ID.
func (s *MongoStore) Get(ctx context.Context, collection, id string) (Record, error) {
	var doc mongoRecord
	err := s.database.Collection(collection).FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return Record{}, ErrNotFound
	}
	if err != nil {
		return Record{}, fmt.Errorf("failed to query record: %w", err)
	}
	return Record{ID: doc.ID, Fields: doc.Fields, CreatedAt: doc.CreatedAt}, nil
}

// Query returns matching records, newest first.
func (s *MongoStore) Query(ctx context.Context, collection string, filter map[string]any, limit int) ([]Record, error) {
	findOpts := mongoopts.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	if limit > 0 {
		findOpts.SetLimit(int64(limit))
	}

	cursor, err := s.database.Collection(collection).Find(ctx, fieldFilter(filter), findOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to query records: %w", err)
	}
	defer func() {
		_ = cursor.Close(ctx)
	}()

	var out []Record
	for cursor.Next(ctx) {
		var doc mongoRecord
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("failed to decode record: %w", err)
		}
		out = append(out, Record{ID: doc.ID, Fields: doc.Fields, CreatedAt: doc.CreatedAt})
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate records: %w", err)
	}
	return out, nil
}

// Update merges fields into an existing record.
func (s *MongoStore) Update(ctx context.Context, collection, id string, fields map[string]any) error {
	set := bson.M{}
	for k, v := range fields {
		set["fields."+k] = v
	}

	result, err := s.database.Collection(collection).UpdateByID(ctx, id, bson.M{"$set": set})
	if err != nil {
		return fmt.Errorf("failed to update record: %w", err)
	}
	if result.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// Count returns how many records match the filter.
func (s *MongoStore) Count(ctx context.Context, collection string, filter map[string]any) (int64, error) {
	n, err := s.database.Collection(collection).CountDocuments(ctx, fieldFilter(filter))
	if err != nil {
		return 0, fmt.Errorf("failed to count records: %w", err)
	}
	return n, nil
}

// fieldFilter rewrites a filter over record fields into a query on the nested
// fields document.
func fieldFilter(filter map[string]any) bson.M {
	query := bson.M{}
	for k, v := range filter {
		query["fields."+k] = v
	}
	return query
}
