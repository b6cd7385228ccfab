package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"quiz-grading-service/internal/analytics"
)

// EventStore persists analytics records in a MongoDB collection.
type EventStore struct {
	collection *mongo.Collection
}

func NewEventStore(db *mongo.Database, collectionName string) *EventStore {
	if collectionName == "" {
		collectionName = "events"
	}
	return &EventStore{collection: db.Collection(collectionName)}
}

// EnsureIndexes creates the indexes the queries rely on.
func (s *EventStore) EnsureIndexes(ctx context.Context) error {
	_, err := s.collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "eventType", Value: 1}}},
		{Keys: bson.D{{Key: "timestamp", Value: 1}}},
	})
	if err != nil {
		return fmt.Errorf("create event indexes: %w", err)
	}
	return nil
}

type eventDocument struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	EventType string             `bson:"eventType"`
	Timestamp time.Time          `bson:"timestamp"`
	Data      bson.M             `bson:"data"`
}

func (s *EventStore) Save(ctx context.Context, rec analytics.Record) error {
	doc := eventDocument{EventType: rec.EventType, Timestamp: rec.Timestamp.UTC(), Data: bson.M(rec.Data)}
	if _, err := s.collection.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("insert event: %w", err)
	}
	return nil
}

func (s *EventStore) All(ctx context.Context) ([]analytics.Record, error) {
	return s.find(ctx, bson.M{})
}

func (s *EventStore) ByType(ctx context.Context, eventType string) ([]analytics.Record, error) {
	return s.find(ctx, bson.M{"eventType": eventType})
}

func (s *EventStore) Between(ctx context.Context, start, end time.Time) ([]analytics.Record, error) {
	return s.find(ctx, bson.M{"timestamp": bson.M{"$gte": start.UTC(), "$lte": end.UTC()}})
}

func (s *EventStore) CountByType(ctx context.Context) (map[string]int64, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: "$eventType"},
			{Key: "count", Value: bson.D{{Key: "$sum", Value: 1}}},
		}}},
	}
	cursor, err := s.collection.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("count events: %w", err)
	}
	defer cursor.Close(ctx)

	counts := make(map[string]int64)
	for cursor.Next(ctx) {
		var row struct {
			EventType string `bson:"_id"`
			Count     int64  `bson:"count"`
		}
		if err := cursor.Decode(&row); err != nil {
			return nil, fmt.Errorf("decode event count: %w", err)
		}
		counts[row.EventType] = row.Count
	}
	return counts, cursor.Err()
}

func (s *EventStore) find(ctx context.Context, filter bson.M) ([]analytics.Record, error) {
	opts := options.Find().SetSort(bson.D{{Key: "timestamp", Value: 1}, {Key: "_id", Value: 1}})
	cursor, err := s.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("find events: %w", err)
	}
	defer cursor.Close(ctx)

	out := make([]analytics.Record, 0)
	for cursor.Next(ctx) {
		var doc eventDocument
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decode event: %w", err)
		}
		out = append(out, analytics.Record{
			ID:        doc.ID.Hex(),
			EventType: doc.EventType,
			Timestamp: doc.Timestamp,
			Data:      map[string]any(doc.Data),
		})
	}
	return out, cursor.Err()
}
