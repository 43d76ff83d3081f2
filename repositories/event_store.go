package repositories

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"unidos-api/documents"
	"unidos-api/services"
)

const (
	writeTimeout = 5 * time.Second
	listTimeout  = 10 * time.Second

	defaultPageSize = 20
	maxPageSize     = 100
)

// EventStore is the mongo-backed document repository for events.
type EventStore struct {
	col   *mongo.Collection
	locks *keyedLocks
}

func NewEventStore(db *mongo.Database) *EventStore {
	return &EventStore{
		col:   db.Collection("events"),
		locks: newKeyedLocks(),
	}
}

func (s *EventStore) Lock(ledgerID int) func() {
	return s.locks.Acquire(ledgerID)
}

func (s *EventStore) Insert(ctx context.Context, doc *documents.EventDocument) error {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()

	doc.ID = primitive.NewObjectID()
	_, err := s.col.InsertOne(ctx, doc)
	return err
}

func (s *EventStore) FindByLedgerID(ctx context.Context, ledgerID int) (*documents.EventDocument, error) {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()

	var doc documents.EventDocument
	err := s.col.FindOne(ctx, bson.M{"ledger_id": ledgerID, "active": true}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, services.NewError(services.KindNotFound, "event %d not found", ledgerID)
	}
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

func (s *EventStore) Replace(ctx context.Context, doc *documents.EventDocument) error {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()

	res, err := s.col.ReplaceOne(ctx, bson.M{"ledger_id": doc.LedgerID}, doc)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return services.NewError(services.KindNotFound, "event %d not found", doc.LedgerID)
	}
	return nil
}

func (s *EventStore) Remove(ctx context.Context, ledgerID int) error {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()

	_, err := s.col.DeleteOne(ctx, bson.M{"ledger_id": ledgerID})
	return err
}

func (s *EventStore) List(ctx context.Context, filter services.EventFilter) ([]documents.EventDocument, error) {
	ctx, cancel := context.WithTimeout(ctx, listTimeout)
	defer cancel()

	query := bson.M{"active": true}
	if filter.PublicOnly {
		query["public"] = true
	}
	if filter.NGOID > 0 {
		query["ngo_id"] = filter.NGOID
	}
	if filter.Status != "" {
		query["status"] = filter.Status
	}
	if filter.EventType != "" {
		query["event_type"] = filter.EventType
	}
	if filter.Category != "" {
		query["category"] = filter.Category
	}
	if filter.Search != "" {
		query["title"] = bson.M{"$regex": primitive.Regex{Pattern: filter.Search, Options: "i"}}
	}
	if filter.UpcomingOnly {
		query["start_date"] = bson.M{"$gt": time.Now()}
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size < 1 {
		size = defaultPageSize
	}
	if size > maxPageSize {
		size = maxPageSize
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetSkip(int64((page - 1) * size)).
		SetLimit(int64(size))

	cur, err := s.col.Find(ctx, query, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	docs := []documents.EventDocument{}
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	return docs, nil
}

// CountByStatus groups an NGO's events by lifecycle status.
func (s *EventStore) CountByStatus(ctx context.Context, ngoID int) (map[string]int, error) {
	ctx, cancel := context.WithTimeout(ctx, listTimeout)
	defer cancel()

	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"ngo_id": ngoID, "active": true}}},
		{{Key: "$group", Value: bson.M{"_id": "$status", "count": bson.M{"$sum": 1}}}},
	}
	cur, err := s.col.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	counts := map[string]int{}
	for cur.Next(ctx) {
		var row struct {
			Status string `bson:"_id"`
			Count  int    `bson:"count"`
		}
		if err := cur.Decode(&row); err != nil {
			return nil, err
		}
		counts[row.Status] = row.Count
	}
	return counts, cur.Err()
}
