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

// MegaEventStore is the mongo-backed document repository for
// mega-events.
type MegaEventStore struct {
	col   *mongo.Collection
	locks *keyedLocks
}

func NewMegaEventStore(db *mongo.Database) *MegaEventStore {
	return &MegaEventStore{
		col:   db.Collection("mega_events"),
		locks: newKeyedLocks(),
	}
}

func (s *MegaEventStore) Lock(ledgerID int) func() {
	return s.locks.Acquire(ledgerID)
}

func (s *MegaEventStore) Insert(ctx context.Context, doc *documents.MegaEventDocument) error {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()

	doc.ID = primitive.NewObjectID()
	_, err := s.col.InsertOne(ctx, doc)
	return err
}

func (s *MegaEventStore) FindByLedgerID(ctx context.Context, ledgerID int) (*documents.MegaEventDocument, error) {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()

	var doc documents.MegaEventDocument
	err := s.col.FindOne(ctx, bson.M{"ledger_id": ledgerID, "active": true}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, services.NewError(services.KindNotFound, "mega-event %d not found", ledgerID)
	}
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

func (s *MegaEventStore) Replace(ctx context.Context, doc *documents.MegaEventDocument) error {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()

	res, err := s.col.ReplaceOne(ctx, bson.M{"ledger_id": doc.LedgerID}, doc)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return services.NewError(services.KindNotFound, "mega-event %d not found", doc.LedgerID)
	}
	return nil
}

func (s *MegaEventStore) Remove(ctx context.Context, ledgerID int) error {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()

	_, err := s.col.DeleteOne(ctx, bson.M{"ledger_id": ledgerID})
	return err
}

func (s *MegaEventStore) List(ctx context.Context, filter services.MegaEventFilter) ([]documents.MegaEventDocument, error) {
	ctx, cancel := context.WithTimeout(ctx, listTimeout)
	defer cancel()

	query := bson.M{"active": true}
	if filter.PublicOnly {
		query["public"] = true
	}
	if filter.Status != "" {
		query["status"] = filter.Status
	}
	if filter.Category != "" {
		query["category"] = filter.Category
	}
	if filter.OrganizerNGOID > 0 {
		query["organizers"] = bson.M{"$elemMatch": bson.M{"ngo_id": filter.OrganizerNGOID, "active": true}}
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

	docs := []documents.MegaEventDocument{}
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	return docs, nil
}
