package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/secureblog/secureblog/backend/go-services/internal/document"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoRepo stores documents, revisions and integer id sequences in MongoDB.
// A unique index on (documentId, version) backs the ledger's per-document lock.
type MongoRepo struct {
	docs      *mongo.Collection
	revisions *mongo.Collection
	counters  *mongo.Collection
}

// NewMongoRepo uses the "documents", "revisions" and "counters" collections of db.
func NewMongoRepo(ctx context.Context, db *mongo.Database) (*MongoRepo, error) {
	m := &MongoRepo{
		docs:      db.Collection("documents"),
		revisions: db.Collection("revisions"),
		counters:  db.Collection("counters"),
	}
	_, err := m.revisions.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "documentId", Value: 1}, {Key: "version", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return nil, fmt.Errorf("revision index: %w", err)
	}
	_, err = m.docs.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "ownerId", Value: 1}, {Key: "createdAt", Value: -1}},
	})
	if err != nil {
		return nil, fmt.Errorf("document index: %w", err)
	}
	return m, nil
}

// nextID atomically increments and returns the named sequence.
func (m *MongoRepo) nextID(ctx context.Context, name string) (int64, error) {
	var out struct {
		Seq int64 `bson:"seq"`
	}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)
	err := m.counters.FindOneAndUpdate(ctx, bson.M{"_id": name}, bson.M{"$inc": bson.M{"seq": 1}}, opts).Decode(&out)
	if err != nil {
		return 0, fmt.Errorf("next %s id: %w", name, err)
	}
	return out.Seq, nil
}

func (m *MongoRepo) CreateDocument(ctx context.Context, doc *document.Document) (int64, error) {
	id, err := m.nextID(ctx, "documents")
	if err != nil {
		return 0, err
	}
	doc.ID = id
	doc.CreatedAt = time.Now().UTC()
	doc.UpdatedAt = doc.CreatedAt
	if _, err := m.docs.InsertOne(ctx, doc); err != nil {
		return 0, fmt.Errorf("insert document: %w", err)
	}
	return id, nil
}

func (m *MongoRepo) GetDocument(ctx context.Context, id int64) (*document.Document, error) {
	var d document.Document
	if err := m.docs.FindOne(ctx, bson.M{"_id": id}).Decode(&d); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, document.ErrNotFound
		}
		return nil, err
	}
	return &d, nil
}

func (m *MongoRepo) ListDocuments(ctx context.Context, owner string) ([]*document.Document, error) {
	filter := bson.M{}
	if owner != "" {
		filter["ownerId"] = owner
	}
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}})
	cur, err := m.docs.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	out := []*document.Document{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// DeleteDocument removes the document, then its revisions.
func (m *MongoRepo) DeleteDocument(ctx context.Context, id int64) error {
	res, err := m.docs.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return document.ErrNotFound
	}
	if _, err := m.revisions.DeleteMany(ctx, bson.M{"documentId": id}); err != nil {
		return fmt.Errorf("delete revisions of %d: %w", id, err)
	}
	return nil
}

func (m *MongoRepo) Corpus(ctx context.Context, excludeID int64) ([]document.CorpusEntry, error) {
	filter := bson.M{}
	if excludeID > 0 {
		filter["_id"] = bson.M{"$ne": excludeID}
	}
	opts := options.Find().
		SetProjection(bson.M{"content": 1}).
		SetSort(bson.D{{Key: "_id", Value: 1}})
	cur, err := m.docs.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	out := []document.CorpusEntry{}
	for cur.Next(ctx) {
		var row struct {
			ID      int64  `bson:"_id"`
			Content string `bson:"content"`
		}
		if err := cur.Decode(&row); err != nil {
			return nil, err
		}
		out = append(out, document.CorpusEntry{DocumentID: row.ID, Content: row.Content})
	}
	return out, cur.Err()
}

func (m *MongoRepo) MaxVersion(ctx context.Context, docID int64) (int, error) {
	var r document.Revision
	opts := options.FindOne().SetSort(bson.D{{Key: "version", Value: -1}})
	err := m.revisions.FindOne(ctx, bson.M{"documentId": docID}, opts).Decode(&r)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return 0, nil
		}
		return 0, err
	}
	return r.Version, nil
}

func (m *MongoRepo) GetRevision(ctx context.Context, id int64) (*document.Revision, error) {
	var r document.Revision
	if err := m.revisions.FindOne(ctx, bson.M{"_id": id}).Decode(&r); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, document.ErrNotFound
		}
		return nil, err
	}
	return &r, nil
}

func (m *MongoRepo) ListRevisions(ctx context.Context, docID int64) ([]*document.Revision, error) {
	opts := options.Find().SetSort(bson.D{{Key: "version", Value: -1}})
	cur, err := m.revisions.Find(ctx, bson.M{"documentId": docID}, opts)
	if err != nil {
		return nil, err
	}
	out := []*document.Revision{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// AppendRevision inserts rev and updates the owning document's content. If the
// document update fails the inserted revision is removed again.
func (m *MongoRepo) AppendRevision(ctx context.Context, rev *document.Revision) error {
	if _, err := m.GetDocument(ctx, rev.DocumentID); err != nil {
		return err
	}
	id, err := m.nextID(ctx, "revisions")
	if err != nil {
		return err
	}
	rev.ID = id
	if rev.CreatedAt.IsZero() {
		rev.CreatedAt = time.Now().UTC()
	}
	if _, err := m.revisions.InsertOne(ctx, rev); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return document.ErrVersionConflict
		}
		return fmt.Errorf("insert revision: %w", err)
	}
	res, err := m.docs.UpdateOne(ctx, bson.M{"_id": rev.DocumentID},
		bson.M{"$set": bson.M{"content": rev.Content, "updatedAt": rev.CreatedAt}})
	if err == nil && res.MatchedCount == 0 {
		err = document.ErrNotFound
	}
	if err != nil {
		_, _ = m.revisions.DeleteOne(ctx, bson.M{"_id": rev.ID})
		return fmt.Errorf("update document content: %w", err)
	}
	return nil
}
