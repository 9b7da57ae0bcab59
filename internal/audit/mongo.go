package audit

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoRecorder stores reports in the "analysis_reports" collection.
type MongoRecorder struct {
	col *mongo.Collection
}

func NewMongoRecorder(db *mongo.Database) *MongoRecorder {
	return &MongoRecorder{col: db.Collection("analysis_reports")}
}

func (m *MongoRecorder) Record(ctx context.Context, r *Report) error {
	if r.ID == "" {
		r.ID = primitive.NewObjectID().Hex()
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now().UTC()
	}
	filter := bson.M{"_id": r.ID}
	opts := options.Update().SetUpsert(true)
	if _, err := m.col.UpdateOne(ctx, filter, bson.M{"$set": r}, opts); err != nil {
		return fmt.Errorf("save analysis report: %w", err)
	}
	return nil
}

func (m *MongoRecorder) Recent(ctx context.Context, limit int) ([]*Report, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}
	cur, err := m.col.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	out := []*Report{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("load analysis reports: %w", err)
	}
	return out, nil
}
