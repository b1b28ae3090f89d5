package repositories

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/anonto42/photowall/backend/internal/models"
)

// RejectedRepository stores the log of submissions refused at intake
type RejectedRepository interface {
	Create(ctx context.Context, rec *models.RejectedSubmission) error
	LatestByUsername(ctx context.Context, username string) (*models.RejectedSubmission, error)
	ListRecent(ctx context.Context, skip, limit int64) ([]models.RejectedSubmission, error)
	ListOlderThan(ctx context.Context, cutoff time.Time, after *ExpiredCursor, limit int64) ([]models.RejectedSubmission, error)
	CountOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
	Delete(ctx context.Context, id primitive.ObjectID) error
}

// ExpiredCursor marks the last record a purge pass has seen. Records are
// walked in (created_at, _id) order.
type ExpiredCursor struct {
	CreatedAt time.Time
	ID        primitive.ObjectID
}

// CursorAfter returns the cursor positioned on rec.
func CursorAfter(rec models.RejectedSubmission) *ExpiredCursor {
	return &ExpiredCursor{CreatedAt: rec.CreatedAt, ID: rec.ID}
}

// Before reports whether rec sorts before or on the cursor.
func (c *ExpiredCursor) Before(rec models.RejectedSubmission) bool {
	if c == nil {
		return false
	}
	if !rec.CreatedAt.Equal(c.CreatedAt) {
		return rec.CreatedAt.Before(c.CreatedAt)
	}
	return rec.ID.Hex() <= c.ID.Hex()
}

// MongoRejectedRepository implements RejectedRepository for MongoDB
type MongoRejectedRepository struct {
	collection *mongo.Collection
}

// NewMongoRejectedRepository creates a new MongoRejectedRepository
func NewMongoRejectedRepository(db *mongo.Database) *MongoRejectedRepository {
	return &MongoRejectedRepository{collection: db.Collection("rejected_submissions")}
}

// EnsureIndexes creates the indexes used by the status lookup and the purge.
func (r *MongoRejectedRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "username", Value: 1}, {Key: "created_at", Value: -1}}},
		{Keys: bson.D{{Key: "created_at", Value: 1}}},
	})
	return err
}

func (r *MongoRejectedRepository) Create(ctx context.Context, rec *models.RejectedSubmission) error {
	rec.ID = primitive.NewObjectID()
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	_, err := r.collection.InsertOne(ctx, rec)
	return err
}

func (r *MongoRejectedRepository) LatestByUsername(ctx context.Context, username string) (*models.RejectedSubmission, error) {
	opts := options.FindOne().SetSort(bson.D{{Key: "created_at", Value: -1}})
	var rec models.RejectedSubmission
	err := r.collection.FindOne(ctx, bson.M{"username": username}, opts).Decode(&rec)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &rec, nil
}

func (r *MongoRejectedRepository) ListRecent(ctx context.Context, skip, limit int64) ([]models.RejectedSubmission, error) {
	findOptions := options.Find().SetSkip(skip).SetLimit(limit).SetSort(bson.D{{Key: "created_at", Value: -1}})
	return r.find(ctx, bson.M{}, findOptions)
}

// ListOlderThan returns records created before cutoff, oldest first,
// starting after the cursor when one is given.
func (r *MongoRejectedRepository) ListOlderThan(ctx context.Context, cutoff time.Time, after *ExpiredCursor, limit int64) ([]models.RejectedSubmission, error) {
	filter := bson.M{"created_at": bson.M{"$lt": cutoff}}
	if after != nil {
		filter = bson.M{"$and": bson.A{
			filter,
			bson.M{"$or": bson.A{
				bson.M{"created_at": bson.M{"$gt": after.CreatedAt}},
				bson.M{"created_at": after.CreatedAt, "_id": bson.M{"$gt": after.ID}},
			}},
		}}
	}
	findOptions := options.Find().SetLimit(limit).SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}})
	return r.find(ctx, filter, findOptions)
}

func (r *MongoRejectedRepository) CountOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	return r.collection.CountDocuments(ctx, bson.M{"created_at": bson.M{"$lt": cutoff}})
}

func (r *MongoRejectedRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	_, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	return err
}

func (r *MongoRejectedRepository) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]models.RejectedSubmission, error) {
	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	records := []models.RejectedSubmission{}
	if err = cursor.All(ctx, &records); err != nil {
		return nil, err
	}
	return records, nil
}
