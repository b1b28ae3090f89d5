package repositories

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/anonto42/photowall/backend/internal/models"
)

func mongoTestRepo(t *testing.T) *MongoRejectedRepository {
	t.Helper()
	uri := os.Getenv("MONGO_URI")
	if uri == "" {
		t.Skip("MONGO_URI not set, skipping MongoDB integration test")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	require.NoError(t, err)
	db := client.Database(fmt.Sprintf("photowall_test_%d", time.Now().UnixNano()))
	t.Cleanup(func() {
		db.Drop(context.Background())
		client.Disconnect(context.Background())
	})

	repo := NewMongoRejectedRepository(db)
	require.NoError(t, repo.EnsureIndexes(ctx))
	return repo
}

func TestMongoRejectedRepository(t *testing.T) {
	repo := mongoTestRepo(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Millisecond)

	old := &models.RejectedSubmission{Username: "bob", Reason: "Duplicate of submission #42 by alice", OriginalSubmissionID: 42, CreatedAt: now.Add(-100 * 24 * time.Hour)}
	fresh := &models.RejectedSubmission{Username: "bob", Reason: "Duplicate of submission #43 by carol", OriginalSubmissionID: 43, CreatedAt: now}
	require.NoError(t, repo.Create(ctx, old))
	require.NoError(t, repo.Create(ctx, fresh))

	latest, err := repo.LatestByUsername(ctx, "bob")
	require.NoError(t, err)
	assert.Equal(t, uint(43), latest.OriginalSubmissionID)

	older := &models.RejectedSubmission{Username: "dave", Reason: "Duplicate of submission #40 by alice", OriginalSubmissionID: 40, CreatedAt: now.Add(-120 * 24 * time.Hour)}
	require.NoError(t, repo.Create(ctx, older))

	cutoff := now.Add(-90 * 24 * time.Hour)
	count, err := repo.CountOlderThan(ctx, cutoff)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	expired, err := repo.ListOlderThan(ctx, cutoff, nil, 1)
	require.NoError(t, err)
	require.Len(t, expired, 1)
	assert.Equal(t, older.ID, expired[0].ID)

	expired, err = repo.ListOlderThan(ctx, cutoff, CursorAfter(expired[0]), 100)
	require.NoError(t, err)
	require.Len(t, expired, 1)
	assert.Equal(t, old.ID, expired[0].ID)
	require.NoError(t, repo.Delete(ctx, older.ID))

	require.NoError(t, repo.Delete(ctx, old.ID))
	recent, err := repo.ListRecent(ctx, 0, 10)
	require.NoError(t, err)
	assert.Len(t, recent, 1)

	_, err = repo.LatestByUsername(ctx, "nobody")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestExpiredCursor_Before(t *testing.T) {
	at := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	first := models.RejectedSubmission{ID: primitive.NewObjectID(), CreatedAt: at}
	second := models.RejectedSubmission{ID: primitive.NewObjectID(), CreatedAt: at}
	later := models.RejectedSubmission{ID: primitive.NewObjectID(), CreatedAt: at.Add(time.Second)}

	var none *ExpiredCursor
	assert.False(t, none.Before(first))

	cur := CursorAfter(first)
	assert.True(t, cur.Before(first))
	assert.False(t, cur.Before(second))
	assert.False(t, cur.Before(later))
	assert.True(t, CursorAfter(later).Before(second))
}
