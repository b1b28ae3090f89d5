package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"gorm.io/gorm"

	"github.com/anonto42/photowall/backend/internal/cache"
	"github.com/anonto42/photowall/backend/internal/changefeed"
	"github.com/anonto42/photowall/backend/internal/models"
	"github.com/anonto42/photowall/backend/internal/repositories"
	"github.com/anonto42/photowall/backend/internal/testsupport"
	"github.com/anonto42/photowall/backend/pkg/imaging"
)

type fakeStore struct {
	mu        sync.Mutex
	objects   map[string][]byte
	uploads   int
	uploadErr error
	deleteErr error
	deleted   []string
}

func newFakeStore() *fakeStore {
	return &fakeStore{objects: map[string][]byte{}}
}

func (s *fakeStore) Upload(ctx context.Context, key string, body io.Reader, size int64, contentType string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.uploads++
	if s.uploadErr != nil {
		return s.uploadErr
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	s.objects[key] = data
	return nil
}

func (s *fakeStore) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.deleteErr != nil {
		return s.deleteErr
	}
	delete(s.objects, key)
	s.deleted = append(s.deleted, key)
	return nil
}

func (s *fakeStore) PublicURL(key string) string {
	return "https://cdn.test/" + key
}

type fakeRejected struct {
	mu        sync.Mutex
	records   []models.RejectedSubmission
	err       error
	listCalls int
}

func (r *fakeRejected) Create(ctx context.Context, rec *models.RejectedSubmission) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	rec.ID = primitive.NewObjectID()
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	r.records = append(r.records, *rec)
	return nil
}

func (r *fakeRejected) LatestByUsername(ctx context.Context, username string) (*models.RejectedSubmission, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var latest *models.RejectedSubmission
	for i := range r.records {
		rec := r.records[i]
		if rec.Username == username && (latest == nil || rec.CreatedAt.After(latest.CreatedAt)) {
			latest = &rec
		}
	}
	if latest == nil {
		return nil, repositories.ErrNotFound
	}
	return latest, nil
}

func (r *fakeRejected) ListRecent(ctx context.Context, skip, limit int64) ([]models.RejectedSubmission, error) {
	r.mu.Lock()
	out := append([]models.RejectedSubmission(nil), r.records...)
	r.mu.Unlock()
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if int(skip) >= len(out) {
		return []models.RejectedSubmission{}, nil
	}
	out = out[skip:]
	if limit > 0 && int(limit) < len(out) {
		out = out[:limit]
	}
	return out, nil
}

func (r *fakeRejected) ListOlderThan(ctx context.Context, cutoff time.Time, after *repositories.ExpiredCursor, limit int64) ([]models.RejectedSubmission, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.listCalls++
	var out []models.RejectedSubmission
	for _, rec := range r.records {
		if rec.CreatedAt.Before(cutoff) && !after.Before(rec) {
			out = append(out, rec)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID.Hex() < out[j].ID.Hex()
	})
	if limit > 0 && int(limit) < len(out) {
		out = out[:limit]
	}
	return out, nil
}

func (r *fakeRejected) CountOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, rec := range r.records {
		if rec.CreatedAt.Before(cutoff) {
			n++
		}
	}
	return n, nil
}

func (r *fakeRejected) Delete(ctx context.Context, id primitive.ObjectID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, rec := range r.records {
		if rec.ID == id {
			r.records = append(r.records[:i], r.records[i+1:]...)
			return nil
		}
	}
	return nil
}

// fakeProcessor skips real image work and returns a fixed hash.
type fakeProcessor struct {
	hash string
	err  error
}

func (p *fakeProcessor) Process(data []byte) (*imaging.Processed, error) {
	if p.err != nil {
		return nil, p.err
	}
	return &imaging.Processed{Data: data, ContentType: "image/jpeg", Width: 4, Height: 4, Hash: p.hash}, nil
}

type failingCandidates struct{}

func (failingCandidates) DuplicateCandidates(ctx context.Context) ([]models.Submission, error) {
	return nil, errors.New("connection reset")
}

type countingInvalidator struct{ calls int }

func (c *countingInvalidator) Invalidate(ctx context.Context) error {
	c.calls++
	return nil
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	for x := 0; x < 4; x++ {
		for y := 0; y < 4; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 60), G: uint8(y * 60), B: 128, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

// env wires every service over SQLite, miniredis and in-memory fakes.
type env struct {
	t           *testing.T
	db          *gorm.DB
	submissions *repositories.PostgresSubmissionRepository
	likes       *repositories.PostgresLikeRepository
	rejected    *fakeRejected
	store       *fakeStore
	anon        *cache.AnonymousLikes
	feed        *changefeed.Broker
	gallery     *countingInvalidator
	processor   *fakeProcessor
	now         time.Time
	seq         int

	intake     *IntakeService
	moderation *ModerationService
	ledger     *LikeLedger
}

func newEnv(t *testing.T) *env {
	t.Helper()
	db := testsupport.NewTestDB(t)
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	e := &env{
		t:           t,
		db:          db,
		submissions: repositories.NewPostgresSubmissionRepository(db),
		likes:       repositories.NewPostgresLikeRepository(db),
		rejected:    &fakeRejected{},
		store:       newFakeStore(),
		anon:        cache.NewAnonymousLikes(rdb, time.Hour),
		feed:        changefeed.NewBroker(zerolog.Nop()),
		gallery:     &countingInvalidator{},
		processor:   &fakeProcessor{hash: "ffffffffffffffff"},
		now:         time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	detector := NewDuplicateDetector(e.submissions, DefaultSimilarityThreshold)
	e.intake = NewIntakeService(e.submissions, e.rejected, detector, e.processor, e.store, e.feed, IntakeConfig{}, zerolog.Nop())
	e.intake.now = func() time.Time { return e.now }
	e.moderation = NewModerationService(e.submissions, e.rejected, e.store, e.anon, e.feed, e.gallery, zerolog.Nop())
	e.ledger = NewLikeLedger(e.submissions, e.likes, e.anon, e.feed, e.gallery, zerolog.Nop())
	return e
}

func (e *env) seed(id uint, username string, status models.SubmissionStatus, hash string, createdAt time.Time) *models.Submission {
	e.t.Helper()
	e.seq++
	sub := &models.Submission{
		ID:            id,
		TransactionID: fmt.Sprintf("TX-SEED-%d", e.seq),
		Username:      username,
		ImageURL:      "https://cdn.test/submissions/" + username + ".jpg",
		ImagePath:     "submissions/" + username + ".jpg",
		Caption:       "seeded",
		Status:        status,
		CreatedAt:     createdAt,
	}
	if hash != "" {
		sub.PHash = &hash
	}
	require.NoError(e.t, e.submissions.Create(context.Background(), sub))
	return sub
}
