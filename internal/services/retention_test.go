package services

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anonto42/photowall/backend/internal/models"
)

func TestPurgeRejected(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	now := e.now

	old := []models.RejectedSubmission{
		{Username: "a", ImagePath: "rejected/a.jpg", CreatedAt: now.Add(-91 * dayDuration)},
		{Username: "b", CreatedAt: now.Add(-200 * dayDuration)},
	}
	for i := range old {
		require.NoError(t, e.rejected.Create(ctx, &old[i]))
	}
	e.store.objects["rejected/a.jpg"] = []byte("x")
	require.NoError(t, e.rejected.Create(ctx, &models.RejectedSubmission{Username: "c", CreatedAt: now.Add(-89 * dayDuration)}))

	svc := NewRetentionService(e.rejected, e.store, DefaultRejectedRetention, zerolog.Nop())

	preview, err := svc.Preview(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, 2, preview.Expired)
	assert.Len(t, e.rejected.records, 3)

	report, err := svc.PurgeRejected(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Purged)
	assert.Equal(t, 1, report.ImagesDeleted)
	assert.Zero(t, report.Failed)

	require.Len(t, e.rejected.records, 1)
	assert.Equal(t, "c", e.rejected.records[0].Username)
	assert.NotContains(t, e.store.objects, "rejected/a.jpg")
}

func TestPurgeRejected_KeepsRecordWhenImageDeleteFails(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	require.NoError(t, e.rejected.Create(ctx, &models.RejectedSubmission{
		Username: "a", ImagePath: "rejected/a.jpg", CreatedAt: e.now.Add(-100 * dayDuration),
	}))
	e.store.deleteErr = assert.AnError

	svc := NewRetentionService(e.rejected, e.store, 0, zerolog.Nop())
	report, err := svc.PurgeRejected(ctx, e.now)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Failed)
	assert.Zero(t, report.Purged)
	assert.Len(t, e.rejected.records, 1)
}

func TestPurgeRejected_MovesPastFailedBatch(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	for i := 0; i < purgeBatchSize; i++ {
		require.NoError(t, e.rejected.Create(ctx, &models.RejectedSubmission{
			Username:  fmt.Sprintf("stuck-%d", i),
			ImagePath: fmt.Sprintf("rejected/%d.jpg", i),
			CreatedAt: e.now.Add(-300*dayDuration + time.Duration(i)*time.Minute),
		}))
	}
	for i := 0; i < 5; i++ {
		require.NoError(t, e.rejected.Create(ctx, &models.RejectedSubmission{
			Username:  fmt.Sprintf("plain-%d", i),
			CreatedAt: e.now.Add(-100 * dayDuration),
		}))
	}
	e.store.deleteErr = assert.AnError

	svc := NewRetentionService(e.rejected, e.store, 0, zerolog.Nop())
	report, err := svc.PurgeRejected(ctx, e.now)
	require.NoError(t, err)
	assert.Equal(t, purgeBatchSize+5, report.Expired)
	assert.Equal(t, purgeBatchSize, report.Failed)
	assert.Equal(t, 5, report.Purged)
	assert.Equal(t, 2, e.rejected.listCalls)
	assert.Len(t, e.rejected.records, purgeBatchSize)

	preview, err := svc.Preview(ctx, e.now)
	require.NoError(t, err)
	assert.Equal(t, purgeBatchSize, preview.Expired)
}

func TestRetentionRun_StopsWithContext(t *testing.T) {
	e := newEnv(t)
	svc := NewRetentionService(e.rejected, e.store, 0, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		svc.Run(ctx, 10*time.Millisecond)
		close(done)
	}()
	time.Sleep(30 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
