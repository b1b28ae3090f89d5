package services

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/anonto42/photowall/backend/internal/metrics"
	"github.com/anonto42/photowall/backend/internal/repositories"
	"github.com/anonto42/photowall/backend/pkg/storage"
)

const (
	DefaultRejectedRetention = 90 * 24 * time.Hour
	purgeBatchSize           = 200
)

// PurgeReport summarizes one retention run.
type PurgeReport struct {
	Cutoff        time.Time `json:"cutoff"`
	Expired       int       `json:"expired"`
	Purged        int       `json:"purged"`
	ImagesDeleted int       `json:"images_deleted"`
	Failed        int       `json:"failed"`
	DryRun        bool      `json:"dry_run"`
}

// RetentionService removes expired rejected-submission records.
type RetentionService struct {
	rejected  repositories.RejectedRepository
	store     storage.Store
	retention time.Duration
	log       zerolog.Logger
}

func NewRetentionService(rejected repositories.RejectedRepository, store storage.Store, retention time.Duration, log zerolog.Logger) *RetentionService {
	if retention <= 0 {
		retention = DefaultRejectedRetention
	}
	return &RetentionService{
		rejected:  rejected,
		store:     store,
		retention: retention,
		log:       log.With().Str("component", "retention").Logger(),
	}
}

// PurgeRejected deletes records older than the retention window together
// with their images. A record whose image cannot be deleted is kept so the
// next run retries it; this run moves past it.
func (s *RetentionService) PurgeRejected(ctx context.Context, now time.Time) (PurgeReport, error) {
	report := PurgeReport{Cutoff: now.Add(-s.retention)}
	var cursor *repositories.ExpiredCursor
	for {
		batch, err := s.rejected.ListOlderThan(ctx, report.Cutoff, cursor, purgeBatchSize)
		if err != nil {
			return report, err
		}
		report.Expired += len(batch)

		purgedInBatch := 0
		for _, rec := range batch {
			if rec.ImagePath != "" {
				if err := s.store.Delete(ctx, rec.ImagePath); err != nil {
					report.Failed++
					s.log.Warn().Err(err).Str("id", rec.ID.Hex()).Str("key", rec.ImagePath).Msg("delete rejected image")
					continue
				}
				report.ImagesDeleted++
			}
			if err := s.rejected.Delete(ctx, rec.ID); err != nil {
				report.Failed++
				s.log.Warn().Err(err).Str("id", rec.ID.Hex()).Msg("delete rejected record")
				continue
			}
			purgedInBatch++
		}
		report.Purged += purgedInBatch
		metrics.RejectedPurgedTotal.Add(float64(purgedInBatch))

		if len(batch) < purgeBatchSize {
			break
		}
		cursor = repositories.CursorAfter(batch[len(batch)-1])
	}

	s.log.Info().
		Time("cutoff", report.Cutoff).
		Int("purged", report.Purged).
		Int("failed", report.Failed).
		Msg("rejected submissions purged")
	return report, nil
}

// Preview counts what PurgeRejected would remove without touching anything.
func (s *RetentionService) Preview(ctx context.Context, now time.Time) (PurgeReport, error) {
	report := PurgeReport{Cutoff: now.Add(-s.retention), DryRun: true}
	n, err := s.rejected.CountOlderThan(ctx, report.Cutoff)
	if err != nil {
		return report, err
	}
	report.Expired = int(n)
	return report, nil
}

// Run purges on every tick until ctx is done.
func (s *RetentionService) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case t := <-ticker.C:
			if _, err := s.PurgeRejected(ctx, t); err != nil {
				s.log.Error().Err(err).Msg("retention run failed")
			}
		}
	}
}
