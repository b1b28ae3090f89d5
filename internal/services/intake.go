package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/anonto42/photowall/backend/internal/auth"
	"github.com/anonto42/photowall/backend/internal/changefeed"
	"github.com/anonto42/photowall/backend/internal/metrics"
	"github.com/anonto42/photowall/backend/internal/models"
	"github.com/anonto42/photowall/backend/internal/repositories"
	"github.com/anonto42/photowall/backend/pkg/imaging"
	"github.com/anonto42/photowall/backend/pkg/storage"
	"github.com/anonto42/photowall/backend/pkg/txid"
)

const (
	DefaultCooldown       = 30 * 24 * time.Hour
	DefaultMaxUploadBytes = 10 << 20
)

var allowedImageTypes = []string{"image/jpeg", "image/png", "image/webp", "image/gif"}

// ImageProcessor normalizes an upload and fingerprints it.
type ImageProcessor interface {
	Process(data []byte) (*imaging.Processed, error)
}

type IntakeOutcome string

const (
	OutcomeAccepted            IntakeOutcome = "accepted"
	OutcomeRejectedAsDuplicate IntakeOutcome = "rejected_as_duplicate"
)

// SubmitInput is one submission attempt.
type SubmitInput struct {
	Username string `validate:"required,min=1,max=50"`
	Caption  string `validate:"required,min=1,max=500"`
	Image    []byte
	Owner    auth.Identity
}

// IntakeResult carries Submission for accepted attempts, and Rejected plus
// Original for duplicates.
type IntakeResult struct {
	Outcome    IntakeOutcome
	Submission *models.Submission
	Rejected   *models.RejectedSubmission
	Original   *models.Submission
}

type IntakeConfig struct {
	Cooldown       time.Duration
	MaxUploadBytes int64
}

// IntakeService accepts new submissions.
type IntakeService struct {
	submissions repositories.SubmissionRepository
	rejected    repositories.RejectedRepository
	detector    *DuplicateDetector
	images      ImageProcessor
	store       storage.Store
	feed        changefeed.Feed
	validate    *validator.Validate
	cfg         IntakeConfig
	log         zerolog.Logger
	now         func() time.Time
}

func NewIntakeService(
	submissions repositories.SubmissionRepository,
	rejected repositories.RejectedRepository,
	detector *DuplicateDetector,
	images ImageProcessor,
	store storage.Store,
	feed changefeed.Feed,
	cfg IntakeConfig,
	log zerolog.Logger,
) *IntakeService {
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = DefaultCooldown
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = DefaultMaxUploadBytes
	}
	return &IntakeService{
		submissions: submissions,
		rejected:    rejected,
		detector:    detector,
		images:      images,
		store:       store,
		feed:        feed,
		validate:    validator.New(),
		cfg:         cfg,
		log:         log.With().Str("component", "intake").Logger(),
		now:         time.Now,
	}
}

// Submit runs one attempt through validation, the cooldown check, image
// normalization and duplicate detection. Duplicates are logged as rejected
// records and never reach the image store.
func (s *IntakeService) Submit(ctx context.Context, in SubmitInput) (*IntakeResult, error) {
	in.Username = strings.TrimSpace(in.Username)
	in.Caption = strings.TrimSpace(in.Caption)

	if err := s.check(in); err != nil {
		metrics.SubmissionsTotal.WithLabelValues("invalid").Inc()
		return nil, err
	}

	if err := s.checkCooldown(ctx, in.Username); err != nil {
		var cd *CooldownError
		if errors.As(err, &cd) {
			metrics.SubmissionsTotal.WithLabelValues("cooldown").Inc()
		} else {
			metrics.SubmissionsTotal.WithLabelValues("error").Inc()
		}
		return nil, err
	}

	processed, err := s.images.Process(in.Image)
	if err != nil {
		metrics.SubmissionsTotal.WithLabelValues("invalid").Inc()
		return nil, &ValidationError{Field: "image", Message: "image could not be decoded"}
	}

	dup, err := s.detector.Detect(ctx, processed.Hash)
	if err != nil {
		metrics.SubmissionsTotal.WithLabelValues("error").Inc()
		return nil, err
	}
	if dup.IsDuplicate {
		return s.rejectDuplicate(ctx, in, processed.Hash, dup)
	}
	return s.accept(ctx, in, processed)
}

func (s *IntakeService) check(in SubmitInput) error {
	if err := s.validate.Struct(in); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			field := strings.ToLower(fe.Field())
			switch fe.Tag() {
			case "required":
				return &ValidationError{Field: field, Message: "is required"}
			case "max":
				return &ValidationError{Field: field, Message: fmt.Sprintf("must be at most %s characters", fe.Param())}
			}
			return &ValidationError{Field: field, Message: "is invalid"}
		}
		return &ValidationError{Message: err.Error()}
	}

	if len(in.Image) == 0 {
		return &ValidationError{Field: "image", Message: "is required"}
	}
	if int64(len(in.Image)) > s.cfg.MaxUploadBytes {
		return &ValidationError{Field: "image", Message: fmt.Sprintf("must be at most %d bytes", s.cfg.MaxUploadBytes)}
	}
	mtype := mimetype.Detect(in.Image)
	for _, allowed := range allowedImageTypes {
		if mtype.Is(allowed) {
			return nil
		}
	}
	return &ValidationError{Field: "image", Message: fmt.Sprintf("unsupported type %s", mtype.String())}
}

// checkCooldown rejects a username whose latest submission is younger than
// the cooldown. Days remaining counts whole days already waited.
func (s *IntakeService) checkCooldown(ctx context.Context, username string) error {
	last, err := s.submissions.LatestByUsername(ctx, username)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("load latest submission: %w", err)
	}

	age := s.now().Sub(last.CreatedAt)
	if age >= s.cfg.Cooldown {
		return nil
	}
	cooldownDays := int(s.cfg.Cooldown / (24 * time.Hour))
	elapsedDays := int(age / (24 * time.Hour))
	remaining := cooldownDays - elapsedDays
	if remaining < 1 {
		remaining = 1
	}
	return &CooldownError{DaysRemaining: remaining}
}

func (s *IntakeService) rejectDuplicate(ctx context.Context, in SubmitInput, hash string, dup DuplicateResult) (*IntakeResult, error) {
	rec := &models.RejectedSubmission{
		Username:             in.Username,
		Caption:              in.Caption,
		Reason:               fmt.Sprintf("Duplicate of submission #%d by %s", dup.Original.ID, dup.Original.Username),
		OriginalSubmissionID: dup.Original.ID,
		OriginalUsername:     dup.Original.Username,
		PHash:                hash,
		CreatedAt:            s.now().UTC(),
	}
	if err := s.rejected.Create(ctx, rec); err != nil {
		metrics.SubmissionsTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("record rejected submission: %w", err)
	}

	metrics.SubmissionsTotal.WithLabelValues("duplicate").Inc()
	s.log.Info().
		Str("username", in.Username).
		Uint("original_id", dup.Original.ID).
		Int("distance", dup.Distance).
		Msg("submission rejected as duplicate")
	return &IntakeResult{Outcome: OutcomeRejectedAsDuplicate, Rejected: rec, Original: dup.Original}, nil
}

func (s *IntakeService) accept(ctx context.Context, in SubmitInput, img *imaging.Processed) (*IntakeResult, error) {
	key := "submissions/" + uuid.NewString() + ".jpg"
	if err := s.store.Upload(ctx, key, bytes.NewReader(img.Data), int64(len(img.Data)), img.ContentType); err != nil {
		metrics.SubmissionsTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("upload image: %w", err)
	}

	now := s.now().UTC()
	hash := img.Hash
	sub := &models.Submission{
		TransactionID: txid.New(now),
		Username:      in.Username,
		ImageURL:      s.store.PublicURL(key),
		ImagePath:     key,
		Caption:       in.Caption,
		PHash:         &hash,
		Status:        models.StatusPending,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if !in.Owner.IsAnonymous() {
		owner := in.Owner.UserID
		sub.OwnerID = &owner
	}

	if err := s.submissions.Create(ctx, sub); err != nil {
		if derr := s.store.Delete(context.WithoutCancel(ctx), key); derr != nil {
			s.log.Error().Err(derr).Str("key", key).Msg("retract uploaded image")
		}
		metrics.SubmissionsTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("create submission: %w", err)
	}

	if err := s.feed.Publish(ctx, changefeed.Inserted(sub)); err != nil {
		s.log.Warn().Err(err).Uint("id", sub.ID).Msg("publish insert event")
	}
	metrics.SubmissionsTotal.WithLabelValues("accepted").Inc()
	s.log.Info().Uint("id", sub.ID).Str("transaction_id", sub.TransactionID).Msg("submission accepted")
	return &IntakeResult{Outcome: OutcomeAccepted, Submission: sub}, nil
}
