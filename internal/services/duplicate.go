package services

import (
	"context"
	"fmt"

	"github.com/anonto42/photowall/backend/internal/models"
	"github.com/anonto42/photowall/backend/pkg/phash"
)

// DefaultSimilarityThreshold is the largest hash distance still treated as
// the same photograph.
const DefaultSimilarityThreshold = 15

// DuplicateResult is the outcome of a duplicate check. Original is set only
// when IsDuplicate is true.
type DuplicateResult struct {
	IsDuplicate bool
	Original    *models.Submission
	Distance    int
}

// FindDuplicate scans pool in order and returns the first candidate within
// threshold of newHash. Candidates that are rejected, or whose hash is
// missing or not comparable, are skipped.
func FindDuplicate(newHash string, pool []models.Submission, threshold int) DuplicateResult {
	if newHash == "" {
		return DuplicateResult{}
	}
	for i := range pool {
		candidate := &pool[i]
		if candidate.CurrentStatus() == models.StatusRejected {
			continue
		}
		d, err := phash.Distance(newHash, candidate.Hash())
		if err != nil {
			continue
		}
		if d <= threshold {
			return DuplicateResult{IsDuplicate: true, Original: candidate, Distance: d}
		}
	}
	return DuplicateResult{}
}

// CandidateSource loads the pool a new submission is compared against,
// oldest first.
type CandidateSource interface {
	DuplicateCandidates(ctx context.Context) ([]models.Submission, error)
}

// DuplicateDetector runs FindDuplicate against the stored pool.
type DuplicateDetector struct {
	candidates CandidateSource
	threshold  int
}

func NewDuplicateDetector(candidates CandidateSource, threshold int) *DuplicateDetector {
	if threshold < 0 {
		threshold = DefaultSimilarityThreshold
	}
	return &DuplicateDetector{candidates: candidates, threshold: threshold}
}

// Detect fails with ErrCandidateLookup when the pool cannot be loaded, so a
// store outage is never mistaken for "no duplicate".
func (d *DuplicateDetector) Detect(ctx context.Context, hash string) (DuplicateResult, error) {
	pool, err := d.candidates.DuplicateCandidates(ctx)
	if err != nil {
		return DuplicateResult{}, fmt.Errorf("%w: %v", ErrCandidateLookup, err)
	}
	return FindDuplicate(hash, pool, d.threshold), nil
}
