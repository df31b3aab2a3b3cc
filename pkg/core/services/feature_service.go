package services

import (
	"context"
	"strings"

	"github.com/wadjakorntonsri/lnkzip/pkg/core/domain"
	"github.com/wadjakorntonsri/lnkzip/pkg/ports"
)

// DefaultMaxTrials is how many times a signed-in user may try a premium feature.
const DefaultMaxTrials = 2

// FeatureService keeps premium feature trial counters per user in the store.
type FeatureService struct {
	repo      ports.Repository
	maxTrials int
}

func NewFeatureService(repo ports.Repository, maxTrials int) *FeatureService {
	if maxTrials < 1 {
		maxTrials = DefaultMaxTrials
	}
	return &FeatureService{repo: repo, maxTrials: maxTrials}
}

// Status reports the trial counter and whether the feature may be used.
// Anonymous visitors may always try.
func (s *FeatureService) Status(ctx context.Context, userID, feature string) (*domain.FeatureTrial, bool, error) {
	trial, err := s.trial(userID, feature)
	if err != nil {
		return nil, false, err
	}
	if userID == "" {
		return trial, true, nil
	}

	count, err := s.repo.GetFeatureTrial(ctx, userID, trial.Feature)
	if err != nil {
		return nil, false, err
	}
	trial.TrialCount = count
	return trial, count < s.maxTrials, nil
}

// Use consumes one trial. Anonymous visitors cannot consume trials.
func (s *FeatureService) Use(ctx context.Context, userID, feature string) (*domain.FeatureTrial, bool, error) {
	trial, err := s.trial(userID, feature)
	if err != nil {
		return nil, false, err
	}
	if userID == "" {
		return trial, false, nil
	}

	used, count, err := s.repo.UseFeatureTrial(ctx, userID, trial.Feature, s.maxTrials)
	if err != nil {
		return nil, false, err
	}
	trial.TrialCount = count
	return trial, used, nil
}

func (s *FeatureService) trial(userID, feature string) (*domain.FeatureTrial, error) {
	feature = strings.ToLower(strings.TrimSpace(feature))
	if feature == "" {
		return nil, domain.NewValidationError("feature", "is required")
	}
	return &domain.FeatureTrial{UserID: userID, Feature: feature, MaxTrials: s.maxTrials}, nil
}
