package app

import (
	"context"
	"errors"
	"fmt"

	"culturax-service/internal/domain"
	"github.com/shopspring/decimal"
)

const recentAttemptsShown = 10

// ProfileOverview is the profile page model.
type ProfileOverview struct {
	Profile domain.Profile       `json:"profile"`
	Stats   domain.ProfileStats  `json:"stats"`
	Recent  []domain.QuizAttempt `json:"recentAttempts"`
}

type ProfileService struct {
	profiles ProfileStore
	attempts AttemptStore
}

func NewProfileService(profiles ProfileStore, attempts AttemptStore) *ProfileService {
	return &ProfileService{profiles: profiles, attempts: attempts}
}

// Overview loads the profile of userID with stats over all attempts and the latest ten.
func (s *ProfileService) Overview(ctx context.Context, userID string) (ProfileOverview, error) {
	if userID == "" {
		return ProfileOverview{}, domain.ErrUnauthenticated
	}
	profile, err := s.profiles.GetProfile(ctx, userID)
	if err != nil && !errors.Is(err, domain.ErrProfileNotFound) {
		return ProfileOverview{}, fmt.Errorf("load profile: %w", err)
	}
	attempts, err := s.attempts.UserAttempts(ctx, userID)
	if err != nil {
		return ProfileOverview{}, fmt.Errorf("load attempts: %w", err)
	}

	recent := attempts
	if len(recent) > recentAttemptsShown {
		recent = recent[:recentAttemptsShown]
	}
	return ProfileOverview{
		Profile: profile,
		Stats:   AttemptStats(attempts),
		Recent:  recent,
	}, nil
}

// AttemptStats averages score and accuracy over attempts, rounded half away from zero.
func AttemptStats(attempts []domain.QuizAttempt) domain.ProfileStats {
	stats := domain.ProfileStats{TotalAttempts: len(attempts)}
	if len(attempts) == 0 {
		return stats
	}
	n := decimal.NewFromInt(int64(len(attempts)))
	scoreSum := decimal.Zero
	accuracySum := decimal.Zero
	for _, a := range attempts {
		scoreSum = scoreSum.Add(decimal.NewFromInt(int64(a.Score)))
		if a.TotalQuestions > 0 {
			accuracySum = accuracySum.Add(
				decimal.NewFromInt(int64(a.CorrectAnswers)).
					Mul(decimal.NewFromInt(100)).
					Div(decimal.NewFromInt(int64(a.TotalQuestions))),
			)
		}
	}
	stats.AverageScore = int(scoreSum.Div(n).Round(0).IntPart())
	stats.AverageAccuracy = int(accuracySum.Div(n).Round(0).IntPart())
	return stats
}
