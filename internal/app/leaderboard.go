package app

import (
	"context"
	"fmt"
	"sort"

	"culturax-service/internal/domain"
)

// DefaultLeaderboardLimit caps both the fetched attempt rows and the returned groups.
const DefaultLeaderboardLimit = 50

// UnknownExplorer is shown for users without a profile name.
const UnknownExplorer = "Unknown Explorer"

// AggregateLeaderboard groups attempts by user, sums their scores and returns
// the top limit users. Ties keep the order in which users first appear.
func AggregateLeaderboard(rows []domain.QuizAttempt, limit int) []domain.LeaderboardEntry {
	index := make(map[string]int)
	entries := make([]domain.LeaderboardEntry, 0)
	for _, row := range rows {
		if row.UserID == "" {
			continue
		}
		i, ok := index[row.UserID]
		if !ok {
			name := row.Username
			if name == "" {
				name = UnknownExplorer
			}
			entries = append(entries, domain.LeaderboardEntry{UserID: row.UserID, Username: name})
			i = len(entries) - 1
			index[row.UserID] = i
		}
		entries[i].TotalScore += row.Score
		entries[i].Attempts++
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].TotalScore > entries[j].TotalScore
	})
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	return entries
}

// LeaderboardService builds the global leaderboard.
//
// Only the top limit attempt rows are aggregated, so a user's total can be
// undercounted once more than limit attempts exist.
type LeaderboardService struct {
	attempts AttemptStore
	limit    int
}

func NewLeaderboardService(attempts AttemptStore, limit int) *LeaderboardService {
	if limit <= 0 {
		limit = DefaultLeaderboardLimit
	}
	return &LeaderboardService{attempts: attempts, limit: limit}
}

func (s *LeaderboardService) Top(ctx context.Context) ([]domain.LeaderboardEntry, error) {
	rows, err := s.attempts.TopAttempts(ctx, s.limit)
	if err != nil {
		return nil, fmt.Errorf("load leaderboard: %w", err)
	}
	return AggregateLeaderboard(rows, s.limit), nil
}
