package app

import "culturax-service/internal/domain"

// ScoreResult is the outcome of scoring a set of answers.
type ScoreResult struct {
	CorrectAnswers int `json:"correctAnswers"`
	TotalQuestions int `json:"totalQuestions"`
	TotalPoints    int `json:"totalPoints"`
	Score          int `json:"score"`
}

// Score grades answers (question index to chosen option) against questions.
// The score is the correct fraction of the total available points, floored.
// An empty question list scores 0.
func Score(questions []domain.Question, answers map[int]domain.OptionKey) ScoreResult {
	res := ScoreResult{TotalQuestions: len(questions)}
	for idx, option := range answers {
		if idx < 0 || idx >= len(questions) {
			continue
		}
		if questions[idx].CorrectAnswer == option {
			res.CorrectAnswers++
		}
	}
	for _, q := range questions {
		res.TotalPoints += q.EffectivePoints()
	}

	n := res.TotalQuestions
	if n == 0 {
		n = 1
	}
	res.Score = floorDiv(res.CorrectAnswers*res.TotalPoints, n)
	return res
}

func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}
