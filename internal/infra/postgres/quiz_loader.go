package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"culturax-service/internal/domain"
	"github.com/uptrace/bun"
)

// QuizLoader loads a quiz row together with its ordered questions through a
// has-many relation, for the catalog caches.
type QuizLoader struct {
	db bun.IDB
}

func NewQuizLoader(db bun.IDB) *QuizLoader {
	return &QuizLoader{db: db}
}

func (l *QuizLoader) LoadQuiz(ctx context.Context, quizID string) (domain.Quiz, error) {
	var row quizRow
	err := l.db.NewSelect().
		Model(&row).
		Relation("Questions", func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.OrderExpr("qs.order_index ASC")
		}).
		Where("q.id = ?", quizID).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Quiz{}, domain.ErrQuizNotFound
	}
	if err != nil {
		return domain.Quiz{}, fmt.Errorf("load quiz: %w", err)
	}

	quiz := row.toDomain()
	quiz.Questions = make([]domain.Question, 0, len(row.Questions))
	for _, q := range row.Questions {
		quiz.Questions = append(quiz.Questions, q.toDomain())
	}
	return quiz, nil
}
