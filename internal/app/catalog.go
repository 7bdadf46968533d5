package app

import (
	"context"
	"fmt"

	"culturax-service/internal/domain"
)

// ContentLoader assembles a quiz and its ordered questions from the gateway.
// Catalog caches use it on a miss.
type ContentLoader struct {
	quizzes   QuizStore
	questions QuestionStore
}

func NewContentLoader(quizzes QuizStore, questions QuestionStore) *ContentLoader {
	return &ContentLoader{quizzes: quizzes, questions: questions}
}

func (l *ContentLoader) LoadQuiz(ctx context.Context, quizID string) (domain.Quiz, error) {
	quiz, err := l.quizzes.GetQuiz(ctx, quizID)
	if err != nil {
		return domain.Quiz{}, err
	}
	questions, err := l.questions.ListQuestions(ctx, quizID)
	if err != nil {
		return domain.Quiz{}, fmt.Errorf("load questions: %w", err)
	}
	quiz.Questions = questions
	return quiz, nil
}

// CatalogService serves the public quiz listing and quiz content.
type CatalogService struct {
	quizzes QuizStore
	catalog QuizCatalog
}

func NewCatalogService(quizzes QuizStore, catalog QuizCatalog) *CatalogService {
	return &CatalogService{quizzes: quizzes, catalog: catalog}
}

// ListActive returns the active quizzes, newest first.
func (s *CatalogService) ListActive(ctx context.Context) ([]domain.Quiz, error) {
	quizzes, err := s.quizzes.ListActiveQuizzes(ctx)
	if err != nil {
		return nil, fmt.Errorf("list quizzes: %w", err)
	}
	return quizzes, nil
}

// Quiz returns a quiz with its questions ordered by order_index.
func (s *CatalogService) Quiz(ctx context.Context, quizID string) (domain.Quiz, error) {
	return s.catalog.GetQuiz(ctx, quizID)
}
