package app

import (
	"context"

	"culturax-service/internal/domain"
)

// QuizStore persists quiz rows.
type QuizStore interface {
	// ListActiveQuizzes returns quizzes with is_active = true, newest first.
	ListActiveQuizzes(ctx context.Context) ([]domain.Quiz, error)
	// ListQuizzes returns every quiz, newest first.
	ListQuizzes(ctx context.Context) ([]domain.Quiz, error)
	GetQuiz(ctx context.Context, quizID string) (domain.Quiz, error)
	InsertQuiz(ctx context.Context, quiz domain.Quiz) (string, error)
	UpdateQuiz(ctx context.Context, quiz domain.Quiz) error
	DeleteQuiz(ctx context.Context, quizID string) error
}

// QuestionStore persists question rows.
type QuestionStore interface {
	// ListQuestions returns the questions of a quiz ordered by order_index.
	ListQuestions(ctx context.Context, quizID string) ([]domain.Question, error)
	InsertQuestions(ctx context.Context, questions []domain.Question) error
	DeleteQuestions(ctx context.Context, quizID string) error
}

// AttemptStore persists quiz attempts. Attempts are insert-only.
type AttemptStore interface {
	InsertAttempt(ctx context.Context, attempt domain.QuizAttempt) error
	// TopAttempts returns up to limit attempts by score desc, with Username joined.
	TopAttempts(ctx context.Context, limit int) ([]domain.QuizAttempt, error)
	// UserAttempts returns a user's attempts newest first, with QuizTitle joined.
	UserAttempts(ctx context.Context, userID string) ([]domain.QuizAttempt, error)
	// ListAttempts returns score, correct_answers and total_questions of every attempt.
	ListAttempts(ctx context.Context) ([]domain.QuizAttempt, error)
}

type ProfileStore interface {
	GetProfile(ctx context.Context, userID string) (domain.Profile, error)
}

type MonumentStore interface {
	InsertMonument(ctx context.Context, monument domain.Monument) (string, error)
}

type FeedbackStore interface {
	InsertFeedback(ctx context.Context, feedback domain.Feedback) error
}

// RoleStore resolves user_roles. A user without a row has the empty role.
type RoleStore interface {
	GetRole(ctx context.Context, userID string) (domain.Role, error)
}

// RowCounter runs head-count queries.
type RowCounter interface {
	CountRows(ctx context.Context, table domain.Table) (int, error)
}

// Gateway is the remote data gateway used by every use case.
type Gateway interface {
	QuizStore
	QuestionStore
	AttemptStore
	ProfileStore
	MonumentStore
	FeedbackStore
	RoleStore
	RowCounter
}

// QuizCatalog serves quizzes with their ordered questions, usually from a cache.
type QuizCatalog interface {
	GetQuiz(ctx context.Context, quizID string) (domain.Quiz, error)
	Invalidate(ctx context.Context, quizID string)
}

// AuthGateway is the remote authentication service.
type AuthGateway interface {
	SignInWithPassword(ctx context.Context, email, password string) (domain.Session, error)
	SignUp(ctx context.Context, email, password, username string) (domain.Session, error)
	SignOut(ctx context.Context, token string) error
	// GetSession resolves a token; it returns ErrUnauthenticated for unknown or revoked tokens.
	GetSession(ctx context.Context, token string) (domain.Session, error)
	// OnAuthStateChange registers fn and returns a function removing it.
	OnAuthStateChange(fn func(event domain.AuthEvent, session domain.Session)) (unsubscribe func())
}
