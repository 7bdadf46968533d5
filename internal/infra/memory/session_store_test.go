package memory

import (
	"testing"
	"time"

	"culturax-service/internal/app"
	"culturax-service/internal/domain"
)

func TestSessionStoreLifecycle(t *testing.T) {
	store := NewSessionStore()

	session := app.NewPlaySession("s-1", "u1", sampleQuiz(), time.Now())
	store.Put(session)
	if got, ok := store.Get("s-1"); !ok || got != session {
		t.Fatalf("expected session present")
	}
	if store.Len() != 1 {
		t.Fatalf("expected 1 live session, got %d", store.Len())
	}

	store.Delete("s-1")
	if _, ok := store.Get("s-1"); ok {
		t.Fatalf("expected session removed")
	}
}

func sampleQuiz() domain.Quiz {
	return domain.Quiz{
		ID:        "quiz-1",
		Title:     "Mughal Architecture",
		TimeLimit: 60,
		IsActive:  true,
		Questions: []domain.Question{
			{
				ID:            "q1",
				QuizID:        "quiz-1",
				QuestionText:  "Who commissioned the Taj Mahal?",
				OptionA:       "Akbar",
				OptionB:       "Shah Jahan",
				OptionC:       "Aurangzeb",
				OptionD:       "Humayun",
				CorrectAnswer: domain.OptionB,
				Points:        10,
			},
		},
	}
}
